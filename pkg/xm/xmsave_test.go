package xm

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildTestModule() *Module {
	m := NewModule()
	m.Name = "Café round trip"
	m.NumChannels = 4
	m.SongLength = 3
	m.RestartPosition = 1
	m.Tempo = 5
	m.BPM = 140
	m.Orders[0], m.Orders[1], m.Orders[2] = 0, 1, 0

	p := NewPattern(16, 4)
	*p.Cell(0, 0) = Note{49, 1, 0x40, 0x0C, 0x20}
	*p.Cell(4, 3) = Note{Note: NoteOff}
	*p.Cell(15, 2) = Note{Instrument: 3, FxType: 0x0F, FxParam: 0x06}
	m.Patterns[0] = p
	p = NewPattern(DefaultRows, 4)
	*p.Cell(63, 1) = Note{Note: 13, Volume: 0x20}
	m.Patterns[1] = p

	bass := NewInstrument()
	bass.Name = "bass"
	bass.VolumeEnvelope = Envelope{NumPoints: 3, Sustain: 1, Flags: EnvelopeEnabled | EnvelopeSustain}
	bass.VolumeEnvelope.Points[0] = EnvelopePoint{0, 64}
	bass.VolumeEnvelope.Points[1] = EnvelopePoint{10, 32}
	bass.VolumeEnvelope.Points[2] = EnvelopePoint{40, 0}
	bass.VibratoType, bass.VibratoSweep, bass.VibratoDepth, bass.VibratoRate = 1, 2, 3, 4
	bass.Fadeout = 0x200
	bass.MIDI = MIDISettings{Enabled: true, Channel: 3, Program: 10, BendRange: 12}
	for k := 48; k < NumKeys; k++ {
		bass.Keymap[k] = 1
	}

	low := sample8("bass low", 0, 10, 20, 30, 20, 10, 0, -10)
	low.Loop, low.LoopStart, low.LoopEnd = LoopForward, 2, 6
	low.Volume, low.FineTune, low.Panning, low.RelativeNote = 48, -8, -20, 12
	bass.Samples[0] = low

	high := NewSample()
	high.Name = "bass high"
	high.Bits = 16
	high.SetData([]int16{0, 1000, -1000, 32767, 5, -5, -32768, 7}, 4, true)
	high.Loop, high.LoopStart, high.LoopEnd = LoopPingPong, 1, 3
	bass.Samples[1] = high
	m.Instruments[0] = bass

	hat := NewInstrument()
	hat.Name = "hat"
	m.Instruments[2] = hat
	return m
}

func TestSaveLoadRoundTrip(t *testing.T) {
	m := buildTestModule()
	data, err := SaveBytes(m, VariantXM)
	require.NoError(t, err)

	got, rep, err := LoadBytes(data)
	require.NoError(t, err)
	assert.Empty(t, rep.Warnings)

	assert.Equal(t, m.Name, got.Name)
	assert.Equal(t, defaultTracker, got.TrackerName)
	assert.Equal(t, 4, got.NumChannels)
	assert.Equal(t, 3, got.SongLength)
	assert.Equal(t, 1, got.RestartPosition)
	assert.Equal(t, 5, got.Tempo)
	assert.Equal(t, 140, got.BPM)
	assert.True(t, got.LinearFrequencies)
	assert.Equal(t, m.Orders, got.Orders)

	assert.Equal(t, m.Patterns[0], got.Patterns[0])
	assert.Equal(t, m.Patterns[1], got.Patterns[1])
	assert.Equal(t, m.Instruments[0], got.Instruments[0])
	assert.True(t, got.Instruments[1].isDefault())
	assert.Equal(t, "hat", got.Instruments[2].Name)

	sum := got.Summary()
	assert.Equal(t, 2, sum.Patterns)
	assert.Equal(t, 3, sum.Instruments)
	assert.Equal(t, 2, sum.Samples)
}

func TestSaveEmptySampleSlot(t *testing.T) {
	m := NewModule()
	ins := NewInstrument()
	ins.Name = "gap"
	ins.Samples[0] = nil
	ins.Samples[1] = sample8("second", 5, -5)
	m.Instruments[0] = ins

	data, err := SaveBytes(m, VariantXM)
	require.NoError(t, err)
	got, rep, err := LoadBytes(data)
	require.NoError(t, err)
	assert.Empty(t, rep.Warnings)

	loaded := got.Instruments[0]
	assert.Equal(t, 2, loaded.NumUsedSamples())
	assert.True(t, loaded.Samples[0].isDefault())
	assert.Equal(t, "second", loaded.Samples[1].Name)
	assert.Equal(t, ins.Samples[1].Data, loaded.Samples[1].Data)
}

func TestSaveLengthFollowsPayload(t *testing.T) {
	m := NewModule()

	short := sample8("short", 1, 2)
	short.Length = 10
	short.Loop, short.LoopStart, short.LoopEnd = LoopForward, 1, 8
	a := NewInstrument()
	a.Name = "a"
	a.Samples[0] = short

	far := sample8("far", 1, 2, 3)
	far.Length = 10
	far.Loop, far.LoopStart, far.LoopEnd = LoopPingPong, 5, 9
	a.Samples[1] = far
	m.Instruments[0] = a

	b := NewInstrument()
	b.Name = "b"
	m.Instruments[1] = b

	data, err := SaveBytes(m, VariantXM)
	require.NoError(t, err)
	got, rep, err := LoadBytes(data)
	require.NoError(t, err)
	assert.Empty(t, rep.Warnings)
	assert.Equal(t, "b", got.Instruments[1].Name)

	s := got.Instruments[0].Samples[0]
	assert.Equal(t, 2, s.Length)
	assert.Equal(t, short.Data, s.Data)
	assert.Equal(t, LoopForward, s.Loop)
	assert.Equal(t, 1, s.LoopStart)
	assert.Equal(t, 2, s.LoopEnd)

	s = got.Instruments[0].Samples[1]
	assert.Equal(t, 3, s.Length)
	assert.Equal(t, LoopOff, s.Loop)
}

func TestSaveIsStable(t *testing.T) {
	first, err := SaveBytes(buildTestModule(), VariantXM)
	require.NoError(t, err)
	m, _, err := LoadBytes(first)
	require.NoError(t, err)
	second, err := SaveBytes(m, VariantXM)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestSaveWithoutSamples(t *testing.T) {
	data, err := SaveBytes(buildTestModule(), VariantXMNoSamples)
	require.NoError(t, err)

	got, rep, err := LoadBytes(data)
	require.NoError(t, err)
	assert.Empty(t, rep.Warnings)

	ins := got.Instruments[0]
	assert.Equal(t, 2, ins.NumUsedSamples())
	assert.Equal(t, "bass low", ins.Samples[0].Name)
	assert.Equal(t, 0, ins.Samples[0].Length)
	assert.Equal(t, LoopOff, ins.Samples[0].Loop)
	assert.Equal(t, uint8(48), ins.Samples[0].Volume)
	assert.Equal(t, 16, ins.Samples[1].Bits)
	assert.Equal(t, 0, ins.Samples[1].Length)
}

func TestSaveHeader(t *testing.T) {
	m := NewModule()
	m.NumChannels = 3
	data, err := SaveBytes(m, VariantXM)
	require.NoError(t, err)

	require.Len(t, data, xmHeaderOffset+xmHeaderSize+patternHeaderSize)
	assert.Equal(t, xmSignature, string(data[:17]))
	assert.Equal(t, byte(0x1A), data[37])
	assert.Equal(t, uint16(xmVersion), binary.LittleEndian.Uint16(data[58:]))
	assert.Equal(t, uint32(xmHeaderSize), binary.LittleEndian.Uint32(data[60:]))
	assert.Equal(t, uint16(4), binary.LittleEndian.Uint16(data[68:]), "odd channel count rounded up")
	assert.Equal(t, uint16(1), binary.LittleEndian.Uint16(data[70:]))
	assert.Equal(t, uint16(0), binary.LittleEndian.Uint16(data[72:]))
	// the only pattern is empty and stored without data
	assert.Equal(t, uint16(0), binary.LittleEndian.Uint16(data[len(data)-2:]))
}

func TestSaveClampsSongFields(t *testing.T) {
	m := NewModule()
	m.SongLength = 400
	m.RestartPosition = 300
	data, err := SaveBytes(m, VariantXM)
	require.NoError(t, err)
	assert.Equal(t, uint16(MaxOrders), binary.LittleEndian.Uint16(data[64:]))
	assert.Equal(t, uint16(0), binary.LittleEndian.Uint16(data[66:]))
}

func TestSaveRejects(t *testing.T) {
	var buf bytes.Buffer
	err := Save(&buf, NewModule(), VariantMOD)
	assert.ErrorIs(t, err, ErrUnsupportedVariant)
	assert.Equal(t, KindUnsupported, KindOf(err))
	assert.Zero(t, buf.Len())

	m := NewModule()
	m.NumChannels = 0
	err = Save(&buf, m, VariantXM)
	assert.Equal(t, KindInvalid, KindOf(err))
}

func TestVariantString(t *testing.T) {
	assert.Equal(t, "xm", VariantXM.String())
	assert.Equal(t, "xm-nosamples", VariantXMNoSamples.String())
	assert.Equal(t, "mod", VariantMOD.String())
}
