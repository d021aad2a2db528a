package xm

import (
	"bytes"
	"encoding/binary"
	"log"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadOddChannelCount(t *testing.T) {
	full := Note{49, 1, 0x40, 0x0C, 0x20}
	var cells []byte
	cells = appendPackedNote(cells, Note{Note: 49, Instrument: 1})
	for ch := 1; ch < 6; ch++ {
		cells = appendPackedNote(cells, Note{})
	}
	cells = appendPackedNote(cells, full)
	for ch := 0; ch < 7; ch++ {
		cells = appendPackedNote(cells, Note{})
	}

	data := concat(
		buildXMHeader(xmHeaderSpec{name: "seven", channels: 7, patterns: 1}),
		buildPattern(2, cells),
	)
	m, rep, err := LoadBytes(data)
	require.NoError(t, err)
	assert.Empty(t, rep.Warnings)

	assert.Equal(t, "seven", m.Name)
	assert.Equal(t, 8, m.NumChannels)
	p := m.Patterns[0]
	assert.Equal(t, 2, p.Length)
	assert.Equal(t, Note{Note: 49, Instrument: 1}, *p.Cell(0, 0))
	assert.Equal(t, full, *p.Cell(0, 6))
	require.Len(t, p.Channels[7], 2)
	assert.True(t, p.Cell(0, 7).IsEmpty())
	assert.True(t, p.Cell(1, 7).IsEmpty())
}

func TestLoadPatternWithoutData(t *testing.T) {
	second := appendPackedNote(nil, Note{Note: 1})
	second = appendPackedNote(second, Note{})

	data := concat(
		buildXMHeader(xmHeaderSpec{channels: 2, patterns: 2, songLength: 2, orders: []byte{0, 1}}),
		buildPattern(64, nil),
		buildPattern(1, second),
	)
	m, rep, err := LoadBytes(data)
	require.NoError(t, err)
	assert.Empty(t, rep.Warnings)

	assert.Equal(t, 64, m.Patterns[0].Length)
	assert.True(t, m.Patterns[0].IsEmpty())
	assert.Equal(t, uint8(1), m.Patterns[1].Cell(0, 0).Note)
}

func TestLoadTruncatedSample(t *testing.T) {
	body := repeatByte(1, 400)
	data := concat(
		buildXMHeader(xmHeaderSpec{channels: 2, instruments: 1}),
		buildInstrument("cut", nil,
			[]sampleHeaderSpec{{name: "wide", length: 1000, volume: 64, flags: 0x20}},
			body),
	)
	m, rep, err := LoadBytes(data)
	require.NoError(t, err)

	s := m.Instruments[0].Samples[0]
	assert.Equal(t, "wide", s.Name)
	assert.False(t, s.Stereo)
	assert.Equal(t, 400, s.Length)
	assert.Equal(t, int16(1<<8), s.Data[0])
	assert.Equal(t, int16(2<<8), s.Data[1])

	assert.Equal(t, 1, rep.Count(KindTruncated))
	assert.True(t, rep.Partial())
}

func TestLoadTruncatedStereoKeepsLoop(t *testing.T) {
	data := concat(
		buildXMHeader(xmHeaderSpec{channels: 2, instruments: 1}),
		buildInstrument("cut", nil,
			[]sampleHeaderSpec{{name: "wide", length: 1000, loopStart: 100, loopLen: 200, volume: 64, flags: 0x21}},
			repeatByte(0, 400)),
	)
	m, rep, err := LoadBytes(data)
	require.NoError(t, err)
	assert.Equal(t, 1, rep.Count(KindTruncated))

	s := m.Instruments[0].Samples[0]
	assert.False(t, s.Stereo)
	assert.Equal(t, 400, s.Length)
	assert.Equal(t, LoopForward, s.Loop)
	assert.Equal(t, 100, s.LoopStart)
	assert.Equal(t, 300, s.LoopEnd)
}

func TestLoadSampleHeaderPositionError(t *testing.T) {
	header := buildXMHeader(xmHeaderSpec{channels: 2, instruments: 1})
	data := concat(header,
		buildInstrument("lost", nil, []sampleHeaderSpec{{name: "s", length: 2, volume: 64}}, []byte{1, 1}))
	rs := &lostPosition{Reader: bytes.NewReader(data), failAt: int64(len(header) + instrumentHeaderSize)}

	_, _, err := Load(rs)
	require.Error(t, err)
	assert.Equal(t, KindIO, KindOf(err))
}

func TestLoadResumesAfterDamagedPattern(t *testing.T) {
	data := concat(
		buildXMHeader(xmHeaderSpec{channels: 2, patterns: 2, songLength: 2, orders: []byte{0, 1}}),
		repeatByte(0xFF, 16),
		buildPattern(4, nil),
	)
	m, rep, err := LoadBytes(data)
	require.NoError(t, err)

	assert.True(t, m.Patterns[0].isDefault())
	assert.Equal(t, 4, m.Patterns[1].Length)
	assert.Equal(t, 1, rep.Count(KindCorrupt))
	assert.True(t, rep.Partial())
}

func TestLoadHandsDamageToInstruments(t *testing.T) {
	data := concat(
		buildXMHeader(xmHeaderSpec{channels: 2, patterns: 1, instruments: 2}),
		repeatByte(0xFF, 16),
		buildInstrument("lead", nil, nil),
	)
	m, rep, err := LoadBytes(data)
	require.NoError(t, err)

	assert.True(t, m.Patterns[0].isDefault())
	assert.True(t, m.Instruments[0].isDefault())
	assert.Equal(t, "lead", m.Instruments[1].Name)
	// pattern 0, the failed pattern scan and instrument 1
	assert.Equal(t, 3, rep.Count(KindCorrupt))
}

func TestLoadGivesUpOnGarbage(t *testing.T) {
	data := concat(
		buildXMHeader(xmHeaderSpec{channels: 4, patterns: 3, instruments: 3}),
		repeatByte(0xFF, 100),
	)
	m, rep, err := LoadBytes(data)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		assert.True(t, m.Patterns[i].isDefault())
		assert.True(t, m.Instruments[i].isDefault())
	}
	assert.Equal(t, 4, rep.Count(KindCorrupt))
}

func TestLoadClampsEnvelope(t *testing.T) {
	body := encodeInstrumentBody(NewInstrument())
	body[192] = 13 // volume envelope point count
	body[193] = 0  // panning envelope point count
	data := concat(
		buildXMHeader(xmHeaderSpec{channels: 2, instruments: 1}),
		buildInstrument("env", body, nil),
	)
	m, rep, err := LoadBytes(data)
	require.NoError(t, err)

	ins := m.Instruments[0]
	assert.Equal(t, 1, ins.VolumeEnvelope.NumPoints)
	assert.Equal(t, 1, ins.PanningEnvelope.NumPoints)
	assert.Equal(t, 2, rep.Count(KindInvalid))
	assert.False(t, rep.Partial())
}

func TestLoadLoopTypeThree(t *testing.T) {
	data := concat(
		buildXMHeader(xmHeaderSpec{channels: 2, instruments: 1}),
		buildInstrument("loop", nil,
			[]sampleHeaderSpec{{name: "s", length: 8, loopStart: 2, loopLen: 4, volume: 64, flags: 3}},
			make([]byte, 8)),
	)
	m, rep, err := LoadBytes(data)
	require.NoError(t, err)
	assert.Equal(t, LoopOff, m.Instruments[0].Samples[0].Loop)
	assert.Equal(t, 1, rep.Count(KindInvalid))
}

func TestLoadFatalErrors(t *testing.T) {
	header := func(patch func(b []byte)) []byte {
		b := buildXMHeader(xmHeaderSpec{channels: 2})
		patch(b)
		return b
	}
	tests := []struct {
		name string
		data []byte
		kind string
	}{
		{"no signature", []byte("definitely not music"), string(KindNotModule)},
		{"zero channels", header(func(b []byte) { binary.LittleEndian.PutUint16(b[68:], 0) }), string(KindCorrupt)},
		{"too many channels", header(func(b []byte) { binary.LittleEndian.PutUint16(b[68:], 33) }), string(KindCorrupt)},
		{"too many patterns", header(func(b []byte) { binary.LittleEndian.PutUint16(b[70:], 257) }), string(KindCorrupt)},
		{"too many instruments", header(func(b []byte) { binary.LittleEndian.PutUint16(b[72:], 129) }), string(KindCorrupt)},
		{"short header length", header(func(b []byte) { binary.LittleEndian.PutUint32(b[60:], 10) }), string(KindCorrupt)},
		{"header past the end", header(func(b []byte) { binary.LittleEndian.PutUint32(b[60:], 1<<20) }), string(KindCorrupt)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, rep, err := LoadBytes(tt.data)
			require.Error(t, err)
			assert.Nil(t, m)
			assert.Nil(t, rep)
			assert.Equal(t, tt.kind, string(KindOf(err)))
		})
	}
}

func TestLoadUnknownVersion(t *testing.T) {
	data := buildXMHeader(xmHeaderSpec{version: 0x0103, channels: 2})
	m, rep, err := LoadBytes(data)
	require.NoError(t, err)
	assert.Equal(t, 2, m.NumChannels)
	assert.Equal(t, 1, rep.Count(KindInvalid))
}

func TestLoadRepairsSongFields(t *testing.T) {
	b := buildXMHeader(xmHeaderSpec{channels: 2})
	binary.LittleEndian.PutUint16(b[64:], 0) // song length
	binary.LittleEndian.PutUint16(b[66:], 9) // restart
	binary.LittleEndian.PutUint16(b[76:], 0) // tempo
	binary.LittleEndian.PutUint16(b[78:], 0) // bpm
	m, rep, err := LoadBytes(b)
	require.NoError(t, err)

	assert.Equal(t, 1, m.SongLength)
	assert.Equal(t, 0, m.RestartPosition)
	assert.Equal(t, DefaultTempo, m.Tempo)
	assert.Equal(t, DefaultBPM, m.BPM)
	assert.Equal(t, 4, rep.Count(KindInvalid))
}

func TestLoadLogsWarnings(t *testing.T) {
	var out bytes.Buffer
	data := buildXMHeader(xmHeaderSpec{version: 0x0103, channels: 2})
	_, _, err := LoadBytes(data, WithLogger(log.New(&out, "", 0)))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out.String(), "warning: invalid at 0x3a"), out.String())
}

func TestLoadCharset(t *testing.T) {
	data := buildXMHeader(xmHeaderSpec{name: "Caf\x82", channels: 2})
	m, _, err := LoadBytes(data, WithCharset(CharsetCP437))
	require.NoError(t, err)
	assert.Equal(t, "Café", m.Name)

	m, _, err = LoadBytes(data)
	require.NoError(t, err)
	assert.Equal(t, "Caf\u0082", m.Name)
}
