package xm

import (
	"errors"
	"fmt"
)

const (
	instrumentHeaderSize = 0x107
	instrumentShortSize  = 29
	sampleHeaderSize     = 40
	instrumentBodySize   = 208
	midiBlockSize        = 22

	maxFadeout   = 0xFFF
	maxBendRange = 36
)

// readInstrument decodes one instrument with its sample headers and
// bodies from the current position.
func (l *Loader) readInstrument() (*Instrument, error) {
	start, err := l.r.pos()
	if err != nil {
		return nil, ioError(err, "instrument position")
	}
	head := make([]byte, instrumentShortSize)
	if _, err := l.r.full(head); err != nil {
		if errors.Is(err, errShort) {
			return nil, fmt.Errorf("short instrument header: %w", errStructure)
		}
		return nil, ioError(err, "read instrument header")
	}
	size := int(readLittleEndian32(head, 0))
	numSamples := int(readLittleEndian16(head, 27))
	if size < instrumentShortSize || size > 0x10000 || numSamples > MaxSamples {
		return nil, fmt.Errorf("instrument header size=%d samples=%d: %w", size, numSamples, errStructure)
	}

	block := make([]byte, max(size, instrumentHeaderSize))
	copy(block, head)
	if _, err := l.r.full(block[instrumentShortSize:size]); err != nil {
		if errors.Is(err, errShort) {
			return nil, fmt.Errorf("instrument header cut short: %w", errStructure)
		}
		return nil, ioError(err, "read instrument header")
	}

	ins := NewInstrument()
	ins.Name = l.charset.decode(readFixedString(block, 4, 22))

	stride := sampleHeaderSize
	if numSamples > 0 {
		if shs := int(readLittleEndian32(block, 29)); shs != sampleHeaderSize {
			if shs > sampleHeaderSize && shs <= 0x400 {
				stride = shs
			}
			l.report.add(KindInvalid, start, "sample header size %d, using %d", shs, stride)
		}
	}
	if size >= 33+instrumentBodySize {
		l.decodeInstrumentBody(ins, block[33:33+instrumentBodySize], start+33)
		l.decodeMIDIBlock(ins, block[33+instrumentBodySize:], start+33+instrumentBodySize)
	}

	if err := l.r.seek(start + int64(size)); err != nil {
		return nil, ioError(err, "seek sample headers")
	}
	if err := l.readSamples(ins, numSamples, stride); err != nil {
		return nil, err
	}
	return ins, nil
}

// decodeInstrumentBody reads the fields shared by module instruments and
// standalone instrument files: key map, envelopes, vibrato and fadeout.
func (l *Loader) decodeInstrumentBody(ins *Instrument, b []byte, off int64) {
	for k := 0; k < NumKeys; k++ {
		s := b[k]
		if s >= MaxSamples {
			l.report.add(KindInvalid, off+int64(k), "key %d maps to sample %d", k, s)
			s = 0
		}
		ins.Keymap[k] = s
	}
	ins.VolumeEnvelope = decodeEnvelope(b[96:144], b[192], b[194], b[195], b[196], b[200])
	ins.PanningEnvelope = decodeEnvelope(b[144:192], b[193], b[197], b[198], b[199], b[201])
	if ins.VolumeEnvelope.normalize() {
		l.report.add(KindInvalid, off+96, "volume envelope clamped")
	}
	if ins.PanningEnvelope.normalize() {
		l.report.add(KindInvalid, off+144, "panning envelope clamped")
	}

	ins.VibratoType = b[202]
	if ins.VibratoType >= 4 {
		l.report.add(KindInvalid, off+202, "vibrato type %d reset to 0", ins.VibratoType)
		ins.VibratoType = 0
	}
	ins.VibratoSweep = b[203]
	ins.VibratoDepth = b[204]
	ins.VibratoRate = b[205]
	ins.Fadeout = min(readLittleEndian16(b, 206), maxFadeout)
}

func decodeEnvelope(points []byte, count, sustain, loopStart, loopEnd, flags uint8) Envelope {
	e := Envelope{
		NumPoints: int(count),
		Sustain:   int(sustain),
		LoopStart: int(loopStart),
		LoopEnd:   int(loopEnd),
		Flags:     flags & (EnvelopeEnabled | EnvelopeSustain | EnvelopeLoop),
	}
	for i := range e.Points {
		e.Points[i].Pos = readLittleEndian16(points, i*4)
		e.Points[i].Value = readLittleEndian16(points, i*4+2)
	}
	return e
}

// decodeMIDIBlock reads the 22 byte MIDI passthrough block, clamping every
// field into range.
func (l *Loader) decodeMIDIBlock(ins *Instrument, b []byte, off int64) {
	if len(b) < 7 {
		return
	}
	ins.MIDI.Enabled = b[0] != 0
	ins.MIDI.Channel = min(b[1], 15)
	ins.MIDI.Program = uint8(min(readLittleEndian16(b, 2), 127))
	ins.MIDI.BendRange = uint8(min(readLittleEndian16(b, 4), maxBendRange))
	ins.MIDI.Mute = b[6] != 0
}

// readSamples reads count sample headers of stride bytes, then their
// bodies. A body cut short by the end of the stream is kept at the length
// that could be read.
func (l *Loader) readSamples(ins *Instrument, count, stride int) error {
	lengths := make([]int, count)
	for i := 0; i < count; i++ {
		off, err := l.r.pos()
		if err != nil {
			return ioError(err, "sample header position")
		}
		b := make([]byte, stride)
		if _, err := l.r.full(b); err != nil {
			if errors.Is(err, errShort) {
				return fmt.Errorf("sample header %d cut short: %w", i, errStructure)
			}
			return ioError(err, "read sample header")
		}
		ins.Samples[i], lengths[i] = l.decodeSampleHeader(b, off)
	}

	for i := 0; i < count; i++ {
		s := ins.Samples[i]
		off, err := l.r.pos()
		if err != nil {
			return ioError(err, "sample data position")
		}
		raw := make([]byte, max(0, min(int64(lengths[i]), l.size-off)))
		n, err := l.r.full(raw)
		if err != nil && !errors.Is(err, errShort) {
			return ioError(err, "read sample data")
		}
		if n < lengths[i] {
			if s.Stereo {
				// the halves are read back to back as one mono span
				s.Stereo = false
				s.LoopStart *= 2
				s.LoopEnd *= 2
			}
			l.report.add(KindTruncated, off, "sample %q holds %d of %d bytes", s.Name, n, lengths[i])
		}
		data := DecodeSampleData(raw[:n], s.Bits, s.Stereo)
		frames := len(data)
		if s.Stereo {
			frames /= 2
		}
		s.SetData(data, frames, s.Stereo)
	}
	return nil
}

// decodeSampleHeader returns the sample described by a 40 byte header and
// its body size in bytes. Loop points are converted to frames here; the
// payload is attached later.
func (l *Loader) decodeSampleHeader(b []byte, off int64) (*Sample, int) {
	length := int(readLittleEndian32(b, 0))
	loopStart := int(readLittleEndian32(b, 4))
	loopLen := int(readLittleEndian32(b, 8))
	flags := b[14]

	s := &Sample{
		Volume:       min(b[12], 64),
		FineTune:     int8(b[13]),
		Panning:      int8(int(b[15]) - 128),
		RelativeNote: int8(b[16]),
		Bits:         8,
		Stereo:       flags&0x20 != 0,
		Loop:         LoopType(flags & 0x03),
		Name:         l.charset.decode(readFixedString(b, 18, 22)),
	}
	if flags&0x10 != 0 {
		s.Bits = 16
	}
	if s.Loop > LoopPingPong {
		l.report.add(KindInvalid, off+14, "sample loop type 3 turned off")
		s.Loop = LoopOff
	}

	unit := s.Bits / 8
	if s.Stereo {
		unit *= 2
	}
	s.Length = length / unit
	s.LoopStart = loopStart / unit
	s.LoopEnd = (loopStart + loopLen) / unit
	return s, length
}

func encodeEnvelopePoints(e *Envelope) []byte {
	b := make([]byte, MaxEnvPoints*4)
	for i, p := range e.Points {
		b[i*4] = byte(p.Pos)
		b[i*4+1] = byte(p.Pos >> 8)
		b[i*4+2] = byte(p.Value)
		b[i*4+3] = byte(p.Value >> 8)
	}
	return b
}

// encodeInstrumentBody is the inverse of decodeInstrumentBody.
func encodeInstrumentBody(ins *Instrument) []byte {
	b := make([]byte, 0, instrumentBodySize)
	b = append(b, ins.Keymap[:]...)
	b = append(b, encodeEnvelopePoints(&ins.VolumeEnvelope)...)
	b = append(b, encodeEnvelopePoints(&ins.PanningEnvelope)...)
	v, p := &ins.VolumeEnvelope, &ins.PanningEnvelope
	b = append(b,
		uint8(v.NumPoints), uint8(p.NumPoints),
		uint8(v.Sustain), uint8(v.LoopStart), uint8(v.LoopEnd),
		uint8(p.Sustain), uint8(p.LoopStart), uint8(p.LoopEnd),
		v.Flags, p.Flags,
		ins.VibratoType, ins.VibratoSweep, ins.VibratoDepth, ins.VibratoRate)
	fade := min(ins.Fadeout, maxFadeout)
	return append(b, byte(fade), byte(fade>>8))
}

func encodeMIDIBlock(ins *Instrument) []byte {
	b := make([]byte, midiBlockSize)
	if ins.MIDI.Enabled {
		b[0] = 1
	}
	b[1] = min(ins.MIDI.Channel, 15)
	b[2] = min(ins.MIDI.Program, 127)
	b[4] = min(ins.MIDI.BendRange, maxBendRange)
	if ins.MIDI.Mute {
		b[6] = 1
	}
	return b
}

func writeInstrument(w *writer, ins *Instrument, cs Charset, withSamples bool) {
	n := ins.NumUsedSamples()
	w.u32(instrumentHeaderSize)
	w.fixed(cs.encode(ins.Name), 22)
	w.u8(0)
	w.u16(uint16(n))
	w.u32(sampleHeaderSize)
	w.write(encodeInstrumentBody(ins))
	w.write(encodeMIDIBlock(ins))
	writeSamples(w, ins.Samples[:n], cs, withSamples)
}

// writeSamples writes every header followed by every body. Empty slots
// are written as default samples.
func writeSamples(w *writer, slots []*Sample, cs Charset, withBodies bool) {
	samples := make([]*Sample, len(slots))
	for i, s := range slots {
		if s == nil {
			s = NewSample()
		}
		samples[i] = s
	}
	for _, s := range samples {
		writeSampleHeader(w, s, cs, withBodies)
	}
	if !withBodies {
		return
	}
	for _, s := range samples {
		w.write(EncodeSampleData(s.Data[:sampleUnits(s)], s.Bits, s.Stereo))
	}
}

func writeSampleHeader(w *writer, s *Sample, cs Charset, withBody bool) {
	unit := 1
	flags := uint8(s.Loop) & 0x03
	if s.Bits == 16 {
		unit = 2
		flags |= 0x10
	}
	if s.Stereo {
		unit *= 2
		flags |= 0x20
	}
	var length, loopStart, loopLen int
	if withBody {
		length = sampleBytes(s)
		frames := savedFrames(s)
		if end := min(s.LoopEnd, frames); s.Loop != LoopOff && s.LoopStart >= 0 && s.LoopStart < end {
			loopStart = s.LoopStart * unit
			loopLen = (end - s.LoopStart) * unit
		} else {
			flags &^= 0x03
		}
	}
	w.u32(uint32(length))
	w.u32(uint32(loopStart))
	w.u32(uint32(loopLen))
	w.u8(min(s.Volume, 64))
	w.u8(uint8(s.FineTune))
	w.u8(flags)
	w.u8(uint8(int(s.Panning) + 128))
	w.u8(uint8(s.RelativeNote))
	w.u8(0)
	w.fixed(cs.encode(s.Name), 22)
}
