package xm

import (
	"errors"
	"fmt"
)

const (
	modSignatureOffset = 1080
	modNumSamples      = 31
	modSampleHeader    = 30
	modSongLengthAt    = 950
	modOrdersAt        = 952
	modNumOrders       = 128
	modRows            = 64
)

// modChannelCount returns the channel count encoded by the signature of a
// legacy module, or 0 when head carries no known signature.
func modChannelCount(head []byte) int {
	if len(head) < modSignatureOffset+4 {
		return 0
	}
	tag := head[modSignatureOffset : modSignatureOffset+4]
	switch string(tag) {
	case "M.K.", "M&K!", "M!K!", "FLT4":
		return 4
	case "FLT8":
		return 8
	}
	isDigit := func(b byte) bool { return b >= '0' && b <= '9' }
	if isDigit(tag[0]) && string(tag[1:]) == "CHN" {
		return validModChannels(int(tag[0] - '0'))
	}
	if isDigit(tag[0]) && isDigit(tag[1]) && string(tag[2:]) == "CH" {
		return validModChannels(int(tag[0]-'0')*10 + int(tag[1]-'0'))
	}
	return 0
}

func validModChannels(n int) int {
	if n < 1 || n > MaxChannels {
		return 0
	}
	return n
}

// modSample is one 30 byte legacy sample header.
type modSample struct {
	name      []byte
	length    int
	finetune  int8
	volume    uint8
	loopStart int
	loopLen   int
}

func decodeModSample(b []byte) modSample {
	ft := int8(b[24]&0x0F) << 4 >> 4
	return modSample{
		name:      readFixedString(b, 0, 22),
		length:    int(readBigEndian16(b, 22)) * 2,
		finetune:  ft,
		volume:    b[25],
		loopStart: int(readBigEndian16(b, 26)) * 2,
		loopLen:   int(readBigEndian16(b, 28)) * 2,
	}
}

// loadMOD decodes a legacy module. head holds the first 1084 bytes.
func (l *Loader) loadMOD(head []byte) (*Module, error) {
	diskChannels := modChannelCount(head)
	tag := string(head[modSignatureOffset : modSignatureOffset+4])
	m := &Module{
		Name:            l.charset.decode(readFixedString(head, 0, 20)),
		TrackerName:     fmt.Sprintf("Legacy module (%s)", tag),
		NumChannels:     diskChannels + diskChannels%2,
		Tempo:           DefaultTempo,
		BPM:             DefaultBPM,
		SongLength:      int(head[modSongLengthAt]),
		RestartPosition: int(head[modSongLengthAt+1]),
	}
	if m.RestartPosition >= modNumOrders {
		// Trackers store their own markers above the order range.
		m.RestartPosition = 0
	}
	l.checkSongFields(m, modNumOrders)

	numPatterns := 0
	for i := 0; i < modNumOrders; i++ {
		o := head[modOrdersAt+i]
		m.Orders[i] = o
		numPatterns = max(numPatterns, int(o)+1)
	}

	headers := make([]modSample, modNumSamples)
	for i := range headers {
		headers[i] = decodeModSample(head[20+i*modSampleHeader:])
	}

	if err := l.r.seek(detectBlockSize); err != nil {
		return nil, wrapKind(err, KindIO, "seek patterns")
	}
	for i := 0; i < numPatterns; i++ {
		pos, err := l.r.pos()
		if err != nil {
			return nil, ioError(err, "pattern position")
		}
		block := make([]byte, modRows*diskChannels*4)
		n, err := l.r.full(block)
		if err != nil && !errors.Is(err, errShort) {
			return nil, ioError(err, "read pattern")
		}
		m.Patterns[i] = decodeModPattern(block[:n], diskChannels, m.NumChannels)
		if n < len(block) {
			l.report.add(KindTruncated, pos, "pattern %d holds %d of %d bytes", i, n, len(block))
			return m, nil
		}
	}

	for i, h := range headers {
		if h.length == 0 && len(h.name) == 0 {
			continue
		}
		off, err := l.r.pos()
		if err != nil {
			return nil, ioError(err, "sample data position")
		}
		raw := make([]byte, max(0, min(int64(h.length), l.size-off)))
		n, err := l.r.full(raw)
		if err != nil && !errors.Is(err, errShort) {
			return nil, ioError(err, "read sample data")
		}
		if n < h.length {
			l.report.add(KindTruncated, off, "sample %d holds %d of %d bytes", i+1, n, h.length)
		}
		m.Instruments[i] = l.modInstrument(h, raw[:n])
	}
	return m, nil
}

// decodeModPattern unpacks 64 rows of 4 byte cells. Cells missing from a
// short block stay empty.
func decodeModPattern(block []byte, diskChannels, modelChannels int) *Pattern {
	p := NewPattern(modRows, modelChannels)
	for row := 0; row < modRows; row++ {
		for ch := 0; ch < diskChannels; ch++ {
			off := (row*diskChannels + ch) * 4
			if off+4 > len(block) {
				return p
			}
			c := block[off : off+4]
			p.Channels[ch][row] = Note{
				Note:       periodToNote(uint16(c[0]&0x0F)<<8 | uint16(c[1])),
				Instrument: c[0]&0xF0 | c[2]>>4,
				FxType:     c[2] & 0x0F,
				FxParam:    c[3],
			}
		}
	}
	return p
}

func (l *Loader) modInstrument(h modSample, raw []byte) *Instrument {
	ins := NewInstrument()
	ins.Name = l.charset.decode(h.name)
	s := ins.Samples[0]
	s.Name = ins.Name
	s.Volume = min(h.volume, 64)
	s.FineTune = h.finetune * 16
	if h.loopLen > 2 {
		s.Loop = LoopForward
		s.LoopStart = h.loopStart
		s.LoopEnd = h.loopStart + h.loopLen
	}
	data := decodeSigned8(raw)
	s.SetData(data, len(data), false)
	return ins
}
