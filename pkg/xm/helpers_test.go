package xm

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
)

// Builders for hand made module images.

type xmHeaderSpec struct {
	name        string
	version     uint16
	channels    int
	patterns    int
	instruments int
	songLength  int
	orders      []byte
}

func le16(b *bytes.Buffer, v int) {
	binary.Write(b, binary.LittleEndian, uint16(v))
}

func le32(b *bytes.Buffer, v int) {
	binary.Write(b, binary.LittleEndian, uint32(v))
}

func padded(s string, width int) []byte {
	b := make([]byte, width)
	copy(b, s)
	return b
}

func buildXMHeader(h xmHeaderSpec) []byte {
	if h.version == 0 {
		h.version = xmVersion
	}
	if h.songLength == 0 {
		h.songLength = 1
	}
	var b bytes.Buffer
	b.WriteString(xmSignature)
	b.Write(padded(h.name, 20))
	b.WriteByte(0x1A)
	b.Write(padded(defaultTracker, 20))
	le16(&b, int(h.version))
	le32(&b, xmHeaderSize)
	le16(&b, h.songLength)
	le16(&b, 0)
	le16(&b, h.channels)
	le16(&b, h.patterns)
	le16(&b, h.instruments)
	le16(&b, 1)
	le16(&b, DefaultTempo)
	le16(&b, DefaultBPM)
	orders := make([]byte, MaxOrders)
	copy(orders, h.orders)
	b.Write(orders)
	return b.Bytes()
}

func buildPattern(rows int, data []byte) []byte {
	var b bytes.Buffer
	le32(&b, patternHeaderSize)
	b.WriteByte(0)
	le16(&b, rows)
	le16(&b, len(data))
	b.Write(data)
	return b.Bytes()
}

type sampleHeaderSpec struct {
	name      string
	length    int
	loopStart int
	loopLen   int
	volume    uint8
	flags     uint8
}

// buildInstrument writes a full size instrument header with the given body
// (nil for the default one), the sample headers and the raw bodies.
func buildInstrument(name string, body []byte, samples []sampleHeaderSpec, bodies ...[]byte) []byte {
	if body == nil {
		body = encodeInstrumentBody(NewInstrument())
	}
	var b bytes.Buffer
	le32(&b, instrumentHeaderSize)
	b.Write(padded(name, 22))
	b.WriteByte(0)
	le16(&b, len(samples))
	le32(&b, sampleHeaderSize)
	b.Write(body)
	b.Write(make([]byte, midiBlockSize))
	for _, s := range samples {
		le32(&b, s.length)
		le32(&b, s.loopStart)
		le32(&b, s.loopLen)
		b.WriteByte(s.volume)
		b.WriteByte(0)
		b.WriteByte(s.flags)
		b.WriteByte(128)
		b.WriteByte(0)
		b.WriteByte(0)
		b.Write(padded(s.name, 22))
	}
	for _, d := range bodies {
		b.Write(d)
	}
	return b.Bytes()
}

func concat(parts ...[]byte) []byte {
	var out []byte
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

func repeatByte(v byte, n int) []byte {
	return bytes.Repeat([]byte{v}, n)
}

// sample8 builds an 8-bit sample from signed byte values.
func sample8(name string, values ...int8) *Sample {
	s := NewSample()
	s.Name = name
	data := make([]int16, len(values))
	for i, v := range values {
		data[i] = int16(v) << 8
	}
	s.SetData(data, len(data), false)
	return s
}

// lostPosition is a stream that cannot report its position once the
// cursor has reached failAt.
type lostPosition struct {
	*bytes.Reader
	failAt int64
}

func (p *lostPosition) Seek(off int64, whence int) (int64, error) {
	if whence == io.SeekCurrent && p.Size()-int64(p.Len()) >= p.failAt {
		return 0, errors.New("position lost")
	}
	return p.Reader.Seek(off, whence)
}
