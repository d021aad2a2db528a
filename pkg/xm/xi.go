package xm

import (
	"bytes"
	"io"
)

const (
	xiSignature  = "Extended Instrument: "
	xiVersionOld = 0x0101
	xiVersion    = 0x0102
	xiBodyAt     = 66
	xiHeaderSize = xiBodyAt + instrumentBodySize + midiBlockSize
)

// LoadXI decodes a standalone instrument file.
func LoadXI(rs io.ReadSeeker, opts ...Option) (*Instrument, *Report, error) {
	return NewLoader(rs, opts...).LoadInstrument()
}

// LoadInstrument decodes a standalone instrument file from the loader's
// stream. Version 0x0101 files carry no sample count; it is taken from the
// highest sample the key map uses.
func (l *Loader) LoadInstrument() (*Instrument, *Report, error) {
	size, err := l.r.size()
	if err != nil {
		return nil, nil, wrapKind(err, KindIO, "stream size")
	}
	l.size = size
	if err := l.r.seek(0); err != nil {
		return nil, nil, wrapKind(err, KindIO, "rewind")
	}
	head := make([]byte, min(size, xiHeaderSize))
	if _, err := l.r.full(head); err != nil {
		return nil, nil, ioError(err, "read instrument header")
	}
	if len(head) < xiHeaderSize || string(head[:len(xiSignature)]) != xiSignature || head[43] != 0x1A {
		return nil, nil, ErrNotModule
	}

	ins := NewInstrument()
	ins.Name = l.charset.decode(readFixedString(head, 21, 22))
	l.decodeInstrumentBody(ins, head[xiBodyAt:xiBodyAt+instrumentBodySize], xiBodyAt)
	l.decodeMIDIBlock(ins, head[xiBodyAt+instrumentBodySize:], xiBodyAt+instrumentBodySize)

	var count int
	switch version := readLittleEndian16(head, 64); version {
	case xiVersionOld:
		for _, s := range ins.Keymap {
			count = max(count, int(s)+1)
		}
	default:
		if version != xiVersion {
			l.report.add(KindInvalid, 64, "instrument file version 0x%04x, reading as 0x%04x", version, xiVersion)
		}
		n, err := l.r.u16()
		if err != nil {
			return nil, nil, ioError(err, "read sample count")
		}
		count = int(n)
	}
	if count > MaxSamples {
		return nil, nil, newKind(KindCorrupt, "sample count %d", count)
	}

	if err := l.readSamples(ins, count, sampleHeaderSize); err != nil {
		if KindOf(err) != "" {
			return nil, nil, err
		}
		return nil, nil, wrapKind(err, KindCorrupt, "read samples")
	}
	return ins, l.report, nil
}

// SaveXI writes ins as a version 0x0102 instrument file.
func SaveXI(w io.Writer, ins *Instrument, opts ...Option) error {
	o := buildOptions(opts)
	n := ins.NumUsedSamples()

	out := newWriter(w)
	out.write([]byte(xiSignature))
	out.fixed(o.charset.encode(ins.Name), 22)
	out.u8(0x1A)
	out.fixed(o.charset.encode(defaultTracker), 20)
	out.u16(xiVersion)
	out.write(encodeInstrumentBody(ins))
	out.write(encodeMIDIBlock(ins))
	out.u16(uint16(n))
	writeSamples(out, ins.Samples[:n], o.charset, true)
	return wrapKind(out.err, KindIO, "write instrument")
}

// SaveXIBytes returns the encoded instrument file.
func SaveXIBytes(ins *Instrument, opts ...Option) ([]byte, error) {
	var buf bytes.Buffer
	if err := SaveXI(&buf, ins, opts...); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
