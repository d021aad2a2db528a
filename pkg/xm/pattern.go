package xm

import (
	"errors"
	"fmt"
)

const patternHeaderSize = 9

// errStructure marks a header that failed its sanity checks. The loader
// answers it with a recovery scan instead of giving up.
var errStructure = errors.New("implausible header")

// readPattern decodes the pattern starting at the current position. Cells
// are unpacked for diskChannels columns; the returned pattern has
// modelChannels columns.
func (l *Loader) readPattern(diskChannels, modelChannels int) (*Pattern, error) {
	start, err := l.r.pos()
	if err != nil {
		return nil, ioError(err, "pattern position")
	}
	var hdr [patternHeaderSize]byte
	if _, err := l.r.full(hdr[:]); err != nil {
		if errors.Is(err, errShort) {
			return nil, fmt.Errorf("short pattern header: %w", errStructure)
		}
		return nil, ioError(err, "read pattern header")
	}

	hlen := readLittleEndian32(hdr[:], 0)
	packing := hdr[4]
	rows := int(readLittleEndian16(hdr[:], 5))
	size := int64(readLittleEndian16(hdr[:], 7))
	if hlen < patternHeaderSize || packing != 0 || rows < 1 || rows > MaxRows {
		return nil, fmt.Errorf("pattern header len=%d packing=%d rows=%d: %w", hlen, packing, rows, errStructure)
	}
	if hlen != patternHeaderSize {
		l.report.add(KindInvalid, start, "pattern header length %d", hlen)
	}

	p := NewPattern(rows, modelChannels)
	if err := l.r.seek(start + int64(hlen)); err != nil {
		return nil, ioError(err, "seek pattern data")
	}
	if size == 0 {
		return p, nil
	}

	data := make([]byte, size)
	n, err := l.r.full(data)
	if err != nil {
		if !errors.Is(err, errShort) {
			return nil, ioError(err, "read pattern data")
		}
		l.report.add(KindTruncated, start, "pattern data holds %d of %d bytes", n, size)
		data = data[:n]
	}

	pos := 0
decode:
	for row := 0; row < rows; row++ {
		for ch := 0; ch < diskChannels; ch++ {
			note, next, ok := unpackNote(data, pos)
			if !ok {
				break decode
			}
			pos = next
			if ch < modelChannels {
				p.Channels[ch][row] = note
			}
		}
	}

	if err := l.r.seek(start + int64(hlen) + size); err != nil {
		return nil, ioError(err, "seek past pattern")
	}
	return p, nil
}

// packPattern returns the packed cells of p for numChannels columns and
// whether every cell was empty.
func packPattern(p *Pattern, numChannels int) ([]byte, bool) {
	data := make([]byte, 0, p.Length*numChannels)
	for row := 0; row < p.Length; row++ {
		for ch := 0; ch < numChannels; ch++ {
			var n Note
			if col := p.Channels[ch]; row < len(col) {
				n = col[row]
			}
			data = appendPackedNote(data, n)
		}
	}
	return data, len(data) == p.Length*numChannels
}

func writePattern(w *writer, p *Pattern, numChannels int) {
	data, empty := packPattern(p, numChannels)
	if empty {
		data = nil
	}
	w.u32(patternHeaderSize)
	w.u8(0)
	w.u16(uint16(p.Length))
	w.u16(uint16(len(data)))
	w.write(data)
}
