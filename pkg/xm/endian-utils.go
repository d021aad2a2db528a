package xm

import (
	"encoding/binary"
	"errors"
	"io"
)

var errShort = errors.New("unexpected end of data")

// Fixed offset readers over an already loaded block. Out of range reads
// return zero so header decoding never panics on short blocks.

func readLittleEndian16(data []byte, off int) uint16 {
	if off < 0 || off+2 > len(data) {
		return 0
	}
	return binary.LittleEndian.Uint16(data[off:])
}

func readLittleEndian32(data []byte, off int) uint32 {
	if off < 0 || off+4 > len(data) {
		return 0
	}
	return binary.LittleEndian.Uint32(data[off:])
}

func readBigEndian16(data []byte, off int) uint16 {
	if off < 0 || off+2 > len(data) {
		return 0
	}
	return binary.BigEndian.Uint16(data[off:])
}

// readFixedString returns the bytes of a fixed width text field up to the
// first NUL, trailing spaces kept.
func readFixedString(data []byte, off, width int) []byte {
	if off < 0 || off >= len(data) {
		return nil
	}
	end := min(off+width, len(data))
	field := data[off:end]
	for i, b := range field {
		if b == 0 {
			return field[:i]
		}
	}
	return field
}

// reader is a byte cursor over a seekable stream.
type reader struct {
	rs      io.ReadSeeker
	scratch [4]byte
}

func newReader(rs io.ReadSeeker) *reader {
	return &reader{rs: rs}
}

func (r *reader) pos() (int64, error) {
	return r.rs.Seek(0, io.SeekCurrent)
}

func (r *reader) seek(off int64) error {
	_, err := r.rs.Seek(off, io.SeekStart)
	return err
}

// size returns the stream length and leaves the position unchanged.
func (r *reader) size() (int64, error) {
	cur, err := r.pos()
	if err != nil {
		return 0, err
	}
	end, err := r.rs.Seek(0, io.SeekEnd)
	if err != nil {
		return 0, err
	}
	return end, r.seek(cur)
}

// full reads exactly len(p) bytes. A stream ending early yields errShort
// together with the byte count that was available.
func (r *reader) full(p []byte) (int, error) {
	n, err := io.ReadFull(r.rs, p)
	if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
		return n, errShort
	}
	return n, err
}

func (r *reader) bytes(n int) ([]byte, error) {
	p := make([]byte, n)
	if _, err := r.full(p); err != nil {
		return nil, err
	}
	return p, nil
}

func (r *reader) u16() (uint16, error) {
	if _, err := r.full(r.scratch[:2]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(r.scratch[:2]), nil
}

// writer is a byte cursor over a stream. The first error sticks and every
// later write is dropped.
type writer struct {
	w   io.Writer
	n   int64
	err error
}

func newWriter(w io.Writer) *writer {
	return &writer{w: w}
}

func (w *writer) write(p []byte) {
	if w.err != nil {
		return
	}
	n, err := w.w.Write(p)
	w.n += int64(n)
	w.err = err
}

func (w *writer) u8(v uint8) { w.write([]byte{v}) }

func (w *writer) u16(v uint16) {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], v)
	w.write(b[:])
}

func (w *writer) u32(v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	w.write(b[:])
}

// fixed writes p padded with zeros (or cut) to exactly width bytes.
func (w *writer) fixed(p []byte, width int) {
	field := make([]byte, width)
	copy(field, p)
	w.write(field)
}
