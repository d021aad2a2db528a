package xm

import (
	"encoding/binary"
	"errors"
	"io"
)

const (
	scanWindow = 4096
	// scanOverlap is the largest look-ahead of any header predicate. It is
	// the number of bytes carried from one window into the next.
	scanOverlap = instrumentLookahead

	patternLookahead    = 7
	instrumentLookahead = 29
)

// headerPredicate recognizes a plausible section header at the start of a
// window slice holding at least lookahead bytes.
type headerPredicate struct {
	name      string
	lookahead int
	match     func(b []byte) bool
}

var patternHeaderPredicate = headerPredicate{
	name:      "pattern",
	lookahead: patternLookahead,
	match: func(b []byte) bool {
		return binary.LittleEndian.Uint32(b) == patternHeaderSize &&
			b[4] == 0 &&
			binary.LittleEndian.Uint16(b[5:]) <= MaxRows
	},
}

var instrumentHeaderPredicate = headerPredicate{
	name:      "instrument",
	lookahead: instrumentLookahead,
	match: func(b []byte) bool {
		return binary.LittleEndian.Uint32(b) == instrumentHeaderSize &&
			binary.LittleEndian.Uint16(b[27:]) <= MaxSamples
	},
}

// scanFor searches the stream from offset from for the first offset where p
// matches. On success the stream is positioned at the match. Reaching the
// end of the stream without a match is not an error.
func scanFor(r *reader, from int64, p headerPredicate) (int64, bool, error) {
	if err := r.seek(from); err != nil {
		return 0, false, err
	}
	buf := make([]byte, scanWindow)
	base, filled := from, 0
	for {
		n, err := io.ReadFull(r.rs, buf[filled:])
		filled += n
		eof := errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF)
		if err != nil && !eof {
			return 0, false, err
		}

		for i := 0; i+p.lookahead <= filled; i++ {
			if p.match(buf[i:filled]) {
				off := base + int64(i)
				return off, true, r.seek(off)
			}
		}
		if eof {
			return 0, false, nil
		}

		keep := min(scanOverlap, filled)
		copy(buf, buf[filled-keep:filled])
		base += int64(filled - keep)
		filled = keep
	}
}
