package xm

import (
	"bytes"
	"io"
)

const (
	snapshotVersion  = 1
	snapshotCellSize = 5
	snapshotRowSize  = MaxChannels * snapshotCellSize
)

// Snapshot is a decoded pattern snapshot: a flat grid of every channel
// slot, independent of any module.
type Snapshot struct {
	Rows  int
	Cells [][MaxChannels]Note
}

// WritePatternSnapshot writes the used rows of p. Channel slots at or
// beyond numChannels are written as zeros.
func WritePatternSnapshot(w io.Writer, p *Pattern, numChannels int) error {
	out := newWriter(w)
	out.u16(snapshotVersion)
	out.u16(uint16(p.Length))
	row := make([]byte, snapshotRowSize)
	for r := 0; r < p.Length; r++ {
		clear(row)
		for ch := 0; ch < numChannels && ch < MaxChannels; ch++ {
			col := p.Channels[ch]
			if r >= len(col) {
				continue
			}
			n := col[r]
			copy(row[ch*snapshotCellSize:], []byte{n.Note, n.Instrument, n.Volume, n.FxType, n.FxParam})
		}
		out.write(row)
	}
	return wrapKind(out.err, KindIO, "write snapshot")
}

// ReadPatternSnapshot decodes a snapshot written by WritePatternSnapshot.
func ReadPatternSnapshot(r io.Reader) (*Snapshot, error) {
	var hdr [4]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return nil, wrapKind(err, KindTruncated, "read snapshot header")
	}
	if v := readLittleEndian16(hdr[:], 0); v != snapshotVersion {
		return nil, newKind(KindUnsupported, "snapshot version %d", v)
	}
	rows := int(readLittleEndian16(hdr[:], 2))
	if rows < 1 || rows > MaxRows {
		return nil, newKind(KindCorrupt, "snapshot row count %d", rows)
	}

	s := &Snapshot{Rows: rows, Cells: make([][MaxChannels]Note, rows)}
	row := make([]byte, snapshotRowSize)
	for i := 0; i < rows; i++ {
		if _, err := io.ReadFull(r, row); err != nil {
			return nil, wrapKind(err, KindTruncated, "read snapshot row")
		}
		for ch := range s.Cells[i] {
			c := row[ch*snapshotCellSize:]
			s.Cells[i][ch] = Note{c[0], c[1], c[2], c[3], c[4]}
		}
	}
	return s, nil
}

// ReadPatternSnapshotBytes decodes a snapshot held in memory.
func ReadPatternSnapshotBytes(data []byte) (*Snapshot, error) {
	return ReadPatternSnapshot(bytes.NewReader(data))
}

// ApplyTo copies the snapshot into p for the first numChannels channels.
// The row counts must match; resizing p first is up to the caller.
func (s *Snapshot) ApplyTo(p *Pattern, numChannels int) error {
	if s.Rows != p.Length {
		return ErrSnapshotLength
	}
	for ch := 0; ch < numChannels && ch < MaxChannels; ch++ {
		if p.Channels[ch] == nil {
			p.Channels[ch] = make([]Note, p.AllocLength)
		}
		for r := 0; r < s.Rows; r++ {
			p.Channels[ch][r] = s.Cells[r][ch]
		}
	}
	return nil
}
