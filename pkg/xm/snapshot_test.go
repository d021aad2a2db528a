package xm

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPatternSnapshot(t *testing.T) {
	p := NewPattern(4, 8)
	*p.Cell(0, 0) = Note{49, 1, 0x40, 0x0C, 0x20}
	*p.Cell(3, 7) = Note{Note: NoteOff}
	*p.Cell(2, 5) = Note{FxType: 0x0F, FxParam: 3}

	var buf bytes.Buffer
	require.NoError(t, WritePatternSnapshot(&buf, p, 6))
	assert.Equal(t, 4+4*MaxChannels*5, buf.Len())

	snap, err := ReadPatternSnapshotBytes(buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, 4, snap.Rows)
	assert.Equal(t, Note{49, 1, 0x40, 0x0C, 0x20}, snap.Cells[0][0])
	assert.Equal(t, Note{FxType: 0x0F, FxParam: 3}, snap.Cells[2][5])
	assert.True(t, snap.Cells[3][7].IsEmpty(), "channels past the count are written empty")

	dst := NewPattern(4, 8)
	*dst.Cell(1, 7) = Note{Note: 2}
	require.NoError(t, snap.ApplyTo(dst, 6))
	assert.Equal(t, *p.Cell(0, 0), *dst.Cell(0, 0))
	assert.Equal(t, *p.Cell(2, 5), *dst.Cell(2, 5))
	assert.Equal(t, Note{Note: 2}, *dst.Cell(1, 7), "channels past the count are left alone")
}

func TestSnapshotApplyAllocatesColumns(t *testing.T) {
	p := NewPattern(2, 2)
	*p.Cell(1, 1) = Note{Note: 5}
	data := new(bytes.Buffer)
	require.NoError(t, WritePatternSnapshot(data, p, 2))
	snap, err := ReadPatternSnapshot(data)
	require.NoError(t, err)

	dst := NewPattern(2, 0)
	require.NoError(t, snap.ApplyTo(dst, 4))
	require.Len(t, dst.Channels[3], 2)
	assert.Equal(t, Note{Note: 5}, *dst.Cell(1, 1))
}

func TestSnapshotLengthMismatch(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WritePatternSnapshot(&buf, NewPattern(16, 4), 4))
	snap, err := ReadPatternSnapshot(&buf)
	require.NoError(t, err)

	dst := NewPattern(32, 4)
	*dst.Cell(0, 0) = Note{Note: 1}
	err = snap.ApplyTo(dst, 4)
	assert.ErrorIs(t, err, ErrSnapshotLength)
	assert.Equal(t, Note{Note: 1}, *dst.Cell(0, 0), "pattern untouched on mismatch")

	dst.Resize(16)
	require.NoError(t, snap.ApplyTo(dst, 4))
	assert.True(t, dst.Cell(0, 0).IsEmpty())
}

func TestSnapshotErrors(t *testing.T) {
	_, err := ReadPatternSnapshotBytes([]byte{2, 0, 1, 0})
	assert.Equal(t, KindUnsupported, KindOf(err))

	_, err = ReadPatternSnapshotBytes([]byte{1, 0, 0, 0})
	assert.Equal(t, KindCorrupt, KindOf(err))

	_, err = ReadPatternSnapshotBytes([]byte{1, 0, 1, 1})
	assert.Equal(t, KindCorrupt, KindOf(err))

	_, err = ReadPatternSnapshotBytes([]byte{1, 0, 2, 0, 0, 0})
	assert.Equal(t, KindTruncated, KindOf(err))

	_, err = ReadPatternSnapshotBytes([]byte{1})
	assert.Equal(t, KindTruncated, KindOf(err))
}
