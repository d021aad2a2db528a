package xm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPackedNoteEncoding(t *testing.T) {
	tests := []struct {
		name string
		note Note
		want []byte
	}{
		{"empty", Note{}, []byte{0x80}},
		{"full cell stays plain", Note{49, 1, 0x40, 0x0C, 0x20}, []byte{49, 1, 0x40, 0x0C, 0x20}},
		{"note only", Note{Note: NoteOff}, []byte{0x81, NoteOff}},
		{"instrument and effect", Note{Instrument: 2, FxType: 0x0F}, []byte{0x8A, 2, 0x0F}},
		{"high note is packed", Note{0x80, 1, 1, 1, 1}, []byte{0x9F, 0x80, 1, 1, 1, 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := appendPackedNote(nil, tt.note)
			assert.Equal(t, tt.want, got)

			n, next, ok := unpackNote(got, 0)
			require.True(t, ok)
			assert.Equal(t, len(got), next)
			assert.Equal(t, tt.note, n)
		})
	}
}

func TestPackedNoteEveryFieldCombination(t *testing.T) {
	values := []uint8{0, 1, 0x7F, 0x80, 0xFF}
	for _, nt := range values {
		for _, ins := range values {
			for _, vol := range values {
				for _, fx := range values {
					for _, param := range values {
						n := Note{nt, ins, vol, fx, param}
						packed := appendPackedNote(nil, n)
						got, next, ok := unpackNote(packed, 0)
						require.True(t, ok, "%+v", n)
						require.Equal(t, len(packed), next, "%+v", n)
						require.Equal(t, n, got)
					}
				}
			}
		}
	}
}

func TestUnpackNoteSequence(t *testing.T) {
	data := appendPackedNote(nil, Note{Note: 1})
	data = appendPackedNote(data, Note{49, 2, 0x30, 1, 2})
	data = appendPackedNote(data, Note{})

	var got []Note
	for pos := 0; pos < len(data); {
		n, next, ok := unpackNote(data, pos)
		require.True(t, ok)
		got = append(got, n)
		pos = next
	}
	assert.Equal(t, []Note{{Note: 1}, {49, 2, 0x30, 1, 2}, {}}, got)
}

func TestUnpackNoteCutShort(t *testing.T) {
	_, _, ok := unpackNote([]byte{0x83, 49}, 0)
	assert.False(t, ok)

	_, next, ok := unpackNote([]byte{49, 1}, 0)
	assert.False(t, ok)
	assert.Equal(t, 2, next)

	_, _, ok = unpackNote(nil, 0)
	assert.False(t, ok)
}

func TestNoteString(t *testing.T) {
	assert.Equal(t, "C-4 01 40 C20", Note{49, 1, 0x40, 0x0C, 0x20}.String())
	assert.Equal(t, "=== .. .. 0..", Note{Note: NoteOff}.String())
	assert.Equal(t, "... .. .. 0..", Note{}.String())
	assert.Equal(t, "B-7 .. .. F01", Note{Note: NoteMax, FxType: 0x0F, FxParam: 1}.String())
}
