package lzh

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func storedLevel0(name string, body []byte) []byte {
	var b bytes.Buffer
	b.WriteByte(byte(22 + len(name)))
	b.WriteByte(0) // checksum, not verified
	b.WriteString("-lh0-")
	binary.Write(&b, binary.LittleEndian, uint32(len(body)))
	binary.Write(&b, binary.LittleEndian, uint32(len(body)))
	b.Write(make([]byte, 4)) // time stamp
	b.WriteByte(0x20)
	b.WriteByte(0)
	b.WriteByte(byte(len(name)))
	b.WriteString(name)
	b.Write([]byte{0, 0}) // crc
	b.Write(body)
	return b.Bytes()
}

func storedLevel1(name, longName string, body []byte) []byte {
	ext := append(append([]byte{0x01}, longName...), 0, 0)
	var b bytes.Buffer
	b.WriteByte(byte(25 + len(name)))
	b.WriteByte(0)
	b.WriteString("-lh0-")
	binary.Write(&b, binary.LittleEndian, uint32(len(body)+len(ext)))
	binary.Write(&b, binary.LittleEndian, uint32(len(body)))
	b.Write(make([]byte, 4))
	b.WriteByte(0x20)
	b.WriteByte(1)
	b.WriteByte(byte(len(name)))
	b.WriteString(name)
	b.Write([]byte{0, 0}) // crc
	b.WriteByte('U')
	binary.Write(&b, binary.LittleEndian, uint16(len(ext)))
	b.Write(ext)
	b.Write(body)
	return b.Bytes()
}

func storedLevel2(name string, body []byte) []byte {
	ext := append(append([]byte{0x01}, name...), 0, 0)
	var b bytes.Buffer
	binary.Write(&b, binary.LittleEndian, uint16(26+len(ext)))
	b.WriteString("-lh0-")
	binary.Write(&b, binary.LittleEndian, uint32(len(body)))
	binary.Write(&b, binary.LittleEndian, uint32(len(body)))
	b.Write(make([]byte, 4))
	b.WriteByte(0x20)
	b.WriteByte(2)
	b.Write([]byte{0, 0}) // crc
	b.WriteByte('U')
	binary.Write(&b, binary.LittleEndian, uint16(len(ext)))
	b.Write(ext)
	b.Write(body)
	return b.Bytes()
}

func TestReadArchiveLevels(t *testing.T) {
	body := []byte("Extended Module: pretend")
	tests := []struct {
		name  string
		data  []byte
		level int
		file  string
	}{
		{"level 0", storedLevel0("SONG.XM", body), 0, "SONG.XM"},
		{"level 0 with path", storedLevel0("MODS\\SONG.XM", body), 0, "SONG.XM"},
		{"level 1 long name", storedLevel1("SONG.XM", "my song.xm", body), 1, "my song.xm"},
		{"level 2", storedLevel2("dir\xffsong.xm", body), 2, "song.xm"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.True(t, IsArchive(tt.data))
			assert.Equal(t, "-lh0-", Method(tt.data))

			entries, err := ReadArchive(append(tt.data, 0))
			require.NoError(t, err)
			require.Len(t, entries, 1)
			e := entries[0]
			assert.Equal(t, tt.file, e.Name)
			assert.Equal(t, tt.level, e.Level)
			assert.Equal(t, len(body), e.OriginalSize)
			assert.Equal(t, body, e.Data)
		})
	}
}

func TestReadArchiveMembers(t *testing.T) {
	data := concat(
		storedLevel0("README", []byte("hello")),
		storedLevel2("song.xm", []byte("module data")),
		[]byte{0},
	)
	entries, err := ReadArchive(data)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "README", entries[0].Name)
	assert.Equal(t, []byte("module data"), entries[1].Data)

	first, err := Decompress(data)
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), first)
}

func TestReadArchiveErrors(t *testing.T) {
	_, err := ReadArchive([]byte("not an archive at all, no"))
	assert.Error(t, err)
	assert.False(t, IsArchive([]byte("-lh0-")))
	assert.Equal(t, "", Method(nil))

	// member body runs past the end
	data := storedLevel0("A", []byte("abcdef"))
	_, err = ReadArchive(data[:len(data)-2])
	assert.Error(t, err)

	// a good member followed by a broken one is still returned
	good := storedLevel0("A", []byte("abc"))
	bad := storedLevel0("B", []byte("xyz"))
	copy(bad[2:], "-lh9-")
	entries, err := ReadArchive(concat(good, bad, []byte{0}))
	assert.Error(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "A", entries[0].Name)
}

// A block whose trees are all single-symbol tables repeats one byte
// without consuming further bits.
func TestExpandConstantBlock(t *testing.T) {
	packed := []byte{0x00, 0x05, 0x00, 0x00, 0x04, 0x10, 0x00}
	out, err := expand(packed, 5, 13)
	require.NoError(t, err)
	assert.Equal(t, []byte("AAAAA"), out)

	out, err = unpack("-lh4-", packed, 5)
	require.NoError(t, err)
	assert.Equal(t, []byte("AAAAA"), out)
}

func TestUnpackStoredShort(t *testing.T) {
	_, err := unpack("-lh0-", []byte("ab"), 3)
	assert.Error(t, err)
	_, err = unpack("-pm2-", nil, 0)
	assert.Error(t, err)
}

func concat(parts ...[]byte) []byte {
	var out []byte
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}
