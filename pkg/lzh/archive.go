package lzh

import (
	"encoding/binary"
	"errors"
	"fmt"
	"strings"
)

// Entry is one member of an LHA archive.
type Entry struct {
	Name         string
	Method       string
	Level        int
	PackedSize   int
	OriginalSize int
	Data         []byte
}

// IsArchive checks for a -lhX- method id at the start of data.
func IsArchive(data []byte) bool {
	if len(data) < 21 {
		return false
	}
	return data[2] == '-' && data[3] == 'l' && data[4] == 'h' && data[6] == '-'
}

// Method returns the method id of the first member, or "".
func Method(data []byte) string {
	if !IsArchive(data) {
		return ""
	}
	return string(data[2:7])
}

// ReadArchive decodes every member of an archive. Header levels 0, 1 and 2
// are understood; members are stored (-lh0-) or compressed with -lh4- or
// -lh5-.
func ReadArchive(data []byte) ([]Entry, error) {
	if !IsArchive(data) {
		return nil, errors.New("lzh: no archive header")
	}
	var entries []Entry
	pos := 0
	for !atEnd(data, pos) {
		e, body, next, err := parseHeader(data, pos)
		if err != nil {
			return entries, fmt.Errorf("lzh: member %d: %w", len(entries), err)
		}
		if e.Data, err = unpack(e.Method, body, e.OriginalSize); err != nil {
			return entries, fmt.Errorf("lzh: %s: %w", e.Name, err)
		}
		entries = append(entries, e)
		pos = next
	}
	return entries, nil
}

// Decompress returns the first member of an archive.
func Decompress(data []byte) ([]byte, error) {
	entries, err := ReadArchive(data)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, errors.New("lzh: empty archive")
	}
	return entries[0].Data, nil
}

func unpack(method string, body []byte, size int) ([]byte, error) {
	switch method {
	case "-lh0-":
		if len(body) < size {
			return nil, fmt.Errorf("incomplete data: got %d, expected %d", len(body), size)
		}
		return body[:size:size], nil
	case "-lh4-":
		return expand(body, size, 12)
	case "-lh5-":
		return expand(body, size, 13)
	}
	return nil, fmt.Errorf("unsupported method: %s", method)
}

// parseHeader decodes the member header at pos and returns the packed body
// and the offset of the next member.
func parseHeader(data []byte, pos int) (e Entry, body []byte, next int, err error) {
	if pos+22 > len(data) {
		return e, nil, 0, errors.New("header cut short")
	}
	h := data[pos:]
	e.Method = string(h[2:7])
	e.PackedSize = int(binary.LittleEndian.Uint32(h[7:]))
	e.OriginalSize = int(binary.LittleEndian.Uint32(h[11:]))
	e.Level = int(h[20])

	var start int
	switch e.Level {
	case 0, 1:
		size := int(h[0]) + 2
		nameLen := int(h[21])
		if 22+nameLen > size || size > len(h) {
			return e, nil, 0, errors.New("bad header size")
		}
		e.Name = string(h[22 : 22+nameLen])
		start = size
		if e.Level == 1 {
			name, used, err := extendedHeaders(h, size)
			if err != nil {
				return e, nil, 0, err
			}
			if name != "" {
				e.Name = name
			}
			start += used
			e.PackedSize -= used
		}
	case 2:
		size := int(binary.LittleEndian.Uint16(h))
		if size < 26 || size > len(h) {
			return e, nil, 0, errors.New("bad header size")
		}
		name, _, err := extendedHeaders(h[:size], 26)
		if err != nil {
			return e, nil, 0, err
		}
		e.Name = name
		start = size
	default:
		return e, nil, 0, fmt.Errorf("header level %d", e.Level)
	}

	if e.PackedSize < 0 || start+e.PackedSize > len(h) {
		return e, nil, 0, errors.New("member data cut short")
	}
	e.Name = baseName(e.Name)
	return e, h[start : start+e.PackedSize], pos + start + e.PackedSize, nil
}

// extendedHeaders walks the extended header chain whose first size word
// sits just before at. It returns the file name, if any, and the bytes the
// chain occupies.
func extendedHeaders(h []byte, at int) (name string, used int, err error) {
	size := int(binary.LittleEndian.Uint16(h[at-2:]))
	p := at
	for size != 0 {
		if size < 3 || p+size > len(h) {
			return "", 0, errors.New("bad extended header")
		}
		if h[p] == 0x01 {
			name = string(h[p+1 : p+size-2])
		}
		p += size
		used += size
		size = int(binary.LittleEndian.Uint16(h[p-2:]))
	}
	return name, used, nil
}

// atEnd reports whether pos holds the archive terminator. A level 2
// header may start with a zero byte when its size is a multiple of 256.
func atEnd(data []byte, pos int) bool {
	if pos+22 > len(data) {
		return true
	}
	return data[pos] == 0 && data[pos+20] != 2
}

// baseName drops any directory part. Old archivers separate path
// components with a backslash or 0xFF.
func baseName(name string) string {
	b := []byte(name)
	for i, c := range b {
		if c == '\\' || c == 0xFF {
			b[i] = '/'
		}
	}
	name = string(b)
	if i := strings.LastIndexByte(name, '/'); i >= 0 {
		name = name[i+1:]
	}
	return name
}
