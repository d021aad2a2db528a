package xm

import (
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
)

// Charset names the 8-bit code page used for names stored in files.
type Charset string

const (
	CharsetLatin1 Charset = "latin1"
	CharsetCP437  Charset = "cp437"
)

// ParseCharset maps a config value to a Charset, defaulting to Latin-1.
func ParseCharset(name string) Charset {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "cp437", "ibm437", "dos":
		return CharsetCP437
	default:
		return CharsetLatin1
	}
}

func (c Charset) charmap() *charmap.Charmap {
	if c == CharsetCP437 {
		return charmap.CodePage437
	}
	return charmap.ISO8859_1
}

// decode converts a raw name field to UTF-8.
func (c Charset) decode(raw []byte) string {
	out, err := c.charmap().NewDecoder().Bytes(raw)
	if err != nil {
		return string(raw)
	}
	return string(out)
}

// encode converts a UTF-8 name to the code page, replacing characters the
// code page cannot hold.
func (c Charset) encode(s string) []byte {
	enc := encoding.ReplaceUnsupported(c.charmap().NewEncoder())
	out, err := enc.Bytes([]byte(s))
	if err != nil {
		return []byte(s)
	}
	return out
}
