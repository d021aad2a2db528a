package xm

import "fmt"

// Packed cells start with a flag byte with bit 7 set; bits 0-4 tell which
// of the five fields follow. A first byte with bit 7 clear starts a plain
// five byte cell.
const (
	packFlag       = 0x80
	packNote       = 0x01
	packInstrument = 0x02
	packVolume     = 0x04
	packFxType     = 0x08
	packFxParam    = 0x10
)

// appendPackedNote appends the compact encoding of n to dst.
func appendPackedNote(dst []byte, n Note) []byte {
	if n.Note != 0 && n.Note < packFlag && n.Instrument != 0 &&
		n.Volume != 0 && n.FxType != 0 && n.FxParam != 0 {
		return append(dst, n.Note, n.Instrument, n.Volume, n.FxType, n.FxParam)
	}
	flag := byte(packFlag)
	fields := [5]byte{n.Note, n.Instrument, n.Volume, n.FxType, n.FxParam}
	for i, v := range fields {
		if v != 0 {
			flag |= 1 << i
		}
	}
	dst = append(dst, flag)
	for _, v := range fields {
		if v != 0 {
			dst = append(dst, v)
		}
	}
	return dst
}

// unpackNote decodes the cell starting at data[pos] and returns the offset
// just past it. ok is false when the cell runs past the end of data.
func unpackNote(data []byte, pos int) (n Note, next int, ok bool) {
	if pos >= len(data) {
		return n, pos, false
	}
	flag := data[pos]
	if flag&packFlag == 0 {
		if pos+5 > len(data) {
			return n, len(data), false
		}
		c := data[pos : pos+5]
		return Note{c[0], c[1], c[2], c[3], c[4]}, pos + 5, true
	}
	pos++
	fields := [5]*uint8{&n.Note, &n.Instrument, &n.Volume, &n.FxType, &n.FxParam}
	for i, f := range fields {
		if flag&(1<<i) == 0 {
			continue
		}
		if pos >= len(data) {
			return n, pos, false
		}
		*f = data[pos]
		pos++
	}
	return n, pos, true
}

var noteNames = [12]string{"C-", "C#", "D-", "D#", "E-", "F-", "F#", "G-", "G#", "A-", "A#", "B-"}

// String renders the cell in tracker notation, e.g. "C-4 01 40 A0F".
func (n Note) String() string {
	note := "..."
	switch {
	case n.Note == NoteOff:
		note = "==="
	case n.Note >= 1 && n.Note <= NoteMax:
		k := int(n.Note) - 1
		note = fmt.Sprintf("%s%d", noteNames[k%12], k/12)
	}
	cell := func(v uint8) string {
		if v == 0 {
			return ".."
		}
		return fmt.Sprintf("%02X", v)
	}
	return fmt.Sprintf("%s %s %s %X%s", note, cell(n.Instrument), cell(n.Volume), n.FxType, cell(n.FxParam))
}
