package xm

import "encoding/binary"

// Sample bodies on disk are delta coded: every unit is the difference from
// the previous decoded unit. Stereo bodies hold all left units then all
// right units, and each half is coded on its own.

// decodeDelta8 integrates 8-bit deltas into the high byte of each slot.
func decodeDelta8(raw []byte, dst []int16) {
	var acc int8
	for i, b := range raw {
		acc += int8(b)
		dst[i] = int16(acc) << 8
	}
}

// decodeDelta16 integrates little endian 16-bit deltas.
func decodeDelta16(raw []byte, dst []int16) {
	var acc int16
	for i := range dst {
		acc += int16(binary.LittleEndian.Uint16(raw[i*2:]))
		dst[i] = acc
	}
}

// encodeDelta8 keeps the high byte of each slot and stores differences.
func encodeDelta8(src []int16, raw []byte) {
	var prev int8
	for i, v := range src {
		cur := int8(v >> 8)
		raw[i] = byte(cur - prev)
		prev = cur
	}
}

func encodeDelta16(src []int16, raw []byte) {
	var prev int16
	for i, v := range src {
		binary.LittleEndian.PutUint16(raw[i*2:], uint16(v-prev))
		prev = v
	}
}

// DecodeSampleData turns a delta coded body into 16-bit values. Bytes past
// the last whole unit are ignored. A stereo body is split at its midpoint.
func DecodeSampleData(raw []byte, bits int, stereo bool) []int16 {
	width := 1
	if bits == 16 {
		width = 2
	}
	units := len(raw) / width
	if stereo && units%2 != 0 {
		units--
	}
	out := make([]int16, units)
	spans := [][2]int{{0, units}}
	if stereo {
		spans = [][2]int{{0, units / 2}, {units / 2, units}}
	}
	for _, s := range spans {
		body := raw[s[0]*width : s[1]*width]
		if width == 2 {
			decodeDelta16(body, out[s[0]:s[1]])
		} else {
			decodeDelta8(body, out[s[0]:s[1]])
		}
	}
	return out
}

// EncodeSampleData is the inverse of DecodeSampleData.
func EncodeSampleData(data []int16, bits int, stereo bool) []byte {
	width := 1
	if bits == 16 {
		width = 2
	}
	units := len(data)
	if stereo && units%2 != 0 {
		units--
	}
	raw := make([]byte, units*width)
	spans := [][2]int{{0, units}}
	if stereo {
		spans = [][2]int{{0, units / 2}, {units / 2, units}}
	}
	for _, s := range spans {
		body := raw[s[0]*width : s[1]*width]
		if width == 2 {
			encodeDelta16(data[s[0]:s[1]], body)
		} else {
			encodeDelta8(data[s[0]:s[1]], body)
		}
	}
	return raw
}

// decodeSigned8 converts raw signed 8-bit PCM, as stored by the legacy
// format, to 16-bit values.
func decodeSigned8(raw []byte) []int16 {
	out := make([]int16, len(raw))
	for i, b := range raw {
		out[i] = int16(int8(b)) << 8
	}
	return out
}

// savedFrames is the frame count a saved body holds: the declared length
// capped at what the payload can supply.
func savedFrames(s *Sample) int {
	if s.Stereo {
		return max(0, min(s.Length, len(s.Data)/2))
	}
	return max(0, min(s.Length, len(s.Data)))
}

// sampleUnits is the number of 16-bit slots a saved body occupies.
func sampleUnits(s *Sample) int {
	if s.Stereo {
		return savedFrames(s) * 2
	}
	return savedFrames(s)
}

// sampleBytes is the on-disk body size of s.
func sampleBytes(s *Sample) int {
	if s.Bits == 16 {
		return sampleUnits(s) * 2
	}
	return sampleUnits(s)
}
