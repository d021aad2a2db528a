package lzh

import (
	"bytes"
	"errors"
)

// Static Huffman (-lh4-, -lh5-) parameters.
const (
	charBits   = 8
	ucharMax   = 255
	bitBufSize = 16
	maxDicBit  = 13
	dicSize    = 1 << maxDicBit
	maxMatch   = 256
	threshold  = 3
	numChars   = ucharMax + maxMatch + 2 - threshold
	charBitLen = 9
	codeBits   = 16
	numPos     = maxDicBit + 1
	numTree    = codeBits + 3
	posBitLen  = 4
	treeBitLen = 5
	numPT      = numTree
	readChunk  = 4096
)

var errBadTable = errors.New("lzh: bad huffman table")

// decoder expands one -lh4- or -lh5- stream.
type decoder struct {
	in  *bytes.Reader
	out *bytes.Buffer
	np  int

	bitBuf    uint16
	subBitBuf uint8
	bitCount  int
	chunk     [readChunk]byte
	chunkLen  int
	chunkPos  int

	left      [2*numChars - 1]uint16
	right     [2*numChars - 1]uint16
	charLen   [numChars]uint8
	ptLen     [numPT]uint8
	charTable [4096]uint16
	ptTable   [256]uint16

	blockSize uint16
	copyLen   int
	copyPos   uint32
	window    [dicSize]uint8
	badTable  bool
}

// expand decodes packed into size bytes using a dictionary of 1<<dicBit.
func expand(packed []byte, size int, dicBit int) ([]byte, error) {
	d := &decoder{
		in:  bytes.NewReader(packed),
		out: bytes.NewBuffer(make([]byte, 0, size)),
		np:  dicBit + 1,
	}
	d.initBits()
	for size > 0 {
		n := min(size, dicSize)
		d.decodeBlock(n)
		if d.badTable {
			return nil, errBadTable
		}
		d.out.Write(d.window[:n])
		size -= n
	}
	return d.out.Bytes(), nil
}

func (d *decoder) fillBits(n int) {
	d.bitBuf <<= n
	for n > d.bitCount {
		n -= d.bitCount
		d.bitBuf |= uint16(d.subBitBuf) << n
		if d.chunkLen == 0 {
			d.chunkPos = 0
			d.chunkLen, _ = d.in.Read(d.chunk[:readChunk-32])
		}
		if d.chunkLen > 0 {
			d.chunkLen--
			d.subBitBuf = d.chunk[d.chunkPos]
			d.chunkPos++
		} else {
			d.subBitBuf = 0
		}
		d.bitCount = charBits
	}
	d.bitCount -= n
	d.bitBuf |= uint16(d.subBitBuf) >> d.bitCount
}

func (d *decoder) getBits(n int) uint16 {
	x := d.bitBuf >> (bitBufSize - n)
	d.fillBits(n)
	return x
}

func (d *decoder) initBits() {
	d.bitBuf, d.subBitBuf, d.bitCount, d.chunkLen = 0, 0, 0, 0
	d.fillBits(bitBufSize)
}

// makeTable builds a lookup table of tableBits bits for the code lengths
// in bitLen, spilling longer codes into the left/right trees.
func (d *decoder) makeTable(nchar int, bitLen []uint8, tableBits int, table []uint16) {
	var count, weight [17]uint16
	var start [18]uint16

	for i := 0; i < nchar; i++ {
		if l := bitLen[i]; l > 0 && l <= 16 {
			count[l]++
		}
	}
	for i := 1; i <= 16; i++ {
		start[i+1] = start[i] + count[i]<<(16-i)
	}
	if start[17] != 0 {
		d.badTable = true
	}

	jut := 16 - tableBits
	for i := 1; i <= tableBits; i++ {
		start[i] >>= jut
		weight[i] = 1 << (tableBits - i)
	}
	for i := tableBits + 1; i <= 16; i++ {
		weight[i] = 1 << (16 - i)
	}

	if i := int(start[tableBits+1] >> jut); i != 0 {
		for j := i; j < 1<<tableBits && j < len(table); j++ {
			table[j] = 0
		}
	}

	avail := uint16(nchar)
	mask := uint16(1) << (15 - tableBits)
	for ch := 0; ch < nchar; ch++ {
		length := int(bitLen[ch])
		if length == 0 {
			continue
		}
		next := start[length] + weight[length]
		if length <= tableBits {
			for i := int(start[length]); i < int(next) && i < len(table); i++ {
				table[i] = uint16(ch)
			}
			start[length] = next
			continue
		}

		k := start[length]
		idx := int(k >> jut)
		if idx >= len(table) {
			start[length] = next
			continue
		}
		p := &table[idx]
		rest := length - tableBits
		for rest > 0 {
			if *p == 0 {
				if int(avail) >= len(d.left) {
					break
				}
				d.left[avail], d.right[avail] = 0, 0
				*p = avail
				avail++
			}
			if int(*p) >= len(d.left) {
				break
			}
			if k&mask != 0 {
				p = &d.right[*p]
			} else {
				p = &d.left[*p]
			}
			k <<= 1
			rest--
		}
		if rest == 0 {
			*p = uint16(ch)
		}
		start[length] = next
	}
}

func (d *decoder) readPTLen(nn, nbit, special int) {
	n := int(d.getBits(nbit))
	if n == 0 {
		c := d.getBits(nbit)
		clear(d.ptLen[:nn])
		for i := range d.ptTable {
			d.ptTable[i] = c
		}
		return
	}
	i := 0
	for i < n && i < nn {
		c := int(d.bitBuf >> (bitBufSize - 3))
		if c == 7 {
			mask := uint16(1) << (bitBufSize - 1 - 3)
			for mask&d.bitBuf != 0 {
				mask >>= 1
				c++
			}
		}
		if c < 7 {
			d.fillBits(3)
		} else {
			d.fillBits(c - 3)
		}
		d.ptLen[i] = uint8(c)
		i++
		if i == special {
			for z := d.getBits(2); z > 0 && i < nn; z-- {
				d.ptLen[i] = 0
				i++
			}
		}
	}
	clear(d.ptLen[i:nn])
	d.makeTable(nn, d.ptLen[:], 8, d.ptTable[:])
}

func (d *decoder) readCharLen() {
	n := int(d.getBits(charBitLen))
	if n == 0 {
		c := d.getBits(charBitLen)
		clear(d.charLen[:])
		for i := range d.charTable {
			d.charTable[i] = c
		}
		return
	}
	i := 0
	for i < n && i < numChars {
		c := d.walk(d.ptTable[d.bitBuf>>(bitBufSize-8)], numTree, 8)
		d.fillBits(int(d.ptLen[c]))
		if c > 2 {
			d.charLen[i] = uint8(c - 2)
			i++
			continue
		}
		var zeros uint16
		switch c {
		case 0:
			zeros = 1
		case 1:
			zeros = d.getBits(4) + 3
		default:
			zeros = d.getBits(charBitLen) + 20
		}
		for ; zeros > 0 && i < numChars; zeros-- {
			d.charLen[i] = 0
			i++
		}
	}
	clear(d.charLen[i:])
	d.makeTable(numChars, d.charLen[:], 12, d.charTable[:])
}

// walk follows the overflow tree from a table hit j while j is not a leaf.
func (d *decoder) walk(j uint16, leaves uint16, tableBits int) uint16 {
	mask := uint16(1) << (bitBufSize - 1 - tableBits)
	for j >= leaves && int(j) < len(d.left) {
		if d.bitBuf&mask != 0 {
			j = d.right[j]
		} else {
			j = d.left[j]
		}
		mask >>= 1
		if mask == 0 {
			break
		}
	}
	return j
}

func (d *decoder) decodeChar() uint16 {
	if d.blockSize == 0 {
		d.blockSize = d.getBits(16)
		d.readPTLen(numTree, treeBitLen, 3)
		d.readCharLen()
		d.readPTLen(d.np, posBitLen, -1)
	}
	d.blockSize--
	j := d.walk(d.charTable[d.bitBuf>>(bitBufSize-12)], numChars, 12)
	if j >= numChars {
		d.badTable = true
		return 0
	}
	d.fillBits(int(d.charLen[j]))
	return j
}

func (d *decoder) decodePos() uint16 {
	j := d.walk(d.ptTable[d.bitBuf>>(bitBufSize-8)], uint16(d.np), 8)
	if int(j) >= numPT {
		d.badTable = true
		return 0
	}
	d.fillBits(int(d.ptLen[j]))
	if j != 0 {
		j--
		j = 1<<j + d.getBits(int(j))
	}
	return j
}

// decodeBlock fills the first count bytes of the window. A match that does
// not fit is carried over to the next call.
func (d *decoder) decodeBlock(count int) {
	r := 0
	for ; d.copyLen > 0 && r < count; d.copyLen-- {
		d.window[r] = d.window[d.copyPos]
		d.copyPos = (d.copyPos + 1) & (dicSize - 1)
		r++
	}
	for r < count && !d.badTable {
		c := d.decodeChar()
		if c <= ucharMax {
			d.window[r] = uint8(c)
			r++
			continue
		}
		d.copyLen = int(c) - (ucharMax + 1 - threshold)
		d.copyPos = uint32(r-int(d.decodePos())-1) & (dicSize - 1)
		for ; d.copyLen > 0 && r < count; d.copyLen-- {
			d.window[r] = d.window[d.copyPos]
			d.copyPos = (d.copyPos + 1) & (dicSize - 1)
			r++
		}
	}
}
