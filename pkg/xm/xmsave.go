package xm

import (
	"bytes"
	"io"
)

// Variant selects the output layout of a save.
type Variant int

const (
	VariantXM Variant = iota
	// VariantXMNoSamples keeps sample headers but writes no sample bodies.
	VariantXMNoSamples
	// VariantMOD is recognized on load only.
	VariantMOD
)

func (v Variant) String() string {
	switch v {
	case VariantXM:
		return "xm"
	case VariantXMNoSamples:
		return "xm-nosamples"
	case VariantMOD:
		return "mod"
	}
	return "unknown"
}

// Save writes m to w in the given layout. Trailing patterns and
// instruments that equal their defaults are left out.
func Save(w io.Writer, m *Module, variant Variant, opts ...Option) error {
	if variant != VariantXM && variant != VariantXMNoSamples {
		return ErrUnsupportedVariant
	}
	if m.NumChannels < 1 || m.NumChannels > MaxChannels {
		return newKind(KindInvalid, "channel count %d", m.NumChannels)
	}
	o := buildOptions(opts)
	cs := o.charset

	numChannels := m.NumChannels + m.NumChannels%2
	songLength := clampInt(m.SongLength, 1, MaxOrders)
	restart := m.RestartPosition
	if restart < 0 || restart >= songLength {
		restart = 0
	}
	numPatterns := m.numPatternsToSave()
	numInstruments := m.numInstrumentsToSave()
	tracker := m.TrackerName
	if tracker == "" {
		tracker = defaultTracker
	}

	out := newWriter(w)
	out.write([]byte(xmSignature))
	out.fixed(cs.encode(m.Name), 20)
	out.u8(0x1A)
	out.fixed(cs.encode(tracker), 20)
	out.u16(xmVersion)
	out.u32(xmHeaderSize)
	out.u16(uint16(songLength))
	out.u16(uint16(restart))
	out.u16(uint16(numChannels))
	out.u16(uint16(numPatterns))
	out.u16(uint16(numInstruments))
	var flags uint16
	if m.LinearFrequencies {
		flags |= 1
	}
	out.u16(flags)
	out.u16(uint16(m.Tempo))
	out.u16(uint16(m.BPM))
	out.write(m.Orders[:])

	for i := 0; i < numPatterns; i++ {
		p := m.Patterns[i]
		if p == nil {
			p = NewPattern(DefaultRows, numChannels)
		}
		writePattern(out, p, numChannels)
	}
	for i := 0; i < numInstruments; i++ {
		ins := m.Instruments[i]
		if ins == nil {
			ins = NewInstrument()
		}
		writeInstrument(out, ins, cs, variant == VariantXM)
	}
	o.logger.Printf("saved %q: %d patterns, %d instruments, %d bytes", m.Name, numPatterns, numInstruments, out.n)
	return wrapKind(out.err, KindIO, "write module")
}

// SaveBytes returns the encoded module.
func SaveBytes(m *Module, variant Variant, opts ...Option) ([]byte, error) {
	var buf bytes.Buffer
	if err := Save(&buf, m, variant, opts...); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
