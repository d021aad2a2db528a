package xm

import (
	"bytes"
	"errors"
	"io"
	"log"
)

const (
	xmSignature     = "Extended Module: "
	xmHeaderSize    = 276
	xmVersion       = 0x0104
	xmHeaderOffset  = 60
	xmFixedHeader   = 20
	defaultTracker  = "FastTracker v2.00   "
	detectBlockSize = modSignatureOffset + 4
)

type options struct {
	logger  *log.Logger
	charset Charset
}

// Option configures a Loader or a save call.
type Option func(*options)

// WithLogger logs every warning as it is recorded.
func WithLogger(logger *log.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithCharset selects the code page used for names. Latin-1 by default.
func WithCharset(cs Charset) Option {
	return func(o *options) { o.charset = cs }
}

func buildOptions(opts []Option) options {
	o := options{charset: CharsetLatin1}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = log.New(io.Discard, "", 0)
	}
	return o
}

// Loader decodes modules and instruments from a seekable stream.
type Loader struct {
	r       *reader
	size    int64
	charset Charset
	logger  *log.Logger
	report  *Report
}

// NewLoader creates a loader reading from rs.
func NewLoader(rs io.ReadSeeker, opts ...Option) *Loader {
	o := buildOptions(opts)
	return &Loader{
		r:       newReader(rs),
		charset: o.charset,
		logger:  o.logger,
		report:  newReport(o.logger),
	}
}

// Load decodes a module from rs.
func Load(rs io.ReadSeeker, opts ...Option) (*Module, *Report, error) {
	return NewLoader(rs, opts...).Load()
}

// LoadBytes decodes a module held in memory.
func LoadBytes(data []byte, opts ...Option) (*Module, *Report, error) {
	return Load(bytes.NewReader(data), opts...)
}

// Load detects the format and decodes the whole module. A non-nil error
// means no module was produced; otherwise the report lists what had to be
// repaired or dropped.
func (l *Loader) Load() (*Module, *Report, error) {
	size, err := l.r.size()
	if err != nil {
		return nil, nil, wrapKind(err, KindIO, "stream size")
	}
	l.size = size
	if err := l.r.seek(0); err != nil {
		return nil, nil, wrapKind(err, KindIO, "rewind")
	}
	head := make([]byte, min(size, detectBlockSize))
	if _, err := l.r.full(head); err != nil {
		return nil, nil, ioError(err, "read signature")
	}

	var m *Module
	switch {
	case isXMHeader(head):
		m, err = l.loadXM()
	case modChannelCount(head) > 0:
		m, err = l.loadMOD(head)
	default:
		return nil, nil, ErrNotModule
	}
	if err != nil {
		return nil, nil, err
	}
	m.fillDefaults()
	return m, l.report, nil
}

func isXMHeader(head []byte) bool {
	return len(head) > 37 && string(head[:len(xmSignature)]) == xmSignature && head[37] == 0x1A
}

func (l *Loader) loadXM() (*Module, error) {
	if err := l.r.seek(0); err != nil {
		return nil, wrapKind(err, KindIO, "rewind")
	}
	pre, err := l.r.bytes(xmHeaderOffset + 4)
	if err != nil {
		return nil, ioError(err, "read module header")
	}
	if v := readLittleEndian16(pre, 58); v != xmVersion {
		l.report.add(KindInvalid, 58, "format version 0x%04x, reading as 0x%04x", v, xmVersion)
	}
	hlen := int64(readLittleEndian32(pre, xmHeaderOffset))
	if hlen != xmHeaderSize {
		l.report.add(KindInvalid, xmHeaderOffset, "header length %d, expected %d", hlen, xmHeaderSize)
	}
	if hlen < xmFixedHeader || hlen > l.size {
		return nil, newKind(KindCorrupt, "header length %d", hlen)
	}
	hdr := make([]byte, hlen)
	copy(hdr, pre[xmHeaderOffset:])
	if _, err := l.r.full(hdr[4:]); err != nil {
		return nil, ioError(err, "read module header")
	}

	m := &Module{
		Name:              l.charset.decode(readFixedString(pre, 17, 20)),
		TrackerName:       l.charset.decode(readFixedString(pre, 38, 20)),
		SongLength:        int(readLittleEndian16(hdr, 4)),
		RestartPosition:   int(readLittleEndian16(hdr, 6)),
		LinearFrequencies: readLittleEndian16(hdr, 14)&1 != 0,
		Tempo:             int(readLittleEndian16(hdr, 16)),
		BPM:               int(readLittleEndian16(hdr, 18)),
	}
	diskChannels := int(readLittleEndian16(hdr, 8))
	numPatterns := int(readLittleEndian16(hdr, 10))
	numInstruments := int(readLittleEndian16(hdr, 12))

	if diskChannels < 1 || diskChannels > MaxChannels {
		return nil, newKind(KindCorrupt, "channel count %d", diskChannels)
	}
	if numPatterns > MaxPatterns {
		return nil, newKind(KindCorrupt, "pattern count %d", numPatterns)
	}
	if numInstruments > MaxInstruments {
		return nil, newKind(KindCorrupt, "instrument count %d", numInstruments)
	}
	m.NumChannels = diskChannels + diskChannels%2
	if m.NumChannels != diskChannels {
		l.logger.Printf("channel count %d rounded up to %d", diskChannels, m.NumChannels)
	}
	l.checkSongFields(m, MaxOrders)
	copy(m.Orders[:], hdr[min(xmFixedHeader, len(hdr)):])

	if err := l.r.seek(xmHeaderOffset + hlen); err != nil {
		return nil, wrapKind(err, KindIO, "seek patterns")
	}
	if err := l.loadPatterns(m, numPatterns, diskChannels); err != nil {
		return nil, err
	}
	if err := l.loadInstruments(m, numInstruments); err != nil {
		return nil, err
	}
	return m, nil
}

// checkSongFields clamps the song header fields into range.
func (l *Loader) checkSongFields(m *Module, maxLength int) {
	if m.SongLength < 1 || m.SongLength > maxLength {
		l.report.add(KindInvalid, 64, "song length %d clamped", m.SongLength)
		m.SongLength = clampInt(m.SongLength, 1, maxLength)
	}
	if m.RestartPosition >= m.SongLength {
		l.report.add(KindInvalid, 66, "restart position %d reset", m.RestartPosition)
		m.RestartPosition = 0
	}
	if m.Tempo < 1 {
		l.report.add(KindInvalid, 76, "tempo %d reset", m.Tempo)
		m.Tempo = DefaultTempo
	}
	if m.BPM < 1 {
		l.report.add(KindInvalid, 78, "bpm %d reset", m.BPM)
		m.BPM = DefaultBPM
	}
}

// loadPatterns reads count patterns. A damaged header leaves its slot at
// the default and parsing resumes at the next plausible header. When none
// is left the section is abandoned and the stream is left at the damage so
// the instrument scan can start there.
func (l *Loader) loadPatterns(m *Module, count, diskChannels int) error {
	for i := 0; i < count; i++ {
		pos, err := l.r.pos()
		if err != nil {
			return wrapKind(err, KindIO, "pattern position")
		}
		p, err := l.readPattern(diskChannels, m.NumChannels)
		if err == nil {
			m.Patterns[i] = p
			continue
		}
		if !errors.Is(err, errStructure) {
			return err
		}
		l.report.add(KindCorrupt, pos, "pattern %d: %v", i, err)
		next, found, err := scanFor(l.r, pos+1, patternHeaderPredicate)
		if err != nil {
			return wrapKind(err, KindIO, "scan patterns")
		}
		if !found {
			l.report.add(KindCorrupt, pos, "no pattern header after pattern %d, %d patterns dropped", i, count-i-1)
			return wrapKind(l.r.seek(pos), KindIO, "seek instruments")
		}
		l.logger.Printf("pattern %d skipped, resuming at 0x%x", i, next)
	}
	return nil
}

func (l *Loader) loadInstruments(m *Module, count int) error {
	for i := 0; i < count; i++ {
		pos, err := l.r.pos()
		if err != nil {
			return wrapKind(err, KindIO, "instrument position")
		}
		ins, err := l.readInstrument()
		if err == nil {
			m.Instruments[i] = ins
			continue
		}
		if !errors.Is(err, errStructure) {
			return err
		}
		l.report.add(KindCorrupt, pos, "instrument %d: %v", i+1, err)
		next, found, err := scanFor(l.r, pos+1, instrumentHeaderPredicate)
		if err != nil {
			return wrapKind(err, KindIO, "scan instruments")
		}
		if !found {
			l.report.add(KindCorrupt, pos, "no instrument header after instrument %d, %d instruments dropped", i+1, count-i-1)
			return nil
		}
		l.logger.Printf("instrument %d skipped, resuming at 0x%x", i+1, next)
	}
	return nil
}
