package xm

// Capacities of the song model. Slots are addressed by index and never grow.
const (
	MaxChannels    = 32
	MaxPatterns    = 256
	MaxOrders      = 256
	MaxInstruments = 128
	MaxSamples     = 128
	MaxRows        = 256
	MaxEnvPoints   = 12
	NumKeys        = 96

	DefaultRows     = 64
	DefaultChannels = 8
	DefaultTempo    = 6
	DefaultBPM      = 125
)

// Note values
const (
	NoteEmpty = 0
	NoteMax   = 96
	NoteOff   = 97
)

// Envelope flag bits
const (
	EnvelopeEnabled uint8 = 1 << iota
	EnvelopeSustain
	EnvelopeLoop
)

// LoopType selects how a sample repeats.
type LoopType uint8

const (
	LoopOff LoopType = iota
	LoopForward
	LoopPingPong
)

func (l LoopType) String() string {
	switch l {
	case LoopForward:
		return "forward"
	case LoopPingPong:
		return "pingpong"
	default:
		return "off"
	}
}

// Note is one pattern cell.
type Note struct {
	Note       uint8
	Instrument uint8
	Volume     uint8
	FxType     uint8
	FxParam    uint8
}

// IsEmpty reports whether every field of the cell is zero.
func (n Note) IsEmpty() bool {
	return n == Note{}
}

// Pattern is a grid of cells, one column per channel. Columns beyond the
// allocated channel count are nil.
type Pattern struct {
	Length      int
	AllocLength int
	Channels    [MaxChannels][]Note
}

// NewPattern allocates rows empty rows for the first channels columns.
func NewPattern(rows, channels int) *Pattern {
	if rows < 1 {
		rows = 1
	}
	if rows > MaxRows {
		rows = MaxRows
	}
	if channels > MaxChannels {
		channels = MaxChannels
	}
	p := &Pattern{Length: rows, AllocLength: rows}
	for ch := 0; ch < channels; ch++ {
		p.Channels[ch] = make([]Note, rows)
	}
	return p
}

// Cell returns a pointer to the cell at row, channel or nil when that cell is
// not allocated.
func (p *Pattern) Cell(row, channel int) *Note {
	if channel < 0 || channel >= MaxChannels || row < 0 || row >= p.Length {
		return nil
	}
	col := p.Channels[channel]
	if row >= len(col) {
		return nil
	}
	return &col[row]
}

// Resize changes the used row count, growing the allocation when needed.
// Cells past the old length are cleared so a later grow shows empty rows.
func (p *Pattern) Resize(rows int) {
	if rows < 1 {
		rows = 1
	}
	if rows > MaxRows {
		rows = MaxRows
	}
	for ch := range p.Channels {
		col := p.Channels[ch]
		if col == nil {
			continue
		}
		if rows > len(col) {
			grown := make([]Note, rows)
			copy(grown, col[:min(p.Length, len(col))])
			p.Channels[ch] = grown
			continue
		}
		for r := rows; r < len(col); r++ {
			col[r] = Note{}
		}
	}
	p.Length = rows
	if rows > p.AllocLength {
		p.AllocLength = rows
	}
}

// IsEmpty reports whether no allocated cell holds data.
func (p *Pattern) IsEmpty() bool {
	for _, col := range p.Channels {
		for r := 0; r < p.Length && r < len(col); r++ {
			if !col[r].IsEmpty() {
				return false
			}
		}
	}
	return true
}

// isDefault reports whether p is indistinguishable from the pattern the
// loader synthesizes for an absent slot.
func (p *Pattern) isDefault() bool {
	return p == nil || (p.Length == DefaultRows && p.IsEmpty())
}

// EnvelopePoint is one (tick, value) node.
type EnvelopePoint struct {
	Pos   uint16
	Value uint16
}

// Envelope is a piecewise linear curve of up to MaxEnvPoints nodes.
type Envelope struct {
	Points    [MaxEnvPoints]EnvelopePoint
	NumPoints int
	Sustain   int
	LoopStart int
	LoopEnd   int
	Flags     uint8
}

// Enabled reports whether the envelope flag is set.
func (e *Envelope) Enabled() bool { return e.Flags&EnvelopeEnabled != 0 }

// normalize enforces the envelope invariants and reports whether anything
// had to be changed.
func (e *Envelope) normalize() bool {
	changed := false
	if e.NumPoints < 1 || e.NumPoints > MaxEnvPoints {
		e.NumPoints = 1
		changed = true
	}
	if e.Points[0].Pos != 0 {
		e.Points[0].Pos = 0
		changed = true
	}
	for i := range e.Points {
		if e.Points[i].Value > 64 {
			e.Points[i].Value = 64
			changed = true
		}
	}
	last := e.NumPoints - 1
	for _, idx := range []*int{&e.Sustain, &e.LoopStart, &e.LoopEnd} {
		if *idx < 0 || *idx > last {
			*idx = clampInt(*idx, 0, last)
			changed = true
		}
	}
	return changed
}

// Sample is one audio payload. Data always holds 16-bit values; 8-bit
// samples keep their value in the high byte. Stereo data stores every left
// frame followed by every right frame.
type Sample struct {
	Name         string
	Data         []int16
	Length       int
	LoopStart    int
	LoopEnd      int
	Bits         int
	Stereo       bool
	Loop         LoopType
	Volume       uint8
	FineTune     int8
	Panning      int8
	RelativeNote int8
}

// NewSample returns an empty 8-bit sample at full volume, centred.
func NewSample() *Sample {
	return &Sample{Bits: 8, Volume: 64, LoopEnd: 1}
}

// SetData replaces the payload in one assignment and repairs the loop
// points for the new length.
func (s *Sample) SetData(data []int16, frames int, stereo bool) {
	want := frames
	if stereo {
		want *= 2
	}
	if want > len(data) {
		want = len(data)
		frames = want
		if stereo {
			frames = want / 2
		}
	}
	s.Data, s.Length, s.Stereo = data[:want:want], frames, stereo
	s.fixLoop()
}

// fixLoop restores loopStart < loopEnd <= length, falling back to no loop.
func (s *Sample) fixLoop() bool {
	if s.Loop == LoopOff {
		changed := s.LoopStart != 0 || s.LoopEnd != 1
		s.LoopStart, s.LoopEnd = 0, 1
		return changed
	}
	if s.LoopEnd > s.Length {
		s.LoopEnd = s.Length
	}
	if s.LoopStart < 0 || s.LoopStart >= s.LoopEnd {
		s.Loop = LoopOff
		s.LoopStart, s.LoopEnd = 0, 1
		return true
	}
	return false
}

// Frame returns the mono value of frame i, averaging both halves of a
// stereo payload.
func (s *Sample) Frame(i int) int16 {
	if i < 0 || i >= s.Length {
		return 0
	}
	if !s.Stereo {
		return s.Data[i]
	}
	return int16((int(s.Data[i]) + int(s.Data[s.Length+i])) / 2)
}

func (s *Sample) isDefault() bool {
	return s == nil || (s.Length == 0 && s.Name == "")
}

// MIDISettings hold the MIDI passthrough of an instrument.
type MIDISettings struct {
	Enabled   bool
	Channel   uint8
	Program   uint8
	BendRange uint8
	Mute      bool
}

// Instrument groups samples with the envelopes and key map that pick them.
type Instrument struct {
	Name            string
	VolumeEnvelope  Envelope
	PanningEnvelope Envelope
	VibratoType     uint8
	VibratoSweep    uint8
	VibratoDepth    uint8
	VibratoRate     uint8
	Fadeout         uint16
	MIDI            MIDISettings
	Keymap          [NumKeys]uint8
	Samples         [MaxSamples]*Sample
}

// NewInstrument returns the canonical empty instrument: one point envelopes
// at full level and empty sample slots.
func NewInstrument() *Instrument {
	ins := &Instrument{}
	ins.VolumeEnvelope = Envelope{NumPoints: 1}
	ins.VolumeEnvelope.Points[0].Value = 64
	ins.PanningEnvelope = Envelope{NumPoints: 1}
	ins.PanningEnvelope.Points[0].Value = 32
	for i := range ins.Samples {
		ins.Samples[i] = NewSample()
	}
	return ins
}

// NumUsedSamples returns the count of sample slots up to the last one that
// carries data or a name.
func (ins *Instrument) NumUsedSamples() int {
	for i := MaxSamples - 1; i >= 0; i-- {
		if !ins.Samples[i].isDefault() {
			return i + 1
		}
	}
	return 0
}

func (ins *Instrument) isDefault() bool {
	if ins == nil {
		return true
	}
	def := NewInstrument()
	if ins.Name != "" || ins.NumUsedSamples() > 0 {
		return false
	}
	return ins.VolumeEnvelope == def.VolumeEnvelope &&
		ins.PanningEnvelope == def.PanningEnvelope &&
		ins.Keymap == def.Keymap &&
		ins.VibratoType == 0 && ins.VibratoSweep == 0 &&
		ins.VibratoDepth == 0 && ins.VibratoRate == 0 &&
		ins.Fadeout == 0 && ins.MIDI == def.MIDI
}

// Module is one song. Every pattern and instrument slot is always populated.
type Module struct {
	Name              string
	TrackerName       string
	NumChannels       int
	Tempo             int
	BPM               int
	SongLength        int
	RestartPosition   int
	LinearFrequencies bool
	Orders            [MaxOrders]uint8
	Patterns          [MaxPatterns]*Pattern
	Instruments       [MaxInstruments]*Instrument
}

// NewModule returns an empty song with default tempo and channel count.
func NewModule() *Module {
	m := &Module{
		NumChannels:       DefaultChannels,
		Tempo:             DefaultTempo,
		BPM:               DefaultBPM,
		SongLength:        1,
		LinearFrequencies: true,
	}
	m.fillDefaults()
	return m
}

// fillDefaults populates every nil slot with its canonical default.
func (m *Module) fillDefaults() {
	for i := range m.Patterns {
		if m.Patterns[i] == nil {
			m.Patterns[i] = NewPattern(DefaultRows, m.NumChannels)
		}
	}
	for i := range m.Instruments {
		if m.Instruments[i] == nil {
			m.Instruments[i] = NewInstrument()
		}
	}
}

// SetInstrument replaces slot idx (0-based) in one assignment.
func (m *Module) SetInstrument(idx int, ins *Instrument) {
	if idx < 0 || idx >= MaxInstruments || ins == nil {
		return
	}
	m.Instruments[idx] = ins
}

// Summary is a short description of a module used by inspection tools.
type Summary struct {
	Name        string `yaml:"name"`
	Tracker     string `yaml:"tracker"`
	Channels    int    `yaml:"channels"`
	Tempo       int    `yaml:"tempo"`
	BPM         int    `yaml:"bpm"`
	SongLength  int    `yaml:"song_length"`
	Restart     int    `yaml:"restart"`
	Patterns    int    `yaml:"patterns"`
	Instruments int    `yaml:"instruments"`
	Samples     int    `yaml:"samples"`
	Linear      bool   `yaml:"linear_frequencies"`
}

// Summary counts the used slots of m.
func (m *Module) Summary() Summary {
	s := Summary{
		Name:        m.Name,
		Tracker:     m.TrackerName,
		Channels:    m.NumChannels,
		Tempo:       m.Tempo,
		BPM:         m.BPM,
		SongLength:  m.SongLength,
		Restart:     m.RestartPosition,
		Patterns:    m.numPatternsToSave(),
		Instruments: m.numInstrumentsToSave(),
		Linear:      m.LinearFrequencies,
	}
	for i := 0; i < s.Instruments; i++ {
		s.Samples += m.Instruments[i].NumUsedSamples()
	}
	return s
}

// numPatternsToSave returns one past the highest pattern that is referenced
// by the order table or differs from the default.
func (m *Module) numPatternsToSave() int {
	n := 0
	for i := 0; i < m.SongLength && i < MaxOrders; i++ {
		if int(m.Orders[i])+1 > n {
			n = int(m.Orders[i]) + 1
		}
	}
	for i := MaxPatterns - 1; i >= n; i-- {
		if !m.Patterns[i].isDefault() {
			return i + 1
		}
	}
	return n
}

func (m *Module) numInstrumentsToSave() int {
	for i := MaxInstruments - 1; i >= 0; i-- {
		if !m.Instruments[i].isDefault() {
			return i + 1
		}
	}
	return 0
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
