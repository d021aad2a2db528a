package audio

import (
	"math"
	"time"

	"github.com/olivierh59500/xmkit/pkg/xm"
)

// PreviewNote is the note a sample is auditioned at when none is given.
const PreviewNote = 49

// SampleSource plays one sample at a fixed note with nearest neighbour
// stepping. It works on its own copy of the sample data, so the sample may
// be edited while it plays.
type SampleSource struct {
	frames    []int16
	loop      xm.LoopType
	loopStart float64
	loopEnd   float64
	pos       float64
	step      float64
	backwards bool
	remaining int
}

// NewSampleSource prepares s for playback of note at outRate. Looping
// samples stop after maxDuration.
func NewSampleSource(s *xm.Sample, note int, outRate int, maxDuration time.Duration) *SampleSource {
	frames := make([]int16, s.Length)
	for i := range frames {
		frames[i] = s.Frame(i)
	}
	rate := float64(xm.SampleRate(s)) * math.Pow(2, float64(note-PreviewNote)/12)
	src := &SampleSource{
		frames:    frames,
		loop:      s.Loop,
		loopStart: float64(s.LoopStart),
		loopEnd:   float64(s.LoopEnd),
		step:      rate / float64(outRate),
		remaining: int(maxDuration.Seconds() * float64(outRate)),
	}
	if src.loop != xm.LoopOff && (src.loopEnd <= src.loopStart || src.loopEnd > float64(len(frames))) {
		src.loop = xm.LoopOff
	}
	return src
}

// Compute fills buf and returns false once playback is over. The unused
// tail of buf is silence.
func (s *SampleSource) Compute(buf []int16) bool {
	for i := range buf {
		if !s.advance() {
			clear(buf[i:])
			return false
		}
		buf[i] = s.frames[int(s.pos)]
		s.next()
	}
	return true
}

// advance reports whether the current position still holds audio.
func (s *SampleSource) advance() bool {
	if s.remaining <= 0 || len(s.frames) == 0 {
		return false
	}
	s.remaining--
	return s.pos >= 0 && int(s.pos) < len(s.frames)
}

func (s *SampleSource) next() {
	if s.backwards {
		s.pos -= s.step
		if s.pos < s.loopStart {
			s.pos = 2*s.loopStart - s.pos
			s.backwards = false
		}
		return
	}
	s.pos += s.step
	switch s.loop {
	case xm.LoopForward:
		for s.pos >= s.loopEnd {
			s.pos -= s.loopEnd - s.loopStart
		}
	case xm.LoopPingPong:
		if s.pos >= s.loopEnd {
			s.pos = 2*s.loopEnd - s.pos - 1
			s.backwards = true
			if s.pos < s.loopStart {
				s.pos = s.loopStart
			}
		}
	}
}
