package audio

import (
	"errors"
	"sync"
	"time"
)

// Output interface for audio output implementations
type Output interface {
	Open(sampleRate, channels, bufferSize int) error
	Close() error
	Write(samples []int16) error
	IsPlaying() bool
}

// Source renders mono audio. Compute fills buf and returns false once the
// source has nothing left to play.
type Source interface {
	Compute(buf []int16) bool
}

// Player pulls buffers from a Source and pushes them to an Output on its
// own goroutine.
type Player struct {
	source     Source
	output     Output
	sampleRate int
	bufferSize int
	playing    bool
	paused     bool
	mu         sync.Mutex
	done       chan struct{}
}

// NewPlayer creates a new audio player
func NewPlayer(source Source, output Output) *Player {
	return &Player{
		source: source,
		output: output,
	}
}

// Start starts audio playback
func (p *Player) Start(sampleRate, bufferSize int) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.playing {
		return errors.New("already playing")
	}

	p.sampleRate = sampleRate
	p.bufferSize = bufferSize

	if err := p.output.Open(sampleRate, 1, bufferSize); err != nil {
		return err
	}

	p.playing = true
	p.done = make(chan struct{})
	go p.audioLoop()

	return nil
}

// Stop ends playback and closes the output.
func (p *Player) Stop() error {
	p.mu.Lock()
	done := p.done
	p.playing = false
	p.mu.Unlock()

	if done == nil {
		return nil
	}
	<-done
	return p.output.Close()
}

// Wait blocks until the source runs dry, then closes the output.
func (p *Player) Wait() error {
	p.mu.Lock()
	done := p.done
	p.mu.Unlock()

	if done == nil {
		return nil
	}
	<-done
	return p.output.Close()
}

// Done is closed when the playback goroutine exits.
func (p *Player) Done() <-chan struct{} {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.done
}

// Pause pauses playback
func (p *Player) Pause() {
	p.mu.Lock()
	p.paused = true
	p.mu.Unlock()
}

// Resume resumes playback
func (p *Player) Resume() {
	p.mu.Lock()
	p.paused = false
	p.mu.Unlock()
}

// IsPaused returns true if paused
func (p *Player) IsPaused() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.paused
}

func (p *Player) audioLoop() {
	defer close(p.done)

	buffer := make([]int16, p.bufferSize)
	for {
		p.mu.Lock()
		if !p.playing {
			p.mu.Unlock()
			return
		}
		paused := p.paused
		p.mu.Unlock()

		if paused {
			clear(buffer)
		} else if !p.source.Compute(buffer) {
			p.mu.Lock()
			p.playing = false
			p.mu.Unlock()
			p.output.Write(buffer)
			return
		}

		if err := p.output.Write(buffer); err != nil {
			time.Sleep(10 * time.Millisecond)
		}
	}
}

// BufferOutput is a simple buffer-based output for testing
type BufferOutput struct {
	buffer     []int16
	sampleRate int
	channels   int
	mu         sync.Mutex
}

// NewBufferOutput creates a new buffer output
func NewBufferOutput() *BufferOutput {
	return &BufferOutput{}
}

// Open opens the buffer output
func (b *BufferOutput) Open(sampleRate, channels, bufferSize int) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.sampleRate = sampleRate
	b.channels = channels
	b.buffer = make([]int16, 0, bufferSize*channels)
	return nil
}

// Close keeps the captured audio so tests can inspect it afterwards.
func (b *BufferOutput) Close() error {
	return nil
}

// Write writes samples to the buffer
func (b *BufferOutput) Write(samples []int16) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.buffer == nil {
		return errors.New("buffer not initialized")
	}

	b.buffer = append(b.buffer, samples...)
	return nil
}

// IsPlaying always returns true for buffer output
func (b *BufferOutput) IsPlaying() bool {
	return true
}

// GetBuffer returns the accumulated audio buffer
func (b *BufferOutput) GetBuffer() []int16 {
	b.mu.Lock()
	defer b.mu.Unlock()

	result := make([]int16, len(b.buffer))
	copy(result, b.buffer)
	return result
}
