package audio

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"
)

var (
	// oto allows a single context per process; it is created on first use
	// and kept for later previews.
	contextMu     sync.Mutex
	sharedContext *oto.Context
	contextRate   int
)

// OtoOutput streams signed 16-bit audio to the system device.
type OtoOutput struct {
	player     *oto.Player
	writer     *io.PipeWriter
	reader     *io.PipeReader
	sampleRate int
	channels   int
	mu         sync.Mutex
	closed     bool
}

// NewOtoOutput creates an output; the device is opened by Open.
func NewOtoOutput() *OtoOutput {
	return &OtoOutput{}
}

func otoContext(sampleRate, channels, bufferSize int) (*oto.Context, error) {
	contextMu.Lock()
	defer contextMu.Unlock()

	if sharedContext != nil {
		if contextRate != sampleRate {
			return nil, fmt.Errorf("audio device already open at %d Hz", contextRate)
		}
		return sharedContext, nil
	}
	op := &oto.NewContextOptions{
		SampleRate:   sampleRate,
		ChannelCount: channels,
		Format:       oto.FormatSignedInt16LE,
		BufferSize:   time.Duration(bufferSize) * time.Second / time.Duration(sampleRate),
	}
	ctx, ready, err := oto.NewContext(op)
	if err != nil {
		return nil, fmt.Errorf("failed to create oto context: %w", err)
	}
	<-ready
	sharedContext, contextRate = ctx, sampleRate
	return ctx, nil
}

// Open opens the device stream.
func (o *OtoOutput) Open(sampleRate, channels, bufferSize int) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.player != nil {
		return fmt.Errorf("stream already open")
	}
	ctx, err := otoContext(sampleRate, channels, bufferSize)
	if err != nil {
		return err
	}

	o.sampleRate = sampleRate
	o.channels = channels
	o.reader, o.writer = io.Pipe()
	o.player = ctx.NewPlayer(o.reader)
	o.closed = false
	o.player.Play()
	return nil
}

// Close drains what the device still holds and releases the stream.
func (o *OtoOutput) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.closed || o.player == nil {
		return nil
	}
	o.closed = true
	o.writer.Close()

	for o.player.IsPlaying() {
		time.Sleep(10 * time.Millisecond)
	}
	err := o.player.Close()
	o.reader.Close()
	o.player, o.writer, o.reader = nil, nil, nil
	return err
}

// Write queues samples for playback, blocking while the device is busy.
func (o *OtoOutput) Write(samples []int16) error {
	o.mu.Lock()
	if o.closed || o.writer == nil {
		o.mu.Unlock()
		return fmt.Errorf("stream not open")
	}
	writer := o.writer
	o.mu.Unlock()

	buf := make([]byte, len(samples)*2)
	for i, s := range samples {
		buf[i*2] = byte(s)
		buf[i*2+1] = byte(s >> 8)
	}
	_, err := writer.Write(buf)
	return err
}

// IsPlaying returns true while the stream is open.
func (o *OtoOutput) IsPlaying() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return !o.closed && o.player != nil
}

// NullOutput discards audio at real-time pace, for machines without a
// sound device.
type NullOutput struct {
	sampleRate int
	mu         sync.Mutex
	closed     bool
}

func (n *NullOutput) Open(sampleRate, channels, bufferSize int) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sampleRate = sampleRate
	n.closed = false
	return nil
}

func (n *NullOutput) Close() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.closed = true
	return nil
}

func (n *NullOutput) Write(samples []int16) error {
	n.mu.Lock()
	if n.closed || n.sampleRate == 0 {
		n.mu.Unlock()
		return fmt.Errorf("output closed")
	}
	rate := n.sampleRate
	n.mu.Unlock()

	time.Sleep(time.Duration(len(samples)) * time.Second / time.Duration(rate))
	return nil
}

func (n *NullOutput) IsPlaying() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return !n.closed
}
