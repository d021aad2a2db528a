package audio

import (
	"fmt"
	"os"
	"sync"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// WAVOutput renders audio to a 16-bit PCM WAV file instead of a device.
type WAVOutput struct {
	filename string
	file     *os.File
	enc      *wav.Encoder
	format   *goaudio.Format
	mu       sync.Mutex
}

func NewWAVOutput(filename string) *WAVOutput {
	return &WAVOutput{filename: filename}
}

func (w *WAVOutput) Open(sampleRate, channels, bufferSize int) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.file != nil {
		return fmt.Errorf("%s already open", w.filename)
	}
	f, err := os.Create(w.filename)
	if err != nil {
		return err
	}
	w.file = f
	w.enc = wav.NewEncoder(f, sampleRate, 16, channels, 1)
	w.format = &goaudio.Format{NumChannels: channels, SampleRate: sampleRate}
	return nil
}

// Close patches the header sizes and closes the file.
func (w *WAVOutput) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.file == nil {
		return nil
	}
	err := w.enc.Close()
	if cerr := w.file.Close(); err == nil {
		err = cerr
	}
	w.file, w.enc = nil, nil
	return err
}

func (w *WAVOutput) Write(samples []int16) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.enc == nil {
		return fmt.Errorf("file not open")
	}
	buf := &goaudio.IntBuffer{
		Format:         w.format,
		Data:           make([]int, len(samples)),
		SourceBitDepth: 16,
	}
	for i, s := range samples {
		buf.Data[i] = int(s)
	}
	return w.enc.Write(buf)
}

func (w *WAVOutput) IsPlaying() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.file != nil
}
