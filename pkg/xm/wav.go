package xm

import (
	"io"
	"math"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// BaseSampleRate is the playback rate of a sample at C-4 with no relative
// note or fine tune.
const BaseSampleRate = 8363

// SampleRate returns the C-4 playback rate implied by the tuning of s.
func SampleRate(s *Sample) int {
	semis := float64(s.RelativeNote) + float64(s.FineTune)/128
	return int(math.Round(BaseSampleRate * math.Pow(2, semis/12)))
}

// tuneForRate sets relative note and fine tune so that the sample plays at
// rate at C-4. The payload is left untouched.
func tuneForRate(s *Sample, rate int) {
	if rate <= 0 {
		return
	}
	semis := 12 * math.Log2(float64(rate)/BaseSampleRate)
	rel := math.Floor(semis)
	fine := math.Round((semis - rel) * 128)
	if fine >= 128 {
		rel++
		fine -= 128
	}
	s.RelativeNote = int8(clampInt(int(rel), -96, 95))
	s.FineTune = int8(clampInt(int(fine), -128, 127))
}

// ExportWAV writes s as a 16-bit PCM WAV file at its tuned C-4 rate.
func ExportWAV(w io.WriteSeeker, s *Sample) error {
	channels := 1
	if s.Stereo {
		channels = 2
	}
	rate := SampleRate(s)
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: channels, SampleRate: rate},
		Data:           make([]int, s.Length*channels),
		SourceBitDepth: 16,
	}
	for i := 0; i < s.Length; i++ {
		if s.Stereo {
			buf.Data[i*2] = int(s.Data[i])
			buf.Data[i*2+1] = int(s.Data[s.Length+i])
			continue
		}
		buf.Data[i] = int(s.Data[i])
	}
	enc := wav.NewEncoder(w, rate, 16, channels, 1)
	if err := enc.Write(buf); err != nil {
		return wrapKind(err, KindIO, "write wav data")
	}
	return wrapKind(enc.Close(), KindIO, "finish wav")
}

// ImportWAV decodes a PCM WAV file into a new sample. Only the first two
// channels are kept. The file's rate becomes the sample tuning; the audio
// itself is not resampled.
func ImportWAV(rs io.ReadSeeker) (*Sample, error) {
	dec := wav.NewDecoder(rs)
	if !dec.IsValidFile() {
		return nil, newKind(KindNotModule, "not a wav file")
	}
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, wrapKind(err, KindCorrupt, "decode wav")
	}
	channels := int(dec.NumChans)
	if channels < 1 {
		return nil, newKind(KindCorrupt, "wav channel count %d", channels)
	}
	bits := int(dec.BitDepth)
	frames := len(buf.Data) / channels
	stereo := channels >= 2

	data := make([]int16, frames)
	if stereo {
		data = make([]int16, frames*2)
	}
	for i := 0; i < frames; i++ {
		data[i] = pcmTo16(buf.Data[i*channels], bits)
		if stereo {
			data[frames+i] = pcmTo16(buf.Data[i*channels+1], bits)
		}
	}

	s := NewSample()
	if bits > 8 {
		s.Bits = 16
	}
	s.SetData(data, frames, stereo)
	tuneForRate(s, int(dec.SampleRate))
	return s, nil
}

// pcmTo16 scales one decoded PCM value to 16 bits. 8-bit WAV data is
// unsigned.
func pcmTo16(v, bits int) int16 {
	switch {
	case bits <= 8:
		return int16((v - 128) << 8)
	case bits <= 16:
		return int16(v)
	default:
		return int16(v >> (bits - 16))
	}
}
