package audio

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

const pcm16Max = math.MaxInt16

// PCM16 renders the waveform as mono signed 16-bit little-endian samples,
// the LINEAR16 layout cloud recognizers expect.
func (w Waveform) PCM16() []byte {
	out := make([]byte, 2*len(w.Samples))
	for i, s := range w.Samples {
		binary.LittleEndian.PutUint16(out[2*i:], uint16(toInt16(s)))
	}
	return out
}

// WriteWAV encodes the waveform as a 16-bit mono PCM WAV file.
func (w Waveform) WriteWAV(out io.WriteSeeker) error {
	if w.SampleRate <= 0 {
		return fmt.Errorf("write wav: invalid sample rate %d", w.SampleRate)
	}
	enc := wav.NewEncoder(out, w.SampleRate, 16, 1, 1)

	data := make([]int, len(w.Samples))
	for i, s := range w.Samples {
		data[i] = int(toInt16(s))
	}
	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: 1, SampleRate: w.SampleRate},
		Data:           data,
		SourceBitDepth: 16,
	}
	if err := enc.Write(buf); err != nil {
		return fmt.Errorf("write wav: %w", err)
	}
	return enc.Close()
}

func toInt16(s float64) int16 {
	v := math.Round(s * pcm16Max)
	if v > pcm16Max {
		v = pcm16Max
	}
	if v < -pcm16Max {
		v = -pcm16Max
	}
	return int16(v)
}
