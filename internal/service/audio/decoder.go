// Package audio decodes uploaded recordings into a mono waveform normalized
// to the [-1, 1] range by its peak amplitude.
package audio

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/go-audio/wav"
	"github.com/hajimehoshi/go-mp3"
	"gonum.org/v1/gonum/floats"
)

// DefaultSampleRate is the rate assumed for raw PCM uploads.
const DefaultSampleRate = 16000

// Decode errors. All of them wrap ErrDecode.
var (
	ErrDecode         = errors.New("audio decode failed")
	ErrEmptyAudio     = fmt.Errorf("%w: empty audio", ErrDecode)
	ErrSilentAudio    = fmt.Errorf("%w: silent audio (peak amplitude is zero)", ErrDecode)
	ErrMalformedAudio = fmt.Errorf("%w: malformed audio", ErrDecode)
)

// Format identifies the container of an upload.
type Format string

const (
	FormatAuto Format = "auto"
	FormatWAV  Format = "wav"
	FormatMP3  Format = "mp3"
	FormatPCM  Format = "pcm"
)

// Waveform is a normalized mono signal.
type Waveform struct {
	Samples    []float64
	SampleRate int
}

// Duration returns the length of the waveform in seconds.
func (w Waveform) Duration() float64 {
	if w.SampleRate <= 0 {
		return 0
	}
	return float64(len(w.Samples)) / float64(w.SampleRate)
}

// Config holds decoder configuration.
type Config struct {
	SampleRate int // rate of raw PCM uploads, which carry no header
}

// DefaultConfig returns the decoder defaults.
func DefaultConfig() Config {
	return Config{SampleRate: DefaultSampleRate}
}

// Decoder converts upload bytes to a Waveform. It holds no mutable state and
// is safe for concurrent use.
type Decoder struct {
	sampleRate int
}

// NewDecoder creates a decoder.
func NewDecoder(cfg Config) *Decoder {
	rate := cfg.SampleRate
	if rate <= 0 {
		rate = DefaultSampleRate
	}
	return &Decoder{sampleRate: rate}
}

// Decode sniffs the container and decodes the upload.
func (d *Decoder) Decode(data []byte) (Waveform, error) {
	return d.DecodeAs(data, FormatAuto)
}

// DecodeAs decodes the upload as the given format.
func (d *Decoder) DecodeAs(data []byte, format Format) (Waveform, error) {
	if len(data) == 0 {
		return Waveform{}, ErrEmptyAudio
	}
	if format == FormatAuto || format == "" {
		format = DetectFormat(data)
	}

	var (
		samples []float64
		rate    int
		err     error
	)
	switch format {
	case FormatWAV:
		samples, rate, err = decodeWAV(data)
	case FormatMP3:
		samples, rate, err = decodeMP3(data)
	case FormatPCM:
		samples, err = decodePCM16(data, 1)
		rate = d.sampleRate
	default:
		return Waveform{}, fmt.Errorf("%w: unsupported format %q", ErrMalformedAudio, format)
	}
	if err != nil {
		return Waveform{}, err
	}
	if len(samples) == 0 {
		return Waveform{}, ErrEmptyAudio
	}
	if err := normalize(samples); err != nil {
		return Waveform{}, err
	}
	return Waveform{Samples: samples, SampleRate: rate}, nil
}

// DetectFormat recognizes RIFF/WAVE headers, ID3 tagged MP3 and bare MPEG
// Layer III frame streams. Anything else is treated as raw 16-bit PCM.
func DetectFormat(data []byte) Format {
	switch {
	case len(data) >= 12 && string(data[0:4]) == "RIFF" && string(data[8:12]) == "WAVE":
		return FormatWAV
	case len(data) >= 3 && string(data[0:3]) == "ID3":
		return FormatMP3
	case isMPEGStream(data):
		return FormatMP3
	default:
		return FormatPCM
	}
}

// Layer III bitrates in kbit/s by bitrate index. Index 0 (free format) and
// 15 are not accepted.
var (
	mpeg1Bitrates = [15]int{0, 32, 40, 48, 56, 64, 80, 96, 112, 128, 160, 192, 224, 256, 320}
	mpeg2Bitrates = [15]int{0, 8, 16, 24, 32, 40, 48, 56, 64, 80, 96, 112, 128, 144, 160}
)

// Sample rates by version bits (00 MPEG-2.5, 10 MPEG-2, 11 MPEG-1) and
// sample rate index.
var mpegSampleRates = [4][3]int{
	{11025, 12000, 8000},
	{},
	{22050, 24000, 16000},
	{44100, 48000, 32000},
}

// isMPEGStream reports whether data starts with a Layer III frame header.
// When the following frame lies within data its header must be valid too,
// which keeps raw PCM that happens to begin with 0xFFEx from matching.
func isMPEGStream(data []byte) bool {
	n, ok := mpegFrameLen(data)
	if !ok {
		return false
	}
	if len(data) >= n+4 {
		_, ok = mpegFrameLen(data[n:])
	}
	return ok
}

// mpegFrameLen parses a Layer III frame header and returns the frame length
// in bytes.
func mpegFrameLen(h []byte) (int, bool) {
	if len(h) < 4 || h[0] != 0xFF || h[1]&0xE0 != 0xE0 {
		return 0, false
	}
	version := (h[1] >> 3) & 0x03
	layer := (h[1] >> 1) & 0x03
	bitrateIdx := h[2] >> 4
	rateIdx := (h[2] >> 2) & 0x03
	padding := int((h[2] >> 1) & 0x01)
	if version == 1 || layer != 1 || bitrateIdx == 0 || bitrateIdx == 15 || rateIdx == 3 {
		return 0, false
	}

	rate := mpegSampleRates[version][rateIdx]
	if version == 3 {
		return 144000*mpeg1Bitrates[bitrateIdx]/rate + padding, true
	}
	return 72000*mpeg2Bitrates[bitrateIdx]/rate + padding, true
}

func decodeWAV(data []byte) ([]float64, int, error) {
	dec := wav.NewDecoder(bytes.NewReader(data))
	if !dec.IsValidFile() {
		return nil, 0, fmt.Errorf("%w: invalid WAV header", ErrMalformedAudio)
	}
	if dec.WavAudioFormat != 1 {
		return nil, 0, fmt.Errorf("%w: WAV format %d is not integer PCM", ErrMalformedAudio, dec.WavAudioFormat)
	}
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %v", ErrMalformedAudio, err)
	}
	if buf == nil || buf.Format == nil || buf.Format.NumChannels <= 0 || buf.Format.SampleRate <= 0 {
		return nil, 0, fmt.Errorf("%w: missing WAV format", ErrMalformedAudio)
	}

	channels := buf.Format.NumChannels
	var offset float64
	if buf.SourceBitDepth == 8 {
		// 8-bit WAV is unsigned
		offset = 128
	}
	frames := len(buf.Data) / channels
	samples := make([]float64, frames)
	for i := 0; i < frames; i++ {
		var sum float64
		for c := 0; c < channels; c++ {
			sum += float64(buf.Data[i*channels+c]) - offset
		}
		samples[i] = sum / float64(channels)
	}
	return samples, buf.Format.SampleRate, nil
}

func decodeMP3(data []byte) ([]float64, int, error) {
	dec, err := mp3.NewDecoder(bytes.NewReader(data))
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %v", ErrMalformedAudio, err)
	}
	pcm, err := io.ReadAll(dec)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %v", ErrMalformedAudio, err)
	}
	// go-mp3 always yields 16-bit little-endian stereo
	samples, err := decodePCM16(pcm[:len(pcm)-len(pcm)%4], 2)
	if err != nil {
		return nil, 0, err
	}
	return samples, dec.SampleRate(), nil
}

// decodePCM16 reads interleaved signed 16-bit little-endian frames and
// averages the channels.
func decodePCM16(data []byte, channels int) ([]float64, error) {
	frameSize := 2 * channels
	if len(data)%frameSize != 0 {
		return nil, fmt.Errorf("%w: %d bytes is not a whole number of %d-byte frames",
			ErrMalformedAudio, len(data), frameSize)
	}
	frames := len(data) / frameSize
	samples := make([]float64, frames)
	for i := 0; i < frames; i++ {
		var sum float64
		for c := 0; c < channels; c++ {
			off := i*frameSize + c*2
			sum += float64(int16(binary.LittleEndian.Uint16(data[off : off+2])))
		}
		samples[i] = sum / float64(channels)
	}
	return samples, nil
}

// normalize scales samples in place so the peak magnitude is 1.
func normalize(samples []float64) error {
	peak := floats.Norm(samples, math.Inf(1))
	if peak == 0 {
		return ErrSilentAudio
	}
	for i := range samples {
		samples[i] /= peak
	}
	return nil
}
