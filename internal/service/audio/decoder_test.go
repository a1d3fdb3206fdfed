package audio

import (
	"bytes"
	"encoding/binary"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/braheezy/shine-mp3/pkg/mp3"
	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

func pcmBytes(samples ...int16) []byte {
	out := make([]byte, 2*len(samples))
	for i, s := range samples {
		binary.LittleEndian.PutUint16(out[2*i:], uint16(s))
	}
	return out
}

// mp3Bytes encodes blocks of 1152 stereo frames holding a 440Hz tone on the
// left channel and silence on the right.
func mp3Bytes(t *testing.T, rate, blocks int) []byte {
	t.Helper()
	frames := 1152 * blocks
	pcm := make([]int16, 2*frames)
	for i := 0; i < frames; i++ {
		pcm[2*i] = int16(12000 * math.Sin(2*math.Pi*440*float64(i)/float64(rate)))
	}
	var out bytes.Buffer
	enc := mp3.NewEncoder(rate, 2)
	enc.Write(&out, pcm)
	if out.Len() == 0 {
		t.Fatal("encoder produced no output")
	}
	return out.Bytes()
}

func wavBytes(t *testing.T, rate, channels int, data []int) []byte {
	t.Helper()
	path := filepath.Join(t.TempDir(), "clip.wav")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	enc := wav.NewEncoder(f, rate, 16, channels, 1)
	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: channels, SampleRate: rate},
		Data:           data,
		SourceBitDepth: 16,
	}
	if err := enc.Write(buf); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := enc.Close(); err != nil {
		t.Fatalf("close encoder: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("close file: %v", err)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	return b
}

func TestDecode_RawPCM(t *testing.T) {
	d := NewDecoder(DefaultConfig())

	w, err := d.Decode(pcmBytes(0, 1000, -2000, 500))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	expected := []float64{0, 0.5, -1, 0.25}
	if len(w.Samples) != len(expected) {
		t.Fatalf("expected %d samples, got %d", len(expected), len(w.Samples))
	}
	for i := range expected {
		if w.Samples[i] != expected[i] {
			t.Errorf("sample %d: expected %v, got %v", i, expected[i], w.Samples[i])
		}
	}
	if w.SampleRate != 16000 {
		t.Errorf("expected sample rate 16000, got %d", w.SampleRate)
	}
	if w.Duration() != 4.0/16000 {
		t.Errorf("expected duration %v, got %v", 4.0/16000, w.Duration())
	}
}

func TestDecode_RawPCM_CustomRate(t *testing.T) {
	d := NewDecoder(Config{SampleRate: 8000})

	w, err := d.Decode(pcmBytes(make([]int16, 7999)...))
	if !errors.Is(err, ErrSilentAudio) {
		t.Fatalf("expected ErrSilentAudio, got %v (%v)", err, w)
	}

	samples := make([]int16, 8000)
	samples[10] = 300
	w, err = d.Decode(pcmBytes(samples...))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if w.Duration() != 1.0 {
		t.Errorf("expected 1s, got %v", w.Duration())
	}
}

func TestDecode_Errors(t *testing.T) {
	d := NewDecoder(DefaultConfig())

	tests := []struct {
		name     string
		data     []byte
		expected error
	}{
		{"empty", nil, ErrEmptyAudio},
		{"silent", pcmBytes(0, 0, 0, 0), ErrSilentAudio},
		{"odd byte count", []byte{0x01, 0x02, 0x03}, ErrMalformedAudio},
		{"truncated wav", []byte("RIFF\x00\x00\x00\x00WAVE"), ErrMalformedAudio},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := d.Decode(tt.data)
			if !errors.Is(err, tt.expected) {
				t.Errorf("expected %v, got %v", tt.expected, err)
			}
			if !errors.Is(err, ErrDecode) {
				t.Errorf("expected error to wrap ErrDecode, got %v", err)
			}
		})
	}
}

func TestDecode_WAVMono(t *testing.T) {
	d := NewDecoder(Config{SampleRate: 8000})
	data := wavBytes(t, 22050, 1, []int{0, 16000, -8000, 4000})

	w, err := d.Decode(data)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if w.SampleRate != 22050 {
		t.Errorf("expected header sample rate 22050, got %d", w.SampleRate)
	}
	expected := []float64{0, 1, -0.5, 0.25}
	if len(w.Samples) != len(expected) {
		t.Fatalf("expected %d samples, got %d", len(expected), len(w.Samples))
	}
	for i := range expected {
		if w.Samples[i] != expected[i] {
			t.Errorf("sample %d: expected %v, got %v", i, expected[i], w.Samples[i])
		}
	}
}

func TestDecode_WAVStereoDownmix(t *testing.T) {
	d := NewDecoder(DefaultConfig())
	// frames: (100, 300), (-400, 0)
	data := wavBytes(t, 16000, 2, []int{100, 300, -400, 0})

	w, err := d.Decode(data)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	expected := []float64{1, -1}
	if len(w.Samples) != 2 {
		t.Fatalf("expected 2 mono samples, got %d", len(w.Samples))
	}
	for i := range expected {
		if w.Samples[i] != expected[i] {
			t.Errorf("sample %d: expected %v, got %v", i, expected[i], w.Samples[i])
		}
	}
}

func TestDetectFormat(t *testing.T) {
	tests := []struct {
		name     string
		data     []byte
		expected Format
	}{
		{"wav", []byte("RIFF\x24\x00\x00\x00WAVEfmt "), FormatWAV},
		{"id3 mp3", []byte("ID3\x04\x00"), FormatMP3},
		{"bare mpeg frame", []byte{0xFF, 0xFB, 0x90, 0x64, 0x00, 0x00}, FormatMP3},
		{"mpeg2 frame", []byte{0xFF, 0xF3, 0x90, 0x64}, FormatMP3},
		{"layer ii frame", []byte{0xFF, 0xFD, 0x90, 0x64}, FormatPCM},
		{"reserved version", []byte{0xFF, 0xEB, 0x90, 0x64}, FormatPCM},
		{"bad bitrate", []byte{0xFF, 0xFB, 0xF0, 0x64}, FormatPCM},
		{"frame without successor", append([]byte{0xFF, 0xFB, 0x90, 0x64}, make([]byte, 420)...), FormatPCM},
		{"pcm of -1", pcmBytes(-1, -1, -1), FormatPCM},
		{"raw", pcmBytes(1, 2, 3), FormatPCM},
		{"short", []byte{0x01}, FormatPCM},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DetectFormat(tt.data); got != tt.expected {
				t.Errorf("DetectFormat = %s, want %s", got, tt.expected)
			}
		})
	}
}

func TestDetectFormat_EncodedMP3(t *testing.T) {
	if got := DetectFormat(mp3Bytes(t, 44100, 4)); got != FormatMP3 {
		t.Errorf("DetectFormat = %s, want %s", got, FormatMP3)
	}
}

func TestDecode_MP3StereoDownmix(t *testing.T) {
	d := NewDecoder(DefaultConfig())
	blocks := 8

	w, err := d.Decode(mp3Bytes(t, 44100, blocks))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if w.SampleRate != 44100 {
		t.Errorf("expected sample rate 44100, got %d", w.SampleRate)
	}
	if len(w.Samples) < 1152 || len(w.Samples) > 1152*(blocks+2) {
		t.Errorf("unexpected frame count %d", len(w.Samples))
	}
	var peak float64
	for _, s := range w.Samples {
		peak = math.Max(peak, math.Abs(s))
	}
	if peak != 1 {
		t.Errorf("expected normalized peak 1, got %v", peak)
	}
}

func TestDecode_TruncatedMP3(t *testing.T) {
	d := NewDecoder(DefaultConfig())

	_, err := d.Decode([]byte{0xFF, 0xFB, 0x90, 0x64, 0x01, 0x02})
	if !errors.Is(err, ErrDecode) {
		t.Errorf("expected a decode error, got %v", err)
	}
}

func TestDecodeAs_UnsupportedFormat(t *testing.T) {
	d := NewDecoder(DefaultConfig())
	_, err := d.DecodeAs(pcmBytes(1, 2), Format("flac"))
	if !errors.Is(err, ErrMalformedAudio) {
		t.Errorf("expected ErrMalformedAudio, got %v", err)
	}
}

func TestWaveform_PCM16(t *testing.T) {
	w := Waveform{Samples: []float64{0, 1, -1, 0.5}, SampleRate: 16000}
	got := w.PCM16()
	expected := pcmBytes(0, 32767, -32767, 16384)
	if string(got) != string(expected) {
		t.Errorf("expected %v, got %v", expected, got)
	}
}

func TestWaveform_WriteWAV_RoundTrip(t *testing.T) {
	w := Waveform{Samples: []float64{0, 0.5, -1, 0.25}, SampleRate: 16000}
	path := filepath.Join(t.TempDir(), "out.wav")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := w.WriteWAV(f); err != nil {
		t.Fatalf("write: %v", err)
	}
	f.Close()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if DetectFormat(data) != FormatWAV {
		t.Fatalf("expected WAV output")
	}
	got, err := NewDecoder(DefaultConfig()).Decode(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.SampleRate != 16000 || len(got.Samples) != 4 {
		t.Errorf("unexpected waveform: rate=%d samples=%d", got.SampleRate, len(got.Samples))
	}
}
