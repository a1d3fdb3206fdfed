// Package stt defines the interface for Speech-to-Text adapters.
package stt

import (
	"context"

	"speech-feedback-service/internal/service/audio"
)

// Segment is a timed span of recognized speech.
type Segment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

// Result is a complete transcription of one recording.
type Result struct {
	Text     string    `json:"text"`
	Segments []Segment `json:"segments"`
}

// Adapter defines the interface for STT providers (Google, Whisper, etc.).
// An adapter is created once at startup and shared across requests, so
// implementations must be safe for concurrent use; wrap instances that are
// not in a Pool.
type Adapter interface {
	// Name identifies the provider in logs and metrics.
	Name() string

	// Transcribe recognizes the speech in a normalized waveform.
	Transcribe(ctx context.Context, w audio.Waveform) (Result, error)

	// Close releases provider resources.
	Close() error
}
