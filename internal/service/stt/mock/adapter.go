// Package mock provides a mock STT adapter for running without a model or
// cloud credentials. It returns canned transcripts, cycling through a list,
// with segments spread evenly over the recording.
package mock

import (
	"context"
	"errors"
	"strings"
	"sync"

	"speech-feedback-service/internal/service/audio"
	"speech-feedback-service/internal/service/stt"
)

// DefaultTranscripts provides sample speech for simulation.
var DefaultTranscripts = []string{
	"Thanks for joining today. I want to walk you through our quarterly results.",
	"So um we grew revenue by twelve percent, and like, you know, churn went down.",
	"Can everyone hear me? Let's get started with the first slide.",
	"uh I think the main thing is that we need more time to finish the migration",
	"Our team shipped three features this sprint! Questions are welcome at the end.",
}

// ErrClosed is returned by Transcribe after Close.
var ErrClosed = errors.New("mock adapter closed")

// Adapter implements stt.Adapter with canned responses.
type Adapter struct {
	mu          sync.Mutex
	transcripts []string
	next        int
	err         error
	closed      bool
}

// New creates a mock adapter cycling through DefaultTranscripts.
func New() *Adapter {
	return NewWithTranscripts(DefaultTranscripts...)
}

// NewWithTranscripts creates a mock adapter cycling through the given texts.
func NewWithTranscripts(transcripts ...string) *Adapter {
	if len(transcripts) == 0 {
		transcripts = []string{""}
	}
	return &Adapter{transcripts: transcripts}
}

// NewFailing creates a mock adapter whose every transcription fails with err.
func NewFailing(err error) *Adapter {
	return &Adapter{transcripts: []string{""}, err: err}
}

// Name returns "mock".
func (a *Adapter) Name() string {
	return "mock"
}

// Transcribe returns the next canned transcript.
func (a *Adapter) Transcribe(ctx context.Context, w audio.Waveform) (stt.Result, error) {
	if err := ctx.Err(); err != nil {
		return stt.Result{}, err
	}

	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return stt.Result{}, ErrClosed
	}
	if a.err != nil {
		err := a.err
		a.mu.Unlock()
		return stt.Result{}, err
	}
	text := a.transcripts[a.next%len(a.transcripts)]
	a.next++
	a.mu.Unlock()

	return stt.Result{
		Text:     text,
		Segments: sentenceSegments(text, w.Duration()),
	}, nil
}

// Close marks the adapter closed. Later transcriptions fail. Idempotent.
func (a *Adapter) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.closed = true
	return nil
}

// sentenceSegments splits text after each terminator and spreads the pieces
// over the duration in proportion to their word counts.
func sentenceSegments(text string, duration float64) []stt.Segment {
	var sentences []string
	start := 0
	for i, r := range text {
		if r == '.' || r == '!' || r == '?' {
			sentences = append(sentences, text[start:i+1])
			start = i + 1
		}
	}
	sentences = append(sentences, text[start:])

	total := len(strings.Fields(text))
	segments := []stt.Segment{}
	if total == 0 {
		return segments
	}
	var offset float64
	for _, s := range sentences {
		s = strings.TrimSpace(s)
		words := len(strings.Fields(s))
		if words == 0 {
			continue
		}
		span := duration * float64(words) / float64(total)
		segments = append(segments, stt.Segment{Start: offset, End: offset + span, Text: s})
		offset += span
	}
	return segments
}
