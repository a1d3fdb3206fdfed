// Package google provides a Google Cloud Speech-to-Text adapter.
package google

import (
	"context"
	"fmt"
	"strings"

	speech "cloud.google.com/go/speech/apiv1"
	"cloud.google.com/go/speech/apiv1/speechpb"
	"google.golang.org/protobuf/types/known/durationpb"

	"speech-feedback-service/internal/service/audio"
	"speech-feedback-service/internal/service/stt"
)

// Config holds Google STT configuration.
type Config struct {
	LanguageCode string
	Model        string // empty selects the API default
	Punctuation  bool   // automatic punctuation; the grammar score depends on it
}

// DefaultConfig returns sensible defaults for Google STT.
func DefaultConfig() Config {
	return Config{
		LanguageCode: "en-US",
		Punctuation:  true,
	}
}

// recognizer is the subset of the speech client the adapter uses.
type recognizer interface {
	Recognize(ctx context.Context, req *speechpb.RecognizeRequest) (*speechpb.RecognizeResponse, error)
	Close() error
}

type clientRecognizer struct {
	c *speech.Client
}

func (r clientRecognizer) Recognize(ctx context.Context, req *speechpb.RecognizeRequest) (*speechpb.RecognizeResponse, error) {
	return r.c.Recognize(ctx, req)
}

func (r clientRecognizer) Close() error {
	return r.c.Close()
}

// Adapter implements stt.Adapter using synchronous Google recognition.
// The underlying gRPC client is safe for concurrent use.
type Adapter struct {
	client recognizer
	cfg    Config
}

// New creates a new Google STT adapter.
// Requires GOOGLE_APPLICATION_CREDENTIALS environment variable to be set.
func New(ctx context.Context, cfg Config) (*Adapter, error) {
	c, err := speech.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("google speech client: %w", err)
	}
	return &Adapter{client: clientRecognizer{c: c}, cfg: cfg}, nil
}

// Name returns "google".
func (a *Adapter) Name() string {
	return "google"
}

// Transcribe sends the waveform as LINEAR16 and joins the best alternative
// of every result.
func (a *Adapter) Transcribe(ctx context.Context, w audio.Waveform) (stt.Result, error) {
	resp, err := a.client.Recognize(ctx, a.request(w))
	if err != nil {
		return stt.Result{}, err
	}
	return toResult(resp), nil
}

// Close closes the speech client.
func (a *Adapter) Close() error {
	if a.client != nil {
		return a.client.Close()
	}
	return nil
}

func (a *Adapter) request(w audio.Waveform) *speechpb.RecognizeRequest {
	return &speechpb.RecognizeRequest{
		Config: &speechpb.RecognitionConfig{
			Encoding:                   speechpb.RecognitionConfig_LINEAR16,
			SampleRateHertz:            int32(w.SampleRate),
			AudioChannelCount:          1,
			LanguageCode:               a.cfg.LanguageCode,
			Model:                      a.cfg.Model,
			EnableAutomaticPunctuation: a.cfg.Punctuation,
		},
		Audio: &speechpb.RecognitionAudio{
			AudioSource: &speechpb.RecognitionAudio_Content{Content: w.PCM16()},
		},
	}
}

func toResult(resp *speechpb.RecognizeResponse) stt.Result {
	var texts []string
	segments := []stt.Segment{}
	var start float64
	for _, r := range resp.GetResults() {
		if len(r.GetAlternatives()) == 0 {
			continue
		}
		text := strings.TrimSpace(r.GetAlternatives()[0].GetTranscript())
		end := seconds(r.GetResultEndTime())
		if text != "" {
			texts = append(texts, text)
			segments = append(segments, stt.Segment{Start: start, End: end, Text: text})
		}
		start = end
	}
	return stt.Result{Text: strings.Join(texts, " "), Segments: segments}
}

func seconds(d *durationpb.Duration) float64 {
	if d == nil {
		return 0
	}
	return d.AsDuration().Seconds()
}
