// Package whisper provides an adapter for a self-hosted Whisper ASR server
// that accepts a multipart WAV upload on POST /transcribe.
package whisper

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"strings"
	"time"

	"speech-feedback-service/internal/service/audio"
	"speech-feedback-service/internal/service/stt"
)

// Config holds Whisper server configuration.
type Config struct {
	URL      string
	Model    string // forwarded as the "model" form field when set
	Language string // forwarded as the "language" form field when set
	Timeout  time.Duration
}

// DefaultConfig returns defaults for a server on localhost.
func DefaultConfig() Config {
	return Config{
		URL:     "http://localhost:9000",
		Timeout: 2 * time.Minute,
	}
}

type transcribeResponse struct {
	Text     string        `json:"text"`
	Language string        `json:"language"`
	Duration float64       `json:"duration"`
	Segments []stt.Segment `json:"segments"`
}

// Adapter implements stt.Adapter over HTTP.
type Adapter struct {
	cfg    Config
	client *http.Client
}

// New creates a Whisper adapter.
func New(cfg Config) *Adapter {
	return &Adapter{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}
}

// Name returns "whisper".
func (a *Adapter) Name() string {
	return "whisper"
}

// Transcribe uploads the waveform as a 16-bit WAV file.
func (a *Adapter) Transcribe(ctx context.Context, w audio.Waveform) (stt.Result, error) {
	body, contentType, err := a.multipartBody(w)
	if err != nil {
		return stt.Result{}, err
	}

	url := strings.TrimRight(a.cfg.URL, "/") + "/transcribe"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, body)
	if err != nil {
		return stt.Result{}, err
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := a.client.Do(req)
	if err != nil {
		return stt.Result{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return stt.Result{}, fmt.Errorf("whisper %s: %s", resp.Status, strings.TrimSpace(string(b)))
	}

	var out transcribeResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return stt.Result{}, fmt.Errorf("whisper decode: %w", err)
	}
	if out.Segments == nil {
		out.Segments = []stt.Segment{}
	}
	return stt.Result{Text: out.Text, Segments: out.Segments}, nil
}

// Close releases idle connections.
func (a *Adapter) Close() error {
	a.client.CloseIdleConnections()
	return nil
}

// multipartBody writes the waveform to a temporary WAV file, since the WAV
// encoder needs to seek back and patch the header sizes.
func (a *Adapter) multipartBody(w audio.Waveform) (*bytes.Buffer, string, error) {
	tmp, err := os.CreateTemp("", "feedback-*.wav")
	if err != nil {
		return nil, "", err
	}
	defer os.Remove(tmp.Name())
	defer tmp.Close()

	if err := w.WriteWAV(tmp); err != nil {
		return nil, "", err
	}
	if _, err := tmp.Seek(0, io.SeekStart); err != nil {
		return nil, "", err
	}

	var b bytes.Buffer
	mw := multipart.NewWriter(&b)
	if a.cfg.Model != "" {
		if err := mw.WriteField("model", a.cfg.Model); err != nil {
			return nil, "", err
		}
	}
	if a.cfg.Language != "" {
		if err := mw.WriteField("language", a.cfg.Language); err != nil {
			return nil, "", err
		}
	}
	fw, err := mw.CreateFormFile("file", "audio.wav")
	if err != nil {
		return nil, "", err
	}
	if _, err := io.Copy(fw, tmp); err != nil {
		return nil, "", err
	}
	if err := mw.Close(); err != nil {
		return nil, "", err
	}
	return &b, mw.FormDataContentType(), nil
}
