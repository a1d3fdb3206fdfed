package app

import (
	"context"
	"fmt"

	"speech-feedback-service/internal/config"
	"speech-feedback-service/internal/service/stt"
	"speech-feedback-service/internal/service/stt/google"
	"speech-feedback-service/internal/service/stt/mock"
	"speech-feedback-service/internal/service/stt/whisper"
)

// NewAdapter creates the configured STT provider. With PoolSize > 1 the
// instances are pooled so each serves one transcription at a time.
func NewAdapter(ctx context.Context, cfg config.STTConfig) (stt.Adapter, error) {
	size := cfg.PoolSize
	if size < 1 {
		size = 1
	}

	instances := make([]stt.Adapter, 0, size)
	for i := 0; i < size; i++ {
		a, err := newInstance(ctx, cfg)
		if err != nil {
			for _, created := range instances {
				_ = created.Close()
			}
			return nil, err
		}
		instances = append(instances, a)
	}

	if size == 1 {
		return instances[0], nil
	}
	return stt.NewPool(instances...), nil
}

func newInstance(ctx context.Context, cfg config.STTConfig) (stt.Adapter, error) {
	switch cfg.Provider {
	case "", "mock":
		return mock.New(), nil
	case "google":
		gcfg := google.DefaultConfig()
		gcfg.LanguageCode = cfg.LanguageCode
		gcfg.Model = cfg.Model
		return google.New(ctx, gcfg)
	case "whisper":
		wcfg := whisper.DefaultConfig()
		wcfg.URL = cfg.WhisperURL
		wcfg.Model = cfg.Model
		wcfg.Language = whisperLanguage(cfg.LanguageCode)
		if cfg.Timeout > 0 {
			wcfg.Timeout = cfg.Timeout
		}
		return whisper.New(wcfg), nil
	default:
		return nil, fmt.Errorf("unknown STT provider %q", cfg.Provider)
	}
}

// whisperLanguage converts a BCP-47 code such as "en-US" to the ISO 639-1
// code Whisper expects.
func whisperLanguage(code string) string {
	for i, r := range code {
		if r == '-' || r == '_' {
			return code[:i]
		}
	}
	return code
}
