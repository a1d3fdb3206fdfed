// Package config loads service configuration from the environment.
// Values that fail to parse fall back to their defaults.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Configuration is the complete service configuration.
type Configuration struct {
	Service       ServiceConfig
	STT           STTConfig
	Audio         AudioConfig
	Kafka         KafkaConfig
	Store         StoreConfig
	Observability ObservabilityConfig
}

type ServiceConfig struct {
	Principal   string
	HTTPPort    string
	GRPCPort    string
	Environment string
}

type STTConfig struct {
	Provider     string // mock, google, whisper
	LanguageCode string
	Model        string
	WhisperURL   string
	PoolSize     int
	Timeout      time.Duration // wraps the transcription call only
}

type AudioConfig struct {
	SampleRateHz int // raw PCM uploads
	MaxBytes     int64
	MaxDuration  time.Duration
}

type KafkaConfig struct {
	Enabled      bool
	Brokers      []string
	TopicReport  string
	TopicFailure string
	Principal    string
}

type StoreConfig struct {
	DatabaseURL string
}

type ObservabilityConfig struct {
	LogLevel    string
	LogFormat   string
	MetricsPort string
	SentryDSN   string
}

// Load reads the configuration from environment variables.
func Load() *Configuration {
	principal := envOrDefault("SERVICE_PRINCIPAL", "svc-speech-feedback")

	return &Configuration{
		Service: ServiceConfig{
			Principal:   principal,
			HTTPPort:    envOrDefault("HTTP_PORT", "8080"),
			GRPCPort:    envOrDefault("GRPC_PORT", "50051"),
			Environment: envOrDefault("ENVIRONMENT", "development"),
		},
		STT: STTConfig{
			Provider:     strings.ToLower(envOrDefault("STT_PROVIDER", "mock")),
			LanguageCode: envOrDefault("STT_LANGUAGE_CODE", "en-US"),
			Model:        os.Getenv("STT_MODEL"),
			WhisperURL:   envOrDefault("STT_WHISPER_URL", "http://localhost:9000"),
			PoolSize:     envOrDefaultInt("STT_POOL_SIZE", 1),
			Timeout:      envOrDefaultDuration("STT_TIMEOUT", 60*time.Second),
		},
		Audio: AudioConfig{
			SampleRateHz: envOrDefaultInt("AUDIO_SAMPLE_RATE_HZ", 16000),
			MaxBytes:     envOrDefaultInt64("AUDIO_MAX_BYTES", 25*1024*1024),
			MaxDuration:  envOrDefaultDuration("AUDIO_MAX_DURATION", 10*time.Minute),
		},
		Kafka: KafkaConfig{
			Enabled:      envOrDefaultBool("KAFKA_ENABLED", false),
			Brokers:      splitList(envOrDefault("KAFKA_BROKERS", "localhost:9092")),
			TopicReport:  envOrDefault("KAFKA_TOPIC_REPORT", "speech.feedback.report"),
			TopicFailure: envOrDefault("KAFKA_TOPIC_FAILURE", "speech.feedback.failed"),
			Principal:    envOrDefault("KAFKA_PRINCIPAL", principal),
		},
		Store: StoreConfig{
			DatabaseURL: os.Getenv("DATABASE_URL"),
		},
		Observability: ObservabilityConfig{
			LogLevel:    envOrDefault("LOG_LEVEL", "info"),
			LogFormat:   envOrDefault("LOG_FORMAT", "json"),
			MetricsPort: envOrDefault("METRICS_PORT", "9090"),
			SentryDSN:   os.Getenv("SENTRY_DSN"),
		},
	}
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envOrDefaultInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return def
}

func envOrDefaultInt64(key string, def int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
			return n
		}
	}
	return def
}

func envOrDefaultBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

func envOrDefaultDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			return d
		}
	}
	return def
}

func splitList(v string) []string {
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
