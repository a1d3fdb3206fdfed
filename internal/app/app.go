package app

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"speech-feedback-service/internal/config"
	"speech-feedback-service/internal/events"
	"speech-feedback-service/internal/observability/logging"
	"speech-feedback-service/internal/observability/metrics"
	"speech-feedback-service/internal/service/audio"
	"speech-feedback-service/internal/service/feedback"
	"speech-feedback-service/internal/service/pipeline"
	"speech-feedback-service/internal/service/stt"
	"speech-feedback-service/internal/store"
)

// ReportStore is the report persistence used by the API.
type ReportStore interface {
	Enabled() bool
	Save(ctx context.Context, id string, r feedback.Report) error
	Get(ctx context.Context, id string) (*store.StoredReport, error)
	Close()
}

// Application holds process-wide state for the service. The STT adapter is
// created once at startup and shared, read-only, by every submission.
type Application struct {
	StartupTime time.Time
	Logger      zerolog.Logger
	Cfg         *config.Configuration
	Metrics     *metrics.Metrics

	Adapter   stt.Adapter
	Publisher *events.Publisher
	Reports   ReportStore
	Pipeline  *pipeline.Pipeline
}

// New constructs a new Application from the provided configuration.
func New(ctx context.Context, cfg *config.Configuration) (*Application, error) {
	a := &Application{
		Cfg:     cfg,
		Metrics: metrics.DefaultMetrics,
	}
	a.setupLogger()

	appLogger := a.Logger.With().
		Str("method", "New").
		Logger()

	adapter, err := NewAdapter(ctx, cfg.STT)
	if err != nil {
		return nil, fmt.Errorf("stt adapter: %w", err)
	}

	reports, err := store.Connect(ctx, cfg.Store.DatabaseURL)
	if err != nil {
		_ = adapter.Close()
		return nil, fmt.Errorf("report store: %w", err)
	}

	a.Adapter = adapter
	a.Reports = reports
	a.Publisher = events.New(&events.Config{
		Enabled:      cfg.Kafka.Enabled,
		Brokers:      cfg.Kafka.Brokers,
		TopicReport:  cfg.Kafka.TopicReport,
		TopicFailure: cfg.Kafka.TopicFailure,
		Principal:    cfg.Kafka.Principal,
	})
	a.Pipeline = a.newPipeline()

	appLogger.Info().
		Str("sttProvider", adapter.Name()).
		Bool("storeEnabled", reports.Enabled()).
		Bool("kafkaEnabled", cfg.Kafka.Enabled).
		Msg("Speech feedback service application created")
	return a, nil
}

func (a *Application) newPipeline() *pipeline.Pipeline {
	opts := []pipeline.Option{
		pipeline.WithMetrics(a.Metrics),
		pipeline.WithPublisher(a.Publisher),
		pipeline.WithLimits(pipeline.Limits{
			MaxDuration: a.Cfg.Audio.MaxDuration,
			STTTimeout:  a.Cfg.STT.Timeout,
		}),
	}
	if a.Reports != nil && a.Reports.Enabled() {
		opts = append(opts, pipeline.WithStore(a.Reports))
	}
	decoder := audio.NewDecoder(audio.Config{SampleRate: a.Cfg.Audio.SampleRateHz})
	return pipeline.New(decoder, a.Adapter, opts...)
}

// setupLogger configures zerolog for the service.
func (a *Application) setupLogger() {
	logCfg := logging.DefaultConfig()
	logCfg.Level = a.Cfg.Observability.LogLevel
	logCfg.Format = a.Cfg.Observability.LogFormat
	logging.Init(logCfg)

	a.Logger = logging.WithComponent("application")
	a.Logger.Info().
		Str("logLevel", zerolog.GlobalLevel().String()).
		Str("environment", a.Cfg.Service.Environment).
		Msg("Logger setup completed")
}

// Start performs any startup work required before serving traffic.
func (a *Application) Start() error {
	startLogger := a.Logger.With().
		Str("method", "Start").
		Logger()

	a.StartupTime = time.Now().UTC()
	startLogger.Info().
		Time("startupTime", a.StartupTime).
		Msg("Speech feedback service starting")

	return nil
}

// Uptime returns the time since Start.
func (a *Application) Uptime() time.Duration {
	if a.StartupTime.IsZero() {
		return 0
	}
	return time.Since(a.StartupTime)
}

// Shutdown releases the STT adapter, the publisher and the store.
func (a *Application) Shutdown() {
	shutdownLogger := a.Logger.With().
		Str("method", "Shutdown").
		Logger()

	shutdownLogger.Info().Msg("Speech feedback service shutting down")

	if a.Adapter != nil {
		if err := a.Adapter.Close(); err != nil {
			shutdownLogger.Error().Err(err).Msg("Error closing STT adapter")
		}
	}
	if a.Publisher != nil {
		if err := a.Publisher.Close(); err != nil {
			shutdownLogger.Error().Err(err).Msg("Error closing publisher")
		}
	}
	if a.Reports != nil {
		a.Reports.Close()
	}
}
