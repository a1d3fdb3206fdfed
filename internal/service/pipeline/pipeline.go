// Package pipeline turns an uploaded recording into a feedback report.
//
// A submission moves through decode, transcribe and score. Any stage failure
// ends the submission with a failed Result and no report.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"speech-feedback-service/internal/models"
	"speech-feedback-service/internal/observability/logging"
	"speech-feedback-service/internal/observability/metrics"
	"speech-feedback-service/internal/schema"
	"speech-feedback-service/internal/service/audio"
	"speech-feedback-service/internal/service/feedback"
	"speech-feedback-service/internal/service/stt"
	"speech-feedback-service/internal/service/submission"
)

var (
	// ErrTranscription wraps any error returned by the STT provider.
	ErrTranscription = errors.New("transcription failed")
	// ErrAudioTooLong is returned when the decoded recording exceeds Limits.MaxDuration.
	ErrAudioTooLong = errors.New("audio exceeds maximum duration")
)

// publishTimeout bounds best-effort event and store writes.
const publishTimeout = 5 * time.Second

// EventPublisher receives report and failure events.
type EventPublisher interface {
	PublishReport(ctx context.Context, ev models.FeedbackReported) error
	PublishFailure(ctx context.Context, ev models.FeedbackFailed) error
}

// ReportStore persists successful reports.
type ReportStore interface {
	Save(ctx context.Context, id string, r feedback.Report) error
}

// Limits defines guardrails for a single submission.
type Limits struct {
	MaxDuration time.Duration // decoded audio length
	STTTimeout  time.Duration // wraps the transcription call only
}

// DefaultLimits returns sensible default limits.
func DefaultLimits() Limits {
	return Limits{
		MaxDuration: 10 * time.Minute,
		STTTimeout:  60 * time.Second,
	}
}

// Result is the outcome of one submission. Exactly one of Report and Err is
// set.
type Result struct {
	ID       string
	Report   *feedback.Report
	Segments []stt.Segment
	Stage    string // failed stage: decode, transcribe or score
	Err      error
}

// OK reports whether the submission produced a report.
func (r Result) OK() bool {
	return r.Err == nil && r.Report != nil
}

// Pipeline coordinates the decoder, the STT adapter and the scorer.
// Safe for concurrent use when the adapter is.
type Pipeline struct {
	decoder   *audio.Decoder
	adapter   stt.Adapter
	validator *schema.Validator
	publisher EventPublisher
	store     ReportStore
	metrics   *metrics.Metrics
	ids       *submission.Generator
	limits    Limits
}

// Option configures a Pipeline.
type Option func(*Pipeline)

func WithPublisher(p EventPublisher) Option {
	return func(pl *Pipeline) { pl.publisher = p }
}

func WithStore(s ReportStore) Option {
	return func(pl *Pipeline) { pl.store = s }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(pl *Pipeline) { pl.metrics = m }
}

func WithLimits(l Limits) Option {
	return func(pl *Pipeline) { pl.limits = l }
}

func WithIDGenerator(g *submission.Generator) Option {
	return func(pl *Pipeline) { pl.ids = g }
}

// New creates a pipeline. The adapter is shared by every submission and is
// not closed by the pipeline.
func New(decoder *audio.Decoder, adapter stt.Adapter, opts ...Option) *Pipeline {
	p := &Pipeline{
		decoder:   decoder,
		adapter:   adapter,
		validator: schema.New(),
		metrics:   metrics.DefaultMetrics,
		ids:       submission.New(),
		limits:    DefaultLimits(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Provider returns the name of the STT adapter.
func (p *Pipeline) Provider() string {
	return p.adapter.Name()
}

// Submit runs a recording of any supported container through the pipeline.
func (p *Pipeline) Submit(ctx context.Context, data []byte) Result {
	return p.SubmitAs(ctx, data, audio.FormatAuto)
}

// SubmitAs runs a recording of a known format through the pipeline.
// It never panics and never returns a partial report. The report is stored
// and published only after scoring has completed.
func (p *Pipeline) SubmitAs(ctx context.Context, data []byte, format audio.Format) Result {
	res := p.run(ctx, data, format)
	if res.OK() {
		p.saveReport(ctx, res.ID, *res.Report)
		p.publishReport(ctx, res.ID, *res.Report, res.Segments)
	}
	return res
}

// run decodes, transcribes and scores. A panic in any stage becomes a
// failed Result.
func (p *Pipeline) run(ctx context.Context, data []byte, format audio.Format) (res Result) {
	start := time.Now()
	lc := submission.NewLifecycle(p.ids.Next())
	logger := logging.WithSubmission(lc.ID(), p.adapter.Name())

	p.metrics.RecordSubmission(len(data))

	defer func() {
		if r := recover(); r != nil {
			res = p.fail(ctx, lc, start, fmt.Errorf("panic: %v", r))
		}
	}()

	// Decode
	w, err := p.decoder.DecodeAs(data, format)
	if err != nil {
		return p.fail(ctx, lc, start, err)
	}
	duration := w.Duration()
	if p.limits.MaxDuration > 0 && duration > p.limits.MaxDuration.Seconds() {
		return p.fail(ctx, lc, start, fmt.Errorf("%w: %.2fs > %v", ErrAudioTooLong, duration, p.limits.MaxDuration))
	}
	p.metrics.RecordAudioDuration(duration)
	if err := lc.Advance(submission.StateDecoded); err != nil {
		return p.fail(ctx, lc, start, err)
	}

	// Transcribe
	transcript, err := p.transcribe(ctx, w)
	if err != nil {
		return p.fail(ctx, lc, start, err)
	}
	if err := lc.Advance(submission.StateTranscribed); err != nil {
		return p.fail(ctx, lc, start, err)
	}

	// Score
	report, err := feedback.Analyze(strings.TrimSpace(transcript.Text), duration)
	if err != nil {
		return p.fail(ctx, lc, start, err)
	}
	if err := p.validator.Validate(report); err != nil {
		return p.fail(ctx, lc, start, err)
	}
	if err := lc.Advance(submission.StateScored); err != nil {
		return p.fail(ctx, lc, start, err)
	}

	latency := time.Since(start)
	p.metrics.RecordSuccess(report.WPM, report.OverallRating, report.FillerCount(), latency.Seconds())
	logger.Info().
		Float64("durationSec", report.DurationSec).
		Float64("wpm", report.WPM).
		Int("fillers", report.FillerCount()).
		Float64("overallRating", report.OverallRating).
		Dur("latency", latency).
		Msg("Submission scored")

	return Result{
		ID:       lc.ID(),
		Report:   &report,
		Segments: transcript.Segments,
	}
}

// transcribe calls the adapter under the per-request timeout.
func (p *Pipeline) transcribe(ctx context.Context, w audio.Waveform) (stt.Result, error) {
	if p.limits.STTTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.limits.STTTimeout)
		defer cancel()
	}

	provider := p.adapter.Name()
	start := time.Now()
	res, err := p.adapter.Transcribe(ctx, w)
	p.metrics.RecordSTT(provider, time.Since(start).Seconds())
	if err != nil {
		p.metrics.RecordSTTError(provider, errorType(err))
		return stt.Result{}, fmt.Errorf("%w: %w", ErrTranscription, err)
	}
	return res, nil
}

func (p *Pipeline) fail(ctx context.Context, lc *submission.Lifecycle, start time.Time, err error) Result {
	lc.Fail()
	stage := submission.StageName(lc.FailedStage())
	latency := time.Since(start)

	p.metrics.RecordFailure(stage, latency.Seconds())
	logger := logging.WithSubmission(lc.ID(), p.adapter.Name())
	logger.Warn().
		Err(err).
		Str("stage", stage).
		Dur("latency", latency).
		Msg("Submission failed")

	if p.publisher != nil {
		p.sideEffect(ctx, lc.ID(), "publish failure event", func(ctx context.Context) error {
			ev := models.NewFeedbackFailed(lc.ID(), p.adapter.Name(), stage, err, time.Now())
			return p.publisher.PublishFailure(ctx, ev)
		})
	}

	return Result{ID: lc.ID(), Stage: stage, Err: err}
}

func (p *Pipeline) publishReport(ctx context.Context, id string, report feedback.Report, segments []stt.Segment) {
	if p.publisher == nil {
		return
	}
	p.sideEffect(ctx, id, "publish report event", func(ctx context.Context) error {
		ev := models.NewFeedbackReported(id, p.adapter.Name(), report, segments, time.Now())
		return p.publisher.PublishReport(ctx, ev)
	})
}

func (p *Pipeline) saveReport(ctx context.Context, id string, report feedback.Report) {
	if p.store == nil {
		return
	}
	p.sideEffect(ctx, id, "save report", func(ctx context.Context) error {
		return p.store.Save(ctx, id, report)
	})
}

// sideEffect runs a best-effort write detached from request cancellation.
// Errors and panics are logged and never change the Result.
func (p *Pipeline) sideEffect(ctx context.Context, id, what string, fn func(context.Context) error) {
	logger := logging.WithSubmission(id, p.adapter.Name())
	defer func() {
		if r := recover(); r != nil {
			logger.Error().Interface("panic", r).Msg("Failed to " + what)
		}
	}()

	dctx, cancel := detached(ctx)
	defer cancel()
	if err := fn(dctx); err != nil {
		logger.Error().Err(err).Msg("Failed to " + what)
	}
}

// detached keeps request values but outlives a cancelled request.
func detached(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
}

func errorType(err error) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	default:
		return "provider"
	}
}
