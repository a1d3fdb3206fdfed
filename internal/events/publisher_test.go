package events

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/segmentio/kafka-go"

	"speech-feedback-service/internal/models"
	"speech-feedback-service/internal/observability/metrics"
	"speech-feedback-service/internal/service/feedback"
	"speech-feedback-service/internal/service/stt"
)

type fakeWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (w *fakeWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	w.msgs = append(w.msgs, msgs...)
	return w.err
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

func newTestPublisher(reports, failures *fakeWriter) (*Publisher, *metrics.Metrics) {
	m := metrics.NewMetrics(prometheus.NewRegistry())
	return &Publisher{
		reports:   sink{topic: "test.report", writer: reports},
		failures:  sink{topic: "test.failure", writer: failures},
		principal: "test-svc",
		metrics:   m,
	}, m
}

func reportedEvent(t *testing.T) models.FeedbackReported {
	t.Helper()
	report, err := feedback.Analyze("This is a test. It has punctuation.", 3.0)
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	return models.NewFeedbackReported("sub-123", "mock", report, nil, time.UnixMilli(1700000000000))
}

func header(msg kafka.Message, key string) string {
	for _, h := range msg.Headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}

func TestNew_DisabledMode(t *testing.T) {
	tests := []struct {
		name string
		cfg  *Config
	}{
		{"nil config", nil},
		{"disabled", &Config{Enabled: false, Brokers: []string{"localhost:9092"}}},
		{"no brokers", &Config{Enabled: true, Brokers: []string{}}},
		{"empty brokers", &Config{Enabled: true, Brokers: nil}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := New(tt.cfg)
			if p == nil {
				t.Fatal("expected non-nil publisher")
			}
			if p.Enabled() {
				t.Error("expected publisher to be disabled")
			}
			if p.failures.writer != nil {
				t.Error("expected nil failure writer when disabled")
			}
		})
	}
}

func TestNew_ConfigValues(t *testing.T) {
	p := New(&Config{
		Enabled:      true,
		Brokers:      []string{"localhost:9092"},
		TopicReport:  "test.report",
		TopicFailure: "test.failure",
		Principal:    "test-principal",
	})
	defer p.Close()

	if !p.Enabled() {
		t.Fatal("expected publisher to be enabled")
	}
	if p.principal != "test-principal" {
		t.Errorf("expected principal 'test-principal', got %s", p.principal)
	}
	w, ok := p.reports.writer.(*kafka.Writer)
	if !ok {
		t.Fatalf("expected *kafka.Writer, got %T", p.reports.writer)
	}
	if w.Topic != "test.report" {
		t.Errorf("expected report topic 'test.report', got %s", w.Topic)
	}
	if _, ok := w.Balancer.(*kafka.Hash); !ok {
		t.Errorf("expected hash balancer, got %T", w.Balancer)
	}
	if p.failures.topic != "test.failure" {
		t.Errorf("expected failure topic 'test.failure', got %s", p.failures.topic)
	}
}

func TestPublisher_PublishReport(t *testing.T) {
	reports, failures := &fakeWriter{}, &fakeWriter{}
	p, m := newTestPublisher(reports, failures)

	if err := p.PublishReport(context.Background(), reportedEvent(t)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(reports.msgs) != 1 || len(failures.msgs) != 0 {
		t.Fatalf("expected one report message, got %d reports and %d failures", len(reports.msgs), len(failures.msgs))
	}
	msg := reports.msgs[0]
	if string(msg.Key) != "sub-123" {
		t.Errorf("expected key 'sub-123', got %s", msg.Key)
	}
	if got := header(msg, "eventType"); got != models.EventFeedbackReported {
		t.Errorf("expected eventType header %s, got %s", models.EventFeedbackReported, got)
	}
	if got := header(msg, "principal"); got != "test-svc" {
		t.Errorf("expected principal header 'test-svc', got %s", got)
	}

	var decoded models.FeedbackReported
	if err := json.Unmarshal(msg.Value, &decoded); err != nil {
		t.Fatalf("payload: %v", err)
	}
	if decoded.Report.OverallRating != 95 || decoded.Timestamp != 1700000000000 {
		t.Errorf("unexpected payload %+v", decoded)
	}
	if decoded.Segments == nil {
		t.Error("expected segments to encode as an empty list")
	}
	if got := testutil.ToFloat64(m.KafkaPublishTotal.WithLabelValues("test.report", models.EventFeedbackReported)); got != 1 {
		t.Errorf("expected 1 publish, got %v", got)
	}
}

func TestPublisher_PublishFailure(t *testing.T) {
	reports, failures := &fakeWriter{}, &fakeWriter{}
	p, _ := newTestPublisher(reports, failures)

	ev := models.NewFeedbackFailed("sub-456", "whisper", "transcribe", errors.New("model crashed"), time.Now())
	if err := p.PublishFailure(context.Background(), ev); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(failures.msgs) != 1 || len(reports.msgs) != 0 {
		t.Fatalf("expected one failure message, got %d failures and %d reports", len(failures.msgs), len(reports.msgs))
	}
	msg := failures.msgs[0]
	if string(msg.Key) != "sub-456" {
		t.Errorf("expected key 'sub-456', got %s", msg.Key)
	}
	if got := header(msg, "eventType"); got != models.EventFeedbackFailed {
		t.Errorf("expected eventType header %s, got %s", models.EventFeedbackFailed, got)
	}

	var decoded models.FeedbackFailed
	if err := json.Unmarshal(msg.Value, &decoded); err != nil {
		t.Fatalf("payload: %v", err)
	}
	if decoded.Stage != "transcribe" || decoded.Error != "model crashed" {
		t.Errorf("unexpected payload %+v", decoded)
	}
}

func TestPublisher_WriteError(t *testing.T) {
	boom := errors.New("broker down")
	p, m := newTestPublisher(&fakeWriter{err: boom}, &fakeWriter{})

	err := p.PublishReport(context.Background(), reportedEvent(t))

	if !errors.Is(err, boom) {
		t.Errorf("expected %v, got %v", boom, err)
	}
	if got := testutil.ToFloat64(m.KafkaPublishErrors.WithLabelValues("test.report", models.EventFeedbackReported)); got != 1 {
		t.Errorf("expected 1 publish error, got %v", got)
	}
}

func TestPublisher_UnencodableReport(t *testing.T) {
	reports := &fakeWriter{}
	p, _ := newTestPublisher(reports, &fakeWriter{})

	ev := reportedEvent(t)
	ev.Report.WPM = math.NaN()

	if err := p.PublishReport(context.Background(), ev); err == nil {
		t.Error("expected error for a NaN field")
	}
	if len(reports.msgs) != 0 {
		t.Errorf("expected nothing written, got %d messages", len(reports.msgs))
	}
}

func TestPublisher_Disabled_LogsOnly(t *testing.T) {
	p := New(&Config{Enabled: false, TopicReport: "test.report", Principal: "test-svc"})

	if err := p.PublishReport(context.Background(), reportedEvent(t)); err != nil {
		t.Errorf("expected no error when disabled, got %v", err)
	}
	ev := models.NewFeedbackFailed("sub-1", "mock", "decode", nil, time.Now())
	if err := p.PublishFailure(context.Background(), ev); err != nil {
		t.Errorf("expected no error when disabled, got %v", err)
	}
}

func TestPublisher_Close(t *testing.T) {
	reports, failures := &fakeWriter{}, &fakeWriter{}
	p, _ := newTestPublisher(reports, failures)

	if err := p.Close(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reports.closed || !failures.closed {
		t.Error("expected both writers to be closed")
	}
	if err := New(nil).Close(); err != nil {
		t.Errorf("expected no error closing disabled publisher, got %v", err)
	}
}

func TestNewFeedbackReported_Segments(t *testing.T) {
	segs := []stt.Segment{{Start: 0, End: 1.5, Text: "Hello."}}
	ev := models.NewFeedbackReported("sub-1", "mock", feedback.Report{}, segs, time.Now())
	if len(ev.Segments) != 1 || ev.Key() != "sub-1" || ev.Type() != models.EventFeedbackReported {
		t.Errorf("unexpected event %+v", ev)
	}
}
