// Package events publishes feedback events to Kafka.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/segmentio/kafka-go"

	"speech-feedback-service/internal/models"
	"speech-feedback-service/internal/observability/metrics"
)

// Config holds Kafka publisher configuration.
type Config struct {
	Brokers      []string
	TopicReport  string
	TopicFailure string
	Principal    string
	Enabled      bool
}

// messageWriter is the part of kafka.Writer the publisher needs.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// event is implemented by every models type that goes on a topic.
type event interface {
	Key() string
	Type() string
}

// sink is one topic and its writer. A nil writer means log-only.
type sink struct {
	topic  string
	writer messageWriter
}

// Publisher sends report events and failure events to their own topics.
type Publisher struct {
	reports   sink
	failures  sink
	principal string
	metrics   *metrics.Metrics
}

// New creates a Kafka event publisher. With Kafka disabled or no brokers it
// only logs events.
func New(cfg *Config) *Publisher {
	if cfg == nil {
		cfg = &Config{}
	}
	p := &Publisher{
		reports:   sink{topic: cfg.TopicReport},
		failures:  sink{topic: cfg.TopicFailure},
		principal: cfg.Principal,
		metrics:   metrics.DefaultMetrics,
	}
	if !cfg.Enabled || len(cfg.Brokers) == 0 {
		log.Info().Msg("Kafka disabled, using log-only mode")
		return p
	}

	// Longer dial timeout for DNS resolution in Kubernetes
	dialer := &kafka.Dialer{
		Timeout:   10 * time.Second,
		DualStack: true,
	}
	transport := &kafka.Transport{Dial: dialer.DialFunc}

	p.reports.writer = newWriter(cfg.Brokers, cfg.TopicReport, transport)
	p.failures.writer = newWriter(cfg.Brokers, cfg.TopicFailure, transport)

	log.Info().
		Strs("brokers", cfg.Brokers).
		Str("topicReport", cfg.TopicReport).
		Str("topicFailure", cfg.TopicFailure).
		Str("principal", cfg.Principal).
		Msg("Kafka publisher initialized")
	return p
}

func newWriter(brokers []string, topic string, transport *kafka.Transport) *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{}, // one submission, one partition
		BatchTimeout: 10 * time.Millisecond,
		WriteTimeout: 10 * time.Second,
		RequiredAcks: kafka.RequireOne,
		Transport:    transport,
	}
}

// Enabled reports whether events reach Kafka.
func (p *Publisher) Enabled() bool {
	return p.reports.writer != nil
}

// PublishReport sends a scored submission to the report topic.
func (p *Publisher) PublishReport(ctx context.Context, ev models.FeedbackReported) error {
	return p.publish(ctx, p.reports, ev)
}

// PublishFailure sends a failed submission to the failure topic.
func (p *Publisher) PublishFailure(ctx context.Context, ev models.FeedbackFailed) error {
	return p.publish(ctx, p.failures, ev)
}

func (p *Publisher) publish(ctx context.Context, s sink, ev event) error {
	start := time.Now()
	logger := log.With().
		Str("topic", s.topic).
		Str("eventType", ev.Type()).
		Str("submissionId", ev.Key()).
		Logger()

	msg, err := p.message(ev)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to encode event")
		p.metrics.RecordKafkaPublish(s.topic, ev.Type(), err, time.Since(start).Seconds())
		return err
	}
	logger.Debug().RawJSON("payload", msg.Value).Msg("Publishing event")

	if s.writer != nil {
		err = s.writer.WriteMessages(ctx, msg)
		if err != nil {
			logger.Error().Err(err).Msg("Failed to write to Kafka")
		}
	}
	p.metrics.RecordKafkaPublish(s.topic, ev.Type(), err, time.Since(start).Seconds())
	return err
}

// message encodes ev with its submission ID as the key.
func (p *Publisher) message(ev event) (kafka.Message, error) {
	payload, err := json.Marshal(ev)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("encode %s: %w", ev.Type(), err)
	}
	return kafka.Message{
		Key:   []byte(ev.Key()),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "eventType", Value: []byte(ev.Type())},
			{Key: "principal", Value: []byte(p.principal)},
		},
	}, nil
}

// Close closes both Kafka writers.
func (p *Publisher) Close() error {
	var err error
	for _, s := range []sink{p.reports, p.failures} {
		if s.writer == nil {
			continue
		}
		if e := s.writer.Close(); e != nil {
			log.Error().Err(e).Str("topic", s.topic).Msg("Error closing Kafka writer")
			err = e
		}
	}
	return err
}
