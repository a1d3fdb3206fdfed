package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/segmentio/kafka-go"

	"speech-feedback-service/internal/models"
)

const (
	kindReport  = "report"
	kindFailure = "failure"
)

// update is what the browser receives for one Kafka message. Exactly one of
// Report and Failure is set.
type update struct {
	Kind    string                   `json:"kind"`
	Report  *models.FeedbackReported `json:"report,omitempty"`
	Failure *models.FeedbackFailed   `json:"failure,omitempty"`
}

// String renders a one-line log summary.
func (u update) String() string {
	switch {
	case u.Report != nil:
		r := u.Report.Report
		return fmt.Sprintf("%s rated %.1f, %s: %q",
			u.Report.SubmissionID, r.OverallRating, r.SpeedFeedback, truncate(r.Transcript, 40))
	case u.Failure != nil:
		return fmt.Sprintf("%s failed at %s: %s",
			u.Failure.SubmissionID, u.Failure.Stage, truncate(u.Failure.Error, 60))
	default:
		return "empty update"
	}
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max]) + "..."
}

// decode reads the event type from the eventType header, or from the
// payload when the header is missing.
func decode(msg kafka.Message) (update, error) {
	eventType := ""
	for _, h := range msg.Headers {
		if h.Key == "eventType" {
			eventType = string(h.Value)
		}
	}
	if eventType == "" {
		var envelope struct {
			EventType string `json:"eventType"`
		}
		if err := json.Unmarshal(msg.Value, &envelope); err != nil {
			return update{}, err
		}
		eventType = envelope.EventType
	}

	switch eventType {
	case models.EventFeedbackReported:
		var ev models.FeedbackReported
		if err := json.Unmarshal(msg.Value, &ev); err != nil {
			return update{}, err
		}
		return update{Kind: kindReport, Report: &ev}, nil
	case models.EventFeedbackFailed:
		var ev models.FeedbackFailed
		if err := json.Unmarshal(msg.Value, &ev); err != nil {
			return update{}, err
		}
		return update{Kind: kindFailure, Failure: &ev}, nil
	default:
		return update{}, fmt.Errorf("unknown event type %q", eventType)
	}
}

// newReader joins a throwaway consumer group over both topics, so every
// partition is read and each viewer sees the full stream.
func newReader(brokers, topics []string, fromBeginning bool) *kafka.Reader {
	start := kafka.LastOffset
	if fromBeginning {
		start = kafka.FirstOffset
	}
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:     brokers,
		GroupID:     "report-viewer-" + uuid.NewString(),
		GroupTopics: topics,
		StartOffset: start,
		MinBytes:    1,
		MaxBytes:    10e6,
	})
}

type messageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
}

// consume forwards decoded events until ctx ends.
func consume(ctx context.Context, r messageReader, b *broadcaster) {
	for {
		msg, err := r.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				return
			}
			log.Warn().Err(err).Msg("Kafka read failed")
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Second):
			}
			continue
		}

		u, err := decode(msg)
		if err != nil {
			log.Warn().Err(err).Str("topic", msg.Topic).Msg("Skipping undecodable event")
			continue
		}
		log.Info().Str("topic", msg.Topic).Msg(u.String())
		b.publish(u)
	}
}
