// Package models defines the data structures for feedback events.
package models

import (
	"time"

	"speech-feedback-service/internal/service/feedback"
	"speech-feedback-service/internal/service/stt"
)

// Event types.
const (
	EventFeedbackReported = "speech.feedback.reported"
	EventFeedbackFailed   = "speech.feedback.failed"
)

// FeedbackReported is published after a successful pipeline run.
type FeedbackReported struct {
	EventType    string          `json:"eventType"`
	SubmissionID string          `json:"submissionId"`
	Provider     string          `json:"provider"`
	Timestamp    int64           `json:"timestamp"`
	Report       feedback.Report `json:"report"`
	Segments     []stt.Segment   `json:"segments"`
}

// NewFeedbackReported builds the event for a scored submission. Segments are
// never null on the wire.
func NewFeedbackReported(submissionID, provider string, report feedback.Report, segments []stt.Segment, at time.Time) FeedbackReported {
	if segments == nil {
		segments = []stt.Segment{}
	}
	return FeedbackReported{
		EventType:    EventFeedbackReported,
		SubmissionID: submissionID,
		Provider:     provider,
		Timestamp:    at.UnixMilli(),
		Report:       report,
		Segments:     segments,
	}
}

// Key returns the Kafka message key.
func (e FeedbackReported) Key() string { return e.SubmissionID }

// Type returns the event type header value.
func (e FeedbackReported) Type() string { return e.EventType }

// FeedbackFailed is published when a submission ends without a report.
type FeedbackFailed struct {
	EventType    string `json:"eventType"`
	SubmissionID string `json:"submissionId"`
	Provider     string `json:"provider"`
	Timestamp    int64  `json:"timestamp"`
	Stage        string `json:"stage"`
	Error        string `json:"error"`
}

// NewFeedbackFailed builds the event for a submission that failed at stage.
func NewFeedbackFailed(submissionID, provider, stage string, err error, at time.Time) FeedbackFailed {
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	return FeedbackFailed{
		EventType:    EventFeedbackFailed,
		SubmissionID: submissionID,
		Provider:     provider,
		Timestamp:    at.UnixMilli(),
		Stage:        stage,
		Error:        msg,
	}
}

// Key returns the Kafka message key.
func (e FeedbackFailed) Key() string { return e.SubmissionID }

// Type returns the event type header value.
func (e FeedbackFailed) Type() string { return e.EventType }
