// Package metrics provides Prometheus metrics for observability.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "speech_feedback"

// Metrics holds all Prometheus metrics for the service.
type Metrics struct {
	// Submission metrics
	SubmissionsTotal     prometheus.Counter
	SubmissionsSucceeded prometheus.Counter
	SubmissionsFailed    *prometheus.CounterVec
	SubmissionDuration   prometheus.Histogram

	// Audio metrics
	AudioBytesReceived prometheus.Counter
	AudioDuration      prometheus.Histogram

	// STT metrics
	STTLatency *prometheus.HistogramVec
	STTErrors  *prometheus.CounterVec

	// Feedback metrics
	WordsPerMinute prometheus.Histogram
	OverallRating  prometheus.Histogram
	FillerWords    prometheus.Counter

	// Kafka publish metrics
	KafkaPublishTotal   *prometheus.CounterVec
	KafkaPublishErrors  *prometheus.CounterVec
	KafkaPublishLatency *prometheus.HistogramVec

	// Transport metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
}

// DefaultMetrics is the global metrics instance.
var DefaultMetrics = NewMetrics(prometheus.DefaultRegisterer)

// NewMetrics creates all Prometheus metrics and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		// Submission metrics
		SubmissionsTotal: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "submissions_total",
			Help:      "Total number of audio submissions received",
		}),
		SubmissionsSucceeded: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "submissions_succeeded_total",
			Help:      "Total number of submissions that produced a report",
		}),
		SubmissionsFailed: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "submissions_failed_total",
			Help:      "Total number of submissions that failed, by stage",
		}, []string{"stage"}),
		SubmissionDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "submission_duration_seconds",
			Help:      "End-to-end pipeline latency in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60},
		}),

		// Audio metrics
		AudioBytesReceived: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "audio_bytes_received_total",
			Help:      "Total audio bytes received",
		}),
		AudioDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "audio_duration_seconds",
			Help:      "Duration of decoded recordings in seconds",
			Buckets:   []float64{1, 5, 10, 30, 60, 120, 300, 600},
		}),

		// STT metrics
		STTLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stt_latency_seconds",
			Help:      "Speech-to-text processing latency in seconds",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60},
		}, []string{"provider"}),
		STTErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stt_errors_total",
			Help:      "Total number of STT errors",
		}, []string{"provider", "error_type"}),

		// Feedback metrics
		WordsPerMinute: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "words_per_minute",
			Help:      "Speaking rate of scored submissions",
			Buckets:   []float64{60, 90, 120, 135, 150, 180, 210},
		}),
		OverallRating: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "overall_rating",
			Help:      "Overall rating of scored submissions",
			Buckets:   []float64{62, 65, 70, 75, 80, 85, 90, 95},
		}),
		FillerWords: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "filler_words_total",
			Help:      "Total filler words detected",
		}),

		// Kafka publish metrics
		KafkaPublishTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "kafka_publish_total",
			Help:      "Total number of Kafka messages published",
		}, []string{"topic", "event_type"}),
		KafkaPublishErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "kafka_publish_errors_total",
			Help:      "Total number of Kafka publish errors",
		}, []string{"topic", "event_type"}),
		KafkaPublishLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "kafka_publish_latency_seconds",
			Help:      "Kafka publish latency in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"topic"}),

		// Transport metrics
		RequestsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_total",
			Help:      "Total number of API requests, by transport and result code",
		}, []string{"transport", "code"}),
		RequestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "request_duration_seconds",
			Help:      "API request latency in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60},
		}, []string{"transport"}),
	}
}

// RecordSubmission records a submission and its audio size.
func (m *Metrics) RecordSubmission(bytes int) {
	m.SubmissionsTotal.Inc()
	m.AudioBytesReceived.Add(float64(bytes))
}

// RecordAudioDuration records the decoded length of a recording.
func (m *Metrics) RecordAudioDuration(seconds float64) {
	m.AudioDuration.Observe(seconds)
}

// RecordSuccess records a scored submission.
func (m *Metrics) RecordSuccess(wpm, overall float64, fillers int, latencySeconds float64) {
	m.SubmissionsSucceeded.Inc()
	m.SubmissionDuration.Observe(latencySeconds)
	m.WordsPerMinute.Observe(wpm)
	m.OverallRating.Observe(overall)
	m.FillerWords.Add(float64(fillers))
}

// RecordFailure records a submission that failed at stage.
func (m *Metrics) RecordFailure(stage string, latencySeconds float64) {
	m.SubmissionsFailed.WithLabelValues(stage).Inc()
	m.SubmissionDuration.Observe(latencySeconds)
}

// RecordSTT records one transcription call.
func (m *Metrics) RecordSTT(provider string, latencySeconds float64) {
	m.STTLatency.WithLabelValues(provider).Observe(latencySeconds)
}

// RecordSTTError records an STT error.
func (m *Metrics) RecordSTTError(provider, errorType string) {
	m.STTErrors.WithLabelValues(provider, errorType).Inc()
}

// RecordKafkaPublish records a Kafka publish attempt.
func (m *Metrics) RecordKafkaPublish(topic, eventType string, err error, latencySeconds float64) {
	m.KafkaPublishTotal.WithLabelValues(topic, eventType).Inc()
	m.KafkaPublishLatency.WithLabelValues(topic).Observe(latencySeconds)
	if err != nil {
		m.KafkaPublishErrors.WithLabelValues(topic, eventType).Inc()
	}
}

// RecordRequest records an API request on transport ("http" or "grpc").
func (m *Metrics) RecordRequest(transport, code string, latencySeconds float64) {
	m.RequestsTotal.WithLabelValues(transport, code).Inc()
	m.RequestDuration.WithLabelValues(transport).Observe(latencySeconds)
}
