// Package schema checks feedback reports against their invariants before
// they leave the service.
package schema

import (
	"errors"
	"fmt"
	"math"

	"speech-feedback-service/internal/service/feedback"
)

// ErrInvalidReport wraps every invariant violation.
var ErrInvalidReport = errors.New("invalid feedback report")

type Validator struct{}

func New() *Validator {
	return &Validator{}
}

// Validate returns an error describing the first violated invariant.
func (v *Validator) Validate(r feedback.Report) error {
	switch {
	case r.DurationSec < 0:
		return invalid("duration_sec must not be negative, got %v", r.DurationSec)
	case r.WPM < 0 || math.IsNaN(r.WPM) || math.IsInf(r.WPM, 0):
		return invalid("wpm must be a finite non-negative number, got %v", r.WPM)
	case r.GrammarScore != 60 && r.GrammarScore != 100:
		return invalid("grammar_score must be 60 or 100, got %d", r.GrammarScore)
	case r.FluencyScore < 60 || r.FluencyScore > 95:
		return invalid("fluency_score must be within [60, 95], got %d", r.FluencyScore)
	case r.ConfidenceScore != feedback.ConfidenceHigh &&
		r.ConfidenceScore != feedback.ConfidenceMedium &&
		r.ConfidenceScore != feedback.ConfidenceLow:
		return invalid("confidence_score must be 65, 80 or 90, got %d", r.ConfidenceScore)
	case r.FillerWords == nil || r.Tips == nil:
		return invalid("filler_words and tips must be lists")
	}

	switch r.SpeedFeedback {
	case feedback.SpeedTooSlow, feedback.SpeedTooFast, feedback.SpeedGoodPace:
	default:
		return invalid("unknown speed_feedback %q", r.SpeedFeedback)
	}

	if want := feedback.OverallRating(r.GrammarScore, r.FluencyScore, r.ConfidenceScore); r.OverallRating != want {
		return invalid("overall_rating %v does not match sub-scores (%v)", r.OverallRating, want)
	}
	return nil
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidReport, fmt.Sprintf(format, args...))
}
