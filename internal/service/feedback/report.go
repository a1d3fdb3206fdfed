// Package feedback turns a transcript and its duration into a coaching report.
// Everything in this package is a pure function of its inputs.
package feedback

// SpeedFeedback classifies the speaking rate against the ideal band.
type SpeedFeedback string

const (
	SpeedTooSlow  SpeedFeedback = "Too slow"
	SpeedTooFast  SpeedFeedback = "Too fast"
	SpeedGoodPace SpeedFeedback = "Good pace"
)

// Report is the coaching result for one recording. It is built once by
// Aggregate and is not modified afterwards.
type Report struct {
	Transcript      string        `json:"transcript"`
	DurationSec     float64       `json:"duration_sec"`
	WPM             float64       `json:"wpm"`
	FillerWords     []string      `json:"filler_words"`
	GrammarScore    int           `json:"grammar_score"`
	FluencyScore    int           `json:"fluency_score"`
	ConfidenceScore int           `json:"confidence_score"`
	SpeedFeedback   SpeedFeedback `json:"speed_feedback"`
	OverallRating   float64       `json:"overall_rating"`
	Tips            []string      `json:"tips"`
}

// FillerCount returns the number of filler occurrences in the report.
func (r Report) FillerCount() int {
	return len(r.FillerWords)
}
