package feedback

import "strconv"

// Ideal speaking band and the grammar score below which a tip is emitted.
const (
	IdealMinWPM     = 120.0
	IdealMaxWPM     = 150.0
	MinGrammarScore = 80
)

const (
	baseFluency      = 95
	fluencyPerFiller = 2
	minFluency       = 60
)

// Confidence tiers.
const (
	ConfidenceHigh   = 90
	ConfidenceMedium = 80
	ConfidenceLow    = 65
)

const (
	TipTooSlow = "You're speaking a bit slowly. Try to increase your pace to sound more engaging."
	TipTooFast = "You're speaking too fast. Slow down a little to ensure clarity and understanding."
	TipFillers = "Reduce filler words."
	TipGrammar = "Improve sentence structure."
)

// Metrics are the raw measurements the aggregator scores.
type Metrics struct {
	Transcript  string
	DurationSec float64
	WPM         float64
	Fillers     []string
	Grammar     int
}

// Measure runs the metric functions over a transcript.
func Measure(transcript string, durationSec float64) (Metrics, error) {
	wpm, err := WordsPerMinute(transcript, durationSec)
	if err != nil {
		return Metrics{}, err
	}
	return Metrics{
		Transcript:  transcript,
		DurationSec: durationSec,
		WPM:         wpm,
		Fillers:     ExtractFillers(transcript),
		Grammar:     GrammarScore(transcript),
	}, nil
}

// Analyze measures a transcript and scores it in one step.
func Analyze(transcript string, durationSec float64) (Report, error) {
	m, err := Measure(transcript, durationSec)
	if err != nil {
		return Report{}, err
	}
	return Aggregate(m), nil
}

// Aggregate derives the scores, pace verdict and tips from measured metrics.
func Aggregate(m Metrics) Report {
	fillerCount := len(m.Fillers)
	fluency := FluencyScore(fillerCount)
	confidence := ConfidenceScore(m.Grammar, fillerCount)

	// tips order: pace, fillers, grammar
	tips := []string{}
	speed, paceTip := Pace(m.WPM)
	if paceTip != "" {
		tips = append(tips, paceTip)
	}
	if fillerCount > 2 {
		tips = append(tips, TipFillers)
	}
	if m.Grammar < MinGrammarScore {
		tips = append(tips, TipGrammar)
	}

	fillers := make([]string, fillerCount)
	copy(fillers, m.Fillers)

	return Report{
		Transcript:      m.Transcript,
		DurationSec:     round(m.DurationSec, 2),
		WPM:             m.WPM,
		FillerWords:     fillers,
		GrammarScore:    m.Grammar,
		FluencyScore:    fluency,
		ConfidenceScore: confidence,
		SpeedFeedback:   speed,
		OverallRating:   OverallRating(m.Grammar, fluency, confidence),
		Tips:            tips,
	}
}

// FluencyScore drops two points per filler and never goes below 60.
func FluencyScore(fillerCount int) int {
	score := baseFluency - fluencyPerFiller*fillerCount
	if score < minFluency {
		return minFluency
	}
	return score
}

// ConfidenceScore picks the first tier whose grammar and filler limits hold.
func ConfidenceScore(grammar, fillerCount int) int {
	switch {
	case grammar > 95 && fillerCount < 2:
		return ConfidenceHigh
	case grammar > 80 && fillerCount < 5:
		return ConfidenceMedium
	default:
		return ConfidenceLow
	}
}

// Pace compares a rate with the ideal band and returns the verdict plus the
// tip to show, which is empty for a good pace.
func Pace(wpm float64) (SpeedFeedback, string) {
	switch {
	case wpm < IdealMinWPM:
		return SpeedTooSlow, TipTooSlow
	case wpm > IdealMaxWPM:
		return SpeedTooFast, TipTooFast
	default:
		return SpeedGoodPace, ""
	}
}

// OverallRating is the mean of the three sub-scores to one decimal place.
func OverallRating(grammar, fluency, confidence int) float64 {
	return round(float64(grammar+fluency+confidence)/3, 1)
}

// round rounds the exact binary value of v, sending exact ties to the even
// digit.
func round(v float64, places int) float64 {
	r, err := strconv.ParseFloat(strconv.FormatFloat(v, 'f', places, 64), 64)
	if err != nil {
		return v
	}
	return r
}
