package feedback

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// ErrInvalidDuration is returned when a rate is requested for a non-positive
// or non-finite duration.
var ErrInvalidDuration = errors.New("invalid duration")

// fillerPattern matches the fixed filler lexicon in any case. Word
// boundaries are checked separately by isWordRune, since RE2's \b only
// knows ASCII word characters.
var fillerPattern = regexp.MustCompile(`(?i)uh|um|like|you know`)

const (
	gradedGrammarScore   = 100
	ungradedGrammarScore = 60
)

// WordsPerMinute counts whitespace separated tokens and scales them to a
// one minute window.
func WordsPerMinute(transcript string, durationSec float64) (float64, error) {
	if durationSec <= 0 || math.IsNaN(durationSec) || math.IsInf(durationSec, 0) {
		return 0, fmt.Errorf("%w: %v seconds", ErrInvalidDuration, durationSec)
	}
	words := len(strings.Fields(transcript))
	return float64(words) / (durationSec / 60), nil
}

// ExtractFillers returns every filler occurrence in transcript order, keeping
// the casing used in the transcript. Repeats are reported individually.
func ExtractFillers(transcript string) []string {
	fillers := []string{}
	for pos := 0; pos < len(transcript); {
		loc := fillerPattern.FindStringIndex(transcript[pos:])
		if loc == nil {
			break
		}
		start, end := pos+loc[0], pos+loc[1]
		if wholeWord(transcript, start, end) {
			fillers = append(fillers, transcript[start:end])
			pos = end
			continue
		}
		_, size := utf8.DecodeRuneInString(transcript[start:])
		pos = start + size
	}
	return fillers
}

// wholeWord reports whether s[start:end] is not joined to a neighboring
// word character on either side.
func wholeWord(s string, start, end int) bool {
	if before, _ := utf8.DecodeLastRuneInString(s[:start]); start > 0 && isWordRune(before) {
		return false
	}
	if after, _ := utf8.DecodeRuneInString(s[end:]); end < len(s) && isWordRune(after) {
		return false
	}
	return true
}

// isWordRune matches any letter or number in any script, plus underscore.
func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsNumber(r)
}

// GrammarScore is a coarse proxy: 100 when the transcript has at least one
// sentence terminator, 60 otherwise.
func GrammarScore(transcript string) int {
	if strings.ContainsAny(transcript, ".!?") {
		return gradedGrammarScore
	}
	return ungradedGrammarScore
}
