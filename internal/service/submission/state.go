// Package submission provides submission ID generation and the stage
// lifecycle of a single feedback request.
package submission

import (
	"errors"
	"fmt"
	"sync"
)

// State represents the stage a submission has reached.
type State int

const (
	// StateReceived - Raw audio accepted, nothing processed yet.
	StateReceived State = iota
	// StateDecoded - Audio decoded into a normalized waveform.
	StateDecoded
	// StateTranscribed - Transcript returned by the STT provider.
	StateTranscribed
	// StateScored - Report produced. Terminal.
	StateScored
	// StateFailed - A stage failed and no report will be produced. Terminal.
	StateFailed
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateReceived:
		return "RECEIVED"
	case StateDecoded:
		return "DECODED"
	case StateTranscribed:
		return "TRANSCRIBED"
	case StateScored:
		return "SCORED"
	case StateFailed:
		return "FAILED"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", s)
	}
}

// IsTerminal returns true if the state is terminal (SCORED or FAILED).
func (s State) IsTerminal() bool {
	return s == StateScored || s == StateFailed
}

// Errors for invalid state transitions.
var (
	ErrSubmissionFinished = errors.New("submission already finished")
	ErrOutOfOrder         = errors.New("stage transition out of order")
)

// Lifecycle tracks one submission through its stages.
// Thread-safe for concurrent access.
//
// State transitions:
//
//	RECEIVED → DECODED → TRANSCRIBED → SCORED
//	    │          │           │
//	    └──────────┴───────────┴── Fail() ──→ FAILED
//
// Rules:
//   - Stages advance one step at a time, never backwards
//   - SCORED and FAILED are terminal
//   - Fail records the stage that was being attempted
type Lifecycle struct {
	mu          sync.RWMutex
	id          string
	state       State
	failedStage State
}

// NewLifecycle creates a new lifecycle in RECEIVED state.
func NewLifecycle(id string) *Lifecycle {
	return &Lifecycle{
		id:    id,
		state: StateReceived,
	}
}

// ID returns the submission ID.
func (l *Lifecycle) ID() string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.id
}

// State returns the current state.
func (l *Lifecycle) State() State {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state
}

// IsFinished returns true if the submission is in a terminal state.
func (l *Lifecycle) IsFinished() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state.IsTerminal()
}

// Advance moves to the next stage. The target must directly follow the
// current state.
func (l *Lifecycle) Advance(to State) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.state.IsTerminal() {
		return ErrSubmissionFinished
	}
	if to != l.state+1 || to == StateFailed {
		return fmt.Errorf("%w: %s -> %s", ErrOutOfOrder, l.state, to)
	}
	l.state = to
	return nil
}

// Fail moves the submission to FAILED, remembering the stage that was being
// attempted. Returns false if already in a terminal state.
func (l *Lifecycle) Fail() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.state.IsTerminal() {
		return false
	}
	l.failedStage = l.state + 1
	l.state = StateFailed
	return true
}

// FailedStage returns the stage that failed. Only meaningful after Fail.
func (l *Lifecycle) FailedStage() State {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.failedStage
}

// StageName is the lowercase label used in logs and metrics for the stage
// reached from s.
func StageName(s State) string {
	switch s {
	case StateDecoded:
		return "decode"
	case StateTranscribed:
		return "transcribe"
	case StateScored:
		return "score"
	default:
		return "unknown"
	}
}
