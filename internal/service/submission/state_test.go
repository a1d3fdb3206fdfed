package submission

import (
	"errors"
	"testing"
)

func TestLifecycle_InitialState(t *testing.T) {
	lc := NewLifecycle("sub-1")

	if lc.State() != StateReceived {
		t.Errorf("expected StateReceived, got %v", lc.State())
	}
	if lc.ID() != "sub-1" {
		t.Errorf("expected sub-1, got %v", lc.ID())
	}
	if lc.IsFinished() {
		t.Error("expected IsFinished to be false")
	}
}

func TestLifecycle_FullCycle(t *testing.T) {
	lc := NewLifecycle("sub-1")

	for _, s := range []State{StateDecoded, StateTranscribed, StateScored} {
		if err := lc.Advance(s); err != nil {
			t.Fatalf("advance to %s failed: %v", s, err)
		}
		if lc.State() != s {
			t.Errorf("expected %s, got %s", s, lc.State())
		}
	}

	if !lc.IsFinished() {
		t.Error("expected IsFinished after SCORED")
	}
}

func TestLifecycle_Advance_OutOfOrder(t *testing.T) {
	lc := NewLifecycle("sub-1")

	if err := lc.Advance(StateTranscribed); !errors.Is(err, ErrOutOfOrder) {
		t.Errorf("skipping DECODED: expected ErrOutOfOrder, got %v", err)
	}
	if err := lc.Advance(StateReceived); !errors.Is(err, ErrOutOfOrder) {
		t.Errorf("staying put: expected ErrOutOfOrder, got %v", err)
	}
	if lc.State() != StateReceived {
		t.Errorf("expected state unchanged, got %v", lc.State())
	}
}

func TestLifecycle_Advance_CannotReachFailed(t *testing.T) {
	lc := NewLifecycle("sub-1")
	lc.Advance(StateDecoded)
	lc.Advance(StateTranscribed)
	lc.Advance(StateScored)

	if err := lc.Advance(StateFailed); !errors.Is(err, ErrSubmissionFinished) {
		t.Errorf("expected ErrSubmissionFinished, got %v", err)
	}
}

func TestLifecycle_Fail_RecordsStage(t *testing.T) {
	tests := []struct {
		name      string
		reached   []State
		failedAt  State
		stageName string
	}{
		{"decode", nil, StateDecoded, "decode"},
		{"transcribe", []State{StateDecoded}, StateTranscribed, "transcribe"},
		{"score", []State{StateDecoded, StateTranscribed}, StateScored, "score"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lc := NewLifecycle("sub-1")
			for _, s := range tt.reached {
				if err := lc.Advance(s); err != nil {
					t.Fatalf("advance: %v", err)
				}
			}

			if !lc.Fail() {
				t.Fatal("expected Fail() to return true")
			}
			if lc.State() != StateFailed {
				t.Errorf("expected StateFailed, got %v", lc.State())
			}
			if lc.FailedStage() != tt.failedAt {
				t.Errorf("expected failed stage %s, got %s", tt.failedAt, lc.FailedStage())
			}
			if StageName(lc.FailedStage()) != tt.stageName {
				t.Errorf("expected stage name %s, got %s", tt.stageName, StageName(lc.FailedStage()))
			}
		})
	}
}

func TestLifecycle_Fail_Idempotent(t *testing.T) {
	lc := NewLifecycle("sub-1")

	if !lc.Fail() {
		t.Error("expected first Fail() to return true")
	}
	if lc.Fail() {
		t.Error("expected second Fail() to return false")
	}
	if err := lc.Advance(StateDecoded); !errors.Is(err, ErrSubmissionFinished) {
		t.Errorf("expected ErrSubmissionFinished after fail, got %v", err)
	}
}

func TestLifecycle_Fail_AfterScored(t *testing.T) {
	lc := NewLifecycle("sub-1")
	lc.Advance(StateDecoded)
	lc.Advance(StateTranscribed)
	lc.Advance(StateScored)

	if lc.Fail() {
		t.Error("expected Fail() to return false from SCORED state")
	}
	if lc.State() != StateScored {
		t.Errorf("expected StateScored, got %v", lc.State())
	}
}

func TestState_String(t *testing.T) {
	tests := []struct {
		state    State
		expected string
	}{
		{StateReceived, "RECEIVED"},
		{StateDecoded, "DECODED"},
		{StateTranscribed, "TRANSCRIBED"},
		{StateScored, "SCORED"},
		{StateFailed, "FAILED"},
		{State(99), "UNKNOWN(99)"},
	}

	for _, tt := range tests {
		if got := tt.state.String(); got != tt.expected {
			t.Errorf("State(%d).String() = %v, want %v", tt.state, got, tt.expected)
		}
	}
}

func TestState_IsTerminal(t *testing.T) {
	tests := []struct {
		state      State
		isTerminal bool
	}{
		{StateReceived, false},
		{StateDecoded, false},
		{StateTranscribed, false},
		{StateScored, true},
		{StateFailed, true},
	}

	for _, tt := range tests {
		if got := tt.state.IsTerminal(); got != tt.isTerminal {
			t.Errorf("State(%s).IsTerminal() = %v, want %v", tt.state, got, tt.isTerminal)
		}
	}
}
