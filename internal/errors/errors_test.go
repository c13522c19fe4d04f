package errors

import (
	"strings"
	"testing"
)

func TestSessionErrorWrapping(t *testing.T) {
	err := NewSessionError("transition_phase", ErrInvalidTransition).
		WithSession("game-1").
		WithPlayer("QWEN")

	if !Is(err, ErrInvalidTransition) {
		t.Error("SessionError should match its wrapped sentinel")
	}

	msg := err.Error()
	if msg == "" {
		t.Fatal("expected non-empty error message")
	}
	for _, want := range []string{"transition_phase", "game-1", "QWEN"} {
		if !strings.Contains(msg, want) {
			t.Errorf("error message %q missing %q", msg, want)
		}
	}
}

func TestAgentErrorWrapping(t *testing.T) {
	err := NewAgentError("KIMI", "describe", ErrAgentTimeout)

	if !Is(err, ErrAgentTimeout) {
		t.Error("AgentError should match its wrapped sentinel")
	}

	var agentErr *AgentError
	if !As(err, &agentErr) {
		t.Fatal("As should extract *AgentError")
	}
	if agentErr.Capability != "describe" {
		t.Errorf("Capability = %q, want describe", agentErr.Capability)
	}
}

func TestClassification(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		fatal       bool
		recoverable bool
	}{
		{"invalid transition", ErrInvalidTransition, true, false},
		{"no active session", ErrNoActiveSession, true, false},
		{"minority count", ErrInvalidMinorityCount, true, false},
		{"agent timeout", ErrAgentTimeout, false, true},
		{"invalid ballot", ErrInvalidBallot, false, true},
		{"wrapped agent error", NewAgentError("GLM", "vote", New("boom")), false, true},
		{"plain error", New("misc"), false, false},
		{"nil", nil, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsFatal(tt.err); got != tt.fatal {
				t.Errorf("IsFatal = %v, want %v", got, tt.fatal)
			}
			if got := IsRecoverable(tt.err); got != tt.recoverable {
				t.Errorf("IsRecoverable = %v, want %v", got, tt.recoverable)
			}
		})
	}
}
