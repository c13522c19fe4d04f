// Package errors provides centralized error definitions and error handling
// utilities for the undercover engine. It defines domain-specific errors,
// sentinel errors, and classification helpers that distinguish recoverable
// agent failures from fatal misuse of the engine's contract.
//
// Two categories matter here:
//
// Fatal errors indicate a caller bug, not a runtime condition: an invalid
// phase transition, mutating a session when none is active, referencing an
// unknown player, or creating a session with an out-of-range minority count.
// These are never retried.
//
// Recoverable errors come from a single agent call failing, timing out, or
// returning an unusable target. The engine substitutes a fallback and keeps
// the round alive; they surface as warnings, never as aborts.
package errors

import (
	"errors"
	"fmt"
)

// Re-export standard library functions so callers can import only this
// package for error handling.
var (
	Is     = errors.Is
	As     = errors.As
	Unwrap = errors.Unwrap
	New    = errors.New
	Join   = errors.Join
)

// Session-related sentinel errors. All of these are fatal.
var (
	// ErrNoActiveSession indicates a session-mutating call before CreateSession.
	ErrNoActiveSession = New("no active session")
	// ErrNoActiveRound indicates a round-mutating call before StartNewRound.
	ErrNoActiveRound = New("no active round")
	// ErrPlayerNotFound indicates a reference to a player name not in the roster.
	ErrPlayerNotFound = New("player not found")
	// ErrSessionFinished indicates a mutation attempt on a finished session.
	ErrSessionFinished = New("session already finished")
)

// Configuration sentinel errors, raised before any role assignment happens.
var (
	// ErrInvalidMinorityCount indicates minority_count outside (0, roster size).
	ErrInvalidMinorityCount = New("minority count out of range")
	// ErrRosterTooSmall indicates fewer than the minimum three players.
	ErrRosterTooSmall = New("roster needs at least 3 players")
	// ErrDuplicatePlayerName indicates two roster entries share a name.
	ErrDuplicatePlayerName = New("duplicate player name")
)

// Phase machine sentinel errors.
var (
	// ErrInvalidTransition indicates a phase transition outside the table.
	ErrInvalidTransition = New("invalid phase transition")
)

// Agent-related sentinel errors. All of these are recoverable.
var (
	// ErrAgentTimeout indicates an agent call exceeded its per-call deadline.
	ErrAgentTimeout = New("agent call timed out")
	// ErrAgentFailed indicates an agent call returned an error.
	ErrAgentFailed = New("agent call failed")
	// ErrInvalidBallot indicates a ballot naming a non-candidate or nothing at all.
	ErrInvalidBallot = New("ballot does not name a valid candidate")
)

// SessionError wraps an error from session lifecycle or state machine code
// with the session and player it concerns.
type SessionError struct {
	// Op is the operation that failed, e.g. "transition_phase".
	Op string
	// Session is the session ID, if known.
	Session string
	// Player is the player name the operation referenced, if any.
	Player string
	// Err is the underlying error.
	Err error
}

// NewSessionError creates a SessionError for the given operation.
func NewSessionError(op string, err error) *SessionError {
	return &SessionError{Op: op, Err: err}
}

// WithSession attaches a session ID and returns the error for chaining.
func (e *SessionError) WithSession(id string) *SessionError {
	e.Session = id
	return e
}

// WithPlayer attaches a player name and returns the error for chaining.
func (e *SessionError) WithPlayer(name string) *SessionError {
	e.Player = name
	return e
}

func (e *SessionError) Error() string {
	msg := "session: " + e.Op
	if e.Session != "" {
		msg += " [" + e.Session + "]"
	}
	if e.Player != "" {
		msg += " player=" + e.Player
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *SessionError) Unwrap() error { return e.Err }

// Is reports whether this error matches the target, delegating to the
// wrapped error so sentinel checks pass through the wrapper.
func (e *SessionError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// AgentError wraps a failure of a single agent call with the player and
// capability involved. AgentErrors are always recoverable: the engine
// records a fallback and continues.
type AgentError struct {
	// Player is the name of the player whose agent failed.
	Player string
	// Capability is the agent method, e.g. "describe" or "vote".
	Capability string
	// Err is the underlying error.
	Err error
}

// NewAgentError creates an AgentError for a failed capability call.
func NewAgentError(player, capability string, err error) *AgentError {
	return &AgentError{Player: player, Capability: capability, Err: err}
}

func (e *AgentError) Error() string {
	return fmt.Sprintf("agent %s: %s: %v", e.Player, e.Capability, e.Err)
}

func (e *AgentError) Unwrap() error { return e.Err }

// IsFatal reports whether err indicates misuse of the engine's contract.
// Fatal errors must not be retried or substituted with fallbacks.
func IsFatal(err error) bool {
	return Is(err, ErrNoActiveSession) ||
		Is(err, ErrNoActiveRound) ||
		Is(err, ErrPlayerNotFound) ||
		Is(err, ErrSessionFinished) ||
		Is(err, ErrInvalidMinorityCount) ||
		Is(err, ErrRosterTooSmall) ||
		Is(err, ErrDuplicatePlayerName) ||
		Is(err, ErrInvalidTransition)
}

// IsRecoverable reports whether err is a per-agent failure the engine
// handles with a fallback statement or ballot.
func IsRecoverable(err error) bool {
	if err == nil {
		return false
	}
	var agentErr *AgentError
	if As(err, &agentErr) {
		return true
	}
	return Is(err, ErrAgentTimeout) || Is(err, ErrAgentFailed) || Is(err, ErrInvalidBallot)
}
