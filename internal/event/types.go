// Package event defines the publish/subscribe layer that decouples the
// game engine from its observers. The engine publishes every externally
// visible moment of a match (phase changes, statements, ballots,
// eliminations) and observers such as the console display or the report
// writer subscribe without the engine knowing about them.
package event

import "time"

// Event is the interface all published events implement.
type Event interface {
	// EventType returns a string identifier for this event type.
	// Convention: "category.action" (e.g., "phase.changed", "vote.cast")
	EventType() string

	// Timestamp returns when the event occurred.
	Timestamp() time.Time
}

// baseEvent provides the common fields for all events. Embed it in
// concrete event types to satisfy the Event interface.
type baseEvent struct {
	eventType string
	timestamp time.Time
}

func (e baseEvent) EventType() string    { return e.eventType }
func (e baseEvent) Timestamp() time.Time { return e.timestamp }

func newBaseEvent(eventType string) baseEvent {
	return baseEvent{
		eventType: eventType,
		timestamp: time.Now(),
	}
}

// -----------------------------------------------------------------------------
// Session Lifecycle Events
// -----------------------------------------------------------------------------

// SessionCreatedEvent is emitted when a new game session is assembled,
// before any round has been played.
type SessionCreatedEvent struct {
	baseEvent
	SessionID string   // Unique identifier for the session
	Players   []string // Player names in speaking order
	Minority  int      // Number of players dealt the minority word
}

// NewSessionCreatedEvent creates a SessionCreatedEvent.
func NewSessionCreatedEvent(sessionID string, players []string, minority int) SessionCreatedEvent {
	return SessionCreatedEvent{
		baseEvent: newBaseEvent("session.created"),
		SessionID: sessionID,
		Players:   players,
		Minority:  minority,
	}
}

// PhaseChangedEvent is emitted on every phase transition of the session
// state machine.
type PhaseChangedEvent struct {
	baseEvent
	SessionID     string // Session whose phase changed
	PreviousPhase string // Previous phase name (empty on first transition)
	CurrentPhase  string // New current phase name
	Round         int    // Round number at the time of the transition
}

// NewPhaseChangedEvent creates a PhaseChangedEvent.
func NewPhaseChangedEvent(sessionID, previousPhase, currentPhase string, round int) PhaseChangedEvent {
	return PhaseChangedEvent{
		baseEvent:     newBaseEvent("phase.changed"),
		SessionID:     sessionID,
		PreviousPhase: previousPhase,
		CurrentPhase:  currentPhase,
		Round:         round,
	}
}

// RoundStartedEvent is emitted when a new round opens.
type RoundStartedEvent struct {
	baseEvent
	SessionID string   // Session the round belongs to
	Round     int      // 1-based round number
	Alive     []string // Players still in the game, in speaking order
}

// NewRoundStartedEvent creates a RoundStartedEvent.
func NewRoundStartedEvent(sessionID string, round int, alive []string) RoundStartedEvent {
	return RoundStartedEvent{
		baseEvent: newBaseEvent("round.started"),
		SessionID: sessionID,
		Round:     round,
		Alive:     alive,
	}
}

// -----------------------------------------------------------------------------
// Description Events
// -----------------------------------------------------------------------------

// StatementIssuedEvent is emitted when a player's description for the
// current round is recorded, including fallback statements substituted
// after an agent failure.
type StatementIssuedEvent struct {
	baseEvent
	SessionID string // Session the statement belongs to
	Round     int    // Round the statement was made in
	Player    string // Player who spoke
	Statement string // The recorded statement text
	Fallback  bool   // True if the statement is the engine's substitute
}

// NewStatementIssuedEvent creates a StatementIssuedEvent.
func NewStatementIssuedEvent(sessionID string, round int, player, statement string, fallback bool) StatementIssuedEvent {
	return StatementIssuedEvent{
		baseEvent: newBaseEvent("statement.issued"),
		SessionID: sessionID,
		Round:     round,
		Player:    player,
		Statement: statement,
		Fallback:  fallback,
	}
}

// -----------------------------------------------------------------------------
// Voting Events
// -----------------------------------------------------------------------------

// VoteCastEvent is emitted for every recorded ballot on either track.
type VoteCastEvent struct {
	baseEvent
	SessionID string // Session the ballot belongs to
	Round     int    // Round the ballot was cast in
	Voter     string // Player who voted
	Target    string // Player the ballot names
	Track     string // "primary" or "advisory"
	Stage     string // "initial" or "revote"
	Fallback  bool   // True if the ballot was chosen by the engine
}

// NewVoteCastEvent creates a VoteCastEvent.
func NewVoteCastEvent(sessionID string, round int, voter, target, track, stage string, fallback bool) VoteCastEvent {
	return VoteCastEvent{
		baseEvent: newBaseEvent("vote.cast"),
		SessionID: sessionID,
		Round:     round,
		Voter:     voter,
		Target:    target,
		Track:     track,
		Stage:     stage,
		Fallback:  fallback,
	}
}

// VoteTalliedEvent is emitted after the ballots of a voting stage have
// been counted.
type VoteTalliedEvent struct {
	baseEvent
	SessionID string         // Session the tally belongs to
	Round     int            // Round the tally was computed in
	Track     string         // "primary" or "advisory"
	Stage     string         // "initial" or "revote"
	Tally     map[string]int // Votes received per player
	Leaders   []string       // Players tied for the most votes, in speaking order
	Tied      bool           // True if more than one player leads
}

// NewVoteTalliedEvent creates a VoteTalliedEvent.
func NewVoteTalliedEvent(sessionID string, round int, track, stage string, tally map[string]int, leaders []string) VoteTalliedEvent {
	return VoteTalliedEvent{
		baseEvent: newBaseEvent("vote.tallied"),
		SessionID: sessionID,
		Round:     round,
		Track:     track,
		Stage:     stage,
		Tally:     tally,
		Leaders:   leaders,
		Tied:      len(leaders) > 1,
	}
}

// DebateStatementEvent is emitted when a tied player defends themselves
// during a tie-break debate.
type DebateStatementEvent struct {
	baseEvent
	SessionID string // Session the debate belongs to
	Round     int    // Round the debate occurred in
	Player    string // Tied player who spoke
	Statement string // Defense statement text
}

// NewDebateStatementEvent creates a DebateStatementEvent.
func NewDebateStatementEvent(sessionID string, round int, player, statement string) DebateStatementEvent {
	return DebateStatementEvent{
		baseEvent: newBaseEvent("debate.statement"),
		SessionID: sessionID,
		Round:     round,
		Player:    player,
		Statement: statement,
	}
}

// -----------------------------------------------------------------------------
// Elimination Events
// -----------------------------------------------------------------------------

// PlayerEliminatedEvent is emitted when a player leaves the game.
type PlayerEliminatedEvent struct {
	baseEvent
	SessionID    string // Session the elimination belongs to
	Round        int    // Round the player was eliminated in
	Player       string // Eliminated player
	Role         string // Role revealed on elimination ("minority" or "majority")
	Track        string // Track that produced the elimination
	LeaveMessage string // Farewell collected from the player (may be empty)
}

// NewPlayerEliminatedEvent creates a PlayerEliminatedEvent.
func NewPlayerEliminatedEvent(sessionID string, round int, player, role, track, leaveMessage string) PlayerEliminatedEvent {
	return PlayerEliminatedEvent{
		baseEvent:    newBaseEvent("player.eliminated"),
		SessionID:    sessionID,
		Round:        round,
		Player:       player,
		Role:         role,
		Track:        track,
		LeaveMessage: leaveMessage,
	}
}

// -----------------------------------------------------------------------------
// Game End Events
// -----------------------------------------------------------------------------

// GameEndedEvent is emitted exactly once, when a win condition is met.
type GameEndedEvent struct {
	baseEvent
	SessionID string   // Finished session
	Winner    string   // "minority" or "majority"
	Rounds    int      // Number of rounds played
	Survivors []string // Players still alive at the end, in speaking order
}

// NewGameEndedEvent creates a GameEndedEvent.
func NewGameEndedEvent(sessionID, winner string, rounds int, survivors []string) GameEndedEvent {
	return GameEndedEvent{
		baseEvent: newBaseEvent("game.ended"),
		SessionID: sessionID,
		Winner:    winner,
		Rounds:    rounds,
		Survivors: survivors,
	}
}

// -----------------------------------------------------------------------------
// Agent Events
// -----------------------------------------------------------------------------

// AgentFailureEvent is emitted when an agent call fails after retries
// and the engine substitutes a fallback action.
type AgentFailureEvent struct {
	baseEvent
	SessionID  string // Session the failure occurred in
	Player     string // Player whose agent failed
	Capability string // What was requested ("describe", "vote", "leave", ...)
	Error      string // Final error after retries
}

// NewAgentFailureEvent creates an AgentFailureEvent.
func NewAgentFailureEvent(sessionID, player, capability, errMsg string) AgentFailureEvent {
	return AgentFailureEvent{
		baseEvent:  newBaseEvent("agent.failure"),
		SessionID:  sessionID,
		Player:     player,
		Capability: capability,
		Error:      errMsg,
	}
}
