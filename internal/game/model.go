// Package game holds the data model of a match: roles, phases, players,
// rounds and the session that ties them together. The types here are
// pure state; all mutation goes through the session manager.
package game

import (
	"time"

	"github.com/undercover-ai/undercover/internal/memory"
)

// Role is a player's faction, fixed for the whole game once dealt.
type Role string

const (
	RoleMajority Role = "majority"
	RoleMinority Role = "minority"
)

// Phase is the current stage of the session state machine.
type Phase string

const (
	PhaseWaiting     Phase = "waiting"
	PhaseInit        Phase = "init"
	PhaseDescription Phase = "description"
	PhaseVoting      Phase = "voting"
	PhaseElimination Phase = "elimination"
	PhaseFinished    Phase = "finished"
)

// VoteTrack distinguishes the two ballot ledgers of a round.
type VoteTrack string

const (
	// TrackPrimary is the elimination vote every alive player casts.
	TrackPrimary VoteTrack = "primary"
	// TrackAdvisory is the optional lower-stakes ballot that eliminates
	// only under a stricter threshold.
	TrackAdvisory VoteTrack = "advisory"
)

// VoteStage distinguishes the initial ballot from a tie-break revote.
type VoteStage string

const (
	StageInitial VoteStage = "initial"
	StageRevote  VoteStage = "revote"
)

// Winner is the outcome of the win-condition evaluator.
type Winner string

const (
	// WinnerNone means the game continues.
	WinnerNone     Winner = ""
	WinnerMajority Winner = "majority"
	WinnerMinority Winner = "minority"
)

// PlayerSession is the per-player state: identity, faction, secret word,
// liveness and the append-only audit trail of everything the player did.
type PlayerSession struct {
	ID    string
	Name  string
	Model string // backing capability identifier, e.g. a model name

	Role  Role
	Word  string
	Alive bool

	// Context is the player's private conversation memory.
	Context *memory.Context

	// Statements and Votes are append-only audit trails kept alongside
	// the per-round ledgers.
	Statements []string
	Votes      []string
}

// Elimination records one player leaving the game.
type Elimination struct {
	Player       string
	Role         Role
	Track        VoteTrack
	LeaveMessage string
}

// RoundRecord is the ledger of a single round. It is created when the
// round starts and closed out by the elimination step; the elimination
// fields are filled exactly once.
type RoundRecord struct {
	Number int
	Phase  Phase

	// Statements maps player name to the description given this round,
	// including fallback statements.
	Statements map[string]string

	// Votes and Tally are the primary elimination track. AdvisoryVotes
	// and AdvisoryTally are the optional secondary track. Voter->target
	// maps reflect the final ballot of each voter (revotes overwrite).
	Votes         map[string]string
	Tally         map[string]int
	AdvisoryVotes map[string]string
	AdvisoryTally map[string]int

	// DebateStatements are the defenses given during a tie-break,
	// keyed by the tied candidate's name.
	DebateStatements map[string]string

	Eliminations []Elimination
	StartedAt    time.Time
}

// NewRoundRecord creates an empty ledger for the given round number.
func NewRoundRecord(number int) *RoundRecord {
	return &RoundRecord{
		Number:           number,
		Phase:            PhaseDescription,
		Statements:       make(map[string]string),
		Votes:            make(map[string]string),
		Tally:            make(map[string]int),
		AdvisoryVotes:    make(map[string]string),
		AdvisoryTally:    make(map[string]int),
		DebateStatements: make(map[string]string),
		StartedAt:        time.Now(),
	}
}

// Session is the complete state of one game.
type Session struct {
	ID            string
	PlayerCount   int
	MinorityCount int

	MajorityWord string
	MinorityWord string

	// Players is keyed by unique player name.
	Players map[string]*PlayerSession

	// SpeakingOrder is a fixed random permutation of player names,
	// generated once at creation and never reordered.
	SpeakingOrder []string

	Rounds []*RoundRecord

	Phase  Phase
	Round  int
	Winner Winner

	StartedAt time.Time
	EndedAt   time.Time
}

// CurrentRound returns the most recent round ledger, or nil before the
// first round starts.
func (s *Session) CurrentRound() *RoundRecord {
	if len(s.Rounds) == 0 {
		return nil
	}
	return s.Rounds[len(s.Rounds)-1]
}

// AliveNames returns the alive players filtered through the speaking
// order, preserving their relative positions.
func (s *Session) AliveNames() []string {
	var alive []string
	for _, name := range s.SpeakingOrder {
		if p, ok := s.Players[name]; ok && p.Alive {
			alive = append(alive, name)
		}
	}
	return alive
}

// AliveCounts returns the number of alive minority and majority players.
func (s *Session) AliveCounts() (minority, majority int) {
	for _, p := range s.Players {
		if !p.Alive {
			continue
		}
		if p.Role == RoleMinority {
			minority++
		} else {
			majority++
		}
	}
	return minority, majority
}

// EvaluateWinner is the pure win-condition function. It depends only on
// the two alive counts: with no minority left the majority wins; once
// the minority matches or outnumbers the majority it wins; otherwise
// the game continues.
func EvaluateWinner(aliveMinority, aliveMajority int) Winner {
	switch {
	case aliveMinority == 0:
		return WinnerMajority
	case aliveMinority >= aliveMajority:
		return WinnerMinority
	default:
		return WinnerNone
	}
}
