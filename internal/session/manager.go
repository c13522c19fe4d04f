// Package session implements the game session manager: lifecycle,
// the phase state machine, round bookkeeping, vote recording and
// tallying, history formatting and win-condition evaluation. It is the
// only component that mutates a game.Session.
package session

import (
	"fmt"
	"math/rand"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/undercover-ai/undercover/internal/errors"
	"github.com/undercover-ai/undercover/internal/event"
	"github.com/undercover-ai/undercover/internal/game"
	"github.com/undercover-ai/undercover/internal/logging"
	"github.com/undercover-ai/undercover/internal/memory"
)

// MinPlayers is the smallest roster the engine accepts.
const MinPlayers = 3

// validTransitions is the phase state machine. Any transition not in
// this table is a fatal caller error.
var validTransitions = map[game.Phase][]game.Phase{
	game.PhaseWaiting:     {game.PhaseInit},
	game.PhaseInit:        {game.PhaseDescription},
	game.PhaseDescription: {game.PhaseVoting},
	game.PhaseVoting:      {game.PhaseElimination},
	game.PhaseElimination: {game.PhaseDescription, game.PhaseFinished},
}

// PlayerSpec names one roster entry and the capability backing it.
type PlayerSpec struct {
	Name  string
	Model string
}

// Manager owns one game session and is the sole writer of its state.
// All randomness is drawn from the injected source so runs are
// reproducible under test.
type Manager struct {
	session *game.Session
	bus     *event.Bus
	rng     *rand.Rand
	logger  *logging.Logger

	memoryMaxTokens      int
	memoryRecentMessages int
}

// Option configures a Manager.
type Option func(*Manager)

// WithMemoryBudget sets the per-player conversation memory limits.
func WithMemoryBudget(maxTokens, recentMessages int) Option {
	return func(m *Manager) {
		m.memoryMaxTokens = maxTokens
		m.memoryRecentMessages = recentMessages
	}
}

// NewManager creates a Manager publishing to bus and drawing randomness
// from rng. A nil logger is replaced with a no-op logger.
func NewManager(bus *event.Bus, rng *rand.Rand, logger *logging.Logger, opts ...Option) *Manager {
	if logger == nil {
		logger = logging.NopLogger()
	}
	m := &Manager{
		bus:                  bus,
		rng:                  rng,
		logger:               logger,
		memoryMaxTokens:      memory.DefaultMaxTokens,
		memoryRecentMessages: memory.DefaultRecentMessages,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Session returns the managed session, or nil before CreateSession.
func (m *Manager) Session() *game.Session {
	return m.session
}

// CreateSession validates the roster and builds a fresh session in the
// Waiting phase with a randomly shuffled speaking order.
func (m *Manager) CreateSession(roster []PlayerSpec, minorityCount int) (*game.Session, error) {
	if len(roster) < MinPlayers {
		return nil, errors.NewSessionError("create_session",
			fmt.Errorf("%w: got %d", errors.ErrRosterTooSmall, len(roster)))
	}
	if minorityCount <= 0 || minorityCount >= len(roster) {
		return nil, errors.NewSessionError("create_session",
			fmt.Errorf("%w: %d of %d players", errors.ErrInvalidMinorityCount, minorityCount, len(roster)))
	}

	players := make(map[string]*game.PlayerSession, len(roster))
	order := make([]string, 0, len(roster))
	for _, spec := range roster {
		if _, exists := players[spec.Name]; exists {
			return nil, errors.NewSessionError("create_session",
				fmt.Errorf("%w: %s", errors.ErrDuplicatePlayerName, spec.Name)).WithPlayer(spec.Name)
		}
		players[spec.Name] = &game.PlayerSession{
			ID:    uuid.NewString()[:8],
			Name:  spec.Name,
			Model: spec.Model,
			Alive: true,
		}
		order = append(order, spec.Name)
	}

	m.rng.Shuffle(len(order), func(i, j int) {
		order[i], order[j] = order[j], order[i]
	})

	m.session = &game.Session{
		ID:            uuid.NewString()[:8],
		PlayerCount:   len(roster),
		MinorityCount: minorityCount,
		Players:       players,
		SpeakingOrder: order,
		Phase:         game.PhaseWaiting,
	}

	m.logger.Info("session created",
		"session_id", m.session.ID,
		"players", len(roster),
		"minority", minorityCount,
		"speaking_order", strings.Join(order, " -> "))

	m.publish(event.NewSessionCreatedEvent(m.session.ID, append([]string(nil), order...), minorityCount))
	return m.session, nil
}

// InitializeGame deals roles and secret words, seeds every player's
// conversation memory with its system prompt, and moves the session
// from Waiting to Init. Minority players are drawn uniformly at random
// without replacement.
func (m *Manager) InitializeGame(majorityWord, minorityWord string) error {
	if m.session == nil {
		return errors.NewSessionError("initialize_game", errors.ErrNoActiveSession)
	}
	if m.session.Phase != game.PhaseWaiting {
		return errors.NewSessionError("initialize_game",
			fmt.Errorf("%w: %s -> %s", errors.ErrInvalidTransition, m.session.Phase, game.PhaseInit)).
			WithSession(m.session.ID)
	}

	m.session.MajorityWord = majorityWord
	m.session.MinorityWord = minorityWord
	m.session.StartedAt = time.Now()

	names := append([]string(nil), m.session.SpeakingOrder...)
	m.rng.Shuffle(len(names), func(i, j int) {
		names[i], names[j] = names[j], names[i]
	})
	minority := make(map[string]bool, m.session.MinorityCount)
	for _, name := range names[:m.session.MinorityCount] {
		minority[name] = true
	}

	for name, player := range m.session.Players {
		if minority[name] {
			player.Role = game.RoleMinority
			player.Word = minorityWord
		} else {
			player.Role = game.RoleMajority
			player.Word = majorityWord
		}
		player.Context = memory.NewContext(name,
			memory.WithMaxTokens(m.memoryMaxTokens),
			memory.WithRecentMessages(m.memoryRecentMessages))
		player.Context.Add(memory.RoleSystem, BuildSystemPrompt(player))

		m.logger.Debug("role assigned",
			"session_id", m.session.ID,
			"player", name,
			"role", string(player.Role))
	}

	return m.TransitionPhase(game.PhaseInit)
}

// TransitionPhase moves the session to the target phase, enforcing the
// transition table.
func (m *Manager) TransitionPhase(to game.Phase) error {
	if m.session == nil {
		return errors.NewSessionError("transition_phase", errors.ErrNoActiveSession)
	}

	from := m.session.Phase
	allowed := false
	for _, next := range validTransitions[from] {
		if next == to {
			allowed = true
			break
		}
	}
	if !allowed {
		return errors.NewSessionError("transition_phase",
			fmt.Errorf("%w: %s -> %s", errors.ErrInvalidTransition, from, to)).
			WithSession(m.session.ID)
	}

	m.session.Phase = to
	m.logger.Info("phase changed",
		"session_id", m.session.ID,
		"from", string(from),
		"to", string(to))
	m.publish(event.NewPhaseChangedEvent(m.session.ID, string(from), string(to), m.session.Round))
	return nil
}

// StartNewRound increments the round counter, opens a fresh ledger and
// transitions to the Description phase.
func (m *Manager) StartNewRound() (int, error) {
	if m.session == nil {
		return 0, errors.NewSessionError("start_new_round", errors.ErrNoActiveSession)
	}

	m.session.Round++
	if err := m.TransitionPhase(game.PhaseDescription); err != nil {
		m.session.Round--
		return 0, err
	}
	m.session.Rounds = append(m.session.Rounds, game.NewRoundRecord(m.session.Round))

	m.logger.Info("round started", "session_id", m.session.ID, "round", m.session.Round)
	m.publish(event.NewRoundStartedEvent(m.session.ID, m.session.Round, m.AliveSpeakingOrder()))
	return m.session.Round, nil
}

// EndSession records the winner, stamps the end time and moves the
// session to Finished. The session is read-only afterwards.
func (m *Manager) EndSession(winner game.Winner) error {
	if m.session == nil {
		return errors.NewSessionError("end_session", errors.ErrNoActiveSession)
	}
	if err := m.TransitionPhase(game.PhaseFinished); err != nil {
		return err
	}

	m.session.Winner = winner
	m.session.EndedAt = time.Now()

	m.logger.Info("game ended",
		"session_id", m.session.ID,
		"winner", string(winner),
		"rounds", m.session.Round,
		"duration", m.session.EndedAt.Sub(m.session.StartedAt).String())
	m.publish(event.NewGameEndedEvent(m.session.ID, string(winner), m.session.Round, m.AliveSpeakingOrder()))
	return nil
}

// AliveSpeakingOrder returns the alive players in canonical speaking
// order. All per-round iteration and result application uses this
// ordering so runs are deterministic regardless of network timing.
func (m *Manager) AliveSpeakingOrder() []string {
	if m.session == nil {
		return nil
	}
	return m.session.AliveNames()
}

// Player returns the named player or a fatal error.
func (m *Manager) Player(name string) (*game.PlayerSession, error) {
	if m.session == nil {
		return nil, errors.NewSessionError("player", errors.ErrNoActiveSession)
	}
	player, ok := m.session.Players[name]
	if !ok {
		return nil, errors.NewSessionError("player",
			fmt.Errorf("%w: %s", errors.ErrPlayerNotFound, name)).
			WithSession(m.session.ID).WithPlayer(name)
	}
	return player, nil
}

// currentRound returns the open ledger or a fatal error.
func (m *Manager) currentRound(op string) (*game.RoundRecord, error) {
	if m.session == nil {
		return nil, errors.NewSessionError(op, errors.ErrNoActiveSession)
	}
	record := m.session.CurrentRound()
	if record == nil {
		return nil, errors.NewSessionError(op, errors.ErrNoActiveRound).WithSession(m.session.ID)
	}
	return record, nil
}

// RecordStatement writes a player's description for the current round
// into the round ledger and the player's audit trail.
func (m *Manager) RecordStatement(name, statement string, fallback bool) error {
	record, err := m.currentRound("record_statement")
	if err != nil {
		return err
	}
	player, err := m.Player(name)
	if err != nil {
		return err
	}

	record.Statements[name] = statement
	player.Statements = append(player.Statements, statement)

	m.logger.Info("statement recorded",
		"session_id", m.session.ID,
		"round", record.Number,
		"player", name,
		"fallback", fallback,
		"statement", statement)
	m.publish(event.NewStatementIssuedEvent(m.session.ID, record.Number, name, statement, fallback))
	return nil
}

// RecordDebateStatement writes a tied candidate's defense statement
// into the round ledger.
func (m *Manager) RecordDebateStatement(name, statement string) error {
	record, err := m.currentRound("record_debate_statement")
	if err != nil {
		return err
	}
	if _, err := m.Player(name); err != nil {
		return err
	}

	record.DebateStatements[name] = statement
	m.publish(event.NewDebateStatementEvent(m.session.ID, record.Number, name, statement))
	return nil
}

// RecordVote writes a ballot into the given track's ledger. A revote
// overwrites the voter's earlier ballot on the same track.
func (m *Manager) RecordVote(voter, target string, track game.VoteTrack, stage game.VoteStage, fallback bool) error {
	record, err := m.currentRound("record_vote")
	if err != nil {
		return err
	}
	player, err := m.Player(voter)
	if err != nil {
		return err
	}
	if _, err := m.Player(target); err != nil {
		return err
	}

	switch track {
	case game.TrackAdvisory:
		record.AdvisoryVotes[voter] = target
	default:
		record.Votes[voter] = target
		player.Votes = append(player.Votes, target)
	}

	m.logger.Info("vote recorded",
		"session_id", m.session.ID,
		"round", record.Number,
		"voter", voter,
		"target", target,
		"track", string(track),
		"stage", string(stage),
		"fallback", fallback)
	m.publish(event.NewVoteCastEvent(m.session.ID, record.Number, voter, target, string(track), string(stage), fallback))
	return nil
}

// TallyVotes counts the ballots of a track, stores the tally in the
// round ledger and returns it with the leaders ordered by speaking
// order. The tally is a pure function of the ballot map, independent of
// arrival order.
func (m *Manager) TallyVotes(track game.VoteTrack, stage game.VoteStage) (map[string]int, []string, error) {
	record, err := m.currentRound("tally_votes")
	if err != nil {
		return nil, nil, err
	}

	ballots := record.Votes
	if track == game.TrackAdvisory {
		ballots = record.AdvisoryVotes
	}

	tally := make(map[string]int)
	for _, target := range ballots {
		tally[target]++
	}

	if track == game.TrackAdvisory {
		record.AdvisoryTally = tally
	} else {
		record.Tally = tally
	}

	leaders := m.leaders(tally)
	m.logger.Info("votes tallied",
		"session_id", m.session.ID,
		"round", record.Number,
		"track", string(track),
		"stage", string(stage),
		"tally", fmt.Sprintf("%v", tally),
		"leaders", strings.Join(leaders, ","))
	m.publish(event.NewVoteTalliedEvent(m.session.ID, record.Number, string(track), string(stage), tally, leaders))
	return tally, leaders, nil
}

// leaders returns the players tied for the maximum tally, ordered by
// speaking order so downstream random choices are reproducible.
func (m *Manager) leaders(tally map[string]int) []string {
	max := 0
	for _, count := range tally {
		if count > max {
			max = count
		}
	}
	if max == 0 {
		return nil
	}

	var out []string
	for _, name := range m.session.SpeakingOrder {
		if tally[name] == max {
			out = append(out, name)
		}
	}
	// tally keys not in the speaking order cannot exist; ballots are
	// validated against the roster when recorded.
	return out
}

// EliminatePlayer marks the player dead, appends the elimination to the
// current round ledger and publishes the event. The leave message is
// attached as-is; collecting it is the engine's job.
func (m *Manager) EliminatePlayer(name string, track game.VoteTrack, leaveMessage string) error {
	record, err := m.currentRound("eliminate_player")
	if err != nil {
		return err
	}
	player, err := m.Player(name)
	if err != nil {
		return err
	}

	player.Alive = false
	record.Eliminations = append(record.Eliminations, game.Elimination{
		Player:       name,
		Role:         player.Role,
		Track:        track,
		LeaveMessage: leaveMessage,
	})

	m.logger.Info("player eliminated",
		"session_id", m.session.ID,
		"round", record.Number,
		"player", name,
		"role", string(player.Role),
		"track", string(track))
	m.publish(event.NewPlayerEliminatedEvent(m.session.ID, record.Number, name, string(player.Role), string(track), leaveMessage))
	return nil
}

// CheckWinCondition evaluates the win condition from the current alive
// counts.
func (m *Manager) CheckWinCondition() game.Winner {
	if m.session == nil {
		return game.WinnerNone
	}
	minority, majority := m.session.AliveCounts()
	return game.EvaluateWinner(minority, majority)
}

// FormatRoundHistory renders all completed rounds (everything but the
// current one) as plain text for agent prompts.
func (m *Manager) FormatRoundHistory() string {
	if m.session == nil || len(m.session.Rounds) == 0 {
		return "(this is the first round)"
	}

	var lines []string
	for _, record := range m.session.Rounds[:len(m.session.Rounds)-1] {
		lines = append(lines, fmt.Sprintf("=== Round %d ===", record.Number))
		for _, name := range m.session.SpeakingOrder {
			if statement, ok := record.Statements[name]; ok {
				lines = append(lines, fmt.Sprintf("[%s]: %s", name, statement))
			}
		}
		for _, elim := range record.Eliminations {
			lines = append(lines, fmt.Sprintf("Eliminated this round: %s (%s)", elim.Player, elim.Role))
		}
	}
	if len(lines) == 0 {
		return "(this is the first round)"
	}
	return strings.Join(lines, "\n")
}

// FormatCurrentRoundStatements renders the statements given so far this
// round, in speaking order.
func (m *Manager) FormatCurrentRoundStatements() string {
	if m.session == nil {
		return ""
	}
	record := m.session.CurrentRound()
	if record == nil {
		return ""
	}

	var lines []string
	for _, name := range m.session.SpeakingOrder {
		if statement, ok := record.Statements[name]; ok {
			lines = append(lines, fmt.Sprintf("[%s]: %s", name, statement))
		}
	}
	return strings.Join(lines, "\n")
}

// FormatDebateStatements renders the tie-break defenses of the current
// round, tied candidates first in speaking order.
func (m *Manager) FormatDebateStatements() string {
	if m.session == nil {
		return ""
	}
	record := m.session.CurrentRound()
	if record == nil || len(record.DebateStatements) == 0 {
		return ""
	}

	names := make([]string, 0, len(record.DebateStatements))
	for name := range record.DebateStatements {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		return m.speakingIndex(names[i]) < m.speakingIndex(names[j])
	})

	var lines []string
	for _, name := range names {
		lines = append(lines, fmt.Sprintf("[%s defends]: %s", name, record.DebateStatements[name]))
	}
	return strings.Join(lines, "\n")
}

func (m *Manager) speakingIndex(name string) int {
	for i, n := range m.session.SpeakingOrder {
		if n == name {
			return i
		}
	}
	return len(m.session.SpeakingOrder)
}

// publish sends an event if a bus is attached.
func (m *Manager) publish(e event.Event) {
	if m.bus != nil {
		m.bus.Publish(e)
	}
}
