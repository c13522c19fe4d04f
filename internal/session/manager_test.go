package session

import (
	"math/rand"
	"strings"
	"testing"

	"github.com/undercover-ai/undercover/internal/errors"
	"github.com/undercover-ai/undercover/internal/event"
	"github.com/undercover-ai/undercover/internal/game"
)

func testRoster(names ...string) []PlayerSpec {
	roster := make([]PlayerSpec, len(names))
	for i, name := range names {
		roster[i] = PlayerSpec{Name: name, Model: "test-model"}
	}
	return roster
}

func newTestManager(t *testing.T, seed int64) *Manager {
	t.Helper()
	return NewManager(event.NewBus(), rand.New(rand.NewSource(seed)), nil)
}

// startedManager returns a manager with a created, initialized session
// and the first round open.
func startedManager(t *testing.T, names ...string) *Manager {
	t.Helper()
	m := newTestManager(t, 1)
	if _, err := m.CreateSession(testRoster(names...), 1); err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	if err := m.InitializeGame("coffee", "tea"); err != nil {
		t.Fatalf("InitializeGame: %v", err)
	}
	if _, err := m.StartNewRound(); err != nil {
		t.Fatalf("StartNewRound: %v", err)
	}
	return m
}

func TestCreateSessionValidation(t *testing.T) {
	tests := []struct {
		name     string
		roster   []PlayerSpec
		minority int
		wantErr  error
	}{
		{"roster too small", testRoster("A", "B"), 1, errors.ErrRosterTooSmall},
		{"zero minority", testRoster("A", "B", "C"), 0, errors.ErrInvalidMinorityCount},
		{"minority equals roster", testRoster("A", "B", "C"), 3, errors.ErrInvalidMinorityCount},
		{"minority above roster", testRoster("A", "B", "C"), 5, errors.ErrInvalidMinorityCount},
		{"duplicate name", append(testRoster("A", "B", "C"), PlayerSpec{Name: "A"}), 1, errors.ErrDuplicatePlayerName},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newTestManager(t, 1)
			if _, err := m.CreateSession(tt.roster, tt.minority); !errors.Is(err, tt.wantErr) {
				t.Errorf("CreateSession error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestCreateSessionShufflesSpeakingOrder(t *testing.T) {
	m := newTestManager(t, 42)
	s, err := m.CreateSession(testRoster("A", "B", "C", "D", "E"), 1)
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}

	if len(s.SpeakingOrder) != 5 {
		t.Fatalf("speaking order has %d entries, want 5", len(s.SpeakingOrder))
	}
	seen := make(map[string]bool)
	for _, name := range s.SpeakingOrder {
		if seen[name] {
			t.Errorf("speaking order repeats %s", name)
		}
		seen[name] = true
	}
	if s.Phase != game.PhaseWaiting {
		t.Errorf("new session phase = %s, want waiting", s.Phase)
	}

	// Same seed, same order.
	m2 := newTestManager(t, 42)
	s2, err := m2.CreateSession(testRoster("A", "B", "C", "D", "E"), 1)
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	for i := range s.SpeakingOrder {
		if s.SpeakingOrder[i] != s2.SpeakingOrder[i] {
			t.Fatalf("speaking order not reproducible: %v vs %v", s.SpeakingOrder, s2.SpeakingOrder)
		}
	}
}

func TestInitializeGameAssignsRolesAndWords(t *testing.T) {
	m := newTestManager(t, 7)
	s, err := m.CreateSession(testRoster("A", "B", "C", "D", "E", "F", "G"), 2)
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	if err := m.InitializeGame("coffee", "tea"); err != nil {
		t.Fatalf("InitializeGame: %v", err)
	}

	minority := 0
	for name, p := range s.Players {
		switch p.Role {
		case game.RoleMinority:
			minority++
			if p.Word != "tea" {
				t.Errorf("%s: minority word = %s, want tea", name, p.Word)
			}
		case game.RoleMajority:
			if p.Word != "coffee" {
				t.Errorf("%s: majority word = %s, want coffee", name, p.Word)
			}
		default:
			t.Errorf("%s has no role", name)
		}
		if p.Context == nil {
			t.Fatalf("%s has no conversation context", name)
		}
		msgs := p.Context.Messages()
		if len(msgs) != 1 || msgs[0].Role != "system" {
			t.Errorf("%s context not seeded with system prompt", name)
		}
		if !strings.Contains(msgs[0].Content, p.Word) {
			t.Errorf("%s system prompt missing secret word", name)
		}
	}
	if minority != 2 {
		t.Errorf("%d minority players assigned, want 2", minority)
	}
	if s.Phase != game.PhaseInit {
		t.Errorf("phase after init = %s, want init", s.Phase)
	}
}

func TestPhaseTransitionTable(t *testing.T) {
	m := newTestManager(t, 1)
	if _, err := m.CreateSession(testRoster("A", "B", "C"), 1); err != nil {
		t.Fatalf("CreateSession: %v", err)
	}

	// Waiting cannot jump straight to voting.
	if err := m.TransitionPhase(game.PhaseVoting); !errors.Is(err, errors.ErrInvalidTransition) {
		t.Errorf("waiting->voting error = %v, want ErrInvalidTransition", err)
	}

	// Walk the happy path.
	steps := []game.Phase{
		game.PhaseInit,
		game.PhaseDescription,
		game.PhaseVoting,
		game.PhaseElimination,
		game.PhaseDescription,
		game.PhaseVoting,
		game.PhaseElimination,
		game.PhaseFinished,
	}
	for _, phase := range steps {
		if err := m.TransitionPhase(phase); err != nil {
			t.Fatalf("TransitionPhase(%s): %v", phase, err)
		}
	}

	// Finished is terminal.
	if err := m.TransitionPhase(game.PhaseDescription); !errors.Is(err, errors.ErrInvalidTransition) {
		t.Errorf("finished->description error = %v, want ErrInvalidTransition", err)
	}
}

func TestStartNewRoundIncrementsCounter(t *testing.T) {
	m := startedManager(t, "A", "B", "C", "D")

	s := m.Session()
	if s.Round != 1 || len(s.Rounds) != 1 {
		t.Fatalf("after first round: round=%d rounds=%d", s.Round, len(s.Rounds))
	}

	if err := m.TransitionPhase(game.PhaseVoting); err != nil {
		t.Fatal(err)
	}
	if err := m.TransitionPhase(game.PhaseElimination); err != nil {
		t.Fatal(err)
	}
	round, err := m.StartNewRound()
	if err != nil {
		t.Fatalf("StartNewRound: %v", err)
	}
	if round != 2 || s.Round != 2 || len(s.Rounds) != 2 {
		t.Errorf("after second round: returned=%d round=%d rounds=%d", round, s.Round, len(s.Rounds))
	}
}

func TestRecordVoteAndTally(t *testing.T) {
	m := startedManager(t, "A", "B", "C", "D", "E")
	if err := m.TransitionPhase(game.PhaseVoting); err != nil {
		t.Fatal(err)
	}

	votes := map[string]string{"A": "B", "C": "B", "D": "E", "E": "B", "B": "A"}
	for voter, target := range votes {
		if err := m.RecordVote(voter, target, game.TrackPrimary, game.StageInitial, false); err != nil {
			t.Fatalf("RecordVote(%s->%s): %v", voter, target, err)
		}
	}

	tally, leaders, err := m.TallyVotes(game.TrackPrimary, game.StageInitial)
	if err != nil {
		t.Fatalf("TallyVotes: %v", err)
	}
	if tally["B"] != 3 || tally["E"] != 1 || tally["A"] != 1 {
		t.Errorf("tally = %v", tally)
	}
	if len(leaders) != 1 || leaders[0] != "B" {
		t.Errorf("leaders = %v, want [B]", leaders)
	}
}

func TestRevoteOverwritesBallot(t *testing.T) {
	m := startedManager(t, "A", "B", "C")
	if err := m.TransitionPhase(game.PhaseVoting); err != nil {
		t.Fatal(err)
	}

	if err := m.RecordVote("A", "B", game.TrackPrimary, game.StageInitial, false); err != nil {
		t.Fatal(err)
	}
	if err := m.RecordVote("A", "C", game.TrackPrimary, game.StageRevote, false); err != nil {
		t.Fatal(err)
	}

	tally, leaders, err := m.TallyVotes(game.TrackPrimary, game.StageRevote)
	if err != nil {
		t.Fatal(err)
	}
	if tally["B"] != 0 || tally["C"] != 1 {
		t.Errorf("tally after revote = %v, want C:1", tally)
	}
	if len(leaders) != 1 || leaders[0] != "C" {
		t.Errorf("leaders = %v, want [C]", leaders)
	}
}

func TestAdvisoryTrackIsIndependent(t *testing.T) {
	m := startedManager(t, "A", "B", "C", "D")
	if err := m.TransitionPhase(game.PhaseVoting); err != nil {
		t.Fatal(err)
	}

	if err := m.RecordVote("A", "B", game.TrackAdvisory, game.StageInitial, false); err != nil {
		t.Fatal(err)
	}
	if err := m.RecordVote("C", "D", game.TrackPrimary, game.StageInitial, false); err != nil {
		t.Fatal(err)
	}

	primary, _, err := m.TallyVotes(game.TrackPrimary, game.StageInitial)
	if err != nil {
		t.Fatal(err)
	}
	advisory, _, err := m.TallyVotes(game.TrackAdvisory, game.StageInitial)
	if err != nil {
		t.Fatal(err)
	}
	if primary["B"] != 0 || primary["D"] != 1 {
		t.Errorf("primary tally = %v", primary)
	}
	if advisory["B"] != 1 || advisory["D"] != 0 {
		t.Errorf("advisory tally = %v", advisory)
	}
}

func TestTiedLeadersFollowSpeakingOrder(t *testing.T) {
	m := startedManager(t, "A", "B", "C", "D")
	if err := m.TransitionPhase(game.PhaseVoting); err != nil {
		t.Fatal(err)
	}

	// Two votes each for two different targets.
	if err := m.RecordVote("A", "B", game.TrackPrimary, game.StageInitial, false); err != nil {
		t.Fatal(err)
	}
	if err := m.RecordVote("C", "B", game.TrackPrimary, game.StageInitial, false); err != nil {
		t.Fatal(err)
	}
	if err := m.RecordVote("B", "D", game.TrackPrimary, game.StageInitial, false); err != nil {
		t.Fatal(err)
	}
	if err := m.RecordVote("D", "B", game.TrackPrimary, game.StageInitial, false); err != nil {
		t.Fatal(err)
	}
	// Moving A's ballot turns the 3-1 into a 2-2 tie.
	if err := m.RecordVote("A", "D", game.TrackPrimary, game.StageRevote, false); err != nil {
		t.Fatal(err)
	}

	_, leaders, err := m.TallyVotes(game.TrackPrimary, game.StageRevote)
	if err != nil {
		t.Fatal(err)
	}
	if len(leaders) != 2 {
		t.Fatalf("leaders = %v, want a 2-way tie", leaders)
	}

	order := m.Session().SpeakingOrder
	idx := func(name string) int {
		for i, n := range order {
			if n == name {
				return i
			}
		}
		return -1
	}
	if idx(leaders[0]) > idx(leaders[1]) {
		t.Errorf("leaders %v not in speaking order %v", leaders, order)
	}
}

func TestEliminatePlayer(t *testing.T) {
	m := startedManager(t, "A", "B", "C", "D")

	if err := m.EliminatePlayer("B", game.TrackPrimary, "good game all"); err != nil {
		t.Fatalf("EliminatePlayer: %v", err)
	}

	p, err := m.Player("B")
	if err != nil {
		t.Fatal(err)
	}
	if p.Alive {
		t.Error("eliminated player still alive")
	}

	record := m.Session().CurrentRound()
	if len(record.Eliminations) != 1 {
		t.Fatalf("round has %d eliminations, want 1", len(record.Eliminations))
	}
	elim := record.Eliminations[0]
	if elim.Player != "B" || elim.Track != game.TrackPrimary || elim.LeaveMessage != "good game all" {
		t.Errorf("elimination record = %+v", elim)
	}

	alive := m.AliveSpeakingOrder()
	for _, name := range alive {
		if name == "B" {
			t.Error("eliminated player still in alive speaking order")
		}
	}
	if len(alive) != 3 {
		t.Errorf("alive count = %d, want 3", len(alive))
	}

	if err := m.EliminatePlayer("Z", game.TrackPrimary, ""); !errors.Is(err, errors.ErrPlayerNotFound) {
		t.Errorf("eliminating unknown player error = %v, want ErrPlayerNotFound", err)
	}
}

func TestFatalErrorsWithoutSession(t *testing.T) {
	m := newTestManager(t, 1)

	if err := m.InitializeGame("a", "b"); !errors.Is(err, errors.ErrNoActiveSession) {
		t.Errorf("InitializeGame error = %v, want ErrNoActiveSession", err)
	}
	if _, err := m.StartNewRound(); !errors.Is(err, errors.ErrNoActiveSession) {
		t.Errorf("StartNewRound error = %v, want ErrNoActiveSession", err)
	}
	if err := m.RecordStatement("A", "hi", false); !errors.Is(err, errors.ErrNoActiveSession) {
		t.Errorf("RecordStatement error = %v, want ErrNoActiveSession", err)
	}
	if err := m.EndSession(game.WinnerMajority); !errors.Is(err, errors.ErrNoActiveSession) {
		t.Errorf("EndSession error = %v, want ErrNoActiveSession", err)
	}
}

func TestRecordStatementBeforeRoundFails(t *testing.T) {
	m := newTestManager(t, 1)
	if _, err := m.CreateSession(testRoster("A", "B", "C"), 1); err != nil {
		t.Fatal(err)
	}
	if err := m.RecordStatement("A", "hi", false); !errors.Is(err, errors.ErrNoActiveRound) {
		t.Errorf("RecordStatement error = %v, want ErrNoActiveRound", err)
	}
}

func TestFormatRoundHistory(t *testing.T) {
	m := startedManager(t, "A", "B", "C", "D")

	if got := m.FormatRoundHistory(); got != "(this is the first round)" {
		t.Errorf("first round history = %q", got)
	}

	if err := m.RecordStatement("A", "round one statement", false); err != nil {
		t.Fatal(err)
	}
	if err := m.TransitionPhase(game.PhaseVoting); err != nil {
		t.Fatal(err)
	}
	if err := m.TransitionPhase(game.PhaseElimination); err != nil {
		t.Fatal(err)
	}
	if err := m.EliminatePlayer("D", game.TrackPrimary, ""); err != nil {
		t.Fatal(err)
	}
	if _, err := m.StartNewRound(); err != nil {
		t.Fatal(err)
	}

	history := m.FormatRoundHistory()
	if !strings.Contains(history, "=== Round 1 ===") {
		t.Errorf("history missing round header: %q", history)
	}
	if !strings.Contains(history, "[A]: round one statement") {
		t.Errorf("history missing statement: %q", history)
	}
	if !strings.Contains(history, "Eliminated this round: D") {
		t.Errorf("history missing elimination: %q", history)
	}
	// Current round must not leak into history.
	if err := m.RecordStatement("A", "round two statement", false); err != nil {
		t.Fatal(err)
	}
	if strings.Contains(m.FormatRoundHistory(), "round two statement") {
		t.Error("current round leaked into history")
	}
	if !strings.Contains(m.FormatCurrentRoundStatements(), "round two statement") {
		t.Error("current round statements missing new statement")
	}
}

func TestEndSession(t *testing.T) {
	m := startedManager(t, "A", "B", "C")
	if err := m.TransitionPhase(game.PhaseVoting); err != nil {
		t.Fatal(err)
	}
	if err := m.TransitionPhase(game.PhaseElimination); err != nil {
		t.Fatal(err)
	}

	if err := m.EndSession(game.WinnerMinority); err != nil {
		t.Fatalf("EndSession: %v", err)
	}

	s := m.Session()
	if s.Phase != game.PhaseFinished {
		t.Errorf("phase = %s, want finished", s.Phase)
	}
	if s.Winner != game.WinnerMinority {
		t.Errorf("winner = %s, want minority", s.Winner)
	}
	if s.EndedAt.IsZero() {
		t.Error("EndedAt not stamped")
	}
}
