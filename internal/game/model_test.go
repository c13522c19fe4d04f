package game

import "testing"

func TestEvaluateWinner(t *testing.T) {
	tests := []struct {
		name     string
		minority int
		majority int
		want     Winner
	}{
		{"no minority left", 0, 4, WinnerMajority},
		{"no minority no majority", 0, 0, WinnerMajority},
		{"minority equals majority", 2, 2, WinnerMinority},
		{"minority outnumbers majority", 3, 2, WinnerMinority},
		{"majority ahead", 1, 3, WinnerNone},
		{"fresh seven player game", 2, 5, WinnerNone},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := EvaluateWinner(tt.minority, tt.majority); got != tt.want {
				t.Errorf("EvaluateWinner(%d, %d) = %q, want %q",
					tt.minority, tt.majority, got, tt.want)
			}
		})
	}
}

func TestAliveNamesPreservesSpeakingOrder(t *testing.T) {
	s := &Session{
		Players: map[string]*PlayerSession{
			"C": {Name: "C", Alive: true},
			"A": {Name: "A", Alive: false},
			"B": {Name: "B", Alive: true},
		},
		SpeakingOrder: []string{"B", "A", "C"},
	}

	got := s.AliveNames()
	want := []string{"B", "C"}
	if len(got) != len(want) {
		t.Fatalf("AliveNames = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("AliveNames[%d] = %s, want %s", i, got[i], want[i])
		}
	}
}

func TestAliveCounts(t *testing.T) {
	s := &Session{
		Players: map[string]*PlayerSession{
			"A": {Role: RoleMinority, Alive: true},
			"B": {Role: RoleMinority, Alive: false},
			"C": {Role: RoleMajority, Alive: true},
			"D": {Role: RoleMajority, Alive: true},
		},
	}

	minority, majority := s.AliveCounts()
	if minority != 1 || majority != 2 {
		t.Errorf("AliveCounts = (%d, %d), want (1, 2)", minority, majority)
	}
}

func TestCurrentRound(t *testing.T) {
	s := &Session{}
	if s.CurrentRound() != nil {
		t.Error("CurrentRound should be nil before the first round")
	}

	s.Rounds = append(s.Rounds, NewRoundRecord(1), NewRoundRecord(2))
	if got := s.CurrentRound(); got == nil || got.Number != 2 {
		t.Errorf("CurrentRound = %+v, want round 2", got)
	}
}
