// Package report persists finished games to disk, as machine-readable
// JSON and as a human-readable Markdown transcript. Files are written
// atomically so a crash mid-write never leaves a truncated report.
package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/undercover-ai/undercover/internal/game"
)

// Writer renders and saves game reports into a base directory.
type Writer struct {
	dir          string
	saveJSON     bool
	saveMarkdown bool
}

// Option configures a Writer.
type Option func(*Writer)

// WithJSON toggles the JSON report.
func WithJSON(enabled bool) Option {
	return func(w *Writer) { w.saveJSON = enabled }
}

// WithMarkdown toggles the Markdown transcript.
func WithMarkdown(enabled bool) Option {
	return func(w *Writer) { w.saveMarkdown = enabled }
}

// NewWriter creates a Writer rooted at dir. The directory is created if
// it doesn't exist.
func NewWriter(dir string, opts ...Option) (*Writer, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create report directory: %w", err)
	}
	w := &Writer{dir: dir, saveJSON: true, saveMarkdown: true}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Report is the serializable snapshot of a finished game.
type Report struct {
	SessionID     string         `json:"session_id"`
	Winner        game.Winner    `json:"winner"`
	PlayerCount   int            `json:"player_count"`
	MinorityCount int            `json:"minority_count"`
	MajorityWord  string         `json:"majority_word"`
	MinorityWord  string         `json:"minority_word"`
	Players       []PlayerReport `json:"players"`
	Rounds        []RoundReport  `json:"rounds"`
	StartedAt     time.Time      `json:"started_at"`
	EndedAt       time.Time      `json:"ended_at"`
}

// PlayerReport is one player's final state, in speaking order.
type PlayerReport struct {
	Name       string    `json:"name"`
	Model      string    `json:"model,omitempty"`
	Role       game.Role `json:"role"`
	Word       string    `json:"word"`
	Alive      bool      `json:"alive"`
	Statements []string  `json:"statements,omitempty"`
	Votes      []string  `json:"votes,omitempty"`
}

// RoundReport is the closed ledger of one round.
type RoundReport struct {
	Number           int                 `json:"number"`
	Statements       map[string]string   `json:"statements,omitempty"`
	Votes            map[string]string   `json:"votes,omitempty"`
	Tally            map[string]int      `json:"tally,omitempty"`
	AdvisoryVotes    map[string]string   `json:"advisory_votes,omitempty"`
	AdvisoryTally    map[string]int      `json:"advisory_tally,omitempty"`
	DebateStatements map[string]string   `json:"debate_statements,omitempty"`
	Eliminations     []EliminationReport `json:"eliminations,omitempty"`
	StartedAt        time.Time           `json:"started_at"`
}

// EliminationReport records one player leaving the game.
type EliminationReport struct {
	Player       string         `json:"player"`
	Role         game.Role      `json:"role"`
	Track        game.VoteTrack `json:"track"`
	LeaveMessage string         `json:"leave_message,omitempty"`
}

// Build converts a finished session into its report form. Player and
// round order follow the speaking order and round numbers.
func Build(session *game.Session) *Report {
	r := &Report{
		SessionID:     session.ID,
		Winner:        session.Winner,
		PlayerCount:   session.PlayerCount,
		MinorityCount: session.MinorityCount,
		MajorityWord:  session.MajorityWord,
		MinorityWord:  session.MinorityWord,
		StartedAt:     session.StartedAt,
		EndedAt:       session.EndedAt,
	}

	for _, name := range session.SpeakingOrder {
		p, ok := session.Players[name]
		if !ok {
			continue
		}
		r.Players = append(r.Players, PlayerReport{
			Name:       p.Name,
			Model:      p.Model,
			Role:       p.Role,
			Word:       p.Word,
			Alive:      p.Alive,
			Statements: p.Statements,
			Votes:      p.Votes,
		})
	}

	for _, round := range session.Rounds {
		rr := RoundReport{
			Number:           round.Number,
			Statements:       round.Statements,
			Votes:            round.Votes,
			Tally:            round.Tally,
			AdvisoryVotes:    round.AdvisoryVotes,
			AdvisoryTally:    round.AdvisoryTally,
			DebateStatements: round.DebateStatements,
			StartedAt:        round.StartedAt,
		}
		for _, e := range round.Eliminations {
			rr.Eliminations = append(rr.Eliminations, EliminationReport{
				Player:       e.Player,
				Role:         e.Role,
				Track:        e.Track,
				LeaveMessage: e.LeaveMessage,
			})
		}
		r.Rounds = append(r.Rounds, rr)
	}

	return r
}

// Save writes the enabled report formats for session and returns the
// paths of the files it wrote.
func (w *Writer) Save(session *game.Session) ([]string, error) {
	report := Build(session)
	base := w.baseName(session)

	var paths []string
	if w.saveJSON {
		path := filepath.Join(w.dir, base+".json")
		data, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("failed to marshal report: %w", err)
		}
		if err := atomicWriteFile(path, data, 0644); err != nil {
			return nil, err
		}
		paths = append(paths, path)
	}

	if w.saveMarkdown {
		path := filepath.Join(w.dir, base+".md")
		if err := atomicWriteFile(path, []byte(RenderMarkdown(report)), 0644); err != nil {
			return nil, err
		}
		paths = append(paths, path)
	}

	return paths, nil
}

func (w *Writer) baseName(session *game.Session) string {
	ts := session.StartedAt
	if ts.IsZero() {
		ts = time.Now()
	}
	return fmt.Sprintf("game_%s_%s", ts.Format("20060102-150405"), session.ID)
}

// RenderMarkdown produces the human-readable transcript.
func RenderMarkdown(r *Report) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Game Report %s\n\n", r.SessionID)
	fmt.Fprintf(&b, "- **Winner:** %s\n", winnerLabel(r.Winner))
	fmt.Fprintf(&b, "- **Rounds played:** %d\n", len(r.Rounds))
	fmt.Fprintf(&b, "- **Words:** %s (majority) / %s (minority)\n", r.MajorityWord, r.MinorityWord)
	fmt.Fprintf(&b, "- **Started:** %s\n", r.StartedAt.Format(time.RFC3339))
	if !r.EndedAt.IsZero() {
		fmt.Fprintf(&b, "- **Ended:** %s\n", r.EndedAt.Format(time.RFC3339))
	}

	b.WriteString("\n## Players\n\n")
	b.WriteString("| Name | Role | Word | Survived |\n")
	b.WriteString("|------|------|------|----------|\n")
	for _, p := range r.Players {
		survived := "no"
		if p.Alive {
			survived = "yes"
		}
		fmt.Fprintf(&b, "| %s | %s | %s | %s |\n", p.Name, p.Role, p.Word, survived)
	}

	for _, round := range r.Rounds {
		fmt.Fprintf(&b, "\n## Round %d\n", round.Number)

		if len(round.Statements) > 0 {
			b.WriteString("\n### Descriptions\n\n")
			for _, entry := range sortedEntries(round.Statements) {
				fmt.Fprintf(&b, "- **%s:** %s\n", entry.key, entry.value)
			}
		}

		if len(round.AdvisoryVotes) > 0 {
			b.WriteString("\n### Advisory votes\n\n")
			writeVotes(&b, round.AdvisoryVotes, round.AdvisoryTally)
		}

		if len(round.Votes) > 0 {
			b.WriteString("\n### Votes\n\n")
			writeVotes(&b, round.Votes, round.Tally)
		}

		if len(round.DebateStatements) > 0 {
			b.WriteString("\n### Tie-break defenses\n\n")
			for _, entry := range sortedEntries(round.DebateStatements) {
				fmt.Fprintf(&b, "- **%s:** %s\n", entry.key, entry.value)
			}
		}

		if len(round.Eliminations) > 0 {
			b.WriteString("\n### Eliminated\n\n")
			for _, e := range round.Eliminations {
				fmt.Fprintf(&b, "- **%s** (%s)", e.Player, e.Role)
				if e.Track == game.TrackAdvisory {
					b.WriteString(" via advisory vote")
				}
				if e.LeaveMessage != "" {
					fmt.Fprintf(&b, " — %q", e.LeaveMessage)
				}
				b.WriteString("\n")
			}
		}
	}

	return b.String()
}

func winnerLabel(w game.Winner) string {
	switch w {
	case game.WinnerMajority:
		return "majority"
	case game.WinnerMinority:
		return "minority"
	default:
		return "undecided"
	}
}

type entry struct {
	key   string
	value string
}

func sortedEntries(m map[string]string) []entry {
	entries := make([]entry, 0, len(m))
	for k, v := range m {
		entries = append(entries, entry{k, v})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].key < entries[j].key })
	return entries
}

func writeVotes(b *strings.Builder, votes map[string]string, tally map[string]int) {
	for _, e := range sortedEntries(votes) {
		fmt.Fprintf(b, "- %s voted for %s\n", e.key, e.value)
	}
	if len(tally) > 0 {
		targets := make([]string, 0, len(tally))
		for t := range tally {
			targets = append(targets, t)
		}
		sort.Slice(targets, func(i, j int) bool {
			if tally[targets[i]] != tally[targets[j]] {
				return tally[targets[i]] > tally[targets[j]]
			}
			return targets[i] < targets[j]
		})
		b.WriteString("\nTally: ")
		parts := make([]string, 0, len(targets))
		for _, t := range targets {
			parts = append(parts, fmt.Sprintf("%s=%d", t, tally[t]))
		}
		b.WriteString(strings.Join(parts, ", "))
		b.WriteString("\n")
	}
}

// atomicWriteFile writes data to a temporary file in the target
// directory and renames it into place, so readers never observe a
// partially-written report.
func atomicWriteFile(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)

	tmpFile, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	success := false
	defer func() {
		if !success {
			os.Remove(tmpPath)
		}
	}()

	if _, err := tmpFile.Write(data); err != nil {
		tmpFile.Close()
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmpFile.Sync(); err != nil {
		tmpFile.Close()
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Chmod(tmpPath, perm); err != nil {
		return fmt.Errorf("failed to set permissions: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("failed to rename temp file: %w", err)
	}

	success = true
	return nil
}
