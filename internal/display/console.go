// Package display renders game progress to a terminal. The Console is
// a pure observer: it subscribes to the event bus and never touches
// game state, so dropping it changes nothing about a game's outcome.
package display

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"

	"github.com/undercover-ai/undercover/internal/event"
	"github.com/undercover-ai/undercover/internal/game"
)

var (
	// Colors meet WCAG AA contrast (4.5:1) on dark surfaces.
	primaryColor = lipgloss.Color("#A78BFA") // Purple
	greenColor   = lipgloss.Color("#10B981") // Green
	amberColor   = lipgloss.Color("#F59E0B") // Amber
	redColor     = lipgloss.Color("#F87171") // Red
	mutedColor   = lipgloss.Color("#9CA3AF") // Gray
	blueColor    = lipgloss.Color("#60A5FA") // Blue

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(primaryColor)

	roundStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(blueColor)

	playerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(greenColor)

	voteStyle = lipgloss.NewStyle().
			Foreground(amberColor)

	eliminatedStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(redColor)

	mutedStyle = lipgloss.NewStyle().
			Foreground(mutedColor)

	winnerBox = lipgloss.NewStyle().
			Bold(true).
			Foreground(primaryColor).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(primaryColor).
			Padding(0, 2)
)

// Console renders bus events as styled terminal output.
type Console struct {
	mu  sync.Mutex
	out io.Writer

	subscriptionID string
}

// NewConsole creates a Console writing to out.
func NewConsole(out io.Writer) *Console {
	return &Console{out: out}
}

// Attach subscribes the console to every event on the bus.
func (c *Console) Attach(bus *event.Bus) {
	c.subscriptionID = bus.SubscribeAll(c.handle)
}

// Detach removes the console's subscription.
func (c *Console) Detach(bus *event.Bus) {
	if c.subscriptionID != "" {
		bus.Unsubscribe(c.subscriptionID)
		c.subscriptionID = ""
	}
}

func (c *Console) handle(e event.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch ev := e.(type) {
	case event.SessionCreatedEvent:
		fmt.Fprintln(c.out, titleStyle.Render("── who is the undercover ──"))
		fmt.Fprintf(c.out, "%s %s\n",
			mutedStyle.Render("session"), ev.SessionID)
		fmt.Fprintf(c.out, "%s %s\n\n",
			mutedStyle.Render("speaking order:"), strings.Join(ev.Players, " → "))

	case event.RoundStartedEvent:
		fmt.Fprintf(c.out, "\n%s\n", roundStyle.Render(fmt.Sprintf("═══ Round %d ═══", ev.Round)))

	case event.StatementIssuedEvent:
		line := fmt.Sprintf("%s: %s", playerStyle.Render(ev.Player), ev.Statement)
		if ev.Fallback {
			line += mutedStyle.Render(" (fallback)")
		}
		fmt.Fprintln(c.out, line)

	case event.VoteCastEvent:
		label := "votes for"
		if ev.Track == string(game.TrackAdvisory) {
			label = "suspects"
		}
		line := fmt.Sprintf("  %s %s %s",
			playerStyle.Render(ev.Voter), mutedStyle.Render(label), voteStyle.Render(ev.Target))
		if ev.Fallback {
			line += mutedStyle.Render(" (random)")
		}
		fmt.Fprintln(c.out, line)

	case event.VoteTalliedEvent:
		fmt.Fprintf(c.out, "  %s %s\n",
			mutedStyle.Render("tally:"), voteStyle.Render(formatTally(ev.Tally)))
		if ev.Tied {
			fmt.Fprintf(c.out, "  %s %s\n",
				voteStyle.Render("tie between:"), strings.Join(ev.Leaders, ", "))
		}

	case event.DebateStatementEvent:
		fmt.Fprintf(c.out, "  %s %s\n",
			playerStyle.Render(ev.Player+" defends:"), ev.Statement)

	case event.PlayerEliminatedEvent:
		fmt.Fprintf(c.out, "%s %s\n",
			eliminatedStyle.Render("✗ "+ev.Player+" is out"),
			mutedStyle.Render(fmt.Sprintf("(%s)", ev.Role)))
		if ev.LeaveMessage != "" {
			fmt.Fprintf(c.out, "  %s\n", mutedStyle.Render(fmt.Sprintf("%q", ev.LeaveMessage)))
		}

	case event.GameEndedEvent:
		verdict := fmt.Sprintf("%s wins after %d rounds", ev.Winner, ev.Rounds)
		fmt.Fprintf(c.out, "\n%s\n", winnerBox.Render(verdict))
		if len(ev.Survivors) > 0 {
			fmt.Fprintf(c.out, "%s %s\n",
				mutedStyle.Render("survivors:"), strings.Join(ev.Survivors, ", "))
		}

	case event.AgentFailureEvent:
		fmt.Fprintf(c.out, "  %s\n",
			mutedStyle.Render(fmt.Sprintf("! %s failed to %s: %s", ev.Player, ev.Capability, ev.Error)))
	}
}

func formatTally(tally map[string]int) string {
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

	parts := make([]string, 0, len(targets))
	for _, t := range targets {
		parts = append(parts, fmt.Sprintf("%s=%d", t, tally[t]))
	}
	return strings.Join(parts, " ")
}
