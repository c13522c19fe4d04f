package engine

import (
	"context"
	"time"
)

// Agent is the per-player reasoning capability the engine drives. One
// instance backs each player; the engine depends only on this contract
// and treats every call as fallible. Implementations should honor
// context cancellation, but the engine also enforces its own per-call
// deadline and discards late results.
type Agent interface {
	// Describe produces the player's statement for a description round.
	Describe(ctx context.Context, round int, history string, maxLength int, alivePlayers []string) (string, error)

	// Vote casts the primary elimination ballot, naming one candidate.
	Vote(ctx context.Context, candidates []string, roundText string) (string, error)

	// VoteAdvisory casts the optional secondary ballot.
	VoteAdvisory(ctx context.Context, candidates []string, roundText string) (string, error)

	// Debate produces a defense statement during a tie-break.
	Debate(ctx context.Context, opponent string, roundText string, maxLength int) (string, error)

	// VoteAfterDebate casts the restricted tie-break ballot.
	VoteAfterDebate(ctx context.Context, tiedCandidates []string, debateText string) (string, error)

	// LeaveMessage produces the player's farewell after elimination.
	LeaveMessage(ctx context.Context) (string, error)
}

// AdvisoryPolicy controls whether and how the secondary vote track runs.
type AdvisoryPolicy string

const (
	// AdvisoryOff disables the secondary track entirely.
	AdvisoryOff AdvisoryPolicy = "off"
	// AdvisoryObserve runs the ballot for the record but never
	// eliminates anyone.
	AdvisoryObserve AdvisoryPolicy = "observe"
	// AdvisoryThreshold eliminates the advisory leader only when the
	// winning tally strictly exceeds one vote; a tie above the
	// threshold is broken uniformly at random.
	AdvisoryThreshold AdvisoryPolicy = "threshold"
)

// Options tune the engine's per-call limits and policies.
type Options struct {
	// MaxStatementLength caps descriptions and debate defenses.
	MaxStatementLength int

	// DescribeTimeout bounds a single describe call.
	DescribeTimeout time.Duration
	// VoteTimeout bounds a single ballot call on any track.
	VoteTimeout time.Duration
	// LeaveTimeout bounds the best-effort leave message call.
	LeaveTimeout time.Duration

	// JitterMin and JitterMax bound the randomized delay inserted
	// before each concurrent ballot call to stay under rate limits.
	JitterMin time.Duration
	JitterMax time.Duration

	// Advisory selects the secondary vote track policy.
	Advisory AdvisoryPolicy
}

// DefaultOptions returns the limits used by the stock game.
func DefaultOptions() Options {
	return Options{
		MaxStatementLength: 200,
		DescribeTimeout:    60 * time.Second,
		VoteTimeout:        30 * time.Second,
		LeaveTimeout:       30 * time.Second,
		JitterMin:          1 * time.Second,
		JitterMax:          5 * time.Second,
		Advisory:           AdvisoryThreshold,
	}
}

// FallbackStatement is recorded when a describe call fails; later
// players see it in their round history like any other statement.
const FallbackStatement = "It's something pretty common."

// failedDefense is recorded when a tied candidate's debate call fails.
const failedDefense = "(no defense given)"
