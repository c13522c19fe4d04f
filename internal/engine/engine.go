// Package engine drives the round loop of a game: sequential
// descriptions, concurrent ballot collection with jitter and per-call
// timeouts, the tie-break debate sub-protocol, eliminations and the win
// check. The engine is the single writer of session state; concurrent
// agent calls only produce values that are applied after the join
// point, in canonical speaking order.
package engine

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/sourcegraph/conc"

	"github.com/undercover-ai/undercover/internal/errors"
	"github.com/undercover-ai/undercover/internal/event"
	"github.com/undercover-ai/undercover/internal/game"
	"github.com/undercover-ai/undercover/internal/logging"
	"github.com/undercover-ai/undercover/internal/session"
)

// Engine runs one game to completion.
type Engine struct {
	manager *session.Manager
	agents  map[string]Agent
	bus     *event.Bus
	rng     *rand.Rand
	logger  *logging.Logger
	opts    Options
}

// New creates an Engine. The rng must be the same injectable source the
// session manager uses so a seeded run is fully reproducible. A nil
// logger is replaced with a no-op logger.
func New(manager *session.Manager, agents map[string]Agent, bus *event.Bus, rng *rand.Rand, logger *logging.Logger, opts Options) *Engine {
	if logger == nil {
		logger = logging.NopLogger()
	}
	if opts.MaxStatementLength <= 0 {
		opts.MaxStatementLength = DefaultOptions().MaxStatementLength
	}
	if opts.JitterMax < opts.JitterMin {
		opts.JitterMax = opts.JitterMin
	}
	return &Engine{
		manager: manager,
		agents:  agents,
		bus:     bus,
		rng:     rng,
		logger:  logger,
		opts:    opts,
	}
}

// Run plays rounds until a faction wins, then finishes the session and
// returns it. There is no round limit: every round removes at least one
// player, so the win condition is structurally guaranteed to trigger.
func (e *Engine) Run(ctx context.Context) (*game.Session, error) {
	s := e.manager.Session()
	if s == nil {
		return nil, errors.NewSessionError("run", errors.ErrNoActiveSession)
	}

	for {
		if err := ctx.Err(); err != nil {
			return s, err
		}

		if _, err := e.manager.StartNewRound(); err != nil {
			return s, err
		}

		if err := e.runDescriptionPhase(ctx); err != nil {
			return s, err
		}

		if err := e.manager.TransitionPhase(game.PhaseVoting); err != nil {
			return s, err
		}

		var pending []pendingElimination
		excluded := ""
		if e.opts.Advisory != AdvisoryOff {
			advisory, err := e.runAdvisoryVote(ctx)
			if err != nil {
				return s, err
			}
			if advisory != "" {
				pending = append(pending, pendingElimination{player: advisory, track: game.TrackAdvisory})
				excluded = advisory
			}
		}

		primary, err := e.runPrimaryVote(ctx, excluded)
		if err != nil {
			return s, err
		}
		pending = append(pending, pendingElimination{player: primary, track: game.TrackPrimary})

		if err := e.manager.TransitionPhase(game.PhaseElimination); err != nil {
			return s, err
		}

		for _, p := range pending {
			leaveMsg := e.collectLeaveMessage(ctx, p.player)
			if err := e.manager.EliminatePlayer(p.player, p.track, leaveMsg); err != nil {
				return s, err
			}
			if winner := e.manager.CheckWinCondition(); winner != game.WinnerNone {
				if err := e.manager.EndSession(winner); err != nil {
					return s, err
				}
				return s, nil
			}
		}

		e.logger.Info("round complete",
			"session_id", s.ID,
			"round", s.Round,
			"alive", strings.Join(e.manager.AliveSpeakingOrder(), ","))
	}
}

type pendingElimination struct {
	player string
	track  game.VoteTrack
}

// runDescriptionPhase asks every alive player, in speaking order, for a
// statement. Calls are sequential because each statement feeds into the
// next player's history. A failed call records the fixed fallback
// statement and the round continues.
func (e *Engine) runDescriptionPhase(ctx context.Context) error {
	s := e.manager.Session()
	alive := e.manager.AliveSpeakingOrder()

	for _, name := range alive {
		agent, ok := e.agents[name]
		if !ok {
			return errors.NewSessionError("description_phase",
				fmt.Errorf("%w: no agent for %s", errors.ErrPlayerNotFound, name)).WithPlayer(name)
		}

		history := e.roundHistoryText()
		statement, err := callWithTimeout(ctx, e.opts.DescribeTimeout, func(cctx context.Context) (string, error) {
			return agent.Describe(cctx, s.Round, history, e.opts.MaxStatementLength, alive)
		})

		fallback := false
		if err != nil || strings.TrimSpace(statement) == "" {
			e.reportAgentFailure(name, "describe", err)
			statement = FallbackStatement
			fallback = true
		}

		if err := e.manager.RecordStatement(name, statement, fallback); err != nil {
			return err
		}
	}
	return nil
}

// roundHistoryText is the prompt-ready transcript: completed rounds
// followed by the in-progress section of the current round.
func (e *Engine) roundHistoryText() string {
	s := e.manager.Session()
	history := e.manager.FormatRoundHistory()
	if current := e.manager.FormatCurrentRoundStatements(); current != "" {
		history += fmt.Sprintf("\n\n=== Round %d (in progress) ===\n%s", s.Round, current)
	}
	return history
}

// runAdvisoryVote runs the secondary ballot among all alive players and
// applies the configured policy. It returns the name of a player to
// eliminate, or "" when the track has no effect this round.
func (e *Engine) runAdvisoryVote(ctx context.Context) (string, error) {
	voters := e.manager.AliveSpeakingOrder()
	roundText := e.manager.FormatCurrentRoundStatements()

	ballots := e.collectBallots(ctx, voters, voters, "vote_advisory",
		func(cctx context.Context, agent Agent, candidates []string) (string, error) {
			return agent.VoteAdvisory(cctx, candidates, roundText)
		})
	for _, b := range ballots {
		if err := e.manager.RecordVote(b.voter, b.target, game.TrackAdvisory, game.StageInitial, b.fallback); err != nil {
			return "", err
		}
	}

	tally, leaders, err := e.manager.TallyVotes(game.TrackAdvisory, game.StageInitial)
	if err != nil {
		return "", err
	}
	if len(leaders) == 0 || e.opts.Advisory != AdvisoryThreshold {
		return "", nil
	}
	if tally[leaders[0]] <= 1 {
		// Single-dissenter noise, the track has no effect this round.
		return "", nil
	}
	if len(leaders) == 1 {
		return leaders[0], nil
	}
	// Tie above the threshold: break uniformly at random.
	chosen := leaders[e.rng.Intn(len(leaders))]
	e.logger.Info("advisory tie broken at random", "leaders", strings.Join(leaders, ","), "chosen", chosen)
	return chosen, nil
}

// runPrimaryVote runs the elimination ballot and resolves ties through
// the debate sub-protocol. excluded names a player already claimed by
// the advisory track this round; they neither vote nor stand.
func (e *Engine) runPrimaryVote(ctx context.Context, excluded string) (string, error) {
	var voters []string
	for _, name := range e.manager.AliveSpeakingOrder() {
		if name != excluded {
			voters = append(voters, name)
		}
	}
	roundText := e.manager.FormatCurrentRoundStatements()

	ballots := e.collectBallots(ctx, voters, voters, "vote",
		func(cctx context.Context, agent Agent, candidates []string) (string, error) {
			return agent.Vote(cctx, candidates, roundText)
		})
	for _, b := range ballots {
		if err := e.manager.RecordVote(b.voter, b.target, game.TrackPrimary, game.StageInitial, b.fallback); err != nil {
			return "", err
		}
	}

	_, leaders, err := e.manager.TallyVotes(game.TrackPrimary, game.StageInitial)
	if err != nil {
		return "", err
	}
	switch {
	case len(leaders) == 0:
		// Cannot happen with a non-empty voter set; guard anyway.
		return "", errors.NewSessionError("primary_vote", errors.New("no ballots recorded"))
	case len(leaders) == 1:
		return leaders[0], nil
	default:
		return e.runTieBreak(ctx, leaders, roundText, voters)
	}
}

// runTieBreak resolves a tied primary vote: each tied candidate gives a
// length-capped defense, then the non-tied voters cast a ballot
// restricted to the tie set. A persisting tie is broken uniformly at
// random, which guarantees the sub-protocol terminates.
func (e *Engine) runTieBreak(ctx context.Context, tied []string, roundText string, voters []string) (string, error) {
	// Defenses are sequential, like descriptions.
	for _, name := range tied {
		agent, ok := e.agents[name]
		if !ok {
			return "", errors.NewSessionError("tie_break",
				fmt.Errorf("%w: no agent for %s", errors.ErrPlayerNotFound, name)).WithPlayer(name)
		}

		opponent := "the other candidates"
		if len(tied) == 2 {
			if tied[0] == name {
				opponent = tied[1]
			} else {
				opponent = tied[0]
			}
		}

		defense, err := callWithTimeout(ctx, e.opts.DescribeTimeout, func(cctx context.Context) (string, error) {
			return agent.Debate(cctx, opponent, roundText, e.opts.MaxStatementLength)
		})
		if err != nil || strings.TrimSpace(defense) == "" {
			e.reportAgentFailure(name, "debate", err)
			defense = failedDefense
		}
		defense = truncateRunes(defense, e.opts.MaxStatementLength)

		if err := e.manager.RecordDebateStatement(name, defense); err != nil {
			return "", err
		}
	}

	debateText := e.manager.FormatDebateStatements()

	// Only non-candidates revote, restricted to the tie set.
	var revoters []string
	tiedSet := make(map[string]bool, len(tied))
	for _, name := range tied {
		tiedSet[name] = true
	}
	for _, name := range voters {
		if !tiedSet[name] {
			revoters = append(revoters, name)
		}
	}

	tally := make(map[string]int, len(tied))
	if len(revoters) > 0 {
		ballots := e.collectBallots(ctx, revoters, tied, "vote_after_debate",
			func(cctx context.Context, agent Agent, candidates []string) (string, error) {
				return agent.VoteAfterDebate(cctx, candidates, debateText)
			})
		for _, b := range ballots {
			if err := e.manager.RecordVote(b.voter, b.target, game.TrackPrimary, game.StageRevote, b.fallback); err != nil {
				return "", err
			}
			tally[b.target]++
		}
	}

	max := 0
	for _, count := range tally {
		if count > max {
			max = count
		}
	}
	var leaders []string
	for _, name := range tied {
		if tally[name] == max {
			leaders = append(leaders, name)
		}
	}

	if len(leaders) == 1 {
		return leaders[0], nil
	}
	// Still tied (or nobody could revote): random fallback.
	chosen := leaders[e.rng.Intn(len(leaders))]
	e.logger.Info("tie persisted after revote, random elimination",
		"tied", strings.Join(leaders, ","), "chosen", chosen)
	return chosen, nil
}

// ballot is one validated vote, ready to apply in canonical order.
type ballot struct {
	voter    string
	target   string
	fallback bool
}

// collectBallots fans out one agent call per voter, each preceded by a
// jittered delay and bounded by the vote timeout. Jitter is drawn
// sequentially in canonical order before the fan-out, and outcomes are
// validated and fallback-substituted after the join, also in canonical
// order, so recorded state does not depend on completion order. Voters
// never appear among their own candidates.
func (e *Engine) collectBallots(
	ctx context.Context,
	voters []string,
	candidates []string,
	capability string,
	call func(ctx context.Context, agent Agent, candidates []string) (string, error),
) []ballot {
	type outcome struct {
		target string
		err    error
	}

	jitters := make([]time.Duration, len(voters))
	for i := range voters {
		jitters[i] = e.jitter()
	}

	results := make([]outcome, len(voters))
	var wg conc.WaitGroup
	for i, name := range voters {
		agent, ok := e.agents[name]
		if !ok {
			results[i] = outcome{err: fmt.Errorf("%w: no agent for %s", errors.ErrPlayerNotFound, name)}
			continue
		}
		ownCandidates := exclude(candidates, name)
		wg.Go(func() {
			select {
			case <-time.After(jitters[i]):
			case <-ctx.Done():
				results[i] = outcome{err: ctx.Err()}
				return
			}
			target, err := callWithTimeout(ctx, e.opts.VoteTimeout, func(cctx context.Context) (string, error) {
				return call(cctx, agent, ownCandidates)
			})
			results[i] = outcome{target: target, err: err}
		})
	}
	wg.Wait()

	out := make([]ballot, 0, len(voters))
	for i, name := range voters {
		valid := exclude(candidates, name)
		if len(valid) == 0 {
			continue
		}
		res := results[i]
		target := strings.TrimSpace(res.target)
		if res.err == nil && contains(valid, target) {
			out = append(out, ballot{voter: name, target: target})
			continue
		}
		if res.err != nil {
			e.reportAgentFailure(name, capability, res.err)
		} else {
			e.reportAgentFailure(name, capability,
				fmt.Errorf("%w: %q", errors.ErrInvalidBallot, target))
		}
		out = append(out, ballot{
			voter:    name,
			target:   valid[e.rng.Intn(len(valid))],
			fallback: true,
		})
	}
	return out
}

// collectLeaveMessage asks the eliminated player for a farewell.
// Strictly best-effort: any failure is logged and an empty message is
// used.
func (e *Engine) collectLeaveMessage(ctx context.Context, name string) string {
	agent, ok := e.agents[name]
	if !ok {
		return ""
	}
	msg, err := callWithTimeout(ctx, e.opts.LeaveTimeout, func(cctx context.Context) (string, error) {
		return agent.LeaveMessage(cctx)
	})
	if err != nil {
		e.reportAgentFailure(name, "leave_message", err)
		return ""
	}
	return strings.TrimSpace(msg)
}

// jitter draws a delay from the configured bounds.
func (e *Engine) jitter() time.Duration {
	span := e.opts.JitterMax - e.opts.JitterMin
	if span <= 0 {
		return e.opts.JitterMin
	}
	return e.opts.JitterMin + time.Duration(e.rng.Int63n(int64(span)))
}

// reportAgentFailure logs a recoverable agent failure and notifies
// observers. Warning-level only; fallbacks keep the round alive.
func (e *Engine) reportAgentFailure(player, capability string, err error) {
	if err == nil {
		err = errors.ErrAgentFailed
	}
	agentErr := errors.NewAgentError(player, capability, err)
	e.logger.Warn("agent call failed, using fallback",
		"player", player,
		"capability", capability,
		"error", agentErr.Error())
	if e.bus != nil {
		s := e.manager.Session()
		sessionID := ""
		if s != nil {
			sessionID = s.ID
		}
		e.bus.Publish(event.NewAgentFailureEvent(sessionID, player, capability, err.Error()))
	}
}

// callWithTimeout runs fn under its own deadline. If fn ignores the
// context and returns after the deadline, its result is discarded.
func callWithTimeout[T any](ctx context.Context, timeout time.Duration, fn func(context.Context) (T, error)) (T, error) {
	if timeout <= 0 {
		return fn(ctx)
	}
	cctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type result struct {
		val T
		err error
	}
	ch := make(chan result, 1)
	go func() {
		val, err := fn(cctx)
		ch <- result{val: val, err: err}
	}()

	select {
	case res := <-ch:
		return res.val, res.err
	case <-cctx.Done():
		var zero T
		return zero, fmt.Errorf("%w after %s", errors.ErrAgentTimeout, timeout)
	}
}

func exclude(names []string, skip string) []string {
	out := make([]string, 0, len(names))
	for _, name := range names {
		if name != skip {
			out = append(out, name)
		}
	}
	return out
}

func contains(names []string, target string) bool {
	for _, name := range names {
		if name == target {
			return true
		}
	}
	return false
}

// truncateRunes hard-caps s at n runes.
func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
