package agent

import (
	"context"

	"github.com/undercover-ai/undercover/internal/logging"
	"github.com/undercover-ai/undercover/internal/memory"
)

// Player adapts a chat client to the game capabilities. Each call
// builds a prompt, threads it through the player's private
// conversation memory, and records the reply so later prompts carry
// the full history.
type Player struct {
	name    string
	word    string
	client  *Client
	context *memory.Context
	logger  *logging.Logger
}

// NewPlayer binds a client and conversation memory to one player. The
// word is the player's secret word, needed for description prompts.
func NewPlayer(name, word string, client *Client, memctx *memory.Context, logger *logging.Logger) *Player {
	if logger == nil {
		logger = logging.NopLogger()
	}
	return &Player{
		name:    name,
		word:    word,
		client:  client,
		context: memctx,
		logger:  logger.WithPlayer(name),
	}
}

// Describe produces the player's statement for a description round.
func (p *Player) Describe(ctx context.Context, round int, history string, maxLength int, alivePlayers []string) (string, error) {
	prompt := describePrompt(round, history, maxLength, alivePlayers, p.name, p.word)
	p.context.Add(memory.RoleUser, prompt)

	response, err := p.client.ChatWithRetry(ctx, p.context.Messages(), describeTemperature)
	if err != nil {
		return "", err
	}

	parsed := parseStructured(response)
	if parsed.Thinking != "" {
		p.logger.Debug("describe reasoning", "thinking", parsed.Thinking)
	}
	p.logger.Info("statement", "round", round, "content", parsed.Content)

	p.context.Add(memory.RoleAssistant, response)
	return parsed.Content, nil
}

// Vote casts the primary elimination ballot.
func (p *Player) Vote(ctx context.Context, candidates []string, roundText string) (string, error) {
	prompt := votePrompt(candidates, roundText)
	p.context.Add(memory.RoleUser, prompt)

	response, err := p.client.ChatWithRetry(ctx, p.context.Messages(), voteTemperature)
	if err != nil {
		return "", err
	}

	parsed := parseStructured(response)
	if parsed.Thinking != "" {
		p.logger.Debug("vote reasoning", "thinking", parsed.Thinking)
	}
	target := matchCandidate(parsed.Content, candidates)

	p.context.Add(memory.RoleAssistant, target)
	return target, nil
}

// VoteAdvisory casts the secondary ballot.
func (p *Player) VoteAdvisory(ctx context.Context, candidates []string, roundText string) (string, error) {
	prompt := advisoryVotePrompt(candidates, roundText)
	p.context.Add(memory.RoleUser, prompt)

	response, err := p.client.ChatWithRetry(ctx, p.context.Messages(), advisoryTemperature)
	if err != nil {
		return "", err
	}

	target := matchCandidate(response, candidates)
	p.context.Add(memory.RoleAssistant, target)
	return target, nil
}

// Debate produces a defense statement during a tie-break.
func (p *Player) Debate(ctx context.Context, opponent string, roundText string, maxLength int) (string, error) {
	prompt := debatePrompt(opponent, roundText, maxLength)
	p.context.Add(memory.RoleUser, prompt)

	response, err := p.client.ChatWithRetry(ctx, p.context.Messages(), debateTemperature)
	if err != nil {
		return "", err
	}

	defense := cleanStatement(thinkTagRe.ReplaceAllString(response, ""))
	p.context.Add(memory.RoleAssistant, defense)
	return defense, nil
}

// VoteAfterDebate casts the restricted tie-break ballot.
func (p *Player) VoteAfterDebate(ctx context.Context, tiedCandidates []string, debateText string) (string, error) {
	prompt := voteAfterDebatePrompt(tiedCandidates, debateText)
	p.context.Add(memory.RoleUser, prompt)

	response, err := p.client.ChatWithRetry(ctx, p.context.Messages(), voteAfterDebateTemp)
	if err != nil {
		return "", err
	}

	target := matchCandidate(response, tiedCandidates)
	p.context.Add(memory.RoleAssistant, target)
	return target, nil
}

// LeaveMessage produces the player's farewell after elimination.
func (p *Player) LeaveMessage(ctx context.Context) (string, error) {
	p.context.Add(memory.RoleUser, leaveMessagePrompt)

	response, err := p.client.ChatWithRetry(ctx, p.context.Messages(), leaveMessageTemperature)
	if err != nil {
		return "", err
	}

	message := cleanStatement(thinkTagRe.ReplaceAllString(response, ""))
	p.logger.Info("leave message", "content", message)

	p.context.Add(memory.RoleAssistant, message)
	return message, nil
}
