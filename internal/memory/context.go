// Package memory implements per-player conversation memory with
// automatic compression. Each agent carries a Context that holds its
// full dialogue with the model; when the estimated token count crosses
// a threshold the older messages are folded into a short summary so the
// context stays within the model's window across long games.
package memory

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

// Message roles, matching the chat completions wire format.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

const (
	// DefaultMaxTokens is the context window budget per player.
	DefaultMaxTokens = 8000
	// DefaultRecentMessages is how many trailing messages survive
	// compression verbatim.
	DefaultRecentMessages = 20

	// compressThreshold triggers compression when the estimated token
	// count exceeds this fraction of the budget.
	compressThreshold = 0.8
	// summaryFragments is how many of the newest summary fragments are
	// kept when history is folded.
	summaryFragments = 5
	// statementFragmentLen is how many characters of an assistant
	// message are carried into a summary fragment.
	statementFragmentLen = 50
)

// Message is a single turn in a player's dialogue with the model.
type Message struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// Context is the conversation memory of one player. It is safe for
// concurrent use; the engine reads contexts from fan-out goroutines.
type Context struct {
	mu sync.Mutex

	player         string
	messages       []Message
	tokenCount     int
	maxTokens      int
	recentMessages int
	summary        string
}

// Option configures a Context.
type Option func(*Context)

// WithMaxTokens overrides the token budget.
func WithMaxTokens(n int) Option {
	return func(c *Context) { c.maxTokens = n }
}

// WithRecentMessages overrides how many trailing messages survive
// compression verbatim.
func WithRecentMessages(n int) Option {
	return func(c *Context) { c.recentMessages = n }
}

// NewContext creates an empty conversation memory for the named player.
func NewContext(player string, opts ...Option) *Context {
	c := &Context{
		player:         player,
		maxTokens:      DefaultMaxTokens,
		recentMessages: DefaultRecentMessages,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// estimateTokens approximates the token cost of content. The ratio is
// deliberately crude; it only needs to be monotonic in content length.
func estimateTokens(content string) int {
	return len(content) / 3
}

// Add appends a message and compresses history if the budget is
// running out.
func (c *Context) Add(role, content string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.messages = append(c.messages, Message{
		Role:      role,
		Content:   content,
		Timestamp: time.Now(),
	})
	c.tokenCount += estimateTokens(content)

	if float64(c.tokenCount) > float64(c.maxTokens)*compressThreshold {
		c.compress()
	}
}

// compress folds everything but the system prompt and the most recent
// messages into a short summary pair. The caller must hold the mutex.
func (c *Context) compress() {
	if len(c.messages) <= c.recentMessages+1 {
		return
	}

	var system *Message
	rest := c.messages
	if rest[0].Role == RoleSystem {
		system = &rest[0]
		rest = rest[1:]
	}

	old := rest[:len(rest)-c.recentMessages]
	recent := rest[len(rest)-c.recentMessages:]

	var fragments []string
	for _, msg := range old {
		switch {
		case msg.Role == RoleAssistant:
			fragments = append(fragments, fmt.Sprintf("[my statement] %s...", truncate(msg.Content, statementFragmentLen)))
		case msg.Role == RoleUser && strings.Contains(msg.Content, "vote"):
			fragments = append(fragments, "[cast a vote]")
		case msg.Role == RoleUser && strings.Contains(msg.Content, "descri"):
			fragments = append(fragments, "[description round]")
		}
	}
	if len(fragments) > 0 {
		if len(fragments) > summaryFragments {
			fragments = fragments[len(fragments)-summaryFragments:]
		}
		c.summary = strings.Join(fragments, "; ")
	}

	rebuilt := make([]Message, 0, len(recent)+3)
	if system != nil {
		rebuilt = append(rebuilt, *system)
	}
	if c.summary != "" {
		rebuilt = append(rebuilt,
			Message{Role: RoleUser, Content: fmt.Sprintf("[memory summary] %s", c.summary), Timestamp: time.Now()},
			Message{Role: RoleAssistant, Content: "Understood, I remember the earlier rounds. Let's continue.", Timestamp: time.Now()},
		)
	}
	rebuilt = append(rebuilt, recent...)
	c.messages = rebuilt

	c.tokenCount = 0
	for _, msg := range c.messages {
		c.tokenCount += estimateTokens(msg.Content)
	}
}

// truncate returns the first n bytes of s, or s itself if shorter.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

// Messages returns a copy of the current message list in order.
func (c *Context) Messages() []Message {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]Message, len(c.messages))
	copy(out, c.messages)
	return out
}

// Clear drops all messages and the summary.
func (c *Context) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.messages = nil
	c.tokenCount = 0
	c.summary = ""
}

// Stats describes the current memory footprint of a context.
type Stats struct {
	Player       string  `json:"player"`
	MessageCount int     `json:"message_count"`
	TokenCount   int     `json:"token_count"`
	MaxTokens    int     `json:"max_tokens"`
	UsagePercent float64 `json:"usage_percent"`
	HasSummary   bool    `json:"has_summary"`
}

// Stats returns a snapshot of the context's memory usage.
func (c *Context) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	usage := 0.0
	if c.maxTokens > 0 {
		usage = float64(c.tokenCount) / float64(c.maxTokens) * 100
	}
	return Stats{
		Player:       c.player,
		MessageCount: len(c.messages),
		TokenCount:   c.tokenCount,
		MaxTokens:    c.maxTokens,
		UsagePercent: usage,
		HasSummary:   c.summary != "",
	}
}
