package memory

import (
	"strings"
	"testing"
)

func TestAddAccumulatesMessages(t *testing.T) {
	ctx := NewContext("QWEN")
	ctx.Add(RoleSystem, "You are playing a word game.")
	ctx.Add(RoleUser, "Round 1, describe your word.")
	ctx.Add(RoleAssistant, "It is something you drink in the morning.")

	msgs := ctx.Messages()
	if len(msgs) != 3 {
		t.Fatalf("got %d messages, want 3", len(msgs))
	}
	if msgs[0].Role != RoleSystem {
		t.Errorf("first message role = %s, want system", msgs[0].Role)
	}

	stats := ctx.Stats()
	if stats.MessageCount != 3 {
		t.Errorf("MessageCount = %d, want 3", stats.MessageCount)
	}
	if stats.TokenCount == 0 {
		t.Error("TokenCount should be non-zero after adding messages")
	}
	if stats.HasSummary {
		t.Error("HasSummary should be false before compression")
	}
}

func TestCompressionPreservesSystemAndRecent(t *testing.T) {
	// Tiny budget with a small recent window so compression triggers
	// after a handful of messages.
	ctx := NewContext("QWEN", WithMaxTokens(300), WithRecentMessages(4))

	ctx.Add(RoleSystem, "You are playing a word game.")
	for i := 0; i < 20; i++ {
		ctx.Add(RoleUser, "description round: everyone has spoken, your turn now")
		ctx.Add(RoleAssistant, "My word is something commonly found in a kitchen near the stove.")
	}

	msgs := ctx.Messages()
	if msgs[0].Role != RoleSystem {
		t.Fatalf("system prompt not preserved, first role = %s", msgs[0].Role)
	}

	stats := ctx.Stats()
	if !stats.HasSummary {
		t.Error("expected a summary after compression")
	}
	// system + summary pair + recent window is the ceiling right after
	// a compression pass; a few more Adds may push past it but never by
	// more than the recent window.
	if stats.MessageCount > 1+2+4+4 {
		t.Errorf("MessageCount = %d, compression not bounding history", stats.MessageCount)
	}

	// The summary pair directly follows the system prompt.
	if !strings.HasPrefix(msgs[1].Content, "[memory summary]") {
		t.Errorf("message after system = %q, want memory summary", msgs[1].Content)
	}
	if msgs[2].Role != RoleAssistant {
		t.Errorf("summary acknowledgement role = %s, want assistant", msgs[2].Role)
	}
}

func TestCompressionSummaryFragments(t *testing.T) {
	ctx := NewContext("QWEN", WithMaxTokens(200), WithRecentMessages(2))

	for i := 0; i < 10; i++ {
		ctx.Add(RoleUser, "time to vote for the most suspicious player")
		ctx.Add(RoleAssistant, strings.Repeat("a suspicious and very long winded statement ", 3))
	}

	stats := ctx.Stats()
	if !stats.HasSummary {
		t.Fatal("expected summary after compression")
	}

	var summary string
	for _, msg := range ctx.Messages() {
		if strings.HasPrefix(msg.Content, "[memory summary]") {
			summary = msg.Content
			break
		}
	}
	if summary == "" {
		t.Fatal("summary message not found")
	}
	// At most five fragments survive.
	if n := strings.Count(summary, ";") + 1; n > 5 {
		t.Errorf("summary has %d fragments, want at most 5", n)
	}
	if !strings.Contains(summary, "[cast a vote]") {
		t.Errorf("summary %q missing vote fragment", summary)
	}
}

func TestNoCompressionWhenHistoryShort(t *testing.T) {
	// Budget is tiny but the message count never exceeds the recent
	// window, so compression must be a no-op.
	ctx := NewContext("QWEN", WithMaxTokens(10), WithRecentMessages(20))

	ctx.Add(RoleSystem, "You are playing a word game.")
	ctx.Add(RoleUser, "Round 1, describe your word in one sentence.")

	if got := len(ctx.Messages()); got != 2 {
		t.Errorf("got %d messages, want 2", got)
	}
	if ctx.Stats().HasSummary {
		t.Error("short history must not be summarized")
	}
}

func TestClear(t *testing.T) {
	ctx := NewContext("QWEN")
	ctx.Add(RoleUser, "hello")
	ctx.Clear()

	stats := ctx.Stats()
	if stats.MessageCount != 0 || stats.TokenCount != 0 || stats.HasSummary {
		t.Errorf("Clear left residual state: %+v", stats)
	}
}
