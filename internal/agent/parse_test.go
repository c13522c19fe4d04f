package agent

import "testing"

func TestParseStructured(t *testing.T) {
	tests := []struct {
		name         string
		response     string
		wantThinking string
		wantContent  string
	}{
		{
			name:         "tagged response",
			response:     "THINKING: bob sounds vague\nSAY: Mine is something you drink every day.",
			wantThinking: "bob sounds vague",
			wantContent:  "Mine is something you drink every day.",
		},
		{
			name:        "untagged response",
			response:    "Mine is something you drink every day.",
			wantContent: "Mine is something you drink every day.",
		},
		{
			name:         "thinking without say tag",
			response:     "THINKING: not sure yet\nIt keeps me awake at work.",
			wantThinking: "not sure yet",
			wantContent:  "It keeps me awake at work.",
		},
		{
			name:        "think tags stripped",
			response:    "<think>secret reasoning</think>SAY: It smells great in the morning.",
			wantContent: "It smells great in the morning.",
		},
		{
			name:        "quotes and fences removed",
			response:    "SAY: \"It's bitter.\"",
			wantContent: "Its bitter.",
		},
		{
			name:         "lowercase tags",
			response:     "thinking: hmm\nsay: A warm drink.",
			wantThinking: "hmm",
			wantContent:  "A warm drink.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := parseStructured(tt.response)
			if got.Thinking != tt.wantThinking {
				t.Errorf("Thinking = %q, want %q", got.Thinking, tt.wantThinking)
			}
			if got.Content != tt.wantContent {
				t.Errorf("Content = %q, want %q", got.Content, tt.wantContent)
			}
		})
	}
}

func TestMatchCandidate(t *testing.T) {
	candidates := []string{"alice", "bob", "carol"}

	tests := []struct {
		name     string
		response string
		want     string
	}{
		{"exact", "bob", "bob"},
		{"case insensitive", "Bob", "bob"},
		{"embedded name", "I think alice is the undercover.", "alice"},
		{"vote prefix", "I vote for carol", "carol"},
		{"say tag", "SAY: bob", "bob"},
		{"quoted", "\"carol\"", "carol"},
		{"think tags", "<think>must be bob</think>bob", "bob"},
		{"unmatched returned as-is", "nobody", "nobody"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := matchCandidate(tt.response, candidates); got != tt.want {
				t.Errorf("matchCandidate(%q) = %q, want %q", tt.response, got, tt.want)
			}
		})
	}
}
