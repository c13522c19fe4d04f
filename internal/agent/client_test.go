package agent

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/undercover-ai/undercover/internal/memory"
)

func chatServer(t *testing.T, handler http.HandlerFunc) (*httptest.Server, *Client) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := NewClient(ClientConfig{
		APIKey:  "test-key",
		BaseURL: srv.URL,
		Model:   "test-model",
	}, nil)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return srv, client
}

func completionResponse(content string) string {
	resp := map[string]any{
		"choices": []map[string]any{
			{"message": map[string]any{"content": content}},
		},
	}
	data, _ := json.Marshal(resp)
	return string(data)
}

func TestChatSendsWireFormat(t *testing.T) {
	var gotReq chatRequest
	var gotAuth string

	_, client := chatServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("path = %s, want /chat/completions", r.URL.Path)
		}
		gotAuth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Errorf("decoding request: %v", err)
		}
		w.Write([]byte(completionResponse("  hello there  ")))
	})

	content, err := client.Chat(context.Background(), []memory.Message{
		{Role: memory.RoleSystem, Content: "be brief"},
		{Role: memory.RoleUser, Content: "hi"},
	}, 0.5)
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}

	if content != "hello there" {
		t.Errorf("content = %q, want trimmed reply", content)
	}
	if gotAuth != "Bearer test-key" {
		t.Errorf("Authorization = %q", gotAuth)
	}
	if gotReq.Model != "test-model" || len(gotReq.Messages) != 2 {
		t.Errorf("request = %+v", gotReq)
	}
	if gotReq.Temperature != 0.5 {
		t.Errorf("temperature = %v, want 0.5", gotReq.Temperature)
	}
}

func TestChatRateLimitError(t *testing.T) {
	_, client := chatServer(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "slow down", http.StatusTooManyRequests)
	})

	_, err := client.Chat(context.Background(), []memory.Message{
		{Role: memory.RoleUser, Content: "hi"},
	}, -1)
	if err == nil {
		t.Fatal("Chat accepted a 429 response")
	}
	if !IsRateLimited(err) {
		t.Errorf("IsRateLimited(%v) = false, want true", err)
	}
}

func TestChatNoChoices(t *testing.T) {
	_, client := chatServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices":[]}`))
	})

	if _, err := client.Chat(context.Background(), nil, -1); err == nil {
		t.Error("Chat accepted a response without choices")
	}
}

func TestChatWithRetryRecovers(t *testing.T) {
	if testing.Short() {
		t.Skip("retry backoff is slow")
	}

	var calls atomic.Int32
	_, client := chatServer(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			http.Error(w, "transient", http.StatusInternalServerError)
			return
		}
		w.Write([]byte(completionResponse("recovered")))
	})

	content, err := client.ChatWithRetry(context.Background(), []memory.Message{
		{Role: memory.RoleUser, Content: "hi"},
	}, -1)
	if err != nil {
		t.Fatalf("ChatWithRetry: %v", err)
	}
	if content != "recovered" {
		t.Errorf("content = %q, want recovered", content)
	}
	if calls.Load() != 2 {
		t.Errorf("calls = %d, want 2", calls.Load())
	}
}

func TestChatWithRetryHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	_, client := chatServer(t, func(w http.ResponseWriter, r *http.Request) {
		cancel()
		http.Error(w, "down", http.StatusInternalServerError)
	})

	if _, err := client.ChatWithRetry(ctx, nil, -1); err == nil {
		t.Error("ChatWithRetry kept going after cancellation")
	}
}

func TestHealthCheck(t *testing.T) {
	_, client := chatServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(completionResponse("OK")))
	})

	if err := client.HealthCheck(context.Background()); err != nil {
		t.Errorf("HealthCheck: %v", err)
	}
}

func TestNewClientValidation(t *testing.T) {
	if _, err := NewClient(ClientConfig{Model: "m"}, nil); err == nil {
		t.Error("NewClient accepted an empty base URL")
	}
	if _, err := NewClient(ClientConfig{BaseURL: "http://localhost"}, nil); err == nil {
		t.Error("NewClient accepted an empty model")
	}
}
