// Package agent backs each player with an OpenAI-compatible chat
// completions endpoint. The Client speaks the wire format directly so
// any conforming server works (OpenAI, OpenRouter, vLLM, Ollama,
// llama.cpp and friends); Player adapts the chat surface to the game
// capabilities the engine drives.
package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/undercover-ai/undercover/internal/logging"
	"github.com/undercover-ai/undercover/internal/memory"
)

const (
	defaultTimeout     = 30 * time.Second
	defaultTemperature = 0.7
	defaultMaxTokens   = 500

	retryAttempts  = 6
	retryBaseDelay = 2 * time.Second
)

// ClientConfig holds the connection settings for one provider.
type ClientConfig struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration
}

// Client is a minimal chat completions client for a single model.
type Client struct {
	httpClient  *http.Client
	baseURL     string
	apiKey      string
	model       string
	temperature float64
	maxTokens   int
	logger      *logging.Logger
}

// NewClient validates the config and returns a ready Client.
func NewClient(cfg ClientConfig, logger *logging.Logger) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("base URL is required")
	}
	if cfg.Model == "" {
		return nil, errors.New("model is required")
	}
	if _, err := url.Parse(cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	temperature := cfg.Temperature
	if temperature == 0 {
		temperature = defaultTemperature
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}
	if logger == nil {
		logger = logging.NopLogger()
	}

	return &Client{
		httpClient:  &http.Client{Timeout: timeout},
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:      cfg.APIKey,
		model:       cfg.Model,
		temperature: temperature,
		maxTokens:   maxTokens,
		logger:      logger.With("model", cfg.Model),
	}, nil
}

// Model returns the model identifier this client talks to.
func (c *Client) Model() string { return c.model }

// chatRequest is the chat completions wire format.
type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// StatusError is returned when the server answers with a non-2xx
// status. It preserves the code so callers can detect rate limiting.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("chat request failed with status %d: %s", e.Code, e.Body)
}

// IsRateLimited reports whether err is an HTTP 429 from the provider.
func IsRateLimited(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Code == http.StatusTooManyRequests
}

// Chat sends one completion request. A negative temperature uses the
// client default.
func (c *Client) Chat(ctx context.Context, messages []memory.Message, temperature float64) (string, error) {
	if temperature < 0 {
		temperature = c.temperature
	}

	req := chatRequest{
		Model:       c.model,
		Messages:    make([]chatMessage, 0, len(messages)),
		Temperature: temperature,
		MaxTokens:   c.maxTokens,
	}
	for _, m := range messages {
		req.Messages = append(req.Messages, chatMessage{Role: m.Role, Content: m.Content})
	}

	body, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("failed to encode chat request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to build chat request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	c.logger.Debug("chat request", "messages", len(req.Messages), "temperature", temperature)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("chat request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("failed to read chat response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(data))}
	}

	var parsed chatResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return "", fmt.Errorf("failed to decode chat response: %w", err)
	}
	if parsed.Error != nil {
		return "", fmt.Errorf("provider error: %s", parsed.Error.Message)
	}
	if len(parsed.Choices) == 0 {
		return "", errors.New("chat response has no choices")
	}

	content := strings.TrimSpace(parsed.Choices[0].Message.Content)
	c.logger.Debug("chat response", "length", len(content))
	return content, nil
}

// ChatWithRetry wraps Chat with exponential backoff. Rate-limit
// responses get the same schedule but are logged distinctly since they
// are expected under concurrent ballots.
func (c *Client) ChatWithRetry(ctx context.Context, messages []memory.Message, temperature float64) (string, error) {
	var lastErr error

	for attempt := 0; attempt < retryAttempts; attempt++ {
		content, err := c.Chat(ctx, messages, temperature)
		if err == nil {
			return content, nil
		}
		lastErr = err

		if attempt == retryAttempts-1 {
			break
		}

		wait := retryBaseDelay*(1<<attempt) + time.Duration(rand.Float64()*float64(time.Second))
		if IsRateLimited(err) {
			c.logger.Warn("rate limited, backing off",
				"wait", wait, "attempt", attempt+1, "attempts", retryAttempts)
		} else {
			c.logger.Warn("chat request failed, retrying",
				"error", err, "wait", wait, "attempt", attempt+1, "attempts", retryAttempts)
		}

		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}

	c.logger.Error("chat request failed after retries", "error", lastErr)
	return "", lastErr
}

// HealthCheck sends a trivial completion to verify the endpoint and
// credentials work.
func (c *Client) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	_, err := c.Chat(ctx, []memory.Message{
		{Role: memory.RoleUser, Content: "Reply with 'OK'."},
	}, 0)
	if err != nil {
		return fmt.Errorf("%s: %w", c.model, err)
	}
	return nil
}
