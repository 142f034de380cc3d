package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// Client implements Provider against OpenAI-compatible chat completion
// endpoints (Ollama, OpenAI, DeepSeek, OpenRouter, custom).
type Client struct {
	config Config
	http   *http.Client
}

// chatRequest is an OpenAI-compatible chat completion request.
type chatRequest struct {
	Model          string          `json:"model"`
	Messages       []chatMessage   `json:"messages"`
	Temperature    float64         `json:"temperature"`
	MaxTokens      int             `json:"max_tokens,omitempty"`
	Seed           *int            `json:"seed,omitempty"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFormat struct {
	Type string `json:"type"`
}

// chatResponse is an OpenAI-compatible chat completion response.
type chatResponse struct {
	Choices []struct {
		Message      chatMessage `json:"message"`
		FinishReason string      `json:"finish_reason"`
	} `json:"choices"`
	Error *apiError `json:"error,omitempty"`
}

type apiError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}

// NewClient creates a chat completion client from a validated config.
func NewClient(cfg *Config) *Client {
	return &Client{
		config: *cfg,
		http: &http.Client{
			Timeout: time.Duration(cfg.TimeoutSecs) * time.Second,
		},
	}
}

func (c *Client) Name() string {
	return c.config.Provider + "/" + c.config.Model
}

// Complete sends one chat completion request, retrying transient failures
// with exponential backoff (1s, 2s, 4s) up to MaxRetries, honoring
// Retry-After on rate limits. Returns the trimmed response text; an empty
// completion is returned as-is, not as an error, so callers can treat it as
// an unparseable payload rather than a backend fault.
func (c *Client) Complete(ctx context.Context, prompt string, opts CompletionOpts) (string, error) {
	messages := make([]chatMessage, 0, 2)
	if opts.System != "" {
		messages = append(messages, chatMessage{Role: "system", Content: opts.System})
	}
	messages = append(messages, chatMessage{Role: "user", Content: prompt})

	req := chatRequest{
		Model:       c.config.Model,
		Messages:    messages,
		Temperature: opts.Temperature,
		Seed:        opts.Seed,
	}
	if opts.MaxTokens > 0 {
		req.MaxTokens = opts.MaxTokens
	}
	if strings.ToLower(opts.Format) == "json" {
		req.ResponseFormat = &responseFormat{Type: "json_object"}
	}

	var lastErr error
	for attempt := 0; attempt <= c.config.MaxRetries; attempt++ {
		text, err := c.attempt(ctx, req)
		if err == nil {
			return text, nil
		}
		lastErr = err

		if attempt == c.config.MaxRetries {
			break
		}

		backoff := time.Duration(1<<attempt) * time.Second
		if httpErr, ok := err.(*HTTPError); ok {
			if httpErr.StatusCode == http.StatusTooManyRequests && httpErr.RetryAfter > 0 {
				backoff = httpErr.RetryAfter
			}
		}

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(backoff):
		}
	}

	return "", fmt.Errorf("completion failed after %d attempts: %w", c.config.MaxRetries+1, lastErr)
}

// attempt makes a single chat completion round trip.
func (c *Client) attempt(ctx context.Context, req chatRequest) (string, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.Endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.config.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.config.APIKey)
	}
	if c.config.Provider == "openrouter" {
		httpReq.Header.Set("HTTP-Referer", "https://github.com/thsensai/sensai")
		httpReq.Header.Set("X-Title", "sensai")
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var retryAfter time.Duration
		if header := resp.Header.Get("Retry-After"); header != "" {
			if seconds, err := strconv.Atoi(header); err == nil {
				retryAfter = time.Duration(seconds) * time.Second
			}
		}
		return "", &HTTPError{
			StatusCode: resp.StatusCode,
			Message:    string(respBody),
			RetryAfter: retryAfter,
		}
	}

	var chatResp chatResponse
	if err := json.Unmarshal(respBody, &chatResp); err != nil {
		return "", fmt.Errorf("parsing response JSON: %w", err)
	}
	if chatResp.Error != nil {
		return "", fmt.Errorf("API error: %s", chatResp.Error.Message)
	}
	if len(chatResp.Choices) == 0 {
		return "", fmt.Errorf("no choices in response")
	}

	return strings.TrimSpace(chatResp.Choices[0].Message.Content), nil
}
