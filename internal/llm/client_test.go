package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
)

func testConfig(endpoint string, retries int) *Config {
	return &Config{
		Provider:    "custom",
		Model:       "test-model",
		Endpoint:    endpoint,
		APIKey:      "test-key",
		MaxRetries:  retries,
		TimeoutSecs: 5,
	}
}

func chatReply(content string) string {
	return `{"choices": [{"message": {"role": "assistant", "content": ` + jsonString(content) + `}}]}`
}

func jsonString(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}

func TestCompleteSuccess(t *testing.T) {
	var gotReq chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Errorf("decoding request: %v", err)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer test-key" {
			t.Errorf("Authorization = %q", auth)
		}
		w.Write([]byte(chatReply(`  {"iocs": []}  `)))
	}))
	defer srv.Close()

	c := NewClient(testConfig(srv.URL, 0))
	got, err := c.Complete(context.Background(), "prompt", CompletionOpts{Format: "json", Temperature: 0.2})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if got != `{"iocs": []}` {
		t.Errorf("content = %q, want trimmed response", got)
	}
	if gotReq.Model != "test-model" {
		t.Errorf("request model = %q", gotReq.Model)
	}
	if gotReq.ResponseFormat == nil || gotReq.ResponseFormat.Type != "json_object" {
		t.Errorf("response_format = %+v, want json_object", gotReq.ResponseFormat)
	}
}

func TestCompleteSeedAndMaxTokensForwarded(t *testing.T) {
	var gotReq chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&gotReq)
		w.Write([]byte(chatReply("ok")))
	}))
	defer srv.Close()

	seed := 42
	c := NewClient(testConfig(srv.URL, 0))
	if _, err := c.Complete(context.Background(), "p", CompletionOpts{MaxTokens: 256, Seed: &seed}); err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if gotReq.MaxTokens != 256 {
		t.Errorf("max_tokens = %d, want 256", gotReq.MaxTokens)
	}
	if gotReq.Seed == nil || *gotReq.Seed != 42 {
		t.Errorf("seed = %v, want 42", gotReq.Seed)
	}
}

func TestCompleteRetriesTransientFailure(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte(chatReply("recovered")))
	}))
	defer srv.Close()

	c := NewClient(testConfig(srv.URL, 2))
	got, err := c.Complete(context.Background(), "p", CompletionOpts{})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if got != "recovered" {
		t.Errorf("content = %q", got)
	}
	if calls.Load() != 2 {
		t.Errorf("calls = %d, want 2", calls.Load())
	}
}

func TestCompleteExhaustsRetries(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewClient(testConfig(srv.URL, 1))
	if _, err := c.Complete(context.Background(), "p", CompletionOpts{}); err == nil {
		t.Fatal("expected error after exhausted retries")
	}
	if calls.Load() != 2 {
		t.Errorf("calls = %d, want MaxRetries+1 = 2", calls.Load())
	}
}

func TestCompleteAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"error": {"message": "model not found", "type": "invalid_request"}}`))
	}))
	defer srv.Close()

	c := NewClient(testConfig(srv.URL, 0))
	if _, err := c.Complete(context.Background(), "p", CompletionOpts{}); err == nil {
		t.Fatal("expected error from API error payload")
	}
}

func TestCompleteNoChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices": []}`))
	}))
	defer srv.Close()

	c := NewClient(testConfig(srv.URL, 0))
	if _, err := c.Complete(context.Background(), "p", CompletionOpts{}); err == nil {
		t.Fatal("expected error for empty choices")
	}
}

func TestCompleteContextCanceled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := NewClient(testConfig(srv.URL, 3))
	if _, err := c.Complete(ctx, "p", CompletionOpts{}); err == nil {
		t.Fatal("expected error with canceled context")
	}
}
