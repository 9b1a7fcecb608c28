package insight

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/becoming/becoming/internal/core"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.BaseURL != "https://api.anthropic.com" {
		t.Errorf("BaseURL = %q, want %q", cfg.BaseURL, "https://api.anthropic.com")
	}
	if cfg.Model != "claude-sonnet-4-20250514" {
		t.Errorf("Model = %q, want %q", cfg.Model, "claude-sonnet-4-20250514")
	}
	if cfg.Timeout != 30*time.Second {
		t.Errorf("Timeout = %v, want %v", cfg.Timeout, 30*time.Second)
	}
}

func TestNewClient_Defaults(t *testing.T) {
	client := NewClient(Config{APIKey: "test-key"})

	if client.baseURL != "https://api.anthropic.com" {
		t.Errorf("baseURL = %q, want default", client.baseURL)
	}
	if client.model != "claude-sonnet-4-20250514" {
		t.Errorf("model = %q, want default", client.model)
	}
	if !client.IsConfigured() {
		t.Error("client with key should be configured")
	}
}

func TestGenerate_Unconfigured(t *testing.T) {
	client := NewClient(Config{})

	got := client.Generate(context.Background(), core.DefaultState())
	if got != Fallback {
		t.Errorf("Generate() without key = %q, want the fallback", got)
	}
}

func insightState() *core.UserState {
	s := core.DefaultState()
	s.ActivePersonality = core.PersonalityAnchor
	s.CurrentFocusCycle = &core.FocusCycle{
		Intention:     "a calm presence",
		Practices:     []string{"breathe before replying"},
		WeekStartDate: time.Now().Add(-48 * time.Hour),
	}
	s.Wins = []core.Win{
		{ID: "w1", Text: "paused before a hard email", Type: core.WinTypeText, Timestamp: time.Now()},
	}
	return s
}

func TestGenerate_Success(t *testing.T) {
	var gotReq request
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/messages" {
			t.Errorf("path = %q, want /v1/messages", r.URL.Path)
		}
		if r.Header.Get("x-api-key") != "test-key" {
			t.Errorf("missing api key header")
		}
		json.NewDecoder(r.Body).Decode(&gotReq)

		json.NewEncoder(w).Encode(map[string]interface{}{
			"content": []map[string]string{{"type": "text", "text": "  You kept your footing this week.  "}},
		})
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "test-key", BaseURL: server.URL})
	got := client.Generate(context.Background(), insightState())

	if got != "You kept your footing this week." {
		t.Errorf("Generate() = %q, want the trimmed completion", got)
	}

	// The prompt carries the tone, intention, and recent wins.
	if !strings.Contains(gotReq.System, "anchor") {
		t.Errorf("system prompt %q should use the anchor tone", gotReq.System)
	}
	prompt := gotReq.Messages[0].Content
	if !strings.Contains(prompt, "a calm presence") {
		t.Error("prompt should include the current intention")
	}
	if !strings.Contains(prompt, "paused before a hard email") {
		t.Error("prompt should include recent wins")
	}
}

func TestGenerate_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error": "overloaded"}`, http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "test-key", BaseURL: server.URL})
	if got := client.Generate(context.Background(), insightState()); got != Fallback {
		t.Errorf("Generate() on API error = %q, want the fallback", got)
	}
}

func TestGenerate_EmptyCompletion(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{"content": []map[string]string{}})
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "test-key", BaseURL: server.URL})
	if got := client.Generate(context.Background(), insightState()); got != Fallback {
		t.Errorf("Generate() on empty completion = %q, want the fallback", got)
	}
}

func TestSystemPrompt_UnknownPersonality(t *testing.T) {
	if systemPrompt("astronaut") != tones[core.PersonalityWiseFriend] {
		t.Error("unknown personality should fall back to the wise friend tone")
	}
}
