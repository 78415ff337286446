package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"coi-backend/internal/shared/retry"
)

func TestOmitTemperature(t *testing.T) {
	t.Setenv("LLM_NO_TEMP0_MODELS", "custom-model")

	tests := []struct {
		name  string
		model string
		want  bool
	}{
		{name: "gpt5", model: "gpt-5", want: true},
		{name: "gpt5 variant", model: "gpt-5-mini", want: true},
		{name: "reasoning", model: " O3-mini ", want: true},
		{name: "denylist", model: "custom-model", want: true},
		{name: "gpt4o", model: "gpt-4o", want: false},
		{name: "empty", model: "", want: false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			if got := omitTemperature(tt.model); got != tt.want {
				t.Fatalf("omitTemperature(%q) = %v, want %v", tt.model, got, tt.want)
			}
		})
	}
}

func TestSupportsJSONMode(t *testing.T) {
	if supportsJSONMode("gpt-4") {
		t.Fatal("gpt-4 does not support json mode")
	}
	if !supportsJSONMode("gpt-4o") || !supportsJSONMode("gpt-4-turbo") {
		t.Fatal("expected json mode for gpt-4o and gpt-4-turbo")
	}
}

func withServer(t *testing.T, h http.HandlerFunc) {
	t.Helper()
	server := httptest.NewServer(h)
	oldURL := apiURL
	apiURL = server.URL
	t.Cleanup(func() {
		apiURL = oldURL
		server.Close()
	})
}

func TestExtractSendsSystemAndUserMessages(t *testing.T) {
	var got chatRequest
	withServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer test-key" {
			t.Errorf("missing bearer token")
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"r1","choices":[{"message":{"role":"assistant","content":" {\"insured\":{\"name\":\"Foo Corp\"}} "}}],"usage":{"prompt_tokens":10,"completion_tokens":5,"total_tokens":15}}`))
	})

	client, err := NewClient("test-key", "gpt-4o")
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	out, err := client.Extract(context.Background(), "questions", "### Page 1\nFoo Corp")
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if out != `{"insured":{"name":"Foo Corp"}}` {
		t.Fatalf("unexpected output %q", out)
	}
	if len(got.Messages) != 2 || got.Messages[0].Role != "system" || got.Messages[0].Content != "questions" {
		t.Fatalf("unexpected messages %+v", got.Messages)
	}
	if got.Messages[1].Role != "user" || !strings.Contains(got.Messages[1].Content, "Foo Corp") {
		t.Fatalf("unexpected user message %+v", got.Messages[1])
	}
	if got.Temperature == nil || *got.Temperature != 0 {
		t.Fatalf("expected temperature 0")
	}
	if got.ResponseFormat == nil || got.ResponseFormat.Type != "json_object" {
		t.Fatalf("expected json_object response format")
	}
}

func TestExtractClassifiesHTTPErrors(t *testing.T) {
	status := http.StatusBadRequest
	withServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		_, _ = w.Write([]byte(`{"error":{"message":"bad","type":"invalid_request_error"}}`))
	})

	client, err := NewClient("k", "gpt-4o")
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}

	_, err = client.Extract(context.Background(), "q", "t")
	if err == nil || retry.ShouldRetry(err) {
		t.Fatalf("expected permanent 400 error, got %v", err)
	}

	status = http.StatusBadGateway
	_, err = client.Extract(context.Background(), "q", "t")
	if err == nil || !retry.ShouldRetry(err) {
		t.Fatalf("expected retryable 502 error, got %v", err)
	}
}

func TestNewClientRequiresKeyAndModel(t *testing.T) {
	if _, err := NewClient("", "gpt-4o"); err == nil {
		t.Fatal("expected error for missing key")
	}
	if _, err := NewClient("k", " "); err == nil {
		t.Fatal("expected error for missing model")
	}
}
