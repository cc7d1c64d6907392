package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func newTestServer(t *testing.T, generated string, tokenCalls, genCalls *int) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/identity/token":
			*tokenCalls++
			if err := r.ParseForm(); err != nil {
				t.Fatalf("parse token form: %v", err)
			}
			if got := r.PostForm.Get("grant_type"); got != "urn:ibm:params:oauth:grant-type:apikey" {
				t.Fatalf("grant_type = %q", got)
			}
			if got := r.PostForm.Get("apikey"); got != "test-key" {
				t.Fatalf("apikey = %q", got)
			}
			_ = json.NewEncoder(w).Encode(map[string]any{
				"access_token": "iam-token",
				"expires_in":   3600,
			})
		case strings.HasPrefix(r.URL.Path, "/ml/v1/text/generation"):
			*genCalls++
			if got := r.Header.Get("Authorization"); got != "Bearer iam-token" {
				t.Fatalf("Authorization = %q", got)
			}
			var payload struct {
				ModelID    string         `json:"model_id"`
				Input      string         `json:"input"`
				ProjectID  string         `json:"project_id"`
				Parameters map[string]any `json:"parameters"`
			}
			if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
				t.Fatalf("decode generation payload: %v", err)
			}
			if payload.ModelID != "ibm/granite-3-2-8b-instruct" {
				t.Fatalf("model_id = %q", payload.ModelID)
			}
			if payload.ProjectID != "skills-network" {
				t.Fatalf("project_id = %q", payload.ProjectID)
			}
			if payload.Parameters["decoding_method"] != "sample" {
				t.Fatalf("decoding_method = %v", payload.Parameters["decoding_method"])
			}
			_ = json.NewEncoder(w).Encode(map[string]any{
				"results": []map[string]any{{"generated_text": generated}},
			})
		default:
			t.Fatalf("unexpected request path %q", r.URL.Path)
		}
	}))
}

func newTestClient(t *testing.T, server *httptest.Server) *WatsonxClient {
	t.Helper()
	client, err := NewWatsonxClient(WatsonxConfig{
		BaseURL:   server.URL,
		APIKey:    "test-key",
		ProjectID: "skills-network",
		ModelID:   "ibm/granite-3-2-8b-instruct",
		AuthURL:   server.URL + "/identity/token",
	})
	if err != nil {
		t.Fatalf("NewWatsonxClient() error = %v", err)
	}
	return client
}

func TestWatsonxGenerate(t *testing.T) {
	var tokenCalls, genCalls int
	server := newTestServer(t, "Final Answer: 42", &tokenCalls, &genCalls)
	defer server.Close()

	client := newTestClient(t, server)
	got, err := client.Generate(context.Background(), "prompt", GenParams{
		MaxTokens:         1024,
		Temperature:       0.2,
		TopP:              0.95,
		RepetitionPenalty: 1.2,
	})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if got != "Final Answer: 42" {
		t.Fatalf("Generate() = %q", got)
	}
	if genCalls != 1 {
		t.Fatalf("generation calls = %d", genCalls)
	}
}

func TestWatsonxTokenIsCachedAcrossCalls(t *testing.T) {
	var tokenCalls, genCalls int
	server := newTestServer(t, "ok", &tokenCalls, &genCalls)
	defer server.Close()

	client := newTestClient(t, server)
	for i := 0; i < 3; i++ {
		if _, err := client.Generate(context.Background(), "prompt", GenParams{MaxTokens: 16, Temperature: 0.5}); err != nil {
			t.Fatalf("Generate() error = %v", err)
		}
	}
	if tokenCalls != 1 {
		t.Fatalf("token calls = %d, want 1", tokenCalls)
	}
	if genCalls != 3 {
		t.Fatalf("generation calls = %d, want 3", genCalls)
	}
}

func TestWatsonxGenerateSurfacesHTTPErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/identity/token" {
			_ = json.NewEncoder(w).Encode(map[string]any{"access_token": "iam-token", "expires_in": 3600})
			return
		}
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"errors":[{"code":"rate_limited"}]}`))
	}))
	defer server.Close()

	client := newTestClient(t, server)
	_, err := client.Generate(context.Background(), "prompt", GenParams{MaxTokens: 16})
	if err == nil {
		t.Fatal("Generate() expected error")
	}
	if !strings.Contains(err.Error(), "status=429") {
		t.Fatalf("Generate() error = %v", err)
	}
}

func TestNewWatsonxClientValidatesConfig(t *testing.T) {
	if _, err := NewWatsonxClient(WatsonxConfig{APIKey: "k", ModelID: "m"}); err == nil {
		t.Fatal("expected error for missing base URL")
	}
	if _, err := NewWatsonxClient(WatsonxConfig{BaseURL: "https://example.com", ModelID: "m"}); err == nil {
		t.Fatal("expected error for missing api key")
	}
	if _, err := NewWatsonxClient(WatsonxConfig{BaseURL: "https://example.com", APIKey: "k"}); err == nil {
		t.Fatal("expected error for missing model id")
	}
}

func TestGenerationParametersGreedyWhenTemperatureZero(t *testing.T) {
	parameters := generationParameters(GenParams{MaxTokens: 256, RepetitionPenalty: 1.2})
	if parameters["decoding_method"] != "greedy" {
		t.Fatalf("decoding_method = %v", parameters["decoding_method"])
	}
	if _, ok := parameters["temperature"]; ok {
		t.Fatal("temperature should be omitted for greedy decoding")
	}
}
