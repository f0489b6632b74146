package ai

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"aurorachat/internal/config"
	"aurorachat/internal/models"
)

func newTestConfig(provider, baseURL string) *config.Config {
	return &config.Config{
		Provider: provider,
		Providers: map[string]config.ProviderConfig{
			provider: {BaseURL: baseURL, Model: "test-model", APIKey: "test-key"},
		},
		SystemPrompt: config.DefaultSystemPrompt,
	}
}

func TestOllamaCompleteSendsSingleTurn(t *testing.T) {
	var got ollamaChatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/chat", r.URL.Path)
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"model":"test-model","message":{"role":"assistant","content":"Why did..."},"done":true}`)
	}))
	defer srv.Close()

	p, err := NewProvider(context.Background(), newTestConfig(config.ProviderOllama, srv.URL+"/"), nil)
	require.NoError(t, err)
	assert.Equal(t, "ollama", p.Name())
	assert.Equal(t, "test-model", p.Model())

	text, err := p.Complete(context.Background(), "Tell me a joke")
	require.NoError(t, err)
	assert.Equal(t, "Why did...", text)

	assert.Equal(t, "test-model", got.Model)
	assert.False(t, got.Stream)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, "system", string(got.Messages[0].Role))
	assert.Equal(t, config.DefaultSystemPrompt, got.Messages[0].Content)
	assert.Equal(t, "user", string(got.Messages[1].Role))
	assert.Equal(t, "Tell me a joke", got.Messages[1].Content)
}

func TestOllamaCompleteStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"model 'mistral' not found"}`, http.StatusNotFound)
	}))
	defer srv.Close()

	p, err := NewProvider(context.Background(), newTestConfig(config.ProviderOllama, srv.URL), nil)
	require.NoError(t, err)

	_, err = p.Complete(context.Background(), "hi")
	se, ok := AsStatusError(err)
	require.True(t, ok, "expected status error, got %v", err)
	assert.Equal(t, http.StatusNotFound, se.Code)
	assert.Contains(t, se.Body, "not found")
}

func TestOllamaCompleteBodyShapes(t *testing.T) {
	cases := []struct {
		name    string
		body    string
		want    string
		wantErr bool
	}{
		{name: "missing message", body: `{"done":true}`, want: ""},
		{name: "null content", body: `{"message":{"content":null}}`, want: ""},
		{name: "numeric content", body: `{"message":{"content":42}}`, want: ""},
		{name: "malformed", body: `{"message":`, wantErr: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_, _ = io.WriteString(w, tc.body)
			}))
			defer srv.Close()

			p, err := NewProvider(context.Background(), newTestConfig(config.ProviderOllama, srv.URL), nil)
			require.NoError(t, err)

			text, err := p.Complete(context.Background(), "hi")
			if tc.wantErr {
				assert.Error(t, err)
				_, isStatus := AsStatusError(err)
				assert.False(t, isStatus)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, text)
		})
	}
}

func TestOllamaUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	p, err := NewProvider(context.Background(), newTestConfig(config.ProviderOllama, url), nil)
	require.NoError(t, err)

	_, err = p.Complete(context.Background(), "hi")
	require.Error(t, err)
	_, isStatus := AsStatusError(err)
	assert.False(t, isStatus)
}

func TestOpenAICompatibleComplete(t *testing.T) {
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		assert.True(t, strings.HasSuffix(r.URL.Path, "/chat/completions"), r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{
			"id":"chatcmpl-1","object":"chat.completion","created":1,"model":"test-model",
			"choices":[{"index":0,"message":{"role":"assistant","content":"Hello from openai"},"finish_reason":"stop"}],
			"usage":{"prompt_tokens":1,"completion_tokens":1,"total_tokens":2}
		}`)
	}))
	defer srv.Close()

	p, err := NewProvider(context.Background(), newTestConfig(config.ProviderOpenAI, srv.URL), nil)
	require.NoError(t, err)
	assert.Equal(t, "openai", p.Name())

	text, err := p.Complete(context.Background(), "hi")
	require.NoError(t, err)
	assert.Equal(t, "Hello from openai", text)
	assert.Equal(t, "Bearer test-key", auth)
}

func TestOpenAICompatibleStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = io.WriteString(w, `{"error":{"message":"bad key","type":"invalid_request_error"}}`)
	}))
	defer srv.Close()

	p, err := NewProvider(context.Background(), newTestConfig(config.ProviderOpenAI, srv.URL), nil)
	require.NoError(t, err)

	_, err = p.Complete(context.Background(), "hi")
	se, ok := AsStatusError(err)
	require.True(t, ok, "expected status error, got %v", err)
	assert.Equal(t, http.StatusUnauthorized, se.Code)
	assert.Equal(t, "openai", se.Provider)
}

func TestSDKBackendsReportStatusError(t *testing.T) {
	for _, provider := range []string{config.ProviderClaude, config.ProviderGemini} {
		t.Run(provider, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = io.WriteString(w, `{"error":{"code":401,"message":"bad key","type":"authentication_error"}}`)
			}))
			defer srv.Close()

			p, err := NewProvider(context.Background(), newTestConfig(provider, srv.URL), nil)
			require.NoError(t, err)

			_, err = p.Complete(context.Background(), "hi")
			se, ok := AsStatusError(err)
			require.True(t, ok, "expected status error, got %v", err)
			assert.Equal(t, http.StatusUnauthorized, se.Code)
			assert.Equal(t, provider, se.Provider)
		})
	}
}

func TestNewProviderErrors(t *testing.T) {
	_, err := NewProvider(context.Background(), nil, nil)
	assert.Error(t, err)

	cfg := newTestConfig(config.ProviderOllama, "")
	cfg.Provider = "bard"
	_, err = NewProvider(context.Background(), cfg, nil)
	assert.Error(t, err)

	_, err = NewProvider(context.Background(), newTestConfig(config.ProviderOllama, "://nope"), nil)
	assert.Error(t, err)
}

func TestBuildTurnWithoutSystemPrompt(t *testing.T) {
	turn := buildTurn("", "hi", func(role models.Role, content string) string { return string(role) + ":" + content })
	assert.Equal(t, []string{"user:hi"}, turn)
}

func TestSystemPromptFileAppendsNotes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "project.md")
	require.NoError(t, os.WriteFile(path, []byte("\nAurora runs on gin and eino.\n"), 0o600))

	var got ollamaChatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &got))
		_, _ = io.WriteString(w, `{"message":{"content":"ok"}}`)
	}))
	defer srv.Close()

	cfg := newTestConfig(config.ProviderOllama, srv.URL)
	cfg.SystemPromptFile = path
	p, err := NewProvider(context.Background(), cfg, nil)
	require.NoError(t, err)

	_, err = p.Complete(context.Background(), "What stack is this?")
	require.NoError(t, err)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, config.DefaultSystemPrompt+"\n\nAurora runs on gin and eino.", got.Messages[0].Content)
	assert.Equal(t, "What stack is this?", got.Messages[1].Content)
}

func TestSystemPromptFileErrors(t *testing.T) {
	cfg := newTestConfig(config.ProviderOllama, "")
	cfg.SystemPromptFile = filepath.Join(t.TempDir(), "missing.md")
	_, err := NewProvider(context.Background(), cfg, nil)
	assert.Error(t, err)

	blank := filepath.Join(t.TempDir(), "blank.txt")
	require.NoError(t, os.WriteFile(blank, []byte(" \n\t"), 0o600))
	cfg.SystemPromptFile = blank
	_, err = SystemPrompt(context.Background(), cfg)
	assert.Error(t, err)

	cfg.SystemPrompt = ""
	cfg.SystemPromptFile = ""
	prompt, err := SystemPrompt(context.Background(), cfg)
	require.NoError(t, err)
	assert.Empty(t, prompt)
}
