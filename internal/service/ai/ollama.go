package ai

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/bytedance/sonic"

	"aurorachat/internal/config"
	"aurorachat/internal/models"
)

const (
	ollamaChatPath = "/api/chat"
	maxErrorBody   = 2 << 10
)

type ollamaMessage struct {
	Role    models.Role `json:"role"`
	Content string      `json:"content"`
}

type ollamaChatRequest struct {
	Model    string          `json:"model"`
	Messages []ollamaMessage `json:"messages"`
	Stream   bool            `json:"stream"`
}

// ollamaChatResponse only keeps what the relay reads. Content stays untyped
// so a non-string value reads as "no reply" instead of a decode failure.
type ollamaChatResponse struct {
	Message *struct {
		Content any `json:"content"`
	} `json:"message"`
}

type ollamaProvider struct {
	http         *http.Client
	chatURL      string
	model        string
	systemPrompt string
}

func newOllamaProvider(cfg config.ProviderConfig, systemPrompt string, client *http.Client) (*ollamaProvider, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		base = "http://localhost:11434"
	}
	u, err := url.Parse(base)
	if err != nil || u.Host == "" {
		return nil, fmt.Errorf("invalid ollama base_url %q", cfg.BaseURL)
	}
	if client == nil {
		client = &http.Client{}
	}
	return &ollamaProvider{
		http:         client,
		chatURL:      base + ollamaChatPath,
		model:        cfg.Model,
		systemPrompt: systemPrompt,
	}, nil
}

func (p *ollamaProvider) Name() string  { return config.ProviderOllama }
func (p *ollamaProvider) Model() string { return p.model }

func (p *ollamaProvider) Complete(ctx context.Context, prompt string) (string, error) {
	body, err := sonic.Marshal(ollamaChatRequest{
		Model:    p.model,
		Messages: buildTurn(p.systemPrompt, prompt, func(role models.Role, content string) ollamaMessage {
			return ollamaMessage{Role: role, Content: content}
		}),
		Stream: false,
	})
	if err != nil {
		return "", fmt.Errorf("encode ollama request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.chatURL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build ollama request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := p.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("call ollama: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		text, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return "", &StatusError{Provider: p.Name(), Code: resp.StatusCode, Body: strings.TrimSpace(string(text))}
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read ollama response: %w", err)
	}
	var out ollamaChatResponse
	if err := sonic.Unmarshal(raw, &out); err != nil {
		return "", fmt.Errorf("decode ollama response: %w", err)
	}
	if out.Message == nil {
		return "", nil
	}
	text, _ := out.Message.Content.(string)
	return text, nil
}
