package widget

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/bytedance/sonic"

	"aurorachat/internal/models"
)

const (
	DefaultServerURL = "http://localhost:4321"
	DefaultTimeout   = 30 * time.Second
	maxBodySize      = 1 << 20
)

// ChatResult is a decoded /api/chat response of any status.
type ChatResult struct {
	StatusCode int
	Body       models.ChatResponse
}

func (r *ChatResult) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// HTTPBackend talks to the relay over HTTP.
type HTTPBackend struct {
	baseURL string
	http    *http.Client
}

// NewHTTPBackend targets the relay at baseURL. timeout <= 0 uses DefaultTimeout.
func NewHTTPBackend(baseURL string, timeout time.Duration) (*HTTPBackend, error) {
	base := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if base == "" {
		base = DefaultServerURL
	}
	u, err := url.Parse(base)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid server url %q", baseURL)
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &HTTPBackend{baseURL: base, http: &http.Client{Timeout: timeout}}, nil
}

func (b *HTTPBackend) BaseURL() string { return b.baseURL }

// Health probes GET /health; any non-2xx status is an error.
func (b *HTTPBackend) Health(ctx context.Context) (*models.HealthResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.baseURL+"/health", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := b.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("health: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("health: unexpected status %d", resp.StatusCode)
	}

	var out models.HealthResponse
	if err := decodeBody(resp.Body, &out); err != nil {
		return nil, fmt.Errorf("health: %w", err)
	}
	return &out, nil
}

// Chat posts one message. Errors mean no usable body arrived: transport
// failure, timeout, or a body that is not JSON.
func (b *HTTPBackend) Chat(ctx context.Context, message string) (*ChatResult, error) {
	payload, err := sonic.Marshal(models.ChatRequest{Message: &message})
	if err != nil {
		return nil, fmt.Errorf("encode chat request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.baseURL+"/api/chat", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := b.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("chat: %w", err)
	}
	defer resp.Body.Close()

	res := &ChatResult{StatusCode: resp.StatusCode}
	if err := decodeBody(resp.Body, &res.Body); err != nil {
		return nil, fmt.Errorf("chat: status %d: %w", resp.StatusCode, err)
	}
	return res, nil
}

func decodeBody(r io.Reader, v any) error {
	raw, err := io.ReadAll(io.LimitReader(r, maxBodySize))
	if err != nil {
		return fmt.Errorf("read body: %w", err)
	}
	if err := sonic.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("decode body: %w", err)
	}
	return nil
}
