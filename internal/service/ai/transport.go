package ai

import (
	"context"
	"net/http"
	"sync"
)

type probeKey struct{}

// statusProbe remembers the last non-success status seen during one call.
type statusProbe struct {
	mu   sync.Mutex
	code int
}

func (p *statusProbe) record(code int) {
	p.mu.Lock()
	p.code = code
	p.mu.Unlock()
}

func (p *statusProbe) status() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.code
}

func withStatusProbe(ctx context.Context, p *statusProbe) context.Context {
	return context.WithValue(ctx, probeKey{}, p)
}

func probeFrom(ctx context.Context) *statusProbe {
	p, _ := ctx.Value(probeKey{}).(*statusProbe)
	return p
}

// statusRecorder lets SDK-backed providers report upstream HTTP failures as
// *StatusError even though the SDKs hide the response.
type statusRecorder struct {
	next http.RoundTripper
}

func (t statusRecorder) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, err := t.next.RoundTrip(req)
	if err != nil {
		return resp, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if p := probeFrom(req.Context()); p != nil {
			p.record(resp.StatusCode)
		}
	}
	return resp, nil
}

// withStatusRecorder returns a shallow copy of client whose transport feeds
// status probes.
func withStatusRecorder(client *http.Client) *http.Client {
	next := client.Transport
	if next == nil {
		next = http.DefaultTransport
	}
	wrapped := *client
	wrapped.Transport = statusRecorder{next: next}
	return &wrapped
}
