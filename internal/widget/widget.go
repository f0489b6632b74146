// Package widget holds the chat client's UI state and the operations the
// launcher, input box and toolbar buttons trigger. Front-ends render State
// snapshots and re-render whenever Changes fires.
package widget

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"aurorachat/internal/logging"
	"aurorachat/internal/models"
)

const (
	WelcomeText      = "Hey, I’m Aurora – your personal project guide. Ask me about this chatbot, the tech stack, or anything fun like a joke! ✨"
	HealthWarning    = "Heads up: I couldn't reach the backend health endpoint. The chat may be offline."
	EmptyReplyText   = "Hmm, I got an empty response from the server 🤔"
	NetworkErrorText = "❌ Network error: unable to reach the server."
	ServerErrorText  = "The server reported an error."
)

var ErrEmptyMessage = errors.New("message is empty")

// Backend is the relay as seen by the widget.
type Backend interface {
	Health(ctx context.Context) (*models.HealthResponse, error)
	Chat(ctx context.Context, message string) (*ChatResult, error)
}

// State is an immutable snapshot of the widget.
type State struct {
	Open     bool
	Focused  bool
	Theme    Theme
	Messages []models.Message
	// Pending counts requests awaiting a reply; each shows a typing row.
	Pending int
}

type Widget struct {
	backend Backend
	themes  ThemeStore
	now     func() time.Time

	mu    sync.Mutex
	state State

	changes chan struct{}
	probes  sync.WaitGroup
}

type Option func(*Widget)

// WithClock replaces time.Now for message timestamps.
func WithClock(now func() time.Time) Option {
	return func(w *Widget) { w.now = now }
}

// New builds a closed widget with an empty log and the persisted theme.
func New(backend Backend, themes ThemeStore, opts ...Option) (*Widget, error) {
	if backend == nil {
		return nil, errors.New("backend required")
	}
	if themes == nil {
		themes = NewMemoryThemeStore(ThemeDark)
	}
	theme, err := themes.Load()
	if err != nil {
		return nil, err
	}
	w := &Widget{
		backend: backend,
		themes:  themes,
		now:     time.Now,
		state:   State{Theme: theme},
		changes: make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// State returns a snapshot safe to keep after further mutations.
func (w *Widget) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	s := w.state
	s.Messages = append([]models.Message(nil), w.state.Messages...)
	return s
}

// Changes fires after every mutation. Bursts coalesce into one signal.
func (w *Widget) Changes() <-chan struct{} {
	return w.changes
}

// Open shows the panel with a fresh welcome log and probes the backend in
// the background. Opening an open panel does nothing.
func (w *Widget) Open(ctx context.Context) {
	w.mu.Lock()
	if w.state.Open {
		w.mu.Unlock()
		return
	}
	w.showLocked()
	w.mu.Unlock()
	w.notify()

	w.probes.Add(1)
	go w.probe(ctx)
}

func (w *Widget) Close() {
	w.mu.Lock()
	changed := w.state.Open
	w.state.Open = false
	w.state.Focused = false
	w.mu.Unlock()
	if changed {
		w.notify()
	}
}

// Toggle is the launcher button: open when closed, close when open.
func (w *Widget) Toggle(ctx context.Context) {
	w.mu.Lock()
	open := w.state.Open
	w.mu.Unlock()
	if open {
		w.Close()
		return
	}
	w.Open(ctx)
}

// ToggleTheme flips the theme and persists it. The new theme applies even
// when saving fails.
func (w *Widget) ToggleTheme() (Theme, error) {
	w.mu.Lock()
	w.state.Theme = w.state.Theme.Toggle()
	theme := w.state.Theme
	w.mu.Unlock()
	w.notify()

	if err := w.themes.Save(theme); err != nil {
		logging.L().Warn("persist theme", zap.String("theme", string(theme)), zap.Error(err))
		return theme, err
	}
	return theme, nil
}

// Clear resets the log to the welcome message.
func (w *Widget) Clear() {
	w.mu.Lock()
	w.resetLocked()
	w.mu.Unlock()
	w.notify()
}

// Send posts text to the relay and appends exactly one bot message, which it
// also returns. Empty input is rejected without a request.
func (w *Widget) Send(ctx context.Context, text string) (models.Message, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return models.Message{}, ErrEmptyMessage
	}

	w.mu.Lock()
	w.appendLocked(models.SenderUser, text)
	w.state.Pending++
	w.mu.Unlock()
	w.notify()

	res, err := w.backend.Chat(ctx, text)
	if err != nil {
		logging.L().Debug("chat request failed", zap.Error(err))
	}
	reply := botText(res, err)

	w.mu.Lock()
	w.state.Pending--
	msg := w.appendLocked(models.SenderBot, reply)
	w.mu.Unlock()
	w.notify()
	return msg, nil
}

// Suggest is the quick-reply and prompt-chip entry point. A closed panel is
// opened first, without a health probe.
func (w *Widget) Suggest(ctx context.Context, text string) (models.Message, error) {
	w.mu.Lock()
	opened := false
	if !w.state.Open {
		w.showLocked()
		opened = true
	}
	w.mu.Unlock()
	if opened {
		w.notify()
	}
	return w.Send(ctx, text)
}

// Wait blocks until background health probes have finished.
func (w *Widget) Wait() {
	w.probes.Wait()
}

func (w *Widget) probe(ctx context.Context) {
	defer w.probes.Done()
	if _, err := w.backend.Health(ctx); err != nil {
		logging.L().Debug("health probe failed", zap.Error(err))
		w.mu.Lock()
		w.appendLocked(models.SenderBot, HealthWarning)
		w.mu.Unlock()
		w.notify()
	}
}

func (w *Widget) showLocked() {
	w.state.Open = true
	w.state.Focused = true
	w.resetLocked()
}

func (w *Widget) resetLocked() {
	w.state.Messages = nil
	w.appendLocked(models.SenderBot, WelcomeText)
}

func (w *Widget) appendLocked(sender models.Sender, text string) models.Message {
	msg := models.Message{Sender: sender, Text: text, Timestamp: w.now()}
	w.state.Messages = append(w.state.Messages, msg)
	return msg
}

func (w *Widget) notify() {
	select {
	case w.changes <- struct{}{}:
	default:
	}
}

func botText(res *ChatResult, err error) string {
	if err != nil || res == nil {
		return NetworkErrorText
	}
	if !res.OK() {
		detail := firstNonEmpty(res.Body.Message, res.Body.Error, res.Body.Reply)
		if detail == "" {
			detail = ServerErrorText
		}
		return "⚠️ " + detail
	}
	if res.Body.Reply == "" {
		return EmptyReplyText
	}
	return res.Body.Reply
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
