package widget

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"aurorachat/internal/models"
)

type fakeBackend struct {
	mu        sync.Mutex
	healthErr error
	result    *ChatResult
	chatErr   error
	sent      []string
	release   chan struct{}
}

func (f *fakeBackend) Health(context.Context) (*models.HealthResponse, error) {
	if f.healthErr != nil {
		return nil, f.healthErr
	}
	return &models.HealthResponse{Status: "ok", Timestamp: 1}, nil
}

func (f *fakeBackend) Chat(_ context.Context, message string) (*ChatResult, error) {
	f.mu.Lock()
	f.sent = append(f.sent, message)
	release := f.release
	f.mu.Unlock()
	if release != nil {
		<-release
	}
	return f.result, f.chatErr
}

func (f *fakeBackend) sentMessages() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.sent...)
}

func okReply(text string) *ChatResult {
	return &ChatResult{StatusCode: 200, Body: models.ChatResponse{Reply: text}}
}

func newTestWidget(t *testing.T, backend Backend) *Widget {
	t.Helper()
	w, err := New(backend, NewMemoryThemeStore(ThemeDark), WithClock(func() time.Time {
		return time.Date(2024, 5, 1, 15, 4, 0, 0, time.UTC)
	}))
	require.NoError(t, err)
	return w
}

func TestOpenShowsWelcome(t *testing.T) {
	w := newTestWidget(t, &fakeBackend{})
	w.Open(context.Background())
	w.Wait()

	s := w.State()
	assert.True(t, s.Open)
	assert.True(t, s.Focused)
	require.Len(t, s.Messages, 1)
	assert.Equal(t, models.SenderBot, s.Messages[0].Sender)
	assert.Equal(t, WelcomeText, s.Messages[0].Text)
}

func TestOpenWarnsWhenHealthFails(t *testing.T) {
	w := newTestWidget(t, &fakeBackend{healthErr: errors.New("connection refused")})
	w.Open(context.Background())
	w.Wait()

	s := w.State()
	require.Len(t, s.Messages, 2)
	assert.Equal(t, HealthWarning, s.Messages[1].Text)
}

func TestToggleAndCloseKeepLog(t *testing.T) {
	backend := &fakeBackend{result: okReply("hi there")}
	w := newTestWidget(t, backend)
	ctx := context.Background()

	w.Toggle(ctx)
	w.Wait()
	require.True(t, w.State().Open)

	_, err := w.Send(ctx, "hello")
	require.NoError(t, err)

	w.Toggle(ctx)
	s := w.State()
	assert.False(t, s.Open)
	assert.Len(t, s.Messages, 3)

	w.Toggle(ctx)
	w.Wait()
	assert.Len(t, w.State().Messages, 1, "reopening resets the log")
}

func TestSendRejectsEmpty(t *testing.T) {
	backend := &fakeBackend{result: okReply("unused")}
	w := newTestWidget(t, backend)

	for _, text := range []string{"", "   ", "\n\t"} {
		_, err := w.Send(context.Background(), text)
		assert.ErrorIs(t, err, ErrEmptyMessage)
	}
	assert.Empty(t, backend.sentMessages())
	assert.Empty(t, w.State().Messages)
}

func TestSendReplyShapes(t *testing.T) {
	cases := []struct {
		name   string
		result *ChatResult
		err    error
		want   string
	}{
		{name: "reply", result: okReply("Why did..."), want: "Why did..."},
		{name: "empty reply", result: okReply(""), want: EmptyReplyText},
		{name: "error message", result: &ChatResult{StatusCode: 500, Body: models.ChatResponse{Message: "boom"}}, want: "⚠️ boom"},
		{name: "error field", result: &ChatResult{StatusCode: 502, Body: models.ChatResponse{Error: "bad gateway"}}, want: "⚠️ bad gateway"},
		{name: "validation reply", result: &ChatResult{StatusCode: 400, Body: models.ChatResponse{Reply: "Message cannot be empty."}}, want: "⚠️ Message cannot be empty."},
		{name: "bare error", result: &ChatResult{StatusCode: 500}, want: "⚠️ " + ServerErrorText},
		{name: "network", err: errors.New("dial tcp: refused"), want: NetworkErrorText},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := newTestWidget(t, &fakeBackend{result: tc.result, chatErr: tc.err})
			msg, err := w.Send(context.Background(), "  hello  ")
			require.NoError(t, err)
			assert.Equal(t, tc.want, msg.Text)

			s := w.State()
			require.Len(t, s.Messages, 2)
			assert.Equal(t, models.Message{Sender: models.SenderUser, Text: "hello", Timestamp: s.Messages[0].Timestamp}, s.Messages[0])
			assert.Equal(t, models.SenderBot, s.Messages[1].Sender)
			assert.Equal(t, tc.want, s.Messages[1].Text)
			assert.Zero(t, s.Pending)
		})
	}
}

func TestSendShowsTypingWhilePending(t *testing.T) {
	backend := &fakeBackend{result: okReply("done"), release: make(chan struct{})}
	w := newTestWidget(t, backend)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = w.Send(context.Background(), "slow question")
	}()

	require.Eventually(t, func() bool { return w.State().Pending == 1 }, time.Second, 5*time.Millisecond)
	s := w.State()
	assert.Len(t, Rows(s), 2, "user row plus typing row")

	close(backend.release)
	<-done
	s = w.State()
	assert.Zero(t, s.Pending)
	assert.Len(t, Rows(s), 2)
}

func TestSuggestOpensPanelWithoutProbe(t *testing.T) {
	backend := &fakeBackend{healthErr: errors.New("down"), result: okReply("sure")}
	w := newTestWidget(t, backend)

	_, err := w.Suggest(context.Background(), "Tell me a joke")
	require.NoError(t, err)
	w.Wait()

	s := w.State()
	assert.True(t, s.Open)
	require.Len(t, s.Messages, 3)
	assert.Equal(t, WelcomeText, s.Messages[0].Text)
	assert.Equal(t, "Tell me a joke", s.Messages[1].Text)
	assert.Equal(t, "sure", s.Messages[2].Text)
}

func TestRowsMatchMessages(t *testing.T) {
	w := newTestWidget(t, &fakeBackend{result: okReply("pong")})
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		_, err := w.Send(ctx, "ping")
		require.NoError(t, err)
	}

	s := w.State()
	rows := Rows(s)
	require.Len(t, rows, len(s.Messages))
	for i, msg := range s.Messages {
		assert.Contains(t, rows[i], msg.Text)
		assert.Contains(t, rows[i], MetaLabel(msg))
	}
	assert.Contains(t, rows[0], "You · 3:04 PM")
	assert.Contains(t, rows[1], "Aurora Bot · 3:04 PM")
}

func TestClearLeavesOneWelcomeRow(t *testing.T) {
	w := newTestWidget(t, &fakeBackend{result: okReply("pong")})
	_, err := w.Send(context.Background(), "ping")
	require.NoError(t, err)

	w.Clear()
	rows := Rows(w.State())
	require.Len(t, rows, 1)
	assert.True(t, strings.Contains(rows[0], "Aurora"))
}

func TestChangesSignalMutations(t *testing.T) {
	w := newTestWidget(t, &fakeBackend{})
	w.Clear()
	select {
	case <-w.Changes():
	case <-time.After(time.Second):
		t.Fatal("expected change signal")
	}
}

func TestThemeToggleRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prefs.json")
	store := NewFileThemeStore(path)

	w, err := New(&fakeBackend{}, store)
	require.NoError(t, err)
	assert.Equal(t, ThemeDark, w.State().Theme)

	theme, err := w.ToggleTheme()
	require.NoError(t, err)
	assert.Equal(t, ThemeLight, theme)

	// Simulated reload: a fresh widget over the same file.
	reloaded, err := New(&fakeBackend{}, NewFileThemeStore(path))
	require.NoError(t, err)
	assert.Equal(t, ThemeLight, reloaded.State().Theme)

	theme, err = reloaded.ToggleTheme()
	require.NoError(t, err)
	assert.Equal(t, ThemeDark, theme)

	got, err := NewFileThemeStore(path).Load()
	require.NoError(t, err)
	assert.Equal(t, ThemeDark, got)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), ThemeKey, "dark is stored as absence")
}

func TestFileThemeStoreKeepsOtherKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "prefs.json")
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o700))
	require.NoError(t, os.WriteFile(path, []byte(`{"chat-theme":"sepia","other":"x"}`), 0o600))

	store := NewFileThemeStore(path)
	theme, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, ThemeDark, theme, "unknown values read as dark")

	require.NoError(t, store.Save(ThemeLight))
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"other"`)
	assert.Contains(t, string(raw), `"light"`)
}

func TestFileThemeStoreCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prefs.json")
	require.NoError(t, os.WriteFile(path, []byte(`not json`), 0o600))

	_, err := NewFileThemeStore(path).Load()
	assert.Error(t, err)
}
