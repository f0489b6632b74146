package widget

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/bytedance/sonic"
)

type Theme string

const (
	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"
)

// ThemeKey is the single persisted preference; only "light" is ever stored.
const ThemeKey = "chat-theme"

// ParseTheme maps a stored value to a theme; anything but "light" is dark.
func ParseTheme(v string) Theme {
	if v == string(ThemeLight) {
		return ThemeLight
	}
	return ThemeDark
}

func (t Theme) Toggle() Theme {
	if t == ThemeLight {
		return ThemeDark
	}
	return ThemeLight
}

type ThemeStore interface {
	Load() (Theme, error)
	Save(Theme) error
}

type MemoryThemeStore struct {
	mu    sync.Mutex
	theme Theme
}

func NewMemoryThemeStore(initial Theme) *MemoryThemeStore {
	return &MemoryThemeStore{theme: ParseTheme(string(initial))}
}

func (s *MemoryThemeStore) Load() (Theme, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.theme, nil
}

func (s *MemoryThemeStore) Save(t Theme) error {
	s.mu.Lock()
	s.theme = t
	s.mu.Unlock()
	return nil
}

// FileThemeStore keeps preferences in a small JSON object on disk. Keys it
// does not own are preserved.
type FileThemeStore struct {
	path string
	mu   sync.Mutex
}

// DefaultPrefsPath is ~/.aurora-chat/prefs.json.
func DefaultPrefsPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, ".aurora-chat", "prefs.json"), nil
}

func NewFileThemeStore(path string) *FileThemeStore {
	return &FileThemeStore{path: path}
}

func (s *FileThemeStore) Path() string { return s.path }

func (s *FileThemeStore) Load() (Theme, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	prefs, err := s.read()
	if err != nil {
		return ThemeDark, err
	}
	return ParseTheme(prefs[ThemeKey]), nil
}

func (s *FileThemeStore) Save(t Theme) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	prefs, err := s.read()
	if err != nil {
		return err
	}
	if t == ThemeLight {
		prefs[ThemeKey] = string(ThemeLight)
	} else {
		delete(prefs, ThemeKey)
	}
	return s.write(prefs)
}

func (s *FileThemeStore) read() (map[string]string, error) {
	prefs := make(map[string]string)
	raw, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return prefs, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read prefs: %w", err)
	}
	if len(raw) == 0 {
		return prefs, nil
	}
	if err := sonic.Unmarshal(raw, &prefs); err != nil {
		return nil, fmt.Errorf("decode prefs %s: %w", s.path, err)
	}
	return prefs, nil
}

func (s *FileThemeStore) write(prefs map[string]string) error {
	raw, err := sonic.ConfigStd.MarshalIndent(prefs, "", "  ")
	if err != nil {
		return fmt.Errorf("encode prefs: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("create prefs dir: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".prefs-*.json")
	if err != nil {
		return fmt.Errorf("write prefs: %w", err)
	}
	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write prefs: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("write prefs: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("write prefs: %w", err)
	}
	return nil
}
