package hook

import (
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
)

// ManifestFile is the manifest name looked up in each hook directory.
const ManifestFile = "hook.json"

// ErrHookNotFound is returned when a requested hook does not exist.
var ErrHookNotFound = errors.New("hook not found")

// Manager discovers hooks under a directory.
type Manager struct {
	dir   string
	log   *slog.Logger
	mu    sync.RWMutex
	hooks map[string]*Hook
}

// NewManager creates a Manager for dir. A nil logger falls back to slog.Default.
func NewManager(dir string, log *slog.Logger) *Manager {
	if log == nil {
		log = slog.Default()
	}
	return &Manager{
		dir:   dir,
		log:   log.With("component", "hooks"),
		hooks: make(map[string]*Hook),
	}
}

// Discover rescans the directory. A missing directory yields no hooks.
// Hooks with an unreadable or invalid manifest are skipped and logged.
func (m *Manager) Discover() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.hooks = make(map[string]*Hook)

	info, err := os.Stat(m.dir)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return nil
	}

	entries, err := os.ReadDir(m.dir)
	if err != nil {
		return err
	}

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		hookPath := filepath.Join(m.dir, entry.Name())
		data, err := os.ReadFile(filepath.Join(hookPath, ManifestFile))
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			m.log.Warn("read hook manifest", "dir", hookPath, "err", err)
			continue
		}

		var manifest Manifest
		if err := json.Unmarshal(data, &manifest); err != nil {
			m.log.Warn("invalid hook manifest", "dir", hookPath, "err", err)
			continue
		}
		if manifest.Name == "" || manifest.Executable == "" {
			m.log.Warn("hook manifest missing name or executable", "dir", hookPath)
			continue
		}

		m.hooks[manifest.Name] = &Hook{
			Manifest:   manifest,
			Path:       hookPath,
			Executable: filepath.Join(hookPath, manifest.Executable),
		}
	}

	m.log.Info("hooks discovered", "dir", m.dir, "count", len(m.hooks))
	return nil
}

// Get returns a hook by name.
func (m *Manager) Get(name string) (*Hook, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	h, ok := m.hooks[name]
	if !ok {
		return nil, ErrHookNotFound
	}
	return h, nil
}

// List returns all discovered hooks sorted by name.
func (m *Manager) List() []*Hook {
	m.mu.RLock()
	defer m.mu.RUnlock()

	hooks := make([]*Hook, 0, len(m.hooks))
	for _, h := range m.hooks {
		hooks = append(hooks, h)
	}
	sort.Slice(hooks, func(i, j int) bool { return hooks[i].Manifest.Name < hooks[j].Manifest.Name })
	return hooks
}

// For returns the hooks subscribed to event.
func (m *Manager) For(event string) []*Hook {
	var out []*Hook
	for _, h := range m.List() {
		if h.Handles(event) {
			out = append(out, h)
		}
	}
	return out
}

// Dir returns the hooks directory.
func (m *Manager) Dir() string {
	return m.dir
}
