// Package settings persists the user's grouping preferences in a YAML file and
// reports changes made through the API or by editing the file.
package settings

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"

	"github.com/dgnsrekt/tab_grouper/internal/grouping"
)

// Settings is everything a run reads from the store.
type Settings struct {
	Enabled           bool `json:"enabled" yaml:"enabled" doc:"Whether runs touch the browser"`
	grouping.Settings `yaml:",inline"`
}

func Default() Settings {
	return Settings{Enabled: true, Settings: grouping.DefaultSettings()}
}

// Patch is a partial update. Nil fields keep their current value.
type Patch struct {
	Enabled        *bool              `json:"enabled,omitempty" yaml:"enabled,omitempty"`
	MinTabsInGroup *int               `json:"min_tabs_in_group,omitempty" yaml:"min_tabs_in_group,omitempty" minimum:"1"`
	MaxTabsInGroup *int               `json:"max_tabs_in_group,omitempty" yaml:"max_tabs_in_group,omitempty" minimum:"1"`
	GroupsLocation *grouping.Location `json:"groups_location,omitempty" yaml:"groups_location,omitempty" enum:"top,bottom,none"`
	Sort           *grouping.SortMode `json:"sort,omitempty" yaml:"sort,omitempty" enum:"all,groups,none"`
}

func (p Patch) Apply(s Settings) Settings {
	if p.Enabled != nil {
		s.Enabled = *p.Enabled
	}
	if p.MinTabsInGroup != nil {
		s.MinTabsInGroup = *p.MinTabsInGroup
	}
	if p.MaxTabsInGroup != nil {
		s.MaxTabsInGroup = *p.MaxTabsInGroup
	}
	if p.GroupsLocation != nil {
		s.GroupsLocation = *p.GroupsLocation
	}
	if p.Sort != nil {
		s.Sort = *p.Sort
	}
	return s
}

// Store holds the current settings and mirrors them to a YAML file.
type Store struct {
	path string

	mu      sync.RWMutex
	current Settings

	subsMu sync.Mutex
	subs   []func(Settings)
}

// NewStore returns a store for path holding the defaults until Load is called.
func NewStore(path string) *Store {
	return &Store{path: path, current: Default()}
}

func (s *Store) Path() string { return s.path }

// Load reads the file. A missing file keeps the defaults; keys absent from the file
// keep their default value.
func (s *Store) Load() error {
	next, err := s.read()
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.current = next
	s.mu.Unlock()
	slog.Info("settings loaded", "path", s.path, "enabled", next.Enabled,
		"min", next.MinTabsInGroup, "max", next.MaxTabsInGroup,
		"groups_location", next.GroupsLocation, "sort", next.Sort)
	return nil
}

func (s *Store) read() (Settings, error) {
	out := Default()
	if s.path == "" {
		return out, nil
	}
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return out, nil
	}
	if err != nil {
		return out, fmt.Errorf("settings: read %s: %w", s.path, err)
	}
	if err := yaml.Unmarshal(data, &out); err != nil {
		return Default(), fmt.Errorf("settings: parse %s: %w", s.path, err)
	}
	if err := out.Validate(); err != nil {
		return Default(), err
	}
	return out, nil
}

func (s *Store) Get() Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Update applies p, validates the result, saves it and notifies subscribers.
func (s *Store) Update(p Patch) (Settings, error) {
	s.mu.Lock()
	next := p.Apply(s.current)
	if err := next.Validate(); err != nil {
		s.mu.Unlock()
		return Settings{}, err
	}
	if err := s.save(next); err != nil {
		s.mu.Unlock()
		return Settings{}, err
	}
	changed := next != s.current
	s.current = next
	s.mu.Unlock()

	if changed {
		s.notify(next)
	}
	return next, nil
}

// save writes the file through a temporary sibling and a rename.
func (s *Store) save(v Settings) error {
	if s.path == "" {
		return nil
	}
	data, err := yaml.Marshal(v)
	if err != nil {
		return fmt.Errorf("settings: marshal: %w", err)
	}
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("settings: create dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(s.path)+".*")
	if err != nil {
		return fmt.Errorf("settings: temp file: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("settings: write: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("settings: close: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("settings: rename: %w", err)
	}
	return nil
}

// OnChange registers fn to receive settings after every effective change.
func (s *Store) OnChange(fn func(Settings)) {
	s.subsMu.Lock()
	s.subs = append(s.subs, fn)
	s.subsMu.Unlock()
}

func (s *Store) notify(v Settings) {
	s.subsMu.Lock()
	subs := append([]func(Settings){}, s.subs...)
	s.subsMu.Unlock()
	for _, fn := range subs {
		fn(v)
	}
}

// Watch reloads the file whenever it changes on disk until ctx is done. The parent
// directory is watched so editors that replace the file are followed. An invalid file
// is logged and the previous settings stay in effect.
func (s *Store) Watch(ctx context.Context) error {
	if s.path == "" {
		return errors.New("settings: no file to watch")
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("settings: create watcher: %w", err)
	}
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		watcher.Close()
		return fmt.Errorf("settings: create dir: %w", err)
	}
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return fmt.Errorf("settings: watch %s: %w", dir, err)
	}

	go func() {
		defer watcher.Close()
		name := filepath.Base(s.path)
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Base(ev.Name) != name || !ev.Has(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) {
					continue
				}
				s.reload()
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				slog.Warn("settings watcher error", "error", err)
			}
		}
	}()
	slog.Info("settings watching", "path", s.path)
	return nil
}

func (s *Store) reload() {
	next, err := s.read()
	if err != nil {
		slog.Warn("settings reload failed", "path", s.path, "error", err)
		return
	}
	s.mu.Lock()
	changed := next != s.current
	s.current = next
	s.mu.Unlock()
	if changed {
		slog.Info("settings changed on disk", "path", s.path)
		s.notify(next)
	}
}
