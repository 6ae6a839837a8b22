package web

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"
)

// ServiceSetting turns the GraphQL endpoint on and off.
const ServiceSetting = "gcb_gql_service_enabled"

// override statuses. only an active override changes the effective value.
const (
	StatusActive = "active"
	StatusDraft  = "draft"
)

// ErrUnknownSetting is returned for a setting name that was never registered.
var ErrUnknownSetting = errors.New("unknown setting")

// reloadDebounce coalesces bursts of file events from one save.
const reloadDebounce = 100 * time.Millisecond

// Property is a registered boolean site setting.
type Property struct {
	Name        string
	Description string
	Default     bool
}

// Override is an admin supplied value for a property.
type Override struct {
	Status string `yaml:"status"`
	Value  bool   `yaml:"value"`
}

type settingsFile struct {
	Overrides map[string]Override `yaml:"overrides"`
}

// Settings holds registered properties and their overrides. when path is set, overrides are
// persisted to it as yaml and reloaded when the file changes on disk.
type Settings struct {
	path  string
	props map[string]Property

	saveMu    sync.Mutex // serializes Set
	mu        sync.RWMutex
	overrides map[string]Override
}

// DefaultProperties returns the properties registered by the stub application.
func DefaultProperties() []Property {
	return []Property{
		{Name: ServiceSetting, Description: "Enable the GraphQL REST endpoint.", Default: false},
	}
}

// NewSettings makes a store for props, loading overrides from path when it exists.
// empty path keeps overrides in memory only.
func NewSettings(path string, props ...Property) (*Settings, error) {
	s := &Settings{path: path, props: make(map[string]Property, len(props)), overrides: map[string]Override{}}
	for _, p := range props {
		s.props[p.Name] = p
	}
	if path == "" {
		return s, nil
	}
	if err := s.Reload(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}
	return s, nil
}

// Properties returns registered properties sorted by name.
func (s *Settings) Properties() []Property {
	res := make([]Property, 0, len(s.props))
	for _, p := range s.props {
		res = append(res, p)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].Name < res[j].Name })
	return res
}

// Property returns the registered property name.
func (s *Settings) Property(name string) (Property, bool) {
	p, ok := s.props[name]
	return p, ok
}

// Override returns the override of name, if any.
func (s *Settings) Override(name string) (Override, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.overrides[name]
	return o, ok
}

// Effective returns the value in force for name: the active override value or the default.
func (s *Settings) Effective(name string) bool {
	p, ok := s.props[name]
	if !ok {
		return false
	}
	if o, ok := s.Override(name); ok && o.Status == StatusActive {
		return o.Value
	}
	return p.Default
}

// Set stores an override for name and persists all overrides.
func (s *Settings) Set(name string, o Override) error {
	if _, ok := s.props[name]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownSetting, name)
	}
	if o.Status != StatusActive && o.Status != StatusDraft {
		return fmt.Errorf("invalid status %q for %s", o.Status, name)
	}

	s.saveMu.Lock()
	defer s.saveMu.Unlock()

	s.mu.RLock()
	snapshot := make(map[string]Override, len(s.overrides)+1)
	for k, v := range s.overrides {
		snapshot[k] = v
	}
	s.mu.RUnlock()
	snapshot[name] = o

	// the override takes effect only once persisted
	if err := s.save(snapshot); err != nil {
		return err
	}
	s.mu.Lock()
	s.overrides[name] = o
	s.mu.Unlock()
	return nil
}

// Reload re-reads overrides from the settings file. overrides of unregistered names are dropped.
func (s *Settings) Reload() error {
	if s.path == "" {
		return nil
	}
	data, err := os.ReadFile(s.path)
	if err != nil {
		return fmt.Errorf("read settings: %w", err)
	}

	var f settingsFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("parse settings %s: %w", s.path, err)
	}

	overrides := make(map[string]Override, len(f.Overrides))
	for name, o := range f.Overrides {
		if _, ok := s.props[name]; !ok {
			log.Printf("[WARN] settings %s: skip unknown setting %s", s.path, name)
			continue
		}
		overrides[name] = o
	}

	s.mu.Lock()
	s.overrides = overrides
	s.mu.Unlock()
	return nil
}

// save writes overrides atomically, via temp file and rename.
func (s *Settings) save(overrides map[string]Override) error {
	if s.path == "" {
		return nil
	}
	data, err := yaml.Marshal(settingsFile{Overrides: overrides})
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("create settings dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".settings-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() {
		if tmpPath != "" {
			_ = os.Remove(tmpPath)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		return fmt.Errorf("rename settings file: %w", err)
	}
	tmpPath = ""
	return nil
}

// Watch reloads overrides whenever the settings file is written, created or replaced,
// until ctx is canceled. the parent directory is watched so atomic renames are seen.
func (s *Settings) Watch(ctx context.Context) error {
	if s.path == "" {
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("create settings dir: %w", err)
	}
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}

	target := filepath.Clean(s.path)
	var timer *time.Timer
	reload := make(chan struct{}, 1)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != target || !ev.Has(fsnotify.Write|fsnotify.Create|fsnotify.Rename) {
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(reloadDebounce, func() {
				select {
				case reload <- struct{}{}:
				default:
				}
			})
		case <-reload:
			if err := s.Reload(); err != nil {
				log.Printf("[WARN] reload settings: %v", err)
				continue
			}
			log.Printf("[INFO] settings reloaded from %s", s.path)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Printf("[WARN] settings watcher: %v", err)
		}
	}
}
