// Package prefs stores user preferences as a YAML key/value file in the
// livesync state directory. Preferences never enter the reconciled state.
package prefs

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/grovetools/livesync/pkg/paths"
	"gopkg.in/yaml.v3"
)

// Well-known keys.
const (
	KeySound  = "sound"
	KeyLayout = "layout"
)

// Dashboard layouts.
const (
	LayoutFull    = "full"
	LayoutCompact = "compact"
)

// Prefs is the raw key/value content of the preferences file.
type Prefs map[string]interface{}

// File is a preferences file on disk.
type File struct {
	path string
}

// Default returns the preferences file in the state directory.
func Default() *File {
	return &File{path: paths.PrefsPath()}
}

// Open returns the preferences file at path.
func Open(path string) *File {
	return &File{path: path}
}

// Path returns the file location.
func (f *File) Path() string { return f.path }

// Load reads the preferences. A missing file yields empty preferences.
func (f *File) Load() (Prefs, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			return make(Prefs), nil
		}
		return nil, fmt.Errorf("read prefs file: %w", err)
	}

	var p Prefs
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parse prefs file: %w", err)
	}
	if p == nil {
		p = make(Prefs)
	}
	return p, nil
}

// Save writes the preferences, creating the directory if needed.
func (f *File) Save(p Prefs) error {
	if err := os.MkdirAll(filepath.Dir(f.path), 0755); err != nil {
		return fmt.Errorf("create prefs directory: %w", err)
	}

	data, err := yaml.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal prefs: %w", err)
	}

	if err := os.WriteFile(f.path, data, 0644); err != nil {
		return fmt.Errorf("write prefs file: %w", err)
	}
	return nil
}

// Get retrieves a value by key.
func (f *File) Get(key string) (interface{}, bool, error) {
	p, err := f.Load()
	if err != nil {
		return nil, false, err
	}
	val, ok := p[key]
	return val, ok, nil
}

// Set stores a value. Well-known keys are type checked.
func (f *File) Set(key string, value interface{}) error {
	if err := check(key, value); err != nil {
		return err
	}
	p, err := f.Load()
	if err != nil {
		return err
	}
	p[key] = value
	return f.Save(p)
}

// SetString parses raw the way the CLI receives it and stores it.
// "true"/"false" become booleans for the sound key.
func (f *File) SetString(key, raw string) error {
	var value interface{} = raw
	if key == KeySound {
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return fmt.Errorf("%s must be true or false, got %q", key, raw)
		}
		value = b
	}
	return f.Set(key, value)
}

// Delete removes a key.
func (f *File) Delete(key string) error {
	p, err := f.Load()
	if err != nil {
		return err
	}
	delete(p, key)
	return f.Save(p)
}

// SoundEnabled reports whether high-priority events ring the bell. Off by default.
func (f *File) SoundEnabled() bool {
	val, ok, err := f.Get(KeySound)
	if err != nil || !ok {
		return false
	}
	b, _ := val.(bool)
	return b
}

// ToggleSound flips the sound preference and returns the new value.
func (f *File) ToggleSound() (bool, error) {
	next := !f.SoundEnabled()
	return next, f.Set(KeySound, next)
}

// Layout returns the dashboard layout, LayoutFull by default.
func (f *File) Layout() string {
	val, ok, err := f.Get(KeyLayout)
	if err != nil || !ok {
		return LayoutFull
	}
	if s, _ := val.(string); s == LayoutCompact {
		return LayoutCompact
	}
	return LayoutFull
}

// Keys returns the stored keys in order.
func (p Prefs) Keys() []string {
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func check(key string, value interface{}) error {
	switch key {
	case KeySound:
		if _, ok := value.(bool); !ok {
			return fmt.Errorf("%s must be a boolean", key)
		}
	case KeyLayout:
		if s, _ := value.(string); s != LayoutFull && s != LayoutCompact {
			return fmt.Errorf("%s must be %q or %q", key, LayoutFull, LayoutCompact)
		}
	}
	return nil
}
