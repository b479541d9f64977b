package main

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"gopkg.in/yaml.v3"
)

// Setting keys, as stored in the settings file and accepted over IPC.
const (
	SettingDozeEnabled     = "doze_enabled"
	SettingPickUp          = "pick_up"
	SettingGestureHandWave = "gesture_hand_wave"
	SettingGesturePocket   = "gesture_pocket"
)

// ErrUnknownSetting is returned for keys outside the known set.
var ErrUnknownSetting = errors.New("unknown setting")

// Settings is the persisted set of user toggles.
type Settings struct {
	DozeEnabled bool `yaml:"doze_enabled" json:"doze_enabled"`
	PickUp      bool `yaml:"pick_up" json:"pick_up"`
	HandWave    bool `yaml:"gesture_hand_wave" json:"gesture_hand_wave"`
	Pocket      bool `yaml:"gesture_pocket" json:"gesture_pocket"`
}

// DefaultSettings has ambient display on and every sensor gesture off.
func DefaultSettings() Settings {
	return Settings{DozeEnabled: true}
}

// SensorsEnabled reports whether any gesture needs the proximity sensor.
func (s Settings) SensorsEnabled() bool {
	return s.PickUp || s.HandWave || s.Pocket
}

// Gestures returns the classifier's view of the settings.
func (s Settings) Gestures() GestureConfig {
	return GestureConfig{HandwaveEnabled: s.HandWave, PocketEnabled: s.Pocket}
}

func (s *Settings) field(key string) (*bool, error) {
	switch key {
	case SettingDozeEnabled:
		return &s.DozeEnabled, nil
	case SettingPickUp:
		return &s.PickUp, nil
	case SettingGestureHandWave:
		return &s.HandWave, nil
	case SettingGesturePocket:
		return &s.Pocket, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownSetting, key)
	}
}

// ValidateSettingKey returns ErrUnknownSetting for keys outside the known set.
func ValidateSettingKey(key string) error {
	var s Settings
	_, err := s.field(key)
	return err
}

// SettingKeys lists the known keys in stable order.
func SettingKeys() []string {
	keys := []string{SettingDozeEnabled, SettingPickUp, SettingGestureHandWave, SettingGesturePocket}
	sort.Strings(keys)
	return keys
}

// SettingsStore is a file-backed settings store safe for concurrent use.
//
// Reads always return the latest value held in memory; the file is read on
// load and on Reload, and rewritten on every Set.
type SettingsStore struct {
	path string

	mu       sync.RWMutex
	settings Settings
}

// LoadSettings reads path. A missing file yields defaults; the file is
// created on the first Set.
func LoadSettings(path string) (*SettingsStore, error) {
	if path == "" {
		return nil, errors.New("settings path is empty")
	}
	st := &SettingsStore{path: ExpandPath(path), settings: DefaultSettings()}
	if err := st.Reload(); err != nil {
		return nil, err
	}
	return st, nil
}

// NewMemorySettings returns a store that never touches disk.
func NewMemorySettings(s Settings) *SettingsStore {
	return &SettingsStore{settings: s}
}

// Path returns the backing file path ("" for in-memory stores).
func (st *SettingsStore) Path() string { return st.path }

// Reload re-reads the backing file. Keys missing from the file keep their
// defaults.
func (st *SettingsStore) Reload() error {
	if st.path == "" {
		return nil
	}

	b, err := os.ReadFile(st.path)
	if errors.Is(err, os.ErrNotExist) {
		st.mu.Lock()
		st.settings = DefaultSettings()
		st.mu.Unlock()
		return nil
	}
	if err != nil {
		return fmt.Errorf("read settings file: %w", err)
	}

	next := DefaultSettings()
	if len(bytes.TrimSpace(b)) > 0 {
		dec := yaml.NewDecoder(bytes.NewReader(b))
		dec.KnownFields(true)
		if err := dec.Decode(&next); err != nil {
			return fmt.Errorf("decode settings yaml: %w", err)
		}
	}

	st.mu.Lock()
	st.settings = next
	st.mu.Unlock()
	return nil
}

// Snapshot returns a copy of the current settings.
func (st *SettingsStore) Snapshot() Settings {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return st.settings
}

// GestureConfig implements GestureSource.
func (st *SettingsStore) GestureConfig() GestureConfig {
	return st.Snapshot().Gestures()
}

// SensorsEnabled reports whether any proximity gesture is on.
func (st *SettingsStore) SensorsEnabled() bool {
	return st.Snapshot().SensorsEnabled()
}

// Get returns a single setting.
func (st *SettingsStore) Get(key string) (bool, error) {
	s := st.Snapshot()
	p, err := s.field(key)
	if err != nil {
		return false, err
	}
	return *p, nil
}

// Set updates one setting and persists the whole set.
func (st *SettingsStore) Set(key string, value bool) error {
	st.mu.Lock()
	defer st.mu.Unlock()

	next := st.settings
	p, err := next.field(key)
	if err != nil {
		return err
	}
	*p = value

	if err := st.writeLocked(next); err != nil {
		return err
	}
	st.settings = next
	return nil
}

// writeLocked writes via a temp file and rename so readers never see a
// partial document.
func (st *SettingsStore) writeLocked(s Settings) error {
	if st.path == "" {
		return nil
	}

	b, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode settings yaml: %w", err)
	}

	dir := filepath.Dir(st.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create settings dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".settings-*.yaml")
	if err != nil {
		return fmt.Errorf("create temp settings file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp settings file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp settings file: %w", err)
	}
	if err := os.Rename(tmpName, st.path); err != nil {
		return fmt.Errorf("replace settings file: %w", err)
	}
	return nil
}
