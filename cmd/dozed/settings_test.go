package main

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestSettings_MissingFileUsesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")

	st, err := LoadSettings(path)
	if err != nil {
		t.Fatalf("LoadSettings: %v", err)
	}
	if got := st.Snapshot(); got != DefaultSettings() {
		t.Fatalf("expected defaults, got %+v", got)
	}
	if !st.Snapshot().DozeEnabled {
		t.Fatalf("doze_enabled defaults to true")
	}
	if st.SensorsEnabled() {
		t.Fatalf("sensor gestures default to off")
	}
}

func TestSettings_SetPersistsAndReloads(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "settings.yaml")

	st, err := LoadSettings(path)
	if err != nil {
		t.Fatalf("LoadSettings: %v", err)
	}
	if err := st.Set(SettingGestureHandWave, true); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := st.Set(SettingDozeEnabled, false); err != nil {
		t.Fatalf("Set: %v", err)
	}

	again, err := LoadSettings(path)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	got := again.Snapshot()
	if !got.HandWave || got.DozeEnabled || got.Pocket || got.PickUp {
		t.Fatalf("unexpected persisted settings: %+v", got)
	}
	if cfg := again.GestureConfig(); !cfg.HandwaveEnabled || cfg.PocketEnabled {
		t.Fatalf("unexpected gesture config: %+v", cfg)
	}
}

func TestSettings_PartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")
	if err := os.WriteFile(path, []byte("gesture_pocket: true\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	st, err := LoadSettings(path)
	if err != nil {
		t.Fatalf("LoadSettings: %v", err)
	}
	got := st.Snapshot()
	if !got.DozeEnabled || !got.Pocket || got.HandWave {
		t.Fatalf("unexpected settings: %+v", got)
	}
}

func TestSettings_UnknownKeyRejected(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")
	if err := os.WriteFile(path, []byte("gesture_handwave: true\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadSettings(path); err == nil {
		t.Fatalf("expected unknown field in settings file to be rejected")
	}

	st := NewMemorySettings(DefaultSettings())
	if err := st.Set("tap_to_wake", true); !errors.Is(err, ErrUnknownSetting) {
		t.Fatalf("expected ErrUnknownSetting, got %v", err)
	}
	if _, err := st.Get("tap_to_wake"); !errors.Is(err, ErrUnknownSetting) {
		t.Fatalf("expected ErrUnknownSetting, got %v", err)
	}
}

func TestSettings_ReadsAreFresh(t *testing.T) {
	st := NewMemorySettings(DefaultSettings())

	if st.GestureConfig().PocketEnabled {
		t.Fatalf("pocket should start disabled")
	}
	if err := st.Set(SettingGesturePocket, true); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if !st.GestureConfig().PocketEnabled {
		t.Fatalf("GestureConfig must reflect the latest Set")
	}
}

func TestSettings_SensorsEnabled(t *testing.T) {
	for _, key := range []string{SettingPickUp, SettingGestureHandWave, SettingGesturePocket} {
		s := DefaultSettings()
		p, err := s.field(key)
		if err != nil {
			t.Fatalf("field(%q): %v", key, err)
		}
		*p = true
		if !s.SensorsEnabled() {
			t.Fatalf("%s alone should enable sensors", key)
		}
	}
	if len(SettingKeys()) != 4 {
		t.Fatalf("expected 4 setting keys, got %v", SettingKeys())
	}
}

func TestSettingsWatcher_ReloadsOnExternalWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")
	st, err := LoadSettings(path)
	if err != nil {
		t.Fatalf("LoadSettings: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events := make(chan Event, 4)
	errCh := make(chan error, 1)
	go func() { errCh <- runSettingsWatcher(ctx, st, events, quietLogger()) }()

	// Give the watcher a moment to register the directory.
	time.Sleep(100 * time.Millisecond)

	if err := os.WriteFile(path, []byte("gesture_hand_wave: true\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	select {
	case ev := <-events:
		r, ok := ev.(SettingsReloaded)
		if !ok {
			t.Fatalf("expected SettingsReloaded, got %T", ev)
		}
		if !r.Settings.HandWave {
			t.Fatalf("expected reloaded hand wave setting, got %+v", r.Settings)
		}
	case <-time.After(3 * time.Second):
		t.Fatalf("timeout waiting for settings reload")
	}

	if !st.Snapshot().HandWave {
		t.Fatalf("store not reloaded")
	}

	cancel()
	select {
	case err := <-errCh:
		if err != nil {
			t.Fatalf("watcher returned error: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatalf("watcher did not stop")
	}
}
