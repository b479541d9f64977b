package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"
)

// mockProximityController is a test double for ProximityListener.
type mockProximityController struct {
	mu        sync.Mutex
	enabled   bool
	enables   int
	disables  int
	enableErr error
}

func (m *mockProximityController) Enable() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.enables++
	if m.enableErr != nil {
		return m.enableErr
	}
	m.enabled = true
	return nil
}

func (m *mockProximityController) Disable() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.disables++
	m.enabled = false
	return nil
}

func (m *mockProximityController) Enabled() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.enabled
}

func (m *mockProximityController) counts() (int, int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.enables, m.disables
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

type daemonHarness struct {
	events     chan Event
	broadcasts chan StateBroadcast
	prox       *mockProximityController
	store      *SettingsStore
	cancel     context.CancelFunc
	done       chan struct{}
}

func startDaemon(t *testing.T, cfg ServiceConfig, settings Settings) *daemonHarness {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())

	h := &daemonHarness{
		events:     make(chan Event, 16),
		broadcasts: make(chan StateBroadcast, 16),
		prox:       &mockProximityController{},
		store:      NewMemorySettings(settings),
		cancel:     cancel,
		done:       make(chan struct{}),
	}

	fx := Effects{Proximity: h.prox, Settings: h.store}
	go func() {
		defer close(h.done)
		runDaemon(ctx, h.events, fx, cfg, &DozeState{}, h.broadcasts, quietLogger())
	}()

	t.Cleanup(h.stop)
	return h
}

func (h *daemonHarness) stop() {
	h.cancel()
	<-h.done
}

func (h *daemonHarness) status(t *testing.T) StatusSnapshot {
	t.Helper()
	reply := make(chan StatusSnapshot, 1)
	h.events <- RequestStatus{Reply: reply}
	select {
	case snap := <-reply:
		return snap
	case <-time.After(time.Second):
		t.Fatalf("timeout waiting for status")
		return StatusSnapshot{}
	}
}

func TestDaemon_ListenerFollowsScreen(t *testing.T) {
	h := startDaemon(t, ServiceConfig{AssumeScreenOff: true}, handwaveSettings())

	h.events <- SettingsReloaded{Settings: h.store.Snapshot()}
	waitUntil(t, time.Second, h.prox.Enabled, "listener not enabled with screen assumed off")

	h.events <- ScreenStateChanged{On: true}
	waitUntil(t, time.Second, func() bool { return !h.prox.Enabled() }, "listener not disabled on screen on")

	h.events <- ScreenStateChanged{On: false}
	waitUntil(t, time.Second, h.prox.Enabled, "listener not re-enabled on screen off")

	snap := h.status(t)
	if !snap.ProximityEnabled || snap.ScreenOn || !snap.ScreenKnown {
		t.Fatalf("unexpected status: %+v", snap)
	}
}

func TestDaemon_SetSettingPersistsAndReconciles(t *testing.T) {
	h := startDaemon(t, ServiceConfig{AssumeScreenOff: true}, DefaultSettings())

	h.events <- SettingsReloaded{Settings: h.store.Snapshot()}
	h.events <- SetSetting{Key: SettingGesturePocket, Value: true}

	waitUntil(t, time.Second, h.prox.Enabled, "listener not enabled after enabling pocket gesture")

	if v, err := h.store.Get(SettingGesturePocket); err != nil || !v {
		t.Fatalf("expected pocket persisted, got %v err=%v", v, err)
	}

	snap := h.status(t)
	if !snap.Settings.Pocket {
		t.Fatalf("expected status to reflect the new setting: %+v", snap.Settings)
	}
}

func TestDaemon_PulsesAreCountedAndBroadcast(t *testing.T) {
	h := startDaemon(t, ServiceConfig{}, DefaultSettings())

	h.events <- PulseTriggered{At: time.Now()}

	deadline := time.After(time.Second)
	for {
		select {
		case b := <-h.broadcasts:
			if p, ok := b.(BroadcastPulse); ok {
				if p.Count != 1 {
					t.Fatalf("expected pulse count 1, got %d", p.Count)
				}
				if snap := h.status(t); snap.PulseCount != 1 {
					t.Fatalf("expected status pulse count 1, got %d", snap.PulseCount)
				}
				return
			}
		case <-deadline:
			t.Fatalf("timeout waiting for pulse broadcast")
		}
	}
}

func TestDaemon_EnableFailureDoesNotSpin(t *testing.T) {
	h := startDaemon(t, ServiceConfig{AssumeScreenOff: true}, handwaveSettings())
	h.prox.enableErr = errors.New("no device")

	h.events <- SettingsReloaded{Settings: h.store.Snapshot()}

	// The status round-trip orders us after the settings event.
	snap := h.status(t)
	if snap.ProximityEnabled {
		t.Fatalf("listener must not be reported enabled after a failure")
	}

	// One attempt for SettingsReloaded, one more when RequestStatus
	// re-evaluates policy. Neither failure schedules another.
	waitUntil(t, time.Second, func() bool {
		enables, _ := h.prox.counts()
		return enables >= 2
	}, "expected a second enable attempt")
	time.Sleep(50 * time.Millisecond)
	if enables, _ := h.prox.counts(); enables != 2 {
		t.Fatalf("expected 2 enable attempts, got %d", enables)
	}
}

func TestDaemon_ShutdownDisablesListener(t *testing.T) {
	h := startDaemon(t, ServiceConfig{AssumeScreenOff: true}, handwaveSettings())

	h.events <- SettingsReloaded{Settings: h.store.Snapshot()}
	waitUntil(t, time.Second, h.prox.Enabled, "listener not enabled")

	// Ensure the observation was reduced before shutting down.
	_ = h.status(t)
	h.stop()

	if h.prox.Enabled() {
		t.Fatalf("expected listener disabled on shutdown")
	}
}
