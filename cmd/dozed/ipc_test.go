package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestHandleIPCLine(t *testing.T) {
	ctx := context.Background()
	events := make(chan Event, 4)

	resp := handleIPCLine(ctx, []byte(`{"type":"screen_off"}`), events)
	if resp.Status != "ok" {
		t.Fatalf("screen_off: %+v", resp)
	}
	if ev := <-events; ev != (ScreenStateChanged{On: false}) {
		t.Fatalf("unexpected event %#v", ev)
	}

	resp = handleIPCLine(ctx, []byte(`{"type":"set_setting","data":{"key":"tap_to_wake","value":true}}`), events)
	if resp.Status != "error" {
		t.Fatalf("unknown setting must be rejected, got %+v", resp)
	}
	if len(events) != 0 {
		t.Fatalf("rejected request must not reach the daemon")
	}

	resp = handleIPCLine(ctx, []byte(`{"type":"bogus"}`), events)
	if resp.Status != "error" || resp.Error == "" {
		t.Fatalf("expected parse error, got %+v", resp)
	}
}

func TestHandleIPCLine_QueueFull(t *testing.T) {
	events := make(chan Event) // unbuffered, nobody reading

	resp := handleIPCLine(context.Background(), []byte(`{"type":"screen_on"}`), events)
	if resp.Status != "error" || resp.Error != "event queue full" {
		t.Fatalf("expected queue full, got %+v", resp)
	}
}

func TestHandleIPCLine_StatusTimesOut(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	events := make(chan Event, 1) // accepted, never answered

	resp := handleIPCLine(ctx, []byte(`{"type":"get_status"}`), events)
	if resp.Status != "error" {
		t.Fatalf("expected timeout error, got %+v", resp)
	}
}

func TestIPCServer_RoundTrip(t *testing.T) {
	socketPath := filepath.Join(t.TempDir(), "dozed.sock")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	h := startDaemon(t, ServiceConfig{AssumeScreenOff: true}, handwaveSettings())

	errCh := make(chan error, 1)
	go func() { errCh <- runIPCServer(ctx, socketPath, h.events, quietLogger()) }()

	waitUntil(t, time.Second, func() bool {
		_, err := os.Stat(socketPath)
		return err == nil
	}, "socket not created")

	if _, err := SendIPCEvent(socketPath, ScreenStateChanged{On: false}); err != nil {
		t.Fatalf("screen_off: %v", err)
	}
	if _, err := SendIPCEvent(socketPath, SetSetting{Key: SettingGesturePocket, Value: true}); err != nil {
		t.Fatalf("set_setting: %v", err)
	}

	waitUntil(t, time.Second, h.prox.Enabled, "listener not enabled over IPC")

	resp, err := SendIPCEvent(socketPath, RequestStatus{})
	if err != nil {
		t.Fatalf("get_status: %v", err)
	}
	if resp.Data == nil || !resp.Data.Settings.Pocket || resp.Data.ScreenOn {
		t.Fatalf("unexpected status: %+v", resp.Data)
	}

	if _, err := SendIPCEvent(socketPath, SetSetting{Key: "nope", Value: true}); err == nil {
		t.Fatalf("expected error for unknown setting")
	}

	cancel()
	select {
	case err := <-errCh:
		if err != nil {
			t.Fatalf("runIPCServer: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatalf("IPC server did not stop")
	}

	if _, err := os.Stat(socketPath); !os.IsNotExist(err) {
		t.Fatalf("socket file not removed: %v", err)
	}
}
