package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "dozed.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestConfig_DefaultsValidate(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
	opts := cfg.ListenerOptions()
	if opts.Rate != SamplingRateNormal || opts.ClampNegativeDelta {
		t.Fatalf("unexpected default listener options: %+v", opts)
	}
}

func TestConfig_LoadOverlaysDefaults(t *testing.T) {
	path := writeConfig(t, `
sensor:
  device: /dev/input/event3
  sampling_rate: fastest
  clamp_negative_delta: true
service:
  assume_screen_off: false
logging:
  level: debug
`)

	cfg, err := LoadConfigFile(path)
	if err != nil {
		t.Fatalf("LoadConfigFile: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}

	if cfg.Sensor.Device != "/dev/input/event3" {
		t.Errorf("device = %q", cfg.Sensor.Device)
	}
	if cfg.Sensor.MaxRange != defaultSensorMaxRange {
		t.Errorf("max_range should keep its default, got %v", cfg.Sensor.MaxRange)
	}
	if cfg.Service.AssumeScreenOff {
		t.Errorf("assume_screen_off should be false")
	}
	if cfg.IPC.SocketPath != defaultSocketPath {
		t.Errorf("socket_path should keep its default, got %q", cfg.IPC.SocketPath)
	}

	opts := cfg.ListenerOptions()
	if opts.Rate != SamplingRateFastest || !opts.ClampNegativeDelta {
		t.Errorf("unexpected listener options: %+v", opts)
	}
}

func TestConfig_UnknownFieldRejected(t *testing.T) {
	path := writeConfig(t, "sensor:\n  devcie: /dev/input/event3\n")
	if _, err := LoadConfigFile(path); err == nil {
		t.Fatalf("expected typo in config to be rejected")
	}
}

func TestConfig_TrailingDocumentRejected(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"mapping", "logging:\n  level: info\n---\nlogging:\n  level: debug\n"},
		{"scalar", "logging:\n  level: info\n---\nfoo\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadConfigFile(writeConfig(t, tt.yaml))
			if err == nil || !strings.Contains(err.Error(), "trailing document") {
				t.Fatalf("expected trailing document error, got %v", err)
			}
		})
	}
}

func TestConfig_TrailingCommentAccepted(t *testing.T) {
	cfg, err := LoadConfigFile(writeConfig(t, "logging:\n  level: debug\n# end\n"))
	if err != nil {
		t.Fatalf("LoadConfigFile: %v", err)
	}
	if cfg.Logging.Level != "debug" {
		t.Fatalf("level = %q", cfg.Logging.Level)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"empty device", func(c *Config) { c.Sensor.Device = "" }, "sensor.device"},
		{"zero range", func(c *Config) { c.Sensor.MaxRange = 0 }, "sensor.max_range"},
		{"bad rate", func(c *Config) { c.Sensor.SamplingRate = "sometimes" }, "sensor.sampling_rate"},
		{"negative rate", func(c *Config) { c.Sensor.SamplingRate = "-1s" }, "sensor.sampling_rate"},
		{"empty settings", func(c *Config) { c.Settings.Path = "" }, "settings.path"},
		{"empty socket", func(c *Config) { c.IPC.SocketPath = "" }, "ipc.socket_path"},
		{"bad ws path", func(c *Config) { c.HTTP.WSPath = "ws" }, "http.ws_path"},
		{"zero queue", func(c *Config) { c.Pulse.QueueSize = 0 }, "pulse.queue_size"},
		{"bad level", func(c *Config) { c.Logging.Level = "loud" }, "logging.level"},
		{"bad format", func(c *Config) { c.Logging.Format = "xml" }, "logging.format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("Validate() = %v, want error mentioning %q", err, tt.want)
			}
		})
	}
}

func TestConfig_HTTPDisabledSkipsWSPathCheck(t *testing.T) {
	cfg := DefaultConfig()
	cfg.HTTP.ListenAddr = ""
	cfg.HTTP.WSPath = ""
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestFlagOverrides_Apply(t *testing.T) {
	cfg := DefaultConfig()

	device := "/dev/input/event9"
	rate := "50ms"
	clamp := true
	level := "warn"
	listen := ""

	FlagOverrides{
		SensorDevice:       &device,
		SensorSamplingRate: &rate,
		ClampNegativeDelta: &clamp,
		LogLevel:           &level,
		HTTPListen:         &listen,
	}.Apply(&cfg)

	if cfg.Sensor.Device != device || cfg.Logging.Level != level || cfg.HTTP.ListenAddr != "" {
		t.Fatalf("overrides not applied: %+v", cfg)
	}
	if cfg.Settings.Path != defaultSettingsPath {
		t.Fatalf("unset override must not change settings path")
	}
	if opts := cfg.ListenerOptions(); opts.Rate != SamplingRate(50*time.Millisecond) || !opts.ClampNegativeDelta {
		t.Fatalf("unexpected listener options: %+v", opts)
	}

	// nil config is a no-op
	FlagOverrides{SensorDevice: &device}.Apply(nil)
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}

	tests := map[string]string{
		"":                 "",
		"/etc/dozed.yaml":  "/etc/dozed.yaml",
		"~":                home,
		"~/dozed.yaml":     filepath.Join(home, "dozed.yaml"),
		"~other/dozed.yml": "~other/dozed.yml",
	}
	for in, want := range tests {
		if got := ExpandPath(in); got != want {
			t.Errorf("ExpandPath(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestParseSamplingRate(t *testing.T) {
	tests := []struct {
		in   string
		want SamplingRate
	}{
		{"", SamplingRateNormal},
		{"normal", SamplingRateNormal},
		{"NORMAL", SamplingRateNormal},
		{"fastest", SamplingRateFastest},
		{"20ms", SamplingRate(20 * time.Millisecond)},
	}
	for _, tt := range tests {
		got, err := parseSamplingRate(tt.in)
		if err != nil {
			t.Fatalf("parseSamplingRate(%q): %v", tt.in, err)
		}
		if got != tt.want {
			t.Errorf("parseSamplingRate(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}

	if SamplingRateNormal.String() != "normal" || SamplingRateFastest.String() != "fastest" {
		t.Fatalf("unexpected rate names")
	}
}
