package main

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the top-level YAML configuration for the dozed daemon.
//
// Keep defaults and validation centralized so the rest of the code can assume
// a well-formed config.
type Config struct {
	// Proximity sensor input
	Sensor SensorConfig `yaml:"sensor"`

	// Persisted user toggles
	Settings SettingsConfig `yaml:"settings"`

	// Doze service policy
	Service ServiceFileConfig `yaml:"service"`

	// IPC configuration (used by doze-ctl and screen state reporters)
	IPC IPCConfig `yaml:"ipc"`

	// HTTP server hosting the pulse websocket
	HTTP HTTPConfig `yaml:"http"`

	// Pulse delivery
	Pulse PulseConfig `yaml:"pulse"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`
}

type SensorConfig struct {
	Device             string  `yaml:"device"`
	MaxRange           float64 `yaml:"max_range"`
	SamplingRate       string  `yaml:"sampling_rate"`                  // normal|fastest|<duration>
	ClampNegativeDelta bool    `yaml:"clamp_negative_delta,omitempty"` // off keeps the raw delta
}

type SettingsConfig struct {
	Path  string `yaml:"path"`
	Watch bool   `yaml:"watch"`
}

type ServiceFileConfig struct {
	AssumeScreenOff bool `yaml:"assume_screen_off"`
}

type IPCConfig struct {
	SocketPath string `yaml:"socket_path"`
}

type HTTPConfig struct {
	ListenAddr string `yaml:"listen_addr"` // empty disables the HTTP server
	WSPath     string `yaml:"ws_path"`
}

type PulseConfig struct {
	QueueSize int `yaml:"queue_size"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
	// Format is "text" (default) or "json".
	Format string `yaml:"format"`
}

// DefaultConfig returns a fully-populated Config with defaults.
// Keep this aligned with constants.go defaults and current CLI defaults.
func DefaultConfig() Config {
	return Config{
		Sensor: SensorConfig{
			Device:       defaultSensorDevice,
			MaxRange:     defaultSensorMaxRange,
			SamplingRate: "normal",
		},
		Settings: SettingsConfig{
			Path:  defaultSettingsPath,
			Watch: true,
		},
		Service: ServiceFileConfig{
			AssumeScreenOff: true,
		},
		IPC: IPCConfig{
			SocketPath: defaultSocketPath,
		},
		HTTP: HTTPConfig{
			ListenAddr: defaultHTTPListenAddr,
			WSPath:     defaultWSPath,
		},
		Pulse: PulseConfig{
			QueueSize: defaultPulseQueueSize,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// LoadConfigFile reads and parses a YAML config file on top of DefaultConfig.
//
// Unknown fields are rejected (helps catch typos) via KnownFields(true).
func LoadConfigFile(path string) (Config, error) {
	if path == "" {
		return Config{}, errors.New("config path is empty")
	}
	b, err := os.ReadFile(ExpandPath(path))
	if err != nil {
		return Config{}, fmt.Errorf("read config file: %w", err)
	}

	cfg := DefaultConfig()

	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)

	if err := dec.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config yaml: %w", err)
	}

	// Only whitespace and comments may follow the document. A node accepts any
	// content, so KnownFields cannot turn a trailing document into a decode error.
	var extra yaml.Node
	if err := dec.Decode(&extra); !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("decode config yaml: unexpected trailing document")
	}

	return cfg, nil
}

// FlagOverrides holds flag values to apply on top of a loaded config.
// Each override is only applied if its pointer is non-nil.
type FlagOverrides struct {
	SensorDevice       *string
	SensorMaxRange     *float64
	SensorSamplingRate *string
	ClampNegativeDelta *bool

	SettingsPath  *string
	SettingsWatch *bool

	AssumeScreenOff *bool

	IPCSocketPath *string
	HTTPListen    *string

	LogLevel *string
}

// Apply merges the overrides into cfg.
func (o FlagOverrides) Apply(cfg *Config) {
	if cfg == nil {
		return
	}

	if o.SensorDevice != nil {
		cfg.Sensor.Device = *o.SensorDevice
	}
	if o.SensorMaxRange != nil {
		cfg.Sensor.MaxRange = *o.SensorMaxRange
	}
	if o.SensorSamplingRate != nil {
		cfg.Sensor.SamplingRate = *o.SensorSamplingRate
	}
	if o.ClampNegativeDelta != nil {
		cfg.Sensor.ClampNegativeDelta = *o.ClampNegativeDelta
	}

	if o.SettingsPath != nil {
		cfg.Settings.Path = *o.SettingsPath
	}
	if o.SettingsWatch != nil {
		cfg.Settings.Watch = *o.SettingsWatch
	}

	if o.AssumeScreenOff != nil {
		cfg.Service.AssumeScreenOff = *o.AssumeScreenOff
	}

	if o.IPCSocketPath != nil {
		cfg.IPC.SocketPath = *o.IPCSocketPath
	}
	if o.HTTPListen != nil {
		cfg.HTTP.ListenAddr = *o.HTTPListen
	}

	if o.LogLevel != nil {
		cfg.Logging.Level = *o.LogLevel
	}
}

// Validate checks config invariants and returns a user-friendly error.
// This is intended to be called after defaults + file + overrides are applied.
func (c *Config) Validate() error {
	// Sensor
	if c.Sensor.Device == "" {
		return errors.New("sensor.device must not be empty")
	}
	if c.Sensor.MaxRange <= 0 {
		return errors.New("sensor.max_range must be > 0")
	}
	if _, err := parseSamplingRate(c.Sensor.SamplingRate); err != nil {
		return fmt.Errorf("sensor.sampling_rate: %w", err)
	}

	// Settings
	if c.Settings.Path == "" {
		return errors.New("settings.path must not be empty")
	}

	// IPC
	if c.IPC.SocketPath == "" {
		return errors.New("ipc.socket_path must not be empty")
	}

	// HTTP
	if c.HTTP.ListenAddr != "" {
		if c.HTTP.WSPath == "" || c.HTTP.WSPath[0] != '/' {
			return errors.New("http.ws_path must start with /")
		}
	}

	// Pulse
	if c.Pulse.QueueSize <= 0 {
		return errors.New("pulse.queue_size must be > 0")
	}

	// Logging
	if _, err := parseLogLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("logging.level: %w", err)
	}
	switch strings.ToLower(c.Logging.Format) {
	case "", "text", "json":
	default:
		return fmt.Errorf("logging.format: must be text or json, got %q", c.Logging.Format)
	}

	return nil
}

// ListenerOptions converts sensor config into listener options.
// Call after Validate.
func (c *Config) ListenerOptions() ListenerOptions {
	rate, err := parseSamplingRate(c.Sensor.SamplingRate)
	if err != nil {
		rate = SamplingRateNormal
	}
	return ListenerOptions{
		Rate:               rate,
		ClampNegativeDelta: c.Sensor.ClampNegativeDelta,
	}
}

// ExpandPath expands a leading "~" in a path using $HOME.
func ExpandPath(p string) string {
	if p == "" {
		return p
	}
	if p[0] != '~' {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	if p == "~" {
		return home
	}
	if len(p) >= 2 && (p[1] == '/' || p[1] == '\\') {
		return filepath.Join(home, p[2:])
	}
	return p
}
