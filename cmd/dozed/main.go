package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"
)

const version = "1.0.0"

func printVersion() {
	fmt.Printf("dozed v%s\n", version)
	fmt.Println("Ambient display doze daemon with proximity gestures")
}

func printUsage() {
	printVersion()
	fmt.Println()
	fmt.Println("USAGE:")
	fmt.Println("  dozed [OPTIONS]")
	fmt.Println()
	fmt.Println("DESCRIPTION:")
	fmt.Println("  Listens to a proximity sensor while the screen is off and pulses the")
	fmt.Println("  ambient display on a hand wave (near for < 1s) or when the device")
	fmt.Println("  leaves a pocket (near for >= 1s).")
	fmt.Println()
	fmt.Println("OPTIONS:")
	fmt.Println("  -config string")
	fmt.Println("        YAML config file; flags override values from the file")
	fmt.Println()
	fmt.Println("  -sensor-device string")
	fmt.Printf("        Linux input event device of the proximity sensor (default %q)\n", defaultSensorDevice)
	fmt.Println()
	fmt.Println("  -sensor-max-range float")
	fmt.Printf("        Sensor maximum range; readings below it are near (default %.1f)\n", defaultSensorMaxRange)
	fmt.Println()
	fmt.Println("  -sensor-rate string")
	fmt.Println("        Sampling rate: normal|fastest|<duration> (default \"normal\")")
	fmt.Println()
	fmt.Println("  -clamp-negative-delta")
	fmt.Println("        Treat a near period with a negative duration as 0")
	fmt.Println()
	fmt.Println("  -settings string")
	fmt.Printf("        Settings file (default %q)\n", defaultSettingsPath)
	fmt.Println()
	fmt.Println("  -watch-settings")
	fmt.Println("        Reload settings when the file changes (default true)")
	fmt.Println()
	fmt.Println("  -assume-screen-off")
	fmt.Println("        Treat the screen as off until the first screen report (default true)")
	fmt.Println()
	fmt.Println("  -ipc-socket string")
	fmt.Printf("        Unix domain socket path for IPC (default %q)\n", defaultSocketPath)
	fmt.Println()
	fmt.Println("  -http-listen string")
	fmt.Printf("        HTTP listen address for the pulse websocket; empty disables (default %q)\n", defaultHTTPListenAddr)
	fmt.Println()
	fmt.Println("  -log-level string")
	fmt.Println("        Log level: error, warn, info, debug (default \"info\")")
	fmt.Println()
	fmt.Println("  -version")
	fmt.Println("        Print version and exit")
	fmt.Println()
	fmt.Println("  -help")
	fmt.Println("        Print this help message")
	fmt.Println()
	fmt.Println("EXAMPLES:")
	fmt.Println("  # Start with a config file")
	fmt.Println("  dozed -config /etc/dozed.yaml")
	fmt.Println()
	fmt.Println("  # Report the screen turning off")
	fmt.Println("  doze-ctl screen off")
	fmt.Println()
	fmt.Println("NOTES:")
	fmt.Println("  - Requires read access to the input device (run as root or add user to 'input' group)")
	fmt.Println("  - The listener runs only while the screen is off, doze is enabled and")
	fmt.Println("    at least one of pick_up, hand_wave, pocket is enabled")
	fmt.Println()
}

func main() {
	for _, arg := range os.Args[1:] {
		if arg == "-version" || arg == "--version" {
			printVersion()
			return
		}
		if arg == "-help" || arg == "--help" || arg == "-h" {
			printUsage()
			return
		}
	}

	var (
		configPath         = flag.String("config", "", "YAML config file")
		sensorDevice       = flag.String("sensor-device", defaultSensorDevice, "Linux input event device of the proximity sensor")
		sensorMaxRange     = flag.Float64("sensor-max-range", defaultSensorMaxRange, "Sensor maximum range")
		sensorRate         = flag.String("sensor-rate", "normal", "Sampling rate: normal|fastest|<duration>")
		clampNegativeDelta = flag.Bool("clamp-negative-delta", false, "Treat a near period with a negative duration as 0")
		settingsPath       = flag.String("settings", defaultSettingsPath, "Settings file")
		watchSettings      = flag.Bool("watch-settings", true, "Reload settings when the file changes")
		assumeScreenOff    = flag.Bool("assume-screen-off", true, "Treat the screen as off until the first screen report")
		ipcSocketPath      = flag.String("ipc-socket", defaultSocketPath, "Unix domain socket path for IPC")
		httpListen         = flag.String("http-listen", defaultHTTPListenAddr, "HTTP listen address for the pulse websocket")
		logLevelStr        = flag.String("log-level", "info", "Log level: error, warn, info, debug")
	)

	flag.Usage = printUsage
	flag.Parse()

	cfg := DefaultConfig()
	if *configPath != "" {
		loaded, err := LoadConfigFile(*configPath)
		if err != nil {
			fmt.Fprintln(os.Stderr, "error:", err)
			os.Exit(1)
		}
		cfg = loaded
	}

	// Only flags given on the command line override the file.
	var o FlagOverrides
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "sensor-device":
			o.SensorDevice = sensorDevice
		case "sensor-max-range":
			o.SensorMaxRange = sensorMaxRange
		case "sensor-rate":
			o.SensorSamplingRate = sensorRate
		case "clamp-negative-delta":
			o.ClampNegativeDelta = clampNegativeDelta
		case "settings":
			o.SettingsPath = settingsPath
		case "watch-settings":
			o.SettingsWatch = watchSettings
		case "assume-screen-off":
			o.AssumeScreenOff = assumeScreenOff
		case "ipc-socket":
			o.IPCSocketPath = ipcSocketPath
		case "http-listen":
			o.HTTPListen = httpListen
		case "log-level":
			o.LogLevel = logLevelStr
		}
	})
	o.Apply(&cfg)

	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}

	logger, err := newLogger(cfg.Logging, os.Stdout)
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}

	if err := run(cfg, logger); err != nil {
		logger.Error("dozed stopped", "error", err)
		os.Exit(1)
	}
}

// run wires the daemon components and blocks until a signal arrives or one
// of them fails.
func run(cfg Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := LoadSettings(cfg.Settings.Path)
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}

	sensor, err := newEvdevSensor(ExpandPath(cfg.Sensor.Device), cfg.Sensor.MaxRange, logger)
	if err != nil {
		logger.Error("failed to open proximity sensor", "device", cfg.Sensor.Device, "error", err, "tip", "run as root or add user to 'input' group")
		return err
	}
	defer sensor.Close()

	events := make(chan Event, defaultEventQueueSize)

	// Broadcasts only have a consumer when the websocket is served.
	var broadcasts chan StateBroadcast
	if cfg.HTTP.ListenAddr != "" {
		broadcasts = make(chan StateBroadcast, defaultBroadcastQueue)
	}

	sink := newAsyncPulseSink(cfg.Pulse.QueueSize, deliverToDaemon(events), logger)
	listener := NewProximityListener(sensor, store, sink, cfg.ListenerOptions(), logger)
	sensor.OnLost(reportSensorLost(listener, events, logger))

	fx := Effects{
		Proximity: listener,
		Settings:  store,
	}
	svc := ServiceConfig{AssumeScreenOff: cfg.Service.AssumeScreenOff}

	// Seed the daemon with the settings on disk so policy can be evaluated
	// before any screen report.
	events <- SettingsReloaded{Settings: store.Snapshot()}

	logger.Debug("starting dozed", "version", version)
	logger.Info("listening",
		"sensor_device", cfg.Sensor.Device,
		"sensor_rate", cfg.Sensor.SamplingRate,
		"sensor_max_range", sensor.MaximumRange(),
		"settings", store.Path(),
		"ipc", cfg.IPC.SocketPath,
		"http", cfg.HTTP.ListenAddr)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		runDaemon(gctx, events, fx, svc, &DozeState{}, broadcasts, logger)
		return nil
	})

	g.Go(func() error {
		sink.Run(gctx)
		return nil
	})

	g.Go(func() error {
		return runIPCServer(gctx, ExpandPath(cfg.IPC.SocketPath), events, logger)
	})

	if cfg.Settings.Watch {
		g.Go(func() error {
			return runSettingsWatcher(gctx, store, events, logger)
		})
	}

	if cfg.HTTP.ListenAddr != "" {
		ws := NewServer(logger, events, ServerConfig{})
		mux := http.NewServeMux()
		ws.Register(mux, cfg.HTTP.WSPath)

		g.Go(func() error {
			ws.Hub().Run(gctx)
			return nil
		})
		g.Go(func() error {
			RunBroadcaster(gctx, ws.Hub(), broadcasts, logger)
			return nil
		})
		g.Go(func() error {
			return runHTTPServer(gctx, cfg.HTTP.ListenAddr, mux, logger)
		})
	}

	err = g.Wait()
	logger.Info("shutting down")
	return err
}
