package main

// Linux input event types and codes (from <linux/input.h>)
const (
	EV_SYN = 0x00
	EV_ABS = 0x03

	ABS_DISTANCE = 0x19
)

// EVIOCSCLOCKID selects the clock used for event timestamps:
// _IOW('E', 0xa0, int)
const EVIOCSCLOCKID = 0x400445a0

// Daemon defaults
const (
	defaultSensorDevice   = "/dev/input/by-path/platform-proximity-event"
	defaultSensorMaxRange = 5.0 // Typical proximity sensor range (cm)
	defaultSettingsPath   = "/var/lib/dozed/settings.yaml"
	defaultSocketPath     = "/tmp/dozed.sock"
	defaultHTTPListenAddr = ":3002"
	defaultWSPath         = "/ws"
	defaultEventQueueSize = 64
	defaultBroadcastQueue = 64

	// Maximum input events read per syscall
	maxEventsPerRead = 64
)
