package main

import (
	"encoding/json"
	"fmt"
	"time"
)

// ============================================================================
// Events - inputs to the reducer
// ============================================================================
// Events come from IPC clients, the settings watcher, the pulse sink and the
// effects layer. The daemon loop is the only consumer.
// ============================================================================

// Event is a marker interface for everything the reducer accepts.
type Event interface {
	eventMarker()
}

// TimedEvent stamps an externally sourced event with its arrival time.
type TimedEvent struct {
	Event Event
	At    time.Time
}

func (TimedEvent) eventMarker() {}

// ScreenStateChanged reports the display turning on or off.
type ScreenStateChanged struct {
	On bool `json:"on"`
}

func (ScreenStateChanged) eventMarker() {}

// SetSetting requests a settings change.
type SetSetting struct {
	Key   string `json:"key"`
	Value bool   `json:"value"`
}

func (SetSetting) eventMarker() {}

// RequestStatus asks the daemon loop for a status snapshot.
// Reply must be buffered; the effects layer never blocks on it.
type RequestStatus struct {
	Reply chan<- StatusSnapshot `json:"-"`
}

func (RequestStatus) eventMarker() {}

// SettingsReloaded carries settings re-read from disk.
type SettingsReloaded struct {
	Settings Settings
}

func (SettingsReloaded) eventMarker() {}

// SettingsObserved carries settings confirmed by the store after a write.
type SettingsObserved struct {
	Settings Settings
	At       time.Time
}

func (SettingsObserved) eventMarker() {}

// PulseTriggered is emitted by the pulse sink each time the listener fires.
type PulseTriggered struct {
	At time.Time
}

func (PulseTriggered) eventMarker() {}

// ProximityStateObserved is emitted after the listener was enabled or disabled.
type ProximityStateObserved struct {
	Enabled bool
	At      time.Time
}

func (ProximityStateObserved) eventMarker() {}

// ProximityLost is emitted when the sensor stops delivering without being
// asked to, e.g. the input device was unplugged.
type ProximityLost struct {
	Err error
	At  time.Time
}

func (ProximityLost) eventMarker() {}

// CommandFailed is emitted when executing a Command fails.
type CommandFailed struct {
	Command Command
	Err     error
	At      time.Time
}

func (CommandFailed) eventMarker() {}

// ============================================================================
// JSON Encoding/Decoding Support
// ============================================================================
// EventEnvelope wraps client-originated events for the IPC wire format.
// ============================================================================

// EventEnvelope wraps an event with a type discriminator for JSON marshaling
type EventEnvelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// UnmarshalEvent deserializes a JSON event envelope into a concrete Event.
// Only events that clients may send are accepted.
func UnmarshalEvent(data []byte) (Event, error) {
	var env EventEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("unmarshal envelope: %w", err)
	}

	switch env.Type {
	case "screen_on":
		return ScreenStateChanged{On: true}, nil

	case "screen_off":
		return ScreenStateChanged{On: false}, nil

	case "set_setting":
		if len(env.Data) == 0 {
			return nil, fmt.Errorf("unmarshal SetSetting: missing data")
		}
		var a SetSetting
		if err := json.Unmarshal(env.Data, &a); err != nil {
			return nil, fmt.Errorf("unmarshal SetSetting: %w", err)
		}
		if a.Key == "" {
			return nil, fmt.Errorf("unmarshal SetSetting: missing key")
		}
		return a, nil

	case "get_status":
		return RequestStatus{}, nil

	default:
		return nil, fmt.Errorf("unknown event type: %q", env.Type)
	}
}

// MarshalEvent serializes a client event into a JSON envelope
func MarshalEvent(e Event) ([]byte, error) {
	var env EventEnvelope

	switch e := e.(type) {
	case ScreenStateChanged:
		if e.On {
			env.Type = "screen_on"
		} else {
			env.Type = "screen_off"
		}

	case SetSetting:
		env.Type = "set_setting"
		data, err := json.Marshal(e)
		if err != nil {
			return nil, fmt.Errorf("marshal SetSetting: %w", err)
		}
		env.Data = data

	case RequestStatus:
		env.Type = "get_status"

	default:
		return nil, fmt.Errorf("unsupported event type: %T", e)
	}

	return json.Marshal(env)
}
