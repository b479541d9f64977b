package main

import "time"

// This file implements the reducer-style building blocks:
//
//   - Events: inputs (screen state, settings, pulses, effect observations)
//   - Commands: side effects requested by the reducer (listener toggles, settings writes)
//   - Broadcasts: state changes for websocket subscribers
//   - Reduce(): computes next state + commands + broadcasts, without performing I/O
//
// The daemon loop is responsible for executing Commands and feeding observations back as Events.

// ServiceConfig holds reducer policy knobs.
type ServiceConfig struct {
	// AssumeScreenOff treats the display as off until the first screen event.
	AssumeScreenOff bool
}

// ==============================
// Broadcasts
// ==============================

// StateBroadcast is a reducer-emitted change for external subscribers.
type StateBroadcast interface {
	broadcastMarker()
}

// BroadcastPulse announces a fired pulse.
type BroadcastPulse struct {
	Count uint64
	At    time.Time
}

func (BroadcastPulse) broadcastMarker() {}

// BroadcastProximityState announces a confirmed listener toggle.
type BroadcastProximityState struct {
	Enabled bool
	At      time.Time
}

func (BroadcastProximityState) broadcastMarker() {}

// BroadcastSettingsChanged announces a change in any setting.
type BroadcastSettingsChanged struct {
	Settings Settings
	At       time.Time
}

func (BroadcastSettingsChanged) broadcastMarker() {}

// ==============================
// Reducer input/output
// ==============================

// ReduceResult is the output of Reduce(): next state plus Commands to execute
// and Broadcasts to publish.
type ReduceResult struct {
	State      *DozeState
	Commands   []Command
	Broadcasts []StateBroadcast
}

// Reduce is the pure reducer:
//
// Rules:
// - Must not perform I/O
// - Must not block
// - Must not mutate anything outside the returned state
func Reduce(s *DozeState, e Event, cfg ServiceConfig) ReduceResult {
	if s == nil {
		s = &DozeState{}
	}

	at := time.Time{}
	if te, ok := e.(TimedEvent); ok {
		e = te.Event
		at = te.At
	}

	var cmds []Command
	var bcasts []StateBroadcast
	reconcile := true

	switch ev := e.(type) {
	case ScreenStateChanged:
		s.Screen.On = ev.On
		s.Screen.Known = true
		s.Screen.At = at

	case SetSetting:
		cmds = append(cmds, CmdPersistSetting{Key: ev.Key, Value: ev.Value})

	case SettingsObserved:
		if !s.Settings.Known || s.Settings.Values != ev.Settings {
			bcasts = append(bcasts, BroadcastSettingsChanged{Settings: ev.Settings, At: ev.At})
		}
		s.SetObservedSettings(ev.Settings, ev.At)

	case SettingsReloaded:
		if !s.Settings.Known || s.Settings.Values != ev.Settings {
			bcasts = append(bcasts, BroadcastSettingsChanged{Settings: ev.Settings, At: at})
		}
		s.SetObservedSettings(ev.Settings, at)

	case PulseTriggered:
		s.Pulses.Count++
		s.Pulses.LastAt = ev.At
		bcasts = append(bcasts, BroadcastPulse{Count: s.Pulses.Count, At: ev.At})

	case ProximityStateObserved:
		changed := s.Proximity.Enabled != ev.Enabled
		s.SetObservedProximity(ev.Enabled, ev.At)
		if changed {
			bcasts = append(bcasts, BroadcastProximityState{Enabled: ev.Enabled, At: ev.At})
		}

	case ProximityLost:
		changed := s.Proximity.Enabled
		s.SetObservedProximity(false, ev.At)
		if changed {
			bcasts = append(bcasts, BroadcastProximityState{Enabled: false, At: ev.At})
		}
		// Resubscribing to a dead device would fail again right away; the
		// next event re-evaluates policy.
		reconcile = false

	case CommandFailed:
		// Drop the pending transition without retrying; the next event
		// re-evaluates policy.
		switch ev.Command.(type) {
		case CmdEnableProximity, CmdDisableProximity:
			s.Proximity.Pending = nil
			reconcile = false
		}

	case RequestStatus:
		cmds = append(cmds, CmdPublishStatus{Reply: ev.Reply, Snapshot: s.Snapshot()})

	default:
		// Unknown event type: no-op.
	}

	// Policy: reconcile the listener with the desired state after every event.
	want := s.WantProximity(cfg.AssumeScreenOff)
	if reconcile && s.Proximity.Pending == nil && want != s.Proximity.Enabled {
		s.Proximity.Pending = &want
		if want {
			cmds = append(cmds, CmdEnableProximity{})
		} else {
			cmds = append(cmds, CmdDisableProximity{})
		}
	}

	return ReduceResult{
		State:      s,
		Commands:   cmds,
		Broadcasts: bcasts,
	}
}
