package main

import "time"

// DozeState is the top-level, daemon-owned state container.
//
// Only the daemon goroutine touches it. Other goroutines get copies through
// StatusSnapshot (RequestStatus) or reducer broadcasts.
type DozeState struct {
	Screen    ScreenState
	Proximity ProximityState
	Settings  SettingsState
	Pulses    PulseState
}

// ScreenState is the last reported display state.
type ScreenState struct {
	On    bool
	Known bool
	At    time.Time
}

// ProximityState tracks the listener subscription as confirmed by effects.
type ProximityState struct {
	Enabled bool
	At      time.Time

	// Pending is the transition requested but not yet confirmed.
	// While set, the reducer does not emit another toggle.
	Pending *bool
}

// SettingsState is the daemon's cached copy of the settings store.
type SettingsState struct {
	Values Settings
	Known  bool
	At     time.Time
}

// PulseState counts pulses fired since start.
type PulseState struct {
	Count  uint64
	LastAt time.Time
}

// StatusSnapshot is the externally visible view of DozeState.
type StatusSnapshot struct {
	ScreenOn         bool      `json:"screen_on"`
	ScreenKnown      bool      `json:"screen_known"`
	ProximityEnabled bool      `json:"proximity_enabled"`
	Settings         Settings  `json:"settings"`
	PulseCount       uint64    `json:"pulse_count"`
	LastPulseAt      time.Time `json:"last_pulse_at"`
}

// Snapshot copies the externally visible fields.
func (s *DozeState) Snapshot() StatusSnapshot {
	return StatusSnapshot{
		ScreenOn:         s.Screen.On,
		ScreenKnown:      s.Screen.Known,
		ProximityEnabled: s.Proximity.Enabled,
		Settings:         s.Settings.Values,
		PulseCount:       s.Pulses.Count,
		LastPulseAt:      s.Pulses.LastAt,
	}
}

// SetObservedSettings updates the cached settings.
func (s *DozeState) SetObservedSettings(v Settings, now time.Time) {
	s.Settings.Values = v
	s.Settings.Known = true
	s.Settings.At = now
}

// SetObservedProximity records a confirmed listener state and clears any
// pending transition.
func (s *DozeState) SetObservedProximity(enabled bool, now time.Time) {
	s.Proximity.Enabled = enabled
	s.Proximity.At = now
	s.Proximity.Pending = nil
}

// screenOff reports whether the display should be treated as off.
// Before the first screen report, assumeOff decides.
func (s *DozeState) screenOff(assumeOff bool) bool {
	if !s.Screen.Known {
		return assumeOff
	}
	return !s.Screen.On
}

// WantProximity is the doze service policy: listen only while the screen is
// off, ambient display is on, and at least one sensor gesture is enabled.
func (s *DozeState) WantProximity(assumeScreenOff bool) bool {
	if !s.Settings.Known {
		return false
	}
	v := s.Settings.Values
	return s.screenOff(assumeScreenOff) && v.DozeEnabled && v.SensorsEnabled()
}
