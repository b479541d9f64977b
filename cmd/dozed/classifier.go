package main

// PocketDelta separates a quick hand wave from a sustained pocket removal.
// A near→far edge that arrives less than PocketDelta after the last
// non-qualifying sample is a hand wave; anything at or above it is a pocket
// removal.
const PocketDelta int64 = 1_000_000_000 // 1s in nanoseconds

// GestureConfig is a read-only snapshot of the two gesture toggles, taken from
// the settings store for a single decision.
type GestureConfig struct {
	HandwaveEnabled bool `json:"handwave_enabled"`
	PocketEnabled   bool `json:"pocket_enabled"`
}

// Gesture names the kind of near→far edge that was seen.
type Gesture int

const (
	GestureNone Gesture = iota
	GestureHandwave
	GesturePocket
)

func (g Gesture) String() string {
	switch g {
	case GestureHandwave:
		return "handwave"
	case GesturePocket:
		return "pocket"
	default:
		return "none"
	}
}

// ShouldTrigger decides whether a near→far edge observed deltaNanos after the
// last non-qualifying sample should pulse the display.
//
// It is a pure function of its inputs. deltaNanos is not validated: a
// negative value (non-monotonic clock) is compared as-is, so it counts as a
// quick hand wave.
func ShouldTrigger(deltaNanos int64, cfg GestureConfig) bool {
	switch {
	case cfg.HandwaveEnabled && cfg.PocketEnabled:
		return true
	case cfg.HandwaveEnabled:
		return deltaNanos < PocketDelta
	case cfg.PocketEnabled:
		return deltaNanos >= PocketDelta
	default:
		return false
	}
}

// Classify labels an edge by duration only, independent of which gestures
// are enabled. The boundary belongs to the pocket gesture.
func Classify(deltaNanos int64) Gesture {
	if deltaNanos < PocketDelta {
		return GestureHandwave
	}
	return GesturePocket
}
