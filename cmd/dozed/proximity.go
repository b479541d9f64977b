package main

import (
	"fmt"
	"log/slog"
	"sync"
)

// GestureSource supplies the current gesture toggles. It is queried on every
// near→far edge; implementations must not cache on the caller's behalf.
type GestureSource interface {
	GestureConfig() GestureConfig
}

// PulseSink receives the "trigger pulse" action. Pulse must return quickly;
// see newAsyncPulseSink for a non-blocking wrapper.
type PulseSink interface {
	Pulse()
}

// transitionState is the listener's edge-detection memory.
// It only lives while the listener is enabled.
type transitionState struct {
	lastWasNear          bool
	enteredNearTimestamp int64
}

// ListenerOptions tunes ProximityListener.
type ListenerOptions struct {
	// Rate is the sampling rate requested on Enable.
	Rate SamplingRate

	// ClampNegativeDelta clamps a negative edge delta (clock went backwards)
	// to zero. Both values are below PocketDelta, so the gesture decision is
	// unchanged; only the logged delta_ms differs. Off by default.
	ClampNegativeDelta bool
}

// ProximityListener bridges a ProximitySensor to the gesture classifier.
//
// All state is guarded by mu: Enable, Disable and OnSample may be called from
// different goroutines.
type ProximityListener struct {
	sensor   ProximitySensor
	gestures GestureSource
	sink     PulseSink
	opts     ListenerOptions
	logger   *slog.Logger

	mu    sync.Mutex
	state *transitionState // nil while disabled
}

// NewProximityListener constructs a disabled listener.
func NewProximityListener(sensor ProximitySensor, gestures GestureSource, sink PulseSink, opts ListenerOptions, logger *slog.Logger) *ProximityListener {
	if logger == nil {
		logger = slog.Default()
	}
	return &ProximityListener{
		sensor:   sensor,
		gestures: gestures,
		sink:     sink,
		opts:     opts,
		logger:   logger,
	}
}

// Enable subscribes to the sensor. Enabling an enabled listener does nothing.
func (l *ProximityListener) Enable() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.state != nil {
		return nil
	}

	// Install state before subscribing: the sensor may deliver a sample
	// before Subscribe returns, and OnSample will block on mu until then.
	l.state = &transitionState{}
	if err := l.sensor.Subscribe(l.OnSample, l.opts.Rate); err != nil {
		l.state = nil
		return fmt.Errorf("subscribe proximity sensor: %w", err)
	}

	l.logger.Debug("proximity listener enabled", "rate", l.opts.Rate.String())
	return nil
}

// Disable unsubscribes from the sensor and discards transition state.
func (l *ProximityListener) Disable() error {
	l.mu.Lock()
	if l.state == nil {
		l.mu.Unlock()
		return nil
	}
	l.state = nil
	l.mu.Unlock()

	// Unsubscribe outside the lock: it may wait for an in-flight OnSample.
	if err := l.sensor.Unsubscribe(); err != nil {
		return fmt.Errorf("unsubscribe proximity sensor: %w", err)
	}

	l.logger.Debug("proximity listener disabled")
	return nil
}

// SensorLost drops the transition state after the sensor stopped delivering
// on its own. It reports whether the listener was enabled, so callers can
// ignore a loss that raced with Disable.
func (l *ProximityListener) SensorLost(err error) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.state == nil {
		return false
	}
	l.state = nil
	l.logger.Warn("proximity sensor lost; listener disabled", "error", err)
	return true
}

// Enabled reports whether the listener is subscribed.
func (l *ProximityListener) Enabled() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state != nil
}

// OnSample is the listener's only state transition.
func (l *ProximityListener) OnSample(sample SensorSample) {
	l.mu.Lock()
	defer l.mu.Unlock()

	st := l.state
	if st == nil {
		return
	}

	isNear := sample.IsNear()
	if st.lastWasNear && !isNear {
		delta := sample.TimestampNanos - st.enteredNearTimestamp
		if delta < 0 && l.opts.ClampNegativeDelta {
			delta = 0
		}

		cfg := l.gestures.GestureConfig()
		if ShouldTrigger(delta, cfg) {
			l.logger.Debug("proximity pulse",
				"gesture", Classify(delta).String(),
				"delta_ms", delta/1_000_000,
				"handwave", cfg.HandwaveEnabled,
				"pocket", cfg.PocketEnabled)
			l.sink.Pulse()
		}
	} else {
		// Updated on every non-edge sample, far→far included.
		st.enteredNearTimestamp = sample.TimestampNanos
	}
	st.lastWasNear = isNear
}
