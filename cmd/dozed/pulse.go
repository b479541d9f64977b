package main

import (
	"context"
	"log/slog"
	"time"
)

const defaultPulseQueueSize = 8

// asyncPulseSink decouples the sensor callback from whatever a pulse does.
//
// Pulse never blocks: it drops the pulse when the queue is full. Run drains
// the queue on its own goroutine and calls deliver for each pulse.
type asyncPulseSink struct {
	queue   chan time.Time
	deliver func(ctx context.Context, at time.Time)
	logger  *slog.Logger
}

func newAsyncPulseSink(size int, deliver func(ctx context.Context, at time.Time), logger *slog.Logger) *asyncPulseSink {
	if size <= 0 {
		size = defaultPulseQueueSize
	}
	return &asyncPulseSink{
		queue:   make(chan time.Time, size),
		deliver: deliver,
		logger:  logger,
	}
}

// Pulse implements PulseSink.
func (s *asyncPulseSink) Pulse() {
	select {
	case s.queue <- time.Now():
	default:
		s.logger.Warn("pulse queue full; dropping pulse")
	}
}

// Run delivers queued pulses until ctx is canceled.
func (s *asyncPulseSink) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case at := <-s.queue:
			s.deliver(ctx, at)
		}
	}
}

// deliverToDaemon returns a deliver func that reports pulses to the daemon
// loop as PulseTriggered events.
func deliverToDaemon(events chan<- Event) func(ctx context.Context, at time.Time) {
	return func(ctx context.Context, at time.Time) {
		select {
		case events <- PulseTriggered{At: at}:
		case <-ctx.Done():
		}
	}
}

// reportSensorLost returns the sensor's loss handler. It resets the listener
// and tells the daemon loop, which then treats the listener as disabled.
// The reader goroutine calls it, so the send never blocks.
func reportSensorLost(listener *ProximityListener, events chan<- Event, logger *slog.Logger) func(error) {
	return func(err error) {
		if !listener.SensorLost(err) {
			return
		}
		select {
		case events <- ProximityLost{Err: err, At: time.Now()}:
		default:
			logger.Warn("event queue full; dropping proximity loss", "error", err)
		}
	}
}
