package main

import (
	"context"
	"log/slog"
	"time"
)

// ============================================================================
// Central Daemon Loop - Reducer-driven doze service
// ============================================================================
//
// Design rules enforced here:
//   - The reducer performs no I/O and computes: next state + commands + broadcasts.
//   - The daemon loop is the only place that executes side effects.
//   - Effect results are turned into Events and fed back into the reducer.
//   - Explicit event and command queues (no nested/re-entrant execution).
//
// ============================================================================

// runDaemon is the main daemon loop. It exits when ctx is canceled or the
// events channel is closed.
//
// Broadcasts are forwarded to broadcasts without blocking; a full channel
// drops them.
func runDaemon(
	ctx context.Context,
	events <-chan Event,
	fx Effects,
	cfg ServiceConfig,
	state *DozeState,
	broadcasts chan<- StateBroadcast,
	logger *slog.Logger,
) {
	if state == nil {
		state = &DozeState{}
	}

	var eventQueue []Event
	var cmdQueue []Command

	enqueueEvent := func(ev Event) {
		eventQueue = append(eventQueue, ev)
	}

	publish := func(bs []StateBroadcast) {
		if broadcasts == nil {
			return
		}
		for _, b := range bs {
			select {
			case broadcasts <- b:
			default:
				logger.Warn("broadcast queue full; dropping", "broadcast", b)
			}
		}
	}

	flushEvents := func() {
		for len(eventQueue) > 0 {
			ev := eventQueue[0]
			eventQueue = eventQueue[1:]

			rr := Reduce(state, ev, cfg)
			if rr.State != nil {
				state = rr.State
			}
			cmdQueue = append(cmdQueue, rr.Commands...)
			publish(rr.Broadcasts)
		}
	}

	flushCommands := func() {
		for len(cmdQueue) > 0 {
			cmd := cmdQueue[0]
			cmdQueue = cmdQueue[1:]

			logger.Debug("executing command", "command", cmd.String())
			runEffect(fx, cmd, logger, enqueueEvent)

			// Reduce observations promptly so follow-up commands run in order.
			flushEvents()
		}
	}

	logger.Info("daemon starting")

	for {
		select {
		case <-ctx.Done():
			logger.Info("daemon stopping (context canceled)")
			shutdownProximity(fx, state, logger)
			return

		case ev, ok := <-events:
			if !ok {
				logger.Info("daemon stopping (events channel closed)")
				shutdownProximity(fx, state, logger)
				return
			}
			enqueueEvent(TimedEvent{Event: ev, At: time.Now()})
			flushEvents()
			flushCommands()
		}
	}
}

// shutdownProximity releases the sensor on exit.
func shutdownProximity(fx Effects, state *DozeState, logger *slog.Logger) {
	if fx.Proximity == nil || !state.Proximity.Enabled {
		return
	}
	if err := fx.Proximity.Disable(); err != nil {
		logger.Warn("disable proximity listener on shutdown failed", "error", err)
	}
}
