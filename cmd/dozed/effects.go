package main

import (
	"log/slog"
	"time"
)

// ProximityController is the part of ProximityListener the effects layer drives.
type ProximityController interface {
	Enable() error
	Disable() error
	Enabled() bool
}

// SettingsWriter is the part of SettingsStore the effects layer drives.
type SettingsWriter interface {
	Set(key string, value bool) error
	Snapshot() Settings
}

// Effects bundles the collaborators commands are executed against.
type Effects struct {
	Proximity ProximityController
	Settings  SettingsWriter
}

// runEffect executes a single reducer-emitted Command and emits an
// observation Event via onEvent.
//
// Design rules:
// - This function is allowed to perform I/O.
// - It must never call Reduce() directly; it only emits Events to be reduced by the daemon loop.
func runEffect(fx Effects, cmd Command, logger *slog.Logger, onEvent func(Event)) {
	if onEvent == nil {
		return
	}

	now := time.Now()

	switch c := cmd.(type) {
	case CmdEnableProximity:
		if fx.Proximity == nil {
			onEvent(CommandFailed{Command: cmd, Err: errNoController{what: "proximity"}, At: now})
			return
		}
		if err := fx.Proximity.Enable(); err != nil {
			logger.Error("enable proximity listener failed", "error", err)
			onEvent(CommandFailed{Command: cmd, Err: err, At: now})
			return
		}
		logger.Info("proximity listener enabled")
		onEvent(ProximityStateObserved{Enabled: fx.Proximity.Enabled(), At: now})

	case CmdDisableProximity:
		if fx.Proximity == nil {
			onEvent(CommandFailed{Command: cmd, Err: errNoController{what: "proximity"}, At: now})
			return
		}
		if err := fx.Proximity.Disable(); err != nil {
			logger.Error("disable proximity listener failed", "error", err)
			onEvent(CommandFailed{Command: cmd, Err: err, At: now})
			return
		}
		logger.Info("proximity listener disabled")
		onEvent(ProximityStateObserved{Enabled: fx.Proximity.Enabled(), At: now})

	case CmdPersistSetting:
		if fx.Settings == nil {
			onEvent(CommandFailed{Command: cmd, Err: errNoController{what: "settings"}, At: now})
			return
		}
		if err := fx.Settings.Set(c.Key, c.Value); err != nil {
			logger.Error("persist setting failed", "error", err, "key", c.Key, "value", c.Value)
			onEvent(CommandFailed{Command: cmd, Err: err, At: now})
			return
		}
		logger.Info("setting changed", "key", c.Key, "value", c.Value)
		onEvent(SettingsObserved{Settings: fx.Settings.Snapshot(), At: now})

	case CmdPublishStatus:
		if c.Reply == nil {
			logger.Warn("status requested with nil reply channel")
			return
		}
		// Never block the daemon loop on a requester.
		select {
		case c.Reply <- c.Snapshot:
		default:
			logger.Warn("status reply channel not ready; dropping snapshot")
		}

	default:
		logger.Warn("unknown command type", "command", cmd.String())
		onEvent(CommandFailed{Command: cmd, Err: errUnknownCommand{cmd: cmd}, At: now})
	}
}

// errNoController indicates a command arrived without the collaborator it needs.
type errNoController struct {
	what string
}

func (e errNoController) Error() string { return "no " + e.what + " controller" }

type errUnknownCommand struct {
	cmd Command
}

func (e errUnknownCommand) Error() string { return "unknown command: " + e.cmd.String() }
