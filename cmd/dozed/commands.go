package main

import "fmt"

// ==============================
// Commands (side effects)
// ==============================

// Command represents an external side effect to be executed by the daemon loop.
// Here those are proximity listener toggles, settings writes and status replies.
type Command interface {
	commandMarker()
	String() string
}

// CmdEnableProximity subscribes the proximity listener.
type CmdEnableProximity struct{}

func (CmdEnableProximity) commandMarker() {}
func (CmdEnableProximity) String() string { return "CmdEnableProximity()" }

// CmdDisableProximity unsubscribes the proximity listener.
type CmdDisableProximity struct{}

func (CmdDisableProximity) commandMarker() {}
func (CmdDisableProximity) String() string { return "CmdDisableProximity()" }

// CmdPersistSetting writes one setting to the settings store.
type CmdPersistSetting struct {
	Key   string
	Value bool
}

func (CmdPersistSetting) commandMarker() {}
func (c CmdPersistSetting) String() string {
	return fmt.Sprintf("CmdPersistSetting(key=%s, value=%v)", c.Key, c.Value)
}

// CmdPublishStatus hands a reducer-built snapshot to a waiting requester.
type CmdPublishStatus struct {
	Reply    chan<- StatusSnapshot
	Snapshot StatusSnapshot
}

func (CmdPublishStatus) commandMarker() {}
func (CmdPublishStatus) String() string { return "CmdPublishStatus()" }
