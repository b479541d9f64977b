package main

import (
	"bytes"
	"encoding/binary"
)

// inputEvent represents a Linux input event structure
// struct input_event { struct timeval time; __u16 type; __u16 code; __s32 value; };
type inputEvent struct {
	Sec   int64
	Usec  int64
	Type  uint16
	Code  uint16
	Value int32
}

var inputEventSize = binary.Size(inputEvent{})

// TimestampNanos converts the event timeval to nanoseconds.
func (ev inputEvent) TimestampNanos() int64 {
	return ev.Sec*1_000_000_000 + ev.Usec*1_000
}

// decodeInputEvents parses every complete input_event in buf and calls fn for
// each one. Trailing partial events are ignored.
func decodeInputEvents(buf []byte, fn func(inputEvent)) {
	reader := bytes.NewReader(nil)
	for off := 0; off+inputEventSize <= len(buf); off += inputEventSize {
		reader.Reset(buf[off : off+inputEventSize])
		var ev inputEvent
		if err := binary.Read(reader, binary.LittleEndian, &ev); err != nil {
			// Skip malformed events
			continue
		}
		fn(ev)
	}
}

// proximitySample converts an ABS_DISTANCE event to a SensorSample.
// Any other event returns false.
func proximitySample(ev inputEvent, maxRange float64) (SensorSample, bool) {
	if ev.Type != EV_ABS || ev.Code != ABS_DISTANCE {
		return SensorSample{}, false
	}
	return SensorSample{
		Distance:       float64(ev.Value),
		MaxRange:       maxRange,
		TimestampNanos: ev.TimestampNanos(),
	}, true
}
