package main

import (
	"fmt"
	"strings"
	"time"
)

// SensorSample is one proximity reading.
// TimestampNanos comes from a monotonic clock.
type SensorSample struct {
	Distance       float64
	MaxRange       float64
	TimestampNanos int64
}

// IsNear reports whether something is closer than the sensor's maximum range.
func (s SensorSample) IsNear() bool {
	return s.Distance < s.MaxRange
}

// SampleFunc receives samples from a ProximitySensor. Calls are serialized.
type SampleFunc func(SensorSample)

// SamplingRate is the requested delivery period for a subscription.
type SamplingRate time.Duration

const (
	// SamplingRateNormal matches the platform "normal" sensor delay.
	SamplingRateNormal = SamplingRate(200 * time.Millisecond)
	// SamplingRateFastest asks for samples as fast as the device produces them.
	SamplingRateFastest = SamplingRate(0)
)

func (r SamplingRate) String() string {
	switch r {
	case SamplingRateNormal:
		return "normal"
	case SamplingRateFastest:
		return "fastest"
	default:
		return time.Duration(r).String()
	}
}

// parseSamplingRate accepts "normal", "fastest" or a Go duration string.
func parseSamplingRate(s string) (SamplingRate, error) {
	switch strings.ToLower(s) {
	case "", "normal":
		return SamplingRateNormal, nil
	case "fastest":
		return SamplingRateFastest, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid sampling rate %q (must be normal, fastest or a duration)", s)
	}
	if d < 0 {
		return 0, fmt.Errorf("invalid sampling rate %q: negative duration", s)
	}
	return SamplingRate(d), nil
}

// ProximitySensor is a subscribable proximity data source.
//
// Subscribe starts delivering samples to fn until Unsubscribe is called.
// Implementations must not call fn concurrently with itself.
type ProximitySensor interface {
	Subscribe(fn SampleFunc, rate SamplingRate) error
	Unsubscribe() error
	MaximumRange() float64
}
