//go:build !linux

package main

import (
	"errors"
	"log/slog"
)

type evdevSensor struct{}

func newEvdevSensor(path string, maxRange float64, logger *slog.Logger) (*evdevSensor, error) {
	return nil, errors.New("evdev proximity sensors are only supported on linux")
}

func (*evdevSensor) OnLost(func(error))                       {}
func (*evdevSensor) MaximumRange() float64                    { return 0 }
func (*evdevSensor) Subscribe(SampleFunc, SamplingRate) error { return errors.New("unsupported") }
func (*evdevSensor) Unsubscribe() error                       { return nil }
func (*evdevSensor) Close() error                             { return nil }
