//go:build linux

package main

import (
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sys/unix"
)

var (
	errAlreadySubscribed = errors.New("proximity sensor already subscribed")
	errDeviceHangup      = errors.New("proximity device hung up")
)

// evdevSensor reads ABS_DISTANCE events from a Linux input device.
//
// One reader goroutine per subscription waits in epoll on the device fd and
// on an eventfd used to stop it. Samples are delivered from that goroutine,
// so SampleFunc calls are serialized.
type evdevSensor struct {
	path     string
	maxRange float64
	logger   *slog.Logger

	mu     sync.Mutex
	fd     int
	sub    *evdevSubscription
	closed bool
	lost   func(error)
}

type evdevSubscription struct {
	epfd   int
	stopFd int
	done   chan struct{}
}

// newEvdevSensor opens the device. A missing device is reported here, before
// any listener is built.
func newEvdevSensor(path string, maxRange float64, logger *slog.Logger) (*evdevSensor, error) {
	fd, err := unix.Open(path, unix.O_RDONLY|unix.O_NONBLOCK|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, fmt.Errorf("open proximity device %s: %w", path, err)
	}

	// Event timestamps default to CLOCK_REALTIME; the classifier needs a
	// monotonic clock.
	if err := unix.IoctlSetPointerInt(fd, EVIOCSCLOCKID, unix.CLOCK_MONOTONIC); err != nil {
		logger.Warn("could not switch input clock to CLOCK_MONOTONIC", "device", path, "error", err)
	}

	return &evdevSensor{
		path:     path,
		maxRange: maxRange,
		logger:   logger,
		fd:       fd,
	}, nil
}

// OnLost registers fn to be called when the reader stops on its own after a
// device hangup or read error. The subscription is already released when fn
// runs, so a later Subscribe starts a new reader.
func (s *evdevSensor) OnLost(fn func(error)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lost = fn
}

// MaximumRange implements ProximitySensor.
func (s *evdevSensor) MaximumRange() float64 { return s.maxRange }

// Subscribe implements ProximitySensor. evdev has no per-reader rate
// control, so rate is only logged.
func (s *evdevSensor) Subscribe(fn SampleFunc, rate SamplingRate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return fmt.Errorf("proximity device %s is closed", s.path)
	}
	if s.sub != nil {
		return errAlreadySubscribed
	}

	epfd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return fmt.Errorf("epoll_create1: %w", err)
	}
	stopFd, err := unix.Eventfd(0, unix.EFD_CLOEXEC|unix.EFD_NONBLOCK)
	if err != nil {
		unix.Close(epfd)
		return fmt.Errorf("eventfd: %w", err)
	}

	for _, fd := range []int{s.fd, stopFd} {
		ev := unix.EpollEvent{Events: unix.EPOLLIN, Fd: int32(fd)}
		if err := unix.EpollCtl(epfd, unix.EPOLL_CTL_ADD, fd, &ev); err != nil {
			unix.Close(stopFd)
			unix.Close(epfd)
			return fmt.Errorf("epoll_ctl_add fd=%d: %w", fd, err)
		}
	}

	sub := &evdevSubscription{epfd: epfd, stopFd: stopFd, done: make(chan struct{})}
	s.sub = sub

	s.logger.Debug("proximity sensor subscribed", "device", s.path, "rate", rate.String())
	go s.readLoop(sub, fn)
	return nil
}

// Unsubscribe implements ProximitySensor. It waits for the reader goroutine
// to exit, so no sample is delivered after it returns.
func (s *evdevSensor) Unsubscribe() error {
	s.mu.Lock()
	sub := s.sub
	s.sub = nil
	s.mu.Unlock()

	if sub == nil {
		return nil
	}

	var one [8]byte
	binary.NativeEndian.PutUint64(one[:], 1)
	if _, err := unix.Write(sub.stopFd, one[:]); err != nil {
		return fmt.Errorf("signal proximity reader: %w", err)
	}
	<-sub.done

	unix.Close(sub.stopFd)
	unix.Close(sub.epfd)
	s.logger.Debug("proximity sensor unsubscribed", "device", s.path)
	return nil
}

// Close unsubscribes and releases the device.
func (s *evdevSensor) Close() error {
	if err := s.Unsubscribe(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return unix.Close(s.fd)
}

func (s *evdevSensor) readLoop(sub *evdevSubscription, fn SampleFunc) {
	err := s.pump(sub, fn)
	close(sub.done)
	if err == nil {
		return
	}

	s.mu.Lock()
	owned := s.sub == sub
	if owned {
		s.sub = nil
	}
	lost := s.lost
	s.mu.Unlock()

	// Unsubscribe took the subscription first; it releases the fds.
	if !owned {
		return
	}
	unix.Close(sub.stopFd)
	unix.Close(sub.epfd)

	if lost != nil {
		lost(err)
	}
}

// pump delivers samples until the stop eventfd fires (nil) or the device
// fails (non-nil).
func (s *evdevSensor) pump(sub *evdevSubscription, fn SampleFunc) error {
	epollEvents := make([]unix.EpollEvent, 2)
	buf := make([]byte, inputEventSize*maxEventsPerRead)

	for {
		n, err := unix.EpollWait(sub.epfd, epollEvents, -1)
		if err != nil {
			if errors.Is(err, unix.EINTR) {
				continue
			}
			s.logger.Error("proximity epoll_wait failed", "device", s.path, "error", err)
			return fmt.Errorf("epoll_wait: %w", err)
		}

		for i := 0; i < n; i++ {
			ev := epollEvents[i]
			if int(ev.Fd) == sub.stopFd {
				return nil
			}

			// Read what is left before giving up on a hung up device.
			if err := s.drain(buf, fn); err != nil {
				return err
			}
			if ev.Events&(unix.EPOLLERR|unix.EPOLLHUP) != 0 {
				s.logger.Error("proximity device error/hangup", "device", s.path)
				return errDeviceHangup
			}
		}
	}
}

// drain reads until the device would block. Only fatal read errors are
// returned.
func (s *evdevSensor) drain(buf []byte, fn SampleFunc) error {
	for {
		n, err := unix.Read(s.fd, buf)
		if err != nil {
			if errors.Is(err, unix.EAGAIN) || errors.Is(err, unix.EINTR) {
				return nil
			}
			s.logger.Error("proximity read failed", "device", s.path, "error", err)
			return fmt.Errorf("read proximity device: %w", err)
		}
		if n <= 0 {
			return nil
		}

		decodeInputEvents(buf[:n], func(ev inputEvent) {
			if sample, ok := proximitySample(ev, s.maxRange); ok {
				fn(sample)
			}
		})
	}
}
