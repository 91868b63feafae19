// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package capture drives timed gyroscope acquisition into fixed-capacity
// buffers.
package capture

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/relabs-tech/gesture_lock/internal/gyro"
)

// ErrSensorTimeout is returned when a transfer does not complete within the
// configured sensor timeout.
var ErrSensorTimeout = errors.New("capture: sensor transfer timed out")

// Reading is the completion of one sensor transfer.
type Reading struct {
	Sample gyro.Sample
	Err    error
}

// Link starts asynchronous sensor transfers. The channel returned by
// Request delivers exactly one Reading.
type Link interface {
	Request() (<-chan Reading, error)
}

// Timer emits sampling ticks while armed. The tick channel holds at most one
// pending tick; Arm discards anything latched by an earlier arming.
type Timer interface {
	Arm(period time.Duration) <-chan time.Time
	Disarm()
}

// Progress receives the fraction of the buffer filled so far.
type Progress interface {
	ShowProgress(fraction float64)
}

// Session captures samples from a Link at the pace of a Timer.
type Session struct {
	Link     Link
	Timer    Timer
	Progress Progress

	Period time.Duration
	// Timeout bounds each transfer. Zero waits forever.
	Timeout time.Duration
}

// Capture fills seq with count samples, one per tick. Each tick issues one
// request and the next tick is not accepted until that transfer completed,
// so at most one transfer is ever in flight.
func (s *Session) Capture(ctx context.Context, seq *gyro.Sequence, count int) error {
	if count <= 0 {
		return fmt.Errorf("capture: invalid sample count %d", count)
	}
	if count > seq.Cap() {
		return fmt.Errorf("capture: %w: %d samples requested, buffer holds %d", gyro.ErrIndexOutOfRange, count, seq.Cap())
	}

	seq.Reset()
	ticks := s.Timer.Arm(s.Period)
	defer s.Timer.Disarm()

	start := time.Now()
	for i := 0; i < count; i++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticks:
		}

		sample, err := s.transfer(ctx)
		if err != nil {
			return fmt.Errorf("capture: sample %d: %w", i, err)
		}
		if err := seq.Set(i, sample); err != nil {
			return fmt.Errorf("capture: %w", err)
		}
		if s.Progress != nil {
			s.Progress.ShowProgress(float64(i+1) / float64(count))
		}
	}

	log.Printf("capture: %d samples in %s", count, time.Since(start).Round(time.Millisecond))
	return nil
}

func (s *Session) transfer(ctx context.Context) (gyro.Sample, error) {
	done, err := s.Link.Request()
	if err != nil {
		return gyro.Sample{}, fmt.Errorf("sensor request: %w", err)
	}

	var timeout <-chan time.Time
	if s.Timeout > 0 {
		t := time.NewTimer(s.Timeout)
		defer t.Stop()
		timeout = t.C
	}

	select {
	case <-ctx.Done():
		return gyro.Sample{}, ctx.Err()
	case <-timeout:
		return gyro.Sample{}, ErrSensorTimeout
	case r := <-done:
		if r.Err != nil {
			return gyro.Sample{}, fmt.Errorf("sensor transfer: %w", r.Err)
		}
		return r.Sample, nil
	}
}
