// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package capture

import (
	"sync"
	"time"
)

// Ticker is a Timer backed by time.Ticker. time.Ticker already drops ticks
// for slow receivers, which gives the coalescing the session relies on.
type Ticker struct {
	mu     sync.Mutex
	ticker *time.Ticker
}

// NewTicker returns a disarmed Ticker.
func NewTicker() *Ticker {
	return &Ticker{}
}

// Arm starts a fresh ticker. The channel of any previous arming is
// abandoned, so a tick latched before Arm is never observed.
func (t *Ticker) Arm(period time.Duration) <-chan time.Time {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.ticker != nil {
		t.ticker.Stop()
	}
	t.ticker = time.NewTicker(period)
	return t.ticker.C
}

// Disarm stops ticking. It is safe to call when not armed.
func (t *Ticker) Disarm() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.ticker != nil {
		t.ticker.Stop()
		t.ticker = nil
	}
}

// ManualTimer is a Timer driven by explicit Tick calls. It is used for
// simulation and tests where real time would make runs slow or flaky.
type ManualTimer struct {
	mu     sync.Mutex
	ch     chan time.Time
	armed  bool
	period time.Duration
	arms   int
}

// NewManualTimer returns a disarmed ManualTimer.
func NewManualTimer() *ManualTimer {
	return &ManualTimer{ch: make(chan time.Time, 1)}
}

// Arm clears any stale tick and starts accepting Tick calls.
func (m *ManualTimer) Arm(period time.Duration) <-chan time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()

	select {
	case <-m.ch:
	default:
	}
	m.armed = true
	m.period = period
	m.arms++
	return m.ch
}

// Disarm stops accepting ticks.
func (m *ManualTimer) Disarm() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.armed = false
}

// Tick latches one tick if armed. A tick already pending absorbs this one.
// It reports whether the tick was latched.
func (m *ManualTimer) Tick() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.armed {
		return false
	}
	select {
	case m.ch <- time.Now():
		return true
	default:
		return false
	}
}

// Armed reports whether the timer is armed.
func (m *ManualTimer) Armed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.armed
}

// Arms counts how many times Arm was called.
func (m *ManualTimer) Arms() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.arms
}
