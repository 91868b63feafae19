// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package panel holds the physical front panel: confirm inputs and the
// status lamps.
package panel

import (
	"context"
	"time"
)

// Latch collects confirm events from any number of sources and hands them
// to a single waiter. It holds at most one pending event.
type Latch struct {
	events chan time.Time
}

// NewLatch returns an empty latch.
func NewLatch() *Latch {
	return &Latch{events: make(chan time.Time, 1)}
}

// Fire records a confirm at t, replacing any event still pending.
func (l *Latch) Fire(t time.Time) {
	for {
		select {
		case l.events <- t:
			return
		default:
		}
		select {
		case <-l.events:
		default:
		}
	}
}

// AwaitConfirm blocks until a confirm newer than the call arrives. Events
// latched before the wait began are discarded.
func (l *Latch) AwaitConfirm(ctx context.Context) error {
	start := time.Now()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case t := <-l.events:
			if t.Before(start) {
				continue
			}
			return nil
		}
	}
}
