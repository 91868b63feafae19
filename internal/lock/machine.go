// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package lock sequences the gesture unlock cycle:
//
//	Idle -> RecordKey -> EnterKey -> Process -> Idle   (unlocked)
//	                                        \-> Retry -> EnterKey
//
// The machine runs on a single goroutine and only suspends at the capture
// session and at confirm waits.
package lock

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/relabs-tech/gesture_lock/internal/capture"
	"github.com/relabs-tech/gesture_lock/internal/gyro"
)

// DefaultUnlockThreshold is the empirical per-axis score cutoff.
const DefaultUnlockThreshold = 1000.0

// Capturer fills a sequence with count samples.
type Capturer interface {
	Capture(ctx context.Context, seq *gyro.Sequence, count int) error
}

// Scorer compares an attempt against the passkey.
type Scorer interface {
	Score(passkey, attempt *gyro.Sequence) (Thresholds, error)
}

// Input blocks until the user confirms.
type Input interface {
	AwaitConfirm(ctx context.Context) error
}

// Display receives plain status values; layout is its own business.
type Display interface {
	ShowPrompt(lines []string)
	ShowProgress(fraction float64)
	ShowResult(d Decision)
}

// Indicators drives the two status lamps.
type Indicators interface {
	Set(id Indicator, on bool) error
}

// Observer is notified of every transition and decision. Implementations
// must not block for long; they run on the machine goroutine.
type Observer interface {
	OnTransition(from, to State)
	OnDecision(d Decision)
}

// Config holds the tunables of the cycle.
type Config struct {
	BufferSize      int
	UnlockThreshold float64
}

// Deps are the collaborators the machine drives.
type Deps struct {
	Capture    Capturer
	Scorer     Scorer
	Input      Input
	Display    Display
	Indicators Indicators
	Observers  []Observer
}

// Machine is the authentication state machine. It owns the passkey and
// attempt buffers for its whole lifetime.
type Machine struct {
	cfg  Config
	deps Deps

	state    State
	passkey  *gyro.Sequence
	attempt  *gyro.Sequence
	attempts int
}

// New validates cfg and allocates the capture buffers.
func New(cfg Config, deps Deps) (*Machine, error) {
	if cfg.BufferSize <= 0 {
		return nil, fmt.Errorf("lock: buffer size must be positive, got %d", cfg.BufferSize)
	}
	if cfg.UnlockThreshold <= 0 {
		cfg.UnlockThreshold = DefaultUnlockThreshold
	}
	if deps.Capture == nil || deps.Scorer == nil || deps.Input == nil || deps.Display == nil {
		return nil, errors.New("lock: capture, scorer, input and display are required")
	}
	if deps.Indicators == nil {
		deps.Indicators = nopIndicators{}
	}

	return &Machine{
		cfg:     cfg,
		deps:    deps,
		state:   Idle,
		passkey: gyro.NewSequence(cfg.BufferSize),
		attempt: gyro.NewSequence(cfg.BufferSize),
	}, nil
}

// State is the phase the next Step will execute.
func (m *Machine) State() State { return m.state }

// Passkey exposes the recorded passkey. Callers must not modify it.
func (m *Machine) Passkey() *gyro.Sequence { return m.passkey }

// Attempt exposes the last captured attempt. Callers must not modify it.
func (m *Machine) Attempt() *gyro.Sequence { return m.attempt }

// Run cycles forever until ctx is cancelled or an input fails.
func (m *Machine) Run(ctx context.Context) error {
	log.Printf("lock: starting in %s (buffer=%d, threshold=%.1f)", m.state, m.cfg.BufferSize, m.cfg.UnlockThreshold)
	for {
		if _, err := m.Step(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		}
	}
}

// Step executes the current phase to completion and moves to the next one.
func (m *Machine) Step(ctx context.Context) (State, error) {
	from := m.state

	var (
		next State
		err  error
	)
	switch from {
	case Idle:
		next, err = m.idle(ctx)
	case RecordKey:
		next, err = m.capturePhase(ctx, m.passkey, PromptRecord, IndicatorRecorded, PromptRecorded, EnterKey)
		if err == nil && next == EnterKey {
			m.attempts = 0
		}
	case EnterKey:
		next, err = m.capturePhase(ctx, m.attempt, PromptEnter, IndicatorAttempt, PromptRegistered, Process)
	case Process:
		next, err = m.process(ctx)
	case Retry:
		next, err = m.retry(ctx)
	default:
		return from, fmt.Errorf("lock: unknown state %s", from)
	}
	if err != nil {
		return from, err
	}

	m.state = next
	log.Printf("lock: %s -> %s", from, next)
	for _, o := range m.deps.Observers {
		o.OnTransition(from, next)
	}
	return next, nil
}

func (m *Machine) idle(ctx context.Context) (State, error) {
	m.indicate(IndicatorRecorded, false)
	m.indicate(IndicatorAttempt, false)
	m.deps.Display.ShowPrompt(PromptIdle)
	if err := m.deps.Input.AwaitConfirm(ctx); err != nil {
		return Idle, err
	}
	return RecordKey, nil
}

// capturePhase fills seq, lights lamp, shows done and waits for confirm
// before moving to next. A capture fault returns to Idle.
func (m *Machine) capturePhase(ctx context.Context, seq *gyro.Sequence, prompt []string, lamp Indicator, done []string, next State) (State, error) {
	m.deps.Display.ShowPrompt(prompt)
	if err := m.deps.Capture.Capture(ctx, seq, m.cfg.BufferSize); err != nil {
		if ctx.Err() != nil {
			return m.state, ctx.Err()
		}
		return m.fault(ctx, err)
	}

	m.indicate(lamp, true)
	m.deps.Display.ShowPrompt(done)
	if err := m.deps.Input.AwaitConfirm(ctx); err != nil {
		return m.state, err
	}
	return next, nil
}

func (m *Machine) fault(ctx context.Context, cause error) (State, error) {
	if errors.Is(cause, capture.ErrSensorTimeout) {
		log.Printf("lock: sensor timeout during %s, aborting capture", m.state)
	} else {
		log.Printf("lock: capture failed during %s: %v", m.state, cause)
	}
	m.deps.Display.ShowPrompt(PromptFault)
	if err := m.deps.Input.AwaitConfirm(ctx); err != nil {
		return m.state, err
	}
	return Idle, nil
}

func (m *Machine) process(ctx context.Context) (State, error) {
	m.attempts++
	th, err := m.deps.Scorer.Score(m.passkey, m.attempt)

	d := Decision{
		At:         time.Now(),
		Attempt:    m.attempts,
		Thresholds: th,
		Limit:      m.cfg.UnlockThreshold,
		Unlocked:   err == nil && th.Within(m.cfg.UnlockThreshold),
	}
	if err != nil {
		log.Printf("lock: scoring failed: %v", err)
		d.Thresholds = Thresholds{}
		d.Error = err.Error()
	}
	log.Printf("lock: attempt %d thresholds x=%.3f y=%.3f z=%.3f limit=%.1f unlocked=%t",
		d.Attempt, th.X, th.Y, th.Z, d.Limit, d.Unlocked)

	m.deps.Display.ShowResult(d)
	for _, o := range m.deps.Observers {
		o.OnDecision(d)
	}

	if err := m.deps.Input.AwaitConfirm(ctx); err != nil {
		return Process, err
	}
	if d.Unlocked {
		return Idle, nil
	}
	return Retry, nil
}

func (m *Machine) retry(ctx context.Context) (State, error) {
	m.indicate(IndicatorAttempt, false)
	m.deps.Display.ShowPrompt(PromptRetry)
	if err := m.deps.Input.AwaitConfirm(ctx); err != nil {
		return Retry, err
	}
	return EnterKey, nil
}

func (m *Machine) indicate(id Indicator, on bool) {
	if err := m.deps.Indicators.Set(id, on); err != nil {
		log.Printf("lock: indicator %s: %v", id, err)
	}
}

type nopIndicators struct{}

func (nopIndicators) Set(Indicator, bool) error { return nil }
