// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package lock

import (
	"fmt"
	"time"

	"github.com/relabs-tech/gesture_lock/internal/gyro"
)

// State is a phase of the authentication cycle.
type State int

const (
	Idle State = iota
	RecordKey
	EnterKey
	Process
	Retry
)

var stateNames = map[State]string{
	Idle:      "idle",
	RecordKey: "record_key",
	EnterKey:  "enter_key",
	Process:   "process",
	Retry:     "retry",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// MarshalText encodes the state by name.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText decodes a state name.
func (s *State) UnmarshalText(b []byte) error {
	for st, name := range stateNames {
		if name == string(b) {
			*s = st
			return nil
		}
	}
	return fmt.Errorf("unknown state %q", string(b))
}

// Thresholds are the per-axis DTW scores of one attempt.
type Thresholds struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Get returns the score for one axis.
func (t Thresholds) Get(a gyro.Axis) float64 {
	switch a {
	case gyro.AxisY:
		return t.Y
	case gyro.AxisZ:
		return t.Z
	default:
		return t.X
	}
}

func (t *Thresholds) set(a gyro.Axis, v float64) {
	switch a {
	case gyro.AxisY:
		t.Y = v
	case gyro.AxisZ:
		t.Z = v
	default:
		t.X = v
	}
}

// Within reports whether every axis is at or below limit. NaN scores fail.
func (t Thresholds) Within(limit float64) bool {
	return t.X <= limit && t.Y <= limit && t.Z <= limit
}

// Decision is the outcome of one Process phase.
type Decision struct {
	At         time.Time  `json:"at"`
	Attempt    int        `json:"attempt"` // attempts since the passkey was recorded
	Thresholds Thresholds `json:"thresholds"`
	Limit      float64    `json:"limit"`
	Unlocked   bool       `json:"unlocked"`
	Error      string     `json:"error,omitempty"`
}

// Indicator identifies one of the two status lamps.
type Indicator int

const (
	IndicatorRecorded Indicator = iota
	IndicatorAttempt
)

func (i Indicator) String() string {
	switch i {
	case IndicatorRecorded:
		return "recorded"
	case IndicatorAttempt:
		return "attempt"
	default:
		return fmt.Sprintf("indicator(%d)", int(i))
	}
}

// Prompts shown at each wait point.
var (
	PromptIdle       = []string{"Press Button", "To Record Gesture :)"}
	PromptRecord     = []string{"Record", "The Pass Key!!!"}
	PromptRecorded   = []string{"Pass Key Recorded...", "Press Button To Insert", "Gesture"}
	PromptEnter      = []string{"Enter", "The Gesture Key!"}
	PromptRegistered = []string{"Attempt Registered", "Press Button To Unlock"}
	PromptRetry      = []string{"Try Again", "Press Button To", "Enter Gesture"}
	PromptFault      = []string{"Sensor Error", "Press Button To Restart"}
)
