// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package gyro

import (
	"errors"
	"fmt"
)

// ErrIndexOutOfRange is returned when a write would land past the capacity
// of a Sequence.
var ErrIndexOutOfRange = errors.New("gyro: index out of range")

// Axis identifies one of the three gyroscope axes.
type Axis int

const (
	AxisX Axis = iota
	AxisY
	AxisZ
)

// Axes lists the axes in processing order.
var Axes = [3]Axis{AxisX, AxisY, AxisZ}

func (a Axis) String() string {
	switch a {
	case AxisX:
		return "x"
	case AxisY:
		return "y"
	case AxisZ:
		return "z"
	default:
		return fmt.Sprintf("axis(%d)", int(a))
	}
}

// Sample is one raw angular-rate reading, in sensor digits.
type Sample struct {
	X int16 `json:"x" yaml:"x"`
	Y int16 `json:"y" yaml:"y"`
	Z int16 `json:"z" yaml:"z"`
}

// Get returns the reading for one axis.
func (s Sample) Get(a Axis) int16 {
	switch a {
	case AxisY:
		return s.Y
	case AxisZ:
		return s.Z
	default:
		return s.X
	}
}

// Sequence holds fixed-capacity raw buffers, one per axis. The buffers are
// allocated once and overwritten by every capture.
type Sequence struct {
	axes [3][]int16
	n    int
}

// NewSequence allocates a sequence able to hold capacity samples per axis.
func NewSequence(capacity int) *Sequence {
	s := &Sequence{}
	for i := range s.axes {
		s.axes[i] = make([]int16, capacity)
	}
	return s
}

// Cap is the per-axis capacity.
func (s *Sequence) Cap() int { return len(s.axes[AxisX]) }

// Len is the number of samples written since the last Reset.
func (s *Sequence) Len() int { return s.n }

// Reset marks the sequence empty without releasing storage.
func (s *Sequence) Reset() { s.n = 0 }

// Set stores sample at index i. Writes must be contiguous from zero; Len
// grows to i+1.
func (s *Sequence) Set(i int, sample Sample) error {
	if i < 0 || i >= s.Cap() {
		return fmt.Errorf("%w: %d (capacity %d)", ErrIndexOutOfRange, i, s.Cap())
	}
	s.axes[AxisX][i] = sample.X
	s.axes[AxisY][i] = sample.Y
	s.axes[AxisZ][i] = sample.Z
	if i+1 > s.n {
		s.n = i + 1
	}
	return nil
}

// At returns the sample stored at index i.
func (s *Sequence) At(i int) Sample {
	return Sample{X: s.axes[AxisX][i], Y: s.axes[AxisY][i], Z: s.axes[AxisZ][i]}
}

// Axis returns the written prefix of one axis buffer. The slice aliases the
// sequence storage and must be treated as read-only.
func (s *Sequence) Axis(a Axis) []int16 {
	return s.axes[a][:s.n]
}

// CopyFrom overwrites s with the contents of src.
func (s *Sequence) CopyFrom(src *Sequence) error {
	if src.Len() > s.Cap() {
		return fmt.Errorf("%w: source holds %d samples (capacity %d)", ErrIndexOutOfRange, src.Len(), s.Cap())
	}
	for i := range s.axes {
		copy(s.axes[i], src.axes[i][:src.n])
	}
	s.n = src.n
	return nil
}
