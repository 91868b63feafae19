// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package conditioner turns raw gyroscope digits into smoothed angular
// velocity (degrees per second).
package conditioner

import (
	"errors"
	"fmt"

	"github.com/relabs-tech/gesture_lock/internal/gyro"
)

const (
	// DefaultDPSPerDigit is the L3GD20 sensitivity at the ±500 °/s range.
	DefaultDPSPerDigit = 17.5 / 1000.0
	// DefaultCoefficient weights the newest sample in the low-pass filter.
	DefaultCoefficient = 0.1
)

var (
	ErrShortBuffer        = errors.New("conditioner: output buffer shorter than input")
	ErrInvalidCoefficient = errors.New("conditioner: filter coefficient must be in (0, 1]")
)

// Convert maps a signed 16-bit sensor code to degrees per second.
func Convert(raw int16, dpsPerDigit float64) float64 {
	return float64(raw) * dpsPerDigit
}

// ConvertCode decodes a register-level code. Codes with the sign bit set are
// two's complement: invert, add one, scale and negate.
func ConvertCode(code uint16, dpsPerDigit float64) float64 {
	if code&0x8000 == 0x8000 {
		magnitude := uint32(code^0xFFFF) + 1
		return -float64(magnitude) * dpsPerDigit
	}
	return float64(code) * dpsPerDigit
}

// Conditioner applies a first-order IIR low-pass filter to converted
// samples:
//
//	out[0] = c*convert(raw[0])
//	out[i] = c*convert(raw[i]) + (1-c)*out[i-1]
type Conditioner struct {
	Coefficient float64
	DPSPerDigit float64
}

// New returns a Conditioner after validating the coefficient.
func New(coefficient, dpsPerDigit float64) (Conditioner, error) {
	c := Conditioner{Coefficient: coefficient, DPSPerDigit: dpsPerDigit}
	if err := c.validate(); err != nil {
		return Conditioner{}, err
	}
	return c, nil
}

// Default returns the conditioner used by the firmware defaults.
func Default() Conditioner {
	return Conditioner{Coefficient: DefaultCoefficient, DPSPerDigit: DefaultDPSPerDigit}
}

func (c Conditioner) validate() error {
	if !(c.Coefficient > 0 && c.Coefficient <= 1) {
		return fmt.Errorf("%w: got %v", ErrInvalidCoefficient, c.Coefficient)
	}
	return nil
}

// Filter writes the filtered values of raw into out[:len(raw)]. Each value
// depends on the whole prefix, so the pass is strictly sequential.
func (c Conditioner) Filter(raw []int16, out []float64) error {
	if err := c.validate(); err != nil {
		return err
	}
	if len(out) < len(raw) {
		return fmt.Errorf("%w: %d < %d", ErrShortBuffer, len(out), len(raw))
	}
	if len(raw) == 0 {
		return nil
	}

	keep := 1 - c.Coefficient
	out[0] = c.Coefficient * Convert(raw[0], c.DPSPerDigit)
	for i := 1; i < len(raw); i++ {
		out[i] = c.Coefficient*Convert(raw[i], c.DPSPerDigit) + keep*out[i-1]
	}
	return nil
}

// FilterSequence filters the three axes of seq into out, growing out's
// buffers only when they are too small. The returned slices are trimmed to
// seq.Len().
func (c Conditioner) FilterSequence(seq *gyro.Sequence, out *[3][]float64) error {
	n := seq.Len()
	for _, axis := range gyro.Axes {
		if cap(out[axis]) < n {
			out[axis] = make([]float64, n)
		}
		out[axis] = out[axis][:n]
		if err := c.Filter(seq.Axis(axis), out[axis]); err != nil {
			return fmt.Errorf("axis %s: %w", axis, err)
		}
	}
	return nil
}
