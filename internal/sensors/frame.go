// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package sensors implements the gyroscope links the capture session reads
// from: an L3GD20 on SPI, a serial bridge, YAML replays and a synthetic mock.
package sensors

import (
	"errors"
	"fmt"

	"github.com/relabs-tech/gesture_lock/internal/capture"
	"github.com/relabs-tech/gesture_lock/internal/gyro"
)

var (
	// ErrBusy is returned by Request while a transfer is still in flight.
	ErrBusy = errors.New("sensors: transfer already in flight")
	// ErrShortFrame is returned when fewer than six data bytes arrive.
	ErrShortFrame = errors.New("sensors: short frame")
)

// FrameSize is the number of data bytes carrying one sample: X, Y and Z as
// little-endian 16-bit pairs.
const FrameSize = 6

// DecodeFrame decodes X_L X_H Y_L Y_H Z_L Z_H into a sample.
func DecodeFrame(b []byte) (gyro.Sample, error) {
	if len(b) < FrameSize {
		return gyro.Sample{}, fmt.Errorf("%w: %d bytes", ErrShortFrame, len(b))
	}
	return gyro.Sample{
		X: int16(uint16(b[1])<<8 | uint16(b[0])),
		Y: int16(uint16(b[3])<<8 | uint16(b[2])),
		Z: int16(uint16(b[5])<<8 | uint16(b[4])),
	}, nil
}

// EncodeFrame is the inverse of DecodeFrame.
func EncodeFrame(s gyro.Sample) []byte {
	b := make([]byte, FrameSize)
	for i, axis := range gyro.Axes {
		v := uint16(s.Get(axis))
		b[2*i] = byte(v)
		b[2*i+1] = byte(v >> 8)
	}
	return b
}

// completed wraps a finished transfer in the one-shot channel Link.Request
// hands out.
func completed(s gyro.Sample, err error) <-chan capture.Reading {
	ch := make(chan capture.Reading, 1)
	ch <- capture.Reading{Sample: s, Err: err}
	return ch
}
