// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensors

import (
	"fmt"
	"io"
	"log"
	"sync/atomic"

	serial "github.com/jacobsa/go-serial/serial"

	"github.com/relabs-tech/gesture_lock/internal/capture"
	"github.com/relabs-tech/gesture_lock/internal/gyro"
)

// SerialRequest is the byte that asks the bridge for one sample.
const SerialRequest byte = 'S'

// SerialLink talks to a microcontroller bridge that answers every request
// byte with one six-byte frame.
type SerialLink struct {
	rw     io.ReadWriter
	closer io.Closer
	busy   atomic.Bool
	buf    [FrameSize]byte
}

// OpenSerialLink opens the serial port in blocking 8N1 mode.
func OpenSerialLink(portName string, baud uint) (*SerialLink, error) {
	opts := serial.OpenOptions{
		PortName:              portName,
		BaudRate:              baud,
		DataBits:              8,
		StopBits:              1,
		MinimumReadSize:       1,
		ParityMode:            serial.PARITY_NONE,
		InterCharacterTimeout: 0,
	}

	port, err := serial.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("sensors: open serial %s: %w", portName, err)
	}
	log.Printf("sensors: serial bridge opened on %s at %d baud", opts.PortName, opts.BaudRate)

	l := NewSerialLink(port)
	l.closer = port
	return l, nil
}

// NewSerialLink uses rw as the bridge connection.
func NewSerialLink(rw io.ReadWriter) *SerialLink {
	return &SerialLink{rw: rw}
}

// Request sends one request byte and reads the reply on a goroutine.
func (l *SerialLink) Request() (<-chan capture.Reading, error) {
	if !l.busy.CompareAndSwap(false, true) {
		return nil, ErrBusy
	}
	ch := make(chan capture.Reading, 1)
	go func() {
		s, err := l.exchange()
		l.busy.Store(false)
		ch <- capture.Reading{Sample: s, Err: err}
	}()
	return ch, nil
}

func (l *SerialLink) exchange() (gyro.Sample, error) {
	if _, err := l.rw.Write([]byte{SerialRequest}); err != nil {
		return gyro.Sample{}, fmt.Errorf("sensors: serial write: %w", err)
	}
	if _, err := io.ReadFull(l.rw, l.buf[:]); err != nil {
		return gyro.Sample{}, fmt.Errorf("sensors: serial read: %w", err)
	}
	return DecodeFrame(l.buf[:])
}

// Close closes the port.
func (l *SerialLink) Close() error {
	if l.closer == nil {
		return nil
	}
	return l.closer.Close()
}
