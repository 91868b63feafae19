// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensors

import (
	"fmt"
	"log"
	"sync"
	"sync/atomic"

	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/host/v3"

	"github.com/relabs-tech/gesture_lock/internal/capture"
	"github.com/relabs-tech/gesture_lock/internal/gyro"
)

// Transactor is the part of spi.Conn the link uses.
type Transactor interface {
	Tx(w, r []byte) error
}

// SPILink reads an L3GD20 gyroscope over SPI. Each Request runs one burst
// read of the output registers on its own goroutine.
type SPILink struct {
	mu   sync.Mutex // serialises bus transactions
	c    Transactor
	port spi.PortCloser
	busy atomic.Bool

	w, r [1 + FrameSize]byte
}

// OpenSPILink opens dev (e.g. "/dev/spidev0.0"), connects in mode 3 and
// configures the gyroscope.
func OpenSPILink(dev string, speedHz int64) (*SPILink, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("sensors: periph host init: %w", err)
	}

	port, err := spireg.Open(dev)
	if err != nil {
		return nil, fmt.Errorf("sensors: open SPI %s: %w", dev, err)
	}

	c, err := port.Connect(physic.Frequency(speedHz)*physic.Hertz, spi.Mode3, 8)
	if err != nil {
		port.Close()
		return nil, fmt.Errorf("sensors: connect SPI %s: %w", dev, err)
	}

	l := NewSPILink(c)
	l.port = port
	if err := l.Configure(); err != nil {
		port.Close()
		return nil, err
	}
	log.Printf("sensors: L3GD20 on %s at %d Hz", dev, speedHz)
	return l, nil
}

// NewSPILink wraps an already connected bus.
func NewSPILink(c Transactor) *SPILink {
	return &SPILink{c: c}
}

// Configure checks the device identity and writes the power-up control
// registers.
func (l *SPILink) Configure() error {
	id, err := l.ReadRegister(RegWhoAmI)
	if err != nil {
		return fmt.Errorf("sensors: read WHO_AM_I: %w", err)
	}
	if part, ok := whoAmIValues[id]; ok {
		log.Printf("sensors: WHO_AM_I = 0x%02X (%s)", id, part)
	} else {
		log.Printf("sensors: WARNING: unexpected WHO_AM_I 0x%02X", id)
	}

	for _, w := range []struct {
		reg, val byte
	}{
		{RegCtrl1, ctrl1Value},
		{RegCtrl4, ctrl4Value},
		{RegCtrl3, ctrl3Value},
	} {
		if err := l.WriteRegister(w.reg, w.val); err != nil {
			return fmt.Errorf("sensors: write 0x%02X: %w", w.reg, err)
		}
	}
	return nil
}

// ReadRegister reads one register.
func (l *SPILink) ReadRegister(addr byte) (byte, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	w := []byte{addr | spiRead, 0}
	r := make([]byte, 2)
	if err := l.c.Tx(w, r); err != nil {
		return 0, err
	}
	return r[1], nil
}

// WriteRegister writes one register.
func (l *SPILink) WriteRegister(addr, v byte) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.c.Tx([]byte{addr &^ (spiRead | spiAutoInc), v}, make([]byte, 2))
}

// Request starts a burst read of OUT_X_L..OUT_Z_H.
func (l *SPILink) Request() (<-chan capture.Reading, error) {
	if !l.busy.CompareAndSwap(false, true) {
		return nil, ErrBusy
	}
	ch := make(chan capture.Reading, 1)
	go func() {
		s, err := l.readSample()
		l.busy.Store(false)
		ch <- capture.Reading{Sample: s, Err: err}
	}()
	return ch, nil
}

func (l *SPILink) readSample() (gyro.Sample, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.w[0] = RegOutXL | spiRead | spiAutoInc
	if err := l.c.Tx(l.w[:], l.r[:]); err != nil {
		return gyro.Sample{}, fmt.Errorf("sensors: burst read: %w", err)
	}
	return DecodeFrame(l.r[1:])
}

// Close releases the SPI port.
func (l *SPILink) Close() error {
	if l.port == nil {
		return nil
	}
	return l.port.Close()
}
