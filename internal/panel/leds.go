// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package panel

import (
	"fmt"
	"log"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"

	"github.com/relabs-tech/gesture_lock/internal/lock"
)

type outPin interface {
	Out(l gpio.Level) error
}

// LEDs drives the recorded (green) and attempt (red) lamps.
type LEDs struct {
	pins map[lock.Indicator]outPin
}

// OpenLEDs configures both pins as outputs, initially off.
func OpenLEDs(recordedPin, attemptPin string) (*LEDs, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("panel: periph host init: %w", err)
	}
	pins := map[lock.Indicator]outPin{}
	for id, name := range map[lock.Indicator]string{
		lock.IndicatorRecorded: recordedPin,
		lock.IndicatorAttempt:  attemptPin,
	} {
		p := gpioreg.ByName(name)
		if p == nil {
			return nil, fmt.Errorf("panel: %s LED pin %q not found", id, name)
		}
		pins[id] = p
	}
	l := &LEDs{pins: pins}
	for id := range pins {
		if err := l.Set(id, false); err != nil {
			return nil, err
		}
	}
	log.Printf("panel: LEDs recorded=%s attempt=%s", recordedPin, attemptPin)
	return l, nil
}

// Set switches one lamp.
func (l *LEDs) Set(id lock.Indicator, on bool) error {
	p, ok := l.pins[id]
	if !ok {
		return fmt.Errorf("panel: no LED for %s", id)
	}
	if err := p.Out(gpio.Level(on)); err != nil {
		return fmt.Errorf("panel: %s LED: %w", id, err)
	}
	return nil
}

// LogIndicators reports lamp changes in the log. Used when no LEDs are
// wired.
type LogIndicators struct{}

func (LogIndicators) Set(id lock.Indicator, on bool) error {
	state := "off"
	if on {
		state = "on"
	}
	log.Printf("panel: %s lamp %s", id, state)
	return nil
}
