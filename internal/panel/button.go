// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package panel

import (
	"fmt"
	"log"
	"time"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"
)

// edgePin is the part of gpio.PinIn the button uses.
type edgePin interface {
	WaitForEdge(timeout time.Duration) bool
	Halt() error
}

// Button watches a push-button wired to pull the pin high and fires the
// latch on every debounced rising edge.
type Button struct {
	pin      edgePin
	debounce time.Duration
	latch    *Latch
	done     chan struct{}
}

// OpenButton configures pinName as a pulled-down input with rising edge
// detection and starts watching it.
func OpenButton(pinName string, debounce time.Duration, latch *Latch) (*Button, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("panel: periph host init: %w", err)
	}
	pin := gpioreg.ByName(pinName)
	if pin == nil {
		return nil, fmt.Errorf("panel: button pin %q not found", pinName)
	}
	if err := pin.In(gpio.PullDown, gpio.RisingEdge); err != nil {
		return nil, fmt.Errorf("panel: configure button pin %s: %w", pinName, err)
	}
	log.Printf("panel: button on %s (debounce %s)", pin, debounce)
	return watchButton(pin, debounce, latch), nil
}

func watchButton(pin edgePin, debounce time.Duration, latch *Latch) *Button {
	b := &Button{pin: pin, debounce: debounce, latch: latch, done: make(chan struct{})}
	go b.loop()
	return b
}

func (b *Button) loop() {
	defer close(b.done)
	var last time.Time
	for {
		if !b.pin.WaitForEdge(-1) {
			return
		}
		now := time.Now()
		if !last.IsZero() && now.Sub(last) < b.debounce {
			continue
		}
		last = now
		b.latch.Fire(now)
	}
}

// Close halts edge detection and waits for the watcher to exit.
func (b *Button) Close() error {
	err := b.pin.Halt()
	<-b.done
	return err
}
