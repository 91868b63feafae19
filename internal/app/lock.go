// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/relabs-tech/gesture_lock/internal/audit"
	"github.com/relabs-tech/gesture_lock/internal/conditioner"
	"github.com/relabs-tech/gesture_lock/internal/config"
	"github.com/relabs-tech/gesture_lock/internal/display"
	"github.com/relabs-tech/gesture_lock/internal/lock"
	"github.com/relabs-tech/gesture_lock/internal/panel"
	"github.com/relabs-tech/gesture_lock/internal/telemetry"
)

// RunLock runs the unlock cycle until SIGINT/SIGTERM or ESC on the terminal
// display.
func RunLock() error {
	cfg := config.Get()
	if cfg == nil {
		return errors.New("config not initialized")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return runLock(ctx, cfg, os.Stdin)
}

// resources closes everything opened during startup in reverse order.
type resources []io.Closer

func (r *resources) add(c io.Closer) { *r = append(*r, c) }

func (r resources) closeAll() {
	for i := len(r) - 1; i >= 0; i-- {
		if err := r[i].Close(); err != nil {
			log.Printf("shutdown: %v", err)
		}
	}
}

// lockStack is everything the machine drives, assembled from config.
type lockStack struct {
	deps    lock.Deps
	hub     *telemetry.Hub
	metrics *telemetry.Metrics
	history telemetry.History
	term    *display.Terminal
}

func runLock(ctx context.Context, cfg *config.Config, stdin io.Reader) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var res resources
	defer res.closeAll()

	st, err := buildLockStack(cfg, stdin, cancel, &res)
	if err != nil {
		return err
	}

	m, err := lock.New(lock.Config{
		BufferSize:      cfg.BufferSize,
		UnlockThreshold: cfg.UnlockThreshold,
	}, st.deps)
	if err != nil {
		return err
	}

	if st.term != nil {
		go st.term.Run(ctx)
	}

	webErr := make(chan error, 1)
	if cfg.WebServerPort != 0 {
		router := telemetry.NewRouter(st.hub, st.metrics, st.history)
		go func() {
			webErr <- telemetry.Serve(ctx, fmt.Sprintf(":%d", cfg.WebServerPort), router)
		}()
	}

	runErr := make(chan error, 1)
	go func() { runErr <- m.Run(ctx) }()

	select {
	case err = <-runErr:
	case err = <-webErr:
		// the server only returns early on a listen failure
		cancel()
		if runErrAfter := <-runErr; err == nil {
			err = runErrAfter
		}
	}

	if errors.Is(err, context.Canceled) {
		log.Println("lock: shutting down")
		return nil
	}
	return err
}

func buildLockStack(cfg *config.Config, stdin io.Reader, quit func(), res *resources) (*lockStack, error) {
	link, linkCloser, err := openLink(cfg)
	if err != nil {
		return nil, err
	}
	res.add(linkCloser)

	cond, err := conditioner.New(cfg.FilterCoefficient, cfg.DPSPerDigit)
	if err != nil {
		return nil, err
	}

	st := &lockStack{
		hub:     telemetry.NewHub(),
		metrics: telemetry.NewMetrics(),
	}
	observers := []lock.Observer{st.metrics, st.hub}
	if r, ok := link.(rewinder); ok {
		observers = append(observers, rewindOnCapture{link: r})
	}

	latch := panel.NewLatch()
	if cfg.ButtonPin != "" {
		b, err := panel.OpenButton(cfg.ButtonPin, cfg.ButtonDebounce(), latch)
		if err != nil {
			return nil, err
		}
		res.add(b)
	}

	var displays display.Multi
	for _, kind := range cfg.Displays {
		switch kind {
		case config.DisplayLog:
			displays = append(displays, &display.Log{})
		case config.DisplayOLED:
			o, err := display.OpenOLED(cfg.OLEDI2CBus)
			if err != nil {
				return nil, err
			}
			res.add(o)
			displays = append(displays, o)
		case config.DisplayTerminal:
			t, err := display.NewTerminal(nil)
			if err != nil {
				return nil, err
			}
			t.OnConfirm = func() { latch.Fire(time.Now()) }
			t.OnQuit = quit
			res.add(closerFunc(func() error { t.Close(); return nil }))
			st.term = t
			displays = append(displays, t)
		}
	}
	// tcell owns stdin while the terminal display is up
	if st.term == nil && stdin != nil {
		panel.WatchLines(stdin, latch)
	}

	var indicators lock.Indicators = panel.LogIndicators{}
	if cfg.LEDRecordedPin != "" {
		leds, err := panel.OpenLEDs(cfg.LEDRecordedPin, cfg.LEDAttemptPin)
		if err != nil {
			return nil, err
		}
		indicators = leds
	}

	if cfg.MQTTBroker != "" {
		client, err := telemetry.ConnectMQTT(cfg.MQTTBroker, cfg.MQTTClientID, cfg.TopicState)
		if err != nil {
			return nil, err
		}
		res.add(closerFunc(func() error { client.Disconnect(250); return nil }))
		pub := telemetry.NewMQTT(client, telemetry.Topics{
			State:    cfg.TopicState,
			Decision: cfg.TopicDecision,
			Prompt:   cfg.TopicPrompt,
		})
		observers = append(observers, pub)
		displays = append(displays, pub)
	}

	if cfg.AuditDBPath != "" {
		store, err := audit.Open(cfg.AuditDBPath)
		if err != nil {
			return nil, err
		}
		res.add(store)
		observers = append(observers, store)
		st.history = store
	}

	st.deps = lock.Deps{
		Capture:    newSession(cfg, link, displays),
		Scorer:     lock.NewPipeline(cond, cfg.BufferSize),
		Input:      latch,
		Display:    displays,
		Indicators: indicators,
		Observers:  observers,
	}
	return st, nil
}
