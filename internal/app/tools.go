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

	"github.com/relabs-tech/gesture_lock/internal/conditioner"
	"github.com/relabs-tech/gesture_lock/internal/config"
	"github.com/relabs-tech/gesture_lock/internal/display"
	"github.com/relabs-tech/gesture_lock/internal/gyro"
	"github.com/relabs-tech/gesture_lock/internal/lock"
	"github.com/relabs-tech/gesture_lock/internal/panel"
	"github.com/relabs-tech/gesture_lock/internal/sensors"
)

// RunRecord captures one gesture of BUFFER_SIZE samples after ENTER (or the
// button) and writes it to out as YAML.
func RunRecord(name, out string) error {
	cfg := config.Get()
	if cfg == nil {
		return errors.New("config not initialized")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rec, err := recordGesture(ctx, cfg, name, os.Stdin)
	if err != nil {
		return err
	}
	if err := gyro.SaveRecording(out, rec); err != nil {
		return err
	}
	log.Printf("record: %d samples written to %s", rec.Len(), out)
	return nil
}

func recordGesture(ctx context.Context, cfg *config.Config, name string, stdin io.Reader) (gyro.Recording, error) {
	link, closer, err := openLink(cfg)
	if err != nil {
		return gyro.Recording{}, err
	}
	defer closer.Close()

	latch := panel.NewLatch()
	if cfg.ButtonPin != "" {
		b, err := panel.OpenButton(cfg.ButtonPin, cfg.ButtonDebounce(), latch)
		if err != nil {
			return gyro.Recording{}, err
		}
		defer b.Close()
	}
	panel.WatchLines(stdin, latch)

	out := &display.Log{}
	out.ShowPrompt([]string{"Press ENTER or the button", "to record " + name})
	if err := latch.AwaitConfirm(ctx); err != nil {
		return gyro.Recording{}, err
	}

	out.ShowPrompt(lock.PromptRecord)
	seq := gyro.NewSequence(cfg.BufferSize)
	if err := newSession(cfg, link, out).Capture(ctx, seq, cfg.BufferSize); err != nil {
		return gyro.Recording{}, err
	}
	return gyro.NewRecording(name, seq, cfg.SamplePeriodMS, cfg.DPSPerDigit), nil
}

// RunScore compares two recorded gestures offline and prints the per-axis
// thresholds and the verdict.
func RunScore(passkeyPath, attemptPath string) error {
	cfg := config.Get()
	if cfg == nil {
		return errors.New("config not initialized")
	}

	passkey, err := gyro.LoadRecording(passkeyPath)
	if err != nil {
		return err
	}
	attempt, err := gyro.LoadRecording(attemptPath)
	if err != nil {
		return err
	}

	d, err := scoreRecordings(cfg, passkey, attempt)
	if err != nil {
		return err
	}
	for _, line := range display.ResultLines(d) {
		fmt.Println(line)
	}
	return nil
}

// scoreRecordings runs the unlock pipeline over two recordings. The
// conversion factor of the passkey recording wins over the config.
func scoreRecordings(cfg *config.Config, passkey, attempt gyro.Recording) (lock.Decision, error) {
	if passkey.Len() != attempt.Len() {
		return lock.Decision{}, fmt.Errorf("score: passkey has %d samples, attempt has %d", passkey.Len(), attempt.Len())
	}
	dps := cfg.DPSPerDigit
	if passkey.DPSPerDigit > 0 {
		dps = passkey.DPSPerDigit
	}
	cond, err := conditioner.New(cfg.FilterCoefficient, dps)
	if err != nil {
		return lock.Decision{}, err
	}

	th, err := lock.NewPipeline(cond, passkey.Len()).Score(passkey.Sequence(), attempt.Sequence())
	if err != nil {
		return lock.Decision{}, fmt.Errorf("score: %w", err)
	}
	return lock.Decision{
		At:         attempt.RecordedAt,
		Attempt:    1,
		Thresholds: th,
		Limit:      cfg.UnlockThreshold,
		Unlocked:   th.Within(cfg.UnlockThreshold),
	}, nil
}

// RunRegisters dumps the gyroscope register map over SPI.
func RunRegisters(w io.Writer) error {
	cfg := config.Get()
	if cfg == nil {
		return errors.New("config not initialized")
	}

	l, err := sensors.OpenSPILink(cfg.GyroSPIDevice, cfg.GyroSPISpeedHz)
	if err != nil {
		return err
	}
	defer l.Close()

	fmt.Fprintf(w, "L3GD20 registers on %s\n", cfg.GyroSPIDevice)
	return sensors.DumpRegisters(l, w)
}
