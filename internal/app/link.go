// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"fmt"
	"io"
	"log"
	"time"

	"github.com/relabs-tech/gesture_lock/internal/capture"
	"github.com/relabs-tech/gesture_lock/internal/config"
	"github.com/relabs-tech/gesture_lock/internal/lock"
	"github.com/relabs-tech/gesture_lock/internal/sensors"
)

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

var nopCloser = closerFunc(func() error { return nil })

// openLink builds the sensor link named by SENSOR_LINK.
func openLink(cfg *config.Config) (capture.Link, io.Closer, error) {
	switch cfg.SensorLink {
	case config.LinkSPI:
		l, err := sensors.OpenSPILink(cfg.GyroSPIDevice, cfg.GyroSPISpeedHz)
		if err != nil {
			return nil, nil, err
		}
		return l, l, nil
	case config.LinkSerial:
		l, err := sensors.OpenSerialLink(cfg.SerialPort, cfg.SerialBaudRate)
		if err != nil {
			return nil, nil, err
		}
		return l, l, nil
	case config.LinkReplay:
		l, err := sensors.OpenReplayLink(cfg.ReplayFile)
		if err != nil {
			return nil, nil, err
		}
		log.Printf("sensors: replaying %s", cfg.ReplayFile)
		return l, nopCloser, nil
	case config.LinkMock:
		log.Println("sensors: using mock gyroscope")
		return sensors.NewMockLink(time.Now().UnixNano()), nopCloser, nil
	default:
		return nil, nil, fmt.Errorf("unknown sensor link %q", cfg.SensorLink)
	}
}

type rewinder interface {
	Rewind()
}

// rewindOnCapture restarts a simulated link before every capture phase so
// the passkey and the attempt see the same gesture.
type rewindOnCapture struct {
	link rewinder
}

func (r rewindOnCapture) OnTransition(_, to lock.State) {
	if to == lock.RecordKey || to == lock.EnterKey {
		r.link.Rewind()
	}
}

func (rewindOnCapture) OnDecision(lock.Decision) {}

func newSession(cfg *config.Config, link capture.Link, progress capture.Progress) *capture.Session {
	return &capture.Session{
		Link:     link,
		Timer:    capture.NewTicker(),
		Progress: progress,
		Period:   cfg.SamplePeriod(),
		Timeout:  cfg.SensorTimeout(),
	}
}
