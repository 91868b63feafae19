// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensors

import (
	"errors"
	"sync"

	"github.com/relabs-tech/gesture_lock/internal/capture"
	"github.com/relabs-tech/gesture_lock/internal/gyro"
)

// ReplayLink plays a recording back one sample per request, wrapping
// around at the end.
type ReplayLink struct {
	mu  sync.Mutex
	rec gyro.Recording
	pos int
}

// NewReplayLink replays rec.
func NewReplayLink(rec gyro.Recording) (*ReplayLink, error) {
	if rec.Len() == 0 {
		return nil, errors.New("sensors: empty recording")
	}
	return &ReplayLink{rec: rec}, nil
}

// OpenReplayLink loads a YAML recording from path.
func OpenReplayLink(path string) (*ReplayLink, error) {
	rec, err := gyro.LoadRecording(path)
	if err != nil {
		return nil, err
	}
	return NewReplayLink(rec)
}

// Rewind restarts playback from the first sample.
func (l *ReplayLink) Rewind() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.pos = 0
}

func (l *ReplayLink) Request() (<-chan capture.Reading, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	s := l.rec.Sample(l.pos)
	l.pos = (l.pos + 1) % l.rec.Len()
	return completed(s, nil), nil
}
