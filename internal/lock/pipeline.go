// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package lock

import (
	"fmt"

	"github.com/relabs-tech/gesture_lock/internal/conditioner"
	"github.com/relabs-tech/gesture_lock/internal/dtw"
	"github.com/relabs-tech/gesture_lock/internal/gyro"
)

// Pipeline is the default Scorer: it filters both sequences and compares
// them axis by axis. Filter buffers and the cost matrix are reused across
// calls and axes.
type Pipeline struct {
	cond    conditioner.Conditioner
	matcher *dtw.Matcher
	passkey [3][]float64
	attempt [3][]float64
}

// NewPipeline preallocates buffers for sequences of length n.
func NewPipeline(cond conditioner.Conditioner, n int) *Pipeline {
	p := &Pipeline{cond: cond, matcher: dtw.NewMatcher(n)}
	for _, axis := range gyro.Axes {
		p.passkey[axis] = make([]float64, n)
		p.attempt[axis] = make([]float64, n)
	}
	return p
}

// Score returns the DTW threshold of attempt against passkey per axis.
func (p *Pipeline) Score(passkey, attempt *gyro.Sequence) (Thresholds, error) {
	if err := p.cond.FilterSequence(passkey, &p.passkey); err != nil {
		return Thresholds{}, fmt.Errorf("filter passkey: %w", err)
	}
	if err := p.cond.FilterSequence(attempt, &p.attempt); err != nil {
		return Thresholds{}, fmt.Errorf("filter attempt: %w", err)
	}

	var th Thresholds
	for _, axis := range gyro.Axes {
		score, err := p.matcher.Compare(p.passkey[axis], p.attempt[axis])
		if err != nil {
			return Thresholds{}, fmt.Errorf("axis %s: %w", axis, err)
		}
		th.set(axis, score)
	}
	return th, nil
}
