// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package gyro

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Recording is a captured gesture as stored on disk.
type Recording struct {
	Name         string    `yaml:"name"`
	RecordedAt   time.Time `yaml:"recorded_at"`
	SamplePeriod int       `yaml:"sample_period_ms"`
	DPSPerDigit  float64   `yaml:"dps_per_digit"`
	X            []int16   `yaml:"x,flow"`
	Y            []int16   `yaml:"y,flow"`
	Z            []int16   `yaml:"z,flow"`
}

// NewRecording snapshots the written prefix of seq.
func NewRecording(name string, seq *Sequence, samplePeriodMS int, dpsPerDigit float64) Recording {
	return Recording{
		Name:         name,
		RecordedAt:   time.Now().UTC(),
		SamplePeriod: samplePeriodMS,
		DPSPerDigit:  dpsPerDigit,
		X:            append([]int16(nil), seq.Axis(AxisX)...),
		Y:            append([]int16(nil), seq.Axis(AxisY)...),
		Z:            append([]int16(nil), seq.Axis(AxisZ)...),
	}
}

// Len is the number of samples in the recording.
func (r Recording) Len() int { return len(r.X) }

// Sample returns the i-th sample.
func (r Recording) Sample(i int) Sample {
	return Sample{X: r.X[i], Y: r.Y[i], Z: r.Z[i]}
}

func (r Recording) validate() error {
	if len(r.X) == 0 {
		return errors.New("recording has no samples")
	}
	if len(r.Y) != len(r.X) || len(r.Z) != len(r.X) {
		return fmt.Errorf("axis length mismatch: x=%d y=%d z=%d", len(r.X), len(r.Y), len(r.Z))
	}
	return nil
}

// Sequence copies the recording into a new Sequence of matching capacity.
func (r Recording) Sequence() *Sequence {
	seq := NewSequence(r.Len())
	for i := 0; i < r.Len(); i++ {
		_ = seq.Set(i, r.Sample(i))
	}
	return seq
}

// LoadRecording reads a YAML recording from path.
func LoadRecording(path string) (Recording, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Recording{}, fmt.Errorf("failed to read recording: %w", err)
	}

	var rec Recording
	if err := yaml.Unmarshal(data, &rec); err != nil {
		return Recording{}, fmt.Errorf("failed to parse recording %s: %w", path, err)
	}
	if err := rec.validate(); err != nil {
		return Recording{}, fmt.Errorf("invalid recording %s: %w", path, err)
	}
	return rec, nil
}

// SaveRecording writes rec to path as YAML.
func SaveRecording(path string, rec Recording) error {
	if err := rec.validate(); err != nil {
		return fmt.Errorf("invalid recording: %w", err)
	}
	data, err := yaml.Marshal(&rec)
	if err != nil {
		return fmt.Errorf("failed to encode recording: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write recording: %w", err)
	}
	return nil
}
