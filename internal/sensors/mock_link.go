// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensors

import (
	"math"
	"math/rand"
	"sync"

	"github.com/relabs-tech/gesture_lock/internal/capture"
	"github.com/relabs-tech/gesture_lock/internal/gyro"
)

// MockLink generates a smooth synthetic gesture: three sinusoids over the
// sample index, plus optional uniform noise. Two captures of the same
// length from a fresh or rewound mock are identical when Noise is zero.
type MockLink struct {
	// Period is the number of samples per sinusoid cycle.
	Period int
	// Amplitude in raw codes.
	Amplitude float64
	// Noise is the peak noise in raw codes.
	Noise float64

	mu  sync.Mutex
	n   int
	rng *rand.Rand
}

// NewMockLink returns a mock with a 100-sample cycle and roughly 140 dps
// peak rate on X.
func NewMockLink(seed int64) *MockLink {
	return &MockLink{
		Period:    100,
		Amplitude: 8000,
		rng:       rand.New(rand.NewSource(seed)),
	}
}

// Rewind restarts the waveform.
func (m *MockLink) Rewind() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.n = 0
}

func (m *MockLink) Request() (<-chan capture.Reading, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	period := m.Period
	if period <= 0 {
		period = 100
	}
	phase := 2 * math.Pi * float64(m.n) / float64(period)
	m.n++

	s := gyro.Sample{
		X: m.code(m.Amplitude * math.Sin(phase)),
		Y: m.code(0.75 * m.Amplitude * math.Cos(phase*0.7)),
		Z: m.code(0.5 * m.Amplitude * math.Sin(phase*1.3)),
	}
	return completed(s, nil), nil
}

func (m *MockLink) code(v float64) int16 {
	if m.Noise > 0 && m.rng != nil {
		v += (m.rng.Float64()*2 - 1) * m.Noise
	}
	return int16(math.Max(math.MinInt16, math.Min(math.MaxInt16, math.Round(v))))
}
