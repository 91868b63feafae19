// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package dtw scores how closely two equal-length sequences match using a
// Dynamic Time Warping cost matrix.
//
// The score is derived with a greedy backtrack from the last cell: at each
// step it moves to the cheapest of the diagonal, up and left neighbours.
// That walk always reaches a border but is not guaranteed to follow the
// optimal warping path recorded by the forward pass. The behaviour is kept
// as is so thresholds tuned against it stay valid.
package dtw

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

var (
	ErrLengthMismatch = errors.New("dtw: sequences differ in length")
	ErrEmptySequence  = errors.New("dtw: empty sequence")
)

// Step is a move in the cost matrix, listed in tie-break priority order.
type Step int

const (
	StepDiagonal Step = iota
	StepUp
	StepLeft
)

// Cell addresses one entry of the cost matrix.
type Cell struct {
	Row, Col int
}

// Matcher owns the cost matrix storage so repeated comparisons of the same
// length do not allocate. A Matcher is not safe for concurrent use.
type Matcher struct {
	cost *mat.Dense
	n    int
	path []float64
}

// NewMatcher preallocates storage for sequences of length n.
func NewMatcher(n int) *Matcher {
	m := &Matcher{}
	if n > 0 {
		m.resize(n)
	}
	return m
}

func (m *Matcher) resize(n int) {
	if m.n == n {
		return
	}
	m.cost = mat.NewDense(n, n, nil)
	m.n = n
	m.path = make([]float64, 0, 2*n)
}

// cheapest returns the smallest of the three candidates and which one won.
// Ties resolve diagonal first, then up, then left.
func cheapest(diag, up, left float64) (float64, Step) {
	best, step := diag, StepDiagonal
	if up < best {
		best, step = up, StepUp
	}
	if left < best {
		best, step = left, StepLeft
	}
	return best, step
}

// BuildCostMatrix fills the cost matrix for a against b. The returned matrix
// aliases the Matcher's storage and is overwritten by the next call.
func (m *Matcher) BuildCostMatrix(a, b []float64) (*mat.Dense, error) {
	if len(a) != len(b) {
		return nil, fmt.Errorf("%w: %d != %d", ErrLengthMismatch, len(a), len(b))
	}
	if len(a) == 0 {
		return nil, ErrEmptySequence
	}
	n := len(a)
	m.resize(n)
	c := m.cost

	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			d := math.Abs(a[i] - b[j])
			switch {
			case i == 0 && j == 0:
				c.Set(i, j, d)
			case i == 0:
				c.Set(i, j, d+c.At(i, j-1))
			case j == 0:
				c.Set(i, j, d+c.At(i-1, j))
			default:
				best, _ := cheapest(c.At(i-1, j-1), c.At(i-1, j), c.At(i, j-1))
				c.Set(i, j, d+best)
			}
		}
	}
	return c, nil
}

// Backtrack walks the cost matrix greedily from the bottom-right corner
// until row or column zero is reached and returns the visited cells,
// endpoints included.
func Backtrack(cost mat.Matrix) []Cell {
	r, c := cost.Dims()
	r, c = r-1, c-1
	cells := []Cell{{r, c}}
	for r > 0 && c > 0 {
		_, step := cheapest(cost.At(r-1, c-1), cost.At(r-1, c), cost.At(r, c-1))
		switch step {
		case StepDiagonal:
			r, c = r-1, c-1
		case StepUp:
			r--
		case StepLeft:
			c--
		}
		cells = append(cells, Cell{r, c})
	}
	return cells
}

// Score is the mean accumulated cost of the cells visited by Backtrack.
func Score(cost mat.Matrix) float64 {
	cells := Backtrack(cost)
	sum := 0.0
	for _, cell := range cells {
		sum += cost.At(cell.Row, cell.Col)
	}
	return sum / float64(len(cells))
}

// Compare builds the cost matrix for a against b and returns its score.
func (m *Matcher) Compare(a, b []float64) (float64, error) {
	cost, err := m.BuildCostMatrix(a, b)
	if err != nil {
		return 0, err
	}

	m.path = m.path[:0]
	for _, cell := range Backtrack(cost) {
		m.path = append(m.path, cost.At(cell.Row, cell.Col))
	}
	return floats.Sum(m.path) / float64(len(m.path)), nil
}
