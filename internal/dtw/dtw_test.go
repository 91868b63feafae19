package dtw

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func sine(n int, amp, phase float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = amp * math.Sin(float64(i)*0.3+phase)
	}
	return out
}

func offset(s []float64, k float64) []float64 {
	out := make([]float64, len(s))
	for i, v := range s {
		out[i] = v + k
	}
	return out
}

func TestBuildCostMatrixRecurrence(t *testing.T) {
	a := []float64{1, 3, 4}
	b := []float64{2, 2, 5}
	m := NewMatcher(3)

	cost, err := m.BuildCostMatrix(a, b)
	require.NoError(t, err)

	want := mat.NewDense(3, 3, []float64{
		1, 2, 6,
		2, 2, 4,
		4, 4, 3,
	})
	assert.True(t, mat.EqualApprox(want, cost, 1e-12), "got\n%v", mat.Formatted(cost))
}

func TestIdentityScoresZero(t *testing.T) {
	m := NewMatcher(0)
	for _, s := range [][]float64{
		sine(50, 30, 0),
		{5, 5, 5, 5},
		{-1, 2, -3, 4, -5, 6},
	} {
		score, err := m.Compare(s, s)
		require.NoError(t, err)
		assert.Equal(t, 0.0, score)
	}
}

func TestNonNegative(t *testing.T) {
	m := NewMatcher(40)
	a := sine(40, 100, 0)
	b := sine(40, 60, 1.3)

	cost, err := m.BuildCostMatrix(a, b)
	require.NoError(t, err)
	r, c := cost.Dims()
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			assert.GreaterOrEqual(t, cost.At(i, j), math.Abs(a[i]-b[j]))
			if i > 0 && j > 0 {
				pred := math.Min(cost.At(i-1, j-1), math.Min(cost.At(i-1, j), cost.At(i, j-1)))
				assert.GreaterOrEqual(t, cost.At(i, j), pred)
			}
		}
	}
	assert.GreaterOrEqual(t, Score(cost), 0.0)
}

func TestPathCostsNeverIncreaseTowardOrigin(t *testing.T) {
	m := NewMatcher(30)
	cost, err := m.BuildCostMatrix(sine(30, 10, 0), sine(30, 12, 0.5))
	require.NoError(t, err)

	cells := Backtrack(cost)
	for i := 1; i < len(cells); i++ {
		prev, cur := cells[i-1], cells[i]
		assert.LessOrEqual(t, cost.At(cur.Row, cur.Col), cost.At(prev.Row, prev.Col))
		assert.LessOrEqual(t, prev.Row-cur.Row, 1)
		assert.LessOrEqual(t, prev.Col-cur.Col, 1)
	}
	last := cells[len(cells)-1]
	assert.True(t, last.Row == 0 || last.Col == 0)
}

func TestScoreMonotonicInOffset(t *testing.T) {
	m := NewMatcher(16)

	constant := make([]float64, 16)
	for i := range constant {
		constant[i] = 12
	}
	prev := -1.0
	for _, k := range []float64{0, 0.5, 1, 3, 10, 100} {
		for _, sign := range []float64{1, -1} {
			score, err := m.Compare(constant, offset(constant, sign*k))
			require.NoError(t, err)
			assert.GreaterOrEqual(t, score, prev, "k=%v", sign*k)
		}
		score, _ := m.Compare(constant, offset(constant, k))
		prev = score
	}

	base := sine(16, 1, 0)
	prev = -1.0
	for _, k := range []float64{100, 200, 400, 800} {
		score, err := m.Compare(base, offset(base, k))
		require.NoError(t, err)
		neg, err := m.Compare(base, offset(base, -k))
		require.NoError(t, err)
		assert.Greater(t, score, prev)
		assert.Greater(t, neg, prev)
		prev = math.Min(score, neg)
	}
}

func TestSingleSample(t *testing.T) {
	m := NewMatcher(1)
	cost, err := m.BuildCostMatrix([]float64{4.5}, []float64{-1.5})
	require.NoError(t, err)

	r, c := cost.Dims()
	assert.Equal(t, 1, r)
	assert.Equal(t, 1, c)
	assert.Equal(t, []Cell{{0, 0}}, Backtrack(cost))
	assert.Equal(t, 6.0, Score(cost))

	score, err := m.Compare([]float64{4.5}, []float64{-1.5})
	require.NoError(t, err)
	assert.Equal(t, 6.0, score)
}

func TestTieBreakPrefersDiagonalThenUp(t *testing.T) {
	assert.Equal(t, StepDiagonal, stepOf(cheapest(1, 1, 1)))
	assert.Equal(t, StepUp, stepOf(cheapest(2, 1, 1)))
	assert.Equal(t, StepLeft, stepOf(cheapest(2, 2, 1)))
	assert.Equal(t, StepUp, stepOf(cheapest(3, 1, 2)))

	// all neighbours equal: the walk must stay on the diagonal
	flat := mat.NewDense(3, 3, []float64{
		0, 0, 0,
		0, 0, 0,
		0, 0, 0,
	})
	assert.Equal(t, []Cell{{2, 2}, {1, 1}, {0, 0}}, Backtrack(flat))

	// up and left tie below a costlier diagonal: up wins
	m := mat.NewDense(2, 2, []float64{
		5, 1,
		1, 9,
	})
	assert.Equal(t, []Cell{{1, 1}, {0, 1}}, Backtrack(m))
	assert.Equal(t, 5.0, Score(m))
}

func TestMatcherErrorsAndReuse(t *testing.T) {
	m := NewMatcher(4)

	_, err := m.Compare([]float64{1, 2}, []float64{1})
	assert.ErrorIs(t, err, ErrLengthMismatch)
	_, err = m.Compare(nil, nil)
	assert.ErrorIs(t, err, ErrEmptySequence)

	first, err := m.BuildCostMatrix([]float64{1, 2, 3, 4}, []float64{4, 3, 2, 1})
	require.NoError(t, err)
	second, err := m.BuildCostMatrix([]float64{0, 0, 0, 0}, []float64{0, 0, 0, 0})
	require.NoError(t, err)
	assert.Same(t, first, second)
	assert.Equal(t, 0.0, second.At(3, 3))
}

func stepOf(_ float64, s Step) Step { return s }
