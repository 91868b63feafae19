package lock

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/gesture_lock/internal/capture"
	"github.com/relabs-tech/gesture_lock/internal/conditioner"
	"github.com/relabs-tech/gesture_lock/internal/gyro"
)

type queuedInput struct {
	confirms chan struct{}
}

func newQueuedInput() *queuedInput {
	return &queuedInput{confirms: make(chan struct{}, 8)}
}

func (q *queuedInput) confirm() { q.confirms <- struct{}{} }

func (q *queuedInput) AwaitConfirm(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-q.confirms:
		return nil
	}
}

type recordingDisplay struct {
	mu       sync.Mutex
	prompts  [][]string
	progress []float64
	results  []Decision
}

func (d *recordingDisplay) ShowPrompt(lines []string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.prompts = append(d.prompts, lines)
}

func (d *recordingDisplay) ShowProgress(f float64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.progress = append(d.progress, f)
}

func (d *recordingDisplay) ShowResult(dec Decision) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.results = append(d.results, dec)
}

func (d *recordingDisplay) lastPrompt() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.prompts) == 0 {
		return nil
	}
	return d.prompts[len(d.prompts)-1]
}

type lamps struct {
	on map[Indicator]bool
}

func (l *lamps) Set(id Indicator, on bool) error {
	if l.on == nil {
		l.on = map[Indicator]bool{}
	}
	l.on[id] = on
	return nil
}

type fixedScorer struct {
	next []Thresholds
}

func (s *fixedScorer) Score(_, _ *gyro.Sequence) (Thresholds, error) {
	th := s.next[0]
	if len(s.next) > 1 {
		s.next = s.next[1:]
	}
	return th, nil
}

type transitions struct {
	steps     []string
	decisions []Decision
}

func (t *transitions) OnTransition(from, to State) {
	t.steps = append(t.steps, fmt.Sprintf("%s->%s", from, to))
}

func (t *transitions) OnDecision(d Decision) { t.decisions = append(t.decisions, d) }

// countingLink returns a fresh, increasing sample on every request.
type countingLink struct {
	mu sync.Mutex
	n  int16
}

func (l *countingLink) Request() (<-chan capture.Reading, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.n++
	ch := make(chan capture.Reading, 1)
	ch <- capture.Reading{Sample: gyro.Sample{X: l.n, Y: 2 * l.n, Z: -l.n}}
	return ch, nil
}

type failingCapture struct{ err error }

func (f failingCapture) Capture(context.Context, *gyro.Sequence, int) error { return f.err }

type rig struct {
	m       *Machine
	input   *queuedInput
	display *recordingDisplay
	lamps   *lamps
	obs     *transitions
	timer   *capture.ManualTimer
}

const bufferSize = 8

func newRig(t *testing.T, scorer Scorer) *rig {
	t.Helper()
	r := &rig{
		input:   newQueuedInput(),
		display: &recordingDisplay{},
		lamps:   &lamps{},
		obs:     &transitions{},
		timer:   capture.NewManualTimer(),
	}
	session := &capture.Session{
		Link:     &countingLink{},
		Timer:    r.timer,
		Progress: r.display,
		Period:   20 * time.Millisecond,
	}

	stop := make(chan struct{})
	t.Cleanup(func() { close(stop) })
	go func() {
		for {
			select {
			case <-stop:
				return
			default:
				r.timer.Tick()
				time.Sleep(100 * time.Microsecond)
			}
		}
	}()

	m, err := New(Config{BufferSize: bufferSize, UnlockThreshold: 1000}, Deps{
		Capture:    session,
		Scorer:     scorer,
		Input:      r.input,
		Display:    r.display,
		Indicators: r.lamps,
		Observers:  []Observer{r.obs},
	})
	require.NoError(t, err)
	r.m = m
	return r
}

func (r *rig) step(t *testing.T, want State) {
	t.Helper()
	r.input.confirm()
	got, err := r.m.Step(context.Background())
	require.NoError(t, err)
	require.Equal(t, want, got)
	require.Equal(t, want, r.m.State())
}

func TestTransitionTableUnlock(t *testing.T) {
	r := newRig(t, &fixedScorer{next: []Thresholds{{500, 500, 500}}})
	assert.Equal(t, Idle, r.m.State())

	r.step(t, RecordKey)
	assert.Equal(t, PromptIdle, r.display.lastPrompt())
	assert.False(t, r.lamps.on[IndicatorRecorded])
	assert.False(t, r.lamps.on[IndicatorAttempt])

	r.step(t, EnterKey)
	assert.Equal(t, PromptRecorded, r.display.lastPrompt())
	assert.True(t, r.lamps.on[IndicatorRecorded])
	assert.Equal(t, bufferSize, r.m.Passkey().Len())

	r.step(t, Process)
	assert.Equal(t, PromptRegistered, r.display.lastPrompt())
	assert.True(t, r.lamps.on[IndicatorAttempt])
	assert.Equal(t, bufferSize, r.m.Attempt().Len())

	r.step(t, Idle)
	require.Len(t, r.obs.decisions, 1)
	assert.True(t, r.obs.decisions[0].Unlocked)
	assert.Equal(t, 1, r.obs.decisions[0].Attempt)
	assert.Equal(t, r.obs.decisions, r.display.results)

	assert.Equal(t, []string{
		"idle->record_key",
		"record_key->enter_key",
		"enter_key->process",
		"process->idle",
	}, r.obs.steps)

	r.display.mu.Lock()
	defer r.display.mu.Unlock()
	assert.Len(t, r.display.progress, 2*bufferSize)
	assert.Equal(t, 1.0, r.display.progress[bufferSize-1])
}

func TestTransitionTableRetryKeepsPasskey(t *testing.T) {
	r := newRig(t, &fixedScorer{next: []Thresholds{{1500, 500, 500}, {10, 20, 30}}})

	r.step(t, RecordKey)
	r.step(t, EnterKey)
	passkey := append([]int16(nil), r.m.Passkey().Axis(gyro.AxisX)...)
	firstAttempt := append([]int16(nil), r.m.Attempt().Axis(gyro.AxisX)...)

	r.step(t, Process)
	r.step(t, Retry)
	require.Len(t, r.obs.decisions, 1)
	assert.False(t, r.obs.decisions[0].Unlocked)
	assert.Equal(t, 1500.0, r.obs.decisions[0].Thresholds.X)

	r.step(t, EnterKey)
	assert.False(t, r.lamps.on[IndicatorAttempt])
	assert.Equal(t, PromptRetry, r.display.lastPrompt())

	r.step(t, Process)
	assert.Equal(t, passkey, r.m.Passkey().Axis(gyro.AxisX), "passkey must survive a retry")
	assert.NotEqual(t, firstAttempt, r.m.Attempt().Axis(gyro.AxisX), "attempt is re-captured")

	r.step(t, Idle)
	require.Len(t, r.obs.decisions, 2)
	assert.True(t, r.obs.decisions[1].Unlocked)
	assert.Equal(t, 2, r.obs.decisions[1].Attempt)
}

func TestUnlockThresholdIsInclusive(t *testing.T) {
	assert.True(t, Thresholds{1000, 1000, 1000}.Within(1000))
	assert.False(t, Thresholds{1000, 1000.0001, 0}.Within(1000))
	assert.False(t, Thresholds{0, 0, 1500}.Within(1000))
}

func TestCaptureFaultReturnsToIdle(t *testing.T) {
	input := newQueuedInput()
	display := &recordingDisplay{}
	obs := &transitions{}
	m, err := New(Config{BufferSize: 4}, Deps{
		Capture:   failingCapture{err: fmt.Errorf("capture: sample 0: %w", capture.ErrSensorTimeout)},
		Scorer:    &fixedScorer{next: []Thresholds{{}}},
		Input:     input,
		Display:   display,
		Observers: []Observer{obs},
	})
	require.NoError(t, err)

	input.confirm()
	_, err = m.Step(context.Background())
	require.NoError(t, err)

	input.confirm()
	next, err := m.Step(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Idle, next)
	assert.Equal(t, PromptFault, display.lastPrompt())
	assert.Equal(t, []string{"idle->record_key", "record_key->idle"}, obs.steps)
}

func TestRunStopsOnCancel(t *testing.T) {
	m, err := New(Config{BufferSize: 4}, Deps{
		Capture: failingCapture{},
		Scorer:  &fixedScorer{next: []Thresholds{{}}},
		Input:   newQueuedInput(),
		Display: &recordingDisplay{},
	})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err = m.Run(ctx)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
	assert.Equal(t, Idle, m.State())
}

func TestNewValidates(t *testing.T) {
	_, err := New(Config{BufferSize: 0}, Deps{})
	assert.Error(t, err)

	_, err = New(Config{BufferSize: 4}, Deps{})
	assert.Error(t, err)

	m, err := New(Config{BufferSize: 4}, Deps{
		Capture: failingCapture{},
		Scorer:  &fixedScorer{},
		Input:   newQueuedInput(),
		Display: &recordingDisplay{},
	})
	require.NoError(t, err)
	assert.Equal(t, DefaultUnlockThreshold, m.cfg.UnlockThreshold)
}

func TestPipelineScores(t *testing.T) {
	const n = 64
	passkey := gyro.NewSequence(n)
	same := gyro.NewSequence(n)
	shaken := gyro.NewSequence(n)
	for i := 0; i < n; i++ {
		s := gyro.Sample{X: int16(i * 100), Y: int16(-i * 50), Z: 300}
		require.NoError(t, passkey.Set(i, s))
		require.NoError(t, same.Set(i, s))
		require.NoError(t, shaken.Set(i, gyro.Sample{X: 20000, Y: -20000, Z: 20000}))
	}

	p := NewPipeline(conditioner.Default(), n)
	th, err := p.Score(passkey, same)
	require.NoError(t, err)
	assert.Equal(t, Thresholds{}, th)
	assert.True(t, th.Within(DefaultUnlockThreshold))

	th, err = p.Score(passkey, shaken)
	require.NoError(t, err)
	for _, axis := range gyro.Axes {
		assert.Greater(t, th.Get(axis), 0.0)
	}
	assert.False(t, th.Within(DefaultUnlockThreshold))
}

func TestStateText(t *testing.T) {
	b, err := json.Marshal(map[string]State{"s": Retry})
	require.NoError(t, err)
	assert.JSONEq(t, `{"s":"retry"}`, string(b))

	var s State
	require.NoError(t, s.UnmarshalText([]byte("enter_key")))
	assert.Equal(t, EnterKey, s)
	assert.Error(t, s.UnmarshalText([]byte("bogus")))
	assert.Equal(t, "state(42)", State(42).String())
}
