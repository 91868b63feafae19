package capture

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/gesture_lock/internal/gyro"
)

// scriptedLink hands every request to the test so it can decide when the
// transfer completes.
type scriptedLink struct {
	requests chan chan Reading
}

func newScriptedLink() *scriptedLink {
	return &scriptedLink{requests: make(chan chan Reading)}
}

func (l *scriptedLink) Request() (<-chan Reading, error) {
	ch := make(chan Reading, 1)
	l.requests <- ch
	return ch, nil
}

// instantLink completes every transfer immediately with an increasing
// sample.
type instantLink struct {
	mu   sync.Mutex
	next int16
	err  error
}

func (l *instantLink) Request() (<-chan Reading, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	ch := make(chan Reading, 1)
	ch <- Reading{Sample: gyro.Sample{X: l.next, Y: -l.next, Z: 1}, Err: l.err}
	l.next++
	return ch, nil
}

type silentLink struct{}

func (silentLink) Request() (<-chan Reading, error) {
	return make(chan Reading), nil
}

type recordedProgress struct {
	mu        sync.Mutex
	fractions []float64
}

func (p *recordedProgress) ShowProgress(f float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.fractions = append(p.fractions, f)
}

func waitArmed(t *testing.T, timer *ManualTimer) {
	t.Helper()
	require.Eventually(t, timer.Armed, time.Second, time.Millisecond)
}

// pace ticks the timer until stop is closed.
func pace(timer *ManualTimer, stop <-chan struct{}) {
	for {
		select {
		case <-stop:
			return
		default:
			timer.Tick()
			time.Sleep(100 * time.Microsecond)
		}
	}
}

func TestCaptureInterleavesTicksAndTransfers(t *testing.T) {
	const n = 5
	timer := NewManualTimer()
	link := newScriptedLink()
	s := &Session{Link: link, Timer: timer, Period: 20 * time.Millisecond}
	seq := gyro.NewSequence(n)

	errc := make(chan error, 1)
	go func() { errc <- s.Capture(context.Background(), seq, n) }()
	waitArmed(t, timer)

	require.True(t, timer.Tick())
	for i := 0; i < n; i++ {
		var req chan Reading
		select {
		case req = <-link.requests:
		case <-time.After(time.Second):
			t.Fatalf("no request for sample %d", i)
		}

		// ticks during the transfer latch once and coalesce
		assert.True(t, timer.Tick())
		assert.False(t, timer.Tick())
		select {
		case <-link.requests:
			t.Fatalf("second transfer started while sample %d was in flight", i)
		case <-time.After(20 * time.Millisecond):
		}

		req <- Reading{Sample: gyro.Sample{X: int16(i), Y: int16(10 * i), Z: -1}}
	}

	require.NoError(t, <-errc)
	assert.Equal(t, n, seq.Len())
	assert.Equal(t, []int16{0, 1, 2, 3, 4}, seq.Axis(gyro.AxisX))
	assert.Equal(t, []int16{0, 10, 20, 30, 40}, seq.Axis(gyro.AxisY))
	assert.False(t, timer.Armed())
}

func TestCaptureFillsBufferAndReportsProgress(t *testing.T) {
	const n = 32
	timer := NewManualTimer()
	progress := &recordedProgress{}
	s := &Session{Link: &instantLink{}, Timer: timer, Progress: progress, Period: time.Millisecond}
	seq := gyro.NewSequence(n)

	stop := make(chan struct{})
	defer close(stop)
	go pace(timer, stop)

	require.NoError(t, s.Capture(context.Background(), seq, n))
	require.Equal(t, n, seq.Len())
	for i, x := range seq.Axis(gyro.AxisX) {
		assert.Equal(t, int16(i), x, "gap or duplicate at %d", i)
	}

	progress.mu.Lock()
	defer progress.mu.Unlock()
	require.Len(t, progress.fractions, n)
	assert.InDelta(t, 1.0/n, progress.fractions[0], 1e-12)
	assert.Equal(t, 1.0, progress.fractions[n-1])
}

func TestCaptureOverwritesPreviousCycle(t *testing.T) {
	timer := NewManualTimer()
	link := &instantLink{}
	s := &Session{Link: link, Timer: timer}
	seq := gyro.NewSequence(4)

	stop := make(chan struct{})
	defer close(stop)
	go pace(timer, stop)

	require.NoError(t, s.Capture(context.Background(), seq, 4))
	require.NoError(t, s.Capture(context.Background(), seq, 2))
	assert.Equal(t, 2, seq.Len())
	assert.Equal(t, []int16{4, 5}, seq.Axis(gyro.AxisX))
	assert.Equal(t, 2, timer.Arms())
}

func TestCaptureRejectsOverrun(t *testing.T) {
	timer := NewManualTimer()
	s := &Session{Link: &instantLink{}, Timer: timer}

	err := s.Capture(context.Background(), gyro.NewSequence(3), 4)
	assert.ErrorIs(t, err, gyro.ErrIndexOutOfRange)
	assert.Equal(t, 0, timer.Arms())

	err = s.Capture(context.Background(), gyro.NewSequence(3), 0)
	assert.Error(t, err)
}

func TestCaptureSensorTimeout(t *testing.T) {
	timer := NewManualTimer()
	s := &Session{Link: silentLink{}, Timer: timer, Timeout: 10 * time.Millisecond}

	stop := make(chan struct{})
	defer close(stop)
	go pace(timer, stop)

	err := s.Capture(context.Background(), gyro.NewSequence(8), 8)
	assert.ErrorIs(t, err, ErrSensorTimeout)
	assert.False(t, timer.Armed())
}

func TestCaptureLinkError(t *testing.T) {
	timer := NewManualTimer()
	boom := errors.New("spi bus gone")
	s := &Session{Link: &instantLink{err: boom}, Timer: timer}

	stop := make(chan struct{})
	defer close(stop)
	go pace(timer, stop)

	err := s.Capture(context.Background(), gyro.NewSequence(2), 2)
	assert.ErrorIs(t, err, boom)
}

func TestCaptureCancelled(t *testing.T) {
	timer := NewManualTimer()
	s := &Session{Link: &instantLink{}, Timer: timer}
	ctx, cancel := context.WithCancel(context.Background())

	errc := make(chan error, 1)
	go func() { errc <- s.Capture(ctx, gyro.NewSequence(2), 2) }()
	waitArmed(t, timer)
	cancel()

	assert.ErrorIs(t, <-errc, context.Canceled)
	assert.False(t, timer.Armed())
}

func TestManualTimerDropsStaleTick(t *testing.T) {
	timer := NewManualTimer()
	assert.False(t, timer.Tick(), "disarmed timer must not latch")

	timer.Arm(time.Millisecond)
	require.True(t, timer.Tick())
	timer.Disarm()

	ch := timer.Arm(time.Millisecond)
	select {
	case <-ch:
		t.Fatal("tick from the previous arming leaked into the new one")
	default:
	}
}

func TestTickerArmDisarm(t *testing.T) {
	ticker := NewTicker()
	ch := ticker.Arm(time.Millisecond)

	select {
	case <-ch:
	case <-time.After(time.Second):
		t.Fatal("ticker never fired")
	}
	ticker.Disarm()
	ticker.Disarm()
}
