package schedule

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var epoch = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

func TestFake_RunsInDueOrder(t *testing.T) {
	f := NewFake(epoch)
	var got []string

	f.AfterFunc(300*time.Millisecond, func() { got = append(got, "c") })
	f.AfterFunc(100*time.Millisecond, func() { got = append(got, "a") })
	f.AfterFunc(100*time.Millisecond, func() { got = append(got, "b") })

	f.Advance(99 * time.Millisecond)
	assert.Empty(t, got)

	f.Advance(time.Millisecond)
	assert.Equal(t, []string{"a", "b"}, got)

	f.Advance(time.Second)
	assert.Equal(t, []string{"a", "b", "c"}, got)
	assert.Equal(t, epoch.Add(1100*time.Millisecond), f.Now())
}

func TestFake_ClockAtCallbackTime(t *testing.T) {
	f := NewFake(epoch)
	var seen time.Time
	f.AfterFunc(250*time.Millisecond, func() { seen = f.Now() })

	f.Advance(time.Second)
	assert.Equal(t, epoch.Add(250*time.Millisecond), seen)
}

func TestFake_Stop(t *testing.T) {
	f := NewFake(epoch)
	ran := false
	timer := f.AfterFunc(time.Second, func() { ran = true })

	assert.True(t, timer.Stop())
	assert.False(t, timer.Stop())
	assert.Equal(t, 0, f.Pending())

	f.Advance(2 * time.Second)
	assert.False(t, ran)
}

func TestFake_NestedScheduling(t *testing.T) {
	f := NewFake(epoch)
	var got []string

	f.Post(func() {
		got = append(got, "post")
		f.NextFrame(func() { got = append(got, "frame") })
		f.AfterFunc(50*time.Millisecond, func() { got = append(got, "later") })
	})

	f.Flush()
	assert.Equal(t, []string{"post", "frame"}, got)

	f.Advance(50 * time.Millisecond)
	assert.Equal(t, []string{"post", "frame", "later"}, got)
}

func TestFake_StopAfterFire(t *testing.T) {
	f := NewFake(epoch)
	timer := f.AfterFunc(0, func() {})
	f.Flush()
	assert.False(t, timer.Stop())
}

func TestLoop_DoRunsOnLoop(t *testing.T) {
	l := NewLoop(nil)
	l.Start()
	defer l.Stop()

	var n int
	for range 10 {
		require.NoError(t, l.Do(context.Background(), func() { n++ }))
	}
	assert.Equal(t, 10, n)
}

func TestLoop_AfterFunc(t *testing.T) {
	l := NewLoop(nil)
	l.Start()
	defer l.Stop()

	done := make(chan struct{})
	l.AfterFunc(10*time.Millisecond, func() { close(done) })

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("callback did not run")
	}
}

func TestLoop_StoppedTimerNeverRuns(t *testing.T) {
	l := NewLoop(nil, WithFrameInterval(time.Millisecond))
	l.Start()
	defer l.Stop()

	var ran atomic.Bool
	var timer Timer
	require.NoError(t, l.Do(context.Background(), func() {
		timer = l.NextFrame(func() { ran.Store(true) })
	}))
	require.NoError(t, l.Do(context.Background(), func() {
		timer.Stop()
	}))

	time.Sleep(20 * time.Millisecond)
	require.NoError(t, l.Do(context.Background(), func() {}))
	assert.False(t, ran.Load())
}

func TestLoop_DoAfterStop(t *testing.T) {
	l := NewLoop(nil)
	l.Start()
	l.Stop()
	l.Stop()

	err := l.Do(context.Background(), func() {})
	assert.ErrorIs(t, err, ErrLoopStopped)
}

func TestLoop_RecoversFromPanic(t *testing.T) {
	l := NewLoop(nil)
	l.Start()
	defer l.Stop()

	l.Post(func() { panic("boom") })
	var ok bool
	require.NoError(t, l.Do(context.Background(), func() { ok = true }))
	assert.True(t, ok)
}

func TestLoop_DoHonoursContext(t *testing.T) {
	l := NewLoop(nil)
	// Not started: nothing drains the queue.
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	err := l.Do(ctx, func() {})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestLoop_DoSkipsWorkAfterContextEnds(t *testing.T) {
	l := NewLoop(nil)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	var ran atomic.Bool
	err := l.Do(ctx, func() { ran.Store(true) })
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	l.Start()
	defer l.Stop()
	require.NoError(t, l.Do(context.Background(), func() {}))
	assert.False(t, ran.Load())
}
