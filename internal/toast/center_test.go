package toast

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/toastd/internal/broadcast"
	"github.com/jmylchreest/toastd/internal/model"
	"github.com/jmylchreest/toastd/internal/schedule"
)

var epoch = time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC)

type recorder struct {
	events []Event
}

func (r *recorder) listen(ev Event) {
	r.events = append(r.events, ev)
}

func (r *recorder) count(typ EventType) int {
	n := 0
	for _, ev := range r.events {
		if ev.Type == typ {
			n++
		}
	}
	return n
}

func newTestCenter(t *testing.T, mutate ...func(*Config)) (*Center, *schedule.Fake, *recorder) {
	t.Helper()
	cfg := DefaultConfig()
	for _, m := range mutate {
		m(&cfg)
	}
	f := schedule.NewFake(epoch)
	seq := 0
	c := New(f, cfg, nil, WithIDGenerator(func(time.Time) string {
		seq++
		return fmt.Sprintf("t%d", seq)
	}))
	rec := &recorder{}
	c.Subscribe(rec.listen)
	return c, f, rec
}

func state(t *testing.T, c *Center, id string) model.State {
	t.Helper()
	toast, ok := c.Get(id)
	if !ok {
		return model.StateDestroyed
	}
	return toast.State
}

func TestCenter_ShowRevealsOnNextFrame(t *testing.T) {
	c, f, rec := newTestCenter(t)

	id := c.Show(model.Options{Kind: "success", Title: "Saved", Body: "All good"})
	assert.Equal(t, model.StatePending, state(t, c, id))
	assert.Equal(t, 1, rec.count(EventMounted))
	assert.Equal(t, 1, rec.count(EventInserted))

	f.Flush()
	assert.Equal(t, model.StateVisible, state(t, c, id))
	assert.Equal(t, 1, rec.count(EventVisible))
}

func TestCenter_AutoDismiss(t *testing.T) {
	c, f, rec := newTestCenter(t)

	id := c.Show(model.Options{Kind: "success", Title: "t", Body: "m", DurationMs: model.Ms(5000)})
	f.Flush()
	require.Equal(t, model.StateVisible, state(t, c, id))

	f.Advance(4999 * time.Millisecond)
	assert.Equal(t, model.StateVisible, state(t, c, id))

	f.Advance(time.Millisecond)
	toast, ok := c.Get(id)
	require.True(t, ok)
	assert.Equal(t, model.StateClosing, toast.State)
	assert.Equal(t, model.ReasonExpired, toast.Reason)

	f.Advance(DefaultExitDuration)
	assert.Equal(t, 0, c.Len())
	assert.Equal(t, 1, rec.count(EventDestroyed))
	assert.Equal(t, epoch.Add(5300*time.Millisecond), f.Now())
}

func TestCenter_CustomDuration(t *testing.T) {
	c, f, _ := newTestCenter(t)

	id := c.Show(model.Options{Kind: "info", Title: "quick", DurationMs: model.Ms(2000)})
	f.Flush()

	f.Advance(1999 * time.Millisecond)
	assert.Equal(t, model.StateVisible, state(t, c, id))

	f.Advance(time.Millisecond)
	assert.Equal(t, model.StateClosing, state(t, c, id))

	f.Advance(DefaultExitDuration)
	assert.Equal(t, model.StateDestroyed, state(t, c, id))
}

func TestCenter_DefaultDurationFromConfig(t *testing.T) {
	c, f, _ := newTestCenter(t, func(cfg *Config) { cfg.DefaultDuration = 3 * time.Second })

	id := c.Show(model.Options{Title: "configured"})
	f.Flush()
	f.Advance(3 * time.Second)
	assert.Equal(t, model.StateClosing, state(t, c, id))
}

func TestCenter_PauseResume(t *testing.T) {
	c, f, rec := newTestCenter(t)

	id := c.Show(model.Options{Kind: "warning", Title: "hover me", DurationMs: model.Ms(5000)})
	f.Flush()
	f.Advance(1000 * time.Millisecond)

	require.NoError(t, c.PointerEnter(id))
	toast, _ := c.Get(id)
	assert.Equal(t, model.StatePaused, toast.State)
	assert.Equal(t, 4000, toast.RemainingMs)

	// Paused toasts never expire.
	f.Advance(time.Minute)
	assert.Equal(t, model.StatePaused, state(t, c, id))

	require.NoError(t, c.PointerLeave(id))
	assert.Equal(t, model.StateVisible, state(t, c, id))

	f.Advance(3999 * time.Millisecond)
	assert.Equal(t, model.StateVisible, state(t, c, id))
	f.Advance(time.Millisecond)
	assert.Equal(t, model.StateClosing, state(t, c, id))

	assert.Equal(t, 1, rec.count(EventPaused))
	assert.Equal(t, 1, rec.count(EventResumed))
}

func TestCenter_RepeatedHover(t *testing.T) {
	c, f, _ := newTestCenter(t)

	id := c.Show(model.Options{Title: "x", DurationMs: model.Ms(5000)})
	f.Flush()

	for range 3 {
		f.Advance(1000 * time.Millisecond)
		require.NoError(t, c.PointerEnter(id))
		require.NoError(t, c.PointerEnter(id)) // Duplicate enter is ignored
		f.Advance(500 * time.Millisecond)
		require.NoError(t, c.PointerLeave(id))
	}

	toast, _ := c.Get(id)
	assert.Equal(t, 2000, toast.RemainingAt(f.Now()))

	f.Advance(2000 * time.Millisecond)
	assert.Equal(t, model.StateClosing, state(t, c, id))
}

func TestCenter_HoverIgnoredOutsideVisible(t *testing.T) {
	c, f, rec := newTestCenter(t)

	id := c.Show(model.Options{Title: "x"})
	require.NoError(t, c.PointerEnter(id)) // Pending
	assert.Equal(t, model.StatePending, state(t, c, id))

	f.Flush()
	require.NoError(t, c.PointerLeave(id)) // Not paused
	require.NoError(t, c.Close(id, model.ReasonClosed))
	require.NoError(t, c.PointerEnter(id)) // Closing
	assert.Equal(t, model.StateClosing, state(t, c, id))
	assert.Equal(t, 0, rec.count(EventPaused))

	assert.ErrorIs(t, c.PointerEnter("missing"), ErrNotFound)
}

func TestCenter_PauseOnHoverDisabled(t *testing.T) {
	c, f, _ := newTestCenter(t, func(cfg *Config) { cfg.PauseOnHover = false })

	id := c.Show(model.Options{Title: "x", DurationMs: model.Ms(1000)})
	f.Flush()
	require.NoError(t, c.PointerEnter(id))
	assert.Equal(t, model.StateVisible, state(t, c, id))

	f.Advance(time.Second)
	assert.Equal(t, model.StateClosing, state(t, c, id))
}

func TestCenter_ExplicitPauseIgnoresHoverSetting(t *testing.T) {
	c, f, rec := newTestCenter(t, func(cfg *Config) { cfg.PauseOnHover = false })

	id := c.Show(model.Options{Title: "x", DurationMs: model.Ms(5000)})
	f.Flush()
	f.Advance(1000 * time.Millisecond)

	require.NoError(t, c.Pause(id))
	toast, _ := c.Get(id)
	assert.Equal(t, model.StatePaused, toast.State)
	assert.Equal(t, 4000, toast.RemainingMs)

	f.Advance(time.Minute)
	assert.Equal(t, model.StatePaused, state(t, c, id))

	require.NoError(t, c.Resume(id))
	f.Advance(4000 * time.Millisecond)
	assert.Equal(t, model.StateClosing, state(t, c, id))
	assert.Equal(t, 1, rec.count(EventPaused))

	assert.ErrorIs(t, c.Pause("missing"), ErrNotFound)
}

func TestCenter_ManualCloseCancelsCountdown(t *testing.T) {
	c, f, rec := newTestCenter(t)

	id := c.Show(model.Options{Kind: "error", Title: "x", DurationMs: model.Ms(5000)})
	f.Flush()
	f.Advance(1000 * time.Millisecond)

	require.NoError(t, c.Dismiss(id))
	toast, _ := c.Get(id)
	assert.Equal(t, model.StateClosing, toast.State)
	assert.Equal(t, model.ReasonDismissed, toast.Reason)

	f.Advance(DefaultExitDuration)
	assert.Equal(t, 0, c.Len())

	f.Advance(time.Minute)
	assert.Equal(t, 1, rec.count(EventClosing))
	assert.Equal(t, 1, rec.count(EventDestroyed))
	assert.Equal(t, 0, f.Pending())
}

func TestCenter_CloseIsIdempotent(t *testing.T) {
	c, f, rec := newTestCenter(t)

	id := c.Show(model.Options{Title: "x"})
	f.Flush()

	require.NoError(t, c.Close(id, model.ReasonClosed))
	require.NoError(t, c.Close(id, model.ReasonDismissed))

	toast, _ := c.Get(id)
	assert.Equal(t, model.ReasonClosed, toast.Reason)
	assert.Equal(t, 1, rec.count(EventClosing))

	f.Advance(DefaultExitDuration)
	assert.ErrorIs(t, c.Close(id, model.ReasonClosed), ErrNotFound)
	assert.Equal(t, 1, rec.count(EventDestroyed))
}

func TestCenter_ClosePendingToast(t *testing.T) {
	c, f, rec := newTestCenter(t)

	id := c.Show(model.Options{Title: "x"})
	require.NoError(t, c.Close(id, model.ReasonClosed))

	f.Advance(time.Second)
	assert.Equal(t, 0, c.Len())
	assert.Equal(t, 0, rec.count(EventVisible))
}

func TestCenter_ZeroDurationPersists(t *testing.T) {
	c, f, _ := newTestCenter(t)

	id := c.Show(model.Options{Kind: "info", Title: "sticky", DurationMs: model.Ms(0)})
	f.Flush()
	f.Advance(time.Hour)
	assert.Equal(t, model.StateVisible, state(t, c, id))

	require.NoError(t, c.PointerEnter(id))
	require.NoError(t, c.PointerLeave(id))
	f.Advance(time.Hour)
	assert.Equal(t, model.StateVisible, state(t, c, id))

	require.NoError(t, c.Close(id, model.ReasonClosed))
	f.Advance(DefaultExitDuration)
	assert.Equal(t, 0, c.Len())
}

func TestCenter_TransitionEndDestroysEarly(t *testing.T) {
	c, f, rec := newTestCenter(t)

	id := c.Show(model.Options{Title: "x"})
	f.Flush()
	require.NoError(t, c.Close(id, model.ReasonClosed))

	f.Advance(100 * time.Millisecond)
	require.NoError(t, c.TransitionEnd(id))
	assert.Equal(t, 0, c.Len())

	f.Advance(time.Second)
	assert.Equal(t, 1, rec.count(EventDestroyed))
	assert.ErrorIs(t, c.TransitionEnd(id), ErrNotFound)
}

func TestCenter_TransitionEndIgnoredWhileVisible(t *testing.T) {
	c, f, _ := newTestCenter(t)

	id := c.Show(model.Options{Title: "x"})
	f.Flush()
	require.NoError(t, c.TransitionEnd(id))
	assert.Equal(t, model.StateVisible, state(t, c, id))
}

func TestCenter_StackingOrder(t *testing.T) {
	c, f, _ := newTestCenter(t)

	a := c.Show(model.Options{Kind: "success", Title: "A"})
	b := c.Show(model.Options{Kind: "error", Title: "B"})
	d := c.Show(model.Options{Kind: "warning", Title: "C"})
	f.Flush()
	f.Advance(DefaultReflowDelay)

	active := c.Active()
	require.Len(t, active, 3)
	assert.Equal(t, []string{a, b, d}, []string{active[0].ID, active[1].ID, active[2].ID})
	assert.Equal(t, []model.Kind{model.KindSuccess, model.KindError, model.KindWarning},
		[]model.Kind{active[0].Kind, active[1].Kind, active[2].Kind})

	step := DefaultHeight + DefaultGap
	assert.Equal(t, []int{0, step, 2 * step}, c.Offsets())
}

func TestCenter_RepositionUsesMeasuredHeights(t *testing.T) {
	heights := map[string]int{"A": 40, "B": 100, "C": 60}
	c, f, rec := newTestCenter(t)
	c.measure = MeasureFunc(func(t *model.Toast) int { return heights[t.Title] })

	c.Show(model.Options{Title: "A"})
	b := c.Show(model.Options{Title: "B"})
	c.Show(model.Options{Title: "C"})
	f.Flush()
	f.Advance(DefaultReflowDelay)
	assert.Equal(t, []int{0, 48, 156}, c.Offsets())
	assert.Equal(t, 2, rec.count(EventRepositioned))

	require.NoError(t, c.Close(b, model.ReasonClosed))
	f.Advance(DefaultExitDuration + DefaultReflowDelay)
	assert.Equal(t, []int{0, 48}, c.Offsets())
}

func TestCenter_ReflowIsCoalesced(t *testing.T) {
	c, f, _ := newTestCenter(t)

	for i := range 4 {
		c.Show(model.Options{Title: fmt.Sprintf("n%d", i)})
	}
	f.Flush()
	// One reflow timer plus four countdowns.
	assert.Equal(t, 5, f.Pending())
}

func TestCenter_EvictsOldestWhenFull(t *testing.T) {
	c, f, _ := newTestCenter(t, func(cfg *Config) { cfg.MaxVisible = 2 })

	first := c.Show(model.Options{Title: "1"})
	c.Show(model.Options{Title: "2"})
	f.Flush()
	c.Show(model.Options{Title: "3"})

	toast, _ := c.Get(first)
	assert.Equal(t, model.StateClosing, toast.State)
	assert.Equal(t, model.ReasonEvicted, toast.Reason)
}

func TestCenter_PersistentSurvivesCrowdedStack(t *testing.T) {
	c, f, rec := newTestCenter(t)

	sticky := c.Show(model.Options{Kind: "error", Title: "sticky", DurationMs: model.Ms(0)})
	f.Flush()
	for i := range 10 {
		c.Show(model.Options{Title: fmt.Sprintf("n%d", i), DurationMs: model.Ms(60000)})
	}
	f.Flush()
	f.Advance(time.Second)

	assert.Equal(t, model.StateVisible, state(t, c, sticky))
	assert.Equal(t, 11, c.Len())
	assert.Equal(t, 0, rec.count(EventClosing))
}

func TestCenter_ReplaceSameKind(t *testing.T) {
	c, f, _ := newTestCenter(t, func(cfg *Config) { cfg.ReplaceSameKind = true })

	old := c.Show(model.Options{Kind: "success", Title: "old"})
	other := c.Show(model.Options{Kind: "error", Title: "other"})
	f.Flush()
	c.Show(model.Options{Kind: "success", Title: "new"})

	toast, _ := c.Get(old)
	assert.Equal(t, model.ReasonReplaced, toast.Reason)
	assert.Equal(t, model.StateVisible, state(t, c, other))
}

func TestCenter_UnknownKindDefaultsToInfo(t *testing.T) {
	c, _, _ := newTestCenter(t)

	id := c.Show(model.Options{Kind: "critical", Title: "x"})
	toast, _ := c.Get(id)
	assert.Equal(t, model.KindInfo, toast.Kind)
}

func TestCenter_CloseAll(t *testing.T) {
	c, f, _ := newTestCenter(t)

	c.Show(model.Options{Title: "1"})
	c.Show(model.Options{Title: "2"})
	f.Flush()

	assert.Equal(t, 2, c.CloseAll(model.ReasonDismissed))
	assert.Equal(t, 0, c.CloseAll(model.ReasonDismissed))
	f.Advance(DefaultExitDuration)
	assert.Equal(t, 0, c.Len())
}

func TestCenter_TeardownAndRemount(t *testing.T) {
	c, f, rec := newTestCenter(t)

	c.Show(model.Options{Title: "1"})
	f.Flush()
	require.NotNil(t, c.Container())

	c.Teardown()
	assert.Nil(t, c.Container())
	assert.Equal(t, 0, c.Len())
	assert.Equal(t, 0, f.Pending())
	assert.Equal(t, 1, rec.count(EventUnmounted))

	c.Show(model.Options{Title: "2"})
	assert.NotNil(t, c.Container())
	assert.Equal(t, 2, rec.count(EventMounted))
}

func TestCenter_Unsubscribe(t *testing.T) {
	c, f, _ := newTestCenter(t)

	other := &recorder{}
	unsub := c.Subscribe(other.listen)
	c.Show(model.Options{Title: "1"})
	unsub()
	f.Flush()

	assert.Equal(t, 1, other.count(EventInserted))
	assert.Equal(t, 0, other.count(EventVisible))
}

func waitFor(t *testing.T, f *schedule.Fake, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		f.Flush()
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met")
}

func TestCenter_ListenAttachesOnce(t *testing.T) {
	c, f, _ := newTestCenter(t)
	bus := broadcast.NewMemory[model.Options](8, nil)
	defer bus.Close()

	ctx := context.Background()
	attached, err := c.Listen(ctx, bus)
	require.NoError(t, err)
	assert.True(t, attached)

	attached, err = c.Listen(ctx, bus)
	require.NoError(t, err)
	assert.False(t, attached)
	assert.Equal(t, 1, bus.Subscribers())

	require.NoError(t, bus.Broadcast(ctx, broadcast.Message[model.Options]{Data: model.Options{Kind: "info", Title: "one"}}))
	require.NoError(t, bus.Broadcast(ctx, broadcast.Message[model.Options]{Data: model.Options{Kind: "info", Title: "two"}}))

	waitFor(t, f, func() bool { return c.Len() == 2 })
	time.Sleep(20 * time.Millisecond)
	f.Flush()
	assert.Equal(t, 2, c.Len())

	c.Teardown()
	assert.False(t, c.Listening())
	assert.Eventually(t, func() bool { return bus.Subscribers() == 0 }, time.Second, 5*time.Millisecond)
}

func TestCenter_TeardownDropsBufferedRequests(t *testing.T) {
	c, f, rec := newTestCenter(t)
	bus := broadcast.NewMemory[model.Options](8, nil)
	defer bus.Close()

	ctx := context.Background()
	_, err := c.Listen(ctx, bus)
	require.NoError(t, err)

	msg := broadcast.Message[model.Options]{Data: model.Options{Title: "late"}}
	require.NoError(t, bus.Broadcast(ctx, msg))
	assert.Eventually(t, func() bool { return f.Pending() == 1 }, time.Second, 5*time.Millisecond)

	c.Teardown()
	f.Flush()

	assert.Equal(t, 0, c.Len())
	assert.Nil(t, c.Container())
	assert.Equal(t, 0, rec.count(EventInserted))
}
