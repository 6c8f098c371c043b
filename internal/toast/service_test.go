package toast

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/toastd/internal/broadcast"
	"github.com/jmylchreest/toastd/internal/model"
	"github.com/jmylchreest/toastd/internal/schedule"
)

func resetDefault() {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	if defaultSvc != nil {
		defaultSvc.Shutdown()
		defaultSvc = nil
	}
}

func fastConfig() Config {
	cfg := DefaultConfig()
	cfg.DefaultDuration = 50 * time.Millisecond
	cfg.ExitDuration = 20 * time.Millisecond
	cfg.ReflowDelay = 5 * time.Millisecond
	return cfg
}

func TestService_FakeRunner(t *testing.T) {
	f := schedule.NewFake(epoch)
	svc := NewService(New(f, DefaultConfig(), nil), f)
	ctx := context.Background()

	id, err := svc.Show(ctx, model.Options{Kind: "success", Title: "Saved"})
	require.NoError(t, err)
	f.Flush()

	got, err := svc.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, model.StateVisible, got.State)

	require.NoError(t, svc.PointerEnter(ctx, id))
	require.NoError(t, svc.PointerLeave(ctx, id))
	require.NoError(t, svc.Dismiss(ctx, id))
	require.NoError(t, svc.TransitionEnd(ctx, id))

	_, err = svc.Get(ctx, id)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, svc.Close(ctx, id, model.ReasonClosed), ErrNotFound)
}

func TestService_LoopLifecycle(t *testing.T) {
	svc := Start(fastConfig(), nil)
	defer svc.Shutdown()
	ctx := context.Background()

	var (
		mu     sync.Mutex
		events []EventType
	)
	unsub, err := svc.Subscribe(ctx, func(ev Event) {
		mu.Lock()
		events = append(events, ev.Type)
		mu.Unlock()
	})
	require.NoError(t, err)
	defer unsub()

	_, err = svc.Show(ctx, model.Options{Title: "quick"})
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		active, err := svc.Active(ctx)
		return err == nil && len(active) == 0
	}, 2*time.Second, 5*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Contains(t, events, EventVisible)
	assert.Contains(t, events, EventClosing)
	assert.Contains(t, events, EventDestroyed)
}

func TestService_ConcurrentShows(t *testing.T) {
	cfg := fastConfig()
	cfg.MaxVisible = 0
	cfg.DefaultDuration = time.Minute
	svc := Start(cfg, nil)
	defer svc.Shutdown()
	ctx := context.Background()

	var wg sync.WaitGroup
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Show(ctx, model.Options{Title: "concurrent"})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	active, err := svc.Active(ctx)
	require.NoError(t, err)
	assert.Len(t, active, 20)

	n, err := svc.CloseAll(ctx, model.ReasonClosed)
	require.NoError(t, err)
	assert.Equal(t, 20, n)
}

func TestService_UpdateConfig(t *testing.T) {
	svc := Start(DefaultConfig(), nil)
	defer svc.Shutdown()
	ctx := context.Background()

	cfg := DefaultConfig()
	cfg.Gap = 16
	require.NoError(t, svc.UpdateConfig(ctx, cfg))

	got, err := svc.Config(ctx)
	require.NoError(t, err)
	assert.Equal(t, 16, got.Gap)
}

func TestService_ClosedLoop(t *testing.T) {
	svc := Start(DefaultConfig(), nil)
	svc.Shutdown()

	_, err := svc.Show(context.Background(), model.Options{Title: "late"})
	assert.ErrorIs(t, err, schedule.ErrLoopStopped)
}

func TestService_ListenThroughBroadcast(t *testing.T) {
	svc := Start(fastConfig(), nil)
	defer svc.Shutdown()
	ctx := context.Background()

	bus := broadcast.NewMemory[model.Options](8, nil)
	defer bus.Close()

	attached, err := svc.Listen(ctx, bus)
	require.NoError(t, err)
	assert.True(t, attached)
	attached, err = svc.Listen(ctx, bus)
	require.NoError(t, err)
	assert.False(t, attached)

	var (
		mu    sync.Mutex
		shown int
	)
	unsub, err := svc.Subscribe(ctx, func(ev Event) {
		if ev.Type == EventInserted {
			mu.Lock()
			shown++
			mu.Unlock()
		}
	})
	require.NoError(t, err)
	defer unsub()

	for _, title := range []string{"one", "two"} {
		msg := broadcast.Message[model.Options]{Data: model.Options{Kind: "info", Title: title}}
		require.NoError(t, bus.Broadcast(ctx, msg))
	}

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return shown == 2
	}, 2*time.Second, 5*time.Millisecond)

	time.Sleep(20 * time.Millisecond)
	mu.Lock()
	assert.Equal(t, 2, shown)
	mu.Unlock()
}

func TestDefault_Singleton(t *testing.T) {
	resetDefault()
	defer resetDefault()

	first := Default()
	for range 5 {
		assert.Same(t, first, Default())
	}

	extra := Start(DefaultConfig(), nil)
	defer extra.Shutdown()
	assert.False(t, SetDefault(extra))
}

func TestSetDefault_InstallsOwnedInstance(t *testing.T) {
	resetDefault()
	defer resetDefault()

	owned := Start(DefaultConfig(), nil)
	require.True(t, SetDefault(owned))
	assert.Same(t, owned, Default())
}
