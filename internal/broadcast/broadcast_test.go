package broadcast

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type request struct {
	Kind  string `json:"kind"`
	Title string `json:"title"`
}

func receive[T any](t *testing.T, sub Subscriber[T]) Message[T] {
	t.Helper()
	select {
	case msg, ok := <-sub.Receive():
		require.True(t, ok, "subscription closed")
		return msg
	case <-time.After(2 * time.Second):
		t.Fatal("no message received")
	}
	return Message[T]{}
}

func TestMemory_FanOut(t *testing.T) {
	b := NewMemory[request](4, nil)
	defer b.Close()

	ctx := context.Background()
	a, err := b.Subscribe(ctx)
	require.NoError(t, err)
	c, err := b.Subscribe(ctx)
	require.NoError(t, err)

	require.NoError(t, b.Broadcast(ctx, Message[request]{Data: request{Kind: "info", Title: "hi"}}))

	assert.Equal(t, "hi", receive(t, a).Data.Title)
	assert.Equal(t, "hi", receive(t, c).Data.Title)
}

func TestMemory_DropsForSlowSubscriber(t *testing.T) {
	b := NewMemory[int](1, nil)
	defer b.Close()

	ctx := context.Background()
	sub, err := b.Subscribe(ctx)
	require.NoError(t, err)

	require.NoError(t, b.Broadcast(ctx, Message[int]{Data: 1}))
	require.NoError(t, b.Broadcast(ctx, Message[int]{Data: 2})) // Dropped, buffer full

	assert.Equal(t, 1, receive(t, sub).Data)
	select {
	case msg := <-sub.Receive():
		t.Fatalf("unexpected message %v", msg)
	default:
	}
}

func TestMemory_ContextCancelEndsSubscription(t *testing.T) {
	b := NewMemory[int](1, nil)
	defer b.Close()

	ctx, cancel := context.WithCancel(context.Background())
	sub, err := b.Subscribe(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, b.Subscribers())

	cancel()
	_, ok := <-sub.Receive()
	assert.False(t, ok)
	assert.Eventually(t, func() bool { return b.Subscribers() == 0 }, time.Second, 5*time.Millisecond)
}

func TestMemory_Close(t *testing.T) {
	b := NewMemory[int](1, nil)
	sub, err := b.Subscribe(context.Background())
	require.NoError(t, err)

	require.NoError(t, b.Close())
	require.NoError(t, b.Close())

	_, ok := <-sub.Receive()
	assert.False(t, ok)

	_, err = b.Subscribe(context.Background())
	assert.ErrorIs(t, err, ErrClosed)
	assert.ErrorIs(t, b.Broadcast(context.Background(), Message[int]{Data: 1}), ErrClosed)
}

func TestSubscriber_CloseIdempotent(t *testing.T) {
	b := NewMemory[int](1, nil)
	defer b.Close()

	sub, err := b.Subscribe(context.Background())
	require.NoError(t, err)
	assert.NoError(t, sub.Close())
	assert.NoError(t, sub.Close())
}

// TestRedis_RoundTrip needs a reachable server; set TOASTD_TEST_REDIS_URL to run it.
func TestRedis_RoundTrip(t *testing.T) {
	url := os.Getenv("TOASTD_TEST_REDIS_URL")
	if url == "" {
		t.Skip("TOASTD_TEST_REDIS_URL not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	client, err := Connect(ctx, RedisConfig{URL: url, RetryAttempts: 1, RetryInterval: time.Second})
	require.NoError(t, err)
	defer client.Close()

	b := NewRedis[request](client, "toastd:test", 4, nil)
	defer b.Close()

	sub, err := b.Subscribe(ctx)
	require.NoError(t, err)

	require.NoError(t, b.Broadcast(ctx, Message[request]{Data: request{Kind: "success", Title: "Saved"}}))
	got := receive(t, sub)
	assert.Equal(t, request{Kind: "success", Title: "Saved"}, got.Data)
}

func TestConnect_InvalidURL(t *testing.T) {
	_, err := Connect(context.Background(), RedisConfig{URL: "not a url"})
	assert.Error(t, err)
}

func TestForward(t *testing.T) {
	src := NewMemory[int](4, nil)
	dst := NewMemory[int](4, nil)
	defer dst.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	out, err := dst.Subscribe(ctx)
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- Forward[int](ctx, src, dst) }()
	assert.Eventually(t, func() bool { return src.Subscribers() == 1 }, time.Second, 5*time.Millisecond)

	require.NoError(t, src.Broadcast(ctx, Message[int]{Data: 7}))
	assert.Equal(t, 7, receive(t, out).Data)

	require.NoError(t, src.Close())
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("forward did not stop")
	}
}
