package broadcast

import (
	"context"
	"errors"
	"log/slog"
	"sync"
)

// ErrClosed is returned when subscribing to a closed broadcaster.
var ErrClosed = errors.New("broadcaster is closed")

// Memory is an in-process Broadcaster. All methods are safe for concurrent
// use.
type Memory[T any] struct {
	logger     *slog.Logger
	bufferSize int

	mu     sync.RWMutex
	subs   map[*subscriber[T]]struct{}
	closed bool
	wg     sync.WaitGroup
}

// NewMemory creates an in-process broadcaster with the given per-subscriber
// buffer.
func NewMemory[T any](bufferSize int, logger *slog.Logger) *Memory[T] {
	if logger == nil {
		logger = slog.Default()
	}
	return &Memory[T]{
		logger:     logger,
		bufferSize: max(bufferSize, 1),
		subs:       make(map[*subscriber[T]]struct{}),
	}
}

// Subscribe registers a subscriber that lives until Close or until ctx is
// cancelled.
func (m *Memory[T]) Subscribe(ctx context.Context) (Subscriber[T], error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, ErrClosed
	}

	sub := newSubscriber[T](m.bufferSize)
	m.subs[sub] = struct{}{}

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		select {
		case <-ctx.Done():
		case <-sub.done:
		}
		m.remove(sub)
	}()

	return sub, nil
}

// Broadcast delivers msg to every subscriber with buffer room.
func (m *Memory[T]) Broadcast(_ context.Context, msg Message[T]) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return ErrClosed
	}
	for sub := range m.subs {
		if !sub.send(msg) {
			m.logger.Warn("dropped broadcast for slow subscriber")
		}
	}
	return nil
}

// Subscribers returns the number of live subscriptions.
func (m *Memory[T]) Subscribers() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.subs)
}

// Close ends every subscription.
func (m *Memory[T]) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	subs := make([]*subscriber[T], 0, len(m.subs))
	for sub := range m.subs {
		subs = append(subs, sub)
	}
	m.mu.Unlock()

	for _, sub := range subs {
		_ = sub.Close()
	}
	m.wg.Wait()
	return nil
}

func (m *Memory[T]) remove(sub *subscriber[T]) {
	m.mu.Lock()
	delete(m.subs, sub)
	m.mu.Unlock()
	_ = sub.Close()
}
