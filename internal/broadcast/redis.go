package broadcast

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultChannel is the Redis pub/sub channel toast requests travel on.
const DefaultChannel = "toastd:show"

// ErrRedisNotReady is returned when Connect exhausts its attempts.
var ErrRedisNotReady = errors.New("redis is not ready")

// RedisConfig describes how to reach Redis.
type RedisConfig struct {
	URL            string
	Channel        string
	RetryAttempts  int
	RetryInterval  time.Duration
	ConnectTimeout time.Duration
}

// Connect parses cfg.URL and pings until the server answers or the attempts
// run out.
func Connect(ctx context.Context, cfg RedisConfig) (*redis.Client, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}

	timeout := cfg.ConnectTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	for range max(cfg.RetryAttempts, 1) {
		client := redis.NewClient(opts)
		if err := client.Ping(ctx).Err(); err == nil {
			return client, nil
		}
		_ = client.Close()

		select {
		case <-ctx.Done():
			return nil, errors.Join(ErrRedisNotReady, ctx.Err())
		case <-time.After(cfg.RetryInterval):
		}
	}
	return nil, ErrRedisNotReady
}

// Redis is a Broadcaster backed by Redis pub/sub. Payloads travel as JSON so
// any process (or redis-cli) can publish requests.
type Redis[T any] struct {
	client     redis.UniversalClient
	channel    string
	bufferSize int
	logger     *slog.Logger

	mu     sync.Mutex
	subs   map[*subscriber[T]]*redis.PubSub
	closed bool
	wg     sync.WaitGroup
}

// NewRedis creates a Redis-backed broadcaster on channel.
func NewRedis[T any](client redis.UniversalClient, channel string, bufferSize int, logger *slog.Logger) *Redis[T] {
	if logger == nil {
		logger = slog.Default()
	}
	if channel == "" {
		channel = DefaultChannel
	}
	return &Redis[T]{
		client:     client,
		channel:    channel,
		bufferSize: max(bufferSize, 1),
		logger:     logger,
		subs:       make(map[*subscriber[T]]*redis.PubSub),
	}
}

// Channel returns the pub/sub channel name.
func (r *Redis[T]) Channel() string {
	return r.channel
}

// Subscribe opens a pub/sub subscription and relays decoded payloads.
func (r *Redis[T]) Subscribe(ctx context.Context) (Subscriber[T], error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil, ErrClosed
	}

	ps := r.client.Subscribe(ctx, r.channel)
	// Wait for the subscription confirmation so published messages are not
	// missed between Subscribe returning and the relay starting.
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, fmt.Errorf("failed to subscribe to %s: %w", r.channel, err)
	}

	sub := newSubscriber[T](r.bufferSize)
	r.subs[sub] = ps

	r.wg.Add(1)
	go r.relay(ctx, sub, ps)

	return sub, nil
}

func (r *Redis[T]) relay(ctx context.Context, sub *subscriber[T], ps *redis.PubSub) {
	defer r.wg.Done()
	defer r.remove(sub)

	ch := ps.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case <-sub.done:
			return
		case m, ok := <-ch:
			if !ok {
				return
			}
			var data T
			if err := json.Unmarshal([]byte(m.Payload), &data); err != nil {
				r.logger.Warn("ignoring malformed broadcast payload",
					"channel", m.Channel,
					"error", err,
				)
				continue
			}
			if !sub.send(Message[T]{Data: data}) {
				r.logger.Warn("dropped broadcast for slow subscriber", "channel", m.Channel)
			}
		}
	}
}

// Broadcast publishes msg as JSON.
func (r *Redis[T]) Broadcast(ctx context.Context, msg Message[T]) error {
	data, err := json.Marshal(msg.Data)
	if err != nil {
		return fmt.Errorf("failed to encode broadcast: %w", err)
	}
	if err := r.client.Publish(ctx, r.channel, data).Err(); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", r.channel, err)
	}
	return nil
}

// Close ends every subscription. The client is owned by the caller.
func (r *Redis[T]) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	subs := make([]*subscriber[T], 0, len(r.subs))
	for sub := range r.subs {
		subs = append(subs, sub)
	}
	r.mu.Unlock()

	for _, sub := range subs {
		_ = sub.Close()
	}
	r.wg.Wait()
	return nil
}

func (r *Redis[T]) remove(sub *subscriber[T]) {
	r.mu.Lock()
	ps := r.subs[sub]
	delete(r.subs, sub)
	r.mu.Unlock()

	if ps != nil {
		_ = ps.Close()
	}
	_ = sub.Close()
}
