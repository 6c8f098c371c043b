package broadcast

import (
	"context"
	"fmt"
)

// Forward relays every message from src into dst until ctx is cancelled or
// the subscription on src ends.
func Forward[T any](ctx context.Context, src, dst Broadcaster[T]) error {
	sub, err := src.Subscribe(ctx)
	if err != nil {
		return fmt.Errorf("failed to subscribe to source: %w", err)
	}
	defer sub.Close()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-sub.Receive():
			if !ok {
				return nil
			}
			if err := dst.Broadcast(ctx, msg); err != nil {
				return fmt.Errorf("failed to forward message: %w", err)
			}
		}
	}
}
