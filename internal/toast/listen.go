package toast

import (
	"context"
	"fmt"

	"github.com/jmylchreest/toastd/internal/broadcast"
	"github.com/jmylchreest/toastd/internal/model"
)

// Listen attaches the center to a broadcaster of show requests. Each request
// is posted onto the scheduler and shown. Only the first call attaches; later
// calls report false until Teardown releases the listener.
func (c *Center) Listen(ctx context.Context, b broadcast.Broadcaster[model.Options]) (bool, error) {
	if c.listening {
		return false, nil
	}

	ctx, cancel := context.WithCancel(ctx)
	sub, err := b.Subscribe(ctx)
	if err != nil {
		cancel()
		return false, fmt.Errorf("failed to subscribe to show requests: %w", err)
	}

	c.listening = true
	c.listenGen++
	gen := c.listenGen
	c.unlisten = func() {
		cancel()
		_ = sub.Close()
	}

	go func() {
		for msg := range sub.Receive() {
			opts := msg.Data
			c.sched.Post(func() {
				// Requests still buffered when the listener was released are dropped.
				if !c.listening || c.listenGen != gen {
					return
				}
				c.Show(opts)
			})
		}
	}()

	c.logger.Debug("listening for show requests")
	return true, nil
}

// Listening reports whether a broadcast listener is attached.
func (c *Center) Listening() bool {
	return c.listening
}
