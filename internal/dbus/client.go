package dbus

import (
	"context"
	"errors"
	"fmt"

	"github.com/godbus/dbus/v5"
)

// ErrNotFound is returned by the client when the daemon reports an unknown id.
var ErrNotFound = errors.New("toast not found")

// Client calls a running daemon over the session bus.
type Client struct {
	conn *dbus.Conn
	obj  dbus.BusObject
}

// NewClient connects to the session bus.
func NewClient() (*Client, error) {
	conn, err := dbus.ConnectSessionBus()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to session bus: %w", err)
	}
	return NewClientOn(conn), nil
}

// NewClientOn uses an existing connection.
func NewClientOn(conn *dbus.Conn) *Client {
	return &Client{conn: conn, obj: conn.Object(BusName, ObjectPath)}
}

// Close closes the connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

// Show raises a toast. A negative durationMs selects the daemon default.
func (c *Client) Show(ctx context.Context, kind, title, body string, durationMs int32) (string, error) {
	var id string
	if err := c.call(ctx, "Show", []any{&id}, kind, title, body, durationMs); err != nil {
		return "", err
	}
	return id, nil
}

// CloseToast closes a toast by id.
func (c *Client) CloseToast(ctx context.Context, id string) error {
	return c.call(ctx, "Close", nil, id)
}

// Dismiss dismisses a toast by id.
func (c *Client) Dismiss(ctx context.Context, id string) error {
	return c.call(ctx, "Dismiss", nil, id)
}

// CloseAll closes every live toast.
func (c *Client) CloseAll(ctx context.Context) (int, error) {
	var n uint32
	if err := c.call(ctx, "CloseAll", []any{&n}); err != nil {
		return 0, err
	}
	return int(n), nil
}

// PointerEnter pauses a toast.
func (c *Client) PointerEnter(ctx context.Context, id string) error {
	return c.call(ctx, "PointerEnter", nil, id)
}

// PointerLeave resumes a toast.
func (c *Client) PointerLeave(ctx context.Context, id string) error {
	return c.call(ctx, "PointerLeave", nil, id)
}

// List returns the daemon's stack.
func (c *Client) List(ctx context.Context) ([]ToastInfo, error) {
	var out []ToastInfo
	if err := c.call(ctx, "List", []any{&out}); err != nil {
		return nil, err
	}
	return out, nil
}

// Running reports whether a daemon owns BusName.
func (c *Client) Running(ctx context.Context) bool {
	var owner string
	err := c.conn.BusObject().CallWithContext(ctx, "org.freedesktop.DBus.GetNameOwner", 0, BusName).Store(&owner)
	return err == nil && owner != ""
}

func (c *Client) call(ctx context.Context, method string, out []any, args ...any) error {
	call := c.obj.CallWithContext(ctx, Interface+"."+method, 0, args...)
	if call.Err != nil {
		return clientError(method, call.Err)
	}
	if len(out) > 0 {
		if err := call.Store(out...); err != nil {
			return fmt.Errorf("failed to decode %s reply: %w", method, err)
		}
	}
	return nil
}

func clientError(method string, err error) error {
	var name string
	var busErr dbus.Error
	var busErrPtr *dbus.Error
	switch {
	case errors.As(err, &busErr):
		name = busErr.Name
	case errors.As(err, &busErrPtr):
		name = busErrPtr.Name
	}
	if name == ErrorNotFound {
		return fmt.Errorf("%s: %w", method, ErrNotFound)
	}
	return fmt.Errorf("%s failed: %w", method, err)
}
