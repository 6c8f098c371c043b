package dbus

import (
	"context"
	"strings"

	"github.com/godbus/dbus/v5"

	"github.com/jmylchreest/toastd/internal/model"
)

const (
	// BusName is the well-known name claimed by the daemon.
	BusName = "io.github.jmylchreest.Toastd"
	// ObjectPath is the path of the toast object.
	ObjectPath = dbus.ObjectPath("/io/github/jmylchreest/Toastd")
	// Interface is the toast interface name.
	Interface = "io.github.jmylchreest.Toastd1"

	// ErrorNotFound is returned when an id names no active toast.
	ErrorNotFound = Interface + ".Error.NotFound"
	// ErrorFailed is returned for any other failure.
	ErrorFailed = Interface + ".Error.Failed"

	notificationsInterface = "org.freedesktop.Notifications"
)

// Backend is what the bus object drives. *toast.Service satisfies it.
type Backend interface {
	Show(ctx context.Context, opts model.Options) (string, error)
	Close(ctx context.Context, id string, reason model.CloseReason) error
	Dismiss(ctx context.Context, id string) error
	CloseAll(ctx context.Context, reason model.CloseReason) (int, error)
	PointerEnter(ctx context.Context, id string) error
	PointerLeave(ctx context.Context, id string) error
	Active(ctx context.Context) ([]*model.Toast, error)
}

// ToastInfo is one entry of List, marshalled as (sssssii).
type ToastInfo struct {
	ID          string
	Kind        string
	Title       string
	Body        string
	State       string
	DurationMs  int32
	RemainingMs int32
}

// NewToastInfo converts a toast snapshot.
func NewToastInfo(t *model.Toast) ToastInfo {
	return ToastInfo{
		ID:          t.ID,
		Kind:        string(t.Kind),
		Title:       t.Title,
		Body:        t.Body,
		State:       t.State.String(),
		DurationMs:  int32(t.DurationMs),
		RemainingMs: int32(t.RemainingMs),
	}
}

// Urgency levels of the freedesktop notification hints.
const (
	UrgencyLow      = 0
	UrgencyNormal   = 1
	UrgencyCritical = 2
)

// Notification is a parsed org.freedesktop.Notifications.Notify call.
type Notification struct {
	AppName       string
	Summary       string
	Body          string
	Hints         map[string]dbus.Variant
	ExpireTimeout int32 // -1 = server default, 0 = never expire
}

// Urgency extracts the urgency hint, UrgencyNormal if absent.
func (n *Notification) Urgency() int {
	if v, ok := n.Hints["urgency"]; ok {
		if b, ok := v.Value().(byte); ok {
			return int(b)
		}
	}
	return UrgencyNormal
}

// Category extracts the category hint.
func (n *Notification) Category() string {
	if v, ok := n.Hints["category"]; ok {
		if s, ok := v.Value().(string); ok {
			return s
		}
	}
	return ""
}

// Transient reports whether the transient hint is set.
func (n *Notification) Transient() bool {
	if v, ok := n.Hints["transient"]; ok {
		if b, ok := v.Value().(bool); ok {
			return b
		}
	}
	return false
}

// Kind maps urgency and category onto a toast kind.
func (n *Notification) Kind() model.Kind {
	if n.Urgency() == UrgencyCritical {
		return model.KindError
	}
	category := n.Category()
	switch {
	case strings.HasSuffix(category, ".error"):
		return model.KindError
	case strings.HasSuffix(category, ".complete"), strings.HasSuffix(category, ".online"):
		return model.KindSuccess
	case strings.HasSuffix(category, ".offline"), strings.HasPrefix(category, "device.removed"):
		return model.KindWarning
	}
	return model.KindInfo
}

// Options converts the notification into toast options. A server-default
// timeout keeps the configured default; zero persists.
func (n *Notification) Options() model.Options {
	opts := model.Options{
		Kind:  string(n.Kind()),
		Title: n.Summary,
		Body:  n.Body,
	}
	if opts.Title == "" {
		opts.Title = n.AppName
	}
	if n.ExpireTimeout >= 0 {
		opts.DurationMs = model.Ms(int(n.ExpireTimeout))
	}
	return opts
}
