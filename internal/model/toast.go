// Package model defines the core data structures for toastd.
package model

import (
	"crypto/rand"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
)

// DefaultDurationMs is the auto-dismiss delay applied when a caller does not
// provide one.
const DefaultDurationMs = 5000

// Kind is the visual category of a toast.
type Kind string

const (
	KindSuccess Kind = "success"
	KindError   Kind = "error"
	KindWarning Kind = "warning"
	KindInfo    Kind = "info"
)

// KindLabels maps kinds to the title used when a toast has no text at all.
var KindLabels = map[Kind]string{
	KindSuccess: "Success",
	KindError:   "Error",
	KindWarning: "Warning",
	KindInfo:    "Info",
}

// Kinds returns all kinds in display order.
func Kinds() []Kind {
	return []Kind{KindSuccess, KindError, KindWarning, KindInfo}
}

// ParseKind resolves a kind name. Unknown or empty names resolve to KindInfo
// and report ok=false.
func ParseKind(s string) (Kind, bool) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	if _, known := KindLabels[k]; known {
		return k, true
	}
	return KindInfo, false
}

// Label returns the human-readable kind name.
func (k Kind) Label() string {
	if l, ok := KindLabels[k]; ok {
		return l
	}
	return KindLabels[KindInfo]
}

// Validation and lifecycle errors.
var (
	ErrInvalidTransition = errors.New("invalid state transition")
	ErrAlreadyClosing    = errors.New("toast is already closing")
	ErrExpired           = errors.New("toast has no time remaining")
	ErrEmptyID           = errors.New("id cannot be empty")
)

// NewID returns a new ULID string for a toast created at now.
func NewID(now time.Time) string {
	return ulid.MustNew(ulid.Timestamp(now), rand.Reader).String()
}

// Toast is a single notification tracked by a center. It is a plain record:
// methods only move it through its state machine and never schedule work.
type Toast struct {
	ID          string      `json:"id"`
	Kind        Kind        `json:"kind"`
	Title       string      `json:"title"`
	Body        string      `json:"body"`
	DurationMs  int         `json:"duration_ms"`
	RemainingMs int         `json:"remaining_ms"`
	State       State       `json:"state"`
	CreatedAt   time.Time   `json:"created_at"`
	VisibleAt   time.Time   `json:"visible_at,omitzero"`
	ClosedAt    time.Time   `json:"closed_at,omitzero"`
	Reason      CloseReason `json:"reason,omitempty"`
	Offset      int         `json:"offset"`
	Height      int         `json:"height"`

	// anchor is the instant the running countdown last (re)started.
	anchor time.Time
}

// NewToast builds a Pending toast from normalized options.
func NewToast(id string, opts Options, defaultMs int, now time.Time) *Toast {
	kind, _ := ParseKind(opts.Kind)
	duration := defaultMs
	if opts.DurationMs != nil {
		duration = *opts.DurationMs
	}
	if duration < 0 {
		duration = 0
	}

	title := opts.Title
	if title == "" && opts.Body == "" {
		title = kind.Label()
	}

	return &Toast{
		ID:          id,
		Kind:        kind,
		Title:       title,
		Body:        opts.Body,
		DurationMs:  duration,
		RemainingMs: duration,
		State:       StatePending,
		CreatedAt:   now,
	}
}

// Persistent reports whether the toast stays until explicitly closed.
func (t *Toast) Persistent() bool {
	return t.DurationMs <= 0
}

func (t *Toast) transition(to State) error {
	if !t.State.CanTransition(to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, t.State, to)
	}
	t.State = to
	return nil
}

// Start reveals a pending toast and starts its countdown at now.
func (t *Toast) Start(now time.Time) error {
	if err := t.transition(StateVisible); err != nil {
		return err
	}
	t.VisibleAt = now
	t.anchor = now
	t.RemainingMs = t.DurationMs
	return nil
}

// RemainingAt returns the countdown time left at now. Outside the Visible
// state the value is frozen.
func (t *Toast) RemainingAt(now time.Time) int {
	if t.Persistent() {
		return 0
	}
	if t.State != StateVisible {
		return t.RemainingMs
	}
	left := t.RemainingMs - int(now.Sub(t.anchor).Milliseconds())
	return clamp(left, 0, t.DurationMs)
}

// Pause freezes the countdown.
func (t *Toast) Pause(now time.Time) error {
	remaining := t.RemainingAt(now)
	if err := t.transition(StatePaused); err != nil {
		return err
	}
	t.RemainingMs = remaining
	return nil
}

// Resume restarts the countdown with the frozen remaining time. It returns
// ErrExpired, leaving the toast paused, when nothing remains.
func (t *Toast) Resume(now time.Time) error {
	if t.State != StatePaused {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, t.State, StateVisible)
	}
	if !t.Persistent() && t.RemainingMs <= 0 {
		return ErrExpired
	}
	t.State = StateVisible
	t.anchor = now
	return nil
}

// BeginClose starts the exit phase.
func (t *Toast) BeginClose(now time.Time, reason CloseReason) error {
	if t.State == StateClosing || t.State == StateDestroyed {
		return ErrAlreadyClosing
	}
	remaining := t.RemainingAt(now)
	if err := t.transition(StateClosing); err != nil {
		return err
	}
	t.RemainingMs = remaining
	t.ClosedAt = now
	t.Reason = reason
	return nil
}

// Destroy marks a closing toast as removed.
func (t *Toast) Destroy() error {
	return t.transition(StateDestroyed)
}

// Progress returns the fraction of the countdown left, in [0, 1].
// Persistent toasts always report 1.
func (t *Toast) Progress(now time.Time) float64 {
	if t.Persistent() {
		return 1
	}
	return float64(t.RemainingAt(now)) / float64(t.DurationMs)
}

// Countdown describes the running progress bar: it starts at fraction and
// shrinks linearly to zero over run. ok is false when no countdown runs.
func (t *Toast) Countdown(now time.Time) (fraction float64, run time.Duration, ok bool) {
	if t.Persistent() || t.State != StateVisible {
		return 0, 0, false
	}
	left := t.RemainingAt(now)
	return float64(left) / float64(t.DurationMs), time.Duration(left) * time.Millisecond, true
}

// Clone returns a copy safe to hand outside the owning goroutine.
func (t *Toast) Clone() *Toast {
	c := *t
	return &c
}

// Lifetime is how long the toast has existed, measured up to the close if it
// has begun closing.
func (t *Toast) Lifetime(now time.Time) time.Duration {
	if !t.ClosedAt.IsZero() {
		return t.ClosedAt.Sub(t.CreatedAt)
	}
	return now.Sub(t.CreatedAt)
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
