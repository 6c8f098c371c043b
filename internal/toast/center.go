// Package toast implements the notification center: the stack of ephemeral
// toasts, their timers and the surfaces that raise them.
package toast

import (
	"errors"
	"log/slog"
	"slices"
	"time"

	"github.com/jmylchreest/toastd/internal/model"
	"github.com/jmylchreest/toastd/internal/schedule"
)

// ContainerID is the stable identity of the mount point.
const ContainerID = "toastContainer"

// ErrNotFound is returned for ids the center does not hold.
var ErrNotFound = errors.New("toast not found")

// Container is the mount point toasts are stacked in. It is created on the
// first Show and again after Teardown.
type Container struct {
	ID        string
	MountedAt time.Time
}

// entry is a toast plus the timers the center holds for it.
type entry struct {
	toast     *model.Toast
	frame     schedule.Timer
	countdown schedule.Timer
	exit      schedule.Timer
}

func (e *entry) stopTimers() {
	for _, t := range []*schedule.Timer{&e.frame, &e.countdown, &e.exit} {
		if *t != nil {
			(*t).Stop()
			*t = nil
		}
	}
}

type subscription struct {
	id int
	fn Listener
}

// Center owns the toast stack. It is not safe for concurrent use: every
// method must run on the scheduler's goroutine. Use Service from other
// goroutines.
type Center struct {
	sched   schedule.Scheduler
	cfg     Config
	logger  *slog.Logger
	measure Measurer
	newID   func(time.Time) string

	container *Container
	active    []*entry
	byID      map[string]*entry
	reflow    schedule.Timer

	subs    []subscription
	nextSub int

	listening bool
	listenGen uint64
	unlisten  func()
}

// Option configures a Center.
type Option func(*Center)

// WithMeasurer sets how toast heights are measured for stacking.
func WithMeasurer(m Measurer) Option {
	return func(c *Center) {
		if m != nil {
			c.measure = m
		}
	}
}

// WithIDGenerator overrides toast id generation.
func WithIDGenerator(fn func(time.Time) string) Option {
	return func(c *Center) {
		if fn != nil {
			c.newID = fn
		}
	}
}

// New creates a center driven by sched.
func New(sched schedule.Scheduler, cfg Config, logger *slog.Logger, opts ...Option) *Center {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Center{
		sched:   sched,
		cfg:     cfg,
		logger:  logger,
		measure: FixedHeight(DefaultHeight),
		newID:   model.NewID,
		byID:    make(map[string]*entry),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Config returns the active configuration.
func (c *Center) Config() Config {
	return c.cfg
}

// UpdateConfig replaces the configuration. Running countdowns keep their
// durations; the next reposition uses the new gap.
func (c *Center) UpdateConfig(cfg Config) {
	old := c.cfg
	c.cfg = cfg
	c.logger.Debug("center config updated",
		"old_max_visible", old.MaxVisible,
		"new_max_visible", cfg.MaxVisible,
		"default_duration", cfg.DefaultDuration,
	)
	if len(c.active) > 0 {
		c.scheduleReflow()
	}
}

// Show appends a toast to the stack and returns its id. The toast is revealed
// on the next frame, after which its countdown starts.
func (c *Center) Show(opts model.Options) string {
	now := c.sched.Now()

	if _, known := model.ParseKind(opts.Kind); !known && opts.Kind != "" {
		c.logger.Debug("unknown toast kind, using info", "kind", opts.Kind)
	}

	c.ensureContainer(now)

	t := model.NewToast(c.newID(now), opts, int(c.cfg.DefaultDuration.Milliseconds()), now)

	if c.cfg.ReplaceSameKind {
		for _, e := range slices.Clone(c.active) {
			if e.toast.Kind == t.Kind {
				c.close(e, model.ReasonReplaced)
			}
		}
	}

	if c.cfg.MaxVisible > 0 {
		for c.liveCount() >= c.cfg.MaxVisible {
			oldest := c.oldestLive()
			if oldest == nil {
				break
			}
			c.close(oldest, model.ReasonEvicted)
		}
	}

	t.Height = c.measure.Measure(t)
	e := &entry{toast: t}
	c.active = append(c.active, e)
	c.byID[t.ID] = e
	c.emit(EventInserted, t)

	e.frame = c.sched.NextFrame(func() {
		e.frame = nil
		c.reveal(e)
	})
	c.scheduleReflow()

	c.logger.Debug("showed toast",
		"toast_id", t.ID,
		"kind", t.Kind,
		"duration_ms", t.DurationMs,
		"active", len(c.active),
	)
	return t.ID
}

func (c *Center) reveal(e *entry) {
	if err := e.toast.Start(c.sched.Now()); err != nil {
		c.logger.Debug("skipping reveal", "toast_id", e.toast.ID, "error", err)
		return
	}
	c.emit(EventVisible, e.toast)
	c.startCountdown(e)
}

func (c *Center) startCountdown(e *entry) {
	if e.toast.Persistent() {
		return
	}
	left := time.Duration(e.toast.RemainingAt(c.sched.Now())) * time.Millisecond
	e.countdown = c.sched.AfterFunc(left, func() {
		e.countdown = nil
		c.close(e, model.ReasonExpired)
	})
}

// Close begins the exit transition of a toast. Closing a toast that is
// already closing or gone is a no-op.
func (c *Center) Close(id string, reason model.CloseReason) error {
	e, ok := c.byID[id]
	if !ok {
		return ErrNotFound
	}
	c.close(e, reason)
	return nil
}

// Dismiss closes a toast as if its dismiss control was activated.
func (c *Center) Dismiss(id string) error {
	return c.Close(id, model.ReasonDismissed)
}

// CloseAll closes every live toast.
func (c *Center) CloseAll(reason model.CloseReason) int {
	n := 0
	for _, e := range slices.Clone(c.active) {
		if e.toast.State.Live() {
			c.close(e, reason)
			n++
		}
	}
	return n
}

func (c *Center) close(e *entry, reason model.CloseReason) {
	if !e.toast.State.Live() {
		return
	}
	e.stopTimers()
	if err := e.toast.BeginClose(c.sched.Now(), reason); err != nil {
		c.logger.Debug("close ignored", "toast_id", e.toast.ID, "error", err)
		return
	}
	c.emit(EventClosing, e.toast)

	e.exit = c.sched.AfterFunc(c.cfg.ExitDuration, func() {
		e.exit = nil
		c.destroy(e)
	})

	c.logger.Debug("closing toast", "toast_id", e.toast.ID, "reason", reason)
}

// TransitionEnd reports that the renderer finished a toast's exit
// transition, destroying it ahead of the fallback deadline.
func (c *Center) TransitionEnd(id string) error {
	e, ok := c.byID[id]
	if !ok {
		return ErrNotFound
	}
	if e.toast.State == model.StateClosing {
		c.destroy(e)
	}
	return nil
}

func (c *Center) destroy(e *entry) {
	e.stopTimers()
	if err := e.toast.Destroy(); err != nil {
		return
	}
	c.remove(e)
	c.emit(EventDestroyed, e.toast)
	c.scheduleReflow()
}

func (c *Center) remove(e *entry) {
	delete(c.byID, e.toast.ID)
	c.active = slices.DeleteFunc(c.active, func(other *entry) bool { return other == e })
}

// PointerEnter pauses a visible toast's countdown when pause on hover is
// enabled.
func (c *Center) PointerEnter(id string) error {
	e, ok := c.byID[id]
	if !ok {
		return ErrNotFound
	}
	if !c.cfg.PauseOnHover {
		return nil
	}
	return c.pause(e)
}

// Pause freezes a visible toast's countdown regardless of the hover setting.
func (c *Center) Pause(id string) error {
	e, ok := c.byID[id]
	if !ok {
		return ErrNotFound
	}
	return c.pause(e)
}

func (c *Center) pause(e *entry) error {
	if e.toast.State != model.StateVisible {
		return nil
	}
	if e.countdown != nil {
		e.countdown.Stop()
		e.countdown = nil
	}
	if err := e.toast.Pause(c.sched.Now()); err != nil {
		return err
	}
	c.emit(EventPaused, e.toast)
	return nil
}

// PointerLeave resumes a paused toast with the time it had left. A toast
// with nothing left closes immediately.
func (c *Center) PointerLeave(id string) error {
	e, ok := c.byID[id]
	if !ok {
		return ErrNotFound
	}
	if e.toast.State != model.StatePaused {
		return nil
	}
	if err := e.toast.Resume(c.sched.Now()); err != nil {
		if errors.Is(err, model.ErrExpired) {
			c.close(e, model.ReasonExpired)
			return nil
		}
		return err
	}
	c.emit(EventResumed, e.toast)
	c.startCountdown(e)
	return nil
}

// Resume is PointerLeave.
func (c *Center) Resume(id string) error { return c.PointerLeave(id) }

// Get returns a snapshot of a toast.
func (c *Center) Get(id string) (*model.Toast, bool) {
	e, ok := c.byID[id]
	if !ok {
		return nil, false
	}
	return e.toast.Clone(), true
}

// Active returns snapshots of every toast in stack order, including those
// still playing their exit transition.
func (c *Center) Active() []*model.Toast {
	out := make([]*model.Toast, 0, len(c.active))
	for _, e := range c.active {
		out = append(out, e.toast.Clone())
	}
	return out
}

// Len returns the number of toasts in the stack.
func (c *Center) Len() int {
	return len(c.active)
}

// Container returns the mount point, or nil when none exists.
func (c *Center) Container() *Container {
	if c.container == nil {
		return nil
	}
	cp := *c.container
	return &cp
}

// Teardown releases everything the center holds: timers, toasts, the mount
// point and the broadcast listener. The next Show mounts a fresh container.
func (c *Center) Teardown() {
	now := c.sched.Now()
	if c.reflow != nil {
		c.reflow.Stop()
		c.reflow = nil
	}
	for _, e := range slices.Clone(c.active) {
		e.stopTimers()
		if e.toast.State.Live() {
			_ = e.toast.BeginClose(now, model.ReasonClosed)
		}
		if err := e.toast.Destroy(); err == nil {
			c.emit(EventDestroyed, e.toast)
		}
	}
	c.active = nil
	c.byID = make(map[string]*entry)

	if c.unlisten != nil {
		c.unlisten()
		c.unlisten = nil
	}
	c.listening = false

	if c.container != nil {
		c.container = nil
		c.emit(EventUnmounted, nil)
	}
	c.logger.Debug("center torn down")
}

// Subscribe registers l for every subsequent event. The returned function
// removes it.
func (c *Center) Subscribe(l Listener) (unsubscribe func()) {
	c.nextSub++
	id := c.nextSub
	c.subs = append(c.subs, subscription{id: id, fn: l})
	return func() {
		c.subs = slices.DeleteFunc(c.subs, func(s subscription) bool { return s.id == id })
	}
}

func (c *Center) emit(typ EventType, t *model.Toast) {
	if len(c.subs) == 0 {
		return
	}
	ev := Event{Type: typ, At: c.sched.Now()}
	if t != nil {
		ev.Toast = t.Clone()
	}
	for _, s := range slices.Clone(c.subs) {
		s.fn(ev)
	}
}

func (c *Center) ensureContainer(now time.Time) {
	if c.container != nil {
		return
	}
	c.container = &Container{ID: ContainerID, MountedAt: now}
	c.emit(EventMounted, nil)
}

func (c *Center) liveCount() int {
	n := 0
	for _, e := range c.active {
		if e.toast.State.Live() {
			n++
		}
	}
	return n
}

func (c *Center) oldestLive() *entry {
	for _, e := range c.active {
		if e.toast.State.Live() {
			return e
		}
	}
	return nil
}
