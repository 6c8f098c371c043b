package schedule

import (
	"context"
	"sync"
	"time"
)

// Fake is a Scheduler driven by a virtual clock. Callbacks run only inside
// Advance, in due-time order; callbacks due at the same instant run in the
// order they were scheduled. NextFrame and Post are due immediately.
type Fake struct {
	mu    sync.Mutex
	now   time.Time
	seq   uint64
	tasks []*fakeTask
}

type fakeTask struct {
	fake    *Fake
	at      time.Time
	seq     uint64
	fn      func()
	stopped bool
	fired   bool
}

// NewFake returns a fake scheduler whose clock starts at start.
func NewFake(start time.Time) *Fake {
	return &Fake{now: start}
}

// Now returns the virtual time.
func (f *Fake) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

// AfterFunc schedules fn at now+d.
func (f *Fake) AfterFunc(d time.Duration, fn func()) Timer {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	task := &fakeTask{fake: f, at: f.now.Add(d), seq: f.seq, fn: fn}
	f.tasks = append(f.tasks, task)
	return task
}

// NextFrame schedules fn at the current instant.
func (f *Fake) NextFrame(fn func()) Timer {
	return f.AfterFunc(0, fn)
}

// Post schedules fn at the current instant.
func (f *Fake) Post(fn func()) {
	f.AfterFunc(0, fn)
}

// Do runs fn inline.
func (f *Fake) Do(ctx context.Context, fn func()) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	fn()
	return nil
}

// Advance moves the clock forward by d, running every callback that becomes
// due, including ones scheduled by callbacks during the advance.
func (f *Fake) Advance(d time.Duration) {
	f.mu.Lock()
	target := f.now.Add(d)
	f.mu.Unlock()

	for {
		f.mu.Lock()
		task := f.nextDueLocked(target)
		if task == nil {
			f.now = target
			f.mu.Unlock()
			return
		}
		f.now = task.at
		task.fired = true
		f.mu.Unlock()

		task.fn()
	}
}

// Flush runs everything due at the current instant.
func (f *Fake) Flush() {
	f.Advance(0)
}

// Pending returns the number of scheduled callbacks that have neither run
// nor been stopped.
func (f *Fake) Pending() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.tasks)
}

func (f *Fake) nextDueLocked(target time.Time) *fakeTask {
	idx := -1
	for i, t := range f.tasks {
		if t.at.After(target) {
			continue
		}
		if idx < 0 || t.at.Before(f.tasks[idx].at) || (t.at.Equal(f.tasks[idx].at) && t.seq < f.tasks[idx].seq) {
			idx = i
		}
	}
	if idx < 0 {
		return nil
	}
	task := f.tasks[idx]
	f.tasks = append(f.tasks[:idx], f.tasks[idx+1:]...)
	return task
}

func (t *fakeTask) Stop() bool {
	f := t.fake
	f.mu.Lock()
	defer f.mu.Unlock()
	if t.stopped || t.fired {
		return false
	}
	t.stopped = true
	for i, other := range f.tasks {
		if other == t {
			f.tasks = append(f.tasks[:i], f.tasks[i+1:]...)
			break
		}
	}
	return true
}
