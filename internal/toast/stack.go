package toast

// scheduleReflow queues a reposition after the reflow delay. Requests made
// while one is pending share it.
func (c *Center) scheduleReflow() {
	if c.reflow != nil {
		return
	}
	c.reflow = c.sched.AfterFunc(c.cfg.ReflowDelay, func() {
		c.reflow = nil
		c.Reposition()
	})
}

// Reposition measures every toast in stack order and assigns each the
// cumulative height of the toasts before it plus the gap. Toasts whose
// offset or height changed emit EventRepositioned.
func (c *Center) Reposition() {
	offset := 0
	for _, e := range c.active {
		t := e.toast
		h := c.measure.Measure(t)
		if t.Offset != offset || t.Height != h {
			t.Offset = offset
			t.Height = h
			c.emit(EventRepositioned, t)
		}
		offset += h + c.cfg.Gap
	}
}

// Offsets returns the current offsets in stack order.
func (c *Center) Offsets() []int {
	out := make([]int, len(c.active))
	for i, e := range c.active {
		out[i] = e.toast.Offset
	}
	return out
}
