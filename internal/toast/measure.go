package toast

import "github.com/jmylchreest/toastd/internal/model"

// DefaultHeight is the height assumed for a toast when no renderer measures it.
const DefaultHeight = 72

// Measurer reports the rendered height of a toast.
type Measurer interface {
	Measure(t *model.Toast) int
}

// MeasureFunc adapts a function to Measurer.
type MeasureFunc func(t *model.Toast) int

// Measure implements Measurer.
func (f MeasureFunc) Measure(t *model.Toast) int {
	return f(t)
}

// FixedHeight measures every toast as h.
func FixedHeight(h int) Measurer {
	return MeasureFunc(func(*model.Toast) int { return h })
}
