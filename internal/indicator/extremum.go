package indicator

import "trading-signals/internal/model"

type sample struct {
	seq int
	v   float64
}

// Extremum tracks the rolling highest (or lowest) value over the last period
// inputs with a monotonic deque, amortised O(1) per update.
type Extremum struct {
	period  int
	highest bool
	seq     int // inputs seen
	deque   []sample
	head    int
}

// NewHighest returns a rolling maximum over period inputs.
func NewHighest(period int) *Extremum {
	return &Extremum{period: period, highest: true, deque: make([]sample, 0, period+1)}
}

// NewLowest returns a rolling minimum over period inputs.
func NewLowest(period int) *Extremum {
	return &Extremum{period: period, deque: make([]sample, 0, period+1)}
}

func (e *Extremum) Name() string {
	if e.highest {
		return model.SeriesName("HIGHEST", e.period)
	}
	return model.SeriesName("LOWEST", e.period)
}

// dominates reports whether a makes b irrelevant for the window.
func (e *Extremum) dominates(a, b float64) bool {
	if e.highest {
		return a >= b
	}
	return a <= b
}

func (e *Extremum) Update(v float64) float64 {
	if isNaN(v) {
		return e.Value()
	}
	for len(e.deque) > e.head && e.dominates(v, e.deque[len(e.deque)-1].v) {
		e.deque = e.deque[:len(e.deque)-1]
	}
	e.deque = append(e.deque, sample{seq: e.seq, v: v})
	e.seq++

	// drop the front once it slides out of the window
	if e.deque[e.head].seq <= e.seq-1-e.period {
		e.head++
	}
	// compact so the backing array stays bounded
	if e.head > e.period {
		n := copy(e.deque, e.deque[e.head:])
		e.deque = e.deque[:n]
		e.head = 0
	}
	return e.Value()
}

func (e *Extremum) Value() float64 {
	if !e.Ready() {
		return nan
	}
	return e.deque[e.head].v
}

func (e *Extremum) Ready() bool { return e.seq >= e.period }

func (e *Extremum) Reset() {
	e.seq = 0
	e.deque = e.deque[:0]
	e.head = 0
}
