package indicator

import "trading-signals/internal/model"

// RMA calculates Wilder's moving average (smoothed moving average).
// First value is SMA(period), then RMA = (prev*(period-1) + x) / period.
type RMA struct {
	period  int
	count   int
	sum     float64
	current float64
}

// NewRMA creates a new RMA indicator with the given period.
func NewRMA(period int) *RMA {
	return &RMA{period: period, current: nan}
}

func (r *RMA) Name() string { return model.SeriesName("RMA", r.period) }

func (r *RMA) Update(v float64) float64 {
	if isNaN(v) {
		return r.current
	}
	r.count++

	if r.count <= r.period {
		// Accumulate for initial SMA seed
		r.sum += v
		if r.count == r.period {
			r.current = r.sum / float64(r.period)
		}
		return r.current
	}

	r.current = (r.current*float64(r.period-1) + v) / float64(r.period)
	return r.current
}

func (r *RMA) Value() float64 { return r.current }
func (r *RMA) Ready() bool    { return r.count >= r.period }

// Reset clears the RMA state for reuse.
func (r *RMA) Reset() {
	r.count = 0
	r.sum = 0
	r.current = nan
}
