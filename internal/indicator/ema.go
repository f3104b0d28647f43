package indicator

import "trading-signals/internal/model"

// EMA calculates Exponential Moving Average with smoothing factor
// 2/(period+1). It is seeded by the first input and is ready from then on.
// O(1) per update, no window storage needed.
type EMA struct {
	period     int
	multiplier float64
	current    float64
	seeded     bool
}

// NewEMA creates a new EMA indicator with the given period.
func NewEMA(period int) *EMA {
	return &EMA{
		period:     period,
		multiplier: 2.0 / float64(period+1),
		current:    nan,
	}
}

func (e *EMA) Name() string { return model.SeriesName("EMA", e.period) }

func (e *EMA) Update(v float64) float64 {
	if isNaN(v) {
		return e.current
	}
	if !e.seeded {
		e.current = v
		e.seeded = true
		return e.current
	}
	// EMA = (Price * multiplier) + (EMA_prev * (1 - multiplier))
	e.current = (v * e.multiplier) + (e.current * (1 - e.multiplier))
	return e.current
}

func (e *EMA) Value() float64 { return e.current }
func (e *EMA) Ready() bool    { return e.seeded }

// Reset clears the EMA state for reuse.
func (e *EMA) Reset() {
	e.current = nan
	e.seeded = false
}
