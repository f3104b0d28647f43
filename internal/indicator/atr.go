package indicator

import (
	"math"

	"trading-signals/internal/model"
)

// TrueRange tracks the previous close and returns max(high-low,
// |high-prevClose|, |low-prevClose|). The first bar has no previous close and
// uses high-low.
type TrueRange struct {
	prevClose float64
	seen      bool
}

func (t *TrueRange) Update(bar model.Bar) float64 {
	tr := bar.High - bar.Low
	if t.seen {
		tr = math.Max(tr, math.Max(math.Abs(bar.High-t.prevClose), math.Abs(bar.Low-t.prevClose)))
	}
	t.prevClose = bar.Close
	t.seen = true
	return tr
}

// ATR is the Wilder-smoothed average true range.
type ATR struct {
	tr  TrueRange
	rma *RMA
}

// NewATR creates an ATR with the given smoothing length.
func NewATR(period int) *ATR {
	return &ATR{rma: NewRMA(period)}
}

func (a *ATR) Update(bar model.Bar) float64 {
	return a.rma.Update(a.tr.Update(bar))
}

func (a *ATR) Value() float64 { return a.rma.Value() }
func (a *ATR) Ready() bool    { return a.rma.Ready() }
