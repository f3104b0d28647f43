package indicator

import (
	"math"

	"trading-signals/internal/model"
)

// dxEpsilon floors the DI sum in the DX denominator.
const dxEpsilon = 1e-10

// ADX computes Wilder's directional movement system:
//
//	+DI = 100 * RMA(+DM, n) / RMA(TR, n)
//	-DI = 100 * RMA(-DM, n) / RMA(TR, n)
//	DX  = 100 * |+DI - -DI| / max(+DI + -DI, eps)
//	ADX = RMA(DX, smoothing)
//
// Directional movement needs a previous bar, so the smoothers start on the
// second bar. A zero true-range average yields DI = 0.
type ADX struct {
	plusDM, minusDM, tr *RMA
	adx                 *RMA

	prev model.Bar
	seen bool

	plusDI, minusDI, value float64
}

// NewADX creates an ADX with DI length n and ADX smoothing length smoothing.
func NewADX(n, smoothing int) *ADX {
	return &ADX{
		plusDM:  NewRMA(n),
		minusDM: NewRMA(n),
		tr:      NewRMA(n),
		adx:     NewRMA(smoothing),
		plusDI:  nan,
		minusDI: nan,
		value:   nan,
	}
}

// Update feeds one bar and returns ADX, +DI and -DI.
func (a *ADX) Update(bar model.Bar) (adx, plusDI, minusDI float64) {
	if !a.seen {
		a.prev = bar
		a.seen = true
		return a.value, a.plusDI, a.minusDI
	}

	upMove := bar.High - a.prev.High
	downMove := a.prev.Low - bar.Low
	pdm, mdm := 0.0, 0.0
	if upMove > 0 && upMove > downMove {
		pdm = upMove
	}
	if downMove > 0 && downMove > upMove {
		mdm = downMove
	}
	tr := math.Max(bar.High-bar.Low, math.Max(math.Abs(bar.High-a.prev.Close), math.Abs(bar.Low-a.prev.Close)))
	a.prev = bar

	sp := a.plusDM.Update(pdm)
	sm := a.minusDM.Update(mdm)
	st := a.tr.Update(tr)

	if !a.tr.Ready() {
		return a.value, a.plusDI, a.minusDI
	}
	if st == 0 {
		a.plusDI, a.minusDI = 0, 0
	} else {
		a.plusDI = 100.0 * sp / st
		a.minusDI = 100.0 * sm / st
	}
	dx := 100.0 * math.Abs(a.plusDI-a.minusDI) / math.Max(a.plusDI+a.minusDI, dxEpsilon)
	a.value = a.adx.Update(dx)
	return a.value, a.plusDI, a.minusDI
}

func (a *ADX) Value() float64 { return a.value }
func (a *ADX) Ready() bool    { return a.adx.Ready() }
