package indicator

import (
	"trading-signals/internal/markethours"
	"trading-signals/internal/model"
)

// VWAP is the session-anchored volume-weighted average of the typical price
// (hlc3). Accumulators reset when the bar's session day changes.
type VWAP struct {
	cal     *markethours.Calendar
	session int
	pv      float64
	vol     float64
	current float64
}

// NewVWAP creates a VWAP anchored to cal's session days.
func NewVWAP(cal *markethours.Calendar) *VWAP {
	if cal == nil {
		cal = markethours.New(nil)
	}
	return &VWAP{cal: cal, current: nan}
}

// Update feeds one bar. While the session has seen no volume the value is NaN.
func (v *VWAP) Update(bar model.Bar) float64 {
	if day := v.cal.SessionDay(bar.TS); day != v.session {
		v.session = day
		v.pv, v.vol = 0, 0
	}
	v.pv += bar.HLC3() * bar.Volume
	v.vol += bar.Volume
	if v.vol == 0 {
		v.current = nan
	} else {
		v.current = v.pv / v.vol
	}
	return v.current
}

func (v *VWAP) Value() float64 { return v.current }
