package indicator

import (
	"math"

	"trading-signals/internal/model"
)

// Stochastic computes the KDJ-style oscillator:
//
//	rsv = (close - lowestLow) / (highestHigh - lowestLow) * 100
//	k   = SMA(rsv, m1)
//	d   = SMA(k, m2)
//
// rsv is exactly 50 when the window's range is flat.
type Stochastic struct {
	hh   *Extremum
	ll   *Extremum
	kSMA *SMA
	dSMA *SMA
}

// NewStochastic creates the oscillator with window n and smoothings m1, m2.
func NewStochastic(n, m1, m2 int) *Stochastic {
	return &Stochastic{
		hh:   NewHighest(n),
		ll:   NewLowest(n),
		kSMA: NewSMA(m1),
		dSMA: NewSMA(m2),
	}
}

// Update feeds one bar and returns k, d and their absolute spread.
func (s *Stochastic) Update(bar model.Bar) (k, d, spread float64) {
	hh := s.hh.Update(bar.High)
	ll := s.ll.Update(bar.Low)

	rsv := nan
	if s.hh.Ready() && s.ll.Ready() {
		rsv = RSV(bar.Close, hh, ll)
	}
	k = s.kSMA.Update(rsv)
	d = s.dSMA.Update(k)
	return k, d, math.Abs(k - d)
}

// RSV is the raw stochastic value with the flat-range fallback.
func RSV(close, highestHigh, lowestLow float64) float64 {
	if highestHigh == lowestLow {
		return 50.0
	}
	return (close - lowestLow) / (highestHigh - lowestLow) * 100.0
}
