package indicator

import (
	"trading-signals/internal/model"
	"trading-signals/internal/ringbuf"
)

// SMA calculates Simple Moving Average over a rolling window.
// The window is a preallocated ring, so the hot path never allocates.
type SMA struct {
	period  int
	window  *ringbuf.History[float64]
	sum     float64
	current float64
}

// NewSMA creates a new SMA indicator with the given period.
func NewSMA(period int) *SMA {
	return &SMA{
		period:  period,
		window:  ringbuf.New[float64](period),
		current: nan,
	}
}

func (s *SMA) Name() string { return model.SeriesName("SMA", s.period) }

func (s *SMA) Update(v float64) float64 {
	if isNaN(v) {
		return s.current
	}
	if old, evicted := s.window.Push(v); evicted {
		s.sum -= old
	}
	s.sum += v

	if s.window.Full() {
		s.current = s.sum / float64(s.period)
	}
	return s.current
}

func (s *SMA) Value() float64 { return s.current }
func (s *SMA) Ready() bool    { return s.window.Full() }

// Reset clears the SMA state for reuse.
func (s *SMA) Reset() {
	s.window.Reset()
	s.sum = 0
	s.current = nan
}
