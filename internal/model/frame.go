package model

import (
	"encoding/json"
	"math"
)

// Frame is the indicator state attached to one confirmed bar. Any field that
// is not available yet (insufficient history) holds NaN.
type Frame struct {
	Bar Bar

	K, D, Spread float64 // stochastic
	KPeak, DPeak float64 // highest K/D over the overbought lookback

	MACD, MACDSignal float64
	RSI              float64

	ATR, ATRAvg          float64
	ADX, PlusDI, MinusDI float64
	VWAP                 float64
	VolumeAvg            float64
	MASelected           float64 // adaptive MA for the timeframe class
	MA20, MA60           float64
	MA100, MA200         float64
	RecentHigh           float64 // highest high over the combo lookback

	// Display carries the optional chart MAs keyed by SeriesName.
	Display map[string]float64
}

// Available reports whether an indicator value has been produced.
func Available(v float64) bool { return !math.IsNaN(v) }

// NewFrame returns a frame for bar with every indicator unavailable.
func NewFrame(bar Bar) Frame {
	nan := math.NaN()
	f := Frame{Bar: bar}
	f.K, f.D, f.Spread, f.KPeak, f.DPeak = nan, nan, nan, nan, nan
	f.MACD, f.MACDSignal, f.RSI = nan, nan, nan
	f.ATR, f.ATRAvg, f.ADX, f.PlusDI, f.MinusDI = nan, nan, nan, nan, nan
	f.VWAP, f.VolumeAvg, f.MASelected, f.RecentHigh = nan, nan, nan, nan
	f.MA20, f.MA60, f.MA100, f.MA200 = nan, nan, nan, nan
	return f
}

type frameJSON struct {
	K          *float64            `json:"k"`
	D          *float64            `json:"d"`
	Spread     *float64            `json:"spread"`
	MACD       *float64            `json:"macd"`
	MACDSignal *float64            `json:"macd_signal"`
	RSI        *float64            `json:"rsi"`
	ATR        *float64            `json:"atr"`
	ATRAvg     *float64            `json:"atr_avg"`
	ADX        *float64            `json:"adx"`
	PlusDI     *float64            `json:"plus_di"`
	MinusDI    *float64            `json:"minus_di"`
	VWAP       *float64            `json:"vwap"`
	VolumeAvg  *float64            `json:"volume_avg"`
	MASelected *float64            `json:"ma"`
	MA20       *float64            `json:"ma20"`
	MA60       *float64            `json:"ma60"`
	MA100      *float64            `json:"ma100"`
	MA200      *float64            `json:"ma200"`
	RecentHigh *float64            `json:"recent_high"`
	KPeak      *float64            `json:"k_peak"`
	DPeak      *float64            `json:"d_peak"`
	Display    map[string]*float64 `json:"display,omitempty"`
}

func opt(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

// MarshalJSON encodes unavailable values as null; encoding/json rejects NaN.
// The bar itself is not repeated, it travels on the enclosing event.
func (f Frame) MarshalJSON() ([]byte, error) {
	out := frameJSON{
		K: opt(f.K), D: opt(f.D), Spread: opt(f.Spread),
		MACD: opt(f.MACD), MACDSignal: opt(f.MACDSignal), RSI: opt(f.RSI),
		ATR: opt(f.ATR), ATRAvg: opt(f.ATRAvg),
		ADX: opt(f.ADX), PlusDI: opt(f.PlusDI), MinusDI: opt(f.MinusDI),
		VWAP: opt(f.VWAP), VolumeAvg: opt(f.VolumeAvg), MASelected: opt(f.MASelected),
		MA20: opt(f.MA20), MA60: opt(f.MA60), MA100: opt(f.MA100), MA200: opt(f.MA200),
		RecentHigh: opt(f.RecentHigh), KPeak: opt(f.KPeak), DPeak: opt(f.DPeak),
	}
	if len(f.Display) > 0 {
		out.Display = make(map[string]*float64, len(f.Display))
		for k, v := range f.Display {
			out.Display[k] = opt(v)
		}
	}
	return json.Marshal(out)
}
