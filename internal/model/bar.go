package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"
)

// ErrMalformedBar is returned for bars that cannot be fed to the indicator
// pipeline (NaN/Inf prices, negative volume, inverted range).
var ErrMalformedBar = errors.New("malformed bar")

// Bar is one OHLCV sample for a fixed period of a single instrument.
// Index is the bar's sequence number within its series; it is strictly
// increasing and never shared by two bars of the same series.
type Bar struct {
	Symbol    string    `json:"symbol"`
	Timeframe string    `json:"tf"`
	Index     int64     `json:"index"`
	TS        time.Time `json:"ts"` // period start (UTC)
	Open      float64   `json:"open"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Close     float64   `json:"close"`
	Volume    float64   `json:"volume"`
	Confirmed bool      `json:"confirmed"` // false while the period is still open
}

// Key returns "symbol:tf", the routing key of the bar's series.
func (b *Bar) Key() string {
	return b.Symbol + ":" + b.Timeframe
}

// Validate checks the bar's numeric fields. It does not look at Index
// ordering, which is the consumer's concern.
func (b *Bar) Validate() error {
	for _, f := range []struct {
		name string
		v    float64
	}{
		{"open", b.Open}, {"high", b.High}, {"low", b.Low}, {"close", b.Close}, {"volume", b.Volume},
	} {
		if math.IsNaN(f.v) || math.IsInf(f.v, 0) {
			return fmt.Errorf("%w: %s is %v at index %d", ErrMalformedBar, f.name, f.v, b.Index)
		}
	}
	if b.Volume < 0 {
		return fmt.Errorf("%w: negative volume %v at index %d", ErrMalformedBar, b.Volume, b.Index)
	}
	if b.High < b.Low {
		return fmt.Errorf("%w: high %v below low %v at index %d", ErrMalformedBar, b.High, b.Low, b.Index)
	}
	return nil
}

// HLC3 is the typical price used by VWAP.
func (b *Bar) HLC3() float64 {
	return (b.High + b.Low + b.Close) / 3
}

// JSON returns the JSON-encoded bar (ignoring errors for hot-path usage).
func (b *Bar) JSON() []byte {
	data, _ := json.Marshal(b)
	return data
}
