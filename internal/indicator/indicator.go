// Package indicator provides incremental technical indicator calculations.
//
// Every indicator owns its minimal recurrence state and is updated once per
// confirmed bar. A value that cannot be computed yet is reported as NaN;
// feeding NaN into a single-input indicator is a no-op, so chained
// indicators start counting only once their input becomes available.
package indicator

import (
	"fmt"
	"math"
)

// Series is a single-input incremental transform (SMA, EMA, RMA, RSI, ...).
type Series interface {
	// Name returns the indicator name (e.g., "SMA_20", "EMA_9").
	Name() string

	// Update feeds the next input value and returns the new output,
	// NaN while warming up. A NaN input leaves the state untouched.
	Update(v float64) float64

	// Value returns the current output, NaN if not ready.
	Value() float64

	// Ready returns true when enough data has been accumulated.
	Ready() bool

	// Reset clears the state for reuse.
	Reset()
}

// Config specifies a single-input indicator to build with New.
type Config struct {
	Type   string `json:"type" yaml:"type" validate:"oneof=SMA EMA RMA RSI"`
	Period int    `json:"period" yaml:"period" validate:"min=1,max=1000"`
}

// New builds the Series described by cfg.
func New(cfg Config) (Series, error) {
	if cfg.Period < 1 {
		return nil, fmt.Errorf("indicator %s: period must be >= 1, got %d", cfg.Type, cfg.Period)
	}
	switch cfg.Type {
	case "SMA":
		return NewSMA(cfg.Period), nil
	case "EMA":
		return NewEMA(cfg.Period), nil
	case "RMA":
		return NewRMA(cfg.Period), nil
	case "RSI":
		return NewRSI(cfg.Period), nil
	}
	return nil, fmt.Errorf("unknown indicator type %q", cfg.Type)
}

var nan = math.NaN()

func isNaN(v float64) bool { return v != v }
