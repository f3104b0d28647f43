package strategy

import "trading-signals/internal/model"

// CrossLevels are the oscillator levels watched for K and D crosses.
var CrossLevels = [...]float64{20, 50, 80}

// CrossUnder is true when the series moved from at-or-above level to below it.
func CrossUnder(prev, cur, level float64) bool {
	return prev >= level && cur < level
}

// CrossOver is true when the series moved from at-or-below level to above it.
func CrossOver(prev, cur, level float64) bool {
	return prev <= level && cur > level
}

// Crosses are the composite cross events of one bar.
type Crosses struct {
	BreakDown bool // K or D crossed under a level, spread >= long threshold
	BreakUp   bool // K or D crossed over a level, spread >= risk threshold
}

// CrossDetector finds level crosses of K and D between two consecutive
// frames, gated by the K-D spread of the current frame.
type CrossDetector struct {
	MinSpreadL float64
	MinSpreadR float64
}

// Detect evaluates the step prev -> cur. Unavailable values never cross.
func (c CrossDetector) Detect(prev, cur model.Frame) Crosses {
	var under, over bool
	for _, lvl := range CrossLevels {
		if CrossUnder(prev.K, cur.K, lvl) || CrossUnder(prev.D, cur.D, lvl) {
			under = true
		}
		if CrossOver(prev.K, cur.K, lvl) || CrossOver(prev.D, cur.D, lvl) {
			over = true
		}
	}
	return Crosses{
		BreakDown: under && cur.Spread >= c.MinSpreadL,
		BreakUp:   over && cur.Spread >= c.MinSpreadR,
	}
}
