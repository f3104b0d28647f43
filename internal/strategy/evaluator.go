package strategy

import (
	"math"

	"trading-signals/internal/model"
	"trading-signals/internal/ringbuf"
)

// Evaluator turns the recent indicator frames into base and plus signal
// flags. It holds no state of its own: the result is a function of the
// frames in the lookback window and the configuration.
type Evaluator struct {
	cfg      Config
	cross    CrossDetector
	intraday bool
}

// NewEvaluator creates an evaluator for one timeframe.
func NewEvaluator(cfg Config, tf model.Timeframe) *Evaluator {
	return &Evaluator{
		cfg:      cfg,
		cross:    CrossDetector{MinSpreadL: cfg.MinSpreadL, MinSpreadR: cfg.MinSpreadR},
		intraday: tf.Intraday,
	}
}

// window gives lagged access to frames; age 0 is the newest bar.
// Any lookup before the start of the series reports unavailable.
type window struct {
	h *ringbuf.History[model.Frame]
}

func (w window) at(age int) (model.Frame, bool) { return w.h.Ago(age) }

func (w window) close(age int) float64 {
	f, ok := w.at(age)
	if !ok {
		return math.NaN()
	}
	return f.Bar.Close
}

// bullish: close > open, or close > previous close.
func (w window) bullish(age int) bool {
	f, ok := w.at(age)
	return ok && (f.Bar.Close > f.Bar.Open || f.Bar.Close > w.close(age+1))
}

func (w window) bearish(age int) bool {
	f, ok := w.at(age)
	return ok && (f.Bar.Close < f.Bar.Open || f.Bar.Close < w.close(age+1))
}

// prevBearish: the bar before age closed at or below its open and at or
// below the close before it.
func (w window) prevBearish(age int) bool {
	f, ok := w.at(age + 1)
	return ok && f.Bar.Close <= f.Bar.Open && f.Bar.Close <= w.close(age+2)
}

func (w window) aboveMA(age int) bool {
	f, ok := w.at(age)
	return ok && f.Bar.Close > f.MASelected
}

func (e *Evaluator) crossesAt(w window, age int) Crosses {
	cur, ok := w.at(age)
	if !ok {
		return Crosses{}
	}
	prev, ok := w.at(age + 1)
	if !ok {
		return Crosses{}
	}
	return e.cross.Detect(prev, cur)
}

func (e *Evaluator) overboughtOK(w window, age int) bool {
	if !e.cfg.UseOverboughtGate {
		return true
	}
	f, ok := w.at(age)
	return ok && math.Max(f.KPeak, f.DPeak) >= e.cfg.OverboughtBand
}

// Evaluate computes the flags of the newest frame in h.
func (e *Evaluator) Evaluate(h *ringbuf.History[model.Frame]) model.SignalFlags {
	w := window{h: h}
	cur, ok := w.at(0)
	if !ok {
		return model.SignalFlags{}
	}
	now := e.crossesAt(w, 0)
	flags := model.SignalFlags{BreakDown: now.BreakDown, BreakUp: now.BreakUp}

	// Base long and risk core
	var lBase, rCore bool
	if e.cfg.UseSignalDelay {
		// the event is two bars back, its confirmation one bar back;
		// the pause branch (prevBearish) is implied by the plain one here
		lagged := e.crossesAt(w, 2)
		lBase = lagged.BreakDown && w.bullish(1) && w.aboveMA(1)
		rCore = lagged.BreakUp && w.bearish(1) && w.aboveMA(1) && e.overboughtOK(w, 1)
	} else {
		bdPrev := e.crossesAt(w, 1).BreakDown
		lBase = w.aboveMA(0) && w.bullish(0) && (now.BreakDown || (bdPrev && w.prevBearish(0)))

		bu := now.BreakUp
		if e.cfg.RiskFollowThrough {
			bu = e.crossesAt(w, 1).BreakUp
		}
		rCore = bu && w.bearish(0) && w.aboveMA(0) && e.overboughtOK(w, 0)
	}
	combo := e.topRSICombo(w, cur)
	rBase := rCore || combo
	flags.RiskCore, flags.RiskCombo = rCore, combo

	// Confirmations on the current bar
	bar := cur.Bar
	checkVWAP := e.cfg.UseVWAP && e.intraday
	aboveVWAP := !checkVWAP || bar.Close >= cur.VWAP
	belowVWAP := !checkVWAP || bar.Close <= cur.VWAP
	volOK := bar.Volume > cur.VolumeAvg*e.cfg.VolumeMultiplier
	bullMACD := cur.MACD > cur.MACDSignal
	bearMACD := cur.MACD < cur.MACDSignal

	var slopeUp, slopeDown bool
	if past, ok := w.at(e.cfg.SlopeLength); ok {
		slopeUp = cur.MASelected > past.MASelected
		slopeDown = cur.MASelected < past.MASelected
	}

	lPlus := lBase && aboveVWAP && volOK && bullMACD && (!e.cfg.UseSlopeFilter || slopeUp)
	confirmations := countTrue(belowVWAP, volOK, bearMACD, slopeDown)
	rPlus := rBase && confirmations >= e.cfg.MinRPlusConfirmations

	// Market regime: always on the plus signals, on the base ones when asked
	marketOK := e.marketOK(cur)
	flags.MarketOK = marketOK
	flags.LPlus = lPlus && marketOK
	flags.RPlus = rPlus && marketOK
	flags.LBase, flags.RBase = lBase, rBase
	if e.cfg.ApplyRegimeToBase {
		flags.LBase = lBase && marketOK
		flags.RBase = rBase && marketOK
	}
	return flags
}

// topRSICombo is the additive near-high + RSI bearish divergence branch.
func (e *Evaluator) topRSICombo(w window, cur model.Frame) bool {
	if !e.cfg.UseTopRSICombo {
		return false
	}
	bar := cur.Bar
	nearHigh := bar.High >= cur.RecentHigh*(1-e.cfg.TopTolerancePct/100.0)
	if !nearHigh || !w.bearish(0) {
		return false
	}
	if e.cfg.ComboRequireAboveMA && !w.aboveMA(0) {
		return false
	}
	past, ok := w.at(e.cfg.TopLookback)
	if !ok {
		return false
	}
	higherHigh := bar.High > past.Bar.High
	rsiPrev := past.RSI
	if math.IsNaN(rsiPrev) {
		rsiPrev = cur.RSI
	}
	lowerRSI := cur.RSI < rsiPrev
	return higherHigh && lowerRSI && cur.RSI > 60
}

func (e *Evaluator) marketOK(f model.Frame) bool {
	atrOK := !e.cfg.UseATRFilter || f.ATR > f.ATRAvg*e.cfg.ATRMultiplier
	adxOK := !e.cfg.UseADXFilter || f.ADX > e.cfg.ADXThreshold
	return atrOK && adxOK
}

func countTrue(conds ...bool) int {
	n := 0
	for _, c := range conds {
		if c {
			n++
		}
	}
	return n
}
