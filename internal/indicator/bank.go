package indicator

import (
	"fmt"

	"trading-signals/internal/markethours"
	"trading-signals/internal/model"
)

// Fixed lengths of the market-regime indicators and reference MAs.
const (
	ATRLength    = 14
	ATRAvgLength = 20
	ADXLength    = 14
	ADXSmoothing = 14
)

// ReferenceMALengths are the adaptive MA candidates, also published on every frame.
var ReferenceMALengths = [...]int{20, 60, 100, 200}

// BankConfig sizes every indicator of a Bank.
type BankConfig struct {
	KDJPeriod, KSmooth, DSmooth    int
	MACDFast, MACDSlow, MACDSignal int
	RSILength                      int
	TopLookback                    int // rolling-high window of the divergence combo
	OBLookback                     int // K/D peak window of the overbought gate
	MALength                       int // adaptive reference MA
	VolumeLength                   int
	Display                        []Config
	Calendar                       *markethours.Calendar // VWAP sessions; nil = UTC days
}

type displaySeries struct {
	name   string
	series Series
}

// Bank computes the full indicator frame for one instrument, one bar at a
// time. It is not safe for concurrent use; each series owns its own Bank.
type Bank struct {
	stoch   *Stochastic
	kPeak   *Extremum
	dPeak   *Extremum
	macd    *MACD
	rsi     *RSI
	atr     *ATR
	atrAvg  *SMA
	adx     *ADX
	vwap    *VWAP
	volAvg  *SMA
	maSel   *SMA
	refMAs  [len(ReferenceMALengths)]*SMA
	topHigh *Extremum
	display []displaySeries
}

// NewBank builds a Bank. Display entries that share a name are computed once.
func NewBank(cfg BankConfig) (*Bank, error) {
	b := &Bank{
		stoch:   NewStochastic(cfg.KDJPeriod, cfg.KSmooth, cfg.DSmooth),
		kPeak:   NewHighest(cfg.OBLookback),
		dPeak:   NewHighest(cfg.OBLookback),
		macd:    NewMACD(cfg.MACDFast, cfg.MACDSlow, cfg.MACDSignal),
		rsi:     NewRSI(cfg.RSILength),
		atr:     NewATR(ATRLength),
		atrAvg:  NewSMA(ATRAvgLength),
		adx:     NewADX(ADXLength, ADXSmoothing),
		vwap:    NewVWAP(cfg.Calendar),
		volAvg:  NewSMA(cfg.VolumeLength),
		maSel:   NewSMA(cfg.MALength),
		topHigh: NewHighest(cfg.TopLookback),
	}
	for i, n := range ReferenceMALengths {
		b.refMAs[i] = NewSMA(n)
	}

	seen := make(map[string]bool, len(cfg.Display))
	for _, dc := range cfg.Display {
		s, err := New(dc)
		if err != nil {
			return nil, fmt.Errorf("display indicator: %w", err)
		}
		if seen[s.Name()] {
			continue
		}
		seen[s.Name()] = true
		b.display = append(b.display, displaySeries{name: s.Name(), series: s})
	}
	return b, nil
}

// Update feeds one confirmed bar through every indicator and returns its
// frame. The bar must already be validated.
func (b *Bank) Update(bar model.Bar) model.Frame {
	f := model.NewFrame(bar)

	f.K, f.D, f.Spread = b.stoch.Update(bar)
	f.KPeak = b.kPeak.Update(f.K)
	f.DPeak = b.dPeak.Update(f.D)
	f.MACD, f.MACDSignal = b.macd.Update(bar.Close)
	f.RSI = b.rsi.Update(bar.Close)

	f.ATR = b.atr.Update(bar)
	f.ATRAvg = b.atrAvg.Update(f.ATR)
	f.ADX, f.PlusDI, f.MinusDI = b.adx.Update(bar)

	f.VWAP = b.vwap.Update(bar)
	f.VolumeAvg = b.volAvg.Update(bar.Volume)
	f.MASelected = b.maSel.Update(bar.Close)
	f.MA20 = b.refMAs[0].Update(bar.Close)
	f.MA60 = b.refMAs[1].Update(bar.Close)
	f.MA100 = b.refMAs[2].Update(bar.Close)
	f.MA200 = b.refMAs[3].Update(bar.Close)
	f.RecentHigh = b.topHigh.Update(bar.High)

	if len(b.display) > 0 {
		f.Display = make(map[string]float64, len(b.display))
		for _, d := range b.display {
			f.Display[d.name] = d.series.Update(bar.Close)
		}
	}
	return f
}
