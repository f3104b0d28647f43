package indicator

import (
	"math"
	"math/rand"
	"testing"

	"github.com/markcheno/go-talib"

	"trading-signals/internal/model"
)

// randomWalk builds a deterministic OHLC series for oracle comparisons.
func randomWalk(n int, seed int64) (bars []model.Bar, highs, lows, closes []float64) {
	rng := rand.New(rand.NewSource(seed))
	price := 100.0
	for i := 0; i < n; i++ {
		open := price
		price += rng.NormFloat64()
		hi := math.Max(open, price) + rng.Float64()
		lo := math.Min(open, price) - rng.Float64()
		bars = append(bars, model.Bar{Index: int64(i), Open: open, High: hi, Low: lo, Close: price, Volume: 1000})
		highs = append(highs, hi)
		lows = append(lows, lo)
		closes = append(closes, price)
	}
	return bars, highs, lows, closes
}

// The TA-Lib seeds differ for ATR, ADX and EMA; after 600 bars the recursive
// smoothers have forgotten their seed, so the tail must agree.
const oracleBars = 600

func TestOracle_SMA(t *testing.T) {
	_, _, _, closes := randomWalk(oracleBars, 1)
	want := talib.Sma(closes, 20)
	sma := NewSMA(20)
	for i, c := range closes {
		got := sma.Update(c)
		if i >= 19 {
			assertClose(t, "SMA vs talib", got, want[i], 1e-9)
		}
	}
}

func TestOracle_RSI(t *testing.T) {
	_, _, _, closes := randomWalk(oracleBars, 2)
	want := talib.Rsi(closes, 14)
	rsi := NewRSI(14)
	var got float64
	for _, c := range closes {
		got = rsi.Update(c)
	}
	assertClose(t, "RSI vs talib", got, want[len(want)-1], 1e-6)
}

func TestOracle_ATR(t *testing.T) {
	bars, highs, lows, closes := randomWalk(oracleBars, 3)
	want := talib.Atr(highs, lows, closes, ATRLength)
	atr := NewATR(ATRLength)
	var got float64
	for _, b := range bars {
		got = atr.Update(b)
	}
	assertClose(t, "ATR vs talib", got, want[len(want)-1], 1e-6)
}

func TestOracle_ADX(t *testing.T) {
	bars, highs, lows, closes := randomWalk(oracleBars, 4)
	want := talib.Adx(highs, lows, closes, ADXLength)
	adx := NewADX(ADXLength, ADXSmoothing)
	var got float64
	for _, b := range bars {
		got, _, _ = adx.Update(b)
	}
	assertClose(t, "ADX vs talib", got, want[len(want)-1], 1e-4)
}

func TestOracle_MACD(t *testing.T) {
	_, _, _, closes := randomWalk(oracleBars, 5)
	wantLine, wantSignal, _ := talib.Macd(closes, 12, 26, 9)
	m := NewMACD(12, 26, 9)
	var line, signal float64
	for _, c := range closes {
		line, signal = m.Update(c)
	}
	assertClose(t, "MACD line vs talib", line, wantLine[len(wantLine)-1], 1e-6)
	assertClose(t, "MACD signal vs talib", signal, wantSignal[len(wantSignal)-1], 1e-6)
}
