package indicator

// MACD computes line = EMA(fast) - EMA(slow) and signal = EMA(line, sig).
// The histogram is not needed by the signal logic.
type MACD struct {
	fast   *EMA
	slow   *EMA
	signal *EMA
}

// NewMACD creates a MACD with the given lengths.
func NewMACD(fast, slow, sig int) *MACD {
	return &MACD{
		fast:   NewEMA(fast),
		slow:   NewEMA(slow),
		signal: NewEMA(sig),
	}
}

// Update feeds one close and returns the MACD line and its signal line.
func (m *MACD) Update(close float64) (line, signal float64) {
	line = m.fast.Update(close) - m.slow.Update(close)
	// NaN line leaves the signal EMA untouched
	signal = m.signal.Update(line)
	return line, signal
}
