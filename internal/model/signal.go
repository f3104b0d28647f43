package model

import (
	"encoding/json"
	"time"
)

// Signal labels as they appear on charts, logs and the wire.
const (
	LabelL     = "L"
	LabelLPlus = "L+"
	LabelR     = "R"
	LabelRPlus = "R+"
)

// SignalFlags are the raw per-bar conditions before spacing and the
// refinement exclusivity are applied.
type SignalFlags struct {
	LBase bool `json:"l_base"`
	LPlus bool `json:"l_plus"`
	RBase bool `json:"r_base"`
	RPlus bool `json:"r_plus"`

	BreakDown bool `json:"break_down"`
	BreakUp   bool `json:"break_up"`
	RiskCore  bool `json:"risk_core"`
	RiskCombo bool `json:"risk_combo"`
	MarketOK  bool `json:"market_ok"`
}

// Emission is what actually fires on a bar. L and L+ never fire together,
// neither do R and R+.
type Emission struct {
	L     bool `json:"l"`
	LPlus bool `json:"l_plus"`
	R     bool `json:"r"`
	RPlus bool `json:"r_plus"`
}

// Any reports whether at least one signal fired.
func (e Emission) Any() bool {
	return e.L || e.LPlus || e.R || e.RPlus
}

// Labels returns the fired labels in display order.
func (e Emission) Labels() []string {
	var out []string
	if e.L {
		out = append(out, LabelL)
	}
	if e.LPlus {
		out = append(out, LabelLPlus)
	}
	if e.R {
		out = append(out, LabelR)
	}
	if e.RPlus {
		out = append(out, LabelRPlus)
	}
	return out
}

// SignalEvent is emitted once per confirmed bar.
//
// EventIndex is the bar the labels belong to. It equals Bar.Index unless the
// stream runs in delay mode, where the event is attributed two bars back.
type SignalEvent struct {
	Symbol     string      `json:"symbol"`
	Timeframe  string      `json:"tf"`
	Index      int64       `json:"index"`
	EventIndex int64       `json:"event_index"`
	TS         time.Time   `json:"ts"`
	Flags      SignalFlags `json:"flags"`
	Emission   Emission    `json:"emission"`
	Labels     []string    `json:"labels,omitempty"`
	Frame      Frame       `json:"frame"`
}

// JSON returns the JSON-encoded event (ignoring errors for hot-path usage).
func (e *SignalEvent) JSON() []byte {
	data, _ := json.Marshal(e)
	return data
}
