package strategy

import (
	"errors"
	"strings"
	"testing"

	"trading-signals/internal/indicator"
)

func TestDefaultConfig(t *testing.T) {
	c := DefaultConfig()
	if err := c.Validate(); err != nil {
		t.Fatalf("defaults must validate: %v", err)
	}

	checks := []struct {
		name      string
		got, want any
	}{
		{"kdj_period", c.KDJPeriod, 9},
		{"k_smooth", c.KSmooth, 3},
		{"d_smooth", c.DSmooth, 3},
		{"min_spread_long", c.MinSpreadL, 2.0},
		{"min_spread_risk", c.MinSpreadR, 6.0},
		{"macd", [3]int{c.MACDFast, c.MACDSlow, c.MACDSignal}, [3]int{12, 26, 9}},
		{"volume_multiplier", c.VolumeMultiplier, 0.85},
		{"use_vwap", c.UseVWAP, true},
		{"use_signal_delay", c.UseSignalDelay, false},
		{"use_slope_filter", c.UseSlopeFilter, true},
		{"slope_length", c.SlopeLength, 2},
		{"use_overbought_gate", c.UseOverboughtGate, false},
		{"overbought_band", c.OverboughtBand, 85.0},
		{"overbought_lookback", c.OverboughtLookback, 5},
		{"min_rplus_confirmations", c.MinRPlusConfirmations, 2},
		{"use_top_rsi_combo", c.UseTopRSICombo, true},
		{"top_lookback", c.TopLookback, 14},
		{"top_tolerance_pct", c.TopTolerancePct, 0.10},
		{"rsi_length", c.RSILength, 21},
		{"use_atr_filter", c.UseATRFilter, true},
		{"atr_multiplier", c.ATRMultiplier, 0.8},
		{"use_adx_filter", c.UseADXFilter, false},
		{"adx_threshold", c.ADXThreshold, 20.0},
		{"apply_regime_to_base", c.ApplyRegimeToBase, false},
		{"min_bars_between", c.MinBarsBetween, 0},
		{"spacing_scope", c.SpacingScope, SpacingSplit},
		{"timeframe", c.Timeframe, "15m"},
		{"session_location", c.SessionLocation, "UTC"},
	}
	for _, ck := range checks {
		if ck.got != ck.want {
			t.Errorf("%s = %v, want %v", ck.name, ck.got, ck.want)
		}
	}
}

func TestConfigValidate_Rejects(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		message string
	}{
		{"negative kdj", func(c *Config) { c.KDJPeriod = -3 }, "kdj_period must be at least 1"},
		{"zero smoothing", func(c *Config) { c.KSmooth = 0 }, "k_smooth must be at least 1"},
		{"band too high", func(c *Config) { c.OverboughtBand = 99 }, "overbought_band must be at most 95"},
		{"confirmations", func(c *Config) { c.MinRPlusConfirmations = 5 }, "min_rplus_confirmations must be at most 4"},
		{"tolerance", func(c *Config) { c.TopTolerancePct = 0.01 }, "top_tolerance_pct must be at least 0.05"},
		{"negative spacing", func(c *Config) { c.MinBarsBetween = -1 }, "min_bars_between must be at least 0"},
		{"scope", func(c *Config) { c.SpacingScope = "global" }, "spacing_scope must be one of: split, shared"},
		{"macd order", func(c *Config) { c.MACDFast = 30 }, "macd_fast (30) must be less than macd_slow (26)"},
		{"timeframe", func(c *Config) { c.Timeframe = "5q" }, "invalid timeframe"},
		{"empty timeframe", func(c *Config) { c.Timeframe = "" }, "timeframe is required"},
		{"location", func(c *Config) { c.SessionLocation = "Mars/Olympus" }, "session location"},
		{"display type", func(c *Config) {
			c.DisplayMAs = []indicator.Config{{Type: "WMA", Period: 10}}
		}, "display_mas[0].type must be one of"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := DefaultConfig()
			tt.mutate(&c)
			err := c.Validate()
			if !errors.Is(err, ErrInvalidConfig) {
				t.Fatalf("err = %v, want ErrInvalidConfig", err)
			}
			if !strings.Contains(err.Error(), tt.message) {
				t.Errorf("error %q does not mention %q", err, tt.message)
			}
		})
	}
}

func TestConfigHistoryDepth(t *testing.T) {
	c := DefaultConfig()
	if got := c.historyDepth(); got != 15 {
		t.Errorf("default depth = %d, want 15 (top lookback + 1)", got)
	}
	c.TopLookback, c.SlopeLength = 5, 20
	if got := c.historyDepth(); got != 21 {
		t.Errorf("depth = %d, want 21 (slope length + 1)", got)
	}
}
