package config

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"trading-signals/internal/strategy"
)

func TestLoad_Defaults(t *testing.T) {
	for _, k := range []string{"REDIS_ADDR", "HTTP_ADDR", "SUBSCRIBE_SYMBOLS", "SUBSCRIBE_TFS", "BAR_STREAM_PREFIX", "WS_FIRED_ONLY"} {
		t.Setenv(k, "")
	}
	c := Load()
	if c.RedisAddr != "localhost:6379" || c.HTTPAddr != ":9091" || c.BarStreamPrefix != "bar" {
		t.Errorf("unexpected defaults %+v", c)
	}
	if c.FiredOnly {
		t.Error("FiredOnly should default to false")
	}

	sig := strategy.DefaultConfig()
	if got := c.Timeframes(sig); !reflect.DeepEqual(got, []string{"15m"}) {
		t.Errorf("timeframes fall back to the signal config, got %v", got)
	}
}

func TestLoad_Env(t *testing.T) {
	t.Setenv("SUBSCRIBE_SYMBOLS", "SBIN, INFY,,SBIN")
	t.Setenv("SUBSCRIBE_TFS", "5m,1h")
	t.Setenv("WS_FIRED_ONLY", "true")
	c := Load()

	if got := c.Symbols(); !reflect.DeepEqual(got, []string{"SBIN", "INFY"}) {
		t.Errorf("symbols = %v", got)
	}
	if got := c.Timeframes(strategy.DefaultConfig()); !reflect.DeepEqual(got, []string{"5m", "1h"}) {
		t.Errorf("timeframes = %v", got)
	}
	if !c.FiredOnly {
		t.Error("expected FiredOnly")
	}
}

func TestLoadSignalConfig_EmptyPathIsDefaults(t *testing.T) {
	cfg, err := LoadSignalConfig("")
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(cfg, strategy.DefaultConfig()) {
		t.Error("empty path should return the defaults")
	}
}

func TestLoadSignalConfig_Overlay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "signals.yaml")
	doc := `
kdj_period: 14
use_vwap: false
use_atr_filter: false
spacing_scope: shared
min_bars_between: 3
timeframe: 1h
display_mas:
  - {type: EMA, period: 50}
`
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadSignalConfig(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.KDJPeriod != 14 || cfg.MinBarsBetween != 3 || cfg.SpacingScope != strategy.SpacingShared || cfg.Timeframe != "1h" {
		t.Errorf("overrides not applied: %+v", cfg)
	}
	// explicit false must beat a true default
	if cfg.UseVWAP || cfg.UseATRFilter {
		t.Error("explicit false was overwritten by defaults")
	}
	// untouched keys keep their defaults
	if cfg.KSmooth != 3 || !cfg.UseSlopeFilter || cfg.MinSpreadR != 6.0 {
		t.Errorf("defaults lost: %+v", cfg)
	}
	if len(cfg.DisplayMAs) != 1 || cfg.DisplayMAs[0].Type != "EMA" || cfg.DisplayMAs[0].Period != 50 {
		t.Errorf("display_mas = %+v", cfg.DisplayMAs)
	}
}

func TestParseSignalConfig_Errors(t *testing.T) {
	tests := []struct {
		name     string
		doc      string
		contains string
		invalid  bool
	}{
		{"unknown key", "kdj_periodd: 5", "kdj_periodd", false},
		{"bad type", "kdj_period: nine", "nine", false},
		{"out of range", "overbought_band: 99", "overbought_band", true},
		{"macd order", "macd_fast: 30", "macd_fast", true},
		{"bad timeframe", "timeframe: 7x", "7x", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseSignalConfig([]byte(tt.doc))
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.contains) {
				t.Errorf("error %q should mention %q", err, tt.contains)
			}
			if got := errors.Is(err, strategy.ErrInvalidConfig); got != tt.invalid {
				t.Errorf("errors.Is(ErrInvalidConfig) = %v, want %v", got, tt.invalid)
			}
		})
	}
}

func TestParseSignalConfig_EmptyDocument(t *testing.T) {
	cfg, err := ParseSignalConfig(nil)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.KDJPeriod != 9 {
		t.Errorf("expected defaults, got kdj_period=%d", cfg.KDJPeriod)
	}
}

func TestLoadSignalConfig_MissingFile(t *testing.T) {
	if _, err := LoadSignalConfig(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}
