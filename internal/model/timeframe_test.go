package model

import (
	"encoding/json"
	"errors"
	"math"
	"strings"
	"testing"
	"time"
)

func TestParseTimeframe_Classes(t *testing.T) {
	tests := []struct {
		in      string
		class   TimeframeClass
		maLen   int
		volLen  int
		display string
	}{
		{"1m", ClassUpTo15m, 20, 5, "1m"},
		{"15", ClassUpTo15m, 20, 5, "15m"},
		{"30s", ClassUpTo15m, 20, 5, "30s"},
		{"30m", ClassAbove15mToDaily, 60, 10, "30m"},
		{"1h", ClassAbove15mToDaily, 60, 10, "1h"},
		{"4H", ClassAbove15mToDaily, 60, 10, "4h"},
		{"1D", ClassDailyToWeekly, 100, 20, "1D"},
		{"D", ClassDailyToWeekly, 100, 20, "1D"},
		{"3D", ClassDailyToWeekly, 100, 20, "3D"},
		{"1W", ClassWeeklyOrMore, 200, 50, "1W"},
		{"1M", ClassWeeklyOrMore, 200, 50, "1M"},
	}
	for _, tt := range tests {
		tf, err := ParseTimeframe(tt.in)
		if err != nil {
			t.Fatalf("ParseTimeframe(%q): %v", tt.in, err)
		}
		c := tf.Class()
		if c != tt.class {
			t.Errorf("%s: class = %d, want %d", tt.in, c, tt.class)
		}
		if c.MALength() != tt.maLen || c.VolumeLength() != tt.volLen {
			t.Errorf("%s: lengths = %d/%d, want %d/%d", tt.in, c.MALength(), c.VolumeLength(), tt.maLen, tt.volLen)
		}
		if tf.String() != tt.display {
			t.Errorf("%s: String() = %q, want %q", tt.in, tf.String(), tt.display)
		}
	}
}

func TestParseTimeframe_Invalid(t *testing.T) {
	for _, in := range []string{"", "0m", "-5m", "5x", "abcD"} {
		if _, err := ParseTimeframe(in); err == nil {
			t.Errorf("ParseTimeframe(%q) should fail", in)
		}
	}
}

func TestTimeframeDuration(t *testing.T) {
	tf, _ := ParseTimeframe("5m")
	if tf.Duration() != 5*time.Minute {
		t.Errorf("5m duration = %v", tf.Duration())
	}
	tf, _ = ParseTimeframe("1M")
	if tf.Duration() != 0 {
		t.Errorf("monthly duration should be 0, got %v", tf.Duration())
	}
}

func TestBarValidate(t *testing.T) {
	good := Bar{Index: 1, Open: 10, High: 11, Low: 9, Close: 10.5, Volume: 100}
	if err := good.Validate(); err != nil {
		t.Fatalf("valid bar rejected: %v", err)
	}

	bad := []Bar{
		{Open: math.NaN(), High: 11, Low: 9, Close: 10},
		{Open: 10, High: math.Inf(1), Low: 9, Close: 10},
		{Open: 10, High: 9, Low: 11, Close: 10},
		{Open: 10, High: 11, Low: 9, Close: 10, Volume: -1},
	}
	for i, b := range bad {
		if err := b.Validate(); !errors.Is(err, ErrMalformedBar) {
			t.Errorf("case %d: err = %v, want ErrMalformedBar", i, err)
		}
	}
}

func TestFrameJSON_NaNAsNull(t *testing.T) {
	f := NewFrame(Bar{Symbol: "X", Index: 3})
	f.RSI = 55.5
	f.Display = map[string]float64{SeriesName("SMA", 20): math.NaN()}

	data, err := json.Marshal(f)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	s := string(data)
	if !strings.Contains(s, `"rsi":55.5`) {
		t.Errorf("rsi missing: %s", s)
	}
	if !strings.Contains(s, `"k":null`) || !strings.Contains(s, `"SMA_20":null`) {
		t.Errorf("NaN not encoded as null: %s", s)
	}
}

func TestFrameJSON_ReferenceMAs(t *testing.T) {
	keys := []string{"ma20", "ma60", "ma100", "ma200", "recent_high", "k_peak", "d_peak"}

	decode := func(f Frame) map[string]*float64 {
		t.Helper()
		data, err := json.Marshal(f)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		var m map[string]*float64
		if err := json.Unmarshal(data, &m); err != nil {
			t.Fatalf("unmarshal %s: %v", data, err)
		}
		return m
	}

	warm := decode(NewFrame(Bar{Index: 0}))
	for _, k := range keys {
		v, ok := warm[k]
		if !ok {
			t.Errorf("key %q missing", k)
		} else if v != nil {
			t.Errorf("key %q = %v during warm-up, want null", k, *v)
		}
	}

	f := NewFrame(Bar{Index: 250})
	f.MA20, f.MA60, f.MA100, f.MA200 = 1, 2, 3, 4
	f.RecentHigh, f.KPeak, f.DPeak = 5, 6, 7
	got := decode(f)
	for i, k := range keys {
		if got[k] == nil || *got[k] != float64(i+1) {
			t.Errorf("key %q = %v, want %d", k, got[k], i+1)
		}
	}
}

func TestEmissionLabels(t *testing.T) {
	e := Emission{LPlus: true, R: true}
	got := strings.Join(e.Labels(), ",")
	if got != "L+,R" {
		t.Errorf("labels = %q", got)
	}
	if (Emission{}).Any() {
		t.Error("empty emission reports Any")
	}
}
