package csvbars

import (
	"strings"
	"testing"
	"time"
)

func TestRead(t *testing.T) {
	doc := `Date,Open,High,Low,Close,Volume
2026-03-03,101,103,100,102,2000
2026-03-02,100,102,99,101,1500

1772582400,102,104,101,103.5,1800
`
	bars, err := Read(strings.NewReader(doc), "SBIN", "1D")
	if err != nil {
		t.Fatal(err)
	}
	if len(bars) != 3 {
		t.Fatalf("expected 3 bars, got %d", len(bars))
	}
	want := []time.Time{
		time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC),
		time.Date(2026, 3, 3, 0, 0, 0, 0, time.UTC),
		time.Unix(1772582400, 0).UTC(),
	}
	for i, b := range bars {
		if !b.TS.Equal(want[i]) {
			t.Errorf("bar %d ts = %v, want %v", i, b.TS, want[i])
		}
		if b.Index != int64(i) || !b.Confirmed || b.Symbol != "SBIN" || b.Timeframe != "1D" {
			t.Errorf("bar %d: %+v", i, b)
		}
	}
	if bars[0].Close != 101 || bars[0].Volume != 1500 {
		t.Errorf("sorted first bar wrong: %+v", bars[0])
	}
}

func TestRead_ColumnOrderAndNoVolume(t *testing.T) {
	doc := "close,low,high,open,timestamp\n10,9,11,9.5,2026-03-02T09:15:00Z\n"
	bars, err := Read(strings.NewReader(doc), "X", "1m")
	if err != nil {
		t.Fatal(err)
	}
	b := bars[0]
	if b.Open != 9.5 || b.High != 11 || b.Low != 9 || b.Close != 10 || b.Volume != 0 {
		t.Errorf("unexpected bar %+v", b)
	}
}

func TestRead_Errors(t *testing.T) {
	tests := map[string]string{
		"no time column": "open,high,low,close\n1,2,0.5,1.5\n",
		"missing close":  "time,open,high,low\n1700000000,1,2,0.5\n",
		"bad price":      "time,open,high,low,close\n1700000000,1,x,0.5,1.5\n",
		"bad time":       "time,open,high,low,close\nyesterday,1,2,0.5,1.5\n",
	}
	for name, doc := range tests {
		if _, err := Read(strings.NewReader(doc), "X", "1m"); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
}

func TestParseTime_Millis(t *testing.T) {
	got, err := parseTime("1772582400000")
	if err != nil || !got.Equal(time.Unix(1772582400, 0)) {
		t.Errorf("millis: got %v, %v", got, err)
	}
}

func TestRead_Empty(t *testing.T) {
	bars, err := Read(strings.NewReader(""), "X", "1m")
	if err != nil || bars != nil {
		t.Errorf("expected no bars and no error, got %v %v", bars, err)
	}
}
