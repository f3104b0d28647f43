// Package csvbars reads OHLCV history from CSV files.
package csvbars

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"trading-signals/internal/model"
)

// timeLayouts are tried in order for non-numeric time cells.
var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

// ReadFile is Read on a file.
func ReadFile(path, symbol, tf string) ([]model.Bar, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Read(f, symbol, tf)
}

// Read parses a CSV with a header row naming time|timestamp|date, open,
// high, low, close and volume|vol (any order, case-insensitive). Bars are
// sorted by time, indexed from 0 and marked confirmed. A missing volume
// column reads as zero volume.
func Read(r io.Reader, symbol, tf string) ([]model.Bar, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("csv header: %w", err)
	}
	cols := map[string]int{}
	for i, h := range header {
		cols[strings.ToLower(strings.TrimSpace(h))] = i
	}
	tsCol := firstCol(cols, "time", "timestamp", "date", "datetime")
	if tsCol < 0 {
		return nil, fmt.Errorf("csv header: no time column in %v", header)
	}
	priceCols := [4]int{firstCol(cols, "open"), firstCol(cols, "high"), firstCol(cols, "low"), firstCol(cols, "close")}
	for i, c := range priceCols {
		if c < 0 {
			return nil, fmt.Errorf("csv header: missing %s column", [4]string{"open", "high", "low", "close"}[i])
		}
	}
	volCol := firstCol(cols, "volume", "vol")

	var bars []model.Bar
	line := 1
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("csv line %d: %w", line, err)
		}
		if len(rec) == 0 || (len(rec) == 1 && strings.TrimSpace(rec[0]) == "") {
			continue
		}

		ts, err := parseTime(cell(rec, tsCol))
		if err != nil {
			return nil, fmt.Errorf("csv line %d: %w", line, err)
		}
		var px [4]float64
		for i, c := range priceCols {
			if px[i], err = strconv.ParseFloat(cell(rec, c), 64); err != nil {
				return nil, fmt.Errorf("csv line %d: %w", line, err)
			}
		}
		var vol float64
		if v := cell(rec, volCol); v != "" {
			if vol, err = strconv.ParseFloat(v, 64); err != nil {
				return nil, fmt.Errorf("csv line %d: %w", line, err)
			}
		}

		bars = append(bars, model.Bar{
			Symbol: symbol, Timeframe: tf, TS: ts,
			Open: px[0], High: px[1], Low: px[2], Close: px[3], Volume: vol,
			Confirmed: true,
		})
	}

	sort.SliceStable(bars, func(i, j int) bool { return bars[i].TS.Before(bars[j].TS) })
	for i := range bars {
		bars[i].Index = int64(i)
	}
	return bars, nil
}

// parseTime accepts the layouts above or unix seconds / milliseconds.
func parseTime(s string) (time.Time, error) {
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		if n > 1e12 {
			return time.UnixMilli(n).UTC(), nil
		}
		return time.Unix(n, 0).UTC(), nil
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("bad time %q", s)
}

func firstCol(cols map[string]int, names ...string) int {
	for _, n := range names {
		if i, ok := cols[n]; ok {
			return i
		}
	}
	return -1
}

func cell(rec []string, i int) string {
	if i < 0 || i >= len(rec) {
		return ""
	}
	return strings.TrimSpace(rec[i])
}
