package model

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Timeframe describes the period of the bars in a series. Only the
// classification derived from it matters to the signal pipeline.
type Timeframe struct {
	Intraday   bool `json:"intraday"`
	Seconds    bool `json:"seconds"`    // sub-minute intraday period
	Multiplier int  `json:"multiplier"` // minutes when intraday, else days/weeks/months
	Daily      bool `json:"daily"`
	Weekly     bool `json:"weekly"`
	Monthly    bool `json:"monthly"`
}

// TimeframeClass buckets timeframes for the adaptive MA/volume lengths.
type TimeframeClass int

const (
	ClassUpTo15m TimeframeClass = iota
	ClassAbove15mToDaily
	ClassDailyToWeekly
	ClassWeeklyOrMore
)

var (
	classMALengths     = [...]int{20, 60, 100, 200}
	classVolumeLengths = [...]int{5, 10, 20, 50}
)

// ParseTimeframe parses strings such as "30s", "5m", "15", "1h", "4H", "1D",
// "W" and "1M". Lower-case "m" is minutes and upper-case "M" is months; a bare
// number is minutes.
func ParseTimeframe(s string) (Timeframe, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Timeframe{}, fmt.Errorf("empty timeframe")
	}
	unit := s[len(s)-1]
	num := s[:len(s)-1]
	if unit >= '0' && unit <= '9' {
		unit = 'm'
		num = s
	}
	n := 1
	if num != "" {
		v, err := strconv.Atoi(num)
		if err != nil || v <= 0 {
			return Timeframe{}, fmt.Errorf("invalid timeframe %q", s)
		}
		n = v
	}

	switch unit {
	case 's', 'S':
		return Timeframe{Intraday: true, Seconds: true, Multiplier: n}, nil
	case 'm':
		return Timeframe{Intraday: true, Multiplier: n}, nil
	case 'h', 'H':
		return Timeframe{Intraday: true, Multiplier: n * 60}, nil
	case 'd', 'D':
		return Timeframe{Daily: true, Multiplier: n}, nil
	case 'w', 'W':
		return Timeframe{Weekly: true, Multiplier: n}, nil
	case 'M':
		return Timeframe{Monthly: true, Multiplier: n}, nil
	}
	return Timeframe{}, fmt.Errorf("invalid timeframe unit in %q", s)
}

// Class classifies the timeframe. Sub-minute periods count as up-to-15m.
func (tf Timeframe) Class() TimeframeClass {
	switch {
	case tf.Intraday && (tf.Seconds || tf.Multiplier <= 15):
		return ClassUpTo15m
	case tf.Intraday:
		return ClassAbove15mToDaily
	case tf.Daily && !tf.Weekly && !tf.Monthly:
		return ClassDailyToWeekly
	default:
		return ClassWeeklyOrMore
	}
}

// MALength is the adaptive reference moving-average length for the class.
func (c TimeframeClass) MALength() int { return classMALengths[c] }

// VolumeLength is the adaptive volume-average length for the class.
func (c TimeframeClass) VolumeLength() int { return classVolumeLengths[c] }

// Duration returns the fixed length of one period. Monthly periods have no
// fixed length and return 0.
func (tf Timeframe) Duration() time.Duration {
	switch {
	case tf.Seconds:
		return time.Duration(tf.Multiplier) * time.Second
	case tf.Intraday:
		return time.Duration(tf.Multiplier) * time.Minute
	case tf.Daily:
		return time.Duration(tf.Multiplier) * 24 * time.Hour
	case tf.Weekly:
		return time.Duration(tf.Multiplier) * 7 * 24 * time.Hour
	}
	return 0
}

func (tf Timeframe) String() string {
	switch {
	case tf.Seconds:
		return strconv.Itoa(tf.Multiplier) + "s"
	case tf.Intraday && tf.Multiplier%60 == 0:
		return strconv.Itoa(tf.Multiplier/60) + "h"
	case tf.Intraday:
		return strconv.Itoa(tf.Multiplier) + "m"
	case tf.Daily:
		return strconv.Itoa(tf.Multiplier) + "D"
	case tf.Weekly:
		return strconv.Itoa(tf.Multiplier) + "W"
	case tf.Monthly:
		return strconv.Itoa(tf.Multiplier) + "M"
	}
	return "?"
}
