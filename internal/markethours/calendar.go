// Package markethours maps bar timestamps to trading sessions.
//
// A session is one calendar day in the exchange's location; session-scoped
// accumulators such as VWAP reset whenever the session day changes.
package markethours

import (
	"fmt"
	"time"
)

// IST is the Indian Standard Time location (UTC+5:30).
var IST = time.FixedZone("IST", 5*3600+30*60)

// Calendar resolves session days in a fixed location.
type Calendar struct {
	loc *time.Location
}

// New creates a calendar for loc. A nil loc means UTC.
func New(loc *time.Location) *Calendar {
	if loc == nil {
		loc = time.UTC
	}
	return &Calendar{loc: loc}
}

// Load creates a calendar from an IANA location name ("UTC", "Asia/Kolkata",
// "America/New_York"). "IST" is accepted as a fixed +05:30 zone.
func Load(name string) (*Calendar, error) {
	switch name {
	case "", "UTC":
		return New(time.UTC), nil
	case "IST":
		return New(IST), nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("load session location %q: %w", name, err)
	}
	return New(loc), nil
}

// Location returns the calendar's location.
func (c *Calendar) Location() *time.Location { return c.loc }

// SessionDay returns the session key of t as yyyymmdd in the calendar's
// location.
func (c *Calendar) SessionDay(t time.Time) int {
	lt := t.In(c.loc)
	return lt.Year()*10000 + int(lt.Month())*100 + lt.Day()
}

// SessionStart returns midnight of t's session day.
func (c *Calendar) SessionStart(t time.Time) time.Time {
	lt := t.In(c.loc)
	return time.Date(lt.Year(), lt.Month(), lt.Day(), 0, 0, 0, 0, c.loc)
}

// IsWeekday returns true if t is Mon–Fri in the calendar's location.
func (c *Calendar) IsWeekday(t time.Time) bool {
	wd := t.In(c.loc).Weekday()
	return wd >= time.Monday && wd <= time.Friday
}
