package search

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidPeriod is returned by ParsePeriod for an unknown period name.
var ErrInvalidPeriod = errors.New("invalid value for date_published")

// Period restricts a search to videos published within a trailing window.
type Period string

// Supported publication periods.
const (
	PeriodAllTime    Period = "all_time"
	PeriodLastWeek   Period = "last_week"
	PeriodLastMonth  Period = "last_month"
	PeriodLast3Month Period = "last_3_month"
	PeriodLast6Month Period = "last_6_month"
	PeriodLastYear   Period = "last_year"
)

var periodDays = map[Period]int{
	PeriodLastWeek:   7,
	PeriodLastMonth:  30,
	PeriodLast3Month: 90,
	PeriodLast6Month: 180,
	PeriodLastYear:   365,
}

// ParsePeriod validates a period name. The empty string means all time.
func ParsePeriod(s string) (Period, error) {
	if s == "" {
		return PeriodAllTime, nil
	}
	p := Period(s)
	if p == PeriodAllTime {
		return p, nil
	}
	if _, ok := periodDays[p]; !ok {
		return "", fmt.Errorf("%w: %q", ErrInvalidPeriod, s)
	}
	return p, nil
}

// Start returns the earliest publication time the period admits, anchored at
// the start of the current UTC day. Zero for all time, meaning no restriction.
func (p Period) Start(now time.Time) time.Time {
	days, ok := periodDays[p]
	if !ok {
		return time.Time{}
	}
	now = now.UTC()
	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	return day.AddDate(0, 0, -days)
}
