package services

import (
	"fmt"
	"strconv"
	"time"
)

const (
	minSessionMinutes = 15
	maxSessionMinutes = 480
)

// parseClock converts an "HH:MM" string to minutes since midnight.
func parseClock(value string) (int, error) {
	if len(value) != 5 || value[2] != ':' {
		return 0, fmt.Errorf("invalid time %q", value)
	}
	for _, i := range []int{0, 1, 3, 4} {
		if value[i] < '0' || value[i] > '9' {
			return 0, fmt.Errorf("invalid time %q", value)
		}
	}
	hours, _ := strconv.Atoi(value[:2])
	minutes, _ := strconv.Atoi(value[3:])
	if hours > 23 || minutes > 59 {
		return 0, fmt.Errorf("invalid time %q", value)
	}
	return hours*60 + minutes, nil
}

// combineDateClock anchors minutes-since-midnight onto a concrete UTC date.
func combineDateClock(date time.Time, clockMinutes int) time.Time {
	day := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)
	return day.Add(time.Duration(clockMinutes) * time.Minute)
}

// rangesOverlap is the half-open interval test: touching boundaries do not
// overlap.
func rangesOverlap(aStart, aEnd, bStart, bEnd int) bool {
	return aStart < bEnd && aEnd > bStart
}
