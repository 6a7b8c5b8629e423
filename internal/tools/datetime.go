package tools

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var errDateTimeFormat = errors.New("unrecognised date-time")

var (
	dayClausePattern = regexp.MustCompile(`^(today|tomorrow|\d{4}-\d{2}-\d{2})(?:\s+at)?\s+(.+)$`)
	clockPattern     = regexp.MustCompile(`^(\d{1,2})(?::(\d{2}))?\s*(am|pm|a\.m\.|p\.m\.)?$`)
)

var exactLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02t15:04:05",
	"2006-01-02t15:04",
}

// ParseDateTime resolves a booking instant in now's location. It accepts
// "YYYY-MM-DD HH:MM[:SS]" (space or T separated) and relative forms such as
// "tomorrow at 2pm", "today 10:30" or "2026-03-20 9am". A bare hour without a
// meridiem between 1 and 11 is read as afternoon once the current hour is
// 12 or later.
func ParseDateTime(raw string, now time.Time) (time.Time, error) {
	s := strings.ToLower(strings.Join(strings.Fields(raw), " "))
	loc := now.Location()

	for _, layout := range exactLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}

	s = strings.TrimPrefix(s, "at ")
	day := now
	clock := s
	if m := dayClausePattern.FindStringSubmatch(s); m != nil {
		switch m[1] {
		case "today":
		case "tomorrow":
			day = now.AddDate(0, 0, 1)
		default:
			d, err := time.ParseInLocation("2006-01-02", m[1], loc)
			if err != nil {
				return time.Time{}, errDateTimeFormat
			}
			day = d
		}
		clock = m[2]
	}

	hour, minute, ok := parseClock(clock, now)
	if !ok {
		return time.Time{}, errDateTimeFormat
	}
	return time.Date(day.Year(), day.Month(), day.Day(), hour, minute, 0, 0, loc), nil
}

func parseClock(s string, now time.Time) (hour, minute int, ok bool) {
	m := clockPattern.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return 0, 0, false
	}
	hour, _ = strconv.Atoi(m[1])
	if m[2] != "" {
		minute, _ = strconv.Atoi(m[2])
	}
	if minute > 59 {
		return 0, 0, false
	}

	switch strings.ReplaceAll(m[3], ".", "") {
	case "am":
		if hour < 1 || hour > 12 {
			return 0, 0, false
		}
		if hour == 12 {
			hour = 0
		}
	case "pm":
		if hour < 1 || hour > 12 {
			return 0, 0, false
		}
		if hour < 12 {
			hour += 12
		}
	default:
		if hour > 23 {
			return 0, 0, false
		}
		if m[2] == "" && hour >= 1 && hour <= 11 && now.Hour() >= 12 {
			hour += 12
		}
	}
	return hour, minute, true
}

// ParseDate parses a calendar date in now's location.
func ParseDate(raw string, now time.Time) (time.Time, error) {
	s := strings.ToLower(strings.TrimSpace(raw))
	switch s {
	case "today":
		return startOfDay(now), nil
	case "tomorrow":
		return startOfDay(now.AddDate(0, 0, 1)), nil
	}
	t, err := time.ParseInLocation("2006-01-02", s, now.Location())
	if err != nil {
		return time.Time{}, fmt.Errorf("parse date %q: %w", raw, err)
	}
	return t, nil
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
