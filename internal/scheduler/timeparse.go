package scheduler

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var durationPattern = regexp.MustCompile(`^(?:(\d+)d)?(?:(\d+)h)?(?:(\d+)m)?(?:(\d+)s)?$`)

// ParseTime resolves an --at style string to an absolute time in now's
// location. Accepted forms:
//
//	"22:00"             next occurrence of that clock time
//	"2025-01-03 09:30"  explicit date and time
//	"tomorrow 09:30"    tomorrow at that clock time
func ParseTime(s string, now time.Time) (time.Time, error) {
	s = strings.TrimSpace(s)
	loc := now.Location()

	if rest, ok := strings.CutPrefix(strings.ToLower(s), "tomorrow "); ok {
		clock, err := time.ParseInLocation("15:04", strings.TrimSpace(rest), loc)
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid time %q: expected e.g. \"tomorrow 09:30\"", s)
		}
		day := now.AddDate(0, 0, 1)
		return time.Date(day.Year(), day.Month(), day.Day(), clock.Hour(), clock.Minute(), 0, 0, loc), nil
	}

	if t, err := time.ParseInLocation("2006-01-02 15:04", s, loc); err == nil {
		return t, nil
	}

	if clock, err := time.ParseInLocation("15:04", s, loc); err == nil {
		t := time.Date(now.Year(), now.Month(), now.Day(), clock.Hour(), clock.Minute(), 0, 0, loc)
		if !t.After(now) {
			t = t.AddDate(0, 0, 1)
		}
		return t, nil
	}

	return time.Time{}, fmt.Errorf("invalid time %q: expected \"22:00\", \"2025-01-03 09:30\", or \"tomorrow 09:30\"", s)
}

// ParseDuration parses an --in style duration like "3h", "45m", or
// "1d2h30m". Units are days, hours, minutes, seconds; at least one is
// required.
func ParseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	match := durationPattern.FindStringSubmatch(s)
	if match == nil || s == "" {
		return 0, fmt.Errorf("invalid duration %q: expected e.g. \"3h\", \"45m\", \"1d2h30m\"", s)
	}

	units := []time.Duration{24 * time.Hour, time.Hour, time.Minute, time.Second}
	var total time.Duration
	any := false
	for i, unit := range units {
		if match[i+1] == "" {
			continue
		}
		n, err := strconv.Atoi(match[i+1])
		if err != nil {
			return 0, fmt.Errorf("invalid duration %q: %w", s, err)
		}
		total += time.Duration(n) * unit
		any = true
	}
	if !any {
		return 0, fmt.Errorf("invalid duration %q: expected e.g. \"3h\", \"45m\", \"1d2h30m\"", s)
	}
	return total, nil
}
