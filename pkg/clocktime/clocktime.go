// Package clocktime parses the loosely written clock times and dates that
// front-desk forms submit.
package clocktime

import (
	"fmt"
	"regexp"
	"strconv"
	"time"
)

var hourMinute = regexp.MustCompile(`^(\d{1,2}):(\d{2})$`)

// To24Hour treats hours 1 through 11 as afternoon times and adds 12. Hour 12
// is kept as noon. Any other hour is zero-padded and otherwise unchanged.
// Input that is not "H:MM" or "HH:MM" is returned as is.
func To24Hour(s string) string {
	m := hourMinute.FindStringSubmatch(s)
	if m == nil {
		return s
	}

	hour, _ := strconv.Atoi(m[1])
	if hour >= 1 && hour <= 11 {
		hour += 12
	}
	return fmt.Sprintf("%02d:%s", hour, m[2])
}

var dateLayouts = []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02"}

// ParseDate accepts RFC 3339 timestamps, zone-less timestamps and bare
// YYYY-MM-DD dates. The last two are read as UTC.
func ParseDate(s string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date: %s", s)
}
