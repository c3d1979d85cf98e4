// Package timetext normalizes the time and weekday strings the booking
// platforms embed in their schedule payloads.
package timetext

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var clockRegex = regexp.MustCompile(`(\d{1,2}):(\d{2})\s*(AM|PM)`)
var rangeRegex = regexp.MustCompile(`(\d{1,2}:\d{2}\s*[AP]M)\s*-\s*(\d{1,2}:\d{2}\s*[AP]M)`)

// ParseClockTime converts a 12-hour clock string like "1:05 PM" into
// 24-hour "HH:MM". Input that doesn't look like a 12-hour time is
// returned unchanged so callers degrade to whatever the platform sent.
func ParseClockTime(s string) string {
	groups := clockRegex.FindStringSubmatch(strings.ToUpper(s))
	if groups == nil {
		return s
	}

	hours, err := strconv.Atoi(groups[1])
	if err != nil {
		return s
	}

	switch groups[3] {
	case "PM":
		if hours != 12 {
			hours += 12
		}
	case "AM":
		if hours == 12 {
			hours = 0
		}
	}

	return fmt.Sprintf("%02d:%s", hours, groups[2])
}

// ParseTimeRange splits a string like "12:30 PM - 1:55 PM" into 24-hour
// start/end. Both values are empty when the string doesn't match.
func ParseTimeRange(s string) (start, end string) {
	groups := rangeRegex.FindStringSubmatch(strings.ToUpper(s))
	if groups == nil {
		return "", ""
	}
	return ParseClockTime(groups[1]), ParseClockTime(groups[2])
}

var weekdays = []struct {
	abbrev string
	full   string
}{
	{"mon", "Monday"},
	{"tue", "Tuesday"},
	{"wed", "Wednesday"},
	{"thu", "Thursday"},
	{"fri", "Friday"},
	{"sat", "Saturday"},
	{"sun", "Sunday"},
}

// ParseWeekday scans for any three-letter English weekday abbreviation,
// first match wins. Returns "Unknown" when nothing matches.
func ParseWeekday(s string) string {
	lower := strings.ToLower(s)
	for _, day := range weekdays {
		if strings.Contains(lower, day.abbrev) {
			return day.full
		}
	}
	return "Unknown"
}
