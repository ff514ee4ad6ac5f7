package core

// convert.go provides the lenient conversions applied to raw CSV cells.
//
// Scale exports are messy in predictable ways:
//   - numbers may carry trailing units or junk ("72.4kg")
//   - European tooling writes a decimal comma ("72,4")
//   - cells arrive wrapped in stray quotes and whitespace
//   - dates are DD/MM/YYYY text, which does not sort lexically
//
// Numeric conversions never fail: anything unparseable becomes 0.

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// leadingFloatRegex matches the longest decimal literal at the start of a cell.
var leadingFloatRegex = regexp.MustCompile(`^[+-]?(\d+\.?\d*|\.\d+)([eE][+-]?\d+)?`)

// leadingIntRegex matches the longest integer literal at the start of a cell.
var leadingIntRegex = regexp.MustCompile(`^[+-]?\d+`)

// CleanCell trims whitespace and removes every double quote from a cell.
func CleanCell(s string) string {
	return strings.TrimSpace(strings.ReplaceAll(s, `"`, ""))
}

// ParseLenientFloat reads the leading decimal literal of s.
// "72.4kg" yields 72.4, "abc" yields 0. Infinite results also yield 0.
func ParseLenientFloat(s string) float64 {
	m := leadingFloatRegex.FindString(strings.TrimSpace(s))
	if m == "" {
		return 0
	}
	f, err := strconv.ParseFloat(m, 64)
	if err != nil || math.IsInf(f, 0) || math.IsNaN(f) {
		return 0
	}
	return f
}

// ParseLenientInt reads the leading integer literal of s.
// "12.7" yields 12, "x" yields 0.
func ParseLenientInt(s string) float64 {
	m := leadingIntRegex.FindString(strings.TrimSpace(s))
	if m == "" {
		return 0
	}
	i, err := strconv.ParseInt(m, 10, 64)
	if err != nil {
		return 0
	}
	return float64(i)
}

// ParseDecimalComma converts a cell that may use a decimal comma.
// Only the first comma is treated as the separator.
func ParseDecimalComma(s string) float64 {
	return ParseLenientFloat(strings.Replace(s, ",", ".", 1))
}

// FormatDecimalComma renders v in its shortest form with a decimal comma.
func FormatDecimalComma(v float64) string {
	return strings.Replace(strconv.FormatFloat(v, 'f', -1, 64), ".", ",", 1)
}

// ParseRecordDate parses a DD/MM/YYYY date at midnight UTC.
// Day, month and year are read explicitly so unpadded parts are accepted.
func ParseRecordDate(date string) (time.Time, bool) {
	parts := strings.Split(strings.TrimSpace(date), "/")
	if len(parts) != 3 {
		return time.Time{}, false
	}

	day, err1 := strconv.Atoi(parts[0])
	month, err2 := strconv.Atoi(parts[1])
	year, err3 := strconv.Atoi(parts[2])
	if err1 != nil || err2 != nil || err3 != nil {
		return time.Time{}, false
	}
	if month < 1 || month > 12 || day < 1 || day > daysIn(year, time.Month(month)) {
		return time.Time{}, false
	}

	return time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC), true
}

// ParseTimestamp combines a DD/MM/YYYY date and an HH:MM[:SS] clock.
// Malformed input yields the Unix epoch.
func ParseTimestamp(date, clock string) time.Time {
	day, ok := ParseRecordDate(date)
	if !ok {
		return time.Unix(0, 0).UTC()
	}

	clock = strings.TrimSpace(clock)
	if clock == "" {
		clock = DefaultTime
	}

	parts := strings.Split(clock, ":")
	if len(parts) < 2 || len(parts) > 3 {
		return time.Unix(0, 0).UTC()
	}

	var hms [3]int
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 {
			return time.Unix(0, 0).UTC()
		}
		hms[i] = n
	}
	if hms[0] > 23 || hms[1] > 59 || hms[2] > 59 {
		return time.Unix(0, 0).UTC()
	}

	return day.Add(time.Duration(hms[0])*time.Hour +
		time.Duration(hms[1])*time.Minute +
		time.Duration(hms[2])*time.Second)
}

// daysIn returns the number of days in the given month.
func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
