package util

import (
	"math"
	"strconv"
	"strings"
	"time"
)

// ParseUSDate parses a strictly US-format date (MM/DD/YYYY). Deviations fail
// rather than misparse; the raw commodity files guarantee this format.
func ParseUSDate(s string) (time.Time, bool) {
	s = strings.Trim(s, "\"' ")
	if s == "" {
		return time.Time{}, false
	}
	t, err := time.Parse("01/02/2006", s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// ParseISODate parses YYYY-MM-DD, optionally with a trailing time component.
func ParseISODate(s string) (time.Time, bool) {
	s = strings.Trim(s, "\"' ")
	if s == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, true
	}
	if t, err := time.Parse("2006-01-02 15:04:05", s); err == nil {
		return Day(t), true
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return Day(t), true
	}
	return time.Time{}, false
}

// Day normalizes a timestamp to UTC midnight so daily joins never miss on a
// hidden time component.
func Day(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseNumeric converts a US-format numeric string: thousands separators,
// a trailing %, and K/M volume suffixes. Volume values are rounded to avoid
// floating point artifacts. Returns NaN when the value is absent or malformed.
func ParseNumeric(s string) float64 {
	v := strings.Trim(s, "\"' ")
	if v == "" || v == "-" {
		return math.NaN()
	}

	if strings.Contains(v, "%") {
		v = strings.ReplaceAll(v, "%", "")
		f, err := strconv.ParseFloat(strings.ReplaceAll(v, ",", ""), 64)
		if err != nil {
			return math.NaN()
		}
		return f
	}

	u := strings.ToUpper(v)
	if strings.Contains(u, "K") {
		u = strings.ReplaceAll(u, "K", "")
		f, err := strconv.ParseFloat(strings.ReplaceAll(u, ",", ""), 64)
		if err != nil {
			return math.NaN()
		}
		return math.Round(f * 1_000)
	}
	if strings.Contains(u, "M") {
		u = strings.ReplaceAll(u, "M", "")
		f, err := strconv.ParseFloat(strings.ReplaceAll(u, ",", ""), 64)
		if err != nil {
			return math.NaN()
		}
		return math.Round(f * 1_000_000)
	}

	f, err := strconv.ParseFloat(strings.ReplaceAll(v, ",", ""), 64)
	if err != nil {
		return math.NaN()
	}
	return f
}
