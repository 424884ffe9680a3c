package util

import (
	"math"
	"testing"
	"time"
)

func TestParseUSDate(t *testing.T) {
	got, ok := ParseUSDate(`"12/31/2024"`)
	if !ok {
		t.Fatalf("expected ok")
	}
	if got.Year() != 2024 || got.Month() != time.December || got.Day() != 31 {
		t.Fatalf("unexpected date %v", got)
	}
}

func TestParseUSDateRejectsISO(t *testing.T) {
	if _, ok := ParseUSDate("2024-12-31"); ok {
		t.Fatalf("ISO date must not parse as US format")
	}
}

func TestDayNormalizes(t *testing.T) {
	ts := time.Date(2020, 5, 3, 17, 45, 12, 0, time.UTC)
	d := Day(ts)
	if d.Hour() != 0 || d.Minute() != 0 {
		t.Fatalf("expected midnight, got %v", d)
	}
}

func TestParseNumericSuffixes(t *testing.T) {
	cases := map[string]float64{
		"1,234.56": 1234.56,
		"12.5K":    12500,
		"1.2M":     1200000,
		"-0.43%":   -0.43,
	}
	for in, want := range cases {
		if got := ParseNumeric(in); got != want {
			t.Fatalf("ParseNumeric(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestParseNumericMissing(t *testing.T) {
	if !math.IsNaN(ParseNumeric("")) || !math.IsNaN(ParseNumeric("-")) {
		t.Fatalf("missing values must be NaN")
	}
}
