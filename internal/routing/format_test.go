package routing

import (
	"testing"
	"time"
)

func TestFormatDistanceBoundaries(t *testing.T) {
	cases := []struct {
		meters float64
		want   string
	}{
		{0, "0 m"},
		{999, "999 m"},
		{1000, "1.0 km"},
		{12345, "12.3 km"},
	}
	for _, c := range cases {
		if got := FormatDistance(c.meters); got != c.want {
			t.Errorf("FormatDistance(%f) = %q, want %q", c.meters, got, c.want)
		}
	}
}

func TestFormatDurationBoundaries(t *testing.T) {
	cases := []struct {
		d    time.Duration
		want string
	}{
		{10 * time.Second, "1 dk"}, // never render a zero ETA
		{5 * time.Minute, "5 dk"},
		{59 * time.Minute, "59 dk"},
		{90 * time.Minute, "1 sa 30 dk"},
	}
	for _, c := range cases {
		if got := FormatDuration(c.d); got != c.want {
			t.Errorf("FormatDuration(%v) = %q, want %q", c.d, got, c.want)
		}
	}
}
