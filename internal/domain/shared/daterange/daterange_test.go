package daterange

import (
	"errors"
	"testing"
	"time"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func mustRange(t *testing.T, start, end time.Time) DateRange {
	t.Helper()
	r, err := New(start, end)
	if err != nil {
		t.Fatalf("new range: %v", err)
	}
	return r
}

func TestNewRejectsReversedRange(t *testing.T) {
	if _, err := New(day(2025, 3, 10), day(2025, 3, 1)); !errors.Is(err, ErrEndBeforeStart) {
		t.Fatalf("expected ErrEndBeforeStart got %v", err)
	}
}

func TestNewAllowsSingleDay(t *testing.T) {
	r := mustRange(t, day(2025, 3, 1), day(2025, 3, 1))
	if !r.Start.Equal(r.End) {
		t.Fatalf("expected single day range")
	}
}

func TestNewNormalizesTimeOfDay(t *testing.T) {
	r := mustRange(t,
		time.Date(2025, 3, 1, 15, 30, 0, 0, time.UTC),
		time.Date(2025, 3, 5, 1, 0, 0, 0, time.UTC),
	)
	if !r.Start.Equal(day(2025, 3, 1)) || !r.End.Equal(day(2025, 3, 5)) {
		t.Fatalf("expected midnight UTC bounds got %v %v", r.Start, r.End)
	}
}

func TestOverlaps(t *testing.T) {
	base := mustRange(t, day(2025, 3, 10), day(2025, 3, 20))
	cases := []struct {
		name  string
		other DateRange
		want  bool
	}{
		{"inside", mustRange(t, day(2025, 3, 12), day(2025, 3, 15)), true},
		{"covers", mustRange(t, day(2025, 3, 1), day(2025, 3, 31)), true},
		{"left overlap", mustRange(t, day(2025, 3, 1), day(2025, 3, 10)), true},
		{"touching end", mustRange(t, day(2025, 3, 20), day(2025, 3, 25)), true},
		{"before", mustRange(t, day(2025, 3, 1), day(2025, 3, 9)), false},
		{"after", mustRange(t, day(2025, 3, 21), day(2025, 3, 25)), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := base.Overlaps(tc.other); got != tc.want {
				t.Fatalf("expected %v got %v", tc.want, got)
			}
			// Overlap is symmetric.
			if got := tc.other.Overlaps(base); got != tc.want {
				t.Fatalf("symmetric check: expected %v got %v", tc.want, got)
			}
		})
	}
}

func TestContains(t *testing.T) {
	r := mustRange(t, day(2025, 3, 10), day(2025, 3, 20))
	if !r.Contains(day(2025, 3, 10)) || !r.Contains(day(2025, 3, 20)) {
		t.Fatalf("endpoints are inclusive")
	}
	if r.Contains(day(2025, 3, 9)) || r.Contains(day(2025, 3, 21)) {
		t.Fatalf("days outside must not match")
	}
}
