package daterange

import (
	"errors"
	"time"
)

var (
	ErrStartRequired  = errors.New("daterange: start date is required")
	ErrEndBeforeStart = errors.New("daterange: end date must not precede start date")
)

// DateRange is an inclusive [Start, End] calendar interval. Times are
// normalized to midnight UTC so two ranges compare by calendar day.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// New validates and normalizes a range.
func New(start, end time.Time) (DateRange, error) {
	if start.IsZero() {
		return DateRange{}, ErrStartRequired
	}
	start = Truncate(start)
	end = Truncate(end)
	if end.Before(start) {
		return DateRange{}, ErrEndBeforeStart
	}
	return DateRange{Start: start, End: end}, nil
}

// Overlaps reports whether two inclusive ranges share at least one day:
// existing [s1,e1] conflicts with requested [s2,e2] iff e1 >= s2 && s1 <= e2.
func (r DateRange) Overlaps(other DateRange) bool {
	return !r.End.Before(other.Start) && !r.Start.After(other.End)
}

// Contains reports whether the given day falls inside the range.
func (r DateRange) Contains(day time.Time) bool {
	day = Truncate(day)
	return !day.Before(r.Start) && !day.After(r.End)
}

// Truncate drops the time-of-day component, keeping the UTC calendar day.
func Truncate(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
