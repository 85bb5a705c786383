package scan

import (
	"fmt"
	"time"
)

// DefaultWindowDays is the rolling window used when no variant is chosen.
const DefaultWindowDays = 365

// Window is the half-open publish-time interval [Start, End) a version
// must fall in to be reported.
type Window struct {
	Start time.Time
	End   time.Time
}

// RollingWindow returns the window covering the last days days up to now.
// The upper bound is fixed at construction so every worker filters against
// the same interval.
func RollingWindow(now time.Time, days int) Window {
	now = now.UTC()
	return Window{
		Start: now.AddDate(0, 0, -days),
		End:   now,
	}
}

// CalendarYear returns the window covering the given UTC calendar year.
func CalendarYear(year int) Window {
	start := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	return Window{
		Start: start,
		End:   start.AddDate(1, 0, 0),
	}
}

// Contains reports whether t falls inside the window: Start inclusive,
// End exclusive.
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && t.Before(w.End)
}

func (w Window) String() string {
	return fmt.Sprintf("[%s, %s)", w.Start.Format(time.RFC3339), w.End.Format(time.RFC3339))
}
