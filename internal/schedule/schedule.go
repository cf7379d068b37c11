// Package schedule computes step due dates and day boundaries.
//
// Nothing here reads the wall clock: every function takes the reference
// instant it works from.
package schedule

import (
	"fmt"
	"time"

	"github.com/ignite/outreach-engine/internal/domain"
)

// DateLayout is the layout of reference dates (YYYY-MM-DD).
const DateLayout = "2006-01-02"

// ComputeNextDue returns the due instant of steps[index] when it becomes the
// current step at ref. ok is false when no such step exists.
//
// Delays are whole calendar days in ref's location, so a delay of 0 is due
// at ref itself.
func ComputeNextDue(index int, steps []domain.Step, ref time.Time) (due time.Time, ok bool) {
	if index < 0 || index >= len(steps) {
		return time.Time{}, false
	}
	return ref.AddDate(0, 0, steps[index].DelayDays), true
}

// NextDuePtr is ComputeNextDue shaped for nullable columns.
func NextDuePtr(index int, steps []domain.Step, ref time.Time) *time.Time {
	due, ok := ComputeNextDue(index, steps, ref)
	if !ok {
		return nil
	}
	return &due
}

// StartOfDay returns midnight of t's calendar day in loc.
func StartOfDay(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

// DayWindow returns [start, end) of the calendar day containing t in loc.
// end is the start of the following day, so "due by the end of the day"
// means due.Before(end).
func DayWindow(t time.Time, loc *time.Location) (start, end time.Time) {
	start = StartOfDay(t, loc)
	return start, start.AddDate(0, 0, 1)
}

// EndOfDay is the exclusive upper bound of t's calendar day in loc.
func EndOfDay(t time.Time, loc *time.Location) time.Time {
	_, end := DayWindow(t, loc)
	return end
}

// ParseDate parses a YYYY-MM-DD reference date in loc.
func ParseDate(s string, loc *time.Location) (time.Time, error) {
	d, err := time.ParseInLocation(DateLayout, s, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: want YYYY-MM-DD", s)
	}
	return d, nil
}
