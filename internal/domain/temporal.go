package domain

import (
	"errors"
	"fmt"
	"time"
)

// ErrUnsupportedPeriod indicates a period value outside the closed enum. It is
// unreachable through validated input and treated as a data-model violation.
var ErrUnsupportedPeriod = errors.New("unsupported period")

// AddPeriod returns t shifted by one period. Monthly steps use calendar
// arithmetic with the day-of-month clamped to the target month's length
// (Jan 31 + 1 month = Feb 29 in a leap year, Feb 28 otherwise).
func AddPeriod(t time.Time, p Period) (time.Time, error) {
	switch p {
	case PeriodDaily:
		return t.AddDate(0, 0, 1), nil
	case PeriodWeekly:
		return t.AddDate(0, 0, 7), nil
	case PeriodMonthly:
		return addMonthClamped(t), nil
	default:
		return time.Time{}, fmt.Errorf("%w: %q", ErrUnsupportedPeriod, p)
	}
}

// addMonthClamped steps one calendar month forward without the overflow
// time.AddDate would apply (Jan 31 -> Mar 2/3).
func addMonthClamped(t time.Time) time.Time {
	year, month, day := t.Date()

	// Day 0 of month+2 is the last day of month+1; time.Date normalizes
	// out-of-range months across year boundaries.
	lastDay := time.Date(year, month+2, 0, 0, 0, 0, 0, t.Location()).Day()
	if day > lastDay {
		day = lastDay
	}

	return time.Date(year, month+1, day, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}

// Combine builds a timezone-aware timestamp from the date part of t and the
// given wall-clock time.
func Combine(t time.Time, tod TimeOfDay, loc *time.Location) time.Time {
	year, month, day := t.In(loc).Date()
	return time.Date(year, month, day, tod.Hour, tod.Minute, tod.Second, 0, loc)
}

// InitialNextRun computes next_run_at for a freshly created schedule:
// the date one period from now, combined with the configured time of day.
func InitialNextRun(now time.Time, p Period, tod TimeOfDay, loc *time.Location) (time.Time, error) {
	shifted, err := AddPeriod(now.In(loc), p)
	if err != nil {
		return time.Time{}, err
	}

	return Combine(shifted, tod, loc), nil
}

// RecomputeOnEdit applies the edit rules for next_run_at:
//
//   - period changed: the date comes from now + new offset, the time of day
//     stays the old one;
//   - time of day changed: the date component is kept, the time replaced;
//   - both changed in one write: the period rule runs first (with the old
//     time), then the new time of day overwrites the time component.
//
// When neither field changed the stored next_run_at is returned untouched.
func RecomputeOnEdit(
	now time.Time,
	oldPeriod Period,
	oldTime TimeOfDay,
	oldNextRun time.Time,
	newPeriod Period,
	newTime TimeOfDay,
	loc *time.Location,
) (time.Time, error) {
	next := oldNextRun

	if newPeriod != oldPeriod {
		shifted, err := AddPeriod(now.In(loc), newPeriod)
		if err != nil {
			return time.Time{}, err
		}
		next = Combine(shifted, oldTime, loc)
	}

	if newTime != oldTime {
		next = Combine(next, newTime, loc)
	}

	return next, nil
}

// Advance moves next_run_at one period forward after a completed run. Working
// from the previous slot rather than from now guarantees forward progress even
// when the run overran its minute window.
func Advance(nextRun time.Time, p Period) (time.Time, error) {
	return AddPeriod(nextRun, p)
}
