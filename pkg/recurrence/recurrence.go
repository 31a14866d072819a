// Package recurrence computes occurrence dates for recurring
// transactions. All comparisons work on civil dates: calendar days
// without a time of day, pinned to UTC.
package recurrence

import (
	"time"

	"github.com/finbook-app/finbook/pkg/models"
)

// CivilDate truncates t to midnight UTC, keeping only the calendar day.
func CivilDate(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Next returns the occurrence following d for the given frequency.
// Monthly and yearly steps clamp the day of month to the length of the
// target month, so Jan 31 + monthly lands on Feb 28 (or Feb 29 in a
// leap year). The second return value is false for unknown frequencies,
// meaning the rule cannot recur further.
func Next(d time.Time, f models.Frequency) (time.Time, bool) {
	switch f {
	case models.FrequencyDaily:
		return d.AddDate(0, 0, 1), true
	case models.FrequencyWeekly:
		return d.AddDate(0, 0, 7), true
	case models.FrequencyMonthly:
		return addMonths(d, 1), true
	case models.FrequencyYearly:
		return addMonths(d, 12), true
	}
	return time.Time{}, false
}

// FastForward advances a cursor from start to the first occurrence that
// is not before today. It never materializes anything; rule creation and
// edits use it to skip already-elapsed occurrences.
func FastForward(start time.Time, f models.Frequency, today time.Time) time.Time {
	cursor := CivilDate(start)
	today = CivilDate(today)
	for cursor.Before(today) {
		next, ok := Next(cursor, f)
		if !ok {
			break
		}
		cursor = next
	}
	return cursor
}

func addMonths(d time.Time, n int) time.Time {
	y, m, day := d.Date()
	// Normalize to the first of the target month, then clamp the day.
	first := time.Date(y, m+time.Month(n), 1, 0, 0, 0, 0, d.Location())
	if last := daysIn(first.Year(), first.Month()); day > last {
		day = last
	}
	return time.Date(first.Year(), first.Month(), day,
		d.Hour(), d.Minute(), d.Second(), d.Nanosecond(), d.Location())
}

// daysIn returns the number of days in the given month; day 0 of the
// following month is the last day of this one.
func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
