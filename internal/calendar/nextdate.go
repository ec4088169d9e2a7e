// Package calendar computes investment dates on calendar days. The configured
// location only decides which day "today" is; all date arithmetic then runs on
// civil dates held as midnight UTC, a frame without DST gaps, so a zone whose
// clocks skip midnight can never shift a result onto the previous day.
package calendar

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"ETFPal/internal/model"
)

// Layout is the canonical date format.
const Layout = "2006-01-02"

// parseLayout also accepts months and days without leading zeros.
const parseLayout = "2006-1-2"

var (
	ErrInvalidCadence   = errors.New("invalid cadence")
	ErrInvalidAnchorDay = errors.New("invalid anchor day")
	ErrInvalidDate      = errors.New("invalid date")
)

// civil builds the midnight-UTC value for a calendar date.
func civil(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Day returns the calendar day of instant t in loc as a civil date.
func Day(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	y, m, d := t.In(loc).Date()
	return civil(y, m, d)
}

// ParseDate parses yyyy-mm-dd or yyyy/mm/dd (leading zeros optional) into a
// civil date.
func ParseDate(s string) (time.Time, error) {
	norm := strings.ReplaceAll(strings.TrimSpace(s), "/", "-")
	t, err := time.Parse(parseLayout, norm)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return t, nil
}

// FormatDate renders the calendar day of instant t in loc as yyyy-mm-dd.
func FormatDate(t time.Time, loc *time.Location) string {
	return Day(t, loc).Format(Layout)
}

// NextInvestmentDate returns the next scheduled investment day as yyyy-mm-dd.
// loc determines which calendar day today falls on; nil means UTC.
//
// Without lastDate the search starts at today and includes it. With lastDate
// the search starts the day after it, since an investment already happened on
// lastDate.
//
//   - daily: the day after lastDate, or the day after today.
//   - weekly: the first day on or after the search start whose weekday is
//     anchorDay (0=Sunday..6=Saturday).
//   - monthly: day anchorDay (1..31) of the search start's month if not before
//     the start, otherwise of a following month. Months without that day are
//     handled by policy: MonthEndRoll skips to the next month that has it,
//     MonthEndClamp uses the short month's last day.
func NextInvestmentDate(lastDate string, today time.Time, cadence model.Cadence, anchorDay int, policy model.MonthEndPolicy, loc *time.Location) (string, error) {
	var start time.Time
	hasLast := strings.TrimSpace(lastDate) != ""
	if hasLast {
		last, err := ParseDate(lastDate)
		if err != nil {
			return "", err
		}
		start = last.AddDate(0, 0, 1)
	} else {
		start = Day(today, loc)
	}

	var next time.Time
	switch cadence {
	case model.CadenceDaily:
		if hasLast {
			next = start
		} else {
			next = start.AddDate(0, 0, 1)
		}
	case model.CadenceWeekly:
		if anchorDay < 0 || anchorDay > 6 {
			return "", fmt.Errorf("%w: weekday %d", ErrInvalidAnchorDay, anchorDay)
		}
		next = nextWeekday(start, time.Weekday(anchorDay))
	case model.CadenceMonthly:
		if anchorDay < 1 || anchorDay > 31 {
			return "", fmt.Errorf("%w: day of month %d", ErrInvalidAnchorDay, anchorDay)
		}
		next = nextMonthDay(start, anchorDay, policy)
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidCadence, cadence)
	}

	return next.Format(Layout), nil
}

// nextWeekday returns the first day on or after start falling on wd.
func nextWeekday(start time.Time, wd time.Weekday) time.Time {
	ahead := (int(wd) - int(start.Weekday()) + 7) % 7
	return start.AddDate(0, 0, ahead)
}

// nextMonthDay returns the first occurrence of day-of-month day on or after start.
func nextMonthDay(start time.Time, day int, policy model.MonthEndPolicy) time.Time {
	y, m := start.Year(), start.Month()
	// Every day 1..31 occurs within any 12-month window, so the loop always returns.
	for i := 0; i < 13; i++ {
		first := civil(y, m+time.Month(i), 1)
		last := DaysIn(first.Year(), first.Month())

		target := day
		if day > last {
			if policy != model.MonthEndClamp {
				continue
			}
			target = last
		}

		candidate := civil(first.Year(), first.Month(), target)
		if !candidate.Before(start) {
			return candidate
		}
	}
	return start
}

// DaysIn returns the number of days in the given month.
func DaysIn(year int, month time.Month) int {
	return civil(year, month+1, 0).Day()
}

// IsDue reports whether nextDate (yyyy-mm-dd) is today or already past in loc.
func IsDue(nextDate string, today time.Time, loc *time.Location) (bool, error) {
	next, err := ParseDate(nextDate)
	if err != nil {
		return false, err
	}
	return !next.After(Day(today, loc)), nil
}
