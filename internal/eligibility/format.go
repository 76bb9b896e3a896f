package eligibility

import (
	"fmt"
	"strings"
	"time"

	"github.com/pkordes/naturalization-tracker/internal/domain"
)

// Fixed divisors used by FormatDurationDays.
const (
	daysPerYear  = 365
	daysPerMonth = 30
)

// FormatDurationDays renders a day count as "N years, N months, N days".
//
// The conversion uses fixed divisors (365-day years, 30-day months) and is a
// display approximation, not a calendar-accurate or legal computation: 360
// days renders as "12 months". Zero components are omitted; when every
// component is zero (including negative totals) the result is "0 days".
func FormatDurationDays(days int) string {
	years := days / daysPerYear
	rest := days % daysPerYear
	return formatParts(years, rest/daysPerMonth, rest%daysPerMonth)
}

// FormatDuration renders the calendar distance from -> to as
// "N years, N months, N days", or "0 days" when to is not after from.
func FormatDuration(from, to time.Time) string {
	return formatParts(Components(from, to))
}

// Components returns the calendar difference from -> to as whole years,
// months and remaining days. Adding months clamps to the end of the target
// month, so Jan 31 -> Mar 1 is one month and one day. All components are
// zero when to is not after from.
func Components(from, to time.Time) (years, months, days int) {
	from, to = domain.DateOnly(from), domain.DateOnly(to)
	if !to.After(from) {
		return 0, 0, 0
	}
	total := (to.Year()-from.Year())*12 + int(to.Month()) - int(from.Month())
	if addMonths(from, total).After(to) {
		total--
	}
	return total / 12, total % 12, domain.DaysBetween(addMonths(from, total), to)
}

// addMonths adds n calendar months to a date, clamping the day of month.
func addMonths(t time.Time, n int) time.Time {
	y, m, d := t.Date()
	first := time.Date(y, m+time.Month(n), 1, 0, 0, 0, 0, time.UTC)
	d = min(d, daysIn(first))
	return time.Date(first.Year(), first.Month(), d, 0, 0, 0, 0, time.UTC)
}

func daysIn(t time.Time) int {
	return time.Date(t.Year(), t.Month()+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

func formatParts(years, months, days int) string {
	var parts []string
	if years > 0 {
		parts = append(parts, plural(years, "year"))
	}
	if months > 0 {
		parts = append(parts, plural(months, "month"))
	}
	if days > 0 {
		parts = append(parts, plural(days, "day"))
	}
	if len(parts) == 0 {
		return "0 days"
	}
	return strings.Join(parts, ", ")
}

func plural(n int, unit string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", unit)
	}
	return fmt.Sprintf("%d %ss", n, unit)
}
