// Package eligibility computes naturalization timelines from a green-card
// date, marriage status and the days spent outside the country.
//
// Everything here is pure: callers pass "now" explicitly and nothing is
// read from or written to a store. Dates are compared as calendar dates;
// time of day is ignored.
package eligibility

import (
	"time"

	"github.com/pkordes/naturalization-tracker/internal/domain"
)

// EarlyFilingDays is how long before the end of the residency window an
// application may be filed.
const EarlyFilingDays = 90

// EligibleNow is returned by TimeLeftForCitizenship once the eligibility
// date has been reached.
const EligibleNow = "Eligible now"

// NotAvailable is shown for date-derived values while no green-card date is set.
const NotAvailable = "N/A"

// Summary is the set of derived values displayed for a profile and trip set.
// It is recomputed on every change and never persisted.
type Summary struct {
	TotalTripDuration      int       `json:"totalTripDuration"`
	EligibilityDate        time.Time `json:"eligibilityDate"`
	Eligible               bool      `json:"eligible"`
	TimeLeftForCitizenship string    `json:"timeLeftForCitizenship"`
	PhysicalPresence       string    `json:"physicalPresence"`
	DaysOutsideUS          string    `json:"daysOutsideUS"`
}

// EligibilityDate returns the first day an application may be filed:
// the green-card date plus three (married to a citizen) or five years,
// minus EarlyFilingDays.
func EligibilityDate(greenCardStartDate time.Time, marriedToCitizen bool) time.Time {
	years := domain.EligibilityProfile{MarriedToCitizen: marriedToCitizen}.AdjustmentYears()
	return addMonths(domain.DateOnly(greenCardStartDate), years*12).AddDate(0, 0, -EarlyFilingDays)
}

// TimeLeftForCitizenship returns EligibleNow when now is on or after the
// eligibility date, and otherwise the remaining calendar time, e.g.
// "1 year, 2 months, 3 days".
func TimeLeftForCitizenship(now, eligibilityDate time.Time) string {
	if IsEligible(now, eligibilityDate) {
		return EligibleNow
	}
	return FormatDuration(now, eligibilityDate)
}

// IsEligible reports whether now has reached the eligibility date.
func IsEligible(now, eligibilityDate time.Time) bool {
	return !domain.DateOnly(now).Before(domain.DateOnly(eligibilityDate))
}

// PhysicalPresence returns the calendar time from the green-card date to
// now, net of totalDaysOutside. It does not flag single absences long
// enough to break continuous residence.
func PhysicalPresence(greenCardStartDate time.Time, totalDaysOutside int, now time.Time) string {
	end := domain.DateOnly(now).AddDate(0, 0, -totalDaysOutside)
	return FormatDuration(greenCardStartDate, end)
}

// Compute derives every displayed value from the profile, the trip set's
// total duration and the current time.
func Compute(profile domain.EligibilityProfile, totalTripDuration int, now time.Time) Summary {
	s := Summary{
		TotalTripDuration:      totalTripDuration,
		DaysOutsideUS:          FormatDurationDays(totalTripDuration),
		TimeLeftForCitizenship: NotAvailable,
		PhysicalPresence:       NotAvailable,
	}
	if !profile.HasGreenCardDate() {
		return s
	}
	s.EligibilityDate = EligibilityDate(profile.GreenCardStartDate, profile.MarriedToCitizen)
	s.Eligible = IsEligible(now, s.EligibilityDate)
	s.TimeLeftForCitizenship = TimeLeftForCitizenship(now, s.EligibilityDate)
	s.PhysicalPresence = PhysicalPresence(profile.GreenCardStartDate, totalTripDuration, now)
	return s
}
