package domain

import "time"

// EligibilityProfile holds the resident's facts that anchor the eligibility window.
// A zero GreenCardStartDate means the date has not been entered yet.
type EligibilityProfile struct {
	GreenCardStartDate time.Time `json:"greenCardStartDate"`
	MarriedToCitizen   bool      `json:"marriedToCitizen"`
}

// HasGreenCardDate reports whether the green-card date has been set.
func (p EligibilityProfile) HasGreenCardDate() bool {
	return !p.GreenCardStartDate.IsZero()
}

// AdjustmentYears is the length of the residency window: three years for
// residents married to a citizen, five otherwise.
func (p EligibilityProfile) AdjustmentYears() int {
	if p.MarriedToCitizen {
		return 3
	}
	return 5
}

// Entitlement describes the paid features available to a signed-in user.
type Entitlement struct {
	Premium         bool
	FreeTrialActive bool
}

// AllowsImport reports whether the user may bulk-import trips.
func (e Entitlement) AllowsImport() bool {
	return e.Premium || e.FreeTrialActive
}
