package handler

import (
	"time"

	"github.com/google/uuid"
	openapi_types "github.com/oapi-codegen/runtime/types"

	"github.com/pkordes/naturalization-tracker/internal/domain"
	"github.com/pkordes/naturalization-tracker/internal/eligibility"
	"github.com/pkordes/naturalization-tracker/internal/state"
)

// The types below mirror the schemas in spec/openapi.yaml.
// Dates travel as "2006-01-02" strings via openapi_types.Date.

// TripRequest is the body of POST /trips and PUT /trips/{id}.
// ID is honoured on create only; the server generates one when it is absent.
type TripRequest struct {
	ID        *uuid.UUID         `json:"id,omitempty"`
	Title     string             `json:"title"`
	StartDate openapi_types.Date `json:"startDate"`
	EndDate   openapi_types.Date `json:"endDate"`
	Emoji     string             `json:"emoji,omitempty"`
}

// Trip is a trip as returned by the API.
type Trip struct {
	ID        uuid.UUID          `json:"id"`
	Title     string             `json:"title"`
	StartDate openapi_types.Date `json:"startDate"`
	EndDate   openapi_types.Date `json:"endDate"`
	Emoji     string             `json:"emoji"`
	Days      int                `json:"days"`
}

// Pagination describes one page of a list response.
type Pagination struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Total int `json:"total"`
}

// TripList is the body of GET /trips.
type TripList struct {
	Data       []Trip     `json:"data"`
	Pagination Pagination `json:"pagination"`
}

// Profile is the body of GET and PUT /profile. A null greenCardStartDate
// means the date has not been entered.
type Profile struct {
	GreenCardStartDate *openapi_types.Date `json:"greenCardStartDate"`
	MarriedToCitizen   bool                `json:"marriedToCitizen"`
}

// Summary is the body of GET /summary.
type Summary struct {
	TotalTripDuration      int                 `json:"totalTripDuration"`
	EligibilityDate        *openapi_types.Date `json:"eligibilityDate"`
	Eligible               bool                `json:"eligible"`
	TimeLeftForCitizenship string              `json:"timeLeftForCitizenship"`
	PhysicalPresence       string              `json:"physicalPresence"`
	DaysOutsideUS          string              `json:"daysOutsideUS"`
	Notice                 string              `json:"notice,omitempty"`
}

// SessionRequest is the optional body of POST /session. A bearer token in
// the Authorization header takes precedence.
type SessionRequest struct {
	Token string `json:"token"`
}

// Session is the body returned by POST /session.
type Session struct {
	UserID string `json:"userId"`
}

// ImportResult is the body returned by POST /trips/import.
type ImportResult struct {
	Imported int `json:"imported"`
}

// ExportRow is one row of GET /trips/export.
type ExportRow struct {
	TripID    uuid.UUID          `json:"tripId"`
	Title     string             `json:"title"`
	StartDate openapi_types.Date `json:"startDate"`
	EndDate   openapi_types.Date `json:"endDate"`
	Days      int                `json:"days"`
	Emoji     string             `json:"emoji"`
}

// Event is the payload of each server-sent event on GET /events.
type Event struct {
	Trips     []Trip    `json:"trips"`
	Profile   Profile   `json:"profile"`
	Summary   Summary   `json:"summary"`
	SignedIn  bool      `json:"signedIn"`
	UserID    string    `json:"userId,omitempty"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// HealthResponse is the body of GET /healthz.
type HealthResponse struct {
	Status string `json:"status"`
}

// ErrorResponse is the envelope of every error body.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail carries a machine-readable code and a human-readable message.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ---- mapping helpers -------------------------------------------------------

// tripToResponse converts a domain.Trip into the API Trip type.
func tripToResponse(t domain.Trip) Trip {
	return Trip{
		ID:        t.ID,
		Title:     t.Title,
		StartDate: openapi_types.Date{Time: t.StartDate},
		EndDate:   openapi_types.Date{Time: t.EndDate},
		Emoji:     t.Emoji,
		Days:      t.Duration(),
	}
}

func tripsToResponse(trips domain.TripSet) []Trip {
	out := make([]Trip, len(trips))
	for i, t := range trips {
		out[i] = tripToResponse(t)
	}
	return out
}

func profileToResponse(p domain.EligibilityProfile) Profile {
	resp := Profile{MarriedToCitizen: p.MarriedToCitizen}
	if p.HasGreenCardDate() {
		d := openapi_types.Date{Time: domain.DateOnly(p.GreenCardStartDate)}
		resp.GreenCardStartDate = &d
	}
	return resp
}

func summaryToResponse(sum eligibility.Summary, notice string) Summary {
	resp := Summary{
		TotalTripDuration:      sum.TotalTripDuration,
		Eligible:               sum.Eligible,
		TimeLeftForCitizenship: sum.TimeLeftForCitizenship,
		PhysicalPresence:       sum.PhysicalPresence,
		DaysOutsideUS:          sum.DaysOutsideUS,
		Notice:                 notice,
	}
	if !sum.EligibilityDate.IsZero() {
		d := openapi_types.Date{Time: sum.EligibilityDate}
		resp.EligibilityDate = &d
	}
	return resp
}

func snapshotToEvent(snap state.Snapshot) Event {
	return Event{
		Trips:     tripsToResponse(snap.Trips),
		Profile:   profileToResponse(snap.Profile),
		Summary:   summaryToResponse(snap.Summary, snap.Notice),
		SignedIn:  snap.SignedIn,
		UserID:    snap.UserID,
		UpdatedAt: snap.UpdatedAt,
	}
}
