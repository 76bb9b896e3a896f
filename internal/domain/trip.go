// Package domain contains the core data types for the naturalization tracker.
// This package has no infrastructure dependencies and is imported by every other
// internal package (repo, service, handler).
package domain

import (
	"slices"
	"time"

	"github.com/google/uuid"
)

// Emojis is the fixed set of category markers a trip can carry.
// The first entry is the default for new trips.
var Emojis = []string{"✈️", "🚗", "🚢", "🏖", "⛰", "🏠", "🎢"}

// DefaultEmoji is used when a trip is created without a marker.
const DefaultEmoji = "✈️"

// IsKnownEmoji reports whether e is one of Emojis.
// Stored trips are never checked against the set; only new input is.
func IsKnownEmoji(e string) bool {
	return slices.Contains(Emojis, e)
}

// Trip is a single stay outside the country.
// Identity is ID: two trips with the same ID are the same trip even when
// their other fields differ. StartDate and EndDate are calendar dates; the
// time of day carries no meaning. EndDate is not guaranteed to be on or
// after StartDate.
type Trip struct {
	ID        uuid.UUID `json:"id"`
	Title     string    `json:"title"`
	StartDate time.Time `json:"startDate"`
	EndDate   time.Time `json:"endDate"`
	Emoji     string    `json:"emoji"`
}

// NewTrip builds a Trip with a freshly generated ID.
func NewTrip(title string, start, end time.Time, emoji string) Trip {
	return Trip{
		ID:        uuid.New(),
		Title:     title,
		StartDate: start,
		EndDate:   end,
		Emoji:     emoji,
	}
}

// Duration returns the number of calendar days between StartDate and EndDate.
// It is negative when EndDate precedes StartDate.
func (t Trip) Duration() int {
	return DaysBetween(t.StartDate, t.EndDate)
}

// SameAs reports whether t and other share an identity.
func (t Trip) SameAs(other Trip) bool {
	return t.ID == other.ID
}

// DateOnly strips the time of day from t, keeping t's calendar date, and
// returns it as midnight UTC.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DaysBetween returns the whole calendar days from a to b.
func DaysBetween(a, b time.Time) int {
	return int(DateOnly(b).Sub(DateOnly(a)).Hours() / 24)
}
