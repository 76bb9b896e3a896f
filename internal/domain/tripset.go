package domain

import (
	"bytes"
	"slices"

	"github.com/google/uuid"
)

// TripSet is a collection of trips keyed by ID.
// Order is not meaningful; use Sorted for display.
type TripSet []Trip

// Clone returns a copy that shares no backing array with s.
// A nil set clones to an empty, non-nil set so callers can range and
// encode it without special cases.
func (s TripSet) Clone() TripSet {
	out := make(TripSet, len(s))
	copy(out, s)
	return out
}

// Sorted returns a copy ordered by StartDate descending (most recent first).
// Trips that start on the same day are ordered by ID so output is stable.
func (s TripSet) Sorted() TripSet {
	out := s.Clone()
	slices.SortStableFunc(out, func(a, b Trip) int {
		if c := b.StartDate.Compare(a.StartDate); c != 0 {
			return c
		}
		return bytes.Compare(a.ID[:], b.ID[:])
	})
	return out
}

// IndexOf returns the position of the trip with the given ID, or -1.
func (s TripSet) IndexOf(id uuid.UUID) int {
	return slices.IndexFunc(s, func(t Trip) bool { return t.ID == id })
}

// Contains reports whether a trip with the given ID is present.
func (s TripSet) Contains(id uuid.UUID) bool {
	return s.IndexOf(id) >= 0
}

// IDs returns the set of trip IDs.
func (s TripSet) IDs() map[uuid.UUID]struct{} {
	ids := make(map[uuid.UUID]struct{}, len(s))
	for _, t := range s {
		ids[t.ID] = struct{}{}
	}
	return ids
}

// SameIDs reports whether s and other hold exactly the same identities.
// Trip content is not compared.
func (s TripSet) SameIDs(other TripSet) bool {
	a, b := s.IDs(), other.IDs()
	if len(a) != len(b) {
		return false
	}
	for id := range a {
		if _, ok := b[id]; !ok {
			return false
		}
	}
	return true
}

// TotalDuration sums Duration over every trip. Trips whose end precedes
// their start contribute negative days.
func (s TripSet) TotalDuration() int {
	total := 0
	for _, t := range s {
		total += t.Duration()
	}
	return total
}

// Page returns the slice of s described by p, clamped to the set's bounds.
// A page past the end, however large, is empty.
func (s TripSet) Page(p PaginationParams) TripSet {
	start := min(p.Offset(), len(s))
	end := start + min(max(p.Limit, 0), len(s)-start)
	return s[start:end]
}
