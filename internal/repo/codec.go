package repo

import (
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/pkordes/naturalization-tracker/internal/domain"
)

// EncodeTrips serializes a trip set as a JSON array. A nil set encodes as
// "[]" so an emptied store is distinguishable from one never written.
func EncodeTrips(trips domain.TripSet) ([]byte, error) {
	if trips == nil {
		trips = domain.TripSet{}
	}
	b, err := json.Marshal(trips)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrSerialization, err)
	}
	return b, nil
}

// DecodeTrips parses the output of EncodeTrips. It never returns a partially
// decoded set: on error the result is nil.
func DecodeTrips(b []byte) (domain.TripSet, error) {
	var trips domain.TripSet
	if err := json.Unmarshal(b, &trips); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrSerialization, err)
	}
	if trips == nil {
		trips = domain.TripSet{}
	}
	return trips, nil
}

// EncodeTripsText is EncodeTrips wrapped in standard base64 so the set can be
// stored in a text field of a remote document.
func EncodeTripsText(trips domain.TripSet) (string, error) {
	b, err := EncodeTrips(trips)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(b), nil
}

// DecodeTripsText reverses EncodeTripsText.
func DecodeTripsText(s string) (domain.TripSet, error) {
	b, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: base64: %w", domain.ErrSerialization, err)
	}
	return DecodeTrips(b)
}
