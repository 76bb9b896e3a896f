package service

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/pkordes/naturalization-tracker/internal/domain"
)

// Entitlements reads the paid features of a user.
// repo.RemoteStore satisfies it.
type Entitlements interface {
	Entitlement(ctx context.Context, userID string) (domain.Entitlement, error)
}

// Session reports the signed-in user. auth.Provider satisfies it.
type Session interface {
	CurrentUserID() (string, bool)
}

// TripImporter adds a batch of trips in one change. Controller satisfies it.
type TripImporter interface {
	ImportTrips(ctx context.Context, trips []domain.Trip) (int, error)
}

// ImportService bulk-loads trips from CSV for users entitled to it.
type ImportService struct {
	trips   TripImporter
	ent     Entitlements
	session Session
}

// NewImportService constructs an ImportService.
func NewImportService(trips TripImporter, ent Entitlements, session Session) *ImportService {
	return &ImportService{trips: trips, ent: ent, session: session}
}

// ImportCSV parses r and adds every trip not already present.
// It returns the number of trips added.
//
// Returns domain.ErrSessionUnavailable if nobody is signed in,
// domain.ErrForbidden if the user has neither premium nor an active trial,
// and domain.ErrValidation if any row is malformed. Nothing is imported
// unless every row parses.
func (s *ImportService) ImportCSV(ctx context.Context, r io.Reader) (int, error) {
	userID, ok := s.session.CurrentUserID()
	if !ok {
		return 0, fmt.Errorf("service.ImportService.ImportCSV: %w", domain.ErrSessionUnavailable)
	}
	ent, err := s.ent.Entitlement(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("service.ImportService.ImportCSV: %w", err)
	}
	if !ent.AllowsImport() {
		return 0, fmt.Errorf("service.ImportService.ImportCSV: %w: import requires premium or an active trial", domain.ErrForbidden)
	}

	trips, err := ParseTripsCSV(r)
	if err != nil {
		return 0, fmt.Errorf("service.ImportService.ImportCSV: %w", err)
	}
	n, err := s.trips.ImportTrips(ctx, trips)
	if err != nil {
		return 0, fmt.Errorf("service.ImportService.ImportCSV: %w", err)
	}
	return n, nil
}

// ParseTripsCSV reads trips from CSV with a header row. start_date and
// end_date are required columns; title, emoji and trip_id are optional and
// any other column is ignored. Rows without a valid trip_id get a new id.
func ParseTripsCSV(r io.Reader) ([]domain.Trip, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: file is empty", domain.ErrValidation)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrValidation, err)
	}

	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))] = i
	}
	for _, required := range []string{"start_date", "end_date"} {
		if _, ok := cols[required]; !ok {
			return nil, fmt.Errorf("%w: missing column %q", domain.ErrValidation, required)
		}
	}

	field := func(rec []string, name string) string {
		i, ok := cols[name]
		if !ok || i >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[i])
	}

	trips := []domain.Trip{}
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %w", domain.ErrValidation, err)
		}

		trip, err := parseRow(field(rec, "trip_id"), field(rec, "title"), field(rec, "start_date"), field(rec, "end_date"), field(rec, "emoji"))
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %w", domain.ErrValidation, line, err)
		}
		trips = append(trips, trip)
	}
	return trips, nil
}

func parseRow(id, title, start, end, emoji string) (domain.Trip, error) {
	startDate, err := time.Parse(dateLayout, start)
	if err != nil {
		return domain.Trip{}, fmt.Errorf("start_date %q is not a date", start)
	}
	endDate, err := time.Parse(dateLayout, end)
	if err != nil {
		return domain.Trip{}, fmt.Errorf("end_date %q is not a date", end)
	}
	if emoji == "" {
		emoji = domain.DefaultEmoji
	}
	if !domain.IsKnownEmoji(emoji) {
		return domain.Trip{}, fmt.Errorf("unknown emoji %q", emoji)
	}

	trip := domain.NewTrip(title, startDate, endDate, emoji)
	if parsed, err := uuid.Parse(id); err == nil && parsed != uuid.Nil {
		trip.ID = parsed
	}
	return trip, nil
}
