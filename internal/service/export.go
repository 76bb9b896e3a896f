package service

import (
	"context"

	"github.com/pkordes/naturalization-tracker/internal/domain"
)

// dateLayout is the calendar-date format used in exports and imports.
const dateLayout = "2006-01-02"

// CSVColumns is the header row of a trip CSV. ImportService accepts files
// with this header, so an export can be imported again.
var CSVColumns = []string{"trip_id", "title", "start_date", "end_date", "days", "emoji"}

// TripLister returns the canonical trip set in display order.
// Controller satisfies it.
type TripLister interface {
	Trips() domain.TripSet
}

// ExportService assembles a flat export of every trip.
type ExportService struct {
	trips TripLister
}

// NewExportService constructs an ExportService over the given trip source.
func NewExportService(trips TripLister) *ExportService {
	return &ExportService{trips: trips}
}

// Export returns one ExportRow per trip, most recent first.
// Always returns a non-nil slice so callers can safely range over it.
func (s *ExportService) Export(_ context.Context) ([]domain.ExportRow, error) {
	trips := s.trips.Trips()
	rows := make([]domain.ExportRow, 0, len(trips))
	for _, t := range trips {
		rows = append(rows, domain.ExportRow{
			TripID:    t.ID.String(),
			Title:     t.Title,
			StartDate: t.StartDate.Format(dateLayout),
			EndDate:   t.EndDate.Format(dateLayout),
			Days:      t.Duration(),
			Emoji:     t.Emoji,
		})
	}
	return rows, nil
}
