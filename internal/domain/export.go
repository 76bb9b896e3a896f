package domain

// ExportRow is a single row in the trip export.
// It is a flat view of a Trip plus its derived duration, with dates
// pre-formatted as "2006-01-02" so CSV and JSON renderings agree.
type ExportRow struct {
	TripID    string
	Title     string
	StartDate string
	EndDate   string
	Days      int
	Emoji     string
}
