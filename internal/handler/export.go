package handler

import (
	"bytes"
	"encoding/csv"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	openapi_types "github.com/oapi-codegen/runtime/types"

	"github.com/pkordes/naturalization-tracker/internal/domain"
	"github.com/pkordes/naturalization-tracker/internal/service"
)

// GetExport handles GET /trips/export.
// It returns one row per trip. Use ?format=csv to receive CSV; default is JSON.
func (s *Server) GetExport(w http.ResponseWriter, r *http.Request) {
	rows, err := s.export.Export(r.Context())
	if err != nil {
		s.writeError(w, r, err, "export not found")
		return
	}

	switch format := r.URL.Query().Get("format"); format {
	case "", "json":
		writeJSON(w, http.StatusOK, buildJSONResponse(rows))
	case "csv":
		body := buildCSVResponse(rows)
		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Content-Disposition", `attachment; filename="trips.csv"`)
		w.Header().Set("Content-Length", strconv.Itoa(body.Len()))
		w.WriteHeader(http.StatusOK)
		//nolint:errcheck
		body.WriteTo(w)
	default:
		writeJSON(w, http.StatusBadRequest, requestBody("format must be json or csv"))
	}
}

// buildJSONResponse converts domain rows to the JSON response type.
func buildJSONResponse(rows []domain.ExportRow) []ExportRow {
	out := make([]ExportRow, 0, len(rows))
	for _, r := range rows {
		out = append(out, domainRowToResponse(r))
	}
	return out
}

// buildCSVResponse encodes domain rows as CSV with a header row. The column
// layout is the one ImportService accepts.
func buildCSVResponse(rows []domain.ExportRow) *bytes.Buffer {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	//nolint:errcheck // bytes.Buffer.Write never returns an error.
	w.Write(service.CSVColumns)
	for _, r := range rows {
		//nolint:errcheck
		w.Write(domainRowToCSVRecord(r))
	}
	w.Flush()
	return &buf
}

// domainRowToResponse maps a domain.ExportRow to the API ExportRow type.
func domainRowToResponse(r domain.ExportRow) ExportRow {
	tripID, _ := uuid.Parse(r.TripID)
	return ExportRow{
		TripID:    tripID,
		Title:     r.Title,
		StartDate: mustParseDate(r.StartDate),
		EndDate:   mustParseDate(r.EndDate),
		Days:      r.Days,
		Emoji:     r.Emoji,
	}
}

// domainRowToCSVRecord encodes a domain.ExportRow in service.CSVColumns order.
func domainRowToCSVRecord(r domain.ExportRow) []string {
	return []string{
		r.TripID,
		r.Title,
		r.StartDate,
		r.EndDate,
		strconv.Itoa(r.Days),
		r.Emoji,
	}
}

// mustParseDate parses an "2006-01-02" string into an openapi_types.Date.
// Panics on malformed input; callers are expected to pass service-generated dates.
func mustParseDate(s string) openapi_types.Date {
	t, err := time.Parse(openapi_types.DateFormat, s)
	if err != nil {
		panic("handler: malformed date from service: " + s)
	}
	return openapi_types.Date{Time: t}
}
