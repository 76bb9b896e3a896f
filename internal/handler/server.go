// Package handler implements the HTTP API of the naturalization tracker.
// All handlers are methods on Server. Methods are split into domain-specific
// files (health.go, trip.go, etc.) but share the same Server struct so they
// can reach its dependencies.
package handler

import (
	"context"
	"io"
	"log/slog"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/pkordes/naturalization-tracker/internal/domain"
	"github.com/pkordes/naturalization-tracker/internal/eligibility"
	"github.com/pkordes/naturalization-tracker/internal/state"
)

// TripServicer defines the controller operations the handlers depend on.
// Defining the interface here (in the consumer package) lets handler tests
// inject a mock without touching the stores or the service layer.
type TripServicer interface {
	Trips() domain.TripSet
	AddTrip(ctx context.Context, trip domain.Trip) error
	UpdateTrip(ctx context.Context, trip domain.Trip) error
	DeleteTrip(ctx context.Context, id uuid.UUID) error
	LoadTrips(ctx context.Context) error
	Profile() domain.EligibilityProfile
	UpdateProfile(ctx context.Context, p domain.EligibilityProfile) error
	Summary() eligibility.Summary
	Snapshot() state.Snapshot
	SignIn(ctx context.Context, token string) (string, error)
	SignOut(ctx context.Context) error
	DismissNotice()
}

// ImportServicer bulk-loads trips from a CSV body.
type ImportServicer interface {
	ImportCSV(ctx context.Context, r io.Reader) (int, error)
}

// ExportServicer returns the flat trip export.
type ExportServicer interface {
	Export(ctx context.Context) ([]domain.ExportRow, error)
}

// EventSource streams published snapshots. *state.Store satisfies it.
type EventSource interface {
	Subscribe() (<-chan state.Snapshot, func())
}

// Server holds the dependencies shared by every handler.
type Server struct {
	trips   TripServicer
	imports ImportServicer
	export  ExportServicer
	events  EventSource
	log     *slog.Logger
}

// NewServer constructs the Server with all its dependencies.
// A nil log falls back to slog.Default().
func NewServer(trips TripServicer, imports ImportServicer, export ExportServicer, events EventSource, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	return &Server{trips: trips, imports: imports, export: export, events: events, log: log}
}

// Register mounts every API route on r.
func (s *Server) Register(r chi.Router) {
	r.Get("/healthz", s.GetHealth)
	r.Get("/openapi.yaml", s.GetOpenAPI)

	r.Route("/trips", func(r chi.Router) {
		r.Get("/", s.ListTrips)
		r.Post("/", s.CreateTrip)
		r.Post("/reload", s.ReloadTrips)
		r.Post("/import", s.ImportTrips)
		r.Get("/export", s.GetExport)
		r.Put("/{id}", s.UpdateTrip)
		r.Delete("/{id}", s.DeleteTrip)
	})

	r.Get("/summary", s.GetSummary)
	r.Get("/profile", s.GetProfile)
	r.Put("/profile", s.UpdateProfile)
	r.Post("/session", s.CreateSession)
	r.Delete("/session", s.DeleteSession)
	r.Get("/events", s.StreamEvents)
	r.Delete("/notice", s.DismissNotice)
}
