package handler_test

import (
	"context"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/pkordes/naturalization-tracker/internal/domain"
	"github.com/pkordes/naturalization-tracker/internal/eligibility"
	"github.com/pkordes/naturalization-tracker/internal/handler"
	"github.com/pkordes/naturalization-tracker/internal/state"
)

// mockTripServicer is a test double for handler.TripServicer.
// Set only the method fields your test needs.
type mockTripServicer struct {
	trips         func() domain.TripSet
	addTrip       func(ctx context.Context, trip domain.Trip) error
	updateTrip    func(ctx context.Context, trip domain.Trip) error
	deleteTrip    func(ctx context.Context, id uuid.UUID) error
	loadTrips     func(ctx context.Context) error
	profile       func() domain.EligibilityProfile
	updateProfile func(ctx context.Context, p domain.EligibilityProfile) error
	summary       func() eligibility.Summary
	snapshot      func() state.Snapshot
	signIn        func(ctx context.Context, token string) (string, error)
	signOut       func(ctx context.Context) error
	dismissNotice func()
}

func (m *mockTripServicer) Trips() domain.TripSet { return m.trips() }
func (m *mockTripServicer) AddTrip(ctx context.Context, t domain.Trip) error {
	return m.addTrip(ctx, t)
}
func (m *mockTripServicer) UpdateTrip(ctx context.Context, t domain.Trip) error {
	return m.updateTrip(ctx, t)
}
func (m *mockTripServicer) DeleteTrip(ctx context.Context, id uuid.UUID) error {
	return m.deleteTrip(ctx, id)
}
func (m *mockTripServicer) LoadTrips(ctx context.Context) error { return m.loadTrips(ctx) }
func (m *mockTripServicer) Profile() domain.EligibilityProfile  { return m.profile() }
func (m *mockTripServicer) UpdateProfile(ctx context.Context, p domain.EligibilityProfile) error {
	return m.updateProfile(ctx, p)
}
func (m *mockTripServicer) Summary() eligibility.Summary { return m.summary() }
func (m *mockTripServicer) Snapshot() state.Snapshot     { return m.snapshot() }
func (m *mockTripServicer) SignIn(ctx context.Context, token string) (string, error) {
	return m.signIn(ctx, token)
}
func (m *mockTripServicer) SignOut(ctx context.Context) error { return m.signOut(ctx) }
func (m *mockTripServicer) DismissNotice()                    { m.dismissNotice() }

// compile-time check: mockTripServicer must satisfy handler.TripServicer.
var _ handler.TripServicer = (*mockTripServicer)(nil)

type mockImportServicer struct {
	importCSV func(ctx context.Context, r io.Reader) (int, error)
}

func (m *mockImportServicer) ImportCSV(ctx context.Context, r io.Reader) (int, error) {
	return m.importCSV(ctx, r)
}

var _ handler.ImportServicer = (*mockImportServicer)(nil)

type mockExportServicer struct {
	export func(ctx context.Context) ([]domain.ExportRow, error)
}

func (m *mockExportServicer) Export(ctx context.Context) ([]domain.ExportRow, error) {
	return m.export(ctx)
}

var _ handler.ExportServicer = (*mockExportServicer)(nil)

// compile-time check: the state store is a valid event source.
var _ handler.EventSource = (*state.Store)(nil)

// ---- helpers ---------------------------------------------------------------

// newHTTPHandler wires a Server into a chi router exactly as main.go does.
// Pass nil for any dependency the test does not exercise.
func newHTTPHandler(trips handler.TripServicer, imports handler.ImportServicer, export handler.ExportServicer, events handler.EventSource) http.Handler {
	r := chi.NewRouter()
	handler.NewServer(trips, imports, export, events, nil).Register(r)
	return r
}
