package service_test

import (
	"context"
	"sync"

	"github.com/pkordes/naturalization-tracker/internal/auth"
	"github.com/pkordes/naturalization-tracker/internal/domain"
	"github.com/pkordes/naturalization-tracker/internal/service"
)

// ---- mock stores -----------------------------------------------------------

// mockLocalStore is a hand-written test double for service.LocalStore.
// Unset function fields fall back to an in-memory copy, and every successful
// or failed SaveTrips call is recorded.
type mockLocalStore struct {
	mu          sync.Mutex
	trips       domain.TripSet
	profile     domain.EligibilityProfile
	saves       []domain.TripSet
	loads       int
	loadTrips   func(ctx context.Context) (domain.TripSet, error)
	saveTrips   func(ctx context.Context, trips domain.TripSet) error
	saveProfile func(ctx context.Context, p domain.EligibilityProfile) error
}

func (m *mockLocalStore) LoadTrips(ctx context.Context) (domain.TripSet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.loads++
	if m.loadTrips != nil {
		return m.loadTrips(ctx)
	}
	return m.trips.Clone(), nil
}
func (m *mockLocalStore) SaveTrips(ctx context.Context, trips domain.TripSet) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saves = append(m.saves, trips.Clone())
	if m.saveTrips != nil {
		return m.saveTrips(ctx, trips)
	}
	m.trips = trips.Clone()
	return nil
}
func (m *mockLocalStore) LoadProfile(_ context.Context) (domain.EligibilityProfile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.profile, nil
}
func (m *mockLocalStore) SaveProfile(ctx context.Context, p domain.EligibilityProfile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveProfile != nil {
		return m.saveProfile(ctx, p)
	}
	m.profile = p
	return nil
}

func (m *mockLocalStore) saveCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.saves)
}

func (m *mockLocalStore) loadCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loads
}

// mockRemoteStore is a hand-written test double for service.RemoteStore.
type mockRemoteStore struct {
	mu        sync.Mutex
	docs      map[string]domain.TripSet
	saves     []domain.TripSet
	loads     int
	loadTrips func(ctx context.Context, userID string) (domain.TripSet, error)
	saveTrips func(ctx context.Context, userID string, trips domain.TripSet) error
}

func (m *mockRemoteStore) LoadTrips(ctx context.Context, userID string) (domain.TripSet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.loads++
	if m.loadTrips != nil {
		return m.loadTrips(ctx, userID)
	}
	return m.docs[userID].Clone(), nil
}
func (m *mockRemoteStore) SaveTrips(ctx context.Context, userID string, trips domain.TripSet) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saves = append(m.saves, trips.Clone())
	if m.saveTrips != nil {
		return m.saveTrips(ctx, userID, trips)
	}
	if m.docs == nil {
		m.docs = map[string]domain.TripSet{}
	}
	m.docs[userID] = trips.Clone()
	return nil
}

func (m *mockRemoteStore) saveCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.saves)
}

func (m *mockRemoteStore) loadCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loads
}

// compile-time checks: the mocks must satisfy the service interfaces.
var (
	_ service.LocalStore  = (*mockLocalStore)(nil)
	_ service.RemoteStore = (*mockRemoteStore)(nil)
)

// ---- mock identity ---------------------------------------------------------

// mockIdentity is a hand-written test double for service.IdentityProvider.
// Tests push session changes through changes.
type mockIdentity struct {
	mu      sync.Mutex
	userID  string
	changes chan auth.SessionChange
	signIn  func(ctx context.Context, token string) (string, error)
	signOut func(ctx context.Context) error
}

func newMockIdentity() *mockIdentity {
	return &mockIdentity{changes: make(chan auth.SessionChange, 4)}
}

func (m *mockIdentity) CurrentUserID() (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.userID, m.userID != ""
}
func (m *mockIdentity) Subscribe() (<-chan auth.SessionChange, func()) {
	return m.changes, func() {}
}
func (m *mockIdentity) SignIn(ctx context.Context, token string) (string, error) {
	if m.signIn != nil {
		return m.signIn(ctx, token)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.userID = token
	return token, nil
}
func (m *mockIdentity) SignOut(ctx context.Context) error {
	if m.signOut != nil {
		return m.signOut(ctx)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.userID == "" {
		return domain.ErrSessionUnavailable
	}
	m.userID = ""
	return nil
}

var (
	_ service.IdentityProvider = (*mockIdentity)(nil)
	_ service.Session          = (*mockIdentity)(nil)
)

// ---- mock entitlements -----------------------------------------------------

type mockEntitlements struct {
	entitlement func(ctx context.Context, userID string) (domain.Entitlement, error)
}

func (m *mockEntitlements) Entitlement(ctx context.Context, userID string) (domain.Entitlement, error) {
	return m.entitlement(ctx, userID)
}

var _ service.Entitlements = (*mockEntitlements)(nil)
