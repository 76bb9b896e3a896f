package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pkordes/naturalization-tracker/internal/auth"
	"github.com/pkordes/naturalization-tracker/internal/domain"
	"github.com/pkordes/naturalization-tracker/internal/eligibility"
	"github.com/pkordes/naturalization-tracker/internal/service"
	"github.com/pkordes/naturalization-tracker/internal/state"
)

// ---- helpers ---------------------------------------------------------------

var fixedNow = date(2026, 10, 17)

type fixture struct {
	local    *mockLocalStore
	remote   *mockRemoteStore
	identity *mockIdentity
	state    *state.Store
	ctrl     *service.Controller
}

// newFixture constructs a Controller wired to fresh mocks with a fixed clock.
func newFixture() *fixture {
	f := &fixture{
		local:    &mockLocalStore{},
		remote:   &mockRemoteStore{},
		identity: newMockIdentity(),
		state:    &state.Store{},
	}
	f.ctrl = service.NewController(f.local, f.remote, f.identity, f.state, nil, nil,
		service.WithClock(func() time.Time { return fixedNow }))
	return f
}

// signIn makes userID the controller's active session without a sync
// changing anything: both stores start empty.
func (f *fixture) signIn(t *testing.T, userID string) {
	t.Helper()
	_, err := f.ctrl.SignIn(context.Background(), userID)
	require.NoError(t, err)
}

// ---- AddTrip ---------------------------------------------------------------

func TestController_AddTrip_SignedOutWritesLocalOnly(t *testing.T) {
	f := newFixture()
	trip := tripsOf(1)[0]

	require.NoError(t, f.ctrl.AddTrip(context.Background(), trip))

	assert.True(t, f.ctrl.Trips().Contains(trip.ID))
	assert.Equal(t, 1, f.local.saveCount())
	assert.Equal(t, 0, f.remote.saveCount())
}

func TestController_AddTrip_SignedInWritesBoth(t *testing.T) {
	f := newFixture()
	f.signIn(t, "u1")
	trip := tripsOf(1)[0]

	require.NoError(t, f.ctrl.AddTrip(context.Background(), trip))

	assert.Equal(t, 1, f.local.saveCount())
	assert.Equal(t, 1, f.remote.saveCount())
	assert.True(t, f.remote.docs["u1"].Contains(trip.ID))
}

func TestController_AddTrip_DuplicateID(t *testing.T) {
	f := newFixture()
	trip := tripsOf(1)[0]
	require.NoError(t, f.ctrl.AddTrip(context.Background(), trip))

	err := f.ctrl.AddTrip(context.Background(), trip)

	assert.ErrorIs(t, err, domain.ErrValidation)
	assert.Len(t, f.ctrl.Trips(), 1)
	assert.Equal(t, 1, f.local.saveCount())
}

func TestController_AddTrip_PublishesSummary(t *testing.T) {
	f := newFixture()
	require.NoError(t, f.ctrl.UpdateProfile(context.Background(),
		domain.EligibilityProfile{GreenCardStartDate: date(2020, 1, 15)}))

	require.NoError(t, f.ctrl.AddTrip(context.Background(),
		domain.NewTrip("Lisbon", date(2024, 3, 1), date(2024, 3, 31), "✈️")))

	snap := f.state.Snapshot()
	require.Len(t, snap.Trips, 1)
	assert.Equal(t, 30, snap.Summary.TotalTripDuration)
	assert.Equal(t, "1 month", snap.Summary.DaysOutsideUS)
	assert.Equal(t, "6 years, 8 months, 2 days", snap.Summary.PhysicalPresence)
	assert.Equal(t, eligibility.EligibleNow, snap.Summary.TimeLeftForCitizenship)
}

// ---- UpdateTrip ------------------------------------------------------------

func TestController_UpdateTrip_ReplacesByID(t *testing.T) {
	f := newFixture()
	trip := tripsOf(1)[0]
	require.NoError(t, f.ctrl.AddTrip(context.Background(), trip))

	trip.Title = "Renamed"
	trip.EndDate = trip.StartDate.AddDate(0, 0, 3)
	require.NoError(t, f.ctrl.UpdateTrip(context.Background(), trip))

	got := f.ctrl.Trips()
	require.Len(t, got, 1)
	assert.Equal(t, "Renamed", got[0].Title)
	assert.Equal(t, 3, f.ctrl.Summary().TotalTripDuration)
	assert.Equal(t, 2, f.local.saveCount())
}

func TestController_UpdateTrip_AbsentIDIsNoop(t *testing.T) {
	f := newFixture()
	require.NoError(t, f.ctrl.AddTrip(context.Background(), tripsOf(1)[0]))
	before := f.ctrl.Trips()

	err := f.ctrl.UpdateTrip(context.Background(), tripsOf(1)[0])

	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Equal(t, before, f.ctrl.Trips())
	assert.Equal(t, 1, f.local.saveCount())
}

// ---- DeleteTrip ------------------------------------------------------------

func TestController_DeleteTrip(t *testing.T) {
	f := newFixture()
	set := tripsOf(2)
	for _, trip := range set {
		require.NoError(t, f.ctrl.AddTrip(context.Background(), trip))
	}

	require.NoError(t, f.ctrl.DeleteTrip(context.Background(), set[0].ID))

	got := f.ctrl.Trips()
	require.Len(t, got, 1)
	assert.Equal(t, set[1].ID, got[0].ID)
	assert.Equal(t, 3, f.local.saveCount())
}

func TestController_DeleteTrip_AbsentIDDoesNotWrite(t *testing.T) {
	f := newFixture()
	f.signIn(t, "u1")
	require.NoError(t, f.ctrl.AddTrip(context.Background(), tripsOf(1)[0]))
	before := f.ctrl.Trips()
	localWrites, remoteWrites := f.local.saveCount(), f.remote.saveCount()

	err := f.ctrl.DeleteTrip(context.Background(), uuid.New())

	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Equal(t, before, f.ctrl.Trips())
	assert.Equal(t, localWrites, f.local.saveCount())
	assert.Equal(t, remoteWrites, f.remote.saveCount())
}

// ---- write failures --------------------------------------------------------

func TestController_WriteFailureKeepsChangeAndRaisesNotice(t *testing.T) {
	f := newFixture()
	f.signIn(t, "u1")
	f.remote.saveTrips = func(_ context.Context, _ string, _ domain.TripSet) error {
		return errors.New("network down")
	}
	trip := tripsOf(1)[0]

	require.NoError(t, f.ctrl.AddTrip(context.Background(), trip))

	assert.True(t, f.ctrl.Trips().Contains(trip.ID))
	assert.True(t, f.local.trips.Contains(trip.ID))
	assert.NotEmpty(t, f.ctrl.Snapshot().Notice)

	f.ctrl.DismissNotice()
	assert.Empty(t, f.ctrl.Snapshot().Notice)
	assert.Empty(t, f.state.Snapshot().Notice)
}

// ---- ImportTrips -----------------------------------------------------------

func TestController_ImportTrips_AddsOnlyNewIDsInOneWrite(t *testing.T) {
	f := newFixture()
	existing := tripsOf(1)[0]
	require.NoError(t, f.ctrl.AddTrip(context.Background(), existing))
	batch := append([]domain.Trip{existing}, tripsOf(2)...)

	n, err := f.ctrl.ImportTrips(context.Background(), batch)

	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Len(t, f.ctrl.Trips(), 3)
	assert.Equal(t, 2, f.local.saveCount())
}

func TestController_ImportTrips_NothingNewDoesNotWrite(t *testing.T) {
	f := newFixture()
	trip := tripsOf(1)[0]
	require.NoError(t, f.ctrl.AddTrip(context.Background(), trip))

	n, err := f.ctrl.ImportTrips(context.Background(), []domain.Trip{trip})

	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.Equal(t, 1, f.local.saveCount())
}

// ---- sessions --------------------------------------------------------------

func TestController_SignIn_SyncsRemoteWins(t *testing.T) {
	f := newFixture()
	remoteSet := tripsOf(3)
	f.remote.docs = map[string]domain.TripSet{"u1": remoteSet}
	f.local.trips = tripsOf(1)

	f.signIn(t, "u1")

	assert.True(t, f.ctrl.Trips().SameIDs(remoteSet))
	assert.True(t, f.local.trips.SameIDs(remoteSet))
	assert.Equal(t, 0, f.remote.saveCount())
	snap := f.state.Snapshot()
	assert.True(t, snap.SignedIn)
	assert.Equal(t, "u1", snap.UserID)
}

func TestController_HandleSessionChange_SameUserSyncsOnce(t *testing.T) {
	f := newFixture()
	change := auth.SessionChange{UserID: "u1", SignedIn: true}

	f.ctrl.HandleSessionChange(context.Background(), change)
	f.ctrl.HandleSessionChange(context.Background(), change)

	assert.Equal(t, 1, f.remote.loadCount())
}

// The identity provider announces a sign-in before Controller.SignIn handles
// it, so the listener can start the sync first. SignIn must still return only
// once the trips are synced.
func TestController_SignIn_WaitsForSyncStartedByListener(t *testing.T) {
	f := newFixture()
	remoteSet := tripsOf(2)
	started := make(chan struct{}, 1)
	release := make(chan struct{})
	f.remote.loadTrips = func(_ context.Context, _ string) (domain.TripSet, error) {
		started <- struct{}{}
		<-release
		return remoteSet.Clone(), nil
	}
	ctx := context.Background()

	go f.ctrl.HandleSessionChange(ctx, auth.SessionChange{UserID: "u1", SignedIn: true})
	<-started

	signedIn := make(chan struct{})
	go func() {
		defer close(signedIn)
		_, err := f.ctrl.SignIn(ctx, "u1")
		assert.NoError(t, err)
	}()

	select {
	case <-signedIn:
		t.Fatal("SignIn returned before the sync finished")
	case <-time.After(50 * time.Millisecond):
	}

	close(release)
	select {
	case <-signedIn:
	case <-time.After(2 * time.Second):
		t.Fatal("SignIn did not return after the sync finished")
	}
	assert.True(t, f.ctrl.Trips().SameIDs(remoteSet))
	assert.Equal(t, 1, f.remote.loadCount())
}

func TestController_HandleSessionChange_SupersededSyncIsDropped(t *testing.T) {
	f := newFixture()
	started := make(chan struct{}, 1)
	release := make(chan struct{})
	f.remote.loadTrips = func(_ context.Context, userID string) (domain.TripSet, error) {
		if userID == "u1" {
			started <- struct{}{}
			<-release
			return tripsOf(3), nil
		}
		return domain.TripSet{}, nil
	}
	ctx := context.Background()

	done := make(chan struct{})
	go func() {
		defer close(done)
		f.ctrl.HandleSessionChange(ctx, auth.SessionChange{UserID: "u1", SignedIn: true})
	}()
	<-started
	f.ctrl.HandleSessionChange(ctx, auth.SessionChange{})
	close(release)
	<-done

	assert.Empty(t, f.ctrl.Trips())
	assert.Equal(t, 0, f.local.saveCount(), "a dropped sync must not write")
	assert.False(t, f.ctrl.Snapshot().SignedIn)
}

func TestController_HandleSessionChange_SyncFailureFallsBackToRemote(t *testing.T) {
	f := newFixture()
	remoteSet := tripsOf(2)
	f.remote.docs = map[string]domain.TripSet{"u1": remoteSet}
	f.local.loadTrips = func(_ context.Context) (domain.TripSet, error) {
		return nil, domain.ErrStoreRead
	}

	f.ctrl.HandleSessionChange(context.Background(), auth.SessionChange{UserID: "u1", SignedIn: true})

	assert.True(t, f.ctrl.Trips().SameIDs(remoteSet))
	assert.NotEmpty(t, f.ctrl.Snapshot().Notice)
	assert.Equal(t, 0, f.local.saveCount())
	assert.Equal(t, 0, f.remote.saveCount())
}

func TestController_HandleSessionChange_SyncFailureFallsBackToLocal(t *testing.T) {
	f := newFixture()
	localSet := tripsOf(2)
	f.local.trips = localSet
	f.remote.loadTrips = func(_ context.Context, _ string) (domain.TripSet, error) {
		return nil, errors.New("timeout")
	}

	f.ctrl.HandleSessionChange(context.Background(), auth.SessionChange{UserID: "u1", SignedIn: true})

	assert.True(t, f.ctrl.Trips().SameIDs(localSet))
	assert.NotEmpty(t, f.ctrl.Snapshot().Notice)
}

func TestController_SignOut_ReloadsLocal(t *testing.T) {
	f := newFixture()
	f.remote.docs = map[string]domain.TripSet{"u1": tripsOf(2)}
	f.signIn(t, "u1")
	localSet := f.local.trips.Clone()

	require.NoError(t, f.ctrl.SignOut(context.Background()))

	assert.True(t, f.ctrl.Trips().SameIDs(localSet))
	snap := f.ctrl.Snapshot()
	assert.False(t, snap.SignedIn)
	assert.Empty(t, snap.UserID)

	// Mutations after sign-out touch the local store only.
	remoteWrites := f.remote.saveCount()
	require.NoError(t, f.ctrl.AddTrip(context.Background(), tripsOf(1)[0]))
	assert.Equal(t, remoteWrites, f.remote.saveCount())
}

func TestController_SignOut_WithoutSession(t *testing.T) {
	f := newFixture()

	err := f.ctrl.SignOut(context.Background())

	assert.ErrorIs(t, err, domain.ErrSessionUnavailable)
}

func TestController_SignIn_Rejected(t *testing.T) {
	f := newFixture()
	f.identity.signIn = func(_ context.Context, _ string) (string, error) {
		return "", domain.ErrSessionUnavailable
	}

	_, err := f.ctrl.SignIn(context.Background(), "bad")

	assert.ErrorIs(t, err, domain.ErrSessionUnavailable)
	assert.Equal(t, 0, f.remote.loadCount())
}

// ---- LoadTrips -------------------------------------------------------------

func TestController_LoadTrips_SignedOutReadsLocal(t *testing.T) {
	f := newFixture()
	localSet := tripsOf(2)
	f.local.trips = localSet

	require.NoError(t, f.ctrl.LoadTrips(context.Background()))

	assert.True(t, f.ctrl.Trips().SameIDs(localSet))
	assert.Equal(t, 0, f.remote.loadCount())
}

func TestController_LoadTrips_SignedInReadsRemote(t *testing.T) {
	f := newFixture()
	f.signIn(t, "u1")
	remoteSet := tripsOf(4)
	f.remote.docs = map[string]domain.TripSet{"u1": remoteSet}

	require.NoError(t, f.ctrl.LoadTrips(context.Background()))

	assert.True(t, f.ctrl.Trips().SameIDs(remoteSet))
}

func TestController_LoadTrips_FailureKeepsCurrentSet(t *testing.T) {
	f := newFixture()
	trip := tripsOf(1)[0]
	require.NoError(t, f.ctrl.AddTrip(context.Background(), trip))
	f.local.loadTrips = func(_ context.Context) (domain.TripSet, error) {
		return nil, domain.ErrStoreRead
	}

	err := f.ctrl.LoadTrips(context.Background())

	assert.ErrorIs(t, err, domain.ErrStoreRead)
	assert.True(t, f.ctrl.Trips().Contains(trip.ID))
	assert.NotEmpty(t, f.ctrl.Snapshot().Notice)
}

// ---- profile and summary ---------------------------------------------------

func TestController_UpdateProfile_MarriageShortensWindow(t *testing.T) {
	f := newFixture()
	profile := domain.EligibilityProfile{GreenCardStartDate: date(2024, 1, 16)}
	require.NoError(t, f.ctrl.UpdateProfile(context.Background(), profile))
	single := f.ctrl.Summary()

	profile.MarriedToCitizen = true
	require.NoError(t, f.ctrl.UpdateProfile(context.Background(), profile))

	married := f.ctrl.Summary()
	assert.False(t, single.Eligible)
	assert.Equal(t, "1 day", married.TimeLeftForCitizenship)
	assert.Equal(t, profile, f.local.profile)
	assert.Equal(t, profile, f.ctrl.Profile())
}

func TestController_UpdateProfile_WriteFailureKeepsProfile(t *testing.T) {
	f := newFixture()
	f.local.saveProfile = func(_ context.Context, _ domain.EligibilityProfile) error {
		return domain.ErrStoreWrite
	}
	profile := domain.EligibilityProfile{MarriedToCitizen: true}

	require.NoError(t, f.ctrl.UpdateProfile(context.Background(), profile))

	assert.Equal(t, profile, f.ctrl.Profile())
	assert.NotEmpty(t, f.ctrl.Snapshot().Notice)
}

func TestController_SummaryWithoutProfile(t *testing.T) {
	f := newFixture()

	got := f.ctrl.Summary()

	assert.Equal(t, eligibility.NotAvailable, got.TimeLeftForCitizenship)
	assert.Equal(t, "0 days", got.DaysOutsideUS)
}

// ---- Start / Close ---------------------------------------------------------

func TestController_Start_ProcessesCurrentSessionThenChanges(t *testing.T) {
	f := newFixture()
	f.local.profile = domain.EligibilityProfile{GreenCardStartDate: date(2020, 1, 15)}
	f.local.trips = tripsOf(1)
	remoteSet := tripsOf(3)
	f.remote.docs = map[string]domain.TripSet{"u1": remoteSet}

	f.ctrl.Start(context.Background())
	defer f.ctrl.Close()

	// Signed out at start: the local copy is loaded.
	assert.Equal(t, 1, f.local.loadCount())
	assert.Len(t, f.ctrl.Trips(), 1)
	assert.Equal(t, f.local.profile, f.ctrl.Profile())

	f.identity.changes <- auth.SessionChange{UserID: "u1", SignedIn: true}

	require.Eventually(t, func() bool {
		return f.ctrl.Trips().SameIDs(remoteSet)
	}, time.Second, 10*time.Millisecond)
}

func TestController_Start_SignedInSyncsImmediately(t *testing.T) {
	f := newFixture()
	f.identity.userID = "u1"
	remoteSet := tripsOf(2)
	f.remote.docs = map[string]domain.TripSet{"u1": remoteSet}

	f.ctrl.Start(context.Background())
	defer f.ctrl.Close()

	assert.True(t, f.ctrl.Trips().SameIDs(remoteSet))
	assert.Equal(t, 1, f.remote.loadCount())
}

func TestController_Close_StopsListening(t *testing.T) {
	f := newFixture()
	f.ctrl.Start(context.Background())

	f.ctrl.Close()
	f.ctrl.Close()
	f.identity.changes <- auth.SessionChange{UserID: "u1", SignedIn: true}

	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 0, f.remote.loadCount())
}
