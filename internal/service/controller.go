package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pkordes/naturalization-tracker/internal/auth"
	"github.com/pkordes/naturalization-tracker/internal/domain"
	"github.com/pkordes/naturalization-tracker/internal/eligibility"
	"github.com/pkordes/naturalization-tracker/internal/metrics"
	"github.com/pkordes/naturalization-tracker/internal/state"
)

// IdentityProvider reports and changes the signed-in user.
// auth.Provider satisfies it.
type IdentityProvider interface {
	CurrentUserID() (string, bool)
	Subscribe() (<-chan auth.SessionChange, func())
	SignIn(ctx context.Context, token string) (string, error)
	SignOut(ctx context.Context) error
}

// Notices shown to the user when a store misbehaves.
const (
	noticeSyncFailed  = "Could not sync trips. Showing the last copy that could be read."
	noticeLoadFailed  = "Could not load trips. Showing the trips already on screen."
	noticeWriteFailed = "Could not save trips. Your changes are kept and will be saved with the next change."
	noticeProfile     = "Could not save your profile. Your changes are kept for this session."
)

// Option configures a Controller.
type Option func(*Controller)

// WithClock replaces time.Now for eligibility calculations.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) { c.now = now }
}

// Controller is the single owner of the canonical trip set. Every operation
// that reads or changes the set, including the store writes that follow a
// change, runs under one mutex so older writes never land after newer ones.
// After each change it recomputes the derived metrics and publishes a
// snapshot to the state store.
type Controller struct {
	local    LocalStore
	remote   RemoteStore
	identity IdentityProvider
	syncer   *Synchronizer
	state    *state.Store
	log      *slog.Logger
	metrics  *metrics.Metrics
	now      func() time.Time

	mu      sync.Mutex
	trips   domain.TripSet
	profile domain.EligibilityProfile
	userID  string
	notice  string
	// synced is closed once the first sync for userID has finished.
	synced chan struct{}

	lifecycle sync.Mutex
	cancel    context.CancelFunc
	done      chan struct{}
}

// NewController constructs a Controller. m may be nil.
func NewController(
	local LocalStore,
	remote RemoteStore,
	identity IdentityProvider,
	st *state.Store,
	log *slog.Logger,
	m *metrics.Metrics,
	opts ...Option,
) *Controller {
	if log == nil {
		log = slog.Default()
	}
	c := &Controller{
		local:    local,
		remote:   remote,
		identity: identity,
		syncer:   NewSynchronizer(local, remote, log, m),
		state:    st,
		log:      log,
		metrics:  m,
		now:      time.Now,
		trips:    domain.TripSet{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ---- lifecycle -------------------------------------------------------------

// Start loads the profile, processes the current session and then reacts to
// session changes until ctx is cancelled or Close is called. Calling Start
// on a running Controller does nothing.
func (c *Controller) Start(ctx context.Context) {
	c.lifecycle.Lock()
	defer c.lifecycle.Unlock()
	if c.cancel != nil {
		return
	}

	changes, unsubscribe := c.identity.Subscribe()
	ctx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.done = make(chan struct{})

	c.loadProfile(ctx)
	if userID, ok := c.identity.CurrentUserID(); ok {
		c.HandleSessionChange(ctx, auth.SessionChange{UserID: userID, SignedIn: true})
	} else {
		c.HandleSessionChange(ctx, auth.SessionChange{})
	}

	go func() {
		defer close(c.done)
		defer unsubscribe()
		for {
			select {
			case <-ctx.Done():
				return
			case change, ok := <-changes:
				if !ok {
					return
				}
				c.HandleSessionChange(ctx, change)
			}
		}
	}()
}

// Close stops reacting to session changes and waits for the listener to exit.
func (c *Controller) Close() {
	c.lifecycle.Lock()
	defer c.lifecycle.Unlock()
	if c.cancel == nil {
		return
	}
	c.cancel()
	<-c.done
	c.cancel = nil
}

// ---- session -------------------------------------------------------------

// HandleSessionChange reacts to a sign-in or sign-out.
// A sign-in syncs the stores once per transition. A repeated sign-in for the
// user already handled does not sync again; it waits for that user's first
// sync to finish, or for ctx to end. A sign-out reloads from the local store.
func (c *Controller) HandleSessionChange(ctx context.Context, change auth.SessionChange) {
	if !change.SignedIn {
		c.mu.Lock()
		defer c.mu.Unlock()
		c.userID = ""
		c.synced = nil
		c.reloadLocked(ctx)
		return
	}

	c.mu.Lock()
	if c.userID == change.UserID {
		synced := c.synced
		c.mu.Unlock()
		if synced != nil {
			select {
			case <-synced:
			case <-ctx.Done():
			}
		}
		return
	}
	synced := make(chan struct{})
	c.userID = change.UserID
	c.synced = synced
	c.mu.Unlock()

	defer close(synced)
	c.syncUser(ctx, change.UserID)
}

// SignIn verifies token with the identity provider and, on success, syncs
// the new user's trips before returning.
func (c *Controller) SignIn(ctx context.Context, token string) (string, error) {
	userID, err := c.identity.SignIn(ctx, token)
	if err != nil {
		return "", fmt.Errorf("service.Controller.SignIn: %w", err)
	}
	c.HandleSessionChange(ctx, auth.SessionChange{UserID: userID, SignedIn: true})
	return userID, nil
}

// SignOut ends the session. Local trip data is kept and becomes the
// canonical set.
// Returns domain.ErrSessionUnavailable if nobody is signed in.
func (c *Controller) SignOut(ctx context.Context) error {
	if err := c.identity.SignOut(ctx); err != nil {
		return fmt.Errorf("service.Controller.SignOut: %w", err)
	}
	c.HandleSessionChange(ctx, auth.SessionChange{})
	return nil
}

// syncUser runs one sync cycle with the controller as its owner. The fetches
// run without the lock; the reconciled set is written and adopted under it.
// A cycle overtaken by a newer session change is dropped.
func (c *Controller) syncUser(ctx context.Context, userID string) {
	//nolint:errcheck // the outcome is handled in syncOwner.Adopt.
	c.syncer.SyncFor(ctx, userID, syncOwner{c})
}

// syncOwner lets the synchronizer hold the controller's lock without the
// controller exporting Lock and Unlock.
type syncOwner struct{ c *Controller }

var _ SyncOwner = syncOwner{}

func (o syncOwner) Lock()                      { o.c.mu.Lock() }
func (o syncOwner) Unlock()                    { o.c.mu.Unlock() }
func (o syncOwner) Current(userID string) bool { return o.c.userID == userID }

// Adopt runs under the controller's lock. On a fetch failure the side that
// loaded is shown, remote first, and nothing is written.
func (o syncOwner) Adopt(res SyncResult, err error) {
	c := o.c
	if err != nil {
		switch {
		case res.RemoteLoaded:
			c.trips = res.Remote.Clone()
		case res.LocalLoaded:
			c.trips = res.Local.Clone()
		}
		c.notice = noticeSyncFailed
		c.publishLocked()
		return
	}
	if len(res.WriteErrors) > 0 {
		c.notice = noticeWriteFailed
	}
	c.trips = res.Plan.Result
	c.publishLocked()
}

// ---- loading ---------------------------------------------------------------

// LoadTrips replaces the canonical set with the remote copy when a session
// is active, otherwise with the local copy. On a read failure the current
// set is kept, a notice is raised and the error is returned.
func (c *Controller) LoadTrips(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.reloadLocked(ctx); err != nil {
		return fmt.Errorf("service.Controller.LoadTrips: %w", err)
	}
	return nil
}

func (c *Controller) reloadLocked(ctx context.Context) error {
	var (
		trips domain.TripSet
		err   error
	)
	if c.userID != "" {
		trips, err = c.remote.LoadTrips(ctx, c.userID)
	} else {
		trips, err = c.local.LoadTrips(ctx)
	}
	if err != nil {
		c.log.ErrorContext(ctx, "trip load failed", "user_id", c.userID, "error", err)
		c.notice = noticeLoadFailed
		c.publishLocked()
		return err
	}
	c.trips = trips.Clone()
	c.publishLocked()
	return nil
}

func (c *Controller) loadProfile(ctx context.Context) {
	p, err := c.local.LoadProfile(ctx)
	if err != nil {
		c.log.ErrorContext(ctx, "profile load failed", "error", err)
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.profile = p
	c.publishLocked()
}

// ---- mutations -------------------------------------------------------------

// AddTrip appends trip to the canonical set and persists the result.
// Returns domain.ErrValidation if a trip with the same id already exists.
func (c *Controller) AddTrip(ctx context.Context, trip domain.Trip) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.trips.Contains(trip.ID) {
		return fmt.Errorf("service.Controller.AddTrip: %w: trip %s already exists", domain.ErrValidation, trip.ID)
	}
	c.trips = append(c.trips.Clone(), trip)
	c.persistLocked(ctx)
	return nil
}

// UpdateTrip replaces the trip with the same id.
// Returns domain.ErrNotFound, without writing, if no such trip exists.
func (c *Controller) UpdateTrip(ctx context.Context, trip domain.Trip) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	i := c.trips.IndexOf(trip.ID)
	if i < 0 {
		return fmt.Errorf("service.Controller.UpdateTrip: %w", domain.ErrNotFound)
	}
	next := c.trips.Clone()
	next[i] = trip
	c.trips = next
	c.persistLocked(ctx)
	return nil
}

// DeleteTrip removes the trip with the given id.
// Returns domain.ErrNotFound, without writing, if no such trip exists.
func (c *Controller) DeleteTrip(ctx context.Context, id uuid.UUID) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	i := c.trips.IndexOf(id)
	if i < 0 {
		return fmt.Errorf("service.Controller.DeleteTrip: %w", domain.ErrNotFound)
	}
	next := make(domain.TripSet, 0, len(c.trips)-1)
	next = append(next, c.trips[:i]...)
	next = append(next, c.trips[i+1:]...)
	c.trips = next
	c.persistLocked(ctx)
	return nil
}

// ImportTrips appends every trip whose id is not already present, in one
// change with a single write. It returns how many trips were added.
func (c *Controller) ImportTrips(ctx context.Context, trips []domain.Trip) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	next := c.trips.Clone()
	seen := next.IDs()
	added := 0
	for _, t := range trips {
		if _, ok := seen[t.ID]; ok {
			continue
		}
		seen[t.ID] = struct{}{}
		next = append(next, t)
		added++
	}
	if added == 0 {
		return 0, nil
	}
	c.trips = next
	c.persistLocked(ctx)
	return added, nil
}

// UpdateProfile stores the eligibility profile locally and recomputes.
// A write failure keeps the new profile in memory and raises a notice.
func (c *Controller) UpdateProfile(ctx context.Context, p domain.EligibilityProfile) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.profile = p
	if err := c.local.SaveProfile(ctx, p); err != nil {
		c.log.ErrorContext(ctx, "profile write failed", "error", err)
		c.notice = noticeProfile
	}
	c.publishLocked()
	return nil
}

// DismissNotice clears the user-visible notice.
func (c *Controller) DismissNotice() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.notice = ""
	c.publishLocked()
}

// persistLocked writes the canonical set to the remote store when a session
// is active and to the local store always, then publishes. Failures are
// logged and raise a notice; the in-memory set is never rolled back.
func (c *Controller) persistLocked(ctx context.Context) {
	if c.userID != "" {
		if err := c.remote.SaveTrips(ctx, c.userID, c.trips); err != nil {
			c.writeFailedLocked(ctx, storeRemote, err)
		}
	}
	if err := c.local.SaveTrips(ctx, c.trips); err != nil {
		c.writeFailedLocked(ctx, storeLocal, err)
	}
	c.publishLocked()
}

func (c *Controller) writeFailedLocked(ctx context.Context, store string, err error) {
	c.metrics.IncrementWriteFailure(store)
	c.log.ErrorContext(ctx, "trip write failed", "store", store, "user_id", c.userID, "error", err)
	c.notice = noticeWriteFailed
}

// ---- reads -----------------------------------------------------------------

// Trips returns the canonical set in display order.
func (c *Controller) Trips() domain.TripSet {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.trips.Sorted()
}

// Profile returns the current eligibility profile.
func (c *Controller) Profile() domain.EligibilityProfile {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.profile
}

// Summary recomputes the derived metrics against the current clock.
func (c *Controller) Summary() eligibility.Summary {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.summaryLocked()
}

// Snapshot returns the full published view, recomputed against the current clock.
func (c *Controller) Snapshot() state.Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *Controller) summaryLocked() eligibility.Summary {
	return eligibility.Compute(c.profile, c.trips.TotalDuration(), c.now())
}

func (c *Controller) snapshotLocked() state.Snapshot {
	return state.Snapshot{
		Trips:     c.trips.Sorted(),
		Profile:   c.profile,
		Summary:   c.summaryLocked(),
		UserID:    c.userID,
		SignedIn:  c.userID != "",
		Notice:    c.notice,
		UpdatedAt: c.now(),
	}
}

func (c *Controller) publishLocked() {
	c.metrics.SetTrips(len(c.trips))
	if c.state != nil {
		c.state.Publish(c.snapshotLocked())
	}
}
