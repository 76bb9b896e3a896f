// Package service contains the business logic for the naturalization tracker.
// It owns the canonical trip set, reconciles it between the local and remote
// stores, and gates paid features. No storage details live here: services
// depend on the interfaces declared below, not on repo implementations.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/pkordes/naturalization-tracker/internal/domain"
	"github.com/pkordes/naturalization-tracker/internal/metrics"
)

// LocalStore persists the device-local copy of the trips and the eligibility
// profile. Defining it here lets controller tests inject a mock.
type LocalStore interface {
	LoadTrips(ctx context.Context) (domain.TripSet, error)
	SaveTrips(ctx context.Context, trips domain.TripSet) error
	LoadProfile(ctx context.Context) (domain.EligibilityProfile, error)
	SaveProfile(ctx context.Context, p domain.EligibilityProfile) error
}

// RemoteStore persists one trip document per signed-in user.
type RemoteStore interface {
	LoadTrips(ctx context.Context, userID string) (domain.TripSet, error)
	SaveTrips(ctx context.Context, userID string, trips domain.TripSet) error
}

// Store labels used in logs and metrics.
const (
	storeLocal  = "local"
	storeRemote = "remote"
)

// Decision names the branch Reconcile took.
type Decision string

const (
	// DecisionInSync: equal counts, identical ids. Nothing is written.
	DecisionInSync Decision = "in_sync"
	// DecisionRemoteWins: the remote set is larger and is copied to local.
	DecisionRemoteWins Decision = "remote_wins"
	// DecisionLocalWins: the local set is larger and is copied to remote.
	DecisionLocalWins Decision = "local_wins"
	// DecisionLocalWinsTie: equal counts with different ids. Local is
	// written to both stores.
	DecisionLocalWinsTie Decision = "local_wins_tie"
	// DecisionAborted: a store could not be read; nothing was reconciled.
	DecisionAborted Decision = "aborted"
)

// SyncPlan is the outcome of Reconcile: the set to adopt and the stores that
// must receive it.
type SyncPlan struct {
	Result      domain.TripSet
	Decision    Decision
	WriteLocal  bool
	WriteRemote bool
}

// Reconcile decides which trip set survives a sync cycle.
//
// The larger set wins and is written to the other store. When the counts
// match, identical ids mean the stores already agree; otherwise the local
// set wins and is written everywhere. Only counts and ids are compared, so
// two sets that differ in content but not in identity are treated as in sync.
func Reconcile(remote, local domain.TripSet) SyncPlan {
	switch {
	case len(remote) > len(local):
		return SyncPlan{Result: remote.Clone(), Decision: DecisionRemoteWins, WriteLocal: true}
	case len(local) > len(remote):
		return SyncPlan{Result: local.Clone(), Decision: DecisionLocalWins, WriteRemote: true}
	case remote.SameIDs(local):
		return SyncPlan{Result: local.Clone(), Decision: DecisionInSync}
	default:
		return SyncPlan{Result: local.Clone(), Decision: DecisionLocalWinsTie, WriteLocal: true, WriteRemote: true}
	}
}

// FetchResult carries both sides of a sync fetch. A side whose load failed
// is left nil with its Loaded flag false.
type FetchResult struct {
	Remote       domain.TripSet
	Local        domain.TripSet
	RemoteLoaded bool
	LocalLoaded  bool
}

// SyncResult reports one sync cycle.
type SyncResult struct {
	FetchResult
	Plan        SyncPlan
	WriteErrors []error
}

// Synchronizer reconciles the local and remote trip sets for a user.
type Synchronizer struct {
	local   LocalStore
	remote  RemoteStore
	log     *slog.Logger
	metrics *metrics.Metrics
}

// NewSynchronizer constructs a Synchronizer. m may be nil.
func NewSynchronizer(local LocalStore, remote RemoteStore, log *slog.Logger, m *metrics.Metrics) *Synchronizer {
	if log == nil {
		log = slog.Default()
	}
	return &Synchronizer{local: local, remote: remote, log: log, metrics: m}
}

// ErrSyncSuperseded is returned by SyncFor when the owner no longer wants
// the cycle's result. Nothing was written.
var ErrSyncSuperseded = errors.New("sync superseded")

// SyncOwner holds the canonical set a sync cycle feeds. SyncFor holds its
// lock from reconciliation until Adopt returns, so no change to the owner's
// set can interleave with the cycle's writes.
type SyncOwner interface {
	sync.Locker
	// Current reports whether userID is still the session the cycle runs for.
	Current(userID string) bool
	// Adopt receives the outcome of the cycle. err is non-nil when a fetch failed.
	Adopt(res SyncResult, err error)
}

// Sync runs one cycle with no owner. See SyncFor.
func (s *Synchronizer) Sync(ctx context.Context, userID string) (SyncResult, error) {
	return s.SyncFor(ctx, userID, nil)
}

// SyncFor fetches both stores without any lock, then, holding owner's lock,
// reconciles them and writes the result where the plan requires. Write
// failures do not fail the cycle: they are logged, counted and returned in
// SyncResult.WriteErrors alongside the reconciled set. owner may be nil.
//
// Returns an error wrapping domain.ErrStoreRead if either fetch fails; the
// result still carries whichever side loaded. Returns ErrSyncSuperseded if
// owner.Current reports false.
func (s *Synchronizer) SyncFor(ctx context.Context, userID string, owner SyncOwner) (SyncResult, error) {
	start := time.Now()
	defer func() { s.metrics.ObserveSyncDuration(time.Since(start)) }()

	fetched, err := s.Fetch(ctx, userID)

	if owner != nil {
		owner.Lock()
		defer owner.Unlock()
		if !owner.Current(userID) {
			return SyncResult{FetchResult: fetched}, ErrSyncSuperseded
		}
	}

	var res SyncResult
	if err != nil {
		s.metrics.IncrementDecision(string(DecisionAborted))
		res = SyncResult{FetchResult: fetched, Plan: SyncPlan{Decision: DecisionAborted}}
	} else {
		plan := Reconcile(fetched.Remote, fetched.Local)
		res = SyncResult{FetchResult: fetched, Plan: plan, WriteErrors: s.Apply(ctx, userID, plan)}
	}
	if owner != nil {
		owner.Adopt(res, err)
	}
	return res, err
}

// Fetch loads both stores concurrently and waits for both to finish, so a
// failure on one side still leaves the other side's data available.
func (s *Synchronizer) Fetch(ctx context.Context, userID string) (FetchResult, error) {
	var (
		g                   errgroup.Group
		res                 FetchResult
		remoteErr, localErr error
	)

	g.Go(func() error {
		start := time.Now()
		res.Remote, remoteErr = s.remote.LoadTrips(ctx, userID)
		s.metrics.ObserveFetchLatency(storeRemote, time.Since(start))
		res.RemoteLoaded = remoteErr == nil
		return nil
	})
	g.Go(func() error {
		start := time.Now()
		res.Local, localErr = s.local.LoadTrips(ctx)
		s.metrics.ObserveFetchLatency(storeLocal, time.Since(start))
		res.LocalLoaded = localErr == nil
		return nil
	})
	_ = g.Wait()

	if !res.RemoteLoaded {
		res.Remote = nil
	}
	if !res.LocalLoaded {
		res.Local = nil
	}

	if err := errors.Join(remoteErr, localErr); err != nil {
		s.log.WarnContext(ctx, "sync aborted",
			"user_id", userID,
			"remote_loaded", res.RemoteLoaded,
			"local_loaded", res.LocalLoaded,
			"error", err,
		)
		return res, fmt.Errorf("service.Synchronizer.Fetch: %w: %w", domain.ErrStoreRead, err)
	}
	return res, nil
}

// Apply writes plan.Result to the stores the plan names and records the
// decision. It returns every write error; an empty slice means success.
func (s *Synchronizer) Apply(ctx context.Context, userID string, plan SyncPlan) []error {
	s.metrics.IncrementDecision(string(plan.Decision))
	s.log.InfoContext(ctx, "trips reconciled",
		"user_id", userID,
		"decision", plan.Decision,
		"trips", len(plan.Result),
		"write_local", plan.WriteLocal,
		"write_remote", plan.WriteRemote,
	)

	var errs []error
	if plan.WriteRemote {
		if err := s.remote.SaveTrips(ctx, userID, plan.Result); err != nil {
			errs = append(errs, s.writeFailed(ctx, storeRemote, err))
		}
	}
	if plan.WriteLocal {
		if err := s.local.SaveTrips(ctx, plan.Result); err != nil {
			errs = append(errs, s.writeFailed(ctx, storeLocal, err))
		}
	}
	return errs
}

func (s *Synchronizer) writeFailed(ctx context.Context, store string, err error) error {
	s.metrics.IncrementWriteFailure(store)
	s.log.ErrorContext(ctx, "trip write failed", "store", store, "error", err)
	return fmt.Errorf("service.Synchronizer.Apply: %s: %w", store, err)
}
