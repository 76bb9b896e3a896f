// Package repo contains the persistence gateway for the naturalization tracker.
// LocalStore keeps the device-synchronized copy in a key-value store;
// RemoteStore keeps one document per signed-in user in Postgres.
// No business logic lives here, only storage access and encoding.
package repo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/pkordes/naturalization-tracker/internal/domain"
)

// db is the minimal interface satisfied by *pgxpool.Pool, pgx.Conn, and pgx.Tx.
// Accepting this interface instead of *pgxpool.Pool directly allows integration
// tests to pass a transaction that is rolled back after each test.
type db interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// RemoteStore is the per-user document store. Each user owns one row in the
// users table; the trip set lives in its trips column as base64 text.
type RemoteStore struct {
	db  db
	log *slog.Logger
}

// NewRemoteStore constructs a RemoteStore backed by the provided db connection.
// In production pass *pgxpool.Pool; in tests pass a pgx.Tx for rollback isolation.
func NewRemoteStore(db db, log *slog.Logger) *RemoteStore {
	if log == nil {
		log = slog.Default()
	}
	return &RemoteStore{db: db, log: log}
}

// LoadTrips returns the user's trip set. A user without a document, or a
// document without trips, yields an empty set. Undecodable data is logged
// and treated as no data.
func (r *RemoteStore) LoadTrips(ctx context.Context, userID string) (domain.TripSet, error) {
	const q = `SELECT trips FROM users WHERE user_id = @user_id`

	var raw pgtype.Text
	err := r.db.QueryRow(ctx, q, pgx.NamedArgs{"user_id": userID}).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.TripSet{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("repo.RemoteStore.LoadTrips: %w: %w", domain.ErrStoreRead, err)
	}
	if !raw.Valid {
		return domain.TripSet{}, nil
	}

	trips, err := DecodeTripsText(raw.String)
	if err != nil {
		r.log.WarnContext(ctx, "discarding undecodable remote trips", "user_id", userID, "error", err)
		return domain.TripSet{}, nil
	}
	return trips, nil
}

// SaveTrips writes the user's trip set, creating the document if needed.
// Other document fields are left untouched.
func (r *RemoteStore) SaveTrips(ctx context.Context, userID string, trips domain.TripSet) error {
	const q = `
		INSERT INTO users (user_id, trips)
		VALUES (@user_id, @trips)
		ON CONFLICT (user_id) DO UPDATE
		SET trips      = EXCLUDED.trips,
		    updated_at = now()`

	text, err := EncodeTripsText(trips)
	if err != nil {
		return fmt.Errorf("repo.RemoteStore.SaveTrips: %w", err)
	}

	args := pgx.NamedArgs{"user_id": userID, "trips": text}
	if _, err := r.db.Exec(ctx, q, args); err != nil {
		return fmt.Errorf("repo.RemoteStore.SaveTrips: %w: %w", domain.ErrStoreWrite, err)
	}
	return nil
}

// Entitlement reads the user's paid-feature flags. The first lookup of a
// document that has never recorded a free trial starts one. Users without a
// document have no entitlement.
func (r *RemoteStore) Entitlement(ctx context.Context, userID string) (domain.Entitlement, error) {
	const q = `SELECT premium, free_trial_active FROM users WHERE user_id = @user_id`

	var (
		ent       domain.Entitlement
		freeTrial pgtype.Bool
	)
	err := r.db.QueryRow(ctx, q, pgx.NamedArgs{"user_id": userID}).Scan(&ent.Premium, &freeTrial)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Entitlement{}, nil
	}
	if err != nil {
		return domain.Entitlement{}, fmt.Errorf("repo.RemoteStore.Entitlement: %w: %w", domain.ErrStoreRead, err)
	}

	if freeTrial.Valid {
		ent.FreeTrialActive = freeTrial.Bool
		return ent, nil
	}

	const start = `UPDATE users SET free_trial_active = TRUE, updated_at = now() WHERE user_id = @user_id`
	if _, err := r.db.Exec(ctx, start, pgx.NamedArgs{"user_id": userID}); err != nil {
		return domain.Entitlement{}, fmt.Errorf("repo.RemoteStore.Entitlement: start trial: %w: %w", domain.ErrStoreWrite, err)
	}
	ent.FreeTrialActive = true
	return ent, nil
}

// SetPremium records the outcome of a completed purchase.
func (r *RemoteStore) SetPremium(ctx context.Context, userID string, premium bool) error {
	const q = `
		INSERT INTO users (user_id, premium)
		VALUES (@user_id, @premium)
		ON CONFLICT (user_id) DO UPDATE
		SET premium    = EXCLUDED.premium,
		    updated_at = now()`

	if _, err := r.db.Exec(ctx, q, pgx.NamedArgs{"user_id": userID, "premium": premium}); err != nil {
		return fmt.Errorf("repo.RemoteStore.SetPremium: %w: %w", domain.ErrStoreWrite, err)
	}
	return nil
}
