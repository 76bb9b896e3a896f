package repo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"time"

	"github.com/pkordes/naturalization-tracker/internal/domain"
)

// Keys used in the local key-value store. They are prefixed per deployment.
const (
	tripsKey            = "tripsKey"
	gcResidentSinceKey  = "gcResidentSinceKey"
	marriedToCitizenKey = "marriedToCitizenKey"
)

// LocalStore persists the trip set and eligibility profile in a
// device-synchronized key-value store. It is available without a session.
type LocalStore struct {
	kv     KV
	prefix string
	log    *slog.Logger
}

// NewLocalStore constructs a LocalStore over kv. prefix is prepended to every key.
func NewLocalStore(kv KV, prefix string, log *slog.Logger) *LocalStore {
	if log == nil {
		log = slog.Default()
	}
	return &LocalStore{kv: kv, prefix: prefix, log: log}
}

// LoadTrips returns the stored trip set. A missing key yields an empty set.
// Undecodable data is logged and treated as no data.
func (s *LocalStore) LoadTrips(ctx context.Context) (domain.TripSet, error) {
	b, ok, err := s.kv.Get(ctx, s.key(tripsKey))
	if err != nil {
		return nil, fmt.Errorf("repo.LocalStore.LoadTrips: %w: %w", domain.ErrStoreRead, err)
	}
	if !ok {
		return domain.TripSet{}, nil
	}
	trips, err := DecodeTrips(b)
	if err != nil {
		s.log.WarnContext(ctx, "discarding undecodable local trips", "error", err)
		return domain.TripSet{}, nil
	}
	return trips, nil
}

// SaveTrips replaces the stored trip set.
func (s *LocalStore) SaveTrips(ctx context.Context, trips domain.TripSet) error {
	b, err := EncodeTrips(trips)
	if err != nil {
		return fmt.Errorf("repo.LocalStore.SaveTrips: %w", err)
	}
	if err := s.kv.Set(ctx, s.key(tripsKey), b); err != nil {
		return fmt.Errorf("repo.LocalStore.SaveTrips: %w: %w", domain.ErrStoreWrite, err)
	}
	return nil
}

// LoadProfile returns the stored eligibility profile. Unset values come back
// as their zero values.
func (s *LocalStore) LoadProfile(ctx context.Context) (domain.EligibilityProfile, error) {
	var p domain.EligibilityProfile

	raw, ok, err := s.kv.Get(ctx, s.key(gcResidentSinceKey))
	if err != nil {
		return p, fmt.Errorf("repo.LocalStore.LoadProfile: %w: %w", domain.ErrStoreRead, err)
	}
	if ok {
		p.GreenCardStartDate = parseTimestamp(raw)
	}

	raw, ok, err = s.kv.Get(ctx, s.key(marriedToCitizenKey))
	if err != nil {
		return p, fmt.Errorf("repo.LocalStore.LoadProfile: %w: %w", domain.ErrStoreRead, err)
	}
	p.MarriedToCitizen = ok && string(raw) == "1"

	return p, nil
}

// SaveProfile stores both profile fields. An unset green-card date removes
// its key.
func (s *LocalStore) SaveProfile(ctx context.Context, p domain.EligibilityProfile) error {
	var gcErr error
	if p.HasGreenCardDate() {
		ts := strconv.FormatInt(p.GreenCardStartDate.Unix(), 10)
		gcErr = s.kv.Set(ctx, s.key(gcResidentSinceKey), []byte(ts))
	} else {
		gcErr = s.kv.Delete(ctx, s.key(gcResidentSinceKey))
	}
	married := "0"
	if p.MarriedToCitizen {
		married = "1"
	}
	err := errors.Join(
		gcErr,
		s.kv.Set(ctx, s.key(marriedToCitizenKey), []byte(married)),
	)
	if err != nil {
		return fmt.Errorf("repo.LocalStore.SaveProfile: %w: %w", domain.ErrStoreWrite, err)
	}
	return nil
}

func (s *LocalStore) key(k string) string {
	return s.prefix + k
}

// parseTimestamp reads seconds since the Unix epoch. Fractional seconds and
// dates before 1970 are accepted. Exactly 0 is how older clients stored
// "not set", so it and malformed values read as unset.
func parseTimestamp(raw []byte) time.Time {
	f, err := strconv.ParseFloat(string(raw), 64)
	if err != nil || f == 0 || math.IsInf(f, 0) || math.IsNaN(f) {
		return time.Time{}
	}
	sec, frac := math.Modf(f)
	return time.Unix(int64(sec), int64(frac*1e9)).UTC()
}
