// Package state holds the published view of the trip tracker: the sorted
// trips, the eligibility profile, the derived summary and any notice the
// user should see. The Controller is the only writer; HTTP handlers and
// event streams read it.
package state

import (
	"sync"
	"time"

	"github.com/pkordes/naturalization-tracker/internal/domain"
	"github.com/pkordes/naturalization-tracker/internal/eligibility"
)

// Snapshot represents the latest state available to readers.
type Snapshot struct {
	Trips     domain.TripSet            `json:"trips"`
	Profile   domain.EligibilityProfile `json:"profile"`
	Summary   eligibility.Summary       `json:"summary"`
	UserID    string                    `json:"userId,omitempty"`
	SignedIn  bool                      `json:"signedIn"`
	Notice    string                    `json:"notice,omitempty"`
	UpdatedAt time.Time                 `json:"updatedAt"`
}

// Store coordinates concurrent access to the snapshot and fans out every
// published snapshot to subscribers. The zero value is ready to use.
type Store struct {
	mu       sync.RWMutex
	snapshot Snapshot
	subs     map[int]chan Snapshot
	nextID   int
}

// Publish replaces the stored snapshot and notifies subscribers.
// Delivery never blocks: a subscriber that has not drained its previous
// snapshot has it replaced by this one.
func (s *Store) Publish(snap Snapshot) {
	snap.Trips = snap.Trips.Clone()
	if snap.UpdatedAt.IsZero() {
		snap.UpdatedAt = time.Now()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.snapshot = snap
	for _, ch := range s.subs {
		deliver(ch, cloneSnapshot(snap))
	}
}

// Snapshot returns a copy of the current snapshot.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return cloneSnapshot(s.snapshot)
}

// Subscribe registers for snapshot updates. The channel receives the current
// snapshot immediately. Call the returned function to unsubscribe; it closes
// the channel and is safe to call more than once.
func (s *Store) Subscribe() (<-chan Snapshot, func()) {
	ch := make(chan Snapshot, 1)

	s.mu.Lock()
	if s.subs == nil {
		s.subs = make(map[int]chan Snapshot)
	}
	id := s.nextID
	s.nextID++
	s.subs[id] = ch
	ch <- cloneSnapshot(s.snapshot)
	s.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			delete(s.subs, id)
			close(ch)
		})
	}
}

// deliver sends snap on ch, dropping a stale pending value first.
// Callers hold the write lock, so ch has no other sender.
func deliver(ch chan Snapshot, snap Snapshot) {
	select {
	case ch <- snap:
		return
	default:
	}
	select {
	case <-ch:
	default:
	}
	ch <- snap
}

func cloneSnapshot(snap Snapshot) Snapshot {
	dup := snap
	if snap.Trips != nil {
		dup.Trips = snap.Trips.Clone()
	}
	return dup
}
