// Package store persists connection records. The in-memory implementation
// backs unit tests and local development; PostgresStore is the production
// source of truth. Both enforce the same contract: pair uniqueness at
// creation and serialized validate-then-mutate through Execute.
package store

import (
	"context"
	"strings"
	"sync"

	"linkup/internal/connection/models"
	id "linkup/pkg/domain"
	"linkup/pkg/platform/sentinel"
)

// InMemory keeps records in maps guarded by one mutex. The pair index maps
// the unordered participant pair to the record ID, which is what makes the
// duplicate check atomic with creation.
type InMemory struct {
	mu      sync.RWMutex
	records map[id.ConnectionID]*models.ConnectionRecord
	pairs   map[string]id.ConnectionID
}

func NewInMemory() *InMemory {
	return &InMemory{
		records: make(map[id.ConnectionID]*models.ConnectionRecord),
		pairs:   make(map[string]id.ConnectionID),
	}
}

// pairKey is direction-independent: both (a,b) and (b,a) map to one key.
func pairKey(a, b id.UserID) string {
	as, bs := a.String(), b.String()
	if strings.Compare(as, bs) > 0 {
		as, bs = bs, as
	}
	return as + "|" + bs
}

func clone(record *models.ConnectionRecord) *models.ConnectionRecord {
	out := *record
	if record.RespondedAt != nil {
		t := *record.RespondedAt
		out.RespondedAt = &t
	}
	return &out
}

// Create inserts the record if no record exists between the pair in either
// direction. Returns sentinel.ErrConflict otherwise.
func (s *InMemory) Create(ctx context.Context, record *models.ConnectionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := pairKey(record.RequesterID, record.AddresseeID)
	if _, exists := s.pairs[key]; exists {
		return sentinel.ErrConflict
	}
	s.pairs[key] = record.ID
	s.records[record.ID] = clone(record)
	return nil
}

func (s *InMemory) FindByID(ctx context.Context, connectionID id.ConnectionID) (*models.ConnectionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, ok := s.records[connectionID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return clone(record), nil
}

// FindByPair returns the record between two users regardless of direction.
func (s *InMemory) FindByPair(ctx context.Context, a, b id.UserID) (*models.ConnectionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	connectionID, ok := s.pairs[pairKey(a, b)]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return clone(s.records[connectionID]), nil
}

// Execute runs validate then mutate on the record while holding the store
// lock, so concurrent transitions on the same record serialize and exactly
// one of two racing accepts can pass validation.
func (s *InMemory) Execute(
	ctx context.Context,
	connectionID id.ConnectionID,
	validate func(record *models.ConnectionRecord) error,
	mutate func(record *models.ConnectionRecord),
) (*models.ConnectionRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.records[connectionID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	if err := validate(record); err != nil {
		return nil, err
	}
	mutate(record)
	return clone(record), nil
}

// Delete removes the record and frees the pair slot.
func (s *InMemory) Delete(ctx context.Context, connectionID id.ConnectionID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.records[connectionID]
	if !ok {
		return sentinel.ErrNotFound
	}
	delete(s.pairs, pairKey(record.RequesterID, record.AddresseeID))
	delete(s.records, connectionID)
	return nil
}

// ListAcceptedByUser returns accepted records where the user participates.
func (s *InMemory) ListAcceptedByUser(ctx context.Context, userID id.UserID) ([]*models.ConnectionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.ConnectionRecord
	for _, record := range s.records {
		if record.State == models.StateAccepted && record.IsParticipant(userID) {
			out = append(out, clone(record))
		}
	}
	return out, nil
}

// ListPendingSent returns pending records the user initiated.
func (s *InMemory) ListPendingSent(ctx context.Context, userID id.UserID) ([]*models.ConnectionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.ConnectionRecord
	for _, record := range s.records {
		if record.State == models.StatePending && record.RequesterID == userID {
			out = append(out, clone(record))
		}
	}
	return out, nil
}

// ListPendingReceived returns pending records addressed to the user.
func (s *InMemory) ListPendingReceived(ctx context.Context, userID id.UserID) ([]*models.ConnectionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.ConnectionRecord
	for _, record := range s.records {
		if record.State == models.StatePending && record.AddresseeID == userID {
			out = append(out, clone(record))
		}
	}
	return out, nil
}

// AcceptedPeerIDs returns the user's accepted-connection neighbor set.
func (s *InMemory) AcceptedPeerIDs(ctx context.Context, userID id.UserID) ([]id.UserID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []id.UserID
	for _, record := range s.records {
		if record.State == models.StateAccepted && record.IsParticipant(userID) {
			out = append(out, record.OtherParty(userID))
		}
	}
	return out, nil
}

// MutualCount counts users holding an accepted connection with both a and b.
func (s *InMemory) MutualCount(ctx context.Context, a, b id.UserID) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	peersOfA := make(map[id.UserID]struct{})
	for _, record := range s.records {
		if record.State == models.StateAccepted && record.IsParticipant(a) {
			peersOfA[record.OtherParty(a)] = struct{}{}
		}
	}
	count := 0
	for _, record := range s.records {
		if record.State == models.StateAccepted && record.IsParticipant(b) {
			if _, ok := peersOfA[record.OtherParty(b)]; ok {
				count++
			}
		}
	}
	return count, nil
}

// AreConnected reports whether an accepted record links a and b.
func (s *InMemory) AreConnected(ctx context.Context, a, b id.UserID) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	connectionID, ok := s.pairs[pairKey(a, b)]
	if !ok {
		return false, nil
	}
	return s.records[connectionID].State == models.StateAccepted, nil
}
