package memory

import (
	"context"
	"sync"

	id "linkup/pkg/domain"
	"linkup/pkg/platform/events"
)

// InMemoryStore keeps events in a slice. Used by tests and local dev wiring
// where no outbox table exists.
type InMemoryStore struct {
	mu     sync.RWMutex
	events []events.Event
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{}
}

func (s *InMemoryStore) Append(ctx context.Context, event events.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

// List returns all stored events in append order.
func (s *InMemoryStore) List(ctx context.Context) ([]events.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]events.Event, len(s.events))
	copy(out, s.events)
	return out, nil
}

// ListByUser returns events where the user is requester or addressee.
func (s *InMemoryStore) ListByUser(ctx context.Context, userID id.UserID) ([]events.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []events.Event
	for _, e := range s.events {
		if e.RequesterID == userID || e.AddresseeID == userID {
			out = append(out, e)
		}
	}
	return out, nil
}
