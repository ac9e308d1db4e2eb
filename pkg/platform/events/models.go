// Package events defines the relationship-change notifications linkup emits
// to the outside world. Keep the event transport-agnostic so stores and
// sinks can fan out.
package events

import (
	"context"
	"time"

	id "linkup/pkg/domain"
)

// Type names a relationship lifecycle change.
type Type string

const (
	TypeRequested Type = "connection_requested"
	TypeAccepted  Type = "connection_accepted"
	TypeRejected  Type = "connection_rejected"
	TypeBlocked   Type = "connection_blocked"
	TypeCancelled Type = "connection_cancelled"
	TypeRemoved   Type = "connection_removed"
)

// Event is emitted from domain logic whenever a connection changes.
// Every event carries the full participant pair so consumers never need to
// look the record up (it may already be deleted by the time they read it).
type Event struct {
	Type         Type
	ConnectionID id.ConnectionID
	RequesterID  id.UserID
	AddresseeID  id.UserID
	Timestamp    time.Time
	// RequestID is the correlation ID from the originating HTTP request,
	// when one exists.
	RequestID string
}

// Store persists events. Implementations: in-memory (tests, dev) and the
// Postgres outbox (production, relayed to Kafka by the worker).
type Store interface {
	Append(ctx context.Context, event Event) error
}
