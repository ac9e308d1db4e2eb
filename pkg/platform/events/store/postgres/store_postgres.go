// Package postgres implements events.Store using the transactional outbox
// pattern. Events are written to the outbox table inside the caller's
// transaction and relayed to Kafka by the outbox worker, so a relationship
// change and its notification commit or roll back together.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"linkup/pkg/platform/events"
	txcontext "linkup/pkg/platform/tx"
)

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (s *Store) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

// outboxPayload is the JSON structure relayed to Kafka. Field names match
// events.Event so consumers can decode either representation.
type outboxPayload struct {
	ID           string `json:"ID"`
	Type         string `json:"Type"`
	ConnectionID string `json:"ConnectionID"`
	RequesterID  string `json:"RequesterID"`
	AddresseeID  string `json:"AddresseeID"`
	Timestamp    string `json:"Timestamp"`
	RequestID    string `json:"RequestID,omitempty"`
}

// Append writes the event to the outbox table. When the context carries a
// transaction the write joins it.
func (s *Store) Append(ctx context.Context, event events.Event) error {
	eventID := uuid.New()

	payload := outboxPayload{
		ID:           eventID.String(),
		Type:         string(event.Type),
		ConnectionID: event.ConnectionID.String(),
		RequesterID:  event.RequesterID.String(),
		AddresseeID:  event.AddresseeID.String(),
		Timestamp:    event.Timestamp.Format(time.RFC3339Nano),
		RequestID:    event.RequestID,
	}
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal event payload: %w", err)
	}

	query := `
		INSERT INTO outbox (id, aggregate_type, aggregate_id, event_type, payload, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err = s.execer(ctx).ExecContext(ctx, query,
		eventID,
		"connection",
		event.ConnectionID.String(),
		string(event.Type),
		payloadBytes,
		event.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("append outbox event: %w", err)
	}
	return nil
}
