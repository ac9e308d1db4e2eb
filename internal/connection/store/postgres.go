package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"linkup/internal/connection/models"
	id "linkup/pkg/domain"
	"linkup/pkg/platform/sentinel"
	txcontext "linkup/pkg/platform/tx"
)

// uniqueViolation is the Postgres error code raised by the pair index.
const uniqueViolation = "23505"

// PostgresStore persists connection records in PostgreSQL. This store is
// pure I/O; transition rules live in the models and the service.
//
// The pair invariant is enforced by a unique index over
// (least(requester_id, addressee_id), greatest(requester_id, addressee_id)),
// which makes the duplicate check atomic with the insert even under
// concurrent sendRequest calls.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *PostgresStore) q(ctx context.Context) querier {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

const recordColumns = `id, requester_id, addressee_id, state, message, requested_at, responded_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*models.ConnectionRecord, error) {
	var (
		record      models.ConnectionRecord
		connID      uuid.UUID
		requesterID uuid.UUID
		addresseeID uuid.UUID
		state       string
		respondedAt sql.NullTime
	)
	if err := row.Scan(&connID, &requesterID, &addresseeID, &state, &record.Message, &record.RequestedAt, &respondedAt); err != nil {
		return nil, err
	}
	record.ID = id.ConnectionID(connID)
	record.RequesterID = id.UserID(requesterID)
	record.AddresseeID = id.UserID(addresseeID)
	record.State = models.State(state)
	if respondedAt.Valid {
		t := respondedAt.Time
		record.RespondedAt = &t
	}
	return &record, nil
}

func (s *PostgresStore) Create(ctx context.Context, record *models.ConnectionRecord) error {
	query := `
		INSERT INTO connections (id, requester_id, addressee_id, state, message, requested_at, responded_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := s.q(ctx).ExecContext(ctx, query,
		uuid.UUID(record.ID),
		uuid.UUID(record.RequesterID),
		uuid.UUID(record.AddresseeID),
		string(record.State),
		record.Message,
		record.RequestedAt,
		nullTime(record.RespondedAt),
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("create connection: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, connectionID id.ConnectionID) (*models.ConnectionRecord, error) {
	query := `SELECT ` + recordColumns + ` FROM connections WHERE id = $1`
	record, err := scanRecord(s.q(ctx).QueryRowContext(ctx, query, uuid.UUID(connectionID)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find connection: %w", err)
	}
	return record, nil
}

func (s *PostgresStore) FindByPair(ctx context.Context, a, b id.UserID) (*models.ConnectionRecord, error) {
	query := `
		SELECT ` + recordColumns + `
		FROM connections
		WHERE (requester_id = $1 AND addressee_id = $2)
		   OR (requester_id = $2 AND addressee_id = $1)
	`
	record, err := scanRecord(s.q(ctx).QueryRowContext(ctx, query, uuid.UUID(a), uuid.UUID(b)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find connection by pair: %w", err)
	}
	return record, nil
}

// Execute locks the row with SELECT ... FOR UPDATE, runs validate, applies
// mutate and writes the result back, all inside one transaction. Two
// concurrent transitions on the same record serialize on the row lock, so
// the loser revalidates against the committed state.
func (s *PostgresStore) Execute(
	ctx context.Context,
	connectionID id.ConnectionID,
	validate func(record *models.ConnectionRecord) error,
	mutate func(record *models.ConnectionRecord),
) (*models.ConnectionRecord, error) {
	if tx, ok := txcontext.From(ctx); ok {
		return s.executeIn(ctx, tx, connectionID, validate, mutate)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin execute tx: %w", err)
	}
	record, err := s.executeIn(ctx, tx, connectionID, validate, mutate)
	if err != nil {
		_ = tx.Rollback()
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit execute tx: %w", err)
	}
	return record, nil
}

func (s *PostgresStore) executeIn(
	ctx context.Context,
	tx *sql.Tx,
	connectionID id.ConnectionID,
	validate func(record *models.ConnectionRecord) error,
	mutate func(record *models.ConnectionRecord),
) (*models.ConnectionRecord, error) {
	query := `SELECT ` + recordColumns + ` FROM connections WHERE id = $1 FOR UPDATE`
	record, err := scanRecord(tx.QueryRowContext(ctx, query, uuid.UUID(connectionID)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("lock connection: %w", err)
	}

	if err := validate(record); err != nil {
		return nil, err
	}
	mutate(record)

	update := `
		UPDATE connections
		SET state = $2, responded_at = $3
		WHERE id = $1
	`
	if _, err := tx.ExecContext(ctx, update,
		uuid.UUID(record.ID),
		string(record.State),
		nullTime(record.RespondedAt),
	); err != nil {
		return nil, fmt.Errorf("update connection: %w", err)
	}
	return record, nil
}

func (s *PostgresStore) Delete(ctx context.Context, connectionID id.ConnectionID) error {
	result, err := s.q(ctx).ExecContext(ctx,
		`DELETE FROM connections WHERE id = $1`, uuid.UUID(connectionID))
	if err != nil {
		return fmt.Errorf("delete connection: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete connection rows affected: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) ListAcceptedByUser(ctx context.Context, userID id.UserID) ([]*models.ConnectionRecord, error) {
	query := `
		SELECT ` + recordColumns + `
		FROM connections
		WHERE state = 'ACCEPTED' AND (requester_id = $1 OR addressee_id = $1)
		ORDER BY responded_at DESC
	`
	return s.list(ctx, query, uuid.UUID(userID))
}

func (s *PostgresStore) ListPendingSent(ctx context.Context, userID id.UserID) ([]*models.ConnectionRecord, error) {
	query := `
		SELECT ` + recordColumns + `
		FROM connections
		WHERE state = 'PENDING' AND requester_id = $1
		ORDER BY requested_at DESC
	`
	return s.list(ctx, query, uuid.UUID(userID))
}

func (s *PostgresStore) ListPendingReceived(ctx context.Context, userID id.UserID) ([]*models.ConnectionRecord, error) {
	query := `
		SELECT ` + recordColumns + `
		FROM connections
		WHERE state = 'PENDING' AND addressee_id = $1
		ORDER BY requested_at DESC
	`
	return s.list(ctx, query, uuid.UUID(userID))
}

func (s *PostgresStore) list(ctx context.Context, query string, args ...any) ([]*models.ConnectionRecord, error) {
	rows, err := s.q(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list connections: %w", err)
	}
	defer rows.Close()

	var out []*models.ConnectionRecord
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan connection: %w", err)
		}
		out = append(out, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate connections: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) AcceptedPeerIDs(ctx context.Context, userID id.UserID) ([]id.UserID, error) {
	query := `
		SELECT CASE WHEN requester_id = $1 THEN addressee_id ELSE requester_id END
		FROM connections
		WHERE state = 'ACCEPTED' AND (requester_id = $1 OR addressee_id = $1)
	`
	rows, err := s.q(ctx).QueryContext(ctx, query, uuid.UUID(userID))
	if err != nil {
		return nil, fmt.Errorf("list accepted peers: %w", err)
	}
	defer rows.Close()

	var out []id.UserID
	for rows.Next() {
		var peer uuid.UUID
		if err := rows.Scan(&peer); err != nil {
			return nil, fmt.Errorf("scan peer: %w", err)
		}
		out = append(out, id.UserID(peer))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate peers: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) MutualCount(ctx context.Context, a, b id.UserID) (int, error) {
	query := `
		WITH peers_a AS (
			SELECT CASE WHEN requester_id = $1 THEN addressee_id ELSE requester_id END AS peer
			FROM connections
			WHERE state = 'ACCEPTED' AND (requester_id = $1 OR addressee_id = $1)
		)
		SELECT count(*)
		FROM connections c
		WHERE c.state = 'ACCEPTED'
		  AND (c.requester_id = $2 OR c.addressee_id = $2)
		  AND (CASE WHEN c.requester_id = $2 THEN c.addressee_id ELSE c.requester_id END)
		      IN (SELECT peer FROM peers_a)
	`
	var count int
	if err := s.q(ctx).QueryRowContext(ctx, query, uuid.UUID(a), uuid.UUID(b)).Scan(&count); err != nil {
		return 0, fmt.Errorf("count mutual connections: %w", err)
	}
	return count, nil
}

func (s *PostgresStore) AreConnected(ctx context.Context, a, b id.UserID) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM connections
			WHERE state = 'ACCEPTED'
			  AND ((requester_id = $1 AND addressee_id = $2)
			    OR (requester_id = $2 AND addressee_id = $1))
		)
	`
	var connected bool
	if err := s.q(ctx).QueryRowContext(ctx, query, uuid.UUID(a), uuid.UUID(b)).Scan(&connected); err != nil {
		return false, fmt.Errorf("check connected: %w", err)
	}
	return connected, nil
}

func nullTime(value *time.Time) sql.NullTime {
	if value == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *value, Valid: true}
}
