// Package worker relays outbox rows to the Kafka sink.
//
// The worker polls on an interval and additionally wakes up on the
// Postgres NOTIFY fired by the outbox insert trigger, so events normally
// reach Kafka within milliseconds of commit while the poll interval only
// bounds recovery after a missed notification.
package worker

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
)

// Sink receives outbox payloads. Implemented by the Kafka sink; tests use
// an in-process fake.
type Sink interface {
	Publish(ctx context.Context, key string, payload []byte) error
}

type Worker struct {
	db       *sql.DB
	sink     Sink
	logger   *slog.Logger
	interval time.Duration
	batch    int
	wakeup   chan struct{}

	// databaseURL enables the LISTEN connection; empty disables it and the
	// worker falls back to pure polling.
	databaseURL string
}

type Option func(*Worker)

func WithInterval(d time.Duration) Option {
	return func(w *Worker) { w.interval = d }
}

func WithBatchSize(n int) Option {
	return func(w *Worker) { w.batch = n }
}

// WithListener enables NOTIFY wakeups over a dedicated pgx connection.
func WithListener(databaseURL string) Option {
	return func(w *Worker) { w.databaseURL = databaseURL }
}

func NewWorker(db *sql.DB, sink Sink, logger *slog.Logger, opts ...Option) *Worker {
	w := &Worker{
		db:       db,
		sink:     sink,
		logger:   logger,
		interval: 5 * time.Second,
		batch:    100,
		wakeup:   make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run relays until ctx is cancelled. Publish failures are logged and
// retried on the next cycle; rows stay unpublished until the sink acks.
func (w *Worker) Run(ctx context.Context) error {
	if w.databaseURL != "" {
		go w.listen(ctx)
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		if err := w.relayBatch(ctx); err != nil {
			w.logger.Error("outbox relay cycle failed", "error", err)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		case <-w.wakeup:
		}
	}
}

// listen holds a dedicated connection on the outbox_wakeup channel and
// nudges the relay loop on each notification. Connection loss degrades to
// polling; we retry with backoff.
func (w *Worker) listen(ctx context.Context) {
	for {
		if err := w.listenOnce(ctx); err != nil {
			if ctx.Err() != nil {
				return
			}
			w.logger.Warn("outbox listener disconnected, retrying", "error", err)
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(w.interval):
		}
	}
}

func (w *Worker) listenOnce(ctx context.Context) error {
	conn, err := pgx.Connect(ctx, w.databaseURL)
	if err != nil {
		return fmt.Errorf("connect listener: %w", err)
	}
	defer conn.Close(context.Background())

	if _, err := conn.Exec(ctx, "LISTEN outbox_wakeup"); err != nil {
		return fmt.Errorf("listen outbox_wakeup: %w", err)
	}

	for {
		if _, err := conn.WaitForNotification(ctx); err != nil {
			return err
		}
		select {
		case w.wakeup <- struct{}{}:
		default:
		}
	}
}

// relayBatch claims unpublished rows with SKIP LOCKED so multiple worker
// replicas never double-publish, produces them, and marks them published in
// the same transaction.
func (w *Worker) relayBatch(ctx context.Context) error {
	for {
		n, err := w.relayOnce(ctx)
		if err != nil {
			return err
		}
		if n < w.batch {
			return nil
		}
	}
}

func (w *Worker) relayOnce(ctx context.Context) (int, error) {
	tx, err := w.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin relay tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	rows, err := tx.QueryContext(ctx, `
		SELECT id, aggregate_id, payload
		FROM outbox
		WHERE published_at IS NULL
		ORDER BY created_at
		LIMIT $1
		FOR UPDATE SKIP LOCKED
	`, w.batch)
	if err != nil {
		return 0, fmt.Errorf("claim outbox rows: %w", err)
	}

	type row struct {
		id          string
		aggregateID string
		payload     []byte
	}
	var claimed []row
	for rows.Next() {
		var r row
		if err := rows.Scan(&r.id, &r.aggregateID, &r.payload); err != nil {
			rows.Close()
			return 0, fmt.Errorf("scan outbox row: %w", err)
		}
		claimed = append(claimed, r)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, fmt.Errorf("iterate outbox rows: %w", err)
	}
	if len(claimed) == 0 {
		return 0, nil
	}

	for _, r := range claimed {
		if err := w.sink.Publish(ctx, r.aggregateID, r.payload); err != nil {
			return 0, fmt.Errorf("publish outbox row %s: %w", r.id, err)
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE outbox SET published_at = now() WHERE id = $1`, r.id); err != nil {
			return 0, fmt.Errorf("mark outbox row %s published: %w", r.id, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit relay tx: %w", err)
	}
	return len(claimed), nil
}
