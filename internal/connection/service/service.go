// Package service orchestrates the connection lifecycle: creation guards,
// authorization, state transitions, event emission and cache invalidation.
// State legality itself lives in the models package; stores only persist.
package service

import (
	"context"
	"log/slog"

	connmetrics "linkup/internal/connection/metrics"
	"linkup/internal/connection/models"
	id "linkup/pkg/domain"
	"linkup/pkg/platform/events"
	tx "linkup/pkg/platform/tx"
)

// Store is the persistence contract the service drives.
type Store interface {
	Create(ctx context.Context, record *models.ConnectionRecord) error
	FindByID(ctx context.Context, connectionID id.ConnectionID) (*models.ConnectionRecord, error)
	FindByPair(ctx context.Context, a, b id.UserID) (*models.ConnectionRecord, error)
	Execute(ctx context.Context, connectionID id.ConnectionID,
		validate func(record *models.ConnectionRecord) error,
		mutate func(record *models.ConnectionRecord)) (*models.ConnectionRecord, error)
	Delete(ctx context.Context, connectionID id.ConnectionID) error
	ListAcceptedByUser(ctx context.Context, userID id.UserID) ([]*models.ConnectionRecord, error)
	ListPendingSent(ctx context.Context, userID id.UserID) ([]*models.ConnectionRecord, error)
	ListPendingReceived(ctx context.Context, userID id.UserID) ([]*models.ConnectionRecord, error)
}

// GraphReader answers the accepted-graph queries. In production it is the
// Redis read-through cache fronting the Postgres store.
type GraphReader interface {
	AcceptedPeerIDs(ctx context.Context, userID id.UserID) ([]id.UserID, error)
	MutualCount(ctx context.Context, a, b id.UserID) (int, error)
	AreConnected(ctx context.Context, a, b id.UserID) (bool, error)
}

// CacheInvalidator drops cached graph entries after mutations.
type CacheInvalidator interface {
	InvalidateUsers(ctx context.Context, users ...id.UserID)
}

// Directory is the slice of the profile directory the lifecycle needs.
type Directory interface {
	ExistsAndActive(ctx context.Context, userID id.UserID) (bool, error)
}

// EventPublisher delivers relationship events.
type EventPublisher interface {
	Emit(ctx context.Context, event events.Event) error
}

// Service orchestrates connection lifecycle operations.
type Service struct {
	store       Store
	graph       GraphReader
	directory   Directory
	publisher   EventPublisher
	invalidator CacheInvalidator
	tx          tx.Runner
	logger      *slog.Logger
	metrics     *connmetrics.Metrics
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithMetrics(m *connmetrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithPublisher(publisher EventPublisher) Option {
	return func(s *Service) { s.publisher = publisher }
}

// WithTxRunner makes lifecycle writes and their event appends atomic.
func WithTxRunner(runner tx.Runner) Option {
	return func(s *Service) { s.tx = runner }
}

// WithGraphReader routes graph queries through a cache instead of the store.
func WithGraphReader(graph GraphReader) Option {
	return func(s *Service) { s.graph = graph }
}

func WithCacheInvalidator(invalidator CacheInvalidator) Option {
	return func(s *Service) { s.invalidator = invalidator }
}

// New constructs a Service. store must also satisfy GraphReader unless
// WithGraphReader overrides it.
func New(store Store, directory Directory, opts ...Option) *Service {
	s := &Service{
		store:     store,
		directory: directory,
		tx:        tx.NewPassthroughRunner(),
		logger:    slog.Default(),
	}
	if graph, ok := store.(GraphReader); ok {
		s.graph = graph
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

func (s *Service) emit(ctx context.Context, eventType events.Type, record *models.ConnectionRecord) error {
	if s.publisher == nil {
		return nil
	}
	return s.publisher.Emit(ctx, events.Event{
		Type:         eventType,
		ConnectionID: record.ID,
		RequesterID:  record.RequesterID,
		AddresseeID:  record.AddresseeID,
	})
}

func (s *Service) invalidate(ctx context.Context, record *models.ConnectionRecord) {
	if s.invalidator != nil {
		s.invalidator.InvalidateUsers(ctx, record.RequesterID, record.AddresseeID)
	}
}

func (s *Service) countTransition(outcome string) {
	if s.metrics != nil {
		s.metrics.IncrementTransition(outcome)
	}
}
