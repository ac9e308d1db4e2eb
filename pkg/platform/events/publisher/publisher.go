// Package publisher delivers relationship events to a Store, either
// synchronously or through a buffered channel with a drain-on-close
// guarantee.
package publisher

import (
	"context"
	"log/slog"
	"sync"

	"linkup/pkg/platform/events"
	"linkup/pkg/requestcontext"
)

// Publisher emits events to its store. In async mode a full buffer drops the
// event rather than blocking the request path; the drop is logged.
type Publisher struct {
	store  events.Store
	logger *slog.Logger

	inbox chan events.Event
	wg    sync.WaitGroup
	once  sync.Once
}

type Option func(*Publisher)

// WithAsyncBuffer switches the publisher to asynchronous delivery with the
// given channel capacity.
func WithAsyncBuffer(size int) Option {
	return func(p *Publisher) {
		p.inbox = make(chan events.Event, size)
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) {
		p.logger = logger
	}
}

func NewPublisher(store events.Store, opts ...Option) *Publisher {
	p := &Publisher{store: store, logger: slog.Default()}
	for _, opt := range opts {
		opt(p)
	}
	if p.inbox != nil {
		p.wg.Add(1)
		go p.drain()
	}
	return p
}

// Emit delivers the event. A zero timestamp is stamped with the request
// time so callers don't have to.
func (p *Publisher) Emit(ctx context.Context, event events.Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = requestcontext.Now(ctx)
	}
	if event.RequestID == "" {
		event.RequestID = requestcontext.RequestID(ctx)
	}

	if p.inbox == nil {
		return p.store.Append(ctx, event)
	}

	select {
	case p.inbox <- event:
		return nil
	default:
		p.logger.Warn("event buffer full, dropping event",
			"event_type", string(event.Type),
			"connection_id", event.ConnectionID.String(),
		)
		return nil
	}
}

func (p *Publisher) drain() {
	defer p.wg.Done()
	// Detached from request contexts: events already accepted must land
	// even after the originating request finishes.
	ctx := context.Background()
	for event := range p.inbox {
		if err := p.store.Append(ctx, event); err != nil {
			p.logger.Error("failed to append event",
				"event_type", string(event.Type),
				"error", err,
			)
		}
	}
}

// Close stops the async worker after flushing buffered events. Safe to call
// multiple times and in sync mode.
func (p *Publisher) Close() {
	p.once.Do(func() {
		if p.inbox != nil {
			close(p.inbox)
			p.wg.Wait()
		}
	})
}
