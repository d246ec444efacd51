package audit

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	id "keygate/pkg/domain"
)

// Publisher captures structured activity events. It is append-only and uses
// the storage layer for persistence so tests can swap sinks easily. A
// persistence failure never propagates to the caller: recording is
// best-effort relative to the login or registration that triggered it.
type Publisher struct {
	store  Store
	events chan Entry
	wg     sync.WaitGroup
	logger *slog.Logger
	async  bool
}

// PublisherOption configures the Publisher.
type PublisherOption func(*Publisher)

// WithAsyncBuffer enables async processing with the specified buffer size.
// Events are queued and persisted in a background goroutine.
func WithAsyncBuffer(size int) PublisherOption {
	return func(p *Publisher) {
		if size > 0 {
			p.events = make(chan Entry, size)
			p.async = true
		}
	}
}

// WithPublisherLogger sets a logger for async error reporting.
func WithPublisherLogger(logger *slog.Logger) PublisherOption {
	return func(p *Publisher) {
		p.logger = logger
	}
}

// NewPublisher constructs a Publisher over the given store.
func NewPublisher(store Store, opts ...PublisherOption) *Publisher {
	p := &Publisher{store: store}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}
	if p.async {
		p.wg.Add(1)
		go p.processEvents()
	}
	return p
}

// processEvents runs in a goroutine and persists events from the channel.
func (p *Publisher) processEvents() {
	defer p.wg.Done()
	for e := range p.events {
		if err := p.store.Append(context.Background(), e); err != nil {
			p.logger.Error("failed to persist activity log",
				"error", err,
				"event", string(e.Event),
				"application_id", e.AppID.String(),
			)
		}
	}
}

// Close shuts down the async publisher and waits for pending events to drain.
func (p *Publisher) Close() {
	if p.async && p.events != nil {
		close(p.events)
		p.wg.Wait()
	}
}

// Record persists an activity entry. Always succeeds from the caller's point
// of view: failures are logged and swallowed.
func (p *Publisher) Record(ctx context.Context, e Entry) {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}
	if p.async {
		// Non-blocking send; drop the entry if the buffer is full rather
		// than stalling the login path.
		select {
		case p.events <- e:
		default:
			p.logger.Warn("audit buffer full, entry dropped",
				"event", string(e.Event),
				"application_id", e.AppID.String(),
			)
		}
		return
	}
	if err := p.store.Append(ctx, e); err != nil {
		p.logger.Error("failed to persist activity log",
			"error", err,
			"event", string(e.Event),
			"application_id", e.AppID.String(),
		)
	}
}

// List returns recent entries for one application.
func (p *Publisher) List(ctx context.Context, appID id.AppID, limit int) ([]Entry, error) {
	return p.store.ListByApplication(ctx, appID, limit)
}
