package privacy

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Action is the kind of address-data operation being audited.
type Action string

const (
	ActionView   Action = "VIEW"
	ActionExport Action = "EXPORT"
	ActionAssign Action = "ASSIGN"
	ActionRemove Action = "REMOVE"
	ActionUpdate Action = "UPDATE"
	ActionAccess Action = "ACCESS"
)

// IsValid checks if the action is one of the supported enum values.
func (a Action) IsValid() bool {
	switch a {
	case ActionView, ActionExport, ActionAssign, ActionRemove, ActionUpdate, ActionAccess:
		return true
	}
	return false
}

// Entry is one row of the address audit trail. PersonID and AdminID are
// pointers because system events (retention sweeps) have no subject and
// self-service events have no acting admin.
type Entry struct {
	ID        uuid.UUID
	PersonID  *int64
	Address   string
	Action    Action
	AdminID   *int64
	Timestamp time.Time
	Details   string
}

// Store persists audit entries. Append-only from the request path; the
// retention scheduler is the only deleter.
type Store interface {
	Append(ctx context.Context, entry Entry) error
	ListByPerson(ctx context.Context, personID int64) ([]Entry, error)
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// FailureCounter receives a tick for every audit entry that could not be
// recorded. Implemented by the platform metrics.
type FailureCounter interface {
	IncrementAuditFailures()
}

// Publisher accepts audit entries from request handling and hands them to the
// background worker over a buffered channel. Emit never blocks and never
// returns an error: audit failure must not fail the business operation it
// describes. Entries from a single caller reach the worker in emit order.
type Publisher struct {
	inbox    chan Entry
	logger   *slog.Logger
	failures FailureCounter
}

type PublisherOption func(*Publisher)

func WithPublisherLogger(logger *slog.Logger) PublisherOption {
	return func(p *Publisher) { p.logger = logger }
}

func WithFailureCounter(failures FailureCounter) PublisherOption {
	return func(p *Publisher) { p.failures = failures }
}

func NewPublisher(buffer int, opts ...PublisherOption) *Publisher {
	if buffer <= 0 {
		buffer = 256
	}
	p := &Publisher{
		inbox:  make(chan Entry, buffer),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Emit enqueues an entry, stamping identity and time if unset. A full inbox
// drops the entry; that is reported through diagnostics only.
func (p *Publisher) Emit(entry Entry) {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}
	if !entry.Action.IsValid() {
		p.logger.Warn("dropping audit entry with unknown action", "action", string(entry.Action))
		p.countFailure()
		return
	}

	select {
	case p.inbox <- entry:
	default:
		p.logger.Warn("audit inbox full, dropping entry", "action", string(entry.Action))
		p.countFailure()
	}
}

func (p *Publisher) countFailure() {
	if p.failures != nil {
		p.failures.IncrementAuditFailures()
	}
}

// Worker drains the publisher inbox into the store. Append errors are logged
// and counted, never propagated: the trail is best-effort by contract.
type Worker struct {
	store     Store
	publisher *Publisher
	logger    *slog.Logger
}

func NewWorker(store Store, publisher *Publisher, logger *slog.Logger) *Worker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Worker{store: store, publisher: publisher, logger: logger}
}

// Run consumes entries until ctx is cancelled, then drains whatever is
// already queued before returning. Cancellation is a clean shutdown, not an
// error.
func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			w.drain()
			return nil
		case entry := <-w.publisher.inbox:
			w.append(ctx, entry)
		}
	}
}

func (w *Worker) drain() {
	// Appends during drain get a fresh context; the request context that fed
	// the inbox is already gone.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for {
		select {
		case entry := <-w.publisher.inbox:
			w.append(ctx, entry)
		default:
			return
		}
	}
}

func (w *Worker) append(ctx context.Context, entry Entry) {
	if err := w.store.Append(ctx, entry); err != nil {
		w.logger.Error("failed to append audit entry", "action", string(entry.Action), "error", err)
		w.publisher.countFailure()
	}
}
