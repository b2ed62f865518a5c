// Package retention purges audit log entries past their retention window.
package retention

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"checkpoint/internal/privacy"
)

// Store is the slice of the audit store the scheduler needs.
type Store interface {
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// Metrics counts purged rows.
type Metrics interface {
	AddRetentionDeleted(count int64)
}

type noopMetrics struct{}

func (noopMetrics) AddRetentionDeleted(int64) {}

// Scheduler deletes audit entries older than the retention window on a fixed
// interval. A non-positive retention disables it entirely.
type Scheduler struct {
	store     Store
	days      int
	interval  time.Duration
	logger    *slog.Logger
	metrics   Metrics
	publisher *privacy.Publisher
}

type Option func(*Scheduler)

func WithInterval(interval time.Duration) Option {
	return func(s *Scheduler) {
		if interval > 0 {
			s.interval = interval
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Scheduler) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func WithMetrics(m Metrics) Option {
	return func(s *Scheduler) {
		if m != nil {
			s.metrics = m
		}
	}
}

// WithPublisher makes each purge record a system audit entry of its own.
func WithPublisher(publisher *privacy.Publisher) Option {
	return func(s *Scheduler) {
		s.publisher = publisher
	}
}

func NewScheduler(store Store, retentionDays int, opts ...Option) *Scheduler {
	s := &Scheduler{
		store:    store,
		days:     retentionDays,
		interval: 24 * time.Hour,
		logger:   slog.Default(),
		metrics:  noopMetrics{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run sweeps once immediately, then on every tick until the context is
// cancelled. Sweep failures are logged and never stop the loop or propagate.
func (s *Scheduler) Run(ctx context.Context) error {
	if s.days <= 0 {
		s.logger.Info("audit retention disabled", "retention_days", s.days)
		return nil
	}
	s.logger.Info("audit retention started", "retention_days", s.days, "interval", s.interval)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.sweep(ctx)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *Scheduler) sweep(ctx context.Context) {
	cutoff := time.Now().UTC().AddDate(0, 0, -s.days)
	deleted, err := s.store.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		s.logger.Error("audit retention sweep failed", "error", err)
		return
	}
	s.metrics.AddRetentionDeleted(deleted)
	if deleted > 0 && s.publisher != nil {
		// System entry: no person, no admin.
		s.publisher.Emit(privacy.Entry{
			Action:  privacy.ActionRemove,
			Details: fmt.Sprintf("retention purge removed %d audit entries older than %s", deleted, cutoff.Format(time.RFC3339)),
		})
	}
	s.logger.Info("audit retention sweep completed", "deleted", deleted, "cutoff", cutoff.Format(time.RFC3339))
}
