package retention

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"checkpoint/internal/privacy"
)

type countingStore struct {
	mu     sync.Mutex
	sweeps int
	err    error
}

func (s *countingStore) DeleteOlderThan(context.Context, time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sweeps++
	if s.err != nil {
		return 0, s.err
	}
	return 3, nil
}

func (s *countingStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sweeps
}

type countingMetrics struct {
	mu    sync.Mutex
	total int64
}

func (m *countingMetrics) AddRetentionDeleted(count int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.total += count
}

func (m *countingMetrics) read() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.total
}

func TestSchedulerDisabledWhenRetentionNotPositive(t *testing.T) {
	for _, days := range []int{0, -7} {
		store := &countingStore{}
		scheduler := NewScheduler(store, days, WithInterval(time.Millisecond))

		done := make(chan error, 1)
		go func() { done <- scheduler.Run(context.Background()) }()

		select {
		case err := <-done:
			require.NoError(t, err)
		case <-time.After(time.Second):
			t.Fatal("disabled scheduler must return immediately")
		}
		assert.Equal(t, 0, store.count())
	}
}

func TestSchedulerSweepsAndCounts(t *testing.T) {
	store := &countingStore{}
	metrics := &countingMetrics{}
	scheduler := NewScheduler(store, 30, WithInterval(5*time.Millisecond), WithMetrics(metrics))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- scheduler.Run(ctx) }()

	require.Eventually(t, func() bool { return store.count() >= 3 }, time.Second, time.Millisecond)
	cancel()
	require.NoError(t, <-done)

	assert.GreaterOrEqual(t, metrics.read(), int64(9), "each sweep deletes three rows")
}

func TestSchedulerSurvivesStoreFailures(t *testing.T) {
	store := &countingStore{err: errors.New("connection reset")}
	metrics := &countingMetrics{}
	scheduler := NewScheduler(store, 30, WithInterval(5*time.Millisecond), WithMetrics(metrics))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- scheduler.Run(ctx) }()

	require.Eventually(t, func() bool { return store.count() >= 2 }, time.Second, time.Millisecond)
	cancel()
	require.NoError(t, <-done, "sweep failures must not propagate")
	assert.Equal(t, int64(0), metrics.read())
}

func TestSchedulerPurgesOldEntries(t *testing.T) {
	ctx := context.Background()
	store := privacy.NewMemoryStore()
	now := time.Now().UTC()

	for _, age := range []time.Duration{-90 * 24 * time.Hour, -time.Hour} {
		require.NoError(t, store.Append(ctx, privacy.Entry{
			ID:        uuid.New(),
			Address:   "10.0.0.1",
			Action:    privacy.ActionView,
			Timestamp: now.Add(age),
		}))
	}

	scheduler := NewScheduler(store, 30, WithInterval(time.Hour))
	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan error, 1)
	go func() { done <- scheduler.Run(runCtx) }()

	require.Eventually(t, func() bool { return store.Len() == 1 }, time.Second, time.Millisecond)
	cancel()
	require.NoError(t, <-done)
}
