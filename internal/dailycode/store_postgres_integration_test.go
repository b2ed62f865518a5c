//go:build integration

package dailycode_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"checkpoint/internal/dailycode"
	"checkpoint/pkg/platform/sentinel"
	"checkpoint/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *dailycode.PostgresStore
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.postgres = containers.NewPostgresContainer(s.T())
	s.store = dailycode.NewPostgresStore(s.postgres.DB)
}

func (s *PostgresStoreSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateTables(context.Background(), "daily_codes"))
}

func (s *PostgresStoreSuite) day() time.Time {
	return time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)
}

func (s *PostgresStoreSuite) TestCreateAndReadBack() {
	ctx := context.Background()
	code := dailycode.DailyCode{PersonID: 1, CodeValue: "value-1", ValidDate: s.day()}
	s.Require().NoError(s.store.Create(ctx, code))

	byPerson, err := s.store.GetByPersonAndDate(ctx, 1, s.day())
	s.Require().NoError(err)
	s.Equal("value-1", byPerson.CodeValue)
	s.Equal(0, byPerson.UsageCount)
	s.True(byPerson.ValidDate.Equal(s.day()))

	byValue, err := s.store.GetByValue(ctx, "value-1")
	s.Require().NoError(err)
	s.Equal(int64(1), byValue.PersonID)
}

func (s *PostgresStoreSuite) TestCreateConflicts() {
	ctx := context.Background()
	s.Require().NoError(s.store.Create(ctx, dailycode.DailyCode{PersonID: 1, CodeValue: "a", ValidDate: s.day()}))

	err := s.store.Create(ctx, dailycode.DailyCode{PersonID: 1, CodeValue: "b", ValidDate: s.day()})
	s.ErrorIs(err, sentinel.ErrConflict, "one code per person per day")

	err = s.store.Create(ctx, dailycode.DailyCode{PersonID: 2, CodeValue: "a", ValidDate: s.day()})
	s.ErrorIs(err, sentinel.ErrConflict, "code values are globally unique")
}

// TestConcurrentCreation verifies that racing first requests produce exactly
// one row.
func (s *PostgresStoreSuite) TestConcurrentCreation() {
	ctx := context.Background()
	const goroutines = 20

	var wg sync.WaitGroup
	var successCount, conflictCount atomic.Int32
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			err := s.store.Create(ctx, dailycode.DailyCode{
				PersonID:  7,
				CodeValue: "candidate-" + string(rune('a'+i)),
				ValidDate: s.day(),
			})
			if err == nil {
				successCount.Add(1)
			} else if errors.Is(err, sentinel.ErrConflict) {
				conflictCount.Add(1)
			}
		}(i)
	}
	wg.Wait()

	s.Equal(int32(1), successCount.Load(), "exactly one create should succeed")
	s.Equal(int32(goroutines-1), conflictCount.Load())
}

// TestConcurrentIncrements verifies the usage counter never passes the cap
// under contention.
func (s *PostgresStoreSuite) TestConcurrentIncrements() {
	ctx := context.Background()
	s.Require().NoError(s.store.Create(ctx, dailycode.DailyCode{PersonID: 3, CodeValue: "contended", ValidDate: s.day()}))

	const goroutines = 25
	var wg sync.WaitGroup
	var granted, exhausted atomic.Int32
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.store.IncrementUsage(ctx, "contended")
			if err == nil {
				granted.Add(1)
			} else if errors.Is(err, sentinel.ErrExhausted) {
				exhausted.Add(1)
			}
		}()
	}
	wg.Wait()

	s.Equal(int32(dailycode.MaxUsagePerDay), granted.Load())
	s.Equal(int32(goroutines-dailycode.MaxUsagePerDay), exhausted.Load())

	final, err := s.store.GetByValue(ctx, "contended")
	s.Require().NoError(err)
	s.Equal(dailycode.MaxUsagePerDay, final.UsageCount)
}

func (s *PostgresStoreSuite) TestIncrementUnknownCode() {
	_, err := s.store.IncrementUsage(context.Background(), "missing")
	s.ErrorIs(err, sentinel.ErrNotFound)
}
