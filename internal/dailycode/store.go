package dailycode

import (
	"context"
	"time"
)

// Store persists daily codes. Implementations return sentinel errors:
// ErrNotFound when no code matches, ErrConflict when a (person, date) code
// already exists, ErrExhausted when the usage budget is spent.
type Store interface {
	Create(ctx context.Context, code DailyCode) error
	GetByPersonAndDate(ctx context.Context, personID int64, date time.Time) (*DailyCode, error)
	GetByValue(ctx context.Context, codeValue string) (*DailyCode, error)
	// GetByValueForUpdate reads a code while holding it against concurrent
	// redemption for the duration of the surrounding transaction.
	GetByValueForUpdate(ctx context.Context, codeValue string) (*DailyCode, error)
	// IncrementUsage bumps the counter only while it is below the cap and
	// returns the new count.
	IncrementUsage(ctx context.Context, codeValue string) (int, error)
}
