package attendance

import (
	"context"
	"time"
)

// Store persists attendance records. Records are append-only; there is no
// update or delete.
type Store interface {
	Insert(ctx context.Context, record Record) error
	// LatestByPerson returns the most recent record, sentinel.ErrNotFound
	// when the person has none.
	LatestByPerson(ctx context.Context, personID int64) (*Record, error)
	// ListByPerson returns records in ascending timestamp order. Zero from/to
	// bounds mean unbounded on that side; to is exclusive.
	ListByPerson(ctx context.Context, personID int64, from, to time.Time) ([]Record, error)
}
