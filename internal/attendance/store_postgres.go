package attendance

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"checkpoint/internal/dailycode"
	"checkpoint/pkg/platform/sentinel"
	txcontext "checkpoint/pkg/platform/tx"
)

// PostgresStore persists attendance records in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *PostgresStore) execer(ctx context.Context) dbExecutor {
	if dbtx, ok := txcontext.From(ctx); ok {
		return dbtx
	}
	return s.db
}

func (s *PostgresStore) Insert(ctx context.Context, record Record) error {
	query := `
		INSERT INTO attendance_records (id, person_id, kind, timestamp, latitude, longitude, address)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO NOTHING
	`
	_, err := s.execer(ctx).ExecContext(ctx, query,
		record.ID,
		record.PersonID,
		string(record.Kind),
		record.Timestamp,
		record.Latitude,
		record.Longitude,
		record.Address,
	)
	if err != nil {
		return fmt.Errorf("insert attendance record: %w", err)
	}
	return nil
}

func (s *PostgresStore) LatestByPerson(ctx context.Context, personID int64) (*Record, error) {
	query := `
		SELECT id, person_id, kind, timestamp, latitude, longitude, address
		FROM attendance_records
		WHERE person_id = $1
		ORDER BY timestamp DESC
		LIMIT 1
	`
	var (
		record Record
		kind   string
	)
	err := s.execer(ctx).QueryRowContext(ctx, query, personID).Scan(
		&record.ID,
		&record.PersonID,
		&kind,
		&record.Timestamp,
		&record.Latitude,
		&record.Longitude,
		&record.Address,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load latest attendance record: %w", err)
	}
	record.Kind = dailycode.Kind(kind)
	return &record, nil
}

func (s *PostgresStore) ListByPerson(ctx context.Context, personID int64, from, to time.Time) ([]Record, error) {
	if to.IsZero() {
		to = time.Date(9999, 12, 31, 0, 0, 0, 0, time.UTC)
	}
	query := `
		SELECT id, person_id, kind, timestamp, latitude, longitude, address
		FROM attendance_records
		WHERE person_id = $1 AND timestamp >= $2 AND timestamp < $3
		ORDER BY timestamp ASC
	`
	rows, err := s.execer(ctx).QueryContext(ctx, query, personID, from, to)
	if err != nil {
		return nil, fmt.Errorf("list attendance records: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var (
			record Record
			kind   string
		)
		if err := rows.Scan(
			&record.ID,
			&record.PersonID,
			&kind,
			&record.Timestamp,
			&record.Latitude,
			&record.Longitude,
			&record.Address,
		); err != nil {
			return nil, fmt.Errorf("scan attendance record: %w", err)
		}
		record.Kind = dailycode.Kind(kind)
		out = append(out, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate attendance records: %w", err)
	}
	return out, nil
}
