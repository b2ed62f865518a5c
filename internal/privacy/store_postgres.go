package privacy

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	txcontext "checkpoint/pkg/platform/tx"
)

// PostgresStore persists address audit entries in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func (s *PostgresStore) execer(ctx context.Context) dbExecutor {
	if dbtx, ok := txcontext.From(ctx); ok {
		return dbtx
	}
	return s.db
}

func (s *PostgresStore) Append(ctx context.Context, entry Entry) error {
	query := `
		INSERT INTO address_audit_log (id, person_id, address, action, admin_id, timestamp, details)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO NOTHING
	`
	_, err := s.execer(ctx).ExecContext(ctx, query,
		entry.ID,
		entry.PersonID,
		entry.Address,
		string(entry.Action),
		entry.AdminID,
		entry.Timestamp,
		entry.Details,
	)
	if err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListByPerson(ctx context.Context, personID int64) ([]Entry, error) {
	query := `
		SELECT id, person_id, address, action, admin_id, timestamp, details
		FROM address_audit_log
		WHERE person_id = $1
		ORDER BY timestamp DESC
	`
	rows, err := s.execer(ctx).QueryContext(ctx, query, personID)
	if err != nil {
		return nil, fmt.Errorf("query audit entries: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			entry  Entry
			action string
		)
		if err := rows.Scan(&entry.ID, &entry.PersonID, &entry.Address, &action,
			&entry.AdminID, &entry.Timestamp, &entry.Details); err != nil {
			return nil, fmt.Errorf("scan audit entry: %w", err)
		}
		entry.Action = Action(action)
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit entries: %w", err)
	}
	return entries, nil
}

func (s *PostgresStore) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := s.execer(ctx).ExecContext(ctx,
		`DELETE FROM address_audit_log WHERE timestamp < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("delete expired audit entries: %w", err)
	}
	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("count deleted audit entries: %w", err)
	}
	return deleted, nil
}
