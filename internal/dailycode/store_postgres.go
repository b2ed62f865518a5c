package dailycode

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"checkpoint/pkg/platform/sentinel"
	txcontext "checkpoint/pkg/platform/tx"
)

// PostgresStore persists daily codes in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *PostgresStore) execer(ctx context.Context) dbExecutor {
	if dbtx, ok := txcontext.From(ctx); ok {
		return dbtx
	}
	return s.db
}

func (s *PostgresStore) Create(ctx context.Context, code DailyCode) error {
	query := `
		INSERT INTO daily_codes (person_id, code_value, valid_date, usage_count)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT DO NOTHING
	`
	res, err := s.execer(ctx).ExecContext(ctx, query,
		code.PersonID,
		code.CodeValue,
		DateOf(code.ValidDate),
		code.UsageCount,
	)
	if err != nil {
		return fmt.Errorf("insert daily code: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("insert daily code: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrConflict
	}
	return nil
}

func (s *PostgresStore) GetByPersonAndDate(ctx context.Context, personID int64, date time.Time) (*DailyCode, error) {
	query := `
		SELECT person_id, code_value, valid_date, usage_count
		FROM daily_codes
		WHERE person_id = $1 AND valid_date = $2
	`
	return s.scanOne(s.execer(ctx).QueryRowContext(ctx, query, personID, DateOf(date)))
}

func (s *PostgresStore) GetByValue(ctx context.Context, codeValue string) (*DailyCode, error) {
	query := `
		SELECT person_id, code_value, valid_date, usage_count
		FROM daily_codes
		WHERE code_value = $1
	`
	return s.scanOne(s.execer(ctx).QueryRowContext(ctx, query, codeValue))
}

func (s *PostgresStore) GetByValueForUpdate(ctx context.Context, codeValue string) (*DailyCode, error) {
	query := `
		SELECT person_id, code_value, valid_date, usage_count
		FROM daily_codes
		WHERE code_value = $1
		FOR UPDATE
	`
	return s.scanOne(s.execer(ctx).QueryRowContext(ctx, query, codeValue))
}

func (s *PostgresStore) IncrementUsage(ctx context.Context, codeValue string) (int, error) {
	query := `
		UPDATE daily_codes
		SET usage_count = usage_count + 1
		WHERE code_value = $1 AND usage_count < $2
		RETURNING usage_count
	`
	var count int
	err := s.execer(ctx).QueryRowContext(ctx, query, codeValue, MaxUsagePerDay).Scan(&count)
	if err == nil {
		return count, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("increment usage: %w", err)
	}
	// Zero rows means either the code does not exist or the cap is reached.
	existing, lookupErr := s.GetByValue(ctx, codeValue)
	if lookupErr != nil {
		return 0, sentinel.ErrNotFound
	}
	return existing.UsageCount, sentinel.ErrExhausted
}

func (s *PostgresStore) scanOne(row *sql.Row) (*DailyCode, error) {
	var code DailyCode
	err := row.Scan(&code.PersonID, &code.CodeValue, &code.ValidDate, &code.UsageCount)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan daily code: %w", err)
	}
	code.ValidDate = DateOf(code.ValidDate)
	return &code, nil
}
