package attendance

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
)

// AssignmentSource reads a person's raw assigned-address list. The list lives
// on the person record, which is owned outside this system; an empty string
// means no constraint.
type AssignmentSource interface {
	AssignedAddresses(ctx context.Context, personID int64) (string, error)
}

// MemoryAssignments serves assignments from a map. Used in tests and dev mode.
type MemoryAssignments struct {
	mu       sync.RWMutex
	byPerson map[int64]string
}

func NewMemoryAssignments() *MemoryAssignments {
	return &MemoryAssignments{byPerson: make(map[int64]string)}
}

func (m *MemoryAssignments) Set(personID int64, raw string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byPerson[personID] = raw
}

func (m *MemoryAssignments) AssignedAddresses(_ context.Context, personID int64) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.byPerson[personID], nil
}

// PostgresAssignments reads the assignment column maintained by the person
// administration system. Missing rows read as no constraint.
type PostgresAssignments struct {
	db *sql.DB
}

func NewPostgresAssignments(db *sql.DB) *PostgresAssignments {
	return &PostgresAssignments{db: db}
}

func (p *PostgresAssignments) AssignedAddresses(ctx context.Context, personID int64) (string, error) {
	var raw sql.NullString
	query := `SELECT assigned_addresses FROM person_assignments WHERE person_id = $1`
	err := p.db.QueryRowContext(ctx, query, personID).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("load assigned addresses: %w", err)
	}
	return raw.String, nil
}
