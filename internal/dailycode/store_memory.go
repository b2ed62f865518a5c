package dailycode

import (
	"context"
	"fmt"
	"sync"
	"time"

	"checkpoint/pkg/platform/sentinel"
)

// MemoryStore keeps daily codes in process memory. Used by unit tests and
// dev mode; the mutex gives it the same conditional-increment semantics as
// the SQL store.
type MemoryStore struct {
	mu       sync.RWMutex
	byValue  map[string]*DailyCode
	byPerson map[string]*DailyCode
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byValue:  make(map[string]*DailyCode),
		byPerson: make(map[string]*DailyCode),
	}
}

func personDateKey(personID int64, date time.Time) string {
	return fmt.Sprintf("%d|%s", personID, DateOf(date).Format("2006-01-02"))
}

func (s *MemoryStore) Create(_ context.Context, code DailyCode) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := personDateKey(code.PersonID, code.ValidDate)
	if _, exists := s.byPerson[key]; exists {
		return sentinel.ErrConflict
	}
	if _, exists := s.byValue[code.CodeValue]; exists {
		return sentinel.ErrConflict
	}
	stored := code
	stored.ValidDate = DateOf(code.ValidDate)
	s.byPerson[key] = &stored
	s.byValue[stored.CodeValue] = &stored
	return nil
}

func (s *MemoryStore) GetByPersonAndDate(_ context.Context, personID int64, date time.Time) (*DailyCode, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	code, ok := s.byPerson[personDateKey(personID, date)]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	copied := *code
	return &copied, nil
}

func (s *MemoryStore) GetByValue(_ context.Context, codeValue string) (*DailyCode, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	code, ok := s.byValue[codeValue]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	copied := *code
	return &copied, nil
}

func (s *MemoryStore) GetByValueForUpdate(ctx context.Context, codeValue string) (*DailyCode, error) {
	return s.GetByValue(ctx, codeValue)
}

func (s *MemoryStore) IncrementUsage(_ context.Context, codeValue string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	code, ok := s.byValue[codeValue]
	if !ok {
		return 0, sentinel.ErrNotFound
	}
	if code.UsageCount >= MaxUsagePerDay {
		return code.UsageCount, sentinel.ErrExhausted
	}
	code.UsageCount++
	return code.UsageCount, nil
}
