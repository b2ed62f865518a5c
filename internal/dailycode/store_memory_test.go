package dailycode

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"checkpoint/pkg/platform/sentinel"
)

func TestMemoryStoreCreateConflicts(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	day := time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)

	require.NoError(t, store.Create(ctx, DailyCode{PersonID: 1, CodeValue: "abc", ValidDate: day}))

	err := store.Create(ctx, DailyCode{PersonID: 1, CodeValue: "other", ValidDate: day})
	assert.ErrorIs(t, err, sentinel.ErrConflict, "second code for the same person and day")

	err = store.Create(ctx, DailyCode{PersonID: 2, CodeValue: "abc", ValidDate: day})
	assert.ErrorIs(t, err, sentinel.ErrConflict, "duplicate code value")

	require.NoError(t, store.Create(ctx, DailyCode{PersonID: 1, CodeValue: "next", ValidDate: day.AddDate(0, 0, 1)}))
}

func TestMemoryStoreDateNormalization(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	noon := time.Date(2026, 3, 14, 12, 45, 0, 0, time.UTC)

	require.NoError(t, store.Create(ctx, DailyCode{PersonID: 3, CodeValue: "xyz", ValidDate: noon}))

	code, err := store.GetByPersonAndDate(ctx, 3, noon.Add(5*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC), code.ValidDate)
}
