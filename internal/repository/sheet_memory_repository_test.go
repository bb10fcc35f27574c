package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/gradesheet/internal/models"
	appErrors "github.com/noah-isme/gradesheet/pkg/errors"
)

func sampleSnapshot(id string, updated time.Time) *models.SheetSnapshot {
	return &models.SheetSnapshot{
		ID:        id,
		Rows:      []models.SheetRow{{ID: "r1", Subject: "Matemática", GradeText: "7"}},
		Slots:     map[string]string{"average": "7"},
		CreatedAt: updated,
		UpdatedAt: updated,
	}
}

func TestMemorySheetRepositoryRoundTrip(t *testing.T) {
	repo := NewMemorySheetRepository(time.Hour)
	ctx := context.Background()
	snap := sampleSnapshot("s1", time.Now())

	require.NoError(t, repo.Save(ctx, snap))
	snap.Rows[0].GradeText = "changed"
	snap.Slots["average"] = "changed"

	got, err := repo.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "7", got.Rows[0].GradeText)
	assert.Equal(t, "7", got.Slots["average"])

	got.Rows[0].GradeText = "mutated"
	again, err := repo.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "7", again.Rows[0].GradeText)

	n, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	require.NoError(t, repo.Delete(ctx, "s1"))
	_, err = repo.Get(ctx, "s1")
	assert.ErrorIs(t, err, appErrors.ErrSheetNotFound)
	assert.ErrorIs(t, repo.Delete(ctx, "s1"), appErrors.ErrSheetNotFound)
}

func TestMemorySheetRepositoryExpiry(t *testing.T) {
	repo := NewMemorySheetRepository(time.Hour)
	base := time.Date(2026, 10, 18, 8, 0, 0, 0, time.UTC)
	repo.now = func() time.Time { return base }
	ctx := context.Background()

	require.NoError(t, repo.Save(ctx, sampleSnapshot("old", base.Add(-2*time.Hour))))
	require.NoError(t, repo.Save(ctx, sampleSnapshot("fresh", base.Add(-time.Minute))))

	n, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, err = repo.Get(ctx, "old")
	assert.ErrorIs(t, err, appErrors.ErrSheetNotFound)
	_, err = repo.Get(ctx, "fresh")
	assert.NoError(t, err)
}

func TestMemorySheetRepositoryGetRechecksExpiryUnderWriteLock(t *testing.T) {
	repo := NewMemorySheetRepository(time.Hour)
	base := time.Date(2026, 10, 18, 8, 0, 0, 0, time.UTC)
	ctx := context.Background()
	require.NoError(t, repo.Save(ctx, sampleSnapshot("s1", base.Add(-time.Minute))))

	// The first check sees the sheet as stale; by the time the write lock is
	// held it is fresh again, as after a concurrent Save.
	clock := []time.Time{base.Add(2 * time.Hour), base}
	repo.now = func() time.Time {
		now := clock[0]
		if len(clock) > 1 {
			clock = clock[1:]
		}
		return now
	}

	got, err := repo.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "s1", got.ID)
	assert.Contains(t, repo.sheets, "s1")
}

func TestMemorySheetRepositoryPurge(t *testing.T) {
	repo := NewMemorySheetRepository(time.Hour)
	base := time.Date(2026, 10, 18, 8, 0, 0, 0, time.UTC)
	repo.now = func() time.Time { return base }
	ctx := context.Background()
	require.NoError(t, repo.Save(ctx, sampleSnapshot("a", base.Add(-3*time.Hour))))
	require.NoError(t, repo.Save(ctx, sampleSnapshot("b", base.Add(-90*time.Minute))))
	require.NoError(t, repo.Save(ctx, sampleSnapshot("c", base)))

	removed, err := repo.Purge(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, removed)
	assert.Len(t, repo.sheets, 1)
}

func TestMemorySheetRepositoryNoTTL(t *testing.T) {
	repo := NewMemorySheetRepository(0)
	ctx := context.Background()
	require.NoError(t, repo.Save(ctx, sampleSnapshot("s", time.Unix(0, 0))))

	_, err := repo.Get(ctx, "s")
	assert.NoError(t, err)
}
