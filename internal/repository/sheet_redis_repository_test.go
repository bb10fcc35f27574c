package repository

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	appErrors "github.com/noah-isme/gradesheet/pkg/errors"
)

func newRedisSheetRepositoryForTest(t *testing.T, ttl time.Duration) (*RedisSheetRepository, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	repo := NewRedisSheetRepository(client, ttl, zap.NewNop())
	t.Cleanup(func() { _ = repo.Close() })
	return repo, mr
}

func TestRedisSheetRepositoryRoundTrip(t *testing.T) {
	repo, mr := newRedisSheetRepositoryForTest(t, 2*time.Hour)
	ctx := context.Background()
	updated := time.Date(2026, 10, 18, 8, 0, 0, 0, time.UTC)

	require.NoError(t, repo.Save(ctx, sampleSnapshot("s1", updated)))
	assert.True(t, mr.Exists(SheetKey("s1")))
	assert.Equal(t, 2*time.Hour, mr.TTL(SheetKey("s1")))

	got, err := repo.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "s1", got.ID)
	assert.Equal(t, "Matemática", got.Rows[0].Subject)
	assert.Equal(t, "7", got.Slots["average"])
	assert.True(t, updated.Equal(got.UpdatedAt))

	require.NoError(t, repo.Save(ctx, sampleSnapshot("s2", updated)))
	require.NoError(t, mr.Set("other:key", "x"))
	n, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	require.NoError(t, repo.Delete(ctx, "s1"))
	assert.ErrorIs(t, repo.Delete(ctx, "s1"), appErrors.ErrSheetNotFound)
	_, err = repo.Get(ctx, "s1")
	assert.ErrorIs(t, err, appErrors.ErrSheetNotFound)
}

func TestRedisSheetRepositoryExpiry(t *testing.T) {
	repo, mr := newRedisSheetRepositoryForTest(t, time.Minute)
	ctx := context.Background()
	require.NoError(t, repo.Save(ctx, sampleSnapshot("s1", time.Now())))

	mr.FastForward(2 * time.Minute)

	_, err := repo.Get(ctx, "s1")
	assert.ErrorIs(t, err, appErrors.ErrSheetNotFound)
}

func TestRedisSheetRepositoryCorruptPayload(t *testing.T) {
	repo, mr := newRedisSheetRepositoryForTest(t, time.Minute)
	require.NoError(t, mr.Set(SheetKey("bad"), "{not json"))

	_, err := repo.Get(context.Background(), "bad")
	require.Error(t, err)
	assert.NotErrorIs(t, err, appErrors.ErrSheetNotFound)
}

func TestRedisSheetRepositoryUnavailable(t *testing.T) {
	repo, mr := newRedisSheetRepositoryForTest(t, time.Minute)
	mr.Close()

	err := repo.Save(context.Background(), sampleSnapshot("s1", time.Now()))
	assert.Error(t, err)
}
