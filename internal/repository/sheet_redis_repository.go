package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/noah-isme/gradesheet/internal/models"
	appErrors "github.com/noah-isme/gradesheet/pkg/errors"
)

const sheetKeyPrefix = "gradesheet:sheet:"

// RedisSheetRepository stores sheet snapshots as JSON values with a sliding TTL.
type RedisSheetRepository struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewRedisSheetRepository constructs a Redis-backed sheet repository.
func NewRedisSheetRepository(client *redis.Client, ttl time.Duration, logger *zap.Logger) *RedisSheetRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisSheetRepository{client: client, ttl: ttl, logger: logger}
}

// SheetKey returns the Redis key holding a sheet.
func SheetKey(id string) string {
	return sheetKeyPrefix + id
}

// Get loads and decodes a snapshot.
func (r *RedisSheetRepository) Get(ctx context.Context, id string) (*models.SheetSnapshot, error) {
	raw, err := r.client.Get(ctx, SheetKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, appErrors.ErrSheetNotFound
		}
		return nil, fmt.Errorf("redis get %s: %w", SheetKey(id), err)
	}
	var snap models.SheetSnapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return nil, fmt.Errorf("unmarshal sheet %s: %w", id, err)
	}
	return &snap, nil
}

// Save encodes the snapshot and refreshes its TTL.
func (r *RedisSheetRepository) Save(ctx context.Context, snap *models.SheetSnapshot) error {
	payload, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal sheet %s: %w", snap.ID, err)
	}
	if err := r.client.Set(ctx, SheetKey(snap.ID), payload, r.ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", SheetKey(snap.ID), err)
	}
	return nil
}

// Delete removes a snapshot.
func (r *RedisSheetRepository) Delete(ctx context.Context, id string) error {
	removed, err := r.client.Del(ctx, SheetKey(id)).Result()
	if err != nil {
		return fmt.Errorf("redis delete %s: %w", SheetKey(id), err)
	}
	if removed == 0 {
		return appErrors.ErrSheetNotFound
	}
	return nil
}

// Count scans the sheet keyspace.
func (r *RedisSheetRepository) Count(ctx context.Context) (int, error) {
	n := 0
	iter := r.client.Scan(ctx, 0, sheetKeyPrefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		n++
	}
	if err := iter.Err(); err != nil {
		r.logger.Warn("sheet count scan failed", zap.Error(err))
		return 0, fmt.Errorf("redis scan %s*: %w", sheetKeyPrefix, err)
	}
	return n, nil
}

// Close releases the Redis connection.
func (r *RedisSheetRepository) Close() error {
	if r.client == nil {
		return nil
	}
	return r.client.Close()
}
