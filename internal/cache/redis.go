// Package cache keeps recently rendered overlay snapshots in Redis so
// the public overlay endpoint can absorb browser-source polling without
// hitting the database on every request. The cache is strictly
// optional; a nil *Overlay degrades to pass-through.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ytqm/ytqm/internal/models"
)

// DefaultTTL bounds overlay staleness between invalidations.
const DefaultTTL = 2 * time.Second

// Overlay caches room snapshots keyed by overlay token.
type Overlay struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewOverlay wraps an existing Redis client.
func NewOverlay(rdb *redis.Client, ttl time.Duration) *Overlay {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Overlay{rdb: rdb, ttl: ttl}
}

// Connect initializes a Redis client from environment variables:
//   - REDIS_ADDR (default "localhost:6379")
//   - REDIS_DB (optional, default 0)
func Connect(ctx context.Context) (*redis.Client, error) {
	addr := getEnv("REDIS_ADDR", "localhost:6379")
	dbIdx := getEnvInt("REDIS_DB", 0)

	rdb := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   dbIdx,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", addr, err)
	}
	return rdb, nil
}

func key(token string) string {
	return "ytqm:overlay:" + token
}

// Get returns the cached snapshot for the token, or nil on miss.
func (o *Overlay) Get(ctx context.Context, token string) (*models.Snapshot, error) {
	if o == nil {
		return nil, nil
	}
	data, err := o.rdb.Get(ctx, key(token)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var snap models.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}

// Set stores the snapshot under the token for the configured TTL.
func (o *Overlay) Set(ctx context.Context, token string, snap *models.Snapshot) error {
	if o == nil {
		return nil
	}
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}
	return o.rdb.Set(ctx, key(token), data, o.ttl).Err()
}

// Invalidate drops the cached snapshot after a committed change.
func (o *Overlay) Invalidate(ctx context.Context, token string) error {
	if o == nil {
		return nil
	}
	return o.rdb.Del(ctx, key(token)).Err()
}

// getEnv is a helper to read an environment variable or return a default value.
func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

// getEnvInt is a helper to parse an environment variable as integer, else a default value.
func getEnvInt(key string, def int) int {
	s := os.Getenv(key)
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}
