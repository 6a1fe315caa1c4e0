package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/vellumcms/vellum-backend/internal/platform/logger"
	"github.com/vellumcms/vellum-backend/internal/types"
)

// LiveCache keeps published snapshots hot in redis so live reads skip the
// database. Presence in the cache is only an accelerator; the live table
// stays the source of truth.
type LiveCache struct {
	log *logger.Logger
	rdb *goredis.Client
	ttl time.Duration
}

func NewLiveCache(log *logger.Logger) (*LiveCache, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}

	addr := strings.TrimSpace(os.Getenv("REDIS_ADDR"))
	if addr == "" {
		return nil, fmt.Errorf("missing REDIS_ADDR")
	}

	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &LiveCache{
		log: log.With("service", "RedisLiveCache"),
		rdb: rdb,
		ttl: time.Hour,
	}, nil
}

func liveKey(recordType string, id uuid.UUID) string {
	return "vellum:live:" + recordType + ":" + id.String()
}

func (c *LiveCache) Set(ctx context.Context, row *types.LiveRecord) error {
	payload, err := json.Marshal(row.Fields)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, liveKey(row.Type, row.ID), payload, c.ttl).Err()
}

func (c *LiveCache) Get(ctx context.Context, recordType string, id uuid.UUID) (types.Fields, bool, error) {
	payload, err := c.rdb.Get(ctx, liveKey(recordType, id)).Bytes()
	if err == goredis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	fields := types.Fields{}
	if err := json.Unmarshal(payload, &fields); err != nil {
		return nil, false, err
	}
	return fields, true, nil
}

func (c *LiveCache) Invalidate(ctx context.Context, recordType string, id uuid.UUID) error {
	return c.rdb.Del(ctx, liveKey(recordType, id)).Err()
}

func (c *LiveCache) Close() error {
	return c.rdb.Close()
}
