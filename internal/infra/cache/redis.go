package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/bryanwahyu/docimpact/internal/domain/analysis"
	"github.com/bryanwahyu/docimpact/internal/logger"
)

const defaultTTL = 24 * time.Hour

// ResultCache keeps completed analysis results in Redis. Results never change
// once written, so entries only expire by TTL.
type ResultCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewResultCache(ctx context.Context, addr, password string, db int, ttl time.Duration) (*ResultCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	if ttl <= 0 {
		ttl = defaultTTL
	}

	logger.Info("Redis result cache initialized", zap.String("addr", addr), zap.Duration("ttl", ttl))
	return &ResultCache{client: client, ttl: ttl}, nil
}

func Key(documentID int64) string {
	return fmt.Sprintf("analysis:result:%d", documentID)
}

func (c *ResultCache) Get(ctx context.Context, documentID int64) (*analysis.Result, bool, error) {
	data, err := c.client.Get(ctx, Key(documentID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to get result cache: %w", err)
	}

	var r analysis.Result
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, false, fmt.Errorf("failed to unmarshal cached result: %w", err)
	}
	logger.Debug("Result cache hit", zap.Int64("document_id", documentID))
	return &r, true, nil
}

func (c *ResultCache) Set(ctx context.Context, r *analysis.Result) error {
	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("failed to marshal result: %w", err)
	}
	if err := c.client.Set(ctx, Key(r.DocumentID), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set result cache: %w", err)
	}
	return nil
}

// Check implements middleware.HealthChecker.
func (c *ResultCache) Check(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *ResultCache) Close() error {
	return c.client.Close()
}
