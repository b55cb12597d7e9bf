// Package bootstrap wires the database and Redis for the commands.
package bootstrap

import (
	"context"
	"fmt"
	"time"

	"warbler/internal/cache"
	"warbler/internal/config"
	"warbler/internal/database"
	"warbler/internal/middleware"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Options control runtime initialization behavior.
type Options struct {
	// ApplySchema runs database.ApplySchema after connecting.
	ApplySchema bool
	// SkipRedis leaves the returned client nil.
	SkipRedis bool
	// Metrics receives Redis error counts; nil disables counting.
	Metrics *middleware.Metrics
}

// InitRuntime connects to the database and Redis. A nil Redis client means
// Redis was unreachable or skipped and callers must fall back accordingly.
func InitRuntime(cfg *config.Config, opts Options) (*gorm.DB, *redis.Client, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("database connection failed: %w", err)
	}

	if opts.ApplySchema {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		if err := database.ApplySchema(ctx, db, cfg); err != nil {
			_ = database.Close(db)
			return nil, nil, fmt.Errorf("apply schema: %w", err)
		}
	}

	var rdb *redis.Client
	if !opts.SkipRedis {
		rdb = cache.InitRedis(cfg.RedisURL, opts.Metrics)
	}
	return db, rdb, nil
}
