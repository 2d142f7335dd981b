// Package bootstrap wires the process-wide runtime: database, Redis and
// optional demo data.
package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"lattice/internal/cache"
	"lattice/internal/config"
	"lattice/internal/database"
	"lattice/internal/middleware"
	"lattice/internal/models"
	"lattice/internal/seed"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

const redisPingTimeout = 5 * time.Second

// Options control runtime initialization behavior.
type Options struct {
	// SeedDemo loads the bundled demo fixture into an empty development database.
	SeedDemo bool
}

// InitRuntime connects to DB and Redis and optionally seeds demo data.
// The Redis client is nil when Redis is unreachable.
func InitRuntime(cfg *config.Config, opts Options) (*gorm.DB, *redis.Client, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("database connection failed: %w", err)
	}

	r := cache.Connect(context.Background(), cfg.RedisURL, redisPingTimeout)

	if opts.SeedDemo {
		if err := ensureDemoData(context.Background(), cfg, db); err != nil {
			return nil, nil, fmt.Errorf("failed to seed demo data: %w", err)
		}
	}

	return db, r, nil
}

// ensureDemoData seeds only development databases that have no users yet.
func ensureDemoData(ctx context.Context, cfg *config.Config, db *gorm.DB) error {
	if cfg == nil || db == nil || cfg.Env != "development" {
		return nil
	}

	var users int64
	if err := db.WithContext(ctx).Model(&models.User{}).Count(&users).Error; err != nil {
		return fmt.Errorf("count users: %w", err)
	}
	if users > 0 {
		middleware.Logger.Info("demo seed skipped, users already present", slog.Int64("users", users))
		return nil
	}

	fx, err := seed.DemoFixture()
	if err != nil {
		return err
	}
	_, err = seed.NewSeeder(db, seed.Options{}).ApplyFixture(ctx, fx)
	return err
}
