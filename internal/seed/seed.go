// Package seed loads demo users, follows, posts and comments for development
// and tests.
package seed

import (
	"context"
	"fmt"
	"log/slog"

	"lattice/internal/middleware"
	"lattice/internal/models"

	"gorm.io/gorm"
)

// DefaultPassword is used for every seeded account without an explicit password.
const DefaultPassword = "password123"

// Options configuration for the seeder
type Options struct {
	// FastHash hashes passwords at bcrypt.MinCost.
	FastHash bool
	// MaxDays bounds how far back generated posts are dated.
	MaxDays int
	// BatchSize is the insert chunk size for posts and comments.
	BatchSize int
	// RandSeed makes generated meshes reproducible when non-zero.
	RandSeed int64
}

// Result summarizes what a seeding run wrote.
type Result struct {
	Users    []models.User
	Follows  int
	Posts    int
	Comments int
}

// Seeder replaces the social graph with fixture or generated content.
type Seeder struct {
	db   *gorm.DB
	opts Options
}

// NewSeeder creates a Seeder bound to db.
func NewSeeder(db *gorm.DB, opts Options) *Seeder {
	if opts.BatchSize <= 0 {
		opts.BatchSize = 100
	}
	if opts.MaxDays <= 0 {
		opts.MaxDays = 30
	}
	return &Seeder{db: db, opts: opts}
}

// ApplyFixture deletes every existing user together with their follows, posts
// and comments, then inserts the fixture. Both steps share one transaction.
func (s *Seeder) ApplyFixture(ctx context.Context, fx *Fixture) (*Result, error) {
	if err := fx.Validate(); err != nil {
		return nil, err
	}

	var result *Result
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := clearGraph(tx); err != nil {
			return err
		}
		r, err := newFixtureWriter(NewFactory(tx, s.opts)).write(fx)
		if err != nil {
			return err
		}
		result = r
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("apply fixture: %w", err)
	}

	logResult(ctx, "fixture", result)
	return result, nil
}

// SeedSocialMesh replaces all users with numUsers generated accounts, a random
// follow graph and postsPerUser posts each, in one transaction.
func (s *Seeder) SeedSocialMesh(ctx context.Context, numUsers, postsPerUser int) (*Result, error) {
	if numUsers < 2 {
		return nil, fmt.Errorf("social mesh needs at least 2 users, got %d", numUsers)
	}
	if postsPerUser < 0 {
		return nil, fmt.Errorf("posts per user must not be negative")
	}

	var result *Result
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := clearGraph(tx); err != nil {
			return err
		}
		r, err := newMeshBuilder(NewFactory(tx, s.opts)).build(numUsers, postsPerUser)
		if err != nil {
			return err
		}
		result = r
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("seed social mesh: %w", err)
	}

	logResult(ctx, "mesh", result)
	return result, nil
}

// clearGraph hard-deletes content children first so it also works where
// foreign keys do not cascade.
func clearGraph(tx *gorm.DB) error {
	for _, model := range []any{&models.Comment{}, &models.Post{}, &models.Follow{}, &models.User{}} {
		if err := tx.Unscoped().Where("1 = 1").Delete(model).Error; err != nil {
			return fmt.Errorf("clear %T: %w", model, err)
		}
	}
	return nil
}

func logResult(ctx context.Context, source string, r *Result) {
	middleware.Logger.InfoContext(ctx, "database seeded",
		slog.String("source", source),
		slog.Int("users", len(r.Users)),
		slog.Int("follows", r.Follows),
		slog.Int("posts", r.Posts),
		slog.Int("comments", r.Comments),
	)
}
