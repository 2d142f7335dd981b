package database

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"lattice/internal/config"
	"lattice/internal/middleware"

	"gorm.io/gorm"
)

// DB_SCHEMA_MODE values.
const (
	SchemaModeHybrid = "hybrid"
	SchemaModeSQL    = "sql"
	SchemaModeAuto   = "auto"
)

// SchemaStatus describes what ApplySchema would do and what is outstanding.
type SchemaStatus struct {
	Mode               string
	Environment        string
	WillRunSQL         bool
	WillRunAutoMigrate bool
	AppliedVersions    []int
	PendingMigrations  []Migration
}

func schemaMode(cfg *config.Config) string {
	if mode := strings.ToLower(strings.TrimSpace(cfg.DBSchemaMode)); mode != "" {
		return mode
	}
	return SchemaModeHybrid
}

func isProdLikeEnv(env string) bool {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "production", "prod", "staging", "stage":
		return true
	}
	return false
}

// schemaPolicy decides which schema steps run. Hybrid runs SQL everywhere and
// adds AutoMigrate outside production. Auto alone is refused in production
// unless DB_AUTOMIGRATE_ALLOW_DESTRUCTIVE is set.
func schemaPolicy(cfg *config.Config) (runSQL, runAuto bool, err error) {
	prod := isProdLikeEnv(cfg.Env)
	switch mode := schemaMode(cfg); mode {
	case SchemaModeSQL:
		return true, false, nil
	case SchemaModeHybrid:
		return true, !prod, nil
	case SchemaModeAuto:
		if prod && !cfg.DBAutoMigrateAllowDestructive {
			return false, false, fmt.Errorf("DB_SCHEMA_MODE=auto in %q needs DB_AUTOMIGRATE_ALLOW_DESTRUCTIVE=true", cfg.Env)
		}
		return false, true, nil
	default:
		return false, false, fmt.Errorf("unsupported DB_SCHEMA_MODE %q", mode)
	}
}

func runAutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(PersistentModels()...)
}

// ApplySchema brings the database up to date under cfg's schema mode.
func ApplySchema(ctx context.Context, db *gorm.DB, cfg *config.Config) error {
	runSQL, runAuto, err := schemaPolicy(cfg)
	if err != nil {
		return err
	}

	if runSQL {
		if err := RunMigrations(ctx, db); err != nil {
			return fmt.Errorf("sql migrations: %w", err)
		}
	}
	if !runAuto {
		return nil
	}

	if isProdLikeEnv(cfg.Env) {
		middleware.Logger.Warn("AutoMigrate enabled in a production environment")
	}
	middleware.Logger.Info("Running AutoMigrate", slog.String("mode", schemaMode(cfg)), slog.String("env", cfg.Env))
	if err := runAutoMigrate(db.WithContext(ctx)); err != nil {
		return fmt.Errorf("auto-migrate: %w", err)
	}
	return nil
}

// GetSchemaStatus reports the policy for cfg and, when SQL migrations are in
// play, which of them are applied and pending.
func GetSchemaStatus(ctx context.Context, db *gorm.DB, cfg *config.Config) (*SchemaStatus, error) {
	runSQL, runAuto, err := schemaPolicy(cfg)
	if err != nil {
		return nil, err
	}
	status := &SchemaStatus{
		Mode:               schemaMode(cfg),
		Environment:        cfg.Env,
		WillRunSQL:         runSQL,
		WillRunAutoMigrate: runAuto,
	}
	if !runSQL {
		return status, nil
	}

	m, err := embeddedMigrator(db)
	if err != nil {
		return nil, err
	}
	if status.AppliedVersions, err = m.applied(ctx); err != nil {
		return nil, err
	}
	if status.PendingMigrations, err = m.pending(ctx); err != nil {
		return nil, err
	}
	return status, nil
}
