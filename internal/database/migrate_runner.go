package database

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"lattice/internal/middleware"

	"github.com/samber/lo"
	"gorm.io/gorm"
)

// MigrationRecord marks one applied migration.
type MigrationRecord struct {
	Version   int       `gorm:"primaryKey;autoIncrement:false"`
	Name      string    `gorm:"size:255;not null"`
	AppliedAt time.Time `gorm:"autoCreateTime;index"`
}

func (MigrationRecord) TableName() string {
	return "schema_migrations"
}

// migrator applies a fixed, ordered migration set against one database.
type migrator struct {
	db         *gorm.DB
	migrations []Migration
}

func newMigrator(db *gorm.DB, migrations []Migration) *migrator {
	return &migrator{db: db, migrations: migrations}
}

// embeddedMigrator uses the scripts shipped in migrations/.
func embeddedMigrator(db *gorm.DB) (*migrator, error) {
	all, err := embeddedMigrations()
	if err != nil {
		return nil, err
	}
	return newMigrator(db, all), nil
}

func (m *migrator) ensureLogTable(ctx context.Context) error {
	if err := m.db.WithContext(ctx).AutoMigrate(&MigrationRecord{}); err != nil {
		return fmt.Errorf("ensure schema_migrations: %w", err)
	}
	return nil
}

// applied lists recorded versions. A database that was never migrated has none.
func (m *migrator) applied(ctx context.Context) ([]int, error) {
	db := m.db.WithContext(ctx)
	if !db.Migrator().HasTable(&MigrationRecord{}) {
		return nil, nil
	}
	var versions []int
	if err := db.Model(&MigrationRecord{}).Order("version ASC").Pluck("version", &versions).Error; err != nil {
		return nil, fmt.Errorf("list applied migrations: %w", err)
	}
	return versions, nil
}

// pending returns the migrations not yet recorded, in version order.
func (m *migrator) pending(ctx context.Context) ([]Migration, error) {
	applied, err := m.applied(ctx)
	if err != nil {
		return nil, err
	}
	done := lo.SliceToMap(applied, func(v int) (int, struct{}) { return v, struct{}{} })
	return lo.Filter(m.migrations, func(mg Migration, _ int) bool {
		_, ok := done[mg.Version]
		return !ok
	}), nil
}

// Up applies every pending migration. Each script and its record commit together.
func (m *migrator) Up(ctx context.Context) (int, error) {
	if err := m.ensureLogTable(ctx); err != nil {
		return 0, err
	}
	applied, err := m.applied(ctx)
	if err != nil {
		return 0, err
	}
	if err := validateAppliedVersions(applied, m.migrations); err != nil {
		return 0, err
	}
	todo, err := m.pending(ctx)
	if err != nil {
		return 0, err
	}

	for _, mg := range todo {
		middleware.Logger.Info("Applying migration", slog.String("migration", mg.String()))
		err := m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if err := tx.Exec(mg.UpScript).Error; err != nil {
				return err
			}
			return tx.Create(&MigrationRecord{Version: mg.Version, Name: mg.Name}).Error
		})
		if err != nil {
			return 0, fmt.Errorf("apply migration %s: %w", mg, err)
		}
	}
	return len(todo), nil
}

// Down reverts one applied migration.
func (m *migrator) Down(ctx context.Context, version int) error {
	mg, ok := lo.Find(m.migrations, func(mg Migration) bool { return mg.Version == version })
	if !ok {
		return fmt.Errorf("migration version %d not found", version)
	}
	applied, err := m.applied(ctx)
	if err != nil {
		return err
	}
	if !lo.Contains(applied, version) {
		return fmt.Errorf("migration %s has not been applied", mg)
	}

	middleware.Logger.Info("Rolling back migration", slog.String("migration", mg.String()))
	return m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec(mg.DownScript).Error; err != nil {
			return fmt.Errorf("rollback %s: %w", mg, err)
		}
		return tx.Where("version = ?", version).Delete(&MigrationRecord{}).Error
	})
}

// validateAppliedVersions refuses a database that ran migrations this binary
// does not know about.
func validateAppliedVersions(applied []int, registered []Migration) error {
	known := lo.SliceToMap(registered, func(m Migration) (int, struct{}) { return m.Version, struct{}{} })
	unknown := lo.Filter(applied, func(v int, _ int) bool {
		_, ok := known[v]
		return !ok
	})
	if len(unknown) == 0 {
		return nil
	}

	sort.Ints(unknown)
	labels := lo.Map(unknown, func(v int, _ int) string { return fmt.Sprintf("%06d", v) })
	return fmt.Errorf("schema_migrations has versions this build does not ship: %s", strings.Join(labels, ", "))
}

// RunMigrations applies all pending embedded migrations.
func RunMigrations(ctx context.Context, db *gorm.DB) error {
	m, err := embeddedMigrator(db)
	if err != nil {
		return err
	}
	n, err := m.Up(ctx)
	if err != nil {
		return err
	}
	middleware.Logger.Info("SQL migrations complete", slog.Int("applied", n))
	return nil
}

// RollbackMigration reverts one embedded migration by version.
func RollbackMigration(ctx context.Context, db *gorm.DB, version int) error {
	m, err := embeddedMigrator(db)
	if err != nil {
		return err
	}
	return m.Down(ctx, version)
}
