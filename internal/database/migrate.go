package database

import (
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/samber/lo"
)

// Migration is one versioned pair of SQL scripts.
type Migration struct {
	Version    int
	Name       string
	UpScript   string
	DownScript string
}

func (m Migration) String() string {
	return fmt.Sprintf("%06d_%s", m.Version, m.Name)
}

//go:embed migrations/*.sql
var migrationFS embed.FS

var (
	embeddedOnce sync.Once
	embedded     []Migration
	embeddedErr  error
)

// embeddedMigrations parses the scripts compiled into the binary once.
func embeddedMigrations() ([]Migration, error) {
	embeddedOnce.Do(func() {
		embedded, embeddedErr = LoadMigrations(migrationFS, "migrations")
	})
	return embedded, embeddedErr
}

// GetMigrations returns the embedded migrations in version order, or nil if
// the embedded set is malformed.
func GetMigrations() []Migration {
	all, err := embeddedMigrations()
	if err != nil {
		return nil
	}
	return all
}

// GetMigrationByVersion looks up an embedded migration.
func GetMigrationByVersion(version int) *Migration {
	m, ok := lo.Find(GetMigrations(), func(m Migration) bool { return m.Version == version })
	if !ok {
		return nil
	}
	return &m
}

// LoadMigrations reads NNNNNN_name.up.sql / NNNNNN_name.down.sql pairs from
// dir. Every up script needs a down script and versions must be unique.
func LoadMigrations(fsys fs.FS, dir string) ([]Migration, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("read migrations dir %s: %w", dir, err)
	}

	byVersion := make(map[int]Migration)
	for _, entry := range entries {
		file := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(file, ".up.sql") {
			continue
		}

		version, name, err := parseMigrationName(strings.TrimSuffix(file, ".up.sql"))
		if err != nil {
			return nil, fmt.Errorf("migration %s: %w", file, err)
		}
		if prev, dup := byVersion[version]; dup {
			return nil, fmt.Errorf("migration version %06d used by both %s and %s", version, prev.Name, name)
		}

		up, err := fs.ReadFile(fsys, path.Join(dir, file))
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", file, err)
		}
		downFile := strings.TrimSuffix(file, ".up.sql") + ".down.sql"
		down, err := fs.ReadFile(fsys, path.Join(dir, downFile))
		if err != nil {
			return nil, fmt.Errorf("migration %s has no %s: %w", file, downFile, err)
		}

		byVersion[version] = Migration{
			Version:    version,
			Name:       name,
			UpScript:   string(up),
			DownScript: string(down),
		}
	}

	out := lo.Values(byVersion)
	sort.Slice(out, func(i, j int) bool { return out[i].Version < out[j].Version })
	return out, nil
}

func parseMigrationName(base string) (int, string, error) {
	prefix, name, ok := strings.Cut(base, "_")
	if !ok || name == "" {
		return 0, "", fmt.Errorf("expected NNNNNN_name")
	}
	version, err := strconv.Atoi(prefix)
	if err != nil || version <= 0 {
		return 0, "", fmt.Errorf("invalid version prefix %q", prefix)
	}
	return version, name, nil
}
