package database

import (
	"context"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisteredMigrations_OrderedAndPaired(t *testing.T) {
	all := GetMigrations()
	require.Len(t, all, 4)

	for i, m := range all {
		assert.Equal(t, i+1, m.Version)
		assert.NotEmpty(t, m.UpScript, m.String())
		assert.NotEmpty(t, m.DownScript, m.String())
	}
	assert.Equal(t, "000004_create_follows", all[3].String())
	assert.Contains(t, all[3].UpScript, "follower_id <> followee_id")
}

func TestGetMigrationByVersion(t *testing.T) {
	m := GetMigrationByVersion(2)
	require.NotNil(t, m)
	assert.Equal(t, "create_posts", m.Name)

	assert.Nil(t, GetMigrationByVersion(999))
}

func TestValidateAppliedVersions(t *testing.T) {
	registered := []Migration{{Version: 1}, {Version: 2}}

	assert.NoError(t, validateAppliedVersions(nil, registered))
	assert.NoError(t, validateAppliedVersions([]int{1, 2}, registered))

	err := validateAppliedVersions([]int{1, 7, 3}, registered)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "000003, 000007")
}

func sqliteMigrations() fstest.MapFS {
	return fstest.MapFS{
		"m/000001_create_widgets.up.sql":    {Data: []byte("CREATE TABLE widgets (id INTEGER PRIMARY KEY, name TEXT NOT NULL);")},
		"m/000001_create_widgets.down.sql":  {Data: []byte("DROP TABLE widgets;")},
		"m/000002_widget_name_idx.up.sql":   {Data: []byte("CREATE INDEX idx_widgets_name ON widgets (name);")},
		"m/000002_widget_name_idx.down.sql": {Data: []byte("DROP INDEX idx_widgets_name;")},
		"m/README.md":                       {Data: []byte("ignored")},
	}
}

func TestLoadMigrations_Rejects(t *testing.T) {
	tests := []struct {
		name string
		fs   fstest.MapFS
		want string
	}{
		{
			name: "missing down",
			fs:   fstest.MapFS{"m/000001_a.up.sql": {Data: []byte("SELECT 1;")}},
			want: "has no 000001_a.down.sql",
		},
		{
			name: "bad prefix",
			fs: fstest.MapFS{
				"m/first_a.up.sql":   {Data: []byte("SELECT 1;")},
				"m/first_a.down.sql": {Data: []byte("SELECT 1;")},
			},
			want: "invalid version prefix",
		},
		{
			name: "duplicate version",
			fs: fstest.MapFS{
				"m/000001_a.up.sql":   {Data: []byte("SELECT 1;")},
				"m/000001_a.down.sql": {Data: []byte("SELECT 1;")},
				"m/1_b.up.sql":        {Data: []byte("SELECT 1;")},
				"m/1_b.down.sql":      {Data: []byte("SELECT 1;")},
			},
			want: "used by both",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadMigrations(tt.fs, "m")
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestMigrator_UpIsIdempotentAndDownReverts(t *testing.T) {
	ctx := context.Background()
	db := openSQLite(t)
	set, err := LoadMigrations(sqliteMigrations(), "m")
	require.NoError(t, err)
	require.Len(t, set, 2)

	m := newMigrator(db, set)

	pending, err := m.pending(ctx)
	require.NoError(t, err)
	assert.Len(t, pending, 2)

	n, err := m.Up(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.True(t, db.Migrator().HasTable("widgets"))

	n, err = m.Up(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	require.NoError(t, m.Down(ctx, 2))
	applied, err := m.applied(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int{1}, applied)
	assert.False(t, db.Migrator().HasIndex("widgets", "idx_widgets_name"))

	err = m.Down(ctx, 2)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "has not been applied")
}

func TestMigrator_FailedScriptLeavesNoRecord(t *testing.T) {
	ctx := context.Background()
	db := openSQLite(t)
	m := newMigrator(db, []Migration{
		{Version: 1, Name: "broken", UpScript: "CREATE TABLE nope (", DownScript: "SELECT 1;"},
	})

	_, err := m.Up(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "000001_broken")

	applied, err := m.applied(ctx)
	require.NoError(t, err)
	assert.Empty(t, applied)
}

func TestMigrator_RefusesUnknownAppliedVersion(t *testing.T) {
	ctx := context.Background()
	db := openSQLite(t)
	m := newMigrator(db, nil)
	require.NoError(t, m.ensureLogTable(ctx))
	require.NoError(t, db.Create(&MigrationRecord{Version: 9, Name: "future"}).Error)

	_, err := m.Up(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "000009")
}
