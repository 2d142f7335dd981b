//go:build integration

package seed

import (
	"context"
	"net/url"
	"os"
	"strings"
	"testing"

	"lattice/internal/config"
	"lattice/internal/database"
	"lattice/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// postgresFromEnv connects to DATABASE_URL and applies the SQL migrations,
// so the seeder runs against the same schema production uses.
func postgresFromEnv(t *testing.T) *gorm.DB {
	t.Helper()
	raw := os.Getenv("DATABASE_URL")
	if raw == "" {
		t.Skip("DATABASE_URL not set")
	}
	u, err := url.Parse(raw)
	require.NoError(t, err)

	password, _ := u.User.Password()
	port := u.Port()
	if port == "" {
		port = "5432"
	}
	cfg := &config.Config{
		Env:          "test",
		DBHost:       u.Hostname(),
		DBPort:       port,
		DBUser:       u.User.Username(),
		DBPassword:   password,
		DBName:       strings.TrimPrefix(u.Path, "/"),
		DBSSLMode:    u.Query().Get("sslmode"),
		DBSchemaMode: database.SchemaModeSQL,
	}
	db, err := database.ConnectWithOptions(cfg, database.ConnectOptions{ApplySchema: true})
	require.NoError(t, err)
	return db
}

func TestIntegration_MeshOnPostgres(t *testing.T) {
	db := postgresFromEnv(t)
	ctx := context.Background()

	result, err := NewSeeder(db, Options{FastHash: true, BatchSize: 50, RandSeed: 7}).SeedSocialMesh(ctx, 10, 2)
	require.NoError(t, err)

	var posts, follows int64
	require.NoError(t, db.Model(&models.Post{}).Count(&posts).Error)
	require.NoError(t, db.Model(&models.Follow{}).Count(&follows).Error)
	assert.EqualValues(t, result.Posts, posts)
	assert.EqualValues(t, result.Follows, follows)
}

func TestIntegration_DemoFixtureOnPostgres(t *testing.T) {
	db := postgresFromEnv(t)
	fx, err := DemoFixture()
	require.NoError(t, err)

	result, err := NewSeeder(db, Options{FastHash: true}).ApplyFixture(context.Background(), fx)
	require.NoError(t, err)
	assert.Len(t, result.Users, len(fx.Users))

	var pending int64
	require.NoError(t, db.Model(&models.Follow{}).Where("status = ?", models.FollowStatusPending).Count(&pending).Error)
	assert.EqualValues(t, 1, pending)
}
