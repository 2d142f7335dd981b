package repository

import (
	"fmt"
	"testing"
	"time"

	"lattice/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		Conn: db,
	}), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)

	return gormDB, mock
}

// setupSQLiteDB returns an isolated in-memory database with the full schema.
func setupSQLiteDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:  logger.Default.LogMode(logger.Silent),
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(&models.User{}, &models.Post{}, &models.Comment{}, &models.Follow{}))
	return db
}

func createUser(t *testing.T, db *gorm.DB, username string, private bool) *models.User {
	t.Helper()
	u := &models.User{
		Username:     username,
		Name:         username,
		Email:        fmt.Sprintf("%s@example.com", username),
		PasswordHash: "hash",
		IsPrivate:    private,
	}
	require.NoError(t, db.Create(u).Error)
	return u
}

func createPost(t *testing.T, db *gorm.DB, author *models.User, id string, at time.Time) *models.Post {
	t.Helper()
	p := &models.Post{
		ID:             id,
		AuthorID:       author.ID,
		AuthorUsername: author.Username,
		Content:        "content of " + id,
		CreatedAt:      at.UTC(),
	}
	require.NoError(t, db.Create(p).Error)
	return p
}

func follow(t *testing.T, db *gorm.DB, follower, followee *models.User, status models.FollowStatus) {
	t.Helper()
	require.NoError(t, db.Create(&models.Follow{
		FollowerID: follower.ID,
		FolloweeID: followee.ID,
		Status:     status,
	}).Error)
}
