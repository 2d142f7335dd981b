// Package repository implements the data access layer for the application.
package repository

import (
	"errors"
	"strings"

	"lattice/internal/cursor"
	"lattice/internal/database"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

func readDB(primary *gorm.DB) *gorm.DB {
	if db := database.GetReadDB(); db != nil {
		return db
	}
	return primary
}

// keysetBefore restricts q to rows strictly older than pos in
// (created_at DESC, id DESC) order and applies that ordering.
func keysetBefore(q *gorm.DB, table string, pos *cursor.Position) *gorm.DB {
	createdAt := table + ".created_at"
	id := table + ".id"

	if pos != nil {
		if pos.HasTieBreak() {
			q = q.Where("("+createdAt+" < ?) OR ("+createdAt+" = ? AND "+id+" < ?)", pos.CreatedAt, pos.CreatedAt, pos.ID)
		} else {
			q = q.Where(createdAt+" < ?", pos.CreatedAt)
		}
	}
	return q.Order(createdAt + " DESC").Order(id + " DESC")
}

// isUniqueConstraintError checks if a DB error is a unique constraint violation.
func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate key") ||
		strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "23505")
}
