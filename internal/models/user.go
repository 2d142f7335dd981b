// Package models contains data structures for the application's domain models.
package models

import (
	"time"

	"gorm.io/gorm"
)

// AccountStatus is the moderation state of a user account.
type AccountStatus string

const (
	AccountStatusActive       AccountStatus = "active"
	AccountStatusSuspended    AccountStatus = "suspended"
	AccountStatusDeactivated  AccountStatus = "deactivated"
	AccountStatusShadowbanned AccountStatus = "shadowbanned"
)

// User represents a member of the social graph.
type User struct {
	ID                uint           `gorm:"primaryKey" json:"id"`
	Username          string         `gorm:"type:varchar(32);uniqueIndex;not null" json:"username"`
	Name              string         `gorm:"type:varchar(255);not null" json:"name"`
	Email             string         `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`
	PasswordHash      string         `gorm:"not null" json:"-"`
	Address           string         `json:"address,omitempty"`
	Country           string         `gorm:"type:varchar(24)" json:"country,omitempty"`
	IsPrivate         bool           `gorm:"not null;default:false" json:"is_private"`
	IsVerified        bool           `gorm:"not null;default:false" json:"is_verified"`
	Bio               string         `gorm:"type:varchar(240)" json:"bio,omitempty"`
	DisplayPictureURL string         `json:"display_picture_url,omitempty"`
	AccountStatus     AccountStatus  `gorm:"type:varchar(20);not null;default:'active'" json:"account_status"`
	CreatedAt         time.Time      `json:"created_at"`
	UpdatedAt         time.Time      `json:"updated_at"`
	DeletedAt         gorm.DeletedAt `gorm:"index" json:"-"`
}

// UserSummary is the public subset of a user shown next to content and in follow lists.
type UserSummary struct {
	ID                uint   `json:"id"`
	Username          string `json:"username"`
	Name              string `json:"name"`
	DisplayPictureURL string `json:"display_picture_url,omitempty"`
	IsPrivate         bool   `json:"is_private"`
}

// Summary returns the public subset of u.
func (u *User) Summary() UserSummary {
	return UserSummary{
		ID:                u.ID,
		Username:          u.Username,
		Name:              u.Name,
		DisplayPictureURL: u.DisplayPictureURL,
		IsPrivate:         u.IsPrivate,
	}
}
