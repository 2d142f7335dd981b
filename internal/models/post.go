package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Post is a piece of content authored by a user.
type Post struct {
	ID             string         `gorm:"type:varchar(36);primaryKey" json:"id"`
	AuthorID       uint           `gorm:"not null;index:idx_posts_author_created,priority:1" json:"author_id"`
	Author         *User          `gorm:"foreignKey:AuthorID;constraint:OnDelete:CASCADE" json:"-"`
	AuthorUsername string         `gorm:"type:varchar(32);not null" json:"author_username"`
	Content        string         `gorm:"type:text;not null" json:"content"`
	IsEdited       bool           `gorm:"not null;default:false" json:"is_edited"`
	CreatedAt      time.Time      `gorm:"not null;index:idx_posts_author_created,priority:2;index:idx_posts_created_id,priority:1" json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
	DeletedAt      gorm.DeletedAt `gorm:"index" json:"-"`
}

// BeforeCreate assigns the post id and a UTC creation time at microsecond precision,
// the resolution PostgreSQL keeps for timestamps.
func (p *Post) BeforeCreate(_ *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC().Truncate(time.Microsecond)
	}
	return nil
}

// FeedPost is a post row as it appears in a feed or profile timeline.
type FeedPost struct {
	ID                      string    `json:"id"`
	AuthorID                uint      `json:"author_id"`
	AuthorUsername          string    `json:"author_username"`
	AuthorDisplayPictureURL string    `json:"author_display_picture_url,omitempty"`
	Content                 string    `json:"content"`
	IsEdited                bool      `json:"is_edited"`
	CreatedAt               time.Time `json:"created_at"`
}

// FeedPage is one page of a viewer's home feed.
type FeedPage struct {
	Posts      []FeedPost `json:"posts"`
	NextCursor *string    `json:"cursor"`
}

// PostPage is one page of a user's posts.
type PostPage struct {
	Posts      []Post  `json:"posts"`
	NextCursor *string `json:"cursor"`
}
