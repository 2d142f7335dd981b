package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Comment is a reply to a post, optionally threaded under another comment on the same post.
type Comment struct {
	ID              string         `gorm:"type:varchar(36);primaryKey" json:"id"`
	PostID          string         `gorm:"type:varchar(36);not null;index:idx_comments_post_created,priority:1" json:"post_id"`
	Post            *Post          `gorm:"foreignKey:PostID;constraint:OnDelete:CASCADE" json:"-"`
	AuthorID        uint           `gorm:"not null;index:idx_comments_author_created,priority:1" json:"author_id"`
	Author          *User          `gorm:"foreignKey:AuthorID;constraint:OnDelete:CASCADE" json:"-"`
	ParentCommentID *string        `gorm:"type:varchar(36);index:idx_comments_parent_created,priority:1" json:"parent_comment_id,omitempty"`
	Parent          *Comment       `gorm:"foreignKey:ParentCommentID;constraint:OnDelete:CASCADE" json:"-"`
	Comment         string         `gorm:"type:text;not null" json:"comment"`
	IsEdited        bool           `gorm:"not null;default:false" json:"is_edited"`
	CreatedAt       time.Time      `gorm:"not null;index:idx_comments_post_created,priority:2;index:idx_comments_parent_created,priority:2;index:idx_comments_author_created,priority:2" json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
	DeletedAt       gorm.DeletedAt `gorm:"index" json:"-"`
}

// BeforeCreate assigns the comment id and creation time.
func (c *Comment) BeforeCreate(_ *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC().Truncate(time.Microsecond)
	}
	return nil
}

// CommentPage is one page of comments or replies.
type CommentPage struct {
	Comments   []Comment `json:"comments"`
	NextCursor *string   `json:"cursor"`
}
