package models

import "time"

// FollowStatus represents the state of a follow edge.
type FollowStatus string

const (
	// FollowStatusPending is a request awaiting the followee's approval.
	FollowStatusPending FollowStatus = "pending"
	// FollowStatusAccepted is an established follow.
	FollowStatusAccepted FollowStatus = "accepted"
)

// Follow is a directed edge from follower to followee.
type Follow struct {
	FollowerID uint         `gorm:"primaryKey;autoIncrement:false;index:idx_follows_follower_status,priority:1" json:"follower_id"`
	FolloweeID uint         `gorm:"primaryKey;autoIncrement:false;index:idx_follows_followee_status,priority:1" json:"followee_id"`
	Status     FollowStatus `gorm:"type:varchar(20);not null;default:'pending';index:idx_follows_follower_status,priority:2;index:idx_follows_followee_status,priority:2" json:"status"`
	CreatedAt  time.Time    `json:"created_at"`
	UpdatedAt  time.Time    `json:"updated_at"`

	Follower *User `gorm:"foreignKey:FollowerID;constraint:OnDelete:CASCADE" json:"-"`
	Followee *User `gorm:"foreignKey:FolloweeID;constraint:OnDelete:CASCADE" json:"-"`
}

// TableName specifies the table name for GORM
func (Follow) TableName() string {
	return "follows"
}

// FollowEdge is a follow edge joined with the counterpart user's public summary.
type FollowEdge struct {
	FollowerID uint         `json:"follower_id"`
	FolloweeID uint         `json:"followee_id"`
	Status     FollowStatus `json:"status"`
	CreatedAt  time.Time    `json:"created_at"`
	User       UserSummary  `json:"user"`
}

// FollowResult is returned by a follow request.
type FollowResult struct {
	Status  FollowStatus `json:"status"`
	Created bool         `json:"created"`
}

// RelationshipNone marks the absence of an edge in a RelationshipStatus.
const RelationshipNone = "none"

// RelationshipStatus describes both directions between a viewer and a target.
// Each side is "none", "pending" or "accepted".
type RelationshipStatus struct {
	UserID     uint   `json:"user_id"`
	Following  string `json:"following"`
	FollowedBy string `json:"followed_by"`
}
