package model

import "time"

type RelationStatus string

const (
	RelationPending  RelationStatus = "pending"
	RelationAccepted RelationStatus = "accepted"
	RelationBlocked  RelationStatus = "blocked"
	RelationMuted    RelationStatus = "muted"
)

const (
	RelationTypeFollow = "follow"
	RelationTypeBlock  = "block"
)

// Follow 有向关系边，(follower_id, following_id) 唯一
type Follow struct {
	ID               uint64         `gorm:"primaryKey" json:"id"`
	FollowerID       uint64         `gorm:"not null;uniqueIndex:uk_follow_pair,priority:1" json:"follower_id"`
	FollowingID      uint64         `gorm:"not null;uniqueIndex:uk_follow_pair,priority:2;index:idx_follow_following" json:"following_id"`
	Status           RelationStatus `gorm:"size:16;not null" json:"status"`
	RelationshipType string         `gorm:"size:16;not null" json:"relationship_type"`
	AcceptedAt       *time.Time     `json:"accepted_at,omitempty"`
	BlockedAt        *time.Time     `json:"blocked_at,omitempty"`
	MutedAt          *time.Time     `json:"muted_at,omitempty"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
}

// TableName sets table name for Follow
func (Follow) TableName() string {
	return "follow"
}

// Following 静音的边仍然算关注
func (f *Follow) Following() bool {
	return f.Status == RelationAccepted || f.Status == RelationMuted
}
