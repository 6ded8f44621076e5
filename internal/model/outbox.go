package model

import "time"

const (
	OutboxPending = 0
	OutboxSent    = 1
	OutboxFailed  = 2
)

// 事件类型
const (
	EventEngagementOn   = "engagement.on"
	EventEngagementOff  = "engagement.off"
	EventCommentAdded   = "comment.added"
	EventCommentRemoved = "comment.removed"
	EventCommentLiked   = "comment.liked"
	EventCommentUnliked = "comment.unliked"
	EventFollow         = "follow"
	EventUnfollow       = "unfollow"
	EventBlock          = "block"
	EventContentDeleted = "content.deleted"
)

// Outbox 与业务写入同事务落库的事件，由 relayer 投递到 kafka
type Outbox struct {
	ID            uint64    `gorm:"primaryKey"`
	EventID       string    `gorm:"size:36;not null;uniqueIndex:uk_outbox_event"`
	EventType     string    `gorm:"size:32;not null"`
	AggregateType string    `gorm:"size:16;not null"`
	AggregateID   uint64    `gorm:"not null"`
	ActorID       uint64    `gorm:"not null"`
	Payload       string    `gorm:"type:text;not null"`
	Status        int8      `gorm:"not null;default:0;index"`
	Retry         int       `gorm:"not null;default:0"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (Outbox) TableName() string { return "event_outbox" }

// All 需要建表的模型
func All() []any {
	return []any{
		&User{},
		&Follow{},
		&Group{},
		&GroupMembership{},
		&News{},
		&Event{},
		&Resource{},
		&SocialPost{},
		&Engagement{},
		&Comment{},
		&CommentLike{},
		&Outbox{},
	}
}
