package model

import "time"

// Action 互动类型
type Action string

const (
	ActionLike  Action = "like"
	ActionSave  Action = "save"
	ActionShare Action = "share"
	ActionView  Action = "view"
)

func ParseAction(s string) (Action, bool) {
	switch a := Action(s); a {
	case ActionLike, ActionSave, ActionShare, ActionView:
		return a, true
	}
	return "", false
}

// Counter 互动对应的内容计数列
func (a Action) Counter() CounterField {
	switch a {
	case ActionLike:
		return CounterLikes
	case ActionSave:
		return CounterSaves
	case ActionShare:
		return CounterShares
	case ActionView:
		return CounterViews
	}
	return ""
}

// Togglable 只有 like/save 可以来回切换
func (a Action) Togglable() bool {
	return a == ActionLike || a == ActionSave
}

// Engagement 每个 (user, content_type, content_id, action) 仅一行，切换时翻转 active
type Engagement struct {
	ID          uint64      `gorm:"primaryKey" json:"id"`
	UserID      uint64      `gorm:"not null;uniqueIndex:uk_engagement,priority:1" json:"user_id"`
	ContentType ContentType `gorm:"size:16;not null;uniqueIndex:uk_engagement,priority:2;index:idx_engagement_content,priority:1" json:"content_type"`
	ContentID   uint64      `gorm:"not null;uniqueIndex:uk_engagement,priority:3;index:idx_engagement_content,priority:2" json:"content_id"`
	Action      Action      `gorm:"size:8;not null;uniqueIndex:uk_engagement,priority:4;index:idx_engagement_content,priority:3" json:"action"`
	Active      bool        `gorm:"not null" json:"active"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

func (Engagement) TableName() string {
	return "engagements"
}

// EngagementKey 台账唯一键
type EngagementKey struct {
	UserID      uint64
	ContentType ContentType
	ContentID   uint64
	Action      Action
}

// EngagementState 一次写入后的结果
type EngagementState struct {
	Active  bool  `json:"active"`
	Count   int64 `json:"count"`
	Changed bool  `json:"changed"`
}

// Flags 当前用户对某内容的互动状态
type Flags struct {
	Liked  bool `json:"liked"`
	Saved  bool `json:"saved"`
	Shared bool `json:"shared"`
	Viewed bool `json:"viewed"`
}

type Stats struct {
	Likes    int64 `json:"likes"`
	Saves    int64 `json:"saves"`
	Shares   int64 `json:"shares"`
	Comments int64 `json:"comments"`
	Views    int64 `json:"views"`
}
