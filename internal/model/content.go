package model

import (
	"strings"
	"time"
)

// ContentType 多态内容的类型标签
type ContentType string

const (
	ContentNews       ContentType = "News"
	ContentEvent      ContentType = "Event"
	ContentResource   ContentType = "Resource"
	ContentSocialPost ContentType = "SocialPost"
	ContentComment    ContentType = "Comment"
)

var contentTypes = []ContentType{ContentNews, ContentEvent, ContentResource, ContentSocialPost, ContentComment}

// ParseContentType 大小写不敏感，同时接受 social-post 写法
func ParseContentType(s string) (ContentType, bool) {
	s = strings.ReplaceAll(strings.TrimSpace(s), "-", "")
	for _, t := range contentTypes {
		if strings.EqualFold(string(t), s) {
			return t, true
		}
	}
	return "", false
}

// ItemTypes 有独立内容表的类型（不含评论）
func ItemTypes() []ContentType {
	return []ContentType{ContentNews, ContentEvent, ContentResource, ContentSocialPost}
}

func (t ContentType) IsItem() bool {
	switch t {
	case ContentNews, ContentEvent, ContentResource, ContentSocialPost:
		return true
	}
	return false
}

// Visibility 内容可见性策略
type Visibility string

const (
	VisibilityPublic      Visibility = "public"
	VisibilityClubMembers Visibility = "club-members"
	VisibilityFriends     Visibility = "friends"
	VisibilityGroup       Visibility = "group"
	VisibilityPrivate     Visibility = "private"
)

func ParseVisibility(s string) (Visibility, bool) {
	switch v := Visibility(s); v {
	case VisibilityPublic, VisibilityClubMembers, VisibilityFriends, VisibilityGroup, VisibilityPrivate:
		return v, true
	}
	return "", false
}

const (
	ContentStatusActive  = "active"
	ContentStatusHidden  = "hidden"
	ContentStatusDeleted = "deleted"
)

// CounterField 内容上的冗余计数
type CounterField string

const (
	CounterLikes    CounterField = "likes"
	CounterSaves    CounterField = "saves"
	CounterShares   CounterField = "shares"
	CounterComments CounterField = "comments"
	CounterViews    CounterField = "views"
)

// ContentBase 各内容表共用的列
type ContentBase struct {
	ID           uint64     `gorm:"primaryKey" json:"id"`
	AuthorID     uint64     `gorm:"not null;index" json:"author_id"`
	GroupID      *uint64    `gorm:"index" json:"group_id,omitempty"`
	Title        string     `gorm:"size:200;not null" json:"title"`
	Body         string     `gorm:"type:text" json:"body"`
	Visibility   Visibility `gorm:"size:16;not null" json:"visibility"`
	Status       string     `gorm:"size:16;not null;default:active;index" json:"status"`
	LikeCount    int64      `gorm:"not null;default:0" json:"like_count"`
	SaveCount    int64      `gorm:"not null;default:0" json:"save_count"`
	ShareCount   int64      `gorm:"not null;default:0" json:"share_count"`
	CommentCount int64      `gorm:"not null;default:0" json:"comment_count"`
	ViewCount    int64      `gorm:"not null;default:0" json:"view_count"`
	CreatedAt    time.Time  `gorm:"index" json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

func (b *ContentBase) Base() *ContentBase { return b }

// Stats 计数快照
func (b *ContentBase) Stats() Stats {
	return Stats{
		Likes:    b.LikeCount,
		Saves:    b.SaveCount,
		Shares:   b.ShareCount,
		Comments: b.CommentCount,
		Views:    b.ViewCount,
	}
}

// ContentItem News/Event/Resource/SocialPost 的公共视图
type ContentItem interface {
	Base() *ContentBase
	Type() ContentType
}

type News struct {
	ContentBase
	SourceURL string `gorm:"size:512" json:"source_url"`
	Summary   string `gorm:"type:text" json:"summary"`
}

func (News) Type() ContentType { return ContentNews }

func (News) TableName() string { return "news" }

type Event struct {
	ContentBase
	Location string     `gorm:"size:200" json:"location"`
	StartsAt *time.Time `json:"starts_at,omitempty"`
	EndsAt   *time.Time `json:"ends_at,omitempty"`
}

func (Event) Type() ContentType { return ContentEvent }

func (Event) TableName() string { return "events" }

type Resource struct {
	ContentBase
	URL  string `gorm:"size:512" json:"url"`
	Kind string `gorm:"size:32" json:"kind"`
}

func (Resource) Type() ContentType { return ContentResource }

func (Resource) TableName() string { return "resources" }

type SocialPost struct {
	ContentBase
	MediaURL string `gorm:"size:512" json:"media_url"`
}

func (SocialPost) Type() ContentType { return ContentSocialPost }

func (SocialPost) TableName() string { return "social_posts" }
