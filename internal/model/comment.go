package model

import "time"

type CommentStatus string

const (
	CommentActive  CommentStatus = "active"
	CommentFlagged CommentStatus = "flagged"
	CommentHidden  CommentStatus = "hidden"
	CommentDeleted CommentStatus = "deleted"
)

// Listed 列表中展示的状态
func (s CommentStatus) Listed() bool {
	return s == CommentActive || s == CommentFlagged
}

type CommentSort string

const (
	SortNewest    CommentSort = "newest"
	SortOldest    CommentSort = "oldest"
	SortMostLiked CommentSort = "mostLiked"
)

func ParseCommentSort(s string) (CommentSort, bool) {
	switch v := CommentSort(s); v {
	case "":
		return SortNewest, true
	case SortNewest, SortOldest, SortMostLiked:
		return v, true
	}
	return "", false
}

type Comment struct {
	ID              uint64        `gorm:"primaryKey" json:"id"`
	ContentType     ContentType   `gorm:"size:16;not null;index:idx_comments_content,priority:1" json:"content_type"`
	ContentID       uint64        `gorm:"not null;index:idx_comments_content,priority:2" json:"content_id"`
	ParentCommentID *uint64       `gorm:"index" json:"parent_comment_id,omitempty"`
	Depth           int           `gorm:"not null;default:0" json:"depth"`
	AuthorID        uint64        `gorm:"not null;index" json:"author_id"`
	Text            string        `gorm:"type:text;not null" json:"text"`
	LikeCount       int64         `gorm:"not null;default:0" json:"like_count"`
	Status          CommentStatus `gorm:"size:16;not null;default:active" json:"status"`
	IsEdited        bool          `gorm:"not null;default:false" json:"is_edited"`
	EditedAt        *time.Time    `json:"edited_at,omitempty"`
	CreatedAt       time.Time     `json:"created_at"`
	UpdatedAt       time.Time     `json:"updated_at"`
}

// CommentLike 评论点赞台账，(comment_id, user_id) 唯一
type CommentLike struct {
	ID        uint64    `gorm:"primaryKey" json:"id"`
	CommentID uint64    `gorm:"not null;uniqueIndex:uk_comment_like,priority:1" json:"comment_id"`
	UserID    uint64    `gorm:"not null;uniqueIndex:uk_comment_like,priority:2" json:"user_id"`
	Active    bool      `gorm:"not null" json:"active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (CommentLike) TableName() string {
	return "comment_likes"
}

// CommentPage 分页结果
type CommentPage struct {
	List    []Comment `json:"list"`
	Total   int64     `json:"total"`
	Page    int       `json:"page"`
	Limit   int       `json:"limit"`
	HasMore bool      `json:"has_more"`
}
