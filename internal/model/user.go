package model

import "time"

// ProfileVisibility 个人主页可见范围
type ProfileVisibility string

const (
	ProfilePublic      ProfileVisibility = "public"
	ProfileClubMembers ProfileVisibility = "club-members"
	ProfilePrivate     ProfileVisibility = "private"
)

// ParseProfileVisibility 只接受三种取值
func ParseProfileVisibility(s string) (ProfileVisibility, bool) {
	switch v := ProfileVisibility(s); v {
	case ProfilePublic, ProfileClubMembers, ProfilePrivate:
		return v, true
	}
	return "", false
}

const (
	UserStatusActive      = "active"
	UserStatusSuspended   = "suspended"
	UserStatusDeactivated = "deactivated"
)

const (
	RoleUser  = 0
	RoleAdmin = 1
)

// User 用户只做软状态变更，不做物理删除
type User struct {
	ID                uint64            `gorm:"primaryKey" json:"id"`
	Username          string            `gorm:"uniqueIndex:uk_users_username;size:32;not null" json:"username"`
	Password          string            `gorm:"size:255;not null" json:"-"`
	Role              int               `gorm:"not null;default:0" json:"role"`
	Email             string            `gorm:"uniqueIndex:uk_users_email;size:64;not null" json:"-"`
	UniqueID          string            `gorm:"uniqueIndex:uk_users_unique_id;size:32;not null" json:"unique_id"`
	IsEnrolled        bool              `gorm:"not null;default:false" json:"is_enrolled"`
	ProfileVisibility ProfileVisibility `gorm:"size:16;not null;default:club-members" json:"profile_visibility"`
	Status            string            `gorm:"size:16;not null;default:active" json:"status"`
	FollowerCount     int64             `gorm:"not null;default:0" json:"follower_count"`
	FollowingCount    int64             `gorm:"not null;default:0" json:"following_count"`
	CreatedAt         time.Time         `json:"created_at"`
	UpdatedAt         time.Time         `json:"updated_at"`
}
