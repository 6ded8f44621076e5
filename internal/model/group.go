package model

import "time"

type Group struct {
	ID          uint64    `gorm:"primaryKey" json:"id"`
	Name        string    `gorm:"uniqueIndex:uk_groups_name;size:64;not null" json:"name"`
	Description string    `gorm:"type:text" json:"description"`
	CreatorID   uint64    `gorm:"not null;index" json:"creator_id"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type MembershipStatus string

const (
	MembershipActive  MembershipStatus = "active"
	MembershipPending MembershipStatus = "pending"
	MembershipInvited MembershipStatus = "invited"
	MembershipBanned  MembershipStatus = "banned"
	MembershipLeft    MembershipStatus = "left"
)

func ParseMembershipStatus(s string) (MembershipStatus, bool) {
	switch v := MembershipStatus(s); v {
	case MembershipActive, MembershipPending, MembershipInvited, MembershipBanned, MembershipLeft:
		return v, true
	}
	return "", false
}

type MemberRole string

const (
	MemberRoleMember    MemberRole = "member"
	MemberRoleModerator MemberRole = "moderator"
	MemberRoleAdmin     MemberRole = "admin"
	MemberRoleCreator   MemberRole = "creator"
)

func ParseMemberRole(s string) (MemberRole, bool) {
	switch v := MemberRole(s); v {
	case MemberRoleMember, MemberRoleModerator, MemberRoleAdmin, MemberRoleCreator:
		return v, true
	}
	return "", false
}

// Permission 成员权限位
type Permission uint32

const (
	PermPost Permission = 1 << iota
	PermComment
	PermInvite
	PermModerate
	PermManage
)

const PermAll = PermPost | PermComment | PermInvite | PermModerate | PermManage

// DefaultPermissions 角色对应的默认权限
func DefaultPermissions(role MemberRole) Permission {
	switch role {
	case MemberRoleCreator, MemberRoleAdmin:
		return PermAll
	case MemberRoleModerator:
		return PermPost | PermComment | PermInvite | PermModerate
	case MemberRoleMember:
		return PermPost | PermComment
	}
	return 0
}

func (p Permission) Has(want Permission) bool {
	return want != 0 && p&want == want
}

type GroupMembership struct {
	ID          uint64           `gorm:"primaryKey" json:"id"`
	GroupID     uint64           `gorm:"not null;uniqueIndex:uk_group_user,priority:1" json:"group_id"`
	UserID      uint64           `gorm:"not null;uniqueIndex:uk_group_user,priority:2;index:idx_group_members_user" json:"user_id"`
	Status      MembershipStatus `gorm:"size:16;not null" json:"status"`
	Role        MemberRole       `gorm:"size:16;not null" json:"role"`
	Permissions Permission       `gorm:"not null" json:"permissions"`
	JoinedAt    *time.Time       `json:"joined_at,omitempty"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
}

func (GroupMembership) TableName() string {
	return "group_members"
}

func (m *GroupMembership) IsActive() bool {
	return m != nil && m.Status == MembershipActive
}

func (Group) TableName() string {
	return "club_groups"
}
