// Package privacy 内容与主页的可见性判定。纯函数，不访问存储。
package privacy

import (
	"github.com/bustedpokemon39/uniclub-sub001/internal/model"
	"github.com/bustedpokemon39/uniclub-sub001/internal/pkg"
)

// Reason 拒绝原因码，客户端据此展示提示
type Reason string

const (
	ReasonClubMembersOnly  Reason = "club-members-only"
	ReasonFriendsOnly      Reason = "friends-only"
	ReasonGroupMembersOnly Reason = "group-members-only"
	ReasonPrivate          Reason = "private"
	// ReasonUnavailable 拉黑时使用，不暴露拉黑关系
	ReasonUnavailable  Reason = "unavailable"
	ReasonRestricted   Reason = "restricted"
	ReasonNoPermission Reason = "no-permission"
)

var messages = map[Reason]string{
	ReasonClubMembersOnly:  "club members only",
	ReasonFriendsOnly:      "friends only",
	ReasonGroupMembersOnly: "group members only",
	ReasonPrivate:          "private",
	ReasonUnavailable:      "content unavailable",
	ReasonRestricted:       "content unavailable",
	ReasonNoPermission:     "no permission",
}

func (r Reason) Message() string {
	if m, ok := messages[r]; ok {
		return m
	}
	return "content unavailable"
}

type Viewer struct {
	ID       uint64
	Enrolled bool
}

// Subject 判定所需的内容属性
type Subject struct {
	AuthorID   uint64
	Visibility model.Visibility
	GroupID    *uint64
}

func SubjectOf(item model.ContentItem) Subject {
	b := item.Base()
	return Subject{AuthorID: b.AuthorID, Visibility: b.Visibility, GroupID: b.GroupID}
}

// Snapshot viewer 与作者之间的关系快照
type Snapshot struct {
	// Following viewer -> author 存在已接受（或静音）的关注边
	Following bool
	// Blocked 任意方向存在拉黑
	Blocked bool
	// ActiveMember viewer 是内容所属小组的活跃成员
	ActiveMember bool
}

type Decision struct {
	Allowed bool
	Reason  Reason
}

var allow = Decision{Allowed: true}

func deny(r Reason) Decision { return Decision{Reason: r} }

// Err 拒绝时返回 *pkg.DeniedError
func (d Decision) Err() error {
	if d.Allowed {
		return nil
	}
	return pkg.Denied(string(d.Reason))
}

// CanView 顺序：作者 -> 拉黑 -> 策略表；未知策略一律拒绝
func CanView(v Viewer, s Subject, rel Snapshot) Decision {
	if v.ID != 0 && v.ID == s.AuthorID {
		return allow
	}
	if rel.Blocked {
		return deny(ReasonUnavailable)
	}
	switch s.Visibility {
	case model.VisibilityPublic:
		return allow
	case model.VisibilityClubMembers:
		if v.Enrolled {
			return allow
		}
		return deny(ReasonClubMembersOnly)
	case model.VisibilityFriends:
		if rel.Following {
			return allow
		}
		return deny(ReasonFriendsOnly)
	case model.VisibilityGroup:
		if s.GroupID != nil && rel.ActiveMember {
			return allow
		}
		return deny(ReasonGroupMembersOnly)
	case model.VisibilityPrivate:
		return deny(ReasonPrivate)
	}
	return deny(ReasonRestricted)
}

// CanViewProfile 主页只有三档；缺失或非法取值按 club-members 处理
func CanViewProfile(v Viewer, ownerID uint64, setting model.ProfileVisibility, rel Snapshot) Decision {
	if v.ID != 0 && v.ID == ownerID {
		return allow
	}
	if rel.Blocked {
		return deny(ReasonUnavailable)
	}
	switch setting {
	case model.ProfilePublic:
		return allow
	case model.ProfilePrivate:
		return deny(ReasonPrivate)
	}
	if v.Enrolled {
		return allow
	}
	return deny(ReasonClubMembersOnly)
}

// CanWriteInGroup 在读权限之上的写权限（发帖/评论）
func CanWriteInGroup(m *model.GroupMembership, perm model.Permission) Decision {
	if !m.IsActive() {
		return deny(ReasonGroupMembersOnly)
	}
	if !m.Permissions.Has(perm) {
		return deny(ReasonNoPermission)
	}
	return allow
}
