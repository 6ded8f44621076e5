package privacy

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/bustedpokemon39/uniclub-sub001/internal/model"
	"github.com/bustedpokemon39/uniclub-sub001/internal/pkg"
)

const (
	authorID = uint64(1)
	viewerID = uint64(2)
)

func TestCanView(t *testing.T) {
	groupID := uint64(10)

	tests := []struct {
		name    string
		viewer  Viewer
		subject Subject
		rel     Snapshot
		allowed bool
		reason  Reason
	}{
		{"public allows anyone", Viewer{ID: viewerID}, Subject{AuthorID: authorID, Visibility: model.VisibilityPublic}, Snapshot{}, true, ""},
		{"club members allows enrolled", Viewer{ID: viewerID, Enrolled: true}, Subject{AuthorID: authorID, Visibility: model.VisibilityClubMembers}, Snapshot{}, true, ""},
		{"club members denies not enrolled", Viewer{ID: viewerID}, Subject{AuthorID: authorID, Visibility: model.VisibilityClubMembers}, Snapshot{}, false, ReasonClubMembersOnly},
		{"friends allows follower", Viewer{ID: viewerID}, Subject{AuthorID: authorID, Visibility: model.VisibilityFriends}, Snapshot{Following: true}, true, ""},
		{"friends denies stranger", Viewer{ID: viewerID, Enrolled: true}, Subject{AuthorID: authorID, Visibility: model.VisibilityFriends}, Snapshot{}, false, ReasonFriendsOnly},
		{"group allows active member", Viewer{ID: viewerID}, Subject{AuthorID: authorID, Visibility: model.VisibilityGroup, GroupID: &groupID}, Snapshot{ActiveMember: true}, true, ""},
		{"group denies non member", Viewer{ID: viewerID}, Subject{AuthorID: authorID, Visibility: model.VisibilityGroup, GroupID: &groupID}, Snapshot{}, false, ReasonGroupMembersOnly},
		{"group without group id denies", Viewer{ID: viewerID}, Subject{AuthorID: authorID, Visibility: model.VisibilityGroup}, Snapshot{ActiveMember: true}, false, ReasonGroupMembersOnly},
		{"private denies others", Viewer{ID: viewerID, Enrolled: true}, Subject{AuthorID: authorID, Visibility: model.VisibilityPrivate}, Snapshot{Following: true}, false, ReasonPrivate},
		{"private allows author", Viewer{ID: authorID}, Subject{AuthorID: authorID, Visibility: model.VisibilityPrivate}, Snapshot{}, true, ""},
		{"block overrides public", Viewer{ID: viewerID}, Subject{AuthorID: authorID, Visibility: model.VisibilityPublic}, Snapshot{Blocked: true}, false, ReasonUnavailable},
		{"block overrides club members", Viewer{ID: viewerID, Enrolled: true}, Subject{AuthorID: authorID, Visibility: model.VisibilityClubMembers}, Snapshot{Blocked: true}, false, ReasonUnavailable},
		{"author short circuits block", Viewer{ID: authorID}, Subject{AuthorID: authorID, Visibility: model.VisibilityPublic}, Snapshot{Blocked: true}, true, ""},
		{"unknown visibility fails closed", Viewer{ID: viewerID, Enrolled: true}, Subject{AuthorID: authorID, Visibility: "everyone!"}, Snapshot{Following: true, ActiveMember: true}, false, ReasonRestricted},
		{"empty visibility fails closed", Viewer{ID: viewerID, Enrolled: true}, Subject{AuthorID: authorID}, Snapshot{}, false, ReasonRestricted},
		{"anonymous viewer is never author", Viewer{}, Subject{Visibility: model.VisibilityPrivate}, Snapshot{}, false, ReasonPrivate},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := CanView(tt.viewer, tt.subject, tt.rel)
			assert.Equal(t, tt.allowed, d.Allowed)
			assert.Equal(t, tt.reason, d.Reason)
		})
	}
}

func TestCanViewUnknownVisibilityOnlyAuthor(t *testing.T) {
	subject := Subject{AuthorID: authorID, Visibility: "corrupt"}
	everything := Snapshot{Following: true, ActiveMember: true}

	for id := uint64(2); id < 20; id++ {
		d := CanView(Viewer{ID: id, Enrolled: true}, subject, everything)
		assert.False(t, d.Allowed, "viewer %d", id)
	}
	assert.True(t, CanView(Viewer{ID: authorID}, subject, Snapshot{}).Allowed)
}

func TestCanViewProfile(t *testing.T) {
	tests := []struct {
		name    string
		viewer  Viewer
		setting model.ProfileVisibility
		rel     Snapshot
		allowed bool
		reason  Reason
	}{
		{"public", Viewer{ID: viewerID}, model.ProfilePublic, Snapshot{}, true, ""},
		{"club members enrolled", Viewer{ID: viewerID, Enrolled: true}, model.ProfileClubMembers, Snapshot{}, true, ""},
		{"club members not enrolled", Viewer{ID: viewerID}, model.ProfileClubMembers, Snapshot{}, false, ReasonClubMembersOnly},
		{"private", Viewer{ID: viewerID, Enrolled: true}, model.ProfilePrivate, Snapshot{}, false, ReasonPrivate},
		{"owner sees private", Viewer{ID: authorID}, model.ProfilePrivate, Snapshot{}, true, ""},
		{"blocked public", Viewer{ID: viewerID}, model.ProfilePublic, Snapshot{Blocked: true}, false, ReasonUnavailable},
		{"missing falls back to club members", Viewer{ID: viewerID}, "", Snapshot{}, false, ReasonClubMembersOnly},
		{"invalid falls back to club members", Viewer{ID: viewerID, Enrolled: true}, "friends", Snapshot{}, true, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := CanViewProfile(tt.viewer, authorID, tt.setting, tt.rel)
			assert.Equal(t, tt.allowed, d.Allowed)
			assert.Equal(t, tt.reason, d.Reason)
		})
	}
}

func TestCanWriteInGroup(t *testing.T) {
	member := &model.GroupMembership{Status: model.MembershipActive, Permissions: model.DefaultPermissions(model.MemberRoleMember)}
	assert.True(t, CanWriteInGroup(member, model.PermPost).Allowed)
	assert.True(t, CanWriteInGroup(member, model.PermComment).Allowed)

	d := CanWriteInGroup(member, model.PermModerate)
	assert.False(t, d.Allowed)
	assert.Equal(t, ReasonNoPermission, d.Reason)

	banned := &model.GroupMembership{Status: model.MembershipBanned, Permissions: model.PermAll}
	assert.Equal(t, ReasonGroupMembersOnly, CanWriteInGroup(banned, model.PermPost).Reason)
	assert.Equal(t, ReasonGroupMembersOnly, CanWriteInGroup(nil, model.PermPost).Reason)
}

func TestDecisionErr(t *testing.T) {
	assert.NoError(t, allow.Err())

	err := deny(ReasonFriendsOnly).Err()
	assert.True(t, errors.Is(err, pkg.ErrForbidden))

	var denied *pkg.DeniedError
	if assert.True(t, errors.As(err, &denied)) {
		assert.Equal(t, string(ReasonFriendsOnly), denied.Reason)
	}
	assert.Equal(t, "friends only", ReasonFriendsOnly.Message())
}
