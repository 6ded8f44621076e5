package service

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/bustedpokemon39/uniclub-sub001/internal/model"
	"github.com/bustedpokemon39/uniclub-sub001/internal/pkg"
	"github.com/bustedpokemon39/uniclub-sub001/internal/repository/mysql"
)

var ErrGroupNameTaken = errors.New("group name already taken")

type GroupService struct {
	repo    *mysql.GroupRepository
	members *mysql.GroupMemberRepository
}

func NewGroupService(db *gorm.DB) *GroupService {
	return &GroupService{
		repo:    &mysql.GroupRepository{DB: db},
		members: &mysql.GroupMemberRepository{DB: db},
	}
}

func (s *GroupService) Create(ctx context.Context, userID uint64, name, desc string) (*model.Group, error) {
	if userID == 0 {
		return nil, pkg.ErrUnauthenticated
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, pkg.Invalid("group name required")
	}
	taken, err := s.repo.NameExists(ctx, name)
	if err != nil {
		return nil, pkg.StorageErr(err)
	}
	if taken {
		return nil, errors.Join(pkg.ErrConflict, ErrGroupNameTaken)
	}
	g := &model.Group{Name: name, Description: desc, CreatorID: userID}
	if err := s.repo.Create(ctx, g); err != nil {
		return nil, pkg.StorageErr(err)
	}
	return g, nil
}

func (s *GroupService) Join(ctx context.Context, userID, groupID uint64) (bool, error) {
	if userID == 0 {
		return false, pkg.ErrUnauthenticated
	}
	if _, err := s.repo.FindByID(ctx, groupID); err != nil {
		return false, pkg.StorageErr(err)
	}
	changed, err := s.members.Join(ctx, groupID, userID)
	return changed, pkg.StorageErr(err)
}

// Leave 创建者不能退出自己的小组
func (s *GroupService) Leave(ctx context.Context, userID, groupID uint64) (bool, error) {
	if userID == 0 {
		return false, pkg.ErrUnauthenticated
	}
	g, err := s.repo.FindByID(ctx, groupID)
	if err != nil {
		return false, pkg.StorageErr(err)
	}
	if g.CreatorID == userID {
		return false, pkg.Invalid("creator cannot leave the group")
	}
	changed, err := s.members.Leave(ctx, groupID, userID)
	return changed, pkg.StorageErr(err)
}

func (s *GroupService) List(ctx context.Context, page, size int) ([]model.Group, error) {
	if page <= 0 {
		page = 1
	}
	if size <= 0 || size > 50 {
		size = 20
	}
	offset := (page - 1) * size
	list, err := s.repo.List(ctx, offset, size)
	return list, pkg.StorageErr(err)
}

func (s *GroupService) Members(ctx context.Context, groupID uint64, page, size int) ([]model.GroupMembership, error) {
	if page <= 0 {
		page = 1
	}
	if size <= 0 || size > 50 {
		size = 20
	}
	list, err := s.members.ListMembers(ctx, groupID, (page-1)*size, size)
	return list, pkg.StorageErr(err)
}

// UpdateMember 需要 manage 权限；创建者的角色不能被修改
func (s *GroupService) UpdateMember(ctx context.Context, operatorID, groupID, targetID uint64, role, status string) error {
	if operatorID == 0 {
		return pkg.ErrUnauthenticated
	}
	r, ok := model.ParseMemberRole(role)
	if !ok || r == model.MemberRoleCreator {
		return pkg.Invalid("unsupported role %q", role)
	}
	st, ok := model.ParseMembershipStatus(status)
	if !ok {
		return pkg.Invalid("unsupported status %q", status)
	}
	op, err := s.members.Get(ctx, groupID, operatorID)
	if err != nil {
		return pkg.StorageErr(err)
	}
	if !op.IsActive() || !op.Permissions.Has(model.PermManage) {
		return pkg.ErrForbidden
	}
	target, err := s.members.Get(ctx, groupID, targetID)
	if err != nil {
		return pkg.StorageErr(err)
	}
	if target == nil {
		return pkg.ErrNotFound
	}
	if target.Role == model.MemberRoleCreator {
		return pkg.ErrForbidden
	}
	return pkg.StorageErr(s.members.Update(ctx, groupID, targetID, r, st))
}
