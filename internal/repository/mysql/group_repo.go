package mysql

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/bustedpokemon39/uniclub-sub001/internal/model"
	"github.com/bustedpokemon39/uniclub-sub001/internal/pkg"
)

type GroupRepository struct {
	DB *gorm.DB
}

type GroupMemberRepository struct {
	DB *gorm.DB
}

// Create 创建小组，同事务写入创建者成员关系
func (r *GroupRepository) Create(ctx context.Context, g *model.Group) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(g).Error; err != nil {
			return err
		}
		now := time.Now()
		m := &model.GroupMembership{
			GroupID:     g.ID,
			UserID:      g.CreatorID,
			Status:      model.MembershipActive,
			Role:        model.MemberRoleCreator,
			Permissions: model.DefaultPermissions(model.MemberRoleCreator),
			JoinedAt:    &now,
		}
		return tx.Create(m).Error
	})
}

func (r *GroupRepository) FindByID(ctx context.Context, id uint64) (*model.Group, error) {
	var g model.Group
	err := r.DB.WithContext(ctx).First(&g, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkg.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &g, nil
}

func (r *GroupRepository) NameExists(ctx context.Context, name string) (bool, error) {
	var n int64
	err := r.DB.WithContext(ctx).Model(&model.Group{}).Where("name = ?", name).Count(&n).Error
	return n > 0, err
}

func (r *GroupRepository) List(ctx context.Context, offset, limit int) ([]model.Group, error) {
	var list []model.Group
	err := r.DB.WithContext(ctx).Order("id DESC").Offset(offset).Limit(limit).Find(&list).Error
	return list, err
}

// Get 成员关系，不存在返回 nil
func (r *GroupMemberRepository) Get(ctx context.Context, groupID, userID uint64) (*model.GroupMembership, error) {
	var m model.GroupMembership
	err := r.DB.WithContext(ctx).
		Where("group_id = ? AND user_id = ?", groupID, userID).
		First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// Join 加入小组（幂等）；被封禁的成员不能重新加入
func (r *GroupMemberRepository) Join(ctx context.Context, groupID, userID uint64) (bool, error) {
	var changed bool
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := time.Now()
		m := model.GroupMembership{
			GroupID:     groupID,
			UserID:      userID,
			Status:      model.MembershipActive,
			Role:        model.MemberRoleMember,
			Permissions: model.DefaultPermissions(model.MemberRoleMember),
			JoinedAt:    &now,
		}
		res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&m)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 1 {
			changed = true
			return nil
		}

		var cur model.GroupMembership
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("group_id = ? AND user_id = ?", groupID, userID).
			First(&cur).Error; err != nil {
			return err
		}
		switch cur.Status {
		case model.MembershipActive:
			return nil
		case model.MembershipBanned:
			return pkg.ErrForbidden
		}
		upd := tx.Model(&model.GroupMembership{}).
			Where("id = ? AND status = ?", cur.ID, cur.Status).
			Updates(map[string]any{"status": model.MembershipActive, "joined_at": now})
		if upd.Error != nil {
			return upd.Error
		}
		changed = upd.RowsAffected > 0
		return nil
	})
	return changed, err
}

// Leave 退出小组，保留记录
func (r *GroupMemberRepository) Leave(ctx context.Context, groupID, userID uint64) (bool, error) {
	res := r.DB.WithContext(ctx).Model(&model.GroupMembership{}).
		Where("group_id = ? AND user_id = ? AND status = ?", groupID, userID, model.MembershipActive).
		Update("status", model.MembershipLeft)
	return res.RowsAffected > 0, res.Error
}

// Update 修改成员角色与状态，角色变化时权限重置为角色默认值
func (r *GroupMemberRepository) Update(ctx context.Context, groupID, userID uint64, role model.MemberRole, status model.MembershipStatus) error {
	res := r.DB.WithContext(ctx).Model(&model.GroupMembership{}).
		Where("group_id = ? AND user_id = ?", groupID, userID).
		Updates(map[string]any{
			"role":        role,
			"status":      status,
			"permissions": model.DefaultPermissions(role),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return pkg.ErrNotFound
	}
	return nil
}

// ListMembers 活跃成员
func (r *GroupMemberRepository) ListMembers(ctx context.Context, groupID uint64, offset, limit int) ([]model.GroupMembership, error) {
	var list []model.GroupMembership
	err := r.DB.WithContext(ctx).
		Where("group_id = ? AND status = ?", groupID, model.MembershipActive).
		Order("id ASC").
		Offset(offset).
		Limit(limit).
		Find(&list).Error
	return list, err
}
