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

type FollowRepository struct {
	DB *gorm.DB
}

// 计入关注数的状态
var followingStatuses = []model.RelationStatus{model.RelationAccepted, model.RelationMuted}

// lockEdge select for update 读取一条边，不存在返回 nil
func lockEdge(tx *gorm.DB, followerID, followingID uint64) (*model.Follow, error) {
	var rel model.Follow
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("follower_id = ? AND following_id = ?", followerID, followingID).
		First(&rel).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rel, nil
}

// Follow 关注（幂等）。autoAccept=false 时建立 pending 边，等待对方同意。
// 已存在的边原样返回；自己拉黑过对方返回 ErrConflict。
func (r *FollowRepository) Follow(ctx context.Context, followerID, followingID uint64, autoAccept bool) (bool, model.RelationStatus, error) {
	var (
		changed bool
		status  model.RelationStatus
	)
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := time.Now()
		rel := model.Follow{
			FollowerID:       followerID,
			FollowingID:      followingID,
			Status:           model.RelationPending,
			RelationshipType: model.RelationTypeFollow,
		}
		if autoAccept {
			rel.Status = model.RelationAccepted
			rel.AcceptedAt = &now
		}
		res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&rel)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 1 {
			changed = true
			status = rel.Status
			if rel.Status != model.RelationAccepted {
				return nil
			}
			if err := r.adjustCounts(tx, followerID, followingID, +1); err != nil {
				return err
			}
			return writeOutbox(tx, model.EventFollow, "user", followingID, followerID, nil)
		}

		// 已经有边了，做幂等
		existing, err := lockEdge(tx, followerID, followingID)
		if err != nil {
			return err
		}
		if existing == nil {
			return pkg.ErrUnavailable
		}
		if existing.Status == model.RelationBlocked {
			return pkg.ErrConflict
		}
		status = existing.Status
		return nil
	})
	return changed, status, err
}

// Accept 被关注者同意 pending 请求
func (r *FollowRepository) Accept(ctx context.Context, followingID, followerID uint64) (bool, error) {
	var changed bool
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&model.Follow{}).
			Where("follower_id = ? AND following_id = ? AND status = ?", followerID, followingID, model.RelationPending).
			Updates(map[string]any{"status": model.RelationAccepted, "accepted_at": time.Now()})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		changed = true
		if err := r.adjustCounts(tx, followerID, followingID, +1); err != nil {
			return err
		}
		return writeOutbox(tx, model.EventFollow, "user", followingID, followerID, nil)
	})
	return changed, err
}

// Reject 拒绝 pending 请求，直接删除
func (r *FollowRepository) Reject(ctx context.Context, followingID, followerID uint64) (bool, error) {
	res := r.DB.WithContext(ctx).
		Where("follower_id = ? AND following_id = ? AND status = ?", followerID, followingID, model.RelationPending).
		Delete(&model.Follow{})
	return res.RowsAffected > 0, res.Error
}

// Unfollow 删除关注边；拉黑边不受影响
func (r *FollowRepository) Unfollow(ctx context.Context, followerID, followingID uint64) (bool, error) {
	var changed bool
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		rel, err := lockEdge(tx, followerID, followingID)
		if err != nil {
			return err
		}
		if rel == nil || rel.Status == model.RelationBlocked {
			return nil
		}
		changed, err = r.removeEdge(tx, rel)
		return err
	})
	return changed, err
}

// removeEdge 删除一条非拉黑边，计入关注的同步扣减计数
func (r *FollowRepository) removeEdge(tx *gorm.DB, rel *model.Follow) (bool, error) {
	res := tx.Where("id = ? AND status = ?", rel.ID, rel.Status).Delete(&model.Follow{})
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected == 0 {
		return false, nil
	}
	if !rel.Following() {
		return true, nil
	}
	if err := r.adjustCounts(tx, rel.FollowerID, rel.FollowingID, -1); err != nil {
		return false, err
	}
	return true, writeOutbox(tx, model.EventUnfollow, "user", rel.FollowingID, rel.FollowerID, nil)
}

// Block 拉黑：自己的边置为 blocked，对方指向自己的关注边删除
func (r *FollowRepository) Block(ctx context.Context, blockerID, blockedID uint64) (bool, error) {
	var changed bool
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := time.Now()
		edge := model.Follow{
			FollowerID:       blockerID,
			FollowingID:      blockedID,
			Status:           model.RelationBlocked,
			RelationshipType: model.RelationTypeBlock,
			BlockedAt:        &now,
		}
		res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&edge)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 1 {
			changed = true
		} else {
			rel, err := lockEdge(tx, blockerID, blockedID)
			if err != nil {
				return err
			}
			if rel == nil {
				return pkg.ErrUnavailable
			}
			if rel.Status != model.RelationBlocked {
				upd := tx.Model(&model.Follow{}).
					Where("id = ? AND status = ?", rel.ID, rel.Status).
					Updates(map[string]any{
						"status":            model.RelationBlocked,
						"relationship_type": model.RelationTypeBlock,
						"blocked_at":        now,
					})
				if upd.Error != nil {
					return upd.Error
				}
				if upd.RowsAffected > 0 {
					changed = true
					if rel.Following() {
						if err := r.adjustCounts(tx, blockerID, blockedID, -1); err != nil {
							return err
						}
					}
				}
			}
		}

		reverse, err := lockEdge(tx, blockedID, blockerID)
		if err != nil {
			return err
		}
		if reverse != nil && reverse.Status != model.RelationBlocked {
			if _, err := r.removeEdge(tx, reverse); err != nil {
				return err
			}
		}
		if !changed {
			return nil
		}
		return writeOutbox(tx, model.EventBlock, "user", blockedID, blockerID, nil)
	})
	return changed, err
}

// Unblock 删除拉黑边，不恢复之前的关注
func (r *FollowRepository) Unblock(ctx context.Context, blockerID, blockedID uint64) (bool, error) {
	res := r.DB.WithContext(ctx).
		Where("follower_id = ? AND following_id = ? AND status = ?", blockerID, blockedID, model.RelationBlocked).
		Delete(&model.Follow{})
	return res.RowsAffected > 0, res.Error
}

// Mute 静音已关注的人，计数不变
func (r *FollowRepository) Mute(ctx context.Context, followerID, followingID uint64) (bool, error) {
	res := r.DB.WithContext(ctx).Model(&model.Follow{}).
		Where("follower_id = ? AND following_id = ? AND status = ?", followerID, followingID, model.RelationAccepted).
		Updates(map[string]any{"status": model.RelationMuted, "muted_at": time.Now()})
	return res.RowsAffected > 0, res.Error
}

func (r *FollowRepository) Unmute(ctx context.Context, followerID, followingID uint64) (bool, error) {
	res := r.DB.WithContext(ctx).Model(&model.Follow{}).
		Where("follower_id = ? AND following_id = ? AND status = ?", followerID, followingID, model.RelationMuted).
		Updates(map[string]any{"status": model.RelationAccepted, "muted_at": nil})
	return res.RowsAffected > 0, res.Error
}

// Get 读取一条边，不存在返回 nil
func (r *FollowRepository) Get(ctx context.Context, followerID, followingID uint64) (*model.Follow, error) {
	var rel model.Follow
	err := r.DB.WithContext(ctx).
		Where("follower_id = ? AND following_id = ?", followerID, followingID).
		First(&rel).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rel, nil
}

// IsFollowing accepted 或 muted 都算关注
func (r *FollowRepository) IsFollowing(ctx context.Context, followerID, followingID uint64) (bool, error) {
	var n int64
	if err := r.DB.WithContext(ctx).
		Model(&model.Follow{}).
		Where("follower_id = ? AND following_id = ? AND status IN ?", followerID, followingID, followingStatuses).
		Count(&n).Error; err != nil {
		return false, err
	}
	return n > 0, nil
}

// IsBlockedEither 任意一方拉黑了另一方
func (r *FollowRepository) IsBlockedEither(ctx context.Context, a, b uint64) (bool, error) {
	var n int64
	if err := r.DB.WithContext(ctx).
		Model(&model.Follow{}).
		Where("((follower_id = ? AND following_id = ?) OR (follower_id = ? AND following_id = ?)) AND status = ?",
			a, b, b, a, model.RelationBlocked).
		Count(&n).Error; err != nil {
		return false, err
	}
	return n > 0, nil
}

// ListFollowings 关注列表，id 游标倒序
func (r *FollowRepository) ListFollowings(ctx context.Context, userID uint64, cursor uint64, limit int) ([]model.Follow, uint64, error) {
	q := r.DB.WithContext(ctx).Model(&model.Follow{}).
		Where("follower_id = ? AND status IN ?", userID, followingStatuses)
	return pageEdges(q, cursor, limit)
}

// ListFollowers 粉丝列表
func (r *FollowRepository) ListFollowers(ctx context.Context, userID uint64, cursor uint64, limit int) ([]model.Follow, uint64, error) {
	q := r.DB.WithContext(ctx).Model(&model.Follow{}).
		Where("following_id = ? AND status IN ?", userID, followingStatuses)
	return pageEdges(q, cursor, limit)
}

// ListPending 待处理的关注请求
func (r *FollowRepository) ListPending(ctx context.Context, userID uint64, cursor uint64, limit int) ([]model.Follow, uint64, error) {
	q := r.DB.WithContext(ctx).Model(&model.Follow{}).
		Where("following_id = ? AND status = ?", userID, model.RelationPending)
	return pageEdges(q, cursor, limit)
}

func pageEdges(q *gorm.DB, cursor uint64, limit int) ([]model.Follow, uint64, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if cursor > 0 {
		q = q.Where("id < ?", cursor)
	}
	var rows []model.Follow
	// 多取一条判断是否还有下一页
	if err := q.Order("id DESC").Limit(limit + 1).Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	var next uint64
	if len(rows) > limit {
		next = rows[limit-1].ID
		rows = rows[:limit]
	}
	return rows, next, nil
}

// adjustCounts 同步调整关注数与粉丝数
func (r *FollowRepository) adjustCounts(tx *gorm.DB, followerID, followingID uint64, delta int64) error {
	if err := tx.Model(&model.User{}).
		Where("id = ?", followerID).
		UpdateColumn("following_count", gorm.Expr(clampAdd("following_count"), delta, delta)).Error; err != nil {
		return err
	}
	return tx.Model(&model.User{}).
		Where("id = ?", followingID).
		UpdateColumn("follower_count", gorm.Expr(clampAdd("follower_count"), delta, delta)).Error
}
