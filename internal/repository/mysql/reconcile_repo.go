package mysql

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/bustedpokemon39/uniclub-sub001/internal/model"
)

type FollowCountReconcilerRepo struct {
	DB *gorm.DB
}

// Pair 对账批次中的用户计数
type Pair struct {
	ID             uint64
	FollowingCount int64
	FollowerCount  int64
}

// ReconcileList 按 id 分批读取用户计数
func (r *FollowCountReconcilerRepo) ReconcileList(ctx context.Context, batchSize int, lastID uint64) ([]Pair, uint64, error) {
	var list []Pair
	if err := r.DB.WithContext(ctx).Model(&model.User{}).
		Select("id", "following_count", "follower_count").
		Where("id > ?", lastID).
		Order("id ASC").
		Limit(batchSize).
		Find(&list).Error; err != nil {
		return nil, lastID, err
	}
	if len(list) == 0 {
		return nil, lastID, nil
	}
	return list, list[len(list)-1].ID, nil
}

// RealFollowers 指向该用户的关注边数量
func (r *FollowCountReconcilerRepo) RealFollowers(ctx context.Context, userID uint64) (int64, error) {
	var n int64
	err := r.DB.WithContext(ctx).Model(&model.Follow{}).
		Where("following_id = ? AND status IN ?", userID, followingStatuses).
		Count(&n).Error
	return n, err
}

// RealFollowings 该用户发出的关注边数量
func (r *FollowCountReconcilerRepo) RealFollowings(ctx context.Context, userID uint64) (int64, error) {
	var n int64
	err := r.DB.WithContext(ctx).Model(&model.Follow{}).
		Where("follower_id = ? AND status IN ?", userID, followingStatuses).
		Count(&n).Error
	return n, err
}

// FixUser 锁住用户行后重算关注计数并覆盖，返回被修正的计数名
func (r *FollowCountReconcilerRepo) FixUser(ctx context.Context, userID uint64) ([]string, error) {
	var fixed []string
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var u model.User
		// 关注写入在同一事务内更新用户行，持锁期间的并发增量会在提交后叠加
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Select("id", "follower_count", "following_count").
			Where("id = ?", userID).
			First(&u).Error; err != nil {
			return err
		}
		repo := &FollowCountReconcilerRepo{DB: tx}
		followers, err := repo.RealFollowers(ctx, userID)
		if err != nil {
			return err
		}
		followings, err := repo.RealFollowings(ctx, userID)
		if err != nil {
			return err
		}
		updates := map[string]any{}
		if followers != u.FollowerCount {
			updates["follower_count"] = followers
			fixed = append(fixed, "followers")
		}
		if followings != u.FollowingCount {
			updates["following_count"] = followings
			fixed = append(fixed, "followings")
		}
		if len(updates) == 0 {
			return nil
		}
		return tx.Model(&model.User{}).Where("id = ?", userID).UpdateColumns(updates).Error
	})
	if err != nil {
		return nil, err
	}
	return fixed, nil
}

// ContentCounterReconcilerRepo 内容计数对账，以台账行为准
type ContentCounterReconcilerRepo struct {
	DB *gorm.DB
}

// RealStats 从互动台账与评论表重新统计
func (r *ContentCounterReconcilerRepo) RealStats(ctx context.Context, t model.ContentType, id uint64) (model.Stats, error) {
	engagements := &EngagementRepository{DB: r.DB}
	byAction, err := engagements.CountActive(ctx, t, id)
	if err != nil {
		return model.Stats{}, err
	}
	var comments int64
	if err := r.DB.WithContext(ctx).Model(&model.Comment{}).
		Where("content_type = ? AND content_id = ? AND status <> ?", t, id, model.CommentDeleted).
		Count(&comments).Error; err != nil {
		return model.Stats{}, err
	}
	return model.Stats{
		Likes:    byAction[model.ActionLike],
		Saves:    byAction[model.ActionSave],
		Shares:   byAction[model.ActionShare],
		Comments: comments,
		Views:    byAction[model.ActionView],
	}, nil
}

// StoredStats 读取内容行上的计数，已删除的内容也参与对账
func (r *ContentCounterReconcilerRepo) StoredStats(ctx context.Context, t model.ContentType, id uint64) (model.Stats, error) {
	acc, err := lookup(t)
	if err != nil {
		return model.Stats{}, err
	}
	item := acc.newItem()
	if err := r.DB.WithContext(ctx).Where("id = ?", id).First(item).Error; err != nil {
		return model.Stats{}, err
	}
	return item.Base().Stats(), nil
}

// IDsAfter 对账批次
func (r *ContentCounterReconcilerRepo) IDsAfter(ctx context.Context, t model.ContentType, lastID uint64, limit int) ([]uint64, error) {
	contents := &ContentRepository{DB: r.DB}
	return contents.IDsAfter(ctx, t, lastID, limit)
}

// Fix 锁住内容行后重新统计，只覆盖与台账不一致的计数，返回被修正的字段
func (r *ContentCounterReconcilerRepo) Fix(ctx context.Context, t model.ContentType, id uint64) ([]model.CounterField, error) {
	acc, err := lookup(t)
	if err != nil {
		return nil, err
	}
	var fixed []model.CounterField
	err = r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		item := acc.newItem()
		// 台账翻转通过 AdjustCounter 持有同一行锁
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("id = ?", id).First(item).Error; err != nil {
			return err
		}
		actual, err := (&ContentCounterReconcilerRepo{DB: tx}).RealStats(ctx, t, id)
		if err != nil {
			return err
		}
		stored := item.Base().Stats()
		contents := &ContentRepository{DB: tx}
		for _, d := range []struct {
			field      model.CounterField
			want, have int64
		}{
			{model.CounterLikes, actual.Likes, stored.Likes},
			{model.CounterSaves, actual.Saves, stored.Saves},
			{model.CounterShares, actual.Shares, stored.Shares},
			{model.CounterComments, actual.Comments, stored.Comments},
			{model.CounterViews, actual.Views, stored.Views},
		} {
			if d.want == d.have {
				continue
			}
			if err := contents.SetCounter(ctx, t, id, d.field, d.want); err != nil {
				return err
			}
			fixed = append(fixed, d.field)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return fixed, nil
}

// FixCommentLikes 按批找出与点赞台账不一致的评论，逐条加锁重算，返回修正条数与游标
func (r *ContentCounterReconcilerRepo) FixCommentLikes(ctx context.Context, lastID uint64, limit int) (int, uint64, error) {
	var rows []struct {
		ID        uint64
		LikeCount int64
		RealCount int64
	}
	err := r.DB.WithContext(ctx).Model(&model.Comment{}).
		Select("comments.id, comments.like_count, " +
			"(SELECT COUNT(*) FROM comment_likes WHERE comment_likes.comment_id = comments.id AND comment_likes.active = ?) AS real_count", true).
		Where("comments.id > ?", lastID).
		Order("comments.id ASC").
		Limit(limit).
		Scan(&rows).Error
	if err != nil || len(rows) == 0 {
		return 0, lastID, err
	}
	fixed := 0
	for _, row := range rows {
		if row.LikeCount == row.RealCount {
			continue
		}
		changed, err := r.fixCommentLike(ctx, row.ID)
		if err != nil {
			return fixed, lastID, err
		}
		if changed {
			fixed++
		}
	}
	return fixed, rows[len(rows)-1].ID, nil
}

func (r *ContentCounterReconcilerRepo) fixCommentLike(ctx context.Context, commentID uint64) (bool, error) {
	var changed bool
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var c model.Comment
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Select("id", "like_count").
			Where("id = ?", commentID).
			First(&c).Error; err != nil {
			return err
		}
		var n int64
		if err := tx.Model(&model.CommentLike{}).
			Where("comment_id = ? AND active = ?", commentID, true).
			Count(&n).Error; err != nil {
			return err
		}
		if n == c.LikeCount {
			return nil
		}
		changed = true
		return tx.Model(&model.Comment{}).Where("id = ?", commentID).UpdateColumn("like_count", n).Error
	})
	return changed, err
}
