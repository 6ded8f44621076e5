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

type CommentRepository struct {
	DB *gorm.DB
}

var listedStatuses = []model.CommentStatus{model.CommentActive, model.CommentFlagged}

// Create 插入评论，同事务内内容的评论数 +1
func (r *CommentRepository) Create(ctx context.Context, c *model.Comment) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		contents := &ContentRepository{DB: tx}
		if _, err := contents.Get(ctx, c.ContentType, c.ContentID); err != nil {
			return err
		}
		if err := tx.Create(c).Error; err != nil {
			return err
		}
		if err := contents.AdjustCounter(ctx, c.ContentType, c.ContentID, model.CounterComments, 1); err != nil {
			return err
		}
		return writeOutbox(tx, model.EventCommentAdded, string(c.ContentType), c.ContentID, c.AuthorID, map[string]any{
			"comment_id": c.ID,
			"parent_id":  c.ParentCommentID,
		})
	})
}

// FindByID 未删除的评论
func (r *CommentRepository) FindByID(ctx context.Context, id uint64) (*model.Comment, error) {
	var c model.Comment
	err := r.DB.WithContext(ctx).
		Where("id = ? AND status <> ?", id, model.CommentDeleted).
		First(&c).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkg.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// List parent 为 nil 时列出顶层评论，否则列出该评论的直接回复
func (r *CommentRepository) List(ctx context.Context, t model.ContentType, contentID uint64, parent *uint64,
	sort model.CommentSort, offset, limit int) ([]model.Comment, int64, error) {
	q := r.DB.WithContext(ctx).Model(&model.Comment{}).
		Where("content_type = ? AND content_id = ? AND status IN ?", t, contentID, listedStatuses)
	if parent == nil {
		q = q.Where("parent_comment_id IS NULL")
	} else {
		q = q.Where("parent_comment_id = ?", *parent)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	switch sort {
	case model.SortOldest:
		q = q.Order("created_at ASC, id ASC")
	case model.SortMostLiked:
		q = q.Order("like_count DESC, id DESC")
	default:
		q = q.Order("created_at DESC, id DESC")
	}
	var list []model.Comment
	if err := q.Offset(offset).Limit(limit).Find(&list).Error; err != nil {
		return nil, 0, err
	}
	return list, total, nil
}

// UpdateText 编辑评论
func (r *CommentRepository) UpdateText(ctx context.Context, id uint64, text string) (time.Time, error) {
	now := time.Now()
	res := r.DB.WithContext(ctx).Model(&model.Comment{}).
		Where("id = ? AND status <> ?", id, model.CommentDeleted).
		Updates(map[string]any{"text": text, "is_edited": true, "edited_at": now})
	if res.Error != nil {
		return now, res.Error
	}
	if res.RowsAffected == 0 {
		return now, pkg.ErrNotFound
	}
	return now, nil
}

// SetStatus 审核：flagged / hidden / active
func (r *CommentRepository) SetStatus(ctx context.Context, id uint64, status model.CommentStatus) error {
	res := r.DB.WithContext(ctx).Model(&model.Comment{}).
		Where("id = ? AND status <> ?", id, model.CommentDeleted).
		Update("status", status)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return pkg.ErrNotFound
	}
	return nil
}

// DeleteTree 物理删除评论及其全部回复（含点赞台账），评论数按删除的行数扣减。
// 返回删除的评论数。
func (r *CommentRepository) DeleteTree(ctx context.Context, root *model.Comment, actorID uint64) (int64, error) {
	var removed int64
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ids := []uint64{root.ID}
		level := []uint64{root.ID}
		for len(level) > 0 {
			var next []uint64
			if err := tx.Model(&model.Comment{}).
				Where("parent_comment_id IN ?", level).
				Pluck("id", &next).Error; err != nil {
				return err
			}
			ids = append(ids, next...)
			level = next
		}

		var counted int64
		if err := tx.Model(&model.Comment{}).
			Where("id IN ? AND status <> ?", ids, model.CommentDeleted).
			Count(&counted).Error; err != nil {
			return err
		}
		if err := tx.Where("comment_id IN ?", ids).Delete(&model.CommentLike{}).Error; err != nil {
			return err
		}
		res := tx.Where("id IN ?", ids).Delete(&model.Comment{})
		if res.Error != nil {
			return res.Error
		}
		removed = res.RowsAffected
		if removed == 0 {
			return nil
		}

		contents := &ContentRepository{DB: tx}
		if counted > 0 {
			err := contents.AdjustCounter(ctx, root.ContentType, root.ContentID, model.CounterComments, -counted)
			// 内容已被删除时计数无需再维护
			if err != nil && !errors.Is(err, pkg.ErrNotFound) {
				return err
			}
		}
		return writeOutbox(tx, model.EventCommentRemoved, string(root.ContentType), root.ContentID, actorID, map[string]any{
			"comment_id": root.ID,
			"removed":    removed,
		})
	})
	return removed, err
}

// ApplyLike 评论点赞台账，流程与内容互动一致
func (r *CommentRepository) ApplyLike(ctx context.Context, commentID, userID uint64, target Target) (model.EngagementState, error) {
	var (
		st  model.EngagementState
		err error
	)
	for attempt := 0; attempt < maxApplyAttempts; attempt++ {
		st, err = r.applyLikeOnce(ctx, commentID, userID, target)
		if !errors.Is(err, errLostRace) && !isRetryable(err) {
			return st, err
		}
	}
	return st, err
}

func (r *CommentRepository) applyLikeOnce(ctx context.Context, commentID, userID uint64, target Target) (model.EngagementState, error) {
	var st model.EngagementState
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		comments := &CommentRepository{DB: tx}
		c, err := comments.FindByID(ctx, commentID)
		if err != nil {
			return err
		}

		seed := model.CommentLike{CommentID: commentID, UserID: userID, Active: false}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&seed).Error; err != nil {
			return err
		}
		var row model.CommentLike
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("comment_id = ? AND user_id = ?", commentID, userID).
			First(&row).Error; err != nil {
			return err
		}

		want := target(row.Active)
		if want != row.Active {
			res := tx.Model(&model.CommentLike{}).
				Where("id = ? AND active = ?", row.ID, row.Active).
				Updates(map[string]any{"active": want, "updated_at": time.Now()})
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return errLostRace
			}
			delta := int64(-1)
			event := model.EventCommentUnliked
			if want {
				delta = 1
				event = model.EventCommentLiked
			}
			if err := tx.Model(&model.Comment{}).Where("id = ?", commentID).
				UpdateColumn("like_count", gorm.Expr(clampAdd("like_count"), delta, delta)).Error; err != nil {
				return err
			}
			if err := writeOutbox(tx, event, string(model.ContentComment), commentID, userID, map[string]any{
				"content_type": c.ContentType,
				"content_id":   c.ContentID,
			}); err != nil {
				return err
			}
			st.Changed = true
		}
		st.Active = want

		var counts []int64
		if err := tx.Model(&model.Comment{}).Where("id = ?", commentID).Pluck("like_count", &counts).Error; err != nil {
			return err
		}
		if len(counts) > 0 {
			st.Count = counts[0]
		}
		return nil
	})
	return st, err
}

// LikedBy 某用户在一批评论中点过赞的评论 id
func (r *CommentRepository) LikedBy(ctx context.Context, userID uint64, commentIDs []uint64) (map[uint64]bool, error) {
	out := make(map[uint64]bool)
	if userID == 0 || len(commentIDs) == 0 {
		return out, nil
	}
	var ids []uint64
	if err := r.DB.WithContext(ctx).Model(&model.CommentLike{}).
		Where("user_id = ? AND comment_id IN ? AND active = ?", userID, commentIDs, true).
		Pluck("comment_id", &ids).Error; err != nil {
		return nil, err
	}
	for _, id := range ids {
		out[id] = true
	}
	return out, nil
}
