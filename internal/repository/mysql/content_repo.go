package mysql

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/bustedpokemon39/uniclub-sub001/internal/model"
	"github.com/bustedpokemon39/uniclub-sub001/internal/pkg"
)

var ErrUnknownContentType = fmt.Errorf("%w: unknown content type", pkg.ErrInvalidArgument)

// accessor 每种内容类型对应的表访问方式
type accessor struct {
	newItem func() model.ContentItem
	list    func(q *gorm.DB) ([]model.ContentItem, error)
}

func newOf[T any, PT interface {
	*T
	model.ContentItem
}]() model.ContentItem {
	return PT(new(T))
}

func listOf[T any, PT interface {
	*T
	model.ContentItem
}](q *gorm.DB) ([]model.ContentItem, error) {
	var rows []T
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]model.ContentItem, len(rows))
	for i := range rows {
		out[i] = PT(&rows[i])
	}
	return out, nil
}

var accessors = map[model.ContentType]accessor{
	model.ContentNews:       {newItem: newOf[model.News], list: listOf[model.News]},
	model.ContentEvent:      {newItem: newOf[model.Event], list: listOf[model.Event]},
	model.ContentResource:   {newItem: newOf[model.Resource], list: listOf[model.Resource]},
	model.ContentSocialPost: {newItem: newOf[model.SocialPost], list: listOf[model.SocialPost]},
}

// 计数字段到列名的白名单
var counterColumns = map[model.CounterField]string{
	model.CounterLikes:    "like_count",
	model.CounterSaves:    "save_count",
	model.CounterShares:   "share_count",
	model.CounterComments: "comment_count",
	model.CounterViews:    "view_count",
}

func lookup(t model.ContentType) (accessor, error) {
	acc, ok := accessors[t]
	if !ok {
		return accessor{}, ErrUnknownContentType
	}
	return acc, nil
}

// NewItem 按类型构造空内容，供创建时填充
func NewItem(t model.ContentType) (model.ContentItem, error) {
	acc, err := lookup(t)
	if err != nil {
		return nil, err
	}
	return acc.newItem(), nil
}

type ContentRepository struct {
	DB *gorm.DB
}

// Get 读取未删除的内容
func (r *ContentRepository) Get(ctx context.Context, t model.ContentType, id uint64) (model.ContentItem, error) {
	acc, err := lookup(t)
	if err != nil {
		return nil, err
	}
	item := acc.newItem()
	err = r.DB.WithContext(ctx).
		Where("id = ? AND status <> ?", id, model.ContentStatusDeleted).
		First(item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkg.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return item, nil
}

func (r *ContentRepository) Create(ctx context.Context, item model.ContentItem) error {
	if _, err := lookup(item.Type()); err != nil {
		return err
	}
	return r.DB.WithContext(ctx).Create(item).Error
}

// AdjustCounter 单条 UPDATE 做增量，多个并发增量可叠加
func (r *ContentRepository) AdjustCounter(ctx context.Context, t model.ContentType, id uint64, field model.CounterField, delta int64) error {
	acc, err := lookup(t)
	if err != nil {
		return err
	}
	col, ok := counterColumns[field]
	if !ok {
		return fmt.Errorf("%w: unknown counter %q", pkg.ErrInvalidArgument, field)
	}
	res := r.DB.WithContext(ctx).Model(acc.newItem()).
		Where("id = ?", id).
		UpdateColumn(col, gorm.Expr(clampAdd(col), delta, delta))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return pkg.ErrNotFound
	}
	return nil
}

// Counter 读取单个计数
func (r *ContentRepository) Counter(ctx context.Context, t model.ContentType, id uint64, field model.CounterField) (int64, error) {
	acc, err := lookup(t)
	if err != nil {
		return 0, err
	}
	col, ok := counterColumns[field]
	if !ok {
		return 0, fmt.Errorf("%w: unknown counter %q", pkg.ErrInvalidArgument, field)
	}
	var vals []int64
	if err := r.DB.WithContext(ctx).Model(acc.newItem()).Where("id = ?", id).Pluck(col, &vals).Error; err != nil {
		return 0, err
	}
	if len(vals) == 0 {
		return 0, pkg.ErrNotFound
	}
	return vals[0], nil
}

// SetCounter 对账时直接覆盖
func (r *ContentRepository) SetCounter(ctx context.Context, t model.ContentType, id uint64, field model.CounterField, value int64) error {
	acc, err := lookup(t)
	if err != nil {
		return err
	}
	col, ok := counterColumns[field]
	if !ok {
		return fmt.Errorf("%w: unknown counter %q", pkg.ErrInvalidArgument, field)
	}
	return r.DB.WithContext(ctx).Model(acc.newItem()).Where("id = ?", id).UpdateColumn(col, value).Error
}

// SoftDelete 状态置为 deleted，幂等；返回是否本次发生变化
func (r *ContentRepository) SoftDelete(ctx context.Context, t model.ContentType, id, actorID uint64) (bool, error) {
	acc, err := lookup(t)
	if err != nil {
		return false, err
	}
	var changed bool
	err = r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(acc.newItem()).
			Where("id = ? AND status <> ?", id, model.ContentStatusDeleted).
			Update("status", model.ContentStatusDeleted)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		changed = true
		return writeOutbox(tx, model.EventContentDeleted, string(t), id, actorID, nil)
	})
	return changed, err
}

// SetStatus 审核用：active/hidden
func (r *ContentRepository) SetStatus(ctx context.Context, t model.ContentType, id uint64, status string) error {
	acc, err := lookup(t)
	if err != nil {
		return err
	}
	res := r.DB.WithContext(ctx).Model(acc.newItem()).
		Where("id = ? AND status <> ?", id, model.ContentStatusDeleted).
		Update("status", status)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return pkg.ErrNotFound
	}
	return nil
}

// List 按时间倒序列出可展示的内容
func (r *ContentRepository) List(ctx context.Context, t model.ContentType, offset, limit int) ([]model.ContentItem, error) {
	acc, err := lookup(t)
	if err != nil {
		return nil, err
	}
	q := r.DB.WithContext(ctx).Model(acc.newItem()).
		Where("status = ?", model.ContentStatusActive).
		Order("created_at DESC, id DESC").
		Offset(offset).
		Limit(limit)
	return acc.list(q)
}

// IDsAfter 对账批次
func (r *ContentRepository) IDsAfter(ctx context.Context, t model.ContentType, lastID uint64, limit int) ([]uint64, error) {
	acc, err := lookup(t)
	if err != nil {
		return nil, err
	}
	var ids []uint64
	err = r.DB.WithContext(ctx).Model(acc.newItem()).
		Where("id > ?", lastID).
		Order("id ASC").
		Limit(limit).
		Pluck("id", &ids).Error
	return ids, err
}
