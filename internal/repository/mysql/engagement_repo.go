package mysql

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/bustedpokemon39/uniclub-sub001/internal/model"
)

// errLostRace 条件翻转未命中，说明另一个写入先于本次完成
var errLostRace = errors.New("engagement: concurrent flip")

const maxApplyAttempts = 3

type EngagementRepository struct {
	DB *gorm.DB
}

// Target 根据当前状态给出期望状态
type Target func(current bool) bool

func Flip(current bool) bool { return !current }

func SetTo(active bool) Target {
	return func(bool) bool { return active }
}

// Apply 单事务内：补齐唯一行 -> 行锁读取 -> 条件翻转 -> 计数增减 -> 写 outbox。
// 条件更新落空或遇到死锁时整体重试，重试时重新读取当前状态。
func (r *EngagementRepository) Apply(ctx context.Context, k model.EngagementKey, target Target) (model.EngagementState, error) {
	if !k.ContentType.IsItem() {
		return model.EngagementState{}, ErrUnknownContentType
	}
	var (
		st  model.EngagementState
		err error
	)
	for attempt := 0; attempt < maxApplyAttempts; attempt++ {
		st, err = r.applyOnce(ctx, k, target)
		if !errors.Is(err, errLostRace) && !isRetryable(err) {
			return st, err
		}
	}
	return st, err
}

func (r *EngagementRepository) applyOnce(ctx context.Context, k model.EngagementKey, target Target) (model.EngagementState, error) {
	var st model.EngagementState
	field := k.Action.Counter()
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		contents := &ContentRepository{DB: tx}
		if _, err := contents.Get(ctx, k.ContentType, k.ContentID); err != nil {
			return err
		}

		// 幂等插入：唯一键已存在则什么也不做
		seed := model.Engagement{
			UserID:      k.UserID,
			ContentType: k.ContentType,
			ContentID:   k.ContentID,
			Action:      k.Action,
			Active:      false,
		}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&seed).Error; err != nil {
			return err
		}

		var row model.Engagement
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("user_id = ? AND content_type = ? AND content_id = ? AND action = ?",
				k.UserID, k.ContentType, k.ContentID, k.Action).
			First(&row).Error; err != nil {
			return err
		}

		want := target(row.Active)
		if want != row.Active {
			res := tx.Model(&model.Engagement{}).
				Where("id = ? AND active = ?", row.ID, row.Active).
				Updates(map[string]any{"active": want, "updated_at": time.Now()})
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return errLostRace
			}
			delta := int64(-1)
			event := model.EventEngagementOff
			if want {
				delta = 1
				event = model.EventEngagementOn
			}
			if err := contents.AdjustCounter(ctx, k.ContentType, k.ContentID, field, delta); err != nil {
				return err
			}
			if err := writeOutbox(tx, event, string(k.ContentType), k.ContentID, k.UserID, map[string]any{
				"action": k.Action,
				"active": want,
			}); err != nil {
				return err
			}
			st.Changed = true
		}
		st.Active = want

		cnt, err := contents.Counter(ctx, k.ContentType, k.ContentID, field)
		if err != nil {
			return err
		}
		st.Count = cnt
		return nil
	})
	return st, err
}

// Flags 用户对某内容的全部互动标记
func (r *EngagementRepository) Flags(ctx context.Context, userID uint64, t model.ContentType, contentID uint64) (model.Flags, error) {
	var actions []model.Action
	err := r.DB.WithContext(ctx).Model(&model.Engagement{}).
		Where("user_id = ? AND content_type = ? AND content_id = ? AND active = ?", userID, t, contentID, true).
		Pluck("action", &actions).Error
	if err != nil {
		return model.Flags{}, err
	}
	var f model.Flags
	for _, a := range actions {
		switch a {
		case model.ActionLike:
			f.Liked = true
		case model.ActionSave:
			f.Saved = true
		case model.ActionShare:
			f.Shared = true
		case model.ActionView:
			f.Viewed = true
		}
	}
	return f, nil
}

// CountActive 台账中处于 active 的行数，即计数的真实值
func (r *EngagementRepository) CountActive(ctx context.Context, t model.ContentType, contentID uint64) (map[model.Action]int64, error) {
	var rows []struct {
		Action model.Action
		N      int64
	}
	err := r.DB.WithContext(ctx).Model(&model.Engagement{}).
		Select("action, COUNT(*) AS n").
		Where("content_type = ? AND content_id = ? AND active = ?", t, contentID, true).
		Group("action").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make(map[model.Action]int64, len(rows))
	for _, row := range rows {
		out[row.Action] = row.N
	}
	return out, nil
}
