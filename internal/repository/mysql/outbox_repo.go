package mysql

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/bustedpokemon39/uniclub-sub001/internal/model"
)

type OutboxRepository struct {
	DB *gorm.DB
}

// writeOutbox 在业务事务内写入事件
func writeOutbox(tx *gorm.DB, event, aggregateType string, aggregateID, actorID uint64, fields map[string]any) error {
	body := map[string]any{
		"event_time": time.Now().UTC().Format(time.RFC3339Nano),
		"actor_id":   actorID,
	}
	for k, v := range fields {
		body[k] = v
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}
	ob := &model.Outbox{
		EventID:       uuid.NewString(),
		EventType:     event,
		AggregateType: aggregateType,
		AggregateID:   aggregateID,
		ActorID:       actorID,
		Payload:       string(payload),
		Status:        model.OutboxPending,
	}
	return tx.Create(ob).Error
}

// List 待投递事件，按写入顺序
func (r *OutboxRepository) List(ctx context.Context, batchSize int) ([]model.Outbox, error) {
	var list []model.Outbox
	if err := r.DB.WithContext(ctx).
		Where("status = ?", model.OutboxPending).
		Order("id ASC").
		Limit(batchSize).
		Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

// RetryUpdate 投递失败：重试次数 +1，达到上限后标记失败
func (r *OutboxRepository) RetryUpdate(ctx context.Context, id uint64, maxRetry int) error {
	db := r.DB.WithContext(ctx)
	if err := db.Model(&model.Outbox{}).Where("id = ?", id).
		UpdateColumn("retry", gorm.Expr("retry + 1")).Error; err != nil {
		return err
	}
	return db.Model(&model.Outbox{}).Where("id = ? AND retry >= ?", id, maxRetry).
		UpdateColumn("status", model.OutboxFailed).Error
}

// SuccessUpdate 投递成功
func (r *OutboxRepository) SuccessUpdate(ctx context.Context, id uint64) error {
	return r.DB.WithContext(ctx).Model(&model.Outbox{}).Where("id = ?", id).
		Update("status", model.OutboxSent).Error
}
