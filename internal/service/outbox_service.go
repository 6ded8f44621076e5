package service

import (
	"context"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/bustedpokemon39/uniclub-sub001/internal/config"
	"github.com/bustedpokemon39/uniclub-sub001/internal/model"
	"github.com/bustedpokemon39/uniclub-sub001/internal/pkg"
	"github.com/bustedpokemon39/uniclub-sub001/internal/repository/mysql"
)

type Sender func(ctx context.Context, ob *model.Outbox) error

// OutboxRelayer 从 outbox 表读取事件交给 sender 投递
type OutboxRelayer struct {
	repo      *mysql.OutboxRepository
	batchSize int
	interval  time.Duration
	maxRetry  int
	sender    Sender
	log       *zap.Logger
}

func NewOutboxRelayer(db *gorm.DB, cfg config.OutboxConfig, sender Sender, log *zap.Logger) *OutboxRelayer {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 200
	}
	if cfg.Interval <= 0 {
		cfg.Interval = time.Second
	}
	if cfg.MaxRetry <= 0 {
		cfg.MaxRetry = 5
	}
	if sender == nil {
		sender = LogSender(log)
	}
	return &OutboxRelayer{
		repo:      &mysql.OutboxRepository{DB: db},
		batchSize: cfg.BatchSize,
		interval:  cfg.Interval,
		maxRetry:  cfg.MaxRetry,
		sender:    sender,
		log:       log,
	}
}

// Run 定时投递，ctx 取消后退出
func (r *OutboxRelayer) Run(ctx context.Context) error {
	t := time.NewTicker(r.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
			r.DrainOnce(ctx)
		}
	}
}

// DrainOnce 投递一批，返回成功条数
func (r *OutboxRelayer) DrainOnce(ctx context.Context) int {
	rows, err := r.repo.List(ctx, r.batchSize)
	if err != nil {
		r.log.Error("outbox query failed", zap.Error(err))
		return 0
	}
	sent := 0
	for i := range rows {
		ob := rows[i]
		if err := r.sender(ctx, &ob); err != nil {
			pkg.OutboxRelayed.WithLabelValues("error").Inc()
			r.log.Warn("outbox send failed", zap.Uint64("id", ob.ID), zap.String("event", ob.EventType), zap.Error(err))
			if err := r.repo.RetryUpdate(ctx, ob.ID, r.maxRetry); err != nil {
				r.log.Error("outbox retry update failed", zap.Uint64("id", ob.ID), zap.Error(err))
			}
			continue
		}
		pkg.OutboxRelayed.WithLabelValues("sent").Inc()
		if err := r.repo.SuccessUpdate(ctx, ob.ID); err != nil {
			r.log.Error("outbox success update failed", zap.Uint64("id", ob.ID), zap.Error(err))
			continue
		}
		sent++
	}
	return sent
}

// LogSender 未配置 kafka 时只打印事件
func LogSender(log *zap.Logger) Sender {
	return func(ctx context.Context, ob *model.Outbox) error {
		log.Info("outbox event",
			zap.String("event_id", ob.EventID),
			zap.String("type", ob.EventType),
			zap.String("aggregate", ob.AggregateType),
			zap.Uint64("aggregate_id", ob.AggregateID),
			zap.Uint64("actor_id", ob.ActorID),
			zap.String("payload", ob.Payload),
		)
		return nil
	}
}

// EventProducer kafka 生产者
type EventProducer interface {
	Send(ctx context.Context, key string, value []byte, headers map[string]string) error
}

// KafkaSender 以聚合根为 key，同一内容的事件落在同一分区
func KafkaSender(p EventProducer) Sender {
	return func(ctx context.Context, ob *model.Outbox) error {
		return p.Send(ctx, pkg.MakeContentKey(ob.AggregateType, ob.AggregateID), []byte(ob.Payload), map[string]string{
			"event_id":   ob.EventID,
			"event_type": ob.EventType,
		})
	}
}
