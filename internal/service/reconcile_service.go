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

// CounterReconciler 定时以关系边与台账为准修正冗余计数
type CounterReconciler struct {
	follows   *mysql.FollowCountReconcilerRepo
	contents  *mysql.ContentCounterReconcilerRepo
	cache     StatsCache
	batchSize int
	interval  time.Duration
	log       *zap.Logger
}

func NewCounterReconciler(db *gorm.DB, cfg config.ReconcileConfig, cache StatsCache, log *zap.Logger) *CounterReconciler {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 500
	}
	if cfg.Interval <= 0 {
		cfg.Interval = 5 * time.Minute
	}
	return &CounterReconciler{
		follows:   &mysql.FollowCountReconcilerRepo{DB: db},
		contents:  &mysql.ContentCounterReconcilerRepo{DB: db},
		cache:     cache,
		batchSize: cfg.BatchSize,
		interval:  cfg.Interval,
		log:       log,
	}
}

func (r *CounterReconciler) Run(ctx context.Context) error {
	t := time.NewTicker(r.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
			r.ReconcileOnce(ctx)
		}
	}
}

// ReconcileOnce 完整扫描一轮，返回修正的计数个数
func (r *CounterReconciler) ReconcileOnce(ctx context.Context) int {
	fixed := r.reconcileUsers(ctx)
	for _, t := range model.ItemTypes() {
		fixed += r.reconcileContent(ctx, t)
	}
	fixed += r.reconcileCommentLikes(ctx)
	return fixed
}

func (r *CounterReconciler) reconcileUsers(ctx context.Context) int {
	fixed := 0
	var lastID uint64
	for ctx.Err() == nil {
		users, next, err := r.follows.ReconcileList(ctx, r.batchSize, lastID)
		if err != nil {
			r.log.Error("reconcile user list failed", zap.Error(err))
			return fixed
		}
		if len(users) == 0 {
			return fixed
		}
		lastID = next
		for _, u := range users {
			followers, err := r.follows.RealFollowers(ctx, u.ID)
			if err != nil {
				r.log.Warn("reconcile followers count failed", zap.Uint64("user_id", u.ID), zap.Error(err))
				continue
			}
			followings, err := r.follows.RealFollowings(ctx, u.ID)
			if err != nil {
				r.log.Warn("reconcile followings count failed", zap.Uint64("user_id", u.ID), zap.Error(err))
				continue
			}
			if followers == u.FollowerCount && followings == u.FollowingCount {
				continue
			}
			// 无锁读取只用于发现漂移，修正在加锁事务内重算
			counters, err := r.follows.FixUser(ctx, u.ID)
			if err != nil {
				r.log.Warn("reconcile user failed", zap.Uint64("user_id", u.ID), zap.Error(err))
				continue
			}
			for _, c := range counters {
				pkg.CounterDriftFixed.WithLabelValues("user", c).Inc()
			}
			fixed += len(counters)
		}
	}
	return fixed
}

func (r *CounterReconciler) reconcileContent(ctx context.Context, t model.ContentType) int {
	fixed := 0
	var lastID uint64
	for ctx.Err() == nil {
		ids, err := r.contents.IDsAfter(ctx, t, lastID, r.batchSize)
		if err != nil {
			r.log.Error("reconcile content list failed", zap.String("type", string(t)), zap.Error(err))
			return fixed
		}
		if len(ids) == 0 {
			return fixed
		}
		lastID = ids[len(ids)-1]
		for _, id := range ids {
			n, err := r.fixContent(ctx, t, id)
			if err != nil {
				r.log.Warn("reconcile content failed", zap.String("type", string(t)), zap.Uint64("id", id), zap.Error(err))
				continue
			}
			fixed += n
		}
	}
	return fixed
}

func (r *CounterReconciler) fixContent(ctx context.Context, t model.ContentType, id uint64) (int, error) {
	actual, err := r.contents.RealStats(ctx, t, id)
	if err != nil {
		return 0, err
	}
	stored, err := r.contents.StoredStats(ctx, t, id)
	if err != nil {
		return 0, err
	}
	if actual == stored {
		return 0, nil
	}
	fields, err := r.contents.Fix(ctx, t, id)
	if err != nil {
		return 0, err
	}
	for _, f := range fields {
		pkg.CounterDriftFixed.WithLabelValues(string(t), string(f)).Inc()
	}
	if len(fields) > 0 && r.cache != nil {
		if err := r.cache.Delete(ctx, t, id, 0); err != nil {
			r.log.Warn("stats cache delete failed", zap.String("type", string(t)), zap.Uint64("id", id), zap.Error(err))
		}
	}
	return len(fields), nil
}

func (r *CounterReconciler) reconcileCommentLikes(ctx context.Context) int {
	fixed := 0
	var lastID uint64
	for ctx.Err() == nil {
		n, next, err := r.contents.FixCommentLikes(ctx, lastID, r.batchSize)
		if err != nil {
			r.log.Error("reconcile comment likes failed", zap.Error(err))
			return fixed
		}
		if n > 0 {
			pkg.CounterDriftFixed.WithLabelValues(string(model.ContentComment), string(model.CounterLikes)).Add(float64(n))
		}
		fixed += n
		if next == lastID {
			return fixed
		}
		lastID = next
	}
	return fixed
}
