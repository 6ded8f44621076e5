package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/bustedpokemon39/uniclub-sub001/internal/model"
	"github.com/bustedpokemon39/uniclub-sub001/internal/pkg"
	"github.com/bustedpokemon39/uniclub-sub001/internal/privacy"
	"github.com/bustedpokemon39/uniclub-sub001/internal/repository/mysql"
)

// StatsCache 聚合计数缓存，redis 实现见 repository/redis
type StatsCache interface {
	Get(ctx context.Context, t model.ContentType, id uint64) (model.Stats, bool, error)
	Set(ctx context.Context, t model.ContentType, id uint64, s model.Stats) error
	Delete(ctx context.Context, t model.ContentType, id uint64, delay time.Duration) error
}

// Locker 缓存重建的单飞锁
type Locker interface {
	Acquire(ctx context.Context, t model.ContentType, id uint64, token string) (bool, error)
	Release(ctx context.Context, t model.ContentType, id uint64, token string) error
}

const (
	doubleDeleteDelay = 500 * time.Millisecond
	lockBackoff       = 50 * time.Millisecond
)

type EngagementService struct {
	access   *AccessService
	ledger   *mysql.EngagementRepository
	comments *mysql.CommentRepository
	contents *mysql.ContentRepository
	cache    StatsCache
	lock     Locker
	log      *zap.Logger
}

// NewEngagementService cache/lock 为 nil 时直接读库
func NewEngagementService(db *gorm.DB, access *AccessService, cache StatsCache, lock Locker, log *zap.Logger) *EngagementService {
	if log == nil {
		log = zap.NewNop()
	}
	return &EngagementService{
		access:   access,
		ledger:   &mysql.EngagementRepository{DB: db},
		comments: &mysql.CommentRepository{DB: db},
		contents: &mysql.ContentRepository{DB: db},
		cache:    cache,
		lock:     lock,
		log:      log,
	}
}

// Toggle like/save 翻转；Comment 目标走评论点赞台账
func (s *EngagementService) Toggle(ctx context.Context, userID uint64, t model.ContentType, id uint64, action model.Action) (model.EngagementState, error) {
	v, err := s.access.Viewer(ctx, userID)
	if err != nil {
		return model.EngagementState{}, err
	}
	if !action.Togglable() {
		if action == model.ActionShare {
			return s.recordShare(ctx, v, t, id)
		}
		return model.EngagementState{}, pkg.ErrInvalidActionType
	}
	return s.apply(ctx, v, t, id, action, mysql.Flip)
}

// Set 期望状态写入，重试安全。分享只能置为 true
func (s *EngagementService) Set(ctx context.Context, userID uint64, t model.ContentType, id uint64, action model.Action, active bool) (model.EngagementState, error) {
	v, err := s.access.Viewer(ctx, userID)
	if err != nil {
		return model.EngagementState{}, err
	}
	switch {
	case action.Togglable():
	case action == model.ActionShare && active:
		return s.recordShare(ctx, v, t, id)
	default:
		return model.EngagementState{}, pkg.ErrInvalidActionType
	}
	return s.apply(ctx, v, t, id, action, mysql.SetTo(active))
}

// RecordShare 只记录一次，重复分享不再计数
func (s *EngagementService) RecordShare(ctx context.Context, userID uint64, t model.ContentType, id uint64) (model.EngagementState, error) {
	v, err := s.access.Viewer(ctx, userID)
	if err != nil {
		return model.EngagementState{}, err
	}
	return s.recordShare(ctx, v, t, id)
}

func (s *EngagementService) recordShare(ctx context.Context, v privacy.Viewer, t model.ContentType, id uint64) (model.EngagementState, error) {
	if t == model.ContentComment {
		return model.EngagementState{}, pkg.ErrInvalidActionType
	}
	return s.apply(ctx, v, t, id, model.ActionShare, mysql.SetTo(true))
}

// RecordView 调用方已完成可见性判定；浏览只会从 false 变为 true
func (s *EngagementService) RecordView(ctx context.Context, userID uint64, t model.ContentType, id uint64) (model.EngagementState, error) {
	k := model.EngagementKey{UserID: userID, ContentType: t, ContentID: id, Action: model.ActionView}
	st, err := s.ledger.Apply(ctx, k, mysql.SetTo(true))
	s.observe(model.ActionView, t, st, err)
	if err != nil {
		return st, pkg.StorageErr(err)
	}
	if st.Changed {
		s.invalidate(ctx, t, id)
	}
	return st, nil
}

func (s *EngagementService) apply(ctx context.Context, v privacy.Viewer, t model.ContentType, id uint64, action model.Action, target mysql.Target) (model.EngagementState, error) {
	if t == model.ContentComment {
		if action != model.ActionLike {
			return model.EngagementState{}, pkg.ErrInvalidActionType
		}
		return s.applyCommentLike(ctx, v, id, target)
	}

	if _, err := s.access.LoadVisible(ctx, v, t, id); err != nil {
		s.observe(action, t, model.EngagementState{}, err)
		return model.EngagementState{}, err
	}
	k := model.EngagementKey{UserID: v.ID, ContentType: t, ContentID: id, Action: action}
	st, err := s.ledger.Apply(ctx, k, target)
	s.observe(action, t, st, err)
	if err != nil {
		return st, pkg.StorageErr(err)
	}
	if st.Changed {
		s.invalidate(ctx, t, id)
	}
	return st, nil
}

func (s *EngagementService) applyCommentLike(ctx context.Context, v privacy.Viewer, commentID uint64, target mysql.Target) (model.EngagementState, error) {
	if _, _, err := s.access.LoadVisibleComment(ctx, v, commentID); err != nil {
		s.observe(model.ActionLike, model.ContentComment, model.EngagementState{}, err)
		return model.EngagementState{}, err
	}
	st, err := s.comments.ApplyLike(ctx, commentID, v.ID, target)
	s.observe(model.ActionLike, model.ContentComment, st, err)
	if err != nil {
		return st, pkg.StorageErr(err)
	}
	return st, nil
}

// Flags 当前用户对内容的互动状态
func (s *EngagementService) Flags(ctx context.Context, userID uint64, t model.ContentType, id uint64) (model.Flags, error) {
	v, err := s.access.Viewer(ctx, userID)
	if err != nil {
		return model.Flags{}, err
	}
	if _, err := s.access.LoadVisible(ctx, v, t, id); err != nil {
		return model.Flags{}, err
	}
	f, err := s.ledger.Flags(ctx, v.ID, t, id)
	return f, pkg.StorageErr(err)
}

// Stats 先读缓存；未命中时抢锁回源，没抢到锁短暂退避后再读一次缓存
func (s *EngagementService) Stats(ctx context.Context, userID uint64, t model.ContentType, id uint64) (model.Stats, error) {
	v, err := s.access.Viewer(ctx, userID)
	if err != nil {
		return model.Stats{}, err
	}
	item, err := s.access.LoadVisible(ctx, v, t, id)
	if err != nil {
		return model.Stats{}, err
	}
	if s.cache == nil {
		return item.Base().Stats(), nil
	}

	if st, ok, err := s.cache.Get(ctx, t, id); err == nil && ok {
		return st, nil
	}
	if s.lock == nil {
		return s.rebuild(ctx, item), nil
	}

	token := uuid.NewString()
	got, err := s.lock.Acquire(ctx, t, id, token)
	if err != nil {
		s.log.Warn("stats lock acquire failed", zap.String("type", string(t)), zap.Uint64("id", id), zap.Error(err))
	}
	if got {
		defer func() {
			if err := s.lock.Release(ctx, t, id, token); err != nil {
				s.log.Warn("stats lock release failed", zap.String("type", string(t)), zap.Uint64("id", id), zap.Error(err))
			}
		}()
		// 第二次检查
		if st, ok, err := s.cache.Get(ctx, t, id); err == nil && ok {
			return st, nil
		}
		return s.rebuild(ctx, item), nil
	}

	time.Sleep(lockBackoff)
	if st, ok, err := s.cache.Get(ctx, t, id); err == nil && ok {
		return st, nil
	}
	return item.Base().Stats(), nil
}

// rebuild 取锁后重新读取计数再回填缓存，读库失败时返回加载时的计数且不写缓存
func (s *EngagementService) rebuild(ctx context.Context, item model.ContentItem) model.Stats {
	t, id := item.Type(), item.Base().ID
	fresh, err := s.contents.Get(ctx, t, id)
	if err != nil {
		s.log.Warn("stats reload failed", zap.String("type", string(t)), zap.Uint64("id", id), zap.Error(err))
		return item.Base().Stats()
	}
	st := fresh.Base().Stats()
	if err := s.cache.Set(ctx, t, id, st); err != nil {
		s.log.Warn("stats cache fill failed", zap.String("type", string(t)), zap.Uint64("id", id), zap.Error(err))
	}
	return st
}

// invalidate 删缓存 + 延迟二删，失败只记日志，缓存有 TTL 兜底
func (s *EngagementService) invalidate(ctx context.Context, t model.ContentType, id uint64) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, t, id, doubleDeleteDelay); err != nil {
		s.log.Warn("stats cache invalidate failed", zap.String("type", string(t)), zap.Uint64("id", id), zap.Error(err))
	}
}

func (s *EngagementService) observe(action model.Action, t model.ContentType, st model.EngagementState, err error) {
	result := "noop"
	switch {
	case err != nil:
		result = "error"
	case st.Changed:
		result = "changed"
	}
	pkg.EngagementTotal.WithLabelValues(string(action), string(t), result).Inc()
}
