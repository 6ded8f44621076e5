package service

import (
	"context"

	"gorm.io/gorm"

	"github.com/bustedpokemon39/uniclub-sub001/internal/model"
	"github.com/bustedpokemon39/uniclub-sub001/internal/pkg"
	"github.com/bustedpokemon39/uniclub-sub001/internal/privacy"
	"github.com/bustedpokemon39/uniclub-sub001/internal/repository/mysql"
)

type FollowService struct {
	repo  *mysql.FollowRepository
	users *mysql.UserRepository
}

func NewFollowService(db *gorm.DB) *FollowService {
	return &FollowService{
		repo:  &mysql.FollowRepository{DB: db},
		users: &mysql.UserRepository{DB: db},
	}
}

// pair 校验双方 id，不允许指向自己的边
func pair(a, b uint64) error {
	if a == 0 {
		return pkg.ErrUnauthenticated
	}
	if b == 0 {
		return pkg.Invalid("invalid user id")
	}
	if a == b {
		return pkg.Invalid("cannot target self")
	}
	return nil
}

// Follow 对方主页为 private 时进入 pending，等待对方同意。
// 任意方向存在拉黑都拒绝
func (s *FollowService) Follow(ctx context.Context, followerID, followingID uint64) (bool, model.RelationStatus, error) {
	if err := pair(followerID, followingID); err != nil {
		return false, "", err
	}
	target, err := s.users.FindByID(ctx, followingID)
	if err != nil {
		return false, "", pkg.StorageErr(err)
	}
	blocked, err := s.repo.IsBlockedEither(ctx, followerID, followingID)
	if err != nil {
		return false, "", pkg.StorageErr(err)
	}
	if blocked {
		return false, "", pkg.Denied(string(privacy.ReasonUnavailable))
	}
	autoAccept := target.ProfileVisibility != model.ProfilePrivate
	changed, status, err := s.repo.Follow(ctx, followerID, followingID, autoAccept)
	return changed, status, pkg.StorageErr(err)
}

func (s *FollowService) Unfollow(ctx context.Context, followerID, followingID uint64) (bool, error) {
	if err := pair(followerID, followingID); err != nil {
		return false, err
	}
	changed, err := s.repo.Unfollow(ctx, followerID, followingID)
	return changed, pkg.StorageErr(err)
}

func (s *FollowService) Accept(ctx context.Context, userID, followerID uint64) (bool, error) {
	if err := pair(userID, followerID); err != nil {
		return false, err
	}
	changed, err := s.repo.Accept(ctx, userID, followerID)
	return changed, pkg.StorageErr(err)
}

func (s *FollowService) Reject(ctx context.Context, userID, followerID uint64) (bool, error) {
	if err := pair(userID, followerID); err != nil {
		return false, err
	}
	changed, err := s.repo.Reject(ctx, userID, followerID)
	return changed, pkg.StorageErr(err)
}

func (s *FollowService) Block(ctx context.Context, blockerID, blockedID uint64) (bool, error) {
	if err := pair(blockerID, blockedID); err != nil {
		return false, err
	}
	if _, err := s.users.FindByID(ctx, blockedID); err != nil {
		return false, pkg.StorageErr(err)
	}
	changed, err := s.repo.Block(ctx, blockerID, blockedID)
	return changed, pkg.StorageErr(err)
}

func (s *FollowService) Unblock(ctx context.Context, blockerID, blockedID uint64) (bool, error) {
	if err := pair(blockerID, blockedID); err != nil {
		return false, err
	}
	changed, err := s.repo.Unblock(ctx, blockerID, blockedID)
	return changed, pkg.StorageErr(err)
}

func (s *FollowService) Mute(ctx context.Context, followerID, followingID uint64) (bool, error) {
	if err := pair(followerID, followingID); err != nil {
		return false, err
	}
	changed, err := s.repo.Mute(ctx, followerID, followingID)
	return changed, pkg.StorageErr(err)
}

func (s *FollowService) Unmute(ctx context.Context, followerID, followingID uint64) (bool, error) {
	if err := pair(followerID, followingID); err != nil {
		return false, err
	}
	changed, err := s.repo.Unmute(ctx, followerID, followingID)
	return changed, pkg.StorageErr(err)
}

func (s *FollowService) IsFollowing(ctx context.Context, followerID, followingID uint64) (bool, error) {
	if followerID == 0 || followingID == 0 {
		return false, pkg.Invalid("invalid user id")
	}
	ok, err := s.repo.IsFollowing(ctx, followerID, followingID)
	return ok, pkg.StorageErr(err)
}

func (s *FollowService) ListFollowings(ctx context.Context, userID uint64, cursor uint64, limit int) ([]model.Follow, uint64, error) {
	rows, next, err := s.repo.ListFollowings(ctx, userID, cursor, limit)
	return rows, next, pkg.StorageErr(err)
}

func (s *FollowService) ListFollowers(ctx context.Context, userID uint64, cursor uint64, limit int) ([]model.Follow, uint64, error) {
	rows, next, err := s.repo.ListFollowers(ctx, userID, cursor, limit)
	return rows, next, pkg.StorageErr(err)
}

// ListPending 只能查看发给自己的请求
func (s *FollowService) ListPending(ctx context.Context, userID uint64, cursor uint64, limit int) ([]model.Follow, uint64, error) {
	if userID == 0 {
		return nil, 0, pkg.ErrUnauthenticated
	}
	rows, next, err := s.repo.ListPending(ctx, userID, cursor, limit)
	return rows, next, pkg.StorageErr(err)
}
