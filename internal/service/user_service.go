package service

import (
	"context"
	"errors"
	"strings"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/bustedpokemon39/uniclub-sub001/internal/model"
	"github.com/bustedpokemon39/uniclub-sub001/internal/pkg"
	"github.com/bustedpokemon39/uniclub-sub001/internal/privacy"
	"github.com/bustedpokemon39/uniclub-sub001/internal/repository/mysql"
)

var (
	ErrUserExists       = errors.New("username, email or student id already registered")
	ErrBadCredentials   = errors.New("invalid username or password")
	ErrOldPasswordWrong = errors.New("old password is incorrect")
)

// SessionStore 单端登录的 token 存储
type SessionStore interface {
	AddUserToken(ctx context.Context, userID uint64, token string) error
	GetUserToken(ctx context.Context, userID uint64) (string, error)
	ExtendUserToken(ctx context.Context, userID uint64) error
	DeleteUserToken(ctx context.Context, userID uint64) error
}

type UserService struct {
	repo     *mysql.UserRepository
	access   *AccessService
	sessions SessionStore
	tokens   *pkg.TokenManager
}

func NewUserService(db *gorm.DB, access *AccessService, sessions SessionStore, tokens *pkg.TokenManager) *UserService {
	return &UserService{
		repo:     &mysql.UserRepository{DB: db},
		access:   access,
		sessions: sessions,
		tokens:   tokens,
	}
}

type RegisterInput struct {
	Username string
	Password string
	Email    string
	UniqueID string
}

func (s *UserService) Register(ctx context.Context, in RegisterInput) (*model.User, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.UniqueID = strings.TrimSpace(in.UniqueID)
	if in.Username == "" || in.Email == "" || in.UniqueID == "" {
		return nil, pkg.Invalid("username, email and unique_id required")
	}
	if len(in.Password) < 8 {
		return nil, pkg.Invalid("password must be at least 8 characters")
	}
	exists, err := s.repo.Exists(ctx, in.Username, in.Email, in.UniqueID)
	if err != nil {
		return nil, pkg.StorageErr(err)
	}
	if exists {
		return nil, errors.Join(pkg.ErrConflict, ErrUserExists)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	user := &model.User{
		Username:          in.Username,
		Password:          string(hash),
		Email:             in.Email,
		UniqueID:          in.UniqueID,
		ProfileVisibility: model.ProfileClubMembers,
		Status:            model.UserStatusActive,
	}
	if err := s.repo.Create(ctx, user); err != nil {
		return nil, pkg.StorageErr(err)
	}
	return user, nil
}

// Login 校验密码后签发令牌，access token 写入 redis，旧会话随之失效
func (s *UserService) Login(ctx context.Context, username, password string) (*pkg.Pair, error) {
	user, err := s.repo.FindByUsername(ctx, username)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errors.Join(pkg.ErrUnauthenticated, ErrBadCredentials)
	}
	if err != nil {
		return nil, pkg.StorageErr(err)
	}
	if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)) != nil {
		return nil, errors.Join(pkg.ErrUnauthenticated, ErrBadCredentials)
	}
	if user.Status != model.UserStatusActive {
		return nil, pkg.ErrForbidden
	}
	return s.issue(ctx, user.ID, user.Role)
}

func (s *UserService) issue(ctx context.Context, userID uint64, role int) (*pkg.Pair, error) {
	pair, err := s.tokens.GeneratePair(userID, role)
	if err != nil {
		return nil, err
	}
	if err := s.sessions.AddUserToken(ctx, userID, pair.AccessToken); err != nil {
		return nil, errors.Join(pkg.ErrUnavailable, err)
	}
	return pair, nil
}

func (s *UserService) Logout(ctx context.Context, userID uint64) error {
	if err := s.sessions.DeleteUserToken(ctx, userID); err != nil {
		return errors.Join(pkg.ErrUnavailable, err)
	}
	return nil
}

// Refresh 用 refresh token 换新的一对令牌
func (s *UserService) Refresh(ctx context.Context, refreshToken string) (*pkg.Pair, error) {
	pair, claims, err := s.tokens.Refresh(refreshToken)
	if err != nil {
		return nil, errors.Join(pkg.ErrUnauthenticated, err)
	}
	if err := s.sessions.AddUserToken(ctx, claims.UserID, pair.AccessToken); err != nil {
		return nil, errors.Join(pkg.ErrUnavailable, err)
	}
	return pair, nil
}

// ChangePassword 修改成功后强制重新登录
func (s *UserService) ChangePassword(ctx context.Context, userID uint64, oldPassword, newPassword string) error {
	if len(newPassword) < 8 {
		return pkg.Invalid("password must be at least 8 characters")
	}
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		return pkg.StorageErr(err)
	}
	if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(oldPassword)) != nil {
		return errors.Join(pkg.ErrInvalidArgument, ErrOldPasswordWrong)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	if err := s.repo.UpdatePassword(ctx, userID, string(hash)); err != nil {
		return pkg.StorageErr(err)
	}
	return s.Logout(ctx, userID)
}

// Profile 按主页可见范围返回用户信息
func (s *UserService) Profile(ctx context.Context, viewerID, ownerID uint64) (*model.User, error) {
	v, err := s.access.Viewer(ctx, viewerID)
	if err != nil {
		return nil, err
	}
	owner, err := s.repo.FindByID(ctx, ownerID)
	if err != nil {
		return nil, pkg.StorageErr(err)
	}
	snap, err := s.access.Snapshot(ctx, v.ID, owner.ID, nil)
	if err != nil {
		return nil, err
	}
	if err := privacy.CanViewProfile(v, owner.ID, owner.ProfileVisibility, snap).Err(); err != nil {
		return nil, err
	}
	return owner, nil
}

func (s *UserService) UpdateProfileVisibility(ctx context.Context, userID uint64, setting string) error {
	v, ok := model.ParseProfileVisibility(setting)
	if !ok {
		return pkg.Invalid("unknown profile visibility %q", setting)
	}
	return pkg.StorageErr(s.repo.UpdateProfileVisibility(ctx, userID, v))
}

// SetEnrollment 仅管理员可以修改社团成员身份
func (s *UserService) SetEnrollment(ctx context.Context, role int, targetID uint64, enrolled bool) error {
	if role != model.RoleAdmin {
		return pkg.ErrForbidden
	}
	return pkg.StorageErr(s.repo.SetEnrollment(ctx, targetID, enrolled))
}
