package mysql

import (
	"context"

	"gorm.io/gorm"

	"github.com/bustedpokemon39/uniclub-sub001/internal/model"
	"github.com/bustedpokemon39/uniclub-sub001/internal/pkg"
)

type UserRepository struct {
	DB *gorm.DB
}

func (r *UserRepository) Create(ctx context.Context, user *model.User) error {
	return r.DB.WithContext(ctx).Create(user).Error
}

// FindByUsername 用户名或邮箱都可以登录
func (r *UserRepository) FindByUsername(ctx context.Context, username string) (*model.User, error) {
	var user model.User
	err := r.DB.WithContext(ctx).Where("username = ? OR email = ?", username, username).First(&user).Error
	return &user, err
}

func (r *UserRepository) FindByID(ctx context.Context, id uint64) (*model.User, error) {
	var user model.User
	err := r.DB.WithContext(ctx).First(&user, id).Error
	return &user, err
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	var usr model.User
	err := r.DB.WithContext(ctx).Where("email = ?", email).First(&usr).Error
	return &usr, err
}

// Exists 注册前检查用户名、邮箱、学号是否被占用
func (r *UserRepository) Exists(ctx context.Context, username, email, uniqueID string) (bool, error) {
	var n int64
	err := r.DB.WithContext(ctx).Model(&model.User{}).
		Where("username = ? OR email = ? OR unique_id = ?", username, email, uniqueID).
		Count(&n).Error
	return n > 0, err
}

func (r *UserRepository) UpdatePassword(ctx context.Context, userID uint64, hashed string) error {
	return r.DB.WithContext(ctx).Model(&model.User{}).Where("id = ?", userID).Update("password", hashed).Error
}

// UpdateProfileVisibility 修改主页可见范围
func (r *UserRepository) UpdateProfileVisibility(ctx context.Context, userID uint64, v model.ProfileVisibility) error {
	res := r.DB.WithContext(ctx).Model(&model.User{}).Where("id = ?", userID).Update("profile_visibility", v)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return pkg.ErrNotFound
	}
	return nil
}

// SetEnrollment 管理员设置社团成员身份
func (r *UserRepository) SetEnrollment(ctx context.Context, userID uint64, enrolled bool) error {
	res := r.DB.WithContext(ctx).Model(&model.User{}).Where("id = ?", userID).Update("is_enrolled", enrolled)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return pkg.ErrNotFound
	}
	return nil
}

// SetStatus 账号只做软状态变更
func (r *UserRepository) SetStatus(ctx context.Context, userID uint64, status string) error {
	res := r.DB.WithContext(ctx).Model(&model.User{}).Where("id = ?", userID).Update("status", status)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return pkg.ErrNotFound
	}
	return nil
}
