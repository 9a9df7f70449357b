package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/storefront-next/internal/models"

	"gorm.io/gorm"
)

// UserRepository 用户数据访问接口
type UserRepository interface {
	GetByEmail(email string) (*models.User, error)
	GetByUID(uid string) (*models.User, error)
	Create(user *models.User) error
	UpdateDisplayName(uid, displayName string) error
	TouchLastLogin(uid string, at time.Time) error
	BumpTokenVersion(uid string) error
	WithContext(ctx context.Context) UserRepository
}

// GormUserRepository GORM 实现
type GormUserRepository struct {
	db *gorm.DB
}

// NewUserRepository 创建用户仓库
func NewUserRepository(db *gorm.DB) *GormUserRepository {
	return &GormUserRepository{db: db}
}

// WithContext 绑定请求上下文
func (r *GormUserRepository) WithContext(ctx context.Context) UserRepository {
	if ctx == nil {
		return r
	}
	return &GormUserRepository{db: r.db.WithContext(ctx)}
}

// GetByEmail 根据邮箱获取用户
func (r *GormUserRepository) GetByEmail(email string) (*models.User, error) {
	var user models.User
	normalized := strings.ToLower(strings.TrimSpace(email))
	if err := r.db.Where("email = ?", normalized).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}

// GetByUID 根据对外标识获取用户
func (r *GormUserRepository) GetByUID(uid string) (*models.User, error) {
	var user models.User
	if err := r.db.Where("uid = ?", uid).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}

// Create 创建用户
func (r *GormUserRepository) Create(user *models.User) error {
	return r.db.Create(user).Error
}

// UpdateDisplayName 更新昵称
func (r *GormUserRepository) UpdateDisplayName(uid, displayName string) error {
	return r.db.Model(&models.User{}).Where("uid = ?", uid).Updates(map[string]interface{}{
		"display_name": displayName,
		"updated_at":   time.Now(),
	}).Error
}

// TouchLastLogin 记录最后登录时间
func (r *GormUserRepository) TouchLastLogin(uid string, at time.Time) error {
	return r.db.Model(&models.User{}).Where("uid = ?", uid).Update("last_login_at", at).Error
}

// BumpTokenVersion 使该用户已签发的 token 全部失效
func (r *GormUserRepository) BumpTokenVersion(uid string) error {
	return r.db.Model(&models.User{}).Where("uid = ?", uid).Updates(map[string]interface{}{
		"token_version": gorm.Expr("token_version + 1"),
		"updated_at":    time.Now(),
	}).Error
}
