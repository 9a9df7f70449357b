package repository

import (
	"context"

	"github.com/storefront-next/internal/models"

	"gorm.io/gorm"
)

// AuthEventRepository 身份事件日志数据访问接口
type AuthEventRepository interface {
	Create(event *models.AuthEvent) error
	List(filter AuthEventListFilter) ([]models.AuthEvent, int64, error)
	WithContext(ctx context.Context) AuthEventRepository
}

// GormAuthEventRepository GORM 实现
type GormAuthEventRepository struct {
	db *gorm.DB
}

// NewAuthEventRepository 创建身份事件日志仓库
func NewAuthEventRepository(db *gorm.DB) *GormAuthEventRepository {
	return &GormAuthEventRepository{db: db}
}

// WithContext 绑定请求上下文
func (r *GormAuthEventRepository) WithContext(ctx context.Context) AuthEventRepository {
	if ctx == nil {
		return r
	}
	return &GormAuthEventRepository{db: r.db.WithContext(ctx)}
}

// Create 写入事件
func (r *GormAuthEventRepository) Create(event *models.AuthEvent) error {
	if event == nil {
		return nil
	}
	return r.db.Create(event).Error
}

// List 按条件分页查询，按时间倒序
func (r *GormAuthEventRepository) List(filter AuthEventListFilter) ([]models.AuthEvent, int64, error) {
	query := r.db.Model(&models.AuthEvent{})
	if filter.UserUID != "" {
		query = query.Where("user_uid = ?", filter.UserUID)
	}
	if filter.DeviceID != "" {
		query = query.Where("device_id = ?", filter.DeviceID)
	}
	if filter.Action != "" {
		query = query.Where("action = ?", filter.Action)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.CreatedFrom != nil {
		query = query.Where("created_at >= ?", *filter.CreatedFrom)
	}
	if filter.CreatedTo != nil {
		query = query.Where("created_at <= ?", *filter.CreatedTo)
	}
	return listPage[models.AuthEvent](query, filter.Page, filter.PageSize, "id desc")
}
