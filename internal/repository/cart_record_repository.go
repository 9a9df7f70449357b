package repository

import (
	"context"
	"errors"
	"time"

	"github.com/storefront-next/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// stampResolution 提交时间精度（兼容 PostgreSQL 微秒精度）
const stampResolution = time.Microsecond

// CartRecordRepository 远端购物车记录数据访问接口
type CartRecordRepository interface {
	GetByOwner(ownerID string) (*models.CartRecord, error)
	Save(ownerID string, items models.CartLines, at time.Time) (time.Time, error)
	DeleteByOwner(ownerID string, at time.Time) (time.Time, bool, error)
	WithContext(ctx context.Context) CartRecordRepository
}

// GormCartRecordRepository GORM 实现
type GormCartRecordRepository struct {
	db *gorm.DB
}

// NewCartRecordRepository 创建远端购物车仓库
func NewCartRecordRepository(db *gorm.DB) *GormCartRecordRepository {
	return &GormCartRecordRepository{db: db}
}

// WithContext 绑定请求上下文
func (r *GormCartRecordRepository) WithContext(ctx context.Context) CartRecordRepository {
	if ctx == nil {
		return r
	}
	return &GormCartRecordRepository{db: r.db.WithContext(ctx)}
}

// GetByOwner 获取用户的购物车记录，不存在返回 nil
func (r *GormCartRecordRepository) GetByOwner(ownerID string) (*models.CartRecord, error) {
	var record models.CartRecord
	if err := r.db.Where("owner_id = ?", ownerID).First(&record).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &record, nil
}

// Save 写入购物车记录并返回提交时间
// 提交时间在同一用户下严格递增，已清空的记录同样参与递增
func (r *GormCartRecordRepository) Save(ownerID string, items models.CartLines, at time.Time) (time.Time, error) {
	var committed time.Time
	err := r.db.Transaction(func(tx *gorm.DB) error {
		existing, found, err := lockRecord(tx, ownerID)
		if err != nil {
			return err
		}
		committed = nextStamp(at, existing.UpdatedAt, found)
		if !found {
			return tx.Create(&models.CartRecord{
				OwnerID:   ownerID,
				Items:     items,
				CreatedAt: committed,
				UpdatedAt: committed,
			}).Error
		}
		return tx.Unscoped().Model(existing).Updates(map[string]interface{}{
			"items":      items,
			"updated_at": committed,
			"deleted_at": nil,
		}).Error
	})
	if err != nil {
		return time.Time{}, err
	}
	return committed, nil
}

// DeleteByOwner 清空用户的购物车记录，返回提交时间与是否存在有效记录
// 记录以软删除形式保留，用于延续提交时间
func (r *GormCartRecordRepository) DeleteByOwner(ownerID string, at time.Time) (time.Time, bool, error) {
	var committed time.Time
	var live bool
	err := r.db.Transaction(func(tx *gorm.DB) error {
		existing, found, err := lockRecord(tx, ownerID)
		if err != nil {
			return err
		}
		committed = nextStamp(at, existing.UpdatedAt, found)
		if !found {
			return nil
		}
		live = !existing.DeletedAt.Valid
		updates := map[string]interface{}{
			"items":      models.CartLines{},
			"updated_at": committed,
		}
		if live {
			updates["deleted_at"] = committed
		}
		return tx.Unscoped().Model(existing).Updates(updates).Error
	})
	if err != nil {
		return time.Time{}, false, err
	}
	return committed, live, nil
}

// lockRecord 加锁读取记录（包含已清空的记录）
func lockRecord(tx *gorm.DB, ownerID string) (*models.CartRecord, bool, error) {
	var existing models.CartRecord
	err := tx.Unscoped().Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("owner_id = ?", ownerID).First(&existing).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &existing, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return &existing, true, nil
}

func nextStamp(at, previous time.Time, hasPrevious bool) time.Time {
	stamp := at.UTC().Truncate(stampResolution)
	if hasPrevious && !stamp.After(previous) {
		stamp = previous.UTC().Truncate(stampResolution).Add(stampResolution)
	}
	return stamp
}
