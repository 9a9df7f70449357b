package repository

import (
	"context"
	"errors"
	"time"

	"github.com/storefront-next/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// LocalSnapshotRepository 设备本地快照数据访问接口
type LocalSnapshotRepository interface {
	Get(deviceID, key string) (*models.LocalSnapshot, error)
	Put(deviceID, key, value string) error
	Delete(deviceID, key string) error
	PurgeBefore(key string, before time.Time) (int64, error)
	WithContext(ctx context.Context) LocalSnapshotRepository
}

// GormLocalSnapshotRepository GORM 实现
type GormLocalSnapshotRepository struct {
	db *gorm.DB
}

// NewLocalSnapshotRepository 创建本地快照仓库
func NewLocalSnapshotRepository(db *gorm.DB) *GormLocalSnapshotRepository {
	return &GormLocalSnapshotRepository{db: db}
}

// WithContext 绑定请求上下文
func (r *GormLocalSnapshotRepository) WithContext(ctx context.Context) LocalSnapshotRepository {
	if ctx == nil {
		return r
	}
	return &GormLocalSnapshotRepository{db: r.db.WithContext(ctx)}
}

// Get 读取快照，不存在返回 nil
func (r *GormLocalSnapshotRepository) Get(deviceID, key string) (*models.LocalSnapshot, error) {
	var snapshot models.LocalSnapshot
	if err := r.db.Where("device_id = ? AND snapshot_key = ?", deviceID, key).First(&snapshot).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &snapshot, nil
}

// Put 覆盖写入快照
func (r *GormLocalSnapshotRepository) Put(deviceID, key, value string) error {
	row := models.LocalSnapshot{
		DeviceID:  deviceID,
		Key:       key,
		Value:     value,
		UpdatedAt: time.Now().UTC(),
	}
	return r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "device_id"}, {Name: "snapshot_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&row).Error
}

// Delete 删除快照（不存在时不报错）
func (r *GormLocalSnapshotRepository) Delete(deviceID, key string) error {
	return r.db.Where("device_id = ? AND snapshot_key = ?", deviceID, key).Delete(&models.LocalSnapshot{}).Error
}

// PurgeBefore 清理指定键下早于某时间的快照
func (r *GormLocalSnapshotRepository) PurgeBefore(key string, before time.Time) (int64, error) {
	result := r.db.Where("snapshot_key = ? AND updated_at < ?", key, before.UTC()).Delete(&models.LocalSnapshot{})
	return result.RowsAffected, result.Error
}
