package models

import (
	"time"

	"gorm.io/gorm"
)

// CartRecord 远端购物车记录（每个用户一条，不存在或已软删除即为空购物车）
// 软删除的记录保留提交时间，后续写入在其基础上递增
type CartRecord struct {
	ID        uint           `gorm:"primarykey" json:"-"`                                   // 主键
	OwnerID   string         `gorm:"type:varchar(64);uniqueIndex;not null" json:"owner_id"` // 用户标识
	Items     CartLines      `gorm:"type:json;not null" json:"items"`                       // 购物车行
	CreatedAt time.Time      `json:"created_at"`                                            // 创建时间
	UpdatedAt time.Time      `gorm:"index" json:"updated_at"`                               // 提交时间
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`                                        // 清空时间
}

// TableName 指定表名
func (CartRecord) TableName() string {
	return "cart_records"
}

// CartChange 远端购物车变更通知
type CartChange struct {
	OwnerID string    `json:"owner_id"` // 用户标识
	Items   CartLines `json:"items"`    // 变更后的购物车行
	Stamp   int64     `json:"stamp"`    // 提交时间（Unix 纳秒）
	Deleted bool      `json:"deleted"`  // 记录是否已删除
}
