package models

import "time"

// LocalSnapshot 设备本地快照（按设备与键存储序列化数据）
type LocalSnapshot struct {
	DeviceID  string    `gorm:"primaryKey;type:varchar(64)" json:"device_id"`               // 设备标识
	Key       string    `gorm:"column:snapshot_key;primaryKey;type:varchar(32)" json:"key"` // 固定键（cart/session）
	Value     string    `gorm:"type:text;not null" json:"value"`                            // 序列化内容
	UpdatedAt time.Time `gorm:"index" json:"updated_at"`                                    // 更新时间
}

// TableName 指定表名
func (LocalSnapshot) TableName() string {
	return "local_snapshots"
}
