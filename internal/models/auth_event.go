package models

import "time"

// AuthEvent 身份事件日志
// 说明：记录设备上的登录、注册、退出结果，用于个人安全中心展示。
type AuthEvent struct {
	ID         uint      `gorm:"primarykey" json:"id"`                          // 主键
	UserUID    string    `gorm:"type:varchar(64);index" json:"user_id"`         // 用户标识（失败时为空）
	Email      string    `gorm:"index" json:"email"`                            // 尝试邮箱
	DeviceID   string    `gorm:"type:varchar(64);index" json:"device_id"`       // 设备标识
	Action     string    `gorm:"type:varchar(16);index;not null" json:"action"` // sign_in/sign_up/sign_out
	Status     string    `gorm:"type:varchar(16);index;not null" json:"status"` // success/failed
	FailReason string    `gorm:"type:varchar(32)" json:"fail_reason"`           // 认证错误类型
	ClientIP   string    `gorm:"type:varchar(64)" json:"client_ip"`             // 客户端IP
	UserAgent  string    `gorm:"type:text" json:"user_agent"`                   // 客户端UA
	Source     string    `gorm:"type:varchar(16)" json:"source"`                // 来源（web）
	RequestID  string    `gorm:"type:varchar(64);index" json:"request_id"`      // 请求追踪ID
	CreatedAt  time.Time `gorm:"index" json:"created_at"`                       // 记录时间
}

// TableName 指定表名
func (AuthEvent) TableName() string {
	return "auth_events"
}
