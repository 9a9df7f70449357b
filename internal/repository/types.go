package repository

import "time"

// AuthEventListFilter 查询身份事件日志的过滤条件
type AuthEventListFilter struct {
	Page        int
	PageSize    int
	UserUID     string
	DeviceID    string
	Action      string
	Status      string
	CreatedFrom *time.Time
	CreatedTo   *time.Time
}
