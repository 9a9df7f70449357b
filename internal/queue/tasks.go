package queue

import (
	"encoding/json"
	"time"

	"github.com/storefront-next/internal/constants"

	"github.com/hibiken/asynq"
)

const (
	// TaskGuestCartPurge 清理长期未访问的访客购物车快照
	TaskGuestCartPurge = constants.TaskGuestCartPurge
	// TaskDeviceSessionPurge 清理已过期的设备登录凭证
	TaskDeviceSessionPurge = constants.TaskDeviceSessionPurge
)

// SnapshotPurgePayload 设备快照清理任务载荷
type SnapshotPurgePayload struct {
	Before int64 `json:"before"` // unix 秒，早于该时间更新的快照会被删除
}

// BeforeTime 返回截止时间
func (p SnapshotPurgePayload) BeforeTime() time.Time {
	return time.Unix(p.Before, 0)
}

// NewGuestCartPurgeTask 创建访客购物车清理任务
func NewGuestCartPurgeTask(payload SnapshotPurgePayload) (*asynq.Task, error) {
	return newSnapshotPurgeTask(TaskGuestCartPurge, payload)
}

// NewDeviceSessionPurgeTask 创建设备凭证清理任务
func NewDeviceSessionPurgeTask(payload SnapshotPurgePayload) (*asynq.Task, error) {
	return newSnapshotPurgeTask(TaskDeviceSessionPurge, payload)
}

// ParseSnapshotPurgePayload 解析清理任务载荷
func ParseSnapshotPurgePayload(task *asynq.Task) (SnapshotPurgePayload, error) {
	var payload SnapshotPurgePayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return SnapshotPurgePayload{}, err
	}
	return payload, nil
}

func newSnapshotPurgeTask(taskType string, payload SnapshotPurgePayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(taskType, body), nil
}
