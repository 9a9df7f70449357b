package worker

import (
	"context"
	"time"

	"github.com/storefront-next/internal/constants"
	"github.com/storefront-next/internal/logger"
	"github.com/storefront-next/internal/provider"
	"github.com/storefront-next/internal/queue"

	"github.com/hibiken/asynq"
)

// Consumer 异步任务消费者
type Consumer struct {
	*provider.Container
	now func() time.Time
}

// NewConsumer 创建消费者
func NewConsumer(c *provider.Container) *Consumer {
	return &Consumer{
		Container: c,
		now:       time.Now,
	}
}

// Register 注册消费者
func (c *Consumer) Register(mux *asynq.ServeMux) {
	if c == nil || mux == nil {
		logger.Debugw("worker_register_skip_nil", "consumer_nil", c == nil, "mux_nil", mux == nil)
		return
	}
	mux.HandleFunc(queue.TaskGuestCartPurge, c.handleGuestCartPurge)
	mux.HandleFunc(queue.TaskDeviceSessionPurge, c.handleDeviceSessionPurge)
}

func (c *Consumer) handleGuestCartPurge(ctx context.Context, task *asynq.Task) error {
	return c.purgeSnapshots(ctx, task, constants.LocalKeyCart)
}

func (c *Consumer) handleDeviceSessionPurge(ctx context.Context, task *asynq.Task) error {
	return c.purgeSnapshots(ctx, task, constants.LocalKeySession)
}

func (c *Consumer) purgeSnapshots(ctx context.Context, task *asynq.Task, key string) error {
	if c == nil || task == nil {
		logger.Debugw("worker_snapshot_purge_skip_nil", "consumer_nil", c == nil, "task_nil", task == nil, "key", key)
		return nil
	}
	payload, err := queue.ParseSnapshotPurgePayload(task)
	if err != nil {
		logger.Warnw("worker_snapshot_purge_unmarshal_failed", "key", key, "error", err)
		return err
	}
	if payload.Before <= 0 {
		logger.Debugw("worker_snapshot_purge_skip_invalid_payload", "key", key, "before", payload.Before)
		return nil
	}
	before := payload.BeforeTime()
	if before.After(c.now()) {
		logger.Debugw("worker_snapshot_purge_skip_future_cutoff", "key", key, "before", before)
		return nil
	}
	if c.SnapshotRepo == nil {
		logger.Warnw("worker_snapshot_purge_skip_repo_nil", "key", key)
		return nil
	}
	removed, err := c.SnapshotRepo.WithContext(ctx).PurgeBefore(key, before)
	if err != nil {
		logger.Warnw("worker_snapshot_purge_failed", "key", key, "before", before, "error", err)
		return err
	}
	logger.Infow("worker_snapshot_purged", "key", key, "before", before, "removed", removed)
	return nil
}
