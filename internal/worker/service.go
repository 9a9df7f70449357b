package worker

import (
	"context"
	"errors"
	"time"

	"github.com/storefront-next/internal/config"
	"github.com/storefront-next/internal/logger"
	"github.com/storefront-next/internal/queue"

	"github.com/hibiken/asynq"
)

const (
	defaultPurgeInterval      = time.Hour
	defaultGuestSnapshotTTL   = 30 * 24 * time.Hour
	defaultDeviceSessionGrace = 24 * time.Hour
)

// PurgeSchedule 快照清理调度参数
type PurgeSchedule struct {
	Interval         time.Duration
	GuestSnapshotTTL time.Duration
	SessionTokenTTL  time.Duration
}

// PurgeScheduleFromConfig 从应用配置构建清理调度参数
func PurgeScheduleFromConfig(cfg *config.Config) PurgeSchedule {
	schedule := PurgeSchedule{
		Interval:         defaultPurgeInterval,
		GuestSnapshotTTL: defaultGuestSnapshotTTL,
	}
	if cfg == nil {
		return schedule
	}
	if cfg.Cart.PurgeIntervalMs > 0 {
		schedule.Interval = time.Duration(cfg.Cart.PurgeIntervalMs) * time.Millisecond
	}
	if cfg.Session.GuestSnapshotTTLDays > 0 {
		schedule.GuestSnapshotTTL = time.Duration(cfg.Session.GuestSnapshotTTLDays) * 24 * time.Hour
	}
	if cfg.UserJWT.ExpireHours > 0 {
		// 凭证过期后再保留一段时间，便于排查
		schedule.SessionTokenTTL = time.Duration(cfg.UserJWT.ExpireHours)*time.Hour + defaultDeviceSessionGrace
	}
	return schedule
}

// Service 异步队列服务
type Service struct {
	name     string
	server   *asynq.Server
	mux      *asynq.ServeMux
	consumer *Consumer
	schedule PurgeSchedule
}

// NewService 创建异步队列服务
func NewService(cfg *config.QueueConfig, consumer *Consumer, schedule PurgeSchedule) (*Service, error) {
	if cfg == nil || !cfg.Enabled {
		return nil, errors.New("queue disabled")
	}
	if consumer == nil {
		return nil, errors.New("consumer is nil")
	}
	opt, serverCfg := queue.BuildServerConfig(cfg)
	serverCfg.Logger = logger.Named("worker")
	server := asynq.NewServer(opt, serverCfg)
	mux := asynq.NewServeMux()
	consumer.Register(mux)
	return &Service{
		name:     "worker",
		server:   server,
		mux:      mux,
		consumer: consumer,
		schedule: schedule,
	}, nil
}

// Name 服务名称
func (s *Service) Name() string {
	if s == nil || s.name == "" {
		return "worker"
	}
	return s.name
}

// Start 启动服务
func (s *Service) Start(ctx context.Context) error {
	if s == nil || s.server == nil || s.mux == nil {
		return errors.New("worker not initialized")
	}
	if s.consumer != nil && s.consumer.QueueClient.Enabled() {
		go s.runPurgeLoop(ctx)
	}
	return s.server.Run(s.mux)
}

// Stop 停止服务
func (s *Service) Stop(ctx context.Context) error {
	if s == nil || s.server == nil {
		return nil
	}
	_ = ctx
	s.server.Shutdown()
	return nil
}

func (s *Service) runPurgeLoop(ctx context.Context) {
	interval := s.schedule.Interval
	if interval <= 0 {
		interval = defaultPurgeInterval
	}
	runOnce := func() {
		enqueuePurges(s.consumer.QueueClient, s.schedule, s.consumer.now(), interval)
	}
	runOnce()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			runOnce()
		}
	}
}

// purgeEnqueuer 推送清理任务的队列客户端
type purgeEnqueuer interface {
	EnqueueGuestCartPurge(payload queue.SnapshotPurgePayload, unique time.Duration) error
	EnqueueDeviceSessionPurge(payload queue.SnapshotPurgePayload, unique time.Duration) error
}

func enqueuePurges(client purgeEnqueuer, schedule PurgeSchedule, now time.Time, unique time.Duration) {
	if schedule.GuestSnapshotTTL > 0 {
		payload := queue.SnapshotPurgePayload{Before: now.Add(-schedule.GuestSnapshotTTL).Unix()}
		if err := client.EnqueueGuestCartPurge(payload, unique); err != nil {
			logger.Warnw("worker_enqueue_guest_cart_purge_failed", "error", err)
		}
	}
	if schedule.SessionTokenTTL > 0 {
		payload := queue.SnapshotPurgePayload{Before: now.Add(-schedule.SessionTokenTTL).Unix()}
		if err := client.EnqueueDeviceSessionPurge(payload, unique); err != nil {
			logger.Warnw("worker_enqueue_device_session_purge_failed", "error", err)
		}
	}
}
