package provider

import (
	"time"

	"github.com/storefront-next/internal/cache"
	"github.com/storefront-next/internal/catalog"
	"github.com/storefront-next/internal/config"
	"github.com/storefront-next/internal/logger"
	"github.com/storefront-next/internal/models"
	"github.com/storefront-next/internal/queue"
	"github.com/storefront-next/internal/repository"
	"github.com/storefront-next/internal/service"
	"github.com/storefront-next/internal/session"
	"github.com/storefront-next/internal/store"

	"gorm.io/gorm"
)

// Container 依赖注入容器
type Container struct {
	Config      *config.Config
	QueueClient *queue.Client

	// Repositories
	UserRepo       repository.UserRepository
	CartRecordRepo repository.CartRecordRepository
	SnapshotRepo   repository.LocalSnapshotRepository
	AuthEventRepo  repository.AuthEventRepository

	// Services
	UserAuthService  *service.UserAuthService
	AuthEventService *service.AuthEventService
	CartNotifier     store.Notifier
	RemoteCarts      *store.Remote
	Sessions         *session.Registry
	Catalog          *catalog.Client
}

// NewContainer 初始化容器
func NewContainer(cfg *config.Config) *Container {
	// 初始化缓存
	if err := cache.InitRedis(&cfg.Redis); err != nil {
		logger.Warnw("provider_init_redis_failed", "error", err)
	}

	// 初始化队列客户端
	var queueClient *queue.Client
	if cfg.Queue.Enabled {
		qc, err := queue.NewClient(&cfg.Queue)
		if err != nil {
			logger.Errorw("provider_init_queue_client_failed", "error", err)
		} else {
			queueClient = qc
		}
	}

	return Build(cfg, models.DB, queueClient)
}

// Build 基于已就绪的数据库连接装配容器（测试直接使用）
func Build(cfg *config.Config, db *gorm.DB, queueClient *queue.Client) *Container {
	c := &Container{
		Config:      cfg,
		QueueClient: queueClient,
	}

	// 1. 初始化 Repositories
	c.initRepositories(db)

	// 2. 初始化 Services
	c.initServices()

	return c
}

func (c *Container) initRepositories(db *gorm.DB) {
	c.UserRepo = repository.NewUserRepository(db)
	c.CartRecordRepo = repository.NewCartRecordRepository(db)
	c.SnapshotRepo = repository.NewLocalSnapshotRepository(db)
	c.AuthEventRepo = repository.NewAuthEventRepository(db)
}

func (c *Container) initServices() {
	c.UserAuthService = service.NewUserAuthService(c.Config, c.UserRepo)
	c.AuthEventService = service.NewAuthEventService(c.AuthEventRepo)

	if cache.Enabled() {
		c.CartNotifier = cache.NewCartChannel(cache.Client(), cache.Prefix())
	} else {
		logger.Infow("provider_cart_notifier_in_memory", "reason", "redis_disabled")
		c.CartNotifier = store.NewMemoryNotifier()
	}
	c.RemoteCarts = store.NewRemote(c.CartRecordRepo, c.CartNotifier)

	sessionCfg := c.Config.Session
	cartCfg := c.Config.Cart
	c.Sessions = session.NewRegistry(session.Options{
		Auth:            c.UserAuthService,
		Snapshots:       c.SnapshotRepo,
		Remote:          c.RemoteCarts,
		IdleTTL:         time.Duration(sessionCfg.IdleTTLMinutes) * time.Minute,
		JanitorInterval: time.Duration(sessionCfg.JanitorIntervalSecs) * time.Second,
		SaveTimeout:     time.Duration(cartCfg.SaveTimeoutMS) * time.Millisecond,
		LoadTimeout:     time.Duration(cartCfg.LoadTimeoutMS) * time.Millisecond,
	})

	c.Catalog = catalog.NewClient(catalog.OptionsFromConfig(c.Config.Catalog))
}

// Close 释放容器持有的外部连接
func (c *Container) Close() error {
	if c == nil {
		return nil
	}
	if c.QueueClient != nil {
		if err := c.QueueClient.Close(); err != nil {
			logger.Warnw("provider_close_queue_client_failed", "error", err)
		}
	}
	return cache.Close()
}
