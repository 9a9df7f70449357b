package queue

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/storefront-next/internal/config"
	"github.com/storefront-next/internal/constants"

	"github.com/hibiken/asynq"
)

const (
	// DefaultQueue 默认队列名称
	DefaultQueue = constants.QueueDefault
)

// Client 队列客户端封装
type Client struct {
	client       *asynq.Client
	enabled      bool
	defaultQueue string
}

// NewClient 创建队列客户端
func NewClient(cfg *config.QueueConfig) (*Client, error) {
	if cfg == nil || !cfg.Enabled {
		return &Client{enabled: false, defaultQueue: DefaultQueue}, nil
	}
	opt := buildRedisOpt(cfg)
	client := asynq.NewClient(opt)
	return &Client{
		client:       client,
		enabled:      true,
		defaultQueue: DefaultQueue,
	}, nil
}

// Enabled 判断是否启用
func (c *Client) Enabled() bool {
	return c != nil && c.enabled && c.client != nil
}

// Close 关闭客户端
func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}

// EnqueueGuestCartPurge 推送访客购物车清理任务
// unique 大于 0 时同一窗口内只保留一个任务，避免多实例重复推送
func (c *Client) EnqueueGuestCartPurge(payload SnapshotPurgePayload, unique time.Duration) error {
	if !c.Enabled() {
		return nil
	}
	task, err := NewGuestCartPurgeTask(payload)
	if err != nil {
		return err
	}
	return c.enqueue(task, unique)
}

// EnqueueDeviceSessionPurge 推送设备凭证清理任务
func (c *Client) EnqueueDeviceSessionPurge(payload SnapshotPurgePayload, unique time.Duration) error {
	if !c.Enabled() {
		return nil
	}
	task, err := NewDeviceSessionPurgeTask(payload)
	if err != nil {
		return err
	}
	return c.enqueue(task, unique)
}

func (c *Client) enqueue(task *asynq.Task, unique time.Duration) error {
	options := []asynq.Option{asynq.Queue(c.defaultQueue), asynq.MaxRetry(3)}
	if unique > 0 {
		options = append(options, asynq.Unique(unique))
	}
	_, err := c.client.Enqueue(task, options...)
	if errors.Is(err, asynq.ErrDuplicateTask) {
		return nil
	}
	return err
}

// BuildServerConfig 生成队列服务配置
func BuildServerConfig(cfg *config.QueueConfig) (asynq.RedisClientOpt, asynq.Config) {
	opt := buildRedisOpt(cfg)
	concurrency := 10
	if cfg != nil && cfg.Concurrency > 0 {
		concurrency = cfg.Concurrency
	}
	queues := map[string]int{DefaultQueue: 1}
	if cfg != nil && len(cfg.Queues) > 0 {
		queues = cfg.Queues
	}
	return opt, asynq.Config{
		Concurrency: concurrency,
		Queues:      queues,
	}
}

func buildRedisOpt(cfg *config.QueueConfig) asynq.RedisClientOpt {
	host := "127.0.0.1"
	port := 6379
	password := ""
	db := 0
	if cfg != nil {
		if strings.TrimSpace(cfg.Host) != "" {
			host = strings.TrimSpace(cfg.Host)
		}
		if cfg.Port > 0 {
			port = cfg.Port
		}
		password = cfg.Password
		db = cfg.DB
	}
	return asynq.RedisClientOpt{
		Addr:     fmt.Sprintf("%s:%d", host, port),
		Password: password,
		DB:       db,
	}
}
