package session

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/storefront-next/internal/cart"
	"github.com/storefront-next/internal/identity"
	"github.com/storefront-next/internal/logger"
	"github.com/storefront-next/internal/repository"
	"github.com/storefront-next/internal/store"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"
)

const (
	defaultIdleTTL         = 30 * time.Minute
	defaultJanitorInterval = time.Minute
	defaultCloseTimeout    = 10 * time.Second
)

// ErrRegistryClosed 会话注册表已关闭
var ErrRegistryClosed = errors.New("session registry closed")

// ErrInvalidDeviceID 设备标识不合法
var ErrInvalidDeviceID = errors.New("invalid device id")

// Session 单个浏览设备的会话：一个身份适配器加一个购物车管理器
type Session struct {
	DeviceID string
	Identity *identity.Adapter
	Cart     *cart.Manager

	mu       sync.Mutex
	lastSeen time.Time
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	s.lastSeen = now
	s.mu.Unlock()
}

func (s *Session) idleSince(now time.Time) time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return now.Sub(s.lastSeen)
}

// Close 释放会话资源
func (s *Session) Close(ctx context.Context) error {
	return s.Cart.Close(ctx)
}

// Options 注册表配置
type Options struct {
	Auth            identity.Authenticator
	Snapshots       repository.LocalSnapshotRepository
	Remote          *store.Remote
	IdleTTL         time.Duration
	JanitorInterval time.Duration
	SaveTimeout     time.Duration
	LoadTimeout     time.Duration
}

// Registry 设备会话注册表，按需创建并回收空闲会话
type Registry struct {
	opts  Options
	group singleflight.Group
	now   func() time.Time

	mu       sync.Mutex
	sessions map[string]*Session
	closed   bool
}

// NewRegistry 创建会话注册表
func NewRegistry(opts Options) *Registry {
	if opts.IdleTTL <= 0 {
		opts.IdleTTL = defaultIdleTTL
	}
	if opts.JanitorInterval <= 0 {
		opts.JanitorInterval = defaultJanitorInterval
	}
	return &Registry{
		opts:     opts,
		now:      time.Now,
		sessions: make(map[string]*Session),
	}
}

// NewDeviceID 生成设备标识
func NewDeviceID() string {
	return uuid.NewString()
}

// ValidDeviceID 校验设备标识
func ValidDeviceID(raw string) bool {
	_, err := uuid.Parse(strings.TrimSpace(raw))
	return err == nil
}

// Get 获取设备会话，不存在时创建并从设备 token 恢复身份
func (r *Registry) Get(ctx context.Context, deviceID string) (*Session, error) {
	deviceID = strings.TrimSpace(deviceID)
	if !ValidDeviceID(deviceID) {
		return nil, ErrInvalidDeviceID
	}
	if s, err := r.lookup(deviceID); s != nil || err != nil {
		return s, err
	}

	// 创建过程不受单个请求取消影响
	buildCtx := context.WithoutCancel(ctx)
	value, err, _ := r.group.Do(deviceID, func() (interface{}, error) {
		if s, err := r.lookup(deviceID); s != nil || err != nil {
			return s, err
		}
		s := r.build(buildCtx, deviceID)

		r.mu.Lock()
		if r.closed {
			r.mu.Unlock()
			closeCtx, cancel := context.WithTimeout(context.Background(), defaultCloseTimeout)
			defer cancel()
			_ = s.Close(closeCtx)
			return nil, ErrRegistryClosed
		}
		r.sessions[deviceID] = s
		r.mu.Unlock()
		return s, nil
	})
	if err != nil {
		return nil, err
	}
	return value.(*Session), nil
}

// Len 当前会话数
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

func (r *Registry) lookup(deviceID string) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil, ErrRegistryClosed
	}
	s := r.sessions[deviceID]
	if s != nil {
		s.touch(r.now())
	}
	return s, nil
}

func (r *Registry) build(ctx context.Context, deviceID string) *Session {
	log := logger.SW("device_id", deviceID)
	adapter := identity.NewAdapter(r.opts.Auth, identity.NewLocalTokenStore(r.opts.Snapshots, deviceID))
	restoreCtx, cancel := context.WithTimeout(ctx, r.loadTimeout())
	if err := adapter.Restore(restoreCtx); err != nil {
		log.Warnw("session_restore_failed", "error", err)
	}
	cancel()

	remote := r.opts.Remote
	manager := cart.NewManager(
		store.NewLocalStore(r.opts.Snapshots, deviceID),
		func(ownerID string) store.Store { return remote.Scope(ownerID) },
		cart.WithSaveTimeout(r.opts.SaveTimeout),
		cart.WithLoadTimeout(r.opts.LoadTimeout),
		cart.WithLogger(log),
	)
	manager.Start(adapter)

	s := &Session{DeviceID: deviceID, Identity: adapter, Cart: manager, lastSeen: r.now()}
	log.Debugw("session_created", "signed_in", adapter.Current() != nil)
	return s
}

func (r *Registry) loadTimeout() time.Duration {
	if r.opts.LoadTimeout > 0 {
		return r.opts.LoadTimeout
	}
	return 5 * time.Second
}

// EvictIdle 回收空闲超过 TTL 的会话，返回回收数量
func (r *Registry) EvictIdle(ctx context.Context) int {
	now := r.now()
	r.mu.Lock()
	var idle []*Session
	for id, s := range r.sessions {
		if s.idleSince(now) >= r.opts.IdleTTL {
			idle = append(idle, s)
			delete(r.sessions, id)
		}
	}
	r.mu.Unlock()

	for _, s := range idle {
		if err := s.Close(ctx); err != nil {
			logger.Warnw("session_close_failed", "device_id", s.DeviceID, "error", err)
		}
	}
	if len(idle) > 0 {
		logger.Debugw("session_evicted", "count", len(idle))
	}
	return len(idle)
}

// Name 服务名称
func (r *Registry) Name() string {
	return "session-janitor"
}

// Start 周期回收空闲会话，直到 ctx 结束
func (r *Registry) Start(ctx context.Context) error {
	ticker := time.NewTicker(r.opts.JanitorInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			evictCtx, cancel := context.WithTimeout(ctx, defaultCloseTimeout)
			r.EvictIdle(evictCtx)
			cancel()
		}
	}
}

// Stop 关闭所有会话并排空持久化队列
func (r *Registry) Stop(ctx context.Context) error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	sessions := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		sessions = append(sessions, s)
	}
	r.sessions = map[string]*Session{}
	r.mu.Unlock()

	var errs []error
	for _, s := range sessions {
		if err := s.Close(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
