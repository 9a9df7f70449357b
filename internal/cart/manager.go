package cart

import (
	"context"
	"sync"
	"time"

	"github.com/storefront-next/internal/identity"
	"github.com/storefront-next/internal/logger"
	"github.com/storefront-next/internal/models"
	"github.com/storefront-next/internal/store"

	"go.uber.org/zap"
)

const (
	defaultSaveTimeout = 5 * time.Second
	defaultLoadTimeout = 5 * time.Second
	// maxInflight 记录的待回显快照上限
	maxInflight = 32
)

// RemoteFactory 按用户 ID 构造远端存储
type RemoteFactory func(ownerID string) store.Store

type options struct {
	saveTimeout time.Duration
	loadTimeout time.Duration
	log         *zap.SugaredLogger
}

// Option Manager 配置项
type Option func(*options)

// WithSaveTimeout 单次保存超时
func WithSaveTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.saveTimeout = d
		}
	}
}

// WithLoadTimeout 单次读取超时
func WithLoadTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.loadTimeout = d
		}
	}
}

// WithLogger 指定日志实例
func WithLogger(log *zap.SugaredLogger) Option {
	return func(o *options) {
		if log != nil {
			o.log = log
		}
	}
}

type observer struct {
	id uint64
	fn func(Snapshot)
}

// Manager 购物车状态管理器
// 根据身份选择持久化后端，在身份切换时完成购物车迁移，对外提供同步的变更操作
type Manager struct {
	local  store.Store
	remote RemoteFactory
	log    *zap.SugaredLogger
	saves  *persister

	mu       sync.Mutex
	provider identity.Provider
	state    State
	owner    Owner
	lines    models.CartLines
	epoch    uint64
	revision uint64
	active   store.Store
	// queued 非 Ready 状态下收到的变更，Ready 后按调用顺序重放
	queued []mutation
	// inflight 已提交远端保存、尚未回显的快照（从旧到新）
	inflight []models.CartLines
	// discardLocalOnGuest 远端购物车胜出时置位，下次切回访客时删除本地快照
	discardLocalOnGuest bool
	unsubscribeRemote   func()
	stopIdentity        func()
	changed             chan struct{}
	closed              bool

	observerMu   sync.Mutex
	observers    []observer
	nextObserver uint64

	// dispatchMu 串行化观察者回调，旧版本快照不会覆盖新版本
	dispatchMu     sync.Mutex
	lastDispatched uint64
}

// NewManager 创建购物车状态管理器
func NewManager(local store.Store, remote RemoteFactory, opts ...Option) *Manager {
	o := options{
		saveTimeout: defaultSaveTimeout,
		loadTimeout: defaultLoadTimeout,
		log:         logger.Named("cart"),
	}
	for _, opt := range opts {
		opt(&o)
	}
	return &Manager{
		local:   local,
		remote:  remote,
		log:     o.log,
		saves:   newPersister(o.saveTimeout, o.loadTimeout, o.log),
		state:   StateUninitialized,
		owner:   Guest(),
		lines:   models.CartLines{},
		changed: make(chan struct{}),
	}
}

// Start 订阅身份变化并按当前身份完成首次切换
func (m *Manager) Start(provider identity.Provider) {
	m.mu.Lock()
	if m.closed || m.provider != nil {
		m.mu.Unlock()
		return
	}
	m.provider = provider
	m.mu.Unlock()

	stop := provider.OnChange(func(*identity.Identity) {
		m.switchOwner()
	})
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		stop()
		return
	}
	m.stopIdentity = stop
	m.mu.Unlock()
	m.switchOwner()
}

// Snapshot 当前快照
func (m *Manager) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshotLocked()
}

// WaitReady 等待进入 Ready 状态
func (m *Manager) WaitReady(ctx context.Context) (Snapshot, error) {
	for {
		m.mu.Lock()
		if m.state == StateReady {
			snap := m.snapshotLocked()
			m.mu.Unlock()
			return snap, nil
		}
		changed := m.changed
		m.mu.Unlock()

		select {
		case <-changed:
		case <-ctx.Done():
			return m.Snapshot(), ctx.Err()
		}
	}
}

// Subscribe 注册观察者，状态变化后同步回调
// 回调内不允许再调用 Manager 的方法
func (m *Manager) Subscribe(fn func(Snapshot)) func() {
	m.observerMu.Lock()
	m.nextObserver++
	id := m.nextObserver
	m.observers = append(m.observers, observer{id: id, fn: fn})
	m.observerMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			m.observerMu.Lock()
			defer m.observerMu.Unlock()
			for i, o := range m.observers {
				if o.id == id {
					m.observers = append(m.observers[:i:i], m.observers[i+1:]...)
					return
				}
			}
		})
	}
}

// AddItem 加入商品，已存在则数量加一
func (m *Manager) AddItem(item Item) error {
	if err := item.validate(); err != nil {
		return err
	}
	m.apply(addItem(item))
	return nil
}

// RemoveItem 移除商品，不存在时为空操作
func (m *Manager) RemoveItem(id string) {
	m.apply(removeItem(id))
}

// UpdateQuantity 设置数量，n<=0 等同于移除
func (m *Manager) UpdateQuantity(id string, n int) {
	m.apply(updateQuantity(id, n))
}

// ClearCart 清空购物车
func (m *Manager) ClearCart() {
	m.apply(clearCart())
}

// Flush 等待已入队的持久化任务完成
func (m *Manager) Flush(ctx context.Context) error {
	return m.saves.flush(ctx)
}

// Close 取消所有订阅并等待持久化队列排空
func (m *Manager) Close(ctx context.Context) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return m.saves.wait(ctx)
	}
	m.closed = true
	m.epoch++
	unsubscribe := m.unsubscribeRemote
	m.unsubscribeRemote = nil
	stop := m.stopIdentity
	m.stopIdentity = nil
	m.queued = nil
	m.mu.Unlock()

	if stop != nil {
		stop()
	}
	if unsubscribe != nil {
		unsubscribe()
	}
	return m.saves.close(ctx)
}

func (m *Manager) apply(mut mutation) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	if m.state != StateReady {
		m.queued = append(m.queued, mut)
		m.mu.Unlock()
		return
	}
	next, changed := mut(m.lines)
	if !changed {
		m.mu.Unlock()
		return
	}
	m.lines = next
	m.persistLocked()
	snap := m.advanceLocked()
	m.mu.Unlock()
	m.dispatch(snap)
}

// switchOwner 按身份提供方的当前身份切换购物车归属
func (m *Manager) switchOwner() {
	m.mu.Lock()
	if m.closed || m.provider == nil {
		m.mu.Unlock()
		return
	}
	owner := Guest()
	if current := m.provider.Current(); current != nil {
		owner = User(current.ID)
	}
	if m.state != StateUninitialized && owner == m.owner {
		m.mu.Unlock()
		return
	}

	m.epoch++
	epoch := m.epoch
	unsubscribe := m.unsubscribeRemote
	m.unsubscribeRemote = nil
	m.inflight = nil
	m.state = StateLoading
	m.owner = owner
	m.lines = models.CartLines{}
	m.active = nil
	discardLocal := false
	if owner.Kind == OwnerGuest {
		discardLocal = m.discardLocalOnGuest
		m.discardLocalOnGuest = false
	}
	snap := m.advanceLocked()
	m.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
	m.dispatch(snap)
	m.log.Debugw("cart_owner_switching", "owner_kind", owner.Kind, "owner_id", owner.ID, "epoch", epoch)

	if owner.Kind == OwnerGuest {
		if discardLocal {
			m.saves.enqueueSave(m.local, models.CartLines{}, nil)
		}
		m.saves.enqueueRun(func(ctx context.Context) {
			m.loadGuest(ctx, epoch)
		})
		return
	}

	remote := m.remote(owner.ID)
	unsubscribe = remote.Subscribe(func(lines models.CartLines) {
		m.saves.enqueueRun(func(ctx context.Context) {
			m.onRemote(ctx, epoch, remote, lines)
		})
	})
	m.mu.Lock()
	if !m.closed && m.epoch == epoch {
		m.unsubscribeRemote = unsubscribe
		unsubscribe = nil
	}
	m.mu.Unlock()
	if unsubscribe != nil {
		// 订阅期间身份已再次切换
		unsubscribe()
	}
}

// loadGuest 在持久化队列上执行，保证读到此前排队的本地写入
func (m *Manager) loadGuest(ctx context.Context, epoch uint64) {
	lines, err := m.local.Load(ctx)
	if err != nil {
		m.log.Warnw("cart_local_load_degraded", "error", err)
	}
	lines = normalize(lines)

	m.mu.Lock()
	if m.closed || m.epoch != epoch {
		m.mu.Unlock()
		return
	}
	m.becomeReadyLocked(lines, m.local)
	snap := m.advanceLocked()
	m.mu.Unlock()
	m.dispatch(snap)
}

// onRemote 处理远端投递，首次投递完成对账，之后以最后写入为准
func (m *Manager) onRemote(ctx context.Context, epoch uint64, remote store.Store, delivered models.CartLines) {
	delivered = normalize(delivered)
	m.mu.Lock()
	if m.closed || m.epoch != epoch {
		m.mu.Unlock()
		return
	}
	if m.state == StateReady {
		snap, changed := m.applyDeliveryLocked(delivered)
		m.mu.Unlock()
		if changed {
			m.dispatch(snap)
		}
		return
	}
	m.mu.Unlock()

	var guestLines models.CartLines
	if len(delivered) == 0 {
		loaded, err := m.local.Load(ctx)
		if err != nil {
			m.log.Warnw("cart_local_load_degraded", "error", err)
		}
		guestLines = normalize(loaded)
	}

	m.mu.Lock()
	if m.closed || m.epoch != epoch {
		m.mu.Unlock()
		return
	}
	ownerID := m.owner.ID
	switch {
	case len(delivered) > 0:
		// 远端非空时以远端为准，访客购物车在下次切回访客时删除
		m.discardLocalOnGuest = true
		m.becomeReadyLocked(delivered, remote)
		m.log.Infow("cart_reconciled", "owner_id", ownerID, "source", "remote", "lines", len(delivered))
	case len(guestLines) > 0:
		m.becomeReadyLocked(guestLines, remote, m.migrateJob(guestLines, remote))
		m.log.Infow("cart_reconciled", "owner_id", ownerID, "source", "local", "lines", len(guestLines))
	default:
		m.becomeReadyLocked(models.CartLines{}, remote)
	}
	snap := m.advanceLocked()
	m.mu.Unlock()
	m.dispatch(snap)
}

// migrateJob 先写入远端，成功后再清空本地
func (m *Manager) migrateJob(lines models.CartLines, remote store.Store) *persistJob {
	return &persistJob{
		target: remote,
		lines:  lines.Clone(),
		then:   &persistJob{target: m.local, lines: models.CartLines{}},
	}
}

// becomeReadyLocked 进入 Ready 并重放排队的变更
func (m *Manager) becomeReadyLocked(lines models.CartLines, active store.Store, migrate ...*persistJob) {
	m.state = StateReady
	m.lines = lines.Clone()
	m.active = active
	for _, job := range migrate {
		m.trackInflightLocked(job.lines)
		m.saves.enqueueSave(job.target, job.lines, job.then)
	}

	dirty := false
	for _, mut := range m.queued {
		if next, changed := mut(m.lines); changed {
			m.lines = next
			dirty = true
		}
	}
	m.queued = nil
	if dirty {
		m.persistLocked()
	}
}

func (m *Manager) applyDeliveryLocked(delivered models.CartLines) (Snapshot, bool) {
	if delivered.Equal(m.lines) {
		m.forgetInflightLocked(delivered)
		return Snapshot{}, false
	}
	if m.forgetInflightLocked(delivered) {
		// 本端较早保存的回显，后续保存仍在队列中
		return Snapshot{}, false
	}
	m.inflight = nil
	m.lines = delivered.Clone()
	return m.advanceLocked(), true
}

// forgetInflightLocked 删除匹配快照及更早的记录，返回是否匹配
func (m *Manager) forgetInflightLocked(delivered models.CartLines) bool {
	for i := len(m.inflight) - 1; i >= 0; i-- {
		if m.inflight[i].Equal(delivered) {
			m.inflight = append(m.inflight[:0:0], m.inflight[i+1:]...)
			return true
		}
	}
	return false
}

func (m *Manager) trackInflightLocked(lines models.CartLines) {
	if m.owner.Kind != OwnerUser {
		return
	}
	m.inflight = append(m.inflight, lines)
	if len(m.inflight) > maxInflight {
		m.inflight = append(m.inflight[:0:0], m.inflight[len(m.inflight)-maxInflight:]...)
	}
}

func (m *Manager) persistLocked() {
	if m.active == nil {
		return
	}
	lines := m.lines.Clone()
	m.trackInflightLocked(lines)
	m.saves.enqueueSave(m.active, lines, nil)
}

// advanceLocked 递增版本、唤醒等待者并返回新快照
func (m *Manager) advanceLocked() Snapshot {
	m.revision++
	close(m.changed)
	m.changed = make(chan struct{})
	return m.snapshotLocked()
}

func (m *Manager) snapshotLocked() Snapshot {
	lines := make([]Line, len(m.lines))
	copy(lines, m.lines)
	return Snapshot{
		State:      m.state,
		Owner:      m.owner,
		Lines:      lines,
		TotalItems: TotalItems(lines),
		TotalPrice: TotalPrice(lines),
		Revision:   m.revision,
	}
}

func (m *Manager) dispatch(snap Snapshot) {
	m.dispatchMu.Lock()
	defer m.dispatchMu.Unlock()
	if snap.Revision <= m.lastDispatched {
		return
	}
	m.lastDispatched = snap.Revision

	m.observerMu.Lock()
	targets := make([]observer, len(m.observers))
	copy(targets, m.observers)
	m.observerMu.Unlock()

	for _, o := range targets {
		o.fn(snap)
	}
}
