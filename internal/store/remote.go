package store

import (
	"context"
	"sync"
	"time"

	"github.com/storefront-next/internal/constants"
	"github.com/storefront-next/internal/logger"
	"github.com/storefront-next/internal/models"
	"github.com/storefront-next/internal/repository"
)

// Remote 远端购物车存储（按用户划分）
type Remote struct {
	repo     repository.CartRecordRepository
	notifier Notifier
	now      func() time.Time
}

// NewRemote 创建远端存储，notifier 为空时使用进程内通知
func NewRemote(repo repository.CartRecordRepository, notifier Notifier) *Remote {
	if notifier == nil {
		notifier = NewMemoryNotifier()
	}
	return &Remote{repo: repo, notifier: notifier, now: time.Now}
}

// Scope 返回指定用户的存储视图
func (r *Remote) Scope(ownerID string) *RemoteStore {
	return &RemoteStore{remote: r, ownerID: ownerID}
}

// RemoteStore 单个用户的远端购物车
type RemoteStore struct {
	remote  *Remote
	ownerID string
}

// OwnerID 所属用户
func (s *RemoteStore) OwnerID() string {
	return s.ownerID
}

// Load 读取远端快照
func (s *RemoteStore) Load(ctx context.Context) (models.CartLines, error) {
	lines, _, err := s.loadStamped(ctx)
	return lines, err
}

func (s *RemoteStore) loadStamped(ctx context.Context) (models.CartLines, int64, error) {
	record, err := s.remote.repo.WithContext(ctx).GetByOwner(s.ownerID)
	if err != nil {
		return models.CartLines{}, 0, s.fail("load", err)
	}
	if record == nil {
		return models.CartLines{}, 0, nil
	}
	return record.Items, record.UpdatedAt.UnixNano(), nil
}

// Save 写入远端快照并发布变更，空购物车删除记录
func (s *RemoteStore) Save(ctx context.Context, lines models.CartLines) error {
	repo := s.remote.repo.WithContext(ctx)
	change := models.CartChange{OwnerID: s.ownerID}
	if len(lines) == 0 {
		stamp, _, err := repo.DeleteByOwner(s.ownerID, s.remote.now())
		if err != nil {
			return s.fail("save", err)
		}
		change.Items = models.CartLines{}
		change.Stamp = stamp.UnixNano()
		change.Deleted = true
	} else {
		stamp, err := repo.Save(s.ownerID, lines, s.remote.now())
		if err != nil {
			return s.fail("save", err)
		}
		change.Items = lines.Clone()
		change.Stamp = stamp.UnixNano()
	}

	if err := s.remote.notifier.Publish(ctx, change); err != nil {
		// 记录已提交，订阅方会在下一次变更或重新订阅时追上
		logger.Warnw("cart_change_publish_failed",
			"owner_id", s.ownerID,
			"stamp", change.Stamp,
			"error", err,
		)
	}
	return nil
}

// Subscribe 订阅远端变更
// 先注册监听再读取当前快照作为首次回调，之后按提交顺序投递，旧的提交被丢弃
func (s *RemoteStore) Subscribe(fn func(models.CartLines)) func() {
	sub := &subscription{
		fn:   fn,
		wake: make(chan struct{}, 1),
		quit: make(chan struct{}),
		done: make(chan struct{}),
	}
	stop, err := s.remote.notifier.Listen(context.Background(), s.ownerID, sub.push)
	if err != nil {
		_ = s.fail("subscribe", err)
		stop = noopUnsubscribe
	}
	go sub.run(s)

	var once sync.Once
	return func() {
		once.Do(func() {
			stop()
			sub.close()
		})
	}
}

func (s *RemoteStore) fail(op string, err error) error {
	logger.Warnw("cart_store_failed",
		"backend", constants.CartBackendRemote,
		"op", op,
		"owner_id", s.ownerID,
		"error", err,
	)
	return &Error{Op: op, Backend: constants.CartBackendRemote, Err: err}
}

type subscription struct {
	fn func(models.CartLines)

	mu      sync.Mutex
	pending []models.CartChange

	deliverMu sync.Mutex
	closed    bool
	lastStamp int64

	wake chan struct{}
	quit chan struct{}
	done chan struct{}
}

func (sub *subscription) push(change models.CartChange) {
	sub.mu.Lock()
	sub.pending = append(sub.pending, change)
	sub.mu.Unlock()
	select {
	case sub.wake <- struct{}{}:
	default:
	}
}

func (sub *subscription) run(s *RemoteStore) {
	defer close(sub.done)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		select {
		case <-sub.quit:
			cancel()
		case <-sub.done:
		}
	}()
	defer cancel()

	// 读取失败按空购物车投递
	lines, stamp, _ := s.loadStamped(ctx)
	sub.deliver(lines, stamp, true)

	for {
		select {
		case <-sub.quit:
			return
		case <-sub.wake:
		}
		sub.mu.Lock()
		batch := sub.pending
		sub.pending = nil
		sub.mu.Unlock()
		for _, change := range batch {
			sub.deliver(change.Items, change.Stamp, false)
		}
	}
}

func (sub *subscription) deliver(lines models.CartLines, stamp int64, initial bool) {
	sub.deliverMu.Lock()
	defer sub.deliverMu.Unlock()
	if sub.closed {
		return
	}
	if !initial && stamp <= sub.lastStamp {
		return
	}
	if stamp > sub.lastStamp {
		sub.lastStamp = stamp
	}
	if lines == nil {
		lines = models.CartLines{}
	}
	sub.fn(lines.Clone())
}

func (sub *subscription) close() {
	close(sub.quit)
	sub.deliverMu.Lock()
	sub.closed = true
	sub.deliverMu.Unlock()
	<-sub.done
}
