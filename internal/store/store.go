package store

import (
	"context"
	"fmt"

	"github.com/storefront-next/internal/models"
)

// Store 购物车持久化后端
type Store interface {
	// Load 读取当前快照，不存在时返回空购物车
	Load(ctx context.Context) (models.CartLines, error)
	// Save 覆盖写入快照，空购物车删除已存储的记录
	Save(ctx context.Context, lines models.CartLines) error
	// Subscribe 订阅快照变更，返回的函数返回后不再回调 fn
	// fn 不允许在回调内取消自身订阅
	Subscribe(fn func(models.CartLines)) (unsubscribe func())
}

// Notifier 远端购物车变更通知通道
type Notifier interface {
	Publish(ctx context.Context, change models.CartChange) error
	Listen(ctx context.Context, ownerID string, fn func(models.CartChange)) (stop func(), err error)
}

// Error 存储后端读写失败
type Error struct {
	Op      string // load / save / subscribe
	Backend string // local / remote
	Err     error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s store %s: %v", e.Backend, e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func noopUnsubscribe() {}
