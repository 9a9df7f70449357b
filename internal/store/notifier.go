package store

import (
	"context"
	"sync"

	"github.com/storefront-next/internal/models"
)

// MemoryNotifier 进程内变更通知（未启用 Redis 时使用）
type MemoryNotifier struct {
	mu        sync.RWMutex
	nextID    uint64
	listeners map[string]map[uint64]func(models.CartChange)
}

// NewMemoryNotifier 创建进程内通知
func NewMemoryNotifier() *MemoryNotifier {
	return &MemoryNotifier{listeners: make(map[string]map[uint64]func(models.CartChange))}
}

// Publish 同步通知该用户的所有监听者
func (n *MemoryNotifier) Publish(ctx context.Context, change models.CartChange) error {
	n.mu.RLock()
	targets := make([]func(models.CartChange), 0, len(n.listeners[change.OwnerID]))
	for _, fn := range n.listeners[change.OwnerID] {
		targets = append(targets, fn)
	}
	n.mu.RUnlock()

	for _, fn := range targets {
		fn(change)
	}
	return nil
}

// Listen 注册监听
func (n *MemoryNotifier) Listen(ctx context.Context, ownerID string, fn func(models.CartChange)) (func(), error) {
	n.mu.Lock()
	n.nextID++
	id := n.nextID
	if n.listeners[ownerID] == nil {
		n.listeners[ownerID] = make(map[uint64]func(models.CartChange))
	}
	n.listeners[ownerID][id] = fn
	n.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			n.mu.Lock()
			delete(n.listeners[ownerID], id)
			if len(n.listeners[ownerID]) == 0 {
				delete(n.listeners, ownerID)
			}
			n.mu.Unlock()
		})
	}, nil
}
