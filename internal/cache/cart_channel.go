package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/storefront-next/internal/logger"
	"github.com/storefront-next/internal/models"

	"github.com/redis/go-redis/v9"
)

// CartChannel 基于 Redis Pub/Sub 的远端购物车变更通道
type CartChannel struct {
	client *redis.Client
	prefix string
}

// NewCartChannel 创建变更通道，prefix 为空时使用全局前缀
func NewCartChannel(client *redis.Client, prefix string) *CartChannel {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		prefix = Prefix()
	}
	if prefix == "" {
		prefix = defaultRedisPrefix
	}
	return &CartChannel{client: client, prefix: prefix}
}

func (c *CartChannel) channelName(ownerID string) string {
	return fmt.Sprintf("%s:cart:changed:%s", c.prefix, ownerID)
}

// Publish 发布购物车变更
func (c *CartChannel) Publish(ctx context.Context, change models.CartChange) error {
	payload, err := json.Marshal(change)
	if err != nil {
		return err
	}
	return c.client.Publish(ctx, c.channelName(change.OwnerID), payload).Err()
}

// Listen 监听指定用户的购物车变更
// 返回时订阅已被 Redis 确认，停止函数返回后不会再回调 fn
func (c *CartChannel) Listen(ctx context.Context, ownerID string, fn func(models.CartChange)) (func(), error) {
	pubsub := c.client.Subscribe(ctx, c.channelName(ownerID))
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, err
	}

	done := make(chan struct{})
	messages := pubsub.Channel()
	go func() {
		defer close(done)
		for msg := range messages {
			var change models.CartChange
			if err := json.Unmarshal([]byte(msg.Payload), &change); err != nil {
				logger.Warnw("cart_change_decode_failed",
					"owner_id", ownerID,
					"error", err,
				)
				continue
			}
			fn(change)
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			_ = pubsub.Close()
			<-done
		})
	}, nil
}
