package cache

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

var rateLimitScript = redis.NewScript(`
local current = redis.call("INCR", KEYS[1])
if current == 1 then
	redis.call("EXPIRE", KEYS[1], ARGV[1])
end
local ttl = redis.call("TTL", KEYS[1])
return {current, ttl}
`)

// WindowHit 固定窗口计数结果
type WindowHit struct {
	Count      int64 // 窗口内第几次访问
	TTLSeconds int64 // 窗口剩余秒数
}

// Exceeded 是否超过上限
func (h WindowHit) Exceeded(max int) bool {
	return max > 0 && h.Count > int64(max)
}

// HitWindow 对 key 执行一次固定窗口计数
// Redis 未启用时返回零值且不报错
func HitWindow(ctx context.Context, key string, windowSeconds int) (WindowHit, error) {
	if !Enabled() || windowSeconds <= 0 {
		return WindowHit{}, nil
	}
	result, err := rateLimitScript.Run(ctx, redisClient, []string{buildKey(key)}, windowSeconds).Result()
	if err != nil {
		return WindowHit{}, err
	}
	values, ok := result.([]interface{})
	if !ok || len(values) < 2 {
		return WindowHit{}, fmt.Errorf("unexpected rate limit reply: %v", result)
	}
	count, ok := toInt64(values[0])
	if !ok {
		return WindowHit{}, fmt.Errorf("unexpected rate limit count: %v", values[0])
	}
	ttl, _ := toInt64(values[1])
	return WindowHit{Count: count, TTLSeconds: ttl}, nil
}

// ResetWindow 清除计数（如登录成功后）
func ResetWindow(ctx context.Context, key string) error {
	return Del(ctx, key)
}

func toInt64(value interface{}) (int64, bool) {
	switch v := value.(type) {
	case int64:
		return v, true
	case int:
		return int64(v), true
	case uint64:
		return int64(v), true
	case float64:
		return int64(v), true
	default:
		return 0, false
	}
}
