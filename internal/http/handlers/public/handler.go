package public

import "github.com/storefront-next/internal/provider"

// Handler 前台接口处理器入口
// 说明：所有接口按设备会话工作，身份与购物车状态均由会话持有。
type Handler struct {
	*provider.Container
}

// New 创建前台处理器
func New(c *provider.Container) *Handler {
	return &Handler{Container: c}
}
