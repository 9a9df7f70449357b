package public

import (
	"context"
	"errors"
	"io"
	"strings"
	"time"

	"github.com/storefront-next/internal/cart"
	"github.com/storefront-next/internal/catalog"
	"github.com/storefront-next/internal/http/response"
	"github.com/storefront-next/internal/models"

	"github.com/gin-gonic/gin"
)

const (
	cartReadyWait      = 3 * time.Second
	cartEventHeartbeat = 25 * time.Second
)

// CartItemRequest 加入购物车请求，仅传 id 时从商品目录补全
type CartItemRequest struct {
	ID        string        `json:"id" binding:"required"`
	Name      string        `json:"name"`
	UnitPrice *models.Money `json:"unit_price"`
	Image     string        `json:"image"`
}

// CartQuantityRequest 修改数量请求
type CartQuantityRequest struct {
	Quantity *int `json:"quantity" binding:"required"`
}

// GetCart 获取购物车快照，加载中时短暂等待
func (h *Handler) GetCart(c *gin.Context) {
	sess, ok := h.currentSession(c)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), cartReadyWait)
	defer cancel()
	snap, err := sess.Cart.WaitReady(ctx)
	if err != nil && c.Request.Context().Err() != nil {
		return
	}
	response.Success(c, snap)
}

// AddCartItem 加入商品，已存在时数量加一
func (h *Handler) AddCartItem(c *gin.Context) {
	var req CartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	sess, ok := h.currentSession(c)
	if !ok {
		return
	}
	item, ok := h.resolveCartItem(c, req)
	if !ok {
		return
	}
	if err := sess.Cart.AddItem(item); err != nil {
		if errors.Is(err, cart.ErrInvalidItem) {
			respondError(c, response.CodeBadRequest, "error.cart_item_invalid", nil)
			return
		}
		respondError(c, response.CodeInternal, "error.internal", err)
		return
	}
	response.Success(c, sess.Cart.Snapshot())
}

// UpdateCartItem 设置商品数量，数量小于等于 0 时移除
func (h *Handler) UpdateCartItem(c *gin.Context) {
	var req CartQuantityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.cart_quantity_invalid", err)
		return
	}
	sess, ok := h.currentSession(c)
	if !ok {
		return
	}
	sess.Cart.UpdateQuantity(strings.TrimSpace(c.Param("id")), *req.Quantity)
	response.Success(c, sess.Cart.Snapshot())
}

// DeleteCartItem 移除商品，不存在时为空操作
func (h *Handler) DeleteCartItem(c *gin.Context) {
	sess, ok := h.currentSession(c)
	if !ok {
		return
	}
	sess.Cart.RemoveItem(strings.TrimSpace(c.Param("id")))
	response.Success(c, sess.Cart.Snapshot())
}

// ClearCart 清空购物车
func (h *Handler) ClearCart(c *gin.Context) {
	sess, ok := h.currentSession(c)
	if !ok {
		return
	}
	sess.Cart.ClearCart()
	response.Success(c, sess.Cart.Snapshot())
}

// CartEvents 以 SSE 推送购物车快照，连接建立时先推送当前快照
func (h *Handler) CartEvents(c *gin.Context) {
	sess, ok := h.currentSession(c)
	if !ok {
		return
	}

	// 只保留最新快照，慢连接不会阻塞购物车回调
	latest := make(chan cart.Snapshot, 1)
	unsubscribe := sess.Cart.Subscribe(func(snap cart.Snapshot) {
		select {
		case <-latest:
		default:
		}
		latest <- snap
	})
	defer unsubscribe()

	c.Header("Cache-Control", "no-cache")
	c.Header("X-Accel-Buffering", "no")
	c.SSEvent("cart", sess.Cart.Snapshot())
	c.Writer.Flush()

	heartbeat := time.NewTicker(cartEventHeartbeat)
	defer heartbeat.Stop()
	lastRevision := uint64(0)
	c.Stream(func(w io.Writer) bool {
		select {
		case <-c.Request.Context().Done():
			return false
		case snap := <-latest:
			if snap.Revision <= lastRevision {
				return true
			}
			lastRevision = snap.Revision
			c.SSEvent("cart", snap)
			return true
		case <-heartbeat.C:
			c.SSEvent("ping", time.Now().Unix())
			return true
		}
	})
}

func (h *Handler) resolveCartItem(c *gin.Context, req CartItemRequest) (cart.Item, bool) {
	item := cart.Item{
		ID:    strings.TrimSpace(req.ID),
		Name:  strings.TrimSpace(req.Name),
		Image: strings.TrimSpace(req.Image),
	}
	if req.UnitPrice != nil && item.Name != "" {
		item.UnitPrice = *req.UnitPrice
		return item, true
	}
	if h.Catalog == nil {
		respondError(c, response.CodeBadRequest, "error.cart_item_invalid", nil)
		return cart.Item{}, false
	}
	found, err := h.Catalog.GetItem(c.Request.Context(), item.ID)
	if err != nil {
		if errors.Is(err, catalog.ErrItemNotFound) {
			respondError(c, response.CodeBadRequest, "error.catalog_item_not_found", nil)
			return cart.Item{}, false
		}
		respondError(c, response.CodeServiceUnavailable, "error.catalog_unavailable", err)
		return cart.Item{}, false
	}
	return cart.Item{ID: found.ID, Name: found.Name, UnitPrice: found.Price, Image: found.Image}, true
}
