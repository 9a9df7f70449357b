package public

import (
	"errors"
	"strings"

	"github.com/storefront-next/internal/catalog"
	handlershared "github.com/storefront-next/internal/http/handlers/shared"
	"github.com/storefront-next/internal/http/response"

	"github.com/gin-gonic/gin"
)

// ListCatalogItems 商品列表，按 cat / brand / country 过滤并分页
func (h *Handler) ListCatalogItems(c *gin.Context) {
	page, pageSize := handlershared.ParsePagination(c)
	items := h.Catalog.ListItems(c.Request.Context(), catalog.Query{
		Category: c.Query("cat"),
		Brand:    c.Query("brand"),
		Country:  c.Query("country"),
	})
	current, totalPages := catalog.Page(items, page, pageSize)
	response.SuccessWithPage(c, current, response.Pagination{
		Page:      page,
		PageSize:  pageSize,
		Total:     int64(len(items)),
		TotalPage: int64(totalPages),
	})
}

// GetCatalogItem 商品详情
func (h *Handler) GetCatalogItem(c *gin.Context) {
	item, err := h.Catalog.GetItem(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		if errors.Is(err, catalog.ErrItemNotFound) {
			respondError(c, response.CodeNotFound, "error.catalog_item_not_found", nil)
			return
		}
		respondError(c, response.CodeServiceUnavailable, "error.catalog_unavailable", err)
		return
	}
	response.Success(c, item)
}
