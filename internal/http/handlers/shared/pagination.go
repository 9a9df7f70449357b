package shared

import (
	"strconv"
	"strings"

	"github.com/storefront-next/internal/constants"

	"github.com/gin-gonic/gin"
)

// NormalizePagination 归一化分页参数。
func NormalizePagination(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = constants.CatalogDefaultPageSize
	}
	if pageSize > constants.CatalogDefaultMaxItems {
		pageSize = constants.CatalogDefaultMaxItems
	}
	return page, pageSize
}

// ParsePagination 读取 page / page_size 查询参数，非法值按默认处理
func ParsePagination(c *gin.Context) (int, int) {
	page, _ := strconv.Atoi(strings.TrimSpace(c.Query("page")))
	pageSize, _ := strconv.Atoi(strings.TrimSpace(c.Query("page_size")))
	return NormalizePagination(page, pageSize)
}
