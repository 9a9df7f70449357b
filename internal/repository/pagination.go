package repository

import "gorm.io/gorm"

// maxListPageSize 单页上限，防止一次拉取整张日志表
const maxListPageSize = 100

// applyPagination 应用分页参数，非法页码按第一页处理，页大小不超过上限。
func applyPagination(query *gorm.DB, page, pageSize int) *gorm.DB {
	if query == nil || pageSize <= 0 {
		return query
	}
	if page < 1 {
		page = 1
	}
	if pageSize > maxListPageSize {
		pageSize = maxListPageSize
	}
	return query.Limit(pageSize).Offset((page - 1) * pageSize)
}

// listPage 统计总数后按顺序取出一页
func listPage[T any](query *gorm.DB, page, pageSize int, order string) ([]T, int64, error) {
	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	rows := make([]T, 0)
	if total == 0 {
		return rows, 0, nil
	}
	if err := applyPagination(query, page, pageSize).Order(order).Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}
