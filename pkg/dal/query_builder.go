package dal

import (
	"context"
	"strings"

	"gorm.io/gorm"
)

// 分页默认值
const (
	DefaultPage     = 1
	DefaultPageSize = 10
	MaxPageSize     = 100
)

// Pagination 分页参数
type Pagination struct {
	Page     int `query:"page"`
	PageSize int `query:"page_size"`
}

// NewPagination 规范化分页参数
func NewPagination(page, pageSize int) *Pagination {
	if page < 1 {
		page = DefaultPage
	}
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}
	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}
	return &Pagination{Page: page, PageSize: pageSize}
}

// Offset 偏移量
func (p *Pagination) Offset() int {
	return (p.Page - 1) * p.PageSize
}

// PagedResult 分页结果
type PagedResult[T any] struct {
	List     []T   `json:"list"`
	Total    int64 `json:"total"`
	Page     int   `json:"page"`
	PageSize int   `json:"page_size"`
}

// NewPagedResult 创建分页结果
func NewPagedResult[T any](list []T, total int64, p *Pagination) *PagedResult[T] {
	if list == nil {
		list = []T{}
	}
	return &PagedResult[T]{List: list, Total: total, Page: p.Page, PageSize: p.PageSize}
}

// QueryBuilder 查询构建器
type QueryBuilder[T any] struct {
	db     *gorm.DB
	scopes []func(*gorm.DB) *gorm.DB
	orders []string
}

// NewQueryBuilder 创建查询构建器
func NewQueryBuilder[T any](db *gorm.DB) *QueryBuilder[T] {
	return &QueryBuilder[T]{db: db}
}

// Where 添加条件
func (qb *QueryBuilder[T]) Where(query interface{}, args ...interface{}) *QueryBuilder[T] {
	qb.scopes = append(qb.scopes, func(db *gorm.DB) *gorm.DB {
		return db.Where(query, args...)
	})
	return qb
}

// WhereIf 条件成立时添加条件
func (qb *QueryBuilder[T]) WhereIf(condition bool, query interface{}, args ...interface{}) *QueryBuilder[T] {
	if condition {
		return qb.Where(query, args...)
	}
	return qb
}

// Like 值非空时添加模糊匹配
func (qb *QueryBuilder[T]) Like(column, value string) *QueryBuilder[T] {
	value = strings.TrimSpace(value)
	return qb.WhereIf(value != "", column+" LIKE ?", "%"+value+"%")
}

// Order 添加排序
func (qb *QueryBuilder[T]) Order(order string) *QueryBuilder[T] {
	if order != "" {
		qb.orders = append(qb.orders, order)
	}
	return qb
}

// Build 构建查询
func (qb *QueryBuilder[T]) Build(ctx context.Context) *gorm.DB {
	db := qb.db.WithContext(ctx).Model(new(T))
	for _, scope := range qb.scopes {
		db = scope(db)
	}
	return db
}

func (qb *QueryBuilder[T]) ordered(db *gorm.DB) *gorm.DB {
	for _, order := range qb.orders {
		db = db.Order(order)
	}
	return db
}

// Find 查询所有
func (qb *QueryBuilder[T]) Find(ctx context.Context) ([]T, error) {
	var entities []T
	if err := qb.ordered(qb.Build(ctx)).Find(&entities).Error; err != nil {
		return nil, err
	}
	return entities, nil
}

// Count 统计数量
func (qb *QueryBuilder[T]) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := qb.Build(ctx).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// Paged 分页查询
func (qb *QueryBuilder[T]) Paged(ctx context.Context, p *Pagination) (*PagedResult[T], error) {
	total, err := qb.Count(ctx)
	if err != nil {
		return nil, err
	}

	var entities []T
	if err := qb.ordered(qb.Build(ctx)).Offset(p.Offset()).Limit(p.PageSize).Find(&entities).Error; err != nil {
		return nil, err
	}
	return NewPagedResult(entities, total, p), nil
}

// Delete 删除匹配行
func (qb *QueryBuilder[T]) Delete(ctx context.Context) (int64, error) {
	res := qb.Build(ctx).Delete(new(T))
	return res.RowsAffected, res.Error
}
