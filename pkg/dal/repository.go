package dal

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// batchSize 批量写入每批行数
const batchSize = 100

// Repository 通用仓储接口
type Repository[T any] interface {
	Create(ctx context.Context, entity *T) error
	Update(ctx context.Context, entity *T) error
	UpdateFields(ctx context.Context, id int64, fields map[string]interface{}) error
	Delete(ctx context.Context, id int64) error
	FindByID(ctx context.Context, id int64, opts ...QueryOption) (*T, error)
	FindOne(ctx context.Context, conditions map[string]interface{}, opts ...QueryOption) (*T, error)
	FindAll(ctx context.Context, conditions map[string]interface{}, opts ...QueryOption) ([]T, error)
	Count(ctx context.Context, conditions map[string]interface{}) (int64, error)
	Exists(ctx context.Context, conditions map[string]interface{}) (bool, error)
	Transaction(ctx context.Context, fn func(tx *gorm.DB) error) error
	DB() *gorm.DB
}

// BaseRepository 基础仓储实现
type BaseRepository[T any] struct {
	db *gorm.DB
}

// NewBaseRepository 使用指定DB创建基础仓储
func NewBaseRepository[T any](db *gorm.DB) *BaseRepository[T] {
	return &BaseRepository[T]{db: db}
}

// DB 获取数据库实例
func (r *BaseRepository[T]) DB() *gorm.DB {
	return r.db
}

// Create 创建实体
func (r *BaseRepository[T]) Create(ctx context.Context, entity *T) error {
	return r.db.WithContext(ctx).Create(entity).Error
}

// Update 保存全部字段
func (r *BaseRepository[T]) Update(ctx context.Context, entity *T) error {
	return r.db.WithContext(ctx).Save(entity).Error
}

// UpdateFields 更新指定字段
func (r *BaseRepository[T]) UpdateFields(ctx context.Context, id int64, fields map[string]interface{}) error {
	return r.db.WithContext(ctx).Model(new(T)).Where("id = ?", id).Updates(fields).Error
}

// Delete 删除实体
func (r *BaseRepository[T]) Delete(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(new(T)).Error
}

// FindByID 根据ID查找，不存在时返回 nil, nil
func (r *BaseRepository[T]) FindByID(ctx context.Context, id int64, opts ...QueryOption) (*T, error) {
	return r.first(r.apply(ctx, opts).Where("id = ?", id))
}

// FindOne 查找单个实体，不存在时返回 nil, nil
func (r *BaseRepository[T]) FindOne(ctx context.Context, conditions map[string]interface{}, opts ...QueryOption) (*T, error) {
	return r.first(r.apply(ctx, opts).Where(conditions))
}

// FindAll 查找所有符合条件的实体
func (r *BaseRepository[T]) FindAll(ctx context.Context, conditions map[string]interface{}, opts ...QueryOption) ([]T, error) {
	var entities []T
	db := r.apply(ctx, opts)
	if len(conditions) > 0 {
		db = db.Where(conditions)
	}
	if err := db.Find(&entities).Error; err != nil {
		return nil, err
	}
	return entities, nil
}

// Count 统计数量
func (r *BaseRepository[T]) Count(ctx context.Context, conditions map[string]interface{}) (int64, error) {
	var count int64
	db := r.db.WithContext(ctx).Model(new(T))
	if len(conditions) > 0 {
		db = db.Where(conditions)
	}
	if err := db.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// Exists 检查是否存在
func (r *BaseRepository[T]) Exists(ctx context.Context, conditions map[string]interface{}) (bool, error) {
	count, err := r.Count(ctx, conditions)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// Transaction 执行事务
func (r *BaseRepository[T]) Transaction(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}

// ReplaceAll 以全量替换的方式重建某个归属方的关联行。
// 删除 ownerColumn = ownerID 的全部行后插入 rows，整体处于同一事务，
// 任一步失败都会回滚删除。rows 为空时仅清空。rows 中的重复对会触发唯一约束
// 使整个事务失败，调用方应先去重。
func (r *BaseRepository[T]) ReplaceAll(ctx context.Context, ownerColumn string, ownerID int64, rows []T) error {
	return r.Transaction(ctx, func(tx *gorm.DB) error {
		return ReplaceAllTx(tx, ownerColumn, ownerID, rows)
	})
}

// ReplaceAllTx 在已有事务内执行全量替换
func ReplaceAllTx[T any](tx *gorm.DB, ownerColumn string, ownerID int64, rows []T) error {
	owner := clause.Eq{Column: clause.Column{Name: ownerColumn}, Value: ownerID}
	if err := tx.Where(owner).Delete(new(T)).Error; err != nil {
		return err
	}
	if len(rows) == 0 {
		return nil
	}
	return tx.CreateInBatches(rows, batchSize).Error
}

func (r *BaseRepository[T]) apply(ctx context.Context, opts []QueryOption) *gorm.DB {
	db := r.db.WithContext(ctx)
	for _, opt := range opts {
		db = opt(db)
	}
	return db
}

func (r *BaseRepository[T]) first(db *gorm.DB) (*T, error) {
	var entity T
	if err := db.First(&entity).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &entity, nil
}
