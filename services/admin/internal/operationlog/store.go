package operationlog

import (
	"context"
	"time"

	"github.com/goback/backoffice/pkg/audit"
	"github.com/goback/backoffice/pkg/dal"
	"github.com/goback/backoffice/pkg/utils"
	"github.com/goback/backoffice/services/admin/internal/model"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Filter 操作日志查询条件
type Filter struct {
	Username  string
	Module    string
	Operation string
	Status    *int
}

// Store 操作日志存储，同时作为审计写入器的落库实现
type Store struct {
	*dal.BaseRepository[model.OperationLog]
}

// NewStore 创建操作日志存储
func NewStore(db *gorm.DB) *Store {
	return &Store{BaseRepository: dal.NewBaseRepository[model.OperationLog](db)}
}

// Save 写入一条审计记录
func (s *Store) Save(ctx context.Context, rec *audit.Record) error {
	row := &model.OperationLog{
		UserID:    rec.UserID,
		Username:  rec.Username,
		Module:    rec.Module,
		Operation: rec.Operation,
		Method:    rec.Method,
		Path:      utils.Truncate(rec.Path, 255),
		IP:        rec.IP,
		Status:    rec.Status,
		CreatedAt: rec.CreatedAt,
	}
	if len(rec.Params) > 0 {
		row.Params = datatypes.JSON(rec.Params)
	}
	if len(rec.Error) > 0 {
		row.Error = datatypes.JSON(rec.Error)
	}
	return s.Create(ctx, row)
}

// List 分页查询，按 created_at 倒序
func (s *Store) List(ctx context.Context, f *Filter, p *dal.Pagination) (*dal.PagedResult[model.OperationLog], error) {
	qb := dal.NewQueryBuilder[model.OperationLog](s.DB()).
		Like("username", f.Username).
		Like("module", f.Module).
		Like("operation", f.Operation).
		Order("created_at DESC").
		Order("id DESC")
	if f.Status != nil {
		qb.Where("status = ?", *f.Status)
	}
	return qb.Paged(ctx, p)
}

// Clear 清空全部日志
func (s *Store) Clear(ctx context.Context) (int64, error) {
	return dal.NewQueryBuilder[model.OperationLog](s.DB()).
		Where("1 = 1").
		Delete(ctx)
}

// DeleteBefore 删除早于 t 的日志
func (s *Store) DeleteBefore(ctx context.Context, t time.Time) (int64, error) {
	return dal.NewQueryBuilder[model.OperationLog](s.DB()).
		Where("created_at < ?", t).
		Delete(ctx)
}
