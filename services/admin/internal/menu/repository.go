package menu

import (
	"context"

	"github.com/goback/backoffice/pkg/dal"
	"github.com/goback/backoffice/services/admin/internal/model"
	"gorm.io/gorm"
)

// Repository 菜单仓储接口
type Repository interface {
	dal.Repository[model.Menu]
	ListOrdered(ctx context.Context, includeHidden bool) ([]model.Menu, error)
	HasChildren(ctx context.Context, id int64) (bool, error)
}

type repository struct {
	*dal.BaseRepository[model.Menu]
}

// NewRepository 创建菜单仓储
func NewRepository(db *gorm.DB) Repository {
	return &repository{BaseRepository: dal.NewBaseRepository[model.Menu](db)}
}

// ListOrdered 按 sort、id 排序的菜单
func (r *repository) ListOrdered(ctx context.Context, includeHidden bool) ([]model.Menu, error) {
	var conditions map[string]interface{}
	if !includeHidden {
		conditions = map[string]interface{}{"is_hidden": false}
	}
	return r.FindAll(ctx, conditions, dal.WithOrder("sort ASC, id ASC"))
}

func (r *repository) HasChildren(ctx context.Context, id int64) (bool, error) {
	return r.Exists(ctx, map[string]interface{}{"parent_id": id})
}
