package user

import (
	"context"

	"github.com/goback/backoffice/pkg/dal"
	"github.com/goback/backoffice/services/admin/internal/model"
	"gorm.io/gorm"
)

// Repository 用户仓储接口
type Repository interface {
	dal.Repository[model.User]
	FindByUsername(ctx context.Context, username string) (*model.User, error)
	DeleteWithRoles(ctx context.Context, id int64) error
	RoleIDs(ctx context.Context, userID int64) ([]int64, error)
	ReplaceRoles(ctx context.Context, userID int64, roleIDs []int64) error
}

// repository 用户仓储实现
type repository struct {
	*dal.BaseRepository[model.User]
	members *dal.BaseRepository[model.UserRole]
}

// NewRepository 创建用户仓储
func NewRepository(db *gorm.DB) Repository {
	return &repository{
		BaseRepository: dal.NewBaseRepository[model.User](db),
		members:        dal.NewBaseRepository[model.UserRole](db),
	}
}

// FindByUsername 根据用户名查找
func (r *repository) FindByUsername(ctx context.Context, username string) (*model.User, error) {
	return r.FindOne(ctx, map[string]interface{}{"username": username})
}

// DeleteWithRoles 删除用户及其角色关联
func (r *repository) DeleteWithRoles(ctx context.Context, id int64) error {
	return r.Transaction(ctx, func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", id).Delete(&model.UserRole{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", id).Delete(&model.User{}).Error
	})
}

// RoleIDs 用户当前的角色ID集合
func (r *repository) RoleIDs(ctx context.Context, userID int64) ([]int64, error) {
	ids := []int64{}
	err := r.DB().WithContext(ctx).
		Model(&model.UserRole{}).
		Where("user_id = ?", userID).
		Order("role_id ASC").
		Pluck("role_id", &ids).Error
	return ids, err
}

// ReplaceRoles 全量替换用户的角色关联，单事务完成
func (r *repository) ReplaceRoles(ctx context.Context, userID int64, roleIDs []int64) error {
	rows := make([]model.UserRole, len(roleIDs))
	for i, rid := range roleIDs {
		rows[i] = model.UserRole{UserID: userID, RoleID: rid}
	}
	return r.members.ReplaceAll(ctx, "user_id", userID, rows)
}
