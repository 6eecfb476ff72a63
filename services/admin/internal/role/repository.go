package role

import (
	"context"

	"github.com/goback/backoffice/pkg/dal"
	"github.com/goback/backoffice/services/admin/internal/model"
	"gorm.io/gorm"
)

// Repository 角色仓储接口
type Repository interface {
	dal.Repository[model.Role]
	FindByName(ctx context.Context, name string) (*model.Role, error)
	FindByCode(ctx context.Context, code string) (*model.Role, error)
	FindByIDs(ctx context.Context, ids []int64) ([]model.Role, error)
	FindByUserID(ctx context.Context, userID int64) ([]model.Role, error)
	DeleteWithRelations(ctx context.Context, id int64) error
	PermissionIDs(ctx context.Context, roleID int64) ([]int64, error)
	ReplacePermissions(ctx context.Context, roleID int64, permissionIDs []int64) error
}

// repository 角色仓储实现
type repository struct {
	*dal.BaseRepository[model.Role]
	grants *dal.BaseRepository[model.RolePermission]
}

// NewRepository 创建角色仓储
func NewRepository(db *gorm.DB) Repository {
	return &repository{
		BaseRepository: dal.NewBaseRepository[model.Role](db),
		grants:         dal.NewBaseRepository[model.RolePermission](db),
	}
}

// FindByName 根据名称查找
func (r *repository) FindByName(ctx context.Context, name string) (*model.Role, error) {
	return r.FindOne(ctx, map[string]interface{}{"name": name})
}

// FindByCode 根据编码查找
func (r *repository) FindByCode(ctx context.Context, code string) (*model.Role, error) {
	return r.FindOne(ctx, map[string]interface{}{"code": code})
}

// FindByIDs 根据ID批量查找
func (r *repository) FindByIDs(ctx context.Context, ids []int64) ([]model.Role, error) {
	if len(ids) == 0 {
		return []model.Role{}, nil
	}
	var roles []model.Role
	err := r.DB().WithContext(ctx).Where("id IN ?", ids).Order("id ASC").Find(&roles).Error
	return roles, err
}

// FindByUserID 用户拥有的角色
func (r *repository) FindByUserID(ctx context.Context, userID int64) ([]model.Role, error) {
	var roles []model.Role
	err := r.DB().WithContext(ctx).
		Joins("JOIN user_roles ON user_roles.role_id = roles.id").
		Where("user_roles.user_id = ?", userID).
		Order("roles.id ASC").
		Find(&roles).Error
	return roles, err
}

// DeleteWithRelations 删除角色及其权限、用户关联
func (r *repository) DeleteWithRelations(ctx context.Context, id int64) error {
	return r.Transaction(ctx, func(tx *gorm.DB) error {
		if err := tx.Where("role_id = ?", id).Delete(&model.RolePermission{}).Error; err != nil {
			return err
		}
		if err := tx.Where("role_id = ?", id).Delete(&model.UserRole{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", id).Delete(&model.Role{}).Error
	})
}

// PermissionIDs 角色当前的权限ID集合
func (r *repository) PermissionIDs(ctx context.Context, roleID int64) ([]int64, error) {
	ids := []int64{}
	err := r.DB().WithContext(ctx).
		Model(&model.RolePermission{}).
		Where("role_id = ?", roleID).
		Order("permission_id ASC").
		Pluck("permission_id", &ids).Error
	return ids, err
}

// ReplacePermissions 全量替换角色的权限关联，单事务完成
func (r *repository) ReplacePermissions(ctx context.Context, roleID int64, permissionIDs []int64) error {
	rows := make([]model.RolePermission, len(permissionIDs))
	for i, pid := range permissionIDs {
		rows[i] = model.RolePermission{RoleID: roleID, PermissionID: pid}
	}
	return r.grants.ReplaceAll(ctx, "role_id", roleID, rows)
}
