package permission

import (
	"context"

	"github.com/goback/backoffice/pkg/dal"
	"github.com/goback/backoffice/services/admin/internal/model"
	"gorm.io/gorm"
)

// Repository 权限仓储接口
type Repository interface {
	dal.Repository[model.Permission]
	FindByCode(ctx context.Context, code string) (*model.Permission, error)
	FindByName(ctx context.Context, name string) (*model.Permission, error)
	ListOrdered(ctx context.Context) ([]model.Permission, error)
	FindByIDs(ctx context.Context, ids []int64) ([]model.Permission, error)
	HasChildren(ctx context.Context, id int64) (bool, error)
	DeleteWithGrants(ctx context.Context, id int64) error
	FindByRoleID(ctx context.Context, roleID int64) ([]model.Permission, error)
	FindByUserID(ctx context.Context, userID int64) ([]model.Permission, error)
}

// repository 权限仓储实现
type repository struct {
	*dal.BaseRepository[model.Permission]
}

// NewRepository 创建权限仓储
func NewRepository(db *gorm.DB) Repository {
	return &repository{
		BaseRepository: dal.NewBaseRepository[model.Permission](db),
	}
}

// FindByCode 根据编码查找
func (r *repository) FindByCode(ctx context.Context, code string) (*model.Permission, error) {
	return r.FindOne(ctx, map[string]interface{}{"code": code})
}

// FindByName 根据名称查找
func (r *repository) FindByName(ctx context.Context, name string) (*model.Permission, error) {
	return r.FindOne(ctx, map[string]interface{}{"name": name})
}

// ListOrdered 全部权限，按 sort、id 排序
func (r *repository) ListOrdered(ctx context.Context) ([]model.Permission, error) {
	return r.FindAll(ctx, nil, dal.WithOrder("sort ASC, id ASC"))
}

// FindByIDs 根据ID批量查找
func (r *repository) FindByIDs(ctx context.Context, ids []int64) ([]model.Permission, error) {
	if len(ids) == 0 {
		return []model.Permission{}, nil
	}
	var perms []model.Permission
	err := r.DB().WithContext(ctx).Where("id IN ?", ids).Order("id ASC").Find(&perms).Error
	return perms, err
}

// HasChildren 是否存在子权限
func (r *repository) HasChildren(ctx context.Context, id int64) (bool, error) {
	return r.Exists(ctx, map[string]interface{}{"parent_id": id})
}

// DeleteWithGrants 删除权限及其角色关联
func (r *repository) DeleteWithGrants(ctx context.Context, id int64) error {
	return r.Transaction(ctx, func(tx *gorm.DB) error {
		if err := tx.Where("permission_id = ?", id).Delete(&model.RolePermission{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", id).Delete(&model.Permission{}).Error
	})
}

// FindByRoleID 根据角色ID查找权限
func (r *repository) FindByRoleID(ctx context.Context, roleID int64) ([]model.Permission, error) {
	var perms []model.Permission
	err := r.DB().WithContext(ctx).
		Joins("JOIN role_permissions ON role_permissions.permission_id = permissions.id").
		Where("role_permissions.role_id = ?", roleID).
		Order("permissions.id ASC").
		Find(&perms).Error
	return perms, err
}

// FindByUserID 用户经由启用角色获得的权限，按ID去重
func (r *repository) FindByUserID(ctx context.Context, userID int64) ([]model.Permission, error) {
	var perms []model.Permission
	err := r.DB().WithContext(ctx).
		Where("permissions.id IN (?)", r.DB().
			Table("role_permissions").
			Select("role_permissions.permission_id").
			Joins("JOIN user_roles ON user_roles.role_id = role_permissions.role_id").
			Joins("JOIN roles ON roles.id = role_permissions.role_id").
			Where("user_roles.user_id = ? AND roles.status = ?", userID, model.StatusEnabled)).
		Order("permissions.id ASC").
		Find(&perms).Error
	return perms, err
}
