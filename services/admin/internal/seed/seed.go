package seed

import (
	"context"
	"fmt"

	"github.com/goback/backoffice/pkg/auth"
	"github.com/goback/backoffice/pkg/logger"
	"github.com/goback/backoffice/services/admin/internal/model"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Run 首次启动时写入初始数据。
// 每类数据仅在对应表为空时写入，重复执行不会产生重复行。
// basePath 为接口前缀，拼接到 API 类型权限的资源上。
func Run(ctx context.Context, db *gorm.DB, digest auth.PasswordDigest, basePath string) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := seedAdmin(tx, digest); err != nil {
			return fmt.Errorf("seed admin: %w", err)
		}
		if err := seedPermissions(tx, basePath); err != nil {
			return fmt.Errorf("seed permissions: %w", err)
		}
		if err := seedRoles(tx); err != nil {
			return fmt.Errorf("seed roles: %w", err)
		}
		if err := seedMenus(tx); err != nil {
			return fmt.Errorf("seed menus: %w", err)
		}
		return nil
	})
}

func empty(tx *gorm.DB, m interface{}) (bool, error) {
	var n int64
	if err := tx.Model(m).Count(&n).Error; err != nil {
		return false, err
	}
	return n == 0, nil
}

func seedAdmin(tx *gorm.DB, digest auth.PasswordDigest) error {
	ok, err := empty(tx, &model.User{})
	if err != nil || !ok {
		return err
	}
	hashed, err := digest.Hash(AdminPassword)
	if err != nil {
		return err
	}
	admin := &model.User{
		Username: AdminUsername,
		Password: hashed,
		Nickname: AdminNickname,
		Status:   model.StatusEnabled,
	}
	if err := tx.Create(admin).Error; err != nil {
		return err
	}
	logger.Info("已创建初始管理员", zap.String("username", AdminUsername))
	return nil
}

func seedPermissions(tx *gorm.DB, basePath string) error {
	ok, err := empty(tx, &model.Permission{})
	if err != nil || !ok {
		return err
	}
	ids := make(map[string]int64)
	for _, s := range permissionSeeds() {
		perm := &model.Permission{
			Name:        s.Name,
			Code:        s.Code,
			Type:        s.Type,
			Resource:    s.Resource,
			Action:      s.Action,
			Sort:        s.Sort,
			Description: s.Description,
			ColorStart:  s.ColorStart,
			ColorEnd:    s.ColorEnd,
		}
		if s.Type == model.PermissionAPI {
			perm.Resource = basePath + s.Resource
		}
		if s.Parent != "" {
			pid, found := ids[s.Parent]
			if !found {
				return fmt.Errorf("parent %q of %q not seeded", s.Parent, s.Code)
			}
			perm.ParentID = &pid
		}
		if err := tx.Create(perm).Error; err != nil {
			return err
		}
		ids[s.Code] = perm.ID
	}
	logger.Info("已写入初始权限", zap.Int("count", len(ids)))
	return nil
}

func seedRoles(tx *gorm.DB) error {
	ok, err := empty(tx, &model.Role{})
	if err != nil || !ok {
		return err
	}
	role := &model.Role{
		Name:        SuperAdminName,
		Code:        SuperAdminCode,
		Description: "拥有全部权限",
		Status:      model.StatusEnabled,
	}
	if err := tx.Create(role).Error; err != nil {
		return err
	}

	var permIDs []int64
	if err := tx.Model(&model.Permission{}).Order("id ASC").Pluck("id", &permIDs).Error; err != nil {
		return err
	}
	if len(permIDs) > 0 {
		grants := make([]model.RolePermission, len(permIDs))
		for i, id := range permIDs {
			grants[i] = model.RolePermission{RoleID: role.ID, PermissionID: id}
		}
		if err := tx.CreateInBatches(grants, 100).Error; err != nil {
			return err
		}
	}

	var admin model.User
	err = tx.Where("username = ?", AdminUsername).Limit(1).Find(&admin).Error
	if err != nil {
		return err
	}
	if admin.ID != 0 {
		if err := tx.Create(&model.UserRole{UserID: admin.ID, RoleID: role.ID}).Error; err != nil {
			return err
		}
	}
	return nil
}

func seedMenus(tx *gorm.DB) error {
	ok, err := empty(tx, &model.Menu{})
	if err != nil || !ok {
		return err
	}
	return createMenus(tx, menuSeeds(), nil)
}

func createMenus(tx *gorm.DB, seeds []menuSeed, parentID *int64) error {
	for _, s := range seeds {
		menu := &model.Menu{
			ParentID:  parentID,
			Name:      s.Name,
			Path:      s.Path,
			Component: s.Component,
			Title:     s.Title,
			Icon:      s.Icon,
			Sort:      s.Sort,
			IsHidden:  s.IsHidden,
		}
		if err := tx.Create(menu).Error; err != nil {
			return err
		}
		if len(s.Children) > 0 {
			id := menu.ID
			if err := createMenus(tx, s.Children, &id); err != nil {
				return err
			}
		}
	}
	return nil
}
