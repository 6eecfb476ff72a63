package model

import (
	"time"

	"github.com/goback/backoffice/pkg/dal"
)

// Role 角色模型
type Role struct {
	dal.Model
	Name        string `gorm:"size:50;uniqueIndex;not null" json:"name"`
	Code        string `gorm:"size:50;uniqueIndex;not null" json:"code"`
	Description string `gorm:"size:255" json:"description"`
	Status      int8   `gorm:"not null" json:"status"`
	ColorStart  string `gorm:"size:20" json:"color_start"`
	ColorEnd    string `gorm:"size:20" json:"color_end"`
}

// TableName 表名
func (Role) TableName() string {
	return "roles"
}

// RolePermission 角色权限关联
type RolePermission struct {
	ID           int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	RoleID       int64     `gorm:"uniqueIndex:idx_role_perm;not null" json:"role_id"`
	PermissionID int64     `gorm:"uniqueIndex:idx_role_perm;index;not null" json:"permission_id"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// TableName 表名
func (RolePermission) TableName() string {
	return "role_permissions"
}
