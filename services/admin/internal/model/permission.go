package model

import "github.com/goback/backoffice/pkg/dal"

// 权限类型
const (
	PermissionPage = "PAGE"
	PermissionMenu = "MENU"
	PermissionAPI  = "API"
)

// Permission 权限模型，code 以冒号分段表示层级，如 system:user:view
type Permission struct {
	dal.Model
	Name        string `gorm:"size:50;uniqueIndex;not null" json:"name"`
	Code        string `gorm:"size:100;uniqueIndex;not null" json:"code"`
	Type        string `gorm:"column:type_name;size:10;not null;default:'PAGE'" json:"type_name"`
	Resource    string `gorm:"size:255" json:"resource"`
	Action      string `gorm:"size:20" json:"action"`
	ParentID    *int64 `gorm:"index" json:"parent_id"`
	Sort        int    `gorm:"default:0" json:"sort"`
	Description string `gorm:"size:255" json:"description"`
	ColorStart  string `gorm:"size:20" json:"color_start"`
	ColorEnd    string `gorm:"size:20" json:"color_end"`
}

// TableName 表名
func (Permission) TableName() string {
	return "permissions"
}
