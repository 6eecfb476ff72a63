package model

import "github.com/goback/backoffice/pkg/dal"

// Menu 菜单模型
type Menu struct {
	dal.Model
	ParentID  *int64 `gorm:"index" json:"parent_id"`
	Name      string `gorm:"size:50;not null" json:"name"`
	Path      string `gorm:"size:255;not null" json:"path"`
	Component string `gorm:"size:255;not null" json:"component"`
	Title     string `gorm:"size:50;not null" json:"title"`
	Icon      string `gorm:"size:50" json:"icon"`
	Sort      int    `gorm:"default:0" json:"sort"`
	IsHidden  bool   `gorm:"not null;default:false" json:"is_hidden"`

	Children []*Menu `gorm:"-" json:"children,omitempty"`
}

// TableName 表名
func (Menu) TableName() string {
	return "menus"
}
