package model

import (
	"time"

	"github.com/goback/backoffice/pkg/dal"
)

// 账户状态
const (
	StatusDisabled int8 = 0
	StatusEnabled  int8 = 1
)

// User 用户模型
type User struct {
	dal.Model
	Username string `gorm:"size:50;uniqueIndex;not null" json:"username"`
	Password string `gorm:"size:255;not null" json:"-"`
	Nickname string `gorm:"size:50;not null" json:"nickname"`
	Email    string `gorm:"size:100" json:"email"`
	Avatar   string `gorm:"size:255" json:"avatar"`
	Status   int8   `gorm:"not null" json:"status"` // 1:正常 0:禁用
}

// TableName 表名
func (User) TableName() string {
	return "users"
}

// Active 是否启用
func (u *User) Active() bool {
	return u.Status == StatusEnabled
}

// UserRole 用户角色关联
type UserRole struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID    int64     `gorm:"uniqueIndex:idx_user_role;not null" json:"user_id"`
	RoleID    int64     `gorm:"uniqueIndex:idx_user_role;index;not null" json:"role_id"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// TableName 表名
func (UserRole) TableName() string {
	return "user_roles"
}
