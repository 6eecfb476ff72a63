package account

import "github.com/goback/backoffice/services/admin/internal/model"

// LoginRequest 登录请求
type LoginRequest struct {
	Username string `json:"username" validate:"required,max=50"`
	Password string `json:"password" validate:"required,max=72"`
}

// LoginResponse 登录响应
type LoginResponse struct {
	Token string      `json:"token"`
	User  *model.User `json:"user"`
}

// CurrentUser 当前用户及其角色
type CurrentUser struct {
	*model.User
	Roles []model.Role `json:"roles"`
}

// PermissionsResponse 当前用户的权限，menus 为 PAGE 类型权限
type PermissionsResponse struct {
	Permissions []model.Permission `json:"permissions"`
	Menus       []model.Permission `json:"menus"`
}
