package user

import "github.com/goback/backoffice/services/admin/internal/model"

// CreateRequest 创建用户请求
type CreateRequest struct {
	Username string  `json:"username" validate:"required,min=3,max=50"`
	Password string  `json:"password" validate:"required,min=6,max=72"`
	Nickname string  `json:"nickname" validate:"required,max=50"`
	Email    string  `json:"email" validate:"omitempty,email,max=100"`
	Avatar   string  `json:"avatar" validate:"max=255"`
	Status   *int8   `json:"status" validate:"omitempty,oneof=0 1"`
	RoleIDs  []int64 `json:"role_ids" validate:"omitempty,dive,gt=0"`
}

// UpdateRequest 更新用户请求，password 为空时不修改
type UpdateRequest struct {
	Nickname *string `json:"nickname" validate:"omitempty,max=50"`
	Email    *string `json:"email" validate:"omitempty,max=100"`
	Avatar   *string `json:"avatar" validate:"omitempty,max=255"`
	Status   *int8   `json:"status" validate:"omitempty,oneof=0 1"`
	Password string  `json:"password" validate:"omitempty,min=6,max=72"`
}

// ListRequest 用户列表请求
type ListRequest struct {
	Page     int    `query:"page"`
	PageSize int    `query:"page_size"`
	Username string `query:"username"`
	Nickname string `query:"nickname"`
	Email    string `query:"email"`
	Status   *int8  `query:"status"`
}

// SetRolesRequest 设置用户角色请求，提交完整的目标集合
type SetRolesRequest struct {
	RoleIDs []int64 `json:"role_ids" validate:"required,dive,gt=0"`
}

// RolesResponse 用户角色
type RolesResponse struct {
	RoleIDs []int64      `json:"role_ids"`
	Roles   []model.Role `json:"roles"`
}
