package role

// CreateRequest 创建角色请求
type CreateRequest struct {
	Name        string `json:"name" validate:"required,max=50"`
	Code        string `json:"code" validate:"required,max=50"`
	Description string `json:"description" validate:"max=255"`
	Status      *int8  `json:"status" validate:"omitempty,oneof=0 1"`
	ColorStart  string `json:"color_start" validate:"max=20"`
	ColorEnd    string `json:"color_end" validate:"max=20"`
}

// UpdateRequest 更新角色请求
type UpdateRequest struct {
	Name        *string `json:"name" validate:"omitempty,max=50"`
	Code        *string `json:"code" validate:"omitempty,max=50"`
	Description *string `json:"description" validate:"omitempty,max=255"`
	Status      *int8   `json:"status" validate:"omitempty,oneof=0 1"`
	ColorStart  *string `json:"color_start" validate:"omitempty,max=20"`
	ColorEnd    *string `json:"color_end" validate:"omitempty,max=20"`
}

// ListRequest 角色列表请求
type ListRequest struct {
	Page     int    `query:"page"`
	PageSize int    `query:"page_size"`
	Name     string `query:"name"`
	Code     string `query:"code"`
	Status   *int8  `query:"status"`
}

// SetPermissionsRequest 设置角色权限请求，提交完整的目标集合
type SetPermissionsRequest struct {
	PermissionIDs []int64 `json:"permission_ids" validate:"required,dive,gt=0"`
}
