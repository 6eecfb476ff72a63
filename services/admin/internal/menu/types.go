package menu

// CreateRequest 创建菜单请求
type CreateRequest struct {
	ParentID  *int64 `json:"parent_id"`
	Name      string `json:"name" validate:"required,max=50"`
	Path      string `json:"path" validate:"required,max=255"`
	Component string `json:"component" validate:"required,max=255"`
	Title     string `json:"title" validate:"required,max=50"`
	Icon      string `json:"icon" validate:"max=50"`
	Sort      int    `json:"sort"`
	IsHidden  bool   `json:"is_hidden"`
}

// UpdateRequest 更新菜单请求，parent_id 为 0 表示移到根级
type UpdateRequest struct {
	ParentID  *int64  `json:"parent_id"`
	Name      *string `json:"name" validate:"omitempty,max=50"`
	Path      *string `json:"path" validate:"omitempty,max=255"`
	Component *string `json:"component" validate:"omitempty,max=255"`
	Title     *string `json:"title" validate:"omitempty,max=50"`
	Icon      *string `json:"icon" validate:"omitempty,max=50"`
	Sort      *int    `json:"sort"`
	IsHidden  *bool   `json:"is_hidden"`
}

// ListRequest 菜单列表请求，all=true 时包含隐藏菜单
type ListRequest struct {
	All bool `query:"all"`
}
