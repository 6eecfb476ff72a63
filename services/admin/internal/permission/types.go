package permission

// CreateRequest 创建权限请求
type CreateRequest struct {
	Name        string `json:"name" validate:"required,max=50"`
	Code        string `json:"code" validate:"required,max=100"`
	Type        string `json:"type_name" validate:"omitempty,oneof=PAGE MENU API"`
	Resource    string `json:"resource" validate:"max=255"`
	Action      string `json:"action" validate:"max=20"`
	ParentID    *int64 `json:"parent_id"`
	Sort        int    `json:"sort"`
	Description string `json:"description" validate:"max=255"`
	ColorStart  string `json:"color_start" validate:"max=20"`
	ColorEnd    string `json:"color_end" validate:"max=20"`
}

// UpdateRequest 更新权限请求，parent_id 为 0 表示移到根级
type UpdateRequest struct {
	Name        *string `json:"name" validate:"omitempty,min=1,max=50"`
	Type        *string `json:"type_name" validate:"omitempty,oneof=PAGE MENU API"`
	Resource    *string `json:"resource" validate:"omitempty,max=255"`
	Action      *string `json:"action" validate:"omitempty,max=20"`
	ParentID    *int64  `json:"parent_id"`
	Sort        *int    `json:"sort"`
	Description *string `json:"description" validate:"omitempty,max=255"`
	ColorStart  *string `json:"color_start" validate:"omitempty,max=20"`
	ColorEnd    *string `json:"color_end" validate:"omitempty,max=20"`
}

// ListRequest 权限列表请求
type ListRequest struct {
	Name string `query:"name"`
	Code string `query:"code"`
	Type string `query:"type_name" validate:"omitempty,oneof=PAGE MENU API"`
}
