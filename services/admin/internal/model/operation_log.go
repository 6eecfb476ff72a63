package model

import (
	"time"

	"gorm.io/datatypes"
)

// OperationLog 操作日志，params 与 error 为 JSON 列
type OperationLog struct {
	ID        int64          `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID    int64          `gorm:"index" json:"user_id"`
	Username  string         `gorm:"size:50;index" json:"username"`
	Module    string         `gorm:"size:50" json:"module"`
	Operation string         `gorm:"size:20" json:"operation"`
	Method    string         `gorm:"size:10" json:"method"`
	Path      string         `gorm:"size:255" json:"path"`
	Params    datatypes.JSON `json:"params"`
	IP        string         `gorm:"size:64" json:"ip"`
	Status    int            `gorm:"index" json:"status"`
	Error     datatypes.JSON `json:"error"`
	CreatedAt time.Time      `gorm:"index" json:"created_at"`
}

// TableName 表名
func (OperationLog) TableName() string {
	return "operation_logs"
}
