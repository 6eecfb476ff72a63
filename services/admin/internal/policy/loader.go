package policy

import (
	"context"
	"fmt"
	"sync"

	"github.com/goback/backoffice/pkg/auth"
	"github.com/goback/backoffice/pkg/logger"
	"github.com/goback/backoffice/pkg/metrics"
	"github.com/goback/backoffice/services/admin/internal/model"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Enforcer 接收策略快照
type Enforcer interface {
	Sync(policies []auth.Policy, grants []auth.Grant) error
}

// Refresher 关联关系提交后刷新接口权限策略
type Refresher interface {
	Refresh(ctx context.Context)
}

// Loader 从角色权限与用户角色关联投影出接口权限策略
type Loader struct {
	db       *gorm.DB
	enforcer Enforcer
	metrics  *metrics.Metrics
	mu       sync.Mutex
}

// NewLoader 创建策略加载器，enforcer 为 nil 时 Refresh 不做任何事
func NewLoader(db *gorm.DB, enforcer Enforcer, m *metrics.Metrics) *Loader {
	return &Loader{db: db, enforcer: enforcer, metrics: m}
}

// Load 读取启用角色的 API 权限与启用用户的角色绑定
func (l *Loader) Load(ctx context.Context) ([]auth.Policy, []auth.Grant, error) {
	var policies []auth.Policy
	err := l.db.WithContext(ctx).
		Table(model.RolePermission{}.TableName()+" AS rp").
		Select("r.code AS role_code, p.resource AS resource, p.action AS action").
		Joins("JOIN roles AS r ON r.id = rp.role_id").
		Joins("JOIN permissions AS p ON p.id = rp.permission_id").
		Where("r.status = ? AND p.type_name = ?", model.StatusEnabled, model.PermissionAPI).
		Order("r.code, p.resource, p.action").
		Scan(&policies).Error
	if err != nil {
		return nil, nil, fmt.Errorf("load role policies: %w", err)
	}

	var grants []auth.Grant
	err = l.db.WithContext(ctx).
		Table(model.UserRole{}.TableName()+" AS ur").
		Select("ur.user_id AS user_id, r.code AS role_code").
		Joins("JOIN roles AS r ON r.id = ur.role_id").
		Joins("JOIN users AS u ON u.id = ur.user_id").
		Where("r.status = ? AND u.status = ?", model.StatusEnabled, model.StatusEnabled).
		Order("ur.user_id, r.code").
		Scan(&grants).Error
	if err != nil {
		return nil, nil, fmt.Errorf("load user grants: %w", err)
	}
	return policies, grants, nil
}

// Sync 重建全部策略
func (l *Loader) Sync(ctx context.Context) error {
	if l == nil || l.enforcer == nil {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	policies, grants, err := l.Load(ctx)
	if err == nil {
		err = l.enforcer.Sync(policies, grants)
	}
	l.metrics.PolicySync(err)
	return err
}

// Refresh 同 Sync，失败只记录日志；关联数据已提交，不回传给调用方
func (l *Loader) Refresh(ctx context.Context) {
	if err := l.Sync(ctx); err != nil {
		logger.Error("接口权限策略刷新失败", zap.Error(err))
	}
}
