package auth

import (
	"fmt"
	"strconv"
	"sync"

	"github.com/casbin/casbin/v3"
	"github.com/casbin/casbin/v3/model"
	gormadapter "github.com/casbin/gorm-adapter/v3"
	"gorm.io/gorm"
)

// rbacModel 固定的 RBAC 模型：用户经角色获得 (资源, 方法) 授权，资源支持 * 前缀匹配
const rbacModel = `
[request_definition]
r = sub, obj, act

[policy_definition]
p = sub, obj, act

[role_definition]
g = _, _

[policy_effect]
e = some(where (p.eft == allow))

[matchers]
m = g(r.sub, p.sub) && keyMatch(r.obj, p.obj) && (p.act == "*" || r.act == p.act)
`

// Policy 角色拥有的接口权限
type Policy struct {
	RoleCode string
	Resource string
	Action   string
}

// Grant 用户与角色的绑定
type Grant struct {
	UserID   int64
	RoleCode string
}

// Enforcer 接口权限校验器，策略由角色权限与用户角色关联投影而来
type Enforcer struct {
	mu       sync.RWMutex
	enforcer *casbin.Enforcer
}

// NewEnforcer 创建校验器，策略持久化在 casbin_rule 表
func NewEnforcer(db *gorm.DB) (*Enforcer, error) {
	adapter, err := gormadapter.NewAdapterByDB(db)
	if err != nil {
		return nil, fmt.Errorf("failed to create casbin adapter: %w", err)
	}

	m, err := model.NewModelFromString(rbacModel)
	if err != nil {
		return nil, fmt.Errorf("failed to parse casbin model: %w", err)
	}

	e, err := casbin.NewEnforcer(m, adapter)
	if err != nil {
		return nil, fmt.Errorf("failed to create casbin enforcer: %w", err)
	}
	// 策略整体重建后一次性保存
	e.EnableAutoSave(false)

	return &Enforcer{enforcer: e}, nil
}

func userSubject(userID int64) string {
	return "user:" + strconv.FormatInt(userID, 10)
}

func roleSubject(code string) string {
	return "role:" + code
}

// Sync 用给定的快照整体替换内存与持久化策略
func (e *Enforcer) Sync(policies []Policy, grants []Grant) error {
	rules := make([][]string, 0, len(policies))
	for _, p := range policies {
		if p.Resource == "" || p.Action == "" {
			continue
		}
		rules = append(rules, []string{roleSubject(p.RoleCode), p.Resource, p.Action})
	}
	groupings := make([][]string, 0, len(grants))
	for _, g := range grants {
		groupings = append(groupings, []string{userSubject(g.UserID), roleSubject(g.RoleCode)})
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.enforcer.ClearPolicy()
	if len(rules) > 0 {
		if _, err := e.enforcer.AddPolicies(rules); err != nil {
			return fmt.Errorf("add policies: %w", err)
		}
	}
	if len(groupings) > 0 {
		if _, err := e.enforcer.AddGroupingPolicies(groupings); err != nil {
			return fmt.Errorf("add grouping policies: %w", err)
		}
	}
	if err := e.enforcer.BuildRoleLinks(); err != nil {
		return fmt.Errorf("build role links: %w", err)
	}
	return e.enforcer.SavePolicy()
}

// Allow 检查用户是否可以访问 path + method
func (e *Enforcer) Allow(userID int64, path, method string) (bool, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.enforcer.Enforce(userSubject(userID), path, method)
}
