package seed

import "github.com/goback/backoffice/services/admin/internal/model"

// 初始账户
const (
	AdminUsername = "admin"
	AdminPassword = "admin123"
	AdminNickname = "管理员"

	SuperAdminCode = "super_admin"
	SuperAdminName = "超级管理员"
)

type permissionSeed struct {
	Code        string
	Name        string
	Type        string
	Resource    string // 以 / 开头；API 类型会加上接口前缀
	Action      string
	Parent      string
	Sort        int
	Description string
	ColorStart  string
	ColorEnd    string
}

type menuSeed struct {
	Name      string
	Path      string
	Component string
	Title     string
	Icon      string
	Sort      int
	IsHidden  bool
	Children  []menuSeed
}

// 系统管理下各页面的 API 权限，资源使用 keyMatch 通配
func apiPermissions(page, resource, label string) []permissionSeed {
	return []permissionSeed{
		{Code: page + ":view", Name: "查看" + label, Type: model.PermissionAPI, Resource: resource + "*", Action: "GET", Parent: page, Sort: 1},
		{Code: page + ":create", Name: "新增" + label, Type: model.PermissionAPI, Resource: resource, Action: "POST", Parent: page, Sort: 2},
		{Code: page + ":edit", Name: "编辑" + label, Type: model.PermissionAPI, Resource: resource + "/*", Action: "PUT", Parent: page, Sort: 3},
		{Code: page + ":delete", Name: "删除" + label, Type: model.PermissionAPI, Resource: resource + "/*", Action: "DELETE", Parent: page, Sort: 4},
	}
}

func permissionSeeds() []permissionSeed {
	seeds := []permissionSeed{
		{Code: "system", Name: "系统管理", Type: model.PermissionMenu, Resource: "/system", Action: "VIEW", Sort: 1, Description: "系统管理目录", ColorStart: "#9C27B0", ColorEnd: "#BA68C8"},
		{Code: "system:menu", Name: "菜单管理", Type: model.PermissionPage, Resource: "/system/menus", Action: "VIEW", Parent: "system", Sort: 1},
		{Code: "system:user", Name: "用户管理", Type: model.PermissionPage, Resource: "/system/users", Action: "VIEW", Parent: "system", Sort: 2},
		{Code: "system:role", Name: "角色管理", Type: model.PermissionPage, Resource: "/system/roles", Action: "VIEW", Parent: "system", Sort: 3},
		{Code: "system:permission", Name: "权限管理", Type: model.PermissionPage, Resource: "/system/permissions", Action: "VIEW", Parent: "system", Sort: 4},
		{Code: "system:log", Name: "操作日志", Type: model.PermissionPage, Resource: "/system/operation-logs", Action: "VIEW", Parent: "system", Sort: 5},
		{Code: "system:profile", Name: "个人信息", Type: model.PermissionPage, Resource: "/profile", Action: "VIEW", Parent: "system", Sort: 6},
	}
	seeds = append(seeds, apiPermissions("system:menu", "/menus", "菜单")...)
	seeds = append(seeds, apiPermissions("system:user", "/users", "用户")...)
	seeds = append(seeds, apiPermissions("system:role", "/roles", "角色")...)
	seeds = append(seeds, apiPermissions("system:permission", "/permissions", "权限")...)
	seeds = append(seeds,
		permissionSeed{Code: "system:user:assign", Name: "分配用户角色", Type: model.PermissionAPI, Resource: "/users/*", Action: "POST", Parent: "system:user", Sort: 5},
		permissionSeed{Code: "system:role:assign", Name: "分配角色权限", Type: model.PermissionAPI, Resource: "/roles/*", Action: "POST", Parent: "system:role", Sort: 5},
		permissionSeed{Code: "system:log:view", Name: "查看操作日志", Type: model.PermissionAPI, Resource: "/operation-logs*", Action: "GET", Parent: "system:log", Sort: 1},
		permissionSeed{Code: "system:log:clear", Name: "清空操作日志", Type: model.PermissionAPI, Resource: "/operation-logs", Action: "DELETE", Parent: "system:log", Sort: 2},
	)
	return seeds
}

func menuSeeds() []menuSeed {
	return []menuSeed{
		{Name: "Dashboard", Path: "/", Component: "../views/Dashboard.vue", Title: "仪表盘", Icon: "Histogram", Sort: 0},
		{Name: "System", Path: "/system", Component: "LAYOUT", Title: "系统管理", Icon: "Setting", Sort: 1, Children: []menuSeed{
			{Name: "MenuList", Path: "/menus", Component: "../views/system/menu/index.vue", Title: "菜单管理", Icon: "Menu", Sort: 0},
			{Name: "UserList", Path: "/users", Component: "../views/system/user/index.vue", Title: "用户管理", Icon: "User", Sort: 1},
			{Name: "RoleList", Path: "/roles", Component: "../views/system/role/index.vue", Title: "角色管理", Icon: "UserFilled", Sort: 2},
			{Name: "PermissionList", Path: "/permissions", Component: "../views/system/permission/index.vue", Title: "权限管理", Icon: "Lock", Sort: 3},
			{Name: "OperationLogList", Path: "/operation-logs", Component: "../views/system/operation-log/index.vue", Title: "操作日志", Icon: "Document", Sort: 4},
		}},
		{Name: "Profile", Path: "/profile", Component: "../views/profile/index.vue", Title: "个人信息", Icon: "User", Sort: 99, IsHidden: true},
	}
}
