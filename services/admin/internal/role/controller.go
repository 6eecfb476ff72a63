package role

import (
	"context"
	"strings"

	"github.com/goback/backoffice/pkg/dal"
	"github.com/goback/backoffice/pkg/errors"
	"github.com/goback/backoffice/pkg/metrics"
	"github.com/goback/backoffice/pkg/response"
	"github.com/goback/backoffice/pkg/router"
	"github.com/goback/backoffice/services/admin/internal/model"
	"github.com/goback/backoffice/services/admin/internal/permission"
	"github.com/goback/backoffice/services/admin/internal/policy"
	"github.com/gofiber/fiber/v2"
)

// RelationRolePermission 重分配指标中的关联名
const RelationRolePermission = "role_permission"

// PermissionStore 角色控制器依赖的权限查询
type PermissionStore interface {
	ListOrdered(ctx context.Context) ([]model.Permission, error)
	FindByIDs(ctx context.Context, ids []int64) ([]model.Permission, error)
}

// Controller 角色控制器
type Controller struct {
	repo    Repository
	perms   PermissionStore
	policy  policy.Refresher
	metrics *metrics.Metrics
}

// NewController 创建角色控制器
func NewController(repo Repository, perms PermissionStore, refresher policy.Refresher, m *metrics.Metrics) *Controller {
	return &Controller{repo: repo, perms: perms, policy: refresher, metrics: m}
}

// Prefix 路由前缀
func (c *Controller) Prefix() string {
	return "/roles"
}

// Routes 路由配置
func (c *Controller) Routes() []router.Route {
	return []router.Route{
		{Method: fiber.MethodGet, Path: "", Handler: c.List},
		{Method: fiber.MethodGet, Path: "/:id", Handler: c.Get},
		{Method: fiber.MethodPost, Path: "", Handler: c.Create},
		{Method: fiber.MethodPut, Path: "/:id", Handler: c.Update},
		{Method: fiber.MethodDelete, Path: "/:id", Handler: c.Delete},
		{Method: fiber.MethodGet, Path: "/:id/permissions", Handler: c.GetPermissions},
		{Method: fiber.MethodPut, Path: "/:id/permissions", Handler: c.SetPermissions},
		{Method: fiber.MethodPost, Path: "/:id/permissions", Handler: c.SetPermissions},
	}
}

// List 角色列表
// @Router /roles [get]
func (c *Controller) List(ctx *fiber.Ctx) error {
	var req ListRequest
	if err := router.BindQuery(ctx, &req); err != nil {
		return err
	}
	result, err := dal.NewQueryBuilder[model.Role](c.repo.DB()).
		Like("name", req.Name).
		Like("code", req.Code).
		WhereIf(req.Status != nil, "status = ?", req.Status).
		Order("id ASC").
		Paged(ctx.UserContext(), dal.NewPagination(req.Page, req.PageSize))
	if err != nil {
		return errors.Internal(err)
	}
	return response.SuccessPage(ctx, result.List, result.Total, result.Page, result.PageSize)
}

// Get 获取角色
// @Router /roles/{id} [get]
func (c *Controller) Get(ctx *fiber.Ctx) error {
	role, err := c.find(ctx)
	if err != nil {
		return err
	}
	return response.Success(ctx, role)
}

// Create 创建角色
// @Router /roles [post]
func (c *Controller) Create(ctx *fiber.Ctx) error {
	var req CreateRequest
	if err := router.Bind(ctx, &req); err != nil {
		return err
	}
	role, err := c.create(ctx.UserContext(), &req)
	if err != nil {
		return err
	}
	return response.Created(ctx, role)
}

func (c *Controller) create(ctx context.Context, req *CreateRequest) (*model.Role, error) {
	role := &model.Role{
		Name:        strings.TrimSpace(req.Name),
		Code:        strings.TrimSpace(req.Code),
		Description: req.Description,
		Status:      model.StatusEnabled,
		ColorStart:  req.ColorStart,
		ColorEnd:    req.ColorEnd,
	}
	if req.Status != nil {
		role.Status = *req.Status
	}
	if role.Name == "" || role.Code == "" {
		return nil, errors.Validation("name、code 不能为空")
	}
	if err := c.checkUnique(ctx, 0, role.Name, role.Code); err != nil {
		return nil, err
	}
	if err := c.repo.Create(ctx, role); err != nil {
		return nil, errors.Internal(err)
	}
	return role, nil
}

// Update 更新角色
// @Router /roles/{id} [put]
func (c *Controller) Update(ctx *fiber.Ctx) error {
	role, err := c.find(ctx)
	if err != nil {
		return err
	}
	var req UpdateRequest
	if err := router.Bind(ctx, &req); err != nil {
		return err
	}

	var name, code string
	if req.Name != nil {
		name = strings.TrimSpace(*req.Name)
		if name == "" {
			return errors.Validation("name 不能为空")
		}
	}
	if req.Code != nil {
		code = strings.TrimSpace(*req.Code)
		if code == "" {
			return errors.Validation("code 不能为空")
		}
	}
	if err := c.checkUnique(ctx.UserContext(), role.ID, name, code); err != nil {
		return err
	}

	if name != "" {
		role.Name = name
	}
	if code != "" {
		role.Code = code
	}
	if req.Description != nil {
		role.Description = *req.Description
	}
	if req.Status != nil {
		role.Status = *req.Status
	}
	if req.ColorStart != nil {
		role.ColorStart = *req.ColorStart
	}
	if req.ColorEnd != nil {
		role.ColorEnd = *req.ColorEnd
	}
	if err := c.repo.Update(ctx.UserContext(), role); err != nil {
		return errors.Internal(err)
	}

	// 编码与状态都会影响接口权限策略
	c.policy.Refresh(ctx.UserContext())
	return response.Success(ctx, role)
}

// Delete 删除角色，同时删除其权限与用户关联
// @Router /roles/{id} [delete]
func (c *Controller) Delete(ctx *fiber.Ctx) error {
	role, err := c.find(ctx)
	if err != nil {
		return err
	}
	if err := c.repo.DeleteWithRelations(ctx.UserContext(), role.ID); err != nil {
		return errors.Transaction(err)
	}
	c.policy.Refresh(ctx.UserContext())
	return response.NoContent(ctx)
}

// GetPermissions 角色权限树，checkedKeys 为当前已分配的权限ID
// @Router /roles/{id}/permissions [get]
func (c *Controller) GetPermissions(ctx *fiber.Ctx) error {
	role, err := c.find(ctx)
	if err != nil {
		return err
	}
	perms, err := c.perms.ListOrdered(ctx.UserContext())
	if err != nil {
		return errors.Internal(err)
	}
	selected, err := c.repo.PermissionIDs(ctx.UserContext(), role.ID)
	if err != nil {
		return errors.Internal(err)
	}

	result := permission.BuildRoleTree(perms, selected)
	permission.WarnOrphans(result.Orphans)
	return response.Success(ctx, result)
}

// SetPermissions 全量替换角色权限
// @Router /roles/{id}/permissions [put]
func (c *Controller) SetPermissions(ctx *fiber.Ctx) error {
	role, err := c.find(ctx)
	if err != nil {
		return err
	}
	var req SetPermissionsRequest
	if err := router.Bind(ctx, &req); err != nil {
		return err
	}
	if err := c.setPermissions(ctx.UserContext(), role.ID, req.PermissionIDs); err != nil {
		return err
	}
	c.policy.Refresh(ctx.UserContext())
	return response.NoContent(ctx)
}

func (c *Controller) setPermissions(ctx context.Context, roleID int64, permissionIDs []int64) error {
	ids := router.UniqueIDs(permissionIDs)
	found, err := c.perms.FindByIDs(ctx, ids)
	if err != nil {
		return errors.Internal(err)
	}
	if len(found) != len(ids) {
		return errors.BadRequest("包含不存在的权限")
	}

	err = c.repo.ReplacePermissions(ctx, roleID, ids)
	c.metrics.Reassignment(RelationRolePermission, err)
	if err != nil {
		return errors.Transaction(err)
	}
	return nil
}

func (c *Controller) find(ctx *fiber.Ctx) (*model.Role, error) {
	id, err := router.ParamID(ctx)
	if err != nil {
		return nil, err
	}
	role, err := c.repo.FindByID(ctx.UserContext(), id)
	if err != nil {
		return nil, errors.Internal(err)
	}
	if role == nil {
		return nil, errors.NotFound("角色")
	}
	return role, nil
}

func (c *Controller) checkUnique(ctx context.Context, id int64, name, code string) error {
	if name != "" {
		existing, err := c.repo.FindByName(ctx, name)
		if err != nil {
			return errors.Internal(err)
		}
		if existing != nil && existing.ID != id {
			return errors.Duplicate("角色名称")
		}
	}
	if code != "" {
		existing, err := c.repo.FindByCode(ctx, code)
		if err != nil {
			return errors.Internal(err)
		}
		if existing != nil && existing.ID != id {
			return errors.Duplicate("角色编码")
		}
	}
	return nil
}
