package permission

import (
	"context"
	"net/http"
	"strings"

	"github.com/goback/backoffice/pkg/dal"
	"github.com/goback/backoffice/pkg/errors"
	"github.com/goback/backoffice/pkg/logger"
	"github.com/goback/backoffice/pkg/response"
	"github.com/goback/backoffice/pkg/router"
	"github.com/goback/backoffice/services/admin/internal/model"
	"github.com/goback/backoffice/services/admin/internal/policy"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

var errHasChildren = errors.New(http.StatusConflict, "存在子权限，无法删除")

// Controller 权限控制器
type Controller struct {
	repo   Repository
	policy policy.Refresher
}

// NewController 创建权限控制器
func NewController(repo Repository, refresher policy.Refresher) *Controller {
	return &Controller{repo: repo, policy: refresher}
}

// Prefix 路由前缀
func (c *Controller) Prefix() string {
	return "/permissions"
}

// Routes 路由配置，/tree 需在 /:id 之前注册
func (c *Controller) Routes() []router.Route {
	return []router.Route{
		{Method: fiber.MethodGet, Path: "", Handler: c.List},
		{Method: fiber.MethodGet, Path: "/tree", Handler: c.Tree},
		{Method: fiber.MethodGet, Path: "/:id", Handler: c.Get},
		{Method: fiber.MethodPost, Path: "", Handler: c.Create},
		{Method: fiber.MethodPut, Path: "/:id", Handler: c.Update},
		{Method: fiber.MethodDelete, Path: "/:id", Handler: c.Delete},
	}
}

// List 权限列表，按 sort、id 排序
// @Router /permissions [get]
func (c *Controller) List(ctx *fiber.Ctx) error {
	var req ListRequest
	if err := router.BindQuery(ctx, &req); err != nil {
		return err
	}
	perms, err := dal.NewQueryBuilder[model.Permission](c.repo.DB()).
		Like("name", req.Name).
		Like("code", req.Code).
		WhereIf(req.Type != "", "type_name = ?", req.Type).
		Order("sort ASC").
		Order("id ASC").
		Find(ctx.UserContext())
	if err != nil {
		return errors.Internal(err)
	}
	return response.Success(ctx, perms)
}

// Tree 权限树
// @Router /permissions/tree [get]
func (c *Controller) Tree(ctx *fiber.Ctx) error {
	perms, err := c.repo.ListOrdered(ctx.UserContext())
	if err != nil {
		return errors.Internal(err)
	}
	roots, orphans := BuildTree(perms)
	WarnOrphans(orphans)
	return response.Success(ctx, roots)
}

// Get 获取权限
// @Router /permissions/{id} [get]
func (c *Controller) Get(ctx *fiber.Ctx) error {
	id, err := router.ParamID(ctx)
	if err != nil {
		return err
	}
	perm, err := c.repo.FindByID(ctx.UserContext(), id)
	if err != nil {
		return errors.Internal(err)
	}
	if perm == nil {
		return errors.NotFound("权限")
	}
	return response.Success(ctx, perm)
}

// Create 创建权限
// @Router /permissions [post]
func (c *Controller) Create(ctx *fiber.Ctx) error {
	var req CreateRequest
	if err := router.Bind(ctx, &req); err != nil {
		return err
	}
	perm, err := c.create(ctx.UserContext(), &req)
	if err != nil {
		return err
	}
	c.policy.Refresh(ctx.UserContext())
	return response.Created(ctx, perm)
}

func (c *Controller) create(ctx context.Context, req *CreateRequest) (*model.Permission, error) {
	name, code := strings.TrimSpace(req.Name), strings.TrimSpace(req.Code)
	if name == "" || code == "" {
		return nil, errors.Validation("name、code 不能为空")
	}
	if err := c.checkUnique(ctx, 0, name, code); err != nil {
		return nil, err
	}
	perm := &model.Permission{
		Name:        name,
		Code:        code,
		Type:        req.Type,
		Resource:    req.Resource,
		Action:      strings.ToUpper(req.Action),
		Sort:        req.Sort,
		Description: req.Description,
		ColorStart:  req.ColorStart,
		ColorEnd:    req.ColorEnd,
	}
	if perm.Type == "" {
		perm.Type = model.PermissionPage
	}
	if req.ParentID != nil && *req.ParentID > 0 {
		parent, err := c.repo.FindByID(ctx, *req.ParentID)
		if err != nil {
			return nil, errors.Internal(err)
		}
		if parent == nil {
			return nil, errors.BadRequest("上级权限不存在")
		}
		perm.ParentID = req.ParentID
	}
	if err := c.repo.Create(ctx, perm); err != nil {
		return nil, errors.Internal(err)
	}
	return perm, nil
}

// Update 更新权限，父节点必须存在且不能成环
// @Router /permissions/{id} [put]
func (c *Controller) Update(ctx *fiber.Ctx) error {
	id, err := router.ParamID(ctx)
	if err != nil {
		return err
	}
	var req UpdateRequest
	if err := router.Bind(ctx, &req); err != nil {
		return err
	}
	perm, err := c.update(ctx.UserContext(), id, &req)
	if err != nil {
		return err
	}
	c.policy.Refresh(ctx.UserContext())
	return response.Success(ctx, perm)
}

func (c *Controller) update(ctx context.Context, id int64, req *UpdateRequest) (*model.Permission, error) {
	perm, err := c.repo.FindByID(ctx, id)
	if err != nil {
		return nil, errors.Internal(err)
	}
	if perm == nil {
		return nil, errors.NotFound("权限")
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, errors.Validation("name 不能为空")
		}
		if name != perm.Name {
			if err := c.checkUnique(ctx, id, name, ""); err != nil {
				return nil, err
			}
		}
		perm.Name = name
	}
	if req.Type != nil {
		perm.Type = *req.Type
	}
	if req.Resource != nil {
		perm.Resource = *req.Resource
	}
	if req.Action != nil {
		perm.Action = strings.ToUpper(*req.Action)
	}
	if req.Sort != nil {
		perm.Sort = *req.Sort
	}
	if req.Description != nil {
		perm.Description = *req.Description
	}
	if req.ColorStart != nil {
		perm.ColorStart = *req.ColorStart
	}
	if req.ColorEnd != nil {
		perm.ColorEnd = *req.ColorEnd
	}
	if req.ParentID != nil {
		if err := c.moveTo(ctx, perm, *req.ParentID); err != nil {
			return nil, err
		}
	}

	if err := c.repo.Update(ctx, perm); err != nil {
		return nil, errors.Internal(err)
	}
	return perm, nil
}

// moveTo 调整上级权限，拒绝自身或后代作为上级
func (c *Controller) moveTo(ctx context.Context, perm *model.Permission, parentID int64) error {
	if parentID <= 0 {
		perm.ParentID = nil
		return nil
	}
	if parentID == perm.ID {
		return errors.BadRequest("上级权限不能是自身")
	}
	perms, err := c.repo.ListOrdered(ctx)
	if err != nil {
		return errors.Internal(err)
	}
	parents := make(map[int64]*int64, len(perms))
	for i := range perms {
		parents[perms[i].ID] = perms[i].ParentID
	}
	if _, ok := parents[parentID]; !ok {
		return errors.BadRequest("上级权限不存在")
	}
	// 沿上级链向上，遇到自身即成环；步数上限防止既有脏数据中的环
	cur := &parentID
	for steps := 0; cur != nil && steps <= len(perms); steps++ {
		if *cur == perm.ID {
			return errors.BadRequest("上级权限不能是自身的下级")
		}
		cur = parents[*cur]
	}
	perm.ParentID = &parentID
	return nil
}

func (c *Controller) checkUnique(ctx context.Context, id int64, name, code string) error {
	if name != "" {
		existing, err := c.repo.FindByName(ctx, name)
		if err != nil {
			return errors.Internal(err)
		}
		if existing != nil && existing.ID != id {
			return errors.Duplicate("权限名称")
		}
	}
	if code != "" {
		existing, err := c.repo.FindByCode(ctx, code)
		if err != nil {
			return errors.Internal(err)
		}
		if existing != nil && existing.ID != id {
			return errors.Duplicate("权限编码")
		}
	}
	return nil
}

// Delete 删除权限，存在子权限时拒绝
// @Router /permissions/{id} [delete]
func (c *Controller) Delete(ctx *fiber.Ctx) error {
	id, err := router.ParamID(ctx)
	if err != nil {
		return err
	}
	perm, err := c.repo.FindByID(ctx.UserContext(), id)
	if err != nil {
		return errors.Internal(err)
	}
	if perm == nil {
		return errors.NotFound("权限")
	}
	hasChildren, err := c.repo.HasChildren(ctx.UserContext(), id)
	if err != nil {
		return errors.Internal(err)
	}
	if hasChildren {
		return errHasChildren
	}
	if err := c.repo.DeleteWithGrants(ctx.UserContext(), id); err != nil {
		return errors.Transaction(err)
	}
	c.policy.Refresh(ctx.UserContext())
	return response.NoContent(ctx)
}

// WarnOrphans 权限层级数据异常时输出告警，树照常返回
func WarnOrphans(orphans []Orphan) {
	for _, o := range orphans {
		logger.Warn("权限层级数据异常，已提升为根节点",
			zap.Int64("permissionId", o.ID),
			zap.String("code", o.Code),
			zap.Int64("parentId", o.ParentID),
			zap.String("reason", o.Reason),
		)
	}
}
