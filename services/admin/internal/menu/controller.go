package menu

import (
	"context"
	"net/http"
	"strings"

	"github.com/goback/backoffice/pkg/errors"
	"github.com/goback/backoffice/pkg/response"
	"github.com/goback/backoffice/pkg/router"
	"github.com/goback/backoffice/services/admin/internal/model"
	"github.com/gofiber/fiber/v2"
)

var errHasChildren = errors.New(http.StatusConflict, "存在子菜单，无法删除")

// Controller 菜单控制器
type Controller struct {
	repo Repository
}

// NewController 创建菜单控制器
func NewController(repo Repository) *Controller {
	return &Controller{repo: repo}
}

func (c *Controller) Prefix() string {
	return "/menus"
}

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

// List 菜单列表
// @Router /menus [get]
func (c *Controller) List(ctx *fiber.Ctx) error {
	var req ListRequest
	if err := router.BindQuery(ctx, &req); err != nil {
		return err
	}
	menus, err := c.repo.ListOrdered(ctx.UserContext(), req.All)
	if err != nil {
		return errors.Internal(err)
	}
	return response.Success(ctx, menus)
}

// Tree 菜单树，all=true 时包含隐藏菜单
// @Router /menus/tree [get]
func (c *Controller) Tree(ctx *fiber.Ctx) error {
	var req ListRequest
	if err := router.BindQuery(ctx, &req); err != nil {
		return err
	}
	menus, err := c.repo.ListOrdered(ctx.UserContext(), req.All)
	if err != nil {
		return errors.Internal(err)
	}
	return response.Success(ctx, buildMenuTree(menus))
}

// Get 获取菜单
// @Router /menus/{id} [get]
func (c *Controller) Get(ctx *fiber.Ctx) error {
	menu, err := c.find(ctx)
	if err != nil {
		return err
	}
	return response.Success(ctx, menu)
}

// Create 创建菜单
// @Router /menus [post]
func (c *Controller) Create(ctx *fiber.Ctx) error {
	var req CreateRequest
	if err := router.Bind(ctx, &req); err != nil {
		return err
	}
	menu := &model.Menu{
		Name:      strings.TrimSpace(req.Name),
		Path:      strings.TrimSpace(req.Path),
		Component: req.Component,
		Title:     strings.TrimSpace(req.Title),
		Icon:      req.Icon,
		Sort:      req.Sort,
		IsHidden:  req.IsHidden,
	}
	if req.ParentID != nil && *req.ParentID > 0 {
		if err := c.checkParent(ctx.UserContext(), 0, *req.ParentID); err != nil {
			return err
		}
		menu.ParentID = req.ParentID
	}
	if err := c.repo.Create(ctx.UserContext(), menu); err != nil {
		return errors.Internal(err)
	}
	return response.Created(ctx, menu)
}

// Update 更新菜单
// @Router /menus/{id} [put]
func (c *Controller) Update(ctx *fiber.Ctx) error {
	menu, err := c.find(ctx)
	if err != nil {
		return err
	}
	var req UpdateRequest
	if err := router.Bind(ctx, &req); err != nil {
		return err
	}

	if req.ParentID != nil {
		if *req.ParentID <= 0 {
			menu.ParentID = nil
		} else {
			if err := c.checkParent(ctx.UserContext(), menu.ID, *req.ParentID); err != nil {
				return err
			}
			menu.ParentID = req.ParentID
		}
	}
	if req.Name != nil {
		menu.Name = strings.TrimSpace(*req.Name)
	}
	if req.Path != nil {
		menu.Path = strings.TrimSpace(*req.Path)
	}
	if req.Component != nil {
		menu.Component = *req.Component
	}
	if req.Title != nil {
		menu.Title = strings.TrimSpace(*req.Title)
	}
	if req.Icon != nil {
		menu.Icon = *req.Icon
	}
	if req.Sort != nil {
		menu.Sort = *req.Sort
	}
	if req.IsHidden != nil {
		menu.IsHidden = *req.IsHidden
	}
	if menu.Name == "" || menu.Path == "" || menu.Title == "" {
		return errors.Validation("name、path、title 不能为空")
	}

	if err := c.repo.Update(ctx.UserContext(), menu); err != nil {
		return errors.Internal(err)
	}
	return response.Success(ctx, menu)
}

// Delete 删除菜单，存在子菜单时拒绝
// @Router /menus/{id} [delete]
func (c *Controller) Delete(ctx *fiber.Ctx) error {
	menu, err := c.find(ctx)
	if err != nil {
		return err
	}
	hasChildren, err := c.repo.HasChildren(ctx.UserContext(), menu.ID)
	if err != nil {
		return errors.Internal(err)
	}
	if hasChildren {
		return errHasChildren
	}
	if err := c.repo.Delete(ctx.UserContext(), menu.ID); err != nil {
		return errors.Internal(err)
	}
	return response.NoContent(ctx)
}

// checkParent 上级菜单必须存在，且不能是自身或自身的下级
func (c *Controller) checkParent(ctx context.Context, id, parentID int64) error {
	menus, err := c.repo.ListOrdered(ctx, true)
	if err != nil {
		return errors.Internal(err)
	}
	parents := make(map[int64]*int64, len(menus))
	for i := range menus {
		parents[menus[i].ID] = menus[i].ParentID
	}
	if _, ok := parents[parentID]; !ok {
		return errors.BadRequest("上级菜单不存在")
	}
	if id == 0 {
		return nil
	}
	cur := &parentID
	for steps := 0; cur != nil && steps <= len(menus); steps++ {
		if *cur == id {
			return errors.BadRequest("上级菜单不能是自身或下级菜单")
		}
		cur = parents[*cur]
	}
	return nil
}

func (c *Controller) find(ctx *fiber.Ctx) (*model.Menu, error) {
	id, err := router.ParamID(ctx)
	if err != nil {
		return nil, err
	}
	menu, err := c.repo.FindByID(ctx.UserContext(), id)
	if err != nil {
		return nil, errors.Internal(err)
	}
	if menu == nil {
		return nil, errors.NotFound("菜单")
	}
	return menu, nil
}

// buildMenuTree 按 parent_id 组装菜单树，上级不在列表中的菜单作为根节点。
// menus 已按 sort、id 排序，子菜单保持该顺序。
func buildMenuTree(menus []model.Menu) []*model.Menu {
	index := make(map[int64]*model.Menu, len(menus))
	for i := range menus {
		menus[i].Children = nil
		index[menus[i].ID] = &menus[i]
	}

	tree := make([]*model.Menu, 0)
	attached := make(map[int64]bool, len(menus))
	for i := range menus {
		m := &menus[i]
		if m.ParentID == nil {
			continue
		}
		parent, ok := index[*m.ParentID]
		if !ok || parent == m {
			continue
		}
		parent.Children = append(parent.Children, m)
		attached[m.ID] = true
	}
	for i := range menus {
		if !attached[menus[i].ID] {
			tree = append(tree, &menus[i])
		}
	}
	return tree
}
