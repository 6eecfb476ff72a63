package user

import (
	"context"
	"net/http"
	"strings"

	"github.com/goback/backoffice/pkg/auth"
	"github.com/goback/backoffice/pkg/dal"
	"github.com/goback/backoffice/pkg/errors"
	"github.com/goback/backoffice/pkg/metrics"
	"github.com/goback/backoffice/pkg/middleware"
	"github.com/goback/backoffice/pkg/response"
	"github.com/goback/backoffice/pkg/router"
	"github.com/goback/backoffice/services/admin/internal/model"
	"github.com/goback/backoffice/services/admin/internal/policy"
	"github.com/gofiber/fiber/v2"
)

// RelationUserRole 重分配指标中的关联名
const RelationUserRole = "user_role"

var errDeleteSelf = errors.New(http.StatusBadRequest, "不能删除当前登录用户")

// RoleStore 用户控制器依赖的角色查询
type RoleStore interface {
	FindByIDs(ctx context.Context, ids []int64) ([]model.Role, error)
	FindByUserID(ctx context.Context, userID int64) ([]model.Role, error)
}

// Controller 用户控制器
type Controller struct {
	repo    Repository
	roles   RoleStore
	digest  auth.PasswordDigest
	policy  policy.Refresher
	metrics *metrics.Metrics
}

// NewController 创建用户控制器
func NewController(repo Repository, roles RoleStore, digest auth.PasswordDigest, refresher policy.Refresher, m *metrics.Metrics) *Controller {
	return &Controller{
		repo:    repo,
		roles:   roles,
		digest:  digest,
		policy:  refresher,
		metrics: m,
	}
}

// Prefix 路由前缀
func (c *Controller) Prefix() string {
	return "/users"
}

// Routes 路由配置
func (c *Controller) Routes() []router.Route {
	return []router.Route{
		{Method: fiber.MethodGet, Path: "", Handler: c.List},
		{Method: fiber.MethodGet, Path: "/:id", Handler: c.Get},
		{Method: fiber.MethodPost, Path: "", Handler: c.Create},
		{Method: fiber.MethodPut, Path: "/:id", Handler: c.Update},
		{Method: fiber.MethodDelete, Path: "/:id", Handler: c.Delete},
		{Method: fiber.MethodGet, Path: "/:id/roles", Handler: c.GetRoles},
		{Method: fiber.MethodPut, Path: "/:id/roles", Handler: c.SetRoles},
		{Method: fiber.MethodPost, Path: "/:id/roles", Handler: c.SetRoles},
	}
}

// List 用户列表
// @Router /users [get]
func (c *Controller) List(ctx *fiber.Ctx) error {
	var req ListRequest
	if err := router.BindQuery(ctx, &req); err != nil {
		return err
	}
	result, err := dal.NewQueryBuilder[model.User](c.repo.DB()).
		Like("username", req.Username).
		Like("nickname", req.Nickname).
		Like("email", req.Email).
		WhereIf(req.Status != nil, "status = ?", req.Status).
		Order("id ASC").
		Paged(ctx.UserContext(), dal.NewPagination(req.Page, req.PageSize))
	if err != nil {
		return errors.Internal(err)
	}
	return response.SuccessPage(ctx, result.List, result.Total, result.Page, result.PageSize)
}

// Get 获取用户
// @Router /users/{id} [get]
func (c *Controller) Get(ctx *fiber.Ctx) error {
	user, err := c.find(ctx)
	if err != nil {
		return err
	}
	return response.Success(ctx, user)
}

// Create 创建用户，可同时分配角色
// @Router /users [post]
func (c *Controller) Create(ctx *fiber.Ctx) error {
	var req CreateRequest
	if err := router.Bind(ctx, &req); err != nil {
		return err
	}
	user, err := c.create(ctx.UserContext(), &req)
	if err != nil {
		return err
	}
	if len(req.RoleIDs) > 0 {
		c.policy.Refresh(ctx.UserContext())
	}
	return response.Created(ctx, user)
}

func (c *Controller) create(ctx context.Context, req *CreateRequest) (*model.User, error) {
	username := strings.TrimSpace(req.Username)
	existing, err := c.repo.FindByUsername(ctx, username)
	if err != nil {
		return nil, errors.Internal(err)
	}
	if existing != nil {
		return nil, errors.Duplicate("用户名")
	}
	roleIDs, err := c.checkRoles(ctx, req.RoleIDs)
	if err != nil {
		return nil, err
	}

	hashed, err := c.digest.Hash(req.Password)
	if err != nil {
		return nil, errors.Internal(err)
	}
	user := &model.User{
		Username: username,
		Password: hashed,
		Nickname: strings.TrimSpace(req.Nickname),
		Email:    req.Email,
		Avatar:   req.Avatar,
		Status:   model.StatusEnabled,
	}
	if req.Status != nil {
		user.Status = *req.Status
	}
	if err := c.repo.Create(ctx, user); err != nil {
		return nil, errors.Internal(err)
	}

	if len(roleIDs) > 0 {
		if err := c.replaceRoles(ctx, user.ID, roleIDs); err != nil {
			return nil, err
		}
	}
	return user, nil
}

// Update 更新用户
// @Router /users/{id} [put]
func (c *Controller) Update(ctx *fiber.Ctx) error {
	user, err := c.find(ctx)
	if err != nil {
		return err
	}
	var req UpdateRequest
	if err := router.Bind(ctx, &req); err != nil {
		return err
	}

	if req.Nickname != nil {
		nickname := strings.TrimSpace(*req.Nickname)
		if nickname == "" {
			return errors.Validation("nickname 不能为空")
		}
		user.Nickname = nickname
	}
	if req.Email != nil {
		user.Email = strings.TrimSpace(*req.Email)
	}
	if req.Avatar != nil {
		user.Avatar = *req.Avatar
	}
	statusChanged := req.Status != nil && *req.Status != user.Status
	if req.Status != nil {
		user.Status = *req.Status
	}
	if req.Password != "" {
		hashed, err := c.digest.Hash(req.Password)
		if err != nil {
			return errors.Internal(err)
		}
		user.Password = hashed
	}
	if err := c.repo.Update(ctx.UserContext(), user); err != nil {
		return errors.Internal(err)
	}

	if statusChanged {
		c.policy.Refresh(ctx.UserContext())
	}
	return response.Success(ctx, user)
}

// Delete 删除用户及其角色关联，不能删除自己
// @Router /users/{id} [delete]
func (c *Controller) Delete(ctx *fiber.Ctx) error {
	user, err := c.find(ctx)
	if err != nil {
		return err
	}
	if user.ID == middleware.GetUserID(ctx) {
		return errDeleteSelf
	}
	if err := c.repo.DeleteWithRoles(ctx.UserContext(), user.ID); err != nil {
		return errors.Transaction(err)
	}
	c.policy.Refresh(ctx.UserContext())
	return response.NoContent(ctx)
}

// GetRoles 用户已分配的角色
// @Router /users/{id}/roles [get]
func (c *Controller) GetRoles(ctx *fiber.Ctx) error {
	user, err := c.find(ctx)
	if err != nil {
		return err
	}
	roles, err := c.roles.FindByUserID(ctx.UserContext(), user.ID)
	if err != nil {
		return errors.Internal(err)
	}
	ids := make([]int64, 0, len(roles))
	for _, r := range roles {
		ids = append(ids, r.ID)
	}
	if roles == nil {
		roles = []model.Role{}
	}
	return response.Success(ctx, RolesResponse{RoleIDs: ids, Roles: roles})
}

// SetRoles 全量替换用户角色
// @Router /users/{id}/roles [put]
func (c *Controller) SetRoles(ctx *fiber.Ctx) error {
	user, err := c.find(ctx)
	if err != nil {
		return err
	}
	var req SetRolesRequest
	if err := router.Bind(ctx, &req); err != nil {
		return err
	}
	if err := c.replaceRoles(ctx.UserContext(), user.ID, req.RoleIDs); err != nil {
		return err
	}
	c.policy.Refresh(ctx.UserContext())
	return response.NoContent(ctx)
}

func (c *Controller) replaceRoles(ctx context.Context, userID int64, roleIDs []int64) error {
	ids, err := c.checkRoles(ctx, roleIDs)
	if err != nil {
		return err
	}

	err = c.repo.ReplaceRoles(ctx, userID, ids)
	c.metrics.Reassignment(RelationUserRole, err)
	if err != nil {
		return errors.Transaction(err)
	}
	return nil
}

// checkRoles 去重并确认角色均存在
func (c *Controller) checkRoles(ctx context.Context, roleIDs []int64) ([]int64, error) {
	ids := router.UniqueIDs(roleIDs)
	if len(ids) == 0 {
		return ids, nil
	}
	found, err := c.roles.FindByIDs(ctx, ids)
	if err != nil {
		return nil, errors.Internal(err)
	}
	if len(found) != len(ids) {
		return nil, errors.BadRequest("包含不存在的角色")
	}
	return ids, nil
}

func (c *Controller) find(ctx *fiber.Ctx) (*model.User, error) {
	id, err := router.ParamID(ctx)
	if err != nil {
		return nil, err
	}
	user, err := c.repo.FindByID(ctx.UserContext(), id)
	if err != nil {
		return nil, errors.Internal(err)
	}
	if user == nil {
		return nil, errors.NotFound("用户")
	}
	return user, nil
}
