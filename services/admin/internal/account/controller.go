package account

import (
	"context"
	"strings"

	"github.com/goback/backoffice/pkg/auth"
	"github.com/goback/backoffice/pkg/errors"
	"github.com/goback/backoffice/pkg/logger"
	"github.com/goback/backoffice/pkg/metrics"
	"github.com/goback/backoffice/pkg/middleware"
	"github.com/goback/backoffice/pkg/response"
	"github.com/goback/backoffice/pkg/router"
	"github.com/goback/backoffice/services/admin/internal/model"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// LoginPath 登录路由，相对于 API 前缀
const LoginPath = "/auth/login"

// Limiter 登录失败限制
type Limiter interface {
	Allow(ctx context.Context, username string) (bool, error)
	Fail(ctx context.Context, username string) error
	Reset(ctx context.Context, username string) error
}

// Issuer 令牌签发
type Issuer interface {
	Issue(userID int64) (string, error)
}

// RoleStore 角色查询
type RoleStore interface {
	FindByUserID(ctx context.Context, userID int64) ([]model.Role, error)
}

// PermissionStore 权限查询
type PermissionStore interface {
	FindByUserID(ctx context.Context, userID int64) ([]model.Permission, error)
}

// Controller 登录与当前用户
type Controller struct {
	users   UserStore
	roles   RoleStore
	perms   PermissionStore
	issuer  Issuer
	digest  auth.PasswordDigest
	limiter Limiter
	metrics *metrics.Metrics

	// 用户不存在时也做一次摘要比较，避免按耗时区分用户名是否存在
	dummyHash string
}

// NewController 创建控制器
func NewController(users UserStore, roles RoleStore, perms PermissionStore, issuer Issuer,
	digest auth.PasswordDigest, limiter Limiter, m *metrics.Metrics) (*Controller, error) {
	dummy, err := digest.Hash("backoffice-dummy-password")
	if err != nil {
		return nil, err
	}
	return &Controller{
		users:     users,
		roles:     roles,
		perms:     perms,
		issuer:    issuer,
		digest:    digest,
		limiter:   limiter,
		metrics:   m,
		dummyHash: dummy,
	}, nil
}

// Prefix 路由前缀
func (c *Controller) Prefix() string {
	return ""
}

// Routes 路由配置
func (c *Controller) Routes() []router.Route {
	return []router.Route{
		{Method: fiber.MethodPost, Path: LoginPath, Handler: c.Login},
		{Method: fiber.MethodGet, Path: "/auth/current-user", Handler: c.CurrentUser},
		{Method: fiber.MethodGet, Path: "/user/permissions", Handler: c.Permissions},
	}
}

// Login 登录
// @Router /auth/login [post]
func (c *Controller) Login(ctx *fiber.Ctx) error {
	var req LoginRequest
	if err := router.Bind(ctx, &req); err != nil {
		return err
	}
	resp, err := c.login(ctx.UserContext(), strings.TrimSpace(req.Username), req.Password)
	if err != nil {
		return err
	}
	return response.Success(ctx, resp)
}

func (c *Controller) login(ctx context.Context, username, password string) (*LoginResponse, error) {
	allowed, err := c.limiter.Allow(ctx, username)
	if err != nil {
		return nil, errors.Internal(err)
	}
	if !allowed {
		c.metrics.LoginAttempt(metrics.LoginLimited)
		return nil, errors.ErrTooManyAttempts
	}

	user, err := c.users.FindByUsername(ctx, username)
	if err != nil {
		return nil, errors.Internal(err)
	}
	hashed := c.dummyHash
	if user != nil {
		hashed = user.Password
	}
	if !c.digest.Compare(hashed, password) || user == nil {
		c.metrics.LoginAttempt(metrics.LoginInvalid)
		if err := c.limiter.Fail(ctx, username); err != nil {
			logger.Warn("记录登录失败次数出错", zap.String("username", username), zap.Error(err))
		}
		return nil, errors.ErrInvalidCredential
	}
	if !user.Active() {
		c.metrics.LoginAttempt(metrics.LoginDisabled)
		return nil, errors.ErrAccountDisabled
	}

	token, err := c.issuer.Issue(user.ID)
	if err != nil {
		return nil, errors.Internal(err)
	}
	if err := c.limiter.Reset(ctx, username); err != nil {
		logger.Warn("清除登录失败次数出错", zap.String("username", username), zap.Error(err))
	}
	c.metrics.LoginAttempt(metrics.LoginSuccess)
	logger.Info("用户登录", zap.Int64("userId", user.ID), zap.String("username", user.Username))
	return &LoginResponse{Token: token, User: user}, nil
}

// CurrentUser 当前登录用户及其角色
// @Router /auth/current-user [get]
func (c *Controller) CurrentUser(ctx *fiber.Ctx) error {
	userID := middleware.GetUserID(ctx)
	user, err := c.users.FindByID(ctx.UserContext(), userID)
	if err != nil {
		return errors.Internal(err)
	}
	if user == nil {
		return errors.NotFound("用户")
	}
	roles, err := c.roles.FindByUserID(ctx.UserContext(), userID)
	if err != nil {
		return errors.Internal(err)
	}
	if roles == nil {
		roles = []model.Role{}
	}
	return response.Success(ctx, CurrentUser{User: user, Roles: roles})
}

// Permissions 当前用户的权限与菜单
// @Router /user/permissions [get]
func (c *Controller) Permissions(ctx *fiber.Ctx) error {
	perms, err := c.perms.FindByUserID(ctx.UserContext(), middleware.GetUserID(ctx))
	if err != nil {
		return errors.Internal(err)
	}
	return response.Success(ctx, splitMenus(perms))
}

// splitMenus 按ID去重，PAGE 类型同时作为菜单返回
func splitMenus(perms []model.Permission) PermissionsResponse {
	resp := PermissionsResponse{
		Permissions: make([]model.Permission, 0, len(perms)),
		Menus:       []model.Permission{},
	}
	seen := make(map[int64]struct{}, len(perms))
	for _, p := range perms {
		if _, ok := seen[p.ID]; ok {
			continue
		}
		seen[p.ID] = struct{}{}
		resp.Permissions = append(resp.Permissions, p)
		if p.Type == model.PermissionPage {
			resp.Menus = append(resp.Menus, p)
		}
	}
	return resp
}
