package profile

import (
	"context"
	"net/http"
	"strings"

	"github.com/goback/backoffice/pkg/auth"
	"github.com/goback/backoffice/pkg/dal"
	"github.com/goback/backoffice/pkg/errors"
	"github.com/goback/backoffice/pkg/middleware"
	"github.com/goback/backoffice/pkg/response"
	"github.com/goback/backoffice/pkg/router"
	"github.com/goback/backoffice/services/admin/internal/model"
	"github.com/gofiber/fiber/v2"
)

var errWrongPassword = errors.New(http.StatusBadRequest, "原密码错误")

// UserStore 个人信息读写
type UserStore interface {
	FindByID(ctx context.Context, id int64, opts ...dal.QueryOption) (*model.User, error)
	UpdateFields(ctx context.Context, id int64, fields map[string]interface{}) error
}

// UpdateRequest 修改个人信息，字段缺省时不修改
type UpdateRequest struct {
	Nickname *string `json:"nickname" validate:"omitempty,max=50"`
	Email    *string `json:"email" validate:"omitempty,max=100"`
	Avatar   *string `json:"avatar" validate:"omitempty,max=255"`
}

// PasswordRequest 修改密码
type PasswordRequest struct {
	OldPassword string `json:"old_password" validate:"required"`
	NewPassword string `json:"new_password" validate:"required,min=6,max=72"`
}

// Controller 当前用户个人信息
type Controller struct {
	users  UserStore
	digest auth.PasswordDigest
}

// NewController 创建个人信息控制器
func NewController(users UserStore, digest auth.PasswordDigest) *Controller {
	return &Controller{users: users, digest: digest}
}

func (c *Controller) Prefix() string {
	return "/profile"
}

func (c *Controller) Routes() []router.Route {
	return []router.Route{
		{Method: fiber.MethodPatch, Path: "", Handler: c.Update},
		{Method: fiber.MethodPatch, Path: "/password", Handler: c.ChangePassword},
	}
}

// Update 更新个人信息
// @Router /profile [patch]
func (c *Controller) Update(ctx *fiber.Ctx) error {
	var req UpdateRequest
	if err := router.Bind(ctx, &req); err != nil {
		return err
	}

	fields := map[string]interface{}{}
	if req.Nickname != nil {
		nickname := strings.TrimSpace(*req.Nickname)
		if nickname == "" {
			return errors.Validation("昵称不能为空")
		}
		fields["nickname"] = nickname
	}
	if req.Email != nil {
		email := strings.TrimSpace(*req.Email)
		if email == "" {
			return errors.Validation("邮箱不能为空")
		}
		if err := router.Validator().Var(email, "email"); err != nil {
			return errors.Validation("邮箱格式不正确")
		}
		fields["email"] = email
	}
	if req.Avatar != nil {
		fields["avatar"] = *req.Avatar
	}

	userID := middleware.GetUserID(ctx)
	if len(fields) > 0 {
		if err := c.users.UpdateFields(ctx.UserContext(), userID, fields); err != nil {
			return errors.Internal(err)
		}
	}
	user, err := c.users.FindByID(ctx.UserContext(), userID)
	if err != nil {
		return errors.Internal(err)
	}
	if user == nil {
		return errors.NotFound("用户")
	}
	return response.Success(ctx, user)
}

// ChangePassword 修改密码，需校验旧密码
// @Router /profile/password [patch]
func (c *Controller) ChangePassword(ctx *fiber.Ctx) error {
	var req PasswordRequest
	if err := router.Bind(ctx, &req); err != nil {
		return err
	}
	userID := middleware.GetUserID(ctx)
	user, err := c.users.FindByID(ctx.UserContext(), userID)
	if err != nil {
		return errors.Internal(err)
	}
	if user == nil {
		return errors.NotFound("用户")
	}
	if !c.digest.Compare(user.Password, req.OldPassword) {
		return errWrongPassword
	}

	hashed, err := c.digest.Hash(req.NewPassword)
	if err != nil {
		return errors.Internal(err)
	}
	if err := c.users.UpdateFields(ctx.UserContext(), userID, map[string]interface{}{"password": hashed}); err != nil {
		return errors.Internal(err)
	}
	return response.NoContent(ctx)
}
