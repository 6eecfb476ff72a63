package operationlog

import (
	"github.com/goback/backoffice/pkg/dal"
	"github.com/goback/backoffice/pkg/errors"
	"github.com/goback/backoffice/pkg/logger"
	"github.com/goback/backoffice/pkg/middleware"
	"github.com/goback/backoffice/pkg/response"
	"github.com/goback/backoffice/pkg/router"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// ListRequest 操作日志列表请求
type ListRequest struct {
	Page      int    `query:"page"`
	PageSize  int    `query:"page_size"`
	Username  string `query:"username"`
	Module    string `query:"module"`
	Operation string `query:"operation"`
	Status    *int   `query:"status"`
}

// Controller 操作日志控制器
type Controller struct {
	store *Store
}

// NewController 创建操作日志控制器
func NewController(store *Store) *Controller {
	return &Controller{store: store}
}

func (c *Controller) Prefix() string {
	return "/operation-logs"
}

func (c *Controller) Routes() []router.Route {
	return []router.Route{
		{Method: fiber.MethodGet, Path: "", Handler: c.List},
		{Method: fiber.MethodDelete, Path: "", Handler: c.Clear},
	}
}

// List 操作日志列表
// @Router /operation-logs [get]
func (c *Controller) List(ctx *fiber.Ctx) error {
	var req ListRequest
	if err := router.BindQuery(ctx, &req); err != nil {
		return err
	}
	filter := &Filter{
		Username:  req.Username,
		Module:    req.Module,
		Operation: req.Operation,
		Status:    req.Status,
	}
	result, err := c.store.List(ctx.UserContext(), filter, dal.NewPagination(req.Page, req.PageSize))
	if err != nil {
		return errors.Internal(err)
	}
	return response.SuccessPage(ctx, result.List, result.Total, result.Page, result.PageSize)
}

// Clear 清空日志；该路径不经过审计，这里单独留下操作人
// @Router /operation-logs [delete]
func (c *Controller) Clear(ctx *fiber.Ctx) error {
	n, err := c.store.Clear(ctx.UserContext())
	if err != nil {
		return errors.Internal(err)
	}
	identity, _ := middleware.CurrentIdentity(ctx)
	logger.Info("操作日志已清空",
		zap.Int64("userId", identity.UserID),
		zap.String("username", identity.Username),
		zap.Int64("rows", n),
	)
	return response.NoContent(ctx)
}
