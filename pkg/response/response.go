package response

import (
	"net/http"

	"github.com/goback/backoffice/pkg/errors"
	"github.com/gofiber/fiber/v2"
)

// Response 统一响应结构
type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// PageData 分页数据
type PageData struct {
	List     interface{} `json:"list"`
	Total    int64       `json:"total"`
	Page     int         `json:"page"`
	PageSize int         `json:"page_size"`
}

// 响应码定义
const (
	CodeSuccess = 0
)

// MsgSuccess 成功消息
const MsgSuccess = "success"

// Success 成功响应
func Success(c *fiber.Ctx, data interface{}) error {
	return c.Status(http.StatusOK).JSON(Response{
		Code:    CodeSuccess,
		Message: MsgSuccess,
		Data:    data,
	})
}

// Created 创建成功
func Created(c *fiber.Ctx, data interface{}) error {
	return c.Status(http.StatusCreated).JSON(Response{
		Code:    CodeSuccess,
		Message: MsgSuccess,
		Data:    data,
	})
}

// SuccessPage 分页成功响应
func SuccessPage(c *fiber.Ctx, list interface{}, total int64, page, pageSize int) error {
	return Success(c, PageData{List: list, Total: total, Page: page, PageSize: pageSize})
}

// NoContent 无内容
func NoContent(c *fiber.Ctx) error {
	return c.SendStatus(http.StatusNoContent)
}

// Error 错误响应，HTTP 状态与业务码一致
func Error(c *fiber.Ctx, status int, message string) error {
	return c.Status(status).JSON(Response{
		Code:    status,
		Message: message,
	})
}

// Fail 按错误类型输出
func Fail(c *fiber.Ctx, err error) error {
	appErr := errors.FromError(err)
	return Error(c, appErr.Code, appErr.Message)
}

// BadRequest 请求错误
func BadRequest(c *fiber.Ctx, message string) error {
	return Error(c, http.StatusBadRequest, message)
}

// Unauthorized 未授权
func Unauthorized(c *fiber.Ctx) error {
	return Error(c, http.StatusUnauthorized, errors.ErrAuthentication.Message)
}

// Forbidden 禁止访问
func Forbidden(c *fiber.Ctx, message string) error {
	if message == "" {
		message = errors.ErrForbidden.Message
	}
	return Error(c, http.StatusForbidden, message)
}

// NotFound 未找到
func NotFound(c *fiber.Ctx, message string) error {
	return Error(c, http.StatusNotFound, message)
}

// ServerError 服务器错误
func ServerError(c *fiber.Ctx, message string) error {
	if message == "" {
		message = errors.ErrInternalServer.Message
	}
	return Error(c, http.StatusInternalServerError, message)
}
