package middleware

import (
	"errors"
	"strings"

	apperrors "github.com/goback/backoffice/pkg/errors"
	"github.com/goback/backoffice/pkg/logger"
	"github.com/goback/backoffice/pkg/response"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// HeaderRequestID 请求ID头
const HeaderRequestID = "X-Request-ID"

type requestIDKey struct{}

// Recovery 恢复中间件
func Recovery() fiber.Handler {
	return func(c *fiber.Ctx) (err error) {
		defer func() {
			if r := recover(); r != nil {
				logger.Error("panic recovered",
					zap.Any("error", r),
					zap.String("path", c.Path()),
					zap.String("method", c.Method()),
					zap.String("requestId", GetRequestID(c)),
				)
				err = response.ServerError(c, "")
			}
		}()
		return c.Next()
	}
}

// Cors 跨域中间件
func Cors() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if origin := c.Get(fiber.HeaderOrigin); origin != "" {
			c.Set(fiber.HeaderAccessControlAllowOrigin, origin)
			c.Set(fiber.HeaderAccessControlAllowMethods, "POST, GET, OPTIONS, PUT, DELETE, PATCH")
			c.Set(fiber.HeaderAccessControlAllowHeaders, "Origin, X-Requested-With, Content-Type, Accept, Authorization")
			c.Set(fiber.HeaderAccessControlExposeHeaders, "Content-Length, X-Request-ID")
			c.Set(fiber.HeaderAccessControlAllowCredentials, "true")
		}
		if c.Method() == fiber.MethodOptions {
			return c.SendStatus(fiber.StatusNoContent)
		}
		return c.Next()
	}
}

// RequestID 请求ID中间件
func RequestID() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Get(HeaderRequestID)
		if id == "" {
			id = uuid.NewString()
		}
		c.Locals(requestIDKey{}, id)
		c.Set(HeaderRequestID, id)
		return c.Next()
	}
}

// GetRequestID 获取请求ID
func GetRequestID(c *fiber.Ctx) string {
	id, _ := c.Locals(requestIDKey{}).(string)
	return id
}

// ErrorHandler 统一错误输出，作为 fiber.Config.ErrorHandler 使用
func ErrorHandler(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return response.Error(c, fe.Code, fe.Message)
	}

	appErr := apperrors.FromError(err)
	if appErr.Code >= fiber.StatusInternalServerError {
		logger.Error("request failed",
			zap.Error(err),
			zap.String("path", c.Path()),
			zap.String("method", c.Method()),
			zap.String("requestId", GetRequestID(c)),
		)
	}
	return response.Error(c, appErr.Code, appErr.Message)
}

// samePath 按 fiber 默认的非严格路由比较路径：忽略末尾斜杠与大小写
func samePath(p, target string) bool {
	if len(p) > 1 {
		p = strings.TrimSuffix(p, "/")
	}
	return strings.EqualFold(p, target)
}

// underPath p 是否位于 prefix 之下
func underPath(p, prefix string) bool {
	return len(p) > len(prefix) && p[len(prefix)] == '/' && strings.EqualFold(p[:len(prefix)], prefix)
}

// statusOf 处理链结束后的最终状态码。
// 返回的错误尚未被 ErrorHandler 写入响应，需按错误类型推断。
func statusOf(c *fiber.Ctx, err error) int {
	if err == nil {
		return c.Response().StatusCode()
	}
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return fe.Code
	}
	return apperrors.FromError(err).Code
}
