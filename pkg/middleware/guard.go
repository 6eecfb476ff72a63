package middleware

import (
	"strings"

	apperrors "github.com/goback/backoffice/pkg/errors"
	"github.com/goback/backoffice/pkg/logger"
	"github.com/goback/backoffice/pkg/response"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// PermissionChecker 接口权限判定
type PermissionChecker interface {
	Allow(userID int64, path, method string) (bool, error)
}

// RequirePermission 按 (路径, 方法) 校验当前用户的接口权限。
// skip 中的路径按前缀放行，用于登录和个人信息等自助接口。
func RequirePermission(checker PermissionChecker, skip ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		p := c.Path()
		for _, prefix := range skip {
			prefix = strings.TrimSuffix(prefix, "/")
			if samePath(p, prefix) || underPath(p, prefix) {
				return c.Next()
			}
		}

		id, ok := CurrentIdentity(c)
		if !ok {
			return response.Unauthorized(c)
		}

		allowed, err := checker.Allow(id.UserID, p, c.Method())
		if err != nil {
			logger.Error("permission check failed",
				zap.Error(err),
				zap.Int64("userId", id.UserID),
				zap.String("path", p),
			)
			return apperrors.Internal(err)
		}
		if !allowed {
			return response.Forbidden(c, "")
		}
		return c.Next()
	}
}
