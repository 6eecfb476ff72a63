package middleware

import (
	"context"
	"strings"

	"github.com/goback/backoffice/pkg/auth"
	apperrors "github.com/goback/backoffice/pkg/errors"
	"github.com/goback/backoffice/pkg/logger"
	"github.com/goback/backoffice/pkg/metrics"
	"github.com/goback/backoffice/pkg/response"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// 认证失败原因，仅用于指标与日志，不返回给客户端
const (
	reasonNoHeader  = "missing_header"
	reasonScheme    = "malformed_scheme"
	reasonToken     = "invalid_token"
	reasonAccount   = "account_missing"
	reasonAccountDB = "account_lookup"
)

// TokenVerifier 令牌校验
type TokenVerifier interface {
	Verify(token string) (int64, error)
}

// Account 网关需要的账户信息
type Account struct {
	ID       int64
	Username string
	Active   bool
}

// AccountFinder 按ID查找账户，不存在时返回 nil, nil
type AccountFinder interface {
	FindAccount(ctx context.Context, id int64) (*Account, error)
}

// Authenticate 认证网关。
// loginPath 在任何检查之前按路径放行；其余请求必须携带有效的 Bearer 令牌，
// 且令牌中的账户仍然存在并处于启用状态。所有认证失败统一返回 401。
// 通过后身份写入 UserContext，下游只通过 CurrentIdentity 读取。
func Authenticate(verifier TokenVerifier, accounts AccountFinder, loginPath string, m *metrics.Metrics) fiber.Handler {
	reject := func(c *fiber.Ctx, reason string) error {
		m.AuthFailure(reason)
		logger.Debug("authentication rejected",
			zap.String("reason", reason),
			zap.String("path", c.Path()),
			zap.String("ip", c.IP()),
		)
		return response.Unauthorized(c)
	}

	return func(c *fiber.Ctx) error {
		if samePath(c.Path(), loginPath) {
			return c.Next()
		}

		header := c.Get(fiber.HeaderAuthorization)
		if header == "" {
			return reject(c, reasonNoHeader)
		}

		scheme, token, ok := strings.Cut(header, " ")
		token = strings.TrimSpace(token)
		if !ok || !strings.EqualFold(scheme, "Bearer") || token == "" {
			return reject(c, reasonScheme)
		}

		userID, err := verifier.Verify(token)
		if err != nil {
			return reject(c, reasonToken)
		}

		account, err := accounts.FindAccount(c.UserContext(), userID)
		if err != nil {
			m.AuthFailure(reasonAccountDB)
			return apperrors.Internal(err)
		}
		if account == nil || !account.Active {
			return reject(c, reasonAccount)
		}

		id := auth.Identity{UserID: account.ID, Username: account.Username}
		c.SetUserContext(auth.WithIdentity(c.UserContext(), id))
		return c.Next()
	}
}

// CurrentIdentity 读取网关解析出的身份
func CurrentIdentity(c *fiber.Ctx) (auth.Identity, bool) {
	return auth.IdentityFrom(c.UserContext())
}

// GetUserID 当前用户ID，未认证时为 0
func GetUserID(c *fiber.Ctx) int64 {
	id, _ := CurrentIdentity(c)
	return id.UserID
}
