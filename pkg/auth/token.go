package auth

import (
	"errors"
	"strconv"
	"time"

	"github.com/goback/backoffice/pkg/config"
	"github.com/golang-jwt/jwt/v5"
)

// TokenTTL 令牌有效期，固定 24 小时，不支持刷新
const TokenTTL = 24 * time.Hour

// ErrTokenInvalid 校验失败统一返回该错误，不区分过期、格式错误与签名不符
var ErrTokenInvalid = errors.New("token is invalid")

// TokenCodec 签发与校验 HS256 身份令牌，载荷仅包含 sub 与 exp
type TokenCodec struct {
	secret []byte
	now    func() time.Time
	parser *jwt.Parser
}

// NewTokenCodec 使用启动时注入的密钥创建令牌编解码器
func NewTokenCodec(cfg *config.JWTConfig) (*TokenCodec, error) {
	if cfg == nil || cfg.Secret == "" {
		return nil, errors.New("jwt secret must not be empty")
	}
	return newTokenCodec([]byte(cfg.Secret), time.Now), nil
}

func newTokenCodec(secret []byte, now func() time.Time) *TokenCodec {
	return &TokenCodec{
		secret: secret,
		now:    now,
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithExpirationRequired(),
			jwt.WithTimeFunc(now),
		),
	}
}

// Issue 为用户签发令牌
func (m *TokenCodec) Issue(userID int64) (string, error) {
	claims := jwt.RegisteredClaims{
		Subject:   strconv.FormatInt(userID, 10),
		ExpiresAt: jwt.NewNumericDate(m.now().Add(TokenTTL)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
}

// Verify 校验令牌并返回用户ID
func (m *TokenCodec) Verify(token string) (int64, error) {
	var claims jwt.RegisteredClaims
	parsed, err := m.parser.ParseWithClaims(token, &claims, m.keyFunc)
	if err != nil || !parsed.Valid {
		return 0, ErrTokenInvalid
	}

	userID, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil || userID <= 0 {
		return 0, ErrTokenInvalid
	}
	return userID, nil
}

func (m *TokenCodec) keyFunc(*jwt.Token) (interface{}, error) {
	return m.secret, nil
}
