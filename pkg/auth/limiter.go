package auth

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/goback/backoffice/pkg/config"
	"github.com/goback/backoffice/pkg/database"
	"github.com/redis/go-redis/v9"
)

// LoginLimiter 按用户名统计连续登录失败次数
type LoginLimiter struct {
	cache       *database.Cache
	maxAttempts int64
	window      time.Duration
}

// NewLoginLimiter 创建登录限制器，maxAttempts <= 0 时不限制
func NewLoginLimiter(cache *database.Cache, cfg *config.LoginConfig) *LoginLimiter {
	return &LoginLimiter{
		cache:       cache,
		maxAttempts: int64(cfg.MaxAttempts),
		window:      time.Duration(cfg.LockSeconds) * time.Second,
	}
}

func (l *LoginLimiter) key(username string) string {
	return "login:fail:" + username
}

// Allow 是否允许继续尝试
func (l *LoginLimiter) Allow(ctx context.Context, username string) (bool, error) {
	if l.maxAttempts <= 0 {
		return true, nil
	}
	v, err := l.cache.Get(ctx, l.key(username))
	if errors.Is(err, redis.Nil) {
		return true, nil
	}
	if err != nil {
		return false, err
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return true, nil
	}
	return n < l.maxAttempts, nil
}

// Fail 记录一次失败
func (l *LoginLimiter) Fail(ctx context.Context, username string) error {
	if l.maxAttempts <= 0 {
		return nil
	}
	_, err := l.cache.IncrWithTTL(ctx, l.key(username), l.window)
	return err
}

// Reset 登录成功后清零
func (l *LoginLimiter) Reset(ctx context.Context, username string) error {
	return l.cache.Del(ctx, l.key(username))
}
