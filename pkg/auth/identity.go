package auth

import "context"

// Identity 认证网关解析出的请求身份
type Identity struct {
	UserID   int64
	Username string
}

type identityKey struct{}

// WithIdentity 将身份写入 context
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// IdentityFrom 从 context 读取身份，UserID 与 Username 均存在才视为有效
func IdentityFrom(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(Identity)
	if !ok || id.UserID <= 0 || id.Username == "" {
		return Identity{}, false
	}
	return id, true
}
