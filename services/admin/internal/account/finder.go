package account

import (
	"context"

	"github.com/goback/backoffice/pkg/dal"
	"github.com/goback/backoffice/pkg/middleware"
	"github.com/goback/backoffice/services/admin/internal/model"
)

// UserStore 账户查询
type UserStore interface {
	FindByID(ctx context.Context, id int64, opts ...dal.QueryOption) (*model.User, error)
	FindByUsername(ctx context.Context, username string) (*model.User, error)
}

// Finder 为认证网关提供账户查询
type Finder struct {
	users UserStore
}

// NewFinder 创建账户查询
func NewFinder(users UserStore) *Finder {
	return &Finder{users: users}
}

// FindAccount 按ID查找账户，不存在时返回 nil, nil
func (f *Finder) FindAccount(ctx context.Context, id int64) (*middleware.Account, error) {
	user, err := f.users.FindByID(ctx, id)
	if err != nil || user == nil {
		return nil, err
	}
	return &middleware.Account{
		ID:       user.ID,
		Username: user.Username,
		Active:   user.Active(),
	}, nil
}
