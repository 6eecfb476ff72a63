package seed

import (
	"context"
	"strings"
	"testing"

	"github.com/goback/backoffice/pkg/auth"
	"github.com/goback/backoffice/services/admin/internal/model"
	"github.com/goback/backoffice/services/admin/internal/permission"
	"github.com/goback/backoffice/services/admin/internal/testdb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

func count(t *testing.T, db *gorm.DB, m interface{}) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(m).Count(&n).Error)
	return n
}

func TestRun(t *testing.T) {
	ctx := context.Background()
	db := testdb.New(t)
	digest := auth.NewBcryptDigest(bcrypt.MinCost)

	require.NoError(t, Run(ctx, db, digest, "/api"))

	counts := map[string]int64{
		"users":            count(t, db, &model.User{}),
		"roles":            count(t, db, &model.Role{}),
		"permissions":      count(t, db, &model.Permission{}),
		"role_permissions": count(t, db, &model.RolePermission{}),
		"user_roles":       count(t, db, &model.UserRole{}),
		"menus":            count(t, db, &model.Menu{}),
	}
	assert.EqualValues(t, 1, counts["users"])
	assert.EqualValues(t, 1, counts["roles"])
	assert.EqualValues(t, len(permissionSeeds()), counts["permissions"])
	assert.Equal(t, counts["permissions"], counts["role_permissions"], "super admin holds every permission")
	assert.EqualValues(t, 1, counts["user_roles"])
	assert.EqualValues(t, 8, counts["menus"])

	var admin model.User
	require.NoError(t, db.Where("username = ?", AdminUsername).First(&admin).Error)
	assert.True(t, admin.Active())
	assert.True(t, digest.Compare(admin.Password, AdminPassword))

	var perms []model.Permission
	require.NoError(t, db.Order("sort ASC, id ASC").Find(&perms).Error)
	for _, p := range perms {
		if p.Type == model.PermissionAPI {
			assert.True(t, strings.HasPrefix(p.Resource, "/api/"), p.Code)
		}
	}
	tree, orphans := permission.BuildTree(perms)
	assert.Empty(t, orphans)
	require.Len(t, tree, 1)
	assert.Equal(t, "system", tree[0].Code)

	var hidden model.Menu
	require.NoError(t, db.Where("name = ?", "Profile").First(&hidden).Error)
	assert.True(t, hidden.IsHidden)
	var children int64
	require.NoError(t, db.Model(&model.Menu{}).Where("parent_id IS NOT NULL").Count(&children).Error)
	assert.EqualValues(t, 5, children)

	// 再次执行不产生重复数据
	require.NoError(t, Run(ctx, db, digest, "/api"))
	assert.Equal(t, counts["permissions"], count(t, db, &model.Permission{}))
	assert.Equal(t, counts["role_permissions"], count(t, db, &model.RolePermission{}))
	assert.Equal(t, counts["menus"], count(t, db, &model.Menu{}))
	assert.EqualValues(t, 1, count(t, db, &model.User{}))
}

func TestRunKeepsExistingUsers(t *testing.T) {
	ctx := context.Background()
	db := testdb.New(t)
	require.NoError(t, db.Create(&model.User{Username: "owner", Password: "x", Nickname: "owner", Status: model.StatusEnabled}).Error)

	require.NoError(t, Run(ctx, db, auth.NewBcryptDigest(bcrypt.MinCost), ""))

	var n int64
	require.NoError(t, db.Model(&model.User{}).Where("username = ?", AdminUsername).Count(&n).Error)
	assert.Zero(t, n)
	assert.Zero(t, count(t, db, &model.UserRole{}), "no admin to bind the super admin role to")
	assert.EqualValues(t, 1, count(t, db, &model.Role{}))
}
