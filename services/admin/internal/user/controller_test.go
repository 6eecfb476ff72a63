package user

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/goback/backoffice/pkg/auth"
	"github.com/goback/backoffice/pkg/metrics"
	"github.com/goback/backoffice/pkg/middleware"
	"github.com/goback/backoffice/pkg/router"
	"github.com/goback/backoffice/services/admin/internal/model"
	"github.com/goback/backoffice/services/admin/internal/role"
	"github.com/goback/backoffice/services/admin/internal/testdb"
	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type countingRefresher struct{ n atomic.Int32 }

func (r *countingRefresher) Refresh(context.Context) { r.n.Add(1) }

type fixture struct {
	db        *gorm.DB
	repo      Repository
	app       *fiber.App
	refresher *countingRefresher
	metrics   *metrics.Metrics
}

// newFixture 以用户 1 的身份访问
func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := testdb.New(t)
	for i, code := range []string{"admin", "editor", "viewer"} {
		r := model.Role{Name: code, Code: code, Status: model.StatusEnabled}
		r.ID = int64(i + 1)
		require.NoError(t, db.Create(&r).Error)
	}
	operator := model.User{Username: "root", Password: "x", Nickname: "root", Status: model.StatusEnabled}
	operator.ID = 1
	require.NoError(t, db.Create(&operator).Error)

	f := &fixture{
		db:        db,
		repo:      NewRepository(db),
		refresher: &countingRefresher{},
		metrics:   metrics.New(),
	}
	app := fiber.New(fiber.Config{ErrorHandler: middleware.ErrorHandler})
	api := app.Group("/api", func(c *fiber.Ctx) error {
		c.SetUserContext(auth.WithIdentity(c.UserContext(), auth.Identity{UserID: 1, Username: "root"}))
		return c.Next()
	})
	ctrl := NewController(f.repo, role.NewRepository(db), auth.NewBcryptDigest(bcrypt.MinCost), f.refresher, f.metrics)
	router.Register(api, ctrl)
	f.app = app
	return f
}

func (f *fixture) call(t *testing.T, method, target, body string) (int, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := f.app.Test(req, -1)
	require.NoError(t, err)
	raw, _ := io.ReadAll(resp.Body)
	var out map[string]any
	_ = json.Unmarshal(raw, &out)
	return resp.StatusCode, out
}

func (f *fixture) roleIDs(t *testing.T, userID int64) []int64 {
	t.Helper()
	ids, err := f.repo.RoleIDs(context.Background(), userID)
	require.NoError(t, err)
	return ids
}

func TestCreateUser(t *testing.T) {
	f := newFixture(t)

	status, body := f.call(t, http.MethodPost, "/api/users",
		`{"username":"alice","password":"secret1","nickname":"Alice","role_ids":[2,3,2]}`)
	require.Equal(t, http.StatusCreated, status)
	data := body["data"].(map[string]any)
	assert.NotContains(t, data, "password")
	id := int64(data["id"].(float64))
	assert.Equal(t, []int64{2, 3}, f.roleIDs(t, id))
	assert.EqualValues(t, 1, f.refresher.n.Load())

	var stored model.User
	require.NoError(t, f.db.First(&stored, id).Error)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.Password), []byte("secret1")))

	status, _ = f.call(t, http.MethodPost, "/api/users", `{"username":"alice","password":"secret1","nickname":"A"}`)
	assert.Equal(t, http.StatusConflict, status)

	status, _ = f.call(t, http.MethodPost, "/api/users", `{"username":"bob","password":"secret1","nickname":"B","role_ids":[9]}`)
	assert.Equal(t, http.StatusBadRequest, status)
	var n int64
	require.NoError(t, f.db.Model(&model.User{}).Where("username = ?", "bob").Count(&n).Error)
	assert.Zero(t, n, "unknown role leaves no user behind")

	status, _ = f.call(t, http.MethodPost, "/api/users", `{"username":"al","password":"123","nickname":""}`)
	assert.Equal(t, http.StatusUnprocessableEntity, status)
}

func TestSetRoles(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.db.Create([]model.UserRole{{UserID: 1, RoleID: 1}, {UserID: 1, RoleID: 3}}).Error)

	status, _ := f.call(t, http.MethodPut, "/api/users/1/roles", `{"role_ids":[2]}`)
	assert.Equal(t, http.StatusNoContent, status)
	assert.Equal(t, []int64{2}, f.roleIDs(t, 1))

	status, body := f.call(t, http.MethodGet, "/api/users/1/roles", "")
	require.Equal(t, http.StatusOK, status)
	data := body["data"].(map[string]any)
	assert.Equal(t, []any{2.0}, data["role_ids"])
	assert.Len(t, data["roles"], 1)

	status, _ = f.call(t, http.MethodPost, "/api/users/1/roles", `{"role_ids":[1,42]}`)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, []int64{2}, f.roleIDs(t, 1))

	status, _ = f.call(t, http.MethodPost, "/api/users/1/roles", `{"role_ids":[]}`)
	assert.Equal(t, http.StatusNoContent, status)
	assert.Empty(t, f.roleIDs(t, 1))

	assert.EqualValues(t, 2, f.refresher.n.Load())
	assert.Equal(t, 2.0, testutil.ToFloat64(f.metrics.ReassignmentsTotal.WithLabelValues(RelationUserRole, "ok")))
}

func TestUpdateAndDeleteUser(t *testing.T) {
	f := newFixture(t)
	other := model.User{Username: "bob", Password: "x", Nickname: "Bob", Status: model.StatusEnabled}
	require.NoError(t, f.db.Create(&other).Error)
	require.NoError(t, f.db.Create(&model.UserRole{UserID: other.ID, RoleID: 2}).Error)
	target := "/api/users/" + strconv.FormatInt(other.ID, 10)

	status, body := f.call(t, http.MethodPut, target, `{"nickname":"Robert"}`)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Robert", body["data"].(map[string]any)["nickname"])
	assert.Zero(t, f.refresher.n.Load(), "profile fields do not touch policies")

	status, body = f.call(t, http.MethodPut, target, `{"status":0}`)
	require.Equal(t, http.StatusOK, status)
	assert.EqualValues(t, 0, body["data"].(map[string]any)["status"])
	assert.EqualValues(t, 1, f.refresher.n.Load())

	status, _ = f.call(t, http.MethodPut, target, `{"nickname":"  "}`)
	assert.Equal(t, http.StatusUnprocessableEntity, status)

	status, _ = f.call(t, http.MethodDelete, "/api/users/1", "")
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = f.call(t, http.MethodDelete, target, "")
	assert.Equal(t, http.StatusNoContent, status)
	assert.Empty(t, f.roleIDs(t, other.ID))

	status, _ = f.call(t, http.MethodGet, target, "")
	assert.Equal(t, http.StatusNotFound, status)
}

func TestListUsers(t *testing.T) {
	f := newFixture(t)
	for _, name := range []string{"alice", "alicia", "bob"} {
		require.NoError(t, f.db.Create(&model.User{Username: name, Password: "x", Nickname: name, Status: model.StatusEnabled}).Error)
	}

	status, body := f.call(t, http.MethodGet, "/api/users?username=ali&page=1&page_size=1", "")
	require.Equal(t, http.StatusOK, status)
	data := body["data"].(map[string]any)
	assert.EqualValues(t, 2, data["total"])
	assert.Len(t, data["list"], 1)
}
