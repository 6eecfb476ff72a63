package role

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/goback/backoffice/pkg/metrics"
	"github.com/goback/backoffice/pkg/middleware"
	"github.com/goback/backoffice/pkg/router"
	"github.com/goback/backoffice/services/admin/internal/model"
	"github.com/goback/backoffice/services/admin/internal/permission"
	"github.com/goback/backoffice/services/admin/internal/testdb"
	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type countingRefresher struct{ n atomic.Int32 }

func (r *countingRefresher) Refresh(context.Context) { r.n.Add(1) }

// failingRepo 模拟插入阶段失败
type failingRepo struct {
	Repository
}

func (failingRepo) ReplacePermissions(context.Context, int64, []int64) error {
	return errors.New("disk full")
}

type fixture struct {
	db        *gorm.DB
	repo      Repository
	refresher *countingRefresher
	metrics   *metrics.Metrics
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := testdb.New(t)
	for id := int64(1); id <= 5; id++ {
		p := model.Permission{Name: fmt.Sprintf("perm%d", id), Code: fmt.Sprintf("p%d", id), Type: model.PermissionAPI}
		p.ID = id
		require.NoError(t, db.Create(&p).Error)
	}
	r := model.Role{Name: "编辑", Code: "editor", Status: model.StatusEnabled}
	r.ID = 7
	require.NoError(t, db.Create(&r).Error)
	require.NoError(t, db.Create([]model.RolePermission{
		{RoleID: 7, PermissionID: 1},
		{RoleID: 7, PermissionID: 4},
	}).Error)

	return &fixture{
		db:        db,
		repo:      NewRepository(db),
		refresher: &countingRefresher{},
		metrics:   metrics.New(),
	}
}

func (f *fixture) app(repo Repository) *fiber.App {
	app := fiber.New(fiber.Config{ErrorHandler: middleware.ErrorHandler})
	ctrl := NewController(repo, permission.NewRepository(f.db), f.refresher, f.metrics)
	router.Register(app.Group("/api"), ctrl)
	return app
}

func (f *fixture) granted(t *testing.T) []int64 {
	t.Helper()
	ids, err := f.repo.PermissionIDs(context.Background(), 7)
	require.NoError(t, err)
	return ids
}

func call(t *testing.T, app *fiber.App, method, target, body string) (int, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	raw, _ := io.ReadAll(resp.Body)
	var out map[string]any
	_ = json.Unmarshal(raw, &out)
	return resp.StatusCode, out
}

func TestSetPermissions(t *testing.T) {
	f := newFixture(t)
	app := f.app(f.repo)

	status, _ := call(t, app, http.MethodPost, "/api/roles/7/permissions", `{"permission_ids":[1,2,3,3]}`)
	assert.Equal(t, http.StatusNoContent, status)
	assert.Equal(t, []int64{1, 2, 3}, f.granted(t))
	assert.EqualValues(t, 1, f.refresher.n.Load())
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.ReassignmentsTotal.WithLabelValues(RelationRolePermission, "ok")))

	status, _ = call(t, app, http.MethodPut, "/api/roles/7/permissions", `{"permission_ids":[5]}`)
	assert.Equal(t, http.StatusNoContent, status)
	assert.Equal(t, []int64{5}, f.granted(t))

	status, _ = call(t, app, http.MethodPut, "/api/roles/7/permissions", `{"permission_ids":[]}`)
	assert.Equal(t, http.StatusNoContent, status)
	assert.Empty(t, f.granted(t))
	assert.EqualValues(t, 3, f.refresher.n.Load())
}

func TestSetPermissionsRejected(t *testing.T) {
	f := newFixture(t)
	app := f.app(f.repo)

	tests := []struct {
		name   string
		target string
		body   string
		status int
	}{
		{"unknown permission", "/api/roles/7/permissions", `{"permission_ids":[1,99]}`, http.StatusBadRequest},
		{"non-positive id", "/api/roles/7/permissions", `{"permission_ids":[0]}`, http.StatusUnprocessableEntity},
		{"missing field", "/api/roles/7/permissions", `{}`, http.StatusUnprocessableEntity},
		{"unknown role", "/api/roles/70/permissions", `{"permission_ids":[1]}`, http.StatusNotFound},
		{"bad role id", "/api/roles/abc/permissions", `{"permission_ids":[1]}`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, _ := call(t, app, http.MethodPost, tt.target, tt.body)
			assert.Equal(t, tt.status, status)
			assert.Equal(t, []int64{1, 4}, f.granted(t))
		})
	}
	assert.Zero(t, f.refresher.n.Load())
}

func TestSetPermissionsFailureKeepsPriorState(t *testing.T) {
	f := newFixture(t)
	app := f.app(failingRepo{Repository: f.repo})

	status, body := call(t, app, http.MethodPost, "/api/roles/7/permissions", `{"permission_ids":[1,2,3]}`)
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, "操作失败，数据未变更", body["message"])
	assert.Equal(t, []int64{1, 4}, f.granted(t))
	assert.Zero(t, f.refresher.n.Load())
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.ReassignmentsTotal.WithLabelValues(RelationRolePermission, "error")))
}

func TestGetPermissions(t *testing.T) {
	f := newFixture(t)
	app := f.app(f.repo)

	status, body := call(t, app, http.MethodGet, "/api/roles/7/permissions", "")
	require.Equal(t, http.StatusOK, status)
	data := body["data"].(map[string]any)
	assert.Equal(t, []any{1.0, 4.0}, data["checkedKeys"])
	assert.Len(t, data["tree"], 5)
}

func TestRoleCRUD(t *testing.T) {
	f := newFixture(t)
	app := f.app(f.repo)

	status, body := call(t, app, http.MethodPost, "/api/roles", `{"name":"审计","code":"auditor"}`)
	require.Equal(t, http.StatusCreated, status)
	assert.NotZero(t, body["data"].(map[string]any)["id"])
	assert.EqualValues(t, model.StatusEnabled, body["data"].(map[string]any)["status"])

	status, _ = call(t, app, http.MethodPost, "/api/roles", `{"name":"审计","code":"other"}`)
	assert.Equal(t, http.StatusConflict, status)

	status, _ = call(t, app, http.MethodPut, "/api/roles/7", `{"code":"auditor"}`)
	assert.Equal(t, http.StatusConflict, status)

	status, body = call(t, app, http.MethodPut, "/api/roles/7", `{"status":0}`)
	require.Equal(t, http.StatusOK, status)
	assert.EqualValues(t, 0, body["data"].(map[string]any)["status"])

	status, body = call(t, app, http.MethodGet, "/api/roles?code=edit", "")
	require.Equal(t, http.StatusOK, status)
	assert.EqualValues(t, 1, body["data"].(map[string]any)["total"])

	require.NoError(t, f.db.Create(&model.UserRole{UserID: 1, RoleID: 7}).Error)
	status, _ = call(t, app, http.MethodDelete, "/api/roles/7", "")
	assert.Equal(t, http.StatusNoContent, status)
	assert.Empty(t, f.granted(t))
	var members int64
	require.NoError(t, f.db.Model(&model.UserRole{}).Where("role_id = ?", 7).Count(&members).Error)
	assert.Zero(t, members)

	status, _ = call(t, app, http.MethodGet, "/api/roles/7", "")
	assert.Equal(t, http.StatusNotFound, status)
}
