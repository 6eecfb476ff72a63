package permission

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

	"github.com/goback/backoffice/pkg/middleware"
	"github.com/goback/backoffice/pkg/router"
	"github.com/goback/backoffice/services/admin/internal/model"
	"github.com/goback/backoffice/services/admin/internal/testdb"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type countingRefresher struct{ n atomic.Int32 }

func (r *countingRefresher) Refresh(context.Context) { r.n.Add(1) }

func newApp(t *testing.T) (*fiber.App, *gorm.DB, *countingRefresher) {
	t.Helper()
	db := testdb.New(t)
	refresher := &countingRefresher{}
	app := fiber.New(fiber.Config{ErrorHandler: middleware.ErrorHandler})
	router.Register(app.Group("/api"), NewController(NewRepository(db), refresher))
	return app, db, refresher
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

func createPerm(t *testing.T, app *fiber.App, body string) int64 {
	t.Helper()
	status, out := call(t, app, http.MethodPost, "/api/permissions", body)
	require.Equal(t, http.StatusCreated, status, out)
	return int64(out["data"].(map[string]any)["id"].(float64))
}

func TestPermissionHierarchy(t *testing.T) {
	app, _, refresher := newApp(t)

	system := createPerm(t, app, `{"name":"系统","code":"system","type_name":"MENU"}`)
	user := createPerm(t, app, `{"name":"用户","code":"system:user","parent_id":`+itoa(system)+`}`)
	view := createPerm(t, app, `{"name":"查看用户","code":"system:user:view","type_name":"API","resource":"/api/users*","action":"get","parent_id":`+itoa(user)+`}`)
	assert.EqualValues(t, 3, refresher.n.Load())

	status, out := call(t, app, http.MethodGet, "/api/permissions/"+itoa(view), "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "GET", out["data"].(map[string]any)["action"])

	status, out = call(t, app, http.MethodGet, "/api/permissions/tree", "")
	require.Equal(t, http.StatusOK, status)
	roots := out["data"].([]any)
	require.Len(t, roots, 1)
	child := roots[0].(map[string]any)["children"].([]any)[0].(map[string]any)
	assert.Equal(t, "system:user", child["code"])

	t.Run("cycle rejected", func(t *testing.T) {
		status, _ := call(t, app, http.MethodPut, "/api/permissions/"+itoa(system), `{"parent_id":`+itoa(view)+`}`)
		assert.Equal(t, http.StatusBadRequest, status)
		status, _ = call(t, app, http.MethodPut, "/api/permissions/"+itoa(system), `{"parent_id":`+itoa(system)+`}`)
		assert.Equal(t, http.StatusBadRequest, status)
		status, _ = call(t, app, http.MethodPut, "/api/permissions/"+itoa(system), `{"parent_id":999}`)
		assert.Equal(t, http.StatusBadRequest, status)
	})

	t.Run("duplicates", func(t *testing.T) {
		status, _ := call(t, app, http.MethodPost, "/api/permissions", `{"name":" 系统 ","code":"other"}`)
		assert.Equal(t, http.StatusConflict, status)
		status, _ = call(t, app, http.MethodPost, "/api/permissions", `{"name":"其他","code":"system"}`)
		assert.Equal(t, http.StatusConflict, status)
		status, _ = call(t, app, http.MethodPost, "/api/permissions", `{"name":"其他","code":"x","type_name":"BUTTON"}`)
		assert.Equal(t, http.StatusUnprocessableEntity, status)
	})

	t.Run("delete", func(t *testing.T) {
		status, _ := call(t, app, http.MethodDelete, "/api/permissions/"+itoa(user), "")
		assert.Equal(t, http.StatusConflict, status)

		status, _ = call(t, app, http.MethodPut, "/api/permissions/"+itoa(view), `{"parent_id":0}`)
		require.Equal(t, http.StatusOK, status)
		status, _ = call(t, app, http.MethodDelete, "/api/permissions/"+itoa(user), "")
		assert.Equal(t, http.StatusNoContent, status)

		status, out := call(t, app, http.MethodGet, "/api/permissions?type_name=API", "")
		require.Equal(t, http.StatusOK, status)
		assert.Len(t, out["data"], 1)
	})
}

func TestDeleteRemovesGrants(t *testing.T) {
	app, db, _ := newApp(t)
	id := createPerm(t, app, `{"name":"查看","code":"view","type_name":"API","resource":"/api/x","action":"GET"}`)
	require.NoError(t, db.Create(&model.RolePermission{RoleID: 1, PermissionID: id}).Error)

	status, _ := call(t, app, http.MethodDelete, "/api/permissions/"+itoa(id), "")
	require.Equal(t, http.StatusNoContent, status)

	var n int64
	require.NoError(t, db.Model(&model.RolePermission{}).Where("permission_id = ?", id).Count(&n).Error)
	assert.Zero(t, n)

	status, _ = call(t, app, http.MethodDelete, "/api/permissions/"+itoa(id), "")
	assert.Equal(t, http.StatusNotFound, status)
}

func TestFindByUserID(t *testing.T) {
	db := testdb.New(t)
	repo := NewRepository(db)

	perms := []model.Permission{
		{Name: "a", Code: "a", Type: model.PermissionPage},
		{Name: "b", Code: "b", Type: model.PermissionAPI},
	}
	require.NoError(t, db.Create(&perms).Error)
	enabled := model.Role{Name: "on", Code: "on", Status: model.StatusEnabled}
	disabled := model.Role{Name: "off", Code: "off", Status: model.StatusDisabled}
	require.NoError(t, db.Create(&enabled).Error)
	require.NoError(t, db.Create(&disabled).Error)
	require.NoError(t, db.Create([]model.RolePermission{
		{RoleID: enabled.ID, PermissionID: perms[0].ID},
		{RoleID: disabled.ID, PermissionID: perms[1].ID},
	}).Error)
	require.NoError(t, db.Create([]model.UserRole{
		{UserID: 5, RoleID: enabled.ID},
		{UserID: 5, RoleID: disabled.ID},
	}).Error)

	got, err := repo.FindByUserID(context.Background(), 5)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "a", got[0].Code)
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
