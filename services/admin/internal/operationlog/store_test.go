package operationlog

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goback/backoffice/pkg/audit"
	"github.com/goback/backoffice/pkg/config"
	"github.com/goback/backoffice/pkg/dal"
	"github.com/goback/backoffice/pkg/middleware"
	"github.com/goback/backoffice/pkg/router"
	"github.com/goback/backoffice/pkg/utils"
	"github.com/goback/backoffice/services/admin/internal/testdb"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func record(username, module string, status int, at time.Time) *audit.Record {
	return &audit.Record{
		UserID:    1,
		Username:  username,
		Module:    module,
		Operation: "新增",
		Method:    http.MethodPost,
		Path:      "/api/users",
		Params:    json.RawMessage(`{"username":"alice"}`),
		IP:        "127.0.0.1",
		Status:    status,
		CreatedAt: at,
	}
}

func TestStore(t *testing.T) {
	ctx := context.Background()
	store := NewStore(testdb.New(t))
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, store.Save(ctx, record("admin", audit.ModuleUser, 201, base)))
	require.NoError(t, store.Save(ctx, record("admin", audit.ModuleRole, 500, base.Add(time.Minute))))
	long := record("bob", audit.ModuleMenu, 204, base.Add(2*time.Minute))
	long.Path = "/api/" + strings.Repeat("x", 300)
	long.Params = nil
	require.NoError(t, store.Save(ctx, long))

	t.Run("newest first", func(t *testing.T) {
		page, err := store.List(ctx, &Filter{}, dal.NewPagination(1, 10))
		require.NoError(t, err)
		require.EqualValues(t, 3, page.Total)
		assert.Equal(t, "bob", page.List[0].Username)
		assert.Len(t, page.List[0].Path, 255)
		assert.Empty(t, page.List[0].Params)
		assert.JSONEq(t, `{"username":"alice"}`, string(page.List[2].Params))
	})

	t.Run("filters", func(t *testing.T) {
		page, err := store.List(ctx, &Filter{Username: "adm", Status: utils.Ptr(500)}, dal.NewPagination(1, 10))
		require.NoError(t, err)
		require.EqualValues(t, 1, page.Total)
		assert.Equal(t, audit.ModuleRole, page.List[0].Module)

		page, err = store.List(ctx, &Filter{Module: "菜单"}, dal.NewPagination(1, 10))
		require.NoError(t, err)
		assert.EqualValues(t, 1, page.Total)
	})

	t.Run("delete before", func(t *testing.T) {
		n, err := store.DeleteBefore(ctx, base.Add(30*time.Second))
		require.NoError(t, err)
		assert.EqualValues(t, 1, n)
	})

	t.Run("clear", func(t *testing.T) {
		n, err := store.Clear(ctx)
		require.NoError(t, err)
		assert.EqualValues(t, 2, n)
	})
}

func TestRetentionSweep(t *testing.T) {
	ctx := context.Background()
	store := NewStore(testdb.New(t))
	now := time.Date(2024, 5, 31, 0, 0, 0, 0, time.UTC)

	require.NoError(t, store.Save(ctx, record("admin", audit.ModuleUser, 200, now.AddDate(0, 0, -40))))
	require.NoError(t, store.Save(ctx, record("admin", audit.ModuleUser, 200, now.AddDate(0, 0, -10))))

	r := NewRetention(store, &config.AuditConfig{RetentionDays: 30})
	r.now = func() time.Time { return now }
	r.Sweep(ctx)

	page, err := store.List(ctx, &Filter{}, dal.NewPagination(1, 10))
	require.NoError(t, err)
	assert.EqualValues(t, 1, page.Total)
}

func TestRetentionRun(t *testing.T) {
	store := NewStore(testdb.New(t))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- NewRetention(store, &config.AuditConfig{RetentionDays: 7}).Run(ctx) }()
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("retention did not stop")
	}

	err := NewRetention(store, &config.AuditConfig{RetentionDays: 7, CleanupSpec: "not a spec"}).Run(context.Background())
	assert.Error(t, err)
}

func TestController(t *testing.T) {
	ctx := context.Background()
	store := NewStore(testdb.New(t))
	for i := 0; i < 3; i++ {
		require.NoError(t, store.Save(ctx, record("admin", audit.ModuleUser, 200, time.Now())))
	}

	app := fiber.New(fiber.Config{ErrorHandler: middleware.ErrorHandler})
	router.Register(app.Group("/api"), NewController(store))

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/operation-logs?page_size=2", nil), -1)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	raw, _ := io.ReadAll(resp.Body)
	var body struct {
		Data struct {
			List  []map[string]any `json:"list"`
			Total int64            `json:"total"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(raw, &body))
	assert.EqualValues(t, 3, body.Data.Total)
	assert.Len(t, body.Data.List, 2)

	resp, err = app.Test(httptest.NewRequest(http.MethodDelete, "/api/operation-logs", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	n, err := store.Count(ctx, nil)
	require.NoError(t, err)
	assert.Zero(t, n)
}
