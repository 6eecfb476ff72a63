package middleware

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/goback/backoffice/pkg/audit"
	apperrors "github.com/goback/backoffice/pkg/errors"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSink struct {
	mu      sync.Mutex
	records []*audit.Record
}

func (s *recordingSink) Submit(rec *audit.Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, rec)
}

func (s *recordingSink) all() []*audit.Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*audit.Record(nil), s.records...)
}

func newAuditApp(t *testing.T, sink audit.Sink) (*fiber.App, string) {
	codec := newCodec(t)
	accounts := &accountMap{accounts: map[int64]*Account{
		1: {ID: 1, Username: "admin", Active: true},
	}}

	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler})
	app.Use(Recovery())
	api := app.Group("/api",
		Authenticate(codec, accounts, loginPath, nil),
		OperationLogAfter(sink),
		OperationLogBefore("/api"),
	)
	api.Post("/auth/login", func(c *fiber.Ctx) error { return c.SendString("ok") })
	api.Get("/roles", func(c *fiber.Ctx) error { return c.JSON(fiber.Map{}) })
	api.Post("/roles", func(c *fiber.Ctx) error {
		var body map[string]any
		if err := c.BodyParser(&body); err != nil {
			return err
		}
		return c.Status(fiber.StatusCreated).JSON(body)
	})
	api.Put("/roles/:id/permissions", func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusNoContent)
	})
	api.Delete("/users/:id", func(c *fiber.Ctx) error {
		return apperrors.Internal(assert.AnError)
	})
	api.Patch("/profile", func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"message": "bad"})
	})
	api.Post("/menus", func(c *fiber.Ctx) error {
		panic("handler exploded")
	})
	api.Delete("/operation-logs", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusNoContent) })

	token, err := codec.Issue(1)
	require.NoError(t, err)
	return app, "Bearer " + token
}

func send(t *testing.T, app *fiber.App, method, target, token, body string) int {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", token)
	}
	resp, err := app.Test(req)
	require.NoError(t, err)
	return resp.StatusCode
}

func TestOperationLogRecordsMutations(t *testing.T) {
	sink := &recordingSink{}
	app, token := newAuditApp(t, sink)

	status := send(t, app, "POST", "/api/roles?from=ui", token, `{"name":"ops","code":"ops"}`)
	require.Equal(t, 201, status)

	records := sink.all()
	require.Len(t, records, 1)
	rec := records[0]
	assert.Equal(t, int64(1), rec.UserID)
	assert.Equal(t, "admin", rec.Username)
	assert.Equal(t, audit.ModuleRole, rec.Module)
	assert.Equal(t, "新增", rec.Operation)
	assert.Equal(t, "POST", rec.Method)
	assert.Equal(t, "/api/roles", rec.Path)
	assert.Equal(t, 201, rec.Status)
	assert.Nil(t, rec.Error)
	assert.NotEmpty(t, rec.IP)
	assert.JSONEq(t, `{"query":{"from":"ui"},"body":{"name":"ops","code":"ops"}}`, string(rec.Params))
}

func TestOperationLogHandlerBodyStillReadable(t *testing.T) {
	sink := &recordingSink{}
	app, token := newAuditApp(t, sink)

	req := httptest.NewRequest("POST", "/api/roles", strings.NewReader(`{"name":"ops"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", token)
	resp, err := app.Test(req)
	require.NoError(t, err)

	var echoed map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&echoed))
	assert.Equal(t, "ops", echoed["name"])
}

func TestOperationLogFailureStatus(t *testing.T) {
	sink := &recordingSink{}
	app, token := newAuditApp(t, sink)

	assert.Equal(t, 500, send(t, app, "DELETE", "/api/users/3", token, ""))
	assert.Equal(t, 422, send(t, app, "PATCH", "/api/profile", token, `{"nickname":""}`))
	assert.Equal(t, 204, send(t, app, "PUT", "/api/roles/7/permissions", token, `{"permission_ids":[1,2,3]}`))

	records := sink.all()
	require.Len(t, records, 3)

	assert.Equal(t, 500, records[0].Status)
	assert.Equal(t, audit.ModuleUser, records[0].Module)
	assert.Equal(t, "删除", records[0].Operation)
	assert.Nil(t, records[0].Params)
	assert.JSONEq(t, `{"status":500,"message":"请求失败"}`, string(records[0].Error))

	assert.Equal(t, 422, records[1].Status)
	assert.Equal(t, audit.ModuleProfile, records[1].Module)
	assert.JSONEq(t, `{"status":422,"message":"请求失败"}`, string(records[1].Error))

	assert.Equal(t, 204, records[2].Status)
	assert.Nil(t, records[2].Error)
}

func TestOperationLogPanicRecordedAs500(t *testing.T) {
	sink := &recordingSink{}
	app, token := newAuditApp(t, sink)

	assert.Equal(t, 500, send(t, app, "POST", "/api/menus", token, `{}`))

	records := sink.all()
	require.Len(t, records, 1)
	assert.Equal(t, 500, records[0].Status)
	assert.NotNil(t, records[0].Error)
}

func TestOperationLogSkips(t *testing.T) {
	sink := &recordingSink{}
	app, token := newAuditApp(t, sink)

	assert.Equal(t, 200, send(t, app, "GET", "/api/roles", token, ""))
	assert.Equal(t, 200, send(t, app, "POST", "/api/auth/login", "", `{"username":"admin","password":"x"}`))
	assert.Equal(t, 200, send(t, app, "POST", "/api/auth/login/", "", `{"username":"admin","password":"x"}`))
	assert.Equal(t, 204, send(t, app, "DELETE", "/api/operation-logs", token, ""))
	assert.Equal(t, 204, send(t, app, "DELETE", "/api/operation-logs/", token, ""))
	assert.Equal(t, 401, send(t, app, "POST", "/api/roles", "", `{}`))

	assert.Empty(t, sink.all())
}

func TestOperationLogWithoutIdentity(t *testing.T) {
	sink := &recordingSink{}
	app := fiber.New()
	app.Use(OperationLogAfter(sink), OperationLogBefore("/api"))
	app.Post("/api/roles", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusCreated) })

	assert.Equal(t, 201, send(t, app, "POST", "/api/roles", "", `{}`))
	assert.Empty(t, sink.all())
}
