package middleware

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"

	"github.com/goback/backoffice/pkg/auth"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type checkerFunc func(userID int64, path, method string) (bool, error)

func (f checkerFunc) Allow(userID int64, path, method string) (bool, error) {
	return f(userID, path, method)
}

func withIdentity(id auth.Identity) fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.SetUserContext(auth.WithIdentity(context.Background(), id))
		return c.Next()
	}
}

func TestRequirePermission(t *testing.T) {
	checker := checkerFunc(func(userID int64, path, method string) (bool, error) {
		if path == "/api/broken" {
			return false, errors.New("enforcer failure")
		}
		return userID == 1 && method == "GET", nil
	})

	newApp := func(id auth.Identity) *fiber.App {
		app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler})
		app.Use(withIdentity(id), RequirePermission(checker, "/api/profile", "/api/auth/current-user"))
		handler := func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusOK) }
		app.Get("/api/users", handler)
		app.Post("/api/users", handler)
		app.Get("/api/broken", handler)
		app.Patch("/api/profile/password", handler)
		app.Get("/api/auth/current-user", handler)
		return app
	}

	status := func(app *fiber.App, method, target string) int {
		resp, err := app.Test(httptest.NewRequest(method, target, nil))
		require.NoError(t, err)
		return resp.StatusCode
	}

	admin := newApp(auth.Identity{UserID: 1, Username: "admin"})
	assert.Equal(t, 200, status(admin, "GET", "/api/users"))
	assert.Equal(t, 403, status(admin, "POST", "/api/users"))
	assert.Equal(t, 500, status(admin, "GET", "/api/broken"))

	guest := newApp(auth.Identity{UserID: 2, Username: "guest"})
	assert.Equal(t, 403, status(guest, "GET", "/api/users"))
	assert.Equal(t, 200, status(guest, "PATCH", "/api/profile/password"))
	assert.Equal(t, 200, status(guest, "GET", "/api/auth/current-user"))
	assert.Equal(t, 200, status(guest, "GET", "/api/auth/current-user/"))

	anonymous := newApp(auth.Identity{})
	assert.Equal(t, 401, status(anonymous, "GET", "/api/users"))
}
