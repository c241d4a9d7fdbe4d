package middleware_test

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"go-inventory-ledger/internal/middleware"
	"go-inventory-ledger/internal/model"
	"go-inventory-ledger/internal/repository"
	"go-inventory-ledger/internal/testutil"
	"go-inventory-ledger/pkg/jwt"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newApp(t *testing.T) (*fiber.App, *jwt.Manager, *model.User) {
	t.Helper()
	db := testutil.NewDB(t)
	tokens := jwt.NewManager("secret", time.Hour)
	user := testutil.SeedUser(t, db, "staffer", model.RoleStaff)

	app := fiber.New()
	app.Use(middleware.RequestContext(time.Second))
	protected := app.Group("", middleware.RequireAuth(repository.NewUserRepo(db), tokens))
	protected.Get("/read", func(c *fiber.Ctx) error {
		id, ok := middleware.CallerID(c)
		if !ok {
			return c.SendStatus(fiber.StatusInternalServerError)
		}
		return c.SendString(id.String())
	})
	protected.Get("/write", middleware.RequireRole(model.RoleAdmin, model.RoleManager), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusNoContent)
	})
	return app, tokens, user
}

func get(t *testing.T, app *fiber.App, path, token string) int {
	t.Helper()
	req := httptest.NewRequest("GET", path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := app.Test(req)
	require.NoError(t, err)
	return resp.StatusCode
}

func TestRequireAuth(t *testing.T) {
	app, tokens, user := newApp(t)

	good, err := tokens.GenerateToken(user.ID, user.Username, user.Role, user.TokenVersion)
	require.NoError(t, err)
	stale, err := tokens.GenerateToken(user.ID, user.Username, user.Role, "old-version")
	require.NoError(t, err)

	assert.Equal(t, fiber.StatusUnauthorized, get(t, app, "/read", ""))
	assert.Equal(t, fiber.StatusUnauthorized, get(t, app, "/read", "garbage"))
	assert.Equal(t, fiber.StatusUnauthorized, get(t, app, "/read", stale))
	assert.Equal(t, fiber.StatusOK, get(t, app, "/read", good))

	req := httptest.NewRequest("GET", "/read", nil)
	req.Header.Set("Authorization", "Token "+good)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestRequireRole(t *testing.T) {
	app, tokens, user := newApp(t)
	token, err := tokens.GenerateToken(user.ID, user.Username, user.Role, user.TokenVersion)
	require.NoError(t, err)

	assert.Equal(t, fiber.StatusForbidden, get(t, app, "/write", token))
}

func TestRequestContextSetsDeadlineAndID(t *testing.T) {
	app := fiber.New()
	app.Use(middleware.RequestContext(50 * time.Millisecond))
	app.Get("/", func(c *fiber.Ctx) error {
		deadline, ok := c.UserContext().Deadline()
		if !ok || time.Until(deadline) > 50*time.Millisecond {
			return c.SendStatus(fiber.StatusInternalServerError)
		}
		<-c.UserContext().Done()
		if c.UserContext().Err() != context.DeadlineExceeded {
			return c.SendStatus(fiber.StatusInternalServerError)
		}
		return c.SendStatus(fiber.StatusNoContent)
	})

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("X-Request-Id", "req-42")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNoContent, resp.StatusCode)
	assert.Equal(t, "req-42", resp.Header.Get("X-Request-Id"))

	resp, err = app.Test(httptest.NewRequest("GET", "/", nil))
	require.NoError(t, err)
	assert.NotEmpty(t, resp.Header.Get("X-Request-Id"))
}
