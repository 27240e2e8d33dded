package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http/httptest"
	"testing"
	"time"

	"go-stock-ledger/internal/apierror"
	"go-stock-ledger/internal/metrics"
	"go-stock-ledger/internal/model"
	"go-stock-ledger/internal/repository"
	"go-stock-ledger/pkg/jwt"
	"go-stock-ledger/pkg/logger"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubUsers struct {
	repository.UserRepository
	users map[uuid.UUID]*model.User
}

func (s stubUsers) FindByID(_ context.Context, id uuid.UUID) (*model.User, error) {
	u, ok := s.users[id]
	if !ok {
		return nil, fmt.Errorf("%w: user", model.ErrNotFound)
	}
	return u, nil
}

func newUser(role model.UserRole) *model.User {
	u := &model.User{Name: "Ana", Email: "ana@example.com", Role: role}
	u.ID = uuid.New()
	return u
}

func authApp(tokens *jwt.Manager, users stubUsers) *fiber.App {
	app := fiber.New()
	app.Get("/me", RequireAuth(tokens, users), func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"id":    c.Locals("user_id"),
			"email": c.Locals("user_email"),
			"name":  c.Locals("user_name"),
			"role":  c.Locals("user_role"),
		})
	})
	app.Get("/admin", RequireAuth(tokens, users), RequireRole(model.RoleAdmin), func(c *fiber.Ctx) error {
		return c.SendString("ok")
	})
	return app
}

func get(t *testing.T, app *fiber.App, path, authorization string) (int, map[string]interface{}) {
	t.Helper()
	req := httptest.NewRequest("GET", path, nil)
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	body := map[string]interface{}{}
	_ = json.NewDecoder(resp.Body).Decode(&body)
	return resp.StatusCode, body
}

func TestRequireAuth(t *testing.T) {
	tokens := jwt.NewManager("test-secret", time.Hour)
	staff := newUser(model.RoleStaff)
	app := authApp(tokens, stubUsers{users: map[uuid.UUID]*model.User{staff.ID: staff}})

	token, err := tokens.GenerateToken(staff.ID, staff.Email, staff.Name, string(staff.Role))
	require.NoError(t, err)

	status, body := get(t, app, "/me", "Bearer "+token)
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, staff.ID.String(), body["id"])
	assert.Equal(t, "ana@example.com", body["email"])
	assert.Equal(t, "staff", body["role"])
}

func TestRequireAuthRejects(t *testing.T) {
	tokens := jwt.NewManager("test-secret", time.Hour)
	ghost := newUser(model.RoleAdmin)
	app := authApp(tokens, stubUsers{users: map[uuid.UUID]*model.User{}})

	ghostToken, err := tokens.GenerateToken(ghost.ID, ghost.Email, ghost.Name, string(ghost.Role))
	require.NoError(t, err)
	foreign, err := jwt.NewManager("other-secret", time.Hour).GenerateToken(ghost.ID, ghost.Email, ghost.Name, "admin")
	require.NoError(t, err)

	for name, header := range map[string]string{
		"missing":      "",
		"wrong scheme": "Basic abc",
		"garbage":      "Bearer not-a-jwt",
		"wrong secret": "Bearer " + foreign,
		"deleted user": "Bearer " + ghostToken,
	} {
		status, body := get(t, app, "/me", header)
		assert.Equal(t, fiber.StatusUnauthorized, status, name)
		assert.Equal(t, "unauthorized", body["code"], name)
	}
}

func TestRequireRole(t *testing.T) {
	tokens := jwt.NewManager("test-secret", time.Hour)
	staff := newUser(model.RoleStaff)
	admin := newUser(model.RoleAdmin)
	app := authApp(tokens, stubUsers{users: map[uuid.UUID]*model.User{staff.ID: staff, admin.ID: admin}})

	staffToken, _ := tokens.GenerateToken(staff.ID, staff.Email, staff.Name, "staff")
	adminToken, _ := tokens.GenerateToken(admin.ID, admin.Email, admin.Name, "admin")

	status, body := get(t, app, "/admin", "Bearer "+staffToken)
	assert.Equal(t, fiber.StatusForbidden, status)
	assert.Equal(t, "forbidden", body["code"])
	assert.Equal(t, "forbidden: requires role admin", body["error"])

	status, _ = get(t, app, "/admin", "Bearer "+adminToken)
	assert.Equal(t, fiber.StatusOK, status)
}

func TestMetricsUsesRouteTemplate(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())
	app := fiber.New()
	app.Use(Metrics(m))
	app.Get("/products/:id", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusNotFound) })

	for i := 0; i < 3; i++ {
		_, err := app.Test(httptest.NewRequest("GET", "/products/"+uuid.NewString(), nil))
		require.NoError(t, err)
	}

	assert.Equal(t, 3.0, testutil.ToFloat64(m.RequestCounter.WithLabelValues("GET", "/products/:id", "404")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.RequestCounter))
}

func TestMetricsCountsHandledStatus(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())
	app := fiber.New(fiber.Config{ErrorHandler: apierror.Handler})
	app.Use(Metrics(m))
	app.Get("/products/:id", func(c *fiber.Ctx) error {
		return fmt.Errorf("%w: product", model.ErrNotFound)
	})
	app.Get("/panic", func(c *fiber.Ctx) error { panic("boom") })

	status, body := get(t, app, "/products/"+uuid.NewString(), "")
	assert.Equal(t, fiber.StatusNotFound, status)
	assert.Equal(t, "not_found", body["code"])

	status, body = get(t, app, "/panic", "")
	assert.Equal(t, fiber.StatusInternalServerError, status)
	assert.Equal(t, "internal", body["code"])

	status, _ = get(t, app, "/nowhere", "")
	assert.Equal(t, fiber.StatusNotFound, status)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.RequestCounter.WithLabelValues("GET", "/products/:id", "404")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RequestCounter.WithLabelValues("GET", "/panic", "500")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RequestCounter.WithLabelValues("GET", "unmatched", "404")))
	assert.Equal(t, 3, testutil.CollectAndCount(m.RequestCounter))
}

func TestRequestLoggerRecordsPanic(t *testing.T) {
	var buf bytes.Buffer
	saved := logger.Logger
	logger.Logger = zerolog.New(&buf)
	t.Cleanup(func() { logger.Logger = saved })

	app := fiber.New(fiber.Config{ErrorHandler: apierror.Handler})
	app.Use(RequestLogger())
	app.Get("/panic", func(c *fiber.Ctx) error { panic("boom") })

	status, _ := get(t, app, "/panic", "")
	require.Equal(t, fiber.StatusInternalServerError, status)

	var lines []map[string]interface{}
	for _, raw := range bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n")) {
		var line map[string]interface{}
		require.NoError(t, json.Unmarshal(raw, &line))
		lines = append(lines, line)
	}
	require.Len(t, lines, 2)
	assert.Equal(t, "Recovered from panic", lines[0]["message"])
	assert.Equal(t, "boom", lines[0]["panic"])
	assert.NotEmpty(t, lines[0]["stack"])
	assert.Equal(t, "HTTP request", lines[1]["message"])
	assert.Equal(t, float64(500), lines[1]["status"])
}

func TestRequestLogger(t *testing.T) {
	var buf bytes.Buffer
	saved := logger.Logger
	logger.Logger = zerolog.New(&buf)
	t.Cleanup(func() { logger.Logger = saved })

	app := fiber.New()
	app.Use(requestid.New())
	app.Use(RequestLogger())
	app.Get("/boom", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusServiceUnavailable) })

	req := httptest.NewRequest("GET", "/boom", nil)
	req.Header.Set(fiber.HeaderXRequestID, "req-123")
	_, err := app.Test(req)
	require.NoError(t, err)

	var line map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "error", line["level"])
	assert.Equal(t, "req-123", line["request_id"])
	assert.Equal(t, "/boom", line["path"])
	assert.Equal(t, float64(503), line["status"])
}
