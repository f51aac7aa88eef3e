package auth

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/storage/memory/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ExtMailer/ExtMailer/internal/auth"
	"github.com/ExtMailer/ExtMailer/internal/web/handler"
	"github.com/ExtMailer/ExtMailer/internal/web/session"
)

func newTestApp(t *testing.T) *fiber.App {
	t.Helper()

	store := memory.New()
	raw, err := json.Marshal(session.Data{UserID: 5, Username: "donald"})
	require.NoError(t, err)
	require.NoError(t, store.Set("valid", raw, time.Minute))

	app := fiber.New()
	app.Use(New(session.NewManager(store, time.Minute, true)))

	echo := func(c *fiber.Ctx) error {
		id, _ := auth.UserIDFromContext(c)
		name := ""

		if data, ok := SessionFromContext(c); ok {
			name = data.Username
		}

		return c.SendString(fmt.Sprintf("%d:%s", id, name))
	}

	for _, p := range []string{"/login", handler.HomePath, "/api/configure/sections", "/static/css/app.css", "/checkalive", "/staticfoo"} {
		app.Get(p, echo)
	}

	return app
}

func TestMiddleware(t *testing.T) {
	app := newTestApp(t)

	tests := []struct {
		name     string
		path     string
		cookie   string
		status   int
		location string
		body     string
	}{
		{name: "anonymous page redirects", path: handler.HomePath, status: http.StatusFound, location: LoginPath},
		{name: "unknown session redirects", path: handler.HomePath, cookie: "stale", status: http.StatusFound, location: LoginPath},
		{name: "anonymous api is 401", path: "/api/configure/sections", status: http.StatusUnauthorized},
		{name: "anonymous login page", path: "/login", status: http.StatusOK, body: "0:"},
		{name: "static is public", path: "/static/css/app.css", status: http.StatusOK, body: "0:"},
		{name: "checkalive is public", path: "/checkalive", status: http.StatusOK, body: "0:"},
		{name: "prefix must end at a segment", path: "/staticfoo", status: http.StatusFound, location: LoginPath},
		{name: "signed in", path: handler.HomePath, cookie: "valid", status: http.StatusOK, body: "5:donald"},
		{name: "signed in api", path: "/api/configure/sections", cookie: "valid", status: http.StatusOK, body: "5:donald"},
		{name: "signed in login redirects home", path: "/login", cookie: "valid", status: http.StatusFound, location: handler.HomePath},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.cookie != "" {
				req.AddCookie(&http.Cookie{Name: session.CookieName, Value: tt.cookie})
			}

			resp, err := app.Test(req, -1)
			require.NoError(t, err)

			defer func() { _ = resp.Body.Close() }()

			assert.Equal(t, tt.status, resp.StatusCode)

			if tt.location != "" {
				assert.Equal(t, tt.location, resp.Header.Get(fiber.HeaderLocation))
			}

			if tt.body != "" {
				b, err := io.ReadAll(resp.Body)
				require.NoError(t, err)
				assert.Equal(t, tt.body, string(b))
			}
		})
	}
}
