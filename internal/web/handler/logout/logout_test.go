package logout

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/storage/memory/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ExtMailer/ExtMailer/internal/config"
	"github.com/ExtMailer/ExtMailer/internal/db/models"
	oidchandler "github.com/ExtMailer/ExtMailer/internal/web/handler/auth/oidc"
	"github.com/ExtMailer/ExtMailer/internal/web/handler/login"
	"github.com/ExtMailer/ExtMailer/internal/web/session"
)

func TestLogout(t *testing.T) {
	tests := []struct {
		name        string
		source      models.AuthSource
		oidcEnabled bool
		location    string
		destroyed   bool
	}{
		{name: "local session", source: models.AuthSourceLocal, location: login.Path, destroyed: true},
		{name: "oidc session", source: models.AuthSourceOIDC, oidcEnabled: true, location: oidchandler.LogoutPath},
		{name: "oidc session after oidc was disabled", source: models.AuthSourceOIDC, location: login.Path, destroyed: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := memory.New()
			raw, err := json.Marshal(session.Data{UserID: 1, Username: "pluto", AuthSource: tt.source})
			require.NoError(t, err)
			require.NoError(t, store.Set("sid", raw, time.Minute))

			cfg := &config.Config{}
			cfg.Auth.OIDC.Enabled = tt.oidcEnabled

			app := fiber.New()

			var s Service
			s.Init(app, cfg, session.NewManager(store, time.Minute, true))

			req := httptest.NewRequest(http.MethodPost, Path, nil)
			req.AddCookie(&http.Cookie{Name: session.CookieName, Value: "sid"})

			resp, err := app.Test(req, -1)
			require.NoError(t, err)

			defer func() { _ = resp.Body.Close() }()

			assert.Equal(t, http.StatusFound, resp.StatusCode)
			assert.Equal(t, tt.location, resp.Header.Get(fiber.HeaderLocation))

			left, err := store.Get("sid")
			require.NoError(t, err)
			assert.Equal(t, tt.destroyed, left == nil)
		})
	}
}

func TestLogoutWithoutSession(t *testing.T) {
	app := fiber.New()

	var s Service
	s.Init(app, &config.Config{}, session.NewManager(memory.New(), time.Minute, true))

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, Path, nil), -1)
	require.NoError(t, err)

	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, login.Path, resp.Header.Get(fiber.HeaderLocation))
}
