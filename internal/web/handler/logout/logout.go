// Package logout ends the session of the signed in user.
package logout

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/ExtMailer/ExtMailer/internal/config"
	"github.com/ExtMailer/ExtMailer/internal/db/models"
	"github.com/ExtMailer/ExtMailer/internal/web/handler"
	oidchandler "github.com/ExtMailer/ExtMailer/internal/web/handler/auth/oidc"
	"github.com/ExtMailer/ExtMailer/internal/web/handler/login"
	"github.com/ExtMailer/ExtMailer/internal/web/session"
)

// Path is the logout route.
const Path = handler.RootPath + "logout"

// Service is the logout handler service.
type Service struct {
	cfg      *config.Config
	sessions *session.Manager
}

// Handler is the logout handler.
var Handler = Service{}

// Init initializes the logout handler.
func (s *Service) Init(app *fiber.App, cfg *config.Config, sessions *session.Manager) {
	if app == nil || cfg == nil || sessions == nil {
		log.Fatal().Msg(handler.ErrNilACDFatalLogMsg)

		return
	}

	s.cfg = cfg
	s.sessions = sessions

	app.Get(Path, s.Logout)
	app.Post(Path, s.Logout)
}

// Logout clears the session. OIDC sessions continue at the provider's
// end session endpoint so the single sign on session ends as well.
func (s *Service) Logout(c *fiber.Ctx) error {
	data, err := s.sessions.Read(c)
	if err == nil && data.AuthSource == models.AuthSourceOIDC && s.cfg.Auth.OIDC.Enabled {
		return c.Redirect(oidchandler.LogoutPath)
	}

	s.sessions.Destroy(c)

	if data != nil {
		log.Info().Str("username", data.Username).Msg("user logged out")
	}

	return c.Redirect(login.Path)
}
