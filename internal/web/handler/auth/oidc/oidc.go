package oidc

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/ExtMailer/ExtMailer/internal/auth"
	"github.com/ExtMailer/ExtMailer/internal/config"
	"github.com/ExtMailer/ExtMailer/internal/db/models"
	"github.com/ExtMailer/ExtMailer/internal/metrics"
	"github.com/ExtMailer/ExtMailer/internal/web/handler"
	"github.com/ExtMailer/ExtMailer/internal/web/session"
)

const (
	// LoginPath is the path to initiate OIDC login.
	LoginPath = handler.RootPath + "auth/oidc/login"

	// CallbackPath is the path for OIDC callback.
	CallbackPath = handler.RootPath + "auth/oidc/callback"

	// LogoutPath is the path for OIDC logout.
	LogoutPath = handler.RootPath + "auth/oidc/logout"

	stateTTL = 5 * time.Minute
)

// ErrInvalidState is returned for unknown, reused or expired state tokens.
var ErrInvalidState = errors.New("invalid or expired state token")

// Provider is the part of auth.OIDCProvider the handler uses.
type Provider interface {
	AuthURL(state string) string
	HandleCallback(ctx context.Context, code string) (*auth.Identity, error)
	LogoutURL(idToken, postLogoutRedirectURI string) string
}

// StateStore keeps issued state tokens until they are used or expire.
type StateStore struct {
	mu     sync.Mutex
	states map[string]time.Time
	now    func() time.Time
}

// NewStateStore creates an empty store.
func NewStateStore() *StateStore {
	return &StateStore{states: make(map[string]time.Time), now: time.Now}
}

// Add remembers state for stateTTL.
func (s *StateStore) Add(state string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.states[state] = s.now().Add(stateTTL)
}

// Consume removes state and reports whether it was valid.
func (s *StateStore) Consume(state string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	expiration, ok := s.states[state]
	delete(s.states, state)

	if !ok || s.now().After(expiration) {
		return ErrInvalidState
	}

	return nil
}

// Cleanup drops expired states.
func (s *StateStore) Cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for state, expiration := range s.states {
		if now.After(expiration) {
			delete(s.states, state)
		}
	}
}

// Service is the OIDC handler service.
type Service struct {
	cfg      *config.Config
	sessions *session.Manager
	authz    *auth.Service
	provider Provider
	states   *StateStore
}

// Handler is the OIDC handler.
var Handler = Service{}

// Init discovers the provider and registers the routes. A failing
// discovery disables OIDC without failing the start.
func (s *Service) Init(
	ctx context.Context, app *fiber.App, cfg *config.Config, db *gorm.DB, sessions *session.Manager, authz *auth.Service,
) {
	if app == nil || cfg == nil || db == nil {
		log.Fatal().Msg(handler.ErrNilACDFatalLogMsg)

		return
	}

	if !cfg.Auth.OIDC.Enabled {
		return
	}

	provider, err := auth.NewOIDCProvider(ctx, cfg.Auth.OIDC, db)
	if err != nil {
		log.Warn().Err(err).Msg("failed to initialize OIDC provider, OIDC authentication will be disabled")

		return
	}

	log.Info().Msg("OIDC authentication provider initialized")

	s.Register(app, cfg, provider, sessions, authz)

	go s.cleanupStates(ctx)
}

// Register wires the routes for a ready provider.
func (s *Service) Register(
	app *fiber.App, cfg *config.Config, provider Provider, sessions *session.Manager, authz *auth.Service,
) {
	s.cfg = cfg
	s.provider = provider
	s.sessions = sessions
	s.authz = authz
	s.states = NewStateStore()

	app.Get(LoginPath, s.Login)
	app.Get(CallbackPath, s.Callback)
	app.Get(LogoutPath, s.Logout)
}

// Login redirects to the provider.
func (s *Service) Login(c *fiber.Ctx) error {
	state, err := auth.GenerateStateToken()
	if err != nil {
		log.Error().Err(err).Msg("failed to generate state token")

		return c.Status(fiber.StatusInternalServerError).SendString("Internal server error")
	}

	s.states.Add(state)

	return c.Redirect(s.provider.AuthURL(state))
}

// Callback finishes the code flow and creates the session.
func (s *Service) Callback(c *fiber.Ctx) error {
	code := c.Query("code")
	state := c.Query("state")

	if code == "" || state == "" {
		log.Error().Msg("missing code or state in OIDC callback")

		return c.Status(fiber.StatusBadRequest).SendString("Invalid callback parameters")
	}

	if err := s.states.Consume(state); err != nil {
		log.Error().Str("state", state).Msg("invalid OIDC state token")

		return c.Status(fiber.StatusBadRequest).SendString("Invalid state token")
	}

	identity, err := s.provider.HandleCallback(c.UserContext(), code)
	if err != nil {
		metrics.Logins.WithLabelValues(string(models.AuthSourceOIDC), metrics.ResultInvalid).Inc()
		log.Error().Err(err).Msg("OIDC authentication failed")

		return c.Status(fiber.StatusUnauthorized).SendString("Authentication failed")
	}

	user := identity.User

	if err = s.authz.SyncUserGroups(user.ID, identity.Groups, models.AuthSourceOIDC); err != nil {
		log.Error().Err(err).Uint64("user_id", user.ID).Msg("failed to sync OIDC groups")
	}

	data := session.NewData(user)
	data.IDToken = identity.IDToken

	if err = s.sessions.Create(c, data); err != nil {
		metrics.Logins.WithLabelValues(string(models.AuthSourceOIDC), metrics.ResultError).Inc()
		log.Error().Err(err).Msg("failed to create session")

		return c.Status(fiber.StatusInternalServerError).SendString("Internal server error")
	}

	metrics.Logins.WithLabelValues(string(models.AuthSourceOIDC), metrics.ResultOK).Inc()
	log.Info().Str("username", user.Username).Msg("user logged in via OIDC")

	return c.Redirect(handler.HomePath)
}

// Logout clears the session and continues at the provider's end session
// endpoint when it has one.
func (s *Service) Logout(c *fiber.Ctx) error {
	idToken := ""
	if data := s.sessions.Destroy(c); data != nil {
		idToken = data.IDToken
	}

	if logoutURL := s.provider.LogoutURL(idToken, s.cfg.Webserver.URL); logoutURL != "" {
		return c.Redirect(logoutURL)
	}

	return c.Redirect("/login")
}

func (s *Service) cleanupStates(ctx context.Context) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.states.Cleanup()
		}
	}
}
