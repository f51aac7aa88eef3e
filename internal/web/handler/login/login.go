package login

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/ExtMailer/ExtMailer/internal/auth"
	"github.com/ExtMailer/ExtMailer/internal/config"
	"github.com/ExtMailer/ExtMailer/internal/db/models"
	"github.com/ExtMailer/ExtMailer/internal/metrics"
	"github.com/ExtMailer/ExtMailer/internal/validation"
	"github.com/ExtMailer/ExtMailer/internal/web/handler"
	"github.com/ExtMailer/ExtMailer/internal/web/session"
)

const (
	// Path is the path to the login page.
	Path = "/login"

	// View is the template rendered for the login page.
	View = "login"

	authTypeLocal = "local"
	authTypeLDAP  = "ldap"
)

// Form is the submitted login form.
type Form struct {
	Username string `form:"username" validate:"required,max=100"`
	Password string `form:"password" validate:"required"`
	AuthType string `form:"auth_type" validate:"omitempty,oneof=local ldap"`
}

// Service is the login handler service.
type Service struct {
	cfg       *config.Config
	db        *gorm.DB
	sessions  *session.Manager
	authz     *auth.Service
	localAuth *auth.LocalProvider
	ldapAuth  *auth.LDAPProvider
	validate  *validator.Validate
}

// Handler is the login handler.
var Handler = Service{}

// Init initializes the login handler.
func (s *Service) Init(
	app *fiber.App, cfg *config.Config, db *gorm.DB, sessions *session.Manager, authz *auth.Service,
) error {
	if app == nil || cfg == nil || db == nil || sessions == nil || authz == nil {
		return errors.New(handler.ErrNilACDFatalLogMsg) //nolint:err113
	}

	s.cfg = cfg
	s.db = db
	s.sessions = sessions
	s.authz = authz
	s.localAuth = auth.NewLocalProvider(db)
	s.validate = validation.New()
	s.ldapAuth = nil

	if cfg.Auth.LDAP.Enabled {
		ldapAuth, err := auth.NewLDAPProvider(cfg.Auth.LDAP, db)
		if err != nil {
			log.Warn().Err(err).Msg("failed to initialize LDAP provider, LDAP authentication will be disabled")
		} else {
			s.ldapAuth = ldapAuth
		}
	}

	app.Route(Path, func(router fiber.Router) {
		router.Get(handler.RouterRootPath, s.Get)
		router.Post(handler.RouterRootPath, s.Post)
	})

	return nil
}

func (s *Service) viewData(username string, err error) fiber.Map {
	data := fiber.Map{
		"Title":            s.cfg.Title,
		"local_db_enabled": s.cfg.Auth.LocalDB.Enabled,
		"ldap_enabled":     s.cfg.Auth.LDAP.Enabled && s.ldapAuth != nil,
		"oidc_enabled":     s.cfg.Auth.OIDC.Enabled,
		"username":         username,
	}

	if err != nil {
		data["error"] = err.Error()
	}

	return data
}

// Get handles the login page rendering.
func (s *Service) Get(c *fiber.Ctx) error {
	return c.Render(View, s.viewData("", nil))
}

// Post handles the login form submission.
func (s *Service) Post(c *fiber.Ctx) error {
	form := new(Form)

	if err := c.BodyParser(form); err != nil {
		return c.Render(View, s.viewData("", ErrInvalidFormData))
	}

	if err := s.validate.Struct(form); err != nil {
		log.Debug().Strs("errors", validation.Messages(err)).Msg("invalid login form")

		return c.Render(View, s.viewData(form.Username, ErrInvalidFormData))
	}

	authType, err := s.pickAuthType(form.AuthType)
	if err != nil {
		return c.Render(View, s.viewData(form.Username, err))
	}

	user, groups, err := s.authenticate(authType, form.Username, form.Password)
	if err != nil {
		result := metrics.ResultInvalid
		if errors.Is(err, ErrInternalServerError) {
			result = metrics.ResultError
		}

		metrics.Logins.WithLabelValues(authType, result).Inc()
		log.Info().Str("username", form.Username).Str("auth_type", authType).Err(err).Msg("login failed")

		if result == metrics.ResultError {
			err = ErrInternalServerError
		}

		return c.Render(View, s.viewData(form.Username, err))
	}

	if authType == authTypeLDAP && s.cfg.Auth.LDAP.GroupBaseDN != "" {
		if errSync := s.authz.SyncUserGroups(user.ID, groups, models.AuthSourceLDAP); errSync != nil {
			log.Error().Err(errSync).Uint64("user_id", user.ID).Msg("failed to sync LDAP groups")
		}
	}

	if err = s.sessions.Create(c, session.NewData(user)); err != nil {
		log.Error().Err(err).Msg("failed to create session")
		metrics.Logins.WithLabelValues(authType, metrics.ResultError).Inc()

		return c.Render(View, s.viewData(form.Username, ErrInternalServerError))
	}

	metrics.Logins.WithLabelValues(authType, metrics.ResultOK).Inc()
	log.Info().Str("username", user.Username).Str("auth_type", authType).Msg("user logged in")

	return c.Redirect(handler.HomePath)
}

// pickAuthType resolves the requested method against the configuration.
// Without a request local wins over LDAP.
func (s *Service) pickAuthType(requested string) (string, error) {
	switch requested {
	case "":
		switch {
		case s.cfg.Auth.LocalDB.Enabled:
			return authTypeLocal, nil
		case s.cfg.Auth.LDAP.Enabled:
			return authTypeLDAP, nil
		default:
			return "", ErrNoAuthMethod
		}
	case authTypeLocal:
		if !s.cfg.Auth.LocalDB.Enabled {
			return "", ErrLocalAuthDisabled
		}

		return authTypeLocal, nil
	case authTypeLDAP:
		if !s.cfg.Auth.LDAP.Enabled || s.ldapAuth == nil {
			return "", ErrLDAPAuthDisabled
		}

		return authTypeLDAP, nil
	default:
		return "", ErrInvalidAuthMethod
	}
}

// authenticate checks the credentials. Directory groups are returned for LDAP.
func (s *Service) authenticate(authType, username, password string) (*models.User, []string, error) {
	var (
		user   *models.User
		groups []string
		err    error
	)

	switch authType {
	case authTypeLocal:
		user, err = s.localAuth.Authenticate(username, password)
	case authTypeLDAP:
		if s.ldapAuth == nil {
			return nil, nil, ErrLDAPAuthDisabled
		}

		user, groups, err = s.ldapAuth.Authenticate(username, password)
	default:
		return nil, nil, ErrInvalidAuthMethod
	}

	switch {
	case err == nil:
		return user, groups, nil
	case errors.Is(err, auth.ErrUserNotFound), errors.Is(err, auth.ErrInvalidPassword):
		return nil, nil, ErrInvalidCredentials
	case errors.Is(err, auth.ErrUserAccountDisabled):
		return nil, nil, auth.ErrUserAccountDisabled
	default:
		log.Error().Err(err).Str("auth_type", authType).Msg("authentication error")

		return nil, nil, fmt.Errorf("%w: %w", ErrInternalServerError, err)
	}
}
