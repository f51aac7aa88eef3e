// Package web assembles the fiber application: templates, static files,
// middleware and the page handlers.
package web

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/encryptcookie"
	"github.com/gofiber/fiber/v2/middleware/filesystem"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/template/html/v2"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/ExtMailer/ExtMailer/internal/auth"
	"github.com/ExtMailer/ExtMailer/internal/config"
	"github.com/ExtMailer/ExtMailer/internal/globalconfig"
	fiberlogger "github.com/ExtMailer/ExtMailer/internal/logger/adapter/fiber"
	"github.com/ExtMailer/ExtMailer/internal/web/handler"
	oidchandler "github.com/ExtMailer/ExtMailer/internal/web/handler/auth/oidc"
	"github.com/ExtMailer/ExtMailer/internal/web/handler/configure"
	"github.com/ExtMailer/ExtMailer/internal/web/handler/login"
	"github.com/ExtMailer/ExtMailer/internal/web/handler/logout"
	authmiddleware "github.com/ExtMailer/ExtMailer/internal/web/middleware/auth"
	"github.com/ExtMailer/ExtMailer/internal/web/session"
)

const (
	// CheckAlivePath answers 200 while the service accepts traffic.
	CheckAlivePath = "/checkalive"
	// MetricsPath serves the prometheus exposition.
	MetricsPath = "/metrics"
)

var errNilDependency = errors.New("config, db and sessions must not be nil")

// Service represents the web service.
type Service struct {
	App          *fiber.App
	cfg          *config.Config
	fastShutDown bool
	alive        atomic.Bool
	db           *gorm.DB
	authService  *auth.Service
	registry     *globalconfig.Registry
	cancel       context.CancelFunc
}

// Start starts the web service on the given address.
func (s *Service) Start(addr string) error {
	var doneFiber = make(chan bool)

	go func() {
		if err := s.App.Listen(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Msgf("fiber listen error: %v", err)
		}

		doneFiber <- true
	}()

	<-doneFiber // wait for fiber to stop

	return nil
}

// WaitShutdown blocks until SIGINT or SIGTERM and stops the server.
func (s *Service) WaitShutdown() {
	irqSig := make(chan os.Signal, 1)
	signal.Notify(irqSig, syscall.SIGINT, syscall.SIGTERM)

	sig := <-irqSig
	log.Info().Msgf("shutdown request (signal: %v)", sig)

	s.Shutdown()
}

// Shutdown fails checkalive for ShutDownTime seconds, so load balancers
// drop this instance, and then stops the server.
func (s *Service) Shutdown() {
	if !s.fastShutDown {
		log.Info().Msgf(
			"graceful shutdown: return 503 while %d seconds to let LB to remove this pod from active targets",
			s.cfg.Webserver.ShutDownTime,
		)

		s.alive.Store(false)
		time.Sleep(time.Duration(s.cfg.Webserver.ShutDownTime) * time.Second)
	}

	s.cancel()

	log.Info().Msg("stopping http server ...")

	if err := s.App.Shutdown(); err != nil {
		log.Error().Err(err).Msg("")
	}

	log.Info().Msg("http server was stopped ... good bye...")
}

// Registry returns the section registry served by the configure page.
func (s *Service) Registry() *globalconfig.Registry {
	return s.registry
}

// New creates a new web service with the given configuration.
func New(cfg *config.Config, db *gorm.DB, sessions *session.Manager) (*Service, error) {
	if cfg == nil || db == nil || sessions == nil {
		return nil, errNilDependency
	}

	templateEngine := embeddedViews()

	// in dev mode, use local filesystem for templates
	if cfg.DevMode {
		templateEngine = html.New("./internal/web/templates", templateExtension)
		templateEngine.ShouldReload = true

		log.Warn().Msg("dev mode enabled: using local filesystem for templates")
	}

	app := fiber.New(
		fiber.Config{
			ReadBufferSize:    8192,
			AppName:           cfg.Title,
			CaseSensitive:     true,
			Prefork:           false,
			Immutable:         true,
			PassLocalsToViews: true,
			Views:             templateEngine,
		},
	)

	if !cfg.Webserver.DisableRecover {
		app.Use(recover.New(recover.Config{EnableStackTrace: cfg.DevMode}))
	}

	app.Use(fiberlogger.New(fiberlogger.Config{
		Config:            cfg.Log,
		CacheControlError: fiberlogger.ConfigDefault.CacheControlError,
		CheckAliveURI:     CheckAlivePath,
		SkipPrefixes:      []string{"/static"},
		UserLocal:         auth.LocalUserID,
	}))

	if cfg.Webserver.CookieEncryptionKey != "" {
		app.Use(encryptcookie.New(encryptcookie.Config{Key: cfg.Webserver.CookieEncryptionKey}))
	}

	ctx, cancel := context.WithCancel(context.Background())

	service := &Service{
		cfg:          cfg,
		App:          app,
		db:           db,
		fastShutDown: cfg.DevMode,
		cancel:       cancel,
	}
	service.alive.Store(true)

	app.Get(CheckAlivePath, func(c *fiber.Ctx) error {
		if !service.alive.Load() {
			return c.SendStatus(fiber.StatusServiceUnavailable)
		}

		return c.SendString("OK")
	})
	app.Get(MetricsPath, adaptor.HTTPHandler(promhttp.Handler()))

	app.Use("/static",
		filesystem.New(
			filesystem.Config{
				Root:   staticFS(),
				Browse: cfg.Webserver.BrowseStatic,
			},
		),
	)

	app.Use(authmiddleware.New(sessions))

	service.authService = auth.NewService(db)
	service.registry = globalconfig.Default(db, service.authService)

	app.Use(auth.AddPermissionsToLocals(service.authService))

	if err := login.Handler.Init(app, cfg, db, sessions, service.authService); err != nil {
		cancel()

		return nil, err
	}

	logout.Handler.Init(app, cfg, sessions)
	oidchandler.Handler.Init(ctx, app, cfg, db, sessions, service.authService)

	if err := configure.Handler.Init(app, cfg, db, service.registry, service.authService); err != nil {
		cancel()

		return nil, err
	}

	app.Get(handler.RootPath, func(c *fiber.Ctx) error {
		return c.Redirect(handler.HomePath)
	})

	return service, nil
}
