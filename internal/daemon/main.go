// Package daemon opens the database, seeds it and runs the web service.
package daemon

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/ExtMailer/ExtMailer/internal/config"
	"github.com/ExtMailer/ExtMailer/internal/db"
	"github.com/ExtMailer/ExtMailer/internal/web"
	"github.com/ExtMailer/ExtMailer/internal/web/session"
)

// ErrNilConfig is returned by New without a configuration.
var ErrNilConfig = errors.New("config is nil")

// Daemon represents the main application daemon.
type Daemon struct {
	cfg        *config.Config
	db         *gorm.DB
	storage    fiber.Storage
	webService *web.Service
}

// Start serves until SIGINT or SIGTERM.
func (d *Daemon) Start() error {
	addr := fmt.Sprintf(":%d", d.cfg.Webserver.Port)

	go func() {
		log.Info().Str("addr", addr).Str("url", d.cfg.Webserver.URL).Msg("starting web service")

		if err := d.webService.Start(addr); err != nil {
			log.Error().Err(err).Msg("web service stopped")
		}
	}()

	d.webService.WaitShutdown()

	return d.Close()
}

// Close releases the session storage and the database.
func (d *Daemon) Close() error {
	var errs []error

	if err := d.storage.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close session storage: %w", err))
	}

	if sqlDB, err := d.db.DB(); err == nil {
		if err = sqlDB.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close database: %w", err))
		}
	}

	return errors.Join(errs...)
}

// Web returns the web service.
func (d *Daemon) Web() *web.Service {
	return d.webService
}

// New creates a new Daemon instance with the provided configuration.
func New(cfg *config.Config) (*Daemon, error) {
	if cfg == nil {
		return nil, ErrNilConfig
	}

	gdb, err := db.Open(&cfg.DB, cfg.DevMode)
	if err != nil {
		return nil, err
	}

	if err = db.Migrate(gdb); err != nil {
		return nil, err
	}

	if err = Seed(cfg, gdb); err != nil {
		return nil, err
	}

	storage, err := session.NewStorage(cfg)
	if err != nil {
		return nil, err
	}

	sessions := session.NewManager(storage, cfg.Webserver.Session.ExpiryTime, cfg.DevMode)

	webService, err := web.New(cfg, gdb, sessions)
	if err != nil {
		_ = storage.Close()

		return nil, err
	}

	return &Daemon{
		cfg:        cfg,
		db:         gdb,
		storage:    storage,
		webService: webService,
	}, nil
}
