// Package db opens the configured database and migrates the schema.
package db

import (
	"errors"
	"fmt"

	"github.com/glebarez/sqlite"
	"github.com/rs/zerolog/log"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/ExtMailer/ExtMailer/internal/config"
	"github.com/ExtMailer/ExtMailer/internal/db/dsn"
	"github.com/ExtMailer/ExtMailer/internal/db/models"
)

// ErrNilConfig is returned by Open without a configuration.
var ErrNilConfig = errors.New("db config is nil")

// Dialector returns the gorm driver for the configured engine.
func Dialector(cfg *config.DB) (gorm.Dialector, error) {
	switch cfg.GormEngine {
	case config.EngineMySQL:
		return mysql.Open(dsn.MySQL(cfg)), nil
	case config.EnginePostgres:
		return postgres.Open(dsn.Postgres(cfg)), nil
	case config.EngineSQLite:
		return sqlite.Open(cfg.Name), nil
	default:
		return nil, fmt.Errorf("%w: %q", config.ErrUnknownGormEngine, cfg.GormEngine)
	}
}

// Open connects to the configured database. Dev mode logs every statement.
func Open(cfg *config.DB, devMode bool) (*gorm.DB, error) {
	if cfg == nil {
		return nil, ErrNilConfig
	}

	dialector, err := Dialector(cfg)
	if err != nil {
		return nil, err
	}

	gormCfg := &gorm.Config{Logger: logger.Default.LogMode(logger.Warn)}
	if devMode {
		gormCfg.Logger = logger.Default.LogMode(logger.Info)
	}

	db, err := gorm.Open(dialector, gormCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect %s database: %w", cfg.GormEngine, err)
	}

	log.Info().Str("engine", cfg.GormEngine).Str("name", cfg.Name).Msg("database connected")

	return db, nil
}

// Migrate creates or updates every table.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(models.All()...); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	return nil
}
