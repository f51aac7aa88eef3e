package session

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/storage/memory/v2"
	"github.com/gofiber/storage/mysql/v2"
	"github.com/gofiber/storage/postgres/v3"
	"github.com/gofiber/storage/redis/v3"
	"github.com/rs/zerolog/log"

	"github.com/ExtMailer/ExtMailer/internal/config"
	"github.com/ExtMailer/ExtMailer/internal/db/dsn"
)

// Table holds sessions when they are kept in the application database.
const Table = "sessions"

// ErrUnknownStorage is returned for an unsupported storage name.
var ErrUnknownStorage = errors.New("unknown session storage")

// NewStorage opens the backend named by Webserver.Session.Storage. The db
// backend shares the application database; sqlite installations keep their
// sessions in memory.
func NewStorage(cfg *config.Config) (fiber.Storage, error) {
	sess := cfg.Webserver.Session

	switch sess.Storage {
	case config.SessionStorageMemory:
		return memory.New(), nil
	case config.SessionStorageRedis:
		return redis.New(redis.Config{
			Host:     sess.Redis.Host,
			Port:     sess.Redis.Port,
			Username: sess.Redis.Username,
			Password: sess.Redis.Password,
			Database: sess.Redis.Database,
		}), nil
	case config.SessionStorageDB:
		return dbStorage(&cfg.DB)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownStorage, sess.Storage)
	}
}

func dbStorage(db *config.DB) (fiber.Storage, error) {
	switch db.GormEngine {
	case config.EngineMySQL:
		return mysql.New(mysql.Config{ConnectionURI: dsn.MySQL(db), Table: Table}), nil
	case config.EnginePostgres:
		return postgres.New(postgres.Config{ConnectionURI: dsn.Postgres(db), Table: Table}), nil
	case config.EngineSQLite:
		log.Warn().Msg("no sqlite session storage, sessions are kept in memory")

		return memory.New(), nil
	default:
		return nil, fmt.Errorf("%w: %q", config.ErrUnknownGormEngine, db.GormEngine)
	}
}
