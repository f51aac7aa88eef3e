// Package dsn builds database connection strings from the configuration.
package dsn

import (
	"fmt"
	"net/url"
	"strconv"

	"github.com/ExtMailer/ExtMailer/internal/config"
)

// Create builds the Data Source Name for the configured engine.
// SQLite uses DB.Name as the file path.
func Create(dbCfg *config.DB) string {
	switch dbCfg.GormEngine {
	case config.EnginePostgres:
		return Postgres(dbCfg)
	case config.EngineSQLite:
		return dbCfg.Name
	default:
		return MySQL(dbCfg)
	}
}

// MySQL returns a go-sql-driver DSN, user:pass@tcp(host:port)/name?extras.
func MySQL(dbCfg *config.DB) string {
	out := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s",
		dbCfg.User,
		dbCfg.Password,
		dbCfg.Host,
		dbCfg.Port,
		dbCfg.Name,
	)

	if dbCfg.Extras != "" {
		out += "?" + dbCfg.Extras
	}

	return out
}

// Postgres returns a postgres:// URL accepted by pgx and the fiber storage.
func Postgres(dbCfg *config.DB) string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(dbCfg.User, dbCfg.Password),
		Host:     dbCfg.Host + ":" + strconv.Itoa(dbCfg.Port),
		Path:     "/" + dbCfg.Name,
		RawQuery: dbCfg.Extras,
	}

	return u.String()
}
