package config

import (
	"time"

	"github.com/ExtMailer/ExtMailer/internal/auth"
	"github.com/ExtMailer/ExtMailer/internal/logger"
)

const (
	// SessionStorageDB keeps sessions in the configured database.
	SessionStorageDB = "db"
	// SessionStorageMemory keeps sessions in process memory (dev only).
	SessionStorageMemory = "memory"
	// SessionStorageRedis keeps sessions in redis.
	SessionStorageRedis = "redis"
)

// Redis settings for the redis session storage.
type Redis struct {
	Host     string
	Port     int
	Username string
	Password string
	Database int
}

// Session settings.
type Session struct {
	ExpiryTime time.Duration
	Storage    string // db, memory or redis
	Redis      Redis
}

// LocalDBAuth toggles username/password authentication against the users table.
type LocalDBAuth struct {
	Enabled bool
}

// Auth holds the authentication and authorization settings.
type Auth struct {
	LocalDB LocalDBAuth
	LDAP    auth.LDAPConfig
	OIDC    auth.OIDCConfig

	// LegacyPermissions seeds the permission catalog without overall.manage.
	// Sections guarded by it fall back to overall.administer.
	LegacyPermissions bool

	// InitialAdminPassword is used when the admin account is first created.
	// A random password is generated and logged if empty.
	InitialAdminPassword string
}

// Config overall data structure.
type Config struct {
	DevMode   bool // enable dev mode for development
	DB        DB
	Log       logger.Log
	Title     string
	Webserver Webserver
	Auth      Auth
}

// Webserver implement webserver settings.
type Webserver struct {
	BrowseStatic        bool    // enable static file browsing (for development purposes only)
	DisableRecover      bool    // disable recover middleware
	Domain              string  // domain name for the webserver
	Port                int     // listening port for the webserver
	ShutDownTime        int     // wait time for shutdown
	URL                 string  // base url for the webserver
	CookieEncryptionKey string  // encryption key for cookies
	Session             Session // session settings
}
