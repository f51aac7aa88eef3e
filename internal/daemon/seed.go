package daemon

import (
	"fmt"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/ExtMailer/ExtMailer/internal/auth"
	"github.com/ExtMailer/ExtMailer/internal/config"
	"github.com/ExtMailer/ExtMailer/internal/db/models"
	"github.com/ExtMailer/ExtMailer/internal/uniuri"
)

// InitialAdmin is the username of the account created on an empty database.
const InitialAdmin = "admin"

// Seed makes sure the permission catalog and the system roles exist and
// creates the initial admin account when there are no users yet. Without a
// configured password a random one is generated and logged once.
func Seed(cfg *config.Config, db *gorm.DB) error {
	if err := auth.Seed(db, cfg.Auth.LegacyPermissions); err != nil {
		return err
	}

	var count int64
	if err := db.Model(&models.User{}).Count(&count).Error; err != nil {
		return fmt.Errorf("count users: %w", err)
	}

	if count > 0 {
		return nil
	}

	password := cfg.Auth.InitialAdminPassword
	generated := password == ""

	if generated {
		var err error
		if password, err = uniuri.New(); err != nil {
			return err
		}
	}

	if _, err := auth.NewLocalProvider(db).CreateUser(auth.NewLocalUser{
		Username: InitialAdmin,
		Email:    InitialAdmin + "@localhost",
		Password: password,
		Role:     auth.RoleAdmin,
	}); err != nil {
		return fmt.Errorf("create initial admin: %w", err)
	}

	event := log.Warn().Str("username", InitialAdmin)
	if generated {
		event = event.Str("password", password)
	}

	event.Msg("created initial admin account, change its password")

	return nil
}
