// Package location holds where the service is reachable and who runs it.
package location

import (
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/ExtMailer/ExtMailer/internal/db/controller/setting"
	"github.com/ExtMailer/ExtMailer/internal/validation"
)

const (
	// SettingKey is the settings row holding the record.
	SettingKey = "location"

	// DefaultAdminAddress is shown until an address is configured.
	DefaultAdminAddress = "address not configured yet <nobody@nowhere>"
)

// Settings is the location record. The admin address is the sender of notification mail.
type Settings struct {
	URL          string `json:"url" form:"location_url" validate:"omitempty,http_url"`
	AdminAddress string `json:"adminAddress" form:"location_admin_address" validate:"required"`
}

var validate = validation.New() //nolint:gochecknoglobals

// Defaults returns the record before the first submission.
func Defaults() Settings {
	return Settings{AdminAddress: DefaultAdminAddress}
}

// Load returns the stored record or Defaults.
func Load(db *gorm.DB) (Settings, error) {
	s := Defaults()

	err := setting.GetJSON(db, SettingKey, &s)
	if errors.Is(err, setting.ErrSettingNotFound) {
		return Defaults(), nil
	}

	if err != nil {
		return Defaults(), fmt.Errorf("load %s: %w", SettingKey, err)
	}

	return s, nil
}

// Save validates and stores the record.
func Save(db *gorm.DB, s Settings) error {
	if err := s.Validate(); err != nil {
		return err
	}

	return setting.SetJSON(db, SettingKey, s)
}

// Validate checks every field rule.
func (s *Settings) Validate() error {
	return validate.Struct(s) //nolint:wrapcheck
}

// Configure applies one form submission.
func (s *Settings) Configure(bind func(any) error) error {
	if err := bind(s); err != nil {
		return fmt.Errorf("bind %s: %w", SettingKey, err)
	}

	s.URL = strings.TrimSpace(s.URL)
	if s.URL != "" && !strings.HasSuffix(s.URL, "/") {
		s.URL += "/"
	}

	s.AdminAddress = strings.TrimSpace(s.AdminAddress)

	return s.Validate()
}
