package globalconfig

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/ExtMailer/ExtMailer/internal/auth"
	"github.com/ExtMailer/ExtMailer/internal/db/controller/location"
	"github.com/ExtMailer/ExtMailer/internal/db/controller/mailer"
)

// MailerSection exposes the extended mail record. It is guarded by
// overall.manage and falls back to overall.administer on installations
// without it.
type MailerSection struct{}

// ID implements Section.
func (MailerSection) ID() string { return mailer.SettingKey }

// DisplayName implements Section.
func (MailerSection) DisplayName() string { return "Extended E-mail Notification" }

// Ordinal implements Section.
func (MailerSection) Ordinal() int { return 200 } //nolint:mnd

// RequiredPermission implements Section.
func (MailerSection) RequiredPermission() string { return auth.PermOverallManage }

// FallbackPermission implements Section.
func (MailerSection) FallbackPermission() string { return auth.PermOverallAdminister }

// Current implements Section.
func (MailerSection) Current(db *gorm.DB) (any, error) {
	return mailer.Load(db)
}

// Bind implements Section.
func (MailerSection) Bind(db *gorm.DB, bind func(any) error) (any, error) {
	s, err := mailer.Load(db)
	if err != nil {
		return s, err
	}

	err = s.Configure(bind)

	return s, err
}

// Save implements Section.
func (MailerSection) Save(tx *gorm.DB, candidate any) error {
	s, ok := candidate.(mailer.Settings)
	if !ok {
		return fmt.Errorf("%w: %T", errCandidateType, candidate)
	}

	return mailer.Save(tx, s)
}

// LocationSection exposes the service location. Administrators only.
type LocationSection struct{}

// ID implements Section.
func (LocationSection) ID() string { return location.SettingKey }

// DisplayName implements Section.
func (LocationSection) DisplayName() string { return "Service Location" }

// Ordinal implements Section.
func (LocationSection) Ordinal() int { return 100 } //nolint:mnd

// RequiredPermission implements Section.
func (LocationSection) RequiredPermission() string { return auth.PermOverallAdminister }

// FallbackPermission implements Section.
func (LocationSection) FallbackPermission() string { return "" }

// Current implements Section.
func (LocationSection) Current(db *gorm.DB) (any, error) {
	return location.Load(db)
}

// Bind implements Section.
func (LocationSection) Bind(db *gorm.DB, bind func(any) error) (any, error) {
	s, err := location.Load(db)
	if err != nil {
		return s, err
	}

	err = s.Configure(bind)

	return s, err
}

// Save implements Section.
func (LocationSection) Save(tx *gorm.DB, candidate any) error {
	s, ok := candidate.(location.Settings)
	if !ok {
		return fmt.Errorf("%w: %T", errCandidateType, candidate)
	}

	return location.Save(tx, s)
}

// Default returns the registry of a standard installation.
func Default(db *gorm.DB, authz Authorizer) *Registry {
	r, err := New(db, authz, LocationSection{}, MailerSection{})
	if err != nil {
		// ids are constants
		panic(err)
	}

	return r
}
