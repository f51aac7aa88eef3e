// Package mailer holds the global configuration of extended build notification mail.
package mailer

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/ExtMailer/ExtMailer/internal/db/controller/setting"
	"github.com/ExtMailer/ExtMailer/internal/validation"
)

const (
	// SettingKey is the settings row holding the record.
	SettingKey = "ext_mailer"

	// ContentTypePlain is the default content type.
	ContentTypePlain = "text/plain"
	// ContentTypeHTML sends html mail.
	ContentTypeHTML = "text/html"

	// DefaultSubject is used until a subject is configured.
	DefaultSubject = "$PROJECT_NAME - Build # $BUILD_NUMBER - $BUILD_STATUS!"
	// DefaultBody is used until a body is configured.
	DefaultBody = "$PROJECT_NAME - Build # $BUILD_NUMBER - $BUILD_STATUS:\n\n" +
		"Check console output at $BUILD_URL to view the results."

	bytesPerMegabyte = 1024 * 1024

	// MaxAttachmentSizeMB is the largest limit whose byte count fits an int64.
	MaxAttachmentSizeMB = math.MaxInt64 / bytesPerMegabyte
)

// Settings is the global configuration record.
// Form names are the names posted by the configuration page.
type Settings struct {
	DefaultContentType string `json:"defaultContentType" form:"ext_mailer_default_content_type" validate:"required,oneof=text/plain text/html"` //nolint:lll
	DefaultRecipients  string `json:"defaultRecipients" form:"ext_mailer_default_recipients" validate:"addresslist"`
	DefaultReplyTo     string `json:"defaultReplyTo" form:"ext_mailer_default_replyto" validate:"addresslist"`
	EmergencyReroute   string `json:"emergencyReroute" form:"ext_mailer_emergency_reroute" validate:"addresslist"`
	AllowedDomains     string `json:"allowedDomains" form:"ext_mailer_allowed_domains"`
	ExcludedCommitters string `json:"excludedCommitters" form:"ext_mailer_excluded_committers"`
	DefaultSubject     string `json:"defaultSubject" form:"ext_mailer_default_subject"`
	DefaultBody        string `json:"defaultBody" form:"ext_mailer_default_body"`
	// MaxAttachmentSize is in megabytes, blank means unlimited.
	MaxAttachmentSize string `json:"maxAttachmentSize" form:"ext_mailer_max_attachment_size" validate:"omitempty,megabytes"`
	// AdvProperties are extra SMTP session properties in java properties syntax.
	AdvProperties  string `json:"advProperties" form:"ext_mailer_adv_properties" validate:"advproperties"`
	UseListID      bool   `json:"useListId" form:"ext_mailer_use_list_id"`
	ListID         string `json:"listId" form:"ext_mailer_list_id" validate:"required_if=UseListID true"`
	PrecedenceBulk bool   `json:"precedenceBulk" form:"ext_mailer_add_precedence_bulk"`
	DebugMode      bool   `json:"debugMode" form:"ext_mailer_debug_mode"`
}

var validate = newValidator() //nolint:gochecknoglobals

func newValidator() *validator.Validate {
	v := validation.New()

	if err := v.RegisterValidation("advproperties", func(fl validator.FieldLevel) bool {
		_, err := ParseProperties(fl.Field().String())

		return err == nil
	}); err != nil {
		panic(err)
	}

	if err := v.RegisterValidation("megabytes", func(fl validator.FieldLevel) bool {
		_, ok := parseMegabytes(fl.Field().String())

		return ok
	}); err != nil {
		panic(err)
	}

	return v
}

// Defaults returns the record as it is before the first submission.
func Defaults() Settings {
	return Settings{
		DefaultContentType: ContentTypePlain,
		DefaultSubject:     DefaultSubject,
		DefaultBody:        DefaultBody,
	}
}

// Load returns the stored record. Fields never stored keep their default.
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

// Save validates and stores the whole record.
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

// Configure applies one form submission to s.
//
// bind decodes the submitted fields into its argument, leaving absent
// fields untouched. Unchecked checkboxes are not submitted by browsers, so
// every flag is cleared first and only submitted flags end up true.
func (s *Settings) Configure(bind func(any) error) error {
	s.UseListID = false
	s.PrecedenceBulk = false
	s.DebugMode = false

	if err := bind(s); err != nil {
		return fmt.Errorf("bind %s: %w", SettingKey, err)
	}

	s.DefaultContentType = strings.TrimSpace(s.DefaultContentType)
	s.MaxAttachmentSize = strings.TrimSpace(s.MaxAttachmentSize)
	s.ListID = strings.TrimSpace(s.ListID)

	if !s.UseListID {
		s.ListID = ""
	}

	if s.DebugMode {
		log.Debug().Interface(SettingKey, s).Msg("bound global mail configuration")
	}

	return s.Validate()
}

// MaxAttachmentSizeBytes returns the attachment limit in bytes, -1 for unlimited.
// Values that do not validate are treated as unlimited as well.
func (s *Settings) MaxAttachmentSizeBytes() int64 {
	mb, ok := parseMegabytes(s.MaxAttachmentSize)
	if !ok {
		return -1
	}

	return mb * bytesPerMegabyte
}

// parseMegabytes accepts plain digits up to MaxAttachmentSizeMB.
func parseMegabytes(v string) (int64, bool) {
	if v == "" || strings.TrimLeft(v, "0123456789") != "" {
		return 0, false
	}

	mb, err := strconv.ParseInt(v, 10, 64)
	if err != nil || mb > MaxAttachmentSizeMB {
		return 0, false
	}

	return mb, true
}

// AdvancedProperties parses AdvProperties.
func (s *Settings) AdvancedProperties() (map[string]string, error) {
	return ParseProperties(s.AdvProperties)
}
