package mailer

import (
	"reflect"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ExtMailer/ExtMailer/internal/db/controller/setting"
	"github.com/ExtMailer/ExtMailer/internal/db/dbtest"
	"github.com/ExtMailer/ExtMailer/internal/validation"
)

// formBind decodes values into the form tagged fields like the fiber body parser does.
func formBind(values map[string]string) func(any) error {
	return func(out any) error {
		v := reflect.ValueOf(out).Elem()

		for i := range v.NumField() {
			raw, ok := values[v.Type().Field(i).Tag.Get("form")]
			if !ok {
				continue
			}

			switch f := v.Field(i); f.Kind() { //nolint:exhaustive
			case reflect.Bool:
				b, err := strconv.ParseBool(raw)
				if err != nil {
					return err
				}

				f.SetBool(b)
			default:
				f.SetString(raw)
			}
		}

		return nil
	}
}

func TestDefaults(t *testing.T) {
	db := dbtest.Open(t)

	got, err := Load(db)
	require.NoError(t, err)

	assert.Equal(t, Defaults(), got)
	assert.Equal(t, "text/plain", got.DefaultContentType)
	assert.Equal(t, "$PROJECT_NAME - Build # $BUILD_NUMBER - $BUILD_STATUS!", got.DefaultSubject)
	assert.Equal(t, "$PROJECT_NAME - Build # $BUILD_NUMBER - $BUILD_STATUS:\n\n"+
		"Check console output at $BUILD_URL to view the results.", got.DefaultBody)
	assert.Empty(t, got.DefaultRecipients)
	assert.Empty(t, got.MaxAttachmentSize)
	assert.False(t, got.UseListID)
	assert.False(t, got.PrecedenceBulk)
	assert.False(t, got.DebugMode)
}

func TestRoundTrip(t *testing.T) {
	tests := []struct {
		name   string
		form   map[string]string
		assert func(t *testing.T, s Settings)
	}{
		{
			name: "recipients",
			form: map[string]string{"ext_mailer_default_recipients": "mickey@disney.com"},
			assert: func(t *testing.T, s Settings) {
				t.Helper()
				assert.Equal(t, "mickey@disney.com", s.DefaultRecipients)
			},
		},
		{
			name: "precedence bulk",
			form: map[string]string{"ext_mailer_add_precedence_bulk": "true"},
			assert: func(t *testing.T, s Settings) {
				t.Helper()
				assert.True(t, s.PrecedenceBulk)
			},
		},
		{
			name: "list id",
			form: map[string]string{"ext_mailer_use_list_id": "true", "ext_mailer_list_id": "hammer"},
			assert: func(t *testing.T, s Settings) {
				t.Helper()
				assert.True(t, s.UseListID)
				assert.Equal(t, "hammer", s.ListID)
			},
		},
		{
			name: "advanced properties",
			form: map[string]string{"ext_mailer_adv_properties": "mail.smtp.starttls.enable=true"},
			assert: func(t *testing.T, s Settings) {
				t.Helper()
				assert.Equal(t, "mail.smtp.starttls.enable=true", s.AdvProperties)

				props, err := s.AdvancedProperties()
				require.NoError(t, err)
				assert.Equal(t, map[string]string{"mail.smtp.starttls.enable": "true"}, props)
			},
		},
		{
			name: "html and size",
			form: map[string]string{
				"ext_mailer_default_content_type": "text/html",
				"ext_mailer_max_attachment_size":  "10",
				"ext_mailer_default_subject":      "Build $BUILD_NUMBER",
			},
			assert: func(t *testing.T, s Settings) {
				t.Helper()
				assert.Equal(t, "text/html", s.DefaultContentType)
				assert.Equal(t, int64(10*1024*1024), s.MaxAttachmentSizeBytes())
				assert.Equal(t, "Build $BUILD_NUMBER", s.DefaultSubject)
				assert.Equal(t, DefaultBody, s.DefaultBody)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db := dbtest.Open(t)

			s, err := Load(db)
			require.NoError(t, err)
			require.NoError(t, s.Configure(formBind(tt.form)))
			require.NoError(t, Save(db, s))

			got, err := Load(db)
			require.NoError(t, err)
			tt.assert(t, got)
		})
	}
}

func TestConfigureCheckboxes(t *testing.T) {
	s := Defaults()
	s.UseListID, s.ListID, s.PrecedenceBulk, s.DebugMode = true, "hammer", true, true
	s.DefaultRecipients = "mickey@disney.com"

	// a submission without any checkbox unchecks them all
	require.NoError(t, s.Configure(formBind(map[string]string{"ext_mailer_default_replyto": "noreply@disney.com"})))

	assert.False(t, s.UseListID)
	assert.False(t, s.PrecedenceBulk)
	assert.False(t, s.DebugMode)
	assert.Empty(t, s.ListID, "list id is cleared with the flag")
	assert.Equal(t, "mickey@disney.com", s.DefaultRecipients, "absent text fields are kept")
	assert.Equal(t, "noreply@disney.com", s.DefaultReplyTo)
}

func TestConfigureValidation(t *testing.T) {
	tests := []struct {
		name      string
		form      map[string]string
		wantField string
		wantTag   string
	}{
		{"bad content type", map[string]string{"ext_mailer_default_content_type": "text/rtf"}, "ext_mailer_default_content_type", "oneof"},
		{"empty content type", map[string]string{"ext_mailer_default_content_type": ""}, "ext_mailer_default_content_type", "required"},
		{"bad recipient", map[string]string{"ext_mailer_default_recipients": "mickey"}, "ext_mailer_default_recipients", "addresslist"},
		{"bad reroute", map[string]string{"ext_mailer_emergency_reroute": "@"}, "ext_mailer_emergency_reroute", "addresslist"},
		{"bad size", map[string]string{"ext_mailer_max_attachment_size": "ten"}, "ext_mailer_max_attachment_size", "megabytes"},
		{"negative size", map[string]string{"ext_mailer_max_attachment_size": "-5"}, "ext_mailer_max_attachment_size", "megabytes"},
		{"size overflows", map[string]string{"ext_mailer_max_attachment_size": "9000000000000"}, "ext_mailer_max_attachment_size", "megabytes"},
		{"size beyond int64", map[string]string{"ext_mailer_max_attachment_size": "99999999999999999999"}, "ext_mailer_max_attachment_size", "megabytes"},
		{"bad properties", map[string]string{"ext_mailer_adv_properties": "=true"}, "ext_mailer_adv_properties", "advproperties"},
		{"list id missing", map[string]string{"ext_mailer_use_list_id": "true"}, "ext_mailer_list_id", "required_if"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := Defaults()
			err := s.Configure(formBind(tt.form))
			require.Error(t, err)

			fes := validation.Errors(err)
			require.Len(t, fes, 1)
			assert.Equal(t, tt.wantField, fes[0].Field)
			assert.Equal(t, tt.wantTag, fes[0].Tag)
		})
	}
}

func TestConfigureBindError(t *testing.T) {
	s := Defaults()
	err := s.Configure(formBind(map[string]string{"ext_mailer_debug_mode": "on"}))
	assert.Error(t, err)
}

func TestSaveRejectsInvalid(t *testing.T) {
	db := dbtest.Open(t)

	s := Defaults()
	s.DefaultContentType = "application/pdf"
	require.Error(t, Save(db, s))

	_, err := setting.Get(db, SettingKey)
	assert.ErrorIs(t, err, setting.ErrSettingNotFound)
}

func TestLoadKeepsDefaultsForMissingFields(t *testing.T) {
	db := dbtest.Open(t)
	require.NoError(t, setting.Set(db, SettingKey, []byte(`{"defaultRecipients":"mickey@disney.com"}`)))

	got, err := Load(db)
	require.NoError(t, err)
	assert.Equal(t, "mickey@disney.com", got.DefaultRecipients)
	assert.Equal(t, DefaultSubject, got.DefaultSubject)
	assert.Equal(t, ContentTypePlain, got.DefaultContentType)
}

func TestLoadBrokenRecord(t *testing.T) {
	db := dbtest.Open(t)
	require.NoError(t, setting.Set(db, SettingKey, []byte(`{`)))

	got, err := Load(db)
	require.Error(t, err)
	assert.Equal(t, Defaults(), got)
}

func TestMaxAttachmentSizeBytes(t *testing.T) {
	largest := strconv.FormatInt(MaxAttachmentSizeMB, 10)

	for in, want := range map[string]int64{
		"":                     -1,
		"0":                    0,
		"1":                    1024 * 1024,
		"x":                    -1,
		"-5":                   -1,
		"+5":                   -1,
		largest:                MaxAttachmentSizeMB * 1024 * 1024,
		"9000000000000":        -1,
		"99999999999999999999": -1,
	} {
		s := Settings{MaxAttachmentSize: in}
		assert.Equal(t, want, s.MaxAttachmentSizeBytes(), in)
		assert.GreaterOrEqual(t, s.MaxAttachmentSizeBytes(), int64(-1), in)
	}

	s := Defaults()
	s.MaxAttachmentSize = largest
	assert.NoError(t, s.Validate())
}

func TestParseProperties(t *testing.T) {
	props, err := ParseProperties(`
# comment
! also a comment
mail.smtp.starttls.enable=true
mail.smtp.timeout : 5000
mail.debug
mail.smtp.starttls.enable = false
`)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{
		"mail.smtp.starttls.enable": "false",
		"mail.smtp.timeout":         "5000",
		"mail.debug":                "",
	}, props)

	_, err = ParseProperties("a=b\n: c")
	assert.ErrorIs(t, err, ErrPropertyKeyEmpty)
}

func TestResolveRecipients(t *testing.T) {
	tests := []struct {
		name     string
		settings Settings
		list     string
		want     []string
	}{
		{
			name: "plain",
			list: "mickey@disney.com, minnie@disney.com mickey@disney.com",
			want: []string{"mickey@disney.com", "minnie@disney.com"},
		},
		{
			name:     "reroute wins",
			settings: Settings{EmergencyReroute: "oncall@disney.com"},
			list:     "mickey@disney.com",
			want:     []string{"oncall@disney.com"},
		},
		{
			name:     "allowed domains",
			settings: Settings{AllowedDomains: "@disney.com, pixar.com"},
			list:     "mickey@disney.com,woody@pixar.com,bugs@wb.com",
			want:     []string{"mickey@disney.com", "woody@pixar.com"},
		},
		{
			name:     "excluded by address or user",
			settings: Settings{ExcludedCommitters: "goofy, Pluto@disney.com"},
			list:     "mickey@disney.com goofy@disney.com cc:pluto@disney.com",
			want:     []string{"mickey@disney.com"},
		},
		{
			name: "cc prefix kept",
			list: "cc:mickey@disney.com",
			want: []string{"cc:mickey@disney.com"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.settings.ResolveRecipients(tt.list))
		})
	}
}
