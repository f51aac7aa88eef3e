package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func etcPath(t *testing.T) string {
	t.Helper()

	projectRoot, err := filepath.Abs("../../")
	require.NoError(t, err)

	return filepath.Join(projectRoot, "etc") + string(filepath.Separator)
}

func TestReadConfig(t *testing.T) {
	cfg, err := ReadConfig(etcPath(t))
	require.NoError(t, err)

	assert.Equal(t, "ExtMailer", cfg.Title)
	assert.Equal(t, 8080, cfg.Webserver.Port)
	assert.Equal(t, "http://localhost:8080", cfg.Webserver.URL)
	assert.Equal(t, EngineSQLite, cfg.DB.GormEngine)
	assert.Equal(t, SessionStorageDB, cfg.Webserver.Session.Storage)
	assert.Equal(t, 24*time.Hour, cfg.Webserver.Session.ExpiryTime)
	assert.Equal(t, "info", cfg.Log.LogLevel)
	assert.Equal(t, "access.log", cfg.Log.File.Access.Name)
	assert.True(t, cfg.Auth.LocalDB.Enabled)
	assert.False(t, cfg.Auth.LegacyPermissions)
}

func TestReadConfigMissingFile(t *testing.T) {
	_, err := ReadConfig(t.TempDir())
	assert.Error(t, err)
}

func TestReadConfigWithJSONOverride(t *testing.T) {
	t.Setenv(EnvConfigJSON, `{"Title":"Test Override","Webserver":{"Port":9090},"Auth":{"LegacyPermissions":true}}`)

	cfg, err := ReadConfig(etcPath(t))
	require.NoError(t, err)

	assert.Equal(t, "Test Override", cfg.Title)
	assert.Equal(t, 9090, cfg.Webserver.Port)
	assert.True(t, cfg.Auth.LegacyPermissions)
	// untouched keys survive the merge
	assert.Equal(t, "http://localhost:8080", cfg.Webserver.URL)
}

func TestReadConfigWithBrokenJSONOverride(t *testing.T) {
	t.Setenv(EnvConfigJSON, `{"Title":`)

	_, err := ReadConfig(etcPath(t))
	assert.Error(t, err)
}

func TestLoadEnvFile(t *testing.T) {
	require.NoError(t, LoadEnvFile(""))

	envFile := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(envFile, []byte(`EXTMAILER_TEST_VALUE=from-file`+"\n"), 0o600))

	t.Setenv("EXTMAILER_TEST_VALUE", "")
	require.NoError(t, os.Unsetenv("EXTMAILER_TEST_VALUE"))

	require.NoError(t, LoadEnvFile(envFile))
	assert.Equal(t, "from-file", os.Getenv("EXTMAILER_TEST_VALUE"))

	assert.Error(t, LoadEnvFile(filepath.Join(t.TempDir(), "missing.env")))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr error
	}{
		{
			name:   "valid config",
			config: Config{Webserver: Webserver{Port: 8080, URL: "http://localhost:8080"}},
		},
		{
			name:    "missing port",
			config:  Config{Webserver: Webserver{URL: "http://localhost:8080"}},
			wantErr: ErrWebServerPortCanNotBeZero,
		},
		{
			name:    "missing URL",
			config:  Config{Webserver: Webserver{Port: 8080}},
			wantErr: ErrEmptyURL,
		},
		{
			name: "unknown engine",
			config: Config{
				DB:        DB{GormEngine: "oracle"},
				Webserver: Webserver{Port: 8080, URL: "http://localhost:8080"},
			},
			wantErr: ErrUnknownGormEngine,
		},
		{
			name: "unknown session storage",
			config: Config{
				Webserver: Webserver{Port: 8080, URL: "http://localhost:8080", Session: Session{Storage: "etcd"}},
			},
			wantErr: ErrUnknownSessionStorage,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validate(&tt.config)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)

				return
			}

			require.NoError(t, err)
		})
	}
}

func TestValidateDefaults(t *testing.T) {
	cfg := Config{Webserver: Webserver{Port: 8080, URL: "http://localhost:8080"}}
	require.NoError(t, validate(&cfg))

	assert.Equal(t, EngineSQLite, cfg.DB.GormEngine)
	assert.Equal(t, SessionStorageDB, cfg.Webserver.Session.Storage)
	assert.Equal(t, defaultShutDownTime, cfg.Webserver.ShutDownTime)
	assert.Equal(t, defaultSessionExpiry, cfg.Webserver.Session.ExpiryTime)
	assert.Equal(t, "ExtMailer", cfg.Title)
}

func TestDumpConfig(t *testing.T) {
	cfg := Config{
		Title:     "Dump",
		Webserver: Webserver{Port: 8080, URL: "http://localhost:8080"},
	}

	out, err := DumpConfig(&cfg)
	require.NoError(t, err)
	assert.Contains(t, out, "Dump")

	out, err = DumpConfigJSON(&cfg)
	require.NoError(t, err)
	assert.Contains(t, out, `"Title": "Dump"`)
}
