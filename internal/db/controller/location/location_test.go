package location

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ExtMailer/ExtMailer/internal/db/dbtest"
)

func bindValues(url, admin string) func(any) error {
	return func(out any) error {
		s, _ := out.(*Settings)
		s.URL, s.AdminAddress = url, admin

		return nil
	}
}

func TestLoadDefaults(t *testing.T) {
	got, err := Load(dbtest.Open(t))
	require.NoError(t, err)
	assert.Equal(t, Defaults(), got)
}

func TestConfigureAndSave(t *testing.T) {
	db := dbtest.Open(t)

	s, err := Load(db)
	require.NoError(t, err)
	require.NoError(t, s.Configure(bindValues(" https://ci.example.com ", "CI <ci@example.com>")))
	require.NoError(t, Save(db, s))

	got, err := Load(db)
	require.NoError(t, err)
	assert.Equal(t, "https://ci.example.com/", got.URL)
	assert.Equal(t, "CI <ci@example.com>", got.AdminAddress)
}

func TestConfigureRejects(t *testing.T) {
	s := Defaults()
	assert.Error(t, s.Configure(bindValues("ftp//nope", "ci@example.com")))

	s = Defaults()
	assert.Error(t, s.Configure(bindValues("", "  ")))
}
