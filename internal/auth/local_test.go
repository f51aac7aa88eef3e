package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ExtMailer/ExtMailer/internal/db/models"
)

func TestLocalAuthenticate(t *testing.T) {
	_, db := setupService(t, false)
	p := NewLocalProvider(db)
	user := createUser(t, db, "jane", RoleReader)

	got, err := p.Authenticate("jane", "secret-jane")
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)

	_, err = p.Authenticate("jane", "wrong")
	assert.ErrorIs(t, err, ErrInvalidPassword)

	_, err = p.Authenticate("john", "secret-john")
	assert.ErrorIs(t, err, ErrUserNotFound)

	require.NoError(t, p.SetActive(user.ID, false))

	_, err = p.Authenticate("jane", "secret-jane")
	assert.ErrorIs(t, err, ErrUserAccountDisabled)
}

func TestCreateUser(t *testing.T) {
	_, db := setupService(t, false)
	p := NewLocalProvider(db)
	createUser(t, db, "jane", RoleReader)

	_, err := p.CreateUser(NewLocalUser{Username: "jane", Email: "other@example.com", Password: "x", Role: RoleReader})
	assert.ErrorIs(t, err, ErrUserNameOrEmailExists)

	_, err = p.CreateUser(NewLocalUser{Username: "john", Email: "john@example.com", Password: "x", Role: "nobody"})
	assert.ErrorIs(t, err, ErrRoleNotFound)

	user, err := p.UserByID(createUser(t, db, "john", RoleManager).ID)
	require.NoError(t, err)
	assert.Equal(t, RoleManager, user.Role.Name)
	assert.NotEqual(t, "secret-john", user.Password)
}

func TestPasswords(t *testing.T) {
	_, db := setupService(t, false)
	p := NewLocalProvider(db)
	user := createUser(t, db, "jane", RoleReader)

	assert.ErrorIs(t, p.ChangePassword(user.ID, "wrong", "new"), ErrInvalidOldPassword)
	require.NoError(t, p.ChangePassword(user.ID, "secret-jane", "new"))

	_, err := p.Authenticate("jane", "new")
	require.NoError(t, err)

	require.NoError(t, p.ResetPassword(user.ID, "reset"))

	_, err = p.Authenticate("jane", "reset")
	require.NoError(t, err)

	assert.ErrorIs(t, p.ResetPassword(4242, "x"), ErrUserNotFound)
	assert.ErrorIs(t, p.ChangePassword(4242, "x", "y"), ErrUserNotFound)
}

func TestProvisionUser(t *testing.T) {
	_, db := setupService(t, false)

	profile := models.User{
		Username:   "jane",
		Email:      "jane@example.com",
		AuthSource: models.AuthSourceOIDC,
		ExternalID: "sub-1",
	}

	first, err := provisionUser(db, profile, "")
	require.NoError(t, err)
	assert.True(t, first.Active)

	reader, err := roleByName(db, RoleReader)
	require.NoError(t, err)
	assert.Equal(t, reader.ID, first.RoleID)

	profile.Email = "jane@new.example.com"

	second, err := provisionUser(db, profile, RoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "jane@new.example.com", second.Email)
	assert.Equal(t, reader.ID, second.RoleID, "existing accounts keep their role")

	require.NoError(t, NewLocalProvider(db).SetActive(first.ID, false))

	_, err = provisionUser(db, profile, "")
	assert.ErrorIs(t, err, ErrUserAccountDisabled)
}

func TestDisplayName(t *testing.T) {
	assert.Equal(t, "Jane Doe", (&models.User{Username: "jd", FirstName: "Jane", LastName: "Doe"}).DisplayName())
	assert.Equal(t, "Jane", (&models.User{Username: "jd", FirstName: "Jane"}).DisplayName())
	assert.Equal(t, "jd", (&models.User{Username: "jd"}).DisplayName())
}
