package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/ExtMailer/ExtMailer/internal/db/dbtest"
	"github.com/ExtMailer/ExtMailer/internal/db/models"
)

func setupService(t *testing.T, legacy bool) (*Service, *gorm.DB) {
	t.Helper()

	db := dbtest.Open(t)
	require.NoError(t, Seed(db, legacy))

	return NewService(db), db
}

func createUser(t *testing.T, db *gorm.DB, username, role string) *models.User {
	t.Helper()

	user, err := NewLocalProvider(db).CreateUser(NewLocalUser{
		Username: username,
		Email:    username + "@example.com",
		Password: "secret-" + username,
		Role:     role,
	})
	require.NoError(t, err)

	return user
}

func TestDefined(t *testing.T) {
	svc, _ := setupService(t, false)

	ok, err := svc.Defined(PermOverallManage)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = svc.Defined("overall.nonexistent")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = svc.Lookup("overall.nonexistent")
	assert.ErrorIs(t, err, ErrPermissionUndefined)

	legacy, _ := setupService(t, true)

	ok, err = legacy.Defined(PermOverallManage)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestHasPermission(t *testing.T) {
	for _, legacy := range []bool{false, true} {
		svc, db := setupService(t, legacy)

		admin := createUser(t, db, "admin", RoleAdmin)
		manager := createUser(t, db, "manager", RoleManager)
		reader := createUser(t, db, "reader", RoleReader)

		tests := []struct {
			name       string
			user       *models.User
			permission string
			want       bool
		}{
			{"admin read", admin, PermOverallRead, true},
			{"admin administer", admin, PermOverallAdminister, true},
			{"admin users", admin, PermAdminUsers, true},
			{"admin manage", admin, PermOverallManage, !legacy},
			{"manager read", manager, PermOverallRead, true},
			{"manager manage", manager, PermOverallManage, !legacy},
			{"manager administer", manager, PermOverallAdminister, false},
			{"reader read", reader, PermOverallRead, true},
			{"reader manage", reader, PermOverallManage, false},
			{"reader roles", reader, PermAdminRoles, false},
			{"undefined permission", admin, "overall.nonexistent", false},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				got, err := svc.HasPermission(tt.user.ID, tt.permission)
				require.NoError(t, err)
				assert.Equal(t, tt.want, got, "legacy=%v", legacy)
			})
		}
	}
}

func TestInactiveUserHasNoPermissions(t *testing.T) {
	svc, db := setupService(t, false)
	admin := createUser(t, db, "admin", RoleAdmin)

	require.NoError(t, NewLocalProvider(db).SetActive(admin.ID, false))

	got, err := svc.HasPermission(admin.ID, PermOverallRead)
	require.NoError(t, err)
	assert.False(t, got)

	perms, err := svc.GetUserPermissions(admin.ID)
	require.NoError(t, err)
	assert.Empty(t, perms)
}

func TestGroupMappedPermissions(t *testing.T) {
	svc, db := setupService(t, false)
	user := createUser(t, db, "jane", RoleReader)

	require.NoError(t, svc.SyncUserGroups(user.ID, []string{"cn=ops,dc=example"}, models.AuthSourceLDAP))

	groups, err := svc.GetUserGroups(user.ID)
	require.NoError(t, err)
	require.Len(t, groups, 1)

	manager, err := svc.RoleByName(RoleManager)
	require.NoError(t, err)
	require.NoError(t, db.Create(&models.GroupMapping{GroupID: groups[0].ID, RoleID: manager.ID}).Error)

	got, err := svc.HasPermission(user.ID, PermOverallManage)
	require.NoError(t, err)
	assert.True(t, got)

	// memberships of the source are replaced, not merged
	require.NoError(t, svc.SyncUserGroups(user.ID, nil, models.AuthSourceLDAP))

	got, err = svc.HasPermission(user.ID, PermOverallManage)
	require.NoError(t, err)
	assert.False(t, got)
}

func TestSyncUserGroupsKeepsOtherSources(t *testing.T) {
	svc, db := setupService(t, false)
	user := createUser(t, db, "jane", RoleReader)

	require.NoError(t, svc.SyncUserGroups(user.ID, []string{"ops"}, models.AuthSourceOIDC))
	require.NoError(t, svc.SyncUserGroups(user.ID, []string{"cn=dev", "cn=qa"}, models.AuthSourceLDAP))
	require.NoError(t, svc.SyncUserGroups(user.ID, []string{"cn=dev"}, models.AuthSourceLDAP))

	groups, err := svc.GetUserGroups(user.ID)
	require.NoError(t, err)

	names := make([]string, 0, len(groups))
	for _, g := range groups {
		names = append(names, g.Name)
	}

	assert.Equal(t, []string{"cn=dev", "ops"}, names)
}

func TestGetUserPermissions(t *testing.T) {
	svc, db := setupService(t, false)

	admin := createUser(t, db, "admin", RoleAdmin)
	manager := createUser(t, db, "manager", RoleManager)

	perms, err := svc.GetUserPermissions(admin.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{
		PermAdminRoles, PermAdminUsers, PermOverallAdminister, PermOverallManage, PermOverallRead,
	}, perms)

	perms, err = svc.GetUserPermissions(manager.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{PermOverallManage, PermOverallRead}, perms)
}

func TestHasAnyAndAllPermissions(t *testing.T) {
	svc, db := setupService(t, false)
	reader := createUser(t, db, "reader", RoleReader)

	got, err := svc.HasAnyPermission(reader.ID, []string{PermOverallManage, PermOverallRead})
	require.NoError(t, err)
	assert.True(t, got)

	got, err = svc.HasAnyPermission(reader.ID, nil)
	require.NoError(t, err)
	assert.False(t, got)

	got, err = svc.HasAllPermissions(reader.ID, []string{PermOverallManage, PermOverallRead})
	require.NoError(t, err)
	assert.False(t, got)

	got, err = svc.HasAllPermissions(reader.ID, nil)
	require.NoError(t, err)
	assert.True(t, got)
}
