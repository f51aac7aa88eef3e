package auth

import "errors"

var (
	// ErrNoIDToken is returned when the OAuth2 token response doesn't contain an ID token.
	ErrNoIDToken = errors.New("no id_token in token response")

	// ErrInvalidOldPassword is returned when a password change gives the wrong current password.
	ErrInvalidOldPassword = errors.New("invalid old password")

	// ErrUserNameOrEmailExists is returned when the username or email is taken.
	ErrUserNameOrEmailExists = errors.New("user with username or email already exists")

	// ErrUserAccountDisabled is returned when a disabled account tries to sign in.
	ErrUserAccountDisabled = errors.New("user account is disabled")

	// ErrInvalidPassword is returned when the password is wrong.
	ErrInvalidPassword = errors.New("invalid password")

	// ErrUserNotFound is returned when a user cannot be found in the database or directory.
	ErrUserNotFound = errors.New("user not found")

	// ErrMultipleUsersFound is returned when a directory search matched more than one entry.
	ErrMultipleUsersFound = errors.New("multiple users found")

	// ErrPermissionUndefined is returned for permissions this installation does not define.
	ErrPermissionUndefined = errors.New("permission is not defined")

	// ErrRoleNotFound is returned for unknown role names.
	ErrRoleNotFound = errors.New("role not found")

	// ErrSystemGrant is returned when revoking a default grant from a system role.
	ErrSystemGrant = errors.New("default grants of system roles can not be revoked")
)
