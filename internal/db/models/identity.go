package models

import (
	"time"

	"github.com/alexedwards/argon2id"
	"github.com/rs/zerolog/log"
)

// AuthSource tells where an account or group comes from.
type AuthSource string

const (
	// AuthSourceLocal accounts log in with a password stored in the users table.
	AuthSourceLocal AuthSource = "local"
	// AuthSourceOIDC accounts are provisioned on first OIDC login.
	AuthSourceOIDC AuthSource = "oidc"
	// AuthSourceLDAP accounts are provisioned on first LDAP bind.
	AuthSourceLDAP AuthSource = "ldap"
)

// User is an account allowed to sign in.
type User struct {
	ID       uint64 `gorm:"primaryKey"`
	Active   bool
	Username string `gorm:"unique;size:100;not null"`
	Email    string `gorm:"size:255;not null"`
	// Password holds an argon2id hash, empty for external accounts.
	Password   string     `gorm:"size:255"`
	FirstName  string     `gorm:"size:100"`
	LastName   string     `gorm:"size:100"`
	RoleID     uint       `gorm:"column:role_id;not null"`
	Role       Role       `gorm:"foreignKey:RoleID;references:ID;constraint:OnDelete:RESTRICT,OnUpdate:CASCADE"`
	AuthSource AuthSource `gorm:"type:varchar(20);not null;default:'local'"`
	// ExternalID is the OIDC subject or the LDAP DN.
	ExternalID string `gorm:"size:255"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
	DeletedAt  *time.Time
}

// DisplayName returns "First Last" or the username when no name is known.
func (u *User) DisplayName() string {
	switch {
	case u.FirstName != "" && u.LastName != "":
		return u.FirstName + " " + u.LastName
	case u.FirstName != "":
		return u.FirstName
	default:
		return u.Username
	}
}

// HashPassword returns the argon2id hash of password.
func HashPassword(password string) (string, error) {
	return argon2id.CreateHash(password, argon2id.DefaultParams) //nolint:wrapcheck
}

// VerifyPassword reports whether password matches the stored hash.
func (u *User) VerifyPassword(password string) bool {
	if u.Password == "" {
		return false
	}

	match, err := argon2id.ComparePasswordAndHash(password, u.Password)
	if err != nil {
		log.Error().Err(err).Str("user", u.Username).Msg("failed to verify password")

		return false
	}

	return match
}

// Group is a local or externally synchronized set of users.
// ExternalID plus Source is unique.
type Group struct {
	ID          uint       `gorm:"primaryKey"`
	Name        string     `gorm:"size:100;not null"`
	ExternalID  string     `gorm:"size:255;uniqueIndex:idx_source_external"`
	Source      AuthSource `gorm:"type:varchar(20);not null;uniqueIndex:idx_source_external"`
	Description string     `gorm:"size:255"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// TableName keeps clear of the reserved word "groups" on mysql.
func (Group) TableName() string {
	return "auth_groups"
}

// UserGroup is the membership join table, rewritten on every external login.
type UserGroup struct {
	UserID    uint64 `gorm:"primaryKey;column:user_id"`
	GroupID   uint   `gorm:"primaryKey;column:group_id"`
	User      User   `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
	Group     Group  `gorm:"foreignKey:GroupID;constraint:OnDelete:CASCADE"`
	CreatedAt time.Time
}

// TableName overrides the gorm default.
func (UserGroup) TableName() string {
	return "user_groups"
}

// GroupMapping grants the members of a group one additional role.
type GroupMapping struct {
	ID        uint  `gorm:"primaryKey"`
	GroupID   uint  `gorm:"not null;uniqueIndex"`
	RoleID    uint  `gorm:"not null"`
	Group     Group `gorm:"foreignKey:GroupID;constraint:OnDelete:CASCADE"`
	Role      Role  `gorm:"foreignKey:RoleID;constraint:OnDelete:CASCADE"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TableName overrides the gorm default.
func (GroupMapping) TableName() string {
	return "group_mappings"
}
