package models

import "time"

// Role bundles permissions. Every user holds exactly one role and may
// receive further roles through group mappings.
type Role struct {
	ID          uint   `gorm:"primaryKey"`
	Name        string `gorm:"unique;size:100;not null"`
	Description string `gorm:"size:255"`
	// IsSystem roles are seeded and can not be deleted.
	IsSystem  bool `gorm:"default:false"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TableName overrides the gorm default.
func (Role) TableName() string {
	return "roles"
}

// Permission is a named capability such as "overall.manage".
//
// A permission row existing in the table is what makes the capability
// defined for this installation. ImpliedBy names another permission whose
// holders implicitly hold this one too, e.g. overall.administer implies
// overall.manage.
type Permission struct {
	ID          uint   `gorm:"primaryKey"`
	Name        string `gorm:"unique;size:100;not null"`
	Resource    string `gorm:"size:100;not null"`
	Action      string `gorm:"size:50;not null"`
	ImpliedBy   string `gorm:"size:100"`
	Description string `gorm:"size:255"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// TableName overrides the gorm default.
func (Permission) TableName() string {
	return "permissions"
}

// RolePermission is the join table between roles and permissions.
type RolePermission struct {
	RoleID       uint       `gorm:"primaryKey;column:role_id"`
	PermissionID uint       `gorm:"primaryKey;column:permission_id"`
	Role         Role       `gorm:"foreignKey:RoleID;constraint:OnDelete:CASCADE"`
	Permission   Permission `gorm:"foreignKey:PermissionID;constraint:OnDelete:CASCADE"`
}

// TableName overrides the gorm default.
func (RolePermission) TableName() string {
	return "role_permissions"
}
