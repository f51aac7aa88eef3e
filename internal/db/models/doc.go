// Package models contains the gorm models persisted by ExtMailer.
package models

// All lists every model in migration order.
func All() []any {
	return []any{
		&Role{},
		&Permission{},
		&RolePermission{},
		&User{},
		&Group{},
		&UserGroup{},
		&GroupMapping{},
		&Setting{},
		&SettingRevision{},
	}
}
