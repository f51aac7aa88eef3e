package auth

const (
	// PermOverallRead allows signing in and looking around.
	PermOverallRead = "overall.read"
	// PermOverallManage allows changing the global configuration of the service.
	// Not defined in legacy installations.
	PermOverallManage = "overall.manage"
	// PermOverallAdminister implies every other permission.
	PermOverallAdminister = "overall.administer"
	// PermAdminUsers allows managing user accounts.
	PermAdminUsers = "admin.users"
	// PermAdminRoles allows granting and revoking permissions.
	PermAdminRoles = "admin.roles"
)

const (
	// RoleAdmin holds overall.administer.
	RoleAdmin = "admin"
	// RoleManager may change the global configuration.
	RoleManager = "manager"
	// RoleReader may only look.
	RoleReader = "reader"
)

// Definition describes one permission of the catalog.
type Definition struct {
	Name        string
	Resource    string
	Action      string
	ImpliedBy   string
	Description string
}

// RoleDefinition is a seeded system role and its default grants.
type RoleDefinition struct {
	Name        string
	Description string
	Permissions []string
}

// Catalog returns the permissions this installation defines.
// Legacy installations predate overall.manage.
func Catalog(legacy bool) []Definition {
	readImpliedBy := PermOverallManage
	if legacy {
		readImpliedBy = PermOverallAdminister
	}

	defs := []Definition{
		{
			Name: PermOverallRead, Resource: "overall", Action: "read", ImpliedBy: readImpliedBy,
			Description: "Sign in and view pages",
		},
		{
			Name: PermOverallManage, Resource: "overall", Action: "manage", ImpliedBy: PermOverallAdminister,
			Description: "Change the global configuration",
		},
		{
			Name: PermOverallAdminister, Resource: "overall", Action: "administer",
			Description: "Full control",
		},
		{
			Name: PermAdminUsers, Resource: "admin", Action: "users", ImpliedBy: PermOverallAdminister,
			Description: "Manage user accounts",
		},
		{
			Name: PermAdminRoles, Resource: "admin", Action: "roles", ImpliedBy: PermOverallAdminister,
			Description: "Grant and revoke permissions",
		},
	}

	if legacy {
		return append(defs[:1], defs[2:]...)
	}

	return defs
}

// DefaultRoles returns the seeded system roles.
func DefaultRoles(legacy bool) []RoleDefinition {
	manager := []string{PermOverallRead, PermOverallManage}
	if legacy {
		manager = []string{PermOverallRead}
	}

	return []RoleDefinition{
		{Name: RoleAdmin, Description: "Administrators", Permissions: []string{PermOverallAdminister}},
		{Name: RoleManager, Description: "Configuration managers", Permissions: manager},
		{Name: RoleReader, Description: "Read only users", Permissions: []string{PermOverallRead}},
	}
}

func isDefaultGrant(role, permission string) bool {
	// legacy grants are a subset of the regular ones
	for _, r := range DefaultRoles(false) {
		if r.Name != role {
			continue
		}

		for _, p := range r.Permissions {
			if p == permission {
				return true
			}
		}
	}

	return false
}
