package auth

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/ExtMailer/ExtMailer/internal/db/models"
)

// RoleGrants is a role with the names of its directly granted permissions.
type RoleGrants struct {
	Role        models.Role
	Permissions []string
}

// RoleByName returns the role or ErrRoleNotFound.
func (s *Service) RoleByName(name string) (*models.Role, error) {
	return roleByName(s.db, name)
}

func roleByName(db *gorm.DB, name string) (*models.Role, error) {
	var role models.Role

	err := db.Where("name = ?", name).Take(&role).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrRoleNotFound, name)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to look up role %s: %w", name, err)
	}

	return &role, nil
}

// Roles lists every role with its grants.
func (s *Service) Roles() ([]RoleGrants, error) {
	var roles []models.Role
	if err := s.db.Order("name").Find(&roles).Error; err != nil {
		return nil, fmt.Errorf("failed to list roles: %w", err)
	}

	result := make([]RoleGrants, 0, len(roles))

	for _, role := range roles {
		var perms []string

		err := s.db.Table("permissions").
			Joins("JOIN role_permissions ON role_permissions.permission_id = permissions.id").
			Where("role_permissions.role_id = ?", role.ID).
			Order("permissions.name").
			Pluck("permissions.name", &perms).Error
		if err != nil {
			return nil, fmt.Errorf("failed to list grants of role %s: %w", role.Name, err)
		}

		result = append(result, RoleGrants{Role: role, Permissions: perms})
	}

	return result, nil
}

// Grant gives a role a permission. Granting twice is not an error.
func (s *Service) Grant(roleName, permission string) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		return grant(tx, roleName, permission)
	})
}

func grant(tx *gorm.DB, roleName, permission string) error {
	role, err := roleByName(tx, roleName)
	if err != nil {
		return err
	}

	perm, err := NewService(tx).Lookup(permission)
	if err != nil {
		return err
	}

	err = tx.Clauses(clause.OnConflict{DoNothing: true}).
		Create(&models.RolePermission{RoleID: role.ID, PermissionID: perm.ID}).Error
	if err != nil {
		return fmt.Errorf("failed to grant %s to %s: %w", permission, roleName, err)
	}

	return nil
}

// Revoke takes a permission away from a role.
// Default grants of system roles are restored by every seed and can not be revoked.
func (s *Service) Revoke(roleName, permission string) error {
	role, err := s.RoleByName(roleName)
	if err != nil {
		return err
	}

	if role.IsSystem && isDefaultGrant(role.Name, permission) {
		return fmt.Errorf("%w: %s on %s", ErrSystemGrant, permission, roleName)
	}

	perm, err := s.Lookup(permission)
	if err != nil {
		return err
	}

	err = s.db.Where("role_id = ? AND permission_id = ?", role.ID, perm.ID).
		Delete(&models.RolePermission{}).Error
	if err != nil {
		return fmt.Errorf("failed to revoke %s from %s: %w", permission, roleName, err)
	}

	return nil
}

// AssignRole sets the direct role of a user.
func (s *Service) AssignRole(userID uint64, roleName string) error {
	role, err := s.RoleByName(roleName)
	if err != nil {
		return err
	}

	result := s.db.Model(&models.User{}).Where("id = ?", userID).Update("role_id", role.ID)
	if result.Error != nil {
		return fmt.Errorf("failed to assign role: %w", result.Error)
	}

	if result.RowsAffected == 0 {
		return ErrUserNotFound
	}

	return nil
}
