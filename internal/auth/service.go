package auth

import (
	"errors"
	"fmt"
	"sort"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/ExtMailer/ExtMailer/internal/db/models"
)

// Service answers authorization questions from the RBAC tables.
type Service struct {
	db *gorm.DB
}

// NewService creates a new auth service.
func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// Lookup returns the stored permission or ErrPermissionUndefined.
func (s *Service) Lookup(permission string) (*models.Permission, error) {
	var p models.Permission

	err := s.db.Where("name = ?", permission).Take(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrPermissionUndefined, permission)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to look up permission %s: %w", permission, err)
	}

	return &p, nil
}

// Defined reports whether this installation knows the permission.
func (s *Service) Defined(permission string) (bool, error) {
	_, err := s.Lookup(permission)
	if errors.Is(err, ErrPermissionUndefined) {
		return false, nil
	}

	return err == nil, err
}

// Permissions lists the catalog of this installation.
func (s *Service) Permissions() ([]models.Permission, error) {
	var perms []models.Permission
	if err := s.db.Order("name").Find(&perms).Error; err != nil {
		return nil, fmt.Errorf("failed to list permissions: %w", err)
	}

	return perms, nil
}

// implying returns permission followed by every permission that implies it.
func (s *Service) implying(permission string) ([]string, error) {
	names := []string{permission}
	seen := map[string]bool{permission: true}

	for current := permission; ; {
		var p models.Permission

		err := s.db.Select("name", "implied_by").Where("name = ?", current).Take(&p).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return names, nil
		}

		if err != nil {
			return nil, fmt.Errorf("failed to resolve implied permissions: %w", err)
		}

		if p.ImpliedBy == "" || seen[p.ImpliedBy] {
			return names, nil
		}

		seen[p.ImpliedBy] = true
		names = append(names, p.ImpliedBy)
		current = p.ImpliedBy
	}
}

// HasPermission checks the user's direct role and the roles mapped from
// the user's groups for the permission or any permission implying it.
// Inactive users hold no permissions.
func (s *Service) HasPermission(userID uint64, permission string) (bool, error) {
	names, err := s.implying(permission)
	if err != nil {
		return false, err
	}

	var count int64

	err = s.db.Table("permissions").
		Joins("JOIN role_permissions ON role_permissions.permission_id = permissions.id").
		Joins("JOIN users ON users.role_id = role_permissions.role_id").
		Where("users.id = ? AND users.active = ? AND permissions.name IN ?", userID, true, names).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check direct role permission: %w", err)
	}

	if count > 0 {
		return true, nil
	}

	err = s.db.Table("permissions").
		Joins("JOIN role_permissions ON role_permissions.permission_id = permissions.id").
		Joins("JOIN group_mappings ON group_mappings.role_id = role_permissions.role_id").
		Joins("JOIN user_groups ON user_groups.group_id = group_mappings.group_id").
		Joins("JOIN users ON users.id = user_groups.user_id").
		Where("users.id = ? AND users.active = ? AND permissions.name IN ?", userID, true, names).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check group permission: %w", err)
	}

	return count > 0, nil
}

// HasAnyPermission checks if a user has at least one of the given permissions.
func (s *Service) HasAnyPermission(userID uint64, permissions []string) (bool, error) {
	for _, perm := range permissions {
		has, err := s.HasPermission(userID, perm)
		if err != nil || has {
			return has, err
		}
	}

	return false, nil
}

// HasAllPermissions checks if a user has all of the given permissions.
func (s *Service) HasAllPermissions(userID uint64, permissions []string) (bool, error) {
	for _, perm := range permissions {
		has, err := s.HasPermission(userID, perm)
		if err != nil || !has {
			return false, err
		}
	}

	return true, nil
}

// GetUserPermissions returns the sorted effective permissions of a user,
// implied ones included.
func (s *Service) GetUserPermissions(userID uint64) ([]string, error) {
	var direct, grouped []string

	err := s.db.Table("permissions").
		Joins("JOIN role_permissions ON role_permissions.permission_id = permissions.id").
		Joins("JOIN users ON users.role_id = role_permissions.role_id").
		Where("users.id = ? AND users.active = ?", userID, true).
		Distinct().
		Pluck("permissions.name", &direct).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get user permissions: %w", err)
	}

	err = s.db.Table("permissions").
		Joins("JOIN role_permissions ON role_permissions.permission_id = permissions.id").
		Joins("JOIN group_mappings ON group_mappings.role_id = role_permissions.role_id").
		Joins("JOIN user_groups ON user_groups.group_id = group_mappings.group_id").
		Joins("JOIN users ON users.id = user_groups.user_id").
		Where("users.id = ? AND users.active = ?", userID, true).
		Distinct().
		Pluck("permissions.name", &grouped).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get group permissions: %w", err)
	}

	held := make(map[string]bool, len(direct)+len(grouped))
	for _, p := range append(direct, grouped...) {
		held[p] = true
	}

	catalog, err := s.Permissions()
	if err != nil {
		return nil, err
	}

	// close over implications until nothing changes
	for changed := true; changed; {
		changed = false

		for _, p := range catalog {
			if !held[p.Name] && p.ImpliedBy != "" && held[p.ImpliedBy] {
				held[p.Name] = true
				changed = true
			}
		}
	}

	result := make([]string, 0, len(held))
	for p := range held {
		result = append(result, p)
	}

	sort.Strings(result)

	return result, nil
}

// GetUserGroups retrieves all groups a user belongs to.
func (s *Service) GetUserGroups(userID uint64) ([]models.Group, error) {
	var groups []models.Group

	err := s.db.Model(&models.Group{}).
		Joins("JOIN user_groups ON user_groups.group_id = auth_groups.id").
		Where("user_groups.user_id = ?", userID).
		Order("auth_groups.name").
		Find(&groups).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get user groups: %w", err)
	}

	return groups, nil
}

// SyncUserGroups replaces the user's memberships from one source with externalGroups.
// Memberships from other sources are left alone.
func (s *Service) SyncUserGroups(userID uint64, externalGroups []string, source models.AuthSource) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		groupIDs := make([]uint, 0, len(externalGroups))

		for _, externalGroup := range externalGroups {
			var group models.Group

			err := tx.Where("external_id = ? AND source = ?", externalGroup, source).
				FirstOrCreate(&group, models.Group{
					Name:       externalGroup,
					ExternalID: externalGroup,
					Source:     source,
				}).Error
			if err != nil {
				return fmt.Errorf("failed to create/get group %s: %w", externalGroup, err)
			}

			groupIDs = append(groupIDs, group.ID)
		}

		err := tx.Where("user_id = ?", userID).
			Where("group_id IN (?)", tx.Model(&models.Group{}).Select("id").Where("source = ?", source)).
			Delete(&models.UserGroup{}).Error
		if err != nil {
			return fmt.Errorf("failed to remove old group memberships: %w", err)
		}

		for _, groupID := range groupIDs {
			err = tx.Clauses(clause.OnConflict{DoNothing: true}).
				Create(&models.UserGroup{UserID: userID, GroupID: groupID}).Error
			if err != nil {
				return fmt.Errorf("failed to add group membership: %w", err)
			}
		}

		return nil
	})
}
