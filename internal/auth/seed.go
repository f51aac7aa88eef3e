package auth

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/ExtMailer/ExtMailer/internal/db/models"
)

// Seed writes the permission catalog and the system roles.
// It is idempotent. In legacy mode overall.manage is removed if present,
// so the installation behaves as if it never knew the permission.
func Seed(db *gorm.DB, legacy bool) error {
	return db.Transaction(func(tx *gorm.DB) error {
		for _, def := range Catalog(legacy) {
			var p models.Permission

			err := tx.Where(models.Permission{Name: def.Name}).
				Assign(map[string]any{
					"resource":    def.Resource,
					"action":      def.Action,
					"implied_by":  def.ImpliedBy,
					"description": def.Description,
				}).
				FirstOrCreate(&p).Error
			if err != nil {
				return fmt.Errorf("failed to seed permission %s: %w", def.Name, err)
			}
		}

		if legacy {
			if err := dropPermission(tx, PermOverallManage); err != nil {
				return err
			}
		}

		for _, def := range DefaultRoles(legacy) {
			var role models.Role

			err := tx.Where(models.Role{Name: def.Name}).
				Assign(models.Role{Description: def.Description, IsSystem: true}).
				FirstOrCreate(&role).Error
			if err != nil {
				return fmt.Errorf("failed to seed role %s: %w", def.Name, err)
			}

			for _, perm := range def.Permissions {
				if err = grant(tx, def.Name, perm); err != nil {
					return err
				}
			}
		}

		return nil
	})
}

func dropPermission(tx *gorm.DB, name string) error {
	var p models.Permission

	err := tx.Where("name = ?", name).Take(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}

	if err != nil {
		return fmt.Errorf("failed to look up permission %s: %w", name, err)
	}

	if err = tx.Where("permission_id = ?", p.ID).Delete(&models.RolePermission{}).Error; err != nil {
		return fmt.Errorf("failed to drop grants of %s: %w", name, err)
	}

	if err = tx.Delete(&p).Error; err != nil {
		return fmt.Errorf("failed to drop permission %s: %w", name, err)
	}

	return nil
}
