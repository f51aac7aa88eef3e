package auth

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/ExtMailer/ExtMailer/internal/db/models"
)

// provisionUser creates or refreshes the local record of an external account.
// New accounts receive defaultRole, existing ones keep theirs.
func provisionUser(db *gorm.DB, profile models.User, defaultRole string) (*models.User, error) {
	var user models.User

	err := db.Where("external_id = ? AND auth_source = ?", profile.ExternalID, profile.AuthSource).
		Take(&user).Error

	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		if defaultRole == "" {
			defaultRole = RoleReader
		}

		role, errRole := roleByName(db, defaultRole)
		if errRole != nil {
			return nil, errRole
		}

		user = profile
		user.Active = true
		user.RoleID = role.ID

		if err = db.Create(&user).Error; err != nil {
			return nil, fmt.Errorf("failed to create %s user: %w", profile.AuthSource, err)
		}

		return &user, nil
	case err != nil:
		return nil, fmt.Errorf("failed to query user: %w", err)
	}

	user.Email = profile.Email
	user.FirstName = profile.FirstName
	user.LastName = profile.LastName

	if err = db.Save(&user).Error; err != nil {
		return nil, fmt.Errorf("failed to update %s user: %w", profile.AuthSource, err)
	}

	if !user.Active {
		return nil, ErrUserAccountDisabled
	}

	return &user, nil
}
