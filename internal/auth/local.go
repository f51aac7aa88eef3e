package auth

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/ExtMailer/ExtMailer/internal/db/models"
)

const whereIDAndAuthSource = "id = ? AND auth_source = ?"

// LocalProvider authenticates against password hashes in the users table.
type LocalProvider struct {
	db *gorm.DB
}

// NewLocalUser describes an account created by CreateUser.
type NewLocalUser struct {
	Username  string
	Email     string
	Password  string
	FirstName string
	LastName  string
	Role      string
}

// NewLocalProvider creates a new local authentication provider.
func NewLocalProvider(db *gorm.DB) *LocalProvider {
	return &LocalProvider{db: db}
}

// Authenticate returns the active local user matching username and password.
func (p *LocalProvider) Authenticate(username, password string) (*models.User, error) {
	var user models.User

	err := p.db.Where("username = ? AND auth_source = ?", username, models.AuthSourceLocal).
		Take(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("failed to query user: %w", err)
	}

	if !user.Active {
		return nil, ErrUserAccountDisabled
	}

	if !user.VerifyPassword(password) {
		return nil, ErrInvalidPassword
	}

	return &user, nil
}

// CreateUser creates an active local account holding the named role.
func (p *LocalProvider) CreateUser(nu NewLocalUser) (*models.User, error) {
	var existing int64

	err := p.db.Model(&models.User{}).
		Where("username = ? OR email = ?", nu.Username, nu.Email).
		Count(&existing).Error
	if err != nil {
		return nil, fmt.Errorf("failed to check existing user: %w", err)
	}

	if existing > 0 {
		return nil, ErrUserNameOrEmailExists
	}

	role, err := roleByName(p.db, nu.Role)
	if err != nil {
		return nil, err
	}

	hash, err := models.HashPassword(nu.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := models.User{
		Active:     true,
		Username:   nu.Username,
		Email:      nu.Email,
		Password:   hash,
		FirstName:  nu.FirstName,
		LastName:   nu.LastName,
		RoleID:     role.ID,
		AuthSource: models.AuthSourceLocal,
	}

	if err = p.db.Create(&user).Error; err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return &user, nil
}

// ChangePassword replaces the password after checking the current one.
func (p *LocalProvider) ChangePassword(userID uint64, oldPassword, newPassword string) error {
	var user models.User

	err := p.db.Where(whereIDAndAuthSource, userID, models.AuthSourceLocal).Take(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrUserNotFound
	}

	if err != nil {
		return fmt.Errorf("failed to query user: %w", err)
	}

	if !user.VerifyPassword(oldPassword) {
		return ErrInvalidOldPassword
	}

	return p.ResetPassword(userID, newPassword)
}

// ResetPassword sets a new password without checking the old one.
func (p *LocalProvider) ResetPassword(userID uint64, newPassword string) error {
	hash, err := models.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	result := p.db.Model(&models.User{}).
		Where(whereIDAndAuthSource, userID, models.AuthSourceLocal).
		Update("password", hash)
	if result.Error != nil {
		return fmt.Errorf("failed to update password: %w", result.Error)
	}

	if result.RowsAffected == 0 {
		return ErrUserNotFound
	}

	return nil
}

// SetActive enables or disables an account of any source.
func (p *LocalProvider) SetActive(userID uint64, active bool) error {
	return p.db.Model(&models.User{}).Where("id = ?", userID).Update("active", active).Error
}

// UserByID returns a user with its role preloaded.
func (p *LocalProvider) UserByID(userID uint64) (*models.User, error) {
	var user models.User

	err := p.db.Preload("Role").Take(&user, userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("failed to query user: %w", err)
	}

	return &user, nil
}
