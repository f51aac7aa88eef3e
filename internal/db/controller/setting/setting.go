// Package setting stores named JSON documents in the settings table.
package setting

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/ExtMailer/ExtMailer/internal/db/models"
)

const nameQueryPattern = "name = ?"

var (
	// ErrSettingNotFound is returned when a setting is not found.
	ErrSettingNotFound = errors.New("setting not found")
	// ErrSettingNameEmpty is returned when a setting name is empty.
	ErrSettingNameEmpty = errors.New("setting name cannot be empty")
	// ErrDBNil is returned when the database connection is nil.
	ErrDBNil = errors.New("database connection is nil")
)

func check(db *gorm.DB, name string) error {
	if db == nil {
		return ErrDBNil
	}

	if name == "" {
		return ErrSettingNameEmpty
	}

	return nil
}

// Get retrieves a setting by its name.
func Get(db *gorm.DB, name string) (*models.Setting, error) {
	if err := check(db, name); err != nil {
		return nil, err
	}

	var s models.Setting

	err := db.Where(nameQueryPattern, name).First(&s).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrSettingNotFound
	}

	if err != nil {
		return nil, err
	}

	return &s, nil
}

// List returns all settings ordered by name.
func List(db *gorm.DB) ([]models.Setting, error) {
	if db == nil {
		return nil, ErrDBNil
	}

	var settings []models.Setting
	if err := db.Order("name").Find(&settings).Error; err != nil {
		return nil, err
	}

	return settings, nil
}

// Set creates or replaces the value of a setting.
func Set(db *gorm.DB, name string, value []byte) error {
	if err := check(db, name); err != nil {
		return err
	}

	return db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoUpdates: clause.AssignmentColumns([]string{"value"}),
	}).Create(&models.Setting{Name: name, Value: value}).Error
}

// Delete removes a setting by name.
func Delete(db *gorm.DB, name string) error {
	if err := check(db, name); err != nil {
		return err
	}

	result := db.Where(nameQueryPattern, name).Delete(&models.Setting{})
	if result.Error != nil {
		return result.Error
	}

	if result.RowsAffected == 0 {
		return ErrSettingNotFound
	}

	return nil
}

// GetJSON decodes the named setting into v.
// v is left untouched and ErrSettingNotFound returned if nothing was stored yet.
func GetJSON(db *gorm.DB, name string, v any) error {
	s, err := Get(db, name)
	if err != nil {
		return err
	}

	if err = json.Unmarshal(s.Value, v); err != nil {
		return fmt.Errorf("decode setting %s: %w", name, err)
	}

	return nil
}

// SetJSON stores v as the JSON value of the named setting.
func SetJSON(db *gorm.DB, name string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode setting %s: %w", name, err)
	}

	return Set(db, name, b)
}

// AddRevision appends the current value of a setting to its history.
func AddRevision(db *gorm.DB, name string, userID uint64, value []byte) (*models.SettingRevision, error) {
	if err := check(db, name); err != nil {
		return nil, err
	}

	rev := &models.SettingRevision{
		ID:          uuid.NewString(),
		SettingName: name,
		UserID:      userID,
		Value:       value,
	}

	if err := db.Create(rev).Error; err != nil {
		return nil, err
	}

	return rev, nil
}

// Revisions returns up to limit revisions of a setting, newest first.
// limit <= 0 returns all of them.
func Revisions(db *gorm.DB, name string, limit int) ([]models.SettingRevision, error) {
	if err := check(db, name); err != nil {
		return nil, err
	}

	q := db.Where("setting_name = ?", name).Order("created_at DESC").Order("seq DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}

	var revs []models.SettingRevision
	if err := q.Find(&revs).Error; err != nil {
		return nil, err
	}

	return revs, nil
}
