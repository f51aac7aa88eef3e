package models

import "time"

// Setting is one named JSON document, e.g. the ext_mailer global configuration.
type Setting struct {
	ID    uint64 `gorm:"primaryKey"`
	Name  string `gorm:"unique;size:100"`
	Value []byte
}

// SettingRevision records the value a setting had after a submission and who made it.
// Seq orders revisions written within the same clock tick.
type SettingRevision struct {
	Seq         uint64 `gorm:"primaryKey;autoIncrement" json:"-"`
	ID          string `gorm:"uniqueIndex;size:36;not null"`
	SettingName string `gorm:"index;size:100;not null"`
	UserID      uint64
	Value       []byte
	CreatedAt   time.Time `gorm:"index"`
}
