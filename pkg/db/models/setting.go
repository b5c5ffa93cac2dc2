package models

import "time"

// Setting is a key/value configuration row, e.g. engineer_approval_limit.
type Setting struct {
	Key         string    `gorm:"column:key;type:text;primaryKey"`
	Value       string    `gorm:"column:value;type:text;not null"`
	Description *string   `gorm:"column:description;type:text"`
	UpdatedAt   time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
