package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Profile holds per-user workflow state, including the spendable balance.
// Balance reflects the sum of every ledger operation applied in commit order.
type Profile struct {
	UserID               uuid.UUID       `gorm:"column:user_id;type:uuid;primaryKey"`
	Name                 string          `gorm:"column:name;type:text;not null"`
	Email                string          `gorm:"column:email;type:text;not null;uniqueIndex"`
	Balance              decimal.Decimal `gorm:"column:balance;type:numeric(12,2);not null;default:0"`
	ReportingEngineerID  *uuid.UUID      `gorm:"column:reporting_engineer_id;type:uuid"`
	NotificationSettings json.RawMessage `gorm:"column:notification_settings;type:jsonb"`
	CreatedAt            time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt            time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
