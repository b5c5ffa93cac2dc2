package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/tripdeskhq/tripdesk-backend/pkg/enums"
)

// AuditLog records a state-changing action. Rows are append-only and never
// mutated or deleted. ExpenseID is nil for balance-only actions.
type AuditLog struct {
	ID        uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ExpenseID *uuid.UUID        `gorm:"column:expense_id;type:uuid;index"`
	UserID    uuid.UUID         `gorm:"column:user_id;type:uuid;not null"`
	Action    enums.AuditAction `gorm:"column:action;type:text;not null"`
	Comment   *string           `gorm:"column:comment;type:text"`
	CreatedAt time.Time         `gorm:"column:created_at;autoCreateTime"`
}
