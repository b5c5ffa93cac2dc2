package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tripdeskhq/tripdesk-backend/pkg/enums"
)

// Expense is a single trip-reimbursement claim owned by one employee.
type Expense struct {
	ID                 uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID             uuid.UUID           `gorm:"column:user_id;type:uuid;not null;index"`
	Title              string              `gorm:"column:title;type:text;not null"`
	Destination        string              `gorm:"column:destination;type:text;not null"`
	TripStart          time.Time           `gorm:"column:trip_start;type:date;not null"`
	TripEnd            time.Time           `gorm:"column:trip_end;type:date;not null"`
	Purpose            *string             `gorm:"column:purpose;type:text"`
	Category           string              `gorm:"column:category;type:text;not null"`
	TotalAmount        decimal.Decimal     `gorm:"column:total_amount;type:numeric(12,2);not null"`
	Status             enums.ExpenseStatus `gorm:"column:status;type:expense_status;not null;default:'submitted'"`
	AdminComment       *string             `gorm:"column:admin_comment;type:text"`
	AssignedEngineerID *uuid.UUID          `gorm:"column:assigned_engineer_id;type:uuid;index"`
	CreatedAt          time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt          time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}
