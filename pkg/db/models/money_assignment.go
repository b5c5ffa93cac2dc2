package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MoneyAssignment records a cashier funding a recipient. Return-money
// operations consume unreturned rows oldest first to route funds back to the
// original funder.
type MoneyAssignment struct {
	ID          uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	CashierID   uuid.UUID       `gorm:"column:cashier_id;type:uuid;not null;index"`
	RecipientID uuid.UUID       `gorm:"column:recipient_id;type:uuid;not null;index"`
	Amount      decimal.Decimal `gorm:"column:amount;type:numeric(12,2);not null"`
	AssignedAt  time.Time       `gorm:"column:assigned_at;autoCreateTime"`
	IsReturned  bool            `gorm:"column:is_returned;not null;default:false"`
	ReturnedAt  *time.Time      `gorm:"column:returned_at"`
}
