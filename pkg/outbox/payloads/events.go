package payloads

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tripdeskhq/tripdesk-backend/pkg/enums"
)

// ExpenseEventPayload carries the expense fields the notification worker
// needs to address and render a message without reloading the row.
type ExpenseEventPayload struct {
	ExpenseID          uuid.UUID           `json:"expenseId"`
	OwnerID            uuid.UUID           `json:"ownerId"`
	AssignedEngineerID *uuid.UUID          `json:"assignedEngineerId,omitempty"`
	Title              string              `json:"title"`
	Status             enums.ExpenseStatus `json:"status"`
	Amount             decimal.Decimal     `json:"amount"`
	Comment            string              `json:"comment,omitempty"`
}

// MoneyMovedPayload describes a balance mutation between two users.
type MoneyMovedPayload struct {
	FromUserID *uuid.UUID      `json:"fromUserId,omitempty"`
	ToUserID   uuid.UUID       `json:"toUserId"`
	Amount     decimal.Decimal `json:"amount"`
	ActorID    uuid.UUID       `json:"actorId"`
}
