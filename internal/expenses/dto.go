package expenses

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tripdeskhq/tripdesk-backend/pkg/db/models"
	"github.com/tripdeskhq/tripdesk-backend/pkg/enums"
)

// CreateExpenseInput captures a new single-amount trip claim.
type CreateExpenseInput struct {
	OwnerID     uuid.UUID
	Title       string
	Destination string
	TripStart   time.Time
	TripEnd     time.Time
	Purpose     string
	Category    string
	Amount      decimal.Decimal
}

// UpdateExpensePatch carries partial updates. Nil fields are left untouched.
// Status may only be set through the admin correction path.
type UpdateExpensePatch struct {
	Title       *string
	Destination *string
	TripStart   *time.Time
	TripEnd     *time.Time
	Purpose     *string
	Category    *string
	Amount      *decimal.Decimal
	Status      *enums.ExpenseStatus
}

// Empty reports whether the patch changes nothing.
func (p UpdateExpensePatch) Empty() bool {
	return p.Title == nil && p.Destination == nil && p.TripStart == nil &&
		p.TripEnd == nil && p.Purpose == nil && p.Category == nil &&
		p.Amount == nil && p.Status == nil
}

// ListQuery filters an expense listing. The visibility scope is derived from
// the caller's role, not from the query.
type ListQuery struct {
	Status *enums.ExpenseStatus
	Limit  int
	Cursor string
}

// Page is one page of expenses with an optional continuation cursor.
type Page struct {
	Expenses   []models.Expense
	NextCursor string
}

// ApproveResult reports the approved expense plus the owner's balance after
// the deduction committed.
type ApproveResult struct {
	Expense      *models.Expense
	OwnerBalance decimal.Decimal
}
