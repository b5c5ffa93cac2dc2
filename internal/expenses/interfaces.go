package expenses

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/tripdeskhq/tripdesk-backend/pkg/db/models"
	"github.com/tripdeskhq/tripdesk-backend/pkg/enums"
	"github.com/tripdeskhq/tripdesk-backend/pkg/pagination"
)

// ListFilter scopes a repository listing.
type ListFilter struct {
	OwnerID            *uuid.UUID
	AssignedEngineerID *uuid.UUID
	Status             *enums.ExpenseStatus
}

// Repository defines persistence operations for expenses.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, expense *models.Expense) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Expense, error)
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Expense, error)
	Update(ctx context.Context, id uuid.UUID, updates map[string]interface{}) error
	List(ctx context.Context, filter ListFilter, params pagination.Params) ([]models.Expense, error)
}

// Deductor is the slice of the ledger the lifecycle engine needs: an atomic
// balance deduction inside the engine's own transaction.
type Deductor interface {
	Deduct(ctx context.Context, tx *gorm.DB, userID uuid.UUID, amount decimal.Decimal) (decimal.Decimal, error)
}
