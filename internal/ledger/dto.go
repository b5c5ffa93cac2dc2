package ledger

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tripdeskhq/tripdesk-backend/pkg/enums"
)

// ReturnMoneyInput captures a caller handing funds back up the chain:
// employees and engineers return to a cashier, cashiers return to an admin.
type ReturnMoneyInput struct {
	CallerID uuid.UUID
	Amount   decimal.Decimal
}

// ReturnMoneyResult reports where the funds went and the caller's balance
// after the transfer committed.
type ReturnMoneyResult struct {
	TargetID   uuid.UUID
	TargetRole enums.Role
	Amount     decimal.Decimal
	NewBalance decimal.Decimal
}

// AllocateInput captures a cashier or admin crediting one recipient.
type AllocateInput struct {
	ActorID     uuid.UUID
	RecipientID uuid.UUID
	Amount      decimal.Decimal
}

// AllocateResult reports balances after a single allocation.
type AllocateResult struct {
	RecipientID      uuid.UUID
	RecipientBalance decimal.Decimal
	ActorBalance     *decimal.Decimal
}

// AllocateBulkInput captures an admin crediting the same amount to a set of
// recipients.
type AllocateBulkInput struct {
	ActorID      uuid.UUID
	RecipientIDs []uuid.UUID
	Amount       decimal.Decimal
}

// BulkFailure records one recipient that could not be credited.
type BulkFailure struct {
	RecipientID uuid.UUID
	Reason      string
}

// AllocateBulkResult reports per-recipient outcomes of a bulk allocation.
type AllocateBulkResult struct {
	Succeeded []uuid.UUID
	Failed    []BulkFailure
}
