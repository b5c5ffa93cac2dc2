package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tripdeskhq/tripdesk-backend/api/responses"
	"github.com/tripdeskhq/tripdesk-backend/api/validators"
	"github.com/tripdeskhq/tripdesk-backend/internal/ledger"
	"github.com/tripdeskhq/tripdesk-backend/pkg/db/models"
	pkgerrors "github.com/tripdeskhq/tripdesk-backend/pkg/errors"
	"github.com/tripdeskhq/tripdesk-backend/pkg/logger"
)

type allocateRequest struct {
	RecipientID string `json:"recipient_id" validate:"required"`
	Amount      string `json:"amount" validate:"required"`
}

type allocateResponse struct {
	RecipientID      uuid.UUID `json:"recipient_id"`
	RecipientBalance string    `json:"recipient_balance"`
	ActorBalance     *string   `json:"actor_balance,omitempty"`
}

// Allocate credits one recipient. Cashiers fund from their own balance and
// the transfer is recorded as an assignment; admins mint without deduction.
func Allocate(svc ledger.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "ledger service unavailable"))
			return
		}

		callerID, err := callerFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload allocateRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		recipientID, err := uuid.Parse(strings.TrimSpace(payload.RecipientID))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid recipient id"))
			return
		}

		amount, err := decimal.NewFromString(strings.TrimSpace(payload.Amount))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid amount"))
			return
		}

		result, err := svc.Allocate(r.Context(), ledger.AllocateInput{
			ActorID:     callerID,
			RecipientID: recipientID,
			Amount:      amount,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		resp := allocateResponse{
			RecipientID:      result.RecipientID,
			RecipientBalance: result.RecipientBalance.String(),
		}
		if result.ActorBalance != nil {
			value := result.ActorBalance.String()
			resp.ActorBalance = &value
		}

		responses.WriteSuccess(w, resp)
	}
}

type allocateBulkRequest struct {
	RecipientIDs []string `json:"recipient_ids" validate:"required,min=1"`
	Amount       string   `json:"amount" validate:"required"`
}

type bulkFailureResponse struct {
	RecipientID uuid.UUID `json:"recipient_id"`
	Reason      string    `json:"reason"`
}

type allocateBulkResponse struct {
	Succeeded []uuid.UUID           `json:"succeeded"`
	Failed    []bulkFailureResponse `json:"failed"`
}

// AllocateBulk credits the same amount to a set of recipients. Failures are
// isolated per recipient and reported alongside the successes.
func AllocateBulk(svc ledger.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "ledger service unavailable"))
			return
		}

		callerID, err := callerFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload allocateBulkRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		recipientIDs := make([]uuid.UUID, 0, len(payload.RecipientIDs))
		for _, raw := range payload.RecipientIDs {
			id, err := uuid.Parse(strings.TrimSpace(raw))
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid recipient id"))
				return
			}
			recipientIDs = append(recipientIDs, id)
		}

		amount, err := decimal.NewFromString(strings.TrimSpace(payload.Amount))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid amount"))
			return
		}

		result, err := svc.AllocateBulk(r.Context(), ledger.AllocateBulkInput{
			ActorID:      callerID,
			RecipientIDs: recipientIDs,
			Amount:       amount,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		resp := allocateBulkResponse{
			Succeeded: result.Succeeded,
			Failed:    make([]bulkFailureResponse, 0, len(result.Failed)),
		}
		for _, failure := range result.Failed {
			resp.Failed = append(resp.Failed, bulkFailureResponse{
				RecipientID: failure.RecipientID,
				Reason:      failure.Reason,
			})
		}

		responses.WriteSuccess(w, resp)
	}
}

type assignmentResponse struct {
	ID          uuid.UUID  `json:"id"`
	CashierID   uuid.UUID  `json:"cashier_id"`
	RecipientID uuid.UUID  `json:"recipient_id"`
	Amount      string     `json:"amount"`
	AssignedAt  time.Time  `json:"assigned_at"`
	IsReturned  bool       `json:"is_returned"`
	ReturnedAt  *time.Time `json:"returned_at,omitempty"`
}

// ListAssignments returns the caller's outstanding and returned allocations.
func ListAssignments(svc ledger.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "ledger service unavailable"))
			return
		}

		callerID, err := callerFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		assignments, err := svc.Assignments(r.Context(), callerID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		resp := make([]assignmentResponse, 0, len(assignments))
		for i := range assignments {
			resp = append(resp, assignmentResponseFromModel(&assignments[i]))
		}

		responses.WriteSuccess(w, resp)
	}
}

func assignmentResponseFromModel(m *models.MoneyAssignment) assignmentResponse {
	return assignmentResponse{
		ID:          m.ID,
		CashierID:   m.CashierID,
		RecipientID: m.RecipientID,
		Amount:      m.Amount.String(),
		AssignedAt:  m.AssignedAt,
		IsReturned:  m.IsReturned,
		ReturnedAt:  m.ReturnedAt,
	}
}
