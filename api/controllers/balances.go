package controllers

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tripdeskhq/tripdesk-backend/api/responses"
	"github.com/tripdeskhq/tripdesk-backend/api/validators"
	"github.com/tripdeskhq/tripdesk-backend/internal/ledger"
	"github.com/tripdeskhq/tripdesk-backend/pkg/enums"
	pkgerrors "github.com/tripdeskhq/tripdesk-backend/pkg/errors"
	"github.com/tripdeskhq/tripdesk-backend/pkg/logger"
)

type balanceResponse struct {
	UserID  uuid.UUID `json:"user_id"`
	Balance string    `json:"balance"`
}

// GetBalance returns the caller's current spendable balance.
func GetBalance(svc ledger.Service, logg *logger.Logger) http.HandlerFunc {
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

		balance, err := svc.Balance(r.Context(), callerID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, balanceResponse{UserID: callerID, Balance: balance.String()})
	}
}

type returnMoneyRequest struct {
	Amount string `json:"amount" validate:"required"`
}

type returnMoneyResponse struct {
	TargetID   uuid.UUID  `json:"target_id"`
	TargetRole enums.Role `json:"target_role"`
	Amount     string     `json:"amount"`
	NewBalance string     `json:"new_balance"`
}

// ReturnMoney hands funds back up the chain: employees and engineers return
// to a cashier, cashiers return to an admin.
func ReturnMoney(svc ledger.Service, logg *logger.Logger) http.HandlerFunc {
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

		var payload returnMoneyRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		amount, err := decimal.NewFromString(strings.TrimSpace(payload.Amount))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid amount"))
			return
		}

		result, err := svc.ReturnMoney(r.Context(), ledger.ReturnMoneyInput{
			CallerID: callerID,
			Amount:   amount,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, returnMoneyResponse{
			TargetID:   result.TargetID,
			TargetRole: result.TargetRole,
			Amount:     result.Amount.String(),
			NewBalance: result.NewBalance.String(),
		})
	}
}
