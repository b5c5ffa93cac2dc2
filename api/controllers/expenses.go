package controllers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tripdeskhq/tripdesk-backend/api/middleware"
	"github.com/tripdeskhq/tripdesk-backend/api/responses"
	"github.com/tripdeskhq/tripdesk-backend/api/validators"
	"github.com/tripdeskhq/tripdesk-backend/internal/expenses"
	"github.com/tripdeskhq/tripdesk-backend/pkg/db/models"
	"github.com/tripdeskhq/tripdesk-backend/pkg/enums"
	pkgerrors "github.com/tripdeskhq/tripdesk-backend/pkg/errors"
	"github.com/tripdeskhq/tripdesk-backend/pkg/logger"
)

type createExpenseRequest struct {
	Title       string    `json:"title" validate:"required"`
	Destination string    `json:"destination" validate:"required"`
	TripStart   time.Time `json:"trip_start" validate:"required"`
	TripEnd     time.Time `json:"trip_end" validate:"required"`
	Purpose     string    `json:"purpose"`
	Category    string    `json:"category" validate:"required"`
	Amount      string    `json:"amount" validate:"required"`
}

func (req createExpenseRequest) toInput(ownerID uuid.UUID) (expenses.CreateExpenseInput, error) {
	amount, err := decimal.NewFromString(strings.TrimSpace(req.Amount))
	if err != nil {
		return expenses.CreateExpenseInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid amount")
	}
	return expenses.CreateExpenseInput{
		OwnerID:     ownerID,
		Title:       strings.TrimSpace(req.Title),
		Destination: strings.TrimSpace(req.Destination),
		TripStart:   req.TripStart,
		TripEnd:     req.TripEnd,
		Purpose:     strings.TrimSpace(req.Purpose),
		Category:    strings.TrimSpace(req.Category),
		Amount:      amount,
	}, nil
}

// CreateExpense handles submitting a new trip claim owned by the caller.
func CreateExpense(svc expenses.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "expense service unavailable"))
			return
		}

		callerID, err := callerFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload createExpenseRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input, err := payload.toInput(callerID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		created, err := svc.Create(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, expenseResponseFromModel(created))
	}
}

type updateExpenseRequest struct {
	Title       *string    `json:"title"`
	Destination *string    `json:"destination"`
	TripStart   *time.Time `json:"trip_start"`
	TripEnd     *time.Time `json:"trip_end"`
	Purpose     *string    `json:"purpose"`
	Category    *string    `json:"category"`
	Amount      *string    `json:"amount"`
	Status      *string    `json:"status"`
}

func (req updateExpenseRequest) toPatch() (expenses.UpdateExpensePatch, error) {
	patch := expenses.UpdateExpensePatch{
		Title:       req.Title,
		Destination: req.Destination,
		TripStart:   req.TripStart,
		TripEnd:     req.TripEnd,
		Purpose:     req.Purpose,
		Category:    req.Category,
	}
	if req.Amount != nil {
		amount, err := decimal.NewFromString(strings.TrimSpace(*req.Amount))
		if err != nil {
			return expenses.UpdateExpensePatch{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid amount")
		}
		patch.Amount = &amount
	}
	if req.Status != nil {
		status, err := enums.ParseExpenseStatus(strings.TrimSpace(*req.Status))
		if err != nil {
			return expenses.UpdateExpensePatch{}, pkgerrors.New(pkgerrors.CodeValidation, "invalid expense status")
		}
		patch.Status = &status
	}
	return patch, nil
}

// UpdateExpense handles partial edits to an expense the caller may modify.
func UpdateExpense(svc expenses.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "expense service unavailable"))
			return
		}

		callerID, err := callerFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		expenseID, err := expenseIDFromPath(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload updateExpenseRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		patch, err := payload.toPatch()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		updated, err := svc.Update(r.Context(), expenseID, callerID, patch)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, expenseResponseFromModel(updated))
	}
}

// SubmitExpense routes the expense to the owner's reporting engineer.
func SubmitExpense(svc expenses.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "expense service unavailable"))
			return
		}

		callerID, err := callerFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		expenseID, err := expenseIDFromPath(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		submitted, err := svc.Submit(r.Context(), expenseID, callerID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, expenseResponseFromModel(submitted))
	}
}

type assignExpenseRequest struct {
	EngineerID string `json:"engineer_id" validate:"required"`
}

// AssignExpense handles an admin rerouting an expense to a specific engineer.
func AssignExpense(svc expenses.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "expense service unavailable"))
			return
		}

		callerID, err := callerFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		expenseID, err := expenseIDFromPath(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload assignExpenseRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		engineerID, err := uuid.Parse(strings.TrimSpace(payload.EngineerID))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid engineer id"))
			return
		}

		assigned, err := svc.AssignToEngineer(r.Context(), expenseID, engineerID, callerID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, expenseResponseFromModel(assigned))
	}
}

type reviewExpenseRequest struct {
	Comment string `json:"comment"`
}

// VerifyExpense handles the assigned engineer marking an expense verified.
func VerifyExpense(svc expenses.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "expense service unavailable"))
			return
		}

		callerID, err := callerFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		expenseID, err := expenseIDFromPath(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload reviewExpenseRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		verified, err := svc.Verify(r.Context(), expenseID, callerID, strings.TrimSpace(payload.Comment))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, expenseResponseFromModel(verified))
	}
}

type approveExpenseResponse struct {
	Expense      expenseResponse `json:"expense"`
	OwnerBalance string          `json:"owner_balance"`
}

// ApproveExpense handles an admin approving a verified expense. The owner's
// balance is deducted in the same transaction as the status change.
func ApproveExpense(svc expenses.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "expense service unavailable"))
			return
		}

		callerID, err := callerFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		expenseID, err := expenseIDFromPath(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload reviewExpenseRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Approve(r.Context(), expenseID, callerID, strings.TrimSpace(payload.Comment))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, approveExpenseResponse{
			Expense:      expenseResponseFromModel(result.Expense),
			OwnerBalance: result.OwnerBalance.String(),
		})
	}
}

// RejectExpense handles an admin rejecting an expense with a comment.
func RejectExpense(svc expenses.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "expense service unavailable"))
			return
		}

		callerID, err := callerFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		expenseID, err := expenseIDFromPath(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload reviewExpenseRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		rejected, err := svc.Reject(r.Context(), expenseID, callerID, strings.TrimSpace(payload.Comment))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, expenseResponseFromModel(rejected))
	}
}

// GetExpense returns one expense visible to the caller.
func GetExpense(svc expenses.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "expense service unavailable"))
			return
		}

		callerID, err := callerFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		expenseID, err := expenseIDFromPath(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		expense, err := svc.Get(r.Context(), expenseID, callerID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, expenseResponseFromModel(expense))
	}
}

type expenseListResponse struct {
	Expenses   []expenseResponse `json:"expenses"`
	NextCursor string            `json:"next_cursor,omitempty"`
}

// ListExpenses returns the caller's visible expenses with cursor pagination.
// Admins see everything, engineers their review queue, everyone else their own.
func ListExpenses(svc expenses.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "expense service unavailable"))
			return
		}

		callerID, err := callerFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		query := expenses.ListQuery{}

		if status := strings.TrimSpace(r.URL.Query().Get("status")); status != "" {
			parsed, err := enums.ParseExpenseStatus(status)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid expense status"))
				return
			}
			query.Status = &parsed
		}

		if limitStr := strings.TrimSpace(r.URL.Query().Get("limit")); limitStr != "" {
			value, err := strconv.Atoi(limitStr)
			if err != nil || value <= 0 {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "limit must be a positive integer"))
				return
			}
			query.Limit = value
		}

		if cursor := strings.TrimSpace(r.URL.Query().Get("cursor")); cursor != "" {
			query.Cursor = cursor
		}

		page, err := svc.List(r.Context(), callerID, query)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		resp := expenseListResponse{
			Expenses:   make([]expenseResponse, 0, len(page.Expenses)),
			NextCursor: page.NextCursor,
		}
		for i := range page.Expenses {
			resp.Expenses = append(resp.Expenses, expenseResponseFromModel(&page.Expenses[i]))
		}

		responses.WriteSuccess(w, resp)
	}
}

type expenseResponse struct {
	ID                 uuid.UUID           `json:"id"`
	UserID             uuid.UUID           `json:"user_id"`
	Title              string              `json:"title"`
	Destination        string              `json:"destination"`
	TripStart          time.Time           `json:"trip_start"`
	TripEnd            time.Time           `json:"trip_end"`
	Purpose            *string             `json:"purpose,omitempty"`
	Category           string              `json:"category"`
	TotalAmount        string              `json:"total_amount"`
	Status             enums.ExpenseStatus `json:"status"`
	AdminComment       *string             `json:"admin_comment,omitempty"`
	AssignedEngineerID *uuid.UUID          `json:"assigned_engineer_id,omitempty"`
	CreatedAt          time.Time           `json:"created_at"`
	UpdatedAt          time.Time           `json:"updated_at"`
}

func expenseResponseFromModel(m *models.Expense) expenseResponse {
	return expenseResponse{
		ID:                 m.ID,
		UserID:             m.UserID,
		Title:              m.Title,
		Destination:        m.Destination,
		TripStart:          m.TripStart,
		TripEnd:            m.TripEnd,
		Purpose:            m.Purpose,
		Category:           m.Category,
		TotalAmount:        m.TotalAmount.String(),
		Status:             m.Status,
		AdminComment:       m.AdminComment,
		AssignedEngineerID: m.AssignedEngineerID,
		CreatedAt:          m.CreatedAt,
		UpdatedAt:          m.UpdatedAt,
	}
}

func callerFromContext(r *http.Request) (uuid.UUID, error) {
	userID := middleware.UserIDFromContext(r.Context())
	if userID == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing")
	}
	uid, err := uuid.Parse(userID)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid user id")
	}
	return uid, nil
}

func expenseIDFromPath(r *http.Request) (uuid.UUID, error) {
	raw := strings.TrimSpace(chi.URLParam(r, "expenseId"))
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid expense id")
	}
	return id, nil
}
