package controllers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/tripdeskhq/tripdesk-backend/api/responses"
	"github.com/tripdeskhq/tripdesk-backend/internal/audit"
	"github.com/tripdeskhq/tripdesk-backend/pkg/db/models"
	"github.com/tripdeskhq/tripdesk-backend/pkg/enums"
	pkgerrors "github.com/tripdeskhq/tripdesk-backend/pkg/errors"
	"github.com/tripdeskhq/tripdesk-backend/pkg/logger"
	"github.com/tripdeskhq/tripdesk-backend/pkg/pagination"
)

type auditEntryResponse struct {
	ID        uuid.UUID         `json:"id"`
	ExpenseID *uuid.UUID        `json:"expense_id,omitempty"`
	UserID    uuid.UUID         `json:"user_id"`
	Action    enums.AuditAction `json:"action"`
	Comment   *string           `json:"comment,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
}

type auditListResponse struct {
	Entries    []auditEntryResponse `json:"entries"`
	NextCursor string               `json:"next_cursor,omitempty"`
}

// ExpenseAuditLog returns the audit trail for one expense, newest first.
func ExpenseAuditLog(svc audit.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "audit service unavailable"))
			return
		}

		expenseID, err := expenseIDFromPath(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		params, err := auditParamsFromQuery(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		page, err := svc.ListByExpense(r.Context(), expenseID, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, auditListFromPage(page))
	}
}

// UserAuditLog returns every audited action taken by one user, newest first.
func UserAuditLog(svc audit.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "audit service unavailable"))
			return
		}

		userID, err := uuid.Parse(strings.TrimSpace(chi.URLParam(r, "userId")))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid user id"))
			return
		}

		params, err := auditParamsFromQuery(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		page, err := svc.ListByUser(r.Context(), userID, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, auditListFromPage(page))
	}
}

func auditParamsFromQuery(r *http.Request) (pagination.Params, error) {
	params := pagination.Params{}

	if limitStr := strings.TrimSpace(r.URL.Query().Get("limit")); limitStr != "" {
		value, err := strconv.Atoi(limitStr)
		if err != nil || value <= 0 {
			return params, pkgerrors.New(pkgerrors.CodeValidation, "limit must be a positive integer")
		}
		params.Limit = value
	}

	if cursor := strings.TrimSpace(r.URL.Query().Get("cursor")); cursor != "" {
		params.Cursor = cursor
	}

	return params, nil
}

func auditListFromPage(page *audit.Page) auditListResponse {
	resp := auditListResponse{
		Entries:    make([]auditEntryResponse, 0, len(page.Entries)),
		NextCursor: page.NextCursor,
	}
	for i := range page.Entries {
		resp.Entries = append(resp.Entries, auditEntryFromModel(&page.Entries[i]))
	}
	return resp
}

func auditEntryFromModel(m *models.AuditLog) auditEntryResponse {
	return auditEntryResponse{
		ID:        m.ID,
		ExpenseID: m.ExpenseID,
		UserID:    m.UserID,
		Action:    m.Action,
		Comment:   m.Comment,
		CreatedAt: m.CreatedAt,
	}
}
