package audit

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/tripdeskhq/tripdesk-backend/pkg/db/models"
	"github.com/tripdeskhq/tripdesk-backend/pkg/enums"
	"github.com/tripdeskhq/tripdesk-backend/pkg/logger"
	"github.com/tripdeskhq/tripdesk-backend/pkg/pagination"
)

// RecordInput captures one audit entry. ExpenseID is nil for balance-only
// actions such as allocations and returns.
type RecordInput struct {
	ExpenseID *uuid.UUID
	UserID    uuid.UUID
	Action    enums.AuditAction
	Comment   string
}

// Service records and lists audit entries. Record never fails the caller:
// a write failure is logged and swallowed so a lost audit row cannot undo a
// committed business operation.
type Service interface {
	Record(ctx context.Context, input RecordInput)
	ListByExpense(ctx context.Context, expenseID uuid.UUID, params pagination.Params) (*Page, error)
	ListByUser(ctx context.Context, userID uuid.UUID, params pagination.Params) (*Page, error)
}

// Page is one page of audit entries with an optional continuation cursor.
type Page struct {
	Entries    []models.AuditLog
	NextCursor string
}

type service struct {
	repo Repository
	logg *logger.Logger
}

// NewService wires an audit service with the provided repository.
func NewService(repo Repository, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("audit repository required")
	}
	if logg == nil {
		return nil, fmt.Errorf("audit logger required")
	}
	return &service{repo: repo, logg: logg}, nil
}

func (s *service) Record(ctx context.Context, input RecordInput) {
	if input.UserID == uuid.Nil {
		s.logg.Warn(s.logg.WithField(ctx, "action", input.Action.String()), "audit entry skipped: missing user id")
		return
	}

	entry := &models.AuditLog{
		ExpenseID: input.ExpenseID,
		UserID:    input.UserID,
		Action:    input.Action,
	}
	if input.Comment != "" {
		comment := input.Comment
		entry.Comment = &comment
	}

	if err := s.repo.Create(ctx, entry); err != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"action":  input.Action.String(),
			"user_id": input.UserID.String(),
		})
		s.logg.Error(logCtx, "audit entry write failed", err)
	}
}

func (s *service) ListByExpense(ctx context.Context, expenseID uuid.UUID, params pagination.Params) (*Page, error) {
	if expenseID == uuid.Nil {
		return nil, fmt.Errorf("expense id is required")
	}
	rows, err := s.repo.ListByExpense(ctx, expenseID, params)
	if err != nil {
		return nil, err
	}
	return buildPage(rows, params), nil
}

func (s *service) ListByUser(ctx context.Context, userID uuid.UUID, params pagination.Params) (*Page, error) {
	if userID == uuid.Nil {
		return nil, fmt.Errorf("user id is required")
	}
	rows, err := s.repo.ListByUser(ctx, userID, params)
	if err != nil {
		return nil, err
	}
	return buildPage(rows, params), nil
}

func buildPage(rows []models.AuditLog, params pagination.Params) *Page {
	limit := pagination.NormalizeLimit(params.Limit)
	page := &Page{Entries: rows}
	if len(rows) > limit {
		page.Entries = rows[:limit]
		last := page.Entries[len(page.Entries)-1]
		page.NextCursor = pagination.EncodeCursor(pagination.Cursor{
			CreatedAt: last.CreatedAt,
			ID:        last.ID,
		})
	}
	return page
}
