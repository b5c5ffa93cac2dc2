package audit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/tripdeskhq/tripdesk-backend/pkg/db/models"
	"github.com/tripdeskhq/tripdesk-backend/pkg/enums"
	"github.com/tripdeskhq/tripdesk-backend/pkg/logger"
	"github.com/tripdeskhq/tripdesk-backend/pkg/pagination"
)

type fakeAuditRepo struct {
	created       []*models.AuditLog
	createErr     error
	byExpenseFn   func(ctx context.Context, expenseID uuid.UUID, params pagination.Params) ([]models.AuditLog, error)
	byUserFn      func(ctx context.Context, userID uuid.UUID, params pagination.Params) ([]models.AuditLog, error)
	lastByExpense uuid.UUID
}

func (f *fakeAuditRepo) Create(_ context.Context, entry *models.AuditLog) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.created = append(f.created, entry)
	return nil
}

func (f *fakeAuditRepo) ListByExpense(ctx context.Context, expenseID uuid.UUID, params pagination.Params) ([]models.AuditLog, error) {
	f.lastByExpense = expenseID
	if f.byExpenseFn != nil {
		return f.byExpenseFn(ctx, expenseID, params)
	}
	return nil, nil
}

func (f *fakeAuditRepo) ListByUser(ctx context.Context, userID uuid.UUID, params pagination.Params) ([]models.AuditLog, error) {
	if f.byUserFn != nil {
		return f.byUserFn(ctx, userID, params)
	}
	return nil, nil
}

func newAuditService(t *testing.T, repo Repository) Service {
	t.Helper()
	svc, err := NewService(repo, logger.New(logger.Options{ServiceName: "test"}))
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc
}

func auditRows(n int) []models.AuditLog {
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	rows := make([]models.AuditLog, n)
	for i := range rows {
		rows[i] = models.AuditLog{
			ID:        uuid.New(),
			UserID:    uuid.New(),
			Action:    enums.AuditActionExpenseCreated,
			CreatedAt: base.Add(-time.Duration(i) * time.Minute),
		}
	}
	return rows
}

func TestRecord_PersistsEntry(t *testing.T) {
	repo := &fakeAuditRepo{}
	svc := newAuditService(t, repo)

	expenseID := uuid.New()
	actorID := uuid.New()
	svc.Record(context.Background(), RecordInput{
		ExpenseID: &expenseID,
		UserID:    actorID,
		Action:    enums.AuditActionExpenseApproved,
		Comment:   "Approved: deducted 1500, remaining balance 3500",
	})

	if len(repo.created) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(repo.created))
	}
	entry := repo.created[0]
	if entry.UserID != actorID {
		t.Fatalf("user id = %s, want %s", entry.UserID, actorID)
	}
	if entry.ExpenseID == nil || *entry.ExpenseID != expenseID {
		t.Fatalf("expense id not carried through")
	}
	if entry.Action != enums.AuditActionExpenseApproved {
		t.Fatalf("action = %s", entry.Action)
	}
	if entry.Comment == nil || *entry.Comment == "" {
		t.Fatalf("comment should be set")
	}
}

func TestRecord_EmptyCommentStaysNull(t *testing.T) {
	repo := &fakeAuditRepo{}
	svc := newAuditService(t, repo)

	svc.Record(context.Background(), RecordInput{
		UserID: uuid.New(),
		Action: enums.AuditActionMoneyAllocated,
	})

	if len(repo.created) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(repo.created))
	}
	if repo.created[0].Comment != nil {
		t.Fatalf("comment should stay nil when empty")
	}
	if repo.created[0].ExpenseID != nil {
		t.Fatalf("expense id should stay nil for balance actions")
	}
}

func TestRecord_SkipsMissingUser(t *testing.T) {
	repo := &fakeAuditRepo{}
	svc := newAuditService(t, repo)

	svc.Record(context.Background(), RecordInput{
		UserID: uuid.Nil,
		Action: enums.AuditActionExpenseCreated,
	})

	if len(repo.created) != 0 {
		t.Fatalf("nil user id must not create an entry")
	}
}

func TestRecord_SwallowsWriteFailure(t *testing.T) {
	repo := &fakeAuditRepo{createErr: errors.New("insert failed")}
	svc := newAuditService(t, repo)

	// Must not panic and has no error channel back to the caller.
	svc.Record(context.Background(), RecordInput{
		UserID: uuid.New(),
		Action: enums.AuditActionExpenseRejected,
	})
}

func TestListByExpense_RequiresID(t *testing.T) {
	svc := newAuditService(t, &fakeAuditRepo{})

	if _, err := svc.ListByExpense(context.Background(), uuid.Nil, pagination.Params{}); err == nil {
		t.Fatalf("expected error for nil expense id")
	}
}

func TestListByExpense_TrimsToLimitAndSetsCursor(t *testing.T) {
	rows := auditRows(4)
	repo := &fakeAuditRepo{
		byExpenseFn: func(_ context.Context, _ uuid.UUID, _ pagination.Params) ([]models.AuditLog, error) {
			return rows, nil
		},
	}
	svc := newAuditService(t, repo)

	page, err := svc.ListByExpense(context.Background(), uuid.New(), pagination.Params{Limit: 3})
	if err != nil {
		t.Fatalf("ListByExpense: %v", err)
	}
	if len(page.Entries) != 3 {
		t.Fatalf("entries = %d, want 3", len(page.Entries))
	}
	if page.NextCursor == "" {
		t.Fatalf("expected continuation cursor")
	}
	cursor, err := pagination.ParseCursor(page.NextCursor)
	if err != nil {
		t.Fatalf("ParseCursor: %v", err)
	}
	if cursor.ID != rows[2].ID {
		t.Fatalf("cursor should point at the last returned row")
	}
}

func TestListByExpense_LastPageHasNoCursor(t *testing.T) {
	rows := auditRows(2)
	repo := &fakeAuditRepo{
		byExpenseFn: func(_ context.Context, _ uuid.UUID, _ pagination.Params) ([]models.AuditLog, error) {
			return rows, nil
		},
	}
	svc := newAuditService(t, repo)

	page, err := svc.ListByExpense(context.Background(), uuid.New(), pagination.Params{Limit: 10})
	if err != nil {
		t.Fatalf("ListByExpense: %v", err)
	}
	if len(page.Entries) != 2 {
		t.Fatalf("entries = %d, want 2", len(page.Entries))
	}
	if page.NextCursor != "" {
		t.Fatalf("last page should have no cursor, got %q", page.NextCursor)
	}
}

func TestListByUser_RequiresID(t *testing.T) {
	svc := newAuditService(t, &fakeAuditRepo{})

	if _, err := svc.ListByUser(context.Background(), uuid.Nil, pagination.Params{}); err == nil {
		t.Fatalf("expected error for nil user id")
	}
}

func TestListByUser_PropagatesRepoError(t *testing.T) {
	repo := &fakeAuditRepo{
		byUserFn: func(_ context.Context, _ uuid.UUID, _ pagination.Params) ([]models.AuditLog, error) {
			return nil, errors.New("query failed")
		},
	}
	svc := newAuditService(t, repo)

	if _, err := svc.ListByUser(context.Background(), uuid.New(), pagination.Params{}); err == nil {
		t.Fatalf("expected repo error to propagate")
	}
}
