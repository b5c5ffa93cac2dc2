package expenses

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/tripdeskhq/tripdesk-backend/pkg/db/models"
	"github.com/tripdeskhq/tripdesk-backend/pkg/enums"
	"github.com/tripdeskhq/tripdesk-backend/pkg/pagination"
)

func setupExpensesTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	expensesTable := `
CREATE TABLE IF NOT EXISTS expenses (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL,
  title TEXT NOT NULL,
  destination TEXT NOT NULL,
  trip_start DATETIME NOT NULL,
  trip_end DATETIME NOT NULL,
  purpose TEXT,
  category TEXT NOT NULL,
  total_amount NUMERIC NOT NULL,
  status TEXT NOT NULL DEFAULT 'submitted',
  admin_comment TEXT,
  assigned_engineer_id TEXT,
  created_at DATETIME,
  updated_at DATETIME
);`
	require.NoError(t, db.Exec(expensesTable).Error)
	return db
}

func createExpenseRow(t *testing.T, db *gorm.DB, ownerID uuid.UUID, status enums.ExpenseStatus, created time.Time) *models.Expense {
	t.Helper()

	expense := &models.Expense{
		ID:          uuid.New(),
		UserID:      ownerID,
		Title:       "Client visit",
		Destination: "Rotterdam",
		TripStart:   created.AddDate(0, 0, -3),
		TripEnd:     created.AddDate(0, 0, -1),
		Category:    "travel",
		TotalAmount: decimal.NewFromInt(250),
		Status:      status,
		CreatedAt:   created,
		UpdatedAt:   created,
	}
	require.NoError(t, db.Create(expense).Error)
	return expense
}

func TestExpensesRepo_CreateAndFindByID(t *testing.T) {
	db := setupExpensesTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	ownerID := uuid.New()
	purpose := "quarterly account review"
	expense := &models.Expense{
		ID:          uuid.New(),
		UserID:      ownerID,
		Title:       "Berlin onsite",
		Destination: "Berlin",
		TripStart:   time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC),
		TripEnd:     time.Date(2026, 6, 4, 0, 0, 0, 0, time.UTC),
		Purpose:     &purpose,
		Category:    "travel",
		TotalAmount: decimal.RequireFromString("412.50"),
		Status:      enums.ExpenseStatusSubmitted,
	}
	require.NoError(t, repo.Create(ctx, expense))

	found, err := repo.FindByID(ctx, expense.ID)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, expense.UserID, found.UserID)
	assert.Equal(t, "Berlin onsite", found.Title)
	assert.True(t, found.TotalAmount.Equal(decimal.RequireFromString("412.50")))
	require.NotNil(t, found.Purpose)
	assert.Equal(t, purpose, *found.Purpose)
}

func TestExpensesRepo_FindByIDMissingReturnsNil(t *testing.T) {
	db := setupExpensesTestDB(t)
	repo := NewRepository(db)

	found, err := repo.FindByID(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Nil(t, found)
}

func TestExpensesRepo_UpdateAppliesColumns(t *testing.T) {
	db := setupExpensesTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	expense := createExpenseRow(t, db, uuid.New(), enums.ExpenseStatusSubmitted, time.Now().UTC())
	engineerID := uuid.New()

	err := repo.Update(ctx, expense.ID, map[string]interface{}{
		"status":               enums.ExpenseStatusVerified,
		"assigned_engineer_id": engineerID,
	})
	require.NoError(t, err)

	found, err := repo.FindByID(ctx, expense.ID)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, enums.ExpenseStatusVerified, found.Status)
	require.NotNil(t, found.AssignedEngineerID)
	assert.Equal(t, engineerID, *found.AssignedEngineerID)
}

func TestExpensesRepo_UpdateMissingRowFails(t *testing.T) {
	db := setupExpensesTestDB(t)
	repo := NewRepository(db)

	err := repo.Update(context.Background(), uuid.New(), map[string]interface{}{
		"status": enums.ExpenseStatusVerified,
	})
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestExpensesRepo_UpdateEmptyMapIsNoop(t *testing.T) {
	db := setupExpensesTestDB(t)
	repo := NewRepository(db)

	require.NoError(t, repo.Update(context.Background(), uuid.New(), map[string]interface{}{}))
}

func TestExpensesRepo_ListFiltersByOwnerAndStatus(t *testing.T) {
	db := setupExpensesTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	ownerID := uuid.New()
	otherID := uuid.New()
	base := time.Date(2026, 7, 1, 12, 0, 0, 0, time.UTC)

	submitted := createExpenseRow(t, db, ownerID, enums.ExpenseStatusSubmitted, base)
	createExpenseRow(t, db, ownerID, enums.ExpenseStatusApproved, base.Add(time.Minute))
	createExpenseRow(t, db, otherID, enums.ExpenseStatusSubmitted, base.Add(2*time.Minute))

	status := enums.ExpenseStatusSubmitted
	rows, err := repo.List(ctx, ListFilter{OwnerID: &ownerID, Status: &status}, pagination.Params{})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, submitted.ID, rows[0].ID)
}

func TestExpensesRepo_ListFiltersByAssignedEngineer(t *testing.T) {
	db := setupExpensesTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	engineerID := uuid.New()
	base := time.Now().UTC()
	assigned := createExpenseRow(t, db, uuid.New(), enums.ExpenseStatusSubmitted, base)
	require.NoError(t, repo.Update(ctx, assigned.ID, map[string]interface{}{
		"assigned_engineer_id": engineerID,
	}))
	createExpenseRow(t, db, uuid.New(), enums.ExpenseStatusSubmitted, base.Add(time.Second))

	rows, err := repo.List(ctx, ListFilter{AssignedEngineerID: &engineerID}, pagination.Params{})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, assigned.ID, rows[0].ID)
}

func TestExpensesRepo_ListOrdersNewestFirstAndPaginates(t *testing.T) {
	db := setupExpensesTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	ownerID := uuid.New()
	base := time.Date(2026, 7, 10, 9, 0, 0, 0, time.UTC)
	var created []*models.Expense
	for i := 0; i < 5; i++ {
		created = append(created, createExpenseRow(t, db, ownerID, enums.ExpenseStatusSubmitted, base.Add(time.Duration(i)*time.Minute)))
	}

	rows, err := repo.List(ctx, ListFilter{OwnerID: &ownerID}, pagination.Params{Limit: 2})
	require.NoError(t, err)
	// One extra row beyond the limit signals another page.
	require.Len(t, rows, 3)
	assert.Equal(t, created[4].ID, rows[0].ID)
	assert.Equal(t, created[3].ID, rows[1].ID)

	cursor := pagination.EncodeCursor(pagination.Cursor{CreatedAt: rows[1].CreatedAt, ID: rows[1].ID})
	next, err := repo.List(ctx, ListFilter{OwnerID: &ownerID}, pagination.Params{Limit: 2, Cursor: cursor})
	require.NoError(t, err)
	require.Len(t, next, 3)
	assert.Equal(t, created[2].ID, next[0].ID)
	assert.Equal(t, created[1].ID, next[1].ID)
}

func TestExpensesRepo_ListRejectsBadCursor(t *testing.T) {
	db := setupExpensesTestDB(t)
	repo := NewRepository(db)

	_, err := repo.List(context.Background(), ListFilter{}, pagination.Params{Cursor: "%%%bad"})
	assert.Error(t, err)
}
