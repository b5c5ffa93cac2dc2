package audit

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tripdeskhq/tripdesk-backend/pkg/db/models"
	"github.com/tripdeskhq/tripdesk-backend/pkg/pagination"
)

// Repository defines persistence operations for audit logs. The table is
// append-only; there are no update or delete operations.
type Repository interface {
	Create(ctx context.Context, entry *models.AuditLog) error
	ListByExpense(ctx context.Context, expenseID uuid.UUID, params pagination.Params) ([]models.AuditLog, error)
	ListByUser(ctx context.Context, userID uuid.UUID, params pagination.Params) ([]models.AuditLog, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds an audit repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, entry *models.AuditLog) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *repository) ListByExpense(ctx context.Context, expenseID uuid.UUID, params pagination.Params) ([]models.AuditLog, error) {
	query := r.db.WithContext(ctx).
		Where("expense_id = ?", expenseID)
	return r.list(query, params)
}

func (r *repository) ListByUser(ctx context.Context, userID uuid.UUID, params pagination.Params) ([]models.AuditLog, error) {
	query := r.db.WithContext(ctx).
		Where("user_id = ?", userID)
	return r.list(query, params)
}

func (r *repository) list(query *gorm.DB, params pagination.Params) ([]models.AuditLog, error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, err
	}
	if cursor != nil {
		query = query.Where(
			"(created_at < ?) OR (created_at = ? AND id < ?)",
			cursor.CreatedAt, cursor.CreatedAt, cursor.ID,
		)
	}

	var rows []models.AuditLog
	err = query.
		Order("created_at DESC, id DESC").
		Limit(pagination.LimitWithBuffer(params.Limit)).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}
