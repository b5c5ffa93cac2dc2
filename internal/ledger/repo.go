package ledger

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tripdeskhq/tripdesk-backend/pkg/db/models"
)

// AssignmentRepository defines persistence operations for money assignments.
type AssignmentRepository interface {
	WithTx(tx *gorm.DB) AssignmentRepository
	Create(ctx context.Context, assignment *models.MoneyAssignment) error
	FindUnreturnedByRecipient(ctx context.Context, recipientID uuid.UUID) ([]models.MoneyAssignment, error)
	MarkReturned(ctx context.Context, ids []uuid.UUID, returnedAt time.Time) error
	ListByCashier(ctx context.Context, cashierID uuid.UUID) ([]models.MoneyAssignment, error)
}

type assignmentRepository struct {
	db *gorm.DB
}

// NewAssignmentRepository builds an assignment repository bound to the provided DB.
func NewAssignmentRepository(db *gorm.DB) AssignmentRepository {
	return &assignmentRepository{db: db}
}

func (r *assignmentRepository) WithTx(tx *gorm.DB) AssignmentRepository {
	if tx == nil {
		return r
	}
	return &assignmentRepository{db: tx}
}

func (r *assignmentRepository) Create(ctx context.Context, assignment *models.MoneyAssignment) error {
	return r.db.WithContext(ctx).Create(assignment).Error
}

// FindUnreturnedByRecipient returns open assignments oldest first, the order
// in which return-money consumes them.
func (r *assignmentRepository) FindUnreturnedByRecipient(ctx context.Context, recipientID uuid.UUID) ([]models.MoneyAssignment, error) {
	var rows []models.MoneyAssignment
	err := r.db.WithContext(ctx).
		Where("recipient_id = ? AND is_returned = ?", recipientID, false).
		Order("assigned_at ASC, id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *assignmentRepository) MarkReturned(ctx context.Context, ids []uuid.UUID, returnedAt time.Time) error {
	if len(ids) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Model(&models.MoneyAssignment{}).
		Where("id IN ?", ids).
		Updates(map[string]interface{}{
			"is_returned": true,
			"returned_at": returnedAt,
		}).Error
}

func (r *assignmentRepository) ListByCashier(ctx context.Context, cashierID uuid.UUID) ([]models.MoneyAssignment, error) {
	var rows []models.MoneyAssignment
	err := r.db.WithContext(ctx).
		Where("cashier_id = ?", cashierID).
		Order("assigned_at DESC, id DESC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}
