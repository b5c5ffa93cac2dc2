package permissions

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tripdeskhq/tripdesk-backend/pkg/db/models"
	"github.com/tripdeskhq/tripdesk-backend/pkg/enums"
)

// RoleRepository defines persistence operations for the user_roles table.
type RoleRepository interface {
	WithTx(tx *gorm.DB) RoleRepository
	Exists(ctx context.Context, userID uuid.UUID, role enums.Role) (bool, error)
	FindRolesByUser(ctx context.Context, userID uuid.UUID) ([]enums.Role, error)
	FindUserIDsByRole(ctx context.Context, role enums.Role) ([]uuid.UUID, error)
	Grant(ctx context.Context, userID uuid.UUID, role enums.Role) error
}

type roleRepository struct {
	db *gorm.DB
}

// NewRoleRepository builds a role repository bound to the provided DB.
func NewRoleRepository(db *gorm.DB) RoleRepository {
	return &roleRepository{db: db}
}

func (r *roleRepository) WithTx(tx *gorm.DB) RoleRepository {
	if tx == nil {
		return r
	}
	return &roleRepository{db: tx}
}

func (r *roleRepository) Exists(ctx context.Context, userID uuid.UUID, role enums.Role) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.UserRole{}).
		Where("user_id = ? AND role = ?", userID, role).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *roleRepository) FindRolesByUser(ctx context.Context, userID uuid.UUID) ([]enums.Role, error) {
	var rows []models.UserRole
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	roles := make([]enums.Role, 0, len(rows))
	for _, row := range rows {
		roles = append(roles, row.Role)
	}
	return roles, nil
}

func (r *roleRepository) FindUserIDsByRole(ctx context.Context, role enums.Role) ([]uuid.UUID, error) {
	var rows []models.UserRole
	err := r.db.WithContext(ctx).
		Where("role = ?", role).
		Order("created_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	ids := make([]uuid.UUID, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.UserID)
	}
	return ids, nil
}

func (r *roleRepository) Grant(ctx context.Context, userID uuid.UUID, role enums.Role) error {
	return r.db.WithContext(ctx).Create(&models.UserRole{UserID: userID, Role: role}).Error
}
