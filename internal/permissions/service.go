package permissions

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/tripdeskhq/tripdesk-backend/pkg/db/models"
	"github.com/tripdeskhq/tripdesk-backend/pkg/enums"
)

// ExpenseFinder is the narrow slice of the expense repository the checker
// needs for ownership and assignment checks.
type ExpenseFinder interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Expense, error)
}

// Checker answers authorization questions for the workflow. All checks
// resolve against the user_roles table at call time.
type Checker interface {
	HasRole(ctx context.Context, userID uuid.UUID, role enums.Role) (bool, error)
	EffectiveRole(ctx context.Context, userID uuid.UUID) (enums.Role, bool, error)
	CanUserEdit(ctx context.Context, expense *models.Expense, userID uuid.UUID) (bool, error)
	CanEngineerReview(expense *models.Expense, engineerID uuid.UUID) bool
}

type checker struct {
	roles RoleRepository
}

// NewChecker builds a permission checker over the role repository.
func NewChecker(roles RoleRepository) (Checker, error) {
	if roles == nil {
		return nil, fmt.Errorf("permissions: role repository is required")
	}
	return &checker{roles: roles}, nil
}

// HasRole reports whether the user holds the given role. A zero user ID is
// never authorized.
func (c *checker) HasRole(ctx context.Context, userID uuid.UUID, role enums.Role) (bool, error) {
	if userID == uuid.Nil {
		return false, nil
	}
	if !role.IsValid() {
		return false, nil
	}
	return c.roles.Exists(ctx, userID, role)
}

// EffectiveRole resolves the highest-precedence role held by the user. The
// second return is false when the user holds no roles at all.
func (c *checker) EffectiveRole(ctx context.Context, userID uuid.UUID) (enums.Role, bool, error) {
	if userID == uuid.Nil {
		return "", false, nil
	}
	roles, err := c.roles.FindRolesByUser(ctx, userID)
	if err != nil {
		return "", false, err
	}
	role, ok := enums.HighestRole(roles)
	return role, ok, nil
}

// CanUserEdit reports whether the user may modify the expense. Admins may
// always edit; the owner may edit only while the expense is still submitted.
func (c *checker) CanUserEdit(ctx context.Context, expense *models.Expense, userID uuid.UUID) (bool, error) {
	if expense == nil || userID == uuid.Nil {
		return false, nil
	}
	isAdmin, err := c.HasRole(ctx, userID, enums.RoleAdmin)
	if err != nil {
		return false, err
	}
	if isAdmin {
		return true, nil
	}
	if expense.UserID != userID {
		return false, nil
	}
	return expense.Status == enums.ExpenseStatusSubmitted, nil
}

// CanEngineerReview reports whether the engineer is the one assigned to the
// expense. Unassigned expenses are reviewable by nobody.
func (c *checker) CanEngineerReview(expense *models.Expense, engineerID uuid.UUID) bool {
	if expense == nil || engineerID == uuid.Nil || expense.AssignedEngineerID == nil {
		return false
	}
	return *expense.AssignedEngineerID == engineerID
}
