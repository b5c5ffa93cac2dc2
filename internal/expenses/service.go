package expenses

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tripdeskhq/tripdesk-backend/internal/audit"
	"github.com/tripdeskhq/tripdesk-backend/internal/permissions"
	"github.com/tripdeskhq/tripdesk-backend/internal/profiles"
	"github.com/tripdeskhq/tripdesk-backend/pkg/db/models"
	"github.com/tripdeskhq/tripdesk-backend/pkg/enums"
	pkgerrors "github.com/tripdeskhq/tripdesk-backend/pkg/errors"
	"github.com/tripdeskhq/tripdesk-backend/pkg/logger"
	"github.com/tripdeskhq/tripdesk-backend/pkg/metrics"
	"github.com/tripdeskhq/tripdesk-backend/pkg/outbox"
	"github.com/tripdeskhq/tripdesk-backend/pkg/outbox/payloads"
	"github.com/tripdeskhq/tripdesk-backend/pkg/pagination"
)

// Service enforces the expense status state machine:
//
//	submitted -> verified -> approved
//	submitted|verified -> rejected
//	submitted -> submitted (resubmit, reassign)
//
// approved and rejected are terminal. Approval deducts the owner's balance
// in the same transaction as the status write.
type Service interface {
	Create(ctx context.Context, input CreateExpenseInput) (*models.Expense, error)
	Update(ctx context.Context, expenseID, callerID uuid.UUID, patch UpdateExpensePatch) (*models.Expense, error)
	Submit(ctx context.Context, expenseID, callerID uuid.UUID) (*models.Expense, error)
	AssignToEngineer(ctx context.Context, expenseID, engineerID, adminID uuid.UUID) (*models.Expense, error)
	Verify(ctx context.Context, expenseID, engineerID uuid.UUID, comment string) (*models.Expense, error)
	Approve(ctx context.Context, expenseID, adminID uuid.UUID, comment string) (*ApproveResult, error)
	Reject(ctx context.Context, expenseID, adminID uuid.UUID, comment string) (*models.Expense, error)
	Get(ctx context.Context, expenseID, callerID uuid.UUID) (*models.Expense, error)
	List(ctx context.Context, callerID uuid.UUID, query ListQuery) (*Page, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type service struct {
	runner   txRunner
	repo     Repository
	profiles profiles.Repository
	checker  permissions.Checker
	deductor Deductor
	events   *outbox.Service
	auditor  audit.Service
	workflow *metrics.WorkflowMetrics
	logg     *logger.Logger
}

// NewService wires the expense lifecycle service.
func NewService(
	runner txRunner,
	repo Repository,
	profileRepo profiles.Repository,
	checker permissions.Checker,
	deductor Deductor,
	events *outbox.Service,
	auditor audit.Service,
	workflow *metrics.WorkflowMetrics,
	logg *logger.Logger,
) (Service, error) {
	if runner == nil {
		return nil, fmt.Errorf("expense transaction runner required")
	}
	if repo == nil {
		return nil, fmt.Errorf("expense repository required")
	}
	if profileRepo == nil {
		return nil, fmt.Errorf("profile repository required")
	}
	if checker == nil {
		return nil, fmt.Errorf("permission checker required")
	}
	if deductor == nil {
		return nil, fmt.Errorf("balance deductor required")
	}
	if logg == nil {
		return nil, fmt.Errorf("expense logger required")
	}
	return &service{
		runner:   runner,
		repo:     repo,
		profiles: profileRepo,
		checker:  checker,
		deductor: deductor,
		events:   events,
		auditor:  auditor,
		workflow: workflow,
		logg:     logg,
	}, nil
}

func (s *service) Create(ctx context.Context, input CreateExpenseInput) (*models.Expense, error) {
	if input.OwnerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "owner id is required")
	}
	if strings.TrimSpace(input.Title) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "title is required")
	}
	if strings.TrimSpace(input.Destination) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "destination is required")
	}
	if strings.TrimSpace(input.Category) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "category is required")
	}
	if input.Amount.Sign() < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "total amount cannot be negative")
	}
	if input.TripEnd.Before(input.TripStart) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "trip end cannot precede trip start")
	}

	owner, err := s.profiles.FindByID(ctx, input.OwnerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading owner profile")
	}
	if owner == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "owner profile not found")
	}

	expense := &models.Expense{
		UserID:      input.OwnerID,
		Title:       strings.TrimSpace(input.Title),
		Destination: strings.TrimSpace(input.Destination),
		TripStart:   input.TripStart,
		TripEnd:     input.TripEnd,
		Category:    strings.TrimSpace(input.Category),
		TotalAmount: input.Amount,
		Status:      enums.ExpenseStatusSubmitted,
	}
	if strings.TrimSpace(input.Purpose) != "" {
		purpose := strings.TrimSpace(input.Purpose)
		expense.Purpose = &purpose
	}

	err = s.runner.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).Create(ctx, expense); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "creating expense")
		}
		return s.emit(ctx, tx, enums.EventExpenseCreated, expense, input.OwnerID, enums.RoleEmployee, "")
	})
	if err != nil {
		return nil, err
	}

	s.record(ctx, expense.ID, input.OwnerID, enums.AuditActionExpenseCreated, fmt.Sprintf("Created expense %q", expense.Title))
	s.count(enums.AuditActionExpenseCreated)
	return expense, nil
}

func (s *service) Update(ctx context.Context, expenseID, callerID uuid.UUID, patch UpdateExpensePatch) (*models.Expense, error) {
	if expenseID == uuid.Nil || callerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "expense id and caller id are required")
	}
	if patch.Empty() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "patch is empty")
	}
	if patch.Status != nil && !patch.Status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid status %q", *patch.Status))
	}
	if patch.Amount != nil && patch.Amount.Sign() < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "total amount cannot be negative")
	}

	var updated *models.Expense
	var action enums.AuditAction

	err := s.runner.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		expense, err := repo.FindByIDForUpdate(ctx, expenseID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading expense")
		}
		if expense == nil {
			return pkgerrors.New(pkgerrors.CodeNotFound, "expense not found")
		}

		allowed, err := s.checker.CanUserEdit(ctx, expense, callerID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "checking edit permission")
		}
		if !allowed {
			return pkgerrors.New(pkgerrors.CodeForbidden, "not allowed to modify this expense")
		}
		if expense.Status != enums.ExpenseStatusSubmitted && patch.Status == nil {
			return pkgerrors.New(
				pkgerrors.CodeStateConflict,
				fmt.Sprintf("expense in status %s can no longer be edited", expense.Status),
			)
		}

		updates := buildUpdates(patch)
		if err := repo.Update(ctx, expenseID, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "updating expense")
		}

		updated, err = repo.FindByID(ctx, expenseID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reloading expense")
		}

		action = enums.AuditActionExpenseUpdated
		if patch.Status != nil && *patch.Status != expense.Status {
			action = enums.AuditActionForStatus(*patch.Status)
			return s.emit(ctx, tx, enums.EventExpenseStatusChanged, updated, callerID, "", "")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.record(ctx, expenseID, callerID, action, "")
	s.count(action)
	return updated, nil
}

// Submit re-affirms a submitted expense and routes it to the owner's
// reporting engineer. Submission has no effect on status; it only sets the
// assignment.
func (s *service) Submit(ctx context.Context, expenseID, callerID uuid.UUID) (*models.Expense, error) {
	if expenseID == uuid.Nil || callerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "expense id and caller id are required")
	}

	var updated *models.Expense

	err := s.runner.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		expense, err := repo.FindByIDForUpdate(ctx, expenseID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading expense")
		}
		if expense == nil {
			return pkgerrors.New(pkgerrors.CodeNotFound, "expense not found")
		}
		if expense.UserID != callerID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "only the owner can submit an expense")
		}
		if expense.Status != enums.ExpenseStatusSubmitted {
			return pkgerrors.New(
				pkgerrors.CodeStateConflict,
				fmt.Sprintf("expense in status %s cannot be resubmitted", expense.Status),
			)
		}

		owner, err := s.profiles.WithTx(tx).FindByID(ctx, callerID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading owner profile")
		}
		if owner == nil {
			return pkgerrors.New(pkgerrors.CodeNotFound, "owner profile not found")
		}
		if owner.ReportingEngineerID == nil {
			return pkgerrors.New(pkgerrors.CodeValidation, "no reporting engineer assigned")
		}

		updates := map[string]interface{}{"assigned_engineer_id": *owner.ReportingEngineerID}
		if err := repo.Update(ctx, expenseID, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "assigning engineer")
		}

		updated, err = repo.FindByID(ctx, expenseID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reloading expense")
		}
		return s.emit(ctx, tx, enums.EventExpenseSubmitted, updated, callerID, enums.RoleEmployee, "")
	})
	if err != nil {
		return nil, err
	}

	s.record(ctx, expenseID, callerID, enums.AuditActionExpenseSubmitted, "")
	s.count(enums.AuditActionExpenseSubmitted)
	return updated, nil
}

// AssignToEngineer routes the expense to a specific engineer and resets the
// status to submitted.
func (s *service) AssignToEngineer(ctx context.Context, expenseID, engineerID, adminID uuid.UUID) (*models.Expense, error) {
	if expenseID == uuid.Nil || engineerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "expense id and engineer id are required")
	}
	if err := s.requireAdmin(ctx, adminID); err != nil {
		return nil, err
	}
	isEngineer, err := s.checker.HasRole(ctx, engineerID, enums.RoleEngineer)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "checking engineer role")
	}
	if !isEngineer {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "target user does not hold the engineer role")
	}

	var updated *models.Expense

	err = s.runner.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		expense, err := repo.FindByIDForUpdate(ctx, expenseID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading expense")
		}
		if expense == nil {
			return pkgerrors.New(pkgerrors.CodeNotFound, "expense not found")
		}

		updates := map[string]interface{}{
			"assigned_engineer_id": engineerID,
			"status":               enums.ExpenseStatusSubmitted,
		}
		if err := repo.Update(ctx, expenseID, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "assigning engineer")
		}

		updated, err = repo.FindByID(ctx, expenseID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reloading expense")
		}
		return s.emit(ctx, tx, enums.EventExpenseAssigned, updated, adminID, enums.RoleAdmin, "")
	})
	if err != nil {
		return nil, err
	}

	s.record(ctx, expenseID, adminID, enums.AuditActionExpenseAssigned, fmt.Sprintf("Assigned to engineer %s", engineerID))
	s.count(enums.AuditActionExpenseAssigned)
	return updated, nil
}

func (s *service) Verify(ctx context.Context, expenseID, engineerID uuid.UUID, comment string) (*models.Expense, error) {
	if expenseID == uuid.Nil || engineerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "expense id and engineer id are required")
	}

	var updated *models.Expense

	err := s.runner.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		expense, err := repo.FindByIDForUpdate(ctx, expenseID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading expense")
		}
		if expense == nil {
			return pkgerrors.New(pkgerrors.CodeNotFound, "expense not found")
		}
		if !s.checker.CanEngineerReview(expense, engineerID) {
			return pkgerrors.New(pkgerrors.CodeForbidden, "expense is not assigned to this engineer")
		}
		if expense.Status == enums.ExpenseStatusApproved {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "expense is already approved")
		}
		if expense.Status != enums.ExpenseStatusSubmitted {
			return pkgerrors.New(
				pkgerrors.CodeStateConflict,
				fmt.Sprintf("expense in status %s cannot be verified", expense.Status),
			)
		}

		updates := map[string]interface{}{"status": enums.ExpenseStatusVerified}
		if err := repo.Update(ctx, expenseID, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "verifying expense")
		}

		updated, err = repo.FindByID(ctx, expenseID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reloading expense")
		}
		return s.emit(ctx, tx, enums.EventExpenseStatusChanged, updated, engineerID, enums.RoleEngineer, comment)
	})
	if err != nil {
		return nil, err
	}

	s.record(ctx, expenseID, engineerID, enums.AuditActionExpenseVerified, comment)
	s.count(enums.AuditActionExpenseVerified)
	return updated, nil
}

// Approve finalizes a verified expense and deducts its amount from the
// owner's balance. The status write and the deduction share one transaction,
// so neither can commit without the other.
func (s *service) Approve(ctx context.Context, expenseID, adminID uuid.UUID, comment string) (*ApproveResult, error) {
	if expenseID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "expense id is required")
	}
	if err := s.requireAdmin(ctx, adminID); err != nil {
		return nil, err
	}

	result := &ApproveResult{}

	err := s.runner.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		expense, err := repo.FindByIDForUpdate(ctx, expenseID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading expense")
		}
		if expense == nil {
			return pkgerrors.New(pkgerrors.CodeNotFound, "expense not found")
		}
		if expense.Status == enums.ExpenseStatusApproved {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "expense is already approved")
		}
		if expense.Status != enums.ExpenseStatusVerified {
			return pkgerrors.New(
				pkgerrors.CodeStateConflict,
				fmt.Sprintf("expense in status %s must be verified before approval", expense.Status),
			)
		}

		newBalance, err := s.deductor.Deduct(ctx, tx, expense.UserID, expense.TotalAmount)
		if err != nil {
			return err
		}
		result.OwnerBalance = newBalance

		updates := map[string]interface{}{
			"status":        enums.ExpenseStatusApproved,
			"admin_comment": nullableComment(comment),
		}
		if err := repo.Update(ctx, expenseID, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "approving expense")
		}

		result.Expense, err = repo.FindByID(ctx, expenseID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reloading expense")
		}
		return s.emit(ctx, tx, enums.EventExpenseStatusChanged, result.Expense, adminID, enums.RoleAdmin, comment)
	})
	if err != nil {
		return nil, err
	}

	auditComment := fmt.Sprintf(
		"Approved: deducted %s, remaining balance %s",
		result.Expense.TotalAmount.String(), result.OwnerBalance.String(),
	)
	s.record(ctx, expenseID, adminID, enums.AuditActionExpenseApproved, auditComment)
	s.count(enums.AuditActionExpenseApproved)

	logCtx := s.logg.WithExpenseID(ctx, expenseID.String())
	s.logg.Info(s.logg.WithField(logCtx, "owner_balance", result.OwnerBalance.String()), "expense approved")
	return result, nil
}

// Reject finalizes the expense without touching balances. There is no status
// precondition: an admin may reject from any state.
func (s *service) Reject(ctx context.Context, expenseID, adminID uuid.UUID, comment string) (*models.Expense, error) {
	if expenseID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "expense id is required")
	}
	if err := s.requireAdmin(ctx, adminID); err != nil {
		return nil, err
	}

	var updated *models.Expense

	err := s.runner.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		expense, err := repo.FindByIDForUpdate(ctx, expenseID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading expense")
		}
		if expense == nil {
			return pkgerrors.New(pkgerrors.CodeNotFound, "expense not found")
		}

		updates := map[string]interface{}{
			"status":        enums.ExpenseStatusRejected,
			"admin_comment": nullableComment(comment),
		}
		if err := repo.Update(ctx, expenseID, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "rejecting expense")
		}

		updated, err = repo.FindByID(ctx, expenseID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reloading expense")
		}
		return s.emit(ctx, tx, enums.EventExpenseStatusChanged, updated, adminID, enums.RoleAdmin, comment)
	})
	if err != nil {
		return nil, err
	}

	s.record(ctx, expenseID, adminID, enums.AuditActionExpenseRejected, comment)
	s.count(enums.AuditActionExpenseRejected)
	return updated, nil
}

func (s *service) Get(ctx context.Context, expenseID, callerID uuid.UUID) (*models.Expense, error) {
	if expenseID == uuid.Nil || callerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "expense id and caller id are required")
	}

	expense, err := s.repo.FindByID(ctx, expenseID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading expense")
	}
	if expense == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "expense not found")
	}

	if expense.UserID == callerID || s.checker.CanEngineerReview(expense, callerID) {
		return expense, nil
	}
	isAdmin, err := s.checker.HasRole(ctx, callerID, enums.RoleAdmin)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "checking admin role")
	}
	if !isAdmin {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "not allowed to view this expense")
	}
	return expense, nil
}

// List scopes visibility by the caller's effective role: admins see all
// expenses, engineers see their review queue, everyone else their own.
func (s *service) List(ctx context.Context, callerID uuid.UUID, query ListQuery) (*Page, error) {
	if callerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "caller id is required")
	}

	role, ok, err := s.checker.EffectiveRole(ctx, callerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "resolving caller role")
	}

	filter := ListFilter{Status: query.Status}
	switch {
	case ok && role == enums.RoleAdmin:
	case ok && role == enums.RoleEngineer:
		engineerID := callerID
		filter.AssignedEngineerID = &engineerID
	default:
		ownerID := callerID
		filter.OwnerID = &ownerID
	}

	params := pagination.Params{Limit: query.Limit, Cursor: query.Cursor}
	rows, err := s.repo.List(ctx, filter, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "listing expenses")
	}

	limit := pagination.NormalizeLimit(query.Limit)
	page := &Page{Expenses: rows}
	if len(rows) > limit {
		page.Expenses = rows[:limit]
		last := page.Expenses[len(page.Expenses)-1]
		page.NextCursor = pagination.EncodeCursor(pagination.Cursor{
			CreatedAt: last.CreatedAt,
			ID:        last.ID,
		})
	}
	return page, nil
}

func (s *service) requireAdmin(ctx context.Context, adminID uuid.UUID) error {
	isAdmin, err := s.checker.HasRole(ctx, adminID, enums.RoleAdmin)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "checking admin role")
	}
	if !isAdmin {
		return pkgerrors.New(pkgerrors.CodeForbidden, "admin role required")
	}
	return nil
}

func (s *service) emit(ctx context.Context, tx *gorm.DB, eventType enums.OutboxEventType, expense *models.Expense, actorID uuid.UUID, actorRole enums.Role, comment string) error {
	if s.events == nil || expense == nil {
		return nil
	}
	event := outbox.DomainEvent{
		EventType:     eventType,
		AggregateType: enums.AggregateExpense,
		AggregateID:   expense.ID,
		Actor:         &outbox.ActorRef{UserID: actorID, Role: actorRole.String()},
		Data: payloads.ExpenseEventPayload{
			ExpenseID:          expense.ID,
			OwnerID:            expense.UserID,
			AssignedEngineerID: expense.AssignedEngineerID,
			Title:              expense.Title,
			Status:             expense.Status,
			Amount:             expense.TotalAmount,
			Comment:            comment,
		},
	}
	if err := s.events.Emit(ctx, tx, event); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "queueing expense event")
	}
	return nil
}

func (s *service) record(ctx context.Context, expenseID, userID uuid.UUID, action enums.AuditAction, comment string) {
	if s.auditor == nil {
		return
	}
	id := expenseID
	s.auditor.Record(ctx, audit.RecordInput{
		ExpenseID: &id,
		UserID:    userID,
		Action:    action,
		Comment:   comment,
	})
}

func (s *service) count(action enums.AuditAction) {
	if s.workflow != nil {
		s.workflow.IncTransition(action.String())
	}
}

func buildUpdates(patch UpdateExpensePatch) map[string]interface{} {
	updates := map[string]interface{}{}
	if patch.Title != nil {
		updates["title"] = *patch.Title
	}
	if patch.Destination != nil {
		updates["destination"] = *patch.Destination
	}
	if patch.TripStart != nil {
		updates["trip_start"] = *patch.TripStart
	}
	if patch.TripEnd != nil {
		updates["trip_end"] = *patch.TripEnd
	}
	if patch.Purpose != nil {
		updates["purpose"] = *patch.Purpose
	}
	if patch.Category != nil {
		updates["category"] = *patch.Category
	}
	if patch.Amount != nil {
		updates["total_amount"] = *patch.Amount
	}
	if patch.Status != nil {
		updates["status"] = *patch.Status
	}
	return updates
}

func nullableComment(comment string) interface{} {
	if strings.TrimSpace(comment) == "" {
		return gorm.Expr("NULL")
	}
	return comment
}
