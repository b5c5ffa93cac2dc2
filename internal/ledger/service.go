package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/tripdeskhq/tripdesk-backend/internal/audit"
	"github.com/tripdeskhq/tripdesk-backend/internal/permissions"
	"github.com/tripdeskhq/tripdesk-backend/internal/profiles"
	"github.com/tripdeskhq/tripdesk-backend/pkg/db/models"
	"github.com/tripdeskhq/tripdesk-backend/pkg/enums"
	pkgerrors "github.com/tripdeskhq/tripdesk-backend/pkg/errors"
	"github.com/tripdeskhq/tripdesk-backend/pkg/logger"
	"github.com/tripdeskhq/tripdesk-backend/pkg/outbox"
	"github.com/tripdeskhq/tripdesk-backend/pkg/outbox/payloads"
)

// Service owns every balance mutation outside expense approval. Each
// multi-step mutation runs inside one database transaction with FOR UPDATE
// row locks on the profiles it touches, so concurrent operations on the same
// balance serialize instead of losing updates.
type Service interface {
	Balance(ctx context.Context, userID uuid.UUID) (decimal.Decimal, error)
	Deduct(ctx context.Context, tx *gorm.DB, userID uuid.UUID, amount decimal.Decimal) (decimal.Decimal, error)
	ReturnMoney(ctx context.Context, input ReturnMoneyInput) (*ReturnMoneyResult, error)
	Allocate(ctx context.Context, input AllocateInput) (*AllocateResult, error)
	AllocateBulk(ctx context.Context, input AllocateBulkInput) (*AllocateBulkResult, error)
	Assignments(ctx context.Context, cashierID uuid.UUID) ([]models.MoneyAssignment, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type service struct {
	runner      txRunner
	profiles    profiles.Repository
	roles       permissions.RoleRepository
	assignments AssignmentRepository
	events      *outbox.Service
	auditor     audit.Service
	logg        *logger.Logger
}

// NewService wires a ledger service.
func NewService(
	runner txRunner,
	profileRepo profiles.Repository,
	roleRepo permissions.RoleRepository,
	assignmentRepo AssignmentRepository,
	events *outbox.Service,
	auditor audit.Service,
	logg *logger.Logger,
) (Service, error) {
	if runner == nil {
		return nil, fmt.Errorf("ledger transaction runner required")
	}
	if profileRepo == nil {
		return nil, fmt.Errorf("ledger profile repository required")
	}
	if roleRepo == nil {
		return nil, fmt.Errorf("ledger role repository required")
	}
	if assignmentRepo == nil {
		return nil, fmt.Errorf("ledger assignment repository required")
	}
	if logg == nil {
		return nil, fmt.Errorf("ledger logger required")
	}
	return &service{
		runner:      runner,
		profiles:    profileRepo,
		roles:       roleRepo,
		assignments: assignmentRepo,
		events:      events,
		auditor:     auditor,
		logg:        logg,
	}, nil
}

func (s *service) Balance(ctx context.Context, userID uuid.UUID) (decimal.Decimal, error) {
	if userID == uuid.Nil {
		return decimal.Zero, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	profile, err := s.profiles.FindByID(ctx, userID)
	if err != nil {
		return decimal.Zero, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading profile")
	}
	if profile == nil {
		return decimal.Zero, pkgerrors.New(pkgerrors.CodeNotFound, "profile not found")
	}
	return profile.Balance, nil
}

// Deduct subtracts amount from the user's balance inside the caller's
// transaction and returns the new balance. The profile row stays locked
// until the caller commits, so the sufficiency check and the write are one
// atomic step.
func (s *service) Deduct(ctx context.Context, tx *gorm.DB, userID uuid.UUID, amount decimal.Decimal) (decimal.Decimal, error) {
	if tx == nil {
		return decimal.Zero, pkgerrors.New(pkgerrors.CodeInternal, "deduct requires a transaction")
	}
	if amount.Sign() < 0 {
		return decimal.Zero, pkgerrors.New(pkgerrors.CodeValidation, "deduction amount cannot be negative")
	}

	repo := s.profiles.WithTx(tx)
	profile, err := repo.FindByIDForUpdate(ctx, userID)
	if err != nil {
		return decimal.Zero, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "locking profile")
	}
	if profile == nil {
		return decimal.Zero, pkgerrors.New(pkgerrors.CodeNotFound, "profile not found")
	}
	if profile.Balance.LessThan(amount) {
		return decimal.Zero, pkgerrors.New(
			pkgerrors.CodeValidation,
			fmt.Sprintf("Insufficient balance: has %s, needs %s", profile.Balance.String(), amount.String()),
		)
	}

	newBalance := profile.Balance.Sub(amount)
	if err := repo.UpdateBalance(ctx, userID, newBalance); err != nil {
		return decimal.Zero, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "updating balance")
	}
	return newBalance, nil
}

// ReturnMoney transfers funds from the caller back up the funding chain.
// Employees and engineers return to the cashier that funded them, resolved
// by the oldest unreturned money assignment, with any cashier as fallback.
// Cashiers return to an admin. The consumed assignment rows are marked
// returned even when the final row is only partially offset.
func (s *service) ReturnMoney(ctx context.Context, input ReturnMoneyInput) (*ReturnMoneyResult, error) {
	if input.CallerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "caller id is required")
	}
	if input.Amount.Sign() <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "return amount must be positive")
	}

	callerRoles, err := s.roles.FindRolesByUser(ctx, input.CallerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "resolving caller role")
	}
	callerRole, ok := enums.HighestRole(callerRoles)
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "caller holds no workflow role")
	}

	var targetRole enums.Role
	switch callerRole {
	case enums.RoleEmployee, enums.RoleEngineer:
		targetRole = enums.RoleCashier
	case enums.RoleCashier:
		targetRole = enums.RoleAdmin
	default:
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, fmt.Sprintf("role %s has no return target", callerRole))
	}

	result := &ReturnMoneyResult{TargetRole: targetRole, Amount: input.Amount}

	err = s.runner.WithTx(ctx, func(tx *gorm.DB) error {
		profileRepo := s.profiles.WithTx(tx)
		assignmentRepo := s.assignments.WithTx(tx)

		caller, err := profileRepo.FindByIDForUpdate(ctx, input.CallerID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "locking caller profile")
		}
		if caller == nil {
			return pkgerrors.New(pkgerrors.CodeNotFound, "caller profile not found")
		}
		if caller.Balance.LessThan(input.Amount) {
			return pkgerrors.New(
				pkgerrors.CodeValidation,
				fmt.Sprintf("Insufficient balance: has %s, needs %s", caller.Balance.String(), input.Amount.String()),
			)
		}

		var open []models.MoneyAssignment
		if targetRole == enums.RoleCashier {
			open, err = assignmentRepo.FindUnreturnedByRecipient(ctx, input.CallerID)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading money assignments")
			}
		}

		targetID, err := s.resolveReturnTarget(ctx, input.CallerID, targetRole, open)
		if err != nil {
			return err
		}
		result.TargetID = targetID

		target, err := profileRepo.FindByIDForUpdate(ctx, targetID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "locking target profile")
		}
		if target == nil {
			return pkgerrors.New(pkgerrors.CodeNotFound, "target profile not found")
		}

		result.NewBalance = caller.Balance.Sub(input.Amount)
		if err := profileRepo.UpdateBalance(ctx, caller.UserID, result.NewBalance); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "debiting caller")
		}
		if err := profileRepo.UpdateBalance(ctx, target.UserID, target.Balance.Add(input.Amount)); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "crediting target")
		}

		if targetRole == enums.RoleCashier {
			consumed := consumeAssignments(open, input.Amount)
			if err := assignmentRepo.MarkReturned(ctx, consumed, time.Now()); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "marking assignments returned")
			}
		}

		if s.events != nil {
			callerID := input.CallerID
			event := outbox.DomainEvent{
				EventType:     enums.EventMoneyReturned,
				AggregateType: enums.AggregateProfile,
				AggregateID:   input.CallerID,
				Actor:         &outbox.ActorRef{UserID: input.CallerID, Role: callerRole.String()},
				Data: payloads.MoneyMovedPayload{
					FromUserID: &callerID,
					ToUserID:   targetID,
					Amount:     input.Amount,
					ActorID:    input.CallerID,
				},
			}
			if err := s.events.Emit(ctx, tx, event); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "queueing return event")
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.auditor != nil {
		s.auditor.Record(ctx, audit.RecordInput{
			UserID:  input.CallerID,
			Action:  enums.AuditActionMoneyReturned,
			Comment: fmt.Sprintf("Returned %s to %s %s", input.Amount.String(), targetRole, result.TargetID),
		})
	}

	logCtx := s.logg.WithFields(ctx, map[string]any{
		"caller_id": input.CallerID.String(),
		"target_id": result.TargetID.String(),
		"amount":    input.Amount.String(),
	})
	s.logg.Info(logCtx, "money returned")
	return result, nil
}

// resolveReturnTarget picks the receiving profile. For returns to cashiers the
// oldest unreturned assignment wins; otherwise the first user holding the
// target role.
func (s *service) resolveReturnTarget(ctx context.Context, callerID uuid.UUID, targetRole enums.Role, open []models.MoneyAssignment) (uuid.UUID, error) {
	if targetRole == enums.RoleCashier && len(open) > 0 {
		return open[0].CashierID, nil
	}

	candidates, err := s.roles.FindUserIDsByRole(ctx, targetRole)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "resolving return target")
	}
	for _, candidate := range candidates {
		if candidate != callerID {
			return candidate, nil
		}
	}
	return uuid.Nil, pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("no %s available to receive the return", targetRole))
}

// consumeAssignments selects the oldest open assignment IDs covering amount.
// The final row is consumed whole even when it only partially overlaps.
func consumeAssignments(open []models.MoneyAssignment, amount decimal.Decimal) []uuid.UUID {
	var ids []uuid.UUID
	remaining := amount
	for _, assignment := range open {
		if remaining.Sign() <= 0 {
			break
		}
		ids = append(ids, assignment.ID)
		remaining = remaining.Sub(assignment.Amount)
	}
	return ids
}

// Allocate credits a recipient. Cashiers draw the amount from their own
// balance and leave a money assignment behind for return routing; admins
// credit out of thin air.
func (s *service) Allocate(ctx context.Context, input AllocateInput) (*AllocateResult, error) {
	if input.ActorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "actor id is required")
	}
	if input.RecipientID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "recipient id is required")
	}
	if input.Amount.Sign() <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "allocation amount must be positive")
	}

	isAdmin, err := s.roles.Exists(ctx, input.ActorID, enums.RoleAdmin)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "resolving actor role")
	}
	isCashier := false
	if !isAdmin {
		isCashier, err = s.roles.Exists(ctx, input.ActorID, enums.RoleCashier)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "resolving actor role")
		}
		if !isCashier {
			return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only cashiers and admins can allocate funds")
		}
		if input.ActorID == input.RecipientID {
			return nil, pkgerrors.New(pkgerrors.CodeForbidden, "cashiers cannot allocate to themselves")
		}
	}

	result := &AllocateResult{RecipientID: input.RecipientID}

	err = s.runner.WithTx(ctx, func(tx *gorm.DB) error {
		profileRepo := s.profiles.WithTx(tx)

		if isCashier {
			actor, err := profileRepo.FindByIDForUpdate(ctx, input.ActorID)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "locking cashier profile")
			}
			if actor == nil {
				return pkgerrors.New(pkgerrors.CodeNotFound, "cashier profile not found")
			}
			if actor.Balance.LessThan(input.Amount) {
				return pkgerrors.New(
					pkgerrors.CodeValidation,
					fmt.Sprintf("Insufficient balance: has %s, needs %s", actor.Balance.String(), input.Amount.String()),
				)
			}
			actorBalance := actor.Balance.Sub(input.Amount)
			if err := profileRepo.UpdateBalance(ctx, input.ActorID, actorBalance); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "debiting cashier")
			}
			result.ActorBalance = &actorBalance
		}

		recipient, err := profileRepo.FindByIDForUpdate(ctx, input.RecipientID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "locking recipient profile")
		}
		if recipient == nil {
			return pkgerrors.New(pkgerrors.CodeNotFound, "recipient profile not found")
		}

		result.RecipientBalance = recipient.Balance.Add(input.Amount)
		if err := profileRepo.UpdateBalance(ctx, input.RecipientID, result.RecipientBalance); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "crediting recipient")
		}

		if isCashier {
			assignment := &models.MoneyAssignment{
				CashierID:   input.ActorID,
				RecipientID: input.RecipientID,
				Amount:      input.Amount,
			}
			if err := s.assignments.WithTx(tx).Create(ctx, assignment); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "recording money assignment")
			}
		}

		if s.events != nil {
			role := enums.RoleAdmin
			var fromID *uuid.UUID
			if isCashier {
				role = enums.RoleCashier
				actorID := input.ActorID
				fromID = &actorID
			}
			event := outbox.DomainEvent{
				EventType:     enums.EventMoneyAllocated,
				AggregateType: enums.AggregateProfile,
				AggregateID:   input.RecipientID,
				Actor:         &outbox.ActorRef{UserID: input.ActorID, Role: role.String()},
				Data: payloads.MoneyMovedPayload{
					FromUserID: fromID,
					ToUserID:   input.RecipientID,
					Amount:     input.Amount,
					ActorID:    input.ActorID,
				},
			}
			if err := s.events.Emit(ctx, tx, event); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "queueing allocation event")
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.auditor != nil {
		s.auditor.Record(ctx, audit.RecordInput{
			UserID:  input.ActorID,
			Action:  enums.AuditActionMoneyAllocated,
			Comment: fmt.Sprintf("Allocated %s to %s", input.Amount.String(), input.RecipientID),
		})
	}
	return result, nil
}

// AllocateBulk credits the same amount to each recipient independently. One
// recipient failing does not abort the rest; the combined error detail is
// reported alongside per-recipient outcomes.
func (s *service) AllocateBulk(ctx context.Context, input AllocateBulkInput) (*AllocateBulkResult, error) {
	if input.ActorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "actor id is required")
	}
	if len(input.RecipientIDs) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one recipient is required")
	}
	if input.Amount.Sign() <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "allocation amount must be positive")
	}

	isAdmin, err := s.roles.Exists(ctx, input.ActorID, enums.RoleAdmin)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "resolving actor role")
	}
	if !isAdmin {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only admins can bulk allocate")
	}

	result := &AllocateBulkResult{}
	var combined error
	seen := make(map[uuid.UUID]bool, len(input.RecipientIDs))

	for _, recipientID := range input.RecipientIDs {
		if recipientID == uuid.Nil || seen[recipientID] {
			continue
		}
		seen[recipientID] = true

		_, err := s.Allocate(ctx, AllocateInput{
			ActorID:     input.ActorID,
			RecipientID: recipientID,
			Amount:      input.Amount,
		})
		if err != nil {
			combined = multierr.Append(combined, fmt.Errorf("recipient %s: %w", recipientID, err))
			result.Failed = append(result.Failed, BulkFailure{
				RecipientID: recipientID,
				Reason:      failureReason(err),
			})
			continue
		}
		result.Succeeded = append(result.Succeeded, recipientID)
	}

	if combined != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"actor_id": input.ActorID.String(),
			"failed":   len(result.Failed),
			"ok":       len(result.Succeeded),
		})
		s.logg.Warn(logCtx, "bulk allocation completed with failures")
	}
	return result, nil
}

func (s *service) Assignments(ctx context.Context, cashierID uuid.UUID) ([]models.MoneyAssignment, error) {
	if cashierID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cashier id is required")
	}
	rows, err := s.assignments.ListByCashier(ctx, cashierID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "listing money assignments")
	}
	return rows, nil
}

func failureReason(err error) string {
	if typed := pkgerrors.As(err); typed != nil {
		return typed.Message()
	}
	return err.Error()
}
