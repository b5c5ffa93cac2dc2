package ledger

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/tripdeskhq/tripdesk-backend/internal/permissions"
	"github.com/tripdeskhq/tripdesk-backend/internal/profiles"
	"github.com/tripdeskhq/tripdesk-backend/pkg/db/models"
	"github.com/tripdeskhq/tripdesk-backend/pkg/enums"
	pkgerrors "github.com/tripdeskhq/tripdesk-backend/pkg/errors"
	"github.com/tripdeskhq/tripdesk-backend/pkg/logger"
)

type directRunner struct{}

func (directRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(&gorm.DB{})
}

type fakeProfiles struct {
	balances map[uuid.UUID]decimal.Decimal
}

func newFakeProfiles() *fakeProfiles {
	return &fakeProfiles{balances: map[uuid.UUID]decimal.Decimal{}}
}

func (f *fakeProfiles) WithTx(tx *gorm.DB) profiles.Repository { return f }

func (f *fakeProfiles) Create(ctx context.Context, profile *models.Profile) error { return nil }

func (f *fakeProfiles) FindByID(ctx context.Context, userID uuid.UUID) (*models.Profile, error) {
	balance, ok := f.balances[userID]
	if !ok {
		return nil, nil
	}
	return &models.Profile{UserID: userID, Balance: balance}, nil
}

func (f *fakeProfiles) FindByIDForUpdate(ctx context.Context, userID uuid.UUID) (*models.Profile, error) {
	return f.FindByID(ctx, userID)
}

func (f *fakeProfiles) UpdateBalance(ctx context.Context, userID uuid.UUID, balance decimal.Decimal) error {
	if _, ok := f.balances[userID]; !ok {
		return gorm.ErrRecordNotFound
	}
	f.balances[userID] = balance
	return nil
}

func (f *fakeProfiles) UpdateReportingEngineer(ctx context.Context, userID uuid.UUID, engineerID *uuid.UUID) error {
	return nil
}

type fakeRoles struct {
	rolesOf map[uuid.UUID][]enums.Role
}

func newFakeRoles() *fakeRoles {
	return &fakeRoles{rolesOf: map[uuid.UUID][]enums.Role{}}
}

func (f *fakeRoles) WithTx(tx *gorm.DB) permissions.RoleRepository { return f }

func (f *fakeRoles) Exists(ctx context.Context, userID uuid.UUID, role enums.Role) (bool, error) {
	for _, held := range f.rolesOf[userID] {
		if held == role {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeRoles) FindRolesByUser(ctx context.Context, userID uuid.UUID) ([]enums.Role, error) {
	return f.rolesOf[userID], nil
}

func (f *fakeRoles) FindUserIDsByRole(ctx context.Context, role enums.Role) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	for userID, held := range f.rolesOf {
		for _, r := range held {
			if r == role {
				ids = append(ids, userID)
			}
		}
	}
	return ids, nil
}

func (f *fakeRoles) Grant(ctx context.Context, userID uuid.UUID, role enums.Role) error {
	f.rolesOf[userID] = append(f.rolesOf[userID], role)
	return nil
}

type fakeAssignments struct {
	rows []models.MoneyAssignment
}

func (f *fakeAssignments) WithTx(tx *gorm.DB) AssignmentRepository { return f }

func (f *fakeAssignments) Create(ctx context.Context, assignment *models.MoneyAssignment) error {
	if assignment.ID == uuid.Nil {
		assignment.ID = uuid.New()
	}
	assignment.AssignedAt = time.Now()
	f.rows = append(f.rows, *assignment)
	return nil
}

func (f *fakeAssignments) FindUnreturnedByRecipient(ctx context.Context, recipientID uuid.UUID) ([]models.MoneyAssignment, error) {
	var open []models.MoneyAssignment
	for _, row := range f.rows {
		if row.RecipientID == recipientID && !row.IsReturned {
			open = append(open, row)
		}
	}
	return open, nil
}

func (f *fakeAssignments) MarkReturned(ctx context.Context, ids []uuid.UUID, returnedAt time.Time) error {
	for _, id := range ids {
		for i := range f.rows {
			if f.rows[i].ID == id {
				f.rows[i].IsReturned = true
				at := returnedAt
				f.rows[i].ReturnedAt = &at
			}
		}
	}
	return nil
}

func (f *fakeAssignments) ListByCashier(ctx context.Context, cashierID uuid.UUID) ([]models.MoneyAssignment, error) {
	var rows []models.MoneyAssignment
	for _, row := range f.rows {
		if row.CashierID == cashierID {
			rows = append(rows, row)
		}
	}
	return rows, nil
}

type ledgerFixture struct {
	svc         Service
	profiles    *fakeProfiles
	roles       *fakeRoles
	assignments *fakeAssignments
}

func newLedgerFixture(t *testing.T) *ledgerFixture {
	t.Helper()

	f := &ledgerFixture{
		profiles:    newFakeProfiles(),
		roles:       newFakeRoles(),
		assignments: &fakeAssignments{},
	}

	svc, err := NewService(
		directRunner{},
		f.profiles,
		f.roles,
		f.assignments,
		nil,
		nil,
		logger.New(logger.Options{ServiceName: "test"}),
	)
	if err != nil {
		t.Fatalf("unexpected service error: %v", err)
	}
	f.svc = svc
	return f
}

func expectCode(t *testing.T, err error, code pkgerrors.Code) {
	t.Helper()
	typed := pkgerrors.As(err)
	if typed == nil {
		t.Fatalf("expected coded error %s, got %v", code, err)
	}
	if typed.Code() != code {
		t.Fatalf("expected code %s, got %s (%v)", code, typed.Code(), err)
	}
}

func TestDeduct_InsufficientBalance(t *testing.T) {
	f := newLedgerFixture(t)
	userID := uuid.New()
	f.profiles.balances[userID] = decimal.NewFromInt(100)

	_, err := f.svc.Deduct(context.Background(), &gorm.DB{}, userID, decimal.NewFromInt(900))
	expectCode(t, err, pkgerrors.CodeValidation)
	if !strings.Contains(err.Error(), "Insufficient balance: has 100, needs 900") {
		t.Fatalf("unexpected error message: %v", err)
	}
	if !f.profiles.balances[userID].Equal(decimal.NewFromInt(100)) {
		t.Fatal("failed deduction must not touch the balance")
	}
}

func TestDeduct_SubtractsAndReturnsNewBalance(t *testing.T) {
	f := newLedgerFixture(t)
	userID := uuid.New()
	f.profiles.balances[userID] = decimal.NewFromInt(5000)

	newBalance, err := f.svc.Deduct(context.Background(), &gorm.DB{}, userID, decimal.NewFromInt(1500))
	if err != nil {
		t.Fatalf("unexpected deduct error: %v", err)
	}
	if !newBalance.Equal(decimal.NewFromInt(3500)) {
		t.Fatalf("expected new balance 3500, got %s", newBalance)
	}
	if !f.profiles.balances[userID].Equal(decimal.NewFromInt(3500)) {
		t.Fatal("balance must be persisted")
	}
}

func TestDeduct_RequiresTransaction(t *testing.T) {
	f := newLedgerFixture(t)
	_, err := f.svc.Deduct(context.Background(), nil, uuid.New(), decimal.NewFromInt(1))
	expectCode(t, err, pkgerrors.CodeInternal)
}

func TestAllocate_CashierFundsFromOwnBalance(t *testing.T) {
	f := newLedgerFixture(t)
	cashierID := uuid.New()
	employeeID := uuid.New()
	f.roles.rolesOf[cashierID] = []enums.Role{enums.RoleCashier}
	f.profiles.balances[cashierID] = decimal.NewFromInt(1000)
	f.profiles.balances[employeeID] = decimal.NewFromInt(50)

	result, err := f.svc.Allocate(context.Background(), AllocateInput{
		ActorID:     cashierID,
		RecipientID: employeeID,
		Amount:      decimal.NewFromInt(300),
	})
	if err != nil {
		t.Fatalf("unexpected allocate error: %v", err)
	}
	if !result.RecipientBalance.Equal(decimal.NewFromInt(350)) {
		t.Fatalf("expected recipient balance 350, got %s", result.RecipientBalance)
	}
	if result.ActorBalance == nil || !result.ActorBalance.Equal(decimal.NewFromInt(700)) {
		t.Fatalf("expected cashier balance 700, got %v", result.ActorBalance)
	}
	if len(f.assignments.rows) != 1 {
		t.Fatalf("expected one money assignment, got %d", len(f.assignments.rows))
	}
	if f.assignments.rows[0].CashierID != cashierID || f.assignments.rows[0].RecipientID != employeeID {
		t.Fatal("assignment must link cashier and recipient")
	}
}

func TestAllocate_AdminMintsWithoutDeduction(t *testing.T) {
	f := newLedgerFixture(t)
	adminID := uuid.New()
	cashierID := uuid.New()
	f.roles.rolesOf[adminID] = []enums.Role{enums.RoleAdmin}
	f.profiles.balances[cashierID] = decimal.NewFromInt(100)

	result, err := f.svc.Allocate(context.Background(), AllocateInput{
		ActorID:     adminID,
		RecipientID: cashierID,
		Amount:      decimal.NewFromInt(900),
	})
	if err != nil {
		t.Fatalf("unexpected allocate error: %v", err)
	}
	if !result.RecipientBalance.Equal(decimal.NewFromInt(1000)) {
		t.Fatalf("expected recipient balance 1000, got %s", result.RecipientBalance)
	}
	if result.ActorBalance != nil {
		t.Fatal("admin allocation must not report an actor balance")
	}
	if len(f.assignments.rows) != 0 {
		t.Fatal("admin allocations must not leave assignment rows")
	}
}

func TestAllocate_CashierSelfAllocationForbidden(t *testing.T) {
	f := newLedgerFixture(t)
	cashierID := uuid.New()
	f.roles.rolesOf[cashierID] = []enums.Role{enums.RoleCashier}
	f.profiles.balances[cashierID] = decimal.NewFromInt(1000)

	_, err := f.svc.Allocate(context.Background(), AllocateInput{
		ActorID:     cashierID,
		RecipientID: cashierID,
		Amount:      decimal.NewFromInt(10),
	})
	expectCode(t, err, pkgerrors.CodeForbidden)
}

func TestAllocate_InsufficientCashierBalance(t *testing.T) {
	f := newLedgerFixture(t)
	cashierID := uuid.New()
	employeeID := uuid.New()
	f.roles.rolesOf[cashierID] = []enums.Role{enums.RoleCashier}
	f.profiles.balances[cashierID] = decimal.NewFromInt(100)
	f.profiles.balances[employeeID] = decimal.Zero

	_, err := f.svc.Allocate(context.Background(), AllocateInput{
		ActorID:     cashierID,
		RecipientID: employeeID,
		Amount:      decimal.NewFromInt(500),
	})
	expectCode(t, err, pkgerrors.CodeValidation)
	if !f.profiles.balances[employeeID].Equal(decimal.Zero) {
		t.Fatal("failed allocation must not credit the recipient")
	}
}

func TestAllocate_RequiresCashierOrAdmin(t *testing.T) {
	f := newLedgerFixture(t)
	employeeID := uuid.New()
	f.roles.rolesOf[employeeID] = []enums.Role{enums.RoleEmployee}

	_, err := f.svc.Allocate(context.Background(), AllocateInput{
		ActorID:     employeeID,
		RecipientID: uuid.New(),
		Amount:      decimal.NewFromInt(10),
	})
	expectCode(t, err, pkgerrors.CodeForbidden)
}

func TestReturnMoney_EmployeeReturnsToFundingCashier(t *testing.T) {
	f := newLedgerFixture(t)
	employeeID := uuid.New()
	firstCashier := uuid.New()
	secondCashier := uuid.New()
	f.roles.rolesOf[employeeID] = []enums.Role{enums.RoleEmployee}
	f.roles.rolesOf[firstCashier] = []enums.Role{enums.RoleCashier}
	f.roles.rolesOf[secondCashier] = []enums.Role{enums.RoleCashier}
	f.profiles.balances[employeeID] = decimal.NewFromInt(500)
	f.profiles.balances[firstCashier] = decimal.NewFromInt(0)
	f.profiles.balances[secondCashier] = decimal.NewFromInt(0)

	f.assignments.rows = []models.MoneyAssignment{
		{ID: uuid.New(), CashierID: firstCashier, RecipientID: employeeID, Amount: decimal.NewFromInt(300), AssignedAt: time.Now().Add(-2 * time.Hour)},
		{ID: uuid.New(), CashierID: secondCashier, RecipientID: employeeID, Amount: decimal.NewFromInt(200), AssignedAt: time.Now().Add(-time.Hour)},
	}

	result, err := f.svc.ReturnMoney(context.Background(), ReturnMoneyInput{
		CallerID: employeeID,
		Amount:   decimal.NewFromInt(400),
	})
	if err != nil {
		t.Fatalf("unexpected return error: %v", err)
	}
	if result.TargetID != firstCashier {
		t.Fatalf("return must route to the oldest funding cashier, got %s", result.TargetID)
	}
	if result.TargetRole != enums.RoleCashier {
		t.Fatalf("expected cashier target role, got %s", result.TargetRole)
	}
	if !result.NewBalance.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("expected caller balance 100, got %s", result.NewBalance)
	}
	if !f.profiles.balances[firstCashier].Equal(decimal.NewFromInt(400)) {
		t.Fatalf("expected cashier credited with 400, got %s", f.profiles.balances[firstCashier])
	}
}

func TestReturnMoney_ConsumesAssignmentsWholeOnPartialOffset(t *testing.T) {
	f := newLedgerFixture(t)
	employeeID := uuid.New()
	cashierID := uuid.New()
	f.roles.rolesOf[employeeID] = []enums.Role{enums.RoleEmployee}
	f.roles.rolesOf[cashierID] = []enums.Role{enums.RoleCashier}
	f.profiles.balances[employeeID] = decimal.NewFromInt(1000)
	f.profiles.balances[cashierID] = decimal.Zero

	f.assignments.rows = []models.MoneyAssignment{
		{ID: uuid.New(), CashierID: cashierID, RecipientID: employeeID, Amount: decimal.NewFromInt(300)},
		{ID: uuid.New(), CashierID: cashierID, RecipientID: employeeID, Amount: decimal.NewFromInt(300)},
		{ID: uuid.New(), CashierID: cashierID, RecipientID: employeeID, Amount: decimal.NewFromInt(300)},
	}

	// 400 spans the first row fully and the second partially; both rows are
	// consumed whole, the third stays open.
	if _, err := f.svc.ReturnMoney(context.Background(), ReturnMoneyInput{
		CallerID: employeeID,
		Amount:   decimal.NewFromInt(400),
	}); err != nil {
		t.Fatalf("unexpected return error: %v", err)
	}

	if !f.assignments.rows[0].IsReturned || !f.assignments.rows[1].IsReturned {
		t.Fatal("first two assignments must be marked returned")
	}
	if f.assignments.rows[2].IsReturned {
		t.Fatal("third assignment must stay open")
	}
}

func TestReturnMoney_CashierReturnsToAdmin(t *testing.T) {
	f := newLedgerFixture(t)
	cashierID := uuid.New()
	adminID := uuid.New()
	f.roles.rolesOf[cashierID] = []enums.Role{enums.RoleCashier}
	f.roles.rolesOf[adminID] = []enums.Role{enums.RoleAdmin}
	f.profiles.balances[cashierID] = decimal.NewFromInt(800)
	f.profiles.balances[adminID] = decimal.Zero

	result, err := f.svc.ReturnMoney(context.Background(), ReturnMoneyInput{
		CallerID: cashierID,
		Amount:   decimal.NewFromInt(800),
	})
	if err != nil {
		t.Fatalf("unexpected return error: %v", err)
	}
	if result.TargetID != adminID {
		t.Fatalf("cashier return must route to an admin, got %s", result.TargetID)
	}
	if !f.profiles.balances[adminID].Equal(decimal.NewFromInt(800)) {
		t.Fatal("admin must receive the returned funds")
	}
}

func TestReturnMoney_InsufficientBalance(t *testing.T) {
	f := newLedgerFixture(t)
	employeeID := uuid.New()
	cashierID := uuid.New()
	f.roles.rolesOf[employeeID] = []enums.Role{enums.RoleEmployee}
	f.roles.rolesOf[cashierID] = []enums.Role{enums.RoleCashier}
	f.profiles.balances[employeeID] = decimal.NewFromInt(50)
	f.profiles.balances[cashierID] = decimal.Zero

	_, err := f.svc.ReturnMoney(context.Background(), ReturnMoneyInput{
		CallerID: employeeID,
		Amount:   decimal.NewFromInt(100),
	})
	expectCode(t, err, pkgerrors.CodeValidation)
	if !strings.Contains(err.Error(), "Insufficient balance") {
		t.Fatalf("unexpected error message: %v", err)
	}
}

func TestReturnMoney_AdminHasNoReturnTarget(t *testing.T) {
	f := newLedgerFixture(t)
	adminID := uuid.New()
	f.roles.rolesOf[adminID] = []enums.Role{enums.RoleAdmin}
	f.profiles.balances[adminID] = decimal.NewFromInt(100)

	_, err := f.svc.ReturnMoney(context.Background(), ReturnMoneyInput{
		CallerID: adminID,
		Amount:   decimal.NewFromInt(10),
	})
	expectCode(t, err, pkgerrors.CodeForbidden)
}

func TestReturnMoney_NoTargetAvailable(t *testing.T) {
	f := newLedgerFixture(t)
	employeeID := uuid.New()
	f.roles.rolesOf[employeeID] = []enums.Role{enums.RoleEmployee}
	f.profiles.balances[employeeID] = decimal.NewFromInt(100)

	_, err := f.svc.ReturnMoney(context.Background(), ReturnMoneyInput{
		CallerID: employeeID,
		Amount:   decimal.NewFromInt(10),
	})
	expectCode(t, err, pkgerrors.CodeNotFound)
}

func TestAllocateBulk_AdminOnly(t *testing.T) {
	f := newLedgerFixture(t)
	cashierID := uuid.New()
	f.roles.rolesOf[cashierID] = []enums.Role{enums.RoleCashier}

	_, err := f.svc.AllocateBulk(context.Background(), AllocateBulkInput{
		ActorID:      cashierID,
		RecipientIDs: []uuid.UUID{uuid.New()},
		Amount:       decimal.NewFromInt(10),
	})
	expectCode(t, err, pkgerrors.CodeForbidden)
}

func TestAllocateBulk_IsolatesFailures(t *testing.T) {
	f := newLedgerFixture(t)
	adminID := uuid.New()
	knownID := uuid.New()
	missingID := uuid.New()
	f.roles.rolesOf[adminID] = []enums.Role{enums.RoleAdmin}
	f.profiles.balances[knownID] = decimal.Zero

	result, err := f.svc.AllocateBulk(context.Background(), AllocateBulkInput{
		ActorID:      adminID,
		RecipientIDs: []uuid.UUID{knownID, missingID, knownID},
		Amount:       decimal.NewFromInt(250),
	})
	if err != nil {
		t.Fatalf("bulk allocation must not fail as a whole: %v", err)
	}
	if len(result.Succeeded) != 1 || result.Succeeded[0] != knownID {
		t.Fatalf("expected one success for %s, got %+v", knownID, result.Succeeded)
	}
	if len(result.Failed) != 1 || result.Failed[0].RecipientID != missingID {
		t.Fatalf("expected one failure for %s, got %+v", missingID, result.Failed)
	}
	if result.Failed[0].Reason == "" {
		t.Fatal("failure must carry a reason")
	}
	if !f.profiles.balances[knownID].Equal(decimal.NewFromInt(250)) {
		t.Fatal("duplicate recipients must only be credited once")
	}
}
