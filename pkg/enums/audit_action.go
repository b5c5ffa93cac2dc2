package enums

// AuditAction tags an audit log entry. The column is free-form text so
// downstream tooling can introduce new tags without a schema change; the
// constants below cover every action the services emit today.
type AuditAction string

const (
	AuditActionExpenseCreated   AuditAction = "expense_created"
	AuditActionExpenseUpdated   AuditAction = "expense_updated"
	AuditActionExpenseSubmitted AuditAction = "expense_submitted"
	AuditActionExpenseAssigned  AuditAction = "expense_assigned"
	AuditActionExpenseVerified  AuditAction = "expense_verified"
	AuditActionExpenseApproved  AuditAction = "expense_approved"
	AuditActionExpenseRejected  AuditAction = "expense_rejected"
	AuditActionMoneyAllocated   AuditAction = "money_allocated"
	AuditActionMoneyReturned    AuditAction = "money_returned"
	AuditActionSettingUpdated   AuditAction = "setting_updated"
)

// String implements fmt.Stringer.
func (a AuditAction) String() string {
	return string(a)
}

// AuditActionForStatus maps a status transition to its audit tag.
func AuditActionForStatus(status ExpenseStatus) AuditAction {
	switch status {
	case ExpenseStatusVerified:
		return AuditActionExpenseVerified
	case ExpenseStatusApproved:
		return AuditActionExpenseApproved
	case ExpenseStatusRejected:
		return AuditActionExpenseRejected
	default:
		return AuditActionExpenseUpdated
	}
}
