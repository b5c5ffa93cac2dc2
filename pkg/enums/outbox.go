package enums

// OutboxEventType identifies the domain event stored in outbox_events.
type OutboxEventType string

const (
	EventExpenseCreated       OutboxEventType = "expense.created"
	EventExpenseSubmitted     OutboxEventType = "expense.submitted"
	EventExpenseAssigned      OutboxEventType = "expense.assigned"
	EventExpenseStatusChanged OutboxEventType = "expense.status_changed"
	EventMoneyAllocated       OutboxEventType = "money.allocated"
	EventMoneyReturned        OutboxEventType = "money.returned"
)

// OutboxAggregateType identifies the aggregate an outbox event belongs to.
type OutboxAggregateType string

const (
	AggregateExpense OutboxAggregateType = "expense"
	AggregateProfile OutboxAggregateType = "profile"
)
