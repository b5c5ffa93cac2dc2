package notifications

import (
	"context"
	"encoding/json"
	"fmt"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"

	"github.com/tripdeskhq/tripdesk-backend/pkg/db/models"
	"github.com/tripdeskhq/tripdesk-backend/pkg/enums"
	"github.com/tripdeskhq/tripdesk-backend/pkg/logger"
	"github.com/tripdeskhq/tripdesk-backend/pkg/outbox"
	"github.com/tripdeskhq/tripdesk-backend/pkg/outbox/idempotency"
	"github.com/tripdeskhq/tripdesk-backend/pkg/outbox/payloads"
)

const workflowNotificationConsumer = "workflow-notifications"

type repository interface {
	Create(ctx context.Context, notification *models.Notification) error
}

// Consumer watches domain events and turns expense transitions and balance
// movements into in-app notifications.
type Consumer struct {
	repo         repository
	subscription *pubsub.Subscriber
	idempotency  *idempotency.Manager
	logg         *logger.Logger
}

// NewConsumer builds a workflow notification consumer.
func NewConsumer(repo repository, subscription *pubsub.Subscriber, manager *idempotency.Manager, logg *logger.Logger) (*Consumer, error) {
	if repo == nil {
		return nil, fmt.Errorf("notifications repository required")
	}
	if subscription == nil {
		return nil, fmt.Errorf("domain subscription required")
	}
	if manager == nil {
		return nil, fmt.Errorf("idempotency manager required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Consumer{
		repo:         repo,
		subscription: subscription,
		idempotency:  manager,
		logg:         logg,
	}, nil
}

// Run starts the consumer loop until the context is canceled.
func (c *Consumer) Run(ctx context.Context) error {
	return c.subscription.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		result := c.process(ctx, msg)
		if result.nack {
			msg.Nack()
			return
		}
		msg.Ack()
	})
}

type processResult struct {
	ack  bool
	nack bool
}

func (c *Consumer) process(ctx context.Context, msg *pubsub.Message) processResult {
	eventType := enums.OutboxEventType(msg.Attributes["event_type"])
	fields := map[string]any{
		"message_id": msg.ID,
		"event_type": eventType,
	}
	logCtx := c.logg.WithFields(ctx, fields)

	if !handledEvent(eventType) {
		c.logg.Info(logCtx, "skipping unhandled event")
		return processResult{ack: true}
	}

	var envelope outbox.PayloadEnvelope
	if err := json.Unmarshal(msg.Data, &envelope); err != nil {
		c.logg.Error(logCtx, "failed to decode envelope", err)
		return processResult{ack: true}
	}

	eventID, err := uuid.Parse(envelope.EventID)
	if err != nil {
		c.logg.Error(logCtx, "invalid event id", err)
		return processResult{ack: true}
	}

	already, err := c.idempotency.CheckAndMarkProcessed(ctx, workflowNotificationConsumer, eventID)
	if err != nil {
		c.logg.Error(logCtx, "idempotency check failed", err)
		return processResult{nack: true}
	}
	if already {
		c.logg.Info(logCtx, "event already processed")
		return processResult{ack: true}
	}

	if err := c.handle(ctx, eventType, envelope.Data, logCtx); err != nil {
		c.logg.Error(logCtx, "notification handling failed", err)
		_ = c.idempotency.Delete(ctx, workflowNotificationConsumer, eventID)
		return processResult{nack: true}
	}

	return processResult{ack: true}
}

func handledEvent(eventType enums.OutboxEventType) bool {
	switch eventType {
	case enums.EventExpenseSubmitted, enums.EventExpenseAssigned,
		enums.EventExpenseStatusChanged, enums.EventMoneyAllocated,
		enums.EventMoneyReturned:
		return true
	default:
		return false
	}
}

func (c *Consumer) handle(ctx context.Context, eventType enums.OutboxEventType, data json.RawMessage, logCtx context.Context) error {
	switch eventType {
	case enums.EventExpenseSubmitted, enums.EventExpenseAssigned:
		return c.notifyEngineer(ctx, data, logCtx)
	case enums.EventExpenseStatusChanged:
		return c.notifyOwner(ctx, data, logCtx)
	case enums.EventMoneyAllocated, enums.EventMoneyReturned:
		return c.notifyRecipient(ctx, eventType, data, logCtx)
	default:
		return nil
	}
}

func (c *Consumer) notifyEngineer(ctx context.Context, data json.RawMessage, logCtx context.Context) error {
	var payload payloads.ExpenseEventPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return err
	}
	if payload.AssignedEngineerID == nil || *payload.AssignedEngineerID == uuid.Nil {
		return fmt.Errorf("assigned engineer missing")
	}

	expenseID := payload.ExpenseID
	notification := &models.Notification{
		UserID:    *payload.AssignedEngineerID,
		Type:      enums.NotificationTypeExpenseUpdate,
		Title:     "Expense awaiting review",
		Message:   fmt.Sprintf("Expense %q (%s) was routed to you for verification.", payload.Title, payload.Amount.String()),
		ExpenseID: &expenseID,
	}
	if err := c.repo.Create(ctx, notification); err != nil {
		return err
	}
	c.logg.Info(logCtx, "engineer notified of pending expense")
	return nil
}

func (c *Consumer) notifyOwner(ctx context.Context, data json.RawMessage, logCtx context.Context) error {
	var payload payloads.ExpenseEventPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return err
	}
	if payload.OwnerID == uuid.Nil {
		return fmt.Errorf("owner id missing")
	}

	title := "Expense updated"
	message := fmt.Sprintf("Expense %q is now %s.", payload.Title, payload.Status)
	switch payload.Status {
	case enums.ExpenseStatusVerified:
		title = "Expense verified"
		message = fmt.Sprintf("Expense %q was verified and sent for approval.", payload.Title)
	case enums.ExpenseStatusApproved:
		title = "Expense approved"
		message = fmt.Sprintf("Expense %q was approved. %s was deducted from your balance.", payload.Title, payload.Amount.String())
	case enums.ExpenseStatusRejected:
		title = "Expense rejected"
		message = fmt.Sprintf("Expense %q was rejected.", payload.Title)
		if payload.Comment != "" {
			message = fmt.Sprintf("Expense %q was rejected: %s", payload.Title, payload.Comment)
		}
	}

	expenseID := payload.ExpenseID
	notification := &models.Notification{
		UserID:    payload.OwnerID,
		Type:      enums.NotificationTypeExpenseUpdate,
		Title:     title,
		Message:   message,
		ExpenseID: &expenseID,
	}
	if err := c.repo.Create(ctx, notification); err != nil {
		return err
	}
	c.logg.Info(logCtx, "owner notified of expense change")
	return nil
}

func (c *Consumer) notifyRecipient(ctx context.Context, eventType enums.OutboxEventType, data json.RawMessage, logCtx context.Context) error {
	var payload payloads.MoneyMovedPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return err
	}
	if payload.ToUserID == uuid.Nil {
		return fmt.Errorf("recipient id missing")
	}

	title := "Balance updated"
	message := fmt.Sprintf("You received %s.", payload.Amount.String())
	if eventType == enums.EventMoneyReturned && payload.FromUserID != nil {
		message = fmt.Sprintf("%s was returned to you by %s.", payload.Amount.String(), payload.FromUserID)
	}

	notification := &models.Notification{
		UserID:  payload.ToUserID,
		Type:    enums.NotificationTypeBalanceUpdate,
		Title:   title,
		Message: message,
	}
	if err := c.repo.Create(ctx, notification); err != nil {
		return err
	}
	c.logg.Info(logCtx, "recipient notified of balance change")
	return nil
}
