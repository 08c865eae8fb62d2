package models

import (
	"context"
	"fmt"

	"github.com/mmdatafocus/lpg_backend/config"
	"go.opentelemetry.io/otel/attribute"
	"gorm.io/gorm"
)

var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusDraft:           {OrderStatusAwaitingPayment, OrderStatusCancelled},
	OrderStatusAwaitingPayment: {OrderStatusProcessing, OrderStatusCancelled},
	OrderStatusProcessing:      {OrderStatusReadyToShip, OrderStatusShipped, OrderStatusCancelled},
	OrderStatusReadyToShip:     {OrderStatusShipped, OrderStatusCancelled},
	OrderStatusShipped:         {OrderStatusCompleted, OrderStatusCancelled},
}

func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusCompleted || s == OrderStatusCancelled
}

// AllowedTransitions lists the statuses reachable from s.
func (s OrderStatus) AllowedTransitions() []OrderStatus {
	return orderTransitions[s]
}

// ValidateTransition checks terminal states before the allow-list.
func ValidateTransition(orderId int, from OrderStatus, to OrderStatus) error {
	if from.IsTerminal() {
		return &AlreadyTerminalError{OrderId: orderId, Status: from}
	}
	for _, next := range orderTransitions[from] {
		if next == to {
			return nil
		}
	}
	return &InvalidTransitionError{From: from, To: to}
}

// applyTransitionTx validates, writes the status and its event, and applies stock side effects.
// order must be locked by the caller.
func applyTransitionTx(tx *gorm.DB, order *Order, target OrderStatus, note string) error {
	if err := ValidateTransition(order.ID, order.CurrentStatus, target); err != nil {
		return err
	}
	oldStatus := order.CurrentStatus
	if err := tx.Model(order).Update("current_status", target).Error; err != nil {
		return fmt.Errorf("update order status: %w", err)
	}
	order.CurrentStatus = target
	if err := appendStatusEvent(tx, order.ID, target, note); err != nil {
		return err
	}
	return ApplyOrderStockForStatusTransition(tx, order, oldStatus)
}

// TransitionOrder moves an order to target. The status write, its event and every
// ledger/allocation effect commit together or not at all.
func TransitionOrder(ctx context.Context, id int, target OrderStatus, note string) (*Order, error) {
	ctx, span := startSpan(ctx, "TransitionOrder", attribute.Int("order_id", id), attribute.String("target", string(target)))
	var err error
	defer func() { endSpan(span, err) }()

	if !target.IsValid() {
		err = fmt.Errorf("invalid order status %q", target)
		return nil, err
	}

	var order *Order
	var oldStatus OrderStatus
	err = config.GetDB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		locked, err := lockOrder(ctx, tx, id)
		if err != nil {
			return err
		}
		oldStatus = locked.CurrentStatus
		if err := applyTransitionTx(tx, locked, target, note); err != nil {
			return err
		}
		order = locked
		return nil
	})
	if err != nil {
		return nil, err
	}

	RecordAudit(ctx, AuditEvent{
		EventType:   AuditOrderStatusChanged,
		Title:       fmt.Sprintf("Order %s", target),
		TenantId:    order.TenantId,
		OrderRef:    order.OrderCode,
		Detail:      order.Total.IntPart(),
		Description: fmt.Sprintf("%s -> %s", oldStatus, target),
	})
	return GetOrder(ctx, id)
}
