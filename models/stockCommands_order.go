package models

import (
	"fmt"
	"time"

	"github.com/mmdatafocus/lpg_backend/config"
	"github.com/mmdatafocus/lpg_backend/utils"
	"gorm.io/gorm"
)

// ApplyOrderStockForCreate posts one central OUT per line for a new order.
func ApplyOrderStockForCreate(tx *gorm.DB, order *Order) error {
	if tx == nil {
		return fmt.Errorf("tx is nil")
	}
	if order == nil {
		return fmt.Errorf("order is nil")
	}
	orderId := order.ID
	for i := range order.Lines {
		line := order.Lines[i]
		lineId := line.ID
		if _, err := AppendStockMovement(tx, NewStockMovement{
			ScopeId:     CentralScope,
			ProductId:   line.ProductId,
			Kind:        MovementKindOut,
			Qty:         line.Qty,
			Source:      MovementSourceOrder,
			Note:        order.OrderCode,
			OrderId:     &orderId,
			OrderLineId: &lineId,
		}); err != nil {
			return err
		}
	}
	return nil
}

// ApplyOrderStockForStatusTransition applies ledger and allocation effects of a status change.
//
// -> CANCELLED : reverse every un-reversed central OUT of the order
// -> COMPLETED : tenant stock +qty per line and today's distribution actual_normal += qty
func ApplyOrderStockForStatusTransition(tx *gorm.DB, order *Order, oldStatus OrderStatus) error {
	if tx == nil {
		return fmt.Errorf("tx is nil")
	}
	if order == nil {
		return fmt.Errorf("order is nil")
	}
	if oldStatus == order.CurrentStatus {
		return nil
	}

	switch order.CurrentStatus {
	case OrderStatusCancelled:
		return reverseOrderDeductions(tx, order)
	case OrderStatusCompleted:
		return completeOrderStock(tx, order, time.Now())
	}
	return nil
}

// reverseOrderDeductions correlates on order_id; lines replaced after creation do not
// change what is reversed.
func reverseOrderDeductions(tx *gorm.DB, order *Order) error {
	deductions, err := findOrderCentralDeductions(tx, order.ID)
	if err != nil {
		return err
	}
	orderId := order.ID
	for _, d := range deductions {
		originalId := d.ID
		if _, err := AppendStockMovement(tx, NewStockMovement{
			ScopeId:            CentralScope,
			ProductId:          d.ProductId,
			Kind:               MovementKindIn,
			Qty:                d.Qty,
			Source:             MovementSourceOrderCancel,
			Note:               "cancel " + order.OrderCode,
			OrderId:            &orderId,
			OrderLineId:        d.OrderLineId,
			ReversesMovementId: &originalId,
		}); err != nil {
			return err
		}
	}
	return nil
}

func completeOrderStock(tx *gorm.DB, order *Order, now time.Time) error {
	today, err := utils.ConvertToDate(now, config.Timezone())
	if err != nil {
		return err
	}
	orderId := order.ID
	for _, line := range order.Lines {
		if _, err := receiveTenantStockTx(tx, order.TenantId, line.ProductId, line.Qty, MovementSourceOrderComplete, order.OrderCode, &orderId); err != nil {
			return err
		}
		// completed orders always consume the normal channel
		if err := upsertDistributionTx(tx, order.TenantId, today, line.ProductId, line.Qty, 0, nil); err != nil {
			return err
		}
	}
	return nil
}
