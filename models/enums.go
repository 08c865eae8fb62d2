package models

import (
	"encoding/json"
	"fmt"
	"strings"
)

type OrderStatus string

const (
	OrderStatusDraft           OrderStatus = "DRAFT"
	OrderStatusAwaitingPayment OrderStatus = "AWAITING_PAYMENT"
	OrderStatusProcessing      OrderStatus = "PROCESSING"
	OrderStatusReadyToShip     OrderStatus = "READY_TO_SHIP"
	OrderStatusShipped         OrderStatus = "SHIPPED"
	OrderStatusCompleted       OrderStatus = "COMPLETED"
	OrderStatusCancelled       OrderStatus = "CANCELLED"
)

var allOrderStatuses = []OrderStatus{
	OrderStatusDraft, OrderStatusAwaitingPayment, OrderStatusProcessing,
	OrderStatusReadyToShip, OrderStatusShipped, OrderStatusCompleted, OrderStatusCancelled,
}

func (s OrderStatus) IsValid() bool {
	for _, v := range allOrderStatuses {
		if s == v {
			return true
		}
	}
	return false
}

// UnmarshalJSON accepts any casing ("completed", "Completed").
func (s *OrderStatus) UnmarshalJSON(b []byte) error {
	var str string
	if err := json.Unmarshal(b, &str); err != nil {
		return err
	}
	v := OrderStatus(strings.ToUpper(strings.TrimSpace(str)))
	if !v.IsValid() {
		return fmt.Errorf("invalid order status %q", str)
	}
	*s = v
	return nil
}

type MovementKind string

const (
	MovementKindIn         MovementKind = "IN"
	MovementKindOut        MovementKind = "OUT"
	MovementKindAdjustment MovementKind = "ADJUSTMENT"
)

func (k MovementKind) IsValid() bool {
	return k == MovementKindIn || k == MovementKindOut || k == MovementKindAdjustment
}

type MovementSource string

const (
	MovementSourceOrder            MovementSource = "ORDER"
	MovementSourceOrderCancel      MovementSource = "ORDER_CANCEL"
	MovementSourceOrderComplete    MovementSource = "ORDER_COMPLETE"
	MovementSourceUpstreamDelivery MovementSource = "UPSTREAM_DELIVERY"
	MovementSourceSale             MovementSource = "SALE"
	MovementSourceOpname           MovementSource = "OPNAME"
	MovementSourceManual           MovementSource = "MANUAL"
)

type AllocationChannel string

const (
	AllocationChannelNormal        AllocationChannel = "NORMAL"
	AllocationChannelDiscretionary AllocationChannel = "DISCRETIONARY"
)

func (c AllocationChannel) IsValid() bool {
	return c == AllocationChannelNormal || c == AllocationChannelDiscretionary
}

type PaymentChannel string

const (
	PaymentChannelCash     PaymentChannel = "CASH"
	PaymentChannelTransfer PaymentChannel = "TRANSFER"
	PaymentChannelQris     PaymentChannel = "QRIS"
	PaymentChannelOther    PaymentChannel = "OTHER"
)

func (c PaymentChannel) IsValid() bool {
	switch c {
	case PaymentChannelCash, PaymentChannelTransfer, PaymentChannelQris, PaymentChannelOther:
		return true
	}
	return false
}

type StockLevel string

const (
	StockLevelOk       StockLevel = "OK"
	StockLevelLow      StockLevel = "LOW"
	StockLevelCritical StockLevel = "CRITICAL"
)

type Role string

const (
	RoleAdmin     Role = "ADMIN"
	RoleAgent     Role = "AGENT"
	RolePangkalan Role = "PANGKALAN"
)

// IsDistributor is true for roles that act across tenants.
func (r Role) IsDistributor() bool {
	return r == RoleAdmin || r == RoleAgent
}
