package models

import (
	"errors"
	"testing"
)

func TestValidateTransition_AllowList(t *testing.T) {
	allowed := map[[2]OrderStatus]bool{
		{OrderStatusDraft, OrderStatusAwaitingPayment}:      true,
		{OrderStatusDraft, OrderStatusCancelled}:            true,
		{OrderStatusAwaitingPayment, OrderStatusProcessing}: true,
		{OrderStatusAwaitingPayment, OrderStatusCancelled}:  true,
		{OrderStatusProcessing, OrderStatusReadyToShip}:     true,
		{OrderStatusProcessing, OrderStatusShipped}:         true,
		{OrderStatusProcessing, OrderStatusCancelled}:       true,
		{OrderStatusReadyToShip, OrderStatusShipped}:        true,
		{OrderStatusReadyToShip, OrderStatusCancelled}:      true,
		{OrderStatusShipped, OrderStatusCompleted}:          true,
		{OrderStatusShipped, OrderStatusCancelled}:          true,
	}

	for _, from := range allOrderStatuses {
		for _, to := range allOrderStatuses {
			err := ValidateTransition(1, from, to)
			switch {
			case from.IsTerminal():
				if !errors.Is(err, ErrAlreadyTerminal) {
					t.Fatalf("%s -> %s: expected ErrAlreadyTerminal, got %v", from, to, err)
				}
			case allowed[[2]OrderStatus{from, to}]:
				if err != nil {
					t.Fatalf("%s -> %s: expected allowed, got %v", from, to, err)
				}
			default:
				if !errors.Is(err, ErrInvalidTransition) {
					t.Fatalf("%s -> %s: expected ErrInvalidTransition, got %v", from, to, err)
				}
			}
		}
	}
}

func TestValidateTransition_TerminalCheckedFirst(t *testing.T) {
	// CANCELLED -> AWAITING_PAYMENT is also not in the allow-list; terminal wins.
	err := ValidateTransition(7, OrderStatusCancelled, OrderStatusAwaitingPayment)
	var terminal *AlreadyTerminalError
	if !errors.As(err, &terminal) {
		t.Fatalf("expected AlreadyTerminalError, got %T %v", err, err)
	}
	if terminal.OrderId != 7 || terminal.Status != OrderStatusCancelled {
		t.Fatalf("unexpected error fields: %+v", terminal)
	}
}

func TestValidateTransition_InvalidCarriesFromTo(t *testing.T) {
	err := ValidateTransition(1, OrderStatusDraft, OrderStatusShipped)
	var invalid *InvalidTransitionError
	if !errors.As(err, &invalid) {
		t.Fatalf("expected InvalidTransitionError, got %v", err)
	}
	if invalid.From != OrderStatusDraft || invalid.To != OrderStatusShipped {
		t.Fatalf("unexpected from/to: %+v", invalid)
	}
}

func TestValidateTransition_SameStatusRejected(t *testing.T) {
	if err := ValidateTransition(1, OrderStatusProcessing, OrderStatusProcessing); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected self transition to be rejected, got %v", err)
	}
}

func TestOrderStatusUnmarshalJSON(t *testing.T) {
	var s OrderStatus
	if err := s.UnmarshalJSON([]byte(`"ready_to_ship"`)); err != nil {
		t.Fatalf("UnmarshalJSON: %v", err)
	}
	if s != OrderStatusReadyToShip {
		t.Fatalf("expected READY_TO_SHIP, got %s", s)
	}
	if err := s.UnmarshalJSON([]byte(`"LOST"`)); err == nil {
		t.Fatalf("expected unknown status to fail")
	}
}
