package models

import (
	"errors"
	"fmt"
)

// Sentinels for errors.Is; the typed errors below unwrap to them.
var (
	ErrNotFound          = errors.New("not found")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrInvalidQuantity   = errors.New("invalid quantity")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrAlreadyTerminal   = errors.New("order is already in a terminal status")
	ErrUnresolvedProduct = errors.New("unresolved product")
)

type NotFoundError struct {
	Resource string
	Id       any
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %v not found", e.Resource, e.Id)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

type InvalidTransitionError struct {
	From OrderStatus
	To   OrderStatus
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("cannot change order status from %s to %s", e.From, e.To)
}

func (e *InvalidTransitionError) Unwrap() error { return ErrInvalidTransition }

type InvalidQuantityError struct {
	Field string
	Qty   int64
}

func (e *InvalidQuantityError) Error() string {
	return fmt.Sprintf("%s must be greater than zero (got %d)", e.Field, e.Qty)
}

func (e *InvalidQuantityError) Unwrap() error { return ErrInvalidQuantity }

type InsufficientStockError struct {
	TenantId  int
	ProductId int
	Available int64
	Requested int64
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for tenant %d product %d: available %d, requested %d",
		e.TenantId, e.ProductId, e.Available, e.Requested)
}

func (e *InsufficientStockError) Unwrap() error { return ErrInsufficientStock }

type AlreadyTerminalError struct {
	OrderId int
	Status  OrderStatus
}

func (e *AlreadyTerminalError) Error() string {
	return fmt.Sprintf("order %d is already %s", e.OrderId, e.Status)
}

func (e *AlreadyTerminalError) Unwrap() error { return ErrAlreadyTerminal }

type UnresolvedProductError struct {
	Input string
}

func (e *UnresolvedProductError) Error() string {
	return fmt.Sprintf("product %q does not match any catalog product", e.Input)
}

func (e *UnresolvedProductError) Unwrap() error { return ErrUnresolvedProduct }

func invalidQty(field string, qty int64) error {
	return &InvalidQuantityError{Field: field, Qty: qty}
}
