package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors
var (
	ErrEmptyCart        = errors.New("cart is empty")
	ErrOrderNotFound    = errors.New("order not found")
	ErrUserNotFound     = errors.New("user not found")
	ErrProtectedAccount = errors.New("account is protected and cannot be deleted")
	ErrTimeout          = errors.New("operation timed out, try again")
)

// InvalidTransitionError is returned when a status transition is not in
// the whitelist for the order's current state.
type InvalidTransitionError struct {
	From OrderStatus
	To   OrderStatus
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid transition %s -> %s", e.From, e.To)
}

// ForbiddenTransitionError is returned when the acting user's role or
// ownership does not permit the requested transition.
type ForbiddenTransitionError struct {
	Role   string
	To     OrderStatus
	Reason string
}

func (e *ForbiddenTransitionError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("role %s may not set status %s: %s", e.Role, e.To, e.Reason)
	}
	return fmt.Sprintf("role %s may not set status %s", e.Role, e.To)
}

// StaleStateError is returned to the loser of a concurrent transition
// race. The caller should re-read the order and may retry.
type StaleStateError struct {
	OrderID  uint
	Expected OrderStatus
}

func (e *StaleStateError) Error() string {
	return fmt.Sprintf("order %d no longer in status %s", e.OrderID, e.Expected)
}

// InsufficientStockError rejects a stock decrement below zero.
type InsufficientStockError struct {
	ProductID uint
	Requested int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %d (requested %d)", e.ProductID, e.Requested)
}

// ProductUnavailableError marks a cart line whose product was deleted or
// deactivated between add-to-cart and checkout.
type ProductUnavailableError struct {
	ProductID uint
}

func (e *ProductUnavailableError) Error() string {
	return fmt.Sprintf("product %d is no longer available", e.ProductID)
}

// DependencyCleanupError records a deletion step that failed while the
// orchestrator kept going.
type DependencyCleanupError struct {
	Table string
	Err   error
}

func (e *DependencyCleanupError) Error() string {
	return fmt.Sprintf("cleanup of %s failed: %v", e.Table, e.Err)
}

func (e *DependencyCleanupError) Unwrap() error { return e.Err }
