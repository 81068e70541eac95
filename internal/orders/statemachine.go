package orders

import (
	"errors"

	"marketplace_system/internal/domain"
)

var errUnknownStatus = errors.New("unknown order status")

// transitions is the strict whitelist. Anything not listed is rejected.
var transitions = map[domain.OrderStatus][]domain.OrderStatus{
	domain.OrderStatusPending:        {domain.OrderStatusConfirmed, domain.OrderStatusCancelled},
	domain.OrderStatusConfirmed:      {domain.OrderStatusPreparing, domain.OrderStatusCancelled},
	domain.OrderStatusPreparing:      {domain.OrderStatusReadyForPickup, domain.OrderStatusCancelled},
	domain.OrderStatusReadyForPickup: {domain.OrderStatusInTransit},
	domain.OrderStatusInTransit:      {domain.OrderStatusDelivered},
	domain.OrderStatusDelivered:      {}, // Terminal
	domain.OrderStatusCancelled:      {}, // Terminal
}

// CanTransition reports whether from -> to is whitelisted.
func CanTransition(from, to domain.OrderStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Actor is the authenticated party requesting a transition.
type Actor struct {
	UserID uint
	Role   string
}

// ValidateTransition applies the whitelist and the role gating rules.
// Pure: ownership against the concrete order is checked by the service.
func ValidateTransition(from, to domain.OrderStatus, actor Actor, reason string) error {
	if !domain.ValidOrderStatus(to) {
		return errUnknownStatus
	}
	if !CanTransition(from, to) {
		return &domain.InvalidTransitionError{From: from, To: to}
	}
	switch to {
	case domain.OrderStatusConfirmed, domain.OrderStatusPreparing, domain.OrderStatusReadyForPickup:
		if actor.Role != domain.RoleVendor {
			return &domain.ForbiddenTransitionError{Role: actor.Role, To: to}
		}
	case domain.OrderStatusInTransit, domain.OrderStatusDelivered:
		if actor.Role != domain.RoleDriver {
			return &domain.ForbiddenTransitionError{Role: actor.Role, To: to}
		}
	case domain.OrderStatusCancelled:
		if actor.Role != domain.RoleVendor && actor.Role != domain.RoleAdmin {
			return &domain.ForbiddenTransitionError{Role: actor.Role, To: to}
		}
		// Cancelling past pending needs an explanation on record
		if from != domain.OrderStatusPending && reason == "" {
			return &domain.ForbiddenTransitionError{
				Role:   actor.Role,
				To:     to,
				Reason: "cancellation after confirmation requires a reason",
			}
		}
	}
	return nil
}
