package notify

import "marketplace_system/internal/domain"

type EventType string

const (
	EventOrderCreated   EventType = "order_created"
	EventStatusChanged  EventType = "status_changed"
	EventDriverAssigned EventType = "driver_assigned"
	EventLowStock       EventType = "low_stock"
)

// Event is an order-lifecycle fact handed to the dispatcher after the
// owning transaction has committed.
type Event struct {
	Type      EventType
	Order     domain.Order
	NewStatus domain.OrderStatus // For status_changed
	Message   string             // Optional free-text detail
	VendorID  uint               // For low_stock
	LowStock  []domain.Product   // For low_stock
}

// Sink receives committed events. Implementations must be best-effort:
// a Dispatch call never propagates a failure back to the caller.
type Sink interface {
	Dispatch(ev Event)
}

// AsyncSink moves dispatch off the caller's critical path.
type AsyncSink struct {
	Inner Sink
}

func (s AsyncSink) Dispatch(ev Event) {
	go s.Inner.Dispatch(ev)
}
