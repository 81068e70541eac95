package domain

import (
	"encoding/json"
	"time"
)

type OrderStatus string

// Order statuses. Pending is the only initial state; delivered and
// cancelled are terminal.
const (
	OrderStatusPending        OrderStatus = "pending"
	OrderStatusConfirmed      OrderStatus = "confirmed"
	OrderStatusPreparing      OrderStatus = "preparing"
	OrderStatusReadyForPickup OrderStatus = "ready_for_pickup"
	OrderStatusInTransit      OrderStatus = "in_transit"
	OrderStatusDelivered      OrderStatus = "delivered"
	OrderStatusCancelled      OrderStatus = "cancelled"
)

// ValidOrderStatus reports whether s names a known status.
func ValidOrderStatus(s OrderStatus) bool {
	switch s {
	case OrderStatusPending, OrderStatusConfirmed, OrderStatusPreparing,
		OrderStatusReadyForPickup, OrderStatusInTransit,
		OrderStatusDelivered, OrderStatusCancelled:
		return true
	}
	return false
}

// Delivery types
const (
	DeliveryStandard = "standard"
	DeliveryExpress  = "express"
	DeliveryPickup   = "pickup" // Customer collects, no delivery fee
)

// Payment methods and statuses
const (
	PaymentMethodCash        = "cash"
	PaymentMethodOrangeMoney = "orange_money"
	PaymentMethodMoovMoney   = "moov_money"

	PaymentStatusPending   = "pending"
	PaymentStatusCompleted = "completed"
	PaymentStatusFailed    = "failed"
	PaymentStatusRefunded  = "refunded"
)

// Address model embedded in Order
type Address struct {
	Line1    string
	City     string
	Quarter  string
	Landmark string
	Phone    string
}

// Order Model. The money fields are computed once at creation and never
// recomputed; a later change to the vendor's commission rate does not
// touch historical orders.
type Order struct {
	ID          uint   `gorm:"primaryKey"`
	OrderNumber string `gorm:"uniqueIndex;not null"` // Human-readable reference
	CustomerID  uint   `gorm:"index;not null"`       // Foreign key to User
	VendorID    uint   `gorm:"index;not null"`       // Foreign key to Vendor
	DriverID    *uint  `gorm:"index"`                // Foreign key to Driver, set at pickup

	Status OrderStatus `gorm:"type:VARCHAR(20);default:'pending';index"`

	Subtotal        int64   `gorm:"not null"` // Sum of item total prices
	DeliveryFee     int64   `gorm:"not null"`
	Tax             int64   `gorm:"not null;default:0"`
	Total           int64   `gorm:"not null"` // subtotal + deliveryFee + tax
	CommissionRate  float64 `gorm:"not null"` // Vendor rate snapshot at creation, percent
	Commission      int64   `gorm:"not null"` // round(subtotal * rate / 100)
	VendorEarnings  int64   `gorm:"not null"` // subtotal - commission
	PlatformRevenue int64   `gorm:"not null"` // equals commission

	PaymentMethod string `gorm:"not null"`
	PaymentStatus string `gorm:"type:VARCHAR(20);default:'pending'"`

	DeliveryType    string  `gorm:"default:standard"`
	DeliveryAddress Address `gorm:"embedded;embeddedPrefix:addr_"`
	CancelReason    string

	Items    []OrderItem `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	Payments []Payment   `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`

	CreatedAt   time.Time
	UpdatedAt   time.Time
	ConfirmedAt *time.Time
	DeliveredAt *time.Time
	CancelledAt *time.Time
}

// OrderItem Model. Created atomically with its Order, never mutated.
// Snapshot decouples order history from the live product lifecycle.
type OrderItem struct {
	ID         uint  `gorm:"primaryKey"`
	OrderID    uint  `gorm:"index;not null"`
	ProductID  uint  `gorm:"index"` // Live product reference; may dangle after product deletion
	Quantity   int   `gorm:"not null"`
	UnitPrice  int64 `gorm:"not null"` // Price at order time
	TotalPrice int64 `gorm:"not null"` // unitPrice * quantity

	Snapshot ProductSnapshot `gorm:"type:json;serializer:json"` // Immutable product state at order time
}

// ProductSnapshot is the versioned record stored on each order item.
// Name, Price and Image are required; Extra is an open bag for
// vendor-specific fields.
type ProductSnapshot struct {
	Version int            `json:"version"`
	Name    string         `json:"name"`
	Price   int64          `json:"price"`
	Image   string         `json:"image,omitempty"`
	Extra   map[string]any `json:"extra,omitempty"`
}

// ParseProductSnapshot decodes raw snapshot JSON defensively: missing
// optional fields default instead of failing, and an absent version is
// treated as version 1.
func ParseProductSnapshot(raw []byte) (ProductSnapshot, error) {
	var s ProductSnapshot
	if len(raw) == 0 {
		s.Version = 1
		return s, nil
	}
	if err := json.Unmarshal(raw, &s); err != nil {
		return ProductSnapshot{}, err
	}
	if s.Version == 0 {
		s.Version = 1
	}
	return s, nil
}
