package domain

import "time"

// Vendor approval statuses
const (
	VendorStatusPending   = "pending"
	VendorStatusApproved  = "approved"
	VendorStatusRejected  = "rejected"
	VendorStatusSuspended = "suspended"
)

// Vendor Model
type Vendor struct {
	ID             uint    `gorm:"primaryKey"`          // Primary key
	UserID         uint    `gorm:"uniqueIndex"`         // Foreign key to User (one profile per user)
	BusinessName   string  `gorm:"not null"`            // Shop name shown to customers
	Status         string  `gorm:"default:pending"`     // pending, approved, rejected or suspended
	CommissionRate float64 `gorm:"not null;default:10"` // Platform commission in percent; mutable, orders keep their own snapshot
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// VendorTrustScore tracks a rolling quality score per vendor.
type VendorTrustScore struct {
	ID        uint    `gorm:"primaryKey"`
	VendorID  uint    `gorm:"uniqueIndex"` // Foreign key to Vendor
	Score     float64 `gorm:"default:0"`
	Orders    int     `gorm:"default:0"` // Orders counted into the score
	UpdatedAt time.Time
}
