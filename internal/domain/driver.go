package domain

import "time"

// Driver Model
type Driver struct {
	ID        uint    `gorm:"primaryKey"`    // Primary key
	UserID    uint    `gorm:"uniqueIndex"`   // Foreign key to User (one profile per user)
	Online    bool    `gorm:"default:false"` // Availability flag
	Latitude  float64 // Last known position
	Longitude float64
	UpdatedAt time.Time
}
