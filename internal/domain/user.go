package domain

import "time"

// User roles
const (
	RoleCustomer = "customer" // Shops and places orders
	RoleVendor   = "vendor"   // Sells products, fulfills orders
	RoleDriver   = "driver"   // Delivers orders
	RoleAdmin    = "admin"    // Platform operator
)

// User Model
type User struct {
	ID           uint    `gorm:"primaryKey"`      // Primary key
	Email        string  `gorm:"unique;not null"` // Unique email address
	Phone        string  // Optional phone number (SMS channel)
	Name         string  // Display name
	PasswordHash string  `gorm:"not null"`                                      // Hashed password
	Role         string  `gorm:"default:customer"`                              // customer, vendor, driver or admin
	Protected    bool    `gorm:"default:false"`                                 // Protected accounts can never be deleted
	Vendor       *Vendor `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"` // Optional vendor profile (1:0..1)
	Driver       *Driver `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"` // Optional driver profile (1:0..1)
	CreatedAt    time.Time
}
