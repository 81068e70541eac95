package domain

import "time"

// Product Model
type Product struct {
	ID          uint   `gorm:"primaryKey"`     // Primary key
	VendorID    uint   `gorm:"index;not null"` // Owning vendor
	CategoryID  *uint  `gorm:"index"`          // Optional category
	Name        string `gorm:"not null"`
	Description string
	Image       string
	Price       int64 `gorm:"not null"`           // Unit price in minor units (CFA francs)
	Quantity    int   `gorm:"not null;default:0"` // Stock on hand
	Active      bool  `gorm:"default:true"`
	Featured    bool  `gorm:"default:false"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Category is a self-referencing tree node. Traversal is iterative over
// the id index, never a recursive object graph.
type Category struct {
	ID       uint   `gorm:"primaryKey"`
	Name     string `gorm:"not null"`
	ParentID *uint  `gorm:"index"` // Nil for root categories
}
