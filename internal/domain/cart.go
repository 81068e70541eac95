package domain

import "time"

// CartItem Model. One row per (user, product); quantity is validated at
// mutation time, zero-quantity rows never exist.
type CartItem struct {
	ID        uint      `gorm:"primaryKey"`
	UserID    uint      `gorm:"index:idx_cart_user_product,unique;not null"` // Owning customer
	ProductID uint      `gorm:"index:idx_cart_user_product,unique;not null"` // Referenced product
	Quantity  int       `gorm:"not null"`
	AddedAt   time.Time `gorm:"autoCreateTime"`
}
