package domain

import "time"

// Payment Model. An order may accumulate several attempts (retries,
// partial refunds), so this is 1:N with Order.
type Payment struct {
	ID             uint   `gorm:"primaryKey"`
	OrderID        uint   `gorm:"index;not null"` // Foreign key to Order
	UserID         uint   `gorm:"index;not null"` // Paying customer
	Amount         int64  `gorm:"not null"`
	Method         string `gorm:"not null"` // cash, orange_money, moov_money
	Status         string `gorm:"default:pending"`
	TransactionRef string // External provider transaction id
	FailureReason  string
	CreatedAt      time.Time
}
