package domain

import "time"

// Notification Model. Rows are written as a side effect of order events;
// read state is flipped by the owning user.
type Notification struct {
	ID        uint   `gorm:"primaryKey"`
	UserID    uint   `gorm:"index;not null"` // Recipient
	Type      string `gorm:"not null"`       // order_created, status_changed, driver_assigned, low_stock
	Title     string `gorm:"not null"`
	Body      string
	OrderID   *uint `gorm:"index"` // Related order, when applicable
	Read      bool  `gorm:"default:false"`
	CreatedAt time.Time
}

// VendorNotificationSetting holds per-vendor delivery preferences.
type VendorNotificationSetting struct {
	ID            uint `gorm:"primaryKey"`
	VendorID      uint `gorm:"uniqueIndex"`
	EmailEnabled  bool `gorm:"default:true"`
	SMSEnabled    bool `gorm:"default:true"`
	LowStockLevel int  `gorm:"default:5"` // Threshold that triggers a low-stock alert
}
