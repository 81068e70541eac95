package db

import (
	"marketplace_system/internal/domain" // Importing domain models

	"github.com/sirupsen/logrus"

	"gorm.io/driver/mysql" // MySQL driver for GORM
	"gorm.io/gorm"         // GORM ORM library
)

// Models lists every table in dependency-safe creation order.
func Models() []any {
	return []any{
		&domain.User{},
		&domain.Vendor{},
		&domain.Driver{},
		&domain.Category{},
		&domain.Product{},
		&domain.CartItem{},
		&domain.Order{},
		&domain.OrderItem{},
		&domain.Payment{},
		&domain.Review{},
		&domain.ReviewVote{},
		&domain.ReviewResponse{},
		&domain.Notification{},
		&domain.VendorNotificationSetting{},
		&domain.VendorTrustScore{},
		&domain.UserPreference{},
		&domain.SearchLog{},
		&domain.SecurityEvent{},
		&domain.RateLimitViolation{},
		&domain.VerificationToken{},
		&domain.ChatRoom{},
		&domain.ChatMember{},
		&domain.ChatMessage{},
	}
}

// Migrate performs automatic migration for the database schema
func Migrate(dsn string) {
	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{})
	if err != nil {
		logrus.Fatalf("failed to connect database: %v", err)
	}
	// AutoMigrate will create tables, missing foreign keys, constraints, columns and indexes
	if err := db.AutoMigrate(Models()...); err != nil {
		logrus.Fatalf("migration failed: %v", err)
	}
	logrus.Info("Migration completed.")
}
