package accounts

import (
	"context"

	"gorm.io/gorm"

	dbpkg "marketplace_system/internal/db"
	"marketplace_system/internal/domain"
)

// TableRef reports residual rows in one user-referencing table.
type TableRef struct {
	Table string `json:"table"`
	Count int64  `json:"count"`
}

// refCheck counts rows in one table that still reference a user.
type refCheck struct {
	table string
	count func(db *gorm.DB, userID uint) (int64, error)
}

func byUserID(model any) func(db *gorm.DB, userID uint) (int64, error) {
	return func(db *gorm.DB, userID uint) (int64, error) {
		var n int64
		err := db.Model(model).Where("user_id = ?", userID).Count(&n).Error
		return n, err
	}
}

// refChecks enumerates every table known to reference users. A deletion
// that still fails after the main pass usually means a table is missing
// here; this scan is the troubleshooting companion.
func refChecks() []refCheck {
	return []refCheck{
		{"user_preferences", byUserID(&domain.UserPreference{})},
		{"search_logs", byUserID(&domain.SearchLog{})},
		{"security_events", byUserID(&domain.SecurityEvent{})},
		{"rate_limit_violations", byUserID(&domain.RateLimitViolation{})},
		{"verification_tokens", byUserID(&domain.VerificationToken{})},
		{"review_votes", byUserID(&domain.ReviewVote{})},
		{"review_responses", byUserID(&domain.ReviewResponse{})},
		{"reviews", byUserID(&domain.Review{})},
		{"payments", byUserID(&domain.Payment{})},
		{"cart_items", byUserID(&domain.CartItem{})},
		{"chat_members", byUserID(&domain.ChatMember{})},
		{"notifications", byUserID(&domain.Notification{})},
		{"vendors", byUserID(&domain.Vendor{})},
		{"drivers", byUserID(&domain.Driver{})},
		{"orders", func(db *gorm.DB, userID uint) (int64, error) {
			var n int64
			err := db.Model(&domain.Order{}).Where("customer_id = ?", userID).Count(&n).Error
			return n, err
		}},
		{"chat_messages", func(db *gorm.DB, userID uint) (int64, error) {
			var n int64
			err := db.Model(&domain.ChatMessage{}).Where("sender_id = ?", userID).Count(&n).Error
			return n, err
		}},
		{"chat_rooms", func(db *gorm.DB, userID uint) (int64, error) {
			var n int64
			err := db.Model(&domain.ChatRoom{}).Where("created_by_id = ?", userID).Count(&n).Error
			return n, err
		}},
	}
}

// ScanReferences runs the read-only diagnostic pass, returning only the
// tables with nonzero remaining references.
func (o *Orchestrator) ScanReferences(ctx context.Context, userID uint) ([]TableRef, error) {
	db := o.db.WithContext(ctx)
	var out []TableRef
	for _, check := range refChecks() {
		n, err := check.count(db, userID)
		if err != nil {
			return nil, dbpkg.MapError(err)
		}
		if n > 0 {
			out = append(out, TableRef{Table: check.table, Count: n})
		}
	}
	return out, nil
}
