package accounts

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	dbpkg "marketplace_system/internal/db"
	"marketplace_system/internal/domain"
)

// Orchestrator removes a user and every row that directly or
// transitively references them. The cleanup order is a declared
// dependency graph walked topologically: adding a new referencing table
// is a graph entry, not a new hand-ordered statement.
type Orchestrator struct {
	db          *gorm.DB
	protectedID uint          // Configured account that must never be deleted
	stmtTimeout time.Duration // Per-step deadline; zero disables it
}

func NewOrchestrator(db *gorm.DB, protectedID uint, stmtTimeout time.Duration) *Orchestrator {
	return &Orchestrator{db: db, protectedID: protectedID, stmtTimeout: stmtTimeout}
}

// Report summarizes one deletion pass. Failures carry the steps that
// errored while the orchestrator kept going.
type Report struct {
	UserID   uint
	Cleaned  []string
	Failures []*domain.DependencyCleanupError
}

// target caches the ids each cleanup step scopes its deletes by.
type target struct {
	user       domain.User
	vendor     *domain.Vendor
	driver     *domain.Driver
	productIDs []uint // Products owned by the user's vendor profile
	orderIDs   []uint // Orders where the user is customer, plus the vendor's received orders
	reviewIDs  []uint // Reviews to remove: authored, on vendor products, on affected orders
}

// step is one node of the cleanup graph.
type step struct {
	table string
	needs []string // Tables that must be cleared before this one
	run   func(db *gorm.DB, t *target) error
}

func steps() []step {
	return []step{
		{table: "user_preferences", run: func(db *gorm.DB, t *target) error {
			return db.Where("user_id = ?", t.user.ID).Delete(&domain.UserPreference{}).Error
		}},
		{table: "search_logs", run: func(db *gorm.DB, t *target) error {
			return db.Where("user_id = ?", t.user.ID).Delete(&domain.SearchLog{}).Error
		}},
		{table: "security_events", run: func(db *gorm.DB, t *target) error {
			return db.Where("user_id = ?", t.user.ID).Delete(&domain.SecurityEvent{}).Error
		}},
		{table: "rate_limit_violations", run: func(db *gorm.DB, t *target) error {
			return db.Where("user_id = ?", t.user.ID).Delete(&domain.RateLimitViolation{}).Error
		}},
		{table: "verification_tokens", run: func(db *gorm.DB, t *target) error {
			return db.Where("user_id = ?", t.user.ID).Delete(&domain.VerificationToken{}).Error
		}},
		{table: "review_votes", run: func(db *gorm.DB, t *target) error {
			if err := db.Where("user_id = ?", t.user.ID).Delete(&domain.ReviewVote{}).Error; err != nil {
				return err
			}
			if len(t.reviewIDs) == 0 {
				return nil
			}
			return db.Where("review_id IN ?", t.reviewIDs).Delete(&domain.ReviewVote{}).Error
		}},
		{table: "review_responses", run: func(db *gorm.DB, t *target) error {
			if err := db.Where("user_id = ?", t.user.ID).Delete(&domain.ReviewResponse{}).Error; err != nil {
				return err
			}
			if len(t.reviewIDs) == 0 {
				return nil
			}
			return db.Where("review_id IN ?", t.reviewIDs).Delete(&domain.ReviewResponse{}).Error
		}},
		{table: "reviews", needs: []string{"review_votes", "review_responses"}, run: func(db *gorm.DB, t *target) error {
			if len(t.reviewIDs) == 0 {
				return nil
			}
			return db.Where("id IN ?", t.reviewIDs).Delete(&domain.Review{}).Error
		}},
		{table: "payments", run: func(db *gorm.DB, t *target) error {
			if err := db.Where("user_id = ?", t.user.ID).Delete(&domain.Payment{}).Error; err != nil {
				return err
			}
			if len(t.orderIDs) == 0 {
				return nil
			}
			return db.Where("order_id IN ?", t.orderIDs).Delete(&domain.Payment{}).Error
		}},
		{table: "order_items", run: func(db *gorm.DB, t *target) error {
			if len(t.orderIDs) > 0 {
				if err := db.Where("order_id IN ?", t.orderIDs).Delete(&domain.OrderItem{}).Error; err != nil {
					return err
				}
			}
			// Product-indirect pass: items snapshotting the vendor's products
			if len(t.productIDs) == 0 {
				return nil
			}
			return db.Where("product_id IN ?", t.productIDs).Delete(&domain.OrderItem{}).Error
		}},
		{table: "orders", needs: []string{"order_items", "payments", "reviews"}, run: func(db *gorm.DB, t *target) error {
			if t.driver != nil {
				// Unassign before the driver profile goes away
				if err := db.Model(&domain.Order{}).Where("driver_id = ?", t.driver.ID).
					Update("driver_id", nil).Error; err != nil {
					return err
				}
			}
			if len(t.orderIDs) == 0 {
				return nil
			}
			return db.Where("id IN ?", t.orderIDs).Delete(&domain.Order{}).Error
		}},
		{table: "cart_items", run: func(db *gorm.DB, t *target) error {
			if err := db.Where("user_id = ?", t.user.ID).Delete(&domain.CartItem{}).Error; err != nil {
				return err
			}
			if len(t.productIDs) == 0 {
				return nil
			}
			return db.Where("product_id IN ?", t.productIDs).Delete(&domain.CartItem{}).Error
		}},
		{table: "chat_messages", run: func(db *gorm.DB, t *target) error {
			return db.Where("sender_id = ?", t.user.ID).Delete(&domain.ChatMessage{}).Error
		}},
		{table: "chat_members", run: func(db *gorm.DB, t *target) error {
			return db.Where("user_id = ?", t.user.ID).Delete(&domain.ChatMember{}).Error
		}},
		{table: "chat_rooms", needs: []string{"chat_messages", "chat_members"}, run: func(db *gorm.DB, t *target) error {
			var roomIDs []uint
			if err := db.Model(&domain.ChatRoom{}).Where("created_by_id = ?", t.user.ID).
				Pluck("id", &roomIDs).Error; err != nil {
				return err
			}
			if len(roomIDs) == 0 {
				return nil
			}
			// Other members' rows in the user's rooms go too
			if err := db.Where("room_id IN ?", roomIDs).Delete(&domain.ChatMessage{}).Error; err != nil {
				return err
			}
			if err := db.Where("room_id IN ?", roomIDs).Delete(&domain.ChatMember{}).Error; err != nil {
				return err
			}
			return db.Where("id IN ?", roomIDs).Delete(&domain.ChatRoom{}).Error
		}},
		{table: "notifications", run: func(db *gorm.DB, t *target) error {
			return db.Where("user_id = ?", t.user.ID).Delete(&domain.Notification{}).Error
		}},
		{table: "vendor_notification_settings", run: func(db *gorm.DB, t *target) error {
			if t.vendor == nil {
				return nil
			}
			return db.Where("vendor_id = ?", t.vendor.ID).Delete(&domain.VendorNotificationSetting{}).Error
		}},
		{table: "vendor_trust_scores", run: func(db *gorm.DB, t *target) error {
			if t.vendor == nil {
				return nil
			}
			return db.Where("vendor_id = ?", t.vendor.ID).Delete(&domain.VendorTrustScore{}).Error
		}},
		{table: "products", needs: []string{"order_items", "cart_items", "reviews"}, run: func(db *gorm.DB, t *target) error {
			if len(t.productIDs) == 0 {
				return nil
			}
			return db.Where("id IN ?", t.productIDs).Delete(&domain.Product{}).Error
		}},
		{table: "drivers", needs: []string{"orders"}, run: func(db *gorm.DB, t *target) error {
			return db.Where("user_id = ?", t.user.ID).Delete(&domain.Driver{}).Error
		}},
		{table: "vendors", needs: []string{"products", "orders", "vendor_notification_settings", "vendor_trust_scores"}, run: func(db *gorm.DB, t *target) error {
			return db.Where("user_id = ?", t.user.ID).Delete(&domain.Vendor{}).Error
		}},
	}
}

// topoOrder walks the declared graph in topological order, preserving
// declaration order among ready nodes. Iterative, no recursion.
func topoOrder(all []step) ([]step, error) {
	done := make(map[string]bool, len(all))
	var out []step
	remaining := append([]step(nil), all...)
	for len(remaining) > 0 {
		progressed := false
		var next []step
		for _, st := range remaining {
			ready := true
			for _, dep := range st.needs {
				if !done[dep] {
					ready = false
					break
				}
			}
			if ready {
				out = append(out, st)
				done[st.table] = true
				progressed = true
			} else {
				next = append(next, st)
			}
		}
		if !progressed {
			return nil, fmt.Errorf("cleanup graph has a cycle involving %s", next[0].table)
		}
		remaining = next
	}
	return out, nil
}

// DeleteUser removes the user and all dependent rows. Individual step
// failures are logged and collected; the final user delete is attempted
// regardless, with a concurrent-deletion re-check before surfacing a
// hard failure.
func (o *Orchestrator) DeleteUser(ctx context.Context, userID uint) (*Report, error) {
	db := o.db.WithContext(ctx)

	var user domain.User
	if err := db.First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrUserNotFound
		}
		return nil, dbpkg.MapError(err)
	}

	// Guard clause first, before any destructive step
	if user.Protected || (o.protectedID != 0 && user.ID == o.protectedID) {
		return nil, domain.ErrProtectedAccount
	}

	t, err := o.resolveTarget(db, user)
	if err != nil {
		return nil, dbpkg.MapError(err)
	}

	ordered, err := topoOrder(steps())
	if err != nil {
		return nil, err
	}

	report := &Report{UserID: userID}
	for _, st := range ordered {
		// Each step carries its own deadline so one wedged table cannot
		// starve the rest of the pass
		stepCtx, cancel := dbpkg.WithStatementTimeout(ctx, o.stmtTimeout)
		err := st.run(o.db.WithContext(stepCtx), t)
		cancel()
		if err != nil {
			err = dbpkg.MapError(err)
			// Keep going: maximize cleanup even under partial schema drift
			failure := &domain.DependencyCleanupError{Table: st.table, Err: err}
			report.Failures = append(report.Failures, failure)
			logrus.WithFields(logrus.Fields{
				"user_id": userID,
				"table":   st.table,
				"error":   err.Error(),
			}).Warn("Account cleanup step failed")
			continue
		}
		report.Cleaned = append(report.Cleaned, st.table)
	}

	if err := db.Delete(&domain.User{}, userID).Error; err != nil {
		// Another process may have finished the job concurrently
		var check domain.User
		lookupErr := db.First(&check, userID).Error
		if errors.Is(lookupErr, gorm.ErrRecordNotFound) {
			return report, nil
		}
		return report, fmt.Errorf("user row deletion failed after cleanup: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"user_id":  userID,
		"cleaned":  len(report.Cleaned),
		"failures": len(report.Failures),
	}).Info("Account deleted")
	return report, nil
}

// resolveTarget gathers the ids every step scopes by: profiles, vendor
// products, affected orders and the reviews reachable from any of them.
func (o *Orchestrator) resolveTarget(db *gorm.DB, user domain.User) (*target, error) {
	t := &target{user: user}

	var vendor domain.Vendor
	if err := db.Where("user_id = ?", user.ID).First(&vendor).Error; err == nil {
		t.vendor = &vendor
		if err := db.Model(&domain.Product{}).Where("vendor_id = ?", vendor.ID).
			Pluck("id", &t.productIDs).Error; err != nil {
			return nil, err
		}
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	var driver domain.Driver
	if err := db.Where("user_id = ?", user.ID).First(&driver).Error; err == nil {
		t.driver = &driver
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	orderQ := db.Model(&domain.Order{}).Where("customer_id = ?", user.ID)
	if t.vendor != nil {
		orderQ = orderQ.Or("vendor_id = ?", t.vendor.ID)
	}
	if err := orderQ.Pluck("id", &t.orderIDs).Error; err != nil {
		return nil, err
	}

	reviewQ := db.Model(&domain.Review{}).Where("user_id = ?", user.ID)
	if len(t.productIDs) > 0 {
		reviewQ = reviewQ.Or("product_id IN ?", t.productIDs)
	}
	if t.vendor != nil {
		reviewQ = reviewQ.Or("vendor_id = ?", t.vendor.ID)
	}
	if len(t.orderIDs) > 0 {
		reviewQ = reviewQ.Or("order_id IN ?", t.orderIDs)
	}
	if err := reviewQ.Pluck("id", &t.reviewIDs).Error; err != nil {
		return nil, err
	}
	return t, nil
}
