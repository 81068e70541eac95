package orders

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	dbpkg "marketplace_system/internal/db"
	"marketplace_system/internal/domain"
	"marketplace_system/internal/notify"
)

// Service applies status transitions one order at a time. The write is
// a conditional update on the current status, so of two concurrent
// transitions exactly one commits and the other observes a stale state.
type Service struct {
	db     *gorm.DB
	events notify.Sink

	// Bounds each status-changing statement independently of the request
	// deadline. Zero disables it.
	stmtTimeout time.Duration

	beforeWrite func() // injected in tests to widen the read-then-write race window
}

func NewService(db *gorm.DB, events notify.Sink, stmtTimeout time.Duration) *Service {
	return &Service{db: db, events: events, stmtTimeout: stmtTimeout}
}

// Get returns one order with its items.
func (s *Service) Get(ctx context.Context, orderID uint) (domain.Order, error) {
	var order domain.Order
	err := s.db.WithContext(ctx).Preload("Items").First(&order, orderID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.Order{}, domain.ErrOrderNotFound
	}
	return order, dbpkg.MapError(err)
}

// ListForCustomer returns a customer's orders, newest first.
func (s *Service) ListForCustomer(ctx context.Context, customerID uint) ([]domain.Order, error) {
	var out []domain.Order
	err := s.db.WithContext(ctx).
		Where("customer_id = ?", customerID).
		Preload("Items").
		Order("created_at DESC").
		Find(&out).Error
	return out, dbpkg.MapError(err)
}

// ListForVendor returns a vendor's orders, newest first.
func (s *Service) ListForVendor(ctx context.Context, vendorID uint) ([]domain.Order, error) {
	var out []domain.Order
	err := s.db.WithContext(ctx).
		Where("vendor_id = ?", vendorID).
		Preload("Items").
		Order("created_at DESC").
		Find(&out).Error
	return out, dbpkg.MapError(err)
}

// Transition moves an order to target on behalf of actor. The status
// change commits first; notifications are dispatched afterwards and can
// never roll it back.
func (s *Service) Transition(ctx context.Context, orderID uint, target domain.OrderStatus, actor Actor, reason string) (domain.Order, error) {
	order, err := s.Get(ctx, orderID)
	if err != nil {
		return domain.Order{}, err
	}
	current := order.Status

	if err := ValidateTransition(current, target, actor, reason); err != nil {
		return domain.Order{}, err
	}

	var driverID uint
	switch actor.Role {
	case domain.RoleVendor:
		var vendor domain.Vendor
		if err := s.db.WithContext(ctx).Where("user_id = ?", actor.UserID).First(&vendor).Error; err != nil {
			return domain.Order{}, &domain.ForbiddenTransitionError{Role: actor.Role, To: target, Reason: "no vendor profile"}
		}
		if vendor.ID != order.VendorID {
			return domain.Order{}, &domain.ForbiddenTransitionError{Role: actor.Role, To: target, Reason: "order belongs to another vendor"}
		}
	case domain.RoleDriver:
		var driver domain.Driver
		if err := s.db.WithContext(ctx).Where("user_id = ?", actor.UserID).First(&driver).Error; err != nil {
			return domain.Order{}, &domain.ForbiddenTransitionError{Role: actor.Role, To: target, Reason: "no driver profile"}
		}
		driverID = driver.ID
		if order.DriverID != nil && *order.DriverID != driverID {
			return domain.Order{}, &domain.ForbiddenTransitionError{Role: actor.Role, To: target, Reason: "order already assigned to another driver"}
		}
		if target == domain.OrderStatusDelivered && order.DriverID == nil {
			return domain.Order{}, &domain.ForbiddenTransitionError{Role: actor.Role, To: target, Reason: "order has no assigned driver"}
		}
	}

	now := time.Now()
	updates := map[string]any{"status": target, "updated_at": now}
	claiming := false
	switch target {
	case domain.OrderStatusConfirmed:
		updates["confirmed_at"] = &now
	case domain.OrderStatusInTransit:
		// Picking up assigns the driver if nobody holds the order yet
		claiming = order.DriverID == nil
		updates["driver_id"] = driverID
	case domain.OrderStatusDelivered:
		updates["delivered_at"] = &now
	case domain.OrderStatusCancelled:
		updates["cancelled_at"] = &now
		updates["cancel_reason"] = reason
	}

	if s.beforeWrite != nil {
		s.beforeWrite()
	}

	writeCtx, cancel := dbpkg.WithStatementTimeout(ctx, s.stmtTimeout)
	defer cancel()
	q := s.db.WithContext(writeCtx).Model(&domain.Order{}).
		Where("id = ? AND status = ?", orderID, current)
	if target == domain.OrderStatusInTransit {
		// Compare-and-set on driver_id: a second driver racing for the
		// same order must not overwrite the first claim
		q = q.Where("driver_id IS NULL OR driver_id = ?", driverID)
	}
	res := q.Updates(updates)
	if res.Error != nil {
		return domain.Order{}, dbpkg.MapError(res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.Order{}, s.loseRace(ctx, orderID, current, target, driverID)
	}

	updated, err := s.Get(ctx, orderID)
	if err != nil {
		return domain.Order{}, err
	}
	logrus.WithFields(logrus.Fields{
		"order_number": updated.OrderNumber,
		"from":         current,
		"to":           target,
		"actor_id":     actor.UserID,
		"role":         actor.Role,
	}).Info("Order transition")

	s.events.Dispatch(notify.Event{Type: notify.EventStatusChanged, Order: updated, NewStatus: target, Message: reason})
	if claiming {
		s.events.Dispatch(notify.Event{Type: notify.EventDriverAssigned, Order: updated})
	}
	return updated, nil
}

// loseRace classifies a conditional update that matched no rows: either
// another driver claimed the order first, or the status moved under us.
func (s *Service) loseRace(ctx context.Context, orderID uint, expected, target domain.OrderStatus, driverID uint) error {
	var current domain.Order
	if err := s.db.WithContext(ctx).First(&current, orderID).Error; err == nil {
		if target == domain.OrderStatusInTransit &&
			current.DriverID != nil && *current.DriverID != driverID {
			return &domain.ForbiddenTransitionError{
				Role:   domain.RoleDriver,
				To:     target,
				Reason: "order already assigned to another driver",
			}
		}
	}
	return &domain.StaleStateError{OrderID: orderID, Expected: expected}
}

// RecordPaymentStatus stores a status reported by the external payment
// collaborator, alongside a payment attempt row.
func (s *Service) RecordPaymentStatus(ctx context.Context, orderID uint, status, externalRef, failureReason string) error {
	order, err := s.Get(ctx, orderID)
	if err != nil {
		return err
	}
	txCtx, cancel := dbpkg.WithStatementTimeout(ctx, s.stmtTimeout)
	defer cancel()
	return dbpkg.MapError(s.db.WithContext(txCtx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&domain.Order{}).Where("id = ?", orderID).
			Update("payment_status", status).Error; err != nil {
			return err
		}
		return tx.Create(&domain.Payment{
			OrderID:        orderID,
			UserID:         order.CustomerID,
			Amount:         order.Total,
			Method:         order.PaymentMethod,
			Status:         status,
			TransactionRef: externalRef,
			FailureReason:  failureReason,
		}).Error
	}))
}
