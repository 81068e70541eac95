package orders

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	dbpkg "marketplace_system/internal/db"
	"marketplace_system/internal/domain"
	"marketplace_system/internal/notify"
)

type sinkRecorder struct {
	mu     sync.Mutex
	events []notify.Event
}

func (r *sinkRecorder) Dispatch(ev notify.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *sinkRecorder) ofType(t notify.EventType) []notify.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []notify.Event
	for _, ev := range r.events {
		if ev.Type == t {
			out = append(out, ev)
		}
	}
	return out
}

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(dbpkg.Models()...))
	return db
}

type fixture struct {
	db       *gorm.DB
	svc      *Service
	sink     *sinkRecorder
	customer domain.User
	vendorU  domain.User
	vendor   domain.Vendor
	driverU  domain.User
	driver   domain.Driver
	driver2U domain.User
	driver2  domain.Driver
	order    domain.Order
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := openTestDB(t)
	f := &fixture{db: db, sink: &sinkRecorder{}}
	f.svc = NewService(db, f.sink, 0)

	f.customer = domain.User{Email: "c@example.com", Name: "C", PasswordHash: "x", Role: domain.RoleCustomer}
	require.NoError(t, db.Create(&f.customer).Error)

	f.vendorU = domain.User{Email: "v@example.com", Name: "V", PasswordHash: "x", Role: domain.RoleVendor}
	require.NoError(t, db.Create(&f.vendorU).Error)
	f.vendor = domain.Vendor{UserID: f.vendorU.ID, BusinessName: "Shop", Status: domain.VendorStatusApproved, CommissionRate: 5}
	require.NoError(t, db.Create(&f.vendor).Error)

	f.driverU = domain.User{Email: "d1@example.com", Name: "D1", PasswordHash: "x", Role: domain.RoleDriver}
	require.NoError(t, db.Create(&f.driverU).Error)
	f.driver = domain.Driver{UserID: f.driverU.ID, Online: true}
	require.NoError(t, db.Create(&f.driver).Error)

	f.driver2U = domain.User{Email: "d2@example.com", Name: "D2", PasswordHash: "x", Role: domain.RoleDriver}
	require.NoError(t, db.Create(&f.driver2U).Error)
	f.driver2 = domain.Driver{UserID: f.driver2U.ID, Online: true}
	require.NoError(t, db.Create(&f.driver2).Error)

	f.order = domain.Order{
		OrderNumber:     "MKT-TEST-0001",
		CustomerID:      f.customer.ID,
		VendorID:        f.vendor.ID,
		Status:          domain.OrderStatusPending,
		Subtotal:        10000,
		DeliveryFee:     2000,
		Total:           12000,
		CommissionRate:  5,
		Commission:      500,
		VendorEarnings:  9500,
		PlatformRevenue: 500,
		PaymentMethod:   domain.PaymentMethodCash,
		PaymentStatus:   domain.PaymentStatusPending,
	}
	require.NoError(t, db.Create(&f.order).Error)
	return f
}

func (f *fixture) setStatus(t *testing.T, status domain.OrderStatus) {
	t.Helper()
	require.NoError(t, f.db.Model(&domain.Order{}).Where("id = ?", f.order.ID).
		Update("status", status).Error)
}

func TestVendorLifecycleTransitions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	vendor := Actor{UserID: f.vendorU.ID, Role: domain.RoleVendor}

	order, err := f.svc.Transition(ctx, f.order.ID, domain.OrderStatusConfirmed, vendor, "")
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusConfirmed, order.Status)
	assert.NotNil(t, order.ConfirmedAt)

	order, err = f.svc.Transition(ctx, f.order.ID, domain.OrderStatusPreparing, vendor, "")
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusPreparing, order.Status)

	order, err = f.svc.Transition(ctx, f.order.ID, domain.OrderStatusReadyForPickup, vendor, "")
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusReadyForPickup, order.Status)

	assert.Len(t, f.sink.ofType(notify.EventStatusChanged), 3)
}

func TestTransitionRejectsForeignVendor(t *testing.T) {
	f := newFixture(t)
	otherU := domain.User{Email: "v2@example.com", Name: "V2", PasswordHash: "x", Role: domain.RoleVendor}
	require.NoError(t, f.db.Create(&otherU).Error)
	other := domain.Vendor{UserID: otherU.ID, BusinessName: "Other", Status: domain.VendorStatusApproved, CommissionRate: 8}
	require.NoError(t, f.db.Create(&other).Error)

	_, err := f.svc.Transition(context.Background(), f.order.ID, domain.OrderStatusConfirmed,
		Actor{UserID: otherU.ID, Role: domain.RoleVendor}, "")
	var forbidden *domain.ForbiddenTransitionError
	require.True(t, errors.As(err, &forbidden))
}

func TestDriverClaimSetsDriverAndNotifies(t *testing.T) {
	f := newFixture(t)
	f.setStatus(t, domain.OrderStatusReadyForPickup)
	ctx := context.Background()

	order, err := f.svc.Transition(ctx, f.order.ID, domain.OrderStatusInTransit,
		Actor{UserID: f.driverU.ID, Role: domain.RoleDriver}, "")
	require.NoError(t, err)
	require.NotNil(t, order.DriverID)
	assert.Equal(t, f.driver.ID, *order.DriverID)
	assert.Len(t, f.sink.ofType(notify.EventDriverAssigned), 1)

	order, err = f.svc.Transition(ctx, f.order.ID, domain.OrderStatusDelivered,
		Actor{UserID: f.driverU.ID, Role: domain.RoleDriver}, "")
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusDelivered, order.Status)
	assert.NotNil(t, order.DeliveredAt)
}

func TestSecondDriverCannotTakeAssignedOrder(t *testing.T) {
	f := newFixture(t)
	f.setStatus(t, domain.OrderStatusReadyForPickup)
	ctx := context.Background()

	_, err := f.svc.Transition(ctx, f.order.ID, domain.OrderStatusInTransit,
		Actor{UserID: f.driverU.ID, Role: domain.RoleDriver}, "")
	require.NoError(t, err)

	// The order now belongs to driver 1; driver 2 may not deliver it
	_, err = f.svc.Transition(ctx, f.order.ID, domain.OrderStatusDelivered,
		Actor{UserID: f.driver2U.ID, Role: domain.RoleDriver}, "")
	var forbidden *domain.ForbiddenTransitionError
	require.True(t, errors.As(err, &forbidden))
	assert.Contains(t, forbidden.Reason, "another driver")
}

func TestConcurrentDriverClaimExactlyOneWins(t *testing.T) {
	f := newFixture(t)
	f.setStatus(t, domain.OrderStatusReadyForPickup)
	ctx := context.Background()

	// Driver 1's claim commits inside driver 2's read-then-write window
	f.svc.beforeWrite = func() {
		f.svc.beforeWrite = nil
		_, err := f.svc.Transition(ctx, f.order.ID, domain.OrderStatusInTransit,
			Actor{UserID: f.driverU.ID, Role: domain.RoleDriver}, "")
		require.NoError(t, err)
	}
	_, err := f.svc.Transition(ctx, f.order.ID, domain.OrderStatusInTransit,
		Actor{UserID: f.driver2U.ID, Role: domain.RoleDriver}, "")
	var forbidden *domain.ForbiddenTransitionError
	require.True(t, errors.As(err, &forbidden), "loser must get an already-assigned rejection, got %v", err)

	var current domain.Order
	require.NoError(t, f.db.First(&current, f.order.ID).Error)
	require.NotNil(t, current.DriverID)
	assert.Equal(t, f.driver.ID, *current.DriverID)
	assert.Equal(t, domain.OrderStatusInTransit, current.Status)
}

func TestConcurrentTransitionLoserGetsStaleState(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// An admin cancellation lands between the vendor's read and write
	f.svc.beforeWrite = func() {
		f.svc.beforeWrite = nil
		_, err := f.svc.Transition(ctx, f.order.ID, domain.OrderStatusCancelled,
			Actor{UserID: f.vendorU.ID, Role: domain.RoleVendor}, "")
		require.NoError(t, err)
	}
	_, err := f.svc.Transition(ctx, f.order.ID, domain.OrderStatusConfirmed,
		Actor{UserID: f.vendorU.ID, Role: domain.RoleVendor}, "")
	var stale *domain.StaleStateError
	require.True(t, errors.As(err, &stale), "loser must observe a stale state, got %v", err)
	assert.Equal(t, f.order.ID, stale.OrderID)

	// Exactly one transition took effect
	var current domain.Order
	require.NoError(t, f.db.First(&current, f.order.ID).Error)
	assert.Equal(t, domain.OrderStatusCancelled, current.Status)
}

func TestCancelRecordsReasonAndTimestamp(t *testing.T) {
	f := newFixture(t)
	f.setStatus(t, domain.OrderStatusConfirmed)

	order, err := f.svc.Transition(context.Background(), f.order.ID, domain.OrderStatusCancelled,
		Actor{UserID: f.vendorU.ID, Role: domain.RoleVendor}, "out of stock")
	require.NoError(t, err)
	assert.Equal(t, "out of stock", order.CancelReason)
	assert.NotNil(t, order.CancelledAt)
}

func TestTransitionUnknownOrder(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Transition(context.Background(), 9999, domain.OrderStatusConfirmed,
		Actor{UserID: f.vendorU.ID, Role: domain.RoleVendor}, "")
	assert.ErrorIs(t, err, domain.ErrOrderNotFound)
}

func TestTransitionStatementTimeout(t *testing.T) {
	f := newFixture(t)
	slow := NewService(f.db, f.sink, time.Nanosecond)

	_, err := slow.Transition(context.Background(), f.order.ID, domain.OrderStatusConfirmed,
		Actor{UserID: f.vendorU.ID, Role: domain.RoleVendor}, "")
	assert.ErrorIs(t, err, domain.ErrTimeout)

	// The bounded write never landed
	var current domain.Order
	require.NoError(t, f.db.First(&current, f.order.ID).Error)
	assert.Equal(t, domain.OrderStatusPending, current.Status)
}

func TestRecordPaymentStatus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.svc.RecordPaymentStatus(ctx, f.order.ID, domain.PaymentStatusCompleted, "OM-12345", ""))

	order, err := f.svc.Get(ctx, f.order.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentStatusCompleted, order.PaymentStatus)

	var payments []domain.Payment
	require.NoError(t, f.db.Where("order_id = ?", f.order.ID).Find(&payments).Error)
	require.Len(t, payments, 1)
	assert.Equal(t, "OM-12345", payments[0].TransactionRef)
	assert.Equal(t, order.Total, payments[0].Amount)
}
