package checkout

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

func (r *sinkRecorder) count(t notify.EventType) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, ev := range r.events {
		if ev.Type == t {
			n++
		}
	}
	return n
}

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(dbpkg.Models()...))
	return db
}

type checkoutFixture struct {
	db       *gorm.DB
	svc      *Service
	sink     *sinkRecorder
	customer domain.User
	vendor1  domain.Vendor
	vendor2  domain.Vendor
	p1       domain.Product // vendor1, 5000
	p2       domain.Product // vendor2, 3000
}

func newCheckoutFixture(t *testing.T) *checkoutFixture {
	t.Helper()
	db := openTestDB(t)
	f := &checkoutFixture{db: db, sink: &sinkRecorder{}}
	f.svc = NewService(db, TieredFeePolicy{Standard: 2000, Express: 3500}, nil, f.sink, nil, 0)

	f.customer = domain.User{Email: "c@example.com", Name: "C", PasswordHash: "x", Role: domain.RoleCustomer, Phone: "70000001"}
	require.NoError(t, db.Create(&f.customer).Error)

	for _, v := range []*domain.Vendor{&f.vendor1, &f.vendor2} {
		user := domain.User{Email: uuid.NewString() + "@example.com", Name: "V", PasswordHash: "x", Role: domain.RoleVendor}
		require.NoError(t, db.Create(&user).Error)
		*v = domain.Vendor{UserID: user.ID, BusinessName: "Shop", Status: domain.VendorStatusApproved, CommissionRate: 5}
		require.NoError(t, db.Create(v).Error)
	}

	f.p1 = domain.Product{VendorID: f.vendor1.ID, Name: "Rice 25kg", Price: 5000, Quantity: 10, Active: true}
	require.NoError(t, db.Create(&f.p1).Error)
	f.p2 = domain.Product{VendorID: f.vendor2.ID, Name: "Oil 5L", Price: 3000, Quantity: 10, Active: true}
	require.NoError(t, db.Create(&f.p2).Error)
	return f
}

func (f *checkoutFixture) addToCart(t *testing.T, productID uint, qty int) {
	t.Helper()
	require.NoError(t, f.db.Create(&domain.CartItem{
		UserID:    f.customer.ID,
		ProductID: productID,
		Quantity:  qty,
	}).Error)
}

func stdRequest() Request {
	return Request{
		DeliveryType:  domain.DeliveryStandard,
		PaymentMethod: domain.PaymentMethodCash,
		Address:       domain.Address{Line1: "Rue 12.34", City: "Ouagadougou"},
	}
}

func TestCheckoutSplitsCartIntoVendorOrders(t *testing.T) {
	f := newCheckoutFixture(t)
	f.addToCart(t, f.p1.ID, 2)
	f.addToCart(t, f.p2.ID, 1)

	res, err := f.svc.Checkout(context.Background(), f.customer.ID, stdRequest())
	require.NoError(t, err)
	assert.Empty(t, res.Failures)
	require.Len(t, res.Orders, 2)

	o1, o2 := res.Orders[0], res.Orders[1]
	assert.Equal(t, f.vendor1.ID, o1.VendorID)
	assert.Equal(t, int64(10000), o1.Subtotal)
	assert.Equal(t, int64(500), o1.Commission)
	assert.Equal(t, int64(9500), o1.VendorEarnings)
	assert.Equal(t, int64(2000), o1.DeliveryFee)
	assert.Equal(t, int64(12000), o1.Total)
	assert.Equal(t, float64(5), o1.CommissionRate)
	assert.Equal(t, domain.OrderStatusPending, o1.Status)

	assert.Equal(t, f.vendor2.ID, o2.VendorID)
	assert.Equal(t, int64(3000), o2.Subtotal)
	assert.Equal(t, int64(150), o2.Commission)
	assert.Equal(t, int64(2850), o2.VendorEarnings)
	assert.Equal(t, int64(5000), o2.Total)

	// Items carry immutable snapshots that sum to the subtotal
	var items []domain.OrderItem
	require.NoError(t, f.db.Where("order_id = ?", o1.ID).Find(&items).Error)
	require.Len(t, items, 1)
	assert.Equal(t, "Rice 25kg", items[0].Snapshot.Name)
	assert.Equal(t, int64(5000), items[0].UnitPrice)
	var sum int64
	for _, it := range items {
		assert.Equal(t, it.UnitPrice*int64(it.Quantity), it.TotalPrice)
		sum += it.TotalPrice
	}
	assert.Equal(t, o1.Subtotal, sum)

	// Stock decremented, cart emptied, payment rows written
	var p1 domain.Product
	require.NoError(t, f.db.First(&p1, f.p1.ID).Error)
	assert.Equal(t, 8, p1.Quantity)
	var cartCount int64
	require.NoError(t, f.db.Model(&domain.CartItem{}).Where("user_id = ?", f.customer.ID).Count(&cartCount).Error)
	assert.Zero(t, cartCount)
	var payCount int64
	require.NoError(t, f.db.Model(&domain.Payment{}).Count(&payCount).Error)
	assert.EqualValues(t, 2, payCount)

	assert.Equal(t, 2, f.sink.count(notify.EventOrderCreated))
}

func TestCheckoutEmptyCart(t *testing.T) {
	f := newCheckoutFixture(t)
	_, err := f.svc.Checkout(context.Background(), f.customer.ID, stdRequest())
	assert.ErrorIs(t, err, domain.ErrEmptyCart)
}

func TestCheckoutInsufficientStockFailsOnlyThatGroup(t *testing.T) {
	f := newCheckoutFixture(t)
	f.addToCart(t, f.p1.ID, 50) // More than the 10 in stock
	f.addToCart(t, f.p2.ID, 1)

	res, err := f.svc.Checkout(context.Background(), f.customer.ID, stdRequest())
	require.NoError(t, err)
	require.Len(t, res.Orders, 1)
	assert.Equal(t, f.vendor2.ID, res.Orders[0].VendorID)
	require.Len(t, res.Failures, 1)

	var stock *domain.InsufficientStockError
	require.True(t, errors.As(res.Failures[0].Err, &stock))
	assert.Equal(t, f.p1.ID, stock.ProductID)

	// The failed group rolled back completely: stock and cart intact
	var p1 domain.Product
	require.NoError(t, f.db.First(&p1, f.p1.ID).Error)
	assert.Equal(t, 10, p1.Quantity)
	var remaining int64
	require.NoError(t, f.db.Model(&domain.CartItem{}).
		Where("user_id = ? AND product_id = ?", f.customer.ID, f.p1.ID).Count(&remaining).Error)
	assert.EqualValues(t, 1, remaining)
}

func TestCheckoutDeletedProductExcludesGroup(t *testing.T) {
	f := newCheckoutFixture(t)
	f.addToCart(t, f.p1.ID, 1)
	f.addToCart(t, f.p2.ID, 1)
	require.NoError(t, f.db.Delete(&domain.Product{}, f.p1.ID).Error)

	res, err := f.svc.Checkout(context.Background(), f.customer.ID, stdRequest())
	require.NoError(t, err)
	require.Len(t, res.Orders, 1)
	assert.Equal(t, f.vendor2.ID, res.Orders[0].VendorID)
	require.Len(t, res.Failures, 1)
	var gone *domain.ProductUnavailableError
	assert.True(t, errors.As(res.Failures[0].Err, &gone))
}

func TestCheckoutSuspendedVendorRejected(t *testing.T) {
	f := newCheckoutFixture(t)
	require.NoError(t, f.db.Model(&domain.Vendor{}).Where("id = ?", f.vendor1.ID).
		Update("status", domain.VendorStatusSuspended).Error)
	f.addToCart(t, f.p1.ID, 1)

	res, err := f.svc.Checkout(context.Background(), f.customer.ID, stdRequest())
	require.NoError(t, err)
	assert.Empty(t, res.Orders)
	require.Len(t, res.Failures, 1)
	assert.Equal(t, f.vendor1.ID, res.Failures[0].VendorID)
}

func TestCheckoutPickupHasNoFee(t *testing.T) {
	f := newCheckoutFixture(t)
	f.addToCart(t, f.p2.ID, 1)
	req := stdRequest()
	req.DeliveryType = domain.DeliveryPickup

	res, err := f.svc.Checkout(context.Background(), f.customer.ID, req)
	require.NoError(t, err)
	require.Len(t, res.Orders, 1)
	assert.Equal(t, int64(0), res.Orders[0].DeliveryFee)
	assert.Equal(t, res.Orders[0].Subtotal, res.Orders[0].Total)
}

func TestCheckoutPaymentStatusByMethod(t *testing.T) {
	f := newCheckoutFixture(t)
	f.addToCart(t, f.p2.ID, 1)
	req := stdRequest()
	req.PaymentMethod = domain.PaymentMethodOrangeMoney

	res, err := f.svc.Checkout(context.Background(), f.customer.ID, req)
	require.NoError(t, err)
	require.Len(t, res.Orders, 1)
	// Mobile money settles immediately; cash stays pending
	assert.Equal(t, domain.PaymentStatusCompleted, res.Orders[0].PaymentStatus)
}

func TestCheckoutLowStockEvent(t *testing.T) {
	f := newCheckoutFixture(t)
	f.addToCart(t, f.p1.ID, 7) // Leaves 3, below the default threshold of 5

	res, err := f.svc.Checkout(context.Background(), f.customer.ID, stdRequest())
	require.NoError(t, err)
	require.Len(t, res.Orders, 1)
	assert.Equal(t, 1, f.sink.count(notify.EventLowStock))
}

func TestCheckoutRateSnapshotSurvivesLaterRateChange(t *testing.T) {
	f := newCheckoutFixture(t)
	f.addToCart(t, f.p1.ID, 2)
	res, err := f.svc.Checkout(context.Background(), f.customer.ID, stdRequest())
	require.NoError(t, err)
	require.Len(t, res.Orders, 1)
	created := res.Orders[0]

	// The vendor's rate doubles afterwards; the order keeps its snapshot
	require.NoError(t, f.db.Model(&domain.Vendor{}).Where("id = ?", f.vendor1.ID).
		Update("commission_rate", 10).Error)
	var reread domain.Order
	require.NoError(t, f.db.First(&reread, created.ID).Error)
	assert.Equal(t, float64(5), reread.CommissionRate)
	assert.Equal(t, int64(500), reread.Commission)
}

func TestCheckoutPriceEditBeforeCreateUsesFreshPrice(t *testing.T) {
	f := newCheckoutFixture(t)
	f.addToCart(t, f.p1.ID, 2)

	// The vendor edits the price after the cart is loaded but before the
	// order transaction runs; the order must carry the fresh price, not
	// the one the cart was split with.
	f.svc.beforeGroup = func() {
		require.NoError(t, f.db.Model(&domain.Product{}).Where("id = ?", f.p1.ID).
			Update("price", 6000).Error)
	}

	res, err := f.svc.Checkout(context.Background(), f.customer.ID, stdRequest())
	require.NoError(t, err)
	require.Len(t, res.Orders, 1)
	assert.Equal(t, int64(12000), res.Orders[0].Subtotal)
	assert.Equal(t, int64(600), res.Orders[0].Commission)

	var items []domain.OrderItem
	require.NoError(t, f.db.Where("order_id = ?", res.Orders[0].ID).Find(&items).Error)
	require.Len(t, items, 1)
	assert.Equal(t, int64(6000), items[0].UnitPrice)
	assert.Equal(t, int64(6000), items[0].Snapshot.Price)
}

func TestCheckoutDeactivationBeforeCreateFailsGroup(t *testing.T) {
	f := newCheckoutFixture(t)
	f.addToCart(t, f.p1.ID, 1)

	f.svc.beforeGroup = func() {
		require.NoError(t, f.db.Model(&domain.Product{}).Where("id = ?", f.p1.ID).
			Update("active", false).Error)
	}

	res, err := f.svc.Checkout(context.Background(), f.customer.ID, stdRequest())
	require.NoError(t, err)
	assert.Empty(t, res.Orders)
	require.Len(t, res.Failures, 1)
	var gone *domain.ProductUnavailableError
	require.True(t, errors.As(res.Failures[0].Err, &gone))
	assert.Equal(t, f.p1.ID, gone.ProductID)

	// Nothing committed for the failed group
	var p1 domain.Product
	require.NoError(t, f.db.First(&p1, f.p1.ID).Error)
	assert.Equal(t, 10, p1.Quantity)
}

func TestCheckoutStatementTimeout(t *testing.T) {
	f := newCheckoutFixture(t)
	f.addToCart(t, f.p1.ID, 1)

	svc := NewService(f.db, TieredFeePolicy{Standard: 2000, Express: 3500}, nil, f.sink, nil, time.Nanosecond)
	res, err := svc.Checkout(context.Background(), f.customer.ID, stdRequest())
	require.NoError(t, err)
	assert.Empty(t, res.Orders)
	require.Len(t, res.Failures, 1)
	assert.ErrorIs(t, res.Failures[0].Err, domain.ErrTimeout)
}

func TestCheckoutRejectsBadInputs(t *testing.T) {
	f := newCheckoutFixture(t)
	f.addToCart(t, f.p1.ID, 1)

	req := stdRequest()
	req.DeliveryType = "teleport"
	_, err := f.svc.Checkout(context.Background(), f.customer.ID, req)
	assert.Error(t, err)

	req = stdRequest()
	req.PaymentMethod = "iou"
	_, err = f.svc.Checkout(context.Background(), f.customer.ID, req)
	assert.Error(t, err)
}

func TestValidateQuantity(t *testing.T) {
	require.NoError(t, ValidateQuantity(1))
	require.NoError(t, ValidateQuantity(50))
	for _, qty := range []int{0, -1, -100} {
		assert.Error(t, ValidateQuantity(qty), "quantity %d must be rejected", qty)
	}
}
