package checkout

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"marketplace_system/internal/cache"
	dbpkg "marketplace_system/internal/db"
	"marketplace_system/internal/domain"
	"marketplace_system/internal/notify"
)

var (
	errInvalidDeliveryType  = errors.New("invalid delivery type")
	errInvalidPaymentMethod = errors.New("invalid payment method")
	errVendorNotAvailable   = errors.New("vendor is not accepting orders")
)

const defaultLowStockLevel = 5

// Service turns a customer's cart into one order per vendor. Each
// vendor group is an independent transaction: a failure in one group
// never rolls back another vendor's already-committed order.
type Service struct {
	db     *gorm.DB
	fees   DeliveryFeePolicy
	taxes  TaxPolicy
	events notify.Sink
	cache  *cache.Cache

	// Per-group transactions get their own deadline so one slow vendor
	// group cannot eat the whole request budget. Zero disables it.
	stmtTimeout time.Duration

	beforeGroup func() // injected in tests to widen the split-then-create window
}

func NewService(db *gorm.DB, fees DeliveryFeePolicy, taxes TaxPolicy, events notify.Sink, c *cache.Cache, stmtTimeout time.Duration) *Service {
	return &Service{db: db, fees: fees, taxes: taxes, events: events, cache: c, stmtTimeout: stmtTimeout}
}

// Request carries checkout parameters common to every vendor group.
type Request struct {
	DeliveryType  string
	PaymentMethod string
	Address       domain.Address
}

// Result reports per-vendor outcomes. Committed orders stand even when
// other groups failed; the caller decides how to surface partial failure.
type Result struct {
	Orders   []domain.Order
	Failures []GroupFailure
}

// Checkout loads the customer's cart, splits it by vendor and creates
// one order per group.
func (s *Service) Checkout(ctx context.Context, customerID uint, req Request) (Result, error) {
	switch req.DeliveryType {
	case domain.DeliveryStandard, domain.DeliveryExpress, domain.DeliveryPickup:
	default:
		return Result{}, errInvalidDeliveryType
	}
	switch req.PaymentMethod {
	case domain.PaymentMethodCash, domain.PaymentMethodOrangeMoney, domain.PaymentMethodMoovMoney:
	default:
		return Result{}, errInvalidPaymentMethod
	}

	var items []domain.CartItem
	if err := s.db.WithContext(ctx).
		Where("user_id = ?", customerID).
		Order("added_at, id").
		Find(&items).Error; err != nil {
		return Result{}, dbpkg.MapError(err)
	}

	lines := make([]CartLine, 0, len(items))
	for _, item := range items {
		var product domain.Product
		err := s.db.WithContext(ctx).First(&product, item.ProductID).Error
		switch {
		case err == nil:
			lines = append(lines, CartLine{Item: item, Product: &product})
		case errors.Is(err, gorm.ErrRecordNotFound):
			lines = append(lines, CartLine{Item: item}) // Deleted since add-to-cart
		default:
			return Result{}, dbpkg.MapError(err)
		}
	}

	groups, failures, err := SplitByVendor(lines)
	if err != nil {
		return Result{}, err
	}

	res := Result{Failures: failures}
	for _, group := range groups {
		if s.beforeGroup != nil {
			s.beforeGroup()
		}
		order, lowStock, err := s.createGroupOrder(ctx, customerID, group, req)
		if err != nil {
			logrus.WithFields(logrus.Fields{
				"customer_id": customerID,
				"vendor_id":   group.VendorID,
				"error":       err.Error(),
			}).Warn("Vendor group checkout failed")
			res.Failures = append(res.Failures, GroupFailure{VendorID: group.VendorID, Err: err})
			continue
		}
		logrus.WithFields(logrus.Fields{
			"order_number": order.OrderNumber,
			"customer_id":  customerID,
			"vendor_id":    group.VendorID,
			"subtotal":     order.Subtotal,
			"commission":   order.Commission,
			"total":        order.Total,
		}).Info("Order created")
		res.Orders = append(res.Orders, order)

		// Best-effort side effects, strictly after commit
		s.events.Dispatch(notify.Event{Type: notify.EventOrderCreated, Order: order})
		if len(lowStock) > 0 {
			s.events.Dispatch(notify.Event{
				Type:     notify.EventLowStock,
				VendorID: group.VendorID,
				LowStock: lowStock,
			})
		}
		s.invalidateAfterOrder(ctx, customerID, group)
	}
	return res, nil
}

// createGroupOrder creates one vendor's order atomically: commission
// rate read, product re-read, stock decrement, order + item + payment
// insert and cart cleanup all share the transaction, so a mid-checkout
// rate or price edit can never produce an order inconsistent with its
// own snapshot.
func (s *Service) createGroupOrder(ctx context.Context, customerID uint, group VendorGroup, req Request) (domain.Order, []domain.Product, error) {
	var order domain.Order
	var lowStock []domain.Product

	txCtx, cancel := dbpkg.WithStatementTimeout(ctx, s.stmtTimeout)
	defer cancel()

	err := s.db.WithContext(txCtx).Transaction(func(tx *gorm.DB) error {
		// Rate read shares the transaction: a concurrent rate edit can
		// never desync an order from its own stored snapshot
		var vendor domain.Vendor
		if err := tx.First(&vendor, group.VendorID).Error; err != nil {
			return err
		}
		if vendor.Status != domain.VendorStatusApproved {
			return errVendorNotAvailable
		}

		// The cart was priced outside this transaction. Products are
		// re-read here so each item snapshot comes from the same point
		// in time as the commission rate above; a price edit between
		// split and create lands in the order, not behind it.
		lines := make([]CartLine, 0, len(group.Lines))
		for _, stale := range group.Lines {
			var product domain.Product
			if err := tx.First(&product, stale.Item.ProductID).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return &domain.ProductUnavailableError{ProductID: stale.Item.ProductID}
				}
				return err
			}
			if !product.Active {
				return &domain.ProductUnavailableError{ProductID: product.ID}
			}
			lines = append(lines, CartLine{Item: stale.Item, Product: &product})
		}

		totals := ComputeOrderTotals(lines, vendor.CommissionRate, req.DeliveryType, s.fees, s.taxes)

		orderItems := make([]domain.OrderItem, 0, len(lines))
		productIDs := make([]uint, 0, len(lines))
		for _, line := range lines {
			p := line.Product
			// Conditional decrement rejects overselling under
			// concurrent checkouts
			res := tx.Model(&domain.Product{}).
				Where("id = ? AND quantity >= ?", p.ID, line.Item.Quantity).
				UpdateColumn("quantity", gorm.Expr("quantity - ?", line.Item.Quantity))
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return &domain.InsufficientStockError{ProductID: p.ID, Requested: line.Item.Quantity}
			}
			orderItems = append(orderItems, domain.OrderItem{
				ProductID:  p.ID,
				Quantity:   line.Item.Quantity,
				UnitPrice:  p.Price,
				TotalPrice: p.Price * int64(line.Item.Quantity),
				Snapshot: domain.ProductSnapshot{
					Version: 1,
					Name:    p.Name,
					Price:   p.Price,
					Image:   p.Image,
				},
			})
			productIDs = append(productIDs, p.ID)
		}

		order = domain.Order{
			OrderNumber:     generateOrderNumber(),
			CustomerID:      customerID,
			VendorID:        group.VendorID,
			Status:          domain.OrderStatusPending,
			Subtotal:        totals.Subtotal,
			DeliveryFee:     totals.DeliveryFee,
			Tax:             totals.Tax,
			Total:           totals.Total,
			CommissionRate:  totals.CommissionRate,
			Commission:      totals.Commission,
			VendorEarnings:  totals.VendorEarnings,
			PlatformRevenue: totals.PlatformRevenue,
			PaymentMethod:   req.PaymentMethod,
			PaymentStatus:   initialPaymentStatus(req.PaymentMethod),
			DeliveryType:    req.DeliveryType,
			DeliveryAddress: req.Address,
			Items:           orderItems,
		}
		if err := tx.Create(&order).Error; err != nil {
			return err
		}

		payment := domain.Payment{
			OrderID: order.ID,
			UserID:  customerID,
			Amount:  order.Total,
			Method:  req.PaymentMethod,
			Status:  order.PaymentStatus,
		}
		if err := tx.Create(&payment).Error; err != nil {
			return err
		}

		// Cart rows for this vendor group are consumed by the order
		if err := tx.Where("user_id = ? AND product_id IN ?", customerID, productIDs).
			Delete(&domain.CartItem{}).Error; err != nil {
			return err
		}

		threshold := defaultLowStockLevel
		var setting domain.VendorNotificationSetting
		if err := tx.Where("vendor_id = ?", group.VendorID).First(&setting).Error; err == nil {
			threshold = setting.LowStockLevel
		}
		return tx.Where("id IN ? AND quantity <= ?", productIDs, threshold).
			Find(&lowStock).Error
	})
	if err != nil {
		return domain.Order{}, nil, dbpkg.MapError(err)
	}
	return order, lowStock, nil
}

// invalidateAfterOrder drops cache entries the committed writes may have
// made stale. Entries are invalidated, never updated in place.
func (s *Service) invalidateAfterOrder(ctx context.Context, customerID uint, group VendorGroup) {
	if s.cache == nil {
		return
	}
	s.cache.Invalidate(ctx, cache.CartKey(customerID))
	for _, line := range group.Lines {
		s.cache.Invalidate(ctx, cache.ProductKey(line.Product.ID))
	}
}

// initialPaymentStatus maps the method to the status recorded at order
// creation: mobile-money charges settle immediately, cash on delivery
// stays pending.
func initialPaymentStatus(method string) string {
	switch method {
	case domain.PaymentMethodOrangeMoney, domain.PaymentMethodMoovMoney:
		return domain.PaymentStatusCompleted
	default:
		return domain.PaymentStatusPending
	}
}

// generateOrderNumber builds a unique human-readable reference, e.g.
// MKT-20250901143055-1a2b3c4d.
func generateOrderNumber() string {
	id := uuid.NewString()
	return "MKT-" + time.Now().Format("20060102150405") + "-" + id[:8]
}

// ValidateQuantity rejects zero or negative cart quantities at mutation
// time so they never reach the splitter.
func ValidateQuantity(qty int) error {
	if qty <= 0 {
		return errors.New("quantity must be positive")
	}
	return nil
}
