package checkout

import (
	"math"

	"marketplace_system/internal/domain"
)

// DeliveryFeePolicy resolves a delivery fee from the delivery type.
type DeliveryFeePolicy interface {
	Fee(deliveryType string) int64
}

// TaxPolicy computes tax from a subtotal. Nil means no tax.
type TaxPolicy interface {
	Tax(subtotal int64) int64
}

// FlatFeePolicy charges the same fee for every delivery, except pickup.
type FlatFeePolicy struct {
	Amount int64
}

func (p FlatFeePolicy) Fee(deliveryType string) int64 {
	if deliveryType == domain.DeliveryPickup {
		return 0
	}
	return p.Amount
}

// TieredFeePolicy charges by delivery type. Pickup is always free.
type TieredFeePolicy struct {
	Standard int64
	Express  int64
}

func (p TieredFeePolicy) Fee(deliveryType string) int64 {
	switch deliveryType {
	case domain.DeliveryPickup:
		return 0
	case domain.DeliveryExpress:
		return p.Express
	default:
		return p.Standard
	}
}

// OrderTotals is the money breakdown for one vendor's order.
type OrderTotals struct {
	Subtotal        int64
	DeliveryFee     int64
	Tax             int64
	Total           int64
	CommissionRate  float64
	Commission      int64
	VendorEarnings  int64
	PlatformRevenue int64
}

// ComputeOrderTotals derives all money fields for one vendor group. Pure
// function of its inputs: the caller passes the vendor's current
// commission rate, the calculator never fetches it. Delivery fee comes
// from the policy; tax defaults to zero without a tax policy.
func ComputeOrderTotals(lines []CartLine, commissionRatePercent float64, deliveryType string, fees DeliveryFeePolicy, taxes TaxPolicy) OrderTotals {
	var subtotal int64
	for _, line := range lines {
		subtotal += line.Product.Price * int64(line.Item.Quantity)
	}

	commission := int64(math.Round(float64(subtotal) * commissionRatePercent / 100))
	fee := fees.Fee(deliveryType)
	var tax int64
	if taxes != nil {
		tax = taxes.Tax(subtotal)
	}

	return OrderTotals{
		Subtotal:        subtotal,
		DeliveryFee:     fee,
		Tax:             tax,
		Total:           subtotal + fee + tax,
		CommissionRate:  commissionRatePercent,
		Commission:      commission,
		VendorEarnings:  subtotal - commission,
		PlatformRevenue: commission,
	}
}
