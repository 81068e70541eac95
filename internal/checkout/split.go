package checkout

import "marketplace_system/internal/domain"

// CartLine pairs a cart row with its resolved product. Product is nil
// when the product disappeared after the item was added.
type CartLine struct {
	Item    domain.CartItem
	Product *domain.Product
}

// VendorGroup is one vendor's share of a cart, in original cart order.
type VendorGroup struct {
	VendorID uint
	Lines    []CartLine
}

// GroupFailure marks a vendor group excluded from the split or a group
// whose order could not be created. Other groups proceed regardless.
type GroupFailure struct {
	VendorID uint
	Err      error
}

// SplitByVendor groups cart lines by the product's owning vendor,
// preserving first-seen vendor order and per-group line order. Lines
// whose product is gone or inactive exclude their whole vendor group
// via a GroupFailure; unrelated groups are unaffected. An empty cart is
// an error.
func SplitByVendor(lines []CartLine) ([]VendorGroup, []GroupFailure, error) {
	if len(lines) == 0 {
		return nil, nil, domain.ErrEmptyCart
	}

	var order []uint // First-seen vendor order
	byVendor := make(map[uint]*VendorGroup)
	bad := make(map[uint]error) // Vendors with at least one unavailable line

	for _, line := range lines {
		if line.Product == nil || !line.Product.Active {
			// Vendor unknown for a deleted product; key such lines under 0
			vid := uint(0)
			if line.Product != nil {
				vid = line.Product.VendorID
			}
			if _, seen := bad[vid]; !seen {
				bad[vid] = &domain.ProductUnavailableError{ProductID: line.Item.ProductID}
			}
			continue
		}
		vid := line.Product.VendorID
		g, ok := byVendor[vid]
		if !ok {
			g = &VendorGroup{VendorID: vid}
			byVendor[vid] = g
			order = append(order, vid)
		}
		g.Lines = append(g.Lines, line)
	}

	var groups []VendorGroup
	var failures []GroupFailure
	for _, vid := range order {
		if err, excluded := bad[vid]; excluded {
			failures = append(failures, GroupFailure{VendorID: vid, Err: err})
			continue
		}
		groups = append(groups, *byVendor[vid])
	}
	// Groups that consist only of unavailable lines never made it into order
	for vid, err := range bad {
		if _, ok := byVendor[vid]; !ok {
			failures = append(failures, GroupFailure{VendorID: vid, Err: err})
		}
	}
	return groups, failures, nil
}
