package catalog

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"marketplace_system/internal/cache"
	dbpkg "marketplace_system/internal/db"
	"marketplace_system/internal/domain"
)

const readTTL = 60 * time.Second

var ErrNotFound = errors.New("not found")

// Service serves the hot read paths through the cache and owns the
// category tree traversal.
type Service struct {
	db    *gorm.DB
	cache *cache.Cache
}

func NewService(db *gorm.DB, c *cache.Cache) *Service {
	return &Service{db: db, cache: c}
}

// GetProduct reads a product through the cache.
func (s *Service) GetProduct(ctx context.Context, id uint) (domain.Product, error) {
	var product domain.Product
	key := cache.ProductKey(id)
	if s.cache.Get(ctx, key, &product) {
		return product, nil
	}
	err := s.db.WithContext(ctx).First(&product, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.Product{}, ErrNotFound
	}
	if err != nil {
		return domain.Product{}, dbpkg.MapError(err)
	}
	s.cache.Set(ctx, key, product, readTTL)
	return product, nil
}

// GetVendor reads a vendor through the cache.
func (s *Service) GetVendor(ctx context.Context, id uint) (domain.Vendor, error) {
	var vendor domain.Vendor
	key := cache.VendorKey(id)
	if s.cache.Get(ctx, key, &vendor) {
		return vendor, nil
	}
	err := s.db.WithContext(ctx).First(&vendor, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.Vendor{}, ErrNotFound
	}
	if err != nil {
		return domain.Vendor{}, dbpkg.MapError(err)
	}
	s.cache.Set(ctx, key, vendor, readTTL)
	return vendor, nil
}

// UpdateProduct applies vendor edits and invalidates the cache entry.
// Invalidate, never update in place: the next read recomputes.
func (s *Service) UpdateProduct(ctx context.Context, vendorID, productID uint, updates map[string]any) error {
	res := s.db.WithContext(ctx).Model(&domain.Product{}).
		Where("id = ? AND vendor_id = ?", productID, vendorID).
		Updates(updates)
	if res.Error != nil {
		return dbpkg.MapError(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	s.cache.Invalidate(ctx, cache.ProductKey(productID))
	return nil
}

// SubtreeIDs collects a category and all of its descendants with an
// iterative breadth-first walk over the parent index. The tree is
// self-referencing, so traversal works on ids, never a recursive object
// graph.
func (s *Service) SubtreeIDs(ctx context.Context, rootID uint) ([]uint, error) {
	ids := []uint{rootID}
	frontier := []uint{rootID}
	seen := map[uint]bool{rootID: true} // Guards against a corrupted cyclic parent chain
	for len(frontier) > 0 {
		var children []uint
		if err := s.db.WithContext(ctx).Model(&domain.Category{}).
			Where("parent_id IN ?", frontier).
			Pluck("id", &children).Error; err != nil {
			return nil, dbpkg.MapError(err)
		}
		frontier = frontier[:0]
		for _, id := range children {
			if seen[id] {
				continue
			}
			seen[id] = true
			ids = append(ids, id)
			frontier = append(frontier, id)
		}
	}
	return ids, nil
}

// ProductsInCategory lists active products across a category subtree.
func (s *Service) ProductsInCategory(ctx context.Context, categoryID uint) ([]domain.Product, error) {
	ids, err := s.SubtreeIDs(ctx, categoryID)
	if err != nil {
		return nil, err
	}
	var products []domain.Product
	err = s.db.WithContext(ctx).
		Where("category_id IN ? AND active = ?", ids, true).
		Order("featured DESC, created_at DESC").
		Find(&products).Error
	return products, dbpkg.MapError(err)
}
