package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"marketplace_system/internal/cache"
	"marketplace_system/internal/checkout"
	"marketplace_system/internal/domain"
)

// Request struct for cart mutation
type CartAddRequest struct {
	ProductID uint `json:"product_id" binding:"required"`
	Quantity  int  `json:"quantity" binding:"required"`
}

// AddToCartHandler adds or updates a cart row for the user. Zero or
// negative quantities are rejected here, so they never reach checkout.
func AddToCartHandler(db *gorm.DB, ch *cache.Cache) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.MustGet("userID").(uint)
		var req CartAddRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}
		if err := checkout.ValidateQuantity(req.Quantity); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		var product domain.Product
		if err := db.First(&product, req.ProductID).Error; err != nil || !product.Active {
			c.JSON(http.StatusNotFound, gin.H{"error": "Product not available"})
			return
		}
		item := domain.CartItem{UserID: userID, ProductID: req.ProductID}
		if err := db.Where(&item).First(&item).Error; err == nil {
			// Existing row: replace the quantity
			if err := db.Model(&item).Update("quantity", req.Quantity).Error; err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update cart"})
				return
			}
		} else {
			item.Quantity = req.Quantity
			item.AddedAt = time.Now()
			if err := db.Create(&item).Error; err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to add to cart"})
				return
			}
		}
		ch.Invalidate(c.Request.Context(), cache.CartKey(userID))
		c.JSON(http.StatusOK, gin.H{"message": "Cart updated"})
	}
}

// RemoveFromCartHandler deletes one product's row from the user's cart
func RemoveFromCartHandler(db *gorm.DB, ch *cache.Cache) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.MustGet("userID").(uint)
		productID, err := strconv.Atoi(c.Param("productID"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid product id"})
			return
		}
		if err := db.Where("user_id = ? AND product_id = ?", userID, productID).
			Delete(&domain.CartItem{}).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to remove item"})
			return
		}
		ch.Invalidate(c.Request.Context(), cache.CartKey(userID))
		c.JSON(http.StatusOK, gin.H{"message": "Item removed"})
	}
}

// GetCartHandler returns the user's cart, read through the cache
func GetCartHandler(db *gorm.DB, ch *cache.Cache) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.MustGet("userID").(uint)
		ctx := c.Request.Context()
		key := cache.CartKey(userID)

		var items []domain.CartItem
		if ch.Get(ctx, key, &items) {
			c.JSON(http.StatusOK, gin.H{"items": items, "cached": true})
			return
		}
		if err := db.Where("user_id = ?", userID).Order("added_at, id").Find(&items).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch cart"})
			return
		}
		ch.Set(ctx, key, items, 60*time.Second)
		c.JSON(http.StatusOK, gin.H{"items": items, "cached": false})
	}
}
