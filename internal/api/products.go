package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"marketplace_system/internal/catalog"
	"marketplace_system/internal/domain"
)

// Request struct for product updates by the owning vendor
type ProductUpdateRequest struct {
	Name     *string `json:"name"`
	Price    *int64  `json:"price"`
	Quantity *int    `json:"quantity"`
	Active   *bool   `json:"active"`
}

// GetProductHandler returns one product through the cache
func GetProductHandler(svc *catalog.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.Atoi(c.Param("productID"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid product id"})
			return
		}
		product, err := svc.GetProduct(c.Request.Context(), uint(id))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, product)
	}
}

// GetVendorHandler returns one vendor profile through the cache
func GetVendorHandler(svc *catalog.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.Atoi(c.Param("vendorID"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid vendor id"})
			return
		}
		vendor, err := svc.GetVendor(c.Request.Context(), uint(id))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, vendor)
	}
}

// ListCategoryProductsHandler lists products across a category subtree
func ListCategoryProductsHandler(svc *catalog.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.Atoi(c.Param("categoryID"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid category id"})
			return
		}
		products, err := svc.ProductsInCategory(c.Request.Context(), uint(id))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"products": products})
	}
}

// UpdateProductHandler lets a vendor edit an owned product. Price and
// stock edits never touch historical orders, which keep their snapshots.
func UpdateProductHandler(db *gorm.DB, svc *catalog.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.MustGet("userID").(uint)
		productID, err := strconv.Atoi(c.Param("productID"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid product id"})
			return
		}
		var vendor domain.Vendor
		if err := db.Where("user_id = ?", userID).First(&vendor).Error; err != nil {
			c.JSON(http.StatusForbidden, gin.H{"error": "No vendor profile"})
			return
		}
		var req ProductUpdateRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}
		updates := map[string]any{}
		if req.Name != nil {
			updates["name"] = *req.Name
		}
		if req.Price != nil {
			if *req.Price <= 0 {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Price must be positive"})
				return
			}
			updates["price"] = *req.Price
		}
		if req.Quantity != nil {
			if *req.Quantity < 0 {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Quantity cannot be negative"})
				return
			}
			updates["quantity"] = *req.Quantity
		}
		if req.Active != nil {
			updates["active"] = *req.Active
		}
		if len(updates) == 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Nothing to update"})
			return
		}
		if err := svc.UpdateProduct(c.Request.Context(), vendor.ID, uint(productID), updates); err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Product updated"})
	}
}
