package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"marketplace_system/internal/checkout"
	"marketplace_system/internal/domain"
)

// Request struct for checkout
type CheckoutRequest struct {
	DeliveryType  string         `json:"delivery_type" binding:"required"`
	PaymentMethod string         `json:"payment_method" binding:"required"`
	Address       domain.Address `json:"address"`
}

// CheckoutHandler turns the user's cart into per-vendor orders. Partial
// success is reported per vendor: committed orders stand even when
// another vendor's group failed.
func CheckoutHandler(svc *checkout.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.MustGet("userID").(uint)
		var req CheckoutRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}
		res, err := svc.Checkout(c.Request.Context(), userID, checkout.Request{
			DeliveryType:  req.DeliveryType,
			PaymentMethod: req.PaymentMethod,
			Address:       req.Address,
		})
		if err != nil {
			respondError(c, err)
			return
		}
		failures := make([]gin.H, 0, len(res.Failures))
		for _, f := range res.Failures {
			failures = append(failures, gin.H{"vendor_id": f.VendorID, "error": f.Err.Error()})
		}
		status := http.StatusCreated
		if len(res.Orders) == 0 {
			// Nothing committed: report as a failed checkout
			status = http.StatusConflict
		}
		c.JSON(status, gin.H{"orders": res.Orders, "failures": failures})
	}
}
