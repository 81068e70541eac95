package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"marketplace_system/internal/domain"
	"marketplace_system/internal/orders"
)

// Request struct for a status transition
type TransitionRequest struct {
	Status string `json:"status" binding:"required"`
	Reason string `json:"reason"` // Required when cancelling past pending
}

// Payment status report from the external payment collaborator
type PaymentCallbackRequest struct {
	Status         string `json:"status" binding:"required"`
	TransactionRef string `json:"transaction_ref"`
	FailureReason  string `json:"failure_reason"`
}

// GetOrderHandler returns one order, scoped to its participants
func GetOrderHandler(db *gorm.DB, svc *orders.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.MustGet("userID").(uint)
		orderID, err := strconv.Atoi(c.Param("orderID"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid order id"})
			return
		}
		order, err := svc.Get(c.Request.Context(), uint(orderID))
		if err != nil {
			respondError(c, err)
			return
		}
		if !mayViewOrder(db, order, userID) {
			c.JSON(http.StatusForbidden, gin.H{"error": "Access denied"})
			return
		}
		c.JSON(http.StatusOK, order)
	}
}

// ListMyOrdersHandler lists the authenticated user's orders: a
// customer's own, or the received orders of the user's vendor profile.
func ListMyOrdersHandler(db *gorm.DB, svc *orders.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.MustGet("userID").(uint)
		ctx := c.Request.Context()

		var vendor domain.Vendor
		if err := db.Where("user_id = ?", userID).First(&vendor).Error; err == nil {
			out, err := svc.ListForVendor(ctx, vendor.ID)
			if err != nil {
				respondError(c, err)
				return
			}
			c.JSON(http.StatusOK, gin.H{"orders": out})
			return
		}
		out, err := svc.ListForCustomer(ctx, userID)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"orders": out})
	}
}

// TransitionOrderHandler applies one status transition on behalf of the
// authenticated actor
func TransitionOrderHandler(svc *orders.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.MustGet("userID").(uint)
		role := c.GetString("role")
		orderID, err := strconv.Atoi(c.Param("orderID"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid order id"})
			return
		}
		var req TransitionRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}
		actor := orders.Actor{UserID: userID, Role: role}
		order, err := svc.Transition(c.Request.Context(), uint(orderID), domain.OrderStatus(req.Status), actor, req.Reason)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, order)
	}
}

// PaymentCallbackHandler records a payment status reported by the
// external provider integration
func PaymentCallbackHandler(svc *orders.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		orderID, err := strconv.Atoi(c.Param("orderID"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid order id"})
			return
		}
		var req PaymentCallbackRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}
		switch req.Status {
		case domain.PaymentStatusCompleted, domain.PaymentStatusFailed, domain.PaymentStatusRefunded:
		default:
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid payment status"})
			return
		}
		if err := svc.RecordPaymentStatus(c.Request.Context(), uint(orderID), req.Status, req.TransactionRef, req.FailureReason); err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Payment status recorded"})
	}
}

// mayViewOrder allows the customer, the vendor's owner, the assigned
// driver and admins.
func mayViewOrder(db *gorm.DB, order domain.Order, userID uint) bool {
	if order.CustomerID == userID {
		return true
	}
	var user domain.User
	if err := db.First(&user, userID).Error; err != nil {
		return false
	}
	switch user.Role {
	case domain.RoleAdmin:
		return true
	case domain.RoleVendor:
		var vendor domain.Vendor
		return db.Where("user_id = ?", userID).First(&vendor).Error == nil && vendor.ID == order.VendorID
	case domain.RoleDriver:
		var driver domain.Driver
		return db.Where("user_id = ?", userID).First(&driver).Error == nil &&
			order.DriverID != nil && *order.DriverID == driver.ID
	}
	return false
}
