package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"marketplace_system/internal/accounts"
	"marketplace_system/internal/cache"
	"marketplace_system/internal/domain"
)

// UserAdminResponse represents the user data returned to admin
type UserAdminResponse struct {
	ID     uint           `json:"id"`
	Email  string         `json:"email"`
	Name   string         `json:"name"`
	Role   string         `json:"role"`
	Vendor *domain.Vendor `json:"vendor,omitempty"`
	Driver *domain.Driver `json:"driver,omitempty"`
}

// ListUsersHandler returns all users with their profiles, paginated and
// briefly cached
func ListUsersHandler(db *gorm.DB, ch *cache.Cache) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		cacheKey := "admin:users:page=" + c.DefaultQuery("page", "1") + ":size=" + c.DefaultQuery("page_size", "20")
		var cached gin.H
		if ch.Get(ctx, cacheKey, &cached) {
			cached["cached"] = true
			c.JSON(http.StatusOK, cached)
			return
		}
		page := 1
		pageSize := 20
		if p := c.Query("page"); p != "" {
			if v, err := strconv.Atoi(p); err == nil && v > 0 {
				page = v
			}
		}
		if ps := c.Query("page_size"); ps != "" {
			if v, err := strconv.Atoi(ps); err == nil && v > 0 && v <= 100 {
				pageSize = v
			}
		}
		offset := (page - 1) * pageSize
		var total int64
		if err := db.Model(&domain.User{}).Count(&total).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to count users"})
			return
		}
		var users []domain.User
		if err := db.Preload("Vendor").Preload("Driver").
			Offset(offset).Limit(pageSize).Find(&users).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch users"})
			return
		}
		resp := make([]UserAdminResponse, len(users))
		for i, u := range users {
			resp[i] = UserAdminResponse{
				ID:     u.ID,
				Email:  u.Email,
				Name:   u.Name,
				Role:   u.Role,
				Vendor: u.Vendor,
				Driver: u.Driver,
			}
		}
		respData := gin.H{
			"users":       resp,
			"page":        page,
			"page_size":   pageSize,
			"total":       total,
			"total_pages": (int(total) + pageSize - 1) / pageSize,
			"cached":      false,
		}
		ch.Set(ctx, cacheKey, respData, 60*time.Second)
		c.JSON(http.StatusOK, respData)
	}
}

// DeleteUserHandler runs the full account deletion pass
func DeleteUserHandler(orch *accounts.Orchestrator, ch *cache.Cache) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, err := strconv.Atoi(c.Param("userID"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user id"})
			return
		}
		report, err := orch.DeleteUser(c.Request.Context(), uint(userID))
		if err != nil {
			respondError(c, err)
			return
		}
		// Cached reads may reference rows the pass just removed
		ch.InvalidatePattern(c.Request.Context(), "admin:users:*")
		failures := make([]string, 0, len(report.Failures))
		for _, f := range report.Failures {
			failures = append(failures, f.Error())
		}
		c.JSON(http.StatusOK, gin.H{
			"message":  "User deleted",
			"cleaned":  report.Cleaned,
			"failures": failures,
		})
	}
}

// ScanUserReferencesHandler runs the read-only diagnostics pass for a
// deletion that keeps failing
func ScanUserReferencesHandler(orch *accounts.Orchestrator) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, err := strconv.Atoi(c.Param("userID"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user id"})
			return
		}
		refs, err := orch.ScanReferences(c.Request.Context(), uint(userID))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"blocking_tables": refs})
	}
}

// ApproveVendorHandler flips a vendor profile's approval status
func ApproveVendorHandler(db *gorm.DB, ch *cache.Cache) gin.HandlerFunc {
	return func(c *gin.Context) {
		vendorID, err := strconv.Atoi(c.Param("vendorID"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid vendor id"})
			return
		}
		var req struct {
			Status string `json:"status" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}
		switch req.Status {
		case domain.VendorStatusApproved, domain.VendorStatusRejected, domain.VendorStatusSuspended:
		default:
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid vendor status"})
			return
		}
		res := db.Model(&domain.Vendor{}).Where("id = ?", vendorID).Update("status", req.Status)
		if res.Error != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update vendor"})
			return
		}
		if res.RowsAffected == 0 {
			c.JSON(http.StatusNotFound, gin.H{"error": "Vendor not found"})
			return
		}
		ch.Invalidate(c.Request.Context(), cache.VendorKey(uint(vendorID)))
		c.JSON(http.StatusOK, gin.H{"message": "Vendor status updated"})
	}
}
