package api

import (
	"net/http" // HTTP status codes
	"regexp"   // Email validation
	"strings"  // String manipulation

	"marketplace_system/internal/domain" // Importing domain models
	"marketplace_system/internal/utils"  // Utility functions

	"github.com/gin-gonic/gin"   // Gin web framework
	"golang.org/x/crypto/bcrypt" // Password hashing
	"gorm.io/gorm"               // GORM ORM library
)

// Request struct for registration
type RegisterRequest struct {
	Email        string `json:"email" binding:"required"`
	Password     string `json:"password" binding:"required"`
	Name         string `json:"name" binding:"required"`
	Phone        string `json:"phone"`
	Role         string `json:"role"`          // customer (default), vendor or driver
	BusinessName string `json:"business_name"` // Required when role is vendor
}

// Request struct for login
type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Response struct for authentication
type AuthResponse struct {
	Token string `json:"token"` // JWT token
}

var emailRe = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// isValidPassword checks if the password length is between 8 and 72 characters
func isValidPassword(password string) bool {
	return len(password) >= 8 && len(password) <= 72
}

// RegisterHandler creates a user account plus the role profile it needs
func RegisterHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req RegisterRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}
		if !emailRe.MatchString(req.Email) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid email address"})
			return
		}
		if !isValidPassword(req.Password) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Password must be 8-72 characters"})
			return
		}
		role := req.Role
		if role == "" {
			role = domain.RoleCustomer
		}
		// Admin accounts are provisioned out of band, never self-registered
		if role != domain.RoleCustomer && role != domain.RoleVendor && role != domain.RoleDriver {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid role"})
			return
		}
		if role == domain.RoleVendor && req.BusinessName == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Vendor registration requires a business name"})
			return
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to hash password"})
			return
		}
		user := domain.User{
			Email:        strings.ToLower(req.Email),
			Phone:        req.Phone,
			Name:         req.Name,
			PasswordHash: string(hash),
			Role:         role,
		}
		switch role {
		case domain.RoleVendor:
			user.Vendor = &domain.Vendor{
				BusinessName: req.BusinessName,
				Status:       domain.VendorStatusPending,
			}
		case domain.RoleDriver:
			user.Driver = &domain.Driver{}
		}
		// Profile rows are created with the user in one insert
		if err := db.Create(&user).Error; err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Email already registered"})
			return
		}
		c.JSON(http.StatusCreated, gin.H{"message": "User registered successfully", "user_id": user.ID})
	}
}

// LoginHandler authenticates a user and returns a JWT token
func LoginHandler(db *gorm.DB, jwtSecret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req LoginRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}
		var user domain.User
		if err := db.Where("email = ?", strings.ToLower(req.Email)).First(&user).Error; err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
			return
		}
		if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
			return
		}
		token, err := utils.GenerateJWT(user.ID, user.Role, jwtSecret)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate token"})
			return
		}
		c.JSON(http.StatusOK, AuthResponse{Token: token})
	}
}
