package handler

import (
	"crypto/subtle"
	"net/http"
	"time"

	"kindred/backend/internal/config"

	"github.com/gin-gonic/gin"
	jwt "github.com/golang-jwt/jwt/v5"
)

type adminLoginRequest struct {
	Password string `json:"password" binding:"required"`
}

type interestRequest struct {
	Name string `json:"name" binding:"required,min=1,max=64"`
}

// AdminLogin exchanges the operator password for an admin JWT. Attempts
// are throttled per IP through a Redis counter so the password cannot be
// brute-forced.
func (h *Handler) AdminLogin(c *gin.Context) {
	attempts, err := h.Storage.RegisterLoginAttempt(c.ClientIP())
	if err == nil && attempts > config.LoginAttemptLimit {
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "Too many login attempts, try again later"})
		return
	}

	var req adminLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Password required"})
		return
	}

	if subtle.ConstantTimeCompare([]byte(req.Password), []byte(h.Cfg.AdminPassword)) != 1 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid password"})
		return
	}

	claims := jwt.MapClaims{
		"role": "admin",
		"exp":  time.Now().Add(12 * time.Hour).Unix(),
		"iss":  "kindred-service",
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(h.Cfg.JWTSecret))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create token"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": signed})
}

// AdminAuth is the middleware guarding admin routes: it requires a valid
// JWT with the admin role claim.
func (h *Handler) AdminAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if len(authHeader) < 8 || authHeader[:7] != "Bearer " {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization token missing"})
			return
		}

		token, err := jwt.Parse(authHeader[7:], func(t *jwt.Token) (interface{}, error) {
			return []byte(h.Cfg.JWTSecret), nil
		})
		if err != nil || !token.Valid {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
			return
		}
		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok || claims["role"] != "admin" {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Admin role required"})
			return
		}
		c.Next()
	}
}

// AdminListInterests returns the catalog with timestamps for the dashboard.
func (h *Handler) AdminListInterests(c *gin.Context) {
	interests, err := h.Storage.ListInterests()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list interests"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"interests": interests})
}

// AdminCreateInterest adds one interest to the catalog and refreshes the
// snapshot the engine validates against.
func (h *Handler) AdminCreateInterest(c *gin.Context) {
	var req interestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Interest name required (1-64 chars)"})
		return
	}

	if err := h.Storage.CreateInterest(req.Name); err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": "Interest already exists or could not be saved"})
		return
	}
	if err := h.Catalog.Reload(h.Storage); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Saved but failed to reload catalog"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"name": req.Name})
}

// AdminDeleteInterest removes an interest. Users already waiting with it
// keep their declared set; it only stops new enrollments.
func (h *Handler) AdminDeleteInterest(c *gin.Context) {
	name := c.Param("name")
	if err := h.Storage.DeleteInterest(name); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete interest"})
		return
	}
	if err := h.Catalog.Reload(h.Storage); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Deleted but failed to reload catalog"})
		return
	}
	c.Status(http.StatusNoContent)
}
