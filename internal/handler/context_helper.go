package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/curriculum-qa-api/internal/middleware"
	"github.com/noah-isme/curriculum-qa-api/internal/models"
)

func claimsFromContext(c *gin.Context) *models.JWTClaims {
	value, exists := c.Get(middleware.ContextUserKey)
	if !exists {
		return nil
	}
	claims, ok := value.(*models.JWTClaims)
	if !ok {
		return nil
	}
	return claims
}

// actor returns the caller's user id and role, defaulting to the anonymous instructor.
func actor(c *gin.Context) (string, models.UserRole) {
	claims := claimsFromContext(c)
	if claims == nil || claims.UserID == "" {
		return middleware.AnonymousUserID, models.RoleInstructor
	}
	return claims.UserID, claims.Role
}

func actorID(c *gin.Context) string {
	id, _ := actor(c)
	return id
}

// owns reports whether the caller may touch a session created by ownerID.
func owns(c *gin.Context, ownerID string) bool {
	id, role := actor(c)
	return role == models.RoleAdmin || ownerID == "" || ownerID == id
}
