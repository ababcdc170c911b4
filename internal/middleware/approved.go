package middleware

import (
	"errors"
	"net/http"

	"salun/internal/domain"
	"salun/internal/repository"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// ApprovedOnly rejects accounts an admin has not approved. The status is read
// from the database on every request so a disapproval takes effect before
// the token expires. Use after AuthRequired.
func ApprovedOnly(userRepo *repository.UserRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		u, err := userRepo.GetByID(GetUserID(c))
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Account no longer exists"})
				return
			}
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"message": "Could not load account"})
			return
		}
		if u.IsAdmin() || u.Status == domain.StatusApproved {
			c.Next()
			return
		}
		msg := "Your account is pending admin approval."
		if u.Status == domain.StatusDisapproved {
			msg = "Your account has been disapproved."
		}
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"message": msg, "status": u.Status})
	}
}
