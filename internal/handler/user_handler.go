package handler

import (
	"errors"
	"net/http"

	"salun/internal/middleware"
	"salun/internal/service"

	"github.com/gin-gonic/gin"
)

type UserHandler struct {
	users  *service.UserService
	points *service.PointsService
	auth   *service.AuthService
}

func NewUserHandler(users *service.UserService, points *service.PointsService, auth *service.AuthService) *UserHandler {
	return &UserHandler{users: users, points: points, auth: auth}
}

// List returns every non-admin account (admin only).
func (h *UserHandler) List(c *gin.Context) {
	list, err := h.users.List()
	if err != nil {
		fail(c, err, "list users")
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *UserHandler) Get(c *gin.Context) {
	id, ok := ownerParam(c, "id")
	if !ok {
		return
	}
	u, err := h.users.Get(id)
	if err != nil {
		fail(c, err, "User")
		return
	}
	c.JSON(http.StatusOK, u)
}

type StatusRequest struct {
	Status string `json:"status" binding:"required"`
}

func (h *UserHandler) SetStatus(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req StatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	u, err := h.users.SetStatus(c.Request.Context(), id, req.Status)
	if err != nil {
		fail(c, err, "User")
		return
	}
	c.JSON(http.StatusOK, u)
}

func (h *UserHandler) ResetPoints(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	u, err := h.points.Reset(c.Request.Context(), id)
	if err != nil {
		fail(c, err, "User")
		return
	}
	c.JSON(http.StatusOK, u)
}

func (h *UserHandler) Delete(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	if err := h.users.Delete(id); err != nil {
		fail(c, err, "User")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "User deleted"})
}

type PasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword" binding:"required,min=6"`
}

// ChangePassword lets a user change their own password, or an admin reset
// anyone's without the current one.
func (h *UserHandler) ChangePassword(c *gin.Context) {
	id, ok := ownerParam(c, "id")
	if !ok {
		return
	}
	var req PasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	byAdmin := middleware.IsAdmin(c) && id != middleware.GetUserID(c)
	if !byAdmin && req.CurrentPassword == "" {
		badRequest(c, "currentPassword is required")
		return
	}
	if err := h.auth.ChangePassword(id, req.CurrentPassword, req.NewPassword, byAdmin); err != nil {
		if errors.Is(err, service.ErrInvalidCreds) {
			badRequest(c, "Current password is incorrect")
			return
		}
		fail(c, err, "User")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Password updated"})
}

type DeviceRequest struct {
	Token string `json:"token"`
}

// SetDevice registers the caller's FCM token.
func (h *UserHandler) SetDevice(c *gin.Context) {
	var req DeviceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	if err := h.users.SetFCMToken(middleware.GetUserID(c), req.Token); err != nil {
		fail(c, err, "register device")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Device registered"})
}

type AdjustRequest struct {
	UserID flexID `json:"userId" binding:"required"`
	Amount int64  `json:"amount"`
	Type   string `json:"type" binding:"required"`
}

// AdjustPoints manually credits or debits a user (admin only).
func (h *UserHandler) AdjustPoints(c *gin.Context) {
	var req AdjustRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	u, err := h.points.Adjust(c.Request.Context(), uint(req.UserID), req.Amount, req.Type)
	if err != nil {
		fail(c, err, "User")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Points updated", "user": u, "points": u.Points})
}
