package handler

import (
	"errors"
	"net/http"

	"salun/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

type AuthHandler struct {
	svc *service.AuthService
}

func NewAuthHandler(svc *service.AuthService) *AuthHandler {
	return &AuthHandler{svc: svc}
}

type RegisterRequest struct {
	Name     string `json:"name" binding:"required,max=255"`
	Mobile   string `json:"mobile" binding:"required,min=6,max=32"`
	Password string `json:"password" binding:"required,min=6"`
	Location string `json:"location" binding:"max=255"`
}

type LoginRequest struct {
	Mobile   string `json:"mobile" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Register creates a pending account. It cannot be used until an admin
// approves it.
func (h *AuthHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	u, err := h.svc.Register(c.Request.Context(), req.Name, req.Mobile, req.Password, req.Location)
	if err != nil {
		fail(c, err, "register")
		return
	}
	log.Info().Uint("user_id", u.ID).Str("mobile", u.Mobile).Msg("user registered")
	c.JSON(http.StatusCreated, gin.H{
		"message": "Registration successful. Your account is pending admin approval.",
		"user":    u,
	})
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	u, token, err := h.svc.Login(req.Mobile, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCreds) {
			c.JSON(http.StatusUnauthorized, gin.H{"message": "Invalid credentials"})
			return
		}
		fail(c, err, "login")
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token, "user": u})
}
