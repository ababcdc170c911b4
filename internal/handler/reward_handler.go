package handler

import (
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"salun/internal/domain"
	"salun/internal/middleware"
	"salun/internal/service"

	"github.com/gin-gonic/gin"
)

type RewardHandler struct {
	svc *service.RewardService
}

func NewRewardHandler(svc *service.RewardService) *RewardHandler {
	return &RewardHandler{svc: svc}
}

func (h *RewardHandler) List(c *gin.Context) {
	list, err := h.svc.List()
	if err != nil {
		fail(c, err, "list rewards")
		return
	}
	c.JSON(http.StatusOK, list)
}

type RewardRequest struct {
	Name           string `json:"name" form:"name" binding:"required,max=255"`
	Price          int64  `json:"price" form:"price" binding:"min=0"`
	BundalValue    int64  `json:"bundalValue" form:"bundalValue" binding:"min=0"`
	PointsRequired int64  `json:"pointsRequired" form:"pointsRequired" binding:"required,min=1"`
}

// Create adds a reward from JSON, or from a multipart form carrying an
// optional "image" file.
func (h *RewardHandler) Create(c *gin.Context) {
	var req RewardRequest
	multipartForm := strings.HasPrefix(c.ContentType(), "multipart/")
	var err error
	if multipartForm {
		err = c.ShouldBind(&req)
	} else {
		err = c.ShouldBindJSON(&req)
	}
	if err != nil {
		badRequest(c, err.Error())
		return
	}
	in := service.RewardInput{
		Name:           req.Name,
		Price:          req.Price,
		BundalValue:    req.BundalValue,
		PointsRequired: req.PointsRequired,
	}
	if multipartForm {
		if fh, err := c.FormFile("image"); err == nil {
			var f multipart.File
			if f, err = fh.Open(); err != nil {
				badRequest(c, "could not read image")
				return
			}
			defer f.Close()
			in.Image = f
		}
	}
	rw, err := h.svc.Create(c.Request.Context(), in)
	if err != nil {
		fail(c, err, "create reward")
		return
	}
	c.JSON(http.StatusCreated, rw)
}

func (h *RewardHandler) Delete(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	if err := h.svc.Delete(c.Request.Context(), id); err != nil {
		fail(c, err, "Reward")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Reward deleted"})
}

// Redemptions lists the caller's requests, or everyone's for an admin.
func (h *RewardHandler) Redemptions(c *gin.Context) {
	var userID uint
	if !middleware.IsAdmin(c) {
		userID = middleware.GetUserID(c)
	} else if q := c.Query("userId"); q != "" {
		id, err := strconv.ParseUint(q, 10, 64)
		if err != nil {
			badRequest(c, "invalid userId")
			return
		}
		userID = uint(id)
	}
	list, err := h.svc.Redemptions(userID)
	if err != nil {
		fail(c, err, "list redemptions")
		return
	}
	c.JSON(http.StatusOK, list)
}

type RedeemRequest struct {
	RewardID flexID `json:"rewardId" binding:"required"`
}

func (h *RewardHandler) Redeem(c *gin.Context) {
	if middleware.IsAdmin(c) {
		badRequest(c, "Admins cannot redeem rewards")
		return
	}
	var req RedeemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	rd, err := h.svc.Redeem(c.Request.Context(), middleware.GetUserID(c), uint(req.RewardID))
	if err != nil {
		fail(c, err, "Reward")
		return
	}
	c.JSON(http.StatusCreated, rd)
}

func (h *RewardHandler) SetRedemptionStatus(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req StatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	if req.Status != domain.RedemptionApproved && req.Status != domain.RedemptionRejected {
		badRequest(c, "status must be approved or rejected")
		return
	}
	rd, err := h.svc.SetStatus(c.Request.Context(), id, req.Status)
	if err != nil {
		fail(c, err, "Redemption")
		return
	}
	c.JSON(http.StatusOK, rd)
}
