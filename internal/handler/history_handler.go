package handler

import (
	"net/http"

	"salun/internal/service"

	"github.com/gin-gonic/gin"
)

type HistoryHandler struct {
	points *service.PointsService
}

func NewHistoryHandler(points *service.PointsService) *HistoryHandler {
	return &HistoryHandler{points: points}
}

// List returns every user's history (admin only).
func (h *HistoryHandler) List(c *gin.Context) {
	list, err := h.points.History(0)
	if err != nil {
		fail(c, err, "list history")
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *HistoryHandler) ListByUser(c *gin.Context) {
	id, ok := ownerParam(c, "id")
	if !ok {
		return
	}
	list, err := h.points.History(id)
	if err != nil {
		fail(c, err, "list history")
		return
	}
	c.JSON(http.StatusOK, list)
}
