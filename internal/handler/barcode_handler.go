package handler

import (
	"net/http"

	"salun/internal/middleware"
	"salun/internal/service"

	"github.com/gin-gonic/gin"
)

type BarcodeHandler struct {
	barcodes *service.BarcodeService
	points   *service.PointsService
}

func NewBarcodeHandler(barcodes *service.BarcodeService, points *service.PointsService) *BarcodeHandler {
	return &BarcodeHandler{barcodes: barcodes, points: points}
}

func (h *BarcodeHandler) List(c *gin.Context) {
	list, err := h.barcodes.List()
	if err != nil {
		fail(c, err, "list barcodes")
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *BarcodeHandler) ListByUser(c *gin.Context) {
	id, ok := ownerParam(c, "id")
	if !ok {
		return
	}
	list, err := h.barcodes.ListByUser(id)
	if err != nil {
		fail(c, err, "list barcodes")
		return
	}
	c.JSON(http.StatusOK, list)
}

type ScanRequest struct {
	Value    string `json:"value" binding:"required"`
	Location string `json:"location"`
}

func (h *BarcodeHandler) Scan(c *gin.Context) {
	var req ScanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	res, err := h.points.Scan(c.Request.Context(), middleware.GetUserID(c), req.Value, req.Location)
	if err != nil {
		fail(c, err, "scan barcode")
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"message":       "Barcode scanned",
		"pointsAwarded": res.Awarded,
		"points":        res.User.Points,
		"barcode":       res.Barcode,
	})
}

func (h *BarcodeHandler) Delete(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	if err := h.barcodes.Delete(id); err != nil {
		fail(c, err, "Barcode")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Barcode deleted"})
}

func (h *BarcodeHandler) Ranges(c *gin.Context) {
	list, err := h.barcodes.Ranges()
	if err != nil {
		fail(c, err, "list ranges")
		return
	}
	c.JSON(http.StatusOK, list)
}

type RangeRequest struct {
	Start  string `json:"start" binding:"required"`
	End    string `json:"end" binding:"required"`
	Points int64  `json:"points" binding:"required"`
}

func (h *BarcodeHandler) CreateRange(c *gin.Context) {
	var req RangeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	br, err := h.barcodes.CreateRange(req.Start, req.End, req.Points)
	if err != nil {
		fail(c, err, "create range")
		return
	}
	c.JSON(http.StatusCreated, br)
}

func (h *BarcodeHandler) UpdateRange(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req RangeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	br, err := h.barcodes.UpdateRange(id, req.Start, req.End, req.Points)
	if err != nil {
		fail(c, err, "Range")
		return
	}
	c.JSON(http.StatusOK, br)
}

func (h *BarcodeHandler) DeleteRange(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	if err := h.barcodes.DeleteRange(id); err != nil {
		fail(c, err, "Range")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Range deleted"})
}
