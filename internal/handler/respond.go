package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"salun/internal/domain"
	"salun/internal/middleware"
	"salun/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// statusOf maps service errors onto HTTP statuses. 401 and 403 are reserved
// for authentication and account approval since clients sign out on both.
func statusOf(err error) int {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrMobileExists),
		errors.Is(err, service.ErrBarcodeUsed),
		errors.Is(err, service.ErrRedemptionClosed):
		return http.StatusConflict
	case errors.Is(err, service.ErrUploadUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, service.ErrNotUser),
		errors.Is(err, service.ErrInsufficientPoints),
		errors.Is(err, service.ErrInvalidBarcode),
		errors.Is(err, service.ErrNoRange),
		errors.Is(err, service.ErrInvalidStatus),
		errors.Is(err, service.ErrInvalidCreds),
		errors.Is(err, domain.ErrInvalidAdjustment),
		errors.Is(err, domain.ErrInvalidRange):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// fail writes err as {"message": ...}. Unexpected errors are logged and
// answered with a generic message.
func fail(c *gin.Context, err error, what string) {
	code := statusOf(err)
	msg := err.Error()
	switch code {
	case http.StatusNotFound:
		msg = what + " not found"
	case http.StatusInternalServerError:
		log.Error().Err(err).Str("route", c.FullPath()).Uint("user_id", middleware.GetUserID(c)).Msg(what)
		msg = "Internal server error"
	}
	c.JSON(code, gin.H{"message": msg})
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"message": msg})
}

// idParam parses a numeric path parameter, answering 400 when it is not one.
func idParam(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		badRequest(c, "invalid "+name)
		return 0, false
	}
	return uint(id), true
}

// ownerParam parses a user id parameter the caller may read: their own, or
// anyone's for an admin. Other ids answer 404.
func ownerParam(c *gin.Context, name string) (uint, bool) {
	id, ok := idParam(c, name)
	if !ok {
		return 0, false
	}
	if id != middleware.GetUserID(c) && !middleware.IsAdmin(c) {
		c.JSON(http.StatusNotFound, gin.H{"message": "User not found"})
		return 0, false
	}
	return id, true
}

// flexID decodes an id sent either as a JSON number or a numeric string.
type flexID uint

func (f *flexID) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		*f = 0
		return nil
	}
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid id %s", b)
	}
	*f = flexID(n)
	return nil
}
