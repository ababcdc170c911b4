package service

import (
	"errors"

	"salun/internal/models"
)

var (
	ErrMobileExists       = errors.New("mobile number already registered")
	ErrInvalidCreds       = errors.New("invalid mobile or password")
	ErrNotUser            = errors.New("not a user account")
	ErrInsufficientPoints = errors.New("not enough points")
	ErrInvalidBarcode     = errors.New("invalid barcode")
	ErrBarcodeUsed        = errors.New("barcode already scanned")
	ErrNoRange            = errors.New("barcode is not in any active range")
	ErrInvalidStatus      = errors.New("invalid status")
	ErrRedemptionClosed   = errors.New("redemption already processed")
	ErrUploadUnavailable  = errors.New("image uploads are not configured")
)

// Emitter publishes push events. *ws.Hub implements it: Emit reaches the
// owning user and every admin.
type Emitter interface {
	Emit(event string, userID uint, data any)
	EmitToUser(event string, userID uint, data any)
	EmitToAdmins(event string, data any)
	Broadcast(event string, data any)
}

type pointsPayload struct {
	UserID uint  `json:"userId"`
	Points int64 `json:"points"`
}

type historyBatch struct {
	UserID uint             `json:"userId"`
	Items  []models.History `json:"items"`
}

type idPayload struct {
	ID     uint `json:"id"`
	UserID uint `json:"userId,omitempty"`
}
