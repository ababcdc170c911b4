package service

import (
	"context"
	"errors"
	"fmt"

	"salun/internal/domain"
	"salun/internal/metrics"
	"salun/internal/models"
	"salun/internal/repository"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// PointsService owns every change to a user's balance. Each change writes
// the balance and its history entry in one transaction, then publishes.
type PointsService struct {
	db          *gorm.DB
	userRepo    *repository.UserRepository
	barcodeRepo *repository.BarcodeRepository
	rangeRepo   *repository.RangeRepository
	historyRepo *repository.HistoryRepository
	notify      *NotificationService
	hub         Emitter
}

func NewPointsService(db *gorm.DB, userRepo *repository.UserRepository, barcodeRepo *repository.BarcodeRepository,
	rangeRepo *repository.RangeRepository, historyRepo *repository.HistoryRepository, notify *NotificationService, hub Emitter) *PointsService {
	return &PointsService{
		db:          db,
		userRepo:    userRepo,
		barcodeRepo: barcodeRepo,
		rangeRepo:   rangeRepo,
		historyRepo: historyRepo,
		notify:      notify,
		hub:         hub,
	}
}

// ScanResult is what a successful scan produced.
type ScanResult struct {
	Barcode *models.Barcode
	Awarded int64
	User    *models.User
}

// Scan credits userID with the points of the range containing value. Each
// barcode value can be scanned once.
func (s *PointsService) Scan(ctx context.Context, userID uint, value, location string) (*ScanResult, error) {
	value = domain.NormalizeBarcode(value)
	if value == "" {
		return nil, ErrInvalidBarcode
	}
	if location == "" {
		location = "Unknown"
	}
	ranges, err := s.rangeRepo.List()
	if err != nil {
		return nil, err
	}
	var match *models.BarcodeRange
	for i := range ranges {
		if domain.InRange(value, ranges[i].Start, ranges[i].End) {
			match = &ranges[i]
			break
		}
	}
	if match == nil {
		return nil, ErrNoRange
	}

	res := &ScanResult{Awarded: match.Points}
	var entry *models.History
	err = s.db.Transaction(func(tx *gorm.DB) error {
		barcodes := s.barcodeRepo.WithTx(tx)
		used, err := barcodes.Exists(value)
		if err != nil {
			return err
		}
		if used {
			return ErrBarcodeUsed
		}
		res.Barcode = &models.Barcode{Value: value, UserID: userID, RangeID: match.ID, Points: match.Points, Location: location}
		if err := barcodes.Create(res.Barcode); err != nil {
			return err
		}
		entry, res.User, err = s.credit(tx, userID, match.Points, domain.ActionScan, models.JSONMap{
			"amount":   match.Points,
			"barcode":  value,
			"location": location,
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	metrics.PointsAwarded.WithLabelValues(domain.ActionScan).Add(float64(match.Points))
	log.Info().Uint("user_id", userID).Str("barcode", value).Int64("points", match.Points).Msg("barcode scanned")
	s.hub.Emit(domain.EventBarcodeScanned, userID, map[string]any{
		"userId":      userID,
		"barcode":     res.Barcode,
		"addedPoints": match.Points,
	})
	s.hub.EmitToAdmins(domain.EventBarcodeUpdated, res.Barcode)
	s.published(ctx, res.User, entry, fmt.Sprintf("You earned %d points for scanning %s", match.Points, value))
	return res, nil
}

// Adjust manually credits ("add") or debits ("redeem") a user.
func (s *PointsService) Adjust(ctx context.Context, userID uint, amount int64, kind string) (*models.User, error) {
	if err := domain.ValidateAdjustment(kind, amount); err != nil {
		return nil, err
	}
	action, delta := domain.ActionPointAdd, amount
	if kind == domain.AdjustRedeem {
		action, delta = domain.ActionPointRedeem, -amount
	}
	var (
		entry *models.History
		user  *models.User
	)
	err := s.db.Transaction(func(tx *gorm.DB) error {
		u, err := s.userRepo.WithTx(tx).GetByID(userID)
		if err != nil {
			return err
		}
		if u.IsAdmin() {
			return ErrNotUser
		}
		if delta < 0 && u.Points < amount {
			return fmt.Errorf("%w: cannot redeem more than available points", ErrInsufficientPoints)
		}
		entry, user, err = s.credit(tx, userID, delta, action, models.JSONMap{"amount": amount})
		return err
	})
	if err != nil {
		return nil, err
	}
	metrics.PointsAwarded.WithLabelValues(action).Add(float64(amount))
	msg := fmt.Sprintf("%d points were added to your account", amount)
	if delta < 0 {
		msg = fmt.Sprintf("%d points were redeemed from your account", amount)
	}
	s.published(ctx, user, entry, msg)
	return user, nil
}

// Reset zeroes a balance, recording the removed points as a redemption of
// the whole balance so the ledger still adds up.
func (s *PointsService) Reset(ctx context.Context, userID uint) (*models.User, error) {
	var (
		entry *models.History
		user  *models.User
	)
	err := s.db.Transaction(func(tx *gorm.DB) error {
		u, err := s.userRepo.WithTx(tx).GetByID(userID)
		if err != nil {
			return err
		}
		if u.IsAdmin() {
			return ErrNotUser
		}
		if u.Points == 0 {
			user = u
			return nil
		}
		entry, user, err = s.credit(tx, userID, -u.Points, domain.ActionPointRedeem, models.JSONMap{"amount": u.Points, "reason": "reset"})
		return err
	})
	if err != nil {
		return nil, err
	}
	s.hub.Emit(domain.EventPointsUpdated, user.ID, pointsPayload{UserID: user.ID, Points: user.Points})
	if entry != nil {
		s.hub.Emit(domain.EventHistoryUpdated, user.ID, historyBatch{UserID: user.ID, Items: []models.History{*entry}})
	}
	return user, nil
}

// credit applies delta inside tx, records the history entry and returns the
// updated user.
func (s *PointsService) credit(tx *gorm.DB, userID uint, delta int64, action string, details models.JSONMap) (*models.History, *models.User, error) {
	users := s.userRepo.WithTx(tx)
	if err := users.AddPoints(userID, delta); err != nil {
		return nil, nil, err
	}
	amount := delta
	if amount < 0 {
		amount = -amount
	}
	h := &models.History{UserID: userID, Action: action, Details: details, Points: amount}
	if err := s.historyRepo.WithTx(tx).Create(h); err != nil {
		return nil, nil, err
	}
	u, err := users.GetByID(userID)
	if err != nil {
		return nil, nil, err
	}
	if u.Points < 0 {
		return nil, nil, ErrInsufficientPoints
	}
	return h, u, nil
}

// published emits the balance and history events of one change and notifies
// the owner.
func (s *PointsService) published(ctx context.Context, u *models.User, entry *models.History, message string) {
	s.hub.Emit(domain.EventPointsUpdated, u.ID, pointsPayload{UserID: u.ID, Points: u.Points})
	if entry != nil {
		s.hub.Emit(domain.EventUserHistoryUpdated, u.ID, entry)
	}
	if message != "" {
		if _, err := s.notify.Notify(ctx, u.ID, message, models.JSONMap{"screen": "history"}); err != nil {
			log.Error().Err(err).Uint("user_id", u.ID).Msg("notify points change")
		}
	}
}

// History lists entries newest first; userID 0 lists everyone's.
func (s *PointsService) History(userID uint) ([]models.History, error) {
	return s.historyRepo.List(userID, 0)
}

// IsNotFound reports whether err means the addressed record does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
