package service

import (
	"context"
	"fmt"

	"salun/internal/domain"
	"salun/internal/models"
	"salun/internal/repository"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// UserService holds the admin operations on accounts.
type UserService struct {
	db          *gorm.DB
	userRepo    *repository.UserRepository
	barcodeRepo *repository.BarcodeRepository
	notify      *NotificationService
	hub         Emitter
}

func NewUserService(db *gorm.DB, userRepo *repository.UserRepository, barcodeRepo *repository.BarcodeRepository, notify *NotificationService, hub Emitter) *UserService {
	return &UserService{db: db, userRepo: userRepo, barcodeRepo: barcodeRepo, notify: notify, hub: hub}
}

func (s *UserService) List() ([]models.User, error) {
	return s.userRepo.ListUsers()
}

func (s *UserService) Get(id uint) (*models.User, error) {
	return s.userRepo.GetByID(id)
}

// SetFCMToken registers the caller's device for push notifications; an
// empty token unregisters it.
func (s *UserService) SetFCMToken(id uint, token string) error {
	return s.userRepo.SetFCMToken(id, token)
}

var statusMessages = map[string]string{
	domain.StatusApproved:    "Your account has been approved.",
	domain.StatusDisapproved: "Your account has been disapproved.",
	domain.StatusPending:     "Your account is pending admin approval.",
}

// SetStatus approves or disapproves an account.
func (s *UserService) SetStatus(ctx context.Context, id uint, status string) (*models.User, error) {
	if !domain.ValidStatus(status) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}
	u, err := s.userRepo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if u.IsAdmin() {
		return nil, ErrNotUser
	}
	if err := s.userRepo.SetStatus(id, status); err != nil {
		return nil, err
	}
	u.Status = status
	s.hub.Emit(domain.EventUserUpdated, u.ID, u)
	s.hub.EmitToUser(domain.EventUserSelfUpdated, u.ID, map[string]any{"status": status})
	if _, err := s.notify.Notify(ctx, u.ID, statusMessages[status], nil); err != nil {
		log.Error().Err(err).Uint("user_id", u.ID).Msg("notify status change")
	}
	return u, nil
}

// Delete removes an account and its scanned barcodes.
func (s *UserService) Delete(id uint) error {
	u, err := s.userRepo.GetByID(id)
	if err != nil {
		return err
	}
	if u.IsAdmin() {
		return ErrNotUser
	}
	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.barcodeRepo.WithTx(tx).DeleteByUserID(id); err != nil {
			return err
		}
		return s.userRepo.WithTx(tx).Delete(id)
	})
	if err != nil {
		return err
	}
	s.hub.Emit(domain.EventUserDeleted, id, idPayload{ID: id})
	return nil
}
