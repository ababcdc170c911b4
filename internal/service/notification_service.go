package service

import (
	"context"

	"salun/internal/domain"
	"salun/internal/models"
	"salun/internal/repository"

	"github.com/rs/zerolog/log"
)

type NotificationService struct {
	repo     *repository.NotificationRepository
	userRepo *repository.UserRepository
	hub      Emitter
	fcm      *FCMService
}

func NewNotificationService(repo *repository.NotificationRepository, userRepo *repository.UserRepository, hub Emitter, fcm *FCMService) *NotificationService {
	return &NotificationService{repo: repo, userRepo: userRepo, hub: hub, fcm: fcm}
}

// Notify stores a notification for userID and pushes it to their sockets and
// device.
func (s *NotificationService) Notify(ctx context.Context, userID uint, message string, redirect models.JSONMap) (*models.Notification, error) {
	n := &models.Notification{UserID: userID, Message: message, RedirectData: redirect}
	if err := s.repo.Create(n); err != nil {
		return nil, err
	}
	s.hub.EmitToUser(domain.EventNotificationCreated, userID, n)
	s.sendPush(ctx, userID, domain.EventNotificationCreated, n)
	return n, nil
}

// NotifyAdmins stores one notification per admin account.
func (s *NotificationService) NotifyAdmins(ctx context.Context, message string, redirect models.JSONMap) {
	ids, err := s.userRepo.AdminIDs()
	if err != nil {
		log.Error().Err(err).Msg("notify admins: list admins")
		return
	}
	for _, id := range ids {
		n := &models.Notification{UserID: id, Message: message, RedirectData: redirect}
		if err := s.repo.Create(n); err != nil {
			log.Error().Err(err).Uint("admin_id", id).Msg("notify admins: create")
			continue
		}
		s.hub.EmitToUser(domain.EventNotificationUpdated, id, n)
		s.sendPush(ctx, id, domain.EventNotificationUpdated, n)
	}
}

func (s *NotificationService) List(userID uint) ([]models.Notification, error) {
	return s.repo.ListByUserID(userID, 200)
}

func (s *NotificationService) MarkRead(id, userID uint) (bool, error) {
	return s.repo.MarkRead(id, userID)
}

func (s *NotificationService) Delete(id, userID uint) (bool, error) {
	return s.repo.Delete(id, userID)
}

func (s *NotificationService) sendPush(ctx context.Context, userID uint, event string, n *models.Notification) {
	if s.fcm == nil {
		return
	}
	u, err := s.userRepo.GetByID(userID)
	if err != nil || u.FCMToken == "" {
		return
	}
	_ = s.fcm.SendNotification(ctx, u.FCMToken, event, n)
}
