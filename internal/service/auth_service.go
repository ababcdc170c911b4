package service

import (
	"context"
	"errors"
	"strings"

	"salun/config"
	"salun/internal/auth"
	"salun/internal/domain"
	"salun/internal/models"
	"salun/internal/repository"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type AuthService struct {
	cfg      *config.Config
	userRepo *repository.UserRepository
	notify   *NotificationService
	hub      Emitter
}

func NewAuthService(cfg *config.Config, userRepo *repository.UserRepository, notify *NotificationService, hub Emitter) *AuthService {
	return &AuthService{cfg: cfg, userRepo: userRepo, notify: notify, hub: hub}
}

// Register creates a pending user account and tells the admins about it.
func (s *AuthService) Register(ctx context.Context, name, mobile, password, location string) (*models.User, error) {
	_, err := s.userRepo.GetByMobile(mobile)
	if err == nil {
		return nil, ErrMobileExists
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	u := &models.User{
		Name:         name,
		Mobile:       mobile,
		UniqueCode:   strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8]),
		PasswordHash: string(hash),
		Role:         domain.RoleUser,
		Status:       domain.StatusPending,
		Location:     location,
	}
	if err := s.userRepo.Create(u); err != nil {
		return nil, err
	}
	s.hub.EmitToAdmins(domain.EventUserPendingApproval, u)
	s.notify.NotifyAdmins(ctx, "New user pending approval: "+u.Name, models.JSONMap{"screen": "users", "userId": u.ID})
	return u, nil
}

// Login checks credentials and issues an access token. Pending accounts may
// sign in; the approval gate answers them with 403.
func (s *AuthService) Login(mobile, password string) (*models.User, string, error) {
	u, err := s.userRepo.GetByMobile(mobile)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, "", ErrInvalidCreds
		}
		return nil, "", err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return nil, "", ErrInvalidCreds
	}
	token, err := auth.GenerateAccessToken(&s.cfg.JWT, u.ID, u.Mobile, u.Role)
	if err != nil {
		return nil, "", err
	}
	return u, token, nil
}

// ChangePassword updates a password. The current password is checked unless
// an admin is resetting someone else's.
func (s *AuthService) ChangePassword(userID uint, current, next string, byAdmin bool) error {
	u, err := s.userRepo.GetByID(userID)
	if err != nil {
		return err
	}
	if !byAdmin {
		if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(current)); err != nil {
			return ErrInvalidCreds
		}
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(next), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = string(hash)
	return s.userRepo.Update(u)
}
