package service

import (
	"context"
	"fmt"
	"io"
	"strings"

	"salun/internal/domain"
	"salun/internal/metrics"
	"salun/internal/models"
	"salun/internal/repository"
	"salun/pkg/cloudinary"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// RewardService manages the reward catalogue and redemption requests.
type RewardService struct {
	db             *gorm.DB
	rewardRepo     *repository.RewardRepository
	redemptionRepo *repository.RedemptionRepository
	points         *PointsService
	notify         *NotificationService
	hub            Emitter
	cloud          cloudinary.Client
	folder         string
}

func NewRewardService(db *gorm.DB, rewardRepo *repository.RewardRepository, redemptionRepo *repository.RedemptionRepository,
	points *PointsService, notify *NotificationService, hub Emitter, cloud cloudinary.Client, folder string) *RewardService {
	return &RewardService{
		db:             db,
		rewardRepo:     rewardRepo,
		redemptionRepo: redemptionRepo,
		points:         points,
		notify:         notify,
		hub:            hub,
		cloud:          cloud,
		folder:         folder,
	}
}

func (s *RewardService) List() ([]models.Reward, error) {
	return s.rewardRepo.List()
}

// RewardInput creates a reward; Image is optional.
type RewardInput struct {
	Name           string
	Price          int64
	BundalValue    int64
	PointsRequired int64
	Image          io.Reader
}

func (s *RewardService) Create(ctx context.Context, in RewardInput) (*models.Reward, error) {
	rw := &models.Reward{
		Name:           strings.TrimSpace(in.Name),
		Price:          in.Price,
		BundalValue:    in.BundalValue,
		PointsRequired: in.PointsRequired,
	}
	if in.Image != nil {
		if s.cloud == nil {
			return nil, ErrUploadUnavailable
		}
		publicID := "reward_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:16]
		url, _, err := s.cloud.UploadImage(ctx, in.Image, s.folder, publicID)
		if err != nil {
			return nil, fmt.Errorf("upload reward image: %w", err)
		}
		rw.Image = url
	}
	if err := s.rewardRepo.Create(rw); err != nil {
		return nil, err
	}
	s.hub.Broadcast(domain.EventRewardCreated, rw)
	return rw, nil
}

func (s *RewardService) Delete(ctx context.Context, id uint) error {
	rw, err := s.rewardRepo.GetByID(id)
	if err != nil {
		return err
	}
	if err := s.rewardRepo.Delete(id); err != nil {
		return err
	}
	if rw.Image != "" && s.cloud != nil {
		if err := s.cloud.DeleteByURL(ctx, rw.Image); err != nil {
			log.Warn().Err(err).Uint("reward_id", id).Msg("delete reward image")
		}
	}
	s.hub.Broadcast(domain.EventRewardDeleted, idPayload{ID: id})
	return nil
}

// Redemptions lists requests newest first; userID 0 lists everyone's.
func (s *RewardService) Redemptions(userID uint) ([]models.Redemption, error) {
	return s.redemptionRepo.List(userID)
}

// Redeem deducts the reward's points and files a pending request.
func (s *RewardService) Redeem(ctx context.Context, userID, rewardID uint) (*models.Redemption, error) {
	rw, err := s.rewardRepo.GetByID(rewardID)
	if err != nil {
		return nil, err
	}
	var (
		rd    *models.Redemption
		entry *models.History
		user  *models.User
	)
	err = s.db.Transaction(func(tx *gorm.DB) error {
		u, err := s.points.userRepo.WithTx(tx).GetByID(userID)
		if err != nil {
			return err
		}
		if u.Points < rw.PointsRequired {
			return fmt.Errorf("%w: %d required, %d available", ErrInsufficientPoints, rw.PointsRequired, u.Points)
		}
		rd = &models.Redemption{UserID: userID, RewardID: rw.ID, Status: domain.RedemptionPending, PointsUsed: rw.PointsRequired}
		if err := s.redemptionRepo.WithTx(tx).Create(rd); err != nil {
			return err
		}
		entry, user, err = s.points.credit(tx, userID, -rw.PointsRequired, domain.ActionRedemption, models.JSONMap{
			"amount":       rw.PointsRequired,
			"rewardId":     rw.ID,
			"rewardName":   rw.Name,
			"redemptionId": rd.ID,
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	rd.Reward = rw
	metrics.PointsAwarded.WithLabelValues(domain.ActionRedemption).Add(float64(rw.PointsRequired))
	s.hub.EmitToUser(domain.EventRedemptionUpdated, userID, rd)
	s.points.published(ctx, user, entry, "")
	s.hub.EmitToAdmins(domain.EventMetricsUpdated, map[string]any{"redemptionId": rd.ID})
	s.notify.NotifyAdmins(ctx, fmt.Sprintf("%s requested %s", user.Name, rw.Name), models.JSONMap{"screen": "redemptions", "redemptionId": rd.ID})
	return rd, nil
}

// SetStatus approves or rejects a pending request. A rejection refunds the
// points.
func (s *RewardService) SetStatus(ctx context.Context, id uint, status string) (*models.Redemption, error) {
	if status != domain.RedemptionApproved && status != domain.RedemptionRejected {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}
	rd, err := s.redemptionRepo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if rd.Status != domain.RedemptionPending {
		return nil, ErrRedemptionClosed
	}
	var (
		entry *models.History
		user  *models.User
	)
	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.redemptionRepo.WithTx(tx).SetStatus(id, status); err != nil {
			return err
		}
		if status != domain.RedemptionRejected {
			return nil
		}
		var err error
		entry, user, err = s.points.credit(tx, rd.UserID, rd.PointsUsed, domain.ActionPointAdd, models.JSONMap{
			"amount":       rd.PointsUsed,
			"reason":       "redemption rejected",
			"redemptionId": rd.ID,
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	rd.Status = status
	s.hub.Emit(domain.EventRedemptionUpdated, rd.UserID, rd)

	name := "your reward"
	if rd.Reward != nil {
		name = rd.Reward.Name
	}
	msg := fmt.Sprintf("Your redemption of %s was %s", name, status)
	if user != nil {
		msg += fmt.Sprintf("; %d points were returned", rd.PointsUsed)
		s.points.published(ctx, user, entry, "")
	}
	if _, err := s.notify.Notify(ctx, rd.UserID, msg, models.JSONMap{"screen": "redemptions", "redemptionId": rd.ID}); err != nil {
		log.Error().Err(err).Uint("redemption_id", rd.ID).Msg("notify redemption status")
	}
	return rd, nil
}
