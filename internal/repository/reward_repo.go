package repository

import (
	"salun/internal/models"

	"gorm.io/gorm"
)

type RewardRepository struct {
	db *gorm.DB
}

func NewRewardRepository(db *gorm.DB) *RewardRepository {
	return &RewardRepository{db: db}
}

func (r *RewardRepository) Create(rw *models.Reward) error {
	return r.db.Create(rw).Error
}

func (r *RewardRepository) GetByID(id uint) (*models.Reward, error) {
	var rw models.Reward
	if err := r.db.First(&rw, id).Error; err != nil {
		return nil, err
	}
	return &rw, nil
}

func (r *RewardRepository) List() ([]models.Reward, error) {
	var list []models.Reward
	err := r.db.Order("points_required ASC").Find(&list).Error
	return list, err
}

func (r *RewardRepository) Delete(id uint) error {
	return r.db.Delete(&models.Reward{}, id).Error
}

type RedemptionRepository struct {
	db *gorm.DB
}

func NewRedemptionRepository(db *gorm.DB) *RedemptionRepository {
	return &RedemptionRepository{db: db}
}

func (r *RedemptionRepository) WithTx(tx *gorm.DB) *RedemptionRepository {
	return &RedemptionRepository{db: tx}
}

func (r *RedemptionRepository) Create(rd *models.Redemption) error {
	return r.db.Create(rd).Error
}

func (r *RedemptionRepository) GetByID(id uint) (*models.Redemption, error) {
	var rd models.Redemption
	if err := r.db.Preload("Reward").First(&rd, id).Error; err != nil {
		return nil, err
	}
	return &rd, nil
}

// List returns redemptions newest first; userID 0 lists everyone's.
func (r *RedemptionRepository) List(userID uint) ([]models.Redemption, error) {
	var list []models.Redemption
	q := r.db.Preload("Reward").Preload("User").Order("created_at DESC")
	if userID != 0 {
		q = q.Where("user_id = ?", userID)
	}
	err := q.Find(&list).Error
	return list, err
}

func (r *RedemptionRepository) SetStatus(id uint, status string) error {
	return r.db.Model(&models.Redemption{}).Where("id = ?", id).Update("status", status).Error
}
