package repository

import (
	"salun/internal/models"

	"gorm.io/gorm"
)

type HistoryRepository struct {
	db *gorm.DB
}

func NewHistoryRepository(db *gorm.DB) *HistoryRepository {
	return &HistoryRepository{db: db}
}

func (r *HistoryRepository) WithTx(tx *gorm.DB) *HistoryRepository {
	return &HistoryRepository{db: tx}
}

func (r *HistoryRepository) Create(h *models.History) error {
	return r.db.Create(h).Error
}

// List returns history newest first; userID 0 lists everyone's.
func (r *HistoryRepository) List(userID uint, limit int) ([]models.History, error) {
	var list []models.History
	q := r.db.Order("created_at DESC").Order("id DESC")
	if userID != 0 {
		q = q.Where("user_id = ?", userID)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Find(&list).Error
	return list, err
}
