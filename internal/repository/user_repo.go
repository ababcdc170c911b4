package repository

import (
	"salun/internal/domain"
	"salun/internal/models"

	"gorm.io/gorm"
)

type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

// WithTx returns a repository bound to tx.
func (r *UserRepository) WithTx(tx *gorm.DB) *UserRepository {
	return &UserRepository{db: tx}
}

func (r *UserRepository) Create(u *models.User) error {
	return r.db.Create(u).Error
}

func (r *UserRepository) GetByID(id uint) (*models.User, error) {
	var u models.User
	err := r.db.First(&u, id).Error
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *UserRepository) GetByMobile(mobile string) (*models.User, error) {
	var u models.User
	err := r.db.Where("mobile = ?", mobile).First(&u).Error
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// ListUsers returns every non-admin account, newest first.
func (r *UserRepository) ListUsers() ([]models.User, error) {
	var list []models.User
	err := r.db.Where("role = ?", domain.RoleUser).Order("created_at DESC").Find(&list).Error
	return list, err
}

func (r *UserRepository) AdminIDs() ([]uint, error) {
	var ids []uint
	err := r.db.Model(&models.User{}).Where("role = ?", domain.RoleAdmin).Pluck("id", &ids).Error
	return ids, err
}

func (r *UserRepository) Update(u *models.User) error {
	return r.db.Save(u).Error
}

func (r *UserRepository) SetStatus(id uint, status string) error {
	return r.db.Model(&models.User{}).Where("id = ?", id).Update("status", status).Error
}

// AddPoints changes a balance by delta in one statement.
func (r *UserRepository) AddPoints(id uint, delta int64) error {
	return r.db.Model(&models.User{}).Where("id = ?", id).Update("points", gorm.Expr("points + ?", delta)).Error
}

// SetFCMToken stores the device token used for push notifications.
func (r *UserRepository) SetFCMToken(id uint, token string) error {
	return r.db.Model(&models.User{}).Where("id = ?", id).Update("fcm_token", token).Error
}

func (r *UserRepository) Delete(id uint) error {
	return r.db.Delete(&models.User{}, id).Error
}
