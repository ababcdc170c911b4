package repository

import (
	"salun/internal/models"

	"gorm.io/gorm"
)

type BarcodeRepository struct {
	db *gorm.DB
}

func NewBarcodeRepository(db *gorm.DB) *BarcodeRepository {
	return &BarcodeRepository{db: db}
}

func (r *BarcodeRepository) WithTx(tx *gorm.DB) *BarcodeRepository {
	return &BarcodeRepository{db: tx}
}

func (r *BarcodeRepository) Create(b *models.Barcode) error {
	return r.db.Create(b).Error
}

func (r *BarcodeRepository) GetByID(id uint) (*models.Barcode, error) {
	var b models.Barcode
	if err := r.db.First(&b, id).Error; err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *BarcodeRepository) Exists(value string) (bool, error) {
	var n int64
	err := r.db.Model(&models.Barcode{}).Where("value = ?", value).Count(&n).Error
	return n > 0, err
}

// List returns every scanned barcode with its owner, newest first.
func (r *BarcodeRepository) List() ([]models.Barcode, error) {
	var list []models.Barcode
	err := r.db.Preload("User").Order("created_at DESC").Find(&list).Error
	return list, err
}

func (r *BarcodeRepository) ListByUserID(userID uint) ([]models.Barcode, error) {
	var list []models.Barcode
	err := r.db.Where("user_id = ?", userID).Order("created_at DESC").Find(&list).Error
	return list, err
}

func (r *BarcodeRepository) Delete(id uint) error {
	return r.db.Delete(&models.Barcode{}, id).Error
}

func (r *BarcodeRepository) DeleteByUserID(userID uint) error {
	return r.db.Where("user_id = ?", userID).Delete(&models.Barcode{}).Error
}

type RangeRepository struct {
	db *gorm.DB
}

func NewRangeRepository(db *gorm.DB) *RangeRepository {
	return &RangeRepository{db: db}
}

func (r *RangeRepository) Create(br *models.BarcodeRange) error {
	return r.db.Create(br).Error
}

func (r *RangeRepository) GetByID(id uint) (*models.BarcodeRange, error) {
	var br models.BarcodeRange
	if err := r.db.First(&br, id).Error; err != nil {
		return nil, err
	}
	return &br, nil
}

func (r *RangeRepository) List() ([]models.BarcodeRange, error) {
	var list []models.BarcodeRange
	err := r.db.Order("created_at DESC").Find(&list).Error
	return list, err
}

func (r *RangeRepository) Update(br *models.BarcodeRange) error {
	return r.db.Save(br).Error
}

func (r *RangeRepository) Delete(id uint) error {
	return r.db.Delete(&models.BarcodeRange{}, id).Error
}
