package service

import (
	"salun/internal/domain"
	"salun/internal/models"
	"salun/internal/repository"
)

// BarcodeService manages scanned barcodes and the ranges that price them.
type BarcodeService struct {
	barcodeRepo *repository.BarcodeRepository
	rangeRepo   *repository.RangeRepository
	hub         Emitter
}

func NewBarcodeService(barcodeRepo *repository.BarcodeRepository, rangeRepo *repository.RangeRepository, hub Emitter) *BarcodeService {
	return &BarcodeService{barcodeRepo: barcodeRepo, rangeRepo: rangeRepo, hub: hub}
}

func (s *BarcodeService) List() ([]models.Barcode, error) {
	return s.barcodeRepo.List()
}

func (s *BarcodeService) ListByUser(userID uint) ([]models.Barcode, error) {
	return s.barcodeRepo.ListByUserID(userID)
}

// Delete removes a scanned barcode. Points it awarded stay with the user.
func (s *BarcodeService) Delete(id uint) error {
	b, err := s.barcodeRepo.GetByID(id)
	if err != nil {
		return err
	}
	if err := s.barcodeRepo.Delete(id); err != nil {
		return err
	}
	s.hub.Emit(domain.EventBarcodeDeleted, b.UserID, idPayload{ID: b.ID, UserID: b.UserID})
	return nil
}

func (s *BarcodeService) Ranges() ([]models.BarcodeRange, error) {
	return s.rangeRepo.List()
}

func (s *BarcodeService) CreateRange(start, end string, points int64) (*models.BarcodeRange, error) {
	if err := domain.ValidateRange(start, end, points); err != nil {
		return nil, err
	}
	br := &models.BarcodeRange{
		Start:  domain.NormalizeBarcode(start),
		End:    domain.NormalizeBarcode(end),
		Points: points,
	}
	if err := s.rangeRepo.Create(br); err != nil {
		return nil, err
	}
	s.hub.EmitToAdmins(domain.EventRangeCreated, br)
	return br, nil
}

func (s *BarcodeService) UpdateRange(id uint, start, end string, points int64) (*models.BarcodeRange, error) {
	if err := domain.ValidateRange(start, end, points); err != nil {
		return nil, err
	}
	br, err := s.rangeRepo.GetByID(id)
	if err != nil {
		return nil, err
	}
	br.Start = domain.NormalizeBarcode(start)
	br.End = domain.NormalizeBarcode(end)
	br.Points = points
	if err := s.rangeRepo.Update(br); err != nil {
		return nil, err
	}
	s.hub.EmitToAdmins(domain.EventRangeUpdated, br)
	return br, nil
}

func (s *BarcodeService) DeleteRange(id uint) error {
	if _, err := s.rangeRepo.GetByID(id); err != nil {
		return err
	}
	if err := s.rangeRepo.Delete(id); err != nil {
		return err
	}
	s.hub.EmitToAdmins(domain.EventRangeUpdated, idPayload{ID: id})
	return nil
}
