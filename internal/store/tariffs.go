package store

import (
	"context"

	"parking-backend/internal/model"
)

func (s *gormStore) CreateTariff(ctx context.Context, tariff *model.Tariff) error {
	return create(ctx, s.db, tariff)
}

// GetTariff loads a tariff. Soft-deleted tariffs are reported as ErrNotFound.
func (s *gormStore) GetTariff(ctx context.Context, id int64) (*model.Tariff, error) {
	return findByID[model.Tariff](ctx, s.db, id, false)
}

// FindLotTariff returns the newest live tariff of the given type for a lot.
func (s *gormStore) FindLotTariff(ctx context.Context, lotID int64, typ model.TariffType) (*model.Tariff, error) {
	q := s.db.WithContext(ctx).
		Where("lot_id = ? AND type = ?", lotID, typ).
		Order("created_at DESC").Order("id DESC")
	return findOne[model.Tariff](q)
}

func (s *gormStore) ListTariffs(ctx context.Context, lotID int64) ([]model.Tariff, error) {
	var tariffs []model.Tariff
	if err := s.db.WithContext(ctx).Where("lot_id = ?", lotID).Order("id").Find(&tariffs).Error; err != nil {
		return nil, err
	}
	return tariffs, nil
}

// DeleteTariff soft-deletes a tariff.
func (s *gormStore) DeleteTariff(ctx context.Context, id int64) error {
	res := s.db.WithContext(ctx).Delete(&model.Tariff{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
