package store

import (
	"context"

	"parking-backend/internal/model"
)

func (s *gormStore) CreateOccupancy(ctx context.Context, o *model.Occupancy) error {
	return create(ctx, s.db, o)
}

func (s *gormStore) GetOccupancy(ctx context.Context, id int64) (*model.Occupancy, error) {
	return findByID[model.Occupancy](ctx, s.db, id, false)
}

func (s *gormStore) LockOccupancy(ctx context.Context, id int64) (*model.Occupancy, error) {
	return findByID[model.Occupancy](ctx, s.db, id, true)
}

// FindActiveOccupancyByReservation returns the non-closed occupancy opened from a reservation.
func (s *gormStore) FindActiveOccupancyByReservation(ctx context.Context, reservationID int64) (*model.Occupancy, error) {
	q := s.db.WithContext(ctx).Where("reservation_id = ? AND state IN ?", reservationID, model.ActiveOccupancyStates)
	return findOne[model.Occupancy](q)
}

// FindActiveOccupancyByVehicle returns the non-closed occupancy of a vehicle.
func (s *gormStore) FindActiveOccupancyByVehicle(ctx context.Context, vehicleID int64) (*model.Occupancy, error) {
	q := s.db.WithContext(ctx).Where("vehicle_id = ? AND state IN ?", vehicleID, model.ActiveOccupancyStates)
	return findOne[model.Occupancy](q)
}

// UpdateOccupancy applies changes if the occupancy is in one of from.
func (s *gormStore) UpdateOccupancy(ctx context.Context, id int64, from []model.OccupancyState, changes map[string]any) error {
	q := s.db.WithContext(ctx).Model(&model.Occupancy{}).Where("id = ? AND state IN ?", id, from)
	return applyIf(q, changes)
}

// ListActiveOccupancies returns the non-closed occupancies of a lot, oldest entry first.
func (s *gormStore) ListActiveOccupancies(ctx context.Context, lotID int64) ([]model.Occupancy, error) {
	var out []model.Occupancy
	err := s.db.WithContext(ctx).
		Joins("JOIN spaces sp ON sp.id = occupancies.space_id").
		Where("sp.lot_id = ? AND occupancies.state IN ?", lotID, model.ActiveOccupancyStates).
		Order("occupancies.entry_time").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}
