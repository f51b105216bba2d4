package store

import (
	"context"
	"time"

	"parking-backend/internal/model"
)

func (s *gormStore) CreateReservation(ctx context.Context, r *model.Reservation) error {
	return create(ctx, s.db, r)
}

func (s *gormStore) GetReservation(ctx context.Context, id int64) (*model.Reservation, error) {
	return findByID[model.Reservation](ctx, s.db, id, false)
}

func (s *gormStore) LockReservation(ctx context.Context, id int64) (*model.Reservation, error) {
	return findByID[model.Reservation](ctx, s.db, id, true)
}

// CountUserReservations counts the user's reservations in any of states.
func (s *gormStore) CountUserReservations(ctx context.Context, userID int64, states []model.ReservationState) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&model.Reservation{}).
		Where("user_id = ? AND state IN ?", userID, states).
		Count(&n).Error
	return n, err
}

// CountOverlappingReservations counts reservations on a space in any of states whose
// half-open window intersects [start, end).
func (s *gormStore) CountOverlappingReservations(ctx context.Context, spaceID int64, start, end time.Time, states []model.ReservationState) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&model.Reservation{}).
		Where("space_id = ? AND state IN ?", spaceID, states).
		Where("start_time < ? AND end_time > ?", end, start).
		Count(&n).Error
	return n, err
}

// TransitionReservation moves a reservation to state to if it is currently in one of from.
func (s *gormStore) TransitionReservation(ctx context.Context, id int64, from []model.ReservationState, to model.ReservationState) error {
	q := s.db.WithContext(ctx).Model(&model.Reservation{}).Where("id = ? AND state IN ?", id, from)
	return applyIf(q, map[string]any{"state": to})
}

func (s *gormStore) ListUserReservations(ctx context.Context, userID int64) ([]model.Reservation, error) {
	var out []model.Reservation
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).Order("start_time DESC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// noOccupancy restricts a reservation query to reservations nobody has checked in on.
const noOccupancy = "NOT EXISTS (SELECT 1 FROM occupancies o WHERE o.reservation_id = reservations.id)"

// ListExpirableReservations returns reservations in states that started before cutoff
// and have no occupancy, oldest first.
func (s *gormStore) ListExpirableReservations(ctx context.Context, cutoff time.Time, states []model.ReservationState) ([]model.Reservation, error) {
	var out []model.Reservation
	err := s.db.WithContext(ctx).
		Where("state IN ? AND start_time < ?", states, cutoff).
		Where(noOccupancy).
		Order("start_time").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

// CancelExpiredReservation cancels a reservation only if it is still eligible for
// expiration at the moment of the update. ErrStale means it was not.
func (s *gormStore) CancelExpiredReservation(ctx context.Context, id int64, cutoff time.Time, states []model.ReservationState) error {
	q := s.db.WithContext(ctx).Model(&model.Reservation{}).
		Where("id = ? AND state IN ? AND start_time < ?", id, states, cutoff).
		Where(noOccupancy)
	return applyIf(q, map[string]any{"state": model.ReservationCancelled})
}
