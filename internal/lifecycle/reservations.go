package lifecycle

import (
	"context"
	"fmt"
	"time"

	"parking-backend/internal/model"
	"parking-backend/internal/store"
)

// ReservationInput describes a reservation request. TariffID is optional.
type ReservationInput struct {
	UserID    int64     `validate:"gt=0"`
	SpaceID   int64     `validate:"gt=0"`
	VehicleID int64     `validate:"gt=0"`
	Start     time.Time `validate:"required"`
	End       time.Time `validate:"required,gtfield=Start"`
	TariffID  *int64    `validate:"omitempty,gt=0"`
}

// ReservationManager creates, confirms and cancels reservations.
type ReservationManager struct {
	*core
}

// Create reserves a space for a window. The preconditions are checked in a fixed
// order and each failure has its own kind. The user row and the space row stay
// locked until commit, which serializes both the one-reservation-per-user rule and
// the overlap check on the space.
func (m *ReservationManager) Create(ctx context.Context, in ReservationInput) (*model.Reservation, error) {
	const op = "reservation.create"
	if err := m.check(op, in); err != nil {
		return nil, err
	}
	in.Start, in.End = in.Start.UTC(), in.End.UTC()

	var (
		res   *model.Reservation
		space *model.Space
		lot   *model.Lot
	)
	err := m.store.InTx(ctx, func(tx store.Repo) error {
		if _, err := tx.LockUser(ctx, in.UserID); err != nil {
			return storeErr(op, "user", err)
		}
		n, err := tx.CountUserReservations(ctx, in.UserID, model.BlockingReservationStates)
		if err != nil {
			return storeErr(op, "reservation", err)
		}
		if n > 0 {
			return fail(KindConflict, op, "user already holds an open reservation")
		}

		space, err = tx.LockSpace(ctx, in.SpaceID)
		if err != nil {
			return storeErr(op, "space", err)
		}
		switch space.State {
		case model.SpaceAvailable:
		case model.SpaceDisabled:
			return fail(KindInvalidState, op, "space %s is disabled", space.Label)
		default:
			return fail(KindConflict, op, "space %s is %s", space.Label, space.State)
		}

		vehicle, err := tx.GetVehicle(ctx, in.VehicleID)
		if err != nil {
			return storeErr(op, "vehicle", err)
		}
		if vehicle.UserID != in.UserID {
			return fail(KindForbidden, op, "vehicle %s does not belong to the user", vehicle.Plate)
		}

		if in.TariffID != nil {
			t, err := tx.GetTariff(ctx, *in.TariffID)
			if err != nil {
				return storeErr(op, "tariff", err)
			}
			if t.LotID != space.LotID {
				return fail(KindInvalidInput, op, "tariff %d does not belong to the space's lot", t.ID)
			}
		}

		overlapping, err := tx.CountOverlappingReservations(ctx, in.SpaceID, in.Start, in.End, model.BlockingReservationStates)
		if err != nil {
			return storeErr(op, "reservation", err)
		}
		if overlapping > 0 {
			return fail(KindConflict, op, "space %s is already reserved in that window", space.Label)
		}

		res = &model.Reservation{
			UserID:    in.UserID,
			SpaceID:   in.SpaceID,
			VehicleID: in.VehicleID,
			StartTime: in.Start,
			EndTime:   in.End,
			State:     model.ReservationPending,
			TariffID:  in.TariffID,
		}
		if err := tx.CreateReservation(ctx, res); err != nil {
			return storeErr(op, "reservation", err)
		}
		if err := transitionSpace(ctx, tx, op, in.SpaceID, model.SpaceAvailable, model.SpaceReserved); err != nil {
			return err
		}

		lot, err = tx.GetLot(ctx, space.LotID)
		if err != nil {
			return storeErr(op, "lot", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	m.notify(ctx, res.UserID,
		fmt.Sprintf("Reservation #%d for space %s from %s is pending.", res.ID, space.Label, res.StartTime.Format(time.RFC3339)),
		CategoryReservation)
	if lot.OperatorID != nil {
		m.notify(ctx, *lot.OperatorID,
			fmt.Sprintf("New reservation #%d for space %s at %s.", res.ID, space.Label, lot.Name),
			CategoryReservation)
	}
	return res, nil
}

// UpdateState confirms or cancels a reservation. Cancelling frees the space unless a
// stay is already in progress, in which case it is rejected.
func (m *ReservationManager) UpdateState(ctx context.Context, id int64, to model.ReservationState) (*model.Reservation, error) {
	const op = "reservation.update_state"
	if to != model.ReservationConfirmed && to != model.ReservationCancelled {
		return nil, fail(KindInvalidInput, op, "reservations can only be confirmed or cancelled, not %q", to)
	}

	var res *model.Reservation
	err := m.store.InTx(ctx, func(tx store.Repo) error {
		var err error
		res, err = tx.LockReservation(ctx, id)
		if err != nil {
			return storeErr(op, "reservation", err)
		}
		if res.State.IsTerminal() {
			return fail(KindInvalidState, op, "reservation is already %s", res.State)
		}

		switch to {
		case model.ReservationConfirmed:
			if res.State != model.ReservationPending {
				return fail(KindInvalidState, op, "only pending reservations can be confirmed, this one is %s", res.State)
			}
		case model.ReservationCancelled:
			_, err := tx.FindActiveOccupancyByReservation(ctx, id)
			if err == nil {
				return fail(KindConflict, op, "reservation has a stay in progress")
			}
			if !store.IsNotFound(err) {
				return storeErr(op, "occupancy", err)
			}
		}

		if err := tx.TransitionReservation(ctx, id, []model.ReservationState{res.State}, to); err != nil {
			return storeErr(op, "reservation", err)
		}

		if to == model.ReservationCancelled {
			if err := releaseReservedSpace(ctx, tx, op, res.SpaceID); err != nil {
				return err
			}
		}
		res.State = to
		return nil
	})
	if err != nil {
		return nil, err
	}

	m.notify(ctx, res.UserID, fmt.Sprintf("Reservation #%d is now %s.", res.ID, res.State), CategoryReservation)
	return res, nil
}

// releaseReservedSpace returns a reserved space to available. A space that is no
// longer reserved is left alone.
func releaseReservedSpace(ctx context.Context, tx store.Repo, op string, spaceID int64) error {
	err := tx.TransitionSpace(ctx, spaceID, model.SpaceReserved, model.SpaceAvailable)
	if err == nil || isStale(err) {
		return nil
	}
	return storeErr(op, "space", err)
}

// Get returns a reservation.
func (m *ReservationManager) Get(ctx context.Context, id int64) (*model.Reservation, error) {
	res, err := m.store.GetReservation(ctx, id)
	if err != nil {
		return nil, storeErr("reservation.get", "reservation", err)
	}
	return res, nil
}

// ListForUser returns a user's reservations, most recent first.
func (m *ReservationManager) ListForUser(ctx context.Context, userID int64) ([]model.Reservation, error) {
	out, err := m.store.ListUserReservations(ctx, userID)
	if err != nil {
		return nil, storeErr("reservation.list", "reservation", err)
	}
	return out, nil
}
