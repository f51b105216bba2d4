package lifecycle

import (
	"context"
	"fmt"
	"time"

	"parking-backend/internal/model"
	"parking-backend/internal/store"
	"parking-backend/internal/tariff"
)

// CheckInInput describes a vehicle entering a space. A nil ReservationID is a walk-in.
type CheckInInput struct {
	ReservationID *int64 `validate:"omitempty,gt=0"`
	SpaceID       int64  `validate:"gt=0"`
	VehicleID     int64  `validate:"gt=0"`
	UserID        int64  `validate:"gt=0"`
}

// ExitResult is the outcome of an exit request.
type ExitResult struct {
	Occupancy *model.Occupancy
	Payment   *model.Payment
	Quote     Quote
	// AlreadyRequested is set when the exit had been requested before; the pending
	// payment was reused and its amount refreshed.
	AlreadyRequested bool
}

// DirectExitInput describes an immediate exit without a pending-payment step.
type DirectExitInput struct {
	OccupancyID int64             `validate:"gt=0"`
	MethodID    *int64            `validate:"omitempty,gt=0"`
	OperatorID  *int64            `validate:"omitempty,gt=0"`
	ReceiptType model.ReceiptType `validate:"omitempty,oneof=invoice receipt"`
}

// DirectExitResult is the outcome of a direct exit. Payment is nil when no method
// was given.
type DirectExitResult struct {
	Occupancy *model.Occupancy
	Payment   *model.Payment
	Quote     Quote
}

// OccupancyManager opens stays, prices them on exit and closes them.
type OccupancyManager struct {
	*core
	pricer *Pricer
}

// CheckIn opens an occupancy and marks the space occupied. With a reservation the
// space moves from reserved and the reservation becomes active; a walk-in takes an
// available space.
func (m *OccupancyManager) CheckIn(ctx context.Context, in CheckInInput) (*model.Occupancy, error) {
	const op = "occupancy.check_in"
	if err := m.check(op, in); err != nil {
		return nil, err
	}

	var (
		occ   *model.Occupancy
		space *model.Space
	)
	err := m.store.InTx(ctx, func(tx store.Repo) error {
		var err error
		space, err = tx.LockSpace(ctx, in.SpaceID)
		if err != nil {
			return storeErr(op, "space", err)
		}
		if space.State == model.SpaceDisabled {
			return fail(KindInvalidState, op, "space %s is disabled", space.Label)
		}

		vehicle, err := tx.GetVehicle(ctx, in.VehicleID)
		if err != nil {
			return storeErr(op, "vehicle", err)
		}
		if _, err := tx.FindActiveOccupancyByVehicle(ctx, in.VehicleID); err == nil {
			return fail(KindConflict, op, "vehicle %s is already parked", vehicle.Plate)
		} else if !store.IsNotFound(err) {
			return storeErr(op, "occupancy", err)
		}

		from := model.SpaceAvailable
		if in.ReservationID != nil {
			res, err := tx.LockReservation(ctx, *in.ReservationID)
			if err != nil {
				return storeErr(op, "reservation", err)
			}
			if !res.State.IsBlocking() {
				return fail(KindInvalidState, op, "reservation is %s", res.State)
			}
			if res.SpaceID != in.SpaceID || res.VehicleID != in.VehicleID {
				return fail(KindInvalidInput, op, "space or vehicle does not match the reservation")
			}
			if res.UserID != in.UserID {
				return fail(KindForbidden, op, "reservation belongs to another user")
			}
			if err := tx.TransitionReservation(ctx, res.ID, []model.ReservationState{res.State}, model.ReservationActive); err != nil {
				return storeErr(op, "reservation", err)
			}
			from = model.SpaceReserved
		} else if vehicle.UserID != in.UserID {
			return fail(KindForbidden, op, "vehicle %s does not belong to the user", vehicle.Plate)
		}

		if err := transitionSpace(ctx, tx, op, in.SpaceID, from, model.SpaceOccupied); err != nil {
			return err
		}

		occ = &model.Occupancy{
			ReservationID: in.ReservationID,
			UserID:        in.UserID,
			SpaceID:       in.SpaceID,
			VehicleID:     in.VehicleID,
			EntryTime:     m.now(),
			State:         model.OccupancyOpen,
		}
		if err := tx.CreateOccupancy(ctx, occ); err != nil {
			return storeErr(op, "occupancy", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	m.notify(ctx, occ.UserID, fmt.Sprintf("Checked in at space %s.", space.Label), CategoryOccupancy)
	return occ, nil
}

// RequestExit prices the stay and makes sure exactly one pending payment carries the
// amount. Repeating the call recomputes the amount and reuses the same payment.
func (m *OccupancyManager) RequestExit(ctx context.Context, occupancyID int64) (*ExitResult, error) {
	const op = "occupancy.request_exit"

	var out ExitResult
	err := m.store.InTx(ctx, func(tx store.Repo) error {
		occ, err := tx.LockOccupancy(ctx, occupancyID)
		if err != nil {
			return storeErr(op, "occupancy", err)
		}
		if occ.State == model.OccupancyClosed {
			return fail(KindInvalidState, op, "occupancy is closed")
		}
		out.AlreadyRequested = occ.State == model.OccupancyExitRequested

		now := m.now()
		quote, err := m.pricer.Quote(ctx, tx, occ, now)
		if err != nil {
			return err
		}

		changes := map[string]any{
			"state":             model.OccupancyExitRequested,
			"exit_requested_at": now,
			"elapsed_minutes":   quote.ElapsedMinutes,
			"amount":            quote.Amount,
			"tariff_id":         quote.Rate.TariffID,
		}
		if err := tx.UpdateOccupancy(ctx, occ.ID, model.ActiveOccupancyStates, changes); err != nil {
			return storeErr(op, "occupancy", err)
		}

		payment, err := tx.FindPendingPayment(ctx, occ.ID)
		switch {
		case err == nil:
			if payment.Amount != quote.Amount {
				if err := tx.UpdatePayment(ctx, payment.ID, model.PaymentPending, map[string]any{"amount": quote.Amount}); err != nil {
					return storeErr(op, "payment", err)
				}
				payment.Amount = quote.Amount
			}
		case store.IsNotFound(err):
			payment = &model.Payment{OccupancyID: occ.ID, Amount: quote.Amount, State: model.PaymentPending}
			if err := tx.CreatePayment(ctx, payment); err != nil {
				return storeErr(op, "payment", err)
			}
		default:
			return storeErr(op, "payment", err)
		}

		occ.State = model.OccupancyExitRequested
		occ.ExitRequestedAt = &now
		occ.ElapsedMinutes = &quote.ElapsedMinutes
		occ.Amount = &quote.Amount
		occ.TariffID = quote.Rate.TariffID

		out.Occupancy, out.Payment, out.Quote = occ, payment, quote
		return nil
	})
	if err != nil {
		return nil, err
	}

	if !out.AlreadyRequested {
		m.notify(ctx, out.Occupancy.UserID,
			fmt.Sprintf("Exit requested: %.2f due for %d minutes.", out.Quote.Amount, out.Quote.ElapsedMinutes),
			CategoryPayment)
	}
	return &out, nil
}

// DirectExit closes a stay at once. It is refused when an exit request or a pending
// payment exists, since those must be settled instead. With a method it records a
// completed payment.
func (m *OccupancyManager) DirectExit(ctx context.Context, in DirectExitInput) (*DirectExitResult, error) {
	const op = "occupancy.direct_exit"
	if err := m.check(op, in); err != nil {
		return nil, err
	}

	var out DirectExitResult
	err := m.store.InTx(ctx, func(tx store.Repo) error {
		occ, err := tx.LockOccupancy(ctx, in.OccupancyID)
		if err != nil {
			return storeErr(op, "occupancy", err)
		}
		switch occ.State {
		case model.OccupancyClosed:
			return fail(KindInvalidState, op, "occupancy is closed")
		case model.OccupancyExitRequested:
			return fail(KindConflict, op, "exit already requested, settle the pending payment instead")
		}
		if _, err := tx.FindPendingPayment(ctx, occ.ID); err == nil {
			return fail(KindConflict, op, "a pending payment exists, settle it instead")
		} else if !store.IsNotFound(err) {
			return storeErr(op, "payment", err)
		}

		now := m.now()
		quote, err := m.pricer.Quote(ctx, tx, occ, now)
		if err != nil {
			return err
		}

		if in.MethodID != nil {
			if _, err := tx.GetPaymentMethod(ctx, *in.MethodID); err != nil {
				return storeErr(op, "payment method", err)
			}
			receipt := in.ReceiptType
			if receipt == "" {
				receipt = model.ReceiptSimple
			}
			series := m.policy.SeriesFor(receipt)
			number, err := tx.NextReceiptNumber(ctx, series)
			if err != nil {
				return storeErr(op, "receipt", err)
			}
			payment := &model.Payment{
				OccupancyID:   occ.ID,
				Amount:        quote.Amount,
				State:         model.PaymentCompleted,
				MethodID:      in.MethodID,
				SettledAt:     &now,
				OperatorID:    in.OperatorID,
				ReceiptType:   &receipt,
				ReceiptSeries: &series,
				ReceiptNumber: &number,
			}
			if err := tx.CreatePayment(ctx, payment); err != nil {
				return storeErr(op, "payment", err)
			}
			out.Payment = payment
		}

		if err := closeStay(ctx, tx, op, occ, quote.Amount, quote.ElapsedMinutes, quote.Rate.TariffID, now); err != nil {
			return err
		}
		out.Occupancy, out.Quote = occ, quote
		return nil
	})
	if err != nil {
		return nil, err
	}

	m.notify(ctx, out.Occupancy.UserID,
		fmt.Sprintf("Stay closed: %.2f for %d minutes.", out.Quote.Amount, out.Quote.ElapsedMinutes),
		CategoryOccupancy)
	return &out, nil
}

// Estimate prices an open stay as of now without persisting anything.
func (m *OccupancyManager) Estimate(ctx context.Context, occupancyID int64) (Quote, error) {
	const op = "occupancy.estimate"
	occ, err := m.store.GetOccupancy(ctx, occupancyID)
	if err != nil {
		return Quote{}, storeErr(op, "occupancy", err)
	}
	if occ.State == model.OccupancyClosed {
		return Quote{}, fail(KindInvalidState, op, "occupancy is closed")
	}
	return m.pricer.Quote(ctx, m.store, occ, m.now())
}

// Get returns an occupancy.
func (m *OccupancyManager) Get(ctx context.Context, id int64) (*model.Occupancy, error) {
	occ, err := m.store.GetOccupancy(ctx, id)
	if err != nil {
		return nil, storeErr("occupancy.get", "occupancy", err)
	}
	return occ, nil
}

// ListActive returns the stays in progress at a lot.
func (m *OccupancyManager) ListActive(ctx context.Context, lotID int64) ([]model.Occupancy, error) {
	out, err := m.store.ListActiveOccupancies(ctx, lotID)
	if err != nil {
		return nil, storeErr("occupancy.list", "occupancy", err)
	}
	return out, nil
}

// closeStay closes an occupancy with its final amount, frees the space and completes
// the reservation. It runs inside the caller's transaction so the three changes
// commit together with the payment.
func closeStay(ctx context.Context, tx store.Repo, op string, occ *model.Occupancy, amount float64, elapsed int64, tariffID *int64, now time.Time) error {
	amount = tariff.Round(amount, 2)
	changes := map[string]any{
		"state":             model.OccupancyClosed,
		"exit_confirmed_at": now,
		"amount":            amount,
		"elapsed_minutes":   elapsed,
	}
	if tariffID != nil {
		changes["tariff_id"] = *tariffID
	}
	if err := tx.UpdateOccupancy(ctx, occ.ID, model.ActiveOccupancyStates, changes); err != nil {
		return storeErr(op, "occupancy", err)
	}

	if err := transitionSpace(ctx, tx, op, occ.SpaceID, model.SpaceOccupied, model.SpaceAvailable); err != nil {
		return err
	}

	if occ.ReservationID != nil {
		err := tx.TransitionReservation(ctx, *occ.ReservationID, model.BlockingReservationStates, model.ReservationCompleted)
		if err != nil {
			return storeErr(op, "reservation", err)
		}
	}

	occ.State = model.OccupancyClosed
	occ.ExitConfirmedAt = &now
	occ.Amount = &amount
	occ.ElapsedMinutes = &elapsed
	if tariffID != nil {
		occ.TariffID = tariffID
	}
	return nil
}
