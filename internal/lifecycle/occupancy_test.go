package lifecycle

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"parking-backend/internal/model"
)

func TestStayLifecycle_ReserveCheckInExitSettle(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	space := e.spaces[2]

	res := e.reserve(t, e.driver, e.car, space, t0)
	occ := e.checkIn(t, res)
	assert.Equal(t, model.OccupancyOpen, occ.State)
	assert.Equal(t, model.SpaceOccupied, e.spaceState(t, space.ID))
	assert.Equal(t, model.ReservationActive, e.reservationState(t, res.ID))

	e.clock.Set(t0.Add(90 * time.Minute))
	exit, err := e.svc.Occupancies.RequestExit(ctx, occ.ID)
	require.NoError(t, err)
	assert.False(t, exit.AlreadyRequested)
	assert.Equal(t, 10.0, exit.Quote.Amount)
	assert.Equal(t, int64(90), exit.Quote.ElapsedMinutes)
	assert.Equal(t, SourceLotHourly, exit.Quote.Rate.Source)
	assert.Equal(t, model.OccupancyExitRequested, exit.Occupancy.State)
	assert.Equal(t, model.PaymentPending, exit.Payment.State)
	assert.Equal(t, 10.0, exit.Payment.Amount)

	settled, err := e.svc.Payments.Settle(ctx, exit.Payment.ID, &e.operator.ID)
	require.NoError(t, err)
	assert.False(t, settled.AlreadySettled)
	assert.Equal(t, model.PaymentCompleted, settled.Payment.State)
	require.NotNil(t, settled.Payment.ReceiptNumber)
	assert.Equal(t, int64(1), *settled.Payment.ReceiptNumber)
	assert.Equal(t, "B001", *settled.Payment.ReceiptSeries)

	stored, err := e.svc.Occupancies.Get(ctx, occ.ID)
	require.NoError(t, err)
	assert.Equal(t, model.OccupancyClosed, stored.State)
	require.NotNil(t, stored.Amount)
	assert.Equal(t, 10.0, *stored.Amount)
	require.NotNil(t, stored.ElapsedMinutes)
	assert.Equal(t, int64(90), *stored.ElapsedMinutes)
	assert.NotNil(t, stored.ExitConfirmedAt)

	assert.Equal(t, model.SpaceAvailable, e.spaceState(t, space.ID))
	assert.Equal(t, model.ReservationCompleted, e.reservationState(t, res.ID))

	categories := map[string]int{}
	for _, n := range e.notifier.For(e.driver.ID) {
		categories[n.Category]++
	}
	assert.Equal(t, 1, categories[CategoryReservation])
	assert.Equal(t, 1, categories[CategoryOccupancy])
	assert.Equal(t, 2, categories[CategoryPayment])
}

func TestCheckIn_Failures(t *testing.T) {
	ctx := context.Background()

	t.Run("walk-in with a foreign vehicle", func(t *testing.T) {
		e := newEnv(t)
		_, err := e.svc.Occupancies.CheckIn(ctx, CheckInInput{SpaceID: e.spaces[0].ID, VehicleID: e.otherCar.ID, UserID: e.driver.ID})
		requireKind(t, err, KindForbidden)
		assert.Equal(t, model.SpaceAvailable, e.spaceState(t, e.spaces[0].ID))
	})

	t.Run("reservation of another user", func(t *testing.T) {
		e := newEnv(t)
		res := e.reserve(t, e.driver, e.car, e.spaces[0], t0)
		_, err := e.svc.Occupancies.CheckIn(ctx, CheckInInput{ReservationID: &res.ID, SpaceID: res.SpaceID, VehicleID: res.VehicleID, UserID: e.other.ID})
		requireKind(t, err, KindForbidden)
		assert.Equal(t, model.ReservationPending, e.reservationState(t, res.ID))
	})

	t.Run("space does not match reservation", func(t *testing.T) {
		e := newEnv(t)
		res := e.reserve(t, e.driver, e.car, e.spaces[0], t0)
		_, err := e.svc.Occupancies.CheckIn(ctx, CheckInInput{ReservationID: &res.ID, SpaceID: e.spaces[1].ID, VehicleID: res.VehicleID, UserID: e.driver.ID})
		requireKind(t, err, KindInvalidInput)
	})

	t.Run("cancelled reservation", func(t *testing.T) {
		e := newEnv(t)
		res := e.reserve(t, e.driver, e.car, e.spaces[0], t0)
		_, err := e.svc.Reservations.UpdateState(ctx, res.ID, model.ReservationCancelled)
		require.NoError(t, err)
		_, err = e.svc.Occupancies.CheckIn(ctx, CheckInInput{ReservationID: &res.ID, SpaceID: res.SpaceID, VehicleID: res.VehicleID, UserID: e.driver.ID})
		requireKind(t, err, KindInvalidState)
	})

	t.Run("disabled space", func(t *testing.T) {
		e := newEnv(t)
		_, err := e.svc.Spaces.SetDisabled(ctx, e.spaces[0].ID, true)
		require.NoError(t, err)
		_, err = e.svc.Occupancies.CheckIn(ctx, CheckInInput{SpaceID: e.spaces[0].ID, VehicleID: e.car.ID, UserID: e.driver.ID})
		requireKind(t, err, KindInvalidState)
	})

	t.Run("walk-in on a reserved space", func(t *testing.T) {
		e := newEnv(t)
		e.reserve(t, e.other, e.otherCar, e.spaces[0], t0)
		_, err := e.svc.Occupancies.CheckIn(ctx, CheckInInput{SpaceID: e.spaces[0].ID, VehicleID: e.car.ID, UserID: e.driver.ID})
		requireKind(t, err, KindConflict)
	})

	t.Run("vehicle already parked", func(t *testing.T) {
		e := newEnv(t)
		_, err := e.svc.Occupancies.CheckIn(ctx, CheckInInput{SpaceID: e.spaces[0].ID, VehicleID: e.car.ID, UserID: e.driver.ID})
		require.NoError(t, err)
		_, err = e.svc.Occupancies.CheckIn(ctx, CheckInInput{SpaceID: e.spaces[1].ID, VehicleID: e.car.ID, UserID: e.driver.ID})
		requireKind(t, err, KindConflict)
		assert.Equal(t, model.SpaceAvailable, e.spaceState(t, e.spaces[1].ID))
	})
}

func TestRequestExit_RepeatReusesPendingPayment(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	occ, err := e.svc.Occupancies.CheckIn(ctx, CheckInInput{SpaceID: e.spaces[0].ID, VehicleID: e.car.ID, UserID: e.driver.ID})
	require.NoError(t, err)

	e.clock.Set(t0.Add(30 * time.Minute))
	first, err := e.svc.Occupancies.RequestExit(ctx, occ.ID)
	require.NoError(t, err)
	assert.Equal(t, 5.0, first.Payment.Amount)

	e.clock.Set(t0.Add(61 * time.Minute))
	second, err := e.svc.Occupancies.RequestExit(ctx, occ.ID)
	require.NoError(t, err)
	assert.True(t, second.AlreadyRequested)
	assert.Equal(t, first.Payment.ID, second.Payment.ID)
	assert.Equal(t, 10.0, second.Payment.Amount)
	assert.Equal(t, t0.Add(61*time.Minute), *second.Occupancy.ExitRequestedAt)

	pending, err := e.svc.Payments.ListPending(ctx, e.lot.ID)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, 10.0, pending[0].Amount)
}

func TestRequestExit_ClosedOccupancy(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	occ, err := e.svc.Occupancies.CheckIn(ctx, CheckInInput{SpaceID: e.spaces[0].ID, VehicleID: e.car.ID, UserID: e.driver.ID})
	require.NoError(t, err)
	_, err = e.svc.Occupancies.DirectExit(ctx, DirectExitInput{OccupancyID: occ.ID})
	require.NoError(t, err)

	_, err = e.svc.Occupancies.RequestExit(ctx, occ.ID)
	requireKind(t, err, KindInvalidState)
	_, err = e.svc.Occupancies.Estimate(ctx, occ.ID)
	requireKind(t, err, KindInvalidState)
	_, err = e.svc.Occupancies.RequestExit(ctx, 404)
	requireKind(t, err, KindNotFound)
}

func TestDirectExit(t *testing.T) {
	ctx := context.Background()

	t.Run("with a method records a completed payment", func(t *testing.T) {
		e := newEnv(t)
		occ, err := e.svc.Occupancies.CheckIn(ctx, CheckInInput{SpaceID: e.spaces[0].ID, VehicleID: e.car.ID, UserID: e.driver.ID})
		require.NoError(t, err)

		e.clock.Set(t0.Add(2*time.Hour + time.Second))
		out, err := e.svc.Occupancies.DirectExit(ctx, DirectExitInput{
			OccupancyID: occ.ID,
			MethodID:    &e.card.ID,
			OperatorID:  &e.operator.ID,
			ReceiptType: model.ReceiptInvoice,
		})
		require.NoError(t, err)
		assert.Equal(t, int64(121), out.Quote.ElapsedMinutes)
		assert.Equal(t, 15.0, out.Quote.Amount)
		require.NotNil(t, out.Payment)
		assert.Equal(t, model.PaymentCompleted, out.Payment.State)
		assert.Equal(t, "F001", *out.Payment.ReceiptSeries)
		assert.Equal(t, int64(1), *out.Payment.ReceiptNumber)
		assert.Equal(t, model.OccupancyClosed, out.Occupancy.State)
		assert.Equal(t, model.SpaceAvailable, e.spaceState(t, e.spaces[0].ID))
	})

	t.Run("without a method only closes the stay", func(t *testing.T) {
		e := newEnv(t)
		res := e.reserve(t, e.driver, e.car, e.spaces[0], t0)
		occ := e.checkIn(t, res)

		out, err := e.svc.Occupancies.DirectExit(ctx, DirectExitInput{OccupancyID: occ.ID})
		require.NoError(t, err)
		assert.Nil(t, out.Payment)
		assert.Equal(t, 5.0, out.Quote.Amount)
		assert.Equal(t, model.ReservationCompleted, e.reservationState(t, res.ID))
	})

	t.Run("refused after an exit request", func(t *testing.T) {
		e := newEnv(t)
		occ, err := e.svc.Occupancies.CheckIn(ctx, CheckInInput{SpaceID: e.spaces[0].ID, VehicleID: e.car.ID, UserID: e.driver.ID})
		require.NoError(t, err)
		_, err = e.svc.Occupancies.RequestExit(ctx, occ.ID)
		require.NoError(t, err)

		_, err = e.svc.Occupancies.DirectExit(ctx, DirectExitInput{OccupancyID: occ.ID, MethodID: &e.cash.ID})
		requireKind(t, err, KindConflict)
		assert.Equal(t, model.SpaceOccupied, e.spaceState(t, e.spaces[0].ID))
	})

	t.Run("unknown method rolls back", func(t *testing.T) {
		e := newEnv(t)
		occ, err := e.svc.Occupancies.CheckIn(ctx, CheckInInput{SpaceID: e.spaces[0].ID, VehicleID: e.car.ID, UserID: e.driver.ID})
		require.NoError(t, err)
		missing := int64(404)

		_, err = e.svc.Occupancies.DirectExit(ctx, DirectExitInput{OccupancyID: occ.ID, MethodID: &missing})
		requireKind(t, err, KindNotFound)
		stored, err := e.svc.Occupancies.Get(ctx, occ.ID)
		require.NoError(t, err)
		assert.Equal(t, model.OccupancyOpen, stored.State)
	})
}

func TestEstimate_DoesNotPersist(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	occ, err := e.svc.Occupancies.CheckIn(ctx, CheckInInput{SpaceID: e.spaces[0].ID, VehicleID: e.car.ID, UserID: e.driver.ID})
	require.NoError(t, err)

	e.clock.Set(t0.Add(45 * time.Minute))
	q, err := e.svc.Occupancies.Estimate(ctx, occ.ID)
	require.NoError(t, err)
	assert.Equal(t, 5.0, q.Amount)
	assert.Equal(t, int64(45), q.ElapsedMinutes)

	stored, err := e.svc.Occupancies.Get(ctx, occ.ID)
	require.NoError(t, err)
	assert.Equal(t, model.OccupancyOpen, stored.State)
	assert.Nil(t, stored.Amount)
}

func TestListActive(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	_, err := e.svc.Occupancies.CheckIn(ctx, CheckInInput{SpaceID: e.spaces[0].ID, VehicleID: e.car.ID, UserID: e.driver.ID})
	require.NoError(t, err)
	closed, err := e.svc.Occupancies.CheckIn(ctx, CheckInInput{SpaceID: e.spaces[1].ID, VehicleID: e.otherCar.ID, UserID: e.other.ID})
	require.NoError(t, err)
	_, err = e.svc.Occupancies.DirectExit(ctx, DirectExitInput{OccupancyID: closed.ID})
	require.NoError(t, err)

	active, err := e.svc.Occupancies.ListActive(ctx, e.lot.ID)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, e.car.ID, active[0].VehicleID)
}
