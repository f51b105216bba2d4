package lifecycle

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"parking-backend/internal/model"
	"parking-backend/internal/store"
)

func requestExitAfter(t *testing.T, e *env, space model.Space, car model.Vehicle, user model.User, d time.Duration) *ExitResult {
	t.Helper()
	ctx := context.Background()
	e.clock.Set(t0)
	occ, err := e.svc.Occupancies.CheckIn(ctx, CheckInInput{SpaceID: space.ID, VehicleID: car.ID, UserID: user.ID})
	require.NoError(t, err)
	e.clock.Set(t0.Add(d))
	out, err := e.svc.Occupancies.RequestExit(ctx, occ.ID)
	require.NoError(t, err)
	return out
}

func TestSettle_IsIdempotent(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	exit := requestExitAfter(t, e, e.spaces[0], e.car, e.driver, 90*time.Minute)

	first, err := e.svc.Payments.Settle(ctx, exit.Payment.ID, &e.operator.ID)
	require.NoError(t, err)
	notified := len(e.notifier.For(e.driver.ID))

	again, err := e.svc.Payments.Settle(ctx, exit.Payment.ID, &e.operator.ID)
	require.NoError(t, err)
	assert.True(t, again.AlreadySettled)
	assert.Equal(t, *first.Payment.ReceiptNumber, *again.Payment.ReceiptNumber)
	assert.Equal(t, model.OccupancyClosed, again.Occupancy.State)
	assert.Len(t, e.notifier.For(e.driver.ID), notified)

	pending, err := e.svc.Payments.ListPending(ctx, e.lot.ID)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestSettle_ReceiptNumbersAreSequential(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	a := requestExitAfter(t, e, e.spaces[0], e.car, e.driver, 30*time.Minute)
	b := requestExitAfter(t, e, e.spaces[1], e.otherCar, e.other, 30*time.Minute)

	ra, err := e.svc.Payments.Settle(ctx, a.Payment.ID, &e.operator.ID)
	require.NoError(t, err)
	rb, err := e.svc.Payments.Simulate(ctx, b.Payment.ID)
	require.NoError(t, err)

	assert.Equal(t, int64(1), *ra.Payment.ReceiptNumber)
	assert.Equal(t, int64(2), *rb.Payment.ReceiptNumber)
	assert.True(t, rb.Payment.Simulated)
	assert.Nil(t, rb.Payment.OperatorID)

	stored, err := e.svc.Payments.Get(ctx, rb.Payment.ID)
	require.NoError(t, err)
	assert.True(t, stored.Simulated)
	assert.Equal(t, model.PaymentCompleted, stored.State)
}

func TestSettle_UnknownPayment(t *testing.T) {
	e := newEnv(t)
	_, err := e.svc.Payments.Settle(context.Background(), 404, nil)
	requireKind(t, err, KindNotFound)
}

func TestSettleAndPay(t *testing.T) {
	ctx := context.Background()
	amount := func(v float64) *float64 { return &v }

	t.Run("cash returns change and reuses the pending payment", func(t *testing.T) {
		e := newEnv(t)
		exit := requestExitAfter(t, e, e.spaces[0], e.car, e.driver, 90*time.Minute)

		out, err := e.svc.Payments.SettleAndPay(ctx, SettleAndPayInput{
			OccupancyID:    exit.Occupancy.ID,
			MethodID:       e.cash.ID,
			ReceivedAmount: amount(20),
			OperatorID:     &e.operator.ID,
		})
		require.NoError(t, err)
		assert.Equal(t, 10.0, out.Quote.Amount)
		assert.Equal(t, 10.0, out.Change)
		assert.Equal(t, exit.Payment.ID, out.Payment.ID)
		assert.Equal(t, model.PaymentCompleted, out.Payment.State)
		assert.Equal(t, model.OccupancyClosed, out.Occupancy.State)
		assert.Equal(t, model.SpaceAvailable, e.spaceState(t, e.spaces[0].ID))
	})

	t.Run("without a prior exit request creates the payment", func(t *testing.T) {
		e := newEnv(t)
		occ, err := e.svc.Occupancies.CheckIn(ctx, CheckInInput{SpaceID: e.spaces[0].ID, VehicleID: e.car.ID, UserID: e.driver.ID})
		require.NoError(t, err)
		e.clock.Set(t0.Add(10 * time.Minute))

		out, err := e.svc.Payments.SettleAndPay(ctx, SettleAndPayInput{OccupancyID: occ.ID, MethodID: e.card.ID, ReceiptType: model.ReceiptInvoice})
		require.NoError(t, err)
		assert.NotZero(t, out.Payment.ID)
		assert.Equal(t, 5.0, out.Payment.Amount)
		assert.Equal(t, "F001", *out.Payment.ReceiptSeries)
		assert.Zero(t, out.Change)
	})

	t.Run("underpaid cash", func(t *testing.T) {
		e := newEnv(t)
		exit := requestExitAfter(t, e, e.spaces[0], e.car, e.driver, 90*time.Minute)

		_, err := e.svc.Payments.SettleAndPay(ctx, SettleAndPayInput{OccupancyID: exit.Occupancy.ID, MethodID: e.cash.ID, ReceivedAmount: amount(9.99)})
		requireKind(t, err, KindInvalidInput)

		stored, err := e.svc.Payments.Get(ctx, exit.Payment.ID)
		require.NoError(t, err)
		assert.Equal(t, model.PaymentPending, stored.State)
	})

	t.Run("received amount on a card", func(t *testing.T) {
		e := newEnv(t)
		exit := requestExitAfter(t, e, e.spaces[0], e.car, e.driver, 90*time.Minute)

		_, err := e.svc.Payments.SettleAndPay(ctx, SettleAndPayInput{OccupancyID: exit.Occupancy.ID, MethodID: e.card.ID, ReceivedAmount: amount(50)})
		requireKind(t, err, KindInvalidInput)
	})

	t.Run("closed occupancy", func(t *testing.T) {
		e := newEnv(t)
		exit := requestExitAfter(t, e, e.spaces[0], e.car, e.driver, 90*time.Minute)
		_, err := e.svc.Payments.Settle(ctx, exit.Payment.ID, nil)
		require.NoError(t, err)

		_, err = e.svc.Payments.SettleAndPay(ctx, SettleAndPayInput{OccupancyID: exit.Occupancy.ID, MethodID: e.cash.ID})
		requireKind(t, err, KindInvalidState)
	})
}

// lockRecorder records the row locks each transaction takes, in order.
type lockRecorder struct {
	store.Store
	mu  sync.Mutex
	txs [][]string
}

func (r *lockRecorder) InTx(ctx context.Context, fn func(tx store.Repo) error) error {
	r.mu.Lock()
	r.txs = append(r.txs, nil)
	idx := len(r.txs) - 1
	r.mu.Unlock()
	return r.Store.InTx(ctx, func(tx store.Repo) error {
		return fn(&recordingRepo{Repo: tx, rec: r, idx: idx})
	})
}

func (r *lockRecorder) reset() {
	r.mu.Lock()
	r.txs = nil
	r.mu.Unlock()
}

func (r *lockRecorder) transactions() [][]string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([][]string(nil), r.txs...)
}

type recordingRepo struct {
	store.Repo
	rec *lockRecorder
	idx int
}

func (r *recordingRepo) note(what string) {
	r.rec.mu.Lock()
	r.rec.txs[r.idx] = append(r.rec.txs[r.idx], what)
	r.rec.mu.Unlock()
}

func (r *recordingRepo) LockOccupancy(ctx context.Context, id int64) (*model.Occupancy, error) {
	r.note("occupancy")
	return r.Repo.LockOccupancy(ctx, id)
}

func (r *recordingRepo) LockPayment(ctx context.Context, id int64) (*model.Payment, error) {
	r.note("payment")
	return r.Repo.LockPayment(ctx, id)
}

func (r *recordingRepo) UpdatePayment(ctx context.Context, id int64, from model.PaymentState, changes map[string]any) error {
	r.note("payment")
	return r.Repo.UpdatePayment(ctx, id, from, changes)
}

// requireOccupancyFirst fails when a transaction touches a payment row before it
// holds the occupancy lock.
func requireOccupancyFirst(t *testing.T, txs [][]string) {
	t.Helper()
	for i, seq := range txs {
		if len(seq) == 0 {
			continue
		}
		assert.Equal(t, "occupancy", seq[0], "transaction %d took locks in order %v", i, seq)
	}
}

func TestPaymentPaths_LockOccupancyBeforePayment(t *testing.T) {
	var rec *lockRecorder
	e := newEnv(t, func(d *Deps) {
		rec = &lockRecorder{Store: d.Store}
		d.Store = rec
	})
	ctx := context.Background()

	exit := requestExitAfter(t, e, e.spaces[0], e.car, e.driver, 30*time.Minute)
	e.clock.Set(t0.Add(45 * time.Minute))
	_, err := e.svc.Occupancies.RequestExit(ctx, exit.Occupancy.ID)
	require.NoError(t, err)
	requireOccupancyFirst(t, rec.transactions())

	rec.reset()
	_, err = e.svc.Payments.Settle(ctx, exit.Payment.ID, &e.operator.ID)
	require.NoError(t, err)
	txs := rec.transactions()
	require.Len(t, txs, 1)
	assert.Equal(t, []string{"occupancy", "payment", "payment"}, txs[0])

	rec.reset()
	_, err = e.svc.Payments.Settle(ctx, exit.Payment.ID, &e.operator.ID)
	require.NoError(t, err)
	requireOccupancyFirst(t, rec.transactions())

	rec.reset()
	e.clock.Set(t0)
	occ, err := e.svc.Occupancies.CheckIn(ctx, CheckInInput{SpaceID: e.spaces[1].ID, VehicleID: e.otherCar.ID, UserID: e.other.ID})
	require.NoError(t, err)
	e.clock.Set(t0.Add(time.Hour))
	_, err = e.svc.Occupancies.RequestExit(ctx, occ.ID)
	require.NoError(t, err)
	_, err = e.svc.Payments.SettleAndPay(ctx, SettleAndPayInput{OccupancyID: occ.ID, MethodID: e.card.ID})
	require.NoError(t, err)
	requireOccupancyFirst(t, rec.transactions())
}
