package lifecycle

import (
	"context"
	"io"
	"log"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"parking-backend/config"
	"parking-backend/internal/db"
	"parking-backend/internal/model"
	"parking-backend/internal/store"
)

var t0 = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	c.now = t
	c.mu.Unlock()
}

type sent struct {
	UserID   int64
	Message  string
	Category string
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []sent
}

func (n *recordingNotifier) Notify(_ context.Context, userID int64, message, category string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, sent{UserID: userID, Message: message, Category: category})
	return nil
}

func (n *recordingNotifier) For(userID int64) []sent {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []sent
	for _, s := range n.sent {
		if s.UserID == userID {
			out = append(out, s)
		}
	}
	return out
}

type env struct {
	svc      *Service
	store    store.Store
	clock    *fakeClock
	notifier *recordingNotifier

	lot      model.Lot
	spaces   []model.Space
	operator model.User
	driver   model.User
	other    model.User
	car      model.Vehicle
	otherCar model.Vehicle
	hourly   model.Tariff
	cash     model.PaymentMethod
	card     model.PaymentMethod
}

// newEnv builds a service over a private in-memory database seeded with one lot,
// three spaces, an hourly tariff of 5 and two drivers with a car each. opts may
// replace the service's dependencies; seeding always goes through the plain store.
func newEnv(t *testing.T, opts ...func(*Deps)) *env {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	gormDB, err := db.Init(&config.DatabaseConfig{
		Driver: "sqlite",
		DSN:    "file:" + name + "?mode=memory&cache=shared",
	})
	require.NoError(t, err)
	sqlDB, err := gormDB.DB()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	e := &env{
		store:    store.NewGormStore(gormDB),
		clock:    &fakeClock{now: t0},
		notifier: &recordingNotifier{},
	}
	deps := Deps{
		Store:    e.store,
		Notifier: e.notifier,
		Clock:    e.clock,
		Logger:   log.New(io.Discard, "", 0),
	}
	for _, opt := range opts {
		opt(&deps)
	}
	e.svc = New(deps)

	ctx := context.Background()
	e.operator = model.User{Name: "Olga", Email: "olga@example.com", Role: model.RoleOperator}
	require.NoError(t, e.store.CreateUser(ctx, &e.operator))
	e.driver = model.User{Name: "Ana", Email: "ana@example.com", Role: model.RoleDriver}
	require.NoError(t, e.store.CreateUser(ctx, &e.driver))
	e.other = model.User{Name: "Beto", Email: "beto@example.com", Role: model.RoleDriver}
	require.NoError(t, e.store.CreateUser(ctx, &e.other))

	e.lot = model.Lot{Name: "Central", OperatorID: &e.operator.ID}
	require.NoError(t, e.store.CreateLot(ctx, &e.lot))
	for _, label := range []string{"A-01", "A-02", "A-07"} {
		sp := model.Space{LotID: e.lot.ID, Label: label, State: model.SpaceAvailable}
		require.NoError(t, e.store.CreateSpace(ctx, &sp))
		e.spaces = append(e.spaces, sp)
	}

	e.car = model.Vehicle{UserID: e.driver.ID, Plate: "ABC-123"}
	require.NoError(t, e.store.CreateVehicle(ctx, &e.car))
	e.otherCar = model.Vehicle{UserID: e.other.ID, Plate: "XYZ-999"}
	require.NoError(t, e.store.CreateVehicle(ctx, &e.otherCar))

	e.hourly = model.Tariff{LotID: e.lot.ID, Type: model.TariffHourly, Amount: 5}
	require.NoError(t, e.store.CreateTariff(ctx, &e.hourly))

	e.cash = model.PaymentMethod{Name: "Cash", Kind: model.MethodCash}
	require.NoError(t, e.store.CreatePaymentMethod(ctx, &e.cash))
	e.card = model.PaymentMethod{Name: "Card", Kind: model.MethodCard}
	require.NoError(t, e.store.CreatePaymentMethod(ctx, &e.card))
	return e
}

func (e *env) reserve(t *testing.T, user model.User, car model.Vehicle, space model.Space, start time.Time) *model.Reservation {
	t.Helper()
	res, err := e.svc.Reservations.Create(context.Background(), ReservationInput{
		UserID:    user.ID,
		SpaceID:   space.ID,
		VehicleID: car.ID,
		Start:     start,
		End:       start.Add(time.Hour),
	})
	require.NoError(t, err)
	return res
}

func (e *env) checkIn(t *testing.T, res *model.Reservation) *model.Occupancy {
	t.Helper()
	occ, err := e.svc.Occupancies.CheckIn(context.Background(), CheckInInput{
		ReservationID: &res.ID,
		SpaceID:       res.SpaceID,
		VehicleID:     res.VehicleID,
		UserID:        res.UserID,
	})
	require.NoError(t, err)
	return occ
}

func (e *env) spaceState(t *testing.T, id int64) model.SpaceState {
	t.Helper()
	sp, err := e.store.GetSpace(context.Background(), id)
	require.NoError(t, err)
	return sp.State
}

func (e *env) reservationState(t *testing.T, id int64) model.ReservationState {
	t.Helper()
	r, err := e.store.GetReservation(context.Background(), id)
	require.NoError(t, err)
	return r.State
}

func requireKind(t *testing.T, err error, kind Kind) {
	t.Helper()
	require.Error(t, err)
	require.Equal(t, kind, KindOf(err), "error: %v", err)
}
