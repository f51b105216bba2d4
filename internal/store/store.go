package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"parking-backend/internal/model"
)

// Repo defines the per-entity persistence operations. Conditional updates return
// ErrStale when the row is no longer in an expected state.
type Repo interface {
	// Lots and spaces
	CreateLot(ctx context.Context, lot *model.Lot) error
	GetLot(ctx context.Context, id int64) (*model.Lot, error)
	CreateSpace(ctx context.Context, space *model.Space) error
	GetSpace(ctx context.Context, id int64) (*model.Space, error)
	LockSpace(ctx context.Context, id int64) (*model.Space, error)
	ListSpaces(ctx context.Context, lotID int64) ([]model.Space, error)
	TransitionSpace(ctx context.Context, id int64, from, to model.SpaceState) error

	// Users, vehicles and payment methods
	CreateUser(ctx context.Context, user *model.User) error
	GetUser(ctx context.Context, id int64) (*model.User, error)
	LockUser(ctx context.Context, id int64) (*model.User, error)
	CreateVehicle(ctx context.Context, vehicle *model.Vehicle) error
	GetVehicle(ctx context.Context, id int64) (*model.Vehicle, error)
	CreatePaymentMethod(ctx context.Context, method *model.PaymentMethod) error
	GetPaymentMethod(ctx context.Context, id int64) (*model.PaymentMethod, error)

	// Tariffs
	CreateTariff(ctx context.Context, tariff *model.Tariff) error
	GetTariff(ctx context.Context, id int64) (*model.Tariff, error)
	FindLotTariff(ctx context.Context, lotID int64, typ model.TariffType) (*model.Tariff, error)
	ListTariffs(ctx context.Context, lotID int64) ([]model.Tariff, error)
	DeleteTariff(ctx context.Context, id int64) error

	// Reservations
	CreateReservation(ctx context.Context, r *model.Reservation) error
	GetReservation(ctx context.Context, id int64) (*model.Reservation, error)
	LockReservation(ctx context.Context, id int64) (*model.Reservation, error)
	CountUserReservations(ctx context.Context, userID int64, states []model.ReservationState) (int64, error)
	CountOverlappingReservations(ctx context.Context, spaceID int64, start, end time.Time, states []model.ReservationState) (int64, error)
	TransitionReservation(ctx context.Context, id int64, from []model.ReservationState, to model.ReservationState) error
	ListUserReservations(ctx context.Context, userID int64) ([]model.Reservation, error)
	ListExpirableReservations(ctx context.Context, cutoff time.Time, states []model.ReservationState) ([]model.Reservation, error)
	CancelExpiredReservation(ctx context.Context, id int64, cutoff time.Time, states []model.ReservationState) error

	// Occupancies
	CreateOccupancy(ctx context.Context, o *model.Occupancy) error
	GetOccupancy(ctx context.Context, id int64) (*model.Occupancy, error)
	LockOccupancy(ctx context.Context, id int64) (*model.Occupancy, error)
	FindActiveOccupancyByReservation(ctx context.Context, reservationID int64) (*model.Occupancy, error)
	FindActiveOccupancyByVehicle(ctx context.Context, vehicleID int64) (*model.Occupancy, error)
	UpdateOccupancy(ctx context.Context, id int64, from []model.OccupancyState, changes map[string]any) error
	ListActiveOccupancies(ctx context.Context, lotID int64) ([]model.Occupancy, error)

	// Payments and receipts
	CreatePayment(ctx context.Context, p *model.Payment) error
	GetPayment(ctx context.Context, id int64) (*model.Payment, error)
	LockPayment(ctx context.Context, id int64) (*model.Payment, error)
	FindPendingPayment(ctx context.Context, occupancyID int64) (*model.Payment, error)
	UpdatePayment(ctx context.Context, id int64, from model.PaymentState, changes map[string]any) error
	ListPendingPayments(ctx context.Context, lotID int64) ([]PendingPayment, error)
	NextReceiptNumber(ctx context.Context, series string) (int64, error)

	// Notifications and push subscriptions
	CreateNotification(ctx context.Context, n *model.Notification) error
	ListNotifications(ctx context.Context, userID int64, limit int) ([]model.Notification, error)
	SavePushSubscription(ctx context.Context, sub *model.PushSubscription) error
	GetPushSubscription(ctx context.Context, endpoint string) (*model.PushSubscription, error)
	ListPushSubscriptions(ctx context.Context, userID int64) ([]model.PushSubscription, error)
	DeletePushSubscription(ctx context.Context, endpoint string) error
}

// Store defines the interface for all database operations.
type Store interface {
	Repo
	// InTx runs fn inside a single database transaction. fn must only use the Repo
	// it is given; the transaction commits when fn returns nil.
	InTx(ctx context.Context, fn func(tx Repo) error) error
	DB() *gorm.DB
}

// gormStore implements the Store interface using GORM.
type gormStore struct {
	db *gorm.DB
}

// NewGormStore creates a new GORM-backed store.
func NewGormStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

func (s *gormStore) DB() *gorm.DB {
	return s.db
}

// InTx runs fn in a transaction.
func (s *gormStore) InTx(ctx context.Context, fn func(tx Repo) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormStore{db: tx})
	})
}

// --- Helpers ---

// findByID loads a row by primary key, optionally locking it for update.
func findByID[T any](ctx context.Context, db *gorm.DB, id int64, lock bool) (*T, error) {
	q := db.WithContext(ctx)
	if lock {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var out T
	if err := q.First(&out, id).Error; err != nil {
		return nil, classify(err)
	}
	return &out, nil
}

// findOne returns the first row matching the query, or ErrNotFound.
func findOne[T any](q *gorm.DB) (*T, error) {
	var out T
	if err := q.Take(&out).Error; err != nil {
		return nil, classify(err)
	}
	return &out, nil
}

func create(ctx context.Context, db *gorm.DB, value any) error {
	if err := db.WithContext(ctx).Create(value).Error; err != nil {
		return fmt.Errorf("insert failed: %w", classify(err))
	}
	return nil
}

// applyIf runs a conditional update and reports ErrStale when no row matched.
func applyIf(q *gorm.DB, changes map[string]any) error {
	res := q.Updates(changes)
	if res.Error != nil {
		return classify(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrStale
	}
	return nil
}

// IsNotFound reports whether err is a not-found error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
