package store

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"parking-backend/internal/model"
)

func (s *gormStore) CreatePayment(ctx context.Context, p *model.Payment) error {
	return create(ctx, s.db, p)
}

func (s *gormStore) GetPayment(ctx context.Context, id int64) (*model.Payment, error) {
	return findByID[model.Payment](ctx, s.db, id, false)
}

func (s *gormStore) LockPayment(ctx context.Context, id int64) (*model.Payment, error) {
	return findByID[model.Payment](ctx, s.db, id, true)
}

// FindPendingPayment returns the single pending payment of an occupancy.
func (s *gormStore) FindPendingPayment(ctx context.Context, occupancyID int64) (*model.Payment, error) {
	q := s.db.WithContext(ctx).Where("occupancy_id = ? AND state = ?", occupancyID, model.PaymentPending)
	return findOne[model.Payment](q)
}

// UpdatePayment applies changes if the payment is still in state from.
func (s *gormStore) UpdatePayment(ctx context.Context, id int64, from model.PaymentState, changes map[string]any) error {
	q := s.db.WithContext(ctx).Model(&model.Payment{}).Where("id = ? AND state = ?", id, from)
	return applyIf(q, changes)
}

// ListPendingPayments returns a lot's pending payments with their stay context.
func (s *gormStore) ListPendingPayments(ctx context.Context, lotID int64) ([]PendingPayment, error) {
	var rows []PendingPayment
	err := s.db.WithContext(ctx).
		Table("payments p").
		Select(`p.id AS payment_id, p.reference, p.occupancy_id, p.amount, p.created_at,
			o.user_id, u.name AS user_name, o.space_id, sp.label AS space_label,
			o.vehicle_id, v.plate AS vehicle_plate, o.entry_time, o.exit_requested_at, o.elapsed_minutes`).
		Joins("JOIN occupancies o ON o.id = p.occupancy_id").
		Joins("JOIN spaces sp ON sp.id = o.space_id").
		Joins("JOIN users u ON u.id = o.user_id").
		Joins("JOIN vehicles v ON v.id = o.vehicle_id").
		Where("p.state = ? AND sp.lot_id = ?", model.PaymentPending, lotID).
		Order("p.created_at").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list pending payments for lot %d: %w", lotID, err)
	}
	return rows, nil
}

// NextReceiptNumber allocates the next number of a receipt series. It must run inside
// a transaction: the increment holds the sequence row lock until commit, which
// serializes concurrent settlements on the same series.
func (s *gormStore) NextReceiptNumber(ctx context.Context, series string) (int64, error) {
	db := s.db.WithContext(ctx)

	seed := model.ReceiptSequence{Series: series}
	if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&seed).Error; err != nil {
		return 0, fmt.Errorf("failed to seed receipt series %s: %w", series, err)
	}

	res := db.Model(&model.ReceiptSequence{}).
		Where("series = ?", series).
		Update("last_number", gorm.Expr("last_number + 1"))
	if res.Error != nil {
		return 0, fmt.Errorf("failed to advance receipt series %s: %w", series, res.Error)
	}

	var seq model.ReceiptSequence
	if err := db.Where("series = ?", series).Take(&seq).Error; err != nil {
		return 0, fmt.Errorf("failed to read receipt series %s: %w", series, err)
	}
	return seq.LastNumber, nil
}
