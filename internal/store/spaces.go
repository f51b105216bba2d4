package store

import (
	"context"

	"parking-backend/internal/model"
)

func (s *gormStore) CreateLot(ctx context.Context, lot *model.Lot) error {
	return create(ctx, s.db, lot)
}

func (s *gormStore) GetLot(ctx context.Context, id int64) (*model.Lot, error) {
	return findByID[model.Lot](ctx, s.db, id, false)
}

func (s *gormStore) CreateSpace(ctx context.Context, space *model.Space) error {
	if space.State == "" {
		space.State = model.SpaceAvailable
	}
	return create(ctx, s.db, space)
}

func (s *gormStore) GetSpace(ctx context.Context, id int64) (*model.Space, error) {
	return findByID[model.Space](ctx, s.db, id, false)
}

// LockSpace loads a space and holds its row lock until the transaction ends.
func (s *gormStore) LockSpace(ctx context.Context, id int64) (*model.Space, error) {
	return findByID[model.Space](ctx, s.db, id, true)
}

func (s *gormStore) ListSpaces(ctx context.Context, lotID int64) ([]model.Space, error) {
	var spaces []model.Space
	if err := s.db.WithContext(ctx).Where("lot_id = ?", lotID).Order("label").Find(&spaces).Error; err != nil {
		return nil, err
	}
	return spaces, nil
}

// TransitionSpace moves a space from one state to another. It is a compare-and-swap:
// ErrStale means the space was not in state from and nothing changed.
func (s *gormStore) TransitionSpace(ctx context.Context, id int64, from, to model.SpaceState) error {
	q := s.db.WithContext(ctx).Model(&model.Space{}).Where("id = ? AND state = ?", id, from)
	return applyIf(q, map[string]any{"state": to})
}

func (s *gormStore) CreateUser(ctx context.Context, user *model.User) error {
	if user.Role == "" {
		user.Role = model.RoleDriver
	}
	return create(ctx, s.db, user)
}

func (s *gormStore) GetUser(ctx context.Context, id int64) (*model.User, error) {
	return findByID[model.User](ctx, s.db, id, false)
}

func (s *gormStore) LockUser(ctx context.Context, id int64) (*model.User, error) {
	return findByID[model.User](ctx, s.db, id, true)
}

func (s *gormStore) CreateVehicle(ctx context.Context, vehicle *model.Vehicle) error {
	return create(ctx, s.db, vehicle)
}

func (s *gormStore) GetVehicle(ctx context.Context, id int64) (*model.Vehicle, error) {
	return findByID[model.Vehicle](ctx, s.db, id, false)
}

func (s *gormStore) CreatePaymentMethod(ctx context.Context, method *model.PaymentMethod) error {
	return create(ctx, s.db, method)
}

func (s *gormStore) GetPaymentMethod(ctx context.Context, id int64) (*model.PaymentMethod, error) {
	return findByID[model.PaymentMethod](ctx, s.db, id, false)
}
