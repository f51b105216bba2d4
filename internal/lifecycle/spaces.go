package lifecycle

import (
	"context"
	"errors"

	"parking-backend/internal/model"
	"parking-backend/internal/store"
)

// SpaceRegistry owns the availability state of spaces.
type SpaceRegistry struct {
	*core
}

// Transition atomically moves a space from one state to another.
func (r *SpaceRegistry) Transition(ctx context.Context, spaceID int64, from, to model.SpaceState) (*model.Space, error) {
	const op = "space.transition"
	var space *model.Space
	err := r.store.InTx(ctx, func(tx store.Repo) error {
		if err := transitionSpace(ctx, tx, op, spaceID, from, to); err != nil {
			return err
		}
		var err error
		space, err = tx.GetSpace(ctx, spaceID)
		if err != nil {
			return storeErr(op, "space", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return space, nil
}

// transitionSpace is the single compare-and-swap every manager uses to change a space.
// On a miss it reports why: the space is missing, disabled, or in another state.
func transitionSpace(ctx context.Context, tx store.Repo, op string, spaceID int64, from, to model.SpaceState) error {
	err := tx.TransitionSpace(ctx, spaceID, from, to)
	if err == nil {
		return nil
	}
	if !errors.Is(err, store.ErrStale) {
		return storeErr(op, "space", err)
	}

	current, getErr := tx.GetSpace(ctx, spaceID)
	if getErr != nil {
		return storeErr(op, "space", getErr)
	}
	if current.State == model.SpaceDisabled && to != model.SpaceAvailable {
		return fail(KindInvalidState, op, "space %s is disabled", current.Label)
	}
	return fail(KindConflict, op, "space %s is %s, expected %s", current.Label, current.State, from)
}

// SetDisabled takes an available space out of service or returns a disabled one to it.
func (r *SpaceRegistry) SetDisabled(ctx context.Context, spaceID int64, disabled bool) (*model.Space, error) {
	from, to := model.SpaceDisabled, model.SpaceAvailable
	if disabled {
		from, to = model.SpaceAvailable, model.SpaceDisabled
	}

	space, err := r.store.GetSpace(ctx, spaceID)
	if err != nil {
		return nil, storeErr("space.set_disabled", "space", err)
	}
	if space.State == to {
		return space, nil
	}
	return r.Transition(ctx, spaceID, from, to)
}

// Get returns a space.
func (r *SpaceRegistry) Get(ctx context.Context, spaceID int64) (*model.Space, error) {
	space, err := r.store.GetSpace(ctx, spaceID)
	if err != nil {
		return nil, storeErr("space.get", "space", err)
	}
	return space, nil
}

// List returns the spaces of a lot.
func (r *SpaceRegistry) List(ctx context.Context, lotID int64) ([]model.Space, error) {
	if _, err := r.store.GetLot(ctx, lotID); err != nil {
		return nil, storeErr("space.list", "lot", err)
	}
	spaces, err := r.store.ListSpaces(ctx, lotID)
	if err != nil {
		return nil, storeErr("space.list", "space", err)
	}
	return spaces, nil
}
