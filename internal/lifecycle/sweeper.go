package lifecycle

import (
	"context"
	"fmt"
	"time"

	"parking-backend/internal/model"
	"parking-backend/internal/store"
)

// expirableStates are the reservation states the sweeper may cancel.
var expirableStates = []model.ReservationState{model.ReservationPending, model.ReservationActive}

// ExpirationSweeper cancels reservations nobody checked in on within the grace period.
// Only pending and active reservations expire. A confirmed reservation keeps its
// space reserved until an operator cancels it or the driver checks in.
type ExpirationSweeper struct {
	*core
}

// Run sweeps once at start and then on every interval until ctx is cancelled.
func (s *ExpirationSweeper) Run(ctx context.Context) {
	s.logger.Printf("Starting expiration sweeper (interval %s, grace %s)...", s.policy.SweepInterval, s.policy.GracePeriod)

	s.sweepAndLog(ctx)

	timer := time.NewTimer(s.policy.SweepInterval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Println("Expiration sweeper shutting down.")
			return
		case <-timer.C:
			s.sweepAndLog(ctx)
			timer.Reset(s.policy.SweepInterval)
		}
	}
}

func (s *ExpirationSweeper) sweepAndLog(ctx context.Context) {
	n, err := s.SweepOnce(ctx)
	if err != nil {
		s.logger.Printf("Error during expiration sweep: %v", err)
	}
	if n > 0 {
		s.logger.Printf("Expiration sweep cancelled %d reservations", n)
	}
}

// SweepOnce cancels every reservation that started more than the grace period ago
// without a check-in, and frees its space. Each reservation is handled in its own
// transaction; one that changed since it was listed is skipped. It returns how many
// reservations were cancelled.
func (s *ExpirationSweeper) SweepOnce(ctx context.Context) (int, error) {
	const op = "sweeper.sweep"
	cutoff := s.now().Add(-s.policy.GracePeriod)

	candidates, err := s.store.ListExpirableReservations(ctx, cutoff, expirableStates)
	if err != nil {
		return 0, storeErr(op, "reservation", err)
	}

	cancelled := 0
	for _, r := range candidates {
		if ctx.Err() != nil {
			return cancelled, ctx.Err()
		}

		ok, err := s.expire(ctx, r, cutoff)
		if err != nil {
			s.logger.Printf("Error expiring reservation %d: %v", r.ID, err)
			continue
		}
		if !ok {
			continue
		}
		cancelled++
		s.notify(ctx, r.UserID,
			fmt.Sprintf("Reservation #%d expired: no check-in within %s of its start.", r.ID, s.policy.GracePeriod),
			CategoryExpiration)
	}
	return cancelled, nil
}

// expire cancels one reservation if it is still eligible and releases its space.
func (s *ExpirationSweeper) expire(ctx context.Context, r model.Reservation, cutoff time.Time) (bool, error) {
	const op = "sweeper.expire"
	cancelled := false
	err := s.store.InTx(ctx, func(tx store.Repo) error {
		err := tx.CancelExpiredReservation(ctx, r.ID, cutoff, expirableStates)
		if isStale(err) {
			return nil
		}
		if err != nil {
			return storeErr(op, "reservation", err)
		}
		if err := releaseReservedSpace(ctx, tx, op, r.SpaceID); err != nil {
			return err
		}
		cancelled = true
		return nil
	})
	return cancelled, err
}
