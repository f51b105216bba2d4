package notification

import (
	"context"
	"fmt"

	"parking-backend/internal/model"
	"parking-backend/internal/store"
)

// Dispatcher stores every notification for the in-app inbox and hands it to the push
// workers when push delivery is configured.
type Dispatcher struct {
	repo store.Repo
	pool *WorkerPool
}

// NewDispatcher returns a dispatcher. pool may be nil, in which case notifications
// are only stored.
func NewDispatcher(repo store.Repo, pool *WorkerPool) *Dispatcher {
	return &Dispatcher{repo: repo, pool: pool}
}

// Notify records the message and queues it for push delivery.
func (d *Dispatcher) Notify(ctx context.Context, userID int64, message, category string) error {
	n := &model.Notification{
		UserID:   userID,
		Category: category,
		Message:  message,
	}
	if err := d.repo.CreateNotification(ctx, n); err != nil {
		return fmt.Errorf("store notification: %w", err)
	}

	if d.pool != nil {
		d.pool.Dispatch(Job{
			NotificationID: n.ID,
			UserID:         userID,
			Category:       category,
			Message:        message,
		})
	}
	return nil
}
