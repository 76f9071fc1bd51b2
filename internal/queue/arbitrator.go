package queue

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/chani890/MediWait/internal/model"
	"github.com/chani890/MediWait/internal/store"
)

// Arbitrator promotes the head of the CONFIRMED queue to CALLED. The store's
// CallIfIdle keeps two callers, in this process or another, from both
// succeeding; the mutex only stops goroutines of this process from scanning
// the same head at once.
type Arbitrator struct {
	mu    sync.Mutex
	store store.ReceptionStore
	now   func() time.Time
}

func NewArbitrator(st store.ReceptionStore, now func() time.Time) *Arbitrator {
	if now == nil {
		now = utcNow
	}
	return &Arbitrator{store: st, now: now}
}

// CallNext calls the earliest-confirmed reception and returns it in its
// CALLED state.
func (a *Arbitrator) CallNext(ctx context.Context) (model.Reception, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if err := a.checkIdle(ctx); err != nil {
		return model.Reception{}, err
	}

	confirmed, err := a.store.ListByStatus(ctx, model.StatusConfirmed)
	if err != nil {
		return model.Reception{}, err
	}
	if len(confirmed) == 0 {
		return model.Reception{}, ErrNoPatientsWaiting
	}

	head := confirmed[0]
	now := a.now()
	ok, err := a.store.CallIfIdle(ctx, head.ID, now)
	if err != nil {
		return model.Reception{}, fmt.Errorf("call reception %s: %w", head.ID, err)
	}
	if !ok {
		// Another process called someone after our check.
		if err := a.checkIdle(ctx); err != nil {
			return model.Reception{}, err
		}
		return model.Reception{}, ErrConcurrentModification
	}

	head.Status = model.StatusCalled
	head.CalledAt = &now
	head.UpdatedAt = now
	return head, nil
}

// checkIdle fails with an AlreadyCalledError naming whoever is in the exam room.
func (a *Arbitrator) checkIdle(ctx context.Context) error {
	called, err := a.store.ListByStatus(ctx, model.StatusCalled)
	if err != nil {
		return err
	}
	if len(called) > 0 {
		return &AlreadyCalledError{Receptions: called}
	}
	return nil
}

func utcNow() time.Time {
	return time.Now().UTC()
}
