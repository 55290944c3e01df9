package csrf

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/platinummonkey/turnstile/pkg/observability"
)

// Reaper sweeps expired tokens on a schedule. The lazy sweep inside the
// manager already upholds the validation invariant; the reaper only keeps
// the table small during idle periods.
type Reaper struct {
	store  Store
	logger *observability.Logger
	cron   *cron.Cron
}

// NewReaper creates a scheduled sweeper over the given store
func NewReaper(store Store, logger *observability.Logger) *Reaper {
	return &Reaper{
		store:  store,
		logger: logger,
		cron:   cron.New(),
	}
}

// Start begins sweeping on the given cron schedule (e.g. "@every 15m")
func (r *Reaper) Start(schedule string) error {
	_, err := r.cron.AddFunc(schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := r.store.DeleteExpired(ctx, time.Now()); err != nil {
			r.logger.WithError(err).Error("CSRF token sweep failed")
			return
		}
		r.logger.Debug("CSRF token sweep complete")
	})
	if err != nil {
		return err
	}

	r.cron.Start()
	return nil
}

// Stop halts the schedule and waits for a running sweep to finish
func (r *Reaper) Stop() {
	ctx := r.cron.Stop()
	<-ctx.Done()
}
