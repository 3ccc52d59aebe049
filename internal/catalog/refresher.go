package catalog

import (
	"context"
	"fmt"
	"time"
)

// StatesFetcher provides the wholesale entity list for a snapshot refresh.
// Implemented by an adapter over the Home Assistant client.
type StatesFetcher interface {
	FetchStates(ctx context.Context) ([]Entity, error)
}

// Refresher periodically rebuilds the catalog snapshot from the states
// fetcher. A failed fetch keeps the previous snapshot; the compiler keeps
// working against a stale but consistent view.
type Refresher struct {
	store    *Store
	fetcher  StatesFetcher
	interval time.Duration
	logger   Logger
}

// NewRefresher creates a refresher for the given store and fetcher.
func NewRefresher(store *Store, fetcher StatesFetcher, interval time.Duration) *Refresher {
	return &Refresher{
		store:    store,
		fetcher:  fetcher,
		interval: interval,
		logger:   noopLogger{},
	}
}

// SetLogger sets the logger for the refresher.
func (r *Refresher) SetLogger(logger Logger) {
	r.logger = logger
}

// RefreshNow fetches entities and replaces the snapshot once.
func (r *Refresher) RefreshNow(ctx context.Context) error {
	entities, err := r.fetcher.FetchStates(ctx)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrRefreshFailed, err)
	}
	r.store.Replace(entities)
	return nil
}

// Run refreshes immediately, then on every interval tick until the context
// is cancelled. Refresh failures are logged and the loop continues.
func (r *Refresher) Run(ctx context.Context) {
	if err := r.RefreshNow(ctx); err != nil {
		r.logger.Error("initial catalog refresh failed", "error", err)
	}

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := r.RefreshNow(ctx); err != nil {
				r.logger.Error("catalog refresh failed", "error", err)
			}
		}
	}
}
