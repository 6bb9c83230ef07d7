package storage

import (
	"context"
	"log/slog"
	"time"

	"github.com/benbjohnson/clock"
)

// CleanupService periodically removes expired namespaces from the store.
type CleanupService struct {
	store    Store
	interval time.Duration
	clock    clock.Clock
	done     chan struct{}
}

// NewCleanupService creates a new cleanup service.
func NewCleanupService(store Store, interval time.Duration, clk clock.Clock) *CleanupService {
	if clk == nil {
		clk = clock.New()
	}
	return &CleanupService{
		store:    store,
		interval: interval,
		clock:    clk,
		done:     make(chan struct{}),
	}
}

// Start begins the cleanup loop in a background goroutine.
func (cs *CleanupService) Start(ctx context.Context) {
	slog.Info("cleanup service started", "interval", cs.interval)

	ticker := cs.clock.Ticker(cs.interval)
	go func() {
		defer ticker.Stop()

		// Run once immediately on start
		cs.runCleanup(ctx)

		for {
			select {
			case <-ticker.C:
				cs.runCleanup(ctx)
			case <-ctx.Done():
				slog.Info("cleanup service stopping")
				close(cs.done)
				return
			}
		}
	}()
}

// Wait blocks until the cleanup service has fully stopped.
func (cs *CleanupService) Wait() {
	<-cs.done
}

func (cs *CleanupService) runCleanup(ctx context.Context) int {
	expired, err := cs.store.Expired(ctx)
	if err != nil {
		slog.Error("failed to get expired namespaces", "error", err)
		return 0
	}

	if len(expired) == 0 {
		slog.Debug("no expired namespaces to clean up")
		return 0
	}

	var cleaned, failed int
	for _, ns := range expired {
		if err := cs.store.Delete(ctx, ns.ID); err != nil {
			slog.Error("failed to delete namespace",
				"namespace_id", ns.ID,
				"error", err,
			)
			failed++
			continue
		}

		cleaned++
		slog.Info("cleaned up expired namespace",
			"namespace_id", ns.ID,
			"name", ns.Name,
			"expired_at", ns.ExpiresAt,
		)
	}

	slog.Info("cleanup cycle complete",
		"cleaned", cleaned,
		"failed", failed,
		"total_expired", len(expired),
	)
	return cleaned
}
