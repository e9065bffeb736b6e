package session

import (
	"context"
	"time"

	"github.com/sashakarcz/passify/internal/logger"
	"github.com/sashakarcz/passify/internal/metrics"
)

// ExpiryWorker periodically drops expired sessions from the cache
type ExpiryWorker struct {
	manager       *Manager
	metrics       *metrics.Metrics
	checkInterval time.Duration
	stopChan      chan struct{}
	doneChan      chan struct{}
}

// NewExpiryWorker creates a new session expiry worker. m may be nil.
func NewExpiryWorker(manager *Manager, m *metrics.Metrics, checkInterval time.Duration) *ExpiryWorker {
	if checkInterval <= 0 {
		checkInterval = 5 * time.Minute
	}

	return &ExpiryWorker{
		manager:       manager,
		metrics:       m,
		checkInterval: checkInterval,
		stopChan:      make(chan struct{}),
		doneChan:      make(chan struct{}),
	}
}

// Start begins the expiry check loop
func (w *ExpiryWorker) Start(ctx context.Context) error {
	logger.Info().
		Dur("interval", w.checkInterval).
		Msg("Starting session expiry worker")

	w.sweep()

	go w.expiryLoop(ctx)

	return nil
}

// Stop stops the expiry check loop
func (w *ExpiryWorker) Stop(ctx context.Context) error {
	logger.Info().Msg("Stopping session expiry worker")

	close(w.stopChan)

	select {
	case <-w.doneChan:
		logger.Info().Msg("Session expiry worker stopped")
		return nil
	case <-ctx.Done():
		logger.Warn().Msg("Session expiry worker stop timed out")
		return ctx.Err()
	}
}

// expiryLoop is the main expiry check loop
func (w *ExpiryWorker) expiryLoop(ctx context.Context) {
	defer close(w.doneChan)

	ticker := time.NewTicker(w.checkInterval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stopChan:
			logger.Debug().Msg("Session expiry worker received stop signal")
			return

		case <-ctx.Done():
			logger.Debug().Msg("Session expiry worker context cancelled")
			return

		case <-ticker.C:
			w.sweep()
		}
	}
}

// sweep removes expired sessions and refreshes the session gauge
func (w *ExpiryWorker) sweep() int {
	cache := w.manager.Cache()
	count := cache.ExpireOld(w.manager.now())

	if count > 0 {
		logger.Info().
			Int("count", count).
			Msg("Expired sessions")
	}

	if w.metrics != nil {
		w.metrics.RecordSessionsExpired(count)
		w.metrics.UpdateActiveSessions(cache.Size())
	}

	return count
}
