// Package worker runs the background reconciler that brings recorded payment
// intents up to date with the provider when webhooks were missed.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/PortNumber53/sports-camp/backend/internal/models"
	"github.com/PortNumber53/sports-camp/backend/internal/stripe"
)

// PendingLedger is the slice of the store the reconciler needs.
type PendingLedger interface {
	ListPendingPaymentIntents(ctx context.Context, since, before time.Time, limit int) ([]models.PaymentIntentRecord, error)
	UpdatePaymentIntentStatus(ctx context.Context, id string, status models.PaymentIntentStatus, lastError *string) error
}

// IntentFetcher reads the provider's current view of an intent.
type IntentFetcher interface {
	RetrievePaymentIntent(ctx context.Context, id string) (*stripe.PaymentIntent, error)
}

// Stats holds reconciler statistics
type Stats struct {
	Runs          int64
	IntentsPolled int64
	IntentsMoved  int64
	Errors        int64
	LastRunAt     time.Time
}

// Config holds reconciler configuration
type Config struct {
	// PollInterval is the time between reconciliation passes
	PollInterval time.Duration
	// StaleAfter is how long an intent must sit untouched before it is polled
	StaleAfter time.Duration
	// MaxAge stops polling intents that were abandoned long ago
	MaxAge time.Duration
	// BatchSize bounds the intents checked per pass
	BatchSize int
	// CallTimeout bounds each provider call
	CallTimeout time.Duration
	// ShutdownTimeout is the maximum time to wait for a pass to finish during shutdown
	ShutdownTimeout time.Duration
}

// DefaultConfig returns sensible default configuration
func DefaultConfig() Config {
	return Config{
		PollInterval:    5 * time.Minute,
		StaleAfter:      10 * time.Minute,
		MaxAge:          24 * time.Hour,
		BatchSize:       50,
		CallTimeout:     15 * time.Second,
		ShutdownTimeout: 30 * time.Second,
	}
}

// Worker periodically reconciles pending ledger rows against the provider.
type Worker struct {
	config   Config
	ledger   PendingLedger
	provider IntentFetcher
	now      func() time.Time

	wg      sync.WaitGroup
	stopCh  chan struct{}
	stopped bool
	mu      sync.Mutex

	statsMu sync.RWMutex
	stats   Stats
}

// New creates a new Worker instance
func New(config Config, ledger PendingLedger, provider IntentFetcher) *Worker {
	def := DefaultConfig()
	if config.PollInterval <= 0 {
		config.PollInterval = def.PollInterval
	}
	if config.StaleAfter <= 0 {
		config.StaleAfter = def.StaleAfter
	}
	if config.MaxAge <= 0 {
		config.MaxAge = def.MaxAge
	}
	if config.BatchSize <= 0 {
		config.BatchSize = def.BatchSize
	}
	if config.CallTimeout <= 0 {
		config.CallTimeout = def.CallTimeout
	}
	if config.ShutdownTimeout <= 0 {
		config.ShutdownTimeout = def.ShutdownTimeout
	}

	return &Worker{
		config:   config,
		ledger:   ledger,
		provider: provider,
		now:      time.Now,
		stopCh:   make(chan struct{}),
	}
}

// Start begins the reconciliation loop
func (w *Worker) Start(ctx context.Context) {
	log.Printf("[worker] Starting reconciler, interval %v", w.config.PollInterval)

	w.wg.Add(1)
	go w.loop(ctx)
}

// Stop gracefully shuts down the worker
func (w *Worker) Stop(ctx context.Context) error {
	w.mu.Lock()
	if w.stopped {
		w.mu.Unlock()
		return nil
	}
	w.stopped = true
	close(w.stopCh)
	w.mu.Unlock()

	shutdownCtx, cancel := context.WithTimeout(ctx, w.config.ShutdownTimeout)
	defer cancel()

	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		log.Printf("[worker] Graceful shutdown completed")
		return nil
	case <-shutdownCtx.Done():
		log.Printf("[worker] Shutdown timeout exceeded, forcing stop")
		return fmt.Errorf("shutdown timeout exceeded")
	}
}

func (w *Worker) loop(ctx context.Context) {
	defer w.wg.Done()

	ticker := time.NewTicker(w.config.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Printf("[worker] Reconciler shutting down (context cancelled)")
			return
		case <-w.stopCh:
			log.Printf("[worker] Reconciler shutting down (stop signal)")
			return
		case <-ticker.C:
			if _, err := w.RunOnce(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Printf("[worker] Reconcile pass failed: %v", err)
			}
		}
	}
}

// RunOnce performs a single reconciliation pass and returns how many intents
// changed status.
func (w *Worker) RunOnce(ctx context.Context) (int, error) {
	now := w.now()
	pending, err := w.ledger.ListPendingPaymentIntents(ctx, now.Add(-w.config.MaxAge), now.Add(-w.config.StaleAfter), w.config.BatchSize)
	if err != nil {
		w.recordRun(0, 0, 1)
		return 0, err
	}

	moved, failures := 0, 0
	for _, rec := range pending {
		select {
		case <-w.stopCh:
			w.recordRun(len(pending), moved, failures)
			return moved, nil
		default:
		}

		changed, err := w.reconcile(ctx, rec)
		if err != nil {
			failures++
			log.Printf("[worker] Failed to reconcile %s: %v", rec.ID, err)
			continue
		}
		if changed {
			moved++
		}
	}

	w.recordRun(len(pending), moved, failures)
	if len(pending) > 0 {
		log.Printf("[worker] Reconciled %d pending intents, %d changed", len(pending), moved)
	}
	return moved, nil
}

func (w *Worker) reconcile(ctx context.Context, rec models.PaymentIntentRecord) (bool, error) {
	callCtx, cancel := context.WithTimeout(ctx, w.config.CallTimeout)
	defer cancel()

	pi, err := w.provider.RetrievePaymentIntent(callCtx, rec.ID)
	if err != nil {
		return false, err
	}

	status, lastError := ledgerStatus(pi)

	// Writing the unchanged status bumps updated_at so the row moves to the
	// back of the queue.
	if err := w.ledger.UpdatePaymentIntentStatus(ctx, rec.ID, status, lastError); err != nil {
		return false, err
	}
	return status != rec.Status, nil
}

// ledgerStatus maps the provider status onto the ledger's vocabulary. An
// intent sent back to requires_payment_method with an error attached is a
// failed attempt.
func ledgerStatus(pi *stripe.PaymentIntent) (models.PaymentIntentStatus, *string) {
	status := models.PaymentIntentStatus(pi.Status)
	if pi.LastError == nil || pi.LastError.Message == "" {
		return status, nil
	}
	msg := pi.LastError.Message
	if status == models.IntentRequiresPaymentMethod {
		return models.IntentPaymentFailed, &msg
	}
	return status, nil
}

func (w *Worker) recordRun(polled, moved, failures int) {
	w.statsMu.Lock()
	defer w.statsMu.Unlock()
	w.stats.Runs++
	w.stats.IntentsPolled += int64(polled)
	w.stats.IntentsMoved += int64(moved)
	w.stats.Errors += int64(failures)
	w.stats.LastRunAt = w.now()
}

// GetStats returns current worker statistics
func (w *Worker) GetStats() Stats {
	w.statsMu.RLock()
	defer w.statsMu.RUnlock()
	return w.stats
}
