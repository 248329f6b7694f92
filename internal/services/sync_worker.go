package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"vinatravel/pkg/logger"
	"vinatravel/pkg/utils"
)

type batchRunner interface {
	RetryFailed(ctx context.Context) (SyncSummary, error)
}

// SyncWorker runs RetryFailed on a fixed interval until stopped.
type SyncWorker struct {
	runner   batchRunner
	interval time.Duration
	logger   logger.ILogger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func NewSyncWorker(runner batchRunner, interval time.Duration, log logger.ILogger) *SyncWorker {
	if interval <= 0 {
		interval = time.Minute
	}
	return &SyncWorker{runner: runner, interval: interval, logger: log}
}

func (w *SyncWorker) Start() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	w.cancel = cancel
	w.done = make(chan struct{})

	go w.loop(ctx, w.done)
	w.logger.Info(syncModule, "sync worker started", map[string]interface{}{"interval": w.interval.String()})
}

// Stop cancels the loop and waits for the running batch, if any, to return.
func (w *SyncWorker) Stop(ctx context.Context) error {
	w.mu.Lock()
	cancel, done := w.cancel, w.done
	w.cancel, w.done = nil, nil
	w.mu.Unlock()

	if cancel == nil {
		return nil
	}
	cancel()

	select {
	case <-done:
		w.logger.Info(syncModule, "sync worker stopped", nil)
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (w *SyncWorker) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.runOnce(ctx)
		}
	}
}

func (w *SyncWorker) runOnce(ctx context.Context) {
	if _, err := w.runner.RetryFailed(ctx); err != nil {
		if errors.Is(err, utils.ErrSyncInProgress) || errors.Is(err, context.Canceled) {
			return
		}
		w.logger.Error(syncModule, "scheduled sync batch failed", map[string]interface{}{"error": err.Error()})
	}
}
