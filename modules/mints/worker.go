package mints

import (
	"context"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/minterscan/mint-indexer/common/errs"
	"github.com/minterscan/mint-indexer/modules/mints/usecase"
	"github.com/minterscan/mint-indexer/pkg/logger"
	"github.com/minterscan/mint-indexer/pkg/logger/slogx"
)

const openCollectionsLimit = 100

// Worker drives the refresh queue: it claims due refresh jobs on every poll
// tick and periodically re-enqueues collections that still have open
// descriptors, so availability data keeps converging without external input.
type Worker struct {
	usecase         *usecase.Usecase
	pollInterval    time.Duration
	refreshInterval time.Duration
	jobBatchSize    int32
	cleanupFuncs    []func(context.Context) error

	quitOnce sync.Once
	quit     chan struct{}
	done     chan struct{}
}

func NewWorker(
	uc *usecase.Usecase,
	pollInterval time.Duration,
	refreshInterval time.Duration,
	jobBatchSize int32,
	cleanupFuncs []func(context.Context) error,
) *Worker {
	return &Worker{
		usecase:         uc,
		pollInterval:    pollInterval,
		refreshInterval: refreshInterval,
		jobBatchSize:    jobBatchSize,
		cleanupFuncs:    cleanupFuncs,

		quit: make(chan struct{}),
		done: make(chan struct{}),
	}
}

func (w *Worker) Shutdown() error {
	return w.ShutdownWithContext(context.Background())
}

func (w *Worker) ShutdownWithTimeout(timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return w.ShutdownWithContext(ctx)
}

func (w *Worker) ShutdownWithContext(ctx context.Context) (err error) {
	w.quitOnce.Do(func() {
		close(w.quit)
		select {
		case <-w.done:
		case <-time.After(180 * time.Second):
			err = errors.Wrap(errs.Timeout, "worker shutdown timeout")
		case <-ctx.Done():
			err = errors.Wrap(ctx.Err(), "worker shutdown context canceled")
		}
	})
	return
}

func (w *Worker) Run(ctx context.Context) error {
	defer close(w.done)

	ctx = logger.WithContext(ctx, slogx.String("package", "mints"))

	pollTicker := time.NewTicker(w.pollInterval)
	defer pollTicker.Stop()
	refreshTicker := time.NewTicker(w.refreshInterval)
	defer refreshTicker.Stop()

	// seed the queue on startup so a restart doesn't wait a full interval
	if err := w.usecase.RefreshOpenCollections(ctx, openCollectionsLimit); err != nil {
		logger.WarnContext(ctx, "Failed to enqueue open collections on startup", slogx.Error(err))
	}

	for {
		select {
		case <-w.quit:
			logger.InfoContext(ctx, "Got quit signal, stopping mints worker")
			return errors.WithStack(w.cleanup(ctx))
		case <-ctx.Done():
			return errors.WithStack(w.cleanup(context.Background()))
		case <-refreshTicker.C:
			if err := w.usecase.RefreshOpenCollections(ctx, openCollectionsLimit); err != nil {
				logger.ErrorContext(ctx, "Failed to enqueue open collections", slogx.Error(err))
			}
		case <-pollTicker.C:
			processed, err := w.usecase.ProcessDueRefreshJobs(ctx, w.jobBatchSize)
			if err != nil {
				logger.ErrorContext(ctx, "Failed to process refresh jobs", slogx.Error(err))
				continue
			}
			if processed > 0 {
				logger.InfoContext(ctx, "Processed refresh jobs", slogx.Int("jobs", processed))
			}
		}
	}
}

func (w *Worker) cleanup(ctx context.Context) error {
	for _, cleanup := range w.cleanupFuncs {
		if err := cleanup(ctx); err != nil {
			return errors.Wrap(err, "cleanup failed")
		}
	}
	return nil
}
