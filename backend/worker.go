package backend

import (
	"context"
	"errors"
	"time"
)

// TaskProcessor is implemented once per work item kind (orchestration,
// activity) and plugged into the shared TaskWorker loop below, the same
// generalization orchestration.go already hints at via
// NewOrchestrationWorker(be, executor, logger, opts...) -> NewTaskWorker(...).
type TaskProcessor interface {
	Name() string
	FetchWorkItem(ctx context.Context) (WorkItem, error)
	ProcessWorkItem(ctx context.Context, wi WorkItem) error
	CompleteWorkItem(ctx context.Context, wi WorkItem) error
	AbandonWorkItem(ctx context.Context, wi WorkItem) error
}

// TaskWorker runs a TaskProcessor's fetch/process/complete loop against a
// Backend in-process, for hosts that embed worker code in the same process
// as the hub (no gRPC boundary). Remote workers instead go through
// internal/grpc, whose TaskHubGrpcWorker drives the OrchestratorExecutor and
// ActivityExecutor directly rather than a TaskProcessor.
type TaskWorker interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

type taskWorkerOptions struct {
	concurrency   int
	retryDelay    time.Duration
	cancelDelay   time.Duration
}

// NewTaskWorkerOptions configures a TaskWorker's concurrency and retry
// behavior: transient fetch errors retry after retryDelay, while a fetch that
// fails with context.Canceled while the worker's own ctx is still live
// retries after cancelDelay. Once the worker's ctx is done, runLoop exits
// instead of retrying.
type NewTaskWorkerOptions func(*taskWorkerOptions)

func WithMaxConcurrentWorkItems(n int) NewTaskWorkerOptions {
	return func(o *taskWorkerOptions) { o.concurrency = n }
}

func WithTransientErrorRetryDelay(d time.Duration) NewTaskWorkerOptions {
	return func(o *taskWorkerOptions) { o.retryDelay = d }
}

// WithCancelDelay overrides the delay applied before retrying a fetch that
// failed with context.Canceled while the worker's own ctx is still live.
// Defaults to 0 (retry immediately). A cancellation of the worker's own ctx
// is never retried: runLoop exits on it.
func WithCancelDelay(d time.Duration) NewTaskWorkerOptions {
	return func(o *taskWorkerOptions) { o.cancelDelay = d }
}

type taskWorker struct {
	be        Backend
	processor TaskProcessor
	logger    Logger
	opts      taskWorkerOptions

	cancel context.CancelFunc
	done   chan struct{}
}

// NewTaskWorker builds a TaskWorker that repeatedly fetches work items from
// be via processor and applies them, one goroutine per opts.concurrency slot.
func NewTaskWorker(be Backend, processor TaskProcessor, logger Logger, opts ...NewTaskWorkerOptions) TaskWorker {
	o := taskWorkerOptions{concurrency: 1, retryDelay: time.Second}
	for _, opt := range opts {
		opt(&o)
	}
	if logger == nil {
		logger = DefaultLogger()
	}
	return &taskWorker{be: be, processor: processor, logger: logger, opts: o}
}

func (w *taskWorker) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	w.cancel = cancel
	w.done = make(chan struct{})

	n := w.opts.concurrency
	if n < 1 {
		n = 1
	}
	go func() {
		defer close(w.done)
		for i := 0; i < n; i++ {
			go w.runLoop(ctx)
		}
		<-ctx.Done()
	}()
	return nil
}

func (w *taskWorker) Stop(ctx context.Context) error {
	if w.cancel != nil {
		w.cancel()
	}
	if w.done != nil {
		select {
		case <-w.done:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

func (w *taskWorker) runLoop(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		wi, err := w.processor.FetchWorkItem(ctx)
		if err != nil {
			// ctx itself being done is a real shutdown: exit rather than
			// retry. A context.Canceled error while ctx is still live came
			// from something internal to FetchWorkItem (e.g. a sub-context
			// it owns), so it goes through the normal retry path at
			// cancelDelay rather than tearing down the loop.
			if ctx.Err() != nil {
				return
			}
			w.logger.Warnf("%s: failed to fetch work item: %v", w.processor.Name(), err)
			w.sleep(ctx, w.retryDelayFor(err))
			continue
		}

		if err := w.processor.ProcessWorkItem(ctx, wi); err != nil {
			w.logger.Warnf("%s: failed to process work item %s: %v", w.processor.Name(), wi.Description(), err)
			if abandonErr := w.processor.AbandonWorkItem(ctx, wi); abandonErr != nil {
				w.logger.Errorf("%s: failed to abandon work item %s: %v", w.processor.Name(), wi.Description(), abandonErr)
			}
			continue
		}

		if err := w.processor.CompleteWorkItem(ctx, wi); err != nil {
			w.logger.Errorf("%s: failed to complete work item %s: %v", w.processor.Name(), wi.Description(), err)
		}
	}
}

func (w *taskWorker) retryDelayFor(err error) time.Duration {
	if errors.Is(err, context.Canceled) {
		return w.opts.cancelDelay
	}
	return w.opts.retryDelay
}

func (w *taskWorker) sleep(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
