package download

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"clipstream/internal/domain"
	"clipstream/internal/metrics"
)

// taskRunner executes the processing pipeline for one task end-to-end.
type taskRunner interface {
	Run(ctx context.Context, task domain.Task) (*domain.TaskOutput, error)
}

// worker pops tasks off the queue and processes at most one at a time.
// Admission state (tentative reservations, busy flag) lives here so the
// externally observed queue size never undercounts a task a caller has
// already been told about.
type worker struct {
	queue  *queue
	runner taskRunner
	logger *slog.Logger

	mu        sync.Mutex
	tentative int
	busy      bool
}

func newWorker(runner taskRunner, logger *slog.Logger) *worker {
	return &worker{
		queue:  newQueue(),
		runner: runner,
		logger: logger,
	}
}

// fetchAddQueueSize returns the observable queue size and adds delta to the
// tentative-reservation counter, both under one lock.
func (w *worker) fetchAddQueueSize(delta int) int {
	w.mu.Lock()
	defer w.mu.Unlock()

	size := w.queue.len() + w.tentative
	if w.busy {
		size++
	}
	w.tentative += delta
	return size
}

func (w *worker) queueSize() int {
	return w.fetchAddQueueSize(0)
}

func (w *worker) tentativeEnqueue() int {
	return w.fetchAddQueueSize(1)
}

// push inserts a task into the queue, consuming any tentative reservation
// made for it. The decrement and the physical insert happen under the same
// lock so no observer can double-count or drop the task.
func (w *worker) push(t domain.Task) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.tentative > 0 {
		w.tentative--
	}
	w.queue.push(t)
	metrics.QueueSize.Set(float64(w.sizeLocked()))
}

// sizeLocked computes the observable size. Callers must hold w.mu.
func (w *worker) sizeLocked() int {
	size := w.queue.len() + w.tentative
	if w.busy {
		size++
	}
	return size
}

func (w *worker) setBusy(busy bool) {
	w.mu.Lock()
	w.busy = busy
	metrics.WorkerBusy.Set(boolToFloat(busy))
	metrics.QueueSize.Set(float64(w.sizeLocked()))
	w.mu.Unlock()
}

// run is the single-concurrency loop. Cancellation is checked before every
// dequeue so a continuous backlog can never starve shutdown; an in-flight
// task always runs to completion.
func (w *worker) run(ctx context.Context) {
	w.logger.Debug("worker started")
	for {
		select {
		case <-ctx.Done():
			w.logger.Debug("worker stopped")
			return
		default:
		}

		task, err := w.queue.pop(ctx)
		if err != nil {
			w.logger.Debug("worker stopped")
			return
		}

		w.setBusy(true)
		w.handle(ctx, task)
		w.setBusy(false)
	}
}

// handle processes a single task and delivers the result. A failing or
// panicking pipeline becomes a failure result for this task only.
func (w *worker) handle(ctx context.Context, task domain.Task) {
	start := time.Now()
	output, err := w.runSafely(ctx, task)

	outcome := "success"
	if err != nil {
		outcome = "failure"
		w.logger.Warn("task failed",
			slog.String("taskId", task.ID),
			slog.String("url", task.URL),
			slog.String("error", err.Error()),
		)
	}
	metrics.TasksTotal.WithLabelValues(outcome).Inc()
	metrics.TaskDuration.Observe(time.Since(start).Seconds())

	select {
	case task.Done <- domain.TaskResult{Output: output, Err: err}:
	default:
		// Requester vanished; release the artifact since ownership cannot
		// transfer. Logged, never retried, never stops the loop.
		if cerr := output.Close(); cerr != nil {
			w.logger.Warn("orphaned output cleanup failed",
				slog.String("taskId", task.ID),
				slog.String("error", cerr.Error()),
			)
		}
		w.logger.Error("failed to deliver task result: channel closed",
			slog.String("taskId", task.ID),
		)
	}
}

// runSafely runs the pipeline with panic isolation. The pipeline is detached
// from the loop context: stopping the worker must not preempt a task that is
// already in flight.
func (w *worker) runSafely(ctx context.Context, task domain.Task) (output *domain.TaskOutput, err error) {
	defer func() {
		if r := recover(); r != nil {
			w.logger.Error("pipeline panic",
				slog.String("taskId", task.ID),
				slog.Any("panic", r),
				slog.String("stack", string(debug.Stack())),
			)
			output = nil
			err = fmt.Errorf("internal error: %v", r)
		}
	}()
	return w.runner.Run(context.WithoutCancel(ctx), task)
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
