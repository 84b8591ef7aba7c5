package download

import (
	"context"
	"log/slog"
	"sync"

	"clipstream/internal/domain"
)

// Manager is the public face of the task queue: admission control on the
// way in, a single-concurrency worker on the way out.
type Manager struct {
	worker *worker
	logger *slog.Logger

	mu      sync.Mutex
	cancel  context.CancelFunc
	stopped chan struct{}
}

// NewManager wires a manager around the given pipeline runner.
func NewManager(runner taskRunner, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		worker: newWorker(runner, logger),
		logger: logger,
	}
}

// Start launches the worker loop. Repeated calls are no-ops until Stop.
func (m *Manager) Start(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cancel != nil {
		return
	}

	workerCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.stopped = make(chan struct{})

	go func(done chan struct{}) {
		defer close(done)
		m.worker.run(workerCtx)
	}(m.stopped)

	m.logger.Debug("task manager started")
}

// Stop requests cancellation. The in-flight task, if any, runs to
// completion; queued tasks are abandoned and never started.
func (m *Manager) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cancel == nil {
		return
	}
	m.cancel()
	m.cancel = nil
	m.logger.Debug("task manager stopped")
}

// Done returns a channel closed once the worker loop has exited. Returns a
// closed channel if the manager was never started.
func (m *Manager) Done() <-chan struct{} {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stopped == nil {
		done := make(chan struct{})
		close(done)
		return done
	}
	return m.stopped
}

// QueueSize returns the number of tasks occupying queue positions:
// physically queued, tentatively reserved, and in flight.
func (m *Manager) QueueSize() int {
	return m.worker.queueSize()
}

// TentativeEnqueue returns the current queue size and reserves a position
// for a task about to be submitted. The reservation is reconciled by the
// matching Enqueue, so the size reported to the caller stays accurate in
// the window before the task physically enters the queue.
func (m *Manager) TentativeEnqueue() int {
	return m.worker.tentativeEnqueue()
}

// Enqueue places the task into the queue, taking the place of any
// tentative reservation.
func (m *Manager) Enqueue(task domain.Task) {
	m.worker.push(task)
}
