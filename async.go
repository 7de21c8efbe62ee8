package easyhttp

import (
	"context"
	"sync"

	"github.com/JekaMas/workerpool"
)

// asyncCorePoolSize and asyncMaxPoolSize are the documented defaults
// JekaMas/workerpool grows its worker count lazily up to the size
// passed to New, which already gives the "small steady-state core,
// bursts up to a ceiling" behavior these two constants describe; core is
// kept as a separate constant for documentation purposes even though the
// underlying pool is sized at max.
const (
	asyncCorePoolSize = 2
	asyncMaxPoolSize  = 5
)

// asyncExecutionTask is one unit of async work submitted to the
// executorService.
type asyncExecutionTask struct {
	call     *call
	exec     *executor
	callback ResponseCallback
}

func (t asyncExecutionTask) run() {
	defer asyncQueue.WithLabelValues().Dec()
	if t.call.IsCancelled() {
		t.callback.OnFailure(ExecutionError("cancelled"))
		return
	}
	resp, err := t.exec.execute(context.Background())
	if err != nil {
		t.callback.OnFailure(err)
		return
	}
	t.callback.OnResponse(resp)
}

// executorService wraps a bounded worker pool for running
// asyncExecutionTasks off the caller's goroutine.
type executorService struct {
	pool *workerpool.WorkerPool

	mu      sync.Mutex
	stopped bool
}

func newExecutorService() *executorService {
	return &executorService{pool: workerpool.New(asyncMaxPoolSize)}
}

func (s *executorService) submit(task asyncExecutionTask) {
	s.mu.Lock()
	stopped := s.stopped
	s.mu.Unlock()
	if stopped {
		task.callback.OnFailure(IllegalStateError("executor service is stopped"))
		return
	}
	asyncQueue.WithLabelValues().Inc()
	s.pool.Submit(task.run)
}

// stop waits for queued and in-flight tasks to finish, then shuts the
// pool down. Mirrors the wg.Wait()-based shutdown idiom used for
// background goroutines elsewhere in this codebase (see
// internal/coalesce's cleaner).
func (s *executorService) stop() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	s.mu.Unlock()
	s.pool.StopWait()
}
