package coalesce

import (
	"sync"
	"time"

	"github.com/easyhttp-go/easyhttp/log"
)

type pendingEntry struct {
	deadline time.Time
}

// inMemoryRegistry is the default Registry, a direct translation of
// cache/transaction_registry_inmem.go keyed by the cache-key string
// instead of a *Key pointer (pointer identity would let two distinct Key
// values with equal content fail to coalesce).
type inMemoryRegistry struct {
	mu      sync.Mutex
	pending map[string]pendingEntry

	graceTime time.Duration
	stopCh    chan struct{}
	wg        sync.WaitGroup
}

// NewInMemory returns a Registry that cleans up stale entries in the
// background. graceTime bounds both how long a second caller waits before
// giving up and proceeding independently, and the sweep interval.
func NewInMemory(graceTime time.Duration) Registry {
	r := &inMemoryRegistry{
		pending:   make(map[string]pendingEntry),
		graceTime: graceTime,
		stopCh:    make(chan struct{}),
	}
	r.wg.Add(1)
	go func() {
		log.Debugf("coalesce: inmem cleaner start")
		r.cleaner()
		r.wg.Done()
		log.Debugf("coalesce: inmem cleaner stop")
	}()
	return r
}

func (r *inMemoryRegistry) Register(key string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.pending[key]; !exists {
		r.pending[key] = pendingEntry{deadline: time.Now().Add(r.graceTime)}
	}
	return nil
}

func (r *inMemoryRegistry) Unregister(key string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.pending, key)
	return nil
}

func (r *inMemoryRegistry) IsDone(key string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, exists := r.pending[key]
	return !exists
}

func (r *inMemoryRegistry) Close() error {
	close(r.stopCh)
	r.wg.Wait()
	return nil
}

func (r *inMemoryRegistry) cleaner() {
	d := r.graceTime
	if d < 100*time.Millisecond {
		d = 100 * time.Millisecond
	}
	if d > time.Second {
		d = time.Second
	}

	for {
		now := time.Now()
		r.mu.Lock()
		for key, pe := range r.pending {
			if now.After(pe.deadline) {
				delete(r.pending, key)
			}
		}
		r.mu.Unlock()

		select {
		case <-time.After(d):
		case <-r.stopCh:
			return
		}
	}
}
