package cachestore

import (
	"os"
	"sync"
	"time"

	"github.com/easyhttp-go/easyhttp/log"
)

// Evictor runs a periodic background sweep that keeps the store within
// maxSize bytes of committed payload and drops entries older than expire,
// the actual caller EnumerateLRU was documented against but never had
// until now.
type Evictor struct {
	store    *Store
	cacheDir string
	maxSize  int64
	expire   time.Duration
	interval time.Duration

	stopCh chan struct{}
	wg     sync.WaitGroup
}

// NewEvictor starts a background sweep over store, deleting the
// least-recently-accessed records (and their payload files) until the
// total committed payload size is at or under maxSize, and dropping any
// record not accessed within expire. A zero maxSize or expire disables
// that half of the check; both zero means nothing is ever evicted.
func NewEvictor(store *Store, cacheDir string, maxSize int64, expire time.Duration) *Evictor {
	e := &Evictor{
		store:    store,
		cacheDir: cacheDir,
		maxSize:  maxSize,
		expire:   expire,
		interval: sweepInterval(expire),
		stopCh:   make(chan struct{}),
	}
	e.wg.Add(1)
	go func() {
		log.Debugf("cachestore: evictor start (maxSize=%d expire=%s interval=%s)", maxSize, expire, e.interval)
		e.run()
		e.wg.Done()
		log.Debugf("cachestore: evictor stop")
	}()
	return e
}

// sweepInterval ties the sweep cadence to expire when one is configured,
// clamped to a sane range so a very short expire doesn't turn the sweep
// into a hot-path poll and a very long one doesn't leave the store
// over budget for hours.
func sweepInterval(expire time.Duration) time.Duration {
	d := expire / 2
	if d < time.Second {
		d = time.Second
	}
	if d > 5*time.Minute {
		d = 5 * time.Minute
	}
	return d
}

func (e *Evictor) run() {
	for {
		if err := e.store.evictOnce(e.cacheDir, e.maxSize, e.expire); err != nil {
			log.Debugf("cachestore: eviction sweep failed: %v", err)
		}
		select {
		case <-time.After(e.interval):
		case <-e.stopCh:
			return
		}
	}
}

// Close stops the sweep goroutine and waits for the in-flight sweep, if
// any, to finish.
func (e *Evictor) Close() error {
	close(e.stopCh)
	e.wg.Wait()
	return nil
}

// evictOnce runs a single sweep: it walks EnumerateLRU's ascending-age
// order (oldest first) and keeps deleting while the next record is either
// stale or the running total is still over maxSize. Since records are
// visited oldest-first, the moment one record is neither stale nor
// needed to get back under budget, every later (newer) record qualifies
// even less, so the sweep stops there.
func (s *Store) evictOnce(cacheDir string, maxSize int64, expire time.Duration) error {
	records, err := s.EnumerateLRU()
	if err != nil {
		return err
	}

	var total int64
	for _, rec := range records {
		total += rec.PayloadSize
	}

	now := time.Now().Unix()
	for _, rec := range records {
		stale := expire > 0 && now-rec.LastAccessedAtEpoch > int64(expire.Seconds())
		overBudget := maxSize > 0 && total > maxSize
		if !stale && !overBudget {
			break
		}
		if err := s.Delete(rec.Key); err != nil {
			log.Debugf("cachestore: eviction delete failed for %s: %v", rec.Key, err)
			continue
		}
		if err := os.Remove(PayloadPath(cacheDir, rec.Key)); err != nil && !os.IsNotExist(err) {
			log.Debugf("cachestore: eviction payload remove failed for %s: %v", rec.Key, err)
		}
		total -= rec.PayloadSize
	}
	return nil
}
