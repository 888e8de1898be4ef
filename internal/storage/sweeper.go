package storage

import (
	"context"
	"sync"
	"time"

	"github.com/alignecoderepos/heron/internal/logging"
)

// Sweeper periodically deletes expired entries from a Store. It only ever
// scans and deletes; reads and writes go through the Store itself.
type Sweeper struct {
	store    *Store
	interval time.Duration

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func newSweeper(store *Store, interval time.Duration) *Sweeper {
	ctx, cancel := context.WithCancel(context.Background())
	return &Sweeper{
		store:    store,
		interval: interval,
		ctx:      ctx,
		cancel:   cancel,
	}
}

func (sw *Sweeper) start() {
	sw.wg.Add(1)
	go sw.run()
}

// stop ends the sweep loop and waits for it to exit.
func (sw *Sweeper) stop() {
	sw.cancel()
	sw.wg.Wait()
}

func (sw *Sweeper) run() {
	defer sw.wg.Done()

	logging.Debugf("Expired entry sweeper started with interval %v", sw.interval)

	ticker := time.NewTicker(sw.interval)
	defer ticker.Stop()

	for {
		select {
		case <-sw.ctx.Done():
			logging.Debugf("Expired entry sweeper stopped")
			return
		case <-ticker.C:
			sw.Sweep()
		}
	}
}

// Sweep runs one pass over the store and returns the number of entries removed.
func (sw *Sweeper) Sweep() int {
	removed := sw.store.deleteExpired(sw.store.nowMs())
	sw.store.stats.sweeps.Add(1)
	if removed > 0 {
		sw.store.stats.expiredSwept.Add(uint64(removed))
		logging.Debugf("Removed %d expired entries", removed)
	}
	return removed
}
