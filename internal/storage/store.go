package storage

import (
	"sync"
	"time"

	"github.com/puzpuzpuz/xsync/v3"
	"github.com/samber/lo"

	"github.com/alignecoderepos/heron/internal/config"
	"github.com/alignecoderepos/heron/internal/protocol"
)

// Store is the in-memory key-value store. All methods are safe for
// concurrent use; per-key atomicity comes from the underlying map, there is
// no store-wide lock.
type Store struct {
	data    *xsync.MapOf[string, *Entry]
	now     func() time.Time
	stats   Stats
	sweeper *Sweeper

	closeOnce sync.Once
}

// New creates a new Store and starts its expired-entry sweeper.
func New(cfg *config.Config) *Store {
	return NewWithInterval(cfg.SweepInterval())
}

// NewWithInterval creates a Store whose sweeper runs every interval.
func NewWithInterval(interval time.Duration) *Store {
	return newStore(interval, time.Now)
}

func newStore(interval time.Duration, now func() time.Time) *Store {
	s := &Store{
		data: xsync.NewMapOf[string, *Entry](),
		now:  now,
	}
	s.stats.startTime = s.now()
	s.sweeper = newSweeper(s, interval)
	s.sweeper.start()
	return s
}

// Put inserts or fully replaces the entry for key. ttlMs, when non-nil, is
// relative to now. REPLACED is reported whenever a mapping existed, even an
// expired one the sweeper has not removed yet.
func (s *Store) Put(key string, ttlMs *int64, value []byte) protocol.Status {
	s.stats.puts.Add(1)

	_, replaced := s.data.LoadAndStore(key, newEntry(key, value, ttlMs, s.now()))
	return lo.Ternary(replaced, protocol.StatusReplaced, protocol.StatusAdded)
}

// Get returns the value for key if it exists and has not expired. Expired
// entries are left for the sweeper.
func (s *Store) Get(key string) ([]byte, bool) {
	s.stats.gets.Add(1)

	entry, ok := s.data.Load(key)
	if !ok || entry.IsExpired(s.nowMs()) {
		s.stats.misses.Add(1)
		return nil, false
	}

	s.stats.hits.Add(1)
	return entry.Value, true
}

// Remove deletes key. An expired entry is deleted too but reported as
// NOT_FOUND.
func (s *Store) Remove(key string) protocol.Status {
	s.stats.removes.Add(1)

	entry, ok := s.data.LoadAndDelete(key)
	if !ok || entry.IsExpired(s.nowMs()) {
		return protocol.StatusNotFound
	}
	return protocol.StatusRemoved
}

// Clear drops every entry.
func (s *Store) Clear() protocol.Status {
	s.stats.clears.Add(1)
	s.data.Clear()
	return protocol.StatusCleared
}

// Len returns the number of physically stored entries, expired ones included.
func (s *Store) Len() int {
	return s.data.Size()
}

// Stats returns a snapshot of the store counters.
func (s *Store) Stats() map[string]string {
	return s.stats.snapshot(s.now(), s.Len())
}

// Close stops the sweeper. It is safe to call more than once.
func (s *Store) Close() error {
	s.closeOnce.Do(s.sweeper.stop)
	return nil
}

// deleteExpired removes every entry expired at nowMs and returns how many
// were removed. An entry replaced between the scan and the delete is kept.
func (s *Store) deleteExpired(nowMs int64) int {
	removed := 0
	s.data.Range(func(key string, entry *Entry) bool {
		if !entry.IsExpired(nowMs) {
			return true
		}
		s.data.Compute(key, func(current *Entry, loaded bool) (*Entry, bool) {
			if loaded && current.IsExpired(nowMs) {
				removed++
				return current, true
			}
			return current, !loaded
		})
		return true
	})
	return removed
}

func (s *Store) nowMs() int64 {
	return s.now().UnixMilli()
}
