package storage

import (
	"fmt"
	"time"
)

// NoExpiry marks an entry that never expires.
const NoExpiry int64 = -1

// Entry represents a key-value entry in the storage. Entries are immutable
// once stored; a PUT replaces the whole entry.
type Entry struct {
	Key      string
	Value    []byte
	ExpiryMs int64 // absolute unix millis, NoExpiry for none
}

func newEntry(key string, value []byte, ttlMs *int64, now time.Time) *Entry {
	expiryMs := NoExpiry
	if ttlMs != nil {
		expiryMs = now.UnixMilli() + *ttlMs
	}
	return &Entry{
		Key:      key,
		Value:    value,
		ExpiryMs: expiryMs,
	}
}

// IsExpired checks if the entry has expired at nowMs
func (e *Entry) IsExpired(nowMs int64) bool {
	return e.ExpiryMs != NoExpiry && e.ExpiryMs < nowMs
}

func (e *Entry) String() string {
	if e.ExpiryMs == NoExpiry {
		return fmt.Sprintf("[%s]=%d bytes", e.Key, len(e.Value))
	}
	return fmt.Sprintf("[%s]=%d bytes (%s)", e.Key, len(e.Value),
		time.UnixMilli(e.ExpiryMs).Format(time.RFC3339Nano))
}
