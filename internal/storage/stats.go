package storage

import (
	"strconv"
	"sync/atomic"
	"time"
)

// Stats holds runtime statistics
type Stats struct {
	puts         atomic.Uint64
	gets         atomic.Uint64
	hits         atomic.Uint64
	misses       atomic.Uint64
	removes      atomic.Uint64
	clears       atomic.Uint64
	expiredSwept atomic.Uint64
	sweeps       atomic.Uint64

	startTime time.Time
}

func (st *Stats) snapshot(now time.Time, keys int) map[string]string {
	return map[string]string{
		"uptime_ms":     strconv.FormatInt(now.Sub(st.startTime).Milliseconds(), 10),
		"keys":          strconv.Itoa(keys),
		"cmd_put":       strconv.FormatUint(st.puts.Load(), 10),
		"cmd_get":       strconv.FormatUint(st.gets.Load(), 10),
		"get_hits":      strconv.FormatUint(st.hits.Load(), 10),
		"get_misses":    strconv.FormatUint(st.misses.Load(), 10),
		"cmd_remove":    strconv.FormatUint(st.removes.Load(), 10),
		"cmd_clear":     strconv.FormatUint(st.clears.Load(), 10),
		"expired_total": strconv.FormatUint(st.expiredSwept.Load(), 10),
		"sweeps":        strconv.FormatUint(st.sweeps.Load(), 10),
	}
}
