// evictor.go houses the idle sweep for Registry.  Every SweepInterval it
// walks the LRU from the oldest entry and drops Managers idle longer than
// IdleTTL.  Capacity pressure is handled by the LRU itself on insert.
package auth

import (
	"time"

	"github.com/yanizio/adept-admin/internal/metrics"
)

func (r *Registry) sweepLoop() {
	defer r.wg.Done()
	t := time.NewTicker(r.opts.SweepInterval)
	defer t.Stop()

	for {
		select {
		case <-r.stop:
			return
		case now := <-t.C:
			if n := r.sweep(now); n > 0 {
				r.log.Infow("auth: idle sessions evicted", "count", n)
			}
		}
	}
}

// sweep removes Managers idle since before now-IdleTTL and returns how many
// it dropped.
func (r *Registry) sweep(now time.Time) int {
	cutoff := now.Add(-r.opts.IdleTTL)

	r.mu.Lock()
	defer r.mu.Unlock()

	var stale []string
	r.entries.Range(func(id string, e *entry) bool {
		// Range runs oldest first, so the first fresh entry ends the scan.
		if e.lastSeen.After(cutoff) {
			return false
		}
		stale = append(stale, id)
		return true
	})
	for _, id := range stale {
		if e, ok := r.entries.Peek(id); ok {
			e.m.Close()
		}
		r.entries.Remove(id)
	}
	metrics.ActiveSessions.Set(float64(r.entries.Len()))
	return len(stale)
}
