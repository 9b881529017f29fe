package cascade

import (
	"log"
	"time"
)

// ProgressFunc receives a monotonically increasing count of processed
// tiles out of a precomputed total. It is advisory only: callers drive
// progress bars with it, correctness never depends on it.
type ProgressFunc func(done, total int64)

// LogProgress returns a ProgressFunc that writes rate-limited progress
// lines with the standard logger. At most one line per interval, plus the
// final line, so piped logs stay greppable instead of filling with
// near-identical updates.
func LogProgress(interval time.Duration) ProgressFunc {
	var last time.Time
	return func(done, total int64) {
		now := time.Now()
		if done < total && now.Sub(last) < interval {
			return
		}
		last = now
		pct := float64(0)
		if total > 0 {
			pct = 100 * float64(done) / float64(total)
		}
		log.Printf("[cascade] %d/%d tiles (%.1f%%)", done, total, pct)
	}
}
