package corpus

import (
	"time"

	"golang.org/x/time/rate"
)

// ProgressFunc receives load progress. Total is zero when unknown.
type ProgressFunc func(done, total int)

// ThrottleProgress rate-limits a progress callback to at most one call
// per interval. The first call always passes through, so short loads
// still report. The returned func is safe for concurrent use.
func ThrottleProgress(fn ProgressFunc, interval time.Duration) ProgressFunc {
	limiter := rate.Sometimes{First: 1, Interval: interval}

	return func(done, total int) {
		limiter.Do(func() {
			fn(done, total)
		})
	}
}
