package metrics

import (
	"sync"
	"sync/atomic"
)

// automationStats holds counters for rule execution outcomes. Kept
// simple/thread-safe for use from the engine and exposition.
type automationStats struct {
	total    uint64
	mu       sync.Mutex
	byStatus map[string]uint64
}

var auto automationStats

// IncAutomationOutcome increments the outcome counter for the given
// status (success, failed, skipped).
func IncAutomationOutcome(status string) {
	if status == "" {
		status = "unknown"
	}
	atomic.AddUint64(&auto.total, 1)
	auto.mu.Lock()
	if auto.byStatus == nil {
		auto.byStatus = make(map[string]uint64)
	}
	auto.byStatus[status]++
	auto.mu.Unlock()
}

// AutomationSnapshot returns a copy of the current outcome counters.
func AutomationSnapshot() (total uint64, by map[string]uint64) {
	total = atomic.LoadUint64(&auto.total)
	auto.mu.Lock()
	defer auto.mu.Unlock()
	by = make(map[string]uint64, len(auto.byStatus))
	for k, v := range auto.byStatus {
		by[k] = v
	}
	return total, by
}

var rateLimitDrops uint64

// IncRateLimitDrop counts one rejected request (HTTP 429).
func IncRateLimitDrop() {
	atomic.AddUint64(&rateLimitDrops, 1)
}

// RateLimitDrops returns the number of rejected requests.
func RateLimitDrops() uint64 {
	return atomic.LoadUint64(&rateLimitDrops)
}
