package tier

import (
	"fmt"
	"sync"
	"time"
)

// Quota enforces per-caller daily submission limits in memory.
// Counters reset at the calendar-day boundary (UTC). State is lost on
// restart, which matches the soft nature of the limit.
type Quota struct {
	mu     sync.Mutex
	counts map[string]int
	day    string // yyyy-mm-dd of the counters currently held
	now    func() time.Time
}

// NewQuota creates an empty quota tracker.
func NewQuota() *Quota {
	return &Quota{
		counts: make(map[string]int),
		now:    time.Now,
	}
}

// Reserve consumes one submission slot for caller under the given
// catalog. Fails with a wrapped ErrValidation when the daily limit is
// already exhausted.
func (q *Quota) Reserve(caller string, catalog Catalog) error {
	if catalog.DailyLimit <= 0 {
		return nil
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	today := q.now().UTC().Format("2006-01-02")
	if q.day != today {
		q.day = today
		q.counts = make(map[string]int)
	}

	key := catalog.Name + "/" + caller
	if q.counts[key] >= catalog.DailyLimit {
		return fmt.Errorf("%w: daily limit of %d reached for tier %q", ErrValidation, catalog.DailyLimit, catalog.Name)
	}
	q.counts[key]++
	return nil
}

// Remaining reports how many submissions caller has left today, or -1
// when the tier is unlimited.
func (q *Quota) Remaining(caller string, catalog Catalog) int {
	if catalog.DailyLimit <= 0 {
		return -1
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	today := q.now().UTC().Format("2006-01-02")
	if q.day != today {
		return catalog.DailyLimit
	}
	left := catalog.DailyLimit - q.counts[catalog.Name+"/"+caller]
	if left < 0 {
		left = 0
	}
	return left
}
