package quota

import (
	"fmt"
	"sync"

	"leadscout/pkg/logger"
)

// Operation names a remote read whose cost is charged against the daily budget
type Operation string

const (
	OpSearch        Operation = "search.list"
	OpChannels      Operation = "channels.list"
	OpPlaylistItems Operation = "playlistItems.list"
	OpVideos        Operation = "videos.list"
)

// YouTube Data API v3 defaults
const (
	DefaultDailyLimit    = 10_000
	DefaultSafetyMargin  = 500
	defaultOperationCost = 1
)

// DefaultCosts returns the published per-call quota weights
func DefaultCosts() map[Operation]int {
	return map[Operation]int{
		OpSearch:        100,
		OpChannels:      1,
		OpPlaylistItems: 1,
		OpVideos:        1,
	}
}

// Ledger is local bookkeeping of quota consumed during one process lifetime.
// It is advisory: the platform keeps the authoritative counter.
type Ledger struct {
	mu    sync.Mutex
	limit int
	used  int
	costs map[Operation]int
	log   *logger.Logger
}

// NewLedger creates a ledger whose budget is dailyLimit minus safetyMargin.
// A nil costs map selects DefaultCosts.
func NewLedger(dailyLimit, safetyMargin int, costs map[Operation]int) *Ledger {
	limit := dailyLimit - safetyMargin
	if limit < 0 {
		limit = 0
	}
	if costs == nil {
		costs = DefaultCosts()
	}
	table := make(map[Operation]int, len(costs))
	for op, c := range costs {
		table[op] = c
	}
	return &Ledger{
		limit: limit,
		costs: table,
		log:   logger.GetLogger().WithField("component", "quota_ledger"),
	}
}

// Cost returns the weight of one call of op times multiplier
func (l *Ledger) Cost(op Operation, multiplier int) int {
	if multiplier < 1 {
		multiplier = 1
	}
	c, ok := l.costs[op]
	if !ok {
		c = defaultOperationCost
	}
	return c * multiplier
}

// Remaining returns the unspent budget, never negative
func (l *Ledger) Remaining() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.used >= l.limit {
		return 0
	}
	return l.limit - l.used
}

// CanAfford reports whether charging op would stay within the budget
func (l *Ledger) CanAfford(op Operation, multiplier int) bool {
	cost := l.Cost(op, multiplier)
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.used+cost <= l.limit
}

// Consume charges op unconditionally. There is no refund: call it once per
// successful remote call.
func (l *Ledger) Consume(op Operation, multiplier int) {
	cost := l.Cost(op, multiplier)
	l.mu.Lock()
	l.used += cost
	used, limit := l.used, l.limit
	l.mu.Unlock()

	l.log.WithFields(map[string]interface{}{
		"operation": string(op),
		"cost":      cost,
		"used":      used,
		"limit":     limit,
	}).Debug("Quota consumed")
}

// Used returns the cumulative weighted cost charged so far
func (l *Ledger) Used() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.used
}

// Limit returns the usable budget (daily limit minus margin)
func (l *Ledger) Limit() int {
	return l.limit
}

func (l *Ledger) Summary() string {
	l.mu.Lock()
	used, limit := l.used, l.limit
	l.mu.Unlock()
	remaining := limit - used
	if remaining < 0 {
		remaining = 0
	}
	return fmt.Sprintf("Quota used: %d / %d (%d remaining)", used, limit, remaining)
}
