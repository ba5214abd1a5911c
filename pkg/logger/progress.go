package logger

import (
	"fmt"
	"sync"
	"time"
)

// ProgressReporter logs "n/total" progress for a long sequential phase
type ProgressReporter struct {
	mu          sync.Mutex
	total       int
	current     int
	description string
	interval    time.Duration
	startTime   time.Time
	lastUpdate  time.Time
	now         func() time.Time
	logger      *Logger
}

// NewProgressReporter creates a reporter that logs at most once per interval
func NewProgressReporter(log *Logger, total int, description string, interval time.Duration) *ProgressReporter {
	if log == nil {
		log = GetLogger()
	}
	now := time.Now()
	return &ProgressReporter{
		total:       total,
		description: description,
		interval:    interval,
		startTime:   now,
		lastUpdate:  now,
		now:         time.Now,
		logger:      log.WithField("component", "progress"),
	}
}

// Update increments the progress counter and reports when the interval elapsed
// or the phase is complete. It returns true when a line was logged.
func (pr *ProgressReporter) Update(increment int) bool {
	pr.mu.Lock()
	defer pr.mu.Unlock()

	pr.current += increment
	now := pr.now()
	if now.Sub(pr.lastUpdate) >= pr.interval || pr.current >= pr.total {
		pr.reportProgress(now)
		pr.lastUpdate = now
		return true
	}
	return false
}

// Current returns how many items were reported so far
func (pr *ProgressReporter) Current() int {
	pr.mu.Lock()
	defer pr.mu.Unlock()
	return pr.current
}

// must be called with lock held
func (pr *ProgressReporter) reportProgress(now time.Time) {
	percentage := 0.0
	if pr.total > 0 {
		percentage = float64(pr.current) / float64(pr.total) * 100
	}
	elapsed := now.Sub(pr.startTime)

	var eta string
	if pr.current > 0 && pr.current < pr.total {
		avgTimePerItem := elapsed / time.Duration(pr.current)
		remaining := time.Duration(pr.total-pr.current) * avgTimePerItem
		eta = fmt.Sprintf(" (ETA: %s)", remaining.Round(time.Second))
	}

	pr.logger.WithFields(map[string]interface{}{
		"current": pr.current,
		"total":   pr.total,
		"elapsed": elapsed.Round(time.Second).String(),
	}).Info(fmt.Sprintf("%s: %d/%d (%.1f%%)%s", pr.description, pr.current, pr.total, percentage, eta))
}
