package graph

import (
	"log/slog"
	"sync"
	"time"
)

// QueryMonitor times graph operations against their transaction timeout and
// keeps per-operation statistics
type QueryMonitor struct {
	logger       *slog.Logger
	warningRatio float64 // warn when a call uses this share of its timeout

	mu    sync.Mutex
	stats map[string]*QueryStats
}

// QueryStats aggregates executions of one operation
type QueryStats struct {
	Operation   string        `json:"operation"`
	Executions  int           `json:"executions"`
	Failures    int           `json:"failures"`
	SlowCount   int           `json:"slow_count"`
	AverageTime time.Duration `json:"average_time"`
	MaxTime     time.Duration `json:"max_time"`
}

// NewQueryMonitor creates a monitor warning at 80% of the timeout
func NewQueryMonitor() *QueryMonitor {
	return &QueryMonitor{
		logger:       slog.Default().With("component", "query_monitor"),
		warningRatio: 0.8,
		stats:        make(map[string]*QueryStats),
	}
}

// Observe runs fn, logs its outcome relative to timeout and records it.
// fn's error is returned unchanged.
func (qm *QueryMonitor) Observe(operation string, timeout time.Duration, fn func() error) error {
	start := time.Now()
	err := fn()
	duration := time.Since(start)

	slow := timeout > 0 && duration >= time.Duration(float64(timeout)*qm.warningRatio)
	switch {
	case err != nil:
		qm.logger.Warn("graph operation failed",
			"operation", operation,
			"duration_ms", duration.Milliseconds(),
			"error", err)
	case slow:
		qm.logger.Warn("graph operation approaching timeout",
			"operation", operation,
			"duration_ms", duration.Milliseconds(),
			"timeout_ms", timeout.Milliseconds(),
			"percent_used", duration.Seconds()/timeout.Seconds()*100)
	default:
		qm.logger.Debug("graph operation completed",
			"operation", operation,
			"duration_ms", duration.Milliseconds())
	}

	qm.record(operation, duration, err != nil, slow)
	return err
}

func (qm *QueryMonitor) record(operation string, duration time.Duration, failed, slow bool) {
	qm.mu.Lock()
	defer qm.mu.Unlock()

	s := qm.stats[operation]
	if s == nil {
		s = &QueryStats{Operation: operation}
		qm.stats[operation] = s
	}
	total := s.AverageTime * time.Duration(s.Executions)
	s.Executions++
	s.AverageTime = (total + duration) / time.Duration(s.Executions)
	if duration > s.MaxTime {
		s.MaxTime = duration
	}
	if failed {
		s.Failures++
	}
	if slow {
		s.SlowCount++
	}
}

// Stats returns a snapshot of the statistics for operation, nil if never seen
func (qm *QueryMonitor) Stats(operation string) *QueryStats {
	qm.mu.Lock()
	defer qm.mu.Unlock()

	s, ok := qm.stats[operation]
	if !ok {
		return nil
	}
	snapshot := *s
	return &snapshot
}

// LogSummary logs one line per observed operation
func (qm *QueryMonitor) LogSummary() {
	qm.mu.Lock()
	defer qm.mu.Unlock()

	for _, s := range qm.stats {
		qm.logger.Info("graph operation stats",
			"operation", s.Operation,
			"executions", s.Executions,
			"failures", s.Failures,
			"slow", s.SlowCount,
			"avg_ms", s.AverageTime.Milliseconds(),
			"max_ms", s.MaxTime.Milliseconds())
	}
}
