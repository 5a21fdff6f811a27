package metrics

import "time"

// NoopRecorder implements Recorder with no-op methods.
type NoopRecorder struct{}

// NewNoop returns a Recorder that discards all metrics.
func NewNoop() Recorder {
	return &NoopRecorder{}
}

// IncExpenseCreated is a no-op.
func (n *NoopRecorder) IncExpenseCreated() {}

// IncExpenseUpdated is a no-op.
func (n *NoopRecorder) IncExpenseUpdated() {}

// IncExpenseDeleted is a no-op.
func (n *NoopRecorder) IncExpenseDeleted() {}

// IncExpenseMiss is a no-op.
func (n *NoopRecorder) IncExpenseMiss(op string) {}

// IncReportCacheHit is a no-op.
func (n *NoopRecorder) IncReportCacheHit() {}

// IncReportCacheMiss is a no-op.
func (n *NoopRecorder) IncReportCacheMiss() {}

// ObserveReportDuration is a no-op.
func (n *NoopRecorder) ObserveReportDuration(duration time.Duration) {}
