package metrics

import (
	"sync/atomic"
	"time"
)

// Snapshot captures current in-memory counters.
type Snapshot struct {
	ExpensesCreated       uint64
	ExpensesUpdated       uint64
	ExpensesDeleted       uint64
	UpdateMisses          uint64
	DeleteMisses          uint64
	ReportCacheHits       uint64
	ReportCacheMisses     uint64
	ReportDurationCount   uint64
	ReportDurationTotalNs int64
}

// InMemoryRecorder stores metrics in memory for tests and /metrics.
type InMemoryRecorder struct {
	expensesCreated       uint64
	expensesUpdated       uint64
	expensesDeleted       uint64
	updateMisses          uint64
	deleteMisses          uint64
	reportCacheHits       uint64
	reportCacheMisses     uint64
	reportDurationCount   uint64
	reportDurationTotalNs int64
}

// NewInMemory returns a Recorder that stores counters in memory.
func NewInMemory() *InMemoryRecorder {
	return &InMemoryRecorder{}
}

// Snapshot returns a copy of the counters.
func (m *InMemoryRecorder) Snapshot() Snapshot {
	return Snapshot{
		ExpensesCreated:       atomic.LoadUint64(&m.expensesCreated),
		ExpensesUpdated:       atomic.LoadUint64(&m.expensesUpdated),
		ExpensesDeleted:       atomic.LoadUint64(&m.expensesDeleted),
		UpdateMisses:          atomic.LoadUint64(&m.updateMisses),
		DeleteMisses:          atomic.LoadUint64(&m.deleteMisses),
		ReportCacheHits:       atomic.LoadUint64(&m.reportCacheHits),
		ReportCacheMisses:     atomic.LoadUint64(&m.reportCacheMisses),
		ReportDurationCount:   atomic.LoadUint64(&m.reportDurationCount),
		ReportDurationTotalNs: atomic.LoadInt64(&m.reportDurationTotalNs),
	}
}

// IncExpenseCreated increments the created counter.
func (m *InMemoryRecorder) IncExpenseCreated() {
	atomic.AddUint64(&m.expensesCreated, 1)
}

// IncExpenseUpdated increments the updated counter.
func (m *InMemoryRecorder) IncExpenseUpdated() {
	atomic.AddUint64(&m.expensesUpdated, 1)
}

// IncExpenseDeleted increments the deleted counter.
func (m *InMemoryRecorder) IncExpenseDeleted() {
	atomic.AddUint64(&m.expensesDeleted, 1)
}

// IncExpenseMiss counts an update or delete that matched no record.
func (m *InMemoryRecorder) IncExpenseMiss(op string) {
	switch op {
	case "update":
		atomic.AddUint64(&m.updateMisses, 1)
	case "delete":
		atomic.AddUint64(&m.deleteMisses, 1)
	}
}

// IncReportCacheHit increments cache hit counter.
func (m *InMemoryRecorder) IncReportCacheHit() {
	atomic.AddUint64(&m.reportCacheHits, 1)
}

// IncReportCacheMiss increments cache miss counter.
func (m *InMemoryRecorder) IncReportCacheMiss() {
	atomic.AddUint64(&m.reportCacheMisses, 1)
}

// ObserveReportDuration records report duration.
func (m *InMemoryRecorder) ObserveReportDuration(duration time.Duration) {
	atomic.AddUint64(&m.reportDurationCount, 1)
	atomic.AddInt64(&m.reportDurationTotalNs, duration.Nanoseconds())
}
