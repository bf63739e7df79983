// Package metrics exposes Prometheus collectors for dispatch runs.
//
// The collectors are registered with the default registry on package
// initialisation, so serving promhttp.Handler() is enough to export them.
//
// # Basic Usage
//
//	timer := metrics.NewTimer("partition")
//	writePartition(view)
//	metrics.PartitionDuration.WithLabelValues("column_major").Observe(timer.Stop().Seconds())
//
//	tracker := metrics.NewThroughputTracker("synthetic", "arrow")
//	tracker.Increment(cells)
//	cellsPerSecond := tracker.GetAndReset()
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Run status label values.
const (
	StatusSuccess = "success"
	StatusFailure = "failure"
)

var (
	// DispatchRuns counts finished dispatcher runs.
	// Labels: order (row_major/column_major/none), status (success/failure)
	DispatchRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tabflow_dispatch_runs_total",
			Help: "Total number of dispatch runs",
		},
		[]string{"order", "status"},
	)

	// CellsWritten counts cells written by partition workers.
	CellsWritten = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tabflow_cells_written_total",
			Help: "Total number of cells written into destination buffers",
		},
		[]string{"order"},
	)

	// PartitionDuration tracks how long one partition worker runs.
	PartitionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "tabflow_partition_duration_seconds",
			Help: "Duration of one partition worker in seconds",
			Buckets: []float64{
				0.0001, // 100μs - tiny partitions
				0.001,  // 1ms
				0.01,   // 10ms
				0.1,    // 100ms
				1,      // 1s - bulk partitions
				10,
				60,
			},
		},
		[]string{"order"},
	)

	// ActivePartitions is the number of partition workers currently running.
	ActivePartitions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "tabflow_active_partitions",
			Help: "Number of partition workers currently running",
		},
	)

	// AllocatedCells is the size of the most recent destination allocation.
	AllocatedCells = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "tabflow_allocated_cells",
			Help: "Cells in the most recently allocated destination buffer",
		},
	)

	// Throughput tracks cells per second between a source and a writer.
	Throughput = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "tabflow_throughput_cells_per_second",
			Help: "Current throughput in cells per second",
		},
		[]string{"source", "writer"},
	)
)

// Timer provides a simple timing mechanism for measuring operation durations.
type Timer struct {
	start time.Time
	name  string
}

// NewTimer creates a new timer and starts timing immediately.
func NewTimer(name string) *Timer {
	return &Timer{
		start: time.Now(),
		name:  name,
	}
}

// Name returns the name the timer was created with.
func (t *Timer) Name() string {
	return t.name
}

// Stop returns the elapsed duration since creation. It may be called more
// than once.
func (t *Timer) Stop() time.Duration {
	return time.Since(t.start)
}

// ThroughputTracker tracks cells per second over time windows.
// Thread-safe for concurrent use.
type ThroughputTracker struct {
	mu        sync.Mutex
	count     int64
	lastReset time.Time
	source    string
	writer    string
}

// NewThroughputTracker creates a tracker labelled with the source and writer
// type names.
func NewThroughputTracker(source, writer string) *ThroughputTracker {
	return &ThroughputTracker{
		lastReset: time.Now(),
		source:    source,
		writer:    writer,
	}
}

// Increment adds n to the cell count. Safe for concurrent use.
func (t *ThroughputTracker) Increment(n int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.count += n
}

// GetAndReset returns cells per second since the last reset, publishes it to
// the Throughput gauge and starts a new window.
func (t *ThroughputTracker) GetAndReset() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()

	elapsed := time.Since(t.lastReset).Seconds()
	if elapsed == 0 {
		return 0
	}

	throughput := float64(t.count) / elapsed

	t.count = 0
	t.lastReset = time.Now()

	Throughput.WithLabelValues(t.source, t.writer).Set(throughput)

	return throughput
}
