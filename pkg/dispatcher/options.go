package dispatcher

import (
	"slices"

	"go.uber.org/zap"
)

// Option configures a Dispatcher.
type Option func(*options)

type options struct {
	logger     *zap.Logger
	maxWorkers int
	counts     []int
	runID      string
}

// WithLogger sets the logger. Defaults to the global logger tagged with
// component=dispatcher.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithMaxWorkers bounds the number of partitions prepared and written at the
// same time. Zero or less means one goroutine per partition.
func WithMaxWorkers(n int) Option {
	return func(o *options) {
		o.maxWorkers = n
	}
}

// WithPartitionCounts declares the expected row count of every partition.
// The run fails with a partition count mismatch if a source disagrees.
func WithPartitionCounts(counts ...int) Option {
	return func(o *options) {
		o.counts = slices.Clone(counts)
	}
}

// WithRunID sets the run identifier used in logs and spans. A random one is
// generated otherwise.
func WithRunID(id string) Option {
	return func(o *options) {
		o.runID = id
	}
}
