// Package dispatcher drives a dispatch run: it negotiates a data order
// between a source builder and a writer, builds and prepares one source per
// partition, allocates the destination once, splits it into disjoint row
// ranges and fills every range from its source on its own goroutine.
package dispatcher

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ajitpratap0/tabflow/pkg/errors"
	"github.com/ajitpratap0/tabflow/pkg/logger"
	"github.com/ajitpratap0/tabflow/pkg/metrics"
	"github.com/ajitpratap0/tabflow/pkg/observability"
	"github.com/ajitpratap0/tabflow/pkg/source"
	"github.com/ajitpratap0/tabflow/pkg/types"
	"github.com/ajitpratap0/tabflow/pkg/writer"
)

// cancelCheckRows is how many rows a worker writes between context checks.
const cancelCheckRows = 1024

// Dispatcher moves the partitions named by queries from the sources of a
// builder into a writer.
type Dispatcher[W writer.Writer] struct {
	builder source.SourceBuilder
	writer  W
	queries []string
	schema  []types.DataType
	opts    options
	logger  *zap.Logger
}

// New creates a dispatcher. queries holds one partition identifier per
// partition, in destination order.
func New[W writer.Writer](b source.SourceBuilder, w W, queries []string, schema []types.DataType, opts ...Option) *Dispatcher[W] {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = logger.Component("dispatcher")
	}
	if o.runID == "" {
		o.runID = uuid.NewString()
	}
	return &Dispatcher[W]{
		builder: b,
		writer:  w,
		queries: queries,
		schema:  schema,
		opts:    o,
		logger:  o.logger.With(zap.String("run_id", o.runID)),
	}
}

// Run fills the writer, checking the first cell of every column in every
// partition and writing the rest raw. On failure the zero W is returned with
// the first error; rows already written stay in the writer's buffer.
func (d *Dispatcher[W]) Run(ctx context.Context) (W, error) {
	return d.run(ctx, false)
}

// RunChecked is Run with every cell checked against the schema.
func (d *Dispatcher[W]) RunChecked(ctx context.Context) (W, error) {
	return d.run(ctx, true)
}

func (d *Dispatcher[W]) run(ctx context.Context, checkAll bool) (_ W, err error) {
	var zero W
	start := time.Now()
	orderLabel := "none"

	ctx = context.WithValue(ctx, logger.RunIDKey, d.opts.runID)
	ctx, span := observability.StartSpan(ctx, "dispatch.run")
	span.SetAttribute("run_id", d.opts.runID)
	span.SetAttribute("partitions", len(d.queries))
	span.SetAttribute("columns", len(d.schema))
	span.SetAttribute("checked", checkAll)

	defer func() {
		status := metrics.StatusSuccess
		if err != nil {
			status = metrics.StatusFailure
			d.logger.Error("dispatch failed", zap.String("order", orderLabel), zap.Error(err))
		}
		metrics.DispatchRuns.WithLabelValues(orderLabel, status).Inc()
		span.RecordError(err)
		span.End()
	}()

	order, err := types.NegotiateOrder(d.builder.DataOrders(), d.writer.DataOrders())
	if err != nil {
		return zero, err
	}
	orderLabel = order.String()
	span.SetAttribute("order", orderLabel)
	if err := d.builder.SetDataOrder(order); err != nil {
		return zero, errors.Wrap(err, errors.ErrorTypeDataOrder, "source builder rejected negotiated order").
			WithDetail("order", orderLabel)
	}
	d.logger.Debug("negotiated data order", zap.String("order", orderLabel))

	sources, err := d.buildSources(ctx)
	if err != nil {
		return zero, err
	}

	counts, err := d.partitionCounts(sources)
	if err != nil {
		return zero, err
	}
	total := 0
	for _, c := range counts {
		total += c
	}

	if err := d.writer.Allocate(total, d.schema); err != nil {
		return zero, errors.Wrap(err, errors.ErrorTypeInternal, "failed to allocate destination").
			WithDetail("rows", total).
			WithDetail("cols", len(d.schema))
	}
	metrics.AllocatedCells.Set(float64(total * len(d.schema)))
	d.logger.Debug("allocated destination",
		zap.Int("rows", total),
		zap.Int("cols", len(d.schema)),
		zap.Ints("partition_rows", counts))

	views, err := d.partition(counts)
	if err != nil {
		return zero, err
	}

	g, gctx := errgroup.WithContext(ctx)
	if d.opts.maxWorkers > 0 {
		g.SetLimit(d.opts.maxWorkers)
	}
	for i := range sources {
		g.Go(func() error {
			return d.writePartition(gctx, i, order, sources[i], views[i], checkAll)
		})
	}
	if err := g.Wait(); err != nil {
		return zero, err
	}

	d.logger.Info("dispatch completed",
		zap.String("order", orderLabel),
		zap.Int("partitions", len(sources)),
		zap.Int("rows", total),
		zap.Int("cols", len(d.schema)),
		zap.Bool("checked", checkAll),
		zap.Duration("duration", time.Since(start)))
	return d.writer, nil
}

// buildSources calls Build once per partition in order, then prepares every
// source concurrently.
func (d *Dispatcher[W]) buildSources(ctx context.Context) ([]source.Source, error) {
	sources := make([]source.Source, len(d.queries))
	for i := range d.queries {
		src, err := d.builder.Build()
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeProducer, fmt.Sprintf("failed to build source for partition %d", i)).
				WithDetail("partition", i)
		}
		sources[i] = src
	}

	g, gctx := errgroup.WithContext(ctx)
	if d.opts.maxWorkers > 0 {
		g.SetLimit(d.opts.maxWorkers)
	}
	for i, src := range sources {
		g.Go(func() error {
			if err := src.Prepare(gctx, d.queries[i]); err != nil {
				return errors.Wrap(err, errors.ErrorTypeProducer, fmt.Sprintf("failed to prepare partition %d", i)).
					WithDetail("partition", i)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return sources, nil
}

// partitionCounts reads every source's row count and compares it with the
// declared counts, if any.
func (d *Dispatcher[W]) partitionCounts(sources []source.Source) ([]int, error) {
	if d.opts.counts != nil && len(d.opts.counts) != len(sources) {
		return nil, errors.New(errors.ErrorTypePartition,
			fmt.Sprintf("%d partition counts declared for %d partitions", len(d.opts.counts), len(sources))).
			WithDetail("expected", len(d.opts.counts)).
			WithDetail("actual", len(sources))
	}

	counts := make([]int, len(sources))
	for i, src := range sources {
		n := src.NRows()
		if n < 0 {
			return nil, errors.New(errors.ErrorTypePartition, fmt.Sprintf("partition %d reports negative row count %d", i, n)).
				WithDetail("partition", i).
				WithDetail("actual", n)
		}
		if d.opts.counts != nil && d.opts.counts[i] != n {
			return nil, errors.New(errors.ErrorTypePartition,
				fmt.Sprintf("partition %d declared %d rows, source has %d", i, d.opts.counts[i], n)).
				WithDetail("partition", i).
				WithDetail("expected", d.opts.counts[i]).
				WithDetail("actual", n)
		}
		counts[i] = n
	}
	return counts, nil
}

// partition splits the allocated writer and checks every view's shape.
func (d *Dispatcher[W]) partition(counts []int) ([]writer.PartitionWriter, error) {
	views, err := d.writer.PartitionWriters(counts)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypePartition, "failed to partition destination")
	}
	if len(views) != len(counts) {
		return nil, errors.New(errors.ErrorTypePartition,
			fmt.Sprintf("writer returned %d partitions, expected %d", len(views), len(counts))).
			WithDetail("expected", len(counts)).
			WithDetail("actual", len(views))
	}
	for i, v := range views {
		if v.NRows() != counts[i] {
			return nil, errors.New(errors.ErrorTypePartition,
				fmt.Sprintf("partition %d view has %d rows, source has %d", i, v.NRows(), counts[i])).
				WithDetail("partition", i).
				WithDetail("expected", counts[i]).
				WithDetail("actual", v.NRows())
		}
		if v.NCols() != len(d.schema) {
			return nil, errors.New(errors.ErrorTypePartition,
				fmt.Sprintf("partition %d view has %d columns, schema has %d", i, v.NCols(), len(d.schema))).
				WithDetail("partition", i).
				WithDetail("expected", len(d.schema)).
				WithDetail("actual", v.NCols())
		}
	}
	return views, nil
}

// writePartition drains src into pw in the negotiated order.
func (d *Dispatcher[W]) writePartition(ctx context.Context, p int, order types.DataOrder, src source.Source, pw writer.PartitionWriter, checkAll bool) (err error) {
	ctx = context.WithValue(ctx, logger.PartitionKey, p)
	ctx, span := observability.StartSpan(ctx, "dispatch.partition")
	span.SetAttribute("partition", p)
	span.SetAttribute("rows", pw.NRows())

	metrics.ActivePartitions.Inc()
	timer := metrics.NewTimer("partition")
	defer func() {
		metrics.ActivePartitions.Dec()
		if e, ok := err.(*errors.Error); ok {
			e.WithDetail("partition", p)
		}
		span.RecordError(err)
		span.End()
	}()

	cells, err := d.cellFuncs(src)
	if err != nil {
		return err
	}

	nrows, ncols := pw.NRows(), len(d.schema)
	if order == types.ColumnMajor {
		for col := 0; col < ncols; col++ {
			cell := cells[col]
			for row := 0; row < nrows; row++ {
				if row%cancelCheckRows == 0 {
					if err := ctx.Err(); err != nil {
						return cancelled(err, row, col)
					}
				}
				if err := cell(src, pw, row, col, checkAll || row == 0); err != nil {
					return err
				}
			}
		}
	} else {
		for row := 0; row < nrows; row++ {
			if row%cancelCheckRows == 0 {
				if err := ctx.Err(); err != nil {
					return cancelled(err, row, 0)
				}
			}
			checked := checkAll || row == 0
			for col := 0; col < ncols; col++ {
				if err := cells[col](src, pw, row, col, checked); err != nil {
					return err
				}
			}
		}
	}

	elapsed := timer.Stop()
	metrics.CellsWritten.WithLabelValues(order.String()).Add(float64(nrows * ncols))
	metrics.PartitionDuration.WithLabelValues(order.String()).Observe(elapsed.Seconds())
	d.logger.Debug("partition written",
		zap.Int("partition", p),
		zap.Int("rows", nrows),
		zap.Duration("duration", elapsed))
	return nil
}

// cellFuncs resolves the transfer for every column once. Sources that report
// their produced types are asked for exactly those; others for the schema's.
func (d *Dispatcher[W]) cellFuncs(src source.Source) ([]cellFunc, error) {
	produced := d.schema
	if tr, ok := src.(source.TypeReporter); ok {
		produced = tr.ProducedTypes()
		if len(produced) != len(d.schema) {
			return nil, errors.New(errors.ErrorTypeValidation,
				fmt.Sprintf("source reports %d column types, schema has %d", len(produced), len(d.schema))).
				WithDetail("expected", len(d.schema)).
				WithDetail("actual", len(produced))
		}
	}

	cells := make([]cellFunc, len(produced))
	for col, t := range produced {
		if !t.Valid() {
			return nil, errors.New(errors.ErrorTypeValidation, fmt.Sprintf("column %d has unknown type %s", col, t)).
				WithDetail("col", col)
		}
		cells[col] = transfers[t]
	}
	return cells, nil
}

func cancelled(err error, row, col int) error {
	if stderrors.Is(err, context.DeadlineExceeded) {
		return errors.Wrap(err, errors.ErrorTypeTimeout, "dispatch deadline exceeded").
			WithDetail("row", row).
			WithDetail("col", col)
	}
	return errors.Wrap(err, errors.ErrorTypeInternal, "dispatch cancelled").
		WithDetail("row", row).
		WithDetail("col", col)
}
