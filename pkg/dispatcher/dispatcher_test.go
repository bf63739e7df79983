package dispatcher

import (
	"context"
	stderrors "errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/ajitpratap0/tabflow/pkg/errors"
	"github.com/ajitpratap0/tabflow/pkg/source"
	srcmem "github.com/ajitpratap0/tabflow/pkg/source/memory"
	"github.com/ajitpratap0/tabflow/pkg/testutil"
	"github.com/ajitpratap0/tabflow/pkg/types"
	"github.com/ajitpratap0/tabflow/pkg/writer"
	"github.com/ajitpratap0/tabflow/pkg/writer/columnar"
	"github.com/ajitpratap0/tabflow/pkg/writer/memory"
)

func u64Schema(n int) []types.DataType {
	schema := make([]types.DataType, n)
	for i := range schema {
		schema[i] = types.U64
	}
	return schema
}

func seq(from, n int) []uint64 {
	out := make([]uint64, n)
	for i := range out {
		out[i] = uint64(from + i)
	}
	return out
}

func TestRunRowMajor(t *testing.T) {
	b := srcmem.NewU64Builder([][]uint64{seq(1, 6), seq(7, 4)}, 2)
	d := New(b, memory.New(), []string{"p0", "p1"}, u64Schema(2), WithLogger(testutil.TestLogger(t)))

	w, err := d.Run(context.Background())
	require.NoError(t, err)
	require.NotNil(t, w)
	assert.Equal(t, 5, w.NRows())
	assert.Equal(t, 2, w.NCols())

	for row := 0; row < 5; row++ {
		for col := 0; col < 2; col++ {
			assert.Equal(t, uint64(row*2+col+1), w.Raw(row, col), "cell (%d, %d)", row, col)
		}
	}
}

func TestRunColumnMajor(t *testing.T) {
	b := srcmem.NewU64Builder([][]uint64{seq(1, 6), seq(7, 4)}, 2, types.RowMajor, types.ColumnMajor)
	d := New(b, memory.New(), []string{"p0", "p1"}, u64Schema(2), WithLogger(testutil.TestLogger(t)))

	w, err := d.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, types.ColumnMajor, b.Order())

	assert.Equal(t, []uint64{1, 2, 3, 7, 8}, w.U64Column(0))
	assert.Equal(t, []uint64{4, 5, 6, 9, 10}, w.U64Column(1))
}

func TestRunIntoColumnarWriter(t *testing.T) {
	schema := []types.DataType{types.U64, types.OptI64, types.F64, types.OptBool, types.Str, types.OptStr}
	parts := [][][]any{
		{
			{uint64(1), int64(-1), 0.5, true, "a", "x"},
			{uint64(2), nil, 1.5, nil, "b", nil},
		},
		{
			{uint64(3), int64(3), 2.5, false, "c", "z"},
		},
	}

	for _, checked := range []bool{false, true} {
		d := New(srcmem.NewTableBuilder(schema, parts), columnar.New(columnar.WithFieldNames("id")),
			[]string{"p0", "p1"}, schema, WithLogger(testutil.TestLogger(t)))

		var (
			w   *columnar.Writer
			err error
		)
		if checked {
			w, err = d.RunChecked(context.Background())
		} else {
			w, err = d.Run(context.Background())
		}
		require.NoError(t, err)

		rec := w.Record()
		assert.Equal(t, int64(3), rec.NumRows())
		assert.Equal(t, "id", rec.Schema().Field(0).Name)
		assert.Equal(t, []uint64{1, 2, 3}, rec.Column(0).(*array.Uint64).Uint64Values())

		opt := rec.Column(1).(*array.Int64)
		assert.Equal(t, int64(-1), opt.Value(0))
		assert.True(t, opt.IsNull(1))
		assert.Equal(t, int64(3), opt.Value(2))

		strs := rec.Column(5).(*array.String)
		assert.Equal(t, "x", strs.Value(0))
		assert.True(t, strs.IsNull(1))
		assert.Equal(t, "z", strs.Value(2))
		rec.Release()
	}
}

func TestRunTypeCheckFailsAtFirstCell(t *testing.T) {
	parts := [][]types.Option[uint64]{
		{types.Some[uint64](1), types.Some[uint64](2)},
		{types.Some[uint64](3), types.None[uint64]()},
	}
	b := srcmem.NewOptU64Builder(parts, 1)
	mw := memory.New()
	d := New(b, mw, []string{"p0", "p1"}, u64Schema(1), WithLogger(testutil.TestLogger(t)))

	w, err := d.Run(context.Background())
	require.Error(t, err)
	assert.Nil(t, w)

	e, ok := errors.As(err, errors.ErrorTypeTypeCheck)
	require.True(t, ok)
	assert.Equal(t, types.U64, e.Details["expected"])
	assert.Equal(t, types.OptU64, e.Details["found"])
	assert.Equal(t, 0, e.Details["row"])
	assert.Equal(t, 0, e.Details["col"])
	assert.Contains(t, e.Details, "partition")

	// The rejected cell never reached the buffer.
	assert.Equal(t, []uint64{0, 0, 0, 0}, mw.U64Column(0))
}

func TestRunNonNullableSourceIntoNullableColumn(t *testing.T) {
	b := srcmem.NewU64Builder([][]uint64{seq(5, 2)}, 1)
	schema := []types.DataType{types.OptU64}
	w, err := New(b, memory.New(), []string{"p0"}, schema, WithLogger(testutil.TestLogger(t))).RunChecked(context.Background())
	require.NoError(t, err)
	assert.Equal(t, types.Some[uint64](5), w.Value(0, 0))
	assert.Equal(t, types.Some[uint64](6), w.Value(1, 0))
}

// spyWriter restricts the orders of a memory writer and records allocations.
type spyWriter struct {
	*memory.Writer
	orders    []types.DataOrder
	allocs    int
	dropViews bool
}

func (s *spyWriter) DataOrders() []types.DataOrder { return s.orders }

func (s *spyWriter) Allocate(nrows int, schema []types.DataType) error {
	s.allocs++
	return s.Writer.Allocate(nrows, schema)
}

func (s *spyWriter) PartitionWriters(counts []int) ([]writer.PartitionWriter, error) {
	views, err := s.Writer.PartitionWriters(counts)
	if err != nil || !s.dropViews {
		return views, err
	}
	return views[:len(views)-1], nil
}

func TestRunUnsupportedOrderAllocatesNothing(t *testing.T) {
	b := srcmem.NewU64Builder([][]uint64{seq(1, 4)}, 2, types.ColumnMajor)
	spy := &spyWriter{Writer: memory.New(), orders: []types.DataOrder{types.RowMajor}}

	w, err := New(b, spy, []string{"p0"}, u64Schema(2), WithLogger(testutil.TestLogger(t))).Run(context.Background())
	require.Error(t, err)
	assert.Nil(t, w)
	assert.True(t, errors.IsType(err, errors.ErrorTypeDataOrder))
	assert.Equal(t, 0, spy.allocs)
	assert.False(t, b.IsSet())
}

func TestRunWriterReturnsTooFewViews(t *testing.T) {
	b := srcmem.NewU64Builder([][]uint64{seq(1, 2), seq(3, 2)}, 1)
	spy := &spyWriter{Writer: memory.New(), orders: []types.DataOrder{types.RowMajor}, dropViews: true}

	_, err := New(b, spy, []string{"p0", "p1"}, u64Schema(1), WithLogger(testutil.TestLogger(t))).Run(context.Background())
	e, ok := errors.As(err, errors.ErrorTypePartition)
	require.True(t, ok)
	assert.Equal(t, 2, e.Details["expected"])
	assert.Equal(t, 1, e.Details["actual"])
	assert.Equal(t, 1, spy.allocs)
}

func TestRunProducerErrors(t *testing.T) {
	t.Run("unsupported type", func(t *testing.T) {
		b := srcmem.NewU64Builder([][]uint64{seq(1, 2)}, 1)
		schema := []types.DataType{types.Str}
		_, err := New(b, memory.New(), []string{"p0"}, schema, WithLogger(testutil.TestLogger(t))).Run(context.Background())
		require.Error(t, err)
		assert.True(t, errors.IsType(err, errors.ErrorTypeProducer))
		assert.True(t, stderrors.Is(err, types.ErrUnsupportedProduce))
	})

	t.Run("null in required column", func(t *testing.T) {
		schema := []types.DataType{types.I64}
		b := srcmem.NewTableBuilder(schema, [][][]any{{{int64(1)}, {nil}}})
		_, err := New(b, memory.New(), []string{"p0"}, schema, WithLogger(testutil.TestLogger(t))).Run(context.Background())
		e, ok := errors.As(err, errors.ErrorTypeProducer)
		require.True(t, ok)
		assert.Equal(t, 1, e.Details["row"])
		assert.Equal(t, 0, e.Details["partition"])
		assert.Contains(t, err.Error(), "NULL")
	})

	t.Run("build exhausted", func(t *testing.T) {
		b := srcmem.NewU64Builder([][]uint64{seq(1, 2)}, 1)
		_, err := New(b, memory.New(), []string{"p0", "p1"}, u64Schema(1), WithLogger(testutil.TestLogger(t))).Run(context.Background())
		e, ok := errors.As(err, errors.ErrorTypeProducer)
		require.True(t, ok)
		assert.Equal(t, 1, e.Details["partition"])
	})
}

func TestRunPartitionCountMismatch(t *testing.T) {
	parts := [][]uint64{seq(1, 3), seq(4, 2)}

	_, err := New(srcmem.NewU64Builder(parts, 1), memory.New(), []string{"p0", "p1"}, u64Schema(1),
		WithLogger(testutil.TestLogger(t)), WithPartitionCounts(3, 1)).Run(context.Background())
	e, ok := errors.As(err, errors.ErrorTypePartition)
	require.True(t, ok)
	assert.Equal(t, 1, e.Details["partition"])
	assert.Equal(t, 1, e.Details["expected"])
	assert.Equal(t, 2, e.Details["actual"])

	_, err = New(srcmem.NewU64Builder(parts, 1), memory.New(), []string{"p0", "p1"}, u64Schema(1),
		WithLogger(testutil.TestLogger(t)), WithPartitionCounts(5)).Run(context.Background())
	assert.True(t, errors.IsType(err, errors.ErrorTypePartition))

	w, err := New(srcmem.NewU64Builder(parts, 1), memory.New(), []string{"p0", "p1"}, u64Schema(1),
		WithLogger(testutil.TestLogger(t)), WithPartitionCounts(3, 2)).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 5, w.NRows())
}

type countingBuilder struct {
	source.SourceBuilder
	calls *atomic.Int64
}

func (b countingBuilder) Build() (source.Source, error) {
	src, err := b.SourceBuilder.Build()
	if err != nil {
		return nil, err
	}
	return countingSource{Source: src, calls: b.calls}, nil
}

type countingSource struct {
	source.Source
	calls *atomic.Int64
}

func (s countingSource) ProduceU64() (uint64, error) {
	s.calls.Add(1)
	return s.Source.ProduceU64()
}

func TestRunProducesEveryCellOnce(t *testing.T) {
	const ncols = 3
	var calls atomic.Int64
	b := countingBuilder{
		SourceBuilder: srcmem.NewU64Builder([][]uint64{seq(0, 30), seq(0, 0), seq(0, 3000)}, ncols),
		calls:         &calls,
	}

	d := New(b, memory.New(), []string{"a", "b", "c"}, u64Schema(ncols),
		WithLogger(testutil.TestLogger(t)), WithMaxWorkers(2))
	w, err := d.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1010, w.NRows())
	assert.Equal(t, int64(1010*ncols), calls.Load())
}

func TestRunNoPartitions(t *testing.T) {
	b := srcmem.NewU64Builder(nil, 2)
	w, err := New(b, memory.New(), nil, u64Schema(2), WithLogger(testutil.TestLogger(t))).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, w.NRows())
	assert.Equal(t, 2, w.NCols())
}

func TestRunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	b := srcmem.NewU64Builder([][]uint64{seq(1, 10)}, 1)
	w, err := New(b, memory.New(), []string{"p0"}, u64Schema(1), WithLogger(testutil.TestLogger(t))).Run(ctx)
	require.Error(t, err)
	assert.Nil(t, w)
	assert.True(t, stderrors.Is(err, context.Canceled))
}

func TestRunDeadlineExceeded(t *testing.T) {
	ctx, cancel := context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
	defer cancel()

	b := srcmem.NewU64Builder([][]uint64{seq(1, 10)}, 1)
	_, err := New(b, memory.New(), []string{"p0"}, u64Schema(1), WithLogger(testutil.TestLogger(t))).Run(ctx)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeTimeout))
	assert.True(t, stderrors.Is(err, context.DeadlineExceeded))
}

// optU64Scenario is two partitions of nrows x ncols nullable values where
// every seventh cell is absent.
func optU64Scenario(nrows, ncols int) ([][]types.Option[uint64], []types.DataType) {
	parts := make([][]types.Option[uint64], 2)
	for p := range parts {
		vals := make([]types.Option[uint64], nrows*ncols)
		for i := range vals {
			if (p*len(vals)+i)%7 != 0 {
				vals[i] = types.Some(uint64(p*len(vals) + i))
			}
		}
		parts[p] = vals
	}
	schema := make([]types.DataType, ncols)
	for i := range schema {
		schema[i] = types.OptU64
	}
	return parts, schema
}

func TestRunOptU64Scenario(t *testing.T) {
	const nrows, ncols = 1000, 100
	parts, schema := optU64Scenario(nrows, ncols)

	b := srcmem.NewOptU64Builder(parts, ncols)
	w, err := New(b, memory.New(), []string{"p0", "p1"}, schema, WithLogger(testutil.TestLogger(t))).Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2*nrows, w.NRows())

	for row := 0; row < 2*nrows; row++ {
		for col := 0; col < ncols; col++ {
			i := row*ncols + col
			want := types.None[uint64]()
			if i%7 != 0 {
				want = types.Some(uint64(i))
			}
			if got := w.Value(row, col); got != want {
				t.Fatalf("cell (%d, %d) = %v, want %v", row, col, got, want)
			}
		}
	}
}

func TestRunLogsEachPartitionOnce(t *testing.T) {
	log, logs := testutil.ObservedLogger(zapcore.DebugLevel)
	b := srcmem.NewU64Builder([][]uint64{seq(1, 4), seq(5, 2)}, 2)
	_, err := New(b, memory.New(), []string{"p0", "p1"}, u64Schema(2),
		WithLogger(log), WithRunID("run-42")).Run(context.Background())
	require.NoError(t, err)

	written := logs.FilterMessage("partition written").All()
	require.Len(t, written, 2)
	seen := map[int64]bool{}
	for _, entry := range written {
		keys := map[string]int{}
		for _, f := range entry.Context {
			keys[f.Key]++
		}
		assert.Equal(t, 1, keys["run_id"], "run_id must appear once: %v", entry.Context)
		assert.Equal(t, 1, keys["partition"])

		fields := entry.ContextMap()
		assert.Equal(t, "run-42", fields["run_id"])
		seen[fields["partition"].(int64)] = true
	}
	assert.Equal(t, map[int64]bool{0: true, 1: true}, seen)

	completed := logs.FilterMessage("dispatch completed").All()
	require.Len(t, completed, 1)
	assert.Equal(t, int64(3), completed[0].ContextMap()["rows"])
}
