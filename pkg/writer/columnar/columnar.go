// Package columnar implements a writer that stores each column in its own
// typed Go slice and exports the result as an Apache Arrow record.
// Fixed-width numeric columns are handed to Arrow without copying.
package columnar

import (
	"fmt"
	"io"
	"slices"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/bitutil"
	"github.com/apache/arrow-go/v18/arrow/ipc"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/ajitpratap0/tabflow/pkg/errors"
	"github.com/ajitpratap0/tabflow/pkg/types"
	"github.com/ajitpratap0/tabflow/pkg/writer"
)

// column holds one destination column. Exactly one value slice is non-nil,
// chosen by the column kind.
type column struct {
	u64   []uint64
	i64   []int64
	f64   []float64
	b     []bool
	s     []string
	valid []bool // nil for non-nullable columns
}

func newColumn(t types.DataType, n int) column {
	var c column
	switch t.Kind() {
	case types.KindUint64:
		c.u64 = make([]uint64, n)
	case types.KindInt64:
		c.i64 = make([]int64, n)
	case types.KindFloat64:
		c.f64 = make([]float64, n)
	case types.KindBool:
		c.b = make([]bool, n)
	case types.KindString:
		c.s = make([]string, n)
	}
	if t.Nullable() {
		c.valid = make([]bool, n)
	}
	return c
}

// rows returns the view of c over [lo, hi).
func (c column) rows(lo, hi int) column {
	var v column
	if c.u64 != nil {
		v.u64 = c.u64[lo:hi:hi]
	}
	if c.i64 != nil {
		v.i64 = c.i64[lo:hi:hi]
	}
	if c.f64 != nil {
		v.f64 = c.f64[lo:hi:hi]
	}
	if c.b != nil {
		v.b = c.b[lo:hi:hi]
	}
	if c.s != nil {
		v.s = c.s[lo:hi:hi]
	}
	if c.valid != nil {
		v.valid = c.valid[lo:hi:hi]
	}
	return v
}

// Option configures a Writer.
type Option func(*Writer)

// WithFieldNames names the Arrow fields. Missing names default to col_<i>.
func WithFieldNames(names ...string) Option {
	return func(w *Writer) {
		w.names = slices.Clone(names)
	}
}

// WithAllocator sets the allocator used for bitmaps and variable-width
// columns when building records.
func WithAllocator(mem memory.Allocator) Option {
	return func(w *Writer) {
		w.mem = mem
	}
}

// Writer buffers a table column by column.
type Writer struct {
	names  []string
	mem    memory.Allocator
	nrows  int
	schema []types.DataType
	cols   []column
}

var _ writer.Writer = (*Writer)(nil)

// New creates an unallocated Writer.
func New(opts ...Option) *Writer {
	w := &Writer{mem: memory.NewGoAllocator()}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// DataOrders reports both orders. Column-major fills one slice at a time and
// is the one negotiation picks when the source offers it.
func (w *Writer) DataOrders() []types.DataOrder {
	return []types.DataOrder{types.ColumnMajor, types.RowMajor}
}

// Allocate creates one slice per column.
func (w *Writer) Allocate(nrows int, schema []types.DataType) error {
	if nrows < 0 {
		return errors.New(errors.ErrorTypeValidation, fmt.Sprintf("negative row count %d", nrows))
	}
	if err := writer.ValidateSchema(schema); err != nil {
		return err
	}
	if len(w.names) > len(schema) {
		return errors.New(errors.ErrorTypeConfig,
			fmt.Sprintf("%d field names for %d columns", len(w.names), len(schema)))
	}

	w.nrows = nrows
	w.schema = slices.Clone(schema)
	w.cols = make([]column, len(schema))
	for i, t := range schema {
		w.cols[i] = newColumn(t, nrows)
	}
	return nil
}

// PartitionWriters returns row-range views over every column.
func (w *Writer) PartitionWriters(counts []int) ([]writer.PartitionWriter, error) {
	ranges, err := writer.SplitRows(counts, w.nrows)
	if err != nil {
		return nil, err
	}

	views := make([]writer.PartitionWriter, len(ranges))
	for i, r := range ranges {
		cols := make([]column, len(w.cols))
		for j, c := range w.cols {
			cols[j] = c.rows(r.Start, r.End)
		}
		views[i] = &PartitionWriter{schema: w.schema, nrows: r.Len(), cols: cols}
	}
	return views, nil
}

func (w *Writer) Schema() []types.DataType { return w.schema }
func (w *Writer) NRows() int               { return w.nrows }
func (w *Writer) NCols() int               { return len(w.schema) }

// FieldName is the Arrow field name of column i.
func (w *Writer) FieldName(i int) string {
	if i < len(w.names) && w.names[i] != "" {
		return w.names[i]
	}
	return fmt.Sprintf("col_%d", i)
}

// ArrowSchema maps the destination schema to an Arrow schema.
func (w *Writer) ArrowSchema() *arrow.Schema {
	fields := make([]arrow.Field, len(w.schema))
	for i, t := range w.schema {
		fields[i] = arrow.Field{Name: w.FieldName(i), Type: ArrowType(t), Nullable: t.Nullable()}
	}
	return arrow.NewSchema(fields, nil)
}

// ArrowType returns the Arrow type storing t.
func ArrowType(t types.DataType) arrow.DataType {
	switch t.Kind() {
	case types.KindUint64:
		return arrow.PrimitiveTypes.Uint64
	case types.KindInt64:
		return arrow.PrimitiveTypes.Int64
	case types.KindFloat64:
		return arrow.PrimitiveTypes.Float64
	case types.KindBool:
		return arrow.FixedWidthTypes.Boolean
	case types.KindString:
		return arrow.BinaryTypes.String
	default:
		return arrow.Null
	}
}

// Record exports the buffer as an Arrow record. Numeric value buffers alias
// the writer's slices, so the writer must not be written to while the record
// is in use. The caller releases the record.
func (w *Writer) Record() arrow.Record {
	arrs := make([]arrow.Array, len(w.cols))
	for i, c := range w.cols {
		arrs[i] = w.buildArray(w.schema[i], c)
	}
	rec := array.NewRecord(w.ArrowSchema(), arrs, int64(w.nrows))
	for _, a := range arrs {
		a.Release()
	}
	return rec
}

func (w *Writer) buildArray(t types.DataType, c column) arrow.Array {
	switch t.Kind() {
	case types.KindUint64:
		return fixedArray(arrow.PrimitiveTypes.Uint64, arrow.Uint64Traits.CastToBytes(c.u64), c.valid, w.nrows)
	case types.KindInt64:
		return fixedArray(arrow.PrimitiveTypes.Int64, arrow.Int64Traits.CastToBytes(c.i64), c.valid, w.nrows)
	case types.KindFloat64:
		return fixedArray(arrow.PrimitiveTypes.Float64, arrow.Float64Traits.CastToBytes(c.f64), c.valid, w.nrows)
	case types.KindBool:
		b := array.NewBooleanBuilder(w.mem)
		defer b.Release()
		b.AppendValues(c.b, c.valid)
		return b.NewArray()
	default:
		b := array.NewStringBuilder(w.mem)
		defer b.Release()
		b.AppendValues(c.s, c.valid)
		return b.NewArray()
	}
}

func fixedArray(dt arrow.DataType, values []byte, valid []bool, n int) arrow.Array {
	bitmap, nulls := validityBitmap(valid)
	data := array.NewData(dt, n, []*memory.Buffer{bitmap, memory.NewBufferBytes(values)}, nil, nulls, 0)
	defer data.Release()
	return array.MakeFromData(data)
}

// validityBitmap packs presence flags into an Arrow bitmap. A nil slice
// means every value is present.
func validityBitmap(valid []bool) (*memory.Buffer, int) {
	if valid == nil {
		return nil, 0
	}
	bits := make([]byte, bitutil.BytesForBits(int64(len(valid))))
	nulls := 0
	for i, ok := range valid {
		if ok {
			bitutil.SetBit(bits, i)
		} else {
			nulls++
		}
	}
	return memory.NewBufferBytes(bits), nulls
}

// WriteIPC writes the buffer to out as an Arrow IPC file with one record.
func (w *Writer) WriteIPC(out io.Writer) error {
	rec := w.Record()
	defer rec.Release()

	fw, err := ipc.NewFileWriter(out, ipc.WithSchema(rec.Schema()), ipc.WithAllocator(w.mem))
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeFile, "failed to create Arrow writer")
	}
	if err := fw.Write(rec); err != nil {
		_ = fw.Close()
		return errors.Wrap(err, errors.ErrorTypeFile, "failed to write Arrow record")
	}
	if err := fw.Close(); err != nil {
		return errors.Wrap(err, errors.ErrorTypeFile, "failed to close Arrow writer")
	}
	return nil
}
