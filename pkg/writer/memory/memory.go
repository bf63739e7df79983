// Package memory implements a writer over one row-major rows x cols buffer of
// 64-bit cells. Every fixed-width value is stored as its bit pattern; nullable
// columns keep a presence flag per cell and string columns a parallel string
// slab. Partition views are sub-slices of these arrays.
package memory

import (
	"fmt"
	"math"
	"slices"

	"github.com/ajitpratap0/tabflow/pkg/errors"
	"github.com/ajitpratap0/tabflow/pkg/types"
	"github.com/ajitpratap0/tabflow/pkg/writer"
)

// Writer holds the whole destination buffer.
type Writer struct {
	nrows  int
	schema []types.DataType

	cells []uint64
	valid []bool   // nil unless the schema has a nullable column
	strs  []string // nil unless the schema has a string column
}

var _ writer.Writer = (*Writer)(nil)

// New returns an unallocated writer.
func New() *Writer {
	return &Writer{}
}

// DataOrders reports both orders; the buffer is randomly addressable.
func (w *Writer) DataOrders() []types.DataOrder {
	return []types.DataOrder{types.RowMajor, types.ColumnMajor}
}

// Allocate sizes the buffer. Calling it again discards the previous buffer.
func (w *Writer) Allocate(nrows int, schema []types.DataType) error {
	if nrows < 0 {
		return errors.New(errors.ErrorTypeValidation, fmt.Sprintf("negative row count %d", nrows))
	}
	if err := writer.ValidateSchema(schema); err != nil {
		return err
	}

	w.nrows = nrows
	w.schema = slices.Clone(schema)
	n := nrows * len(schema)
	w.cells = make([]uint64, n)
	w.valid = nil
	w.strs = nil

	for _, t := range schema {
		if t.Nullable() && w.valid == nil {
			w.valid = make([]bool, n)
		}
		if t.Kind() == types.KindString && w.strs == nil {
			w.strs = make([]string, n)
		}
	}
	return nil
}

// PartitionWriters splits the buffer into row-range views.
func (w *Writer) PartitionWriters(counts []int) ([]writer.PartitionWriter, error) {
	ranges, err := writer.SplitRows(counts, w.nrows)
	if err != nil {
		return nil, err
	}

	ncols := len(w.schema)
	views := make([]writer.PartitionWriter, len(ranges))
	for i, r := range ranges {
		lo, hi := r.Start*ncols, r.End*ncols
		pw := &PartitionWriter{
			schema: w.schema,
			nrows:  r.Len(),
			ncols:  ncols,
			cells:  w.cells[lo:hi:hi],
		}
		if w.valid != nil {
			pw.valid = w.valid[lo:hi:hi]
		}
		if w.strs != nil {
			pw.strs = w.strs[lo:hi:hi]
		}
		views[i] = pw
	}
	return views, nil
}

func (w *Writer) Schema() []types.DataType { return w.schema }
func (w *Writer) NRows() int               { return w.nrows }
func (w *Writer) NCols() int               { return len(w.schema) }

// Raw returns the stored 64-bit pattern at (row, col).
func (w *Writer) Raw(row, col int) uint64 {
	return w.cells[row*len(w.schema)+col]
}

// Present reports whether the cell holds a value. Cells of non-nullable
// columns are always present.
func (w *Writer) Present(row, col int) bool {
	if !w.schema[col].Nullable() {
		return true
	}
	return w.valid[row*len(w.schema)+col]
}

// Value decodes the cell at (row, col) according to the schema: a native
// value for non-nullable columns and a types.Option for nullable ones.
func (w *Writer) Value(row, col int) any {
	i := row*len(w.schema) + col
	t := w.schema[col]
	bits := w.cells[i]

	var v any
	switch t.Kind() {
	case types.KindUint64:
		v = bits
	case types.KindInt64:
		v = int64(bits)
	case types.KindFloat64:
		v = math.Float64frombits(bits)
	case types.KindBool:
		v = bits != 0
	case types.KindString:
		v = w.strs[i]
	}
	if !t.Nullable() {
		return v
	}

	present := w.valid[i]
	switch x := v.(type) {
	case uint64:
		return types.Option[uint64]{Value: x, Valid: present}
	case int64:
		return types.Option[int64]{Value: x, Valid: present}
	case float64:
		return types.Option[float64]{Value: x, Valid: present}
	case bool:
		return types.Option[bool]{Value: x, Valid: present}
	default:
		return types.Option[string]{Value: x.(string), Valid: present}
	}
}

// U64Column copies column col as uint64 bit patterns.
func (w *Writer) U64Column(col int) []uint64 {
	out := make([]uint64, w.nrows)
	for row := range out {
		out[row] = w.Raw(row, col)
	}
	return out
}
