// Package memory provides sources over values already held in memory: flat
// U64 and OptU64 streams, one slice per partition, and typed row tables.
package memory

import (
	"context"
	"fmt"

	"github.com/ajitpratap0/tabflow/pkg/errors"
	"github.com/ajitpratap0/tabflow/pkg/source"
	"github.com/ajitpratap0/tabflow/pkg/source/rowset"
	"github.com/ajitpratap0/tabflow/pkg/types"
)

func exhausted(name string, n int) error {
	return errors.New(errors.ErrorTypeValidation,
		fmt.Sprintf("%s builder holds %d partitions, Build called again", name, n))
}

// checkShape rejects a partition whose values do not fill whole rows.
func checkShape(name string, n, ncols int) error {
	if (ncols == 0 && n > 0) || (ncols > 0 && n%ncols != 0) {
		return errors.New(errors.ErrorTypePartition,
			fmt.Sprintf("%s holds %d values, not a multiple of %d columns", name, n, ncols)).
			WithDetail("values", n).
			WithDetail("cols", ncols)
	}
	return nil
}

// U64Builder hands out one partition of values per Build. Values are a flat
// stream in the negotiated order; a partition of len(v) values has
// len(v)/ncols rows and Prepare fails unless ncols divides len(v).
type U64Builder struct {
	source.OrderSet
	parts [][]uint64
	ncols int
	next  int
}

// NewU64Builder creates a builder supporting orders, row-major if none given.
func NewU64Builder(parts [][]uint64, ncols int, orders ...types.DataOrder) *U64Builder {
	if len(orders) == 0 {
		orders = []types.DataOrder{types.RowMajor}
	}
	return &U64Builder{OrderSet: source.NewOrderSet(orders...), parts: parts, ncols: ncols}
}

func (b *U64Builder) Build() (source.Source, error) {
	if b.next >= len(b.parts) {
		return nil, exhausted("u64", len(b.parts))
	}
	vals := b.parts[b.next]
	b.next++
	return &U64Source{Unsupported: source.Unsupported{Name: "u64 memory source"}, vals: vals, ncols: b.ncols}, nil
}

// U64Source emits its values as U64, or as present OptU64 values.
type U64Source struct {
	source.Unsupported
	vals    []uint64
	ncols   int
	counter int
}

func (s *U64Source) Prepare(context.Context, string) error {
	return checkShape(s.Name, len(s.vals), s.ncols)
}

func (s *U64Source) NRows() int {
	if s.ncols == 0 {
		return 0
	}
	return len(s.vals) / s.ncols
}

func (s *U64Source) ProduceU64() (uint64, error) {
	if s.counter >= len(s.vals) {
		return 0, fmt.Errorf("u64 memory source exhausted after %d values", s.counter)
	}
	v := s.vals[s.counter]
	s.counter++
	return v, nil
}

func (s *U64Source) ProduceOptU64() (types.Option[uint64], error) {
	v, err := s.ProduceU64()
	if err != nil {
		return types.Option[uint64]{}, err
	}
	return types.Some(v), nil
}

// OptU64Builder is U64Builder for nullable values.
type OptU64Builder struct {
	source.OrderSet
	parts [][]types.Option[uint64]
	ncols int
	next  int
}

// NewOptU64Builder creates a builder supporting orders, row-major if none
// given.
func NewOptU64Builder(parts [][]types.Option[uint64], ncols int, orders ...types.DataOrder) *OptU64Builder {
	if len(orders) == 0 {
		orders = []types.DataOrder{types.RowMajor}
	}
	return &OptU64Builder{OrderSet: source.NewOrderSet(orders...), parts: parts, ncols: ncols}
}

func (b *OptU64Builder) Build() (source.Source, error) {
	if b.next >= len(b.parts) {
		return nil, exhausted("optu64", len(b.parts))
	}
	vals := b.parts[b.next]
	b.next++
	return &OptU64Source{Unsupported: source.Unsupported{Name: "optu64 memory source"}, vals: vals, ncols: b.ncols}, nil
}

// OptU64Source only emits OptU64 values and reports so.
type OptU64Source struct {
	source.Unsupported
	vals    []types.Option[uint64]
	ncols   int
	counter int
}

var _ source.TypeReporter = (*OptU64Source)(nil)

func (s *OptU64Source) Prepare(context.Context, string) error {
	return checkShape(s.Name, len(s.vals), s.ncols)
}

func (s *OptU64Source) NRows() int {
	if s.ncols == 0 {
		return 0
	}
	return len(s.vals) / s.ncols
}

// ProducedTypes reports OptU64 for every column.
func (s *OptU64Source) ProducedTypes() []types.DataType {
	out := make([]types.DataType, s.ncols)
	for i := range out {
		out[i] = types.OptU64
	}
	return out
}

func (s *OptU64Source) ProduceOptU64() (types.Option[uint64], error) {
	if s.counter >= len(s.vals) {
		return types.Option[uint64]{}, fmt.Errorf("optu64 memory source exhausted after %d values", s.counter)
	}
	v := s.vals[s.counter]
	s.counter++
	return v, nil
}

// TableBuilder yields one typed row table per partition.
type TableBuilder struct {
	source.OrderSet
	schema []types.DataType
	parts  [][][]any
	next   int
}

// NewTableBuilder returns a builder whose i-th source yields parts[i], a
// slice of rows of native values (nil for absent cells). Both orders are
// supported.
func NewTableBuilder(schema []types.DataType, parts [][][]any) *TableBuilder {
	return &TableBuilder{
		OrderSet: source.NewOrderSet(types.RowMajor, types.ColumnMajor),
		schema:   schema,
		parts:    parts,
	}
}

func (b *TableBuilder) Build() (source.Source, error) {
	if b.next >= len(b.parts) {
		return nil, exhausted("table", len(b.parts))
	}
	rows := b.parts[b.next]
	b.next++
	return rowset.New("memory table", b.Order(), b.schema, func(context.Context, string) ([][]any, error) {
		return rows, nil
	}), nil
}
