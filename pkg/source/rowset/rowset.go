// Package rowset implements a source over rows fetched in full during
// Prepare. Database and file sources supply a fetch function; the rowset
// walks the rows in the negotiated order and converts each value to the type
// requested by the dispatcher. A nil value is absent.
package rowset

import (
	"context"
	"fmt"

	"github.com/ajitpratap0/tabflow/pkg/errors"
	"github.com/ajitpratap0/tabflow/pkg/source"
	"github.com/ajitpratap0/tabflow/pkg/types"
)

// FetchFunc loads every row of the partition named by query.
type FetchFunc func(ctx context.Context, query string) ([][]any, error)

// Source is a prefetched partition.
type Source struct {
	name     string
	order    types.DataOrder
	produced []types.DataType
	fetch    FetchFunc

	rows   [][]any
	cursor source.Cursor
}

var (
	_ source.Source       = (*Source)(nil)
	_ source.TypeReporter = (*Source)(nil)
)

// New creates a source named name that emits cells in order and reports
// produced as its column types.
func New(name string, order types.DataOrder, produced []types.DataType, fetch FetchFunc) *Source {
	return &Source{name: name, order: order, produced: produced, fetch: fetch}
}

// Prepare fetches the partition and checks every row's width.
func (s *Source) Prepare(ctx context.Context, query string) error {
	rows, err := s.fetch(ctx, query)
	if err != nil {
		return err
	}
	ncols := len(s.produced)
	for i, row := range rows {
		if len(row) != ncols {
			return errors.New(errors.ErrorTypeData,
				fmt.Sprintf("%s: row %d has %d values, expected %d", s.name, i, len(row), ncols)).
				WithDetail("row", i).
				WithDetail("expected", ncols).
				WithDetail("actual", len(row))
		}
	}
	s.rows = rows
	s.cursor = source.NewCursor(s.order, len(rows), ncols)
	return nil
}

func (s *Source) NRows() int { return len(s.rows) }

// ProducedTypes returns the column types given to New.
func (s *Source) ProducedTypes() []types.DataType { return s.produced }

func (s *Source) next() (any, int, int, error) {
	row, col, err := s.cursor.Next()
	if err != nil {
		return nil, 0, 0, fmt.Errorf("%s: %w", s.name, err)
	}
	return s.rows[row][col], row, col, nil
}

func value[T any](s *Source, t types.DataType, conv func(any) (T, error)) (T, error) {
	var zero T
	v, row, col, err := s.next()
	if err != nil {
		return zero, err
	}
	if v == nil {
		return zero, fmt.Errorf("%s: NULL at row %d, column %d in non-nullable %s", s.name, row, col, t)
	}
	x, err := conv(v)
	if err != nil {
		return zero, fmt.Errorf("%s: row %d, column %d: %w", s.name, row, col, err)
	}
	return x, nil
}

func optional[T any](s *Source, conv func(any) (T, error)) (types.Option[T], error) {
	v, row, col, err := s.next()
	if err != nil {
		return types.Option[T]{}, err
	}
	if v == nil {
		return types.None[T](), nil
	}
	x, err := conv(v)
	if err != nil {
		return types.Option[T]{}, fmt.Errorf("%s: row %d, column %d: %w", s.name, row, col, err)
	}
	return types.Some(x), nil
}

func (s *Source) ProduceU64() (uint64, error) { return value(s, types.U64, ToU64) }

func (s *Source) ProduceOptU64() (types.Option[uint64], error) { return optional(s, ToU64) }

func (s *Source) ProduceI64() (int64, error) { return value(s, types.I64, ToI64) }

func (s *Source) ProduceOptI64() (types.Option[int64], error) { return optional(s, ToI64) }

func (s *Source) ProduceF64() (float64, error) { return value(s, types.F64, ToF64) }

func (s *Source) ProduceOptF64() (types.Option[float64], error) { return optional(s, ToF64) }

func (s *Source) ProduceBool() (bool, error) { return value(s, types.Bool, ToBool) }

func (s *Source) ProduceOptBool() (types.Option[bool], error) { return optional(s, ToBool) }

func (s *Source) ProduceStr() (string, error) { return value(s, types.Str, ToStr) }

func (s *Source) ProduceOptStr() (types.Option[string], error) { return optional(s, ToStr) }

// Builder builds rowset sources sharing one fetch function.
type Builder struct {
	source.OrderSet
	name     string
	produced []types.DataType
	fetch    FetchFunc
}

// NewBuilder creates a builder whose sources support the given orders.
func NewBuilder(name string, produced []types.DataType, fetch FetchFunc, orders ...types.DataOrder) *Builder {
	if len(orders) == 0 {
		orders = []types.DataOrder{types.RowMajor, types.ColumnMajor}
	}
	return &Builder{
		OrderSet: source.NewOrderSet(orders...),
		name:     name,
		produced: produced,
		fetch:    fetch,
	}
}

// Build returns a new, unprepared source.
func (b *Builder) Build() (source.Source, error) {
	return New(b.name, b.Order(), b.produced, b.fetch), nil
}
