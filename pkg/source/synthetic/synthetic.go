// Package synthetic generates deterministic tables. The value of a cell is a
// pure function of the seed, the partition and the cell coordinate, so runs in
// either data order fill the destination identically.
package synthetic

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/ajitpratap0/tabflow/pkg/errors"
	"github.com/ajitpratap0/tabflow/pkg/source"
	"github.com/ajitpratap0/tabflow/pkg/types"
)

// DefaultNullEvery makes roughly one nullable cell in four absent.
const DefaultNullEvery = 4

// Builder yields one synthetic source per partition. A partition identifier
// is its row count.
type Builder struct {
	source.OrderSet
	seed      uint64
	ncols     int
	nullEvery uint64
	next      int
}

// Option configures a Builder.
type Option func(*Builder)

// WithNullEvery makes a nullable cell absent when its value is divisible by
// n. Zero disables absent values.
func WithNullEvery(n uint64) Option {
	return func(b *Builder) {
		b.nullEvery = n
	}
}

// WithOrders restricts the supported orders.
func WithOrders(orders ...types.DataOrder) Option {
	return func(b *Builder) {
		b.OrderSet = source.NewOrderSet(orders...)
	}
}

// NewBuilder creates a builder for ncols columns.
func NewBuilder(seed uint64, ncols int, opts ...Option) *Builder {
	b := &Builder{
		OrderSet:  source.NewOrderSet(types.ColumnMajor, types.RowMajor),
		seed:      seed,
		ncols:     ncols,
		nullEvery: DefaultNullEvery,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func (b *Builder) Build() (source.Source, error) {
	s := &Source{
		seed:      b.seed,
		partition: uint64(b.next),
		ncols:     b.ncols,
		nullEvery: b.nullEvery,
		order:     b.Order(),
	}
	b.next++
	return s, nil
}

// Source produces the cells of one synthetic partition.
type Source struct {
	seed      uint64
	partition uint64
	ncols     int
	nullEvery uint64
	order     types.DataOrder

	nrows  int
	cursor source.Cursor
}

// Prepare parses query as the partition's row count.
func (s *Source) Prepare(_ context.Context, query string) error {
	n, err := strconv.Atoi(strings.TrimSpace(query))
	if err != nil || n < 0 {
		return errors.New(errors.ErrorTypeValidation,
			fmt.Sprintf("synthetic partition identifier must be a row count, got %q", query))
	}
	s.nrows = n
	s.cursor = source.NewCursor(s.order, n, s.ncols)
	return nil
}

func (s *Source) NRows() int { return s.nrows }

// Value is the raw 64-bit value of a cell. Each coordinate goes through its
// own mixing round so no two cells of a run share an input.
func Value(seed, partition uint64, row, col int) uint64 {
	return mix(mix(mix(seed^partition)^uint64(row)) ^ uint64(col))
}

// mix is the splitmix64 finaliser.
func mix(x uint64) uint64 {
	x += 0x9e3779b97f4a7c15
	x = (x ^ (x >> 30)) * 0xbf58476d1ce4e5b9
	x = (x ^ (x >> 27)) * 0x94d049bb133111eb
	return x ^ (x >> 31)
}

// Float maps a raw value to [0, 1).
func Float(v uint64) float64 {
	return float64(v>>11) / (1 << 53)
}

// String maps a raw value to its base-36 form.
func String(v uint64) string {
	return strconv.FormatUint(v, 36)
}

// Present reports whether a nullable cell with raw value v holds a value.
func Present(v, nullEvery uint64) bool {
	return nullEvery == 0 || v%nullEvery != 0
}

func (s *Source) raw() (uint64, error) {
	row, col, err := s.cursor.Next()
	if err != nil {
		return 0, fmt.Errorf("synthetic partition %d: %w", s.partition, err)
	}
	return Value(s.seed, s.partition, row, col), nil
}

func opt[T any](s *Source, conv func(uint64) T) (types.Option[T], error) {
	v, err := s.raw()
	if err != nil {
		return types.Option[T]{}, err
	}
	if !Present(v, s.nullEvery) {
		return types.None[T](), nil
	}
	return types.Some(conv(v)), nil
}

func identity(v uint64) uint64 { return v }
func signed(v uint64) int64    { return int64(v) }
func boolean(v uint64) bool    { return v&1 == 1 }

func (s *Source) ProduceU64() (uint64, error) { return s.raw() }

func (s *Source) ProduceOptU64() (types.Option[uint64], error) { return opt(s, identity) }

func (s *Source) ProduceI64() (int64, error) {
	v, err := s.raw()
	return signed(v), err
}

func (s *Source) ProduceOptI64() (types.Option[int64], error) { return opt(s, signed) }

func (s *Source) ProduceF64() (float64, error) {
	v, err := s.raw()
	if err != nil {
		return math.NaN(), err
	}
	return Float(v), nil
}

func (s *Source) ProduceOptF64() (types.Option[float64], error) { return opt(s, Float) }

func (s *Source) ProduceBool() (bool, error) {
	v, err := s.raw()
	return boolean(v), err
}

func (s *Source) ProduceOptBool() (types.Option[bool], error) { return opt(s, boolean) }

func (s *Source) ProduceStr() (string, error) {
	v, err := s.raw()
	if err != nil {
		return "", err
	}
	return String(v), nil
}

func (s *Source) ProduceOptStr() (types.Option[string], error) { return opt(s, String) }
