package memory

import (
	"context"
	stderrors "errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/tabflow/pkg/config"
	"github.com/ajitpratap0/tabflow/pkg/errors"
	"github.com/ajitpratap0/tabflow/pkg/source"
	"github.com/ajitpratap0/tabflow/pkg/types"
)

func TestU64Builder(t *testing.T) {
	b := NewU64Builder([][]uint64{{1, 2, 3, 4}, {5, 6}}, 2)
	assert.Equal(t, []types.DataOrder{types.RowMajor}, b.DataOrders())
	assert.True(t, errors.IsType(b.SetDataOrder(types.ColumnMajor), errors.ErrorTypeDataOrder))
	require.NoError(t, b.SetDataOrder(types.RowMajor))

	s0, err := b.Build()
	require.NoError(t, err)
	s1, err := b.Build()
	require.NoError(t, err)
	_, err = b.Build()
	assert.Error(t, err)

	require.NoError(t, s0.Prepare(context.Background(), ""))
	assert.Equal(t, 2, s0.NRows())
	assert.Equal(t, 1, s1.NRows())

	v, err := s0.ProduceU64()
	require.NoError(t, err)
	assert.Equal(t, uint64(1), v)
	o, err := s0.ProduceOptU64()
	require.NoError(t, err)
	assert.Equal(t, types.Some[uint64](2), o)

	_, err = s0.ProduceF64()
	assert.True(t, stderrors.Is(err, types.ErrUnsupportedProduce))
	_, err = s0.ProduceStr()
	assert.Contains(t, err.Error(), "u64 memory source cannot produce Str")
}

func TestOptU64Source(t *testing.T) {
	parts := [][]types.Option[uint64]{{types.Some[uint64](9), types.None[uint64]()}}
	b := NewOptU64Builder(parts, 1)
	s, err := b.Build()
	require.NoError(t, err)

	assert.Equal(t, 2, s.NRows())
	assert.Equal(t, []types.DataType{types.OptU64}, s.(source.TypeReporter).ProducedTypes())

	_, err = s.ProduceU64()
	assert.True(t, stderrors.Is(err, types.ErrUnsupportedProduce))

	// The failed call above does not consume a value.
	v, err := s.ProduceOptU64()
	require.NoError(t, err)
	assert.Equal(t, types.Some[uint64](9), v)
	v, err = s.ProduceOptU64()
	require.NoError(t, err)
	assert.Equal(t, types.None[uint64](), v)
	_, err = s.ProduceOptU64()
	assert.Error(t, err)
}

func TestTableBuilder(t *testing.T) {
	schema := []types.DataType{types.I64, types.OptStr}
	b := NewTableBuilder(schema, [][][]any{
		{{int64(1), "x"}, {int64(2), nil}},
		{{int64(3), "z"}},
	})
	require.NoError(t, b.SetDataOrder(types.ColumnMajor))

	s0, err := b.Build()
	require.NoError(t, err)
	s1, err := b.Build()
	require.NoError(t, err)

	// Prepare order does not change which partition a source holds.
	require.NoError(t, s1.Prepare(context.Background(), ""))
	require.NoError(t, s0.Prepare(context.Background(), ""))
	assert.Equal(t, 2, s0.NRows())
	assert.Equal(t, 1, s1.NRows())

	a, _ := s0.ProduceI64()
	c, _ := s0.ProduceI64()
	d, _ := s0.ProduceOptStr()
	e, _ := s0.ProduceOptStr()
	assert.Equal(t, int64(1), a)
	assert.Equal(t, int64(2), c)
	assert.Equal(t, types.Some("x"), d)
	assert.Equal(t, types.None[string](), e)
}

func TestInlineBuilder(t *testing.T) {
	assert.Equal(t, [][]any{{"1", nil}, {"2", "b"}}, ParseInline("1,;2, b"))
	assert.Nil(t, ParseInline("  "))

	b, err := NewInlineBuilder(context.Background(), config.SourceConfig{}, []types.DataType{types.U64, types.OptStr})
	require.NoError(t, err)
	s, err := b.Build()
	require.NoError(t, err)
	require.NoError(t, s.Prepare(context.Background(), "7,seven;8,"))
	assert.Equal(t, 2, s.NRows())
	u, err := s.ProduceU64()
	require.NoError(t, err)
	assert.Equal(t, uint64(7), u)
}

func TestPrepareRejectsPartialRows(t *testing.T) {
	src, err := NewU64Builder([][]uint64{{1, 2, 3, 4, 5, 6, 7}}, 2).Build()
	require.NoError(t, err)
	err = src.Prepare(context.Background(), "")
	require.Error(t, err)
	e, ok := errors.As(err, errors.ErrorTypePartition)
	require.True(t, ok)
	assert.Equal(t, 7, e.Details["values"])
	assert.Equal(t, 2, e.Details["cols"])

	opt, err := NewOptU64Builder([][]types.Option[uint64]{{types.Some[uint64](1)}}, 0).Build()
	require.NoError(t, err)
	assert.True(t, errors.IsType(opt.Prepare(context.Background(), ""), errors.ErrorTypePartition))

	empty, err := NewOptU64Builder([][]types.Option[uint64]{nil}, 3).Build()
	require.NoError(t, err)
	require.NoError(t, empty.Prepare(context.Background(), ""))
	assert.Equal(t, 0, empty.NRows())
}
