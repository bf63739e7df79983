package rowset

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/tabflow/pkg/errors"
	"github.com/ajitpratap0/tabflow/pkg/types"
)

func static(rows [][]any) FetchFunc {
	return func(context.Context, string) ([][]any, error) { return rows, nil }
}

func TestProduceRowMajor(t *testing.T) {
	rows := [][]any{
		{int64(1), "a", nil},
		{int64(2), []byte("b"), 2.5},
	}
	s := New("test", types.RowMajor, []types.DataType{types.U64, types.Str, types.OptF64}, static(rows))
	require.NoError(t, s.Prepare(context.Background(), "q"))
	assert.Equal(t, 2, s.NRows())

	u, err := s.ProduceU64()
	require.NoError(t, err)
	assert.Equal(t, uint64(1), u)
	str, err := s.ProduceStr()
	require.NoError(t, err)
	assert.Equal(t, "a", str)
	f, err := s.ProduceOptF64()
	require.NoError(t, err)
	assert.Equal(t, types.None[float64](), f)

	u, _ = s.ProduceU64()
	assert.Equal(t, uint64(2), u)
	str, _ = s.ProduceStr()
	assert.Equal(t, "b", str)
	f, _ = s.ProduceOptF64()
	assert.Equal(t, types.Some(2.5), f)

	_, err = s.ProduceU64()
	assert.Error(t, err, "cursor must be exhausted")
}

func TestProduceColumnMajor(t *testing.T) {
	rows := [][]any{{"1", true}, {"2", false}}
	s := New("test", types.ColumnMajor, []types.DataType{types.I64, types.Bool}, static(rows))
	require.NoError(t, s.Prepare(context.Background(), ""))

	a, _ := s.ProduceI64()
	b, _ := s.ProduceI64()
	c, _ := s.ProduceBool()
	d, _ := s.ProduceBool()
	assert.Equal(t, []any{int64(1), int64(2), true, false}, []any{a, b, c, d})
}

func TestNullInNonNullable(t *testing.T) {
	s := New("test", types.RowMajor, []types.DataType{types.U64}, static([][]any{{nil}}))
	require.NoError(t, s.Prepare(context.Background(), ""))
	_, err := s.ProduceU64()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "NULL at row 0, column 0")
}

func TestPrepareErrors(t *testing.T) {
	s := New("test", types.RowMajor, []types.DataType{types.U64, types.U64}, static([][]any{{1, 2}, {3}}))
	err := s.Prepare(context.Background(), "")
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeData))

	boom := stderrors.New("boom")
	s = New("test", types.RowMajor, []types.DataType{types.U64}, func(context.Context, string) ([][]any, error) {
		return nil, boom
	})
	assert.ErrorIs(t, s.Prepare(context.Background(), ""), boom)
}

func TestBuilder(t *testing.T) {
	var queries []string
	fetch := func(_ context.Context, q string) ([][]any, error) {
		queries = append(queries, q)
		return [][]any{{q}}, nil
	}
	b := NewBuilder("test", []types.DataType{types.Str}, fetch, types.RowMajor)
	assert.Equal(t, []types.DataOrder{types.RowMajor}, b.DataOrders())
	require.Error(t, b.SetDataOrder(types.ColumnMajor))
	require.NoError(t, b.SetDataOrder(types.RowMajor))

	src, err := b.Build()
	require.NoError(t, err)
	require.NoError(t, src.Prepare(context.Background(), "p0"))
	v, err := src.ProduceStr()
	require.NoError(t, err)
	assert.Equal(t, "p0", v)
	assert.Equal(t, []string{"p0"}, queries)
	assert.Equal(t, []types.DataType{types.Str}, src.(*Source).ProducedTypes())
}

func TestConversions(t *testing.T) {
	u, err := ToU64(int32(7))
	require.NoError(t, err)
	assert.Equal(t, uint64(7), u)
	_, err = ToU64(int64(-1))
	assert.Error(t, err)
	_, err = ToU64(1.5)
	assert.Error(t, err)
	u, err = ToU64(" 18446744073709551615 ")
	require.NoError(t, err)
	assert.Equal(t, uint64(math.MaxUint64), u)

	i, err := ToI64(uint8(3))
	require.NoError(t, err)
	assert.Equal(t, int64(3), i)
	_, err = ToI64(uint64(math.MaxUint64))
	assert.Error(t, err)

	f, err := ToF64([]byte("1e3"))
	require.NoError(t, err)
	assert.Equal(t, 1000.0, f)

	b, err := ToBool("TRUE")
	require.NoError(t, err)
	assert.True(t, b)
	b, err = ToBool(int64(0))
	require.NoError(t, err)
	assert.False(t, b)

	ts := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	s, err := ToStr(ts)
	require.NoError(t, err)
	assert.Equal(t, "2024-01-02T03:04:05Z", s)
	s, err = ToStr(0.25)
	require.NoError(t, err)
	assert.Equal(t, "0.25", s)

	_, err = ToStr(struct{}{})
	assert.Error(t, err)
	_, err = ToBool(2.0)
	assert.Error(t, err)
}

func TestJSONNumberConversions(t *testing.T) {
	u, err := ToU64(json.Number("18446744073709551615"))
	require.NoError(t, err)
	assert.Equal(t, uint64(math.MaxUint64), u)
	_, err = ToU64(json.Number("-1"))
	assert.Error(t, err)

	i, err := ToI64(json.Number("-42"))
	require.NoError(t, err)
	assert.Equal(t, int64(-42), i)
	_, err = ToI64(json.Number("1.5"))
	assert.Error(t, err)

	f, err := ToF64(json.Number("2.5"))
	require.NoError(t, err)
	assert.Equal(t, 2.5, f)
}
