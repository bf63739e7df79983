package mysql

import (
	"context"
	"database/sql/driver"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/tabflow/pkg/errors"
	"github.com/ajitpratap0/tabflow/pkg/testutil"
	"github.com/ajitpratap0/tabflow/pkg/types"
)

func TestPartitionsFromQueries(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)

	ts := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	mock.ExpectQuery("SELECT id, name, at FROM t WHERE id < 3").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "at"}).
			AddRow(int64(1), []byte("a"), ts).
			AddRow(int64(2), nil, ts))
	mock.ExpectQuery("SELECT id, name, at FROM t WHERE id >= 3").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "at"}).
			AddRow("3", "c", nil))
	mock.ExpectClose()

	b := NewBuilder(db, []types.DataType{types.U64, types.OptStr, types.OptStr})
	require.NoError(t, b.SetDataOrder(types.RowMajor))

	s0, err := b.Build()
	require.NoError(t, err)
	require.NoError(t, s0.Prepare(context.Background(), "SELECT id, name, at FROM t WHERE id < 3"))
	s1, err := b.Build()
	require.NoError(t, err)
	require.NoError(t, s1.Prepare(context.Background(), "SELECT id, name, at FROM t WHERE id >= 3"))

	assert.Equal(t, 2, s0.NRows())
	assert.Equal(t, 1, s1.NRows())

	id, err := s0.ProduceU64()
	require.NoError(t, err)
	assert.Equal(t, uint64(1), id)
	name, err := s0.ProduceOptStr()
	require.NoError(t, err)
	assert.Equal(t, types.Some("a"), name)
	at, err := s0.ProduceOptStr()
	require.NoError(t, err)
	assert.Equal(t, types.Some(ts.Format(time.RFC3339Nano)), at)

	id, err = s1.ProduceU64()
	require.NoError(t, err)
	assert.Equal(t, uint64(3), id)

	require.NoError(t, b.Close())
	require.NoError(t, b.Close())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFetchErrors(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT bad").WillReturnError(fmt.Errorf("syntax error"))
	_, err = Fetch(db)(context.Background(), "SELECT bad")
	e, ok := errors.As(err, errors.ErrorTypeQuery)
	require.True(t, ok)
	assert.Equal(t, "SELECT bad", e.Details["query"])

	mock.ExpectQuery("SELECT broken").
		WillReturnRows(sqlmock.NewRows([]string{"a"}).
			AddRow(driver.Value(int64(1))).
			RowError(0, fmt.Errorf("connection reset")))
	_, err = Fetch(db)(context.Background(), "SELECT broken")
	assert.True(t, errors.IsType(err, errors.ErrorTypeQuery))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNullInRequiredColumn(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT").WillReturnRows(sqlmock.NewRows([]string{"a"}).AddRow(nil))
	src, err := NewBuilder(db, []types.DataType{types.I64}).Build()
	require.NoError(t, err)
	require.NoError(t, src.Prepare(context.Background(), "SELECT a FROM t"))

	_, err = src.ProduceI64()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "NULL")
}

func TestConnectRejectsBadDSN(t *testing.T) {
	_, err := Connect(context.Background(), "not a dsn", 1, nil)
	assert.True(t, errors.IsType(err, errors.ErrorTypeConfig))
}

func TestConnectIntegration(t *testing.T) {
	testutil.IntegrationTest(t)
	dsn := os.Getenv("TABFLOW_MYSQL_DSN")
	if dsn == "" {
		t.Skip("TABFLOW_MYSQL_DSN not set")
	}
	ctx, cancel := testutil.TestContext(t)
	defer cancel()

	b, err := Connect(ctx, dsn, 2, []types.DataType{types.I64})
	require.NoError(t, err)
	defer b.Close()

	src, err := b.Build()
	require.NoError(t, err)
	require.NoError(t, src.Prepare(ctx, "SELECT 1 UNION ALL SELECT 2"))
	assert.Equal(t, 2, src.NRows())
}
