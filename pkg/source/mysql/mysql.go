// Package mysql runs one SQL query per partition over database/sql with the
// go-sql-driver/mysql driver.
package mysql

import (
	"context"
	"database/sql"
	"time"

	"github.com/go-sql-driver/mysql"
	"go.uber.org/zap"

	"github.com/ajitpratap0/tabflow/pkg/errors"
	"github.com/ajitpratap0/tabflow/pkg/logger"
	"github.com/ajitpratap0/tabflow/pkg/source/rowset"
	"github.com/ajitpratap0/tabflow/pkg/types"
)

// Builder serves partitions from one *sql.DB.
type Builder struct {
	*rowset.Builder
	db     *sql.DB
	logger *zap.Logger
}

// Connect parses dsn, opens a pool of at most maxConns connections and pings
// the server.
func Connect(ctx context.Context, dsn string, maxConns int, schema []types.DataType) (*Builder, error) {
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "failed to parse MySQL DSN")
	}
	cfg.ParseTime = true

	connector, err := mysql.NewConnector(cfg)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "failed to create MySQL connector")
	}
	db := sql.OpenDB(connector)
	if maxConns <= 0 {
		maxConns = 10
	}
	db.SetMaxOpenConns(maxConns)
	db.SetMaxIdleConns(maxConns)
	db.SetConnMaxLifetime(time.Hour)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, errors.Wrap(err, errors.ErrorTypeConnection, "failed to connect to MySQL")
	}
	logger.Component("mysql").Info("connected to MySQL",
		zap.String("addr", cfg.Addr),
		zap.String("database", cfg.DBName),
		zap.Int("max_connections", maxConns))

	return NewBuilder(db, schema), nil
}

// NewBuilder returns a builder over an open database. Close closes db.
func NewBuilder(db *sql.DB, schema []types.DataType) *Builder {
	return &Builder{
		Builder: rowset.NewBuilder("mysql", schema, Fetch(db)),
		db:      db,
		logger:  logger.Component("mysql"),
	}
}

// Close closes the database pool.
func (b *Builder) Close() error {
	if b.db == nil {
		return nil
	}
	err := b.db.Close()
	b.db = nil
	return err
}

// Fetch returns a rowset.FetchFunc that runs the partition query on db.
func Fetch(db *sql.DB) rowset.FetchFunc {
	return func(ctx context.Context, query string) ([][]any, error) {
		rows, err := db.QueryContext(ctx, query)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeQuery, "failed to execute partition query").
				WithDetail("query", query)
		}
		defer rows.Close()

		cols, err := rows.Columns()
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeQuery, "failed to read result columns")
		}

		var out [][]any
		for rows.Next() {
			values := make([]any, len(cols))
			ptrs := make([]any, len(cols))
			for i := range values {
				ptrs[i] = &values[i]
			}
			if err := rows.Scan(ptrs...); err != nil {
				return nil, errors.Wrap(err, errors.ErrorTypeData, "failed to scan row")
			}
			out = append(out, values)
		}
		if err := rows.Err(); err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeQuery, "failed to read partition rows").
				WithDetail("query", query)
		}
		return out, nil
	}
}
