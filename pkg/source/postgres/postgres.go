// Package postgres runs one SQL query per partition against a PostgreSQL
// connection pool and serves the result set through a rowset source.
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/ajitpratap0/tabflow/pkg/errors"
	"github.com/ajitpratap0/tabflow/pkg/logger"
	"github.com/ajitpratap0/tabflow/pkg/source/rowset"
	"github.com/ajitpratap0/tabflow/pkg/types"
)

// Querier is the subset of pgxpool.Pool used to fetch partitions.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// PoolConfig tunes the connection pool.
type PoolConfig struct {
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// Builder builds row-major and column-major sources over one pool.
type Builder struct {
	*rowset.Builder
	pool   *pgxpool.Pool
	logger *zap.Logger
}

// Connect opens a pool for connStr and returns a builder over it. Close
// releases the pool.
func Connect(ctx context.Context, connStr string, pc PoolConfig, schema []types.DataType) (*Builder, error) {
	cfg, err := pgxpool.ParseConfig(connStr)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "failed to parse connection string")
	}

	cfg.MaxConns = pc.MaxConns
	if cfg.MaxConns <= 0 {
		cfg.MaxConns = 10
	}
	cfg.MinConns = pc.MinConns
	if cfg.MinConns > cfg.MaxConns {
		cfg.MinConns = cfg.MaxConns / 2
	}
	cfg.MaxConnLifetime = pc.MaxConnLifetime
	if cfg.MaxConnLifetime <= 0 {
		cfg.MaxConnLifetime = time.Hour
	}
	cfg.MaxConnIdleTime = pc.MaxConnIdleTime
	if cfg.MaxConnIdleTime <= 0 {
		cfg.MaxConnIdleTime = 30 * time.Minute
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConnection, "failed to create connection pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, errors.Wrap(err, errors.ErrorTypeConnection, "failed to validate connection")
	}

	log := logger.Component("postgres")
	log.Info("connected to PostgreSQL",
		zap.String("host", cfg.ConnConfig.Host),
		zap.String("database", cfg.ConnConfig.Database),
		zap.Int32("max_connections", cfg.MaxConns))

	return &Builder{Builder: NewBuilder(pool, schema), pool: pool, logger: log}, nil
}

// NewBuilder returns a builder fetching partitions through q.
func NewBuilder(q Querier, schema []types.DataType) *rowset.Builder {
	return rowset.NewBuilder("postgres", schema, Fetch(q))
}

// Close releases the pool.
func (b *Builder) Close() error {
	if b.pool != nil {
		b.pool.Close()
		b.pool = nil
		b.logger.Info("PostgreSQL pool closed")
	}
	return nil
}

// Fetch returns a rowset.FetchFunc that runs the partition query.
func Fetch(q Querier) rowset.FetchFunc {
	return func(ctx context.Context, query string) ([][]any, error) {
		rows, err := q.Query(ctx, query)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeQuery, "failed to execute partition query").
				WithDetail("query", query)
		}
		defer rows.Close()

		var out [][]any
		for rows.Next() {
			values, err := rows.Values()
			if err != nil {
				return nil, errors.Wrap(err, errors.ErrorTypeData, "failed to get row values")
			}
			for i, v := range values {
				if values[i], err = normalize(v); err != nil {
					return nil, errors.Wrap(err, errors.ErrorTypeData,
						fmt.Sprintf("row %d, column %d", len(out), i))
				}
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

// normalize maps driver values the rowset conversions do not know about.
func normalize(v any) (any, error) {
	switch x := v.(type) {
	case pgtype.Numeric:
		if !x.Valid {
			return nil, nil
		}
		if x.Exp >= 0 {
			i, err := x.Int64Value()
			if err == nil && i.Valid {
				return i.Int64, nil
			}
		}
		f, err := x.Float64Value()
		if err != nil {
			return nil, err
		}
		return f.Float64, nil
	case [16]byte:
		return uuid.UUID(x).String(), nil
	case pgtype.Text:
		if !x.Valid {
			return nil, nil
		}
		return x.String, nil
	default:
		return v, nil
	}
}
