package postgres

import (
	"context"
	"time"

	"github.com/ajitpratap0/tabflow/pkg/config"
	"github.com/ajitpratap0/tabflow/pkg/registry"
	"github.com/ajitpratap0/tabflow/pkg/source"
	"github.com/ajitpratap0/tabflow/pkg/types"
)

func init() {
	registry.RegisterSource("postgres",
		"one SQL query per partition over a pgx pool (options: max_conns, min_conns, max_conn_lifetime_seconds)",
		NewFromConfig)
}

// NewFromConfig connects using the source's connection string.
func NewFromConfig(ctx context.Context, cfg config.SourceConfig, schema []types.DataType) (source.SourceBuilder, error) {
	maxConns, err := cfg.IntOption("max_conns", len(cfg.Partitions))
	if err != nil {
		return nil, err
	}
	minConns, err := cfg.IntOption("min_conns", 0)
	if err != nil {
		return nil, err
	}
	lifetime, err := cfg.IntOption("max_conn_lifetime_seconds", 0)
	if err != nil {
		return nil, err
	}
	return Connect(ctx, cfg.ConnectionString, PoolConfig{
		MaxConns:        int32(maxConns),
		MinConns:        int32(minConns),
		MaxConnLifetime: time.Duration(lifetime) * time.Second,
	}, schema)
}
