package mysql

import (
	"context"

	"github.com/ajitpratap0/tabflow/pkg/config"
	"github.com/ajitpratap0/tabflow/pkg/registry"
	"github.com/ajitpratap0/tabflow/pkg/source"
	"github.com/ajitpratap0/tabflow/pkg/types"
)

func init() {
	registry.RegisterSource("mysql",
		"one SQL query per partition over database/sql (options: max_conns)",
		NewFromConfig)
}

// NewFromConfig connects using the source's connection string.
func NewFromConfig(ctx context.Context, cfg config.SourceConfig, schema []types.DataType) (source.SourceBuilder, error) {
	maxConns, err := cfg.IntOption("max_conns", len(cfg.Partitions))
	if err != nil {
		return nil, err
	}
	return Connect(ctx, cfg.ConnectionString, maxConns, schema)
}
