package synthetic

import (
	"context"

	"github.com/ajitpratap0/tabflow/pkg/config"
	"github.com/ajitpratap0/tabflow/pkg/registry"
	"github.com/ajitpratap0/tabflow/pkg/source"
	"github.com/ajitpratap0/tabflow/pkg/types"
)

func init() {
	registry.RegisterSource("synthetic",
		"deterministic generated values; each partition is a row count (options: seed, null_every)",
		NewFromConfig)
}

// NewFromConfig builds a synthetic builder from the seed and null_every
// options.
func NewFromConfig(_ context.Context, cfg config.SourceConfig, schema []types.DataType) (source.SourceBuilder, error) {
	seed, err := cfg.IntOption("seed", 0)
	if err != nil {
		return nil, err
	}
	nullEvery, err := cfg.IntOption("null_every", DefaultNullEvery)
	if err != nil {
		return nil, err
	}
	return NewBuilder(uint64(seed), len(schema), WithNullEvery(uint64(max(nullEvery, 0)))), nil
}
