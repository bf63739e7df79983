package csv

import (
	"context"

	"github.com/ajitpratap0/tabflow/pkg/config"
	"github.com/ajitpratap0/tabflow/pkg/registry"
	"github.com/ajitpratap0/tabflow/pkg/source"
	"github.com/ajitpratap0/tabflow/pkg/types"
)

func init() {
	registry.RegisterSource("csv",
		"one CSV file per partition, optionally compressed (options: delimiter, comment, has_header, null_value, lazy_quotes)",
		NewFromConfig)
}

// NewFromConfig reads parsing options from the source configuration.
func NewFromConfig(_ context.Context, cfg config.SourceConfig, schema []types.DataType) (source.SourceBuilder, error) {
	opts := DefaultOptions()
	var err error
	if d := cfg.Option("delimiter", ""); d != "" {
		if opts.Delimiter, err = parseRune("delimiter", d); err != nil {
			return nil, err
		}
	}
	if opts.Comment, err = parseRune("comment", cfg.Option("comment", "")); err != nil {
		return nil, err
	}
	if opts.HasHeader, err = cfg.BoolOption("has_header", true); err != nil {
		return nil, err
	}
	if opts.LazyQuotes, err = cfg.BoolOption("lazy_quotes", false); err != nil {
		return nil, err
	}
	opts.NullValue = cfg.Option("null_value", "")
	return NewBuilder(schema, opts), nil
}
