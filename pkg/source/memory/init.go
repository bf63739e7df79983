package memory

import (
	"context"
	"strings"

	"github.com/ajitpratap0/tabflow/pkg/config"
	"github.com/ajitpratap0/tabflow/pkg/registry"
	"github.com/ajitpratap0/tabflow/pkg/source"
	"github.com/ajitpratap0/tabflow/pkg/source/rowset"
	"github.com/ajitpratap0/tabflow/pkg/types"
)

func init() {
	registry.RegisterSource("memory",
		"inline rows: each partition is \"v,v;v,v\", an empty value is NULL",
		NewInlineBuilder)
}

// NewInlineBuilder parses each partition identifier as inline rows.
func NewInlineBuilder(_ context.Context, _ config.SourceConfig, schema []types.DataType) (source.SourceBuilder, error) {
	return rowset.NewBuilder("memory inline", schema, func(_ context.Context, query string) ([][]any, error) {
		return ParseInline(query), nil
	}), nil
}

// ParseInline splits "1,a;2,b" into rows of strings. Empty values are nil.
func ParseInline(s string) [][]any {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	lines := strings.Split(s, ";")
	rows := make([][]any, len(lines))
	for i, line := range lines {
		fields := strings.Split(line, ",")
		row := make([]any, len(fields))
		for j, f := range fields {
			if f = strings.TrimSpace(f); f != "" {
				row[j] = f
			}
		}
		rows[i] = row
	}
	return rows
}
