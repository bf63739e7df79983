package columnar

import (
	"github.com/ajitpratap0/tabflow/pkg/config"
	"github.com/ajitpratap0/tabflow/pkg/registry"
	"github.com/ajitpratap0/tabflow/pkg/writer"
)

func init() {
	registry.RegisterWriter("arrow",
		"one typed slice per column, exported as an Arrow IPC file",
		NewFromConfig)
}

// NewFromConfig names the Arrow fields after the destination columns.
func NewFromConfig(cfg config.DestinationConfig) (writer.Writer, error) {
	return New(WithFieldNames(cfg.Columns...)), nil
}
