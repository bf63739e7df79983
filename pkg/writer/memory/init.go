package memory

import (
	"github.com/ajitpratap0/tabflow/pkg/config"
	"github.com/ajitpratap0/tabflow/pkg/registry"
	"github.com/ajitpratap0/tabflow/pkg/writer"
)

func init() {
	registry.RegisterWriter("memory",
		"row-major buffer of 64-bit cells; output is not persisted",
		func(config.DestinationConfig) (writer.Writer, error) { return New(), nil })
}
