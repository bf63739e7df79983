package config

import (
	"fmt"
	"strconv"

	"github.com/ajitpratap0/tabflow/pkg/errors"
	"github.com/ajitpratap0/tabflow/pkg/types"
)

// RunConfig describes one dispatch run.
type RunConfig struct {
	Name          string              `yaml:"name" json:"name"`
	Source        SourceConfig        `yaml:"source" json:"source"`
	Destination   DestinationConfig   `yaml:"destination" json:"destination"`
	Performance   PerformanceConfig   `yaml:"performance" json:"performance"`
	Output        OutputConfig        `yaml:"output" json:"output"`
	Observability ObservabilityConfig `yaml:"observability" json:"observability"`
}

// SourceConfig selects the source builder and its partitions.
type SourceConfig struct {
	// Type is a registered source name (csv, postgres, mysql, synthetic, memory)
	Type             string `yaml:"type" json:"type"`
	ConnectionString string `yaml:"connection_string,omitempty" json:"connection_string,omitempty"`
	// Partitions holds one identifier per partition: a query, a file path or
	// a row count, depending on the source
	Partitions []string          `yaml:"partitions" json:"partitions"`
	Options    map[string]string `yaml:"options,omitempty" json:"options,omitempty"`
}

// Option returns a source option or def when unset.
func (s SourceConfig) Option(key, def string) string {
	if v, ok := s.Options[key]; ok {
		return v
	}
	return def
}

// IntOption parses a source option as an integer.
func (s SourceConfig) IntOption(key string, def int) (int, error) {
	v, ok := s.Options[key]
	if !ok || v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, errors.Wrap(err, errors.ErrorTypeConfig, fmt.Sprintf("option %s must be an integer", key))
	}
	return n, nil
}

// BoolOption parses a source option as a boolean.
func (s SourceConfig) BoolOption(key string, def bool) (bool, error) {
	v, ok := s.Options[key]
	if !ok || v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, errors.Wrap(err, errors.ErrorTypeConfig, fmt.Sprintf("option %s must be a boolean", key))
	}
	return b, nil
}

// DestinationConfig selects the writer and the destination schema.
type DestinationConfig struct {
	// Type is a registered writer name (arrow, memory)
	Type    string   `yaml:"type" json:"type"`
	Columns []string `yaml:"columns,omitempty" json:"columns,omitempty"`
	// Schema lists DataType names, one per column
	Schema []string `yaml:"schema" json:"schema"`
}

// PerformanceConfig tunes the dispatcher.
type PerformanceConfig struct {
	// MaxWorkers bounds concurrent partitions; 0 runs one goroutine each
	MaxWorkers     int  `yaml:"max_workers" json:"max_workers"`
	CheckEveryCell bool `yaml:"check_every_cell" json:"check_every_cell"`
}

// OutputConfig says where the populated destination is written.
type OutputConfig struct {
	// Path is a local path or an s3:// or gs:// URL. Empty skips the export.
	Path             string `yaml:"path" json:"path,omitempty"`
	Compression      string `yaml:"compression" json:"compression,omitempty"`
	CompressionLevel int    `yaml:"compression_level" json:"compression_level,omitempty"`
}

// ObservabilityConfig controls logging, tracing and metrics.
type ObservabilityConfig struct {
	LogLevel      string `yaml:"log_level" json:"log_level"`
	LogEncoding   string `yaml:"log_encoding" json:"log_encoding"`
	EnableTracing bool   `yaml:"enable_tracing" json:"enable_tracing"`
	// MetricsAddr serves /metrics during the run when set, e.g. ":9090"
	MetricsAddr string `yaml:"metrics_addr" json:"metrics_addr,omitempty"`
}

// ApplyDefaults fills unset fields.
func (c *RunConfig) ApplyDefaults() {
	if c.Name == "" {
		c.Name = "tabflow"
	}
	if c.Destination.Type == "" {
		c.Destination.Type = "arrow"
	}
	if c.Output.Compression == "" {
		c.Output.Compression = "none"
	}
	if c.Observability.LogLevel == "" {
		c.Observability.LogLevel = "info"
	}
	if c.Observability.LogEncoding == "" {
		c.Observability.LogEncoding = "json"
	}
}

// Validate checks required fields and the schema.
func (c *RunConfig) Validate() error {
	if c.Source.Type == "" {
		return errors.New(errors.ErrorTypeConfig, "source.type is required")
	}
	if c.Destination.Type == "" {
		return errors.New(errors.ErrorTypeConfig, "destination.type is required")
	}
	if len(c.Destination.Schema) == 0 {
		return errors.New(errors.ErrorTypeConfig, "destination.schema must list at least one column")
	}
	if _, err := c.Schema(); err != nil {
		return err
	}
	if n := len(c.Destination.Columns); n > 0 && n != len(c.Destination.Schema) {
		return errors.New(errors.ErrorTypeConfig,
			fmt.Sprintf("destination.columns has %d names for %d schema entries", n, len(c.Destination.Schema)))
	}
	if c.Performance.MaxWorkers < 0 {
		return errors.New(errors.ErrorTypeConfig, "performance.max_workers must not be negative")
	}
	return nil
}

// Schema parses the destination schema.
func (c *RunConfig) Schema() ([]types.DataType, error) {
	schema, err := types.ParseSchema(c.Destination.Schema)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "invalid destination.schema")
	}
	return schema, nil
}
