// Package registry maps source and writer type names from run configurations
// to the factories that build them. Source and writer packages register
// themselves from init functions.
package registry

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/ajitpratap0/tabflow/pkg/config"
	"github.com/ajitpratap0/tabflow/pkg/errors"
	"github.com/ajitpratap0/tabflow/pkg/logger"
	"github.com/ajitpratap0/tabflow/pkg/source"
	"github.com/ajitpratap0/tabflow/pkg/types"
	"github.com/ajitpratap0/tabflow/pkg/writer"
)

// SourceFactory builds a source builder for a run. Builders holding
// connections also implement io.Closer.
type SourceFactory func(ctx context.Context, cfg config.SourceConfig, schema []types.DataType) (source.SourceBuilder, error)

// WriterFactory builds an unallocated writer.
type WriterFactory func(cfg config.DestinationConfig) (writer.Writer, error)

// Info describes a registered component.
type Info struct {
	Name        string `json:"name"`
	Kind        string `json:"kind"`
	Description string `json:"description"`
}

// Registry manages source and writer registration and instantiation
type Registry struct {
	sources map[string]SourceFactory
	writers map[string]WriterFactory
	info    map[string]Info
	mu      sync.RWMutex
	logger  *zap.Logger
}

// Global registry instance
var globalRegistry = NewRegistry()

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{
		sources: make(map[string]SourceFactory),
		writers: make(map[string]WriterFactory),
		info:    make(map[string]Info),
		logger:  logger.Component("registry"),
	}
}

// RegisterSource registers a source factory
func (r *Registry) RegisterSource(name, description string, factory SourceFactory) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.sources[name]; exists {
		return errors.New(errors.ErrorTypeConflict, fmt.Sprintf("source %s already registered", name))
	}

	r.sources[name] = factory
	r.info["source/"+name] = Info{Name: name, Kind: "source", Description: description}
	r.logger.Debug("source registered", zap.String("name", name))
	return nil
}

// RegisterWriter registers a writer factory
func (r *Registry) RegisterWriter(name, description string, factory WriterFactory) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.writers[name]; exists {
		return errors.New(errors.ErrorTypeConflict, fmt.Sprintf("writer %s already registered", name))
	}

	r.writers[name] = factory
	r.info["writer/"+name] = Info{Name: name, Kind: "writer", Description: description}
	r.logger.Debug("writer registered", zap.String("name", name))
	return nil
}

// CreateSource builds the source builder registered under cfg.Type
func (r *Registry) CreateSource(ctx context.Context, cfg config.SourceConfig, schema []types.DataType) (source.SourceBuilder, error) {
	r.mu.RLock()
	factory, exists := r.sources[cfg.Type]
	r.mu.RUnlock()

	if !exists {
		return nil, errors.New(errors.ErrorTypeNotFound, fmt.Sprintf("source %s not found", cfg.Type))
	}

	b, err := factory(ctx, cfg, schema)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, fmt.Sprintf("failed to create source %s", cfg.Type))
	}
	return b, nil
}

// CreateWriter builds the writer registered under cfg.Type
func (r *Registry) CreateWriter(cfg config.DestinationConfig) (writer.Writer, error) {
	r.mu.RLock()
	factory, exists := r.writers[cfg.Type]
	r.mu.RUnlock()

	if !exists {
		return nil, errors.New(errors.ErrorTypeNotFound, fmt.Sprintf("writer %s not found", cfg.Type))
	}

	w, err := factory(cfg)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, fmt.Sprintf("failed to create writer %s", cfg.Type))
	}
	return w, nil
}

// List returns every registered component sorted by kind and name
func (r *Registry) List() []Info {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Info, 0, len(r.info))
	for _, info := range r.info {
		out = append(out, info)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Kind != out[j].Kind {
			return out[i].Kind < out[j].Kind
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// Global registry functions

// RegisterSource registers a source in the global registry. It panics on a
// duplicate name, which can only come from two init functions.
func RegisterSource(name, description string, factory SourceFactory) {
	if err := globalRegistry.RegisterSource(name, description, factory); err != nil {
		panic(err)
	}
}

// RegisterWriter registers a writer in the global registry. It panics on a
// duplicate name.
func RegisterWriter(name, description string, factory WriterFactory) {
	if err := globalRegistry.RegisterWriter(name, description, factory); err != nil {
		panic(err)
	}
}

// CreateSource creates a source builder from the global registry
func CreateSource(ctx context.Context, cfg config.SourceConfig, schema []types.DataType) (source.SourceBuilder, error) {
	return globalRegistry.CreateSource(ctx, cfg, schema)
}

// CreateWriter creates a writer from the global registry
func CreateWriter(cfg config.DestinationConfig) (writer.Writer, error) {
	return globalRegistry.CreateWriter(cfg)
}

// List lists the global registry
func List() []Info {
	return globalRegistry.List()
}
