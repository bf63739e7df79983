// Package source defines the contract a data source satisfies to be driven by
// the dispatcher: a builder that negotiates a data order and yields one Source
// per partition, and the Source itself, which produces typed cells in that
// order through the types.Producer capability.
package source

import (
	"context"
	"slices"

	"github.com/ajitpratap0/tabflow/pkg/types"
)

// SourceBuilder yields one Source per partition.
type SourceBuilder interface {
	// DataOrders lists the orders the builder's sources can emit. It is static
	// and may be called before anything else.
	DataOrders() []types.DataOrder
	// SetDataOrder fixes the order for every source built afterwards. It fails
	// with an unsupported data order error if order is not declared.
	SetDataOrder(order types.DataOrder) error
	// Build returns the source for the next partition. It is called exactly
	// once per partition, in partition order.
	Build() (Source, error)
}

// Source produces the cells of one partition.
type Source interface {
	types.Producer
	// Prepare hands the source its partition identifier (a query, a file path,
	// a row count) before any cell is produced. Pre-fetching sources load
	// their rows here.
	Prepare(ctx context.Context, query string) error
	// NRows is the exact number of rows the source will produce. Valid after
	// Prepare.
	NRows() int
}

// TypeReporter is implemented by sources that know the type of the value they
// emit for each column. The dispatcher asks such sources for exactly that type
// and lets the checked write compare it with the destination schema.
type TypeReporter interface {
	ProducedTypes() []types.DataType
}

// OrderSet implements DataOrders and SetDataOrder for builders.
type OrderSet struct {
	supported []types.DataOrder
	current   types.DataOrder
	set       bool
}

// NewOrderSet declares the supported orders. The first one is the default.
func NewOrderSet(supported ...types.DataOrder) OrderSet {
	o := OrderSet{supported: supported}
	if len(supported) > 0 {
		o.current = supported[0]
	}
	return o
}

// DataOrders returns the declared orders.
func (o *OrderSet) DataOrders() []types.DataOrder {
	return slices.Clone(o.supported)
}

// SetDataOrder selects order if it was declared.
func (o *OrderSet) SetDataOrder(order types.DataOrder) error {
	if !slices.Contains(o.supported, order) {
		return types.UnsupportedDataOrder(order)
	}
	o.current = order
	o.set = true
	return nil
}

// Order is the selected order, or the default if none was set.
func (o *OrderSet) Order() types.DataOrder {
	return o.current
}

// IsSet reports whether SetDataOrder succeeded at least once.
func (o *OrderSet) IsSet() bool {
	return o.set
}
