package types

import (
	"fmt"
	"slices"

	"github.com/ajitpratap0/tabflow/pkg/errors"
)

// DataOrder is the traversal order in which a source emits cells.
type DataOrder uint8

const (
	// RowMajor emits every column of a row before moving to the next row.
	RowMajor DataOrder = iota
	// ColumnMajor emits every row of a column before moving to the next column.
	ColumnMajor
)

func (o DataOrder) String() string {
	switch o {
	case RowMajor:
		return "row_major"
	case ColumnMajor:
		return "column_major"
	default:
		return fmt.Sprintf("DataOrder(%d)", uint8(o))
	}
}

// negotiationPreference lists orders from most to least preferred.
var negotiationPreference = []DataOrder{ColumnMajor, RowMajor}

// NegotiateOrder picks the order both sides support, preferring column-major.
func NegotiateOrder(sourceOrders, writerOrders []DataOrder) (DataOrder, error) {
	for _, o := range negotiationPreference {
		if slices.Contains(sourceOrders, o) && slices.Contains(writerOrders, o) {
			return o, nil
		}
	}
	return 0, errors.New(errors.ErrorTypeDataOrder, "no data order supported by both source and writer").
		WithDetail("source_orders", orderNames(sourceOrders)).
		WithDetail("writer_orders", orderNames(writerOrders))
}

// UnsupportedDataOrder builds the error returned when a component is asked
// for an order it did not declare.
func UnsupportedDataOrder(order DataOrder) *errors.Error {
	return errors.New(errors.ErrorTypeDataOrder, fmt.Sprintf("data order %s is not supported", order)).
		WithDetail("order", order.String())
}

func orderNames(orders []DataOrder) []string {
	names := make([]string, len(orders))
	for i, o := range orders {
		names[i] = o.String()
	}
	return names
}
